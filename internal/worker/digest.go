package worker

import (
	"fmt"
	"strings"

	"github.com/felipesemedo05/parcelas-servico/internal/aggregate"
	"github.com/felipesemedo05/parcelas-servico/internal/core"
)

// Report is the monthly digest: what is due now and what comes next.
type Report struct {
	Ref           core.Period
	Current       core.PeriodDetail
	ByMethod      aggregate.MethodPivot
	Upcoming      []core.MonthTotal
	ForecastTotal core.Money
}

// BuildReport summarises recs for ref, listing at most upcoming future months.
func BuildReport(recs []core.Installment, ref core.Period, upcoming int) Report {
	fc := aggregate.Forecast(recs, ref)
	next := fc.Totals
	if upcoming >= 0 && len(next) > upcoming {
		next = next[:upcoming]
	}
	return Report{
		Ref:           ref,
		Current:       aggregate.Current(recs, ref),
		ByMethod:      aggregate.CurrentByMethod(recs, ref),
		Upcoming:      next,
		ForecastTotal: fc.Total(),
	}
}

func (r Report) Subject() string {
	return fmt.Sprintf("Parcelas de %s: %s", r.Ref.Key(), r.Current.Total.BRL())
}

// Text renders the plain-text body.
func (r Report) Text() string {
	var b strings.Builder
	fmt.Fprintf(&b, "Resumo de parcelas - %s\n\n", r.Ref.Key())

	if len(r.Current.Items) == 0 {
		b.WriteString("Nenhuma parcela neste mês.\n")
	} else {
		for _, it := range r.Current.Items {
			b.WriteString("- " + it.Line() + "\n")
		}
		fmt.Fprintf(&b, "\nTotal do mês: %s\n", r.Current.Total.BRL())
	}

	if len(r.ByMethod.Methods) > 0 {
		b.WriteString("\nPor método:\n")
		for _, m := range r.ByMethod.Methods {
			fmt.Fprintf(&b, "- %s: %s\n", m, r.ByMethod.Series[m][0].BRL())
		}
	}

	if len(r.Upcoming) > 0 {
		b.WriteString("\nPróximos meses:\n")
		for _, t := range r.Upcoming {
			fmt.Fprintf(&b, "- %s: %s\n", t.Key, t.Total.BRL())
		}
		fmt.Fprintf(&b, "\nTotal futuro: %s\n", r.ForecastTotal.BRL())
	}
	return b.String()
}
