package aggregate

import (
	"sort"

	"github.com/felipesemedo05/parcelas-servico/internal/core"
)

// Current returns the installments due in the reference period.
func Current(recs []core.Installment, ref core.Period) core.PeriodDetail {
	d := core.PeriodDetail{Period: ref, Items: []core.Installment{}}
	for _, r := range recs {
		if r.Due == ref {
			d.Items = append(d.Items, r)
			d.Total = d.Total.Add(r.Amount)
		}
	}
	return d
}

// ForecastView holds everything due strictly after Ref.
type ForecastView struct {
	Ref    core.Period
	Totals []core.MonthTotal
	Items  []core.Installment
}

// Forecast collects records due after ref, itemised in due order.
func Forecast(recs []core.Installment, ref core.Period) ForecastView {
	items := []core.Installment{}
	for _, r := range recs {
		if r.Due.After(ref) {
			items = append(items, r)
		}
	}
	sort.SliceStable(items, func(i, j int) bool { return items[i].Due.Before(items[j].Due) })
	return ForecastView{Ref: ref, Totals: MonthlyTotals(items), Items: items}
}

// FuturePeriods lists the periods that have at least one installment.
func (v ForecastView) FuturePeriods() []core.Period {
	out := make([]core.Period, 0, len(v.Totals))
	for _, t := range v.Totals {
		out = append(out, t.Period)
	}
	return out
}

// Filter narrows the view to a single period. A period outside the
// forecast yields an empty view.
func (v ForecastView) Filter(p core.Period) ForecastView {
	out := ForecastView{Ref: v.Ref, Totals: []core.MonthTotal{}, Items: []core.Installment{}}
	for _, r := range v.Items {
		if r.Due == p {
			out.Items = append(out.Items, r)
		}
	}
	for _, t := range v.Totals {
		if t.Period == p {
			out.Totals = append(out.Totals, t)
		}
	}
	return out
}

// Total sums the forecast.
func (v ForecastView) Total() core.Money {
	return GrandTotal(v.Items)
}
