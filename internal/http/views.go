package http

import (
	"github.com/felipesemedo05/parcelas-servico/internal/aggregate"
	"github.com/felipesemedo05/parcelas-servico/internal/core"
	"github.com/felipesemedo05/parcelas-servico/internal/services"
)

// The view types are what templates render and what /api/* encodes.
// Amounts carry cents for exactness, reais for charts and a display string.

type amountView struct {
	Cents   int64   `json:"cents"`
	Reais   float64 `json:"reais"`
	Display string  `json:"display"`
}

func amountOf(m core.Money) amountView {
	return amountView{Cents: m.Cents, Reais: m.Reais(), Display: m.BRL()}
}

type monthTotalView struct {
	Key   string     `json:"key"`
	Year  int        `json:"year"`
	Month int        `json:"month"`
	Total amountView `json:"total"`
	// Width is the bar length in percent of the largest month shown.
	Width int `json:"-"`
}

func monthTotalsOf(ts []core.MonthTotal) []monthTotalView {
	var max int64
	for _, t := range ts {
		if t.Total.Cents > max {
			max = t.Total.Cents
		}
	}
	out := make([]monthTotalView, len(ts))
	for i, t := range ts {
		out[i] = monthTotalView{
			Key:   t.Key,
			Year:  t.Period.Year,
			Month: t.Period.Month,
			Total: amountOf(t.Total),
			Width: barWidth(t.Total.Cents, max),
		}
	}
	return out
}

// barWidth is a rounded percentage with a floor of 2 so tiny values stay visible.
func barWidth(cents, max int64) int {
	if max <= 0 || cents <= 0 {
		return 0
	}
	w := int((cents*100 + max/2) / max)
	if w < 2 {
		w = 2
	}
	if w > 100 {
		w = 100
	}
	return w
}

type installmentView struct {
	PurchaseDate  string     `json:"purchase_date"`
	Reason        string     `json:"reason"`
	Payee         string     `json:"payee"`
	Method        string     `json:"method"`
	Index         int        `json:"index"`
	Count         int        `json:"count"`
	Amount        amountView `json:"amount"`
	PurchaseTotal amountView `json:"purchase_total"`
	Due           string     `json:"due"`
	Line          string     `json:"line"`
}

func installmentsOf(recs []core.Installment, forecast bool) []installmentView {
	out := make([]installmentView, len(recs))
	for i, r := range recs {
		line := r.Line()
		if forecast {
			line = r.ForecastLine()
		}
		out[i] = installmentView{
			PurchaseDate:  r.PurchaseDate.String(),
			Reason:        r.Reason,
			Payee:         r.Payee,
			Method:        r.Method,
			Index:         r.Index,
			Count:         r.Count,
			Amount:        amountOf(r.Amount),
			PurchaseTotal: amountOf(r.Total),
			Due:           r.Due.Key(),
			Line:          line,
		}
	}
	return out
}

type periodView struct {
	Key   string            `json:"key"`
	Items []installmentView `json:"items"`
	Total amountView        `json:"total"`
}

type forecastView struct {
	Periods  []string          `json:"periods"`
	Totals   []monthTotalView  `json:"totals"`
	Items    []installmentView `json:"items"`
	Total    amountView        `json:"total"`
	Selected *periodView       `json:"selected,omitempty"`
}

type methodPivotView struct {
	Periods []string                `json:"periods"`
	Methods []string                `json:"methods"`
	Series  map[string][]amountView `json:"series"`
	Totals  []monthTotalView        `json:"totals"`
}

func pivotOf(p aggregate.MethodPivot) methodPivotView {
	v := methodPivotView{
		Periods: p.Keys(),
		Methods: append([]string{}, p.Methods...),
		Series:  make(map[string][]amountView, len(p.Methods)),
		Totals:  monthTotalsOf(p.MonthTotals()),
	}
	for _, m := range p.Methods {
		row := make([]amountView, len(p.Series[m]))
		for i, c := range p.Series[m] {
			row[i] = amountOf(c)
		}
		v.Series[m] = row
	}
	return v
}

// methodRow flattens one pivot series for the HTML table.
type methodRow struct {
	Method string
	Cells  []amountView
}

func (v methodPivotView) Rows() []methodRow {
	rows := make([]methodRow, len(v.Methods))
	for i, m := range v.Methods {
		rows[i] = methodRow{Method: m, Cells: v.Series[m]}
	}
	return rows
}

type purchaseView struct {
	PurchaseDate string     `json:"purchase_date"`
	Reason       string     `json:"reason"`
	Payee        string     `json:"payee"`
	Method       string     `json:"method"`
	Count        int        `json:"count"`
	PaidCount    int        `json:"paid_count"`
	Total        amountView `json:"total"`
	Paid         amountView `json:"paid"`
	Remaining    amountView `json:"remaining"`
	First        string     `json:"first_due"`
	Last         string     `json:"last_due"`
	Done         bool       `json:"done"`
}

func purchasesOf(ss []aggregate.PurchaseSummary) []purchaseView {
	out := make([]purchaseView, len(ss))
	for i, s := range ss {
		out[i] = purchaseView{
			PurchaseDate: s.PurchaseDate.String(),
			Reason:       s.Reason,
			Payee:        s.Payee,
			Method:       s.Method,
			Count:        s.Count,
			PaidCount:    s.PaidCount,
			Total:        amountOf(s.Total),
			Paid:         amountOf(s.Paid),
			Remaining:    amountOf(s.Remaining),
			First:        s.First.Key(),
			Last:         s.Last.Key(),
			Done:         s.Done(),
		}
	}
	return out
}

// summaryView is every aggregate the page shows for one query.
type summaryView struct {
	Ref            string            `json:"ref"`
	Year           int               `json:"year"`
	Years          []int             `json:"years"`
	Monthly        []monthTotalView  `json:"monthly"`
	YearMonthly    []monthTotalView  `json:"year_monthly"`
	Current        periodView        `json:"current"`
	Forecast       forecastView      `json:"forecast"`
	Methods        methodPivotView   `json:"methods"`
	CurrentMethods methodPivotView   `json:"current_methods"`
	Purchases      []purchaseView    `json:"purchases"`
	Records        []installmentView `json:"records"`
	GrandTotal     amountView        `json:"grand_total"`
}

func buildSummary(recs []core.Installment, q ViewQuery) summaryView {
	years := aggregate.AvailableYears(recs)
	if len(years) == 0 {
		years = []int{q.Ref.Year}
	}

	cur := aggregate.Current(recs, q.Ref)
	fc := aggregate.Forecast(recs, q.Ref)

	fv := forecastView{
		Periods: make([]string, 0, len(fc.Totals)),
		Totals:  monthTotalsOf(fc.Totals),
		Items:   installmentsOf(fc.Items, true),
		Total:   amountOf(fc.Total()),
	}
	for _, p := range fc.FuturePeriods() {
		fv.Periods = append(fv.Periods, p.Key())
	}
	if q.HasSelection() {
		sel := fc.Filter(q.Selected)
		fv.Selected = &periodView{
			Key:   q.Selected.Key(),
			Items: installmentsOf(sel.Items, true),
			Total: amountOf(sel.Total()),
		}
	}

	return summaryView{
		Ref:         q.Ref.Key(),
		Year:        q.Year,
		Years:       years,
		Monthly:     monthTotalsOf(aggregate.MonthlyTotals(recs)),
		YearMonthly: monthTotalsOf(aggregate.MonthlyTotalsForYear(recs, q.Year)),
		Current: periodView{
			Key:   cur.Period.Key(),
			Items: installmentsOf(cur.Items, false),
			Total: amountOf(cur.Total),
		},
		Forecast:       fv,
		Methods:        pivotOf(aggregate.ByMethod(recs)),
		CurrentMethods: pivotOf(aggregate.CurrentByMethod(recs, q.Ref)),
		Purchases:      purchasesOf(aggregate.ByPurchase(recs, q.Ref)),
		Records:        installmentsOf(recs, false),
		GrandTotal:     amountOf(aggregate.GrandTotal(recs)),
	}
}

// projectionRow is one month of a simulation, split by origin.
type projectionRow struct {
	Key       string     `json:"key"`
	Real      amountView `json:"real"`
	Simulated amountView `json:"simulated"`
	Total     amountView `json:"total"`
}

type simulationView struct {
	Installments []installmentView `json:"installments"`
	Total        amountView        `json:"total"`
	Months       []projectionRow   `json:"months"`
}

func simulationOf(sim services.Simulation) simulationView {
	type split struct{ real, simulated core.Money }
	byKey := make(map[string]split)
	for _, ot := range sim.Projection.ByOrigin {
		s := byKey[ot.Key]
		if ot.Origin == core.OriginSimulated {
			s.simulated = s.simulated.Add(ot.Total)
		} else {
			s.real = s.real.Add(ot.Total)
		}
		byKey[ot.Key] = s
	}

	v := simulationView{
		Installments: installmentsOf(sim.Installments, true),
		Total:        amountOf(aggregate.GrandTotal(sim.Installments)),
		Months:       make([]projectionRow, 0, len(sim.Projection.Totals)),
	}
	for _, t := range sim.Projection.Totals {
		s := byKey[t.Key]
		v.Months = append(v.Months, projectionRow{
			Key:       t.Key,
			Real:      amountOf(s.real),
			Simulated: amountOf(s.simulated),
			Total:     amountOf(t.Total),
		})
	}
	return v
}
