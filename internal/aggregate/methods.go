package aggregate

import (
	"sort"

	"github.com/felipesemedo05/parcelas-servico/internal/core"
)

// MethodPivot has one series per payment method across every period present
// in the input. Absent (method, period) cells are zero.
type MethodPivot struct {
	Periods []core.Period
	Methods []string
	Series  map[string][]core.Money
}

// Keys returns the "MM/YYYY" labels matching Periods.
func (p MethodPivot) Keys() []string {
	keys := make([]string, len(p.Periods))
	for i, per := range p.Periods {
		keys[i] = per.Key()
	}
	return keys
}

// MonthTotals sums the pivot across methods for each period.
func (p MethodPivot) MonthTotals() []core.MonthTotal {
	out := make([]core.MonthTotal, len(p.Periods))
	for i, per := range p.Periods {
		var c int64
		for _, m := range p.Methods {
			c += p.Series[m][i].Cents
		}
		out[i] = core.MonthTotal{Period: per, Key: per.Key(), Total: core.Money{Cents: c}}
	}
	return out
}

// ByMethod pivots recs into per-method series.
func ByMethod(recs []core.Installment) MethodPivot {
	periodSet := make(map[core.Period]struct{})
	cells := make(map[string]map[core.Period]int64)
	for _, r := range recs {
		periodSet[r.Due] = struct{}{}
		row, ok := cells[r.Method]
		if !ok {
			row = make(map[core.Period]int64)
			cells[r.Method] = row
		}
		row[r.Due] += r.Amount.Cents
	}

	pivot := MethodPivot{
		Periods: sortedPeriods(periodSet),
		Methods: make([]string, 0, len(cells)),
		Series:  make(map[string][]core.Money, len(cells)),
	}
	for m := range cells {
		pivot.Methods = append(pivot.Methods, m)
	}
	sort.Strings(pivot.Methods)
	for _, m := range pivot.Methods {
		series := make([]core.Money, len(pivot.Periods))
		for i, per := range pivot.Periods {
			series[i] = core.Money{Cents: cells[m][per]}
		}
		pivot.Series[m] = series
	}
	return pivot
}

// CurrentByMethod is ByMethod restricted to the reference period.
func CurrentByMethod(recs []core.Installment, ref core.Period) MethodPivot {
	return ByMethod(Current(recs, ref).Items)
}
