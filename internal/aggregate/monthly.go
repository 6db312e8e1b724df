// Package aggregate rolls installment records up into the monthly, per-method,
// per-purchase and projected views shown to the user.
//
// Every function is pure: inputs are never mutated and an empty input yields
// an empty view. Period ordering is always chronological on (year, month).
package aggregate

import (
	"sort"

	"github.com/felipesemedo05/parcelas-servico/internal/core"
)

// MonthlyTotals groups recs by due period and sums the amounts.
func MonthlyTotals(recs []core.Installment) []core.MonthTotal {
	sums := make(map[core.Period]int64)
	for _, r := range recs {
		sums[r.Due] += r.Amount.Cents
	}
	return fromSums(sums)
}

// MonthlyTotalsForYear is MonthlyTotals restricted to periods in year.
func MonthlyTotalsForYear(recs []core.Installment, year int) []core.MonthTotal {
	sums := make(map[core.Period]int64)
	for _, r := range recs {
		if r.Due.Year == year {
			sums[r.Due] += r.Amount.Cents
		}
	}
	return fromSums(sums)
}

// Regroup aggregates an already summed view again by its period.
// Applied to MonthlyTotals output it returns the same totals.
func Regroup(totals []core.MonthTotal) []core.MonthTotal {
	sums := make(map[core.Period]int64, len(totals))
	for _, t := range totals {
		sums[t.Period] += t.Total.Cents
	}
	return fromSums(sums)
}

// AvailableYears lists the distinct due years, ascending.
func AvailableYears(recs []core.Installment) []int {
	seen := make(map[int]struct{})
	years := []int{}
	for _, r := range recs {
		if _, ok := seen[r.Due.Year]; ok {
			continue
		}
		seen[r.Due.Year] = struct{}{}
		years = append(years, r.Due.Year)
	}
	sort.Ints(years)
	return years
}

// GrandTotal sums every record amount.
func GrandTotal(recs []core.Installment) core.Money {
	var c int64
	for _, r := range recs {
		c += r.Amount.Cents
	}
	return core.Money{Cents: c}
}

func fromSums(sums map[core.Period]int64) []core.MonthTotal {
	out := make([]core.MonthTotal, 0, len(sums))
	for p, c := range sums {
		out = append(out, core.MonthTotal{Period: p, Key: p.Key(), Total: core.Money{Cents: c}})
	}
	sortTotals(out)
	return out
}

func sortTotals(ts []core.MonthTotal) {
	sort.Slice(ts, func(i, j int) bool { return ts[i].Period.Before(ts[j].Period) })
}

// sortedPeriods returns the keys of set in chronological order.
func sortedPeriods(set map[core.Period]struct{}) []core.Period {
	out := make([]core.Period, 0, len(set))
	for p := range set {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Before(out[j]) })
	return out
}
