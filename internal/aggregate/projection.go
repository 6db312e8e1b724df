package aggregate

import (
	"github.com/felipesemedo05/parcelas-servico/internal/core"
)

// Tagged is an installment labelled with where it came from.
type Tagged struct {
	core.Installment
	Origin core.Origin
}

// OriginTotal is the amount due in one period from one origin.
type OriginTotal struct {
	Period core.Period
	Key    string
	Origin core.Origin
	Total  core.Money
}

// Projection merges persisted and simulated installments.
type Projection struct {
	Items    []Tagged
	ByOrigin []OriginTotal
	Totals   []core.MonthTotal
}

// Combine tags real and simulated records and totals them per period.
// Neither input slice is modified.
func Combine(real, simulated []core.Installment) Projection {
	items := make([]Tagged, 0, len(real)+len(simulated))
	for _, r := range real {
		items = append(items, Tagged{Installment: r, Origin: core.OriginReal})
	}
	for _, r := range simulated {
		items = append(items, Tagged{Installment: r, Origin: core.OriginSimulated})
	}

	type key struct {
		p core.Period
		o core.Origin
	}
	byOrigin := make(map[key]int64)
	grand := make(map[core.Period]int64)
	for _, t := range items {
		byOrigin[key{t.Due, t.Origin}] += t.Amount.Cents
		grand[t.Due] += t.Amount.Cents
	}

	proj := Projection{Items: items, Totals: fromSums(grand), ByOrigin: []OriginTotal{}}
	for _, mt := range proj.Totals {
		for _, o := range []core.Origin{core.OriginReal, core.OriginSimulated} {
			c, ok := byOrigin[key{mt.Period, o}]
			if !ok {
				continue
			}
			proj.ByOrigin = append(proj.ByOrigin, OriginTotal{
				Period: mt.Period,
				Key:    mt.Key,
				Origin: o,
				Total:  core.Money{Cents: c},
			})
		}
	}
	return proj
}

// OriginTotals returns the per-period totals for one origin.
func (p Projection) OriginTotals(o core.Origin) []core.MonthTotal {
	out := []core.MonthTotal{}
	for _, t := range p.ByOrigin {
		if t.Origin == o {
			out = append(out, core.MonthTotal{Period: t.Period, Key: t.Key, Total: t.Total})
		}
	}
	return out
}
