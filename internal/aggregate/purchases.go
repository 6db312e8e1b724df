package aggregate

import (
	"sort"

	"github.com/felipesemedo05/parcelas-servico/internal/core"
)

// PurchaseSummary shows how far along one purchase is relative to a reference period.
type PurchaseSummary struct {
	PurchaseDate core.Date
	Reason       string
	Payee        string
	Method       string
	Count        int
	Total        core.Money
	Paid         core.Money // due on or before the reference period
	Remaining    core.Money
	PaidCount    int
	First        core.Period
	Last         core.Period
}

// Done reports whether every installment is due on or before the reference.
func (s PurchaseSummary) Done() bool { return s.Remaining.Cents == 0 }

// ByPurchase groups records by their implicit purchase identity
// (date, reason, payee, method, count, total). Summaries are ordered by
// purchase date, then reason.
func ByPurchase(recs []core.Installment, ref core.Period) []PurchaseSummary {
	type id struct {
		date   core.Date
		reason string
		payee  string
		method string
		count  int
		total  int64
	}
	index := make(map[id]int)
	out := []PurchaseSummary{}
	for _, r := range recs {
		k := id{r.PurchaseDate, r.Reason, r.Payee, r.Method, r.Count, r.Total.Cents}
		i, ok := index[k]
		if !ok {
			i = len(out)
			index[k] = i
			out = append(out, PurchaseSummary{
				PurchaseDate: r.PurchaseDate,
				Reason:       r.Reason,
				Payee:        r.Payee,
				Method:       r.Method,
				Count:        r.Count,
				Total:        r.Total,
				First:        r.Due,
				Last:         r.Due,
			})
		}
		s := &out[i]
		if r.Due.After(ref) {
			s.Remaining = s.Remaining.Add(r.Amount)
		} else {
			s.Paid = s.Paid.Add(r.Amount)
			s.PaidCount++
		}
		if r.Due.Before(s.First) {
			s.First = r.Due
		}
		if r.Due.After(s.Last) {
			s.Last = r.Due
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		if !out[i].PurchaseDate.Equal(out[j].PurchaseDate.Time) {
			return out[i].PurchaseDate.Before(out[j].PurchaseDate.Time)
		}
		return out[i].Reason < out[j].Reason
	})
	return out
}
