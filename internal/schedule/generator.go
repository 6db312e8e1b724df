package schedule

import (
	"strings"

	"github.com/shopspring/decimal"

	"github.com/felipesemedo05/parcelas-servico/internal/core"
)

// Generator splits purchases into installments. The zero value uses DefaultPolicy.
type Generator struct {
	Policy DuePolicy
}

func NewGenerator(policy DuePolicy) Generator {
	return Generator{Policy: policy}
}

// Generate validates p and returns its installments ordered by index.
//
// Every installment but the last is round(total/count, 2); the last one
// absorbs the residual so the amounts always sum to the total exactly.
func (g Generator) Generate(p core.Purchase) ([]core.Installment, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}
	policy := g.Policy
	if policy == nil {
		policy = DefaultPolicy()
	}

	count := int64(p.Count)
	total := p.Total.Decimal()
	base := core.MoneyFromDecimal(total.Div(decimal.NewFromInt(count)))
	last := core.Money{Cents: p.Total.Cents - base.Cents*(count-1)}

	start := p.Date.Period()
	reason := strings.TrimSpace(p.Reason)
	payee := strings.TrimSpace(p.Payee)
	method := strings.TrimSpace(p.Method)

	out := make([]core.Installment, 0, p.Count)
	for i := 1; i <= p.Count; i++ {
		amount := base
		if i == p.Count {
			amount = last
		}
		out = append(out, core.Installment{
			PurchaseDate: p.Date,
			Reason:       reason,
			Payee:        payee,
			Method:       method,
			Count:        p.Count,
			Total:        p.Total,
			Index:        i,
			Amount:       amount,
			Due:          start.AddMonths(policy.Offset(i)),
		})
	}
	return out, nil
}
