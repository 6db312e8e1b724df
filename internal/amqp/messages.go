package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/felipesemedo05/parcelas-servico/internal/core"
)

// InstallmentPayload is the per-installment part of a registration event.
type InstallmentPayload struct {
	Index       int   `json:"index"`
	AmountCents int64 `json:"amount_cents"`
	DueYear     int   `json:"due_year"`
	DueMonth    int   `json:"due_month"`
}

// InstallmentsRegisteredMessage announces a purchase whose installments were
// persisted. It carries the full batch so consumers never read the store.
type InstallmentsRegisteredMessage struct {
	ID           string               `json:"id"`
	PurchaseDate string               `json:"purchase_date"`
	Reason       string               `json:"reason"`
	Payee        string               `json:"payee"`
	Method       string               `json:"method"`
	TotalCents   int64                `json:"total_cents"`
	Count        int                  `json:"count"`
	Installments []InstallmentPayload `json:"installments"`
	Timestamp    time.Time            `json:"timestamp"`
}

// NewInstallmentsRegisteredMessage builds the event for one purchase batch.
// recs must come from a single Generate call.
func NewInstallmentsRegisteredMessage(recs []core.Installment) (*InstallmentsRegisteredMessage, error) {
	if len(recs) == 0 {
		return nil, fmt.Errorf("empty installment batch")
	}
	first := recs[0]
	msg := &InstallmentsRegisteredMessage{
		ID:           uuid.NewString(),
		PurchaseDate: first.PurchaseDate.String(),
		Reason:       first.Reason,
		Payee:        first.Payee,
		Method:       first.Method,
		TotalCents:   first.Total.Cents,
		Count:        first.Count,
		Installments: make([]InstallmentPayload, 0, len(recs)),
		Timestamp:    time.Now(),
	}
	for _, r := range recs {
		msg.Installments = append(msg.Installments, InstallmentPayload{
			Index:       r.Index,
			AmountCents: r.Amount.Cents,
			DueYear:     r.Due.Year,
			DueMonth:    r.Due.Month,
		})
	}
	return msg, nil
}

// Records rebuilds the installment records carried by the message. Decode
// failures wrap ErrInvalidMessage.
func (m *InstallmentsRegisteredMessage) Records() ([]core.Installment, error) {
	var date core.Date
	if m.PurchaseDate != "" {
		t, err := time.Parse("2006-01-02", m.PurchaseDate)
		if err != nil {
			return nil, fmt.Errorf("%w: purchase date: %w", ErrInvalidMessage, err)
		}
		date = core.DateOf(t)
	}
	out := make([]core.Installment, 0, len(m.Installments))
	for _, p := range m.Installments {
		due, err := core.NewPeriod(p.DueYear, p.DueMonth)
		if err != nil {
			return nil, fmt.Errorf("%w: installment %d: %w", ErrInvalidMessage, p.Index, err)
		}
		out = append(out, core.Installment{
			PurchaseDate: date,
			Reason:       m.Reason,
			Payee:        m.Payee,
			Method:       m.Method,
			Count:        m.Count,
			Total:        core.Money{Cents: m.TotalCents},
			Index:        p.Index,
			Amount:       core.Money{Cents: p.AmountCents},
			Due:          due,
		})
	}
	return out, nil
}

// DueKeys lists the "MM/YYYY" labels of the installments, in order.
func (m *InstallmentsRegisteredMessage) DueKeys() []string {
	keys := make([]string, len(m.Installments))
	for i, p := range m.Installments {
		keys[i] = core.Period{Year: p.DueYear, Month: p.DueMonth}.Key()
	}
	return keys
}

// ToJSON converts the message to JSON bytes
func (m *InstallmentsRegisteredMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// InstallmentsRegisteredMessageFromJSON decodes a message from JSON bytes.
func InstallmentsRegisteredMessageFromJSON(data []byte) (*InstallmentsRegisteredMessage, error) {
	var msg InstallmentsRegisteredMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if msg.ID == "" {
		return nil, fmt.Errorf("message without id")
	}
	return &msg, nil
}
