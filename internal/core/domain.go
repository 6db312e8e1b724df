package core

import (
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"
)

// MaxInstallments bounds a single purchase to fifty years of monthly payments.
const MaxInstallments = 600

// MaxReasonLength is counted in characters, like the form's maxlength.
const MaxReasonLength = 200

type (
	Date struct {
		time.Time
	}

	Money struct {
		Cents int64
	}

	// Purchase is the registration input: one purchase split into Count installments.
	Purchase struct {
		Date   Date
		Reason string
		Payee  string
		Method string
		Total  Money
		Count  int
	}

	// Installment is one scheduled payment of a purchase. It is immutable once generated.
	Installment struct {
		PurchaseDate Date
		Reason       string
		Payee        string
		Method       string
		Count        int   // total installments of the purchase
		Total        Money // original purchase amount
		Index        int   // 1-based position within the purchase
		Amount       Money
		Due          Period
	}
)

var (
	ErrEmptyReason   = errors.New("empty reason")
	ErrReasonTooLong = errors.New("reason too long")
	ErrEmptyPayee    = errors.New("empty payee")
	ErrEmptyMethod   = errors.New("empty payment method")
	ErrInvalidAmount = errors.New("invalid amount")
	ErrInvalidCount  = errors.New("invalid installment count")
	ErrInvalidDate   = errors.New("invalid date")
	ErrInvalidMonth  = errors.New("invalid month")
)

// ValidationError reports which input field was rejected.
type ValidationError struct {
	Field string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %v", e.Field, e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func invalid(field string, err error) error {
	return &ValidationError{Field: field, Err: err}
}

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// NewDate creates a new Date from year, month, day
func NewDate(year, month, day int) Date {
	return Date{Time: time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates t to its calendar day.
func DateOf(t time.Time) Date {
	return NewDate(t.Year(), int(t.Month()), t.Day())
}

// Month returns the month
func (d Date) Month() int {
	return int(d.Time.Month())
}

// Period returns the calendar month the date falls in.
func (d Date) Period() Period {
	return Period{Year: d.Year(), Month: d.Month()}
}

// String formats the date as YYYY-MM-DD, the layout used by the record store.
func (d Date) String() string {
	if d.IsZero() {
		return ""
	}
	return d.Format("2006-01-02")
}

func (m Money) Validate() error {
	if m.Cents <= 0 {
		return ErrInvalidAmount
	}
	return nil
}

func (p Purchase) Validate() error {
	if p.Date.IsZero() {
		return invalid("date", ErrInvalidDate)
	}
	if strings.TrimSpace(p.Reason) == "" {
		return invalid("reason", ErrEmptyReason)
	}
	if utf8.RuneCountInString(p.Reason) > MaxReasonLength {
		return invalid("reason", ErrReasonTooLong)
	}
	if strings.TrimSpace(p.Payee) == "" {
		return invalid("payee", ErrEmptyPayee)
	}
	if strings.TrimSpace(p.Method) == "" {
		return invalid("method", ErrEmptyMethod)
	}
	if err := p.Total.Validate(); err != nil {
		return invalid("total", err)
	}
	if p.Count < 1 || p.Count > MaxInstallments {
		return invalid("count", ErrInvalidCount)
	}
	return nil
}

// Line renders the installment the way the detail lists show it.
func (i Installment) Line() string {
	return fmt.Sprintf("%s - Parcela %d/%d | Valor: R$ %s | Método: %s | Pra quem: %s",
		i.Reason, i.Index, i.Count, i.Amount.String(), i.Method, i.Payee)
}

// ForecastLine is Line prefixed with the due month key.
func (i Installment) ForecastLine() string {
	return i.Due.Key() + " - " + i.Line()
}
