// Package core provides money parsing and handling utilities.
//
// Amounts are stored as integer cents; conversions to and from decimal
// strings go through shopspring/decimal so rounding is exact.
package core

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseDecimalToCents converts a decimal string to cents with half-up rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators, as well as
// Brazilian thousands grouping (1.234,56). The result is always positive cents.
//
// Examples:
//
//	ParseDecimalToCents("12.34")    -> 1234, nil
//	ParseDecimalToCents("12,34")    -> 1234, nil
//	ParseDecimalToCents("1.234,56") -> 123456, nil
//	ParseDecimalToCents("12.345")   -> 1235, nil (half-up)
func ParseDecimalToCents(s string) (int64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimPrefix(s, "R$")
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return 0, ErrInvalidAmount
	}
	if strings.Contains(s, ",") {
		// Comma is the decimal separator; dots can only be grouping.
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0)
	if cents.Sign() <= 0 {
		return 0, ErrInvalidAmount
	}
	if cents.GreaterThan(decimal.NewFromInt(1 << 53)) {
		return 0, ErrInvalidAmount
	}
	return cents.IntPart(), nil
}

// MoneyFromDecimal rounds d to the cent (half away from zero).
func MoneyFromDecimal(d decimal.Decimal) Money {
	return Money{Cents: d.Mul(hundred).Round(0).IntPart()}
}

// Decimal returns the amount in currency units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Reais returns the value as a float64 for charts and JSON.
// Use cents for calculations.
func (m Money) Reais() float64 {
	return m.Decimal().InexactFloat64()
}

func (m Money) Add(o Money) Money { return Money{Cents: m.Cents + o.Cents} }

// String formats with a dot separator and two decimals ("33.34").
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}

// BRL formats for display: "R$ 1.234,56".
func (m Money) BRL() string {
	neg := m.Cents < 0
	c := m.Cents
	if neg {
		c = -c
	}
	digits := strconv.FormatInt(c/100, 10)
	var b strings.Builder
	for i, d := range digits {
		if i > 0 && (len(digits)-i)%3 == 0 {
			b.WriteByte('.')
		}
		b.WriteRune(d)
	}
	s := "R$ " + b.String() + "," + fmt.Sprintf("%02d", c%100)
	if neg {
		return "-" + s
	}
	return s
}
