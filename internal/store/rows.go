package store

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/felipesemedo05/parcelas-servico/internal/core"
)

// Column names of the tabular layout, in file order.
const (
	ColDate        = "Data"
	ColReason      = "Motivo"
	ColPayee       = "Destinatário"
	ColMethod      = "Método"
	ColCount       = "Parcelas"
	ColTotal       = "Valor Total"
	ColIndex       = "Parcela"
	ColAmount      = "Valor"
	ColPeriodKey   = "Mes/Ano"
	ColYear        = "Ano"
	ColMonth       = "Mes"
	legacyColPayee = "Destinatario"
)

// Header is the exact header row written by every tabular adapter.
var Header = []string{
	ColDate, ColReason, ColPayee, ColMethod, ColCount, ColTotal,
	ColIndex, ColAmount, ColPeriodKey, ColYear, ColMonth,
}

var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
	"02/01/2006",
}

// Columns maps each known column name to its position in a header row.
type Columns map[string]int

// IndexHeader locates the known columns in header. Unknown columns are
// ignored; missing ones read as empty. A header without any known column
// is rejected.
func IndexHeader(header []string) (Columns, error) {
	cols := make(Columns, len(Header))
	for i, h := range header {
		name := strings.TrimSpace(strings.TrimPrefix(h, "\ufeff"))
		if name == legacyColPayee {
			name = ColPayee
		}
		if _, dup := cols[name]; !dup {
			cols[name] = i
		}
	}
	for _, name := range Header {
		if _, ok := cols[name]; ok {
			return cols, nil
		}
	}
	return nil, fmt.Errorf("unrecognised header %v", header)
}

func (c Columns) get(row []string, name string) string {
	i, ok := c[name]
	if !ok || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// EncodeRow renders one installment in Header order.
func EncodeRow(r core.Installment) []string {
	return []string{
		r.PurchaseDate.String(),
		r.Reason,
		r.Payee,
		r.Method,
		strconv.Itoa(r.Count),
		r.Total.String(),
		strconv.Itoa(r.Index),
		r.Amount.String(),
		r.Due.Key(),
		strconv.Itoa(r.Due.Year),
		strconv.Itoa(r.Due.Month),
	}
}

// DecodeRow reads one installment. Cells that fail to parse become zero
// values instead of failing the whole load.
func (c Columns) DecodeRow(row []string) core.Installment {
	r := core.Installment{
		PurchaseDate: parseDate(c.get(row, ColDate)),
		Reason:       c.get(row, ColReason),
		Payee:        c.get(row, ColPayee),
		Method:       c.get(row, ColMethod),
		Count:        parseInt(c.get(row, ColCount)),
		Total:        parseMoney(c.get(row, ColTotal)),
		Index:        parseInt(c.get(row, ColIndex)),
		Amount:       parseMoney(c.get(row, ColAmount)),
		Due: core.Period{
			Year:  parseInt(c.get(row, ColYear)),
			Month: parseInt(c.get(row, ColMonth)),
		},
	}
	if r.Due.Year == 0 && r.Due.Month == 0 {
		if p, err := core.ParsePeriodKey(c.get(row, ColPeriodKey)); err == nil {
			r.Due = p
		}
	}
	return r
}

func parseInt(s string) int {
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	// Spreadsheets and pandas may render integers as "3.0".
	if d, err := decimal.NewFromString(s); err == nil && d.IsInteger() {
		return int(d.IntPart())
	}
	return 0
}

func parseMoney(s string) core.Money {
	s = strings.TrimSpace(strings.TrimPrefix(s, "R$"))
	if strings.Contains(s, ",") {
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return core.Money{}
	}
	return core.MoneyFromDecimal(d)
}

func parseDate(s string) core.Date {
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return core.DateOf(t)
		}
	}
	return core.Date{}
}
