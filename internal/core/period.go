package core

import (
	"fmt"
	"strconv"
	"strings"
)

// Period is a due month: the (year, month) pair an installment is payable in.
type Period struct {
	Year  int
	Month int // 1-12
}

func NewPeriod(year, month int) (Period, error) {
	if month < 1 || month > 12 {
		return Period{}, ErrInvalidMonth
	}
	return Period{Year: year, Month: month}, nil
}

// AddMonths moves the period n months forward (or back for negative n),
// rolling the year over at December/January.
func (p Period) AddMonths(n int) Period {
	idx := p.Year*12 + (p.Month - 1) + n
	y := idx / 12
	m := idx % 12
	if m < 0 {
		m += 12
		y--
	}
	return Period{Year: y, Month: m + 1}
}

// Compare orders periods chronologically: -1, 0 or +1.
func (p Period) Compare(o Period) int {
	switch {
	case p.Year < o.Year:
		return -1
	case p.Year > o.Year:
		return 1
	case p.Month < o.Month:
		return -1
	case p.Month > o.Month:
		return 1
	}
	return 0
}

func (p Period) Before(o Period) bool { return p.Compare(o) < 0 }
func (p Period) After(o Period) bool  { return p.Compare(o) > 0 }

// Key formats the period as "MM/YYYY". Never sort on it; use Compare.
func (p Period) Key() string {
	return fmt.Sprintf("%02d/%d", p.Month, p.Year)
}

func (p Period) String() string { return p.Key() }

// ParsePeriodKey parses "MM/YYYY" (a single digit month is accepted).
func ParsePeriodKey(s string) (Period, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 {
		return Period{}, fmt.Errorf("period %q: expected MM/YYYY", s)
	}
	m, err := strconv.Atoi(parts[0])
	if err != nil {
		return Period{}, fmt.Errorf("period %q: %w", s, ErrInvalidMonth)
	}
	y, err := strconv.Atoi(parts[1])
	if err != nil {
		return Period{}, fmt.Errorf("period %q: invalid year", s)
	}
	return NewPeriod(y, m)
}
