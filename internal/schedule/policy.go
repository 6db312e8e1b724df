// Package schedule turns a purchase into its dated installment records.
//
// This file implements the Strategy Pattern for the first-due rule: whether
// the first installment is payable in the purchase month or the month after.
// Both behaviours exist in the data users already have, so the rule is a
// named, configurable policy instead of a constant.
package schedule

import (
	"fmt"
	"sort"
	"sync"
)

// DuePolicy decides how many months after the purchase month an installment is due.
type DuePolicy interface {
	// Offset returns the month offset for the 1-based installment index.
	Offset(index int) int
	Name() string
}

// NextMonthPolicy puts the first installment in the month after the purchase.
type NextMonthPolicy struct{}

func (NextMonthPolicy) Offset(index int) int { return index }
func (NextMonthPolicy) Name() string         { return PolicyNextMonth }

// SameMonthPolicy puts the first installment in the purchase month itself.
type SameMonthPolicy struct{}

func (SameMonthPolicy) Offset(index int) int { return index - 1 }
func (SameMonthPolicy) Name() string         { return PolicySameMonth }

const (
	PolicyNextMonth = "next_month"
	PolicySameMonth = "same_month"
)

var (
	policiesMu sync.RWMutex
	policies   = map[string]DuePolicy{
		PolicyNextMonth: NextMonthPolicy{},
		PolicySameMonth: SameMonthPolicy{},
	}
)

// DefaultPolicy is the first-due rule used when none is configured.
func DefaultPolicy() DuePolicy { return NextMonthPolicy{} }

// GetDuePolicy returns the policy registered under name.
// An empty name selects DefaultPolicy.
func GetDuePolicy(name string) (DuePolicy, error) {
	if name == "" {
		return DefaultPolicy(), nil
	}
	policiesMu.RLock()
	defer policiesMu.RUnlock()
	p, ok := policies[name]
	if !ok {
		return nil, fmt.Errorf("unknown first-due policy: %s", name)
	}
	return p, nil
}

// RegisterDuePolicy makes a policy selectable by name.
func RegisterDuePolicy(p DuePolicy) {
	policiesMu.Lock()
	defer policiesMu.Unlock()
	policies[p.Name()] = p
}

// PolicyNames lists the registered policy names, sorted.
func PolicyNames() []string {
	policiesMu.RLock()
	defer policiesMu.RUnlock()
	names := make([]string, 0, len(policies))
	for n := range policies {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}
