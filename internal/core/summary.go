package core

// MonthTotal is the amount due in one period.
type MonthTotal struct {
	Period Period
	Key    string // "MM/YYYY"
	Total  Money
}

// PeriodDetail lists the installments due in one period with their sum.
type PeriodDetail struct {
	Period Period
	Items  []Installment
	Total  Money
}

// Origin tags where an installment in a combined view came from.
type Origin string

const (
	OriginReal      Origin = "real"
	OriginSimulated Origin = "simulated"
)
