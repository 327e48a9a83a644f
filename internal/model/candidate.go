package model

import "github.com/shopspring/decimal"

// ClassificationCandidate is the unvalidated result a provider produced for a
// single expense statement. It is transient: the confidence policy consumes
// it, and only a committed Expense ever reaches storage.
type ClassificationCandidate struct {
	Category   string
	Rationale  string
	Currency   Currency
	Amount     *decimal.Decimal
	Confidence float64
}
