// Package model defines the core domain models used throughout the application.
package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// ExpenseStatus indicates where an expense sits in its confirmation lifecycle.
type ExpenseStatus string

// Expense status constants.
const (
	ExpenseStatusPending   ExpenseStatus = "pending"
	ExpenseStatusConfirmed ExpenseStatus = "confirmed"
	ExpenseStatusRejected  ExpenseStatus = "rejected"
)

// Valid reports whether the status is one of the known constants.
func (s ExpenseStatus) Valid() bool {
	switch s {
	case ExpenseStatusPending, ExpenseStatusConfirmed, ExpenseStatusRejected:
		return true
	}
	return false
}

// ErrInvalidExpense is returned when an expense fails validation.
var ErrInvalidExpense = errors.New("invalid expense")

// Expense is a classified, persisted expense statement. Amounts are exact
// decimals; the struct is mutated only through repository updates.
type Expense struct {
	CreatedAt   time.Time
	ID          string
	Description string
	CategoryID  string
	Currency    Currency
	Status      ExpenseStatus
	Amount      decimal.Decimal
	Confidence  float64
}

// Validate checks the expense invariants.
func (e *Expense) Validate() error {
	if e.ID == "" {
		return fmt.Errorf("%w: missing ID", ErrInvalidExpense)
	}
	if e.Description == "" {
		return fmt.Errorf("%w: missing description", ErrInvalidExpense)
	}
	if e.CategoryID == "" {
		return fmt.Errorf("%w: missing category", ErrInvalidExpense)
	}
	if e.Amount.IsNegative() {
		return fmt.Errorf("%w: amount must not be negative", ErrInvalidExpense)
	}
	if !e.Currency.Valid() {
		return fmt.Errorf("%w: unsupported currency %q", ErrInvalidExpense, e.Currency)
	}
	if !e.Status.Valid() {
		return fmt.Errorf("%w: unknown status %q", ErrInvalidExpense, e.Status)
	}
	if e.Confidence < 0 || e.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be between 0 and 1", ErrInvalidExpense)
	}
	return nil
}
