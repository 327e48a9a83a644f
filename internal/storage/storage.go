// Package storage provides the data persistence layer for categories and
// expenses. Both the in-memory and SQLite implementations satisfy the same
// behavioral contract, verified by a shared conformance suite.
package storage

import (
	"context"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerlight/ledgerlight/internal/model"
)

// CategoryRepository is the persistence contract for expense categories.
type CategoryRepository interface {
	AddCategory(ctx context.Context, category *model.Category) error
	GetCategory(ctx context.Context, id string) (*model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)
	ListCategories(ctx context.Context) ([]model.Category, error)
	UpdateCategory(ctx context.Context, category *model.Category) error
	// DeleteCategory fails with common.ErrCategoryInUse while any expense
	// references the category.
	DeleteCategory(ctx context.Context, id string) error
}

// ExpenseRepository is the persistence contract for expenses.
type ExpenseRepository interface {
	AddExpense(ctx context.Context, expense *model.Expense) error
	GetExpense(ctx context.Context, id string) (*model.Expense, error)
	ListExpenses(ctx context.Context) ([]model.Expense, error)
	UpdateExpense(ctx context.Context, expense *model.Expense) error
	DeleteExpense(ctx context.Context, id string) error
	SearchExpenses(ctx context.Context, filter ExpenseFilter) ([]model.Expense, error)
}

// DiscardedClassification records a candidate that never became an expense
// (rejected or expired), kept for later threshold analysis.
type DiscardedClassification struct {
	CreatedAt   time.Time
	Description string
	Category    string
	Reason      string
	Confidence  float64
}

// Storage combines both repositories with lifecycle management.
type Storage interface {
	CategoryRepository
	ExpenseRepository
	RecordDiscarded(ctx context.Context, discarded DiscardedClassification) error
	Migrate(ctx context.Context) error
	Close() error
}

// ExpenseFilter is an engine-neutral search predicate. Implementations decide
// how to evaluate it; callers never see a query language.
type ExpenseFilter struct {
	StartDate           *time.Time
	EndDate             *time.Time
	MinAmount           *decimal.Decimal
	MaxAmount           *decimal.Decimal
	CategoryID          string
	Status              model.ExpenseStatus
	DescriptionContains string
	Limit               int
	Offset              int
}

// Matches evaluates the predicate against a single expense. Limit and Offset
// are pagination, not predicate, and are ignored here.
func (f ExpenseFilter) Matches(e *model.Expense) bool {
	if f.CategoryID != "" && e.CategoryID != f.CategoryID {
		return false
	}
	if f.Status != "" && e.Status != f.Status {
		return false
	}
	if f.StartDate != nil && e.CreatedAt.Before(*f.StartDate) {
		return false
	}
	if f.EndDate != nil && !e.CreatedAt.Before(*f.EndDate) {
		return false
	}
	if f.MinAmount != nil && e.Amount.LessThan(*f.MinAmount) {
		return false
	}
	if f.MaxAmount != nil && e.Amount.GreaterThan(*f.MaxAmount) {
		return false
	}
	if f.DescriptionContains != "" &&
		!strings.Contains(strings.ToLower(e.Description), strings.ToLower(f.DescriptionContains)) {
		return false
	}
	return true
}
