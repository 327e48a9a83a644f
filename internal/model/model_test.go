package model

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCurrency(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		want    Currency
		wantErr bool
	}{
		{name: "uppercase code", input: "USD", want: CurrencyUSD},
		{name: "lowercase code", input: "eur", want: CurrencyEUR},
		{name: "surrounding whitespace", input: " gbp ", want: CurrencyGBP},
		{name: "unknown code", input: "XRP", wantErr: true},
		{name: "empty", input: "", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseCurrency(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.True(t, got.Valid())
		})
	}
}

func TestNormalizeCategoryName(t *testing.T) {
	assert.Equal(t, "food & dining", NormalizeCategoryName("  Food  &  Dining "))
	assert.Equal(t, "travel", NormalizeCategoryName("TRAVEL"))
	assert.Equal(t, "", NormalizeCategoryName("   "))
}

func validExpense() Expense {
	return Expense{
		ID:          "exp-1",
		Description: "Coffee at Starbucks",
		CategoryID:  "cat-1",
		Amount:      decimal.RequireFromString("5.50"),
		Currency:    CurrencyUSD,
		Status:      ExpenseStatusConfirmed,
		Confidence:  0.95,
		CreatedAt:   time.Now(),
	}
}

func TestExpenseValidate(t *testing.T) {
	tests := []struct {
		mutate  func(*Expense)
		name    string
		wantErr bool
	}{
		{name: "valid", mutate: func(*Expense) {}},
		{name: "missing id", mutate: func(e *Expense) { e.ID = "" }, wantErr: true},
		{name: "missing description", mutate: func(e *Expense) { e.Description = "" }, wantErr: true},
		{name: "missing category", mutate: func(e *Expense) { e.CategoryID = "" }, wantErr: true},
		{name: "negative amount", mutate: func(e *Expense) { e.Amount = decimal.NewFromInt(-1) }, wantErr: true},
		{name: "zero amount allowed", mutate: func(e *Expense) { e.Amount = decimal.Zero }},
		{name: "bad currency", mutate: func(e *Expense) { e.Currency = "BTC" }, wantErr: true},
		{name: "bad status", mutate: func(e *Expense) { e.Status = "unknown" }, wantErr: true},
		{name: "confidence above one", mutate: func(e *Expense) { e.Confidence = 1.2 }, wantErr: true},
		{name: "confidence below zero", mutate: func(e *Expense) { e.Confidence = -0.1 }, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := validExpense()
			tt.mutate(&e)
			err := e.Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInvalidExpense)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestSessionStateTerminal(t *testing.T) {
	assert.False(t, SessionAwaitingConfirmation.Terminal())
	assert.True(t, SessionConfirmed.Terminal())
	assert.True(t, SessionRejected.Terminal())
	assert.True(t, SessionExpired.Terminal())
}
