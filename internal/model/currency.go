package model

import (
	"fmt"
	"strings"
)

// Currency is an ISO 4217 currency code. The set is closed; anything outside
// it fails ParseCurrency.
type Currency string

// Supported currencies.
const (
	CurrencyUSD Currency = "USD"
	CurrencyEUR Currency = "EUR"
	CurrencyGBP Currency = "GBP"
	CurrencyJPY Currency = "JPY"
	CurrencyCAD Currency = "CAD"
	CurrencyAUD Currency = "AUD"
	CurrencyCHF Currency = "CHF"
	CurrencyCNY Currency = "CNY"
	CurrencySEK Currency = "SEK"
	CurrencyNZD Currency = "NZD"
)

// DefaultCurrency is used when neither the caller nor the provider supplies one.
const DefaultCurrency = CurrencyUSD

var currencies = map[Currency]struct{}{
	CurrencyUSD: {},
	CurrencyEUR: {},
	CurrencyGBP: {},
	CurrencyJPY: {},
	CurrencyCAD: {},
	CurrencyAUD: {},
	CurrencyCHF: {},
	CurrencyCNY: {},
	CurrencySEK: {},
	CurrencyNZD: {},
}

// Valid reports whether the currency is one of the supported codes.
func (c Currency) Valid() bool {
	_, ok := currencies[c]
	return ok
}

// ParseCurrency converts a string to a Currency, accepting any casing.
func ParseCurrency(s string) (Currency, error) {
	c := Currency(strings.ToUpper(strings.TrimSpace(s)))
	if !c.Valid() {
		return "", fmt.Errorf("unsupported currency: %q", s)
	}
	return c, nil
}
