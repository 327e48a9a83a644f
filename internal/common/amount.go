package common

import (
	"regexp"
	"strings"

	"github.com/shopspring/decimal"
)

// Amount patterns for free-text statements. A currency-tagged amount ("$8.00",
// "USD 250") beats any bare number, so "2 coffees for $8.00" yields 8.00.
var (
	taggedAmountPattern = regexp.MustCompile(`(?:\$|USD\s*)(\d{1,3}(?:,\d{3})*(?:\.\d{1,2})?|\d+(?:\.\d{1,2})?)`)
	bareAmountPattern   = regexp.MustCompile(`\d{1,3}(?:,\d{3})*(?:\.\d{1,2})?|\d+(?:\.\d{1,2})?`)
)

// ExtractAmount pulls the first monetary amount out of a free-text expense
// statement, preferring currency-tagged amounts. The second return value is
// false when no amount is present.
func ExtractAmount(text string) (decimal.Decimal, bool) {
	var raw string
	if match := taggedAmountPattern.FindStringSubmatch(text); match != nil {
		raw = match[1]
	} else {
		raw = bareAmountPattern.FindString(text)
	}
	if raw == "" {
		return decimal.Zero, false
	}

	amount, err := decimal.NewFromString(strings.ReplaceAll(raw, ",", ""))
	if err != nil || amount.IsNegative() {
		return decimal.Zero, false
	}
	return amount, true
}
