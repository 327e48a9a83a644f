package model

import (
	"strings"
	"time"
)

// Category represents a valid expense category.
type Category struct {
	CreatedAt   time.Time
	ID          string
	Name        string
	Description string
	IsActive    bool
}

// NormalizeCategoryName produces the canonical form used for uniqueness
// checks: trimmed, inner whitespace collapsed, lowercased.
func NormalizeCategoryName(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}
