package policy

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ledgerlight/ledgerlight/internal/model"
)

func TestThresholdsValidate(t *testing.T) {
	tests := []struct {
		name       string
		thresholds Thresholds
		wantErr    bool
	}{
		{name: "defaults", thresholds: DefaultThresholds()},
		{name: "equal watermarks", thresholds: Thresholds{AutoAccept: 0.7, Review: 0.7}},
		{name: "review above auto-accept", thresholds: Thresholds{AutoAccept: 0.5, Review: 0.8}, wantErr: true},
		{name: "negative review", thresholds: Thresholds{AutoAccept: 0.9, Review: -0.1}, wantErr: true},
		{name: "auto-accept above one", thresholds: Thresholds{AutoAccept: 1.1, Review: 0.5}, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.thresholds.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestDecide(t *testing.T) {
	valid := ValidNames([]model.Category{
		{Name: "Food", IsActive: true},
		{Name: "Travel", IsActive: true},
		{Name: "Other", IsActive: true},
		{Name: "Retired", IsActive: false},
	})
	thresholds := Thresholds{AutoAccept: 0.85, Review: 0.60}

	tests := []struct {
		name       string
		category   string
		confidence float64
		want       Decision
	}{
		{name: "high confidence auto-accepts", category: "Food", confidence: 0.95, want: AutoAccept},
		{name: "exactly at auto-accept watermark", category: "Food", confidence: 0.85, want: AutoAccept},
		{name: "mid band needs review", category: "Travel", confidence: 0.70, want: NeedsReview},
		{name: "exactly at review watermark", category: "Travel", confidence: 0.60, want: NeedsReview},
		{name: "below review rejects", category: "Other", confidence: 0.59, want: Reject},
		{name: "invalid label rejects despite high confidence", category: "NotARealCategory", confidence: 0.99, want: Reject},
		{name: "inactive category rejects", category: "Retired", confidence: 0.99, want: Reject},
		{name: "label matching is case-insensitive", category: "  FOOD ", confidence: 0.90, want: AutoAccept},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			candidate := model.ClassificationCandidate{Category: tt.category, Confidence: tt.confidence}
			assert.Equal(t, tt.want, Decide(candidate, valid, thresholds))
		})
	}
}
