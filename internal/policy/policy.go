// Package policy decides whether a classification candidate is trustworthy
// enough to commit without human review.
package policy

import (
	"fmt"

	"github.com/ledgerlight/ledgerlight/internal/common"
	"github.com/ledgerlight/ledgerlight/internal/model"
)

// Decision is the outcome of applying the confidence thresholds to a candidate.
type Decision string

// Decision constants.
const (
	AutoAccept  Decision = "auto_accept"
	NeedsReview Decision = "needs_review"
	Reject      Decision = "reject"
)

// Thresholds holds the confidence watermarks. Candidates at or above
// AutoAccept commit directly; candidates at or above Review but below
// AutoAccept go to human review; everything else is rejected.
type Thresholds struct {
	AutoAccept float64
	Review     float64
}

// DefaultThresholds returns the stock watermark configuration.
func DefaultThresholds() Thresholds {
	return Thresholds{AutoAccept: 0.85, Review: 0.60}
}

// Validate checks that the watermarks are ordered and within [0,1].
func (t Thresholds) Validate() error {
	if t.Review < 0 || t.AutoAccept > 1 {
		return fmt.Errorf("%w: watermarks must be within [0,1]", common.ErrInvalidConfig)
	}
	if t.Review > t.AutoAccept {
		return fmt.Errorf("%w: review watermark %.2f exceeds auto-accept watermark %.2f",
			common.ErrInvalidConfig, t.Review, t.AutoAccept)
	}
	return nil
}

// Decide maps a candidate to a decision. A category label outside validNames
// is rejected regardless of confidence; that gate is validation, not a
// confidence judgment. validNames keys are normalized category names.
func Decide(candidate model.ClassificationCandidate, validNames map[string]struct{}, thresholds Thresholds) Decision {
	if _, ok := validNames[model.NormalizeCategoryName(candidate.Category)]; !ok {
		return Reject
	}

	switch {
	case candidate.Confidence >= thresholds.AutoAccept:
		return AutoAccept
	case candidate.Confidence >= thresholds.Review:
		return NeedsReview
	default:
		return Reject
	}
}

// ValidNames builds the normalized-name set Decide expects from a category list.
func ValidNames(categories []model.Category) map[string]struct{} {
	names := make(map[string]struct{}, len(categories))
	for _, cat := range categories {
		if cat.IsActive {
			names[model.NormalizeCategoryName(cat.Name)] = struct{}{}
		}
	}
	return names
}
