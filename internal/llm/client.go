package llm

import (
	"context"

	"github.com/ledgerlight/ledgerlight/internal/model"
)

// Client defines the interface for LLM providers. Implementations perform the
// outbound call and nothing else; they never touch storage.
type Client interface {
	Classify(ctx context.Context, req ClassifyRequest) (model.ClassificationCandidate, error)
}

// ClassifyRequest carries everything a provider needs to classify one
// expense statement.
type ClassifyRequest struct {
	Description string
	Categories  []CategoryHint
	Corrections []Correction
}

// CategoryHint is one valid category label with its optional description.
type CategoryHint struct {
	Name        string
	Description string
}

// Correction is a prior human correction supplied as context so the provider
// can learn from earlier review decisions.
type Correction struct {
	Description string
	Category    string
}
