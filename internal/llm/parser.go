package llm

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/ledgerlight/ledgerlight/internal/model"
)

// candidatePayload is the JSON shape both providers are prompted to emit.
type candidatePayload struct {
	Category   string   `json:"category"`
	Confidence *float64 `json:"confidence"`
	Amount     string   `json:"amount,omitempty"`
	Currency   string   `json:"currency,omitempty"`
	Rationale  string   `json:"rationale,omitempty"`
}

// cleanMarkdownWrapper strips ```json fences some models wrap around their
// output despite instructions not to.
func cleanMarkdownWrapper(content string) string {
	content = strings.TrimSpace(content)
	if strings.HasPrefix(content, "```") {
		if idx := strings.Index(content, "\n"); idx >= 0 {
			content = content[idx+1:]
		}
		content = strings.TrimSuffix(strings.TrimSpace(content), "```")
	}
	return strings.TrimSpace(content)
}

// parseCandidate turns a raw model response into a candidate, applying the
// defaulting and normalization rules of the provider contract:
//   - a label matching a supplied category case-insensitively is normalized to
//     the canonical name; an unknown label passes through for the policy gate
//   - missing confidence falls back to defaultConfidence, never to certainty
//   - extracted amount/currency are optional and dropped when unparseable
func parseCandidate(content string, req ClassifyRequest, defaultConfidence float64) (model.ClassificationCandidate, error) {
	content = cleanMarkdownWrapper(content)

	var payload candidatePayload
	if err := json.Unmarshal([]byte(content), &payload); err != nil {
		return model.ClassificationCandidate{}, fmt.Errorf("failed to parse JSON response: %w", err)
	}
	if payload.Category == "" {
		return model.ClassificationCandidate{}, fmt.Errorf("no category found in response")
	}

	candidate := model.ClassificationCandidate{
		Category:  strings.TrimSpace(payload.Category),
		Rationale: strings.TrimSpace(payload.Rationale),
	}

	for _, hint := range req.Categories {
		if model.NormalizeCategoryName(hint.Name) == model.NormalizeCategoryName(candidate.Category) {
			candidate.Category = hint.Name
			break
		}
	}

	switch {
	case payload.Confidence == nil:
		candidate.Confidence = defaultConfidence
	case *payload.Confidence < 0:
		candidate.Confidence = 0
	case *payload.Confidence > 1:
		candidate.Confidence = 1
	default:
		candidate.Confidence = *payload.Confidence
	}

	if payload.Amount != "" {
		if amount, err := decimal.NewFromString(strings.TrimPrefix(payload.Amount, "$")); err == nil && !amount.IsNegative() {
			candidate.Amount = &amount
		}
	}
	if payload.Currency != "" {
		if currency, err := model.ParseCurrency(payload.Currency); err == nil {
			candidate.Currency = currency
		}
	}

	return candidate, nil
}
