package llm

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testRequest() ClassifyRequest {
	return ClassifyRequest{
		Description: "Coffee at Starbucks for $5.50",
		Categories: []CategoryHint{
			{Name: "Food", Description: "Meals, snacks, drinks"},
			{Name: "Travel"},
			{Name: "Other"},
		},
	}
}

func TestParseCandidate(t *testing.T) {
	t.Run("full payload", func(t *testing.T) {
		content := `{"category": "Food", "confidence": 0.95, "amount": "5.50", "currency": "USD", "rationale": "Coffee is food and drink."}`
		candidate, err := parseCandidate(content, testRequest(), 0.5)
		require.NoError(t, err)
		assert.Equal(t, "Food", candidate.Category)
		assert.InDelta(t, 0.95, candidate.Confidence, 1e-9)
		require.NotNil(t, candidate.Amount)
		assert.Equal(t, "5.5", candidate.Amount.String())
		assert.Equal(t, "USD", string(candidate.Currency))
		assert.NotEmpty(t, candidate.Rationale)
	})

	t.Run("markdown fenced payload", func(t *testing.T) {
		content := "```json\n{\"category\": \"Travel\", \"confidence\": 0.7}\n```"
		candidate, err := parseCandidate(content, testRequest(), 0.5)
		require.NoError(t, err)
		assert.Equal(t, "Travel", candidate.Category)
		assert.InDelta(t, 0.7, candidate.Confidence, 1e-9)
	})

	t.Run("label normalized to canonical name", func(t *testing.T) {
		content := `{"category": "  food ", "confidence": 0.9}`
		candidate, err := parseCandidate(content, testRequest(), 0.5)
		require.NoError(t, err)
		assert.Equal(t, "Food", candidate.Category)
	})

	t.Run("unknown label passes through", func(t *testing.T) {
		content := `{"category": "Cryptocurrency", "confidence": 0.99}`
		candidate, err := parseCandidate(content, testRequest(), 0.5)
		require.NoError(t, err)
		assert.Equal(t, "Cryptocurrency", candidate.Category)
	})

	t.Run("missing confidence falls back to default", func(t *testing.T) {
		content := `{"category": "Food"}`
		candidate, err := parseCandidate(content, testRequest(), 0.42)
		require.NoError(t, err)
		assert.InDelta(t, 0.42, candidate.Confidence, 1e-9)
	})

	t.Run("confidence clamped to [0,1]", func(t *testing.T) {
		candidate, err := parseCandidate(`{"category": "Food", "confidence": 1.5}`, testRequest(), 0.5)
		require.NoError(t, err)
		assert.InDelta(t, 1.0, candidate.Confidence, 1e-9)

		candidate, err = parseCandidate(`{"category": "Food", "confidence": -0.2}`, testRequest(), 0.5)
		require.NoError(t, err)
		assert.InDelta(t, 0.0, candidate.Confidence, 1e-9)
	})

	t.Run("unparseable amount dropped", func(t *testing.T) {
		content := `{"category": "Food", "confidence": 0.8, "amount": "about five bucks"}`
		candidate, err := parseCandidate(content, testRequest(), 0.5)
		require.NoError(t, err)
		assert.Nil(t, candidate.Amount)
	})

	t.Run("dollar-prefixed amount accepted", func(t *testing.T) {
		content := `{"category": "Food", "confidence": 0.8, "amount": "$5.50"}`
		candidate, err := parseCandidate(content, testRequest(), 0.5)
		require.NoError(t, err)
		require.NotNil(t, candidate.Amount)
		assert.Equal(t, "5.5", candidate.Amount.String())
	})

	t.Run("unknown currency dropped", func(t *testing.T) {
		content := `{"category": "Food", "confidence": 0.8, "currency": "DOGE"}`
		candidate, err := parseCandidate(content, testRequest(), 0.5)
		require.NoError(t, err)
		assert.Empty(t, string(candidate.Currency))
	})

	t.Run("not JSON", func(t *testing.T) {
		_, err := parseCandidate("CATEGORY: Food", testRequest(), 0.5)
		require.Error(t, err)
	})

	t.Run("missing category", func(t *testing.T) {
		_, err := parseCandidate(`{"confidence": 0.9}`, testRequest(), 0.5)
		require.Error(t, err)
	})
}

func TestCleanMarkdownWrapper(t *testing.T) {
	assert.Equal(t, `{"a":1}`, cleanMarkdownWrapper("```json\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanMarkdownWrapper("```\n{\"a\":1}\n```"))
	assert.Equal(t, `{"a":1}`, cleanMarkdownWrapper(`  {"a":1}  `))
}

func TestBuildPromptIncludesCorrections(t *testing.T) {
	req := testRequest()
	req.Corrections = []Correction{{Description: "Latte downtown", Category: "Food"}}

	prompt := buildPrompt(req)
	assert.Contains(t, prompt, "Coffee at Starbucks for $5.50")
	assert.Contains(t, prompt, "- Food: Meals, snacks, drinks")
	assert.Contains(t, prompt, "Latte downtown")
}
