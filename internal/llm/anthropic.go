package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	"github.com/ledgerlight/ledgerlight/internal/model"
)

const defaultAnthropicBaseURL = "https://api.anthropic.com"

// anthropicClient implements the Client interface for the Anthropic API.
type anthropicClient struct {
	httpClient        *http.Client
	apiKey            string
	model             string
	baseURL           string
	temperature       float64
	maxTokens         int
	defaultConfidence float64
}

// newAnthropicClient creates a new Anthropic API client.
func newAnthropicClient(cfg Config) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("anthropic API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = "claude-3-5-sonnet-20241022"
	}

	temperature := cfg.Temperature
	if temperature == 0 {
		temperature = 0.3
	}

	maxTokens := cfg.MaxTokens
	if maxTokens == 0 {
		maxTokens = 300
	}

	baseURL := cfg.BaseURL
	if baseURL == "" {
		baseURL = defaultAnthropicBaseURL
	}

	return &anthropicClient{
		apiKey:            cfg.APIKey,
		model:             model,
		baseURL:           baseURL,
		temperature:       temperature,
		maxTokens:         maxTokens,
		defaultConfidence: cfg.DefaultConfidence,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
			Transport: &http.Transport{
				MaxIdleConns:        100,
				MaxIdleConnsPerHost: 10,
				IdleConnTimeout:     90 * time.Second,
			},
		},
	}, nil
}

// Classify sends a classification request to Anthropic.
func (c *anthropicClient) Classify(ctx context.Context, req ClassifyRequest) (model.ClassificationCandidate, error) {
	requestBody := map[string]any{
		"model":       c.model,
		"max_tokens":  c.maxTokens,
		"temperature": c.temperature,
		"system":      systemPrompt,
		"messages": []map[string]string{
			{
				"role":    "user",
				"content": buildPrompt(req),
			},
		},
	}

	jsonBody, err := json.Marshal(requestBody)
	if err != nil {
		return model.ClassificationCandidate{}, newProviderError(KindMalformedOutput, fmt.Errorf("failed to marshal request: %w", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/messages", strings.NewReader(string(jsonBody)))
	if err != nil {
		return model.ClassificationCandidate{}, newProviderError(KindUnavailable, fmt.Errorf("failed to create request: %w", err))
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("x-api-key", c.apiKey)
	httpReq.Header.Set("anthropic-version", "2023-06-01")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return model.ClassificationCandidate{}, mapTransportError(err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return model.ClassificationCandidate{}, newProviderError(KindUnavailable, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode != http.StatusOK {
		return model.ClassificationCandidate{}, mapStatusError("anthropic", resp.StatusCode, body)
	}

	var response anthropicResponse
	if err := json.Unmarshal(body, &response); err != nil {
		return model.ClassificationCandidate{}, newProviderError(KindMalformedOutput, fmt.Errorf("failed to parse response: %w", err))
	}

	if len(response.Content) == 0 {
		return model.ClassificationCandidate{}, newProviderError(KindMalformedOutput, fmt.Errorf("no content in response"))
	}

	candidate, err := parseCandidate(response.Content[0].Text, req, c.defaultConfidence)
	if err != nil {
		return model.ClassificationCandidate{}, newProviderError(KindMalformedOutput, err)
	}
	return candidate, nil
}

// anthropicResponse represents the Anthropic API response structure.
type anthropicResponse struct {
	ID         string `json:"id"`
	Type       string `json:"type"`
	Role       string `json:"role"`
	Model      string `json:"model"`
	StopReason string `json:"stop_reason"`
	Content    []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Usage struct {
		InputTokens  int `json:"input_tokens"`
		OutputTokens int `json:"output_tokens"`
	} `json:"usage"`
}

// mapTransportError classifies transport-level failures.
func mapTransportError(err error) *ProviderError {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return newProviderError(KindTimeout, err)
	}
	return newProviderError(KindUnavailable, err)
}

// mapStatusError classifies non-200 API responses.
func mapStatusError(vendor string, status int, body []byte) *ProviderError {
	err := fmt.Errorf("%s API error (status %d): %s", vendor, status, string(body))
	switch {
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return newProviderError(KindAuthFailure, err)
	case status == http.StatusTooManyRequests:
		return newProviderError(KindRateLimited, err)
	case status == http.StatusRequestTimeout:
		return newProviderError(KindTimeout, err)
	case status >= 500:
		return newProviderError(KindUnavailable, err)
	default:
		return newProviderError(KindMalformedOutput, err)
	}
}
