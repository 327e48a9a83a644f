package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAnthropicClient(t *testing.T) {
	tests := []struct {
		name    string
		config  Config
		wantErr bool
	}{
		{name: "valid config", config: Config{APIKey: "test-key"}},
		{name: "missing API key", config: Config{}, wantErr: true},
		{
			name:   "custom model and settings",
			config: Config{APIKey: "test-key", Model: "claude-3-opus-20240229", Temperature: 0.5, MaxTokens: 200},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, err := newAnthropicClient(tt.config)
			if tt.wantErr {
				require.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.NotNil(t, client)
			}
		})
	}
}

func anthropicTestServer(t *testing.T, status int, text string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/messages", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-api-key"))
		assert.NotEmpty(t, r.Header.Get("anthropic-version"))

		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error": "nope"}`))
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"content": []map[string]string{{"type": "text", "text": text}},
		})
	}))
}

func TestAnthropicClassify(t *testing.T) {
	t.Run("successful classification", func(t *testing.T) {
		server := anthropicTestServer(t, http.StatusOK,
			`{"category": "Food", "confidence": 0.95, "amount": "5.50", "rationale": "Coffee purchase."}`)
		defer server.Close()

		client, err := newAnthropicClient(Config{APIKey: "test-key", BaseURL: server.URL, DefaultConfidence: 0.5})
		require.NoError(t, err)

		candidate, err := client.Classify(context.Background(), testRequest())
		require.NoError(t, err)
		assert.Equal(t, "Food", candidate.Category)
		assert.InDelta(t, 0.95, candidate.Confidence, 1e-9)
	})

	t.Run("auth failure is permanent", func(t *testing.T) {
		server := anthropicTestServer(t, http.StatusUnauthorized, "")
		defer server.Close()

		client, err := newAnthropicClient(Config{APIKey: "test-key", BaseURL: server.URL})
		require.NoError(t, err)

		_, err = client.Classify(context.Background(), testRequest())
		var provErr *ProviderError
		require.True(t, errors.As(err, &provErr))
		assert.Equal(t, KindAuthFailure, provErr.Kind)
		assert.False(t, provErr.Retryable())
	})

	t.Run("rate limit is transient", func(t *testing.T) {
		server := anthropicTestServer(t, http.StatusTooManyRequests, "")
		defer server.Close()

		client, err := newAnthropicClient(Config{APIKey: "test-key", BaseURL: server.URL})
		require.NoError(t, err)

		_, err = client.Classify(context.Background(), testRequest())
		var provErr *ProviderError
		require.True(t, errors.As(err, &provErr))
		assert.Equal(t, KindRateLimited, provErr.Kind)
		assert.True(t, provErr.Retryable())
	})

	t.Run("server error is transient", func(t *testing.T) {
		server := anthropicTestServer(t, http.StatusInternalServerError, "")
		defer server.Close()

		client, err := newAnthropicClient(Config{APIKey: "test-key", BaseURL: server.URL})
		require.NoError(t, err)

		_, err = client.Classify(context.Background(), testRequest())
		var provErr *ProviderError
		require.True(t, errors.As(err, &provErr))
		assert.Equal(t, KindUnavailable, provErr.Kind)
		assert.True(t, provErr.Retryable())
	})

	t.Run("garbage content is malformed output", func(t *testing.T) {
		server := anthropicTestServer(t, http.StatusOK, "I think this is Food, probably.")
		defer server.Close()

		client, err := newAnthropicClient(Config{APIKey: "test-key", BaseURL: server.URL})
		require.NoError(t, err)

		_, err = client.Classify(context.Background(), testRequest())
		var provErr *ProviderError
		require.True(t, errors.As(err, &provErr))
		assert.Equal(t, KindMalformedOutput, provErr.Kind)
		assert.False(t, provErr.Retryable())
	})

	t.Run("connection refused is unavailable", func(t *testing.T) {
		server := anthropicTestServer(t, http.StatusOK, "")
		server.Close() // immediately, so the dial fails

		client, err := newAnthropicClient(Config{APIKey: "test-key", BaseURL: server.URL})
		require.NoError(t, err)

		_, err = client.Classify(context.Background(), testRequest())
		var provErr *ProviderError
		require.True(t, errors.As(err, &provErr))
		assert.True(t, provErr.Retryable())
	})
}
