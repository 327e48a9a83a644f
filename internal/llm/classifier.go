package llm

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/ledgerlight/ledgerlight/internal/model"
)

// Classifier wraps a raw provider client with rate limiting and caching. It
// satisfies the classification engine's Classifier dependency; retry policy
// stays with the engine, which owns the backoff budget.
type Classifier struct {
	client      Client
	cache       *candidateCache
	rateLimiter *rateLimiter
	logger      *slog.Logger
}

// NewClassifier creates a provider-backed classifier from configuration.
func NewClassifier(cfg Config, logger *slog.Logger) (*Classifier, error) {
	client, err := NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create LLM client: %w", err)
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Classifier{
		client:      client,
		cache:       newCandidateCache(cfg.CacheTTL),
		rateLimiter: newRateLimiter(cfg.RateLimit),
		logger:      logger,
	}, nil
}

// NewClassifierWithClient wires a pre-built client; used by tests and by
// adapters that construct their own transport.
func NewClassifierWithClient(client Client, logger *slog.Logger) *Classifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Classifier{
		client:      client,
		cache:       newCandidateCache(0),
		rateLimiter: newRateLimiter(0),
		logger:      logger,
	}
}

// Classify returns a candidate for the statement, consulting the cache first.
func (c *Classifier) Classify(ctx context.Context, req ClassifyRequest) (model.ClassificationCandidate, error) {
	key := cacheKey(req)
	if candidate, found := c.cache.get(key); found {
		c.logger.Debug("cache hit for statement", "description", req.Description)
		return candidate, nil
	}

	if err := c.rateLimiter.wait(ctx); err != nil {
		return model.ClassificationCandidate{}, newProviderError(KindRateLimited, err)
	}

	candidate, err := c.client.Classify(ctx, req)
	if err != nil {
		return model.ClassificationCandidate{}, err
	}

	c.cache.set(key, candidate)

	c.logger.Info("statement classified",
		"description", req.Description,
		"category", candidate.Category,
		"confidence", candidate.Confidence)

	return candidate, nil
}

// Close stops background goroutines and cleans up resources.
func (c *Classifier) Close() error {
	if c.cache != nil {
		c.cache.Close()
	}
	if c.rateLimiter != nil {
		c.rateLimiter.Close()
	}
	return nil
}
