package llm

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlight/ledgerlight/internal/model"
)

func TestCandidateCache(t *testing.T) {
	cache := newCandidateCache(50 * time.Millisecond)
	defer cache.Close()

	req := testRequest()
	key := cacheKey(req)

	_, found := cache.get(key)
	assert.False(t, found)

	cache.set(key, model.ClassificationCandidate{Category: "Food", Confidence: 0.9})

	candidate, found := cache.get(key)
	require.True(t, found)
	assert.Equal(t, "Food", candidate.Category)
	assert.Equal(t, 1, cache.size())

	time.Sleep(60 * time.Millisecond)
	_, found = cache.get(key)
	assert.False(t, found)
}

func TestCacheKeyDependsOnCategories(t *testing.T) {
	a := testRequest()
	b := testRequest()
	b.Categories = append(b.Categories, CategoryHint{Name: "Utilities"})

	assert.NotEqual(t, cacheKey(a), cacheKey(b))
	assert.Equal(t, cacheKey(a), cacheKey(testRequest()))
}

// stubClient counts calls so cache behavior can be asserted.
type stubClient struct {
	candidate model.ClassificationCandidate
	err       error
	calls     int
}

func (s *stubClient) Classify(_ context.Context, _ ClassifyRequest) (model.ClassificationCandidate, error) {
	s.calls++
	if s.err != nil {
		return model.ClassificationCandidate{}, s.err
	}
	return s.candidate, nil
}

func TestClassifierUsesCache(t *testing.T) {
	stub := &stubClient{candidate: model.ClassificationCandidate{Category: "Food", Confidence: 0.9}}
	classifier := NewClassifierWithClient(stub, nil)
	defer func() { _ = classifier.Close() }()

	ctx := context.Background()
	req := testRequest()

	first, err := classifier.Classify(ctx, req)
	require.NoError(t, err)
	second, err := classifier.Classify(ctx, req)
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, stub.calls)
}

func TestClassifierDoesNotCacheFailures(t *testing.T) {
	stub := &stubClient{err: newProviderError(KindUnavailable, assert.AnError)}
	classifier := NewClassifierWithClient(stub, nil)
	defer func() { _ = classifier.Close() }()

	ctx := context.Background()
	_, err := classifier.Classify(ctx, testRequest())
	require.Error(t, err)
	_, err = classifier.Classify(ctx, testRequest())
	require.Error(t, err)
	assert.Equal(t, 2, stub.calls)
}

func TestRateLimiter(t *testing.T) {
	rl := newRateLimiter(2)
	defer rl.Close()

	ctx := context.Background()
	require.NoError(t, rl.wait(ctx))
	require.NoError(t, rl.wait(ctx))

	// Bucket drained; a canceled context must unblock the waiter.
	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, rl.wait(canceled))
}
