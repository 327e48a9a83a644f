package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerlight/ledgerlight/internal/common"
	"github.com/ledgerlight/ledgerlight/internal/llm"
	"github.com/ledgerlight/ledgerlight/internal/model"
	"github.com/ledgerlight/ledgerlight/internal/policy"
	"github.com/ledgerlight/ledgerlight/internal/storage"
)

// mockClassifier is a scriptable llm.Client.
type mockClassifier struct {
	mu         sync.Mutex
	classifyFn func(req llm.ClassifyRequest) (model.ClassificationCandidate, error)
	calls      int
	lastReq    llm.ClassifyRequest
}

func (m *mockClassifier) Classify(ctx context.Context, req llm.ClassifyRequest) (model.ClassificationCandidate, error) {
	m.mu.Lock()
	m.calls++
	m.lastReq = req
	fn := m.classifyFn
	m.mu.Unlock()
	return fn(req)
}

func (m *mockClassifier) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

func respondWith(candidate model.ClassificationCandidate) func(llm.ClassifyRequest) (model.ClassificationCandidate, error) {
	return func(llm.ClassifyRequest) (model.ClassificationCandidate, error) {
		return candidate, nil
	}
}

// recordingStore captures discarded classifications for assertions.
type recordingStore struct {
	storage.Storage
	mu        sync.Mutex
	discarded []storage.DiscardedClassification
}

func (r *recordingStore) RecordDiscarded(ctx context.Context, d storage.DiscardedClassification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.discarded = append(r.discarded, d)
	return r.Storage.RecordDiscarded(ctx, d)
}

func (r *recordingStore) discardedEntries() []storage.DiscardedClassification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]storage.DiscardedClassification(nil), r.discarded...)
}

func seededStore(t *testing.T) *recordingStore {
	t.Helper()
	store := &recordingStore{Storage: storage.NewMemoryStorage()}
	ctx := context.Background()
	for i, name := range []string{"Food", "Travel", "Entertainment"} {
		require.NoError(t, store.AddCategory(ctx, &model.Category{
			ID:        []string{"cat-food", "cat-travel", "cat-fun"}[i],
			Name:      name,
			IsActive:  true,
			CreatedAt: time.Now().UTC(),
		}))
	}
	return store
}

func newTestEngine(t *testing.T, classifier llm.Client, store storage.Storage) *Engine {
	t.Helper()
	eng, err := New(Config{
		Classifier: classifier,
		Storage:    store,
		Thresholds: policy.Thresholds{AutoAccept: 0.85, Review: 0.50},
		Retry: common.RetryOptions{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
			MaxDelay:     5 * time.Millisecond,
		},
		SessionTTL: time.Minute,
	})
	require.NoError(t, err)
	t.Cleanup(eng.Close)
	return eng
}

func TestClassifyEmptyStatementNeverCallsProvider(t *testing.T) {
	classifier := &mockClassifier{classifyFn: respondWith(model.ClassificationCandidate{})}
	eng := newTestEngine(t, classifier, seededStore(t))

	for _, description := range []string{"", "   ", "\t\n"} {
		_, err := eng.Classify(context.Background(), ClassifyInput{Description: description})
		assert.ErrorIs(t, err, ErrEmptyStatement)
	}
	assert.Zero(t, classifier.callCount())
}

func TestClassifyRequiresCategories(t *testing.T) {
	classifier := &mockClassifier{classifyFn: respondWith(model.ClassificationCandidate{})}
	store := &recordingStore{Storage: storage.NewMemoryStorage()}
	eng := newTestEngine(t, classifier, store)

	_, err := eng.Classify(context.Background(), ClassifyInput{Description: "Coffee for $5.50"})
	assert.ErrorIs(t, err, ErrNoCategories)
	assert.Zero(t, classifier.callCount())
}

func TestClassifyHighConfidenceCommits(t *testing.T) {
	classifier := &mockClassifier{classifyFn: respondWith(model.ClassificationCandidate{
		Category:   "Food",
		Confidence: 0.95,
	})}
	store := seededStore(t)
	eng := newTestEngine(t, classifier, store)

	result, err := eng.Classify(context.Background(),
		ClassifyInput{Description: "Coffee at Starbucks for $5.50"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeCommitted, result.Outcome)
	require.NotNil(t, result.Expense)
	assert.Equal(t, "cat-food", result.Expense.CategoryID)
	assert.Equal(t, model.ExpenseStatusConfirmed, result.Expense.Status)
	assert.True(t, result.Expense.Amount.Equal(decimal.RequireFromString("5.50")))
	assert.InDelta(t, 0.95, result.Expense.Confidence, 1e-9)

	stored, err := store.GetExpense(context.Background(), result.Expense.ID)
	require.NoError(t, err)
	assert.Equal(t, model.CurrencyUSD, stored.Currency)
}

func TestClassifyMidConfidenceOpensSession(t *testing.T) {
	classifier := &mockClassifier{classifyFn: respondWith(model.ClassificationCandidate{
		Category:   "Travel",
		Confidence: 0.55,
	})}
	store := seededStore(t)
	eng := newTestEngine(t, classifier, store)

	result, err := eng.Classify(context.Background(),
		ClassifyInput{Description: "Uber ride downtown $18.20"})
	require.NoError(t, err)

	assert.Equal(t, OutcomePending, result.Outcome)
	assert.NotEmpty(t, result.SessionID)
	assert.Nil(t, result.Expense)

	expenses, err := store.ListExpenses(context.Background())
	require.NoError(t, err)
	assert.Empty(t, expenses, "nothing commits until a reviewer confirms")

	pending := eng.PendingSessions()
	require.Len(t, pending, 1)
	assert.True(t, pending[0].Draft.Amount.Equal(decimal.RequireFromString("18.20")))
}

func TestClassifyUnknownLabelRejectsRegardlessOfConfidence(t *testing.T) {
	classifier := &mockClassifier{classifyFn: respondWith(model.ClassificationCandidate{
		Category:   "Cryptocurrency",
		Confidence: 0.99,
	})}
	store := seededStore(t)
	eng := newTestEngine(t, classifier, store)

	result, err := eng.Classify(context.Background(),
		ClassifyInput{Description: "Bought some tokens for $100"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeRejected, result.Outcome)
	assert.Contains(t, result.Reason, "Cryptocurrency")

	entries := store.discardedEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "Cryptocurrency", entries[0].Category)
}

func TestClassifyLowConfidenceRejects(t *testing.T) {
	classifier := &mockClassifier{classifyFn: respondWith(model.ClassificationCandidate{
		Category:   "Food",
		Confidence: 0.20,
	})}
	store := seededStore(t)
	eng := newTestEngine(t, classifier, store)

	result, err := eng.Classify(context.Background(),
		ClassifyInput{Description: "misc charge $3"})
	require.NoError(t, err)

	assert.Equal(t, OutcomeRejected, result.Outcome)
	assert.Equal(t, "confidence below review watermark", result.Reason)
	assert.Len(t, store.discardedEntries(), 1)
}

func TestClassifyRetriesTransientErrors(t *testing.T) {
	attempts := 0
	classifier := &mockClassifier{classifyFn: func(llm.ClassifyRequest) (model.ClassificationCandidate, error) {
		attempts++
		if attempts < 3 {
			return model.ClassificationCandidate{}, &llm.ProviderError{
				Kind: llm.KindRateLimited, Err: errors.New("429"),
			}
		}
		return model.ClassificationCandidate{Category: "Food", Confidence: 0.95}, nil
	}}
	eng := newTestEngine(t, classifier, seededStore(t))

	result, err := eng.Classify(context.Background(),
		ClassifyInput{Description: "Lunch $12.00"})
	require.NoError(t, err)
	assert.Equal(t, OutcomeCommitted, result.Outcome)
	assert.Equal(t, 3, classifier.callCount())
}

func TestClassifyPermanentErrorFailsFast(t *testing.T) {
	classifier := &mockClassifier{classifyFn: func(llm.ClassifyRequest) (model.ClassificationCandidate, error) {
		return model.ClassificationCandidate{}, &llm.ProviderError{
			Kind: llm.KindAuthFailure, Err: errors.New("401"),
		}
	}}
	eng := newTestEngine(t, classifier, seededStore(t))

	_, err := eng.Classify(context.Background(), ClassifyInput{Description: "Lunch $12.00"})
	require.Error(t, err)

	var provErr *llm.ProviderError
	assert.ErrorAs(t, err, &provErr)
	assert.Equal(t, llm.KindAuthFailure, provErr.Kind)
	assert.Equal(t, 1, classifier.callCount(), "auth failures must not be retried")
}

func TestClassifyExhaustedRetriesReportUnavailable(t *testing.T) {
	classifier := &mockClassifier{classifyFn: func(llm.ClassifyRequest) (model.ClassificationCandidate, error) {
		return model.ClassificationCandidate{}, &llm.ProviderError{
			Kind: llm.KindUnavailable, Err: errors.New("503"),
		}
	}}
	eng := newTestEngine(t, classifier, seededStore(t))

	_, err := eng.Classify(context.Background(), ClassifyInput{Description: "Lunch $12.00"})
	assert.ErrorIs(t, err, ErrClassificationUnavailable)
	assert.Equal(t, 3, classifier.callCount())
}

func TestClassifyAmountFallsBackToStatementText(t *testing.T) {
	classifier := &mockClassifier{classifyFn: respondWith(model.ClassificationCandidate{
		Category:   "Food",
		Confidence: 0.95,
	})}
	eng := newTestEngine(t, classifier, seededStore(t))

	result, err := eng.Classify(context.Background(),
		ClassifyInput{Description: "Groceries for 42.75 at the market"})
	require.NoError(t, err)
	assert.True(t, result.Expense.Amount.Equal(decimal.RequireFromString("42.75")))
}

func TestClassifyPrefersProviderAmount(t *testing.T) {
	amount := decimal.RequireFromString("9.99")
	classifier := &mockClassifier{classifyFn: respondWith(model.ClassificationCandidate{
		Category:   "Food",
		Confidence: 0.95,
		Amount:     &amount,
	})}
	eng := newTestEngine(t, classifier, seededStore(t))

	result, err := eng.Classify(context.Background(),
		ClassifyInput{Description: "Lunch special for $12.00"})
	require.NoError(t, err)
	assert.True(t, result.Expense.Amount.Equal(amount))
}

func TestClassifyCurrencyPrecedence(t *testing.T) {
	classifier := &mockClassifier{classifyFn: respondWith(model.ClassificationCandidate{
		Category:   "Food",
		Confidence: 0.95,
		Currency:   model.CurrencyEUR,
	})}
	eng := newTestEngine(t, classifier, seededStore(t))

	// Explicit request wins over the provider's guess.
	result, err := eng.Classify(context.Background(), ClassifyInput{
		Description: "Dinner 30.00",
		Currency:    model.CurrencyGBP,
	})
	require.NoError(t, err)
	assert.Equal(t, model.CurrencyGBP, result.Expense.Currency)

	// Without a request the provider's currency is used.
	result, err = eng.Classify(context.Background(), ClassifyInput{Description: "Dinner 30.00"})
	require.NoError(t, err)
	assert.Equal(t, model.CurrencyEUR, result.Expense.Currency)
}
