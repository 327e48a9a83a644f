// Package engine orchestrates expense classification: it validates input,
// calls the LLM provider with bounded retries, applies the confidence policy,
// and routes the outcome to storage or a confirmation session.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerlight/ledgerlight/internal/common"
	"github.com/ledgerlight/ledgerlight/internal/llm"
	"github.com/ledgerlight/ledgerlight/internal/model"
	"github.com/ledgerlight/ledgerlight/internal/policy"
	"github.com/ledgerlight/ledgerlight/internal/session"
	"github.com/ledgerlight/ledgerlight/internal/storage"
)

// Engine errors.
var (
	ErrEmptyStatement            = errors.New("expense statement is empty")
	ErrNoCategories              = errors.New("no active categories configured")
	ErrClassificationUnavailable = errors.New("classification unavailable")
)

// maxCorrections caps the reviewer-correction history fed back to the provider.
const maxCorrections = 20

// Outcome is the terminal disposition of one Classify call.
type Outcome string

// Classification outcomes.
const (
	OutcomeCommitted Outcome = "committed"
	OutcomePending   Outcome = "pending"
	OutcomeRejected  Outcome = "rejected"
)

// Result reports what the engine did with one expense statement.
type Result struct {
	Expense   *model.Expense
	SessionID string
	Reason    string
	Candidate model.ClassificationCandidate
	Decision  policy.Decision
	Outcome   Outcome
}

// Config wires an Engine together.
type Config struct {
	Classifier      llm.Client
	Storage         storage.Storage
	Thresholds      policy.Thresholds
	Retry           common.RetryOptions
	SessionTTL      time.Duration
	SessionSweep    time.Duration
	DefaultCurrency model.Currency
	Logger          *slog.Logger
}

// Engine is the classification service. It owns the confirmation session
// store and the retry budget for provider calls.
type Engine struct {
	classifier  llm.Client
	store       storage.Storage
	sessions    *session.Store
	logger      *slog.Logger
	thresholds  policy.Thresholds
	retry       common.RetryOptions
	defCurrency model.Currency

	correctionsMu sync.Mutex
	corrections   []llm.Correction
}

// New creates an Engine. Expired sessions are recorded as discarded
// classifications for later threshold analysis.
func New(cfg Config) (*Engine, error) {
	if cfg.Classifier == nil {
		return nil, fmt.Errorf("%w: classifier is required", common.ErrInvalidConfig)
	}
	if cfg.Storage == nil {
		return nil, fmt.Errorf("%w: storage is required", common.ErrInvalidConfig)
	}
	if err := cfg.Thresholds.Validate(); err != nil {
		return nil, err
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = model.DefaultCurrency
	}

	eng := &Engine{
		classifier:  cfg.Classifier,
		store:       cfg.Storage,
		logger:      cfg.Logger,
		thresholds:  cfg.Thresholds,
		retry:       cfg.Retry,
		defCurrency: cfg.DefaultCurrency,
	}
	eng.sessions = session.NewStore(session.Config{
		TTL:           cfg.SessionTTL,
		SweepInterval: cfg.SessionSweep,
		Logger:        cfg.Logger,
		OnExpire:      eng.recordExpired,
	})
	return eng, nil
}

// Close releases the session store. Storage lifecycle belongs to the caller.
func (e *Engine) Close() {
	e.sessions.Close()
}

// ClassifyInput is one raw expense statement with optional overrides.
type ClassifyInput struct {
	Description string
	Currency    model.Currency
}

// Classify runs one statement through the full pipeline. Transient provider
// failures are retried with exponential backoff; permanent ones fail fast.
func (e *Engine) Classify(ctx context.Context, input ClassifyInput) (*Result, error) {
	input.Description = strings.TrimSpace(input.Description)
	if input.Description == "" {
		return nil, ErrEmptyStatement
	}

	categories, err := e.store.ListCategories(ctx)
	if err != nil {
		return nil, fmt.Errorf("loading categories: %w", err)
	}
	validNames := policy.ValidNames(categories)
	if len(validNames) == 0 {
		return nil, ErrNoCategories
	}

	candidate, err := e.callProvider(ctx, llm.ClassifyRequest{
		Description: input.Description,
		Categories:  categoryHints(categories),
		Corrections: e.recentCorrections(),
	})
	if err != nil {
		return nil, err
	}

	decision := policy.Decide(candidate, validNames, e.thresholds)
	e.logger.Debug("confidence policy applied",
		"category", candidate.Category,
		"confidence", candidate.Confidence,
		"decision", string(decision))

	amount := e.resolveAmount(candidate, input.Description)
	currency := e.resolveCurrency(candidate, input.Currency)

	switch decision {
	case policy.AutoAccept:
		return e.commit(ctx, input.Description, candidate, amount, currency)
	case policy.NeedsReview:
		return e.openSession(candidate, input.Description, amount, currency), nil
	default:
		return e.discard(ctx, input.Description, candidate, validNames)
	}
}

// callProvider invokes the classifier under the retry budget. Only transient
// provider errors are retried.
func (e *Engine) callProvider(ctx context.Context, req llm.ClassifyRequest) (model.ClassificationCandidate, error) {
	var candidate model.ClassificationCandidate

	err := common.WithRetry(ctx, func() error {
		result, err := e.classifier.Classify(ctx, req)
		if err != nil {
			var provErr *llm.ProviderError
			if errors.As(err, &provErr) {
				return &common.RetryableError{Err: err, Retryable: provErr.Retryable()}
			}
			return &common.RetryableError{Err: err, Retryable: false}
		}
		candidate = result
		return nil
	}, e.retry)

	if err != nil {
		if errors.Is(err, common.ErrMaxRetries) {
			return candidate, fmt.Errorf("%w: %v", ErrClassificationUnavailable, err)
		}
		return candidate, fmt.Errorf("classifying statement: %w", err)
	}
	return candidate, nil
}

// commit persists an auto-accepted candidate as a confirmed expense.
func (e *Engine) commit(ctx context.Context, description string, candidate model.ClassificationCandidate,
	amount decimal.Decimal, currency model.Currency) (*Result, error) {
	category, err := e.store.GetCategoryByName(ctx, candidate.Category)
	if err != nil {
		return nil, fmt.Errorf("resolving category %q: %w", candidate.Category, err)
	}

	expense := &model.Expense{
		ID:          uuid.NewString(),
		Description: description,
		CategoryID:  category.ID,
		Currency:    currency,
		Status:      model.ExpenseStatusConfirmed,
		Amount:      amount,
		Confidence:  candidate.Confidence,
		CreatedAt:   time.Now().UTC(),
	}
	if err := e.store.AddExpense(ctx, expense); err != nil {
		return nil, fmt.Errorf("committing expense: %w", err)
	}

	e.logger.Info("expense auto-accepted",
		"expense_id", expense.ID,
		"category", category.Name,
		"amount", amount.String(),
		"confidence", candidate.Confidence)

	return &Result{
		Outcome:   OutcomeCommitted,
		Expense:   expense,
		Candidate: candidate,
		Decision:  policy.AutoAccept,
	}, nil
}

// openSession parks a mid-confidence candidate for human review.
func (e *Engine) openSession(candidate model.ClassificationCandidate, description string,
	amount decimal.Decimal, currency model.Currency) *Result {
	created := e.sessions.Create(candidate, session.ExpenseDraft{
		Description: description,
		Category:    candidate.Category,
		Currency:    currency,
		Amount:      amount,
		Confidence:  candidate.Confidence,
	})

	return &Result{
		Outcome:   OutcomePending,
		SessionID: created.ID,
		Candidate: candidate,
		Decision:  policy.NeedsReview,
	}
}

// discard logs a rejected candidate; nothing reaches the expense store.
func (e *Engine) discard(ctx context.Context, description string, candidate model.ClassificationCandidate,
	validNames map[string]struct{}) (*Result, error) {
	reason := "confidence below review watermark"
	if _, known := validNames[model.NormalizeCategoryName(candidate.Category)]; !known {
		reason = fmt.Sprintf("unknown category label %q", candidate.Category)
	}

	if err := e.store.RecordDiscarded(ctx, storage.DiscardedClassification{
		CreatedAt:   time.Now().UTC(),
		Description: description,
		Category:    candidate.Category,
		Confidence:  candidate.Confidence,
		Reason:      reason,
	}); err != nil {
		e.logger.Warn("failed to record discarded classification", "error", err)
	}

	e.logger.Info("classification rejected",
		"category", candidate.Category,
		"confidence", candidate.Confidence,
		"reason", reason)

	return &Result{
		Outcome:   OutcomeRejected,
		Candidate: candidate,
		Decision:  policy.Reject,
		Reason:    reason,
	}, nil
}

// resolveAmount prefers the provider's amount, then falls back to scanning the
// statement text.
func (e *Engine) resolveAmount(candidate model.ClassificationCandidate, description string) decimal.Decimal {
	if candidate.Amount != nil && !candidate.Amount.IsNegative() {
		return *candidate.Amount
	}
	if amount, ok := common.ExtractAmount(description); ok {
		return amount
	}
	e.logger.Warn("no amount found in statement", "description", description)
	return decimal.Zero
}

func (e *Engine) resolveCurrency(candidate model.ClassificationCandidate, requested model.Currency) model.Currency {
	if requested.Valid() {
		return requested
	}
	if candidate.Currency.Valid() {
		return candidate.Currency
	}
	return e.defCurrency
}

func categoryHints(categories []model.Category) []llm.CategoryHint {
	hints := make([]llm.CategoryHint, 0, len(categories))
	for _, cat := range categories {
		if cat.IsActive {
			hints = append(hints, llm.CategoryHint{Name: cat.Name, Description: cat.Description})
		}
	}
	return hints
}

// recordExpired funnels expired sessions into the discarded log.
func (e *Engine) recordExpired(s *session.Session) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := e.store.RecordDiscarded(ctx, storage.DiscardedClassification{
		CreatedAt:   time.Now().UTC(),
		Description: s.Draft.Description,
		Category:    s.Draft.Category,
		Confidence:  s.Draft.Confidence,
		Reason:      "confirmation session expired",
	}); err != nil {
		e.logger.Warn("failed to record expired session", "session_id", s.ID, "error", err)
	}
}

// recentCorrections snapshots the reviewer-correction history.
func (e *Engine) recentCorrections() []llm.Correction {
	e.correctionsMu.Lock()
	defer e.correctionsMu.Unlock()
	return append([]llm.Correction(nil), e.corrections...)
}

func (e *Engine) rememberCorrection(description, category string) {
	e.correctionsMu.Lock()
	defer e.correctionsMu.Unlock()
	e.corrections = append(e.corrections, llm.Correction{Description: description, Category: category})
	if len(e.corrections) > maxCorrections {
		e.corrections = e.corrections[len(e.corrections)-maxCorrections:]
	}
}
