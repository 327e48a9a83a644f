package engine

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ledgerlight/ledgerlight/internal/model"
	"github.com/ledgerlight/ledgerlight/internal/session"
	"github.com/ledgerlight/ledgerlight/internal/storage"
)

// Resolution is one reviewer decision for a pending session. Category and
// Amount override the draft when set; they are ignored on rejection.
type Resolution struct {
	Amount   *decimal.Decimal
	Category string
	Confirm  bool
}

// PendingSessions returns the sessions still awaiting a reviewer.
func (e *Engine) PendingSessions() []*session.Session {
	return e.sessions.Pending()
}

// GetSession returns a session by id.
func (e *Engine) GetSession(id string) (*session.Session, error) {
	return e.sessions.Get(id)
}

// ResolveSession applies a reviewer decision. Confirmation commits the draft
// (with any overrides) as a confirmed expense; the commit happens inside the
// session's critical section so at most one expense can ever result. A failed
// commit leaves the session open for another attempt.
func (e *Engine) ResolveSession(ctx context.Context, id string, res Resolution) (*model.Expense, error) {
	var committed *model.Expense

	err := e.sessions.Resolve(id, func(s *session.Session) (model.SessionState, error) {
		if !res.Confirm {
			e.recordRejected(ctx, s)
			return model.SessionRejected, nil
		}

		categoryName := s.Draft.Category
		if res.Category != "" {
			categoryName = res.Category
		}
		category, err := e.store.GetCategoryByName(ctx, categoryName)
		if err != nil {
			return "", fmt.Errorf("resolving category %q: %w", categoryName, err)
		}

		amount := s.Draft.Amount
		if res.Amount != nil {
			if res.Amount.IsNegative() {
				return "", fmt.Errorf("%w: amount must not be negative", model.ErrInvalidExpense)
			}
			amount = *res.Amount
		}

		expense := &model.Expense{
			ID:          uuid.NewString(),
			Description: s.Draft.Description,
			CategoryID:  category.ID,
			Currency:    s.Draft.Currency,
			Status:      model.ExpenseStatusConfirmed,
			Amount:      amount,
			Confidence:  s.Draft.Confidence,
			CreatedAt:   time.Now().UTC(),
		}
		if err := e.store.AddExpense(ctx, expense); err != nil {
			return "", fmt.Errorf("committing expense: %w", err)
		}

		if res.Category != "" &&
			model.NormalizeCategoryName(res.Category) != model.NormalizeCategoryName(s.Draft.Category) {
			e.rememberCorrection(s.Draft.Description, category.Name)
		}

		committed = expense
		return model.SessionConfirmed, nil
	})
	if err != nil {
		return nil, err
	}

	if committed != nil {
		e.logger.Info("expense confirmed by reviewer",
			"expense_id", committed.ID,
			"session_id", id,
			"amount", committed.Amount.String())
	}
	return committed, nil
}

// recordRejected logs a reviewer rejection for later threshold analysis.
func (e *Engine) recordRejected(ctx context.Context, s *session.Session) {
	if err := e.store.RecordDiscarded(ctx, storage.DiscardedClassification{
		CreatedAt:   time.Now().UTC(),
		Description: s.Draft.Description,
		Category:    s.Draft.Category,
		Confidence:  s.Draft.Confidence,
		Reason:      "rejected by reviewer",
	}); err != nil {
		e.logger.Warn("failed to record rejected session", "session_id", s.ID, "error", err)
	}
}
