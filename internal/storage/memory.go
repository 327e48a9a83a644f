package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/ledgerlight/ledgerlight/internal/common"
	"github.com/ledgerlight/ledgerlight/internal/model"
)

// MemoryStorage is the map-backed Storage implementation. It holds no
// external resources and is safe for concurrent use; intended for tests and
// ephemeral runs.
type MemoryStorage struct {
	categories    map[string]model.Category
	categoryNames map[string]string // normalized name -> id
	expenses      map[string]model.Expense
	discarded     []DiscardedClassification
	mu            sync.RWMutex
}

// NewMemoryStorage creates an empty in-memory storage instance.
func NewMemoryStorage() *MemoryStorage {
	return &MemoryStorage{
		categories:    make(map[string]model.Category),
		categoryNames: make(map[string]string),
		expenses:      make(map[string]model.Expense),
	}
}

// Migrate is a no-op for the in-memory variant.
func (s *MemoryStorage) Migrate(ctx context.Context) error {
	return validateContext(ctx)
}

// Close is a no-op for the in-memory variant.
func (s *MemoryStorage) Close() error {
	return nil
}

// AddCategory stores a new category.
func (s *MemoryStorage) AddCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCategory(category); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.categories[category.ID]; exists {
		return fmt.Errorf("category %s: %w", category.ID, common.ErrDuplicateEntry)
	}
	normalized := model.NormalizeCategoryName(category.Name)
	if _, exists := s.categoryNames[normalized]; exists {
		return fmt.Errorf("category name %q: %w", category.Name, common.ErrDuplicateEntry)
	}

	s.categories[category.ID] = *category
	s.categoryNames[normalized] = category.ID
	return nil
}

// GetCategory returns a category by id.
func (s *MemoryStorage) GetCategory(ctx context.Context, id string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	category, exists := s.categories[id]
	if !exists {
		return nil, fmt.Errorf("category %s: %w", id, common.ErrNotFound)
	}
	return &category, nil
}

// GetCategoryByName returns a category by its case-normalized name.
func (s *MemoryStorage) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	id, exists := s.categoryNames[model.NormalizeCategoryName(name)]
	if !exists {
		return nil, fmt.Errorf("category %q: %w", name, common.ErrNotFound)
	}
	category := s.categories[id]
	return &category, nil
}

// ListCategories returns all categories ordered by name.
func (s *MemoryStorage) ListCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	categories := make([]model.Category, 0, len(s.categories))
	for _, category := range s.categories {
		categories = append(categories, category)
	}
	sort.Slice(categories, func(i, j int) bool {
		return categories[i].Name < categories[j].Name
	})
	return categories, nil
}

// UpdateCategory replaces an existing category.
func (s *MemoryStorage) UpdateCategory(ctx context.Context, category *model.Category) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateCategory(category); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, exists := s.categories[category.ID]
	if !exists {
		return fmt.Errorf("category %s: %w", category.ID, common.ErrNotFound)
	}

	normalized := model.NormalizeCategoryName(category.Name)
	if id, taken := s.categoryNames[normalized]; taken && id != category.ID {
		return fmt.Errorf("category name %q: %w", category.Name, common.ErrDuplicateEntry)
	}

	delete(s.categoryNames, model.NormalizeCategoryName(existing.Name))
	s.categoryNames[normalized] = category.ID
	s.categories[category.ID] = *category
	return nil
}

// DeleteCategory removes a category unless expenses still reference it.
func (s *MemoryStorage) DeleteCategory(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	category, exists := s.categories[id]
	if !exists {
		return fmt.Errorf("category %s: %w", id, common.ErrNotFound)
	}

	for _, expense := range s.expenses {
		if expense.CategoryID == id {
			return fmt.Errorf("category %s: %w", id, common.ErrCategoryInUse)
		}
	}

	delete(s.categories, id)
	delete(s.categoryNames, model.NormalizeCategoryName(category.Name))
	return nil
}

// AddExpense stores a new expense.
func (s *MemoryStorage) AddExpense(ctx context.Context, expense *model.Expense) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateExpense(expense); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.expenses[expense.ID]; exists {
		return fmt.Errorf("expense %s: %w", expense.ID, common.ErrDuplicateEntry)
	}
	if _, exists := s.categories[expense.CategoryID]; !exists {
		return fmt.Errorf("expense category %s: %w", expense.CategoryID, common.ErrNotFound)
	}

	s.expenses[expense.ID] = *expense
	return nil
}

// GetExpense returns an expense by id.
func (s *MemoryStorage) GetExpense(ctx context.Context, id string) (*model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	expense, exists := s.expenses[id]
	if !exists {
		return nil, fmt.Errorf("expense %s: %w", id, common.ErrNotFound)
	}
	return &expense, nil
}

// ListExpenses returns all expenses, oldest first.
func (s *MemoryStorage) ListExpenses(ctx context.Context) ([]model.Expense, error) {
	return s.SearchExpenses(ctx, ExpenseFilter{})
}

// UpdateExpense replaces an existing expense.
func (s *MemoryStorage) UpdateExpense(ctx context.Context, expense *model.Expense) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateExpense(expense); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.expenses[expense.ID]; !exists {
		return fmt.Errorf("expense %s: %w", expense.ID, common.ErrNotFound)
	}
	if _, exists := s.categories[expense.CategoryID]; !exists {
		return fmt.Errorf("expense category %s: %w", expense.CategoryID, common.ErrNotFound)
	}

	s.expenses[expense.ID] = *expense
	return nil
}

// DeleteExpense removes an expense.
func (s *MemoryStorage) DeleteExpense(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.expenses[id]; !exists {
		return fmt.Errorf("expense %s: %w", id, common.ErrNotFound)
	}
	delete(s.expenses, id)
	return nil
}

// RecordDiscarded appends a discarded classification for later analysis.
func (s *MemoryStorage) RecordDiscarded(ctx context.Context, discarded DiscardedClassification) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.discarded = append(s.discarded, discarded)
	return nil
}

// SearchExpenses evaluates the filter against every stored expense.
func (s *MemoryStorage) SearchExpenses(ctx context.Context, filter ExpenseFilter) ([]model.Expense, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	var matched []model.Expense
	for _, expense := range s.expenses {
		if filter.Matches(&expense) {
			matched = append(matched, expense)
		}
	}
	sort.Slice(matched, func(i, j int) bool {
		if matched[i].CreatedAt.Equal(matched[j].CreatedAt) {
			return matched[i].ID < matched[j].ID
		}
		return matched[i].CreatedAt.Before(matched[j].CreatedAt)
	})

	if filter.Offset > 0 {
		if filter.Offset >= len(matched) {
			return nil, nil
		}
		matched = matched[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(matched) {
		matched = matched[:filter.Limit]
	}
	return matched, nil
}
