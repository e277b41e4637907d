package office

import (
	"context"
	"fmt"
	"strings"

	"github.com/starford/lexdesk/internal/apperr"
	"github.com/starford/lexdesk/internal/models"
	"github.com/starford/lexdesk/internal/reconcile"
)

// Expenses returns every expense, most recent first.
func (s *Service) Expenses() []models.Expense {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]models.Expense(nil), s.state.Expenses...)
}

func expenseID(e models.Expense) string { return e.ID }

func (s *Service) prepareExpense(e *models.Expense) error {
	if strings.TrimSpace(e.Category) == "" {
		return fmt.Errorf("office: expense category is required: %w", apperr.ErrValidation)
	}
	if e.Amount < 0 {
		return fmt.Errorf("office: expense amount must not be negative: %w", apperr.ErrValidation)
	}
	if e.Date == "" {
		e.Date = s.today()
	}
	if e.Status == "" {
		e.Status = models.ExpensePaid
	}
	return nil
}

// AddExpense prepends e. An older expense with the same natural key is
// dropped by deduplication, so the new record is the one kept.
func (s *Service) AddExpense(ctx context.Context, e models.Expense) (models.Expense, error) {
	if err := s.prepareExpense(&e); err != nil {
		return models.Expense{}, err
	}
	e.ID = s.ids.NewID()
	err := s.mutate(ctx, ChangeEvent{Origin: OriginLocal, Op: OpCreate, Collection: models.KeyExpenses, ID: e.ID, Keys: []string{models.KeyExpenses}},
		func(st *models.State) error {
			st.Expenses = append([]models.Expense{e}, st.Expenses...)
			return nil
		})
	if err != nil {
		return models.Expense{}, err
	}
	return e, nil
}

// UpdateExpense replaces the expense with e.ID, then deduplicates. An edit
// that would collide with a more recent expense, and so be dropped by
// deduplication, is rejected with apperr.ErrAlreadyExists.
func (s *Service) UpdateExpense(ctx context.Context, e models.Expense) (models.Expense, error) {
	if err := s.prepareExpense(&e); err != nil {
		return models.Expense{}, err
	}
	err := s.mutate(ctx, ChangeEvent{Origin: OriginLocal, Op: OpUpdate, Collection: models.KeyExpenses, ID: e.ID, Keys: []string{models.KeyExpenses}},
		func(st *models.State) error {
			i := indexOf(st.Expenses, e.ID, expenseID)
			if i < 0 {
				return fmt.Errorf("office: expense %s: %w", e.ID, apperr.ErrNotFound)
			}
			key := reconcile.ExpenseKey(e)
			for _, other := range st.Expenses[:i] {
				if reconcile.ExpenseKey(other) == key {
					return fmt.Errorf("office: expense %s duplicates %s: %w", e.ID, other.ID, apperr.ErrAlreadyExists)
				}
			}
			st.Expenses[i] = e
			return nil
		})
	if err != nil {
		return models.Expense{}, err
	}
	return e, nil
}

// DeleteExpense removes the expense.
func (s *Service) DeleteExpense(ctx context.Context, id string) error {
	return s.mutate(ctx, ChangeEvent{Origin: OriginLocal, Op: OpDelete, Collection: models.KeyExpenses, ID: id, Keys: []string{models.KeyExpenses, models.KeyLogs}},
		func(st *models.State) error {
			i := indexOf(st.Expenses, id, expenseID)
			if i < 0 {
				return fmt.Errorf("office: expense %s: %w", id, apperr.ErrNotFound)
			}
			st.Expenses = removeAt(st.Expenses, i)
			s.appendLog(ctx, st, "deleted expense %s", id)
			return nil
		})
}
