package port

import (
	"context"

	"github.com/garyjia/event-budget/internal/domain/entity"
)

// BudgetRepository persists budgets together with their line items.
// A budget and its items are always read and written as one unit.
type BudgetRepository interface {
	// Create inserts a new budget at version 1
	Create(ctx context.Context, budget *entity.Budget) error

	// GetByID returns nil, nil when the budget does not exist
	GetByID(ctx context.Context, id string) (*entity.Budget, error)

	// Save replaces the stored budget if its version still equals
	// expectedVersion and bumps the version. A stale version yields an
	// apperr.KindConflictRetry error.
	Save(ctx context.Context, budget *entity.Budget, expectedVersion int64) error

	// Delete removes the budget and its items
	Delete(ctx context.Context, id string) error

	// ListByDepartment returns the budgets of one department in creation order
	ListByDepartment(ctx context.Context, eventID, departmentID string, filter entity.BudgetFilter) ([]*entity.Budget, error)

	// ListByEvent returns every budget of an event in creation order
	ListByEvent(ctx context.Context, eventID string, filter entity.BudgetFilter) ([]*entity.Budget, error)
}

// HistoryRepository persists the audit trail of budget commands
type HistoryRepository interface {
	Create(ctx context.Context, history *entity.BudgetHistory) error
	GetByBudgetID(ctx context.Context, budgetID string) ([]*entity.BudgetHistory, error)
}

// TransactionManager handles database transactions
type TransactionManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}
