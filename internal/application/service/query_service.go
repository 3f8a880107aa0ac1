package service

import (
	"context"

	"github.com/garyjia/event-budget/internal/application/port"
	"github.com/garyjia/event-budget/internal/domain/apperr"
	"github.com/garyjia/event-budget/internal/domain/entity"
)

// BudgetQueryService serves read access to budgets, filtered by what the caller may see
type BudgetQueryService interface {
	GetBudget(ctx context.Context, caller entity.Caller, budgetID string) (*entity.Budget, error)
	ListBudgetsForDepartment(ctx context.Context, caller entity.Caller, eventID, departmentID string, filter entity.BudgetFilter) ([]*entity.Budget, error)
	ListBudgetsForEvent(ctx context.Context, caller entity.Caller, eventID string, filter entity.BudgetFilter) ([]*entity.Budget, error)
	GetHistory(ctx context.Context, caller entity.Caller, budgetID string) ([]*entity.BudgetHistory, error)
}

type budgetQueryServiceImpl struct {
	budgets port.BudgetRepository
	history port.HistoryRepository
}

// NewBudgetQueryService creates a new BudgetQueryService
func NewBudgetQueryService(budgets port.BudgetRepository, history port.HistoryRepository) BudgetQueryService {
	return &budgetQueryServiceImpl{
		budgets: budgets,
		history: history,
	}
}

func (s *budgetQueryServiceImpl) GetBudget(ctx context.Context, caller entity.Caller, budgetID string) (*entity.Budget, error) {
	const op = "get budget"

	budget, err := s.budgets.GetByID(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	if budget == nil {
		return nil, apperr.NotFound(op, "budget %s not found", budgetID)
	}
	if !budget.VisibleTo(caller) {
		return nil, apperr.Forbidden(op, "budget %s is not visible to %s", budgetID, caller.UserID)
	}
	return budget, nil
}

func (s *budgetQueryServiceImpl) ListBudgetsForDepartment(ctx context.Context, caller entity.Caller, eventID, departmentID string, filter entity.BudgetFilter) ([]*entity.Budget, error) {
	if !caller.InEvent(eventID) {
		return nil, apperr.Forbidden("list department budgets", "caller has no role in event %s", eventID)
	}

	// Callers who see the whole department page in the repository
	if caller.IsHoOC() || caller.IsHoDOf(departmentID) {
		return s.budgets.ListByDepartment(ctx, eventID, departmentID, filter)
	}

	all, err := s.budgets.ListByDepartment(ctx, eventID, departmentID, entity.BudgetFilter{Status: filter.Status})
	if err != nil {
		return nil, err
	}
	return paginate(visibleOnly(all, caller), filter), nil
}

func (s *budgetQueryServiceImpl) ListBudgetsForEvent(ctx context.Context, caller entity.Caller, eventID string, filter entity.BudgetFilter) ([]*entity.Budget, error) {
	if !caller.InEvent(eventID) {
		return nil, apperr.Forbidden("list event budgets", "caller has no role in event %s", eventID)
	}

	if caller.IsHoOC() {
		return s.budgets.ListByEvent(ctx, eventID, filter)
	}

	all, err := s.budgets.ListByEvent(ctx, eventID, entity.BudgetFilter{Status: filter.Status})
	if err != nil {
		return nil, err
	}
	return paginate(visibleOnly(all, caller), filter), nil
}

// GetHistory returns the audit trail of a budget the caller can see
func (s *budgetQueryServiceImpl) GetHistory(ctx context.Context, caller entity.Caller, budgetID string) ([]*entity.BudgetHistory, error) {
	if _, err := s.GetBudget(ctx, caller, budgetID); err != nil {
		return nil, err
	}
	return s.history.GetByBudgetID(ctx, budgetID)
}

func visibleOnly(budgets []*entity.Budget, caller entity.Caller) []*entity.Budget {
	out := make([]*entity.Budget, 0, len(budgets))
	for _, b := range budgets {
		if b.VisibleTo(caller) {
			out = append(out, b)
		}
	}
	return out
}

func paginate(budgets []*entity.Budget, filter entity.BudgetFilter) []*entity.Budget {
	if filter.Offset > 0 {
		if filter.Offset >= len(budgets) {
			return []*entity.Budget{}
		}
		budgets = budgets[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(budgets) {
		budgets = budgets[:filter.Limit]
	}
	return budgets
}
