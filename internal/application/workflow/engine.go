package workflow

import (
	"context"

	"github.com/garyjia/event-budget/internal/application/aggregate"
	"github.com/garyjia/event-budget/internal/domain/entity"
)

// BudgetEngine validates and applies approval commands to budgets.
// Every command returns the full budget snapshot after the change.
type BudgetEngine interface {
	// CreateBudget starts a draft budget for the calling HoD's department
	CreateBudget(ctx context.Context, caller entity.Caller, eventID string, input DraftInput) (*entity.Budget, error)

	// UpdateBudgetDraft replaces the budget's content while it is editable
	UpdateBudgetDraft(ctx context.Context, caller entity.Caller, budgetID string, input DraftInput, opts ...aggregate.Option) (*entity.Budget, error)

	SubmitBudget(ctx context.Context, caller entity.Caller, budgetID string, opts ...aggregate.Option) (*entity.Budget, error)
	RecallBudget(ctx context.Context, caller entity.Caller, budgetID string, opts ...aggregate.Option) (*entity.Budget, error)

	// DecideItem records the HoOC's decision on one item of a submitted budget
	DecideItem(ctx context.Context, caller entity.Caller, budgetID, itemID string, decision ItemDecision, opts ...aggregate.Option) (*entity.Budget, error)

	ApproveBudget(ctx context.Context, caller entity.Caller, budgetID string, opts ...aggregate.Option) (*entity.Budget, error)
	RequestChanges(ctx context.Context, caller entity.Caller, budgetID string, opts ...aggregate.Option) (*entity.Budget, error)

	// DeleteDraftBudget removes a draft and returns its last snapshot
	DeleteDraftBudget(ctx context.Context, caller entity.Caller, budgetID string, opts ...aggregate.Option) (*entity.Budget, error)

	SendToMembers(ctx context.Context, caller entity.Caller, budgetID string, opts ...aggregate.Option) (*entity.Budget, error)

	// LockBudget freezes a budget once every assigned expense is submitted
	LockBudget(ctx context.Context, caller entity.Caller, budgetID string, opts ...aggregate.Option) (*entity.Budget, error)
}

// DraftInput is the editable content of a budget. Items are given in
// display order; an item with an ID updates that item, one without is new,
// and stored items missing from the list are removed.
type DraftInput struct {
	Name       string      `json:"name"`
	IsPublic   bool        `json:"is_public"`
	Categories []string    `json:"categories"`
	Items      []ItemInput `json:"items"`
}

// ItemInput is the editable content of one line item
type ItemInput struct {
	ID       string            `json:"id,omitempty"`
	Name     string            `json:"name"`
	Category string            `json:"category"`
	Unit     string            `json:"unit"`
	UnitCost int64             `json:"unit_cost"`
	Qty      int64             `json:"qty"`
	Note     string            `json:"note"`
	Evidence []entity.Evidence `json:"evidence"`
}

// ItemDecision is the reviewer's verdict on one item
type ItemDecision struct {
	Status   entity.ItemStatus `json:"status"`
	Feedback string            `json:"feedback"`
}
