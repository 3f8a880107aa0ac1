package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/garyjia/event-budget/internal/application/aggregate"
	"github.com/garyjia/event-budget/internal/domain/apperr"
	"github.com/garyjia/event-budget/internal/domain/entity"
	"github.com/garyjia/event-budget/internal/domain/event"
	domainwf "github.com/garyjia/event-budget/internal/domain/workflow"
)

// engineImpl is the concrete implementation of BudgetEngine
type engineImpl struct {
	store  *aggregate.Store
	logger *zap.Logger
	newID  func() string
}

// EngineOption configures the workflow engine
type EngineOption func(*engineImpl)

// WithIDGenerator overrides how budget and item ids are generated
func WithIDGenerator(fn func() string) EngineOption {
	return func(e *engineImpl) {
		e.newID = fn
	}
}

// NewEngine creates a new budget workflow engine
func NewEngine(store *aggregate.Store, logger *zap.Logger, opts ...EngineOption) BudgetEngine {
	e := &engineImpl{
		store:  store,
		logger: logger,
		newID:  uuid.NewString,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// transitionRule describes one status-changing command
type transitionRule struct {
	op      string
	action  string
	trigger domainwf.Trigger
	allowed func(caller entity.Caller, b *entity.Budget) bool
	denied  string
}

var (
	ownerOnly = func(c entity.Caller, b *entity.Budget) bool { return b.OwnedBy(c) }
	hoocOnly  = func(c entity.Caller, b *entity.Budget) bool { return c.IsHoOC() }
)

var (
	ruleSubmit = transitionRule{"submit budget", entity.ActionSubmit, domainwf.TriggerSubmit,
		ownerOnly, "only the owning department head can submit"}
	ruleRecall = transitionRule{"recall budget", entity.ActionRecall, domainwf.TriggerRecall,
		ownerOnly, "only the owning department head can recall"}
	ruleApprove = transitionRule{"approve budget", entity.ActionApprove, domainwf.TriggerApprove,
		hoocOnly, "only the head of the organizing committee can approve"}
	ruleRequestChanges = transitionRule{"request changes", entity.ActionRequestChanges, domainwf.TriggerRequestChanges,
		hoocOnly, "only the head of the organizing committee can request changes"}
	ruleSendToMembers = transitionRule{"send to members", entity.ActionSendToMembers, domainwf.TriggerSendToMembers,
		ownerOnly, "only the owning department head can send to members"}
	ruleDelete = transitionRule{"delete budget", entity.ActionDelete, domainwf.TriggerDelete,
		ownerOnly, "only the owning department head can delete"}
	ruleLock = transitionRule{"lock budget", entity.ActionLock, domainwf.TriggerLock,
		func(c entity.Caller, b *entity.Budget) bool { return b.OwnedBy(c) || c.IsHoOC() },
		"only the owning department head or the head of the organizing committee can lock"}
)

func (e *engineImpl) CreateBudget(ctx context.Context, caller entity.Caller, eventID string, input DraftInput) (*entity.Budget, error) {
	const op = "create budget"

	if !caller.InEvent(eventID) {
		return nil, apperr.Forbidden(op, "caller has no role in event %s", eventID)
	}
	if caller.Role != entity.RoleHoD || caller.DepartmentID == "" {
		return nil, apperr.Forbidden(op, "only a department head can create a budget")
	}

	now := e.store.Now()
	budget := &entity.Budget{
		ID:           e.newID(),
		EventID:      eventID,
		DepartmentID: caller.DepartmentID,
		Status:       entity.BudgetStatusDraft,
		CreatedBy:    caller.UserID,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	// Item ids are assigned here; any supplied by the client are ignored
	fresh := input
	fresh.Items = make([]ItemInput, len(input.Items))
	for i, in := range input.Items {
		in.ID = ""
		fresh.Items[i] = in
	}
	if _, err := e.applyDraft(op, budget, fresh); err != nil {
		return nil, err
	}
	if len(budget.Items) == 0 {
		budget.Items = []*entity.LineItem{entity.NewLineItem(e.newID())}
	}

	return e.store.Create(ctx, caller, budget, fmt.Sprintf("%d item(s)", len(budget.Items)))
}

func (e *engineImpl) UpdateBudgetDraft(ctx context.Context, caller entity.Caller, budgetID string, input DraftInput, opts ...aggregate.Option) (*entity.Budget, error) {
	const op = "update budget"

	return e.store.Execute(ctx, aggregate.Command{
		Op:       op,
		Action:   entity.ActionUpdate,
		BudgetID: budgetID,
		Caller:   caller,
		Mutate: func(next *entity.Budget) (aggregate.Effect, error) {
			if !next.Status.AllowsContentEdit() {
				return aggregate.Effect{}, apperr.BudgetLocked(op, "budget content is frozen in status %s", next.Status)
			}
			if !next.OwnedBy(caller) {
				return aggregate.Effect{}, apperr.Forbidden(op, "only the owning department head can edit")
			}

			removed, err := e.applyDraft(op, next, input)
			if err != nil {
				return aggregate.Effect{}, err
			}

			if next.Status == entity.BudgetStatusSubmitted {
				e.logger.Warn("Budget edited while under review",
					zap.String("budget_id", next.ID),
					zap.String("actor_id", caller.UserID))
			}

			return aggregate.Effect{
				Event: event.TypeBudgetUpdated,
				Payload: map[string]interface{}{
					"status":        string(next.Status),
					"item_count":    len(next.Items),
					"removed_items": removed,
				},
				Detail: fmt.Sprintf("%d item(s), %d removed", len(next.Items), len(removed)),
			}, nil
		},
	}, opts...)
}

// applyDraft writes input into b, reusing stored items by id, and
// validates the result under the rules of b's status. It returns the ids
// of items dropped from the budget.
func (e *engineImpl) applyDraft(op string, b *entity.Budget, input DraftInput) ([]string, error) {
	existing := make(map[string]*entity.LineItem, len(b.Items))
	for _, item := range b.Items {
		existing[item.ID] = item
	}

	items := make([]*entity.LineItem, 0, len(input.Items))
	kept := make(map[string]bool, len(input.Items))
	for idx, in := range input.Items {
		var item *entity.LineItem
		if in.ID != "" {
			stored, ok := existing[in.ID]
			if !ok {
				return nil, apperr.NotFound(op, "item %s (items[%d]) not found in budget", in.ID, idx)
			}
			if kept[in.ID] {
				return nil, apperr.Validation(op, []apperr.Violation{{
					Field:   fmt.Sprintf("items[%d].id", idx),
					Message: fmt.Sprintf("item %s listed twice", in.ID),
				}})
			}
			item = stored
		} else {
			item = entity.NewLineItem(e.newID())
		}
		kept[item.ID] = true

		item.Name = strings.TrimSpace(in.Name)
		item.Category = strings.TrimSpace(in.Category)
		item.Unit = strings.TrimSpace(in.Unit)
		item.UnitCost = in.UnitCost
		item.Qty = in.Qty
		item.Note = in.Note
		item.Evidence = append([]entity.Evidence{}, in.Evidence...)
		item.Recalculate()
		items = append(items, item)
	}

	var removed []string
	for _, item := range b.Items {
		if !kept[item.ID] {
			removed = append(removed, item.ID)
		}
	}

	categories := make([]string, len(input.Categories))
	for i, c := range input.Categories {
		categories[i] = strings.TrimSpace(c)
	}

	b.Name = strings.TrimSpace(input.Name)
	b.IsPublic = input.IsPublic
	b.Categories = categories
	b.Items = items

	if violations := entity.ValidateBudget(b, entity.ModeForStatus(b.Status)); len(violations) > 0 {
		return nil, apperr.Validation(op, violations)
	}
	return removed, nil
}

func (e *engineImpl) SubmitBudget(ctx context.Context, caller entity.Caller, budgetID string, opts ...aggregate.Option) (*entity.Budget, error) {
	return e.transition(ctx, caller, budgetID, ruleSubmit, opts)
}

func (e *engineImpl) RecallBudget(ctx context.Context, caller entity.Caller, budgetID string, opts ...aggregate.Option) (*entity.Budget, error) {
	return e.transition(ctx, caller, budgetID, ruleRecall, opts)
}

func (e *engineImpl) ApproveBudget(ctx context.Context, caller entity.Caller, budgetID string, opts ...aggregate.Option) (*entity.Budget, error) {
	return e.transition(ctx, caller, budgetID, ruleApprove, opts)
}

func (e *engineImpl) RequestChanges(ctx context.Context, caller entity.Caller, budgetID string, opts ...aggregate.Option) (*entity.Budget, error) {
	return e.transition(ctx, caller, budgetID, ruleRequestChanges, opts)
}

func (e *engineImpl) SendToMembers(ctx context.Context, caller entity.Caller, budgetID string, opts ...aggregate.Option) (*entity.Budget, error) {
	return e.transition(ctx, caller, budgetID, ruleSendToMembers, opts)
}

func (e *engineImpl) DeleteDraftBudget(ctx context.Context, caller entity.Caller, budgetID string, opts ...aggregate.Option) (*entity.Budget, error) {
	return e.transition(ctx, caller, budgetID, ruleDelete, opts)
}

func (e *engineImpl) LockBudget(ctx context.Context, caller entity.Caller, budgetID string, opts ...aggregate.Option) (*entity.Budget, error) {
	return e.transition(ctx, caller, budgetID, ruleLock, opts)
}

// transition fires rule.trigger: legality first, then role, then guards
func (e *engineImpl) transition(ctx context.Context, caller entity.Caller, budgetID string, rule transitionRule, opts []aggregate.Option) (*entity.Budget, error) {
	return e.store.Execute(ctx, aggregate.Command{
		Op:       rule.op,
		Action:   rule.action,
		BudgetID: budgetID,
		Caller:   caller,
		Mutate: func(next *entity.Budget) (aggregate.Effect, error) {
			from := next.Status
			machine := BuildBudgetStateMachine(next)

			if !machine.CanFire(rule.trigger) {
				return aggregate.Effect{}, apperr.InvalidTransition(rule.op, rule.trigger.String(), string(from))
			}
			if !rule.allowed(caller, next) {
				return aggregate.Effect{}, apperr.Forbidden(rule.op, "%s", rule.denied)
			}
			if err := machine.Fire(ctx, rule.trigger); err != nil {
				return aggregate.Effect{}, fireError(rule, from, err)
			}

			to := machine.State()
			if to == domainwf.StateDeleted {
				return aggregate.Effect{
					Event:   event.TypeBudgetDeleted,
					Payload: map[string]interface{}{"department_id": next.DepartmentID},
					Remove:  true,
					Detail:  "draft deleted",
				}, nil
			}

			next.Status = entity.BudgetStatus(to)
			return aggregate.Effect{
				Event: event.TypeBudgetStatusChanged,
				Payload: map[string]interface{}{
					"from":    string(from),
					"to":      string(next.Status),
					"trigger": rule.trigger.String(),
				},
				Detail: fmt.Sprintf("%s -> %s", from, next.Status),
			}, nil
		},
	}, opts...)
}

// fireError surfaces a guard's typed refusal, or maps the machine error
func fireError(rule transitionRule, from entity.BudgetStatus, err error) error {
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		return appErr
	}
	if errors.Is(err, domainwf.ErrInvalidTransition) {
		return apperr.InvalidTransition(rule.op, rule.trigger.String(), string(from))
	}
	return fmt.Errorf("%s: %w", rule.op, err)
}

func (e *engineImpl) DecideItem(ctx context.Context, caller entity.Caller, budgetID, itemID string, decision ItemDecision, opts ...aggregate.Option) (*entity.Budget, error) {
	const op = "decide item"

	return e.store.Execute(ctx, aggregate.Command{
		Op:       op,
		Action:   entity.ActionDecideItem,
		BudgetID: budgetID,
		Caller:   caller,
		Mutate: func(next *entity.Budget) (aggregate.Effect, error) {
			if next.Status != entity.BudgetStatusSubmitted {
				return aggregate.Effect{}, apperr.InvalidTransition(op, "decide_item", string(next.Status))
			}
			if !caller.IsHoOC() {
				return aggregate.Effect{}, apperr.Forbidden(op, "only the head of the organizing committee can decide items")
			}

			item, _ := next.FindItem(itemID)
			if item == nil {
				return aggregate.Effect{}, apperr.NotFound(op, "item %s not found in budget %s", itemID, budgetID)
			}

			feedback := strings.TrimSpace(decision.Feedback)
			switch decision.Status {
			case entity.ItemStatusApproved:
				item.Status = entity.ItemStatusApproved
				item.Feedback = ""
			case entity.ItemStatusRejected:
				if feedback == "" {
					return aggregate.Effect{}, apperr.Validation(op, []apperr.Violation{{
						Field: "feedback", Message: "feedback is required when rejecting an item",
					}})
				}
				item.Status = entity.ItemStatusRejected
				item.Feedback = feedback
			default:
				return aggregate.Effect{}, apperr.Validation(op, []apperr.Violation{{
					Field: "status", Message: fmt.Sprintf("decision must be approved or rejected, got %q", decision.Status),
				}})
			}

			return aggregate.Effect{
				Event:   event.TypeItemDecided,
				ItemID:  item.ID,
				Payload: map[string]interface{}{"status": string(item.Status)},
				Detail:  fmt.Sprintf("item %s %s", item.ID, item.Status),
			}, nil
		},
	}, opts...)
}
