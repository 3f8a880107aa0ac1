package service

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/garyjia/event-budget/internal/application/aggregate"
	"github.com/garyjia/event-budget/internal/application/port"
	"github.com/garyjia/event-budget/internal/domain/apperr"
	"github.com/garyjia/event-budget/internal/domain/entity"
	"github.com/garyjia/event-budget/internal/domain/event"
	"github.com/garyjia/event-budget/pkg/utils"
)

// ExpenseReport is a partial expense update. Nil fields are left unchanged.
type ExpenseReport struct {
	// ActualAmount accepts numbers or numeric strings; unreadable input becomes 0
	ActualAmount interface{}
	MemberNote   *string
	// Evidence replaces the whole list when set
	Evidence *[]entity.Evidence
	// AddEvidence is appended after any replacement
	AddEvidence []entity.Evidence
}

func (r ExpenseReport) empty() bool {
	return r.ActualAmount == nil && r.MemberNote == nil && r.Evidence == nil && len(r.AddEvidence) == 0
}

// ExpenseService runs assignment and expense-reporting commands on approved budgets
type ExpenseService interface {
	AssignItem(ctx context.Context, caller entity.Caller, budgetID, itemID, memberID string, opts ...aggregate.Option) (*entity.Budget, error)
	ReportExpense(ctx context.Context, caller entity.Caller, budgetID, itemID string, report ExpenseReport, opts ...aggregate.Option) (*entity.Budget, error)
	RemoveExpenseEvidence(ctx context.Context, caller entity.Caller, budgetID, itemID string, index int, opts ...aggregate.Option) (*entity.Budget, error)
	SubmitExpense(ctx context.Context, caller entity.Caller, budgetID, itemID string, opts ...aggregate.Option) (*entity.Budget, error)
	UndoSubmitExpense(ctx context.Context, caller entity.Caller, budgetID, itemID string, opts ...aggregate.Option) (*entity.Budget, error)
	TogglePaid(ctx context.Context, caller entity.Caller, budgetID, itemID string, opts ...aggregate.Option) (*entity.Budget, error)
}

type expenseServiceImpl struct {
	store   *aggregate.Store
	members port.MembershipDirectory
	logger  *zap.Logger
}

// NewExpenseService creates a new ExpenseService
func NewExpenseService(store *aggregate.Store, members port.MembershipDirectory, logger *zap.Logger) ExpenseService {
	return &expenseServiceImpl{
		store:   store,
		members: members,
		logger:  logger,
	}
}

// reportingOpen rejects commands outside approved and sent_to_members
func reportingOpen(op string, b *entity.Budget) error {
	if b.Status.AllowsExpenseReporting() {
		return nil
	}
	if b.Status == entity.BudgetStatusLocked {
		return apperr.BudgetLocked(op, "budget is locked")
	}
	return &apperr.Error{
		Kind:    apperr.KindInvalidTransition,
		Op:      op,
		Message: fmt.Sprintf("expense reporting is closed while budget is %s", b.Status),
	}
}

func findItem(op string, b *entity.Budget, itemID string) (*entity.LineItem, error) {
	item, _ := b.FindItem(itemID)
	if item == nil {
		return nil, apperr.NotFound(op, "item %s not found in budget %s", itemID, b.ID)
	}
	return item, nil
}

// assigneeItem loads the item for a command only its assignee may issue
func assigneeItem(op string, caller entity.Caller, b *entity.Budget, itemID string) (*entity.LineItem, error) {
	if err := reportingOpen(op, b); err != nil {
		return nil, err
	}
	item, err := findItem(op, b, itemID)
	if err != nil {
		return nil, err
	}
	if !item.IsAssignedTo(caller.UserID) {
		return nil, apperr.Forbidden(op, "only the assignee of item %s can do this", item.ID)
	}
	return item, nil
}

func (s *expenseServiceImpl) AssignItem(ctx context.Context, caller entity.Caller, budgetID, itemID, memberID string, opts ...aggregate.Option) (*entity.Budget, error) {
	const op = "assign item"
	memberID = strings.TrimSpace(memberID)

	return s.store.Execute(ctx, aggregate.Command{
		Op:       op,
		Action:   entity.ActionAssignItem,
		BudgetID: budgetID,
		Caller:   caller,
		Mutate: func(next *entity.Budget) (aggregate.Effect, error) {
			if err := reportingOpen(op, next); err != nil {
				return aggregate.Effect{}, err
			}
			if !next.OwnedBy(caller) {
				return aggregate.Effect{}, apperr.Forbidden(op, "only the owning department head can assign items")
			}
			item, err := findItem(op, next, itemID)
			if err != nil {
				return aggregate.Effect{}, err
			}
			if item.IsExpenseSubmitted() {
				return aggregate.Effect{}, apperr.ItemLocked(op, "expense for item %s is already submitted", item.ID)
			}
			if item.AssignedTo == memberID {
				return aggregate.Effect{NoOp: true}, nil
			}

			if memberID != "" && memberID != caller.UserID {
				ok, err := s.members.IsDepartmentMember(ctx, next.EventID, next.DepartmentID, memberID)
				if err != nil {
					return aggregate.Effect{}, fmt.Errorf("failed to look up member %s: %w", memberID, err)
				}
				if !ok {
					return aggregate.Effect{}, apperr.NotFound(op, "member %s not found in department %s", memberID, next.DepartmentID)
				}
			}

			previous := item.AssignedTo
			item.AssignedTo = memberID

			detail := fmt.Sprintf("item %s assigned to %s", item.ID, memberID)
			if memberID == "" {
				detail = fmt.Sprintf("item %s unassigned", item.ID)
			}
			return aggregate.Effect{
				Event:  event.TypeItemAssigned,
				ItemID: item.ID,
				Payload: map[string]interface{}{
					"assigned_to": memberID,
					"previous":    previous,
				},
				Detail: detail,
			}, nil
		},
	}, opts...)
}

func (s *expenseServiceImpl) ReportExpense(ctx context.Context, caller entity.Caller, budgetID, itemID string, report ExpenseReport, opts ...aggregate.Option) (*entity.Budget, error) {
	const op = "report expense"

	return s.store.Execute(ctx, aggregate.Command{
		Op:       op,
		Action:   entity.ActionReportExpense,
		BudgetID: budgetID,
		Caller:   caller,
		Mutate: func(next *entity.Budget) (aggregate.Effect, error) {
			item, err := assigneeItem(op, caller, next, itemID)
			if err != nil {
				return aggregate.Effect{}, err
			}
			if item.IsExpenseSubmitted() {
				return aggregate.Effect{}, apperr.ItemLocked(op, "expense for item %s is submitted; undo the submission first", item.ID)
			}
			if report.empty() {
				return aggregate.Effect{NoOp: true}, nil
			}

			var violations []apperr.Violation
			checkEvidence := func(prefix string, list []entity.Evidence) {
				for idx, ev := range list {
					if err := ev.Validate(); err != nil {
						violations = append(violations, apperr.Violation{
							Field:   fmt.Sprintf("%s[%d]", prefix, idx),
							Message: err.Error(),
						})
					}
				}
			}
			if report.Evidence != nil {
				checkEvidence("evidence", *report.Evidence)
			}
			checkEvidence("add_evidence", report.AddEvidence)
			if len(violations) > 0 {
				return aggregate.Effect{}, apperr.Validation(op, violations)
			}

			fields := make([]string, 0, 3)
			if report.ActualAmount != nil {
				amount := utils.ParseAmount(report.ActualAmount)
				if amount == 0 {
					s.logger.Debug("Expense amount coerced",
						zap.String("budget_id", next.ID),
						zap.String("item_id", item.ID),
						zap.Any("input", report.ActualAmount))
				}
				item.ActualAmount = amount
				fields = append(fields, "actual_amount")
			}
			if report.MemberNote != nil {
				item.MemberNote = strings.TrimSpace(*report.MemberNote)
				fields = append(fields, "member_note")
			}
			if report.Evidence != nil || len(report.AddEvidence) > 0 {
				evidence := item.Evidence
				if report.Evidence != nil {
					evidence = append([]entity.Evidence{}, (*report.Evidence)...)
				}
				item.Evidence = append(evidence, report.AddEvidence...)
				fields = append(fields, "evidence")
			}

			return aggregate.Effect{
				Event:  event.TypeExpenseReported,
				ItemID: item.ID,
				Payload: map[string]interface{}{
					"actual_amount": item.ActualAmount,
					"fields":        fields,
				},
				Detail: fmt.Sprintf("item %s: %s", item.ID, strings.Join(fields, ", ")),
			}, nil
		},
	}, opts...)
}

func (s *expenseServiceImpl) RemoveExpenseEvidence(ctx context.Context, caller entity.Caller, budgetID, itemID string, index int, opts ...aggregate.Option) (*entity.Budget, error) {
	const op = "remove evidence"

	return s.store.Execute(ctx, aggregate.Command{
		Op:       op,
		Action:   entity.ActionRemoveEvidence,
		BudgetID: budgetID,
		Caller:   caller,
		Mutate: func(next *entity.Budget) (aggregate.Effect, error) {
			item, err := assigneeItem(op, caller, next, itemID)
			if err != nil {
				return aggregate.Effect{}, err
			}
			if item.IsExpenseSubmitted() {
				return aggregate.Effect{}, apperr.ItemLocked(op, "expense for item %s is submitted; undo the submission first", item.ID)
			}
			removed := entity.Evidence{}
			if index >= 0 && index < len(item.Evidence) {
				removed = item.Evidence[index]
			}
			if err := item.RemoveEvidenceAt(index); err != nil {
				return aggregate.Effect{}, apperr.NotFound(op, "%s", err.Error())
			}

			return aggregate.Effect{
				Event:  event.TypeExpenseReported,
				ItemID: item.ID,
				Payload: map[string]interface{}{
					"removed_evidence": removed.Name,
					"fields":           []string{"evidence"},
				},
				Detail: fmt.Sprintf("item %s: evidence[%d] removed", item.ID, index),
			}, nil
		},
	}, opts...)
}

func (s *expenseServiceImpl) SubmitExpense(ctx context.Context, caller entity.Caller, budgetID, itemID string, opts ...aggregate.Option) (*entity.Budget, error) {
	return s.setSubmitted(ctx, caller, budgetID, itemID, entity.SubmittedStatusSubmitted, opts)
}

func (s *expenseServiceImpl) UndoSubmitExpense(ctx context.Context, caller entity.Caller, budgetID, itemID string, opts ...aggregate.Option) (*entity.Budget, error) {
	return s.setSubmitted(ctx, caller, budgetID, itemID, entity.SubmittedStatusDraft, opts)
}

// setSubmitted moves the item's report to status; repeating it is a no-op
func (s *expenseServiceImpl) setSubmitted(ctx context.Context, caller entity.Caller, budgetID, itemID string, status entity.SubmittedStatus, opts []aggregate.Option) (*entity.Budget, error) {
	op, action, eventType := "submit expense", entity.ActionSubmitExpense, event.TypeExpenseSubmitted
	if status == entity.SubmittedStatusDraft {
		op, action, eventType = "undo submit expense", entity.ActionUndoSubmitExpense, event.TypeExpenseUnsubmitted
	}

	return s.store.Execute(ctx, aggregate.Command{
		Op:       op,
		Action:   action,
		BudgetID: budgetID,
		Caller:   caller,
		Mutate: func(next *entity.Budget) (aggregate.Effect, error) {
			item, err := assigneeItem(op, caller, next, itemID)
			if err != nil {
				return aggregate.Effect{}, err
			}
			if item.SubmittedStatus == status {
				return aggregate.Effect{NoOp: true}, nil
			}
			item.SubmittedStatus = status

			return aggregate.Effect{
				Event:   eventType,
				ItemID:  item.ID,
				Payload: map[string]interface{}{"actual_amount": item.ActualAmount},
				Detail:  fmt.Sprintf("item %s expense %s", item.ID, status),
			}, nil
		},
	}, opts...)
}

func (s *expenseServiceImpl) TogglePaid(ctx context.Context, caller entity.Caller, budgetID, itemID string, opts ...aggregate.Option) (*entity.Budget, error) {
	const op = "toggle paid"

	return s.store.Execute(ctx, aggregate.Command{
		Op:       op,
		Action:   entity.ActionTogglePaid,
		BudgetID: budgetID,
		Caller:   caller,
		Mutate: func(next *entity.Budget) (aggregate.Effect, error) {
			if err := reportingOpen(op, next); err != nil {
				return aggregate.Effect{}, err
			}
			if !next.OwnedBy(caller) {
				return aggregate.Effect{}, apperr.Forbidden(op, "only the owning department head can mark items paid")
			}
			item, err := findItem(op, next, itemID)
			if err != nil {
				return aggregate.Effect{}, err
			}
			item.IsPaid = !item.IsPaid

			return aggregate.Effect{
				Event:   event.TypeItemPaidToggled,
				ItemID:  item.ID,
				Payload: map[string]interface{}{"is_paid": item.IsPaid},
				Detail:  fmt.Sprintf("item %s paid=%t", item.ID, item.IsPaid),
			}, nil
		},
	}, opts...)
}
