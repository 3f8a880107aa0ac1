package workflow

import (
	"context"
	"fmt"

	"github.com/garyjia/event-budget/internal/domain/apperr"
	"github.com/garyjia/event-budget/internal/domain/entity"
	domainwf "github.com/garyjia/event-budget/internal/domain/workflow"
)

// BuildBudgetStateMachine creates the approval state machine positioned at
// the budget's current status. Guards read b when the trigger fires.
func BuildBudgetStateMachine(b *entity.Budget) domainwf.StateMachine {
	builder := domainwf.NewBuilder()

	builder.Configure(domainwf.StateDraft).
		PermitIf(domainwf.TriggerSubmit, domainwf.StateSubmitted, submissionComplete(b)).
		Permit(domainwf.TriggerDelete, domainwf.StateDeleted)

	builder.Configure(domainwf.StateChangesRequested).
		PermitIf(domainwf.TriggerSubmit, domainwf.StateSubmitted, submissionComplete(b))

	builder.Configure(domainwf.StateSubmitted).
		Permit(domainwf.TriggerRecall, domainwf.StateDraft).
		PermitIf(domainwf.TriggerApprove, domainwf.StateApproved, everyItemDecided(b, "approve budget")).
		PermitIf(domainwf.TriggerRequestChanges, domainwf.StateChangesRequested, everyItemDecided(b, "request changes"))

	builder.Configure(domainwf.StateApproved).
		Permit(domainwf.TriggerSendToMembers, domainwf.StateSentToMembers)

	builder.Configure(domainwf.StateSentToMembers).
		PermitIf(domainwf.TriggerLock, domainwf.StateLocked, expensesTurnedIn(b))

	// LOCKED and DELETED are terminal

	return builder.Build(domainwf.State(b.Status))
}

func submissionComplete(b *entity.Budget) domainwf.GuardFunc {
	return func(ctx context.Context) error {
		if violations := entity.ValidateBudget(b, entity.ValidateSubmission); len(violations) > 0 {
			return apperr.Validation("submit budget", violations)
		}
		return nil
	}
}

func everyItemDecided(b *entity.Budget, op string) domainwf.GuardFunc {
	return func(ctx context.Context) error {
		return itemViolations(op, b, b.PendingItems(), "status", "item %q has no decision")
	}
}

func expensesTurnedIn(b *entity.Budget) domainwf.GuardFunc {
	return func(ctx context.Context) error {
		return itemViolations("lock budget", b, b.UnsubmittedAssignedItems(), "submitted_status", "expense for %q is not submitted")
	}
}

// itemViolations reports one violation per blocking item, keyed by its index in b
func itemViolations(op string, b *entity.Budget, blocking []*entity.LineItem, field, format string) error {
	if len(blocking) == 0 {
		return nil
	}
	violations := make([]apperr.Violation, 0, len(blocking))
	for _, item := range blocking {
		_, idx := b.FindItem(item.ID)
		violations = append(violations, apperr.Violation{
			Field:   fmt.Sprintf("items[%d].%s", idx, field),
			Message: fmt.Sprintf(format, item.Name),
		})
	}
	return apperr.Validation(op, violations)
}
