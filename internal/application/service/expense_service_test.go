package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/event-budget/internal/application/aggregate"
	"github.com/garyjia/event-budget/internal/domain/apperr"
	"github.com/garyjia/event-budget/internal/domain/entity"
	"github.com/garyjia/event-budget/internal/domain/event"
)

func newExpenseService(f *fixture) ExpenseService {
	return NewExpenseService(f.store, f.dir, zap.NewNop())
}

func strPtr(s string) *string { return &s }

func TestExpenseRoundTrip(t *testing.T) {
	f := newFixture(t)
	svc := newExpenseService(f)
	ctx := context.Background()
	f.budget("b-1", entity.BudgetStatusSentToMembers)

	b, err := svc.AssignItem(ctx, f.caller("u-hod"), "b-1", "i-1", "m-1")
	require.NoError(t, err)
	assert.Equal(t, "m-1", b.Items[0].AssignedTo)

	b, err = svc.ReportExpense(ctx, f.caller("m-1"), "b-1", "i-1", ExpenseReport{ActualAmount: 500000})
	require.NoError(t, err)
	assert.Equal(t, int64(500000), b.Items[0].ActualAmount)

	b, err = svc.SubmitExpense(ctx, f.caller("m-1"), "b-1", "i-1")
	require.NoError(t, err)

	assert.Equal(t, entity.BudgetStatusSentToMembers, b.Status)
	assert.Equal(t, "m-1", b.Items[0].AssignedTo)
	assert.Equal(t, int64(500000), b.Items[0].ActualAmount)
	assert.Equal(t, entity.SubmittedStatusSubmitted, b.Items[0].SubmittedStatus)
	assert.Equal(t, int64(200000), b.Items[0].Total, "estimate untouched by reporting")

	assert.Equal(t, []event.Type{event.TypeItemAssigned, event.TypeExpenseReported, event.TypeExpenseSubmitted}, f.recorder.Types())
	assert.Equal(t, []string{entity.ActionAssignItem, entity.ActionReportExpense, entity.ActionSubmitExpense}, f.mem.Actions("b-1"))
}

func TestSubmitExpense_Idempotent(t *testing.T) {
	f := newFixture(t)
	svc := newExpenseService(f)
	ctx := context.Background()
	f.budget("b-1", entity.BudgetStatusApproved)

	_, err := svc.AssignItem(ctx, f.caller("u-hod"), "b-1", "i-1", "m-1")
	require.NoError(t, err)
	first, err := svc.SubmitExpense(ctx, f.caller("m-1"), "b-1", "i-1")
	require.NoError(t, err)

	second, err := svc.SubmitExpense(ctx, f.caller("m-1"), "b-1", "i-1")
	require.NoError(t, err)
	assert.Equal(t, entity.SubmittedStatusSubmitted, second.Items[0].SubmittedStatus)
	assert.Equal(t, first.Version, second.Version, "a repeated submit writes nothing")
	assert.Equal(t, []string{entity.ActionAssignItem, entity.ActionSubmitExpense}, f.mem.Actions("b-1"))
}

func TestUndoSubmitExpense(t *testing.T) {
	f := newFixture(t)
	svc := newExpenseService(f)
	ctx := context.Background()
	f.budget("b-1", entity.BudgetStatusApproved)

	_, err := svc.AssignItem(ctx, f.caller("u-hod"), "b-1", "i-1", "m-1")
	require.NoError(t, err)

	b, err := svc.UndoSubmitExpense(ctx, f.caller("m-1"), "b-1", "i-1")
	require.NoError(t, err, "undo on a draft report is a no-op")
	assert.Equal(t, entity.SubmittedStatusDraft, b.Items[0].SubmittedStatus)

	_, err = svc.SubmitExpense(ctx, f.caller("m-1"), "b-1", "i-1")
	require.NoError(t, err)
	b, err = svc.UndoSubmitExpense(ctx, f.caller("m-1"), "b-1", "i-1")
	require.NoError(t, err)
	assert.Equal(t, entity.SubmittedStatusDraft, b.Items[0].SubmittedStatus)
	assert.Equal(t, event.TypeExpenseUnsubmitted, f.recorder.Last().Type)

	_, err = svc.UndoSubmitExpense(ctx, f.caller("m-2"), "b-1", "i-1")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestAssignItem(t *testing.T) {
	ctx := context.Background()

	t.Run("submitted item is locked", func(t *testing.T) {
		f := newFixture(t)
		svc := newExpenseService(f)
		f.budget("b-1", entity.BudgetStatusApproved)

		_, err := svc.AssignItem(ctx, f.caller("u-hod"), "b-1", "i-1", "m-1")
		require.NoError(t, err)
		_, err = svc.SubmitExpense(ctx, f.caller("m-1"), "b-1", "i-1")
		require.NoError(t, err)

		_, err = svc.AssignItem(ctx, f.caller("u-hod"), "b-1", "i-1", "m-2")
		assert.Equal(t, apperr.KindItemLocked, apperr.KindOf(err))
		assert.Equal(t, "m-1", f.stored(t, "b-1").Items[0].AssignedTo)
	})

	t.Run("clearing assignment", func(t *testing.T) {
		f := newFixture(t)
		svc := newExpenseService(f)
		f.budget("b-1", entity.BudgetStatusApproved)

		_, err := svc.AssignItem(ctx, f.caller("u-hod"), "b-1", "i-1", "m-1")
		require.NoError(t, err)
		b, err := svc.AssignItem(ctx, f.caller("u-hod"), "b-1", "i-1", "")
		require.NoError(t, err)
		assert.Empty(t, b.Items[0].AssignedTo)
		assert.Equal(t, "m-1", f.recorder.Last().GetPayloadString("previous"))
	})

	t.Run("department head assigns self", func(t *testing.T) {
		f := newFixture(t)
		svc := newExpenseService(f)
		f.budget("b-1", entity.BudgetStatusApproved)

		_, err := svc.AssignItem(ctx, f.caller("u-hod"), "b-1", "i-2", "u-hod")
		require.NoError(t, err)
		b, err := svc.ReportExpense(ctx, f.caller("u-hod"), "b-1", "i-2", ExpenseReport{ActualAmount: "2,800,000"})
		require.NoError(t, err)
		assert.Equal(t, int64(2800000), b.Items[1].ActualAmount)
	})

	t.Run("same assignee is a no-op", func(t *testing.T) {
		f := newFixture(t)
		svc := newExpenseService(f)
		f.budget("b-1", entity.BudgetStatusApproved)

		_, err := svc.AssignItem(ctx, f.caller("u-hod"), "b-1", "i-1", "m-1")
		require.NoError(t, err)
		_, err = svc.AssignItem(ctx, f.caller("u-hod"), "b-1", "i-1", " m-1 ")
		require.NoError(t, err)
		assert.Len(t, f.mem.Actions("b-1"), 1)
	})

	rejections := []struct {
		name     string
		status   entity.BudgetStatus
		caller   string
		itemID   string
		memberID string
		kind     apperr.Kind
	}{
		{"member of another department", entity.BudgetStatusApproved, "u-hod", "i-1", "m-media", apperr.KindNotFound},
		{"unknown member", entity.BudgetStatusApproved, "u-hod", "i-1", "ghost", apperr.KindNotFound},
		{"unknown item", entity.BudgetStatusApproved, "u-hod", "i-9", "m-1", apperr.KindNotFound},
		{"not the owner", entity.BudgetStatusApproved, "u-hod2", "i-1", "m-1", apperr.KindForbidden},
		{"member assigns", entity.BudgetStatusApproved, "m-1", "i-1", "m-1", apperr.KindForbidden},
		{"committee head assigns", entity.BudgetStatusApproved, "u-hooc", "i-1", "m-1", apperr.KindForbidden},
		{"draft budget", entity.BudgetStatusDraft, "u-hod", "i-1", "m-1", apperr.KindInvalidTransition},
		{"submitted budget", entity.BudgetStatusSubmitted, "u-hod", "i-1", "m-1", apperr.KindInvalidTransition},
		{"locked budget", entity.BudgetStatusLocked, "u-hod", "i-1", "m-1", apperr.KindBudgetLocked},
	}

	for _, tt := range rejections {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			svc := newExpenseService(f)
			f.budget("b-1", tt.status)

			_, err := svc.AssignItem(ctx, f.caller(tt.caller), "b-1", tt.itemID, tt.memberID)
			assert.Equal(t, tt.kind, apperr.KindOf(err), "got %v", err)
			assert.Empty(t, f.stored(t, "b-1").Items[0].AssignedTo)
			assert.Empty(t, f.recorder.Types())
		})
	}
}

func TestReportExpense(t *testing.T) {
	ctx := context.Background()
	setup := func(t *testing.T) (*fixture, ExpenseService) {
		f := newFixture(t)
		svc := newExpenseService(f)
		f.budget("b-1", entity.BudgetStatusApproved)
		_, err := svc.AssignItem(ctx, f.caller("u-hod"), "b-1", "i-1", "m-1")
		require.NoError(t, err)
		return f, svc
	}

	t.Run("partial update leaves other fields", func(t *testing.T) {
		f, svc := setup(t)
		_, err := svc.ReportExpense(ctx, f.caller("m-1"), "b-1", "i-1", ExpenseReport{ActualAmount: 150000})
		require.NoError(t, err)

		b, err := svc.ReportExpense(ctx, f.caller("m-1"), "b-1", "i-1", ExpenseReport{MemberNote: strPtr("  bought two  ")})
		require.NoError(t, err)
		assert.Equal(t, int64(150000), b.Items[0].ActualAmount)
		assert.Equal(t, "bought two", b.Items[0].MemberNote)
	})

	t.Run("tolerant amount parsing", func(t *testing.T) {
		f, svc := setup(t)
		b, err := svc.ReportExpense(ctx, f.caller("m-1"), "b-1", "i-1", ExpenseReport{ActualAmount: "not a number"})
		require.NoError(t, err)
		assert.Equal(t, int64(0), b.Items[0].ActualAmount)

		b, err = svc.ReportExpense(ctx, f.caller("m-1"), "b-1", "i-1", ExpenseReport{ActualAmount: -5})
		require.NoError(t, err)
		assert.Equal(t, int64(0), b.Items[0].ActualAmount)
	})

	t.Run("evidence replace and append", func(t *testing.T) {
		f, svc := setup(t)
		receipt := entity.Evidence{Type: entity.EvidenceImage, URL: "uploads/r1.jpg", Name: "receipt"}
		invoice := entity.Evidence{Type: entity.EvidenceLink, URL: "https://example.com/inv", Name: "invoice"}

		b, err := svc.ReportExpense(ctx, f.caller("m-1"), "b-1", "i-1", ExpenseReport{AddEvidence: []entity.Evidence{receipt}})
		require.NoError(t, err)
		b, err = svc.ReportExpense(ctx, f.caller("m-1"), "b-1", "i-1", ExpenseReport{AddEvidence: []entity.Evidence{invoice}})
		require.NoError(t, err)
		assert.Equal(t, []entity.Evidence{receipt, invoice}, b.Items[0].Evidence)

		b, err = svc.RemoveExpenseEvidence(ctx, f.caller("m-1"), "b-1", "i-1", 0)
		require.NoError(t, err)
		assert.Equal(t, []entity.Evidence{invoice}, b.Items[0].Evidence)

		_, err = svc.RemoveExpenseEvidence(ctx, f.caller("m-1"), "b-1", "i-1", 3)
		assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))

		replaced := []entity.Evidence{receipt}
		b, err = svc.ReportExpense(ctx, f.caller("m-1"), "b-1", "i-1", ExpenseReport{Evidence: &replaced})
		require.NoError(t, err)
		assert.Equal(t, replaced, b.Items[0].Evidence)
	})

	t.Run("invalid evidence lists every offender", func(t *testing.T) {
		f, svc := setup(t)
		bad := []entity.Evidence{
			{Type: entity.EvidenceLink, URL: "not a url", Name: "x"},
			{Type: entity.EvidenceImage, URL: "uploads/ok.png", Name: "ok"},
			{Type: "video", URL: "uploads/v.mp4"},
		}
		_, err := svc.ReportExpense(ctx, f.caller("m-1"), "b-1", "i-1", ExpenseReport{AddEvidence: bad, ActualAmount: 10})
		require.Equal(t, apperr.KindValidationFailed, apperr.KindOf(err))

		violations := apperr.ViolationsOf(err)
		require.Len(t, violations, 2)
		assert.Equal(t, "add_evidence[0]", violations[0].Field)
		assert.Equal(t, "add_evidence[2]", violations[1].Field)
		assert.Equal(t, int64(0), f.stored(t, "b-1").Items[0].ActualAmount, "nothing written")
	})

	t.Run("only the assignee reports", func(t *testing.T) {
		f, svc := setup(t)
		for _, user := range []string{"m-2", "u-hod", "u-hooc"} {
			_, err := svc.ReportExpense(ctx, f.caller(user), "b-1", "i-1", ExpenseReport{ActualAmount: 1})
			assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err), user)
		}
	})

	t.Run("submitted report is locked", func(t *testing.T) {
		f, svc := setup(t)
		_, err := svc.SubmitExpense(ctx, f.caller("m-1"), "b-1", "i-1")
		require.NoError(t, err)

		_, err = svc.ReportExpense(ctx, f.caller("m-1"), "b-1", "i-1", ExpenseReport{ActualAmount: 1})
		assert.Equal(t, apperr.KindItemLocked, apperr.KindOf(err))
		_, err = svc.RemoveExpenseEvidence(ctx, f.caller("m-1"), "b-1", "i-1", 0)
		assert.Equal(t, apperr.KindItemLocked, apperr.KindOf(err))
	})

	t.Run("stale version", func(t *testing.T) {
		f, svc := setup(t)
		current := f.stored(t, "b-1")
		_, err := svc.ReportExpense(ctx, f.caller("m-1"), "b-1", "i-1", ExpenseReport{ActualAmount: 1}, aggregate.IfVersion(current.Version-1))
		assert.Equal(t, apperr.KindConflictRetry, apperr.KindOf(err))
	})
}

func TestTogglePaid(t *testing.T) {
	f := newFixture(t)
	svc := newExpenseService(f)
	ctx := context.Background()
	f.budget("b-1", entity.BudgetStatusSentToMembers)

	b, err := svc.TogglePaid(ctx, f.caller("u-hod"), "b-1", "i-2")
	require.NoError(t, err)
	assert.True(t, b.Items[1].IsPaid)
	assert.Equal(t, entity.SubmittedStatusDraft, b.Items[1].SubmittedStatus, "paid is independent of submission")
	assert.Equal(t, true, f.recorder.Last().Payload["is_paid"])

	b, err = svc.TogglePaid(ctx, f.caller("u-hod"), "b-1", "i-2")
	require.NoError(t, err)
	assert.False(t, b.Items[1].IsPaid)

	_, err = svc.TogglePaid(ctx, f.caller("m-1"), "b-1", "i-2")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))

	_, err = svc.TogglePaid(ctx, f.caller("u-hod"), "missing", "i-2")
	assert.Equal(t, apperr.KindNotFound, apperr.KindOf(err))
}
