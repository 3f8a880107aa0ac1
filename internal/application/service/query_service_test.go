package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/garyjia/event-budget/internal/domain/apperr"
	"github.com/garyjia/event-budget/internal/domain/entity"
)

func seedBudgets(f *fixture) {
	f.budget("log-draft", entity.BudgetStatusDraft)
	f.budget("log-approved", entity.BudgetStatusApproved)

	media := f.budget("media-draft", entity.BudgetStatusDraft)
	media.DepartmentID = "dep-media"
	f.mem.Put(media)

	public := f.budget("media-public", entity.BudgetStatusSubmitted)
	public.DepartmentID = "dep-media"
	public.IsPublic = true
	f.mem.Put(public)
}

func ids(budgets []*entity.Budget) []string {
	out := make([]string, len(budgets))
	for i, b := range budgets {
		out[i] = b.ID
	}
	return out
}

func TestGetBudget_Visibility(t *testing.T) {
	f := newFixture(t)
	svc := NewBudgetQueryService(f.mem.Budgets(), f.mem.History())
	ctx := context.Background()
	seedBudgets(f)

	tests := []struct {
		caller   string
		budgetID string
		kind     apperr.Kind
	}{
		{"u-hooc", "media-draft", ""},
		{"u-hod", "log-draft", ""},
		{"u-hod", "media-public", ""},
		{"u-hod", "media-draft", apperr.KindForbidden},
		{"m-1", "log-approved", ""},
		{"m-1", "log-draft", apperr.KindForbidden},
		{"m-media", "log-approved", apperr.KindForbidden},
		{"u-hod", "nope", apperr.KindNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.caller+"/"+tt.budgetID, func(t *testing.T) {
			b, err := svc.GetBudget(ctx, f.caller(tt.caller), tt.budgetID)
			if tt.kind == "" {
				require.NoError(t, err)
				assert.Equal(t, tt.budgetID, b.ID)
				return
			}
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}

	outsider := entity.Caller{UserID: "u-x", EventID: "ev-2", Role: entity.RoleHoOC}
	_, err := svc.GetBudget(ctx, outsider, "log-draft")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestListBudgetsForEvent(t *testing.T) {
	f := newFixture(t)
	svc := NewBudgetQueryService(f.mem.Budgets(), f.mem.History())
	ctx := context.Background()
	seedBudgets(f)

	all, err := svc.ListBudgetsForEvent(ctx, f.caller("u-hooc"), eventID, entity.BudgetFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"log-draft", "log-approved", "media-draft", "media-public"}, ids(all))

	hod, err := svc.ListBudgetsForEvent(ctx, f.caller("u-hod"), eventID, entity.BudgetFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"log-draft", "log-approved", "media-public"}, ids(hod))

	member, err := svc.ListBudgetsForEvent(ctx, f.caller("m-1"), eventID, entity.BudgetFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"log-approved"}, ids(member))

	page, err := svc.ListBudgetsForEvent(ctx, f.caller("u-hod"), eventID, entity.BudgetFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, []string{"log-approved"}, ids(page))

	drafts, err := svc.ListBudgetsForEvent(ctx, f.caller("u-hooc"), eventID, entity.BudgetFilter{Status: entity.BudgetStatusDraft})
	require.NoError(t, err)
	assert.Equal(t, []string{"log-draft", "media-draft"}, ids(drafts))

	_, err = svc.ListBudgetsForEvent(ctx, f.caller("u-hod"), "ev-2", entity.BudgetFilter{})
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}

func TestListBudgetsForDepartment(t *testing.T) {
	f := newFixture(t)
	svc := NewBudgetQueryService(f.mem.Budgets(), f.mem.History())
	ctx := context.Background()
	seedBudgets(f)

	own, err := svc.ListBudgetsForDepartment(ctx, f.caller("u-hod"), eventID, "dep-logistics", entity.BudgetFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"log-draft", "log-approved"}, ids(own))

	other, err := svc.ListBudgetsForDepartment(ctx, f.caller("u-hod"), eventID, "dep-media", entity.BudgetFilter{})
	require.NoError(t, err)
	assert.Equal(t, []string{"media-public"}, ids(other))

	beyond, err := svc.ListBudgetsForDepartment(ctx, f.caller("u-hod"), eventID, "dep-media", entity.BudgetFilter{Offset: 5})
	require.NoError(t, err)
	assert.Empty(t, beyond)
}

func TestGetHistory(t *testing.T) {
	f := newFixture(t)
	svc := NewBudgetQueryService(f.mem.Budgets(), f.mem.History())
	expenses := newExpenseService(f)
	ctx := context.Background()
	seedBudgets(f)

	_, err := expenses.AssignItem(ctx, f.caller("u-hod"), "log-approved", "i-1", "m-1")
	require.NoError(t, err)

	records, err := svc.GetHistory(ctx, f.caller("u-hooc"), "log-approved")
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, entity.ActionAssignItem, records[0].Action)
	assert.Equal(t, "i-1", records[0].ItemID)
	assert.Equal(t, "u-hod", records[0].ActorID)

	_, err = svc.GetHistory(ctx, f.caller("m-media"), "log-approved")
	assert.Equal(t, apperr.KindForbidden, apperr.KindOf(err))
}
