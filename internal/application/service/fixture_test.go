package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/event-budget/internal/application/aggregate"
	"github.com/garyjia/event-budget/internal/application/dispatcher"
	"github.com/garyjia/event-budget/internal/domain/entity"
	"github.com/garyjia/event-budget/internal/testutil"
)

const eventID = "ev-1"

type fixture struct {
	mem        *testutil.MemoryStore
	dir        *testutil.Directory
	dispatcher dispatcher.Dispatcher
	recorder   *testutil.Recorder
	store      *aggregate.Store
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	f := &fixture{
		mem:        testutil.NewMemoryStore(),
		dir:        testutil.NewDirectory(),
		dispatcher: dispatcher.NewDispatcher(),
	}
	f.recorder = testutil.NewRecorder(f.dispatcher)
	f.store = aggregate.NewStore(f.mem.Budgets(), f.mem.History(), f.mem, zap.NewNop(), aggregate.WithDispatcher(f.dispatcher))

	require.NoError(t, f.dir.AssignRole(ctx, eventID, "u-hooc", entity.RoleHoOC, ""))
	require.NoError(t, f.dir.AssignRole(ctx, eventID, "u-hod", entity.RoleHoD, "dep-logistics"))
	require.NoError(t, f.dir.AssignRole(ctx, eventID, "u-hod2", entity.RoleHoD, "dep-media"))
	require.NoError(t, f.dir.AssignRole(ctx, eventID, "m-1", entity.RoleMember, "dep-logistics"))
	require.NoError(t, f.dir.AssignRole(ctx, eventID, "m-2", entity.RoleMember, "dep-logistics"))
	require.NoError(t, f.dir.AssignRole(ctx, eventID, "m-media", entity.RoleMember, "dep-media"))
	return f
}

func (f *fixture) caller(userID string) entity.Caller {
	return f.dir.Must(eventID, userID)
}

// budget stores a budget of dep-logistics in status with two approved items
func (f *fixture) budget(id string, status entity.BudgetStatus) *entity.Budget {
	b := &entity.Budget{
		ID:           id,
		EventID:      eventID,
		DepartmentID: "dep-logistics",
		Name:         "Logistics",
		Status:       status,
		Categories:   []string{},
		CreatedBy:    "u-hod",
		CreatedAt:    time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
		UpdatedAt:    time.Date(2026, 5, 1, 8, 0, 0, 0, time.UTC),
		Items: []*entity.LineItem{
			{ID: "i-1", Name: "Banner", Unit: "piece", UnitCost: 100000, Qty: 2, Evidence: []entity.Evidence{},
				Status: entity.ItemStatusApproved, SubmittedStatus: entity.SubmittedStatusDraft},
			{ID: "i-2", Name: "Hall rental", Unit: "day", UnitCost: 3000000, Qty: 1, Evidence: []entity.Evidence{},
				Status: entity.ItemStatusApproved, SubmittedStatus: entity.SubmittedStatusDraft},
		},
	}
	b.RecalculateTotals()
	f.mem.Put(b)
	return b
}

func (f *fixture) stored(t *testing.T, id string) *entity.Budget {
	t.Helper()
	b, err := f.mem.Budgets().GetByID(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, b)
	return b
}
