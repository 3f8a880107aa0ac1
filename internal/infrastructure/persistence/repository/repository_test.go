package repository

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/event-budget/internal/domain/apperr"
	"github.com/garyjia/event-budget/internal/domain/entity"
	"github.com/garyjia/event-budget/internal/infrastructure/persistence/sqlite"
	"github.com/garyjia/event-budget/pkg/database"
)

func setupDB(t *testing.T) *sqlite.DB {
	t.Helper()
	logger := zap.NewNop()

	db, err := database.New(database.Config{Path: filepath.Join(t.TempDir(), "budget.db")}, logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = database.NewMigrator(db, logger).RunMigrations(database.EmbeddedMigrations())
	require.NoError(t, err)

	return sqlite.NewDB(db.DB, logger)
}

func newBudget(id string) *entity.Budget {
	now := time.Now().UTC().Truncate(time.Second)
	ev, _ := entity.NewEvidence(entity.EvidenceLink, "https://example.com/quote", "quote")
	first := entity.NewLineItem(id + "-i1")
	first.Name, first.Category, first.Unit, first.UnitCost, first.Qty = "Banner", "Printing", "piece", 100000, 2
	first.Evidence = []entity.Evidence{ev}
	second := entity.NewLineItem(id + "-i2")
	second.Name, second.Category, second.Unit, second.UnitCost, second.Qty = "Hall", "Venue", "day", 3000000, 1

	b := &entity.Budget{
		ID:           id,
		EventID:      "ev-1",
		DepartmentID: "dep-logistics",
		Name:         "Logistics",
		Status:       entity.BudgetStatusDraft,
		Categories:   []string{"Printing", "Venue"},
		Items:        []*entity.LineItem{first, second},
		CreatedBy:    "u-hod",
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	b.RecalculateTotals()
	return b
}

func TestBudgetRepository_CreateAndGet(t *testing.T) {
	db := setupDB(t)
	repo := NewBudgetRepository(db, zap.NewNop())
	ctx := context.Background()

	b := newBudget("b-1")
	require.NoError(t, repo.Create(ctx, b))
	assert.Equal(t, int64(1), b.Version)

	got, err := repo.GetByID(ctx, "b-1")
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, b.Name, got.Name)
	assert.Equal(t, b.Categories, got.Categories)
	assert.Equal(t, int64(1), got.Version)
	assert.True(t, b.CreatedAt.Equal(got.CreatedAt))
	require.Len(t, got.Items, 2)
	assert.Equal(t, "b-1-i1", got.Items[0].ID, "item order is preserved")
	assert.Equal(t, int64(200000), got.Items[0].Total)
	require.Len(t, got.Items[0].Evidence, 1)
	assert.True(t, got.Items[0].Evidence[0].Equal(b.Items[0].Evidence[0]))
	assert.NotNil(t, got.Items[1].Evidence)
	assert.Equal(t, entity.ItemStatusPending, got.Items[1].Status)

	missing, err := repo.GetByID(ctx, "nope")
	assert.NoError(t, err)
	assert.Nil(t, missing)
}

func TestBudgetRepository_SaveChecksVersion(t *testing.T) {
	db := setupDB(t)
	repo := NewBudgetRepository(db, zap.NewNop())
	ctx := context.Background()

	b := newBudget("b-1")
	require.NoError(t, repo.Create(ctx, b))

	b.Status = entity.BudgetStatusSubmitted
	b.Items = b.Items[1:]
	b.Items[0].AssignedTo = "m-1"
	b.Items[0].IsPaid = true
	require.NoError(t, repo.Save(ctx, b, 1))
	assert.Equal(t, int64(2), b.Version)

	got, err := repo.GetByID(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, entity.BudgetStatusSubmitted, got.Status)
	assert.Equal(t, int64(2), got.Version)
	require.Len(t, got.Items, 1)
	assert.Equal(t, "m-1", got.Items[0].AssignedTo)
	assert.True(t, got.Items[0].IsPaid)

	err = repo.Save(ctx, b, 1)
	assert.True(t, errors.Is(err, apperr.ErrConflictRetry), "stale version: %v", err)

	ghost := newBudget("ghost")
	err = repo.Save(ctx, ghost, 1)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestBudgetRepository_SaveRollsBackWithTransaction(t *testing.T) {
	db := setupDB(t)
	repo := NewBudgetRepository(db, zap.NewNop())
	ctx := context.Background()

	b := newBudget("b-1")
	require.NoError(t, repo.Create(ctx, b))

	boom := errors.New("history write failed")
	err := db.WithTransaction(ctx, func(ctx context.Context) error {
		b.Name = "Renamed"
		if err := repo.Save(ctx, b, 1); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	got, err := repo.GetByID(ctx, "b-1")
	require.NoError(t, err)
	assert.Equal(t, "Logistics", got.Name)
	assert.Equal(t, int64(1), got.Version)
	assert.Len(t, got.Items, 2)
}

func TestBudgetRepository_ConcurrentSavesOneWins(t *testing.T) {
	db := setupDB(t)
	repo := NewBudgetRepository(db, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.Create(ctx, newBudget("b-1")))

	var wg sync.WaitGroup
	results := make([]error, 4)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			b := newBudget("b-1")
			b.Name = "writer"
			results[i] = repo.Save(ctx, b, 1)
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range results {
		if err == nil {
			succeeded++
			continue
		}
		assert.True(t, errors.Is(err, apperr.ErrConflictRetry), "unexpected error: %v", err)
	}
	assert.Equal(t, 1, succeeded)
}

func TestBudgetRepository_ListAndDelete(t *testing.T) {
	db := setupDB(t)
	repo := NewBudgetRepository(db, zap.NewNop())
	ctx := context.Background()

	for i, id := range []string{"b-1", "b-2", "b-3"} {
		b := newBudget(id)
		b.CreatedAt = b.CreatedAt.Add(time.Duration(i) * time.Minute)
		if id == "b-3" {
			b.DepartmentID = "dep-media"
			b.Status = entity.BudgetStatusApproved
		}
		require.NoError(t, repo.Create(ctx, b))
	}

	all, err := repo.ListByEvent(ctx, "ev-1", entity.BudgetFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "b-1", all[0].ID)
	assert.Len(t, all[2].Items, 2)

	dept, err := repo.ListByDepartment(ctx, "ev-1", "dep-logistics", entity.BudgetFilter{})
	require.NoError(t, err)
	assert.Len(t, dept, 2)

	approved, err := repo.ListByEvent(ctx, "ev-1", entity.BudgetFilter{Status: entity.BudgetStatusApproved})
	require.NoError(t, err)
	require.Len(t, approved, 1)
	assert.Equal(t, "b-3", approved[0].ID)

	page, err := repo.ListByEvent(ctx, "ev-1", entity.BudgetFilter{Limit: 1, Offset: 1})
	require.NoError(t, err)
	require.Len(t, page, 1)
	assert.Equal(t, "b-2", page[0].ID)

	none, err := repo.ListByEvent(ctx, "ev-404", entity.BudgetFilter{})
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)

	require.NoError(t, repo.Delete(ctx, "b-1"))
	gone, err := repo.GetByID(ctx, "b-1")
	require.NoError(t, err)
	assert.Nil(t, gone)

	err = repo.Delete(ctx, "b-1")
	assert.True(t, errors.Is(err, apperr.ErrNotFound))
}

func TestHistoryRepository(t *testing.T) {
	db := setupDB(t)
	repo := NewHistoryRepository(db, zap.NewNop())
	ctx := context.Background()

	for _, action := range []string{entity.ActionCreate, entity.ActionSubmit} {
		h := &entity.BudgetHistory{
			BudgetID:  "b-1",
			ActorID:   "u-hod",
			ActorRole: entity.RoleHoD,
			Action:    action,
			NewStatus: "draft",
			CreatedAt: time.Now().UTC(),
		}
		require.NoError(t, repo.Create(ctx, h))
		assert.NotZero(t, h.ID)
	}

	records, err := repo.GetByBudgetID(ctx, "b-1")
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, entity.ActionCreate, records[0].Action)
	assert.Equal(t, entity.RoleHoD, records[1].ActorRole)

	empty, err := repo.GetByBudgetID(ctx, "b-404")
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestDirectoryRepository(t *testing.T) {
	db := setupDB(t)
	repo := NewDirectoryRepository(db, zap.NewNop())
	ctx := context.Background()

	require.NoError(t, repo.AssignRole(ctx, "ev-1", "u-hooc", entity.RoleHoOC, "ignored"))
	require.NoError(t, repo.AssignRole(ctx, "ev-1", "u-hod", entity.RoleHoD, "dep-logistics"))
	require.NoError(t, repo.AssignRole(ctx, "ev-1", "m-1", entity.RoleMember, "dep-logistics"))
	assert.Error(t, repo.AssignRole(ctx, "ev-1", "m-2", entity.RoleMember, ""))
	assert.Error(t, repo.AssignRole(ctx, "ev-1", "m-2", entity.RoleNone, "dep-logistics"))

	hooc, err := repo.ResolveCaller(ctx, "ev-1", "u-hooc")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleHoOC, hooc.Role)
	assert.Empty(t, hooc.DepartmentID)

	member, err := repo.ResolveCaller(ctx, "ev-1", "m-1")
	require.NoError(t, err)
	assert.Equal(t, entity.Caller{UserID: "m-1", EventID: "ev-1", Role: entity.RoleMember, DepartmentID: "dep-logistics"}, member)

	stranger, err := repo.ResolveCaller(ctx, "ev-2", "m-1")
	require.NoError(t, err)
	assert.Equal(t, entity.RoleNone, stranger.Role)

	ok, err := repo.IsDepartmentMember(ctx, "ev-1", "dep-logistics", "m-1")
	require.NoError(t, err)
	assert.True(t, ok)
	ok, err = repo.IsDepartmentMember(ctx, "ev-1", "dep-media", "m-1")
	require.NoError(t, err)
	assert.False(t, ok)

	// Reassigning moves the member
	require.NoError(t, repo.AssignRole(ctx, "ev-1", "m-1", entity.RoleMember, "dep-media"))
	ok, err = repo.IsDepartmentMember(ctx, "ev-1", "dep-media", "m-1")
	require.NoError(t, err)
	assert.True(t, ok)
}
