package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/garyjia/event-budget/internal/application/port"
	"github.com/garyjia/event-budget/internal/domain/apperr"
	"github.com/garyjia/event-budget/internal/domain/entity"
	"github.com/garyjia/event-budget/internal/domain/event"
)

// seedSpend stores one committed logistics budget with reported spend, one
// committed media budget and one logistics draft that must not be counted
func seedSpend(f *fixture) {
	b := f.budget("log-1", entity.BudgetStatusSentToMembers)
	b.Items[0].ActualAmount = 150000 // under 200000
	b.Items[0].IsPaid = true
	b.Items[1].ActualAmount = 3500000 // over 3000000
	f.mem.Put(b)

	media := f.budget("media-1", entity.BudgetStatusLocked)
	media.DepartmentID = "dep-media"
	media.Items = media.Items[:1]
	media.Items[0].ActualAmount = 200000 // on
	f.mem.Put(media)

	f.budget("log-draft", entity.BudgetStatusDraft)
}

func TestGetStatistics_Department(t *testing.T) {
	f := newFixture(t)
	svc := NewStatisticsService(f.mem.Budgets(), zap.NewNop())
	seedSpend(f)

	stats, err := svc.GetStatistics(context.Background(), f.caller("u-hod"), StatisticsQuery{EventID: eventID})
	require.NoError(t, err)

	assert.Equal(t, entity.ScopeDepartment, stats.Scope)
	assert.Equal(t, "dep-logistics", stats.DepartmentID)
	assert.Equal(t, 1, stats.BudgetCount)
	assert.Equal(t, 2, stats.ItemCount)
	assert.Equal(t, int64(3200000), stats.EstimatedTotal)
	assert.Equal(t, int64(3650000), stats.ActualTotal)
	assert.Equal(t, int64(150000), stats.PaidTotal)
	assert.Equal(t, int64(450000), stats.Variance)
	assert.Equal(t, 1, stats.UnderBudget)
	assert.Equal(t, 1, stats.OverBudget)
	assert.Equal(t, 0, stats.OnBudget)

	again, err := svc.GetStatistics(context.Background(), f.caller("u-hod"), StatisticsQuery{EventID: eventID})
	require.NoError(t, err)
	assert.Equal(t, stats, again)
}

func TestGetStatistics_Event(t *testing.T) {
	f := newFixture(t)
	svc := NewStatisticsService(f.mem.Budgets(), zap.NewNop())
	seedSpend(f)

	stats, err := svc.GetStatistics(context.Background(), f.caller("u-hooc"), StatisticsQuery{EventID: eventID})
	require.NoError(t, err)
	assert.Equal(t, entity.ScopeEvent, stats.Scope)
	assert.Equal(t, 2, stats.BudgetCount)
	assert.Equal(t, int64(3400000), stats.EstimatedTotal)
	assert.Equal(t, int64(3850000), stats.ActualTotal)
	assert.Equal(t, 1, stats.OnBudget)

	media, err := svc.GetStatistics(context.Background(), f.caller("u-hooc"), StatisticsQuery{EventID: eventID, DepartmentID: "dep-media"})
	require.NoError(t, err)
	assert.Equal(t, entity.ScopeDepartment, media.Scope)
	assert.Equal(t, 1, media.BudgetCount)
}

func TestGetStatistics_Access(t *testing.T) {
	f := newFixture(t)
	svc := NewStatisticsService(f.mem.Budgets(), zap.NewNop())
	ctx := context.Background()

	tests := []struct {
		name   string
		caller string
		query  StatisticsQuery
		kind   apperr.Kind
	}{
		{"hod asks for event", "u-hod", StatisticsQuery{EventID: eventID, Scope: entity.ScopeEvent}, apperr.KindForbidden},
		{"hod asks for other department", "u-hod", StatisticsQuery{EventID: eventID, DepartmentID: "dep-media"}, apperr.KindForbidden},
		{"member", "m-1", StatisticsQuery{EventID: eventID}, apperr.KindForbidden},
		{"other event", "u-hooc", StatisticsQuery{EventID: "ev-2"}, apperr.KindForbidden},
		{"unknown scope", "u-hooc", StatisticsQuery{EventID: eventID, Scope: "galaxy"}, apperr.KindValidationFailed},
		{"hooc department without id", "u-hooc", StatisticsQuery{EventID: eventID, Scope: entity.ScopeDepartment}, apperr.KindValidationFailed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.GetStatistics(ctx, f.caller(tt.caller), tt.query)
			assert.Equal(t, tt.kind, apperr.KindOf(err))
		})
	}
}

func TestGetStatistics_CacheInvalidatedByCommittedEvents(t *testing.T) {
	f := newFixture(t)
	svc := NewStatisticsService(f.mem.Budgets(), zap.NewNop(), WithCache(f.dispatcher))
	expenses := newExpenseService(f)
	ctx := context.Background()
	seedSpend(f)
	hod := f.caller("u-hod")
	query := StatisticsQuery{EventID: eventID}

	before, err := svc.GetStatistics(ctx, hod, query)
	require.NoError(t, err)

	// A write behind the service's back is not seen while cached
	b := f.stored(t, "log-1")
	b.Items[1].ActualAmount = 0
	f.mem.Put(b)
	cached, err := svc.GetStatistics(ctx, hod, query)
	require.NoError(t, err)
	assert.Equal(t, before.ActualTotal, cached.ActualTotal)

	// Events that do not move totals keep the cache
	require.NoError(t, f.dispatcher.Dispatch(ctx, event.NewEvent(event.TypeItemAssigned, eventID, "log-1", "u-hod", nil)))
	cached, err = svc.GetStatistics(ctx, hod, query)
	require.NoError(t, err)
	assert.Equal(t, before.ActualTotal, cached.ActualTotal)

	_, err = expenses.TogglePaid(ctx, hod, "log-1", "i-2")
	require.NoError(t, err)

	after, err := svc.GetStatistics(ctx, hod, query)
	require.NoError(t, err)
	assert.Equal(t, int64(150000), after.ActualTotal)
	assert.Equal(t, int64(150000), after.PaidTotal)
}

// racingBudgets runs afterList once, right after the first department listing
// returns, to commit a change while statistics are being computed
type racingBudgets struct {
	port.BudgetRepository
	afterList func()
}

func (r *racingBudgets) ListByDepartment(ctx context.Context, eventID, departmentID string, filter entity.BudgetFilter) ([]*entity.Budget, error) {
	budgets, err := r.BudgetRepository.ListByDepartment(ctx, eventID, departmentID, filter)
	if hook := r.afterList; hook != nil {
		r.afterList = nil
		hook()
	}
	return budgets, err
}

func TestGetStatistics_CommitDuringComputationIsNotCached(t *testing.T) {
	f := newFixture(t)
	expenses := newExpenseService(f)
	ctx := context.Background()
	seedSpend(f)
	hod := f.caller("u-hod")
	query := StatisticsQuery{EventID: eventID}

	repo := &racingBudgets{BudgetRepository: f.mem.Budgets()}
	repo.afterList = func() {
		_, err := expenses.TogglePaid(ctx, hod, "log-1", "i-2")
		require.NoError(t, err)
	}
	svc := NewStatisticsService(repo, zap.NewNop(), WithCache(f.dispatcher))

	first, err := svc.GetStatistics(ctx, hod, query)
	require.NoError(t, err)
	assert.Equal(t, int64(150000), first.PaidTotal, "computed from the listing taken before the commit")

	for i := 0; i < 2; i++ {
		fresh, err := svc.GetStatistics(ctx, hod, query)
		require.NoError(t, err)
		assert.Equal(t, int64(3650000), fresh.PaidTotal)
	}
}
