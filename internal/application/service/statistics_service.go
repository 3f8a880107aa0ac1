package service

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/garyjia/event-budget/internal/application/dispatcher"
	"github.com/garyjia/event-budget/internal/application/port"
	"github.com/garyjia/event-budget/internal/domain/apperr"
	"github.com/garyjia/event-budget/internal/domain/entity"
	"github.com/garyjia/event-budget/internal/domain/event"
)

// StatisticsQuery selects the budgets statistics are computed over. An empty
// scope means the caller's natural scope: the event for the committee head,
// the own department for a department head.
type StatisticsQuery struct {
	EventID      string
	Scope        entity.StatisticsScope
	DepartmentID string
}

// StatisticsService aggregates estimated and reported spend of committed budgets
type StatisticsService interface {
	GetStatistics(ctx context.Context, caller entity.Caller, query StatisticsQuery) (*entity.Statistics, error)

	// Invalidate drops cached results of one event
	Invalidate(eventID string)
}

type statisticsServiceImpl struct {
	budgets port.BudgetRepository
	logger  *zap.Logger

	cacheEnabled bool
	mu           sync.RWMutex
	cache        map[string]map[StatisticsQuery]entity.Statistics
	// generations counts invalidations per event; a result computed across
	// an invalidation is returned but never cached
	generations map[string]uint64
}

// StatisticsOption configures the statistics service
type StatisticsOption func(*statisticsServiceImpl)

// WithCache keeps computed statistics until d reports a committed change
// to the same event
func WithCache(d dispatcher.Dispatcher) StatisticsOption {
	return func(s *statisticsServiceImpl) {
		s.cacheEnabled = true
		d.SubscribeAll("statistics-cache", s.onEvent)
	}
}

// NewStatisticsService creates a new StatisticsService
func NewStatisticsService(budgets port.BudgetRepository, logger *zap.Logger, opts ...StatisticsOption) StatisticsService {
	s := &statisticsServiceImpl{
		budgets:     budgets,
		logger:      logger,
		cache:       make(map[string]map[StatisticsQuery]entity.Statistics),
		generations: make(map[string]uint64),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *statisticsServiceImpl) GetStatistics(ctx context.Context, caller entity.Caller, query StatisticsQuery) (*entity.Statistics, error) {
	query, err := resolveScope(caller, query)
	if err != nil {
		return nil, err
	}

	stats, generation, ok := s.cached(query)
	if ok {
		return &stats, nil
	}

	var budgets []*entity.Budget
	if query.Scope == entity.ScopeEvent {
		budgets, err = s.budgets.ListByEvent(ctx, query.EventID, entity.BudgetFilter{})
	} else {
		budgets, err = s.budgets.ListByDepartment(ctx, query.EventID, query.DepartmentID, entity.BudgetFilter{})
	}
	if err != nil {
		return nil, err
	}

	stats = entity.Statistics{
		Scope:        query.Scope,
		EventID:      query.EventID,
		DepartmentID: query.DepartmentID,
	}
	for _, b := range budgets {
		if b.Status.IsCommitted() {
			stats.Add(b)
		}
	}

	s.store(query, generation, stats)
	return &stats, nil
}

// resolveScope fills the default scope and enforces who may see it
func resolveScope(caller entity.Caller, q StatisticsQuery) (StatisticsQuery, error) {
	const op = "get statistics"

	if !caller.InEvent(q.EventID) {
		return q, apperr.Forbidden(op, "caller has no role in event %s", q.EventID)
	}

	if q.Scope == "" {
		if caller.IsHoOC() && q.DepartmentID == "" {
			q.Scope = entity.ScopeEvent
		} else {
			q.Scope = entity.ScopeDepartment
		}
	}

	switch q.Scope {
	case entity.ScopeEvent:
		if !caller.IsHoOC() {
			return q, apperr.Forbidden(op, "only the head of the organizing committee can see event statistics")
		}
		q.DepartmentID = ""
	case entity.ScopeDepartment:
		if q.DepartmentID == "" {
			q.DepartmentID = caller.DepartmentID
		}
		if !caller.IsHoOC() && !caller.IsHoDOf(q.DepartmentID) {
			return q, apperr.Forbidden(op, "department statistics are limited to its head")
		}
		if q.DepartmentID == "" {
			return q, apperr.Validation(op, []apperr.Violation{{Field: "department_id", Message: "department is required"}})
		}
	default:
		return q, apperr.Validation(op, []apperr.Violation{{Field: "scope", Message: "scope must be department or event"}})
	}
	return q, nil
}

// cached returns the cached result of q, or the event's current generation
// to hand to store once the result is computed
func (s *statisticsServiceImpl) cached(q StatisticsQuery) (entity.Statistics, uint64, bool) {
	if !s.cacheEnabled {
		return entity.Statistics{}, 0, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats, ok := s.cache[q.EventID][q]
	return stats, s.generations[q.EventID], ok
}

func (s *statisticsServiceImpl) store(q StatisticsQuery, generation uint64, stats entity.Statistics) {
	if !s.cacheEnabled {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.generations[q.EventID] != generation {
		return
	}
	if s.cache[q.EventID] == nil {
		s.cache[q.EventID] = make(map[StatisticsQuery]entity.Statistics)
	}
	s.cache[q.EventID][q] = stats
}

func (s *statisticsServiceImpl) Invalidate(eventID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.generations[eventID]++
	delete(s.cache, eventID)
}

func (s *statisticsServiceImpl) onEvent(ctx context.Context, evt *event.Event) error {
	if !evt.Type.AffectsTotals() {
		return nil
	}
	s.Invalidate(evt.EventID)
	s.logger.Debug("Statistics cache invalidated",
		zap.String("event_id", evt.EventID),
		zap.String("event_type", evt.Type.String()))
	return nil
}
