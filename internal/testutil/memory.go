// Package testutil provides in-memory implementations of the application
// ports for unit tests.
package testutil

import (
	"context"
	"sort"
	"sync"

	"github.com/garyjia/event-budget/internal/application/port"
	"github.com/garyjia/event-budget/internal/domain/apperr"
	"github.com/garyjia/event-budget/internal/domain/entity"
)

type txKey struct{}

// MemoryStore keeps budgets and history in maps. WithTransaction
// serializes transactions and restores the previous state when fn fails.
type MemoryStore struct {
	txMu sync.Mutex
	mu   sync.Mutex

	budgets map[string]*entity.Budget
	order   []string
	history []*entity.BudgetHistory
	nextID  int64

	// FailSave, when set, is returned by the next Save call
	FailSave error
}

// NewMemoryStore creates an empty store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{budgets: make(map[string]*entity.Budget)}
}

var (
	_ port.BudgetRepository   = (*MemoryBudgets)(nil)
	_ port.HistoryRepository  = (*MemoryHistory)(nil)
	_ port.TransactionManager = (*MemoryStore)(nil)
)

// Budgets returns the budget repository view of the store
func (s *MemoryStore) Budgets() *MemoryBudgets { return &MemoryBudgets{s} }

// History returns the history repository view of the store
func (s *MemoryStore) History() *MemoryHistory { return &MemoryHistory{s} }

// WithTransaction implements port.TransactionManager
func (s *MemoryStore) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if ctx.Value(txKey{}) != nil {
		return fn(ctx)
	}

	s.txMu.Lock()
	defer s.txMu.Unlock()

	snapshot := s.snapshot()
	if err := fn(context.WithValue(ctx, txKey{}, true)); err != nil {
		s.restore(snapshot)
		return err
	}
	return nil
}

type memorySnapshot struct {
	budgets map[string]*entity.Budget
	order   []string
	history []*entity.BudgetHistory
}

func (s *MemoryStore) snapshot() memorySnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap := memorySnapshot{
		budgets: make(map[string]*entity.Budget, len(s.budgets)),
		order:   append([]string{}, s.order...),
		history: append([]*entity.BudgetHistory{}, s.history...),
	}
	for id, b := range s.budgets {
		snap.budgets[id] = b.Clone()
	}
	return snap
}

func (s *MemoryStore) restore(snap memorySnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.budgets = snap.budgets
	s.order = snap.order
	s.history = snap.history
}

// Put stores a budget directly, bypassing version checks
func (s *MemoryStore) Put(b *entity.Budget) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.budgets[b.ID]; !exists {
		s.order = append(s.order, b.ID)
	}
	if b.Version == 0 {
		b.Version = 1
	}
	s.budgets[b.ID] = b.Clone()
}

// MemoryBudgets implements port.BudgetRepository
type MemoryBudgets struct{ s *MemoryStore }

func (r *MemoryBudgets) Create(ctx context.Context, budget *entity.Budget) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	budget.Version = 1
	r.s.budgets[budget.ID] = budget.Clone()
	r.s.order = append(r.s.order, budget.ID)
	return nil
}

func (r *MemoryBudgets) GetByID(ctx context.Context, id string) (*entity.Budget, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	b, ok := r.s.budgets[id]
	if !ok {
		return nil, nil
	}
	return b.Clone(), nil
}

func (r *MemoryBudgets) Save(ctx context.Context, budget *entity.Budget, expectedVersion int64) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if err := r.s.FailSave; err != nil {
		r.s.FailSave = nil
		return err
	}
	stored, ok := r.s.budgets[budget.ID]
	if !ok {
		return apperr.NotFound("save budget", "budget %s not found", budget.ID)
	}
	if stored.Version != expectedVersion {
		return apperr.ConflictRetry("save budget", "budget %s changed", budget.ID)
	}
	budget.Version = expectedVersion + 1
	r.s.budgets[budget.ID] = budget.Clone()
	return nil
}

func (r *MemoryBudgets) Delete(ctx context.Context, id string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.budgets[id]; !ok {
		return apperr.NotFound("delete budget", "budget %s not found", id)
	}
	delete(r.s.budgets, id)
	for i, existing := range r.s.order {
		if existing == id {
			r.s.order = append(r.s.order[:i:i], r.s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (r *MemoryBudgets) ListByDepartment(ctx context.Context, eventID, departmentID string, filter entity.BudgetFilter) ([]*entity.Budget, error) {
	return r.list(func(b *entity.Budget) bool {
		return b.EventID == eventID && b.DepartmentID == departmentID
	}, filter), nil
}

func (r *MemoryBudgets) ListByEvent(ctx context.Context, eventID string, filter entity.BudgetFilter) ([]*entity.Budget, error) {
	return r.list(func(b *entity.Budget) bool { return b.EventID == eventID }, filter), nil
}

func (r *MemoryBudgets) list(match func(*entity.Budget) bool, filter entity.BudgetFilter) []*entity.Budget {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	out := []*entity.Budget{}
	for _, id := range r.s.order {
		b := r.s.budgets[id]
		if !match(b) || (filter.Status != "" && b.Status != filter.Status) {
			continue
		}
		out = append(out, b.Clone())
	}
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return []*entity.Budget{}
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out
}

// MemoryHistory implements port.HistoryRepository
type MemoryHistory struct{ s *MemoryStore }

func (r *MemoryHistory) Create(ctx context.Context, history *entity.BudgetHistory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.nextID++
	history.ID = r.s.nextID
	c := *history
	r.s.history = append(r.s.history, &c)
	return nil
}

func (r *MemoryHistory) GetByBudgetID(ctx context.Context, budgetID string) ([]*entity.BudgetHistory, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	out := []*entity.BudgetHistory{}
	for _, h := range r.s.history {
		if h.BudgetID == budgetID {
			c := *h
			out = append(out, &c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// Actions returns the recorded history actions of a budget in order
func (s *MemoryStore) Actions(budgetID string) []string {
	records, _ := s.History().GetByBudgetID(context.Background(), budgetID)
	actions := make([]string, len(records))
	for i, r := range records {
		actions[i] = r.Action
	}
	return actions
}
