package aggregate

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/event-budget/internal/application/dispatcher"
	"github.com/garyjia/event-budget/internal/application/port"
	"github.com/garyjia/event-budget/internal/domain/apperr"
	"github.com/garyjia/event-budget/internal/domain/entity"
	"github.com/garyjia/event-budget/internal/domain/event"
)

// Effect describes what a mutation did to the budget
type Effect struct {
	// Event is published after commit; empty means no event
	Event   event.Type
	Payload map[string]interface{}
	ItemID  string
	Detail  string

	// NoOp leaves the stored budget untouched and skips history and events
	NoOp bool
	// Remove deletes the budget instead of saving it
	Remove bool
}

// MutateFunc changes next in place. next is a private copy of the stored
// budget; returning an error discards it.
type MutateFunc func(next *entity.Budget) (Effect, error)

// Command is one read-modify-write against a single budget
type Command struct {
	Op       string
	Action   string
	BudgetID string
	Caller   entity.Caller
	Mutate   MutateFunc

	expectedVersion int64
}

// Option adjusts a command
type Option func(*Command)

// IfVersion makes the command fail with ConflictRetry unless the stored
// budget is at version v. Zero means any version.
func IfVersion(v int64) Option {
	return func(c *Command) {
		c.expectedVersion = v
	}
}

// Store runs budget commands as single transactions: load, mutate a copy,
// recompute totals, save with a version check, append history, then
// publish the resulting event once committed.
type Store struct {
	budgets    port.BudgetRepository
	history    port.HistoryRepository
	txManager  port.TransactionManager
	dispatcher dispatcher.Dispatcher
	logger     *zap.Logger
	now        func() time.Time
}

// StoreOption configures the store
type StoreOption func(*Store)

// WithDispatcher sets the dispatcher that receives committed events
func WithDispatcher(d dispatcher.Dispatcher) StoreOption {
	return func(s *Store) {
		s.dispatcher = d
	}
}

// WithClock overrides the time source
func WithClock(now func() time.Time) StoreOption {
	return func(s *Store) {
		s.now = now
	}
}

// NewStore creates a new aggregate store
func NewStore(
	budgets port.BudgetRepository,
	history port.HistoryRepository,
	txManager port.TransactionManager,
	logger *zap.Logger,
	opts ...StoreOption,
) *Store {
	s := &Store{
		budgets:   budgets,
		history:   history,
		txManager: txManager,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Now returns the store's current time
func (s *Store) Now() time.Time {
	return s.now()
}

// Load returns the stored budget or NotFound
func (s *Store) Load(ctx context.Context, op, budgetID string) (*entity.Budget, error) {
	budget, err := s.budgets.GetByID(ctx, budgetID)
	if err != nil {
		return nil, err
	}
	if budget == nil {
		return nil, apperr.NotFound(op, "budget %s not found", budgetID)
	}
	return budget, nil
}

// Create persists a new budget with its creation history entry
func (s *Store) Create(ctx context.Context, caller entity.Caller, budget *entity.Budget, detail string) (*entity.Budget, error) {
	budget.RecalculateTotals()

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		if err := s.budgets.Create(ctx, budget); err != nil {
			return err
		}
		return s.appendHistory(ctx, caller, budget.ID, "", entity.ActionCreate, "", string(budget.Status), detail)
	})
	if err != nil {
		s.logFailure("create budget", budget.ID, caller, err)
		return nil, err
	}

	s.logger.Info("Budget created",
		zap.String("budget_id", budget.ID),
		zap.String("event_id", budget.EventID),
		zap.String("department_id", budget.DepartmentID),
		zap.String("actor_id", caller.UserID),
		zap.Int("items", len(budget.Items)))

	s.publish(ctx, event.NewEvent(event.TypeBudgetCreated, budget.EventID, budget.ID, caller.UserID, map[string]interface{}{
		"department_id": budget.DepartmentID,
		"status":        string(budget.Status),
	}))

	return budget, nil
}

// Execute runs cmd and returns the resulting budget snapshot. The order of
// checks is: budget exists, caller belongs to its event, expected version,
// then whatever cmd.Mutate enforces.
func (s *Store) Execute(ctx context.Context, cmd Command, opts ...Option) (*entity.Budget, error) {
	for _, opt := range opts {
		opt(&cmd)
	}

	var (
		result   *entity.Budget
		effect   Effect
		previous entity.BudgetStatus
	)

	err := s.txManager.WithTransaction(ctx, func(ctx context.Context) error {
		current, err := s.Load(ctx, cmd.Op, cmd.BudgetID)
		if err != nil {
			return err
		}
		if !cmd.Caller.InEvent(current.EventID) {
			return apperr.Forbidden(cmd.Op, "caller has no role in event %s", current.EventID)
		}
		if cmd.expectedVersion != 0 && cmd.expectedVersion != current.Version {
			return apperr.ConflictRetry(cmd.Op, "budget %s is at version %d, expected %d",
				current.ID, current.Version, cmd.expectedVersion)
		}

		previous = current.Status
		next := current.Clone()

		effect, err = cmd.Mutate(next)
		if err != nil {
			return err
		}
		if effect.NoOp {
			result = current
			return nil
		}

		next.RecalculateTotals()
		next.UpdatedAt = s.now()

		if effect.Remove {
			if err := s.budgets.Delete(ctx, next.ID); err != nil {
				return err
			}
		} else if err := s.budgets.Save(ctx, next, current.Version); err != nil {
			return err
		}

		newStatus := string(next.Status)
		if effect.Remove {
			newStatus = "deleted"
		}
		if err := s.appendHistory(ctx, cmd.Caller, next.ID, effect.ItemID, cmd.Action,
			string(previous), newStatus, effect.Detail); err != nil {
			return err
		}

		result = next
		return nil
	})
	if err != nil {
		s.logFailure(cmd.Op, cmd.BudgetID, cmd.Caller, err)
		return nil, err
	}

	if effect.NoOp {
		s.logger.Debug("Command was a no-op",
			zap.String("op", cmd.Op),
			zap.String("budget_id", cmd.BudgetID))
		return result, nil
	}

	s.logger.Info("Budget command applied",
		zap.String("op", cmd.Op),
		zap.String("budget_id", result.ID),
		zap.String("action", cmd.Action),
		zap.String("from", string(previous)),
		zap.String("to", string(result.Status)),
		zap.String("actor_id", cmd.Caller.UserID),
		zap.Int64("version", result.Version))

	if effect.Event != "" {
		evt := event.NewEvent(effect.Event, result.EventID, result.ID, cmd.Caller.UserID, effect.Payload)
		if effect.ItemID != "" {
			evt = evt.ForItem(effect.ItemID)
		}
		s.publish(ctx, evt)
	}

	return result, nil
}

func (s *Store) appendHistory(ctx context.Context, caller entity.Caller, budgetID, itemID, action, from, to, detail string) error {
	record := &entity.BudgetHistory{
		BudgetID:       budgetID,
		ItemID:         itemID,
		ActorID:        caller.UserID,
		ActorRole:      caller.Role,
		Action:         action,
		PreviousStatus: from,
		NewStatus:      to,
		Detail:         detail,
		CreatedAt:      s.now(),
	}
	if err := s.history.Create(ctx, record); err != nil {
		return fmt.Errorf("failed to record history: %w", err)
	}
	return nil
}

// publish delivers a committed event. Handler failures are logged only;
// the command has already committed.
func (s *Store) publish(ctx context.Context, evt *event.Event) {
	if s.dispatcher == nil {
		return
	}
	if err := s.dispatcher.Dispatch(ctx, evt); err != nil {
		s.logger.Error("Event handlers failed",
			zap.String("event_type", evt.Type.String()),
			zap.String("budget_id", evt.BudgetID),
			zap.Error(err))
	}
}

func (s *Store) logFailure(op, budgetID string, caller entity.Caller, err error) {
	fields := []zap.Field{
		zap.String("op", op),
		zap.String("budget_id", budgetID),
		zap.String("actor_id", caller.UserID),
		zap.String("role", string(caller.Role)),
		zap.Error(err),
	}
	var appErr *apperr.Error
	if errors.As(err, &appErr) {
		s.logger.Warn("Budget command rejected", append(fields, zap.String("kind", string(appErr.Kind)))...)
		return
	}
	s.logger.Error("Budget command failed", fields...)
}
