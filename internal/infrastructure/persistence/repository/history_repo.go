package repository

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/event-budget/internal/application/port"
	"github.com/garyjia/event-budget/internal/domain/entity"
	"github.com/garyjia/event-budget/internal/infrastructure/persistence/sqlite"
)

// HistoryRepository implements port.HistoryRepository
type HistoryRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewHistoryRepository creates a new history repository
func NewHistoryRepository(db *sqlite.DB, logger *zap.Logger) *HistoryRepository {
	return &HistoryRepository{
		db:     db,
		logger: logger,
	}
}

var _ port.HistoryRepository = (*HistoryRepository)(nil)

// Create appends a history record
func (r *HistoryRepository) Create(ctx context.Context, history *entity.BudgetHistory) error {
	query := `
		INSERT INTO budget_history (
			budget_id, item_id, actor_id, actor_role, action,
			previous_status, new_status, detail, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	result, err := sqlite.ExecutorFrom(ctx, r.db.DB).ExecContext(ctx, query,
		history.BudgetID,
		history.ItemID,
		history.ActorID,
		history.ActorRole,
		history.Action,
		history.PreviousStatus,
		history.NewStatus,
		history.Detail,
		history.CreatedAt,
	)
	if err != nil {
		r.logger.Error("Failed to create history record", zap.String("budget_id", history.BudgetID), zap.Error(err))
		return sqlite.MapError("create history", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get last insert id: %w", err)
	}

	history.ID = id
	return nil
}

// GetByBudgetID returns the budget's history, oldest first
func (r *HistoryRepository) GetByBudgetID(ctx context.Context, budgetID string) ([]*entity.BudgetHistory, error) {
	query := `
		SELECT id, budget_id, item_id, actor_id, actor_role, action,
			previous_status, new_status, detail, created_at
		FROM budget_history
		WHERE budget_id = ?
		ORDER BY id ASC
	`

	rows, err := sqlite.ExecutorFrom(ctx, r.db.DB).QueryContext(ctx, query, budgetID)
	if err != nil {
		r.logger.Error("Failed to get history by budget ID", zap.String("budget_id", budgetID), zap.Error(err))
		return nil, sqlite.MapError("get history", err)
	}
	defer rows.Close()

	records := []*entity.BudgetHistory{}
	for rows.Next() {
		var record entity.BudgetHistory
		err := rows.Scan(
			&record.ID,
			&record.BudgetID,
			&record.ItemID,
			&record.ActorID,
			&record.ActorRole,
			&record.Action,
			&record.PreviousStatus,
			&record.NewStatus,
			&record.Detail,
			&record.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan history: %w", err)
		}
		records = append(records, &record)
	}

	return records, rows.Err()
}
