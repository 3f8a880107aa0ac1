package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/garyjia/event-budget/internal/application/port"
	"github.com/garyjia/event-budget/internal/domain/apperr"
	"github.com/garyjia/event-budget/internal/domain/entity"
	"github.com/garyjia/event-budget/internal/infrastructure/persistence/sqlite"
)

const budgetColumns = `id, event_id, department_id, name, status, is_public, categories,
	created_by, created_at, updated_at, version`

const itemColumns = `id, name, category, unit, unit_cost, qty, total, note, evidence,
	status, feedback, assigned_to, actual_amount, member_note, submitted_status, is_paid`

// BudgetRepository implements port.BudgetRepository
type BudgetRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewBudgetRepository creates a new budget repository
func NewBudgetRepository(db *sqlite.DB, logger *zap.Logger) *BudgetRepository {
	return &BudgetRepository{
		db:     db,
		logger: logger,
	}
}

var _ port.BudgetRepository = (*BudgetRepository)(nil)

// Create inserts the budget and its items at version 1
func (r *BudgetRepository) Create(ctx context.Context, budget *entity.Budget) error {
	categories, err := json.Marshal(nonNilStrings(budget.Categories))
	if err != nil {
		return fmt.Errorf("failed to encode categories: %w", err)
	}

	return r.db.WithTransaction(ctx, func(ctx context.Context) error {
		query := `
			INSERT INTO budgets (
				id, event_id, department_id, name, status, is_public, categories,
				created_by, created_at, updated_at, version
			) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 1)
		`
		_, err := r.exec(ctx).ExecContext(ctx, query,
			budget.ID,
			budget.EventID,
			budget.DepartmentID,
			budget.Name,
			budget.Status,
			budget.IsPublic,
			string(categories),
			budget.CreatedBy,
			budget.CreatedAt,
			budget.UpdatedAt,
		)
		if err != nil {
			r.logger.Error("Failed to create budget", zap.String("budget_id", budget.ID), zap.Error(err))
			return sqlite.MapError("create budget", err)
		}

		if err := r.insertItems(ctx, budget); err != nil {
			return err
		}

		budget.Version = 1
		return nil
	})
}

// GetByID loads a budget with its items, or nil if it does not exist
func (r *BudgetRepository) GetByID(ctx context.Context, id string) (*entity.Budget, error) {
	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE id = ?`

	budget, err := scanBudget(r.exec(ctx).QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		r.logger.Error("Failed to get budget by ID", zap.String("budget_id", id), zap.Error(err))
		return nil, sqlite.MapError("get budget", err)
	}

	if err := r.loadItems(ctx, budget); err != nil {
		return nil, err
	}
	return budget, nil
}

// Save rewrites the budget row and replaces its items when the stored
// version still equals expectedVersion
func (r *BudgetRepository) Save(ctx context.Context, budget *entity.Budget, expectedVersion int64) error {
	categories, err := json.Marshal(nonNilStrings(budget.Categories))
	if err != nil {
		return fmt.Errorf("failed to encode categories: %w", err)
	}

	return r.db.WithTransaction(ctx, func(ctx context.Context) error {
		query := `
			UPDATE budgets
			SET name = ?, status = ?, is_public = ?, categories = ?, updated_at = ?,
				version = version + 1
			WHERE id = ? AND version = ?
		`
		result, err := r.exec(ctx).ExecContext(ctx, query,
			budget.Name,
			budget.Status,
			budget.IsPublic,
			string(categories),
			budget.UpdatedAt,
			budget.ID,
			expectedVersion,
		)
		if err != nil {
			r.logger.Error("Failed to update budget", zap.String("budget_id", budget.ID), zap.Error(err))
			return sqlite.MapError("update budget", err)
		}

		affected, err := result.RowsAffected()
		if err != nil {
			return fmt.Errorf("failed to read affected rows: %w", err)
		}
		if affected == 0 {
			return r.missingOrStale(ctx, budget.ID, expectedVersion)
		}

		if _, err := r.exec(ctx).ExecContext(ctx, `DELETE FROM budget_items WHERE budget_id = ?`, budget.ID); err != nil {
			r.logger.Error("Failed to clear budget items", zap.String("budget_id", budget.ID), zap.Error(err))
			return sqlite.MapError("clear budget items", err)
		}
		if err := r.insertItems(ctx, budget); err != nil {
			return err
		}

		budget.Version = expectedVersion + 1
		return nil
	})
}

// Delete removes the budget; items cascade
func (r *BudgetRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithTransaction(ctx, func(ctx context.Context) error {
		if _, err := r.exec(ctx).ExecContext(ctx, `DELETE FROM budget_items WHERE budget_id = ?`, id); err != nil {
			return sqlite.MapError("delete budget items", err)
		}
		result, err := r.exec(ctx).ExecContext(ctx, `DELETE FROM budgets WHERE id = ?`, id)
		if err != nil {
			r.logger.Error("Failed to delete budget", zap.String("budget_id", id), zap.Error(err))
			return sqlite.MapError("delete budget", err)
		}
		if affected, _ := result.RowsAffected(); affected == 0 {
			return apperr.NotFound("delete budget", "budget %s not found", id)
		}
		return nil
	})
}

// ListByDepartment returns the department's budgets in creation order
func (r *BudgetRepository) ListByDepartment(ctx context.Context, eventID, departmentID string, filter entity.BudgetFilter) ([]*entity.Budget, error) {
	where := []string{"event_id = ?", "department_id = ?"}
	args := []interface{}{eventID, departmentID}
	return r.list(ctx, where, args, filter)
}

// ListByEvent returns every budget of the event in creation order
func (r *BudgetRepository) ListByEvent(ctx context.Context, eventID string, filter entity.BudgetFilter) ([]*entity.Budget, error) {
	return r.list(ctx, []string{"event_id = ?"}, []interface{}{eventID}, filter)
}

func (r *BudgetRepository) list(ctx context.Context, where []string, args []interface{}, filter entity.BudgetFilter) ([]*entity.Budget, error) {
	if filter.Status != "" {
		where = append(where, "status = ?")
		args = append(args, filter.Status)
	}

	limit := filter.Limit
	if limit <= 0 {
		limit = -1
	}
	args = append(args, limit, filter.Offset)

	query := `SELECT ` + budgetColumns + ` FROM budgets WHERE ` + strings.Join(where, " AND ") +
		` ORDER BY created_at ASC, id ASC LIMIT ? OFFSET ?`

	rows, err := r.exec(ctx).QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("Failed to list budgets", zap.Error(err))
		return nil, sqlite.MapError("list budgets", err)
	}

	budgets := []*entity.Budget{}
	for rows.Next() {
		budget, err := scanBudget(rows)
		if err != nil {
			rows.Close()
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		budgets = append(budgets, budget)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("failed to iterate budgets: %w", err)
	}
	rows.Close()

	for _, budget := range budgets {
		if err := r.loadItems(ctx, budget); err != nil {
			return nil, err
		}
	}
	return budgets, nil
}

func (r *BudgetRepository) missingOrStale(ctx context.Context, id string, expectedVersion int64) error {
	var current int64
	err := r.exec(ctx).QueryRowContext(ctx, `SELECT version FROM budgets WHERE id = ?`, id).Scan(&current)
	if err == sql.ErrNoRows {
		return apperr.NotFound("save budget", "budget %s not found", id)
	}
	if err != nil {
		return sqlite.MapError("read budget version", err)
	}
	r.logger.Warn("Stale budget version",
		zap.String("budget_id", id),
		zap.Int64("expected", expectedVersion),
		zap.Int64("current", current))
	return apperr.ConflictRetry("save budget", "budget %s changed (version %d, expected %d)", id, current, expectedVersion)
}

func (r *BudgetRepository) insertItems(ctx context.Context, budget *entity.Budget) error {
	query := `
		INSERT INTO budget_items (
			budget_id, position, ` + itemColumns + `
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	for position, item := range budget.Items {
		evidence := item.Evidence
		if evidence == nil {
			evidence = []entity.Evidence{}
		}
		encoded, err := json.Marshal(evidence)
		if err != nil {
			return fmt.Errorf("failed to encode evidence: %w", err)
		}

		_, err = r.exec(ctx).ExecContext(ctx, query,
			budget.ID,
			position,
			item.ID,
			item.Name,
			item.Category,
			item.Unit,
			item.UnitCost,
			item.Qty,
			item.Total,
			item.Note,
			string(encoded),
			item.Status,
			item.Feedback,
			item.AssignedTo,
			item.ActualAmount,
			item.MemberNote,
			item.SubmittedStatus,
			item.IsPaid,
		)
		if err != nil {
			r.logger.Error("Failed to insert budget item",
				zap.String("budget_id", budget.ID),
				zap.String("item_id", item.ID),
				zap.Error(err))
			return sqlite.MapError("insert budget item", err)
		}
	}
	return nil
}

func (r *BudgetRepository) loadItems(ctx context.Context, budget *entity.Budget) error {
	query := `SELECT ` + itemColumns + ` FROM budget_items WHERE budget_id = ? ORDER BY position ASC`

	rows, err := r.exec(ctx).QueryContext(ctx, query, budget.ID)
	if err != nil {
		r.logger.Error("Failed to load budget items", zap.String("budget_id", budget.ID), zap.Error(err))
		return sqlite.MapError("load budget items", err)
	}
	defer rows.Close()

	budget.Items = []*entity.LineItem{}
	for rows.Next() {
		var item entity.LineItem
		var evidence string
		err := rows.Scan(
			&item.ID,
			&item.Name,
			&item.Category,
			&item.Unit,
			&item.UnitCost,
			&item.Qty,
			&item.Total,
			&item.Note,
			&evidence,
			&item.Status,
			&item.Feedback,
			&item.AssignedTo,
			&item.ActualAmount,
			&item.MemberNote,
			&item.SubmittedStatus,
			&item.IsPaid,
		)
		if err != nil {
			return fmt.Errorf("failed to scan budget item: %w", err)
		}
		if err := json.Unmarshal([]byte(evidence), &item.Evidence); err != nil {
			return fmt.Errorf("failed to decode evidence of item %s: %w", item.ID, err)
		}
		if item.Evidence == nil {
			item.Evidence = []entity.Evidence{}
		}
		budget.Items = append(budget.Items, &item)
	}
	return rows.Err()
}

func (r *BudgetRepository) exec(ctx context.Context) sqlite.Executor {
	return sqlite.ExecutorFrom(ctx, r.db.DB)
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBudget(row rowScanner) (*entity.Budget, error) {
	var budget entity.Budget
	var categories string
	var createdAt, updatedAt time.Time

	err := row.Scan(
		&budget.ID,
		&budget.EventID,
		&budget.DepartmentID,
		&budget.Name,
		&budget.Status,
		&budget.IsPublic,
		&categories,
		&budget.CreatedBy,
		&createdAt,
		&updatedAt,
		&budget.Version,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(categories), &budget.Categories); err != nil {
		return nil, fmt.Errorf("failed to decode categories: %w", err)
	}
	if budget.Categories == nil {
		budget.Categories = []string{}
	}
	budget.CreatedAt = createdAt.UTC()
	budget.UpdatedAt = updatedAt.UTC()
	return &budget, nil
}

func nonNilStrings(list []string) []string {
	if list == nil {
		return []string{}
	}
	return list
}
