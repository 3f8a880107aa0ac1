package repository

import (
	"context"
	"database/sql"
	"fmt"

	"go.uber.org/zap"

	"github.com/garyjia/event-budget/internal/application/port"
	"github.com/garyjia/event-budget/internal/domain/entity"
	"github.com/garyjia/event-budget/internal/infrastructure/persistence/sqlite"
)

// DirectoryRepository implements port.Directory over the event_roles table
type DirectoryRepository struct {
	db     *sqlite.DB
	logger *zap.Logger
}

// NewDirectoryRepository creates a new directory repository
func NewDirectoryRepository(db *sqlite.DB, logger *zap.Logger) *DirectoryRepository {
	return &DirectoryRepository{
		db:     db,
		logger: logger,
	}
}

var _ port.Directory = (*DirectoryRepository)(nil)

// ResolveCaller looks up the user's role in the event. Unknown users
// resolve to RoleNone.
func (r *DirectoryRepository) ResolveCaller(ctx context.Context, eventID, userID string) (entity.Caller, error) {
	caller := entity.Caller{UserID: userID, EventID: eventID, Role: entity.RoleNone}
	if userID == "" {
		return caller, nil
	}

	query := `SELECT role, department_id FROM event_roles WHERE event_id = ? AND user_id = ?`
	var role string
	err := sqlite.ExecutorFrom(ctx, r.db.DB).QueryRowContext(ctx, query, eventID, userID).Scan(&role, &caller.DepartmentID)
	if err == sql.ErrNoRows {
		return caller, nil
	}
	if err != nil {
		r.logger.Error("Failed to resolve caller",
			zap.String("event_id", eventID),
			zap.String("user_id", userID),
			zap.Error(err))
		return caller, sqlite.MapError("resolve caller", err)
	}

	caller.Role = entity.Role(role)
	if caller.Role == entity.RoleHoOC {
		caller.DepartmentID = ""
	}
	return caller, nil
}

// IsDepartmentMember reports whether the user is HoD or member of the department
func (r *DirectoryRepository) IsDepartmentMember(ctx context.Context, eventID, departmentID, userID string) (bool, error) {
	query := `
		SELECT COUNT(1) FROM event_roles
		WHERE event_id = ? AND department_id = ? AND user_id = ? AND role IN ('hod', 'member')
	`
	var count int
	if err := sqlite.ExecutorFrom(ctx, r.db.DB).QueryRowContext(ctx, query, eventID, departmentID, userID).Scan(&count); err != nil {
		return false, sqlite.MapError("check department membership", err)
	}
	return count > 0, nil
}

// AssignRole inserts or replaces the user's role in the event
func (r *DirectoryRepository) AssignRole(ctx context.Context, eventID, userID string, role entity.Role, departmentID string) error {
	switch role {
	case entity.RoleHoOC:
		departmentID = ""
	case entity.RoleHoD, entity.RoleMember:
		if departmentID == "" {
			return fmt.Errorf("role %s requires a department", role)
		}
	default:
		return fmt.Errorf("cannot assign role %q", role)
	}

	query := `
		INSERT INTO event_roles (event_id, user_id, role, department_id)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(event_id, user_id) DO UPDATE SET role = excluded.role, department_id = excluded.department_id
	`
	if _, err := sqlite.ExecutorFrom(ctx, r.db.DB).ExecContext(ctx, query, eventID, userID, role, departmentID); err != nil {
		r.logger.Error("Failed to assign role", zap.String("user_id", userID), zap.Error(err))
		return sqlite.MapError("assign role", err)
	}

	r.logger.Info("Role assigned",
		zap.String("event_id", eventID),
		zap.String("user_id", userID),
		zap.String("role", string(role)),
		zap.String("department_id", departmentID))
	return nil
}
