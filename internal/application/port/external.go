package port

import (
	"context"

	"github.com/garyjia/event-budget/internal/domain/entity"
)

// RoleResolver resolves a user's role inside one event. Users without a
// role resolve to entity.RoleNone rather than an error.
type RoleResolver interface {
	ResolveCaller(ctx context.Context, eventID, userID string) (entity.Caller, error)
}

// MembershipDirectory answers department membership questions
type MembershipDirectory interface {
	IsDepartmentMember(ctx context.Context, eventID, departmentID, userID string) (bool, error)
}

// Directory manages event roles and department membership
type Directory interface {
	RoleResolver
	MembershipDirectory

	// AssignRole sets a user's role in an event. departmentID is required
	// for HoD and member roles and ignored for HoOC.
	AssignRole(ctx context.Context, eventID, userID string, role entity.Role, departmentID string) error
}
