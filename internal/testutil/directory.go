package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/garyjia/event-budget/internal/application/port"
	"github.com/garyjia/event-budget/internal/domain/entity"
)

// Directory is an in-memory port.Directory
type Directory struct {
	mu    sync.RWMutex
	roles map[string]entity.Caller
}

// NewDirectory creates an empty directory
func NewDirectory() *Directory {
	return &Directory{roles: make(map[string]entity.Caller)}
}

var _ port.Directory = (*Directory)(nil)

func directoryKey(eventID, userID string) string { return eventID + "/" + userID }

func (d *Directory) AssignRole(ctx context.Context, eventID, userID string, role entity.Role, departmentID string) error {
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
	d.mu.Lock()
	defer d.mu.Unlock()
	d.roles[directoryKey(eventID, userID)] = entity.Caller{UserID: userID, EventID: eventID, Role: role, DepartmentID: departmentID}
	return nil
}

func (d *Directory) ResolveCaller(ctx context.Context, eventID, userID string) (entity.Caller, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if c, ok := d.roles[directoryKey(eventID, userID)]; ok {
		return c, nil
	}
	return entity.Caller{UserID: userID, EventID: eventID, Role: entity.RoleNone}, nil
}

func (d *Directory) IsDepartmentMember(ctx context.Context, eventID, departmentID, userID string) (bool, error) {
	c, _ := d.ResolveCaller(ctx, eventID, userID)
	return c.BelongsTo(departmentID), nil
}

// Must resolves a caller that the test registered earlier
func (d *Directory) Must(eventID, userID string) entity.Caller {
	c, _ := d.ResolveCaller(context.Background(), eventID, userID)
	return c
}
