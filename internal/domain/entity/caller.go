package entity

// Role is the caller's resolved role within one event
type Role string

const (
	RoleHoOC   Role = "hooc"
	RoleHoD    Role = "hod"
	RoleMember Role = "member"
	RoleNone   Role = "none"
)

// IsValid reports whether r is a known role
func (r Role) IsValid() bool {
	switch r {
	case RoleHoOC, RoleHoD, RoleMember, RoleNone:
		return true
	}
	return false
}

// Caller is the identity and resolved event role threaded into every command
type Caller struct {
	UserID       string `json:"user_id"`
	EventID      string `json:"event_id"`
	Role         Role   `json:"role"`
	DepartmentID string `json:"department_id,omitempty"`
}

// InEvent reports whether the caller's role was resolved for eventID
func (c Caller) InEvent(eventID string) bool {
	return c.EventID == eventID && c.Role != RoleNone && c.Role != ""
}

// IsHoOC reports whether the caller heads the organizing committee
func (c Caller) IsHoOC() bool {
	return c.Role == RoleHoOC
}

// IsHoDOf reports whether the caller heads departmentID
func (c Caller) IsHoDOf(departmentID string) bool {
	return c.Role == RoleHoD && c.DepartmentID != "" && c.DepartmentID == departmentID
}

// BelongsTo reports whether the caller is HoD or member of departmentID
func (c Caller) BelongsTo(departmentID string) bool {
	return (c.Role == RoleHoD || c.Role == RoleMember) && c.DepartmentID == departmentID
}
