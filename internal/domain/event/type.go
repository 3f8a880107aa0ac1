package event

// Type identifies the type of domain event
type Type string

const (
	TypeBudgetCreated       Type = "budget.created"
	TypeBudgetUpdated       Type = "budget.updated"
	TypeBudgetStatusChanged Type = "budget.status_changed"
	TypeBudgetDeleted       Type = "budget.deleted"
	TypeItemDecided         Type = "item.decided"
	TypeItemAssigned        Type = "item.assigned"
	TypeExpenseReported     Type = "expense.reported"
	TypeExpenseSubmitted    Type = "expense.submitted"
	TypeExpenseUnsubmitted  Type = "expense.unsubmitted"
	TypeItemPaidToggled     Type = "item.paid_toggled"
)

// String returns the string representation of the event type
func (t Type) String() string {
	return string(t)
}

// IsValid checks if the event type is one of the defined constants
func (t Type) IsValid() bool {
	switch t {
	case TypeBudgetCreated,
		TypeBudgetUpdated,
		TypeBudgetStatusChanged,
		TypeBudgetDeleted,
		TypeItemDecided,
		TypeItemAssigned,
		TypeExpenseReported,
		TypeExpenseSubmitted,
		TypeExpenseUnsubmitted,
		TypeItemPaidToggled:
		return true
	default:
		return false
	}
}

// AffectsTotals reports whether the event can change committed statistics
func (t Type) AffectsTotals() bool {
	switch t {
	case TypeItemAssigned, TypeExpenseSubmitted, TypeExpenseUnsubmitted:
		return false
	}
	return t.IsValid()
}
