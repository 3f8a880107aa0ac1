package workflow

// State represents a budget approval state
type State string

const (
	StateDraft            State = "draft"
	StateSubmitted        State = "submitted"
	StateChangesRequested State = "changes_requested"
	StateApproved         State = "approved"
	StateSentToMembers    State = "sent_to_members"
	StateLocked           State = "locked"

	// StateDeleted is the target of a draft deletion. It is never persisted;
	// the budget row is removed instead.
	StateDeleted State = "deleted"
)

var validStates = map[State]bool{
	StateDraft:            true,
	StateSubmitted:        true,
	StateChangesRequested: true,
	StateApproved:         true,
	StateSentToMembers:    true,
	StateLocked:           true,
	StateDeleted:          true,
}

// String returns the string representation of the state
func (s State) String() string {
	return string(s)
}

// IsValid returns true if the state is a valid workflow state
func (s State) IsValid() bool {
	return validStates[s]
}
