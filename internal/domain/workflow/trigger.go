package workflow

// Trigger represents a budget command that can cause a state transition
type Trigger string

const (
	TriggerSubmit         Trigger = "submit"
	TriggerRecall         Trigger = "recall"
	TriggerApprove        Trigger = "approve"
	TriggerRequestChanges Trigger = "request_changes"
	TriggerSendToMembers  Trigger = "send_to_members"
	TriggerLock           Trigger = "lock"
	TriggerDelete         Trigger = "delete"
)

// String returns the string representation of the trigger
func (t Trigger) String() string {
	return string(t)
}
