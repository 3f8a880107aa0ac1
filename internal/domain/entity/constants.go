package entity

// BudgetStatus is the parent approval state of a budget
type BudgetStatus string

const (
	BudgetStatusDraft            BudgetStatus = "draft"
	BudgetStatusSubmitted        BudgetStatus = "submitted"
	BudgetStatusChangesRequested BudgetStatus = "changes_requested"
	BudgetStatusApproved         BudgetStatus = "approved"
	BudgetStatusSentToMembers    BudgetStatus = "sent_to_members"
	BudgetStatusLocked           BudgetStatus = "locked"
)

var validBudgetStatuses = map[BudgetStatus]bool{
	BudgetStatusDraft:            true,
	BudgetStatusSubmitted:        true,
	BudgetStatusChangesRequested: true,
	BudgetStatusApproved:         true,
	BudgetStatusSentToMembers:    true,
	BudgetStatusLocked:           true,
}

// IsValid reports whether s is a known budget status
func (s BudgetStatus) IsValid() bool {
	return validBudgetStatuses[s]
}

// AllowsContentEdit reports whether item content may change. Edits stay open
// while the budget is submitted and under review.
func (s BudgetStatus) AllowsContentEdit() bool {
	return s == BudgetStatusDraft || s == BudgetStatusChangesRequested || s == BudgetStatusSubmitted
}

// AllowsExpenseReporting reports whether assignment and expense reporting are open
func (s BudgetStatus) AllowsExpenseReporting() bool {
	return s == BudgetStatusApproved || s == BudgetStatusSentToMembers
}

// IsCommitted reports whether the budget represents approved money
func (s BudgetStatus) IsCommitted() bool {
	return s == BudgetStatusApproved || s == BudgetStatusSentToMembers || s == BudgetStatusLocked
}

// ItemStatus is the reviewer's decision on a line item request
type ItemStatus string

const (
	ItemStatusPending  ItemStatus = "pending"
	ItemStatusApproved ItemStatus = "approved"
	ItemStatusRejected ItemStatus = "rejected"
)

// IsValid reports whether s is a known item status
func (s ItemStatus) IsValid() bool {
	return s == ItemStatusPending || s == ItemStatusApproved || s == ItemStatusRejected
}

// SubmittedStatus is the assignee's expense-report state for one item
type SubmittedStatus string

const (
	SubmittedStatusDraft     SubmittedStatus = "draft"
	SubmittedStatusSubmitted SubmittedStatus = "submitted"
)

// Variance compares reported spend with the estimate
type Variance string

const (
	VarianceUnder Variance = "under_budget"
	VarianceOn    Variance = "on_budget"
	VarianceOver  Variance = "over_budget"
)

// EvidenceType identifies the kind of proof attached to an item
type EvidenceType string

const (
	EvidenceImage EvidenceType = "image"
	EvidencePDF   EvidenceType = "pdf"
	EvidenceDoc   EvidenceType = "doc"
	EvidenceLink  EvidenceType = "link"
)

// IsValid reports whether t is a known evidence type
func (t EvidenceType) IsValid() bool {
	switch t {
	case EvidenceImage, EvidencePDF, EvidenceDoc, EvidenceLink:
		return true
	}
	return false
}

// History actions recorded for committed commands
const (
	ActionCreate            = "create"
	ActionUpdate            = "update"
	ActionSubmit            = "submit"
	ActionRecall            = "recall"
	ActionDecideItem        = "decide_item"
	ActionApprove           = "approve"
	ActionRequestChanges    = "request_changes"
	ActionSendToMembers     = "send_to_members"
	ActionLock              = "lock"
	ActionDelete            = "delete"
	ActionAssignItem        = "assign_item"
	ActionReportExpense     = "report_expense"
	ActionRemoveEvidence    = "remove_evidence"
	ActionSubmitExpense     = "submit_expense"
	ActionUndoSubmitExpense = "undo_submit_expense"
	ActionTogglePaid        = "toggle_paid"
)
