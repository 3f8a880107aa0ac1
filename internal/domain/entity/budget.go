package entity

import (
	"strings"
	"time"

	"golang.org/x/text/cases"
)

// Budget is one department's budget aggregate. Items are owned exclusively
// by the budget and persisted with it as a single unit.
type Budget struct {
	ID           string       `json:"id"`
	EventID      string       `json:"event_id"`
	DepartmentID string       `json:"department_id"`
	Name         string       `json:"name"`
	Status       BudgetStatus `json:"status"`
	IsPublic     bool         `json:"is_public"`
	Categories   []string     `json:"categories"`
	Items        []*LineItem  `json:"items"`
	CreatedBy    string       `json:"created_by"`
	CreatedAt    time.Time    `json:"created_at"`
	UpdatedAt    time.Time    `json:"updated_at"`
	Version      int64        `json:"version"`
}

// LineItem is one requested expense row of a budget
type LineItem struct {
	ID       string     `json:"id"`
	Name     string     `json:"name"`
	Category string     `json:"category,omitempty"`
	Unit     string     `json:"unit"`
	UnitCost int64      `json:"unit_cost"`
	Qty      int64      `json:"qty"`
	Total    int64      `json:"total"`
	Note     string     `json:"note,omitempty"`
	Evidence []Evidence `json:"evidence"`

	// Reviewer decision on the request
	Status   ItemStatus `json:"status"`
	Feedback string     `json:"feedback,omitempty"`

	// Expense reporting
	AssignedTo      string          `json:"assigned_to,omitempty"`
	ActualAmount    int64           `json:"actual_amount"`
	MemberNote      string          `json:"member_note,omitempty"`
	SubmittedStatus SubmittedStatus `json:"submitted_status"`
	IsPaid          bool            `json:"is_paid"`
}

// NewLineItem returns an undecided item with an empty expense report
func NewLineItem(id string) *LineItem {
	return &LineItem{
		ID:              id,
		Evidence:        []Evidence{},
		Status:          ItemStatusPending,
		SubmittedStatus: SubmittedStatusDraft,
	}
}

// Recalculate derives Total from UnitCost and Qty. A product beyond
// MaxAmount saturates; validation rejects such items before they are saved.
func (i *LineItem) Recalculate() {
	i.Total, _ = MulAmount(i.UnitCost, i.Qty)
}

// Variance compares the reported spend with the estimated total
func (i *LineItem) Variance() Variance {
	switch {
	case i.ActualAmount < i.Total:
		return VarianceUnder
	case i.ActualAmount > i.Total:
		return VarianceOver
	default:
		return VarianceOn
	}
}

// IsExpenseSubmitted reports whether the assignee turned in the report
func (i *LineItem) IsExpenseSubmitted() bool {
	return i.SubmittedStatus == SubmittedStatusSubmitted
}

// IsAssignedTo reports whether userID is the current assignee
func (i *LineItem) IsAssignedTo(userID string) bool {
	return i.AssignedTo != "" && i.AssignedTo == userID
}

// RemoveEvidenceAt drops the evidence at idx
func (i *LineItem) RemoveEvidenceAt(idx int) error {
	list, err := removeEvidenceAt(i.Evidence, idx)
	if err != nil {
		return err
	}
	i.Evidence = list
	return nil
}

// Clone returns a deep copy of the item
func (i *LineItem) Clone() *LineItem {
	c := *i
	c.Evidence = append([]Evidence{}, i.Evidence...)
	return &c
}

// Clone returns a deep copy of the budget
func (b *Budget) Clone() *Budget {
	c := *b
	c.Categories = append([]string{}, b.Categories...)
	c.Items = make([]*LineItem, len(b.Items))
	for idx, item := range b.Items {
		c.Items[idx] = item.Clone()
	}
	return &c
}

// FindItem returns the item with id and its position, or nil and -1
func (b *Budget) FindItem(id string) (*LineItem, int) {
	for idx, item := range b.Items {
		if item.ID == id {
			return item, idx
		}
	}
	return nil, -1
}

// RecalculateTotals derives every item total
func (b *Budget) RecalculateTotals() {
	for _, item := range b.Items {
		item.Recalculate()
	}
}

// EstimatedTotal sums item totals
func (b *Budget) EstimatedTotal() int64 {
	var sum int64
	for _, item := range b.Items {
		sum = AddAmount(sum, item.Total)
	}
	return sum
}

// ActualTotal sums reported spend
func (b *Budget) ActualTotal() int64 {
	var sum int64
	for _, item := range b.Items {
		sum = AddAmount(sum, item.ActualAmount)
	}
	return sum
}

// PaidTotal sums reported spend of paid items
func (b *Budget) PaidTotal() int64 {
	var sum int64
	for _, item := range b.Items {
		if item.IsPaid {
			sum = AddAmount(sum, item.ActualAmount)
		}
	}
	return sum
}

// PendingItems returns the items without a reviewer decision
func (b *Budget) PendingItems() []*LineItem {
	var pending []*LineItem
	for _, item := range b.Items {
		if item.Status == ItemStatusPending {
			pending = append(pending, item)
		}
	}
	return pending
}

// UnsubmittedAssignedItems returns assigned items whose report is still a draft
func (b *Budget) UnsubmittedAssignedItems() []*LineItem {
	var open []*LineItem
	for _, item := range b.Items {
		if item.AssignedTo != "" && !item.IsExpenseSubmitted() {
			open = append(open, item)
		}
	}
	return open
}

// OwnedBy reports whether caller is the head of the owning department
func (b *Budget) OwnedBy(caller Caller) bool {
	return caller.InEvent(b.EventID) && caller.IsHoDOf(b.DepartmentID)
}

// VisibleTo reports whether caller may read the budget
func (b *Budget) VisibleTo(caller Caller) bool {
	if !caller.InEvent(b.EventID) {
		return false
	}
	switch caller.Role {
	case RoleHoOC:
		return true
	case RoleHoD:
		return caller.DepartmentID == b.DepartmentID || b.IsPublic
	case RoleMember:
		return caller.DepartmentID == b.DepartmentID && b.Status.IsCommitted()
	}
	return false
}

// NormalizeItemName is the comparison key for item-name uniqueness:
// trimmed and case-folded. A Caser is stateful, so one is built per call.
func NormalizeItemName(name string) string {
	return cases.Fold().String(strings.TrimSpace(name))
}
