package entity

import "time"

// BudgetHistory is the audit trail entry written with every committed command
type BudgetHistory struct {
	ID             int64     `json:"id"`
	BudgetID       string    `json:"budget_id"`
	ItemID         string    `json:"item_id,omitempty"`
	ActorID        string    `json:"actor_id"`
	ActorRole      Role      `json:"actor_role"`
	Action         string    `json:"action"`
	PreviousStatus string    `json:"previous_status"`
	NewStatus      string    `json:"new_status"`
	Detail         string    `json:"detail,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}
