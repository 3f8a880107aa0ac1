package event

import (
	"time"

	"github.com/google/uuid"
)

// Event represents a committed change to a budget
type Event struct {
	ID        string                 `json:"id"`
	Type      Type                   `json:"type"`
	EventID   string                 `json:"event_id"`
	BudgetID  string                 `json:"budget_id"`
	ItemID    string                 `json:"item_id,omitempty"`
	ActorID   string                 `json:"actor_id"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewEvent creates a new domain event with auto-generated ID and timestamp
func NewEvent(eventType Type, eventID, budgetID, actorID string, payload map[string]interface{}) *Event {
	if payload == nil {
		payload = map[string]interface{}{}
	}
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		EventID:   eventID,
		BudgetID:  budgetID,
		ActorID:   actorID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// ForItem returns a copy of the event scoped to one line item
func (e *Event) ForItem(itemID string) *Event {
	c := *e
	c.ItemID = itemID
	return &c
}

// WithPayload returns a new Event with an added payload key-value pair
func (e *Event) WithPayload(key string, value interface{}) *Event {
	newPayload := make(map[string]interface{}, len(e.Payload)+1)
	for k, v := range e.Payload {
		newPayload[k] = v
	}
	newPayload[key] = value

	c := *e
	c.Payload = newPayload
	return &c
}

// GetPayloadString retrieves a string value from the payload
func (e *Event) GetPayloadString(key string) string {
	if val, ok := e.Payload[key]; ok {
		if str, ok := val.(string); ok {
			return str
		}
	}
	return ""
}

// GetPayloadInt retrieves an int64 value from the payload
func (e *Event) GetPayloadInt(key string) int64 {
	if val, ok := e.Payload[key]; ok {
		switch v := val.(type) {
		case int64:
			return v
		case int:
			return int64(v)
		case float64:
			return int64(v)
		}
	}
	return 0
}

// GetPayloadBool retrieves a bool value from the payload
func (e *Event) GetPayloadBool(key string) bool {
	if val, ok := e.Payload[key]; ok {
		if b, ok := val.(bool); ok {
			return b
		}
	}
	return false
}
