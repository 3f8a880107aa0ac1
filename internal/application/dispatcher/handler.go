package dispatcher

import (
	"context"

	"github.com/garyjia/event-budget/internal/domain/event"
)

// Handler processes domain events
type Handler func(ctx context.Context, evt *event.Event) error

// HandlerInfo is a registered handler with its subscription
type HandlerInfo struct {
	Name      string
	EventType event.Type
	Handler   Handler
}

// anyType is the subscription key for handlers that receive every event
const anyType event.Type = "*"
