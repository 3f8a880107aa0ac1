package testutil

import (
	"context"
	"sync"

	"github.com/garyjia/event-budget/internal/application/dispatcher"
	"github.com/garyjia/event-budget/internal/domain/event"
)

// Recorder subscribes to every event on a dispatcher and keeps them
type Recorder struct {
	mu     sync.Mutex
	events []*event.Event
}

// NewRecorder subscribes a recorder to d
func NewRecorder(d dispatcher.Dispatcher) *Recorder {
	r := &Recorder{}
	d.SubscribeAll("test-recorder", func(ctx context.Context, evt *event.Event) error {
		r.mu.Lock()
		defer r.mu.Unlock()
		r.events = append(r.events, evt)
		return nil
	})
	return r
}

// Types returns the recorded event types in order
func (r *Recorder) Types() []event.Type {
	r.mu.Lock()
	defer r.mu.Unlock()
	types := make([]event.Type, len(r.events))
	for i, e := range r.events {
		types[i] = e.Type
	}
	return types
}

// Last returns the most recent event or nil
func (r *Recorder) Last() *event.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.events) == 0 {
		return nil
	}
	return r.events[len(r.events)-1]
}

// Reset drops recorded events
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
