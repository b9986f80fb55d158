package testutil

import (
	"context"
	"sync"

	"github.com/waifubot/backend/internal/domain/shared"
)

// EventRecorder is a shared.EventHandler that keeps every event it receives
type EventRecorder struct {
	mu         sync.Mutex
	eventTypes []string
	events     []shared.DomainEvent
}

// NewEventRecorder records the given event types, or every type when none are given
func NewEventRecorder(eventTypes ...string) *EventRecorder {
	return &EventRecorder{eventTypes: eventTypes}
}

// EventTypes implements shared.EventHandler
func (r *EventRecorder) EventTypes() []string {
	return r.eventTypes
}

// Handle implements shared.EventHandler
func (r *EventRecorder) Handle(_ context.Context, event shared.DomainEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of the recorded events
func (r *EventRecorder) Events() []shared.DomainEvent {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]shared.DomainEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in arrival order
func (r *EventRecorder) Types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.EventType())
	}
	return out
}
