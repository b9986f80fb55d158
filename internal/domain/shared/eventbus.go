package shared

import "context"

// EventHandler reacts to domain events delivered by the bus. EventTypes
// narrows delivery; nil or empty means every event.
type EventHandler interface {
	Handle(ctx context.Context, event DomainEvent) error
	EventTypes() []string
}

// EventPublisher is what services depend on. Publishing after a committed
// transaction is the caller's job.
type EventPublisher interface {
	Publish(ctx context.Context, events ...DomainEvent) error
}

// EventBus dispatches published events to subscribed handlers
type EventBus interface {
	EventPublisher
	// Subscribe registers handler for eventTypes, or for handler.EventTypes()
	// when none are given
	Subscribe(handler EventHandler, eventTypes ...string)
	Unsubscribe(handler EventHandler)
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
}
