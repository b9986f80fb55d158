package shared

// BaseAggregateRoot carries the optimistic-lock version of a row-backed
// aggregate and the events raised since it was loaded. Repositories compare
// Version on save and bump it on success.
type BaseAggregateRoot struct {
	Version int
	pending []DomainEvent
}

// NewBaseAggregateRoot returns the state of a never-saved aggregate
func NewBaseAggregateRoot() BaseAggregateRoot {
	return BaseAggregateRoot{Version: 1}
}

func (a *BaseAggregateRoot) GetVersion() int { return a.Version }

func (a *BaseAggregateRoot) IncrementVersion() { a.Version++ }

// AddDomainEvent queues an event until the aggregate is saved
func (a *BaseAggregateRoot) AddDomainEvent(event DomainEvent) {
	a.pending = append(a.pending, event)
}

// GetDomainEvents returns the queued events without clearing them
func (a *BaseAggregateRoot) GetDomainEvents() []DomainEvent {
	return a.pending
}

// ClearDomainEvents drops the queued events
func (a *BaseAggregateRoot) ClearDomainEvents() {
	a.pending = nil
}

// PullDomainEvents returns the queued events and clears the queue. Call it
// only after the save that produced them has committed.
func (a *BaseAggregateRoot) PullDomainEvents() []DomainEvent {
	events := a.pending
	a.pending = nil
	return events
}
