package shared

import (
	"time"

	"github.com/google/uuid"
)

// DomainEvent is a fact recorded by an aggregate. Accounts identify
// themselves by decimal chat id, proposals by their token.
type DomainEvent interface {
	EventID() uuid.UUID
	EventType() string
	OccurredAt() time.Time
	AggregateID() string
	AggregateType() string
}

// BaseDomainEvent carries the envelope every event embeds
type BaseDomainEvent struct {
	ID        uuid.UUID `json:"id"`
	Type      string    `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	AggID     string    `json:"aggregate_id"`
	AggType   string    `json:"aggregate_type"`
}

// NewBaseDomainEvent stamps a fresh id. at comes from the caller's clock so
// tests and replays stay deterministic.
func NewBaseDomainEvent(eventType, aggType, aggID string, at time.Time) BaseDomainEvent {
	return BaseDomainEvent{ID: uuid.New(), Type: eventType, Timestamp: at.UTC(), AggID: aggID, AggType: aggType}
}

func (e BaseDomainEvent) EventID() uuid.UUID    { return e.ID }
func (e BaseDomainEvent) EventType() string     { return e.Type }
func (e BaseDomainEvent) OccurredAt() time.Time { return e.Timestamp }
func (e BaseDomainEvent) AggregateID() string   { return e.AggID }
func (e BaseDomainEvent) AggregateType() string { return e.AggType }

// String renders "Type(AggType/AggID)" for logs
func (e BaseDomainEvent) String() string {
	return e.Type + "(" + e.AggType + "/" + e.AggID + ")"
}
