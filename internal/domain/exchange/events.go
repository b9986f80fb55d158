package exchange

import (
	"time"

	"github.com/waifubot/backend/internal/domain/shared"
)

// Event type constants
const (
	EventTypeProposed       = "ExchangeProposed"
	EventTypeAccepted       = "ExchangeAccepted"
	EventTypeDeclined       = "ExchangeDeclined"
	EventTypeExpired        = "ExchangeExpired"
	EventTypeFailed         = "ExchangeFailed"
	EventTypeInventoryWiped = "InventoryWiped"
)

// Outcome is the terminal state of a proposal
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeDeclined Outcome = "declined"
	OutcomeExpired  Outcome = "expired"
	// OutcomeFailed is an accepted proposal whose ledger change was refused
	OutcomeFailed Outcome = "failed"
)

// ProposedEvent is raised when a proposal is registered
type ProposedEvent struct {
	shared.BaseDomainEvent
	Kind            Kind  `json:"kind"`
	ProposerID      int64 `json:"proposer_id"`
	ResponderID     int64 `json:"responder_id,omitempty"`
	TargetID        int64 `json:"target_id,omitempty"`
	OfferedCardID   int64 `json:"offered_card_id,omitempty"`
	RequestedCardID int64 `json:"requested_card_id,omitempty"`
	Price           int64 `json:"price,omitempty"`
	ChatID          int64 `json:"chat_id,omitempty"`
}

// NewProposedEvent creates a new ProposedEvent
func NewProposedEvent(p *Proposal) *ProposedEvent {
	return &ProposedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeProposed, AggregateTypeProposal, p.Token, p.CreatedAt),
		Kind:            p.Kind,
		ProposerID:      p.ProposerID,
		ResponderID:     p.ResponderID,
		TargetID:        p.TargetID,
		OfferedCardID:   p.OfferedCardID,
		RequestedCardID: p.RequestedCardID,
		Price:           p.Price,
		ChatID:          p.ChatID,
	}
}

// ResolvedEvent is raised when a proposal reaches a terminal state
type ResolvedEvent struct {
	shared.BaseDomainEvent
	Kind            Kind    `json:"kind"`
	Outcome         Outcome `json:"outcome"`
	ProposerID      int64   `json:"proposer_id"`
	ResponderID     int64   `json:"responder_id"`
	TargetID        int64   `json:"target_id,omitempty"`
	OfferedCardID   int64   `json:"offered_card_id,omitempty"`
	RequestedCardID int64   `json:"requested_card_id,omitempty"`
	Price           int64   `json:"price,omitempty"`
	ChatID          int64   `json:"chat_id,omitempty"`
	CardID          int64   `json:"card_id,omitempty"`
	// Reason is the error code of a failed outcome
	Reason string `json:"reason,omitempty"`
}

// NewResolvedEvent creates the event matching outcome. responderID is the
// account that answered, zero for expiry.
func NewResolvedEvent(p *Proposal, outcome Outcome, responderID int64, at time.Time) *ResolvedEvent {
	eventType := EventTypeAccepted
	switch outcome {
	case OutcomeDeclined:
		eventType = EventTypeDeclined
	case OutcomeExpired:
		eventType = EventTypeExpired
	case OutcomeFailed:
		eventType = EventTypeFailed
	}
	return &ResolvedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(eventType, AggregateTypeProposal, p.Token, at),
		Kind:            p.Kind,
		Outcome:         outcome,
		ProposerID:      p.ProposerID,
		ResponderID:     responderID,
		TargetID:        p.TargetID,
		OfferedCardID:   p.OfferedCardID,
		RequestedCardID: p.RequestedCardID,
		Price:           p.Price,
		ChatID:          p.ChatID,
	}
}

// InventoryWipedEvent is raised after a reset removes an account's cards
type InventoryWipedEvent struct {
	shared.BaseDomainEvent
	IssuerID     int64 `json:"issuer_id"`
	TargetID     int64 `json:"target_id"`
	RemovedUnits int64 `json:"removed_units"`
	ChatID       int64 `json:"chat_id,omitempty"`
}

// NewInventoryWipedEvent creates a new InventoryWipedEvent
func NewInventoryWipedEvent(p *Proposal, removed int64, at time.Time) *InventoryWipedEvent {
	return &InventoryWipedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeInventoryWiped, AggregateTypeProposal, p.Token, at),
		IssuerID:        p.ProposerID,
		TargetID:        p.TargetID,
		RemovedUnits:    removed,
		ChatID:          p.ChatID,
	}
}
