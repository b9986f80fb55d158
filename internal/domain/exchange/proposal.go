package exchange

import (
	"time"

	"github.com/waifubot/backend/internal/domain/ledger"
	"github.com/waifubot/backend/internal/domain/shared"
)

// AggregateTypeProposal identifies proposal events
const AggregateTypeProposal = "Proposal"

// Kind is the kind of a pending exchange
type Kind string

const (
	KindGift     Kind = "gift"
	KindTrade    Kind = "trade"
	KindPurchase Kind = "purchase"
	KindTransfer Kind = "transfer"
	KindReset    Kind = "reset"
	KindAddCard  Kind = "add-card"
)

// IsAdministrative reports whether the kind is issued by the owner or an admin
func (k Kind) IsAdministrative() bool {
	switch k {
	case KindTransfer, KindReset, KindAddCard:
		return true
	}
	return false
}

// IsValid reports whether k is a known kind
func (k Kind) IsValid() bool {
	switch k {
	case KindGift, KindTrade, KindPurchase, KindTransfer, KindReset, KindAddCard:
		return true
	}
	return false
}

// Proposal is a pending two-party exchange held in process memory.
// Nothing in the ledger changes until it is accepted.
type Proposal struct {
	Token string
	Kind  Kind

	// ProposerID started the exchange. For administrative kinds it is the issuer.
	ProposerID int64
	// ResponderID is the account allowed to answer a gift or trade.
	// For a purchase it equals ProposerID.
	ResponderID int64
	// TargetID is the account a transfer or reset acts on
	TargetID int64

	OfferedCardID   int64
	RequestedCardID int64
	Price           int64
	ChatID          int64
	Card            *ledger.CardDraft

	CreatedAt time.Time
	// TTL of zero means the proposal never expires
	TTL time.Duration
}

// ExpiresAt returns the expiry time and whether the proposal expires at all
func (p *Proposal) ExpiresAt() (time.Time, bool) {
	if p.TTL <= 0 {
		return time.Time{}, false
	}
	return p.CreatedAt.Add(p.TTL), true
}

// IsExpired reports whether the proposal is past its TTL at now
func (p *Proposal) IsExpired(now time.Time) bool {
	at, ok := p.ExpiresAt()
	return ok && now.After(at)
}

// Validate checks the payload matches the kind
func (p *Proposal) Validate() error {
	if !p.Kind.IsValid() {
		return shared.ErrInvalidInput.WithMessage("unknown exchange kind %q", p.Kind)
	}
	if p.ProposerID == 0 {
		return shared.ErrInvalidInput.WithMessage("proposer is required")
	}
	switch p.Kind {
	case KindGift:
		if p.ResponderID == 0 || p.OfferedCardID == 0 {
			return shared.ErrInvalidInput.WithMessage("gift needs a recipient and a card")
		}
		if p.ResponderID == p.ProposerID {
			return shared.ErrInvalidInput.WithMessage("cannot gift to yourself")
		}
	case KindTrade:
		if p.ResponderID == 0 || p.OfferedCardID == 0 || p.RequestedCardID == 0 {
			return shared.ErrInvalidInput.WithMessage("trade needs a counterparty and two cards")
		}
		if p.ResponderID == p.ProposerID {
			return shared.ErrInvalidInput.WithMessage("cannot trade with yourself")
		}
		if p.OfferedCardID == p.RequestedCardID {
			return shared.ErrInvalidInput.WithMessage("cannot trade a card for itself")
		}
	case KindPurchase:
		if p.RequestedCardID == 0 || p.Price < 0 {
			return shared.ErrInvalidInput.WithMessage("purchase needs a card and a price")
		}
	case KindTransfer:
		if p.TargetID == 0 || p.OfferedCardID == 0 {
			return shared.ErrInvalidInput.WithMessage("transfer needs a target and a card")
		}
	case KindReset:
		if p.TargetID == 0 {
			return shared.ErrInvalidInput.WithMessage("reset needs a target")
		}
	case KindAddCard:
		if p.Card == nil {
			return shared.ErrInvalidInput.WithMessage("add-card needs a card draft")
		}
		return p.Card.Validate()
	}
	return nil
}

// TTLPolicy decides how long each kind of proposal lives
type TTLPolicy struct {
	Default time.Duration
	Gift    time.Duration
}

// DefaultTTLPolicy keeps gifts open indefinitely and everything else for five minutes
func DefaultTTLPolicy() TTLPolicy {
	return TTLPolicy{Default: 5 * time.Minute, Gift: 0}
}

// For returns the TTL of a kind
func (p TTLPolicy) For(k Kind) time.Duration {
	if k == KindGift {
		return p.Gift
	}
	return p.Default
}
