package ledger

import (
	"time"

	"github.com/waifubot/backend/internal/domain/shared"
)

// Event type constants
const (
	EventTypeBalanceAdjusted = "BalanceAdjusted"
	EventTypeRewardClaimed   = "RewardClaimed"
)

// BalanceAdjustedEvent is raised when crystals are credited or debited directly
type BalanceAdjustedEvent struct {
	shared.BaseDomainEvent
	AccountID int64   `json:"account_id"`
	IssuerID  int64   `json:"issuer_id"`
	Delta     Balance `json:"delta"`
	After     Balance `json:"after"`
}

// NewBalanceAdjustedEvent creates a new BalanceAdjustedEvent
func NewBalanceAdjustedEvent(a *Account, issuerID int64, delta Balance, at time.Time) *BalanceAdjustedEvent {
	return &BalanceAdjustedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBalanceAdjusted, AggregateTypeAccount, a.AggregateKey(), at),
		AccountID:       a.ID,
		IssuerID:        issuerID,
		Delta:           delta,
		After:           a.Balance,
	}
}

// RewardClaimedEvent is raised when a periodic reward is paid out.
// CardID is set when a card reward kept its draw.
type RewardClaimedEvent struct {
	shared.BaseDomainEvent
	AccountID int64          `json:"account_id"`
	Category  RewardCategory `json:"category"`
	Amount    int64          `json:"amount"`
	CardID    int64          `json:"card_id,omitempty"`
}

// NewRewardClaimedEvent creates a new RewardClaimedEvent
func NewRewardClaimedEvent(a *Account, c RewardCategory, amount int64, at time.Time) *RewardClaimedEvent {
	return &RewardClaimedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRewardClaimed, AggregateTypeAccount, a.AggregateKey(), at),
		AccountID:       a.ID,
		Category:        c,
		Amount:          amount,
	}
}
