package exchange

import (
	"time"

	"github.com/waifubot/backend/internal/domain/exchange"
	"github.com/waifubot/backend/internal/domain/ledger"
)

// BalanceResponse is an account's sub-balances and their total
type BalanceResponse struct {
	AccountID int64 `json:"account_id"`
	Daily     int64 `json:"daily"`
	Weekly    int64 `json:"weekly"`
	Monthly   int64 `json:"monthly"`
	Given     int64 `json:"given"`
	Total     int64 `json:"total"`
}

// ToBalanceResponse converts a balance to its response
func ToBalanceResponse(accountID int64, b ledger.Balance) BalanceResponse {
	return BalanceResponse{
		AccountID: accountID,
		Daily:     b.Daily,
		Weekly:    b.Weekly,
		Monthly:   b.Monthly,
		Given:     b.Given,
		Total:     b.Total(),
	}
}

// CardResponse is a catalog card with its current market price
type CardResponse struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Anime       string    `json:"anime"`
	Rarity      string    `json:"rarity"`
	RarityRank  int       `json:"rarity_rank"`
	Event       string    `json:"event,omitempty"`
	MediaType   string    `json:"media_type"`
	MediaFileID string    `json:"media_file_id"`
	MarketPrice int64     `json:"market_price"`
	Circulation int64     `json:"circulation,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// ToCardResponse converts a card to its response using the market base price
func ToCardResponse(c *ledger.CardDefinition, basePrice int64) CardResponse {
	return CardResponse{
		ID:          c.ID,
		Name:        c.Name,
		Anime:       c.Anime,
		Rarity:      c.Rarity.String(),
		RarityRank:  int(c.Rarity),
		Event:       c.Event,
		MediaType:   c.MediaType,
		MediaFileID: c.MediaFileID,
		MarketPrice: c.MarketPrice(basePrice),
		CreatedAt:   c.CreatedAt,
	}
}

// InventoryEntryResponse is one card held by an account
type InventoryEntryResponse struct {
	Card     CardResponse `json:"card"`
	Quantity int64        `json:"quantity"`
}

// HistoryEntryResponse is one audit entry seen from an account
type HistoryEntryResponse struct {
	EventID        string    `json:"event_id"`
	EventType      string    `json:"event_type"`
	AccountID      int64     `json:"account_id"`
	CounterpartyID int64     `json:"counterparty_id,omitempty"`
	ChatID         int64     `json:"chat_id,omitempty"`
	CardID         int64     `json:"card_id,omitempty"`
	Price          int64     `json:"price,omitempty"`
	Units          int64     `json:"units,omitempty"`
	Details        string    `json:"details,omitempty"`
	OccurredAt     time.Time `json:"occurred_at"`
}

// ToHistoryEntryResponse converts an audit entry to its response
func ToHistoryEntryResponse(e *exchange.LogEntry) HistoryEntryResponse {
	return HistoryEntryResponse{
		EventID:        e.EventID,
		EventType:      e.EventType,
		AccountID:      e.AccountID,
		CounterpartyID: e.CounterpartyID,
		ChatID:         e.ChatID,
		CardID:         e.CardID,
		Price:          e.Price,
		Units:          e.Units,
		Details:        e.Details,
		OccurredAt:     e.OccurredAt,
	}
}

// InventoryCountResponse is the quantity of one card held by an account
type InventoryCountResponse struct {
	AccountID int64 `json:"account_id"`
	CardID    int64 `json:"card_id"`
	Quantity  int64 `json:"quantity"`
}

// AdjustBalanceRequest credits or debits sub-balances on behalf of an issuer
type AdjustBalanceRequest struct {
	IssuerID int64
	Delta    ledger.Balance
}

// RewardClaimResponse is the result of a successful reward claim.
// Card rewards carry the drawn card. Refused means it was not kept.
type RewardClaimResponse struct {
	Category string          `json:"category"`
	Amount   int64           `json:"amount"`
	Balance  BalanceResponse `json:"balance"`
	Card     *CardResponse   `json:"card,omitempty"`
	Refused  bool            `json:"refused,omitempty"`
}

// GiftRequest proposes giving one card to another account
type GiftRequest struct {
	SenderID    int64
	RecipientID int64
	CardID      int64
	ChatID      int64
}

// TradeRequest proposes swapping one card for another
type TradeRequest struct {
	ProposerID      int64
	CounterpartyID  int64
	OfferedCardID   int64
	RequestedCardID int64
	ChatID          int64
}

// PurchaseRequest previews buying a card from the market
type PurchaseRequest struct {
	BuyerID int64
	CardID  int64
	ChatID  int64
}

// TransferRequest proposes granting a card to a target account
type TransferRequest struct {
	IssuerID    int64
	TargetID    int64
	TargetIsBot bool
	CardID      int64
	ChatID      int64
}

// ResetRequest proposes wiping a target account's inventory
type ResetRequest struct {
	IssuerID    int64
	TargetID    int64
	TargetIsBot bool
	ChatID      int64
}

// AddCardRequest proposes registering a new card
type AddCardRequest struct {
	IssuerID int64
	Card     ledger.CardDraft
	ChatID   int64
}

// ProposalResponse describes a pending proposal
type ProposalResponse struct {
	Token           string            `json:"token"`
	Kind            string            `json:"kind"`
	ProposerID      int64             `json:"proposer_id"`
	ResponderID     int64             `json:"responder_id,omitempty"`
	TargetID        int64             `json:"target_id,omitempty"`
	OfferedCardID   int64             `json:"offered_card_id,omitempty"`
	RequestedCardID int64             `json:"requested_card_id,omitempty"`
	Price           int64             `json:"price,omitempty"`
	ChatID          int64             `json:"chat_id,omitempty"`
	Card            *ledger.CardDraft `json:"card,omitempty"`
	CreatedAt       time.Time         `json:"created_at"`
	ExpiresAt       *time.Time        `json:"expires_at,omitempty"`
}

// ToProposalResponse converts a proposal to its response
func ToProposalResponse(p *exchange.Proposal) ProposalResponse {
	resp := ProposalResponse{
		Token:           p.Token,
		Kind:            string(p.Kind),
		ProposerID:      p.ProposerID,
		ResponderID:     p.ResponderID,
		TargetID:        p.TargetID,
		OfferedCardID:   p.OfferedCardID,
		RequestedCardID: p.RequestedCardID,
		Price:           p.Price,
		ChatID:          p.ChatID,
		Card:            p.Card,
		CreatedAt:       p.CreatedAt,
	}
	if at, ok := p.ExpiresAt(); ok {
		resp.ExpiresAt = &at
	}
	return resp
}

// RespondResult is the outcome of accepting or declining a proposal
type RespondResult struct {
	Token        string           `json:"token"`
	Kind         string           `json:"kind"`
	Outcome      string           `json:"outcome"`
	UnitsMoved   int64            `json:"units_moved,omitempty"`
	RemovedUnits int64            `json:"removed_units,omitempty"`
	CardID       int64            `json:"card_id,omitempty"`
	Balance      *BalanceResponse `json:"balance,omitempty"`
}
