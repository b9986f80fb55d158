package dto

import (
	appexchange "github.com/waifubot/backend/internal/application/exchange"
	"github.com/waifubot/backend/internal/domain/ledger"
	"github.com/waifubot/backend/internal/domain/shared"
)

// DefaultPageSize is used when a list request omits page_size
const DefaultPageSize = 20

// AccountURI binds the :id path parameter of account routes
type AccountURI struct {
	ID int64 `uri:"id" binding:"required,gt=0"`
}

// InventoryCardURI binds /accounts/:id/inventory/:card_id
type InventoryCardURI struct {
	ID     int64 `uri:"id" binding:"required,gt=0"`
	CardID int64 `uri:"card_id" binding:"required,gt=0"`
}

// RewardURI binds /accounts/:id/rewards/:category/claim
type RewardURI struct {
	ID       int64  `uri:"id" binding:"required,gt=0"`
	Category string `uri:"category" binding:"required,oneof=daily weekly monthly claim craft marry"`
}

// CardURI binds /cards/:id
type CardURI struct {
	ID int64 `uri:"id" binding:"required,gt=0"`
}

// TokenURI binds /exchanges/:token
type TokenURI struct {
	Token string `uri:"token" binding:"required,exchange_token"`
}

// ListQuery holds paging parameters
type ListQuery struct {
	Page     int `form:"page" binding:"omitempty,min=1"`
	PageSize int `form:"page_size" binding:"omitempty,min=1,max=100"`
}

// ToFilter converts the query to a repository filter
func (q ListQuery) ToFilter() shared.Filter {
	f := shared.DefaultFilter()
	if q.Page > 0 {
		f.Page = q.Page
	}
	if q.PageSize > 0 {
		f.PageSize = q.PageSize
	}
	return f.Normalize()
}

// CardListQuery filters the catalog by rarity name and orders it
type CardListQuery struct {
	ListQuery
	Rarity   string `form:"rarity"`
	OrderBy  string `form:"order_by" binding:"omitempty,oneof=id name anime rarity_rank created_at"`
	OrderDir string `form:"order_dir" binding:"omitempty,oneof=asc desc"`
}

// ToFilter converts the query to a repository filter including ordering
func (q CardListQuery) ToFilter() shared.Filter {
	f := q.ListQuery.ToFilter()
	f.OrderBy = q.OrderBy
	if q.OrderDir != "" {
		f.OrderDir = q.OrderDir
	}
	return f
}

// AdjustBalanceRequest is the body of POST /accounts/:id/balance/adjust
type AdjustBalanceRequest struct {
	IssuerID int64 `json:"issuer_id" binding:"required,gt=0"`
	Daily    int64 `json:"daily"`
	Weekly   int64 `json:"weekly"`
	Monthly  int64 `json:"monthly"`
	Given    int64 `json:"given"`
}

// ToAppRequest converts to the service request
func (r AdjustBalanceRequest) ToAppRequest() appexchange.AdjustBalanceRequest {
	return appexchange.AdjustBalanceRequest{
		IssuerID: r.IssuerID,
		Delta: ledger.Balance{
			Daily:   r.Daily,
			Weekly:  r.Weekly,
			Monthly: r.Monthly,
			Given:   r.Given,
		},
	}
}

// GiftRequest is the body of POST /exchanges/gifts
type GiftRequest struct {
	SenderID    int64 `json:"sender_id" binding:"required,gt=0"`
	RecipientID int64 `json:"recipient_id" binding:"required,gt=0"`
	CardID      int64 `json:"card_id" binding:"required,gt=0"`
	ChatID      int64 `json:"chat_id"`
}

// ToAppRequest converts to the service request
func (r GiftRequest) ToAppRequest() appexchange.GiftRequest {
	return appexchange.GiftRequest{
		SenderID:    r.SenderID,
		RecipientID: r.RecipientID,
		CardID:      r.CardID,
		ChatID:      r.ChatID,
	}
}

// TradeRequest is the body of POST /exchanges/trades
type TradeRequest struct {
	ProposerID      int64 `json:"proposer_id" binding:"required,gt=0"`
	CounterpartyID  int64 `json:"counterparty_id" binding:"required,gt=0"`
	OfferedCardID   int64 `json:"offered_card_id" binding:"required,gt=0"`
	RequestedCardID int64 `json:"requested_card_id" binding:"required,gt=0"`
	ChatID          int64 `json:"chat_id"`
}

// ToAppRequest converts to the service request
func (r TradeRequest) ToAppRequest() appexchange.TradeRequest {
	return appexchange.TradeRequest{
		ProposerID:      r.ProposerID,
		CounterpartyID:  r.CounterpartyID,
		OfferedCardID:   r.OfferedCardID,
		RequestedCardID: r.RequestedCardID,
		ChatID:          r.ChatID,
	}
}

// PurchaseRequest is the body of POST /exchanges/purchases
type PurchaseRequest struct {
	BuyerID int64 `json:"buyer_id" binding:"required,gt=0"`
	CardID  int64 `json:"card_id" binding:"required,gt=0"`
	ChatID  int64 `json:"chat_id"`
}

// ToAppRequest converts to the service request
func (r PurchaseRequest) ToAppRequest() appexchange.PurchaseRequest {
	return appexchange.PurchaseRequest{
		BuyerID: r.BuyerID,
		CardID:  r.CardID,
		ChatID:  r.ChatID,
	}
}

// TransferRequest is the body of POST /exchanges/transfers
type TransferRequest struct {
	IssuerID    int64 `json:"issuer_id" binding:"required,gt=0"`
	TargetID    int64 `json:"target_id" binding:"required,gt=0"`
	TargetIsBot bool  `json:"target_is_bot"`
	CardID      int64 `json:"card_id" binding:"required,gt=0"`
	ChatID      int64 `json:"chat_id"`
}

// ToAppRequest converts to the service request
func (r TransferRequest) ToAppRequest() appexchange.TransferRequest {
	return appexchange.TransferRequest{
		IssuerID:    r.IssuerID,
		TargetID:    r.TargetID,
		TargetIsBot: r.TargetIsBot,
		CardID:      r.CardID,
		ChatID:      r.ChatID,
	}
}

// ResetRequest is the body of POST /exchanges/resets
type ResetRequest struct {
	IssuerID    int64 `json:"issuer_id" binding:"required,gt=0"`
	TargetID    int64 `json:"target_id" binding:"required,gt=0"`
	TargetIsBot bool  `json:"target_is_bot"`
	ChatID      int64 `json:"chat_id"`
}

// ToAppRequest converts to the service request
func (r ResetRequest) ToAppRequest() appexchange.ResetRequest {
	return appexchange.ResetRequest{
		IssuerID:    r.IssuerID,
		TargetID:    r.TargetID,
		TargetIsBot: r.TargetIsBot,
		ChatID:      r.ChatID,
	}
}

// AddCardRequest is the body of POST /exchanges/cards
type AddCardRequest struct {
	IssuerID    int64  `json:"issuer_id" binding:"required,gt=0"`
	Name        string `json:"name" binding:"required,max=200"`
	Anime       string `json:"anime" binding:"required,max=200"`
	Rarity      string `json:"rarity" binding:"required"`
	Event       string `json:"event" binding:"max=100"`
	MediaType   string `json:"media_type" binding:"required,oneof=photo video"`
	MediaFileID string `json:"media_file_id" binding:"required"`
	ChatID      int64  `json:"chat_id"`
}

// ToAppRequest converts to the service request, resolving the rarity name
func (r AddCardRequest) ToAppRequest() (appexchange.AddCardRequest, error) {
	rarity, err := ledger.ParseRarity(r.Rarity)
	if err != nil {
		return appexchange.AddCardRequest{}, err
	}
	return appexchange.AddCardRequest{
		IssuerID: r.IssuerID,
		ChatID:   r.ChatID,
		Card: ledger.CardDraft{
			Name:        r.Name,
			Anime:       r.Anime,
			Rarity:      rarity,
			Event:       r.Event,
			MediaType:   r.MediaType,
			MediaFileID: r.MediaFileID,
		},
	}, nil
}

// RespondRequest is the body of POST /exchanges/:token/accept and /decline
type RespondRequest struct {
	ResponderID int64 `json:"responder_id" binding:"required,gt=0"`
}
