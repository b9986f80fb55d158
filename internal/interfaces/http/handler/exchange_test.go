package handler

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	appexchange "github.com/waifubot/backend/internal/application/exchange"
	"github.com/waifubot/backend/internal/domain/ledger"
	"github.com/waifubot/backend/internal/domain/shared"
	"github.com/waifubot/backend/internal/interfaces/http/dto"
)

const testToken = "0123456789abcdef0123456789abcdef"

func newExchangeRouter(svc *MockExchangeAPI) *gin.Engine {
	h := NewExchangeHandler(svc)
	engine := newTestEngine()
	engine.POST("/exchanges/gifts", h.ProposeGift)
	engine.POST("/exchanges/trades", h.ProposeTrade)
	engine.POST("/exchanges/purchases", h.PreviewPurchase)
	engine.POST("/exchanges/transfers", h.ProposeTransfer)
	engine.POST("/exchanges/resets", h.ProposeReset)
	engine.POST("/exchanges/cards", h.ProposeAddCard)
	engine.GET("/exchanges/:token", h.Lookup)
	engine.POST("/exchanges/:token/accept", h.Accept)
	engine.POST("/exchanges/:token/decline", h.Decline)
	return engine
}

func TestExchangeHandler_Propose(t *testing.T) {
	created := time.Date(2026, 5, 5, 9, 0, 0, 0, time.UTC)

	t.Run("gift", func(t *testing.T) {
		svc := new(MockExchangeAPI)
		svc.On("ProposeGift", mock.Anything, appexchange.GiftRequest{SenderID: 1, RecipientID: 2, CardID: 3, ChatID: -100}).
			Return(&appexchange.ProposalResponse{Token: testToken, Kind: "gift", ProposerID: 1, ResponderID: 2, CreatedAt: created}, nil)

		rec := serve(newExchangeRouter(svc), http.MethodPost, "/exchanges/gifts",
			map[string]any{"sender_id": 1, "recipient_id": 2, "card_id": 3, "chat_id": -100})

		assert.Equal(t, http.StatusCreated, rec.Code)
		proposal := decodeData[appexchange.ProposalResponse](t, rec)
		assert.Equal(t, testToken, proposal.Token)
		assert.Nil(t, proposal.ExpiresAt)
		svc.AssertExpectations(t)
	})

	t.Run("gift of unowned card", func(t *testing.T) {
		svc := new(MockExchangeAPI)
		svc.On("ProposeGift", mock.Anything, mock.Anything).Return(nil, shared.ErrNotOwned)

		rec := serve(newExchangeRouter(svc), http.MethodPost, "/exchanges/gifts",
			map[string]any{"sender_id": 1, "recipient_id": 2, "card_id": 3})

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, dto.ErrCodeNotOwned, decode(t, rec).Error.Code)
	})

	t.Run("trade", func(t *testing.T) {
		svc := new(MockExchangeAPI)
		svc.On("ProposeTrade", mock.Anything, appexchange.TradeRequest{
			ProposerID: 1, CounterpartyID: 2, OfferedCardID: 3, RequestedCardID: 4,
		}).Return(&appexchange.ProposalResponse{Token: testToken, Kind: "trade"}, nil)

		rec := serve(newExchangeRouter(svc), http.MethodPost, "/exchanges/trades",
			map[string]any{"proposer_id": 1, "counterparty_id": 2, "offered_card_id": 3, "requested_card_id": 4})

		assert.Equal(t, http.StatusCreated, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("purchase preview carries price", func(t *testing.T) {
		svc := new(MockExchangeAPI)
		svc.On("PreviewPurchase", mock.Anything, appexchange.PurchaseRequest{BuyerID: 5, CardID: 9}).
			Return(&appexchange.ProposalResponse{Token: testToken, Kind: "purchase", Price: 375000}, nil)

		rec := serve(newExchangeRouter(svc), http.MethodPost, "/exchanges/purchases",
			map[string]any{"buyer_id": 5, "card_id": 9})

		assert.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, int64(375000), decodeData[appexchange.ProposalResponse](t, rec).Price)
	})

	t.Run("transfer", func(t *testing.T) {
		svc := new(MockExchangeAPI)
		svc.On("ProposeTransfer", mock.Anything, appexchange.TransferRequest{IssuerID: 1, TargetID: 2, CardID: 3}).
			Return(&appexchange.ProposalResponse{Token: testToken, Kind: "transfer"}, nil)

		rec := serve(newExchangeRouter(svc), http.MethodPost, "/exchanges/transfers",
			map[string]any{"issuer_id": 1, "target_id": 2, "card_id": 3})

		assert.Equal(t, http.StatusCreated, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("transfer to a bot", func(t *testing.T) {
		svc := new(MockExchangeAPI)
		svc.On("ProposeTransfer", mock.Anything, mock.Anything).
			Return(nil, shared.ErrInvalidInput.WithMessage("target is a bot"))

		rec := serve(newExchangeRouter(svc), http.MethodPost, "/exchanges/transfers",
			map[string]any{"issuer_id": 1, "target_id": 2, "target_is_bot": true, "card_id": 3})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "target is a bot", decode(t, rec).Error.Message)
	})

	t.Run("reset by non admin", func(t *testing.T) {
		svc := new(MockExchangeAPI)
		svc.On("ProposeReset", mock.Anything, appexchange.ResetRequest{IssuerID: 9, TargetID: 2}).
			Return(nil, shared.ErrUnauthorized)

		rec := serve(newExchangeRouter(svc), http.MethodPost, "/exchanges/resets",
			map[string]any{"issuer_id": 9, "target_id": 2})

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("add card", func(t *testing.T) {
		svc := new(MockExchangeAPI)
		svc.On("ProposeAddCard", mock.Anything, appexchange.AddCardRequest{
			IssuerID: 1,
			Card: ledger.CardDraft{
				Name:        "Rem",
				Anime:       "Re:Zero",
				Rarity:      ledger.RarityCinematicLegend,
				MediaType:   ledger.MediaTypeVideo,
				MediaFileID: "BAACAgI",
			},
		}).Return(&appexchange.ProposalResponse{Token: testToken, Kind: "add_card"}, nil)

		rec := serve(newExchangeRouter(svc), http.MethodPost, "/exchanges/cards", map[string]any{
			"issuer_id":     1,
			"name":          "Rem",
			"anime":         "Re:Zero",
			"rarity":        "cinematic legend",
			"media_type":    "video",
			"media_file_id": "BAACAgI",
		})

		assert.Equal(t, http.StatusCreated, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("add card with unknown rarity", func(t *testing.T) {
		svc := new(MockExchangeAPI)

		rec := serve(newExchangeRouter(svc), http.MethodPost, "/exchanges/cards", map[string]any{
			"issuer_id":     1,
			"name":          "Rem",
			"anime":         "Re:Zero",
			"rarity":        "mythic",
			"media_type":    "photo",
			"media_file_id": "AgAC",
		})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, dto.ErrCodeUnknownRarity, decode(t, rec).Error.Code)
		svc.AssertNotCalled(t, "ProposeAddCard", mock.Anything, mock.Anything)
	})

	t.Run("malformed body", func(t *testing.T) {
		svc := new(MockExchangeAPI)

		rec := serve(newExchangeRouter(svc), http.MethodPost, "/exchanges/gifts", `{"sender_id":`)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, dto.ErrCodeInvalidJSON, decode(t, rec).Error.Code)
	})
}

func TestExchangeHandler_Lookup(t *testing.T) {
	t.Run("pending", func(t *testing.T) {
		svc := new(MockExchangeAPI)
		svc.On("Lookup", mock.Anything, testToken).
			Return(&appexchange.ProposalResponse{Token: testToken, Kind: "gift"}, nil)

		rec := serve(newExchangeRouter(svc), http.MethodGet, "/exchanges/"+testToken, nil)

		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("expired", func(t *testing.T) {
		svc := new(MockExchangeAPI)
		svc.On("Lookup", mock.Anything, testToken).Return(nil, shared.ErrExpired)

		rec := serve(newExchangeRouter(svc), http.MethodGet, "/exchanges/"+testToken, nil)

		assert.Equal(t, http.StatusGone, rec.Code)
		assert.Equal(t, dto.ErrCodeExpired, decode(t, rec).Error.Code)
	})

	t.Run("malformed token", func(t *testing.T) {
		svc := new(MockExchangeAPI)

		rec := serve(newExchangeRouter(svc), http.MethodGet, "/exchanges/xyz", nil)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		svc.AssertNotCalled(t, "Lookup", mock.Anything, mock.Anything)
	})
}

func TestExchangeHandler_Respond(t *testing.T) {
	t.Run("accept", func(t *testing.T) {
		svc := new(MockExchangeAPI)
		svc.On("Respond", mock.Anything, testToken, int64(2), true).
			Return(&appexchange.RespondResult{Token: testToken, Kind: "gift", Outcome: "accepted", UnitsMoved: 1}, nil)

		rec := serve(newExchangeRouter(svc), http.MethodPost, "/exchanges/"+testToken+"/accept",
			map[string]any{"responder_id": 2})

		assert.Equal(t, http.StatusOK, rec.Code)
		result := decodeData[appexchange.RespondResult](t, rec)
		assert.Equal(t, "accepted", result.Outcome)
		assert.Equal(t, int64(1), result.UnitsMoved)
		svc.AssertExpectations(t)
	})

	t.Run("decline", func(t *testing.T) {
		svc := new(MockExchangeAPI)
		svc.On("Respond", mock.Anything, testToken, int64(2), false).
			Return(&appexchange.RespondResult{Token: testToken, Kind: "trade", Outcome: "declined"}, nil)

		rec := serve(newExchangeRouter(svc), http.MethodPost, "/exchanges/"+testToken+"/decline",
			map[string]any{"responder_id": 2})

		assert.Equal(t, http.StatusOK, rec.Code)
		svc.AssertExpectations(t)
	})

	t.Run("wrong responder", func(t *testing.T) {
		svc := new(MockExchangeAPI)
		svc.On("Respond", mock.Anything, testToken, int64(3), true).Return(nil, shared.ErrUnauthorized)

		rec := serve(newExchangeRouter(svc), http.MethodPost, "/exchanges/"+testToken+"/accept",
			map[string]any{"responder_id": 3})

		assert.Equal(t, http.StatusForbidden, rec.Code)
	})

	t.Run("already consumed", func(t *testing.T) {
		svc := new(MockExchangeAPI)
		svc.On("Respond", mock.Anything, testToken, int64(2), true).Return(nil, shared.ErrConflict)

		rec := serve(newExchangeRouter(svc), http.MethodPost, "/exchanges/"+testToken+"/accept",
			map[string]any{"responder_id": 2})

		assert.Equal(t, http.StatusConflict, rec.Code)
		assert.Equal(t, dto.ErrCodeConflict, decode(t, rec).Error.Code)
	})

	t.Run("insufficient funds at execution", func(t *testing.T) {
		svc := new(MockExchangeAPI)
		svc.On("Respond", mock.Anything, testToken, int64(5), true).Return(nil, shared.ErrInsufficientFunds)

		rec := serve(newExchangeRouter(svc), http.MethodPost, "/exchanges/"+testToken+"/accept",
			map[string]any{"responder_id": 5})

		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		assert.Equal(t, dto.ErrCodeInsufficientFunds, decode(t, rec).Error.Code)
	})

	t.Run("missing responder", func(t *testing.T) {
		svc := new(MockExchangeAPI)

		rec := serve(newExchangeRouter(svc), http.MethodPost, "/exchanges/"+testToken+"/accept", map[string]any{})

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		require.NotEmpty(t, decode(t, rec).Error.Details)
	})
}
