package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	appexchange "github.com/waifubot/backend/internal/application/exchange"
	"github.com/waifubot/backend/internal/interfaces/http/dto"
)

// ExchangeAPI is the subset of the exchange service served over HTTP
type ExchangeAPI interface {
	ProposeGift(ctx context.Context, req appexchange.GiftRequest) (*appexchange.ProposalResponse, error)
	ProposeTrade(ctx context.Context, req appexchange.TradeRequest) (*appexchange.ProposalResponse, error)
	PreviewPurchase(ctx context.Context, req appexchange.PurchaseRequest) (*appexchange.ProposalResponse, error)
	ProposeTransfer(ctx context.Context, req appexchange.TransferRequest) (*appexchange.ProposalResponse, error)
	ProposeReset(ctx context.Context, req appexchange.ResetRequest) (*appexchange.ProposalResponse, error)
	ProposeAddCard(ctx context.Context, req appexchange.AddCardRequest) (*appexchange.ProposalResponse, error)
	Lookup(ctx context.Context, token string) (*appexchange.ProposalResponse, error)
	Respond(ctx context.Context, token string, responderID int64, accept bool) (*appexchange.RespondResult, error)
}

// ExchangeHandler serves proposal creation and resolution
type ExchangeHandler struct {
	BaseHandler
	exchangeService ExchangeAPI
}

// NewExchangeHandler creates a new ExchangeHandler
func NewExchangeHandler(exchangeService ExchangeAPI) *ExchangeHandler {
	return &ExchangeHandler{exchangeService: exchangeService}
}

// ProposeGift godoc
// @Summary      Propose a gift
// @Description  Offer one unit of an owned card to another account. The recipient must accept before the unit moves.
// @Tags         exchanges
// @Accept       json
// @Produce      json
// @Param        request body dto.GiftRequest true "Gift proposal"
// @Success      201 {object} dto.Response{data=appexchange.ProposalResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /exchanges/gifts [post]
func (h *ExchangeHandler) ProposeGift(c *gin.Context) {
	var req dto.GiftRequest
	if !bindJSON(c, &req) {
		return
	}

	proposal, err := h.exchangeService.ProposeGift(c.Request.Context(), req.ToAppRequest())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, proposal)
}

// ProposeTrade godoc
// @Summary      Propose a trade
// @Description  Offer one owned card for one card held by the counterparty. Both cards must differ.
// @Tags         exchanges
// @Accept       json
// @Produce      json
// @Param        request body dto.TradeRequest true "Trade proposal"
// @Success      201 {object} dto.Response{data=appexchange.ProposalResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /exchanges/trades [post]
func (h *ExchangeHandler) ProposeTrade(c *gin.Context) {
	var req dto.TradeRequest
	if !bindJSON(c, &req) {
		return
	}

	proposal, err := h.exchangeService.ProposeTrade(c.Request.Context(), req.ToAppRequest())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, proposal)
}

// PreviewPurchase godoc
// @Summary      Preview a marketplace purchase
// @Description  Quote the price of a card and hold the offer until the buyer confirms it.
// @Tags         exchanges
// @Accept       json
// @Produce      json
// @Param        request body dto.PurchaseRequest true "Purchase preview"
// @Success      201 {object} dto.Response{data=appexchange.ProposalResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /exchanges/purchases [post]
func (h *ExchangeHandler) PreviewPurchase(c *gin.Context) {
	var req dto.PurchaseRequest
	if !bindJSON(c, &req) {
		return
	}

	proposal, err := h.exchangeService.PreviewPurchase(c.Request.Context(), req.ToAppRequest())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, proposal)
}

// ProposeTransfer godoc
// @Summary      Propose an admin transfer
// @Description  Move one unit between two accounts on behalf of a moderator. The moderator confirms the proposal.
// @Tags         exchanges
// @Accept       json
// @Produce      json
// @Param        request body dto.TransferRequest true "Admin transfer"
// @Success      201 {object} dto.Response{data=appexchange.ProposalResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /exchanges/transfers [post]
func (h *ExchangeHandler) ProposeTransfer(c *gin.Context) {
	var req dto.TransferRequest
	if !bindJSON(c, &req) {
		return
	}

	proposal, err := h.exchangeService.ProposeTransfer(c.Request.Context(), req.ToAppRequest())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, proposal)
}

// ProposeReset godoc
// @Summary      Propose an account reset
// @Description  Wipe every inventory unit of an account once a moderator confirms.
// @Tags         exchanges
// @Accept       json
// @Produce      json
// @Param        request body dto.ResetRequest true "Account reset"
// @Success      201 {object} dto.Response{data=appexchange.ProposalResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /exchanges/resets [post]
func (h *ExchangeHandler) ProposeReset(c *gin.Context) {
	var req dto.ResetRequest
	if !bindJSON(c, &req) {
		return
	}

	proposal, err := h.exchangeService.ProposeReset(c.Request.Context(), req.ToAppRequest())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, proposal)
}

// ProposeAddCard godoc
// @Summary      Propose a new catalog card
// @Description  Stage a card for the catalog. It is inserted once a moderator confirms.
// @Tags         exchanges
// @Accept       json
// @Produce      json
// @Param        request body dto.AddCardRequest true "Card definition"
// @Success      201 {object} dto.Response{data=appexchange.ProposalResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      409 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /exchanges/cards [post]
func (h *ExchangeHandler) ProposeAddCard(c *gin.Context) {
	var req dto.AddCardRequest
	if !bindJSON(c, &req) {
		return
	}
	appReq, err := req.ToAppRequest()
	if err != nil {
		h.HandleError(c, err)
		return
	}

	proposal, err := h.exchangeService.ProposeAddCard(c.Request.Context(), appReq)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, proposal)
}

// Lookup godoc
// @Summary      Get a pending proposal
// @Description  Retrieve a proposal that is still waiting for its responder
// @Tags         exchanges
// @Produce      json
// @Param        token path string true "Proposal token"
// @Success      200 {object} dto.Response{data=appexchange.ProposalResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /exchanges/{token} [get]
func (h *ExchangeHandler) Lookup(c *gin.Context) {
	var uri dto.TokenURI
	if !bindURI(c, &uri) {
		return
	}

	proposal, err := h.exchangeService.Lookup(c.Request.Context(), uri.Token)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, proposal)
}

// Accept godoc
// @Summary      Accept a proposal
// @Description  Resolve a proposal as accepted and apply its transfer. Only the designated responder may accept.
// @Tags         exchanges
// @Accept       json
// @Produce      json
// @Param        token path string true "Proposal token"
// @Param        Idempotency-Key header string false "Replay key for gateway retries"
// @Param        request body dto.RespondRequest true "Responder"
// @Success      200 {object} dto.Response{data=appexchange.RespondResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /exchanges/{token}/accept [post]
func (h *ExchangeHandler) Accept(c *gin.Context) {
	h.respond(c, true)
}

// Decline godoc
// @Summary      Decline a proposal
// @Description  Resolve a proposal as declined. Nothing moves.
// @Tags         exchanges
// @Accept       json
// @Produce      json
// @Param        token path string true "Proposal token"
// @Param        Idempotency-Key header string false "Replay key for gateway retries"
// @Param        request body dto.RespondRequest true "Responder"
// @Success      200 {object} dto.Response{data=appexchange.RespondResult}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      403 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /exchanges/{token}/decline [post]
func (h *ExchangeHandler) Decline(c *gin.Context) {
	h.respond(c, false)
}

func (h *ExchangeHandler) respond(c *gin.Context, accept bool) {
	var uri dto.TokenURI
	if !bindURI(c, &uri) {
		return
	}
	var req dto.RespondRequest
	if !bindJSON(c, &req) {
		return
	}

	result, err := h.exchangeService.Respond(c.Request.Context(), uri.Token, req.ResponderID, accept)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}
