package handler

import (
	"context"

	"github.com/gin-gonic/gin"
	appexchange "github.com/waifubot/backend/internal/application/exchange"
	"github.com/waifubot/backend/internal/domain/ledger"
	"github.com/waifubot/backend/internal/domain/shared"
	"github.com/waifubot/backend/internal/interfaces/http/dto"
)

// LedgerAPI is the subset of the ledger service served over HTTP
type LedgerAPI interface {
	GetBalance(ctx context.Context, accountID int64) (*appexchange.BalanceResponse, error)
	AdjustBalance(ctx context.Context, accountID int64, req appexchange.AdjustBalanceRequest) (*appexchange.BalanceResponse, error)
	ClaimReward(ctx context.Context, accountID int64, category string) (*appexchange.RewardClaimResponse, error)
	GetInventoryCount(ctx context.Context, accountID, cardID int64) (*appexchange.InventoryCountResponse, error)
	ListInventory(ctx context.Context, accountID int64, filter shared.Filter) (shared.Paginated[appexchange.InventoryEntryResponse], error)
	ListHistory(ctx context.Context, accountID int64, filter shared.Filter) (shared.Paginated[appexchange.HistoryEntryResponse], error)
	GetCard(ctx context.Context, cardID int64) (*appexchange.CardResponse, error)
	ListCards(ctx context.Context, rarity ledger.Rarity, filter shared.Filter) (shared.Paginated[appexchange.CardResponse], error)
}

// LedgerHandler serves account balances, inventories and the card catalog
type LedgerHandler struct {
	BaseHandler
	ledgerService LedgerAPI
}

// NewLedgerHandler creates a new LedgerHandler
func NewLedgerHandler(ledgerService LedgerAPI) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService}
}

// GetBalance godoc
// @Summary      Get account balance
// @Description  Return the crystal balance of an account, creating the account on first sight
// @Tags         accounts
// @Produce      json
// @Param        id path int true "Account ID"
// @Success      200 {object} dto.Response{data=appexchange.BalanceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /accounts/{id}/balance [get]
func (h *LedgerHandler) GetBalance(c *gin.Context) {
	var uri dto.AccountURI
	if !bindURI(c, &uri) {
		return
	}

	balance, err := h.ledgerService.GetBalance(c.Request.Context(), uri.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balance)
}

// AdjustBalance godoc
// @Summary      Adjust account balance
// @Description  Credit or debit crystals. A debit never takes the balance below zero.
// @Tags         accounts
// @Accept       json
// @Produce      json
// @Param        id path int true "Account ID"
// @Param        request body dto.AdjustBalanceRequest true "Signed amount"
// @Success      200 {object} dto.Response{data=appexchange.BalanceResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /accounts/{id}/balance/adjust [post]
func (h *LedgerHandler) AdjustBalance(c *gin.Context) {
	var uri dto.AccountURI
	if !bindURI(c, &uri) {
		return
	}
	var req dto.AdjustBalanceRequest
	if !bindJSON(c, &req) {
		return
	}

	balance, err := h.ledgerService.AdjustBalance(c.Request.Context(), uri.ID, req.ToAppRequest())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, balance)
}

// ClaimReward godoc
// @Summary      Claim a periodic reward
// @Description  Pay a crystal reward (daily, weekly, monthly) or draw a card reward (claim, craft, marry) when its cooldown has elapsed
// @Tags         accounts
// @Produce      json
// @Param        id path int true "Account ID"
// @Param        category path string true "Reward category" Enums(daily, weekly, monthly, claim, craft, marry)
// @Success      200 {object} dto.Response{data=appexchange.RewardClaimResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      422 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /accounts/{id}/rewards/{category}/claim [post]
func (h *LedgerHandler) ClaimReward(c *gin.Context) {
	var uri dto.RewardURI
	if !bindURI(c, &uri) {
		return
	}

	result, err := h.ledgerService.ClaimReward(c.Request.Context(), uri.ID, uri.Category)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, result)
}

// ListInventory godoc
// @Summary      List inventory
// @Description  List the cards an account holds with their unit counts
// @Tags         accounts
// @Produce      json
// @Param        id path int true "Account ID"
// @Param        page query int false "Page number" minimum(1)
// @Param        page_size query int false "Items per page" minimum(1) maximum(100)
// @Success      200 {object} dto.Response{data=[]appexchange.InventoryEntryResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /accounts/{id}/inventory [get]
func (h *LedgerHandler) ListInventory(c *gin.Context) {
	var uri dto.AccountURI
	if !bindURI(c, &uri) {
		return
	}
	var query dto.ListQuery
	if !bindQuery(c, &query) {
		return
	}

	page, err := h.ledgerService.ListInventory(c.Request.Context(), uri.ID, query.ToFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// ListHistory godoc
// @Summary      List exchange history
// @Description  List the audited exchanges an account took part in, newest first
// @Tags         accounts
// @Produce      json
// @Param        id path int true "Account ID"
// @Param        page query int false "Page number" minimum(1)
// @Param        page_size query int false "Items per page" minimum(1) maximum(100)
// @Success      200 {object} dto.Response{data=[]appexchange.HistoryEntryResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /accounts/{id}/history [get]
func (h *LedgerHandler) ListHistory(c *gin.Context) {
	var uri dto.AccountURI
	if !bindURI(c, &uri) {
		return
	}
	var query dto.ListQuery
	if !bindQuery(c, &query) {
		return
	}

	page, err := h.ledgerService.ListHistory(c.Request.Context(), uri.ID, query.ToFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}

// GetInventoryCount godoc
// @Summary      Count held units
// @Description  Return how many units of one card an account holds
// @Tags         accounts
// @Produce      json
// @Param        id path int true "Account ID"
// @Param        card_id path int true "Card ID"
// @Success      200 {object} dto.Response{data=appexchange.InventoryCountResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /accounts/{id}/inventory/{card_id} [get]
func (h *LedgerHandler) GetInventoryCount(c *gin.Context) {
	var uri dto.InventoryCardURI
	if !bindURI(c, &uri) {
		return
	}

	count, err := h.ledgerService.GetInventoryCount(c.Request.Context(), uri.ID, uri.CardID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, count)
}

// GetCard godoc
// @Summary      Get card
// @Description  Retrieve a catalog card by its ID
// @Tags         cards
// @Produce      json
// @Param        id path int true "Card ID"
// @Success      200 {object} dto.Response{data=appexchange.CardResponse}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      404 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /cards/{id} [get]
func (h *LedgerHandler) GetCard(c *gin.Context) {
	var uri dto.CardURI
	if !bindURI(c, &uri) {
		return
	}

	card, err := h.ledgerService.GetCard(c.Request.Context(), uri.ID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, card)
}

// ListCards godoc
// @Summary      List cards
// @Description  List the catalog with optional rarity filter and ordering
// @Tags         cards
// @Produce      json
// @Param        rarity query string false "Rarity name"
// @Param        order_by query string false "Sort field" Enums(id, name, anime, rarity_rank, created_at)
// @Param        order_dir query string false "Sort direction" Enums(asc, desc)
// @Param        page query int false "Page number" minimum(1)
// @Param        page_size query int false "Items per page" minimum(1) maximum(100)
// @Success      200 {object} dto.Response{data=[]appexchange.CardResponse,meta=dto.Meta}
// @Failure      400 {object} dto.Response{error=dto.ErrorInfo}
// @Failure      401 {object} dto.Response{error=dto.ErrorInfo}
// @Security     BearerAuth
// @Router       /cards [get]
func (h *LedgerHandler) ListCards(c *gin.Context) {
	var query dto.CardListQuery
	if !bindQuery(c, &query) {
		return
	}

	var rarity ledger.Rarity
	if query.Rarity != "" {
		parsed, err := ledger.ParseRarity(query.Rarity)
		if err != nil {
			h.HandleError(c, err)
			return
		}
		rarity = parsed
	}

	page, err := h.ledgerService.ListCards(c.Request.Context(), rarity, query.ToFilter())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, page.Items, page.Total, page.Page, page.PageSize)
}
