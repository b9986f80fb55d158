package router

import (
	"github.com/gin-gonic/gin"
	"github.com/waifubot/backend/internal/interfaces/http/handler"
)

// Handlers bundles the HTTP handlers of the API
type Handlers struct {
	Ledger   *handler.LedgerHandler
	Exchange *handler.ExchangeHandler
	Health   *handler.HealthHandler
}

// AccountRoutes serves balances, rewards and inventories
func AccountRoutes(h *handler.LedgerHandler) *DomainGroup {
	g := NewDomainGroup("accounts", "/accounts")
	g.GET("/:id/balance", h.GetBalance)
	g.POST("/:id/balance/adjust", h.AdjustBalance)
	g.POST("/:id/rewards/:category/claim", h.ClaimReward)
	g.GET("/:id/inventory", h.ListInventory)
	g.GET("/:id/inventory/:card_id", h.GetInventoryCount)
	g.GET("/:id/history", h.ListHistory)
	return g
}

// CardRoutes serves the card catalog
func CardRoutes(h *handler.LedgerHandler) *DomainGroup {
	g := NewDomainGroup("cards", "/cards")
	g.GET("", h.ListCards)
	g.GET("/:id", h.GetCard)
	return g
}

// ExchangeRoutes serves proposals. respondMiddleware runs before accept and
// decline only.
func ExchangeRoutes(h *handler.ExchangeHandler, respondMiddleware ...gin.HandlerFunc) *DomainGroup {
	g := NewDomainGroup("exchanges", "/exchanges")
	g.POST("/gifts", h.ProposeGift)
	g.POST("/trades", h.ProposeTrade)
	g.POST("/purchases", h.PreviewPurchase)
	g.POST("/transfers", h.ProposeTransfer)
	g.POST("/resets", h.ProposeReset)
	g.POST("/cards", h.ProposeAddCard)
	g.GET("/:token", h.Lookup)

	respond := g.With(respondMiddleware...)
	respond.POST("/:token/accept", h.Accept)
	respond.POST("/:token/decline", h.Decline)
	return g
}

// HealthRoutes serves the health check inside the versioned API
func HealthRoutes(h *handler.HealthHandler) *DomainGroup {
	return NewDomainGroup("health", "/health").GET("", h.Health)
}

// RegisterAPI mounts every API group on r and the root /health check on the engine
func RegisterAPI(r *Router, h Handlers, respondMiddleware ...gin.HandlerFunc) {
	r.engine.GET("/health", h.Health.Health)
	r.Register(
		HealthRoutes(h.Health),
		AccountRoutes(h.Ledger),
		CardRoutes(h.Ledger),
		ExchangeRoutes(h.Exchange, respondMiddleware...),
	)
	r.Setup()
}
