package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/waifubot/backend/internal/infrastructure/logger"
	"github.com/waifubot/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

// Pinger checks a backing store
type Pinger interface {
	Ping() error
}

// PendingCounter reports how many proposals the broker holds
type PendingCounter interface {
	Len() int
}

// HealthHandler serves liveness and basic process information
type HealthHandler struct {
	BaseHandler
	db        Pinger
	pending   PendingCounter
	version   string
	startTime time.Time
}

// NewHealthHandler creates a HealthHandler. pending may be nil.
func NewHealthHandler(db Pinger, pending PendingCounter, version string) *HealthHandler {
	return &HealthHandler{
		db:        db,
		pending:   pending,
		version:   version,
		startTime: time.Now(),
	}
}

// HealthResponse is the body of GET /health
type HealthResponse struct {
	Status           string `json:"status"`
	Database         string `json:"database"`
	Version          string `json:"version"`
	GoVersion        string `json:"go_version"`
	Uptime           string `json:"uptime"`
	PendingExchanges *int   `json:"pending_exchanges,omitempty"`
}

// Health godoc
// @Summary      Health check
// @Description  Report database connectivity, uptime and the number of pending exchanges
// @Tags         health
// @Produce      json
// @Success      200 {object} dto.Response{data=HealthResponse}
// @Failure      503 {object} dto.Response{data=HealthResponse}
// @Router       /health [get]
func (h *HealthHandler) Health(c *gin.Context) {
	resp := HealthResponse{
		Status:    "healthy",
		Database:  "connected",
		Version:   h.version,
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	}
	if h.pending != nil {
		n := h.pending.Len()
		resp.PendingExchanges = &n
	}

	if err := h.db.Ping(); err != nil {
		logger.L(c.Request.Context()).Warn("Health check failed", zap.Error(err))
		resp.Status = "unhealthy"
		resp.Database = "disconnected"
		c.JSON(http.StatusServiceUnavailable, dto.Response{Success: false, Data: resp})
		return
	}
	h.Success(c, resp)
}
