package middleware

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/waifubot/backend/internal/domain/shared"
	"github.com/waifubot/backend/internal/interfaces/http/dto"
	"go.uber.org/zap"
)

const (
	// IdempotencyKeyHeader carries the chat callback id of a button press
	IdempotencyKeyHeader = "Idempotency-Key"
	// MaxIdempotencyKeyLength bounds client supplied keys
	MaxIdempotencyKeyLength = 128

	idempotencyKeyPrefix = "http:"
)

// Idempotency answers a redelivered request with 409 ERR_DUPLICATE_REQUEST.
// A key is remembered once its request finished below 500, so a failed
// attempt can be retried. Requests without the header pass through, and a
// store outage is logged and tolerated.
func Idempotency(store shared.IdempotencyStore, ttl time.Duration, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if ttl <= 0 {
		ttl = shared.DefaultDedupWindow
	}

	return func(c *gin.Context) {
		key := c.GetHeader(IdempotencyKeyHeader)
		if key == "" {
			c.Next()
			return
		}
		if len(key) > MaxIdempotencyKeyLength {
			c.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeBadRequest, "Idempotency-Key is too long", GetRequestID(c)))
			return
		}

		ctx := c.Request.Context()
		storeKey := idempotencyKeyPrefix + GetGateway(c) + ":" + key

		processed, err := store.IsProcessed(ctx, storeKey)
		if err != nil {
			logger.Warn("Idempotency check failed, processing request", zap.String("key", key), zap.Error(err))
		} else if processed {
			logger.Info("Duplicate request rejected", zap.String("key", key))
			c.AbortWithStatusJSON(http.StatusConflict, dto.NewErrorResponseWithRequestID(
				dto.ErrCodeDuplicateRequest, "Request was already processed", GetRequestID(c)))
			return
		}

		c.Next()

		if c.Writer.Status() >= http.StatusInternalServerError {
			return
		}
		if _, err := store.MarkProcessed(ctx, storeKey, ttl); err != nil {
			logger.Warn("Failed to record idempotency key", zap.String("key", key), zap.Error(err))
		}
	}
}
