package cache

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"github.com/waifubot/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// BreakerSettings tunes the circuit breaker around the primary store
type BreakerSettings struct {
	// ConsecutiveFailures opens the breaker
	ConsecutiveFailures uint32
	// Timeout is how long the breaker stays open before probing again
	Timeout time.Duration
}

// BreakerIdempotencyStore guards a primary store, usually Redis, with a
// circuit breaker. While the primary fails or the breaker is open, calls go
// to the fallback store.
type BreakerIdempotencyStore struct {
	primary  shared.IdempotencyStore
	fallback shared.IdempotencyStore
	breaker  *gobreaker.CircuitBreaker
	logger   *zap.Logger
}

// NewBreakerIdempotencyStore wraps primary and fallback
func NewBreakerIdempotencyStore(primary, fallback shared.IdempotencyStore, settings BreakerSettings, logger *zap.Logger) *BreakerIdempotencyStore {
	if settings.ConsecutiveFailures == 0 {
		settings.ConsecutiveFailures = 5
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	s := &BreakerIdempotencyStore{
		primary:  primary,
		fallback: fallback,
		logger:   logger,
	}
	s.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "idempotency-store",
		MaxRequests: 1,
		Timeout:     settings.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= settings.ConsecutiveFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("idempotency store breaker changed state",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})
	return s
}

// MarkProcessed records the key in the primary, or the fallback when the
// primary is unavailable
func (s *BreakerIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	result, err := s.breaker.Execute(func() (any, error) {
		return s.primary.MarkProcessed(ctx, key, ttl)
	})
	if err == nil {
		return result.(bool), nil
	}
	s.logFallback("mark_processed", err)
	return s.fallback.MarkProcessed(ctx, key, ttl)
}

// IsProcessed checks the primary, or the fallback when the primary is unavailable
func (s *BreakerIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	result, err := s.breaker.Execute(func() (any, error) {
		return s.primary.IsProcessed(ctx, key)
	})
	if err == nil {
		return result.(bool), nil
	}
	s.logFallback("is_processed", err)
	return s.fallback.IsProcessed(ctx, key)
}

// State returns the breaker state
func (s *BreakerIdempotencyStore) State() gobreaker.State {
	return s.breaker.State()
}

// Close closes both stores
func (s *BreakerIdempotencyStore) Close() error {
	return errors.Join(s.primary.Close(), s.fallback.Close())
}

func (s *BreakerIdempotencyStore) logFallback(op string, err error) {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		s.logger.Debug("idempotency breaker open, using fallback", zap.String("op", op))
		return
	}
	s.logger.Warn("idempotency primary failed, using fallback", zap.String("op", op), zap.Error(err))
}

// Ensure BreakerIdempotencyStore implements IdempotencyStore
var _ shared.IdempotencyStore = (*BreakerIdempotencyStore)(nil)
