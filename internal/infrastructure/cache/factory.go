package cache

import (
	"fmt"

	"github.com/waifubot/backend/internal/domain/shared"
	"github.com/waifubot/backend/internal/infrastructure/config"
	"go.uber.org/zap"
)

// IdempotencyStoreFactory creates idempotency stores based on configuration
type IdempotencyStoreFactory struct {
	redisConfig           config.RedisConfig
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// IdempotencyStoreFactoryOption is a functional option for configuring the factory
type IdempotencyStoreFactoryOption func(*IdempotencyStoreFactory)

// WithLogger sets the logger for the factory
func WithLogger(logger *zap.Logger) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable Redis degrades to the
// in-memory store. Default is true.
func WithInMemoryFallback(allow bool) IdempotencyStoreFactoryOption {
	return func(f *IdempotencyStoreFactory) {
		f.allowInMemoryFallback = allow
	}
}

// NewIdempotencyStoreFactory creates a new factory
func NewIdempotencyStoreFactory(cfg config.RedisConfig, opts ...IdempotencyStoreFactoryOption) *IdempotencyStoreFactory {
	f := &IdempotencyStoreFactory{
		redisConfig:           cfg,
		logger:                zap.NewNop(),
		allowInMemoryFallback: true,
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// CreateStore returns the in-memory store when Redis is disabled. Otherwise
// it returns Redis behind a circuit breaker that falls back to memory. If
// Redis cannot be reached at startup and fallback is allowed, the in-memory
// store is used alone.
func (f *IdempotencyStoreFactory) CreateStore() (shared.IdempotencyStore, error) {
	if !f.redisConfig.Enabled {
		f.logger.Info("redis disabled, using in-memory idempotency store")
		return NewInMemoryIdempotencyStore(), nil
	}

	redisStore, err := NewRedisIdempotencyStore(f.redisConfig)
	if err != nil {
		if !f.allowInMemoryFallback {
			return nil, fmt.Errorf("redis required for idempotency but unavailable: %w", err)
		}
		f.logger.Warn("redis unavailable, falling back to in-memory idempotency store", zap.Error(err))
		return NewInMemoryIdempotencyStore(), nil
	}

	f.logger.Info("using redis idempotency store", zap.String("addr", f.redisConfig.Addr()))
	return NewBreakerIdempotencyStore(redisStore, NewInMemoryIdempotencyStore(), BreakerSettings{
		ConsecutiveFailures: uint32(f.redisConfig.BreakerFailures),
		Timeout:             f.redisConfig.BreakerTimeout,
	}, f.logger), nil
}
