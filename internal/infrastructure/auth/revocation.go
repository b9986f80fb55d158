package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/waifubot/backend/internal/domain/shared"
	"github.com/waifubot/backend/internal/infrastructure/config"
)

// DefaultRevocationKeyPrefix namespaces revocation keys in Redis
const DefaultRevocationKeyPrefix = "waifu:revoked:"

// RevocationList rejects gateway tokens before they expire, either one token
// at a time by its jti or every token a gateway was issued up to a moment
type RevocationList interface {
	// Revoke rejects the token with this jti. ttl should cover the token's remaining lifetime.
	Revoke(ctx context.Context, jti string, ttl time.Duration) error

	// IsRevoked reports whether the jti was revoked
	IsRevoked(ctx context.Context, jti string) (bool, error)

	// RevokeGateway rejects every token issued to gateway up to now
	RevokeGateway(ctx context.Context, gateway string, ttl time.Duration) error

	// IsGatewayRevoked reports whether a token issued at issuedAt predates the gateway's revocation
	IsGatewayRevoked(ctx context.Context, gateway string, issuedAt time.Time) (bool, error)
}

// RedisRevocationList stores revocations in Redis so every API instance sees them
type RedisRevocationList struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisRevocationList connects to Redis and verifies the connection
func NewRedisRevocationList(cfg config.RedisConfig) (*RedisRevocationList, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Addr(),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis for token revocation: %w", err)
	}
	return NewRedisRevocationListWithClient(client), nil
}

// NewRedisRevocationListWithClient uses an existing client
func NewRedisRevocationListWithClient(client *redis.Client) *RedisRevocationList {
	return &RedisRevocationList{client: client, keyPrefix: DefaultRevocationKeyPrefix}
}

func (r *RedisRevocationList) jtiKey(jti string) string {
	return r.keyPrefix + "jti:" + jti
}

func (r *RedisRevocationList) gatewayKey(gateway string) string {
	return r.keyPrefix + "gateway:" + gateway
}

// Revoke stores the jti until ttl elapses
func (r *RedisRevocationList) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.jtiKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked checks for the jti key
func (r *RedisRevocationList) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := r.client.Exists(ctx, r.jtiKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}

// RevokeGateway stores the current unix time as the gateway's cutoff
func (r *RedisRevocationList) RevokeGateway(ctx context.Context, gateway string, ttl time.Duration) error {
	if err := r.client.Set(ctx, r.gatewayKey(gateway), time.Now().Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke gateway tokens: %w", err)
	}
	return nil
}

// IsGatewayRevoked compares issuedAt with the stored cutoff
func (r *RedisRevocationList) IsGatewayRevoked(ctx context.Context, gateway string, issuedAt time.Time) (bool, error) {
	raw, err := r.client.Get(ctx, r.gatewayKey(gateway)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check gateway revocation: %w", err)
	}
	cutoff, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("failed to parse revocation cutoff: %w", err)
	}
	return issuedAt.Unix() <= cutoff, nil
}

// Close closes the Redis client
func (r *RedisRevocationList) Close() error {
	return r.client.Close()
}

var _ RevocationList = (*RedisRevocationList)(nil)

// InMemoryRevocationList keeps revocations in process memory. Single instance only.
type InMemoryRevocationList struct {
	mu       sync.Mutex
	clock    shared.Clock
	tokens   map[string]time.Time // jti -> entry expiry
	gateways map[string]time.Time // gateway -> cutoff
}

// NewInMemoryRevocationList creates an empty list
func NewInMemoryRevocationList() *InMemoryRevocationList {
	return NewInMemoryRevocationListWithClock(shared.SystemClock{})
}

// NewInMemoryRevocationListWithClock creates an empty list reading time from clock
func NewInMemoryRevocationListWithClock(clock shared.Clock) *InMemoryRevocationList {
	return &InMemoryRevocationList{
		clock:    clock,
		tokens:   make(map[string]time.Time),
		gateways: make(map[string]time.Time),
	}
}

// Revoke records the jti until ttl elapses
func (r *InMemoryRevocationList) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tokens[jti] = r.clock.Now().Add(ttl)
	return nil
}

// IsRevoked reports a live entry and drops a stale one
func (r *InMemoryRevocationList) IsRevoked(_ context.Context, jti string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	until, ok := r.tokens[jti]
	if !ok {
		return false, nil
	}
	if r.clock.Now().After(until) {
		delete(r.tokens, jti)
		return false, nil
	}
	return true, nil
}

// RevokeGateway records now as the gateway's cutoff
func (r *InMemoryRevocationList) RevokeGateway(_ context.Context, gateway string, _ time.Duration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[gateway] = r.clock.Now()
	return nil
}

// IsGatewayRevoked compares issuedAt with the cutoff
func (r *InMemoryRevocationList) IsGatewayRevoked(_ context.Context, gateway string, issuedAt time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	cutoff, ok := r.gateways[gateway]
	if !ok {
		return false, nil
	}
	return !issuedAt.After(cutoff), nil
}

var _ RevocationList = (*InMemoryRevocationList)(nil)
