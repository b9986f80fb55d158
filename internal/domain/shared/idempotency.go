package shared

import (
	"context"
	"time"
)

// DefaultDedupWindow is how long a processed key is remembered when the
// caller does not say otherwise. It comfortably outlives a chat callback's
// redelivery window.
const DefaultDedupWindow = 24 * time.Hour

// IdempotencyStore remembers keys that were already processed.
// Event handlers key it by event id, the HTTP layer by the chat callback id.
type IdempotencyStore interface {
	// MarkProcessed records key for ttl. It reports false when key was
	// already recorded; the check and the write are one atomic step.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	Close() error
}
