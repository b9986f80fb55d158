package event

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/waifubot/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// DedupCounters tallies what idempotent handlers did with each delivery.
// One instance may be shared between handlers.
type DedupCounters struct {
	handled     atomic.Int64
	skipped     atomic.Int64
	failed      atomic.Int64
	storeErrors atomic.Int64
}

// DedupStats is a point-in-time copy of DedupCounters
type DedupStats struct {
	Handled     int64 `json:"handled"`
	Skipped     int64 `json:"skipped"`
	Failed      int64 `json:"failed"`
	StoreErrors int64 `json:"store_errors"`
}

func (c *DedupCounters) Stats() DedupStats {
	return DedupStats{
		Handled:     c.handled.Load(),
		Skipped:     c.skipped.Load(),
		Failed:      c.failed.Load(),
		StoreErrors: c.storeErrors.Load(),
	}
}

// IdempotentHandler delivers each event id to the wrapped handler at most
// once per TTL. The audit log relies on it so a replayed publish does not
// write a second row.
type IdempotentHandler struct {
	next     shared.EventHandler
	store    shared.IdempotencyStore
	logger   *zap.Logger
	ttl      time.Duration
	prefix   string
	counters *DedupCounters
}

// IdempotentHandlerOption configures an IdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithTTL sets how long handled event ids are remembered
func WithTTL(ttl time.Duration) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		if ttl > 0 {
			h.ttl = ttl
		}
	}
}

// WithKeyPrefix namespaces one handler's keys, letting two handlers sharing
// a store each see the same event once
func WithKeyPrefix(prefix string) IdempotentHandlerOption {
	return func(h *IdempotentHandler) { h.prefix = prefix }
}

// WithCounters reports into a shared DedupCounters
func WithCounters(c *DedupCounters) IdempotentHandlerOption {
	return func(h *IdempotentHandler) { h.counters = c }
}

func NewIdempotentHandler(next shared.EventHandler, store shared.IdempotencyStore, logger *zap.Logger, opts ...IdempotentHandlerOption) *IdempotentHandler {
	h := &IdempotentHandler{
		next:     next,
		store:    store,
		logger:   logger,
		ttl:      shared.DefaultDedupWindow,
		counters: &DedupCounters{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *IdempotentHandler) EventTypes() []string {
	return h.next.EventTypes()
}

// Handle claims the event id before delivering. A store failure does not
// block delivery: a possible duplicate audit row beats a lost one.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	id := event.EventID().String()
	first, err := h.store.MarkProcessed(ctx, h.prefix+id, h.ttl)
	if err != nil {
		h.counters.storeErrors.Add(1)
		h.logger.Warn("dedup store unavailable, delivering event",
			zap.String("event_id", id), zap.String("event_type", event.EventType()), zap.Error(err))
	} else if !first {
		h.counters.skipped.Add(1)
		h.logger.Debug("duplicate event skipped",
			zap.String("event_id", id), zap.String("event_type", event.EventType()))
		return nil
	}

	// the id stays claimed on failure; the bus does not redeliver
	if err := h.next.Handle(ctx, event); err != nil {
		h.counters.failed.Add(1)
		return err
	}
	h.counters.handled.Add(1)
	return nil
}

// Counters returns the counters this handler reports into
func (h *IdempotentHandler) Counters() *DedupCounters {
	return h.counters
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
