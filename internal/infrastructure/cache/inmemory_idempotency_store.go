package cache

import (
	"context"
	"sync"
	"time"

	"github.com/waifubot/backend/internal/domain/shared"
)

// DefaultIdempotencyCleanupInterval is how often expired keys are dropped
const DefaultIdempotencyCleanupInterval = 5 * time.Minute

// InMemoryIdempotencyStore implements shared.IdempotencyStore with a map of
// key to expiry. State is per process.
type InMemoryIdempotencyStore struct {
	mu        sync.RWMutex
	expiry    map[string]time.Time
	clock     shared.Clock
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryIdempotencyStore creates a store and starts its cleanup goroutine
func NewInMemoryIdempotencyStore() *InMemoryIdempotencyStore {
	return NewInMemoryIdempotencyStoreWithClock(shared.SystemClock{}, DefaultIdempotencyCleanupInterval)
}

// NewInMemoryIdempotencyStoreWithClock creates a store driven by clock.
// A cleanup interval of zero disables the cleanup goroutine.
func NewInMemoryIdempotencyStoreWithClock(clock shared.Clock, cleanupInterval time.Duration) *InMemoryIdempotencyStore {
	s := &InMemoryIdempotencyStore{
		expiry:   make(map[string]time.Time),
		clock:    clock,
		stopChan: make(chan struct{}),
	}
	if cleanupInterval > 0 {
		s.wg.Add(1)
		go s.cleanupLoop(cleanupInterval)
	}
	return s
}

// MarkProcessed records key for ttl. It returns false if key is already
// recorded and unexpired.
func (s *InMemoryIdempotencyStore) MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	if until, ok := s.expiry[key]; ok && now.Before(until) {
		return false, nil
	}
	s.expiry[key] = now.Add(ttl)
	return true, nil
}

// IsProcessed reports whether key is recorded and unexpired
func (s *InMemoryIdempotencyStore) IsProcessed(ctx context.Context, key string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	until, ok := s.expiry[key]
	return ok && s.clock.Now().Before(until), nil
}

// Close stops the cleanup goroutine. Safe to call multiple times.
func (s *InMemoryIdempotencyStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryIdempotencyStore) cleanupLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryIdempotencyStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.clock.Now()
	for key, until := range s.expiry {
		if !now.Before(until) {
			delete(s.expiry, key)
		}
	}
}

// Size returns the number of recorded keys, expired ones included
func (s *InMemoryIdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.expiry)
}

// Ensure InMemoryIdempotencyStore implements IdempotencyStore
var _ shared.IdempotencyStore = (*InMemoryIdempotencyStore)(nil)
