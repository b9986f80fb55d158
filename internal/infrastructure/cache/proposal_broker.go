package cache

import (
	"context"
	"encoding/hex"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/waifubot/backend/internal/domain/exchange"
	"github.com/waifubot/backend/internal/domain/ledger"
	"github.com/waifubot/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// DefaultSweepInterval is how often expired proposals are removed
const DefaultSweepInterval = time.Minute

// InMemoryProposalBroker implements exchange.Broker with a mutex-guarded map.
// Expiry is evaluated lazily on access. Expired proposals remain visible as
// shared.ErrExpired until the background sweep removes them.
type InMemoryProposalBroker struct {
	mu        sync.Mutex
	proposals map[string]exchange.Proposal
	onExpire  exchange.ExpiryHandler

	clock         shared.Clock
	logger        *zap.Logger
	sweepInterval time.Duration

	stopChan  chan struct{}
	wg        sync.WaitGroup
	startOnce sync.Once
	closeOnce sync.Once
}

// BrokerOption configures an InMemoryProposalBroker
type BrokerOption func(*InMemoryProposalBroker)

// WithBrokerClock sets the clock used for creation stamps and expiry
func WithBrokerClock(clock shared.Clock) BrokerOption {
	return func(b *InMemoryProposalBroker) {
		b.clock = clock
	}
}

// WithBrokerLogger sets the broker logger
func WithBrokerLogger(logger *zap.Logger) BrokerOption {
	return func(b *InMemoryProposalBroker) {
		b.logger = logger
	}
}

// WithSweepInterval sets the sweep period. Zero disables the sweep goroutine.
func WithSweepInterval(d time.Duration) BrokerOption {
	return func(b *InMemoryProposalBroker) {
		b.sweepInterval = d
	}
}

// NewInMemoryProposalBroker creates a broker. Call Start to run the sweep.
func NewInMemoryProposalBroker(opts ...BrokerOption) *InMemoryProposalBroker {
	b := &InMemoryProposalBroker{
		proposals:     make(map[string]exchange.Proposal),
		clock:         shared.SystemClock{},
		logger:        zap.NewNop(),
		sweepInterval: DefaultSweepInterval,
		stopChan:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SetExpiryHandler registers the callback told about each swept proposal
func (b *InMemoryProposalBroker) SetExpiryHandler(h exchange.ExpiryHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.onExpire = h
}

// Create stores the proposal under a fresh 128-bit hex token
func (b *InMemoryProposalBroker) Create(ctx context.Context, p exchange.Proposal) (*exchange.Proposal, error) {
	if err := p.Validate(); err != nil {
		return nil, err
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	token := newToken()
	for {
		if _, taken := b.proposals[token]; !taken {
			break
		}
		token = newToken()
	}

	p.Token = token
	p.CreatedAt = b.clock.Now()
	p.Card = cloneDraft(p.Card)
	b.proposals[token] = p

	return cloneProposal(p), nil
}

// Lookup returns a copy of the proposal
func (b *InMemoryProposalBroker) Lookup(ctx context.Context, token string) (*exchange.Proposal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, err := b.get(token)
	if err != nil {
		return nil, err
	}
	return cloneProposal(p), nil
}

// Consume atomically removes and returns the proposal. An expired proposal
// is left for the sweep and reported as shared.ErrExpired.
func (b *InMemoryProposalBroker) Consume(ctx context.Context, token string) (*exchange.Proposal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	p, err := b.get(token)
	if err != nil {
		return nil, err
	}
	delete(b.proposals, token)
	return cloneProposal(p), nil
}

// Len reports the number of held proposals, expired ones included
func (b *InMemoryProposalBroker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.proposals)
}

// Sweep removes expired proposals, notifies the expiry handler for each one
// and returns how many were removed
func (b *InMemoryProposalBroker) Sweep(ctx context.Context) int {
	now := b.clock.Now()

	b.mu.Lock()
	var expired []exchange.Proposal
	for token, p := range b.proposals {
		if p.IsExpired(now) {
			expired = append(expired, p)
			delete(b.proposals, token)
		}
	}
	handler := b.onExpire
	b.mu.Unlock()

	if handler != nil {
		for i := range expired {
			handler(ctx, &expired[i])
		}
	}
	if len(expired) > 0 {
		b.logger.Debug("swept expired proposals", zap.Int("count", len(expired)))
	}
	return len(expired)
}

// Start runs the sweep loop until Close is called
func (b *InMemoryProposalBroker) Start() {
	if b.sweepInterval <= 0 {
		return
	}
	b.startOnce.Do(func() {
		b.wg.Add(1)
		go b.sweepLoop()
	})
}

// Close stops the sweep loop. Safe to call multiple times.
func (b *InMemoryProposalBroker) Close() error {
	b.closeOnce.Do(func() {
		close(b.stopChan)
		b.wg.Wait()
	})
	return nil
}

func (b *InMemoryProposalBroker) sweepLoop() {
	defer b.wg.Done()

	ticker := time.NewTicker(b.sweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-b.stopChan:
			return
		case <-ticker.C:
			b.Sweep(context.Background())
		}
	}
}

// get must be called with mu held
func (b *InMemoryProposalBroker) get(token string) (exchange.Proposal, error) {
	p, ok := b.proposals[token]
	if !ok {
		return exchange.Proposal{}, shared.ErrNotFound.WithMessage("no pending exchange for this token")
	}
	if p.IsExpired(b.clock.Now()) {
		return exchange.Proposal{}, shared.ErrExpired
	}
	return p, nil
}

func newToken() string {
	id := uuid.New()
	return hex.EncodeToString(id[:])
}

func cloneDraft(d *ledger.CardDraft) *ledger.CardDraft {
	if d == nil {
		return nil
	}
	c := *d
	return &c
}

func cloneProposal(p exchange.Proposal) *exchange.Proposal {
	p.Card = cloneDraft(p.Card)
	return &p
}

// Ensure InMemoryProposalBroker implements exchange.Broker
var _ exchange.Broker = (*InMemoryProposalBroker)(nil)
