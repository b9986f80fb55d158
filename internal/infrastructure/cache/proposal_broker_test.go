package cache

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waifubot/backend/internal/domain/exchange"
	"github.com/waifubot/backend/internal/domain/ledger"
	"github.com/waifubot/backend/internal/domain/shared"
	"go.uber.org/zap/zaptest"
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newTestBroker(t *testing.T) (*InMemoryProposalBroker, *testClock) {
	t.Helper()
	clock := &testClock{now: time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)}
	broker := NewInMemoryProposalBroker(
		WithBrokerClock(clock),
		WithBrokerLogger(zaptest.NewLogger(t)),
		WithSweepInterval(0),
	)
	t.Cleanup(func() { _ = broker.Close() })
	return broker, clock
}

func tradeProposal() exchange.Proposal {
	return exchange.Proposal{
		Kind:            exchange.KindTrade,
		ProposerID:      1,
		ResponderID:     2,
		OfferedCardID:   10,
		RequestedCardID: 20,
		TTL:             5 * time.Minute,
	}
}

var hexToken = regexp.MustCompile(`^[0-9a-f]{32}$`)

func TestInMemoryProposalBroker_CreateLookupConsume(t *testing.T) {
	ctx := context.Background()
	broker, clock := newTestBroker(t)

	created, err := broker.Create(ctx, tradeProposal())
	require.NoError(t, err)
	assert.Regexp(t, hexToken, created.Token)
	assert.Equal(t, clock.Now(), created.CreatedAt)
	assert.Equal(t, 1, broker.Len())

	found, err := broker.Lookup(ctx, created.Token)
	require.NoError(t, err)
	assert.Equal(t, created, found)

	consumed, err := broker.Consume(ctx, created.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(20), consumed.RequestedCardID)
	assert.Equal(t, 0, broker.Len())

	_, err = broker.Consume(ctx, created.Token)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
	_, err = broker.Lookup(ctx, created.Token)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestInMemoryProposalBroker_TokensAreDistinct(t *testing.T) {
	ctx := context.Background()
	broker, _ := newTestBroker(t)

	seen := make(map[string]struct{})
	for i := 0; i < 100; i++ {
		p, err := broker.Create(ctx, tradeProposal())
		require.NoError(t, err)
		_, dup := seen[p.Token]
		require.False(t, dup)
		seen[p.Token] = struct{}{}
	}
	assert.Equal(t, 100, broker.Len())
}

func TestInMemoryProposalBroker_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	broker, _ := newTestBroker(t)

	draft := &ledger.CardDraft{Name: "Emilia", Anime: "Re:Zero", Rarity: ledger.RarityRareSparkle, MediaType: ledger.MediaTypePhoto, MediaFileID: "f1"}
	created, err := broker.Create(ctx, exchange.Proposal{Kind: exchange.KindAddCard, ProposerID: 1, Card: draft})
	require.NoError(t, err)

	draft.Name = "changed"
	created.Card.Name = "changed too"

	found, err := broker.Lookup(ctx, created.Token)
	require.NoError(t, err)
	assert.Equal(t, "Emilia", found.Card.Name)
}

func TestInMemoryProposalBroker_Expiry(t *testing.T) {
	ctx := context.Background()

	t.Run("expired proposal is reported until swept", func(t *testing.T) {
		broker, clock := newTestBroker(t)
		created, err := broker.Create(ctx, tradeProposal())
		require.NoError(t, err)

		clock.Advance(5*time.Minute + time.Second)

		_, err = broker.Lookup(ctx, created.Token)
		assert.True(t, errors.Is(err, shared.ErrExpired))
		_, err = broker.Consume(ctx, created.Token)
		assert.True(t, errors.Is(err, shared.ErrExpired))
		assert.Equal(t, 1, broker.Len())

		var notified []string
		broker.SetExpiryHandler(func(_ context.Context, p *exchange.Proposal) {
			notified = append(notified, p.Token)
		})
		assert.Equal(t, 1, broker.Sweep(ctx))
		assert.Equal(t, []string{created.Token}, notified)
		assert.Equal(t, 0, broker.Len())

		_, err = broker.Lookup(ctx, created.Token)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("proposal is live exactly at its expiry instant", func(t *testing.T) {
		broker, clock := newTestBroker(t)
		created, err := broker.Create(ctx, tradeProposal())
		require.NoError(t, err)

		clock.Advance(5 * time.Minute)

		_, err = broker.Lookup(ctx, created.Token)
		assert.NoError(t, err)
	})

	t.Run("zero ttl never expires", func(t *testing.T) {
		broker, clock := newTestBroker(t)
		created, err := broker.Create(ctx, exchange.Proposal{
			Kind:          exchange.KindGift,
			ProposerID:    1,
			ResponderID:   2,
			OfferedCardID: 10,
		})
		require.NoError(t, err)

		clock.Advance(365 * 24 * time.Hour)

		assert.Equal(t, 0, broker.Sweep(ctx))
		_, err = broker.Consume(ctx, created.Token)
		assert.NoError(t, err)
	})

	t.Run("sweep leaves live proposals", func(t *testing.T) {
		broker, clock := newTestBroker(t)
		_, err := broker.Create(ctx, tradeProposal())
		require.NoError(t, err)
		clock.Advance(4 * time.Minute)
		live, err := broker.Create(ctx, tradeProposal())
		require.NoError(t, err)
		clock.Advance(2 * time.Minute)

		assert.Equal(t, 1, broker.Sweep(ctx))
		_, err = broker.Lookup(ctx, live.Token)
		assert.NoError(t, err)
	})
}

func TestInMemoryProposalBroker_ConcurrentConsume(t *testing.T) {
	ctx := context.Background()
	broker, _ := newTestBroker(t)
	created, err := broker.Create(ctx, tradeProposal())
	require.NoError(t, err)

	const workers = 20
	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		winners  int
		notFound int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := broker.Consume(ctx, created.Token)
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				winners++
			case errors.Is(err, shared.ErrNotFound):
				notFound++
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
	assert.Equal(t, workers-1, notFound)
}

func TestInMemoryProposalBroker_RejectsInvalid(t *testing.T) {
	broker, _ := newTestBroker(t)

	_, err := broker.Create(context.Background(), exchange.Proposal{Kind: exchange.KindGift, ProposerID: 1, ResponderID: 1, OfferedCardID: 3})

	assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	assert.Equal(t, 0, broker.Len())
}

func TestInMemoryProposalBroker_StartClose(t *testing.T) {
	clock := &testClock{now: time.Now()}
	broker := NewInMemoryProposalBroker(WithBrokerClock(clock), WithSweepInterval(5*time.Millisecond))

	swept := make(chan string, 1)
	broker.SetExpiryHandler(func(_ context.Context, p *exchange.Proposal) {
		swept <- p.Token
	})
	created, err := broker.Create(context.Background(), tradeProposal())
	require.NoError(t, err)
	clock.Advance(time.Hour)

	broker.Start()
	select {
	case token := <-swept:
		assert.Equal(t, created.Token, token)
	case <-time.After(time.Second):
		t.Fatal("sweep did not run")
	}

	require.NoError(t, broker.Close())
	require.NoError(t, broker.Close())
}
