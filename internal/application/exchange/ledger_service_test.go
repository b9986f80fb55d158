package exchange

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waifubot/backend/internal/domain/exchange"
	"github.com/waifubot/backend/internal/domain/ledger"
	"github.com/waifubot/backend/internal/domain/shared"
)

const (
	ownerID int64 = 1
	adminID int64 = 2
)

func newTestLedgerService(store *memLedger) (*LedgerService, *MockEventPublisher) {
	svc := NewLedgerService(
		store.Accounts(), store.Cards(), store.Inventory(), store,
		exchange.NewStaticRoles(ownerID, []int64{adminID}),
		ledger.DefaultRewardPolicy(),
		150000,
	)
	publisher := &MockEventPublisher{}
	svc.SetEventPublisher(publisher)
	return svc, publisher
}

func TestLedgerService_GetBalance(t *testing.T) {
	store := newMemLedger()
	store.setBalance(10, ledger.Balance{Daily: 1, Weekly: 2, Monthly: 3, Given: 4})
	svc, _ := newTestLedgerService(store)

	t.Run("existing account", func(t *testing.T) {
		resp, err := svc.GetBalance(context.Background(), 10)
		require.NoError(t, err)
		assert.Equal(t, int64(10), resp.Total)
		assert.Equal(t, int64(3), resp.Monthly)
	})

	t.Run("absent account is all zeros", func(t *testing.T) {
		resp, err := svc.GetBalance(context.Background(), 99)
		require.NoError(t, err)
		assert.Equal(t, BalanceResponse{AccountID: 99}, *resp)
	})
}

func TestLedgerService_AdjustBalance(t *testing.T) {
	ctx := context.Background()

	t.Run("admin credits given crystals", func(t *testing.T) {
		store := newMemLedger()
		svc, publisher := newTestLedgerService(store)

		resp, err := svc.AdjustBalance(ctx, 50, AdjustBalanceRequest{
			IssuerID: adminID,
			Delta:    ledger.Balance{Given: 1000},
		})

		require.NoError(t, err)
		assert.Equal(t, int64(1000), resp.Given)
		assert.Equal(t, int64(1000), store.accounts[50].Balance.Given)
		assert.Len(t, publisher.EventsOfType(ledger.EventTypeBalanceAdjusted), 1)
	})

	t.Run("negative result is rejected not clamped", func(t *testing.T) {
		store := newMemLedger()
		store.setBalance(50, ledger.Balance{Daily: 10})
		svc, publisher := newTestLedgerService(store)

		_, err := svc.AdjustBalance(ctx, 50, AdjustBalanceRequest{
			IssuerID: ownerID,
			Delta:    ledger.Balance{Daily: -11},
		})

		assert.True(t, errors.Is(err, shared.ErrNegativeBalance))
		assert.Equal(t, int64(10), store.accounts[50].Balance.Daily)
		assert.Empty(t, publisher.EventsOfType(ledger.EventTypeBalanceAdjusted))
	})

	t.Run("regular users cannot adjust", func(t *testing.T) {
		store := newMemLedger()
		svc, _ := newTestLedgerService(store)

		_, err := svc.AdjustBalance(ctx, 50, AdjustBalanceRequest{
			IssuerID: 77,
			Delta:    ledger.Balance{Given: 1},
		})

		assert.True(t, errors.Is(err, shared.ErrUnauthorized))
		assert.Empty(t, store.accounts)
	})
}

func TestLedgerService_ClaimReward(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	store := newMemLedger()
	svc, publisher := newTestLedgerService(store)
	svc.SetClock(shared.ClockFunc(func() time.Time { return now }))

	resp, err := svc.ClaimReward(ctx, 30, "daily")
	require.NoError(t, err)
	assert.Equal(t, int64(5000), resp.Amount)
	assert.Equal(t, int64(5000), resp.Balance.Daily)
	assert.Len(t, publisher.EventsOfType(ledger.EventTypeRewardClaimed), 1)

	t.Run("second claim inside the cooldown", func(t *testing.T) {
		now = now.Add(time.Hour)
		_, err := svc.ClaimReward(ctx, 30, "daily")

		assert.True(t, errors.Is(err, shared.ErrCooldownActive))
		var cooldown *ledger.CooldownError
		require.True(t, errors.As(err, &cooldown))
		assert.Equal(t, 23*time.Hour, cooldown.Remaining)
		assert.Equal(t, int64(5000), store.accounts[30].Balance.Daily)
	})

	t.Run("other categories are independent", func(t *testing.T) {
		resp, err := svc.ClaimReward(ctx, 30, "weekly")
		require.NoError(t, err)
		assert.Equal(t, int64(25000), resp.Balance.Weekly)
	})

	t.Run("after the cooldown", func(t *testing.T) {
		now = now.Add(24 * time.Hour)
		resp, err := svc.ClaimReward(ctx, 30, "daily")
		require.NoError(t, err)
		assert.Equal(t, int64(10000), resp.Balance.Daily)
	})

	t.Run("unknown category", func(t *testing.T) {
		_, err := svc.ClaimReward(ctx, 30, "hourly")
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})
}

// fixedRand always picks index n (clamped) and rolls f
type fixedRand struct {
	n int
	f float64
}

func (r fixedRand) IntN(n int) int   { return min(r.n, n-1) }
func (r fixedRand) Float64() float64 { return r.f }

// grantSpy records GrantUnit calls and can fail them
type grantSpy struct {
	Engine
	grants []int64
	err    error
}

func (g *grantSpy) GrantUnit(ctx context.Context, issuerID, targetID, cardID int64) error {
	if g.err != nil {
		return g.err
	}
	g.grants = append(g.grants, cardID)
	return g.Engine.GrantUnit(ctx, issuerID, targetID, cardID)
}

func TestLedgerService_ClaimCardReward(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	clock := shared.ClockFunc(func() time.Time { return now })

	newSvc := func(t *testing.T, store *memLedger, r Rand) (*LedgerService, *MockEventPublisher, *grantSpy) {
		t.Helper()
		svc, publisher := newTestLedgerService(store)
		svc.SetClock(clock)
		svc.SetRand(r)
		spy := &grantSpy{Engine: NewTransferEngine(store)}
		svc.SetEngine(spy)
		return svc, publisher, spy
	}

	t.Run("claim grants the drawn card through the engine", func(t *testing.T) {
		store := newMemLedger()
		store.addCard("Ram", ledger.RarityElegantRose)
		rem := store.addCard("Rem", ledger.RarityDivineAscendant)
		svc, publisher, spy := newSvc(t, store, fixedRand{n: 1})

		resp, err := svc.ClaimReward(ctx, 30, "claim")

		require.NoError(t, err)
		assert.Equal(t, []int64{rem}, spy.grants)
		assert.Equal(t, int64(1), store.qty(30, rem))
		require.NotNil(t, resp.Card)
		assert.Equal(t, "Rem", resp.Card.Name)
		assert.False(t, resp.Refused)
		assert.Zero(t, resp.Amount)

		events := publisher.EventsOfType(ledger.EventTypeRewardClaimed)
		require.Len(t, events, 1)
		assert.Equal(t, rem, events[0].(*ledger.RewardClaimedEvent).CardID)
	})

	t.Run("claim inside the cooldown grants nothing", func(t *testing.T) {
		store := newMemLedger()
		ram := store.addCard("Ram", ledger.RarityElegantRose)
		svc, _, spy := newSvc(t, store, fixedRand{})

		_, err := svc.ClaimReward(ctx, 30, "claim")
		require.NoError(t, err)
		now = now.Add(23 * time.Hour)
		defer func() { now = now.Add(-23 * time.Hour) }()

		_, err = svc.ClaimReward(ctx, 30, "claim")

		var cooldown *ledger.CooldownError
		require.True(t, errors.As(err, &cooldown))
		assert.Equal(t, time.Hour, cooldown.Remaining)
		assert.Len(t, spy.grants, 1)
		assert.Equal(t, int64(1), store.qty(30, ram))
	})

	t.Run("craft draws only allowed tiers and pays the bonus", func(t *testing.T) {
		store := newMemLedger()
		store.addCard("Emilia", ledger.RarityDivineAscendant)
		common := store.addCard("Petra", ledger.RarityCommonBlossom)
		svc, _, spy := newSvc(t, store, fixedRand{n: 5})

		resp, err := svc.ClaimReward(ctx, 30, "craft")

		require.NoError(t, err)
		assert.Equal(t, []int64{common}, spy.grants)
		assert.Equal(t, int64(10000), resp.Amount)
		assert.Equal(t, int64(10000), resp.Balance.Daily)
		assert.Equal(t, int64(10000), store.accounts[30].Balance.Daily)
	})

	t.Run("refused marry keeps the cooldown but grants nothing", func(t *testing.T) {
		store := newMemLedger()
		ram := store.addCard("Ram", ledger.RarityElegantRose)
		legend := store.addCard("Satella", ledger.RarityCinematicLegend)
		video := store.cards[legend]
		video.MediaType = ledger.MediaTypeVideo
		store.cards[legend] = video
		svc, publisher, spy := newSvc(t, store, fixedRand{n: 1, f: 0.9})

		resp, err := svc.ClaimReward(ctx, 30, "marry")

		require.NoError(t, err)
		assert.True(t, resp.Refused)
		assert.Equal(t, ram, resp.Card.ID)
		assert.Empty(t, spy.grants)
		assert.Zero(t, store.qty(30, ram))
		require.NotNil(t, store.accounts[30].MarryClaimAt)
		assert.Zero(t, publisher.EventsOfType(ledger.EventTypeRewardClaimed)[0].(*ledger.RewardClaimedEvent).CardID)
	})

	t.Run("empty pool is not found and consumes nothing", func(t *testing.T) {
		store := newMemLedger()
		store.addCard("Emilia", ledger.RarityDivineAscendant)
		svc, _, _ := newSvc(t, store, fixedRand{})

		_, err := svc.ClaimReward(ctx, 30, "craft")

		assert.True(t, errors.Is(err, shared.ErrNotFound))
		assert.Empty(t, store.accounts)
	})

	t.Run("failed grant puts the cooldown and bonus back", func(t *testing.T) {
		store := newMemLedger()
		store.addCard("Petra", ledger.RarityCommonBlossom)
		svc, publisher, spy := newSvc(t, store, fixedRand{})
		spy.err = errStoreFault

		_, err := svc.ClaimReward(ctx, 30, "craft")

		require.ErrorIs(t, err, errStoreFault)
		assert.Nil(t, store.accounts[30].CraftClaimAt)
		assert.Zero(t, store.accounts[30].Balance.Daily)
		assert.Empty(t, publisher.EventsOfType(ledger.EventTypeRewardClaimed))

		spy.err = nil
		resp, err := svc.ClaimReward(ctx, 30, "craft")
		require.NoError(t, err)
		assert.Equal(t, int64(10000), resp.Balance.Daily)
	})
}

func TestLedgerService_Inventory(t *testing.T) {
	ctx := context.Background()
	store := newMemLedger()
	rose := store.addCard("Rose", ledger.RarityElegantRose)
	common := store.addCard("Common", ledger.RarityCommonBlossom)
	svc, _ := newTestLedgerService(store)

	t.Run("absent count is zero", func(t *testing.T) {
		resp, err := svc.GetInventoryCount(ctx, 5, rose)
		require.NoError(t, err)
		assert.Equal(t, int64(0), resp.Quantity)
	})

	t.Run("increment then decrement round-trips", func(t *testing.T) {
		require.NoError(t, svc.IncrementInventory(ctx, 5, rose, 1))
		require.NoError(t, svc.DecrementInventory(ctx, 5, rose, 1))

		resp, err := svc.GetInventoryCount(ctx, 5, rose)
		require.NoError(t, err)
		assert.Equal(t, int64(0), resp.Quantity)
	})

	t.Run("decrement below zero", func(t *testing.T) {
		err := svc.DecrementInventory(ctx, 5, rose, 1)
		assert.True(t, errors.Is(err, shared.ErrInsufficientQuantity))
	})

	t.Run("list is ordered by rarity", func(t *testing.T) {
		require.NoError(t, svc.IncrementInventory(ctx, 5, rose, 2))
		require.NoError(t, svc.IncrementInventory(ctx, 5, common, 1))

		page, err := svc.ListInventory(ctx, 5, shared.DefaultFilter())

		require.NoError(t, err)
		require.Len(t, page.Items, 2)
		assert.Equal(t, "Common", page.Items[0].Card.Name)
		assert.Equal(t, int64(150000), page.Items[0].Card.MarketPrice)
		assert.Equal(t, int64(300000), page.Items[1].Card.MarketPrice)
	})
}

func TestLedgerService_GetCard(t *testing.T) {
	store := newMemLedger()
	card := store.addCard("Legend", ledger.RarityCinematicLegend)
	store.units[unitKey{10, card}] = 2
	store.units[unitKey{11, card}] = 1
	svc, _ := newTestLedgerService(store)

	resp, err := svc.GetCard(context.Background(), card)
	require.NoError(t, err)
	assert.Equal(t, "Cinematic Legend", resp.Rarity)
	assert.Equal(t, int64(1125000), resp.MarketPrice)
	assert.Equal(t, int64(3), resp.Circulation)

	_, err = svc.GetCard(context.Background(), 404)
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestLedgerService_ListHistory(t *testing.T) {
	ctx := context.Background()
	at := time.Date(2026, 5, 5, 9, 0, 0, 0, time.UTC)

	t.Run("without a history repository the page is empty", func(t *testing.T) {
		svc, _ := newTestLedgerService(newMemLedger())

		page, err := svc.ListHistory(ctx, 10, shared.Filter{})
		require.NoError(t, err)
		assert.Empty(t, page.Items)
		assert.Equal(t, int64(0), page.Total)
	})

	t.Run("entries are mapped", func(t *testing.T) {
		svc, _ := newTestLedgerService(newMemLedger())
		repo := new(MockLogRepository)
		repo.On("ListByAccount", ctx, int64(10), shared.DefaultFilter()).Return([]exchange.LogEntry{
			{EventID: "e1", EventType: exchange.EventTypeAccepted, AccountID: 20, CounterpartyID: 10, CardID: 3, Units: 1, OccurredAt: at},
		}, int64(1), nil)
		svc.SetHistoryRepository(repo)

		page, err := svc.ListHistory(ctx, 10, shared.Filter{})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, "e1", page.Items[0].EventID)
		assert.Equal(t, int64(10), page.Items[0].CounterpartyID)
		assert.Equal(t, at, page.Items[0].OccurredAt)
		repo.AssertExpectations(t)
	})

	t.Run("store fault is surfaced", func(t *testing.T) {
		svc, _ := newTestLedgerService(newMemLedger())
		repo := new(MockLogRepository)
		repo.On("ListByAccount", ctx, int64(10), shared.DefaultFilter()).Return([]exchange.LogEntry(nil), int64(0), errStoreFault)
		svc.SetHistoryRepository(repo)

		_, err := svc.ListHistory(ctx, 10, shared.Filter{})
		assert.ErrorIs(t, err, errStoreFault)
	})
}
