package exchange

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sort"
	"strconv"
	"sync"

	"github.com/waifubot/backend/internal/domain/exchange"
	"github.com/waifubot/backend/internal/domain/ledger"
	"github.com/waifubot/backend/internal/domain/shared"
)

var errStoreFault = errors.New("store fault")

type unitKey struct {
	account int64
	card    int64
}

// memLedger is an in-memory ledger. Its scope serializes transactions and
// restores the previous state when fn fails.
type memLedger struct {
	mu         sync.Mutex
	accounts   map[int64]ledger.Account
	cards      map[int64]ledger.CardDefinition
	units      map[unitKey]int64
	nextCardID int64

	// failIncrementFor makes Increment fail for that account
	failIncrementFor int64
	// locked records QuantityForUpdate calls in order
	locked []unitKey
}

func newMemLedger() *memLedger {
	return &memLedger{
		accounts: make(map[int64]ledger.Account),
		cards:    make(map[int64]ledger.CardDefinition),
		units:    make(map[unitKey]int64),
	}
}

func (m *memLedger) Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	accounts := maps.Clone(m.accounts)
	cards := maps.Clone(m.cards)
	units := maps.Clone(m.units)
	nextCardID := m.nextCardID

	if err := fn(m); err != nil {
		m.accounts, m.cards, m.units, m.nextCardID = accounts, cards, units, nextCardID
		return err
	}
	return nil
}

func (m *memLedger) Accounts() ledger.AccountRepository   { return memAccounts{m} }
func (m *memLedger) Cards() ledger.CardRepository         { return memCards{m} }
func (m *memLedger) Inventory() ledger.InventoryRepository { return memInventory{m} }

func (m *memLedger) addCard(name string, rarity ledger.Rarity) int64 {
	m.nextCardID++
	m.cards[m.nextCardID] = ledger.CardDefinition{
		ID:          m.nextCardID,
		Name:        name,
		Anime:       "Test Anime",
		Rarity:      rarity,
		MediaType:   ledger.MediaTypePhoto,
		MediaFileID: "file",
	}
	return m.nextCardID
}

func (m *memLedger) setBalance(id int64, b ledger.Balance) {
	a, _ := ledger.NewAccount(id)
	a.Balance = b
	m.accounts[id] = *a
}

func (m *memLedger) qty(account, card int64) int64 {
	return m.units[unitKey{account, card}]
}

func (m *memLedger) circulation(card int64) int64 {
	var total int64
	for k, q := range m.units {
		if k.card == card {
			total += q
		}
	}
	return total
}

type memAccounts struct{ m *memLedger }

func (r memAccounts) FindByID(_ context.Context, id int64) (*ledger.Account, error) {
	a, ok := r.m.accounts[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &a, nil
}

func (r memAccounts) FindByIDForUpdate(ctx context.Context, id int64) (*ledger.Account, error) {
	return r.FindByID(ctx, id)
}

func (r memAccounts) GetOrCreate(ctx context.Context, id int64) (*ledger.Account, error) {
	if _, ok := r.m.accounts[id]; !ok {
		a, err := ledger.NewAccount(id)
		if err != nil {
			return nil, err
		}
		r.m.accounts[id] = *a
	}
	return r.FindByID(ctx, id)
}

func (r memAccounts) SaveWithLock(_ context.Context, a *ledger.Account) error {
	stored, ok := r.m.accounts[a.ID]
	if !ok || stored.GetVersion() != a.GetVersion() {
		return shared.ErrConcurrencyConflict
	}
	a.IncrementVersion()
	saved := *a
	saved.ClearDomainEvents()
	r.m.accounts[a.ID] = saved
	return nil
}

type memCards struct{ m *memLedger }

func (r memCards) FindByID(_ context.Context, id int64) (*ledger.CardDefinition, error) {
	c, ok := r.m.cards[id]
	if !ok {
		return nil, shared.ErrNotFound
	}
	return &c, nil
}

func (r memCards) List(_ context.Context, rarity ledger.Rarity, _ shared.Filter) ([]ledger.CardDefinition, int64, error) {
	var out []ledger.CardDefinition
	for _, c := range r.m.cards {
		if rarity == 0 || c.Rarity == rarity {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, int64(len(out)), nil
}

func (r memCards) Create(_ context.Context, c *ledger.CardDefinition) error {
	r.m.nextCardID++
	c.ID = r.m.nextCardID
	r.m.cards[c.ID] = *c
	return nil
}

func (r memCards) Count(context.Context) (int64, error) {
	return int64(len(r.m.cards)), nil
}

func (r memCards) EligibleIDs(_ context.Context, rarities, noVideo []ledger.Rarity) ([]int64, error) {
	var ids []int64
	for id, c := range r.m.cards {
		if len(rarities) > 0 && !slices.Contains(rarities, c.Rarity) {
			continue
		}
		if c.MediaType == ledger.MediaTypeVideo && slices.Contains(noVideo, c.Rarity) {
			continue
		}
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

type memInventory struct{ m *memLedger }

func (r memInventory) Quantity(_ context.Context, account, card int64) (int64, error) {
	return r.m.units[unitKey{account, card}], nil
}

func (r memInventory) QuantityForUpdate(ctx context.Context, account, card int64) (int64, error) {
	r.m.locked = append(r.m.locked, unitKey{account, card})
	return r.Quantity(ctx, account, card)
}

func (r memInventory) Increment(_ context.Context, account, card, by int64) error {
	if by < 1 {
		return shared.ErrInvalidInput
	}
	if r.m.failIncrementFor == account {
		return errStoreFault
	}
	r.m.units[unitKey{account, card}] += by
	return nil
}

func (r memInventory) Decrement(_ context.Context, account, card, by int64) error {
	if by < 1 {
		return shared.ErrInvalidInput
	}
	k := unitKey{account, card}
	switch have := r.m.units[k]; {
	case have < by:
		return shared.ErrInsufficientQuantity
	case have == by:
		delete(r.m.units, k)
	default:
		r.m.units[k] = have - by
	}
	return nil
}

func (r memInventory) DeleteAllForAccount(_ context.Context, account int64) (int64, error) {
	var removed int64
	for k, q := range r.m.units {
		if k.account == account {
			removed += q
			delete(r.m.units, k)
		}
	}
	return removed, nil
}

func (r memInventory) ListByAccount(_ context.Context, account int64, _ shared.Filter) ([]ledger.InventoryEntry, int64, error) {
	var out []ledger.InventoryEntry
	for k, q := range r.m.units {
		if k.account == account {
			out = append(out, ledger.InventoryEntry{Card: r.m.cards[k.card], Quantity: q})
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Card.Rarity != out[j].Card.Rarity {
			return out[i].Card.Rarity < out[j].Card.Rarity
		}
		return out[i].Card.ID < out[j].Card.ID
	})
	return out, int64(len(out)), nil
}

func (r memInventory) TotalForCard(_ context.Context, card int64) (int64, error) {
	return r.m.circulation(card), nil
}

// MockEventPublisher records published events
type MockEventPublisher struct {
	mu     sync.Mutex
	events []shared.DomainEvent
}

func (p *MockEventPublisher) Publish(_ context.Context, events ...shared.DomainEvent) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, events...)
	return nil
}

func (p *MockEventPublisher) EventsOfType(eventType string) []shared.DomainEvent {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []shared.DomainEvent
	for _, e := range p.events {
		if e.EventType() == eventType {
			out = append(out, e)
		}
	}
	return out
}

// memBroker is a minimal broker with a settable expiry state per token
type memBroker struct {
	mu        sync.Mutex
	seq       int
	proposals map[string]exchange.Proposal
	expired   map[string]bool
}

func newMemBroker() *memBroker {
	return &memBroker{
		proposals: make(map[string]exchange.Proposal),
		expired:   make(map[string]bool),
	}
}

func (b *memBroker) Create(_ context.Context, p exchange.Proposal) (*exchange.Proposal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.seq++
	p.Token = "tok-" + strconv.Itoa(b.seq)
	b.proposals[p.Token] = p
	return &p, nil
}

func (b *memBroker) Lookup(_ context.Context, token string) (*exchange.Proposal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.proposals[token]
	if !ok {
		return nil, shared.ErrNotFound
	}
	if b.expired[token] {
		return nil, shared.ErrExpired
	}
	return &p, nil
}

func (b *memBroker) Consume(_ context.Context, token string) (*exchange.Proposal, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	p, ok := b.proposals[token]
	if !ok {
		return nil, shared.ErrNotFound
	}
	delete(b.proposals, token)
	if b.expired[token] {
		return nil, shared.ErrExpired
	}
	return &p, nil
}

func (b *memBroker) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.proposals)
}
