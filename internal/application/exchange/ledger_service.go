package exchange

import (
	"context"
	"errors"
	"math/rand/v2"
	"time"

	"github.com/waifubot/backend/internal/domain/exchange"
	"github.com/waifubot/backend/internal/domain/ledger"
	"github.com/waifubot/backend/internal/domain/shared"
	"github.com/waifubot/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Rand is the randomness card rewards draw from
type Rand interface {
	IntN(n int) int
	Float64() float64
}

// globalRand draws from the goroutine-safe top-level generator
type globalRand struct{}

func (globalRand) IntN(n int) int   { return rand.IntN(n) }
func (globalRand) Float64() float64 { return rand.Float64() }

// LedgerService exposes balances, inventory and the card catalog
type LedgerService struct {
	accounts       ledger.AccountRepository
	cards          ledger.CardRepository
	inventory      ledger.InventoryRepository
	history        exchange.LogRepository
	scope          TransactionScope
	engine         Engine
	roles          exchange.RoleResolver
	rewards        ledger.RewardPolicy
	rand           Rand
	basePrice      int64
	clock          shared.Clock
	eventPublisher shared.EventPublisher
	logger         *zap.Logger
}

// NewLedgerService creates a new LedgerService
func NewLedgerService(
	accounts ledger.AccountRepository,
	cards ledger.CardRepository,
	inventory ledger.InventoryRepository,
	scope TransactionScope,
	roles exchange.RoleResolver,
	rewards ledger.RewardPolicy,
	basePrice int64,
) *LedgerService {
	return &LedgerService{
		accounts:  accounts,
		cards:     cards,
		inventory: inventory,
		scope:     scope,
		engine:    NewTransferEngine(scope),
		roles:     roles,
		rewards:   rewards,
		rand:      globalRand{},
		basePrice: basePrice,
		clock:     shared.SystemClock{},
		logger:    zap.NewNop(),
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *LedgerService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetHistoryRepository enables ListHistory
func (s *LedgerService) SetHistoryRepository(history exchange.LogRepository) {
	s.history = history
}

// SetClock replaces the clock used for reward cooldowns
func (s *LedgerService) SetClock(clock shared.Clock) {
	s.clock = clock
}

// SetEngine replaces the engine card rewards are granted through
func (s *LedgerService) SetEngine(engine Engine) {
	s.engine = engine
}

// SetRand replaces the randomness used by card rewards
func (s *LedgerService) SetRand(r Rand) {
	s.rand = r
}

// SetLogger sets the service logger
func (s *LedgerService) SetLogger(logger *zap.Logger) {
	s.logger = logger
}

// GetBalance returns the account's balance. An unknown account has zero balance.
func (s *LedgerService) GetBalance(ctx context.Context, accountID int64) (*BalanceResponse, error) {
	account, err := s.accounts.FindByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			resp := ToBalanceResponse(accountID, ledger.Balance{})
			return &resp, nil
		}
		return nil, err
	}
	resp := ToBalanceResponse(accountID, account.Balance)
	return &resp, nil
}

// AdjustBalance applies signed deltas to an account's sub-balances. Only the
// owner and admins may issue adjustments. A delta that would leave any
// sub-balance negative is rejected.
func (s *LedgerService) AdjustBalance(ctx context.Context, accountID int64, req AdjustBalanceRequest) (*BalanceResponse, error) {
	if err := exchange.AuthorizeIssuer(s.roles, req.IssuerID); err != nil {
		return nil, err
	}
	if accountID == 0 {
		return nil, shared.ErrInvalidInput.WithMessage("account id is required")
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "adjust_balance")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAccountID, accountID,
		telemetry.SpanAttrCounterpartyID, req.IssuerID,
	)

	var account *ledger.Account
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		account, err = lockAccount(ctx, repos.Accounts(), accountID)
		if err != nil {
			return err
		}
		if err := account.ApplyDelta(req.Delta); err != nil {
			return err
		}
		return storeErr("save account", repos.Accounts().SaveWithLock(ctx, account))
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publish(ctx, ledger.NewBalanceAdjustedEvent(account, req.IssuerID, req.Delta, s.clock.Now()))
	s.logger.Info("balance adjusted",
		zap.Int64("account_id", accountID),
		zap.Int64("issuer_id", req.IssuerID),
		zap.Int64("total", account.Balance.Total()),
	)

	resp := ToBalanceResponse(accountID, account.Balance)
	return &resp, nil
}

// ClaimReward pays out a periodic reward if its cooldown has elapsed.
// Card rewards are handed to claimDrop.
func (s *LedgerService) ClaimReward(ctx context.Context, accountID int64, category string) (*RewardClaimResponse, error) {
	c, err := ledger.ParseRewardCategory(category)
	if err != nil {
		return nil, err
	}
	if rule, ok := s.rewards[c]; ok && rule.Drop != nil {
		return s.claimDrop(ctx, accountID, c, *rule.Drop)
	}

	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "claim_reward")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrAccountID, accountID)

	var (
		account *ledger.Account
		amount  int64
	)
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		account, err = lockAccount(ctx, repos.Accounts(), accountID)
		if err != nil {
			return err
		}
		amount, err = account.ClaimReward(c, s.rewards, s.clock.Now())
		if err != nil {
			return err
		}
		return storeErr("save account", repos.Accounts().SaveWithLock(ctx, account))
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	s.publish(ctx, account.PullDomainEvents()...)

	return &RewardClaimResponse{
		Category: string(c),
		Amount:   amount,
		Balance:  ToBalanceResponse(accountID, account.Balance),
	}, nil
}

// claimDrop draws a random eligible card, consumes the cooldown and credits
// the bonus under the account lock, then grants the unit through the engine.
// A failed grant puts the cooldown and bonus back.
func (s *LedgerService) claimDrop(ctx context.Context, accountID int64, c ledger.RewardCategory, drop ledger.CardDrop) (*RewardClaimResponse, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "ledger", "claim_card")
	defer span.End()
	telemetry.SetAttributes(span,
		telemetry.SpanAttrAccountID, accountID,
		telemetry.SpanAttrRewardCategory, string(c),
	)

	ids, err := s.cards.EligibleIDs(ctx, drop.Rarities, drop.NoVideo)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if len(ids) == 0 {
		err := shared.ErrNotFound.WithMessage("no card is eligible for the %s reward", c)
		telemetry.RecordError(span, err)
		return nil, err
	}
	draw := ledger.Draw{CardID: ids[s.rand.IntN(len(ids))]}
	draw.Kept = drop.Keeps(s.rand.Float64())

	card, err := s.cards.FindByID(ctx, draw.CardID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrCardID, draw.CardID)

	var (
		account  *ledger.Account
		previous *time.Time
		bonus    int64
	)
	err = s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		var err error
		account, err = lockAccount(ctx, repos.Accounts(), accountID)
		if err != nil {
			return err
		}
		previous = account.LastClaim(c)
		bonus, err = account.ClaimDrop(c, s.rewards, s.clock.Now(), draw)
		if err != nil {
			return err
		}
		return storeErr("save account", repos.Accounts().SaveWithLock(ctx, account))
	})
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	if draw.Kept {
		if err := s.engine.GrantUnit(ctx, accountID, accountID, draw.CardID); err != nil {
			s.undoClaim(ctx, accountID, c, previous, bonus)
			telemetry.RecordError(span, err)
			return nil, err
		}
	}

	s.publish(ctx, account.PullDomainEvents()...)
	s.logger.Info("card reward claimed",
		zap.Int64("account_id", accountID),
		zap.String("category", string(c)),
		zap.Int64("card_id", draw.CardID),
		zap.Bool("kept", draw.Kept),
		zap.Int64("bonus", bonus),
	)

	cardResp := ToCardResponse(card, s.basePrice)
	return &RewardClaimResponse{
		Category: string(c),
		Amount:   bonus,
		Balance:  ToBalanceResponse(accountID, account.Balance),
		Card:     &cardResp,
		Refused:  !draw.Kept,
	}, nil
}

// undoClaim reverts a card reward claim whose grant failed
func (s *LedgerService) undoClaim(ctx context.Context, accountID int64, c ledger.RewardCategory, previous *time.Time, bonus int64) {
	err := s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		account, err := lockAccount(ctx, repos.Accounts(), accountID)
		if err != nil {
			return err
		}
		account.UndoClaim(c, previous, bonus)
		return storeErr("save account", repos.Accounts().SaveWithLock(ctx, account))
	})
	if err != nil {
		s.logger.Error("failed to undo card reward claim",
			zap.Int64("account_id", accountID),
			zap.String("category", string(c)),
			zap.Error(err),
		)
	}
}

// GetInventoryCount returns how many units of a card the account holds
func (s *LedgerService) GetInventoryCount(ctx context.Context, accountID, cardID int64) (*InventoryCountResponse, error) {
	qty, err := s.inventory.Quantity(ctx, accountID, cardID)
	if err != nil {
		return nil, err
	}
	return &InventoryCountResponse{AccountID: accountID, CardID: cardID, Quantity: qty}, nil
}

// IncrementInventory adds units of a card to an account, creating the
// account if needed
func (s *LedgerService) IncrementInventory(ctx context.Context, accountID, cardID, by int64) error {
	return s.scope.Execute(ctx, func(repos TransactionalRepositories) error {
		if _, err := repos.Cards().FindByID(ctx, cardID); err != nil {
			return storeErr("find card", err)
		}
		if _, err := repos.Accounts().GetOrCreate(ctx, accountID); err != nil {
			return storeErr("get account", err)
		}
		return storeErr("increment inventory", repos.Inventory().Increment(ctx, accountID, cardID, by))
	})
}

// DecrementInventory removes units of a card from an account
func (s *LedgerService) DecrementInventory(ctx context.Context, accountID, cardID, by int64) error {
	return s.inventory.Decrement(ctx, accountID, cardID, by)
}

// GetCard returns a catalog card with its market price
func (s *LedgerService) GetCard(ctx context.Context, cardID int64) (*CardResponse, error) {
	card, err := s.cards.FindByID(ctx, cardID)
	if err != nil {
		return nil, err
	}
	resp := ToCardResponse(card, s.basePrice)
	if resp.Circulation, err = s.inventory.TotalForCard(ctx, cardID); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListCards returns a page of the catalog, optionally restricted to one rarity
func (s *LedgerService) ListCards(ctx context.Context, rarity ledger.Rarity, filter shared.Filter) (shared.Paginated[CardResponse], error) {
	filter = filter.Normalize()
	cards, total, err := s.cards.List(ctx, rarity, filter)
	if err != nil {
		return shared.Paginated[CardResponse]{}, err
	}
	items := make([]CardResponse, len(cards))
	for i := range cards {
		items[i] = ToCardResponse(&cards[i], s.basePrice)
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// ListInventory returns a page of the account's cards ordered by rarity
func (s *LedgerService) ListInventory(ctx context.Context, accountID int64, filter shared.Filter) (shared.Paginated[InventoryEntryResponse], error) {
	filter = filter.Normalize()
	entries, total, err := s.inventory.ListByAccount(ctx, accountID, filter)
	if err != nil {
		return shared.Paginated[InventoryEntryResponse]{}, err
	}
	items := make([]InventoryEntryResponse, len(entries))
	for i := range entries {
		items[i] = InventoryEntryResponse{
			Card:     ToCardResponse(&entries[i].Card, s.basePrice),
			Quantity: entries[i].Quantity,
		}
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

// ListHistory returns a page of the audit entries the account took part in, newest first
func (s *LedgerService) ListHistory(ctx context.Context, accountID int64, filter shared.Filter) (shared.Paginated[HistoryEntryResponse], error) {
	filter = filter.Normalize()
	if s.history == nil {
		return shared.NewPaginated([]HistoryEntryResponse{}, 0, filter.Page, filter.PageSize), nil
	}
	entries, total, err := s.history.ListByAccount(ctx, accountID, filter)
	if err != nil {
		return shared.Paginated[HistoryEntryResponse]{}, err
	}
	items := make([]HistoryEntryResponse, len(entries))
	for i := range entries {
		items[i] = ToHistoryEntryResponse(&entries[i])
	}
	return shared.NewPaginated(items, total, filter.Page, filter.PageSize), nil
}

func (s *LedgerService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil || len(events) == 0 {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish ledger events", zap.Error(err))
	}
}
