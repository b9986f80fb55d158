package exchange

import (
	"context"
	"errors"

	"github.com/waifubot/backend/internal/domain/exchange"
	"github.com/waifubot/backend/internal/domain/ledger"
	"github.com/waifubot/backend/internal/domain/shared"
	"github.com/waifubot/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// MetricsRecorder receives exchange counters
type MetricsRecorder interface {
	ProposalCreated(ctx context.Context, kind string)
	ProposalResolved(ctx context.Context, kind, outcome string)
	UnitsMoved(ctx context.Context, kind string, units int64)
	CrystalsSpent(ctx context.Context, amount int64)
}

type noopMetrics struct{}

func (noopMetrics) ProposalCreated(context.Context, string)          {}
func (noopMetrics) ProposalResolved(context.Context, string, string) {}
func (noopMetrics) UnitsMoved(context.Context, string, int64)        {}
func (noopMetrics) CrystalsSpent(context.Context, int64)             {}

// ExchangeService runs the two-party exchange protocols. Proposals live in
// the broker and nothing in the ledger changes until one is accepted.
type ExchangeService struct {
	broker         exchange.Broker
	engine         Engine
	accounts       ledger.AccountRepository
	cards          ledger.CardRepository
	inventory      ledger.InventoryRepository
	roles          exchange.RoleResolver
	ttl            exchange.TTLPolicy
	basePrice      int64
	clock          shared.Clock
	eventPublisher shared.EventPublisher
	metrics        MetricsRecorder
	logger         *zap.Logger
}

// NewExchangeService creates a new ExchangeService
func NewExchangeService(
	broker exchange.Broker,
	engine Engine,
	accounts ledger.AccountRepository,
	cards ledger.CardRepository,
	inventory ledger.InventoryRepository,
	roles exchange.RoleResolver,
	ttl exchange.TTLPolicy,
	basePrice int64,
) *ExchangeService {
	return &ExchangeService{
		broker:    broker,
		engine:    engine,
		accounts:  accounts,
		cards:     cards,
		inventory: inventory,
		roles:     roles,
		ttl:       ttl,
		basePrice: basePrice,
		clock:     shared.SystemClock{},
		metrics:   noopMetrics{},
		logger:    zap.NewNop(),
	}
}

// SetEventPublisher sets the event publisher for publishing domain events
func (s *ExchangeService) SetEventPublisher(publisher shared.EventPublisher) {
	s.eventPublisher = publisher
}

// SetMetrics sets the metrics recorder
func (s *ExchangeService) SetMetrics(metrics MetricsRecorder) {
	if metrics != nil {
		s.metrics = metrics
	}
}

// SetClock replaces the clock stamped on resolution events
func (s *ExchangeService) SetClock(clock shared.Clock) {
	s.clock = clock
}

// SetLogger sets the service logger
func (s *ExchangeService) SetLogger(logger *zap.Logger) {
	s.logger = logger
}

// ProposeGift registers a gift after checking the sender owns the card
func (s *ExchangeService) ProposeGift(ctx context.Context, req GiftRequest) (*ProposalResponse, error) {
	p := exchange.Proposal{
		Kind:          exchange.KindGift,
		ProposerID:    req.SenderID,
		ResponderID:   req.RecipientID,
		OfferedCardID: req.CardID,
		ChatID:        req.ChatID,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireOwnership(ctx, req.SenderID, req.CardID); err != nil {
		return nil, err
	}
	return s.register(ctx, p)
}

// ProposeTrade registers a swap after checking both sides own their card
func (s *ExchangeService) ProposeTrade(ctx context.Context, req TradeRequest) (*ProposalResponse, error) {
	p := exchange.Proposal{
		Kind:            exchange.KindTrade,
		ProposerID:      req.ProposerID,
		ResponderID:     req.CounterpartyID,
		OfferedCardID:   req.OfferedCardID,
		RequestedCardID: req.RequestedCardID,
		ChatID:          req.ChatID,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if err := s.requireOwnership(ctx, req.ProposerID, req.OfferedCardID); err != nil {
		return nil, err
	}
	if err := s.requireOwnership(ctx, req.CounterpartyID, req.RequestedCardID); err != nil {
		return nil, err
	}
	return s.register(ctx, p)
}

// PreviewPurchase prices a card and registers a purchase the buyer can
// confirm. A buyer who cannot afford it at preview time is rejected.
func (s *ExchangeService) PreviewPurchase(ctx context.Context, req PurchaseRequest) (*ProposalResponse, error) {
	card, err := s.cards.FindByID(ctx, req.CardID)
	if err != nil {
		return nil, err
	}
	price := card.MarketPrice(s.basePrice)

	p := exchange.Proposal{
		Kind:            exchange.KindPurchase,
		ProposerID:      req.BuyerID,
		ResponderID:     req.BuyerID,
		RequestedCardID: req.CardID,
		Price:           price,
		ChatID:          req.ChatID,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}

	var balance ledger.Balance
	account, err := s.accounts.FindByID(ctx, req.BuyerID)
	switch {
	case err == nil:
		balance = account.Balance
	case !errors.Is(err, shared.ErrNotFound):
		return nil, err
	}
	if balance.Total() < price {
		return nil, shared.ErrInsufficientFunds.WithMessage("need %d crystals, have %d", price, balance.Total())
	}
	return s.register(ctx, p)
}

// ProposeTransfer registers an administrative grant of one card
func (s *ExchangeService) ProposeTransfer(ctx context.Context, req TransferRequest) (*ProposalResponse, error) {
	if err := exchange.AuthorizeTarget(s.roles, req.IssuerID, req.TargetID, req.TargetIsBot); err != nil {
		return nil, err
	}
	p := exchange.Proposal{
		Kind:          exchange.KindTransfer,
		ProposerID:    req.IssuerID,
		TargetID:      req.TargetID,
		OfferedCardID: req.CardID,
		ChatID:        req.ChatID,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	if _, err := s.cards.FindByID(ctx, req.CardID); err != nil {
		return nil, err
	}
	return s.register(ctx, p)
}

// ProposeReset registers an administrative wipe of a target's inventory
func (s *ExchangeService) ProposeReset(ctx context.Context, req ResetRequest) (*ProposalResponse, error) {
	if err := exchange.AuthorizeTarget(s.roles, req.IssuerID, req.TargetID, req.TargetIsBot); err != nil {
		return nil, err
	}
	p := exchange.Proposal{
		Kind:       exchange.KindReset,
		ProposerID: req.IssuerID,
		TargetID:   req.TargetID,
		ChatID:     req.ChatID,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return s.register(ctx, p)
}

// ProposeAddCard registers a catalog addition awaiting confirmation
func (s *ExchangeService) ProposeAddCard(ctx context.Context, req AddCardRequest) (*ProposalResponse, error) {
	if err := exchange.AuthorizeIssuer(s.roles, req.IssuerID); err != nil {
		return nil, err
	}
	draft := req.Card
	p := exchange.Proposal{
		Kind:       exchange.KindAddCard,
		ProposerID: req.IssuerID,
		ChatID:     req.ChatID,
		Card:       &draft,
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return s.register(ctx, p)
}

// Lookup returns a pending proposal
func (s *ExchangeService) Lookup(ctx context.Context, token string) (*ProposalResponse, error) {
	p, err := s.broker.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	resp := ToProposalResponse(p)
	return &resp, nil
}

// Respond accepts or declines a proposal on behalf of responderID. The
// responder is authorized before the token is consumed, so a stranger's
// attempt leaves the proposal in place. Losing a consume race yields
// shared.ErrConflict.
func (s *ExchangeService) Respond(ctx context.Context, token string, responderID int64, accept bool) (*RespondResult, error) {
	ctx, span := telemetry.StartServiceSpan(ctx, "exchange", "respond")
	defer span.End()
	telemetry.SetAttribute(span, telemetry.SpanAttrAccountID, responderID)

	p, err := s.broker.Lookup(ctx, token)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrProposalKind, string(p.Kind))

	if !exchange.CanRespond(s.roles, p, responderID) {
		err := shared.ErrUnauthorized.WithMessage("account %d cannot answer this %s", responderID, p.Kind)
		telemetry.RecordError(span, err)
		return nil, err
	}

	p, err = s.broker.Consume(ctx, token)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			err = shared.ErrConflict.WithMessage("proposal was already answered")
		}
		telemetry.RecordError(span, err)
		return nil, err
	}

	if !accept {
		s.resolve(ctx, exchange.NewResolvedEvent(p, exchange.OutcomeDeclined, responderID, s.clock.Now()))
		telemetry.SetAttribute(span, telemetry.SpanAttrOutcome, string(exchange.OutcomeDeclined))
		return &RespondResult{Token: p.Token, Kind: string(p.Kind), Outcome: string(exchange.OutcomeDeclined)}, nil
	}

	result, err := s.execute(ctx, p)
	if err != nil {
		failed := exchange.NewResolvedEvent(p, exchange.OutcomeFailed, responderID, s.clock.Now())
		failed.Reason = failureReason(err)
		s.resolve(ctx, failed)
		s.logFailure(p, err)
		telemetry.RecordError(span, err)
		return nil, err
	}

	accepted := exchange.NewResolvedEvent(p, exchange.OutcomeAccepted, responderID, s.clock.Now())
	accepted.CardID = result.CardID
	s.resolve(ctx, accepted)
	if p.Kind == exchange.KindReset {
		s.publish(ctx, exchange.NewInventoryWipedEvent(p, result.RemovedUnits, s.clock.Now()))
	}
	telemetry.SetAttribute(span, telemetry.SpanAttrOutcome, string(exchange.OutcomeAccepted))
	telemetry.SetOK(span)
	return result, nil
}

// HandleExpired records a proposal the broker swept after its TTL
func (s *ExchangeService) HandleExpired(ctx context.Context, p *exchange.Proposal) {
	s.resolve(ctx, exchange.NewResolvedEvent(p, exchange.OutcomeExpired, 0, s.clock.Now()))
}

// execute runs the engine call matching the proposal kind
func (s *ExchangeService) execute(ctx context.Context, p *exchange.Proposal) (*RespondResult, error) {
	result := &RespondResult{Token: p.Token, Kind: string(p.Kind), Outcome: string(exchange.OutcomeAccepted)}
	kind := string(p.Kind)

	switch p.Kind {
	case exchange.KindGift:
		if err := s.engine.TransferUnit(ctx, p.ProposerID, p.ResponderID, p.OfferedCardID); err != nil {
			return nil, err
		}
		result.UnitsMoved = 1
	case exchange.KindTrade:
		if err := s.engine.SwapUnits(ctx, p.ProposerID, p.OfferedCardID, p.ResponderID, p.RequestedCardID); err != nil {
			return nil, err
		}
		result.UnitsMoved = 2
	case exchange.KindPurchase:
		after, err := s.engine.PurchaseUnit(ctx, p.ResponderID, p.RequestedCardID, p.Price)
		if err != nil {
			return nil, err
		}
		balance := ToBalanceResponse(p.ResponderID, after)
		result.Balance = &balance
		result.UnitsMoved = 1
		s.metrics.CrystalsSpent(ctx, p.Price)
	case exchange.KindTransfer:
		if err := s.engine.GrantUnit(ctx, p.ProposerID, p.TargetID, p.OfferedCardID); err != nil {
			return nil, err
		}
		result.UnitsMoved = 1
	case exchange.KindReset:
		removed, err := s.engine.WipeInventory(ctx, p.TargetID)
		if err != nil {
			return nil, err
		}
		result.RemovedUnits = removed
	case exchange.KindAddCard:
		card, err := s.engine.RegisterCard(ctx, *p.Card)
		if err != nil {
			return nil, err
		}
		result.CardID = card.ID
	default:
		return nil, shared.ErrInvalidState.WithMessage("unknown exchange kind %q", p.Kind)
	}

	if result.UnitsMoved > 0 {
		s.metrics.UnitsMoved(ctx, kind, result.UnitsMoved)
	}
	return result, nil
}

func (s *ExchangeService) register(ctx context.Context, p exchange.Proposal) (*ProposalResponse, error) {
	p.TTL = s.ttl.For(p.Kind)
	stored, err := s.broker.Create(ctx, p)
	if err != nil {
		return nil, err
	}

	s.publish(ctx, exchange.NewProposedEvent(stored))
	s.metrics.ProposalCreated(ctx, string(stored.Kind))
	s.logger.Info("exchange proposed",
		zap.String("kind", string(stored.Kind)),
		zap.Int64("proposer_id", stored.ProposerID),
		zap.Int64("responder_id", stored.ResponderID),
		zap.Int64("target_id", stored.TargetID),
	)

	resp := ToProposalResponse(stored)
	return &resp, nil
}

func (s *ExchangeService) resolve(ctx context.Context, event *exchange.ResolvedEvent) {
	s.publish(ctx, event)
	s.metrics.ProposalResolved(ctx, string(event.Kind), string(event.Outcome))
	s.logger.Info("exchange resolved",
		zap.String("kind", string(event.Kind)),
		zap.String("outcome", string(event.Outcome)),
		zap.Int64("proposer_id", event.ProposerID),
		zap.Int64("responder_id", event.ResponderID),
	)
}

// failureReason is the domain error code, or STORE_FAULT for anything else
func failureReason(err error) string {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code
	}
	return "STORE_FAULT"
}

func (s *ExchangeService) requireOwnership(ctx context.Context, accountID, cardID int64) error {
	if _, err := s.cards.FindByID(ctx, cardID); err != nil {
		return err
	}
	qty, err := s.inventory.Quantity(ctx, accountID, cardID)
	if err != nil {
		return err
	}
	if qty < 1 {
		return shared.ErrNotOwned.WithMessage("account %d does not own card %d", accountID, cardID)
	}
	return nil
}

func (s *ExchangeService) logFailure(p *exchange.Proposal, err error) {
	var domainErr *shared.DomainError
	if errors.As(err, &domainErr) {
		s.logger.Info("exchange rejected on accept",
			zap.String("kind", string(p.Kind)),
			zap.String("code", domainErr.Code),
		)
		return
	}
	s.logger.Error("exchange failed on accept",
		zap.String("kind", string(p.Kind)),
		zap.Error(err),
	)
}

func (s *ExchangeService) publish(ctx context.Context, events ...shared.DomainEvent) {
	if s.eventPublisher == nil {
		return
	}
	if err := s.eventPublisher.Publish(ctx, events...); err != nil {
		s.logger.Error("failed to publish exchange events", zap.Error(err))
	}
}
