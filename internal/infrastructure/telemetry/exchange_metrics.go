package telemetry

import (
	"context"
	"fmt"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ExchangeMeterName names the meter of the exchange instruments
const ExchangeMeterName = "waifu-exchange/exchange"

// ExchangeMetrics records proposal lifecycle and ledger movement
type ExchangeMetrics struct {
	proposalsCreated  *Counter
	proposalsResolved *Counter
	unitsMoved        *Counter
	crystalsSpent     *Counter
	pending           metric.Int64ObservableGauge
	registration      metric.Registration
	logger            *zap.Logger
}

// PendingCounter reports how many proposals are held
type PendingCounter interface {
	Len() int
}

// NewExchangeMetrics creates the instruments. When pending is not nil the
// number of held proposals is observed as a gauge on every collection.
func NewExchangeMetrics(meter metric.Meter, pending PendingCounter, logger *zap.Logger) (*ExchangeMetrics, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	m := &ExchangeMetrics{logger: logger}

	var err error
	if m.proposalsCreated, err = NewCounter(meter, "exchange_proposals_created_total",
		"Pending exchanges opened", "{proposal}"); err != nil {
		return nil, err
	}
	if m.proposalsResolved, err = NewCounter(meter, "exchange_proposals_resolved_total",
		"Pending exchanges resolved, by outcome", "{proposal}"); err != nil {
		return nil, err
	}
	if m.unitsMoved, err = NewCounter(meter, "exchange_units_moved_total",
		"Card units moved between inventories", "{unit}"); err != nil {
		return nil, err
	}
	if m.crystalsSpent, err = NewCounter(meter, "exchange_crystals_spent_total",
		"Crystals spent in the marketplace", "{crystal}"); err != nil {
		return nil, err
	}

	if pending != nil {
		m.pending, err = meter.Int64ObservableGauge("exchange_proposals_pending",
			metric.WithDescription("Pending exchanges held in memory"),
			metric.WithUnit("{proposal}"),
		)
		if err != nil {
			return nil, fmt.Errorf("failed to create pending gauge: %w", err)
		}
		m.registration, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
			o.ObserveInt64(m.pending, int64(pending.Len()))
			return nil
		}, m.pending)
		if err != nil {
			return nil, fmt.Errorf("failed to register pending gauge: %w", err)
		}
	}
	return m, nil
}

// ProposalCreated counts an opened proposal
func (m *ExchangeMetrics) ProposalCreated(ctx context.Context, kind string) {
	m.proposalsCreated.Inc(ctx, AttrProposalKind.String(kind))
}

// ProposalResolved counts a proposal leaving the broker
func (m *ExchangeMetrics) ProposalResolved(ctx context.Context, kind, outcome string) {
	m.proposalsResolved.Inc(ctx, AttrProposalKind.String(kind), AttrOutcome.String(outcome))
}

// UnitsMoved counts card units created, moved or removed
func (m *ExchangeMetrics) UnitsMoved(ctx context.Context, kind string, units int64) {
	if units <= 0 {
		return
	}
	m.unitsMoved.Add(ctx, units, AttrProposalKind.String(kind))
}

// CrystalsSpent counts marketplace spending
func (m *ExchangeMetrics) CrystalsSpent(ctx context.Context, amount int64) {
	if amount <= 0 {
		return
	}
	m.crystalsSpent.Add(ctx, amount)
}

// Close unregisters the gauge callback
func (m *ExchangeMetrics) Close() error {
	if m.registration == nil {
		return nil
	}
	return m.registration.Unregister()
}
