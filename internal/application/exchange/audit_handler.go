package exchange

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/waifubot/backend/internal/domain/exchange"
	"github.com/waifubot/backend/internal/domain/ledger"
	"github.com/waifubot/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// AuditHandler writes exchange outcomes and balance changes to the audit log
type AuditHandler struct {
	logs   exchange.LogRepository
	logger *zap.Logger
}

// NewAuditHandler creates a new AuditHandler
func NewAuditHandler(logs exchange.LogRepository, logger *zap.Logger) *AuditHandler {
	return &AuditHandler{logs: logs, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *AuditHandler) EventTypes() []string {
	return []string{
		exchange.EventTypeAccepted,
		exchange.EventTypeDeclined,
		exchange.EventTypeExpired,
		exchange.EventTypeFailed,
		exchange.EventTypeInventoryWiped,
		ledger.EventTypeBalanceAdjusted,
		ledger.EventTypeRewardClaimed,
	}
}

// Handle converts the event to a log entry and appends it
func (h *AuditHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	entry, err := toLogEntry(event)
	if err != nil {
		h.logger.Error("unexpected event type",
			zap.String("actual", event.EventType()),
		)
		return err
	}

	details, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshal event details: %w", err)
	}
	entry.Details = string(details)

	if err := h.logs.Append(ctx, entry); err != nil {
		h.logger.Error("failed to append audit entry",
			zap.String("event_id", entry.EventID),
			zap.String("event_type", entry.EventType),
			zap.Error(err),
		)
		return err
	}
	return nil
}

func toLogEntry(event shared.DomainEvent) (*exchange.LogEntry, error) {
	entry := &exchange.LogEntry{
		EventID:    event.EventID().String(),
		EventType:  event.EventType(),
		OccurredAt: event.OccurredAt(),
	}

	switch e := event.(type) {
	case *exchange.ResolvedEvent:
		entry.AccountID = e.ProposerID
		entry.CounterpartyID = e.ResponderID
		if e.Kind.IsAdministrative() {
			entry.CounterpartyID = e.TargetID
		}
		entry.ChatID = e.ChatID
		entry.Price = e.Price
		switch {
		case e.CardID != 0:
			entry.CardID = e.CardID
		case e.OfferedCardID != 0:
			entry.CardID = e.OfferedCardID
		default:
			entry.CardID = e.RequestedCardID
		}
	case *exchange.InventoryWipedEvent:
		entry.AccountID = e.TargetID
		entry.CounterpartyID = e.IssuerID
		entry.ChatID = e.ChatID
		entry.Units = e.RemovedUnits
	case *ledger.BalanceAdjustedEvent:
		entry.AccountID = e.AccountID
		entry.CounterpartyID = e.IssuerID
		entry.Price = e.Delta.Total()
	case *ledger.RewardClaimedEvent:
		entry.AccountID = e.AccountID
		entry.Price = e.Amount
		if e.CardID != 0 {
			entry.CardID = e.CardID
			entry.Units = 1
		}
	default:
		return nil, fmt.Errorf("unexpected event type: %s", event.EventType())
	}
	return entry, nil
}
