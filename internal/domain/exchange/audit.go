package exchange

import (
	"context"
	"time"

	"github.com/waifubot/backend/internal/domain/shared"
)

// LogEntry is one durable audit record of an exchange or balance change
type LogEntry struct {
	ID             int64
	EventID        string
	EventType      string
	AccountID      int64
	CounterpartyID int64
	ChatID         int64
	CardID         int64
	Price          int64
	Units          int64
	Details        string
	OccurredAt     time.Time
}

// LogRepository persists audit entries. Appending an entry whose EventID
// already exists is a no-op.
type LogRepository interface {
	Append(ctx context.Context, entry *LogEntry) error
	ListByAccount(ctx context.Context, accountID int64, filter shared.Filter) ([]LogEntry, int64, error)
}
