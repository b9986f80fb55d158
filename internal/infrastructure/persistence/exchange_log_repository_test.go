package persistence

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/waifubot/backend/internal/domain/exchange"
	"github.com/waifubot/backend/internal/domain/shared"
)

func TestGormExchangeLogRepository(t *testing.T) {
	db := setupTestDB(t)
	repo := NewGormExchangeLogRepository(db)
	ctx := context.Background()
	base := time.Date(2026, 4, 1, 10, 0, 0, 0, time.UTC)

	entries := []exchange.LogEntry{
		{EventID: "e1", EventType: exchange.EventTypeAccepted, AccountID: 1, CounterpartyID: 2, CardID: 9, OccurredAt: base},
		{EventID: "e2", EventType: exchange.EventTypeDeclined, AccountID: 3, CounterpartyID: 1, OccurredAt: base.Add(time.Minute)},
		{EventID: "e3", EventType: exchange.EventTypeAccepted, AccountID: 4, CounterpartyID: 5, OccurredAt: base.Add(2 * time.Minute)},
	}
	for i := range entries {
		require.NoError(t, repo.Append(ctx, &entries[i]))
	}

	t.Run("duplicate event id is ignored", func(t *testing.T) {
		dup := exchange.LogEntry{EventID: "e1", EventType: "Other", AccountID: 1, OccurredAt: base}
		require.NoError(t, repo.Append(ctx, &dup))

		var count int64
		require.NoError(t, db.Table("exchange_logs").Where("event_id = ?", "e1").Count(&count).Error)
		assert.Equal(t, int64(1), count)
	})

	t.Run("lists both sides newest first", func(t *testing.T) {
		got, total, err := repo.ListByAccount(ctx, 1, shared.DefaultFilter())
		require.NoError(t, err)
		assert.Equal(t, int64(2), total)
		require.Len(t, got, 2)
		assert.Equal(t, "e2", got[0].EventID)
		assert.Equal(t, "e1", got[1].EventID)
	})
}
