package persistence

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
	"github.com/waifubot/backend/internal/domain/ledger"
	"github.com/waifubot/backend/internal/infrastructure/persistence/models"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// setupTestDB opens a private in-memory SQLite database with the full schema.
// A single connection keeps every query on the same in-memory database.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, db.AutoMigrate(models.AllModels()...))
	return db
}

// seedCard registers a card and returns its id
func seedCard(t *testing.T, db *gorm.DB, name string, rarity ledger.Rarity) int64 {
	t.Helper()
	card, err := ledger.NewCardDefinition(ledger.CardDraft{
		Name:        name,
		Anime:       "Test Anime",
		Rarity:      rarity,
		MediaType:   ledger.MediaTypePhoto,
		MediaFileID: "file-" + name,
	})
	require.NoError(t, err)
	require.NoError(t, NewGormCardRepository(db).Create(context.Background(), card))
	return card.ID
}

// seedUnits gives an account qty units of a card
func seedUnits(t *testing.T, db *gorm.DB, accountID, cardID, qty int64) {
	t.Helper()
	require.NoError(t, NewGormInventoryRepository(db).Increment(context.Background(), accountID, cardID, qty))
}
