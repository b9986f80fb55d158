// Package testutil holds helpers shared by the integration suites.
package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/waifubot/backend/internal/domain/ledger"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// Well-known chat ids used across suites
const (
	OwnerID int64 = 1000
	AdminID int64 = 2000
	AliceID int64 = 3001
	BobID   int64 = 3002
	CarolID int64 = 3003
)

// ContextWithTimeout returns a context cancelled when the test ends or after timeout
func ContextWithTimeout(t *testing.T, timeout time.Duration) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	t.Cleanup(cancel)
	return ctx
}

// CardDraft returns a valid photo card draft of the given tier
func CardDraft(name string, rarity ledger.Rarity) ledger.CardDraft {
	return ledger.CardDraft{
		Name:        name,
		Anime:       "Test Anime",
		Rarity:      rarity,
		MediaType:   ledger.MediaTypePhoto,
		MediaFileID: "file-" + name,
	}
}
