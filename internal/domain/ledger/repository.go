package ledger

import (
	"context"

	"github.com/waifubot/backend/internal/domain/shared"
)

// AccountRepository defines persistence for accounts
type AccountRepository interface {
	// FindByID returns shared.ErrNotFound when the account does not exist
	FindByID(ctx context.Context, id int64) (*Account, error)

	// FindByIDForUpdate reads the account holding a row lock until the
	// surrounding transaction ends
	FindByIDForUpdate(ctx context.Context, id int64) (*Account, error)

	// GetOrCreate returns the account, inserting an empty one if absent
	GetOrCreate(ctx context.Context, id int64) (*Account, error)

	// SaveWithLock persists balances and claim timestamps, failing with
	// shared.ErrConcurrencyConflict if the version moved underneath
	SaveWithLock(ctx context.Context, account *Account) error
}

// CardRepository defines persistence for the card catalog
type CardRepository interface {
	FindByID(ctx context.Context, id int64) (*CardDefinition, error)
	List(ctx context.Context, rarity Rarity, filter shared.Filter) ([]CardDefinition, int64, error)
	Create(ctx context.Context, card *CardDefinition) error
	Count(ctx context.Context) (int64, error)
	// EligibleIDs lists the ids a card reward may draw, ascending. Empty
	// rarities allow every tier. Video cards of the noVideo tiers are left out.
	EligibleIDs(ctx context.Context, rarities, noVideo []Rarity) ([]int64, error)
}

// InventoryRepository defines persistence for inventory units
type InventoryRepository interface {
	// Quantity returns 0 when no row exists
	Quantity(ctx context.Context, accountID, cardID int64) (int64, error)

	// QuantityForUpdate is Quantity holding a row lock
	QuantityForUpdate(ctx context.Context, accountID, cardID int64) (int64, error)

	// Increment inserts the row at by or adds by to it
	Increment(ctx context.Context, accountID, cardID, by int64) error

	// Decrement subtracts by, removing the row when it reaches zero.
	// Returns shared.ErrInsufficientQuantity if fewer than by units exist.
	Decrement(ctx context.Context, accountID, cardID, by int64) error

	// DeleteAllForAccount removes every row of the account and returns the
	// number of units removed
	DeleteAllForAccount(ctx context.Context, accountID int64) (int64, error)

	// ListByAccount returns entries ordered by rarity then card id
	ListByAccount(ctx context.Context, accountID int64, filter shared.Filter) ([]InventoryEntry, int64, error)

	// TotalForCard sums units of the card across all accounts
	TotalForCard(ctx context.Context, cardID int64) (int64, error)
}
