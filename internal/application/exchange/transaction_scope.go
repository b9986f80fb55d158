package exchange

import (
	"context"

	"github.com/waifubot/backend/internal/domain/ledger"
)

// TransactionScope provides transactional access to the ledger repositories.
// Everything done through the repositories handed to fn commits or rolls
// back together.
type TransactionScope interface {
	Execute(ctx context.Context, fn func(repos TransactionalRepositories) error) error
}

// TransactionalRepositories provides the ledger repositories bound to one transaction
type TransactionalRepositories interface {
	Accounts() ledger.AccountRepository
	Cards() ledger.CardRepository
	Inventory() ledger.InventoryRepository
}
