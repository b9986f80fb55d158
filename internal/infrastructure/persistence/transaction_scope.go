package persistence

import (
	"context"

	appexchange "github.com/waifubot/backend/internal/application/exchange"
	"github.com/waifubot/backend/internal/domain/ledger"
	"gorm.io/gorm"
)

// GormTransactionScope implements TransactionScope using GORM transactions.
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope.
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn within a database transaction.
// If fn returns an error, the transaction is rolled back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos appexchange.TransactionalRepositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// gormTransactionalRepositories hands out repositories bound to one transaction.
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

// Accounts returns the account repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Accounts() ledger.AccountRepository {
	return NewGormAccountRepository(r.tx)
}

// Cards returns the card repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Cards() ledger.CardRepository {
	return NewGormCardRepository(r.tx)
}

// Inventory returns the inventory repository scoped to the current transaction.
func (r *gormTransactionalRepositories) Inventory() ledger.InventoryRepository {
	return NewGormInventoryRepository(r.tx)
}

// Ensure GormTransactionScope implements TransactionScope
var _ appexchange.TransactionScope = (*GormTransactionScope)(nil)

// Ensure gormTransactionalRepositories implements TransactionalRepositories
var _ appexchange.TransactionalRepositories = (*gormTransactionalRepositories)(nil)
