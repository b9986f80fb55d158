package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/waifubot/backend/internal/domain/ledger"
	"github.com/waifubot/backend/internal/domain/shared"
	"github.com/waifubot/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAccountRepository implements ledger.AccountRepository using GORM
type GormAccountRepository struct {
	db *gorm.DB
}

// NewGormAccountRepository creates a new GormAccountRepository
func NewGormAccountRepository(db *gorm.DB) *GormAccountRepository {
	return &GormAccountRepository{db: db}
}

// FindByID finds an account by its chat user id
func (r *GormAccountRepository) FindByID(ctx context.Context, id int64) (*ledger.Account, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds an account and locks its row until the transaction ends
func (r *GormAccountRepository) FindByIDForUpdate(ctx context.Context, id int64) (*ledger.Account, error) {
	return r.find(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), id)
}

func (r *GormAccountRepository) find(tx *gorm.DB, id int64) (*ledger.Account, error) {
	var model models.AccountModel
	if err := tx.First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// GetOrCreate gets the account or inserts an empty one
func (r *GormAccountRepository) GetOrCreate(ctx context.Context, id int64) (*ledger.Account, error) {
	account, err := r.FindByID(ctx, id)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	account, err = ledger.NewAccount(id)
	if err != nil {
		return nil, err
	}

	// Use ON CONFLICT to handle concurrent first contact
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoNothing: true,
		}).
		Create(models.AccountModelFromDomain(account)).Error; err != nil {
		return nil, err
	}

	return r.FindByID(ctx, id)
}

// SaveWithLock persists balances, profile and claim timestamps if the stored
// version still matches the account's version. On success the version is bumped.
func (r *GormAccountRepository) SaveWithLock(ctx context.Context, account *ledger.Account) error {
	expected := account.GetVersion()
	updatedAt := time.Now()
	result := r.db.WithContext(ctx).
		Model(&models.AccountModel{}).
		Where("id = ? AND version = ?", account.ID, expected).
		Updates(map[string]any{
			"username":         account.Username,
			"first_name":       account.FirstName,
			"daily_crystals":   account.Balance.Daily,
			"weekly_crystals":  account.Balance.Weekly,
			"monthly_crystals": account.Balance.Monthly,
			"given_crystals":   account.Balance.Given,
			"daily_claim_at":   account.DailyClaimAt,
			"weekly_claim_at":  account.WeeklyClaimAt,
			"monthly_claim_at": account.MonthlyClaimAt,
			"card_claim_at":    account.CardClaimAt,
			"craft_claim_at":   account.CraftClaimAt,
			"marry_claim_at":   account.MarryClaimAt,
			"store_refresh_at": account.StoreRefreshAt,
			"version":          expected + 1,
			"updated_at":       updatedAt,
		})

	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrConcurrencyConflict.WithMessage("account %d was modified by another transaction", account.ID)
	}
	account.IncrementVersion()
	account.UpdatedAt = updatedAt
	return nil
}

// Ensure GormAccountRepository implements ledger.AccountRepository
var _ ledger.AccountRepository = (*GormAccountRepository)(nil)
