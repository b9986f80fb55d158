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

// GormInventoryRepository implements ledger.InventoryRepository using GORM.
// A row exists only while its quantity is at least one.
type GormInventoryRepository struct {
	db *gorm.DB
}

// NewGormInventoryRepository creates a new GormInventoryRepository
func NewGormInventoryRepository(db *gorm.DB) *GormInventoryRepository {
	return &GormInventoryRepository{db: db}
}

// Quantity returns how many units of the card the account holds
func (r *GormInventoryRepository) Quantity(ctx context.Context, accountID, cardID int64) (int64, error) {
	return r.quantity(r.db.WithContext(ctx), accountID, cardID)
}

// QuantityForUpdate is Quantity with the row locked for the rest of the transaction
func (r *GormInventoryRepository) QuantityForUpdate(ctx context.Context, accountID, cardID int64) (int64, error) {
	return r.quantity(r.db.WithContext(ctx).Clauses(clause.Locking{Strength: "UPDATE"}), accountID, cardID)
}

func (r *GormInventoryRepository) quantity(tx *gorm.DB, accountID, cardID int64) (int64, error) {
	var model models.InventoryUnitModel
	err := tx.Where("account_id = ? AND card_id = ?", accountID, cardID).Take(&model).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return model.Quantity, nil
}

// Increment adds by units, inserting the row if it does not exist
func (r *GormInventoryRepository) Increment(ctx context.Context, accountID, cardID, by int64) error {
	if by < 1 {
		return shared.ErrInvalidInput.WithMessage("increment must be positive")
	}
	now := time.Now()
	model := &models.InventoryUnitModel{
		TimestampModel: models.TimestampModel{CreatedAt: now, UpdatedAt: now},
		AccountID:      accountID,
		CardID:         cardID,
		Quantity:       by,
	}
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "account_id"}, {Name: "card_id"}},
			DoUpdates: clause.Assignments(map[string]any{
				"quantity":   gorm.Expr("inventory_units.quantity + ?", by),
				"updated_at": now,
			}),
		}).
		Create(model).Error
}

// Decrement removes by units. The row is deleted when exactly by units remain
// and updated when more remain. Otherwise nothing changes and
// shared.ErrInsufficientQuantity is returned.
func (r *GormInventoryRepository) Decrement(ctx context.Context, accountID, cardID, by int64) error {
	if by < 1 {
		return shared.ErrInvalidInput.WithMessage("decrement must be positive")
	}
	db := r.db.WithContext(ctx)

	result := db.Where("account_id = ? AND card_id = ? AND quantity = ?", accountID, cardID, by).
		Delete(&models.InventoryUnitModel{})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected > 0 {
		return nil
	}

	result = db.Model(&models.InventoryUnitModel{}).
		Where("account_id = ? AND card_id = ? AND quantity > ?", accountID, cardID, by).
		Updates(map[string]any{
			"quantity":   gorm.Expr("quantity - ?", by),
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrInsufficientQuantity.WithMessage("account %d holds fewer than %d of card %d", accountID, by, cardID)
	}
	return nil
}

// DeleteAllForAccount removes the account's whole inventory and returns the
// number of units removed. The count comes back from the DELETE itself, so a
// unit granted concurrently is either deleted and counted or left alone.
func (r *GormInventoryRepository) DeleteAllForAccount(ctx context.Context, accountID int64) (int64, error) {
	var deleted []models.InventoryUnitModel
	err := r.db.WithContext(ctx).
		Clauses(clause.Returning{Columns: []clause.Column{{Name: "quantity"}}}).
		Where("account_id = ?", accountID).
		Delete(&deleted).Error
	if err != nil {
		return 0, err
	}

	var removed int64
	for _, row := range deleted {
		removed += row.Quantity
	}
	return removed, nil
}

type inventoryRow struct {
	models.CardModel
	Quantity int64
}

// ListByAccount returns a page of the account's cards, rarest tiers last
func (r *GormInventoryRepository) ListByAccount(ctx context.Context, accountID int64, filter shared.Filter) ([]ledger.InventoryEntry, int64, error) {
	filter = filter.Normalize()
	db := r.db.WithContext(ctx)

	var total int64
	if err := db.Model(&models.InventoryUnitModel{}).
		Where("account_id = ?", accountID).
		Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []inventoryRow
	if err := db.Table("inventory_units").
		Select("cards.*, inventory_units.quantity").
		Joins("JOIN cards ON cards.id = inventory_units.card_id").
		Where("inventory_units.account_id = ?", accountID).
		Order("cards.rarity_rank " + filter.OrderDir).
		Order("cards.id " + filter.OrderDir).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Scan(&rows).Error; err != nil {
		return nil, 0, err
	}

	entries := make([]ledger.InventoryEntry, len(rows))
	for i := range rows {
		entries[i] = ledger.InventoryEntry{
			Card:     *rows[i].ToDomain(),
			Quantity: rows[i].Quantity,
		}
	}
	return entries, total, nil
}

// TotalForCard sums the units of a card across all accounts
func (r *GormInventoryRepository) TotalForCard(ctx context.Context, cardID int64) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).
		Model(&models.InventoryUnitModel{}).
		Select("COALESCE(SUM(quantity), 0)").
		Where("card_id = ?", cardID).
		Scan(&total).Error
	return total, err
}

// Ensure GormInventoryRepository implements ledger.InventoryRepository
var _ ledger.InventoryRepository = (*GormInventoryRepository)(nil)
