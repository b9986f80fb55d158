package persistence

import (
	"context"

	"github.com/waifubot/backend/internal/domain/exchange"
	"github.com/waifubot/backend/internal/domain/shared"
	"github.com/waifubot/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormExchangeLogRepository implements exchange.LogRepository using GORM
type GormExchangeLogRepository struct {
	db *gorm.DB
}

// NewGormExchangeLogRepository creates a new GormExchangeLogRepository
func NewGormExchangeLogRepository(db *gorm.DB) *GormExchangeLogRepository {
	return &GormExchangeLogRepository{db: db}
}

// Append inserts the entry unless one with the same event id exists
func (r *GormExchangeLogRepository) Append(ctx context.Context, entry *exchange.LogEntry) error {
	model := models.ExchangeLogModelFromDomain(entry)
	if err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "event_id"}},
			DoNothing: true,
		}).
		Create(model).Error; err != nil {
		return err
	}
	entry.ID = model.ID
	return nil
}

// ListByAccount returns entries where the account took part, newest first
func (r *GormExchangeLogRepository) ListByAccount(ctx context.Context, accountID int64, filter shared.Filter) ([]exchange.LogEntry, int64, error) {
	filter = filter.Normalize()
	query := r.db.WithContext(ctx).
		Model(&models.ExchangeLogModel{}).
		Where("account_id = ? OR counterparty_id = ?", accountID, accountID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.ExchangeLogModel
	if err := query.
		Order("occurred_at DESC").
		Order("id DESC").
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	entries := make([]exchange.LogEntry, len(rows))
	for i := range rows {
		entries[i] = rows[i].ToDomain()
	}
	return entries, total, nil
}

// Ensure GormExchangeLogRepository implements exchange.LogRepository
var _ exchange.LogRepository = (*GormExchangeLogRepository)(nil)
