package persistence

import (
	"context"
	"errors"

	"github.com/waifubot/backend/internal/domain/ledger"
	"github.com/waifubot/backend/internal/domain/shared"
	"github.com/waifubot/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormCardRepository implements ledger.CardRepository using GORM
type GormCardRepository struct {
	db *gorm.DB
}

// NewGormCardRepository creates a new GormCardRepository
func NewGormCardRepository(db *gorm.DB) *GormCardRepository {
	return &GormCardRepository{db: db}
}

// FindByID finds a card by id
func (r *GormCardRepository) FindByID(ctx context.Context, id int64) (*ledger.CardDefinition, error) {
	var model models.CardModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, shared.ErrNotFound
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// List returns a page of cards, optionally restricted to one rarity.
// Unknown sort columns fall back to id.
func (r *GormCardRepository) List(ctx context.Context, rarity ledger.Rarity, filter shared.Filter) ([]ledger.CardDefinition, int64, error) {
	filter = filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.CardModel{})
	if rarity.IsValid() {
		query = query.Where("rarity_rank = ?", int(rarity))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	field := ValidateSortField(filter.OrderBy, CardSortFields, "id")
	dir := ValidateSortOrder(filter.OrderDir, "ASC")
	if field != "id" {
		query = query.Order(field + " " + dir)
	}

	var rows []models.CardModel
	if err := query.
		Order("id " + dir).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}

	cards := make([]ledger.CardDefinition, len(rows))
	for i := range rows {
		cards[i] = *rows[i].ToDomain()
	}
	return cards, total, nil
}

// Create inserts a card and writes the generated id back
func (r *GormCardRepository) Create(ctx context.Context, card *ledger.CardDefinition) error {
	model := models.CardModelFromDomain(card)
	if err := r.db.WithContext(ctx).Create(model).Error; err != nil {
		return err
	}
	card.ID = model.ID
	return nil
}

// Count returns the number of cards in the catalog
func (r *GormCardRepository) Count(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.CardModel{}).Count(&total).Error
	return total, err
}

// EligibleIDs lists the catalog ids a card reward can draw from
func (r *GormCardRepository) EligibleIDs(ctx context.Context, rarities, noVideo []ledger.Rarity) ([]int64, error) {
	query := r.db.WithContext(ctx).Model(&models.CardModel{})
	if len(rarities) > 0 {
		query = query.Where("rarity_rank IN ?", rarityRanks(rarities))
	}
	if len(noVideo) > 0 {
		query = query.Where("NOT (rarity_rank IN ? AND media_type = ?)", rarityRanks(noVideo), ledger.MediaTypeVideo)
	}

	var ids []int64
	if err := query.Order("id").Pluck("id", &ids).Error; err != nil {
		return nil, err
	}
	return ids, nil
}

func rarityRanks(rarities []ledger.Rarity) []int {
	ranks := make([]int, len(rarities))
	for i, r := range rarities {
		ranks[i] = int(r)
	}
	return ranks
}

// Ensure GormCardRepository implements ledger.CardRepository
var _ ledger.CardRepository = (*GormCardRepository)(nil)
