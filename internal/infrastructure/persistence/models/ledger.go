package models

import (
	"time"

	"github.com/waifubot/backend/internal/domain/ledger"
)

// AccountModel is the persistence model for the Account aggregate root.
type AccountModel struct {
	AggregateModel
	ID              int64  `gorm:"primaryKey;autoIncrement:false"`
	Username        string `gorm:"type:varchar(64);not null;default:''"`
	FirstName       string `gorm:"type:varchar(128);not null;default:''"`
	DailyCrystals   int64  `gorm:"not null;default:0"`
	WeeklyCrystals  int64  `gorm:"not null;default:0"`
	MonthlyCrystals int64  `gorm:"not null;default:0"`
	GivenCrystals   int64  `gorm:"not null;default:0"`
	DailyClaimAt    *time.Time
	WeeklyClaimAt   *time.Time
	MonthlyClaimAt  *time.Time
	CardClaimAt     *time.Time
	CraftClaimAt    *time.Time
	MarryClaimAt    *time.Time
	StoreRefreshAt  *time.Time
}

// TableName returns the table name for GORM
func (AccountModel) TableName() string {
	return "accounts"
}

// ToDomain converts the persistence model to a domain Account.
func (m *AccountModel) ToDomain() *ledger.Account {
	return &ledger.Account{
		BaseAggregateRoot: m.ToDomainAggregateRoot(),
		ID:                m.ID,
		Username:          m.Username,
		FirstName:         m.FirstName,
		Balance: ledger.Balance{
			Daily:   m.DailyCrystals,
			Weekly:  m.WeeklyCrystals,
			Monthly: m.MonthlyCrystals,
			Given:   m.GivenCrystals,
		},
		DailyClaimAt:   m.DailyClaimAt,
		WeeklyClaimAt:  m.WeeklyClaimAt,
		MonthlyClaimAt: m.MonthlyClaimAt,
		CardClaimAt:    m.CardClaimAt,
		CraftClaimAt:   m.CraftClaimAt,
		MarryClaimAt:   m.MarryClaimAt,
		StoreRefreshAt: m.StoreRefreshAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

// FromDomain populates the persistence model from a domain Account.
func (m *AccountModel) FromDomain(a *ledger.Account) {
	m.FromDomainAggregateRoot(a.BaseAggregateRoot)
	m.ID = a.ID
	m.Username = a.Username
	m.FirstName = a.FirstName
	m.DailyCrystals = a.Balance.Daily
	m.WeeklyCrystals = a.Balance.Weekly
	m.MonthlyCrystals = a.Balance.Monthly
	m.GivenCrystals = a.Balance.Given
	m.DailyClaimAt = a.DailyClaimAt
	m.WeeklyClaimAt = a.WeeklyClaimAt
	m.MonthlyClaimAt = a.MonthlyClaimAt
	m.CardClaimAt = a.CardClaimAt
	m.CraftClaimAt = a.CraftClaimAt
	m.MarryClaimAt = a.MarryClaimAt
	m.StoreRefreshAt = a.StoreRefreshAt
	m.CreatedAt = a.CreatedAt
	m.UpdatedAt = a.UpdatedAt
}

// AccountModelFromDomain creates a new persistence model from a domain Account.
func AccountModelFromDomain(a *ledger.Account) *AccountModel {
	m := &AccountModel{}
	m.FromDomain(a)
	return m
}

// CardModel is the persistence model for a CardDefinition.
// RarityRank duplicates the tier order so inventories sort in SQL.
type CardModel struct {
	ID          int64     `gorm:"primaryKey;autoIncrement"`
	Name        string    `gorm:"type:varchar(200);not null"`
	Anime       string    `gorm:"type:varchar(200);not null;index"`
	Rarity      string    `gorm:"type:varchar(32);not null"`
	RarityRank  int       `gorm:"not null;index"`
	Event       string    `gorm:"type:varchar(100);not null;default:''"`
	MediaType   string    `gorm:"type:varchar(16);not null"`
	MediaFileID string    `gorm:"type:varchar(255);not null"`
	CreatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (CardModel) TableName() string {
	return "cards"
}

// ToDomain converts the persistence model to a domain CardDefinition.
// An unrecognised stored tier name falls back to the stored rank.
func (m *CardModel) ToDomain() *ledger.CardDefinition {
	rarity, err := ledger.ParseRarity(m.Rarity)
	if err != nil {
		rarity = ledger.Rarity(m.RarityRank)
	}
	return &ledger.CardDefinition{
		ID:          m.ID,
		Name:        m.Name,
		Anime:       m.Anime,
		Rarity:      rarity,
		Event:       m.Event,
		MediaType:   m.MediaType,
		MediaFileID: m.MediaFileID,
		CreatedAt:   m.CreatedAt,
	}
}

// FromDomain populates the persistence model from a domain CardDefinition.
func (m *CardModel) FromDomain(c *ledger.CardDefinition) {
	m.ID = c.ID
	m.Name = c.Name
	m.Anime = c.Anime
	m.Rarity = c.Rarity.String()
	m.RarityRank = int(c.Rarity)
	m.Event = c.Event
	m.MediaType = c.MediaType
	m.MediaFileID = c.MediaFileID
	m.CreatedAt = c.CreatedAt
}

// CardModelFromDomain creates a new persistence model from a domain CardDefinition.
func CardModelFromDomain(c *ledger.CardDefinition) *CardModel {
	m := &CardModel{}
	m.FromDomain(c)
	return m
}

// InventoryUnitModel is the persistence model for an InventoryUnit.
// Rows never hold a quantity below one.
type InventoryUnitModel struct {
	TimestampModel
	AccountID int64 `gorm:"primaryKey;autoIncrement:false"`
	CardID    int64 `gorm:"primaryKey;autoIncrement:false;index"`
	Quantity  int64 `gorm:"not null;check:chk_inventory_units_quantity,quantity > 0"`
}

// TableName returns the table name for GORM
func (InventoryUnitModel) TableName() string {
	return "inventory_units"
}

// ToDomain converts the persistence model to a domain InventoryUnit.
func (m *InventoryUnitModel) ToDomain() ledger.InventoryUnit {
	return ledger.InventoryUnit{
		AccountID: m.AccountID,
		CardID:    m.CardID,
		Quantity:  m.Quantity,
	}
}
