package models

import (
	"time"

	"github.com/waifubot/backend/internal/domain/exchange"
)

// ExchangeLogModel is the persistence model for audit entries.
type ExchangeLogModel struct {
	ID             int64     `gorm:"primaryKey;autoIncrement"`
	EventID        string    `gorm:"type:varchar(36);not null;uniqueIndex"`
	EventType      string    `gorm:"type:varchar(64);not null;index"`
	AccountID      int64     `gorm:"not null;index"`
	CounterpartyID int64     `gorm:"not null;default:0"`
	ChatID         int64     `gorm:"not null;default:0"`
	CardID         int64     `gorm:"not null;default:0"`
	Price          int64     `gorm:"not null;default:0"`
	Units          int64     `gorm:"not null;default:0"`
	Details        string    `gorm:"type:text;not null;default:''"`
	OccurredAt     time.Time `gorm:"not null;index"`
}

// TableName returns the table name for GORM
func (ExchangeLogModel) TableName() string {
	return "exchange_logs"
}

// ToDomain converts the persistence model to a domain LogEntry.
func (m *ExchangeLogModel) ToDomain() exchange.LogEntry {
	return exchange.LogEntry{
		ID:             m.ID,
		EventID:        m.EventID,
		EventType:      m.EventType,
		AccountID:      m.AccountID,
		CounterpartyID: m.CounterpartyID,
		ChatID:         m.ChatID,
		CardID:         m.CardID,
		Price:          m.Price,
		Units:          m.Units,
		Details:        m.Details,
		OccurredAt:     m.OccurredAt,
	}
}

// ExchangeLogModelFromDomain creates a new persistence model from a domain LogEntry.
func ExchangeLogModelFromDomain(e *exchange.LogEntry) *ExchangeLogModel {
	return &ExchangeLogModel{
		ID:             e.ID,
		EventID:        e.EventID,
		EventType:      e.EventType,
		AccountID:      e.AccountID,
		CounterpartyID: e.CounterpartyID,
		ChatID:         e.ChatID,
		CardID:         e.CardID,
		Price:          e.Price,
		Units:          e.Units,
		Details:        e.Details,
		OccurredAt:     e.OccurredAt,
	}
}

// AllModels lists every model for test schema setup
func AllModels() []any {
	return []any{
		&AccountModel{},
		&CardModel{},
		&InventoryUnitModel{},
		&ExchangeLogModel{},
	}
}
