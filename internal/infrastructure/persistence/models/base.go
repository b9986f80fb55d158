package models

import (
	"time"

	"github.com/waifubot/backend/internal/domain/shared"
)

// TimestampModel provides creation and update timestamps
type TimestampModel struct {
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
}

// AggregateModel adds a version column for optimistic locking
type AggregateModel struct {
	TimestampModel
	Version int `gorm:"not null;default:1"`
}

// FromDomainAggregateRoot copies the version from a domain aggregate
func (m *AggregateModel) FromDomainAggregateRoot(a shared.BaseAggregateRoot) {
	m.Version = a.Version
}

// ToDomainAggregateRoot builds the domain aggregate base
func (m *AggregateModel) ToDomainAggregateRoot() shared.BaseAggregateRoot {
	root := shared.NewBaseAggregateRoot()
	root.Version = m.Version
	return root
}
