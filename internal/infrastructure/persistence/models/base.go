package models

import (
	"time"

	"github.com/freightmarket/backend/internal/domain/marketplace"
	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// AggregateModel holds the columns shared by every aggregate table.
type AggregateModel struct {
	ID        uuid.UUID `gorm:"type:uuid;primaryKey"`
	CreatedAt time.Time `gorm:"not null"`
	UpdatedAt time.Time `gorm:"not null"`
	Version   int       `gorm:"not null;default:1"`
}

func (m *AggregateModel) aggregateRoot() shared.BaseAggregateRoot {
	return shared.RestoreAggregateRoot(m.ID, m.CreatedAt, m.UpdatedAt, m.Version)
}

func (m *AggregateModel) setAggregateRoot(a shared.BaseAggregateRoot) {
	m.ID = a.ID
	m.CreatedAt = a.CreatedAt
	m.UpdatedAt = a.UpdatedAt
	m.Version = a.Version
}

// StatusChangeModel is one row of an append-only status log. Rows are keyed
// by owner and sequence and never updated.
type StatusChangeModel struct {
	Sequence   int       `gorm:"primaryKey;autoIncrement:false"`
	FromStatus string    `gorm:"type:varchar(30)"`
	ToStatus   string    `gorm:"type:varchar(30);not null"`
	ActorID    uuid.UUID `gorm:"type:uuid;not null"`
	Reason     string    `gorm:"type:varchar(500)"`
	ChangedAt  time.Time `gorm:"not null"`
}

// ToDomain converts the row to a domain StatusChange
func (m StatusChangeModel) ToDomain() marketplace.StatusChange {
	return marketplace.StatusChange{
		Sequence: m.Sequence,
		From:     m.FromStatus,
		To:       m.ToStatus,
		Actor:    m.ActorID,
		Reason:   m.Reason,
		At:       m.ChangedAt,
	}
}

// NewStatusChangeModel converts a domain StatusChange to its row shape
func NewStatusChangeModel(c marketplace.StatusChange) StatusChangeModel {
	return StatusChangeModel{
		Sequence:   c.Sequence,
		FromStatus: c.From,
		ToStatus:   c.To,
		ActorID:    c.Actor,
		Reason:     c.Reason,
		ChangedAt:  c.At,
	}
}

// All returns every persisted model, parents before children.
func All() []interface{} {
	return []interface{}{
		&ProfileModel{},
		&LoadModel{},
		&BidModel{},
		&BidStatusHistoryModel{},
		&BookingModel{},
		&BookingStatusHistoryModel{},
		&TrackingUpdateModel{},
	}
}
