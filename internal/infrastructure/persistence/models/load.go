package models

import (
	"time"

	"github.com/freightmarket/backend/internal/domain/marketplace"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoadModel is the persistence model for the Load aggregate root.
type LoadModel struct {
	AggregateModel
	OwnerID          uuid.UUID            `gorm:"type:uuid;not null;index"`
	Title            string               `gorm:"type:varchar(200);not null"`
	Description      string               `gorm:"type:text"`
	CargoType        string               `gorm:"type:varchar(100)"`
	Pickup           marketplace.Location `gorm:"type:jsonb;serializer:json;not null"`
	Delivery         marketplace.Location `gorm:"type:jsonb;serializer:json;not null"`
	PickupDate       time.Time            `gorm:"not null"`
	DeliveryDeadline *time.Time
	WeightKg         decimal.Decimal  `gorm:"type:decimal(14,2);not null"`
	Budget           decimal.Decimal  `gorm:"type:decimal(14,2);not null"`
	Currency         string           `gorm:"type:char(3);not null"`
	Status           string           `gorm:"type:varchar(30);not null;index"`
	BidCount         int              `gorm:"not null;default:0"`
	AssignedDriverID *uuid.UUID       `gorm:"type:uuid;index"`
	AcceptedBidID    *uuid.UUID       `gorm:"type:uuid"`
	AcceptedAmount   *decimal.Decimal `gorm:"type:decimal(14,2)"`
	AssignedAt       *time.Time
	CancelledAt      *time.Time
	CancelReason     string `gorm:"type:varchar(500)"`
}

// TableName returns the table name for GORM
func (LoadModel) TableName() string {
	return "loads"
}

// ToDomain converts the persistence model to a domain Load entity.
func (m *LoadModel) ToDomain() *marketplace.Load {
	l := &marketplace.Load{
		BaseAggregateRoot: m.aggregateRoot(),
		OwnerID:           m.OwnerID,
		Title:             m.Title,
		Description:       m.Description,
		CargoType:         m.CargoType,
		Pickup:            m.Pickup,
		Delivery:          m.Delivery,
		PickupDate:        m.PickupDate,
		WeightKg:          m.WeightKg,
		Budget:            m.Budget,
		Currency:          m.Currency,
		Status:            marketplace.LoadStatus(m.Status),
		BidCount:          m.BidCount,
		AssignedDriverID:  m.AssignedDriverID,
		AcceptedBidID:     m.AcceptedBidID,
		AcceptedAmount:    m.AcceptedAmount,
		AssignedAt:        m.AssignedAt,
		CancelledAt:       m.CancelledAt,
		CancelReason:      m.CancelReason,
	}
	if m.DeliveryDeadline != nil {
		l.DeliveryDeadline = *m.DeliveryDeadline
	}
	return l
}

// FromDomain populates the persistence model from a domain Load entity.
func (m *LoadModel) FromDomain(l *marketplace.Load) {
	m.setAggregateRoot(l.BaseAggregateRoot)
	m.OwnerID = l.OwnerID
	m.Title = l.Title
	m.Description = l.Description
	m.CargoType = l.CargoType
	m.Pickup = l.Pickup
	m.Delivery = l.Delivery
	m.PickupDate = l.PickupDate
	m.DeliveryDeadline = nil
	if !l.DeliveryDeadline.IsZero() {
		deadline := l.DeliveryDeadline
		m.DeliveryDeadline = &deadline
	}
	m.WeightKg = l.WeightKg
	m.Budget = l.Budget
	m.Currency = l.Currency
	m.Status = string(l.Status)
	m.BidCount = l.BidCount
	m.AssignedDriverID = l.AssignedDriverID
	m.AcceptedBidID = l.AcceptedBidID
	m.AcceptedAmount = l.AcceptedAmount
	m.AssignedAt = l.AssignedAt
	m.CancelledAt = l.CancelledAt
	m.CancelReason = l.CancelReason
}

// LoadModelFromDomain creates a new persistence model from a domain Load
func LoadModelFromDomain(l *marketplace.Load) *LoadModel {
	m := &LoadModel{}
	m.FromDomain(l)
	return m
}

// MutableColumns returns the columns a version-checked save rewrites.
func (m *LoadModel) MutableColumns() map[string]interface{} {
	return map[string]interface{}{
		"title":              m.Title,
		"description":        m.Description,
		"status":             m.Status,
		"assigned_driver_id": m.AssignedDriverID,
		"accepted_bid_id":    m.AcceptedBidID,
		"accepted_amount":    m.AcceptedAmount,
		"assigned_at":        m.AssignedAt,
		"cancelled_at":       m.CancelledAt,
		"cancel_reason":      m.CancelReason,
		"updated_at":         m.UpdatedAt,
	}
}
