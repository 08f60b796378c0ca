package models

import (
	"time"

	"github.com/freightmarket/backend/internal/domain/marketplace"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BidModel is the persistence model for the Bid aggregate root.
// idx_bids_active_driver allows one non-terminal bid per driver and load.
type BidModel struct {
	AggregateModel
	LoadID               uuid.UUID                      `gorm:"type:uuid;not null;index;index:idx_bids_active_driver,unique,priority:1,where:status <> 'accepted' AND status <> 'rejected' AND status <> 'withdrawn' AND status <> 'expired'"`
	DriverID             uuid.UUID                      `gorm:"type:uuid;not null;index;index:idx_bids_active_driver,unique,priority:2"`
	CargoOwnerID         uuid.UUID                      `gorm:"type:uuid;not null"`
	Amount               decimal.Decimal                `gorm:"type:decimal(14,2);not null"`
	Currency             string                         `gorm:"type:char(3);not null"`
	ProposedPickupDate   time.Time                      `gorm:"not null"`
	ProposedDeliveryDate time.Time                      `gorm:"not null"`
	Vehicle              marketplace.VehicleDetails     `gorm:"type:jsonb;serializer:json;not null"`
	AdditionalServices   []marketplace.AdditionalService `gorm:"type:jsonb;serializer:json"`
	Pricing              marketplace.PricingBreakdown   `gorm:"type:jsonb;serializer:json"`
	PaymentTerms         string                         `gorm:"type:varchar(20);not null"`
	Message              string                         `gorm:"type:text"`
	Status               string                         `gorm:"type:varchar(30);not null;index"`
	SubmittedAt          time.Time                      `gorm:"not null"`
	ViewedAt             *time.Time
	ViewCount            int `gorm:"not null;default:0"`
	RespondedAt          *time.Time
	ExpiresAt            time.Time `gorm:"not null;index"`
	AcceptedAt           *time.Time
	AcceptedBy           *uuid.UUID                 `gorm:"type:uuid"`
	RejectionReason      string                     `gorm:"type:varchar(500)"`
	DriverSnapshot       marketplace.DriverSnapshot `gorm:"type:jsonb;serializer:json;not null"`
	LoadSnapshot         marketplace.LoadSnapshot   `gorm:"type:jsonb;serializer:json;not null"`
	Response             *marketplace.BidResponse   `gorm:"type:jsonb;serializer:json"`
	CounterOffer         *marketplace.CounterOffer  `gorm:"type:jsonb;serializer:json"`
	// Associations
	History []BidStatusHistoryModel `gorm:"foreignKey:BidID;references:ID"`
}

// TableName returns the table name for GORM
func (BidModel) TableName() string {
	return "bids"
}

// ToDomain converts the persistence model to a domain Bid entity.
func (m *BidModel) ToDomain() *marketplace.Bid {
	entries := make([]marketplace.StatusChange, len(m.History))
	for i, h := range m.History {
		entries[i] = h.ToDomain()
	}
	return &marketplace.Bid{
		BaseAggregateRoot:    m.aggregateRoot(),
		LoadID:               m.LoadID,
		DriverID:             m.DriverID,
		CargoOwnerID:         m.CargoOwnerID,
		Amount:               m.Amount,
		Currency:             m.Currency,
		ProposedPickupDate:   m.ProposedPickupDate,
		ProposedDeliveryDate: m.ProposedDeliveryDate,
		Vehicle:              m.Vehicle,
		AdditionalServices:   m.AdditionalServices,
		Pricing:              m.Pricing,
		PaymentTerms:         marketplace.PaymentTerms(m.PaymentTerms),
		Message:              m.Message,
		Status:               marketplace.BidStatus(m.Status),
		SubmittedAt:          m.SubmittedAt,
		ViewedAt:             m.ViewedAt,
		ViewCount:            m.ViewCount,
		RespondedAt:          m.RespondedAt,
		ExpiresAt:            m.ExpiresAt,
		AcceptedAt:           m.AcceptedAt,
		AcceptedBy:           m.AcceptedBy,
		RejectionReason:      m.RejectionReason,
		DriverSnapshot:       m.DriverSnapshot,
		LoadSnapshot:         m.LoadSnapshot,
		Response:             m.Response,
		CounterOffer:         m.CounterOffer,
		History:              marketplace.NewStatusHistory(entries),
	}
}

// FromDomain populates the persistence model from a domain Bid entity.
// History rows are converted separately by BidHistoryModels.
func (m *BidModel) FromDomain(b *marketplace.Bid) {
	m.setAggregateRoot(b.BaseAggregateRoot)
	m.LoadID = b.LoadID
	m.DriverID = b.DriverID
	m.CargoOwnerID = b.CargoOwnerID
	m.Amount = b.Amount
	m.Currency = b.Currency
	m.ProposedPickupDate = b.ProposedPickupDate
	m.ProposedDeliveryDate = b.ProposedDeliveryDate
	m.Vehicle = b.Vehicle
	m.AdditionalServices = b.AdditionalServices
	m.Pricing = b.Pricing
	m.PaymentTerms = string(b.PaymentTerms)
	m.Message = b.Message
	m.Status = string(b.Status)
	m.SubmittedAt = b.SubmittedAt
	m.ViewedAt = b.ViewedAt
	m.ViewCount = b.ViewCount
	m.RespondedAt = b.RespondedAt
	m.ExpiresAt = b.ExpiresAt
	m.AcceptedAt = b.AcceptedAt
	m.AcceptedBy = b.AcceptedBy
	m.RejectionReason = b.RejectionReason
	m.DriverSnapshot = b.DriverSnapshot
	m.LoadSnapshot = b.LoadSnapshot
	m.Response = b.Response
	m.CounterOffer = b.CounterOffer
}

// BidModelFromDomain creates a new persistence model from a domain Bid
func BidModelFromDomain(b *marketplace.Bid) *BidModel {
	m := &BidModel{}
	m.FromDomain(b)
	return m
}

// MutableColumns returns the columns a version-checked save rewrites.
// Terms and snapshots are fixed at submission.
func (m *BidModel) MutableColumns() map[string]interface{} {
	return map[string]interface{}{
		"status":           m.Status,
		"viewed_at":        m.ViewedAt,
		"view_count":       m.ViewCount,
		"responded_at":     m.RespondedAt,
		"accepted_at":      m.AcceptedAt,
		"accepted_by":      m.AcceptedBy,
		"rejection_reason": m.RejectionReason,
		"response":         jsonColumn(m.Response),
		"counter_offer":    jsonColumn(m.CounterOffer),
		"updated_at":       m.UpdatedAt,
	}
}

// BidStatusHistoryModel is one entry of a bid's status log.
type BidStatusHistoryModel struct {
	BidID uuid.UUID `gorm:"type:uuid;primaryKey"`
	StatusChangeModel
}

// TableName returns the table name for GORM
func (BidStatusHistoryModel) TableName() string {
	return "bid_status_history"
}

// BidHistoryModels converts history entries into rows for bidID.
func BidHistoryModels(bidID uuid.UUID, entries []marketplace.StatusChange) []BidStatusHistoryModel {
	rows := make([]BidStatusHistoryModel, len(entries))
	for i, e := range entries {
		rows[i] = BidStatusHistoryModel{BidID: bidID, StatusChangeModel: NewStatusChangeModel(e)}
	}
	return rows
}
