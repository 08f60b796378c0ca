package models

import (
	"time"

	"github.com/freightmarket/backend/internal/domain/marketplace"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookingModel is the persistence model for the Booking aggregate root.
// idx_bookings_live_load allows one live booking per load; bid_id is unique
// so a bid materializes at most once.
type BookingModel struct {
	AggregateModel
	Reference          string                     `gorm:"type:varchar(30);not null;uniqueIndex"`
	LoadID             uuid.UUID                  `gorm:"type:uuid;not null;index;index:idx_bookings_live_load,unique,where:status <> 'cancelled' AND status <> 'rejected'"`
	BidID              uuid.UUID                  `gorm:"type:uuid;not null;uniqueIndex"`
	DriverID           uuid.UUID                  `gorm:"type:uuid;not null;index"`
	CargoOwnerID       uuid.UUID                  `gorm:"type:uuid;not null;index"`
	Job                marketplace.JobSnapshot    `gorm:"type:jsonb;serializer:json;not null"`
	DriverSnapshot     marketplace.DriverSnapshot `gorm:"type:jsonb;serializer:json;not null"`
	Vehicle            marketplace.VehicleDetails `gorm:"type:jsonb;serializer:json;not null"`
	AgreedAmount       decimal.Decimal            `gorm:"type:decimal(14,2);not null"`
	Currency           string                     `gorm:"type:char(3);not null"`
	PaymentTerms       string                     `gorm:"type:varchar(20);not null"`
	Status             string                     `gorm:"type:varchar(30);not null;index"`
	AssignedAt         time.Time                  `gorm:"not null"`
	StartedAt          *time.Time
	ActualPickupDate   *time.Time
	ActualDeliveryDate *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	CancelledBy        *uuid.UUID `gorm:"type:uuid"`
	CancellationReason string     `gorm:"type:varchar(500)"`
	ProofOfDeliveryKey string     `gorm:"type:varchar(500)"`
	// Ratings are flat columns so averages aggregate in SQL.
	DriverRatingScore  *int
	DriverRatingReview string `gorm:"type:text"`
	DriverRatedBy      *uuid.UUID `gorm:"type:uuid"`
	DriverRatedAt      *time.Time
	OwnerRatingScore   *int
	OwnerRatingReview  string `gorm:"type:text"`
	OwnerRatedBy       *uuid.UUID `gorm:"type:uuid"`
	OwnerRatedAt       *time.Time
	// Associations
	History  []BookingStatusHistoryModel `gorm:"foreignKey:BookingID;references:ID"`
	Timeline []TrackingUpdateModel       `gorm:"foreignKey:BookingID;references:ID"`
}

// TableName returns the table name for GORM
func (BookingModel) TableName() string {
	return "bookings"
}

// ToDomain converts the persistence model to a domain Booking entity.
func (m *BookingModel) ToDomain() *marketplace.Booking {
	entries := make([]marketplace.StatusChange, len(m.History))
	for i, h := range m.History {
		entries[i] = h.ToDomain()
	}
	timeline := make([]marketplace.TrackingUpdate, len(m.Timeline))
	for i, t := range m.Timeline {
		timeline[i] = t.ToDomain()
	}
	return &marketplace.Booking{
		BaseAggregateRoot:  m.aggregateRoot(),
		Reference:          m.Reference,
		LoadID:             m.LoadID,
		BidID:              m.BidID,
		DriverID:           m.DriverID,
		CargoOwnerID:       m.CargoOwnerID,
		Job:                m.Job,
		Driver:             m.DriverSnapshot,
		Vehicle:            m.Vehicle,
		AgreedAmount:       m.AgreedAmount,
		Currency:           m.Currency,
		PaymentTerms:       marketplace.PaymentTerms(m.PaymentTerms),
		Status:             marketplace.BookingStatus(m.Status),
		AssignedAt:         m.AssignedAt,
		StartedAt:          m.StartedAt,
		ActualPickupDate:   m.ActualPickupDate,
		ActualDeliveryDate: m.ActualDeliveryDate,
		CompletedAt:        m.CompletedAt,
		CancelledAt:        m.CancelledAt,
		CancelledBy:        m.CancelledBy,
		CancellationReason: m.CancellationReason,
		ProofOfDeliveryKey: m.ProofOfDeliveryKey,
		Timeline:           timeline,
		History:            marketplace.NewStatusHistory(entries),
		DriverRating:       ratingFromColumns(m.DriverRatingScore, m.DriverRatingReview, m.DriverRatedBy, m.DriverRatedAt),
		OwnerRating:        ratingFromColumns(m.OwnerRatingScore, m.OwnerRatingReview, m.OwnerRatedBy, m.OwnerRatedAt),
	}
}

func ratingFromColumns(score *int, review string, by *uuid.UUID, at *time.Time) *marketplace.Rating {
	if score == nil {
		return nil
	}
	r := &marketplace.Rating{Score: *score, Review: review}
	if by != nil {
		r.RatedBy = *by
	}
	if at != nil {
		r.RatedAt = *at
	}
	return r
}

// FromDomain populates the persistence model from a domain Booking entity.
// History and timeline rows are converted separately.
func (m *BookingModel) FromDomain(b *marketplace.Booking) {
	m.setAggregateRoot(b.BaseAggregateRoot)
	m.Reference = b.Reference
	m.LoadID = b.LoadID
	m.BidID = b.BidID
	m.DriverID = b.DriverID
	m.CargoOwnerID = b.CargoOwnerID
	m.Job = b.Job
	m.DriverSnapshot = b.Driver
	m.Vehicle = b.Vehicle
	m.AgreedAmount = b.AgreedAmount
	m.Currency = b.Currency
	m.PaymentTerms = string(b.PaymentTerms)
	m.Status = string(b.Status)
	m.AssignedAt = b.AssignedAt
	m.StartedAt = b.StartedAt
	m.ActualPickupDate = b.ActualPickupDate
	m.ActualDeliveryDate = b.ActualDeliveryDate
	m.CompletedAt = b.CompletedAt
	m.CancelledAt = b.CancelledAt
	m.CancelledBy = b.CancelledBy
	m.CancellationReason = b.CancellationReason
	m.ProofOfDeliveryKey = b.ProofOfDeliveryKey
	m.DriverRatingScore, m.DriverRatingReview, m.DriverRatedBy, m.DriverRatedAt = ratingColumns(b.DriverRating)
	m.OwnerRatingScore, m.OwnerRatingReview, m.OwnerRatedBy, m.OwnerRatedAt = ratingColumns(b.OwnerRating)
}

func ratingColumns(r *marketplace.Rating) (*int, string, *uuid.UUID, *time.Time) {
	if r == nil {
		return nil, "", nil, nil
	}
	score, by, at := r.Score, r.RatedBy, r.RatedAt
	return &score, r.Review, &by, &at
}

// BookingModelFromDomain creates a new persistence model from a domain Booking
func BookingModelFromDomain(b *marketplace.Booking) *BookingModel {
	m := &BookingModel{}
	m.FromDomain(b)
	return m
}

// MutableColumns returns the columns a version-checked save rewrites.
func (m *BookingModel) MutableColumns() map[string]interface{} {
	return map[string]interface{}{
		"status":                m.Status,
		"started_at":            m.StartedAt,
		"actual_pickup_date":    m.ActualPickupDate,
		"actual_delivery_date":  m.ActualDeliveryDate,
		"completed_at":          m.CompletedAt,
		"cancelled_at":          m.CancelledAt,
		"cancelled_by":          m.CancelledBy,
		"cancellation_reason":   m.CancellationReason,
		"proof_of_delivery_key": m.ProofOfDeliveryKey,
		"driver_rating_score":   m.DriverRatingScore,
		"driver_rating_review":  m.DriverRatingReview,
		"driver_rated_by":       m.DriverRatedBy,
		"driver_rated_at":       m.DriverRatedAt,
		"owner_rating_score":    m.OwnerRatingScore,
		"owner_rating_review":   m.OwnerRatingReview,
		"owner_rated_by":        m.OwnerRatedBy,
		"owner_rated_at":        m.OwnerRatedAt,
		"updated_at":            m.UpdatedAt,
	}
}

// BookingStatusHistoryModel is one entry of a booking's status log.
type BookingStatusHistoryModel struct {
	BookingID uuid.UUID `gorm:"type:uuid;primaryKey"`
	StatusChangeModel
}

// TableName returns the table name for GORM
func (BookingStatusHistoryModel) TableName() string {
	return "booking_status_history"
}

// BookingHistoryModels converts history entries into rows for bookingID.
func BookingHistoryModels(bookingID uuid.UUID, entries []marketplace.StatusChange) []BookingStatusHistoryModel {
	rows := make([]BookingStatusHistoryModel, len(entries))
	for i, e := range entries {
		rows[i] = BookingStatusHistoryModel{BookingID: bookingID, StatusChangeModel: NewStatusChangeModel(e)}
	}
	return rows
}

// TrackingUpdateModel is one entry of a booking's timeline.
type TrackingUpdateModel struct {
	BookingID  uuid.UUID `gorm:"type:uuid;primaryKey"`
	Sequence   int       `gorm:"primaryKey;autoIncrement:false"`
	Status     string    `gorm:"type:varchar(30);not null"`
	Note       string    `gorm:"type:varchar(500)"`
	Latitude   *float64
	Longitude  *float64
	RecordedBy uuid.UUID `gorm:"type:uuid;not null"`
	RecordedAt time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (TrackingUpdateModel) TableName() string {
	return "booking_tracking_updates"
}

// ToDomain converts the row to a domain TrackingUpdate
func (m TrackingUpdateModel) ToDomain() marketplace.TrackingUpdate {
	u := marketplace.TrackingUpdate{
		Sequence:   m.Sequence,
		Status:     marketplace.BookingStatus(m.Status),
		Note:       m.Note,
		RecordedBy: m.RecordedBy,
		RecordedAt: m.RecordedAt,
	}
	if m.Latitude != nil && m.Longitude != nil {
		u.Location = &marketplace.GeoPoint{Latitude: *m.Latitude, Longitude: *m.Longitude}
	}
	return u
}

// TrackingUpdateModels converts timeline entries into rows for bookingID.
func TrackingUpdateModels(bookingID uuid.UUID, updates []marketplace.TrackingUpdate) []TrackingUpdateModel {
	rows := make([]TrackingUpdateModel, len(updates))
	for i, u := range updates {
		rows[i] = TrackingUpdateModel{
			BookingID:  bookingID,
			Sequence:   u.Sequence,
			Status:     string(u.Status),
			Note:       u.Note,
			RecordedBy: u.RecordedBy,
			RecordedAt: u.RecordedAt,
		}
		if u.Location != nil {
			lat, lng := u.Location.Latitude, u.Location.Longitude
			rows[i].Latitude = &lat
			rows[i].Longitude = &lng
		}
	}
	return rows
}
