package marketplace

import (
	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeBooking = "Booking"

// Event type constants
const (
	EventTypeBookingCreated       = "BookingCreated"
	EventTypeBookingStatusChanged = "BookingStatusChanged"
	EventTypeBookingCompleted     = "BookingCompleted"
	EventTypeBookingCancelled     = "BookingCancelled"
	EventTypeRatingSubmitted      = "RatingSubmitted"
)

// BookingCreatedEvent is raised by the allocation engine when a bid is accepted
type BookingCreatedEvent struct {
	shared.BaseDomainEvent
	BookingID    uuid.UUID       `json:"booking_id"`
	Reference    string          `json:"reference"`
	LoadID       uuid.UUID       `json:"load_id"`
	BidID        uuid.UUID       `json:"bid_id"`
	DriverID     uuid.UUID       `json:"driver_id"`
	CargoOwnerID uuid.UUID       `json:"cargo_owner_id"`
	AgreedAmount decimal.Decimal `json:"agreed_amount"`
}

// NewBookingCreatedEvent creates a new BookingCreatedEvent
func NewBookingCreatedEvent(b *Booking, actorID uuid.UUID) *BookingCreatedEvent {
	return &BookingCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBookingCreated, AggregateTypeBooking, b.ID, actorID, b.CreatedAt),
		BookingID:       b.ID,
		Reference:       b.Reference,
		LoadID:          b.LoadID,
		BidID:           b.BidID,
		DriverID:        b.DriverID,
		CargoOwnerID:    b.CargoOwnerID,
		AgreedAmount:    b.AgreedAmount,
	}
}

// BookingStatusChangedEvent is raised on every booking transition
type BookingStatusChangedEvent struct {
	shared.BaseDomainEvent
	BookingID    uuid.UUID     `json:"booking_id"`
	LoadID       uuid.UUID     `json:"load_id"`
	DriverID     uuid.UUID     `json:"driver_id"`
	CargoOwnerID uuid.UUID     `json:"cargo_owner_id"`
	FromStatus   BookingStatus `json:"from_status"`
	ToStatus     BookingStatus `json:"to_status"`
}

// NewBookingStatusChangedEvent creates a new BookingStatusChangedEvent
func NewBookingStatusChangedEvent(b *Booking, from BookingStatus, actorID uuid.UUID) *BookingStatusChangedEvent {
	return &BookingStatusChangedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBookingStatusChanged, AggregateTypeBooking, b.ID, actorID, b.UpdatedAt),
		BookingID:       b.ID,
		LoadID:          b.LoadID,
		DriverID:        b.DriverID,
		CargoOwnerID:    b.CargoOwnerID,
		FromStatus:      from,
		ToStatus:        b.Status,
	}
}

// BookingCompletedEvent is raised when the job is finished; profile
// counters are driven from it.
type BookingCompletedEvent struct {
	shared.BaseDomainEvent
	BookingID    uuid.UUID       `json:"booking_id"`
	DriverID     uuid.UUID       `json:"driver_id"`
	CargoOwnerID uuid.UUID       `json:"cargo_owner_id"`
	AgreedAmount decimal.Decimal `json:"agreed_amount"`
}

// NewBookingCompletedEvent creates a new BookingCompletedEvent
func NewBookingCompletedEvent(b *Booking) *BookingCompletedEvent {
	return &BookingCompletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBookingCompleted, AggregateTypeBooking, b.ID, b.DriverID, b.UpdatedAt),
		BookingID:       b.ID,
		DriverID:        b.DriverID,
		CargoOwnerID:    b.CargoOwnerID,
		AgreedAmount:    b.AgreedAmount,
	}
}

// BookingCancelledEvent is raised when a booking is cancelled or rejected
type BookingCancelledEvent struct {
	shared.BaseDomainEvent
	BookingID    uuid.UUID     `json:"booking_id"`
	LoadID       uuid.UUID     `json:"load_id"`
	DriverID     uuid.UUID     `json:"driver_id"`
	CargoOwnerID uuid.UUID     `json:"cargo_owner_id"`
	FromStatus   BookingStatus `json:"from_status"`
	ToStatus     BookingStatus `json:"to_status"`
	Reason       string        `json:"reason,omitempty"`
}

// NewBookingCancelledEvent creates a new BookingCancelledEvent
func NewBookingCancelledEvent(b *Booking, from BookingStatus, actorID uuid.UUID) *BookingCancelledEvent {
	return &BookingCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBookingCancelled, AggregateTypeBooking, b.ID, actorID, b.UpdatedAt),
		BookingID:       b.ID,
		LoadID:          b.LoadID,
		DriverID:        b.DriverID,
		CargoOwnerID:    b.CargoOwnerID,
		FromStatus:      from,
		ToStatus:        b.Status,
		Reason:          b.CancellationReason,
	}
}

// RatingSubmittedEvent carries one rating to the rated party's profile
type RatingSubmittedEvent struct {
	shared.BaseDomainEvent
	BookingID  uuid.UUID   `json:"booking_id"`
	RaterID    uuid.UUID   `json:"rater_id"`
	TargetID   uuid.UUID   `json:"target_id"`
	TargetRole shared.Role `json:"target_role"`
	Score      int         `json:"score"`
}

// NewRatingSubmittedEvent creates a new RatingSubmittedEvent
func NewRatingSubmittedEvent(b *Booking, raterID uuid.UUID, target RatingTarget, score int) *RatingSubmittedEvent {
	return &RatingSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeRatingSubmitted, AggregateTypeBooking, b.ID, raterID, b.UpdatedAt),
		BookingID:       b.ID,
		RaterID:         raterID,
		TargetID:        target.UserID,
		TargetRole:      target.Role,
		Score:           score,
	}
}
