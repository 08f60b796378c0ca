package marketplace

import (
	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeLoad = "Load"

// Event type constants
const (
	EventTypeLoadPosted    = "LoadPosted"
	EventTypeLoadAssigned  = "LoadAssigned"
	EventTypeLoadCancelled = "LoadCancelled"
)

// LoadPostedEvent is raised when a cargo owner posts a load
type LoadPostedEvent struct {
	shared.BaseDomainEvent
	LoadID       uuid.UUID       `json:"load_id"`
	OwnerID      uuid.UUID       `json:"owner_id"`
	Title        string          `json:"title"`
	PickupCity   string          `json:"pickup_city"`
	DeliveryCity string          `json:"delivery_city"`
	Budget       decimal.Decimal `json:"budget"`
}

// NewLoadPostedEvent creates a new LoadPostedEvent
func NewLoadPostedEvent(l *Load) *LoadPostedEvent {
	return &LoadPostedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLoadPosted, AggregateTypeLoad, l.ID, l.OwnerID, l.UpdatedAt),
		LoadID:          l.ID,
		OwnerID:         l.OwnerID,
		Title:           l.Title,
		PickupCity:      l.Pickup.City,
		DeliveryCity:    l.Delivery.City,
		Budget:          l.Budget,
	}
}

// LoadAssignedEvent is raised when a bid wins the load
type LoadAssignedEvent struct {
	shared.BaseDomainEvent
	LoadID   uuid.UUID       `json:"load_id"`
	OwnerID  uuid.UUID       `json:"owner_id"`
	DriverID uuid.UUID       `json:"driver_id"`
	BidID    uuid.UUID       `json:"bid_id"`
	Amount   decimal.Decimal `json:"amount"`
}

// NewLoadAssignedEvent creates a new LoadAssignedEvent
func NewLoadAssignedEvent(l *Load, bid *Bid, actorID uuid.UUID) *LoadAssignedEvent {
	return &LoadAssignedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLoadAssigned, AggregateTypeLoad, l.ID, actorID, l.UpdatedAt),
		LoadID:          l.ID,
		OwnerID:         l.OwnerID,
		DriverID:        bid.DriverID,
		BidID:           bid.ID,
		Amount:          bid.Amount,
	}
}

// LoadCancelledEvent is raised when the owner withdraws a load
type LoadCancelledEvent struct {
	shared.BaseDomainEvent
	LoadID  uuid.UUID `json:"load_id"`
	OwnerID uuid.UUID `json:"owner_id"`
	Reason  string    `json:"reason,omitempty"`
}

// NewLoadCancelledEvent creates a new LoadCancelledEvent
func NewLoadCancelledEvent(l *Load, actorID uuid.UUID) *LoadCancelledEvent {
	return &LoadCancelledEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeLoadCancelled, AggregateTypeLoad, l.ID, actorID, l.UpdatedAt),
		LoadID:          l.ID,
		OwnerID:         l.OwnerID,
		Reason:          l.CancelReason,
	}
}
