package marketplace

import (
	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Aggregate type constant
const AggregateTypeBid = "Bid"

// Event type constants
const (
	EventTypeBidSubmitted         = "BidSubmitted"
	EventTypeBidAccepted          = "BidAccepted"
	EventTypeBidRejected          = "BidRejected"
	EventTypeBidWithdrawn         = "BidWithdrawn"
	EventTypeCounterOfferProposed = "CounterOfferProposed"
	EventTypeCounterOfferDeclined = "CounterOfferDeclined"
)

// BidEventPayload is the part shared by every bid event
type BidEventPayload struct {
	BidID        uuid.UUID       `json:"bid_id"`
	LoadID       uuid.UUID       `json:"load_id"`
	DriverID     uuid.UUID       `json:"driver_id"`
	CargoOwnerID uuid.UUID       `json:"cargo_owner_id"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
	Status       BidStatus       `json:"status"`
}

func newBidEventPayload(b *Bid) BidEventPayload {
	return BidEventPayload{
		BidID:        b.ID,
		LoadID:       b.LoadID,
		DriverID:     b.DriverID,
		CargoOwnerID: b.CargoOwnerID,
		Amount:       b.Amount,
		Currency:     b.Currency,
		Status:       b.Status,
	}
}

// BidSubmittedEvent is raised when a driver bids on a load
type BidSubmittedEvent struct {
	shared.BaseDomainEvent
	BidEventPayload
	LoadTitle string `json:"load_title"`
}

// NewBidSubmittedEvent creates a new BidSubmittedEvent
func NewBidSubmittedEvent(b *Bid) *BidSubmittedEvent {
	return &BidSubmittedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBidSubmitted, AggregateTypeBid, b.ID, b.DriverID, b.UpdatedAt),
		BidEventPayload: newBidEventPayload(b),
		LoadTitle:       b.LoadSnapshot.Title,
	}
}

// BidAcceptedEvent is raised when a bid wins its load
type BidAcceptedEvent struct {
	shared.BaseDomainEvent
	BidEventPayload
}

// NewBidAcceptedEvent creates a new BidAcceptedEvent
func NewBidAcceptedEvent(b *Bid, actorID uuid.UUID) *BidAcceptedEvent {
	return &BidAcceptedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBidAccepted, AggregateTypeBid, b.ID, actorID, b.UpdatedAt),
		BidEventPayload: newBidEventPayload(b),
	}
}

// BidRejectedEvent is raised when a bid is declined, either by the owner
// or because a competing bid won.
type BidRejectedEvent struct {
	shared.BaseDomainEvent
	BidEventPayload
	Reason string `json:"reason"`
}

// NewBidRejectedEvent creates a new BidRejectedEvent
func NewBidRejectedEvent(b *Bid, actorID uuid.UUID, reason string) *BidRejectedEvent {
	return &BidRejectedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBidRejected, AggregateTypeBid, b.ID, actorID, b.UpdatedAt),
		BidEventPayload: newBidEventPayload(b),
		Reason:          reason,
	}
}

// BidWithdrawnEvent is raised when a driver retracts a bid
type BidWithdrawnEvent struct {
	shared.BaseDomainEvent
	BidEventPayload
}

// NewBidWithdrawnEvent creates a new BidWithdrawnEvent
func NewBidWithdrawnEvent(b *Bid) *BidWithdrawnEvent {
	return &BidWithdrawnEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeBidWithdrawn, AggregateTypeBid, b.ID, b.DriverID, b.UpdatedAt),
		BidEventPayload: newBidEventPayload(b),
	}
}

// CounterOfferProposedEvent is raised when the owner counters a bid
type CounterOfferProposedEvent struct {
	shared.BaseDomainEvent
	BidEventPayload
	CounterAmount decimal.Decimal `json:"counter_amount"`
	Message       string          `json:"message,omitempty"`
}

// NewCounterOfferProposedEvent creates a new CounterOfferProposedEvent
func NewCounterOfferProposedEvent(b *Bid, ownerID uuid.UUID) *CounterOfferProposedEvent {
	e := &CounterOfferProposedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCounterOfferProposed, AggregateTypeBid, b.ID, ownerID, b.UpdatedAt),
		BidEventPayload: newBidEventPayload(b),
	}
	if b.CounterOffer != nil {
		e.CounterAmount = b.CounterOffer.Amount
		e.Message = b.CounterOffer.Message
	}
	return e
}

// CounterOfferDeclinedEvent is raised when the driver turns a counter-offer down
type CounterOfferDeclinedEvent struct {
	shared.BaseDomainEvent
	BidEventPayload
	Reason string `json:"reason,omitempty"`
}

// NewCounterOfferDeclinedEvent creates a new CounterOfferDeclinedEvent
func NewCounterOfferDeclinedEvent(b *Bid, reason string) *CounterOfferDeclinedEvent {
	return &CounterOfferDeclinedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventTypeCounterOfferDeclined, AggregateTypeBid, b.ID, b.DriverID, b.UpdatedAt),
		BidEventPayload: newBidEventPayload(b),
		Reason:          reason,
	}
}
