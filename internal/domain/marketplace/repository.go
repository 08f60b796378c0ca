package marketplace

import (
	"context"
	"time"

	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoadRepository defines the interface for load persistence
type LoadRepository interface {
	// FindByID finds a load by ID
	FindByID(ctx context.Context, id uuid.UUID) (*Load, error)

	// FindAll lists loads. Supported filters: status, owner_id, open_only.
	FindAll(ctx context.Context, filter shared.Filter) ([]Load, int64, error)

	// Create inserts a new load
	Create(ctx context.Context, load *Load) error

	// SaveWithLock saves with optimistic locking (version check)
	SaveWithLock(ctx context.Context, load *Load) error
}

// BidRepository defines the interface for bid persistence
type BidRepository interface {
	// FindByID finds a bid by ID, history included
	FindByID(ctx context.Context, id uuid.UUID) (*Bid, error)

	// FindByLoad lists bids for a load, optionally restricted to statuses, newest first
	FindByLoad(ctx context.Context, loadID uuid.UUID, statuses ...BidStatus) ([]Bid, error)

	// FindByDriver lists a driver's bids. Supported filters: status.
	FindByDriver(ctx context.Context, driverID uuid.UUID, filter shared.Filter) ([]Bid, int64, error)

	// ExistsActive reports whether driverID holds a non-terminal bid on loadID
	ExistsActive(ctx context.Context, loadID, driverID uuid.UUID) (bool, error)

	// SaveWithLock saves with optimistic locking and appends new history entries
	SaveWithLock(ctx context.Context, bid *Bid) error
}

// RatingSummary is the aggregate of every rating a user received in one role
type RatingSummary struct {
	Average decimal.Decimal
	Count   int
}

// BookingRepository defines the interface for booking persistence
type BookingRepository interface {
	// FindByID finds a booking by ID, timeline and history included
	FindByID(ctx context.Context, id uuid.UUID) (*Booking, error)

	// FindByBid finds the booking created from a bid
	FindByBid(ctx context.Context, bidID uuid.UUID) (*Booking, error)

	// FindByParty lists bookings where userID is driver or cargo owner. Supported filters: status.
	FindByParty(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]Booking, int64, error)

	// CountLiveByLoad counts live bookings on a load, excluding excludeID
	CountLiveByLoad(ctx context.Context, loadID, excludeID uuid.UUID) (int64, error)

	// SaveWithLock saves with optimistic locking and appends new history and timeline entries
	SaveWithLock(ctx context.Context, booking *Booking) error

	// RatingSummary aggregates the ratings received by userID acting as role
	RatingSummary(ctx context.Context, userID uuid.UUID, role shared.Role) (RatingSummary, error)
}

// Acceptance is everything the allocation engine commits when a bid wins.
type Acceptance struct {
	Bid     *Bid
	Load    *Load
	Booking *Booking
	ActorID uuid.UUID
	At      time.Time
}

// AcceptanceOutcome reports what the commit did beyond the winning bid.
type AcceptanceOutcome struct {
	// RejectedBids are the competitors moved to rejected, with their new history appended.
	RejectedBids []Bid
}

// Cancellation withdraws a load and all of its live bids.
type Cancellation struct {
	Load    *Load
	ActorID uuid.UUID
	At      time.Time
}

// AllocationStore commits the multi-entity changes of the bidding protocol.
// Each method is one transaction: either every effect is applied or none is.
type AllocationStore interface {
	// CommitSubmission inserts the bid and registers it on its load.
	CommitSubmission(ctx context.Context, bid *Bid, load *Load) error

	// CommitAcceptance applies the five acceptance effects: accept the bid,
	// assign the load, insert the booking, reject competitors, and mark the
	// driver unavailable. A lost race returns a conflict-family error.
	CommitAcceptance(ctx context.Context, a Acceptance) (AcceptanceOutcome, error)

	// CommitCancellation cancels the load and rejects its live bids.
	CommitCancellation(ctx context.Context, c Cancellation) ([]Bid, error)
}

// BookingChange is a booking transition plus its cascaded effects.
type BookingChange struct {
	Booking *Booking
	// Load is nil when the transition leaves the load untouched.
	Load *Load
	// DriverAvailable, when set, is written to the driver's profile.
	DriverAvailable *bool
}

// BookingStore commits booking transitions together with their side effects.
type BookingStore interface {
	CommitTransition(ctx context.Context, change BookingChange) error
}
