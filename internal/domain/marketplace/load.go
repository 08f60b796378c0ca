package marketplace

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// LoadStatus represents the status of a load
type LoadStatus string

const (
	LoadStatusPosted         LoadStatus = "posted"
	LoadStatusReceivingBids  LoadStatus = "receiving_bids"
	LoadStatusDriverAssigned LoadStatus = "driver_assigned"
	LoadStatusInTransit      LoadStatus = "in_transit"
	LoadStatusDelivered      LoadStatus = "delivered"
	LoadStatusCompleted      LoadStatus = "completed"
	LoadStatusCancelled      LoadStatus = "cancelled"
)

// loadTransitions is the single source of truth for load status changes.
// driver_assigned/in_transit -> posted happens only when the live booking is released.
var loadTransitions = shared.TransitionTable[LoadStatus]{
	LoadStatusPosted:         {LoadStatusReceivingBids, LoadStatusDriverAssigned, LoadStatusCancelled},
	LoadStatusReceivingBids:  {LoadStatusDriverAssigned, LoadStatusCancelled},
	LoadStatusDriverAssigned: {LoadStatusInTransit, LoadStatusDelivered, LoadStatusPosted, LoadStatusCancelled},
	LoadStatusInTransit:      {LoadStatusDelivered, LoadStatusPosted},
	LoadStatusDelivered:      {LoadStatusCompleted},
	LoadStatusCompleted:      {},
	LoadStatusCancelled:      {},
}

// LoadTransitions exposes the load table for callers that build conditional updates.
func LoadTransitions() shared.TransitionTable[LoadStatus] {
	return loadTransitions
}

// IsValid checks if the status is a valid LoadStatus
func (s LoadStatus) IsValid() bool {
	_, ok := loadTransitions[s]
	return ok
}

// String returns the string representation of LoadStatus
func (s LoadStatus) String() string {
	return string(s)
}

// CanTransitionTo checks the load table
func (s LoadStatus) CanTransitionTo(target LoadStatus) bool {
	return loadTransitions.Allows(s, target)
}

// AcceptsBids reports whether a load in this status is open for bidding
func (s LoadStatus) AcceptsBids() bool {
	return s == LoadStatusPosted || s == LoadStatusReceivingBids
}

// HasAssignedDriver reports whether a driver must be set in this status
func (s LoadStatus) HasAssignedDriver() bool {
	switch s {
	case LoadStatusDriverAssigned, LoadStatusInTransit, LoadStatusDelivered, LoadStatusCompleted:
		return true
	}
	return false
}

// OpenLoadStatuses are the statuses accepting bids
var OpenLoadStatuses = []LoadStatus{LoadStatusPosted, LoadStatusReceivingBids}

var currencyPattern = regexp.MustCompile(`^[A-Z]{3}$`)

// LoadDetails is the owner-supplied description of a transport request
type LoadDetails struct {
	Title            string
	Description      string
	CargoType        string
	Pickup           Location
	Delivery         Location
	PickupDate       time.Time
	DeliveryDeadline time.Time
	WeightKg         decimal.Decimal
	Budget           decimal.Decimal
	Currency         string
}

// Load is a cargo owner's transport request open for bidding
type Load struct {
	shared.BaseAggregateRoot
	OwnerID          uuid.UUID
	Title            string
	Description      string
	CargoType        string
	Pickup           Location
	Delivery         Location
	PickupDate       time.Time
	DeliveryDeadline time.Time
	WeightKg         decimal.Decimal
	Budget           decimal.Decimal
	Currency         string
	Status           LoadStatus
	BidCount         int
	AssignedDriverID *uuid.UUID
	AcceptedBidID    *uuid.UUID
	AcceptedAmount   *decimal.Decimal
	AssignedAt       *time.Time
	CancelledAt      *time.Time
	CancelReason     string
}

// NewLoad posts a new load for ownerID
func NewLoad(ownerID uuid.UUID, d LoadDetails, now time.Time) (*Load, error) {
	var verrs shared.ValidationErrors
	if ownerID == uuid.Nil {
		verrs.Add("owner_id", "Owner ID cannot be empty")
	}
	title := strings.TrimSpace(d.Title)
	if title == "" {
		verrs.Add("title", "Title cannot be empty")
	} else if len([]rune(title)) > 200 {
		verrs.Add("title", "Title cannot exceed 200 characters")
	}
	if strings.TrimSpace(d.Pickup.City) == "" {
		verrs.Add("pickup.city", "Pickup city is required")
	}
	if strings.TrimSpace(d.Delivery.City) == "" {
		verrs.Add("delivery.city", "Delivery city is required")
	}
	if !d.WeightKg.IsPositive() {
		verrs.Add("weight_kg", "Weight must be positive")
	}
	if d.Budget.LessThan(decimal.NewFromInt(1)) {
		verrs.Add("budget", "Budget must be at least 1")
	}
	if d.PickupDate.IsZero() {
		verrs.Add("pickup_date", "Pickup date is required")
	}
	if !d.DeliveryDeadline.IsZero() && !d.DeliveryDeadline.After(d.PickupDate) {
		verrs.Add("delivery_deadline", "Delivery deadline must be after pickup date")
	}
	currency := strings.ToUpper(strings.TrimSpace(d.Currency))
	if currency == "" {
		currency = DefaultCurrency
	}
	if !currencyPattern.MatchString(currency) {
		verrs.Add("currency", "Currency must be a 3-letter ISO code")
	}
	if err := verrs.Err(); err != nil {
		return nil, err
	}

	load := &Load{
		BaseAggregateRoot: shared.NewBaseAggregateRootAt(now),
		OwnerID:           ownerID,
		Title:             title,
		Description:       strings.TrimSpace(d.Description),
		CargoType:         strings.TrimSpace(d.CargoType),
		Pickup:            d.Pickup,
		Delivery:          d.Delivery,
		PickupDate:        d.PickupDate,
		DeliveryDeadline:  d.DeliveryDeadline,
		WeightKg:          d.WeightKg,
		Budget:            d.Budget,
		Currency:          currency,
		Status:            LoadStatusPosted,
	}
	load.AddDomainEvent(NewLoadPostedEvent(load))
	return load, nil
}

// IsOwnedBy reports whether userID posted this load
func (l *Load) IsOwnedBy(userID uuid.UUID) bool {
	return l.OwnerID == userID
}

// AcceptsBids reports whether new bids may be submitted
func (l *Load) AcceptsBids() bool {
	return l.Status.AcceptsBids()
}

func (l *Load) moveTo(target LoadStatus, now time.Time) error {
	if !loadTransitions.Allows(l.Status, target) {
		return shared.NewInvalidTransitionError("load", l.Status, target)
	}
	l.Status = target
	l.Touch(now)
	return nil
}

// RegisterBid counts a newly submitted bid; the first bid opens the bidding window.
func (l *Load) RegisterBid(now time.Time) error {
	if !l.AcceptsBids() {
		return shared.NewConflictError(fmt.Sprintf("Load is not accepting bids in %s status", l.Status))
	}
	if l.Status == LoadStatusPosted {
		if err := l.moveTo(LoadStatusReceivingBids, now); err != nil {
			return err
		}
	}
	l.BidCount++
	l.Touch(now)
	return nil
}

// EnsureAssignable checks that no driver has been assigned yet.
func (l *Load) EnsureAssignable() error {
	switch l.Status {
	case LoadStatusPosted, LoadStatusReceivingBids:
		return nil
	case LoadStatusDriverAssigned, LoadStatusInTransit, LoadStatusDelivered:
		return shared.NewConflictError("Load has already been assigned to a driver")
	default:
		return shared.NewConflictError(fmt.Sprintf("Load is %s", l.Status))
	}
}

// AssignDriver records the winning bid
func (l *Load) AssignDriver(bid *Bid, actorID uuid.UUID, now time.Time) error {
	if err := l.EnsureAssignable(); err != nil {
		return err
	}
	if err := l.moveTo(LoadStatusDriverAssigned, now); err != nil {
		return err
	}
	driverID := bid.DriverID
	bidID := bid.ID
	amount := bid.Amount
	l.AssignedDriverID = &driverID
	l.AcceptedBidID = &bidID
	l.AcceptedAmount = &amount
	l.AssignedAt = &now

	l.AddDomainEvent(NewLoadAssignedEvent(l, bid, actorID))
	return nil
}

// MarkInTransit moves an assigned load onto the road. A load already in transit is left as is.
func (l *Load) MarkInTransit(now time.Time) (bool, error) {
	if l.Status == LoadStatusInTransit {
		return false, nil
	}
	if err := l.moveTo(LoadStatusInTransit, now); err != nil {
		return false, err
	}
	return true, nil
}

// MarkDelivered records delivery. Already delivered or completed loads are left as is.
func (l *Load) MarkDelivered(now time.Time) (bool, error) {
	if l.Status == LoadStatusDelivered || l.Status == LoadStatusCompleted {
		return false, nil
	}
	if err := l.moveTo(LoadStatusDelivered, now); err != nil {
		return false, err
	}
	return true, nil
}

// ReleaseAssignment returns the load to the market after its booking was cancelled.
func (l *Load) ReleaseAssignment(now time.Time) error {
	if err := l.moveTo(LoadStatusPosted, now); err != nil {
		return err
	}
	l.AssignedDriverID = nil
	l.AcceptedBidID = nil
	l.AcceptedAmount = nil
	l.AssignedAt = nil
	return nil
}

// Cancel withdraws an unassigned load from the market
func (l *Load) Cancel(actorID uuid.UUID, reason string, now time.Time) error {
	if !l.IsOwnedBy(actorID) {
		return shared.NewForbiddenError("Only the load owner can cancel this load")
	}
	if !l.AcceptsBids() {
		return shared.NewConflictError(fmt.Sprintf("Cannot cancel load in %s status", l.Status))
	}
	if err := l.moveTo(LoadStatusCancelled, now); err != nil {
		return err
	}
	l.CancelledAt = &now
	l.CancelReason = strings.TrimSpace(reason)

	l.AddDomainEvent(NewLoadCancelledEvent(l, actorID))
	return nil
}

// Close marks a delivered load as completed
func (l *Load) Close(actorID uuid.UUID, now time.Time) error {
	if !l.IsOwnedBy(actorID) {
		return shared.NewForbiddenError("Only the load owner can close this load")
	}
	return l.moveTo(LoadStatusCompleted, now)
}

// CheckInvariants verifies the driver/status coupling.
func (l *Load) CheckInvariants() error {
	if l.Status.HasAssignedDriver() != (l.AssignedDriverID != nil) {
		return shared.NewDomainError(shared.CodeInvalidState,
			fmt.Sprintf("Load in %s status has inconsistent driver assignment", l.Status))
	}
	return nil
}
