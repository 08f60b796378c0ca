package marketplace

import (
	"fmt"
	"strings"
	"time"

	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Bid lifetimes
const (
	DefaultBidTTL          = 7 * 24 * time.Hour
	DefaultCounterOfferTTL = 2 * 24 * time.Hour
)

// System-supplied transition reasons
const (
	ReasonAssignedToAnotherDriver = "load was assigned to another driver"
	ReasonLoadCancelled           = "load was cancelled"
	ReasonBidExpired              = "bid expired"
	ReasonCounterOfferExpired     = "counter-offer expired"
)

// BidStatus represents the status of a bid
type BidStatus string

const (
	BidStatusSubmitted      BidStatus = "submitted"
	BidStatusViewed         BidStatus = "viewed"
	BidStatusUnderReview    BidStatus = "under_review"
	BidStatusShortlisted    BidStatus = "shortlisted"
	BidStatusCounterOffered BidStatus = "counter_offered"
	BidStatusAccepted       BidStatus = "accepted"
	BidStatusRejected       BidStatus = "rejected"
	BidStatusWithdrawn      BidStatus = "withdrawn"
	BidStatusExpired        BidStatus = "expired"
)

// bidTransitions is the single source of truth for bid status changes.
// Shortlisted and counter_offered bids cannot be withdrawn.
var bidTransitions = shared.TransitionTable[BidStatus]{
	BidStatusSubmitted: {
		BidStatusViewed, BidStatusUnderReview, BidStatusShortlisted, BidStatusAccepted,
		BidStatusRejected, BidStatusWithdrawn, BidStatusCounterOffered, BidStatusExpired,
	},
	BidStatusViewed: {
		BidStatusUnderReview, BidStatusShortlisted, BidStatusAccepted,
		BidStatusRejected, BidStatusWithdrawn, BidStatusCounterOffered, BidStatusExpired,
	},
	BidStatusUnderReview: {
		BidStatusShortlisted, BidStatusAccepted, BidStatusRejected,
		BidStatusWithdrawn, BidStatusCounterOffered, BidStatusExpired,
	},
	BidStatusShortlisted: {
		BidStatusUnderReview, BidStatusAccepted, BidStatusRejected,
		BidStatusCounterOffered, BidStatusExpired,
	},
	BidStatusCounterOffered: {BidStatusAccepted, BidStatusUnderReview, BidStatusExpired},
	BidStatusAccepted:       {},
	BidStatusRejected:       {},
	BidStatusWithdrawn:      {},
	BidStatusExpired:        {},
}

// BidTransitions exposes the bid table for callers that build conditional updates.
func BidTransitions() shared.TransitionTable[BidStatus] {
	return bidTransitions
}

// Status sets derived from the table
var (
	// ActiveBidStatuses are every non-terminal status
	ActiveBidStatuses = []BidStatus{
		BidStatusSubmitted, BidStatusViewed, BidStatusUnderReview, BidStatusShortlisted, BidStatusCounterOffered,
	}
	// AcceptableBidStatuses are the statuses from which the load owner may accept directly
	AcceptableBidStatuses = []BidStatus{
		BidStatusSubmitted, BidStatusViewed, BidStatusUnderReview, BidStatusShortlisted,
	}
)

// IsValid checks if the status is a valid BidStatus
func (s BidStatus) IsValid() bool {
	_, ok := bidTransitions[s]
	return ok
}

// String returns the string representation of BidStatus
func (s BidStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible
func (s BidStatus) IsTerminal() bool {
	return bidTransitions.IsTerminal(s)
}

// CanTransitionTo checks the bid table
func (s BidStatus) CanTransitionTo(target BidStatus) bool {
	return bidTransitions.Allows(s, target)
}

// IsDirectlyAcceptable reports whether the owner may accept from this status
func (s BidStatus) IsDirectlyAcceptable() bool {
	for _, a := range AcceptableBidStatuses {
		if a == s {
			return true
		}
	}
	return false
}

// BidResponseAction is the owner's (or driver's) last response on a bid
type BidResponseAction string

const (
	ResponseAccepted       BidResponseAction = "accepted"
	ResponseRejected       BidResponseAction = "rejected"
	ResponseCounterOffered BidResponseAction = "counter_offered"
	ResponseShortlisted    BidResponseAction = "shortlisted"
)

// BidResponse is the response sub-record of a bid
type BidResponse struct {
	Action      BidResponseAction `json:"action"`
	Message     string            `json:"message,omitempty"`
	RespondedBy uuid.UUID         `json:"responded_by"`
	RespondedAt time.Time         `json:"responded_at"`
}

// BidTerms is a validated bid payload
type BidTerms struct {
	Amount               decimal.Decimal
	Currency             string
	ProposedPickupDate   time.Time
	ProposedDeliveryDate time.Time
	Vehicle              VehicleDetails
	AdditionalServices   []AdditionalService
	Pricing              PricingBreakdown
	PaymentTerms         PaymentTerms
	Message              string
}

// Bid is a driver's priced offer against a load
type Bid struct {
	shared.BaseAggregateRoot
	LoadID               uuid.UUID
	DriverID             uuid.UUID
	CargoOwnerID         uuid.UUID
	Amount               decimal.Decimal
	Currency             string
	ProposedPickupDate   time.Time
	ProposedDeliveryDate time.Time
	Vehicle              VehicleDetails
	AdditionalServices   []AdditionalService
	Pricing              PricingBreakdown
	PaymentTerms         PaymentTerms
	Message              string
	Status               BidStatus
	SubmittedAt          time.Time
	ViewedAt             *time.Time
	ViewCount            int
	RespondedAt          *time.Time
	ExpiresAt            time.Time
	AcceptedAt           *time.Time
	AcceptedBy           *uuid.UUID
	RejectionReason      string
	DriverSnapshot       DriverSnapshot
	LoadSnapshot         LoadSnapshot
	Response             *BidResponse
	CounterOffer         *CounterOffer
	History              StatusHistory
}

// NewBid creates a submitted bid against load. ttl <= 0 selects DefaultBidTTL.
func NewBid(load *Load, driver DriverSnapshot, terms BidTerms, now time.Time, ttl time.Duration) (*Bid, error) {
	if !load.AcceptsBids() {
		return nil, shared.NewConflictError(fmt.Sprintf("Load is not accepting bids in %s status", load.Status))
	}
	if driver.DriverID == uuid.Nil {
		return nil, shared.NewValidationError("driver_id", "Driver ID cannot be empty")
	}
	if load.IsOwnedBy(driver.DriverID) {
		return nil, shared.NewForbiddenError("Cannot bid on your own load")
	}
	if terms.Amount.LessThan(decimal.NewFromInt(1)) {
		return nil, shared.NewValidationError("amount", "Bid amount must be at least 1")
	}
	if !terms.ProposedDeliveryDate.After(terms.ProposedPickupDate) {
		return nil, shared.NewValidationError("proposed_delivery_date", "Delivery date must be after pickup date")
	}
	if ttl <= 0 {
		ttl = DefaultBidTTL
	}
	currency := terms.Currency
	if currency == "" {
		currency = load.Currency
	}

	bid := &Bid{
		BaseAggregateRoot:    shared.NewBaseAggregateRootAt(now),
		LoadID:               load.ID,
		DriverID:             driver.DriverID,
		CargoOwnerID:         load.OwnerID,
		Amount:               terms.Amount,
		Currency:             currency,
		ProposedPickupDate:   terms.ProposedPickupDate,
		ProposedDeliveryDate: terms.ProposedDeliveryDate,
		Vehicle:              terms.Vehicle,
		AdditionalServices:   terms.AdditionalServices,
		Pricing:              terms.Pricing,
		PaymentTerms:         terms.PaymentTerms,
		Message:              strings.TrimSpace(terms.Message),
		Status:               BidStatusSubmitted,
		SubmittedAt:          now,
		ExpiresAt:            now.Add(ttl),
		DriverSnapshot:       driver,
		LoadSnapshot:         NewLoadSnapshot(load),
	}
	bid.History.Append("", string(BidStatusSubmitted), driver.DriverID, "", now)
	bid.AddDomainEvent(NewBidSubmittedEvent(bid))
	return bid, nil
}

func (b *Bid) transition(to BidStatus, actor uuid.UUID, reason string, now time.Time) error {
	if !bidTransitions.Allows(b.Status, to) {
		return shared.NewInvalidTransitionError("bid", b.Status, to)
	}
	b.History.Append(string(b.Status), string(to), actor, reason, now)
	b.Status = to
	b.Touch(now)
	return nil
}

func (b *Bid) requireOwner(actorID uuid.UUID, action string) error {
	if b.CargoOwnerID != actorID {
		return shared.NewForbiddenError(fmt.Sprintf("Only the load owner can %s this bid", action))
	}
	return nil
}

func (b *Bid) requireDriver(actorID uuid.UUID, action string) error {
	if b.DriverID != actorID {
		return shared.NewForbiddenError(fmt.Sprintf("Only the submitting driver can %s this bid", action))
	}
	return nil
}

// IsExpired reports whether the bid is, or should now be, expired
func (b *Bid) IsExpired(now time.Time) bool {
	if b.Status == BidStatusExpired {
		return true
	}
	if b.Status.IsTerminal() || b.Status == BidStatusCounterOffered {
		return false
	}
	return !now.Before(b.ExpiresAt)
}

// ExpireIfDue applies read-time expiry. A lapsed counter-offer returns the bid
// to under_review first; a lapsed bid then becomes expired. Reports whether
// anything changed.
func (b *Bid) ExpireIfDue(now time.Time) bool {
	changed := false
	if b.Status == BidStatusCounterOffered && b.CounterOffer != nil && b.CounterOffer.IsLapsed(now) {
		b.CounterOffer.Status = CounterOfferStatusExpired
		if err := b.transition(BidStatusUnderReview, shared.SystemActorID, ReasonCounterOfferExpired, now); err == nil {
			changed = true
		}
	}
	if b.IsExpired(now) && b.Status != BidStatusExpired {
		if err := b.transition(BidStatusExpired, shared.SystemActorID, ReasonBidExpired, now); err == nil {
			changed = true
		}
	}
	return changed
}

// MarkViewed records an owner read. The first read moves submitted -> viewed.
func (b *Bid) MarkViewed(ownerID uuid.UUID, now time.Time) error {
	if err := b.requireOwner(ownerID, "view"); err != nil {
		return err
	}
	b.ViewCount++
	if b.ViewedAt == nil {
		b.ViewedAt = &now
	}
	b.Touch(now)
	if b.Status == BidStatusSubmitted {
		return b.transition(BidStatusViewed, ownerID, "", now)
	}
	return nil
}

// EnsureAcceptable checks the bid-side acceptance preconditions other than ownership.
func (b *Bid) EnsureAcceptable(now time.Time) error {
	if b.IsExpired(now) {
		return shared.NewExpiredError("Bid has expired and can no longer be accepted")
	}
	if !b.Status.IsDirectlyAcceptable() {
		return shared.NewConflictError(fmt.Sprintf("Bid is no longer acceptable (status %s)", b.Status))
	}
	return nil
}

// Accept moves the bid to accepted. Callers check ownership and preconditions;
// this is only ever invoked by the allocation engine.
func (b *Bid) Accept(actorID uuid.UUID, now time.Time) error {
	if !bidTransitions.Allows(b.Status, BidStatusAccepted) {
		return shared.NewConflictError(fmt.Sprintf("Bid is no longer acceptable (status %s)", b.Status))
	}
	if err := b.transition(BidStatusAccepted, actorID, "", now); err != nil {
		return err
	}
	b.AcceptedAt = &now
	b.AcceptedBy = &actorID
	b.RespondedAt = &now
	b.Response = &BidResponse{
		Action:      ResponseAccepted,
		RespondedBy: actorID,
		RespondedAt: now,
	}
	b.AddDomainEvent(NewBidAcceptedEvent(b, actorID))
	return nil
}

// Reject declines the bid on behalf of the load owner
func (b *Bid) Reject(ownerID uuid.UUID, reason string, now time.Time) error {
	if err := b.requireOwner(ownerID, "reject"); err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return shared.NewValidationError("reason", "Rejection reason is required")
	}
	if err := b.transition(BidStatusRejected, ownerID, reason, now); err != nil {
		return err
	}
	b.RejectionReason = reason
	b.RespondedAt = &now
	b.Response = &BidResponse{
		Action:      ResponseRejected,
		Message:     reason,
		RespondedBy: ownerID,
		RespondedAt: now,
	}
	b.AddDomainEvent(NewBidRejectedEvent(b, ownerID, reason))
	return nil
}

// Displace rejects a competing bid once its load is taken or withdrawn. A
// pending counter-offer is lapsed first so both steps stay on the table.
func (b *Bid) Displace(actorID uuid.UUID, reason string, now time.Time) error {
	if b.Status == BidStatusCounterOffered {
		if b.CounterOffer != nil && b.CounterOffer.Status == CounterOfferStatusPending {
			b.CounterOffer.Status = CounterOfferStatusExpired
		}
		if err := b.transition(BidStatusUnderReview, actorID, reason, now); err != nil {
			return err
		}
	}
	if err := b.transition(BidStatusRejected, actorID, reason, now); err != nil {
		return err
	}
	b.RejectionReason = reason
	b.RespondedAt = &now
	b.Response = &BidResponse{
		Action:      ResponseRejected,
		Message:     reason,
		RespondedBy: actorID,
		RespondedAt: now,
	}
	return nil
}

// Withdraw retracts the bid on behalf of its driver
func (b *Bid) Withdraw(driverID uuid.UUID, reason string, now time.Time) error {
	if err := b.requireDriver(driverID, "withdraw"); err != nil {
		return err
	}
	if err := b.transition(BidStatusWithdrawn, driverID, strings.TrimSpace(reason), now); err != nil {
		return err
	}
	b.AddDomainEvent(NewBidWithdrawnEvent(b))
	return nil
}

// Shortlist marks the bid for later comparison
func (b *Bid) Shortlist(ownerID uuid.UUID, now time.Time) error {
	if err := b.requireOwner(ownerID, "shortlist"); err != nil {
		return err
	}
	if err := b.transition(BidStatusShortlisted, ownerID, "", now); err != nil {
		return err
	}
	b.Response = &BidResponse{
		Action:      ResponseShortlisted,
		RespondedBy: ownerID,
		RespondedAt: now,
	}
	return nil
}

// Review moves the bid into under_review; this also reverses a shortlist.
func (b *Bid) Review(ownerID uuid.UUID, now time.Time) error {
	if err := b.requireOwner(ownerID, "review"); err != nil {
		return err
	}
	return b.transition(BidStatusUnderReview, ownerID, "", now)
}

// IsActive reports whether the bid is still live
func (b *Bid) IsActive() bool {
	return !b.Status.IsTerminal()
}
