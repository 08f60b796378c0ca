package marketplace

import (
	"fmt"
	"strings"
	"time"

	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CounterOfferStatus tracks the nested negotiation record
type CounterOfferStatus string

const (
	CounterOfferStatusPending  CounterOfferStatus = "pending"
	CounterOfferStatusAccepted CounterOfferStatus = "accepted"
	CounterOfferStatusDeclined CounterOfferStatus = "declined"
	CounterOfferStatusExpired  CounterOfferStatus = "expired"
)

// CounterTerms is what the owner proposes instead of the driver's terms.
// Zero dates keep the bid's proposal.
type CounterTerms struct {
	Amount       decimal.Decimal
	PickupDate   time.Time
	DeliveryDate time.Time
	Message      string
}

// CounterOffer is an owner-proposed amendment awaiting the driver
type CounterOffer struct {
	Amount        decimal.Decimal    `json:"amount"`
	PickupDate    time.Time          `json:"pickup_date"`
	DeliveryDate  time.Time          `json:"delivery_date"`
	Message       string             `json:"message,omitempty"`
	ProposedBy    uuid.UUID          `json:"proposed_by"`
	ProposedAt    time.Time          `json:"proposed_at"`
	ExpiresAt     time.Time          `json:"expires_at"`
	Status        CounterOfferStatus `json:"status"`
	RespondedAt   *time.Time         `json:"responded_at,omitempty"`
	DeclineReason string             `json:"decline_reason,omitempty"`
}

// IsLapsed reports whether a pending counter-offer has passed its expiry
func (c *CounterOffer) IsLapsed(now time.Time) bool {
	return c.Status == CounterOfferStatusPending && !now.Before(c.ExpiresAt)
}

// ProposeCounterOffer records an owner counter-offer. ttl <= 0 selects DefaultCounterOfferTTL.
func (b *Bid) ProposeCounterOffer(ownerID uuid.UUID, terms CounterTerms, now time.Time, ttl time.Duration) error {
	if err := b.requireOwner(ownerID, "counter"); err != nil {
		return err
	}
	if b.IsExpired(now) {
		return shared.NewExpiredError("Bid has expired")
	}
	if !bidTransitions.Allows(b.Status, BidStatusCounterOffered) {
		return shared.NewInvalidTransitionError("bid", b.Status, BidStatusCounterOffered)
	}

	pickup := terms.PickupDate
	if pickup.IsZero() {
		pickup = b.ProposedPickupDate
	}
	delivery := terms.DeliveryDate
	if delivery.IsZero() {
		delivery = b.ProposedDeliveryDate
	}

	var verrs shared.ValidationErrors
	if terms.Amount.LessThan(decimal.NewFromInt(1)) {
		verrs.Add("amount", "Counter-offer amount must be at least 1")
	}
	if !delivery.After(pickup) {
		verrs.Add("delivery_date", "Delivery date must be after pickup date")
	}
	if len([]rune(terms.Message)) > MaxMessageLength {
		verrs.Add("message", fmt.Sprintf("Message cannot exceed %d characters", MaxMessageLength))
	}
	if err := verrs.Err(); err != nil {
		return err
	}
	if ttl <= 0 {
		ttl = DefaultCounterOfferTTL
	}

	message := strings.TrimSpace(terms.Message)
	if err := b.transition(BidStatusCounterOffered, ownerID, message, now); err != nil {
		return err
	}
	b.CounterOffer = &CounterOffer{
		Amount:       terms.Amount,
		PickupDate:   pickup,
		DeliveryDate: delivery,
		Message:      message,
		ProposedBy:   ownerID,
		ProposedAt:   now,
		ExpiresAt:    now.Add(ttl),
		Status:       CounterOfferStatusPending,
	}
	b.RespondedAt = &now
	b.Response = &BidResponse{
		Action:      ResponseCounterOffered,
		Message:     message,
		RespondedBy: ownerID,
		RespondedAt: now,
	}
	b.AddDomainEvent(NewCounterOfferProposedEvent(b, ownerID))
	return nil
}

func (b *Bid) pendingCounterOffer(driverID uuid.UUID, action string, now time.Time) (*CounterOffer, error) {
	if err := b.requireDriver(driverID, action); err != nil {
		return nil, err
	}
	if b.Status != BidStatusCounterOffered || b.CounterOffer == nil {
		return nil, shared.NewConflictError("Bid has no open counter-offer")
	}
	if b.CounterOffer.Status != CounterOfferStatusPending {
		return nil, shared.NewConflictError(fmt.Sprintf("Counter-offer is already %s", b.CounterOffer.Status))
	}
	if b.CounterOffer.IsLapsed(now) {
		return nil, shared.NewExpiredError("Counter-offer has expired")
	}
	return b.CounterOffer, nil
}

// AcceptCounterOffer promotes the counter-offer terms into the bid. The bid
// itself still has to pass through the allocation engine to become accepted.
func (b *Bid) AcceptCounterOffer(driverID uuid.UUID, now time.Time) error {
	co, err := b.pendingCounterOffer(driverID, "accept the counter-offer on", now)
	if err != nil {
		return err
	}
	b.Amount = co.Amount
	b.ProposedPickupDate = co.PickupDate
	b.ProposedDeliveryDate = co.DeliveryDate
	co.Status = CounterOfferStatusAccepted
	co.RespondedAt = &now
	b.Touch(now)
	return nil
}

// DeclineCounterOffer returns the bid to under_review with its original terms
func (b *Bid) DeclineCounterOffer(driverID uuid.UUID, reason string, now time.Time) error {
	co, err := b.pendingCounterOffer(driverID, "decline the counter-offer on", now)
	if err != nil {
		return err
	}
	reason = strings.TrimSpace(reason)
	if err := b.transition(BidStatusUnderReview, driverID, reason, now); err != nil {
		return err
	}
	co.Status = CounterOfferStatusDeclined
	co.RespondedAt = &now
	co.DeclineReason = reason
	b.AddDomainEvent(NewCounterOfferDeclinedEvent(b, reason))
	return nil
}
