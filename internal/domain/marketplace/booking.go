package marketplace

import (
	"fmt"
	"strings"
	"time"

	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BookingStatus represents the status of a booking
type BookingStatus string

const (
	BookingStatusAssigned   BookingStatus = "assigned"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusPickedUp   BookingStatus = "picked_up"
	BookingStatusInTransit  BookingStatus = "in_transit"
	BookingStatusDelivered  BookingStatus = "delivered"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
	BookingStatusRejected   BookingStatus = "rejected"
)

// bookingTransitions is the single source of truth for booking status changes
var bookingTransitions = shared.TransitionTable[BookingStatus]{
	BookingStatusAssigned:   {BookingStatusInProgress, BookingStatusCancelled, BookingStatusRejected},
	BookingStatusInProgress: {BookingStatusPickedUp, BookingStatusCancelled},
	BookingStatusPickedUp:   {BookingStatusInTransit, BookingStatusCancelled},
	BookingStatusInTransit:  {BookingStatusDelivered, BookingStatusCancelled},
	BookingStatusDelivered:  {BookingStatusCompleted},
	BookingStatusCompleted:  {},
	BookingStatusCancelled:  {},
	BookingStatusRejected:   {},
}

// BookingTransitions exposes the booking table
func BookingTransitions() shared.TransitionTable[BookingStatus] {
	return bookingTransitions
}

// bookingParty is who may drive a booking into a target status
type bookingParty int

const (
	partyDriver bookingParty = iota + 1
	partyOwner
	partyEither
)

// bookingActors maps every reachable target status to the party allowed to request it
var bookingActors = map[BookingStatus]bookingParty{
	BookingStatusInProgress: partyDriver,
	BookingStatusPickedUp:   partyDriver,
	BookingStatusInTransit:  partyDriver,
	BookingStatusDelivered:  partyDriver,
	BookingStatusCompleted:  partyDriver,
	BookingStatusRejected:   partyOwner,
	BookingStatusCancelled:  partyEither,
}

// LiveBookingStatuses are statuses that hold the load
var LiveBookingStatuses = []BookingStatus{
	BookingStatusAssigned, BookingStatusInProgress, BookingStatusPickedUp,
	BookingStatusInTransit, BookingStatusDelivered, BookingStatusCompleted,
}

// IsValid checks if the status is a valid BookingStatus
func (s BookingStatus) IsValid() bool {
	_, ok := bookingTransitions[s]
	return ok
}

// String returns the string representation of BookingStatus
func (s BookingStatus) String() string {
	return string(s)
}

// IsTerminal reports whether no further transition is possible
func (s BookingStatus) IsTerminal() bool {
	return bookingTransitions.IsTerminal(s)
}

// IsLive reports whether a booking in this status still holds its load
func (s BookingStatus) IsLive() bool {
	return s != BookingStatusCancelled && s != BookingStatusRejected
}

// TrackingUpdate is one entry of a booking's append-only timeline
type TrackingUpdate struct {
	Sequence   int           `json:"sequence"`
	Status     BookingStatus `json:"status"`
	Note       string        `json:"note,omitempty"`
	Location   *GeoPoint     `json:"location,omitempty"`
	RecordedBy uuid.UUID     `json:"recorded_by"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// Rating is one party's post-completion rating
type Rating struct {
	Score   int       `json:"score"`
	Review  string    `json:"review,omitempty"`
	RatedBy uuid.UUID `json:"rated_by"`
	RatedAt time.Time `json:"rated_at"`
}

// Booking is the materialized job created when a bid is accepted
type Booking struct {
	shared.BaseAggregateRoot
	Reference          string
	LoadID             uuid.UUID
	BidID              uuid.UUID
	DriverID           uuid.UUID
	CargoOwnerID       uuid.UUID
	Job                JobSnapshot
	Driver             DriverSnapshot
	Vehicle            VehicleDetails
	AgreedAmount       decimal.Decimal
	Currency           string
	PaymentTerms       PaymentTerms
	Status             BookingStatus
	AssignedAt         time.Time
	StartedAt          *time.Time
	ActualPickupDate   *time.Time
	ActualDeliveryDate *time.Time
	CompletedAt        *time.Time
	CancelledAt        *time.Time
	CancelledBy        *uuid.UUID
	CancellationReason string
	ProofOfDeliveryKey string
	Timeline           []TrackingUpdate
	History            StatusHistory
	// DriverRating is the owner's rating of the driver; OwnerRating the driver's rating of the owner.
	DriverRating *Rating
	OwnerRating  *Rating
}

// NewBookingFromAcceptance snapshots the job, terms, and driver at the instant of acceptance.
func NewBookingFromAcceptance(bid *Bid, load *Load, driver DriverSnapshot, actorID uuid.UUID, now time.Time) *Booking {
	booking := &Booking{
		BaseAggregateRoot: shared.NewBaseAggregateRootAt(now),
		LoadID:            load.ID,
		BidID:             bid.ID,
		DriverID:          bid.DriverID,
		CargoOwnerID:      load.OwnerID,
		Job: JobSnapshot{
			Title:             load.Title,
			CargoType:         load.CargoType,
			WeightKg:          load.WeightKg,
			Pickup:            load.Pickup,
			Delivery:          load.Delivery,
			ScheduledPickup:   bid.ProposedPickupDate,
			ScheduledDelivery: bid.ProposedDeliveryDate,
		},
		Driver:       driver,
		Vehicle:      bid.Vehicle,
		AgreedAmount: bid.Amount,
		Currency:     bid.Currency,
		PaymentTerms: bid.PaymentTerms,
		Status:       BookingStatusAssigned,
		AssignedAt:   now,
	}
	booking.Reference = NewBookingReference(booking.ID, now)
	booking.History.Append("", string(BookingStatusAssigned), actorID, "", now)
	booking.Timeline = append(booking.Timeline, TrackingUpdate{
		Sequence:   1,
		Status:     BookingStatusAssigned,
		Note:       "Booking created from accepted bid",
		RecordedBy: actorID,
		RecordedAt: now,
	})
	booking.AddDomainEvent(NewBookingCreatedEvent(booking, actorID))
	return booking
}

// bookingReferenceDigits is the number of hex digits of the booking ID kept
// in its reference.
const bookingReferenceDigits = 12

// NewBookingReference builds the human-facing reference
// BK-YYYYMMDD-XXXXXXXXXXXX from the booking date and ID.
func NewBookingReference(id uuid.UUID, at time.Time) string {
	digits := strings.ReplaceAll(id.String(), "-", "")[:bookingReferenceDigits]
	return fmt.Sprintf("BK-%s-%s", at.Format("20060102"), strings.ToUpper(digits))
}

// IsParty reports whether userID is the driver or the cargo owner
func (b *Booking) IsParty(userID uuid.UUID) bool {
	return userID == b.DriverID || userID == b.CargoOwnerID
}

func (b *Booking) authorize(actorID uuid.UUID, target BookingStatus) error {
	party, ok := bookingActors[target]
	if !ok {
		return shared.NewInvalidTransitionError("booking", b.Status, target)
	}
	switch party {
	case partyDriver:
		if actorID != b.DriverID {
			return shared.NewForbiddenError(fmt.Sprintf("Only the assigned driver can move a booking to %s", target))
		}
	case partyOwner:
		if actorID != b.CargoOwnerID {
			return shared.NewForbiddenError(fmt.Sprintf("Only the cargo owner can move a booking to %s", target))
		}
	case partyEither:
		if !b.IsParty(actorID) {
			return shared.NewForbiddenError("Only a party to the booking can cancel it")
		}
	}
	return nil
}

// Transition moves the booking to target, stamping the matching timestamp and
// appending both a tracking update and a status change. Nothing is mutated
// when the transition is refused.
func (b *Booking) Transition(actorID uuid.UUID, target BookingStatus, note string, location *GeoPoint, now time.Time) error {
	if !b.IsParty(actorID) {
		return shared.NewForbiddenError("Only a party to the booking can update it")
	}
	if !target.IsValid() {
		return shared.NewDomainError(shared.CodeInvalidTransition, fmt.Sprintf("Unknown booking status %q", target))
	}
	if err := b.authorize(actorID, target); err != nil {
		return err
	}
	if !bookingTransitions.Allows(b.Status, target) {
		return shared.NewInvalidTransitionError("booking", b.Status, target)
	}
	note = strings.TrimSpace(note)
	if len([]rune(note)) > MaxNoteLength {
		return shared.NewValidationError("notes", fmt.Sprintf("Notes cannot exceed %d characters", MaxNoteLength))
	}

	from := b.Status
	switch target {
	case BookingStatusInProgress:
		b.StartedAt = &now
	case BookingStatusPickedUp:
		b.ActualPickupDate = &now
	case BookingStatusDelivered:
		b.ActualDeliveryDate = &now
	case BookingStatusCompleted:
		b.CompletedAt = &now
	case BookingStatusCancelled, BookingStatusRejected:
		b.CancelledAt = &now
		b.CancelledBy = &actorID
		b.CancellationReason = note
	}
	b.Status = target
	b.Touch(now)
	b.History.Append(string(from), string(target), actorID, note, now)
	b.Timeline = append(b.Timeline, TrackingUpdate{
		Sequence:   b.nextTrackingSequence(),
		Status:     target,
		Note:       note,
		Location:   location,
		RecordedBy: actorID,
		RecordedAt: now,
	})

	b.AddDomainEvent(NewBookingStatusChangedEvent(b, from, actorID))
	switch target {
	case BookingStatusCompleted:
		b.AddDomainEvent(NewBookingCompletedEvent(b))
	case BookingStatusCancelled, BookingStatusRejected:
		b.AddDomainEvent(NewBookingCancelledEvent(b, from, actorID))
	}
	return nil
}

func (b *Booking) nextTrackingSequence() int {
	if n := len(b.Timeline); n > 0 {
		return b.Timeline[n-1].Sequence + 1
	}
	return 1
}

// ReleasesDriver reports whether entering target frees the driver for new work
func ReleasesDriver(target BookingStatus) bool {
	switch target {
	case BookingStatusCompleted, BookingStatusCancelled, BookingStatusRejected:
		return true
	}
	return false
}

// RatingTarget identifies who a submitted rating is about
type RatingTarget struct {
	UserID uuid.UUID
	Role   shared.Role
}

// Rate records one party's rating of the other. Each party rates at most once,
// and only after completion.
func (b *Booking) Rate(actorID uuid.UUID, score int, review string, now time.Time) (RatingTarget, error) {
	if !b.IsParty(actorID) {
		return RatingTarget{}, shared.NewForbiddenError("Only a party to the booking can rate it")
	}
	if b.Status != BookingStatusCompleted {
		return RatingTarget{}, shared.NewDomainError(shared.CodeInvalidState, "Ratings are accepted only after the booking is completed")
	}
	var verrs shared.ValidationErrors
	if score < 1 || score > 5 {
		verrs.Add("rating", "Rating must be between 1 and 5")
	}
	review = strings.TrimSpace(review)
	if len([]rune(review)) > MaxReviewLength {
		verrs.Add("review", fmt.Sprintf("Review cannot exceed %d characters", MaxReviewLength))
	}
	if err := verrs.Err(); err != nil {
		return RatingTarget{}, err
	}

	rating := &Rating{Score: score, Review: review, RatedBy: actorID, RatedAt: now}
	var target RatingTarget
	if actorID == b.CargoOwnerID {
		if b.DriverRating != nil {
			return RatingTarget{}, shared.NewDomainError(shared.CodeAlreadyRated, "You have already rated this booking")
		}
		b.DriverRating = rating
		target = RatingTarget{UserID: b.DriverID, Role: shared.RoleDriver}
	} else {
		if b.OwnerRating != nil {
			return RatingTarget{}, shared.NewDomainError(shared.CodeAlreadyRated, "You have already rated this booking")
		}
		b.OwnerRating = rating
		target = RatingTarget{UserID: b.CargoOwnerID, Role: shared.RoleCargoOwner}
	}
	b.Touch(now)
	b.AddDomainEvent(NewRatingSubmittedEvent(b, actorID, target, score))
	return target, nil
}

// AttachProofOfDelivery records the object key of an uploaded delivery document
func (b *Booking) AttachProofOfDelivery(driverID uuid.UUID, key string, now time.Time) error {
	if driverID != b.DriverID {
		return shared.NewForbiddenError("Only the assigned driver can upload proof of delivery")
	}
	if b.Status != BookingStatusDelivered && b.Status != BookingStatusCompleted {
		return shared.NewDomainError(shared.CodeInvalidState, "Proof of delivery can be attached once the load is delivered")
	}
	b.ProofOfDeliveryKey = key
	b.Touch(now)
	return nil
}
