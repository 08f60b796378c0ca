package marketplace

import (
	"context"
	"time"

	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PartyProfile is what the identity service knows about a driver or cargo owner.
type PartyProfile struct {
	ID            uuid.UUID
	Role          shared.Role
	Name          string
	Phone         string
	Email         string
	Rating        decimal.Decimal
	RatingCount   int
	Verified      bool
	CompletedJobs int
	Available     bool
}

// ProfileLookup resolves identities into profiles. Implementations return an
// error matching shared.ErrNotFound when the identity is unknown.
type ProfileLookup interface {
	GetParty(ctx context.Context, id uuid.UUID) (*PartyProfile, error)
}

// DriverSnapshot is a copy-by-value capture of a driver profile, taken when a
// bid is submitted and again when a booking is created. Later profile edits
// never reach a snapshot.
type DriverSnapshot struct {
	DriverID      uuid.UUID       `json:"driver_id"`
	Name          string          `json:"name"`
	Phone         string          `json:"phone,omitempty"`
	Rating        decimal.Decimal `json:"rating"`
	RatingCount   int             `json:"rating_count"`
	Verified      bool            `json:"verified"`
	CompletedJobs int             `json:"completed_jobs"`
	CapturedAt    time.Time       `json:"captured_at"`
}

// NewDriverSnapshot captures p at the given instant.
func NewDriverSnapshot(p *PartyProfile, at time.Time) DriverSnapshot {
	return DriverSnapshot{
		DriverID:      p.ID,
		Name:          p.Name,
		Phone:         p.Phone,
		Rating:        p.Rating,
		RatingCount:   p.RatingCount,
		Verified:      p.Verified,
		CompletedJobs: p.CompletedJobs,
		CapturedAt:    at,
	}
}

// LoadSnapshot captures the load summary a bid was made against.
type LoadSnapshot struct {
	Title        string          `json:"title"`
	PickupCity   string          `json:"pickup_city"`
	DeliveryCity string          `json:"delivery_city"`
	WeightKg     decimal.Decimal `json:"weight_kg"`
	Budget       decimal.Decimal `json:"budget"`
	Currency     string          `json:"currency"`
	PickupDate   time.Time       `json:"pickup_date"`
}

// NewLoadSnapshot captures l.
func NewLoadSnapshot(l *Load) LoadSnapshot {
	return LoadSnapshot{
		Title:        l.Title,
		PickupCity:   l.Pickup.City,
		DeliveryCity: l.Delivery.City,
		WeightKg:     l.WeightKg,
		Budget:       l.Budget,
		Currency:     l.Currency,
		PickupDate:   l.PickupDate,
	}
}

// JobSnapshot is the job as agreed at acceptance time.
type JobSnapshot struct {
	Title             string          `json:"title"`
	CargoType         string          `json:"cargo_type"`
	WeightKg          decimal.Decimal `json:"weight_kg"`
	Pickup            Location        `json:"pickup"`
	Delivery          Location        `json:"delivery"`
	ScheduledPickup   time.Time       `json:"scheduled_pickup"`
	ScheduledDelivery time.Time       `json:"scheduled_delivery"`
}
