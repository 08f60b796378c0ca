package profile

import (
	"context"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ProfileRepository defines the interface for profile persistence
type ProfileRepository interface {
	// FindByID finds a profile by user ID
	FindByID(ctx context.Context, id uuid.UUID) (*Profile, error)

	// Save creates or updates a profile
	Save(ctx context.Context, p *Profile) error

	// IncrementCompletedJobs adds one finished job to a driver
	IncrementCompletedJobs(ctx context.Context, id uuid.UUID) error

	// IncrementTotalShipments adds one finished shipment to a cargo owner
	IncrementTotalShipments(ctx context.Context, id uuid.UUID) error

	// UpdateRating writes an aggregated rating
	UpdateRating(ctx context.Context, id uuid.UUID, avg decimal.Decimal, count int) error
}
