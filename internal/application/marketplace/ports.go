package marketplace

import (
	"context"
	"time"

	"github.com/freightmarket/backend/internal/domain/marketplace"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BidSummary is the notification view of a bid
type BidSummary struct {
	BidID      uuid.UUID       `json:"bid_id"`
	LoadID     uuid.UUID       `json:"load_id"`
	DriverID   uuid.UUID       `json:"driver_id"`
	DriverName string          `json:"driver_name"`
	Amount     decimal.Decimal `json:"amount"`
	Currency   string          `json:"currency"`
	Status     string          `json:"status"`
}

// LoadSummary is the notification view of a load
type LoadSummary struct {
	LoadID       uuid.UUID `json:"load_id"`
	OwnerID      uuid.UUID `json:"owner_id"`
	Title        string    `json:"title"`
	PickupCity   string    `json:"pickup_city"`
	DeliveryCity string    `json:"delivery_city"`
}

// BookingSummary is the notification view of a booking status change
type BookingSummary struct {
	BookingID uuid.UUID `json:"booking_id"`
	LoadID    uuid.UUID `json:"load_id"`
	Reference string    `json:"reference"`
	Status    string    `json:"status"`
	Note      string    `json:"note,omitempty"`
}

// Notifier dispatches user-facing notifications. Calls happen after commit;
// returned errors are logged and never fail the triggering operation.
type Notifier interface {
	NotifyNewBid(ctx context.Context, ownerID uuid.UUID, bid BidSummary, load LoadSummary) error
	NotifyBidAccepted(ctx context.Context, driverID uuid.UUID, bid BidSummary, load LoadSummary) error
	NotifyLoadAssigned(ctx context.Context, ownerID uuid.UUID, bid BidSummary, load LoadSummary) error
	NotifyBidRejected(ctx context.Context, driverID uuid.UUID, bid BidSummary, load LoadSummary, reason string) error
	NotifyCounterOffer(ctx context.Context, driverID uuid.UUID, bid BidSummary, load LoadSummary) error
	NotifyBookingStatus(ctx context.Context, userID uuid.UUID, booking BookingSummary) error
}

// ObjectStorageService issues presigned URLs for delivery documents.
// Implemented by the infrastructure layer (S3, MinIO, ...).
type ObjectStorageService interface {
	// GenerateUploadURL returns a presigned PUT URL and its expiry
	GenerateUploadURL(ctx context.Context, storageKey, contentType string, expiresIn time.Duration) (string, time.Time, error)

	// GenerateDownloadURL returns a presigned GET URL and its expiry
	GenerateDownloadURL(ctx context.Context, storageKey string, expiresIn time.Duration) (string, time.Time, error)
}

// Config holds the tunables of the marketplace services
type Config struct {
	BidExpiry          time.Duration
	CounterOfferExpiry time.Duration
	DefaultCurrency    string
	UploadURLExpiry    time.Duration
}

// DefaultConfig returns the default marketplace configuration
func DefaultConfig() Config {
	return Config{
		BidExpiry:          marketplace.DefaultBidTTL,
		CounterOfferExpiry: marketplace.DefaultCounterOfferTTL,
		DefaultCurrency:    marketplace.DefaultCurrency,
		UploadURLExpiry:    15 * time.Minute,
	}
}

func newBidSummary(b *marketplace.Bid) BidSummary {
	return BidSummary{
		BidID:      b.ID,
		LoadID:     b.LoadID,
		DriverID:   b.DriverID,
		DriverName: b.DriverSnapshot.Name,
		Amount:     b.Amount,
		Currency:   b.Currency,
		Status:     string(b.Status),
	}
}

func newLoadSummary(l *marketplace.Load) LoadSummary {
	return LoadSummary{
		LoadID:       l.ID,
		OwnerID:      l.OwnerID,
		Title:        l.Title,
		PickupCity:   l.Pickup.City,
		DeliveryCity: l.Delivery.City,
	}
}

func loadSummaryFromSnapshot(b *marketplace.Bid) LoadSummary {
	return LoadSummary{
		LoadID:       b.LoadID,
		OwnerID:      b.CargoOwnerID,
		Title:        b.LoadSnapshot.Title,
		PickupCity:   b.LoadSnapshot.PickupCity,
		DeliveryCity: b.LoadSnapshot.DeliveryCity,
	}
}
