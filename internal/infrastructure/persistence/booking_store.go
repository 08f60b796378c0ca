package persistence

import (
	"context"

	"github.com/freightmarket/backend/internal/domain/marketplace"
	"gorm.io/gorm"
)

// GormBookingStore implements BookingStore
type GormBookingStore struct {
	db *gorm.DB
}

// NewGormBookingStore creates a new GormBookingStore
func NewGormBookingStore(db *gorm.DB) *GormBookingStore {
	return &GormBookingStore{db: db}
}

// CommitTransition saves the booking, the cascaded load change and the
// driver's availability in one transaction.
func (s *GormBookingStore) CommitTransition(ctx context.Context, change marketplace.BookingChange) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveBooking(tx, change.Booking); err != nil {
			return err
		}
		if change.Load != nil {
			if err := saveLoad(tx, change.Load, nil); err != nil {
				return err
			}
		}
		if change.DriverAvailable != nil {
			return setAvailability(tx, change.Booking.DriverID, *change.DriverAvailable, change.Booking.UpdatedAt)
		}
		return nil
	})
	if err != nil {
		return translateTxError(err)
	}
	change.Booking.IncrementVersion()
	if change.Load != nil {
		change.Load.IncrementVersion()
	}
	return nil
}

// Ensure GormBookingStore implements BookingStore
var _ marketplace.BookingStore = (*GormBookingStore)(nil)
