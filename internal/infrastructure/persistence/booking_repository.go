package persistence

import (
	"context"
	"fmt"

	"github.com/freightmarket/backend/internal/domain/marketplace"
	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/freightmarket/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBookingRepository implements BookingRepository using GORM
type GormBookingRepository struct {
	db *gorm.DB
}

// NewGormBookingRepository creates a new GormBookingRepository
func NewGormBookingRepository(db *gorm.DB) *GormBookingRepository {
	return &GormBookingRepository{db: db}
}

func (r *GormBookingRepository) withChildren(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).
		Preload("History", orderBySequence).
		Preload("Timeline", orderBySequence)
}

// FindByID finds a booking by its ID, timeline and history included
func (r *GormBookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*marketplace.Booking, error) {
	var model models.BookingModel
	if err := r.withChildren(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "Booking")
	}
	return model.ToDomain(), nil
}

// FindByBid finds the booking created from a bid
func (r *GormBookingRepository) FindByBid(ctx context.Context, bidID uuid.UUID) (*marketplace.Booking, error) {
	var model models.BookingModel
	if err := r.withChildren(ctx).First(&model, "bid_id = ?", bidID).Error; err != nil {
		return nil, translateError(err, "Booking")
	}
	return model.ToDomain(), nil
}

// FindByParty lists bookings where userID is driver or cargo owner. Supported filters: status.
func (r *GormBookingRepository) FindByParty(ctx context.Context, userID uuid.UUID, filter shared.Filter) ([]marketplace.Booking, int64, error) {
	filter = filter.Normalize()
	query := r.db.WithContext(ctx).
		Model(&models.BookingModel{}).
		Where("(driver_id = ? OR cargo_owner_id = ?)", userID, userID)
	if st, ok := filter.Filters["status"].(marketplace.BookingStatus); ok && st != "" {
		query = query.Where("status = ?", string(st))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.BookingModel
	err := query.
		Preload("History", orderBySequence).
		Preload("Timeline", orderBySequence).
		Order(bookingSort.clause(filter.OrderBy, filter.OrderDir)).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	bookings := make([]marketplace.Booking, len(rows))
	for i := range rows {
		bookings[i] = *rows[i].ToDomain()
	}
	return bookings, total, nil
}

// CountLiveByLoad counts live bookings on a load, excluding excludeID
func (r *GormBookingRepository) CountLiveByLoad(ctx context.Context, loadID, excludeID uuid.UUID) (int64, error) {
	return countLiveBookings(r.db.WithContext(ctx), loadID, excludeID)
}

func countLiveBookings(tx *gorm.DB, loadID, excludeID uuid.UUID) (int64, error) {
	var count int64
	err := tx.Model(&models.BookingModel{}).
		Where("load_id = ? AND id <> ? AND status IN ?", loadID, excludeID, statusStrings(marketplace.LiveBookingStatuses)).
		Count(&count).Error
	return count, err
}

// SaveWithLock saves the booking with its new history and timeline entries if the version is unchanged
func (r *GormBookingRepository) SaveWithLock(ctx context.Context, booking *marketplace.Booking) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveBooking(tx, booking)
	})
	if err != nil {
		return err
	}
	booking.IncrementVersion()
	return nil
}

func saveBooking(tx *gorm.DB, booking *marketplace.Booking) error {
	cols := models.BookingModelFromDomain(booking).MutableColumns()
	cols["version"] = booking.Version + 1

	result := tx.Model(&models.BookingModel{}).
		Where("id = ? AND version = ?", booking.ID, booking.Version).
		Updates(cols)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return concurrencyConflict("Booking")
	}
	return appendBookingChildren(tx, booking)
}

// insertBooking creates the booking row and its initial log entries. The
// insert skips any unique-key clash so the transaction stays usable, and
// bookingClash then reports which key was hit.
func insertBooking(tx *gorm.DB, booking *marketplace.Booking) error {
	result := tx.Omit(clause.Associations).
		Clauses(clause.OnConflict{DoNothing: true}).
		Create(models.BookingModelFromDomain(booking))
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return bookingClash(tx, booking)
	}
	return appendBookingChildren(tx, booking)
}

// bookingClash checks the unique keys of bookings in turn:
// idx_bookings_live_load, bid_id, then reference.
func bookingClash(tx *gorm.DB, booking *marketplace.Booking) error {
	checks := []struct {
		query   string
		args    []interface{}
		message string
	}{
		{"load_id = ? AND status IN ?", []interface{}{booking.LoadID, statusStrings(marketplace.LiveBookingStatuses)}, "Load already has a live booking"},
		{"bid_id = ?", []interface{}{booking.BidID}, "Bid already has a booking"},
		{"reference = ?", []interface{}{booking.Reference}, fmt.Sprintf("Booking reference %s is already in use", booking.Reference)},
	}
	for _, c := range checks {
		var n int64
		if err := tx.Model(&models.BookingModel{}).Where(c.query, c.args...).Count(&n).Error; err != nil {
			return err
		}
		if n > 0 {
			return shared.NewConflictError(c.message)
		}
	}
	return shared.NewConflictError("Booking already exists")
}

// appendBookingChildren inserts history and timeline rows; stored entries are
// skipped by their (booking_id, sequence) key.
func appendBookingChildren(tx *gorm.DB, booking *marketplace.Booking) error {
	history := models.BookingHistoryModels(booking.ID, booking.History.Entries())
	if len(history) > 0 {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&history).Error; err != nil {
			return err
		}
	}
	timeline := models.TrackingUpdateModels(booking.ID, booking.Timeline)
	if len(timeline) > 0 {
		if err := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&timeline).Error; err != nil {
			return err
		}
	}
	return nil
}

// ratingColumns names the score column and the rated party's column for a role.
var ratingColumns = map[shared.Role][2]string{
	shared.RoleDriver:     {"driver_rating_score", "driver_id"},
	shared.RoleCargoOwner: {"owner_rating_score", "cargo_owner_id"},
}

// RatingSummary aggregates the ratings received by userID acting as role
func (r *GormBookingRepository) RatingSummary(ctx context.Context, userID uuid.UUID, role shared.Role) (marketplace.RatingSummary, error) {
	cols, ok := ratingColumns[role]
	if !ok {
		return marketplace.RatingSummary{}, shared.NewValidationError("role", fmt.Sprintf("Role %s does not receive ratings", role))
	}

	var row struct {
		Average     decimal.NullDecimal
		RatingCount int64
	}
	err := r.db.WithContext(ctx).
		Model(&models.BookingModel{}).
		Select(fmt.Sprintf("AVG(%[1]s) AS average, COUNT(%[1]s) AS rating_count", cols[0])).
		Where(fmt.Sprintf("%s = ? AND %s IS NOT NULL", cols[1], cols[0]), userID).
		Scan(&row).Error
	if err != nil {
		return marketplace.RatingSummary{}, err
	}

	summary := marketplace.RatingSummary{Average: decimal.Zero, Count: int(row.RatingCount)}
	if row.Average.Valid {
		summary.Average = row.Average.Decimal
	}
	return summary, nil
}

// Ensure GormBookingRepository implements BookingRepository
var _ marketplace.BookingRepository = (*GormBookingRepository)(nil)
