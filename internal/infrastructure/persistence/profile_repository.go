package persistence

import (
	"context"
	"time"

	"github.com/freightmarket/backend/internal/domain/marketplace"
	"github.com/freightmarket/backend/internal/domain/profile"
	"github.com/freightmarket/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormProfileRepository implements ProfileRepository and the marketplace's
// ProfileLookup over the profiles table
type GormProfileRepository struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormProfileRepository creates a new GormProfileRepository
func NewGormProfileRepository(db *gorm.DB) *GormProfileRepository {
	return &GormProfileRepository{db: db, now: time.Now}
}

// FindByID finds a profile by user ID
func (r *GormProfileRepository) FindByID(ctx context.Context, id uuid.UUID) (*profile.Profile, error) {
	var model models.ProfileModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "Profile")
	}
	return model.ToDomain(), nil
}

// GetParty resolves a user ID into the marketplace's view of the participant
func (r *GormProfileRepository) GetParty(ctx context.Context, id uuid.UUID) (*marketplace.PartyProfile, error) {
	var model models.ProfileModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "Profile")
	}
	return model.ToParty(), nil
}

// Save creates the profile or rewrites its editable fields.
// Counters, rating and availability are owned by their own update paths.
func (r *GormProfileRepository) Save(ctx context.Context, p *profile.Profile) error {
	err := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id"}},
			DoUpdates: clause.AssignmentColumns([]string{"name", "phone", "email", "updated_at"}),
		}).
		Create(models.ProfileModelFromDomain(p)).Error
	return translateError(err, "Profile")
}

// IncrementCompletedJobs adds one finished job to a driver
func (r *GormProfileRepository) IncrementCompletedJobs(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, map[string]interface{}{
		"completed_jobs": gorm.Expr("completed_jobs + 1"),
	})
}

// IncrementTotalShipments adds one finished shipment to a cargo owner
func (r *GormProfileRepository) IncrementTotalShipments(ctx context.Context, id uuid.UUID) error {
	return r.update(ctx, id, map[string]interface{}{
		"total_shipments": gorm.Expr("total_shipments + 1"),
	})
}

// UpdateRating writes an aggregated rating
func (r *GormProfileRepository) UpdateRating(ctx context.Context, id uuid.UUID, avg decimal.Decimal, count int) error {
	return r.update(ctx, id, map[string]interface{}{
		"rating":       avg.Round(1),
		"rating_count": count,
	})
}

func (r *GormProfileRepository) update(ctx context.Context, id uuid.UUID, cols map[string]interface{}) error {
	cols["updated_at"] = r.now()
	cols["version"] = gorm.Expr("version + 1")
	result := r.db.WithContext(ctx).Model(&models.ProfileModel{}).Where("id = ?", id).Updates(cols)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return translateError(gorm.ErrRecordNotFound, "Profile")
	}
	return nil
}

// setAvailability writes a driver's availability inside an allocation or booking transaction.
// Zero matched rows is not an error.
func setAvailability(tx *gorm.DB, driverID uuid.UUID, available bool, at time.Time) error {
	return tx.Model(&models.ProfileModel{}).
		Where("id = ?", driverID).
		Updates(map[string]interface{}{
			"available":  available,
			"updated_at": at,
			"version":    gorm.Expr("version + 1"),
		}).Error
}

// Ensure GormProfileRepository implements the profile ports
var (
	_ profile.ProfileRepository = (*GormProfileRepository)(nil)
	_ marketplace.ProfileLookup = (*GormProfileRepository)(nil)
)
