package persistence

import (
	"context"

	"github.com/freightmarket/backend/internal/domain/marketplace"
	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/freightmarket/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormLoadRepository implements LoadRepository using GORM
type GormLoadRepository struct {
	db *gorm.DB
}

// NewGormLoadRepository creates a new GormLoadRepository
func NewGormLoadRepository(db *gorm.DB) *GormLoadRepository {
	return &GormLoadRepository{db: db}
}

// FindByID finds a load by its ID
func (r *GormLoadRepository) FindByID(ctx context.Context, id uuid.UUID) (*marketplace.Load, error) {
	var model models.LoadModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, translateError(err, "Load")
	}
	return model.ToDomain(), nil
}

// FindAll lists loads with pagination. Supported filters: status, owner_id, open_only.
func (r *GormLoadRepository) FindAll(ctx context.Context, filter shared.Filter) ([]marketplace.Load, int64, error) {
	filter = filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.LoadModel{})

	switch st := filter.Filters["status"].(type) {
	case marketplace.LoadStatus:
		query = query.Where("status = ?", string(st))
	case string:
		if st != "" {
			query = query.Where("status = ?", st)
		}
	}
	if ownerID, ok := filter.Filters["owner_id"].(uuid.UUID); ok && ownerID != uuid.Nil {
		query = query.Where("owner_id = ?", ownerID)
	}
	if openOnly, ok := filter.Filters["open_only"].(bool); ok && openOnly {
		query = query.Where("status IN ?", statusStrings(marketplace.OpenLoadStatuses))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.LoadModel
	err := query.
		Order(loadSort.clause(filter.OrderBy, filter.OrderDir)).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}

	loads := make([]marketplace.Load, len(rows))
	for i := range rows {
		loads[i] = *rows[i].ToDomain()
	}
	return loads, total, nil
}

// Create inserts a new load
func (r *GormLoadRepository) Create(ctx context.Context, load *marketplace.Load) error {
	return translateError(r.db.WithContext(ctx).Create(models.LoadModelFromDomain(load)).Error, "Load")
}

// SaveWithLock saves the load if its version is unchanged, then bumps the in-memory version
func (r *GormLoadRepository) SaveWithLock(ctx context.Context, load *marketplace.Load) error {
	if err := saveLoad(r.db.WithContext(ctx), load, nil); err != nil {
		return err
	}
	load.IncrementVersion()
	return nil
}

// CountOpenLoads counts loads still accepting bids
func (r *GormLoadRepository) CountOpenLoads(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.LoadModel{}).
		Where("status IN ?", statusStrings(marketplace.OpenLoadStatuses)).
		Count(&count).Error
	return count, err
}

// saveLoad issues the version-checked update; fromStatuses, when set, also
// requires the stored status to be one of them. The in-memory version is
// left to the caller.
func saveLoad(tx *gorm.DB, load *marketplace.Load, fromStatuses []marketplace.LoadStatus) error {
	cols := models.LoadModelFromDomain(load).MutableColumns()
	cols["version"] = load.Version + 1

	query := tx.Model(&models.LoadModel{}).Where("id = ? AND version = ?", load.ID, load.Version)
	if len(fromStatuses) > 0 {
		query = query.Where("status IN ?", statusStrings(fromStatuses))
	}
	result := query.Updates(cols)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return concurrencyConflict("Load")
	}
	return nil
}

// Ensure GormLoadRepository implements LoadRepository
var _ marketplace.LoadRepository = (*GormLoadRepository)(nil)
