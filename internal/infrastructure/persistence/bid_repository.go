package persistence

import (
	"context"

	"github.com/freightmarket/backend/internal/domain/marketplace"
	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/freightmarket/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormBidRepository implements BidRepository using GORM
type GormBidRepository struct {
	db *gorm.DB
}

// NewGormBidRepository creates a new GormBidRepository
func NewGormBidRepository(db *gorm.DB) *GormBidRepository {
	return &GormBidRepository{db: db}
}

// FindByID finds a bid by its ID, history included
func (r *GormBidRepository) FindByID(ctx context.Context, id uuid.UUID) (*marketplace.Bid, error) {
	var model models.BidModel
	err := r.db.WithContext(ctx).
		Preload("History", orderBySequence).
		First(&model, "id = ?", id).Error
	if err != nil {
		return nil, translateError(err, "Bid")
	}
	return model.ToDomain(), nil
}

// FindByLoad lists bids for a load, newest first
func (r *GormBidRepository) FindByLoad(ctx context.Context, loadID uuid.UUID, statuses ...marketplace.BidStatus) ([]marketplace.Bid, error) {
	query := r.db.WithContext(ctx).
		Preload("History", orderBySequence).
		Where("load_id = ?", loadID)
	if len(statuses) > 0 {
		query = query.Where("status IN ?", statusStrings(statuses))
	}

	var rows []models.BidModel
	if err := query.Order("submitted_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}
	return bidsToDomain(rows), nil
}

// FindByDriver lists a driver's bids with pagination. Supported filters: status.
func (r *GormBidRepository) FindByDriver(ctx context.Context, driverID uuid.UUID, filter shared.Filter) ([]marketplace.Bid, int64, error) {
	filter = filter.Normalize()
	query := r.db.WithContext(ctx).Model(&models.BidModel{}).Where("driver_id = ?", driverID)
	if st, ok := filter.Filters["status"].(marketplace.BidStatus); ok && st != "" {
		query = query.Where("status = ?", string(st))
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	var rows []models.BidModel
	err := query.
		Preload("History", orderBySequence).
		Order(bidSort.clause(filter.OrderBy, filter.OrderDir)).
		Offset(filter.Offset()).
		Limit(filter.PageSize).
		Find(&rows).Error
	if err != nil {
		return nil, 0, err
	}
	return bidsToDomain(rows), total, nil
}

// ExistsActive reports whether driverID holds a non-terminal bid on loadID
func (r *GormBidRepository) ExistsActive(ctx context.Context, loadID, driverID uuid.UUID) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.BidModel{}).
		Where("load_id = ? AND driver_id = ? AND status IN ?", loadID, driverID, statusStrings(marketplace.ActiveBidStatuses)).
		Count(&count).Error
	return count > 0, err
}

// SaveWithLock saves the bid and its new history entries if the version is unchanged
func (r *GormBidRepository) SaveWithLock(ctx context.Context, bid *marketplace.Bid) error {
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return saveBid(tx, bid, nil)
	})
	if err != nil {
		return err
	}
	bid.IncrementVersion()
	return nil
}

// saveBid issues the version-checked update and appends history. fromStatuses,
// when set, also requires the stored status to be one of them.
func saveBid(tx *gorm.DB, bid *marketplace.Bid, fromStatuses []marketplace.BidStatus) error {
	cols := models.BidModelFromDomain(bid).MutableColumns()
	cols["version"] = bid.Version + 1

	query := tx.Model(&models.BidModel{}).Where("id = ? AND version = ?", bid.ID, bid.Version)
	if len(fromStatuses) > 0 {
		query = query.Where("status IN ?", statusStrings(fromStatuses))
	}
	result := query.Updates(cols)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return concurrencyConflict("Bid")
	}
	return appendBidHistory(tx, bid)
}

// appendBidHistory inserts history rows; entries already stored are skipped
// by their (bid_id, sequence) key.
func appendBidHistory(tx *gorm.DB, bid *marketplace.Bid) error {
	rows := models.BidHistoryModels(bid.ID, bid.History.Entries())
	if len(rows) == 0 {
		return nil
	}
	return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows).Error
}

func bidsToDomain(rows []models.BidModel) []marketplace.Bid {
	bids := make([]marketplace.Bid, len(rows))
	for i := range rows {
		bids[i] = *rows[i].ToDomain()
	}
	return bids
}

// Ensure GormBidRepository implements BidRepository
var _ marketplace.BidRepository = (*GormBidRepository)(nil)
