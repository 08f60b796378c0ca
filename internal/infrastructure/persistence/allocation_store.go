package persistence

import (
	"context"
	"time"

	"github.com/freightmarket/backend/internal/domain/marketplace"
	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/freightmarket/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormAllocationStore implements AllocationStore. Every method runs in one
// GORM transaction.
type GormAllocationStore struct {
	db *gorm.DB
}

// NewGormAllocationStore creates a new GormAllocationStore
func NewGormAllocationStore(db *gorm.DB) *GormAllocationStore {
	return &GormAllocationStore{db: db}
}

// CommitSubmission registers the bid on its load, then inserts the bid with
// its first history entry. The load row is written first so submissions and
// acceptances on the same load take their row locks in the same order. The
// bid count is incremented in SQL and the load version is left alone; only
// the load's openness is required.
func (s *GormAllocationStore) CommitSubmission(ctx context.Context, bid *marketplace.Bid, load *marketplace.Load) error {
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&models.LoadModel{}).
			Where("id = ? AND status IN ?", load.ID, statusStrings(marketplace.OpenLoadStatuses)).
			Updates(map[string]interface{}{
				"bid_count":  gorm.Expr("bid_count + 1"),
				"status":     string(load.Status),
				"updated_at": load.UpdatedAt,
			})
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return shared.NewConflictError("Load is no longer accepting bids")
		}

		if err := tx.Omit(clause.Associations).Create(models.BidModelFromDomain(bid)).Error; err != nil {
			if shared.IsConflict(translateError(err, "Bid")) {
				return shared.NewDomainError(shared.CodeDuplicateBid, "You already have an active bid on this load")
			}
			return err
		}
		return appendBidHistory(tx, bid)
	})
	return translateTxError(err)
}

// CommitAcceptance applies the acceptance effects in order: assign the load,
// accept the bid, insert the booking, reject the competitors and mark the
// driver unavailable. The load row is locked before any bid row, so two
// accepts on one load serialize on it. Each conditional update that matches
// no row aborts the transaction with a conflict.
func (s *GormAllocationStore) CommitAcceptance(ctx context.Context, a marketplace.Acceptance) (marketplace.AcceptanceOutcome, error) {
	var outcome marketplace.AcceptanceOutcome
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		assignFrom := marketplace.LoadTransitions().Sources(marketplace.LoadStatusDriverAssigned)
		if err := saveLoad(tx, a.Load, assignFrom); err != nil {
			return err
		}

		acceptFrom := marketplace.BidTransitions().Sources(marketplace.BidStatusAccepted)
		if err := saveBid(tx, a.Bid, acceptFrom); err != nil {
			return err
		}

		if err := insertBooking(tx, a.Booking); err != nil {
			return err
		}

		rejected, err := displaceBids(tx, a.Load.ID, a.Bid.ID, a.ActorID, marketplace.ReasonAssignedToAnotherDriver, a.At)
		if err != nil {
			return err
		}
		outcome.RejectedBids = rejected

		return setAvailability(tx, a.Bid.DriverID, false, a.At)
	})
	if err != nil {
		return marketplace.AcceptanceOutcome{}, translateTxError(err)
	}
	a.Bid.IncrementVersion()
	a.Load.IncrementVersion()
	return outcome, nil
}

// CommitCancellation cancels the load and rejects every live bid on it
func (s *GormAllocationStore) CommitCancellation(ctx context.Context, c marketplace.Cancellation) ([]marketplace.Bid, error) {
	var rejected []marketplace.Bid
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := saveLoad(tx, c.Load, marketplace.OpenLoadStatuses); err != nil {
			return err
		}
		var err error
		rejected, err = displaceBids(tx, c.Load.ID, uuid.Nil, c.ActorID, marketplace.ReasonLoadCancelled, c.At)
		return err
	})
	if err != nil {
		return nil, translateTxError(err)
	}
	c.Load.IncrementVersion()
	return rejected, nil
}

// displaceBids locks the live bids on loadID other than keepID, rejects each
// one and writes it back. The returned bids carry their new history.
func displaceBids(tx *gorm.DB, loadID, keepID, actorID uuid.UUID, reason string, at time.Time) ([]marketplace.Bid, error) {
	var rows []models.BidModel
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("History", orderBySequence).
		Where("load_id = ? AND id <> ? AND status IN ?", loadID, keepID, statusStrings(marketplace.ActiveBidStatuses)).
		Order("submitted_at ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	displaced := make([]marketplace.Bid, 0, len(rows))
	for i := range rows {
		bid := rows[i].ToDomain()
		if err := bid.Displace(actorID, reason, at); err != nil {
			return nil, err
		}
		if err := saveBid(tx, bid, marketplace.ActiveBidStatuses); err != nil {
			return nil, err
		}
		bid.IncrementVersion()
		displaced = append(displaced, *bid)
	}
	return displaced, nil
}

// Ensure GormAllocationStore implements AllocationStore
var _ marketplace.AllocationStore = (*GormAllocationStore)(nil)
