package persistence

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/freightmarket/backend/internal/domain/marketplace"
	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/freightmarket/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm/clause"
)

func TestAllocationStore_CommitSubmission(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()
	owner := f.seedProfile(t, shared.RoleCargoOwner, "Amina Logistics")
	driver := f.seedProfile(t, shared.RoleDriver, "Otieno")
	load := f.postLoad(t, owner.ID)

	bid := f.submitBid(t, load.ID, driver, 9000)

	stored, err := f.bids.FindByID(ctx, bid.ID)
	require.NoError(t, err)
	assert.Equal(t, marketplace.BidStatusSubmitted, stored.Status)
	assert.True(t, stored.Amount.Equal(decimal.NewFromInt(9000)))
	assert.Equal(t, 1, stored.History.Len())

	reloaded, err := f.loads.FindByID(ctx, load.ID)
	require.NoError(t, err)
	assert.Equal(t, marketplace.LoadStatusReceivingBids, reloaded.Status)
	assert.Equal(t, 1, reloaded.BidCount)
	assert.Equal(t, 1, reloaded.Version, "a bid submission leaves the load version alone")
}

func TestAllocationStore_CommitSubmission_DuplicateActiveBid(t *testing.T) {
	f := newMarketFixture(t)
	owner := f.seedProfile(t, shared.RoleCargoOwner, "Amina Logistics")
	driver := f.seedProfile(t, shared.RoleDriver, "Otieno")
	load := f.postLoad(t, owner.ID)
	f.submitBid(t, load.ID, driver, 9000)

	ctx := context.Background()
	reloaded, err := f.loads.FindByID(ctx, load.ID)
	require.NoError(t, err)
	party, err := f.profiles.GetParty(ctx, driver.ID)
	require.NoError(t, err)
	second, err := marketplace.NewBid(reloaded, marketplace.NewDriverSnapshot(party, testNow), bidTerms(8500), testNow, 0)
	require.NoError(t, err)
	require.NoError(t, reloaded.RegisterBid(testNow))

	err = f.allocation.CommitSubmission(ctx, second, reloaded)

	require.Error(t, err)
	assert.Equal(t, shared.CodeDuplicateBid, shared.ErrorCode(err))
	assert.Equal(t, int64(1), f.countRows(t, &models.BidModel{}, "load_id = ?", load.ID))

	after, err := f.loads.FindByID(ctx, load.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, after.BidCount, "failed submission must not count")
}

func TestAllocationStore_CommitSubmission_ClosedLoad(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()
	owner := f.seedProfile(t, shared.RoleCargoOwner, "Amina Logistics")
	driver := f.seedProfile(t, shared.RoleDriver, "Otieno")
	load := f.postLoad(t, owner.ID)

	stale, err := f.loads.FindByID(ctx, load.ID)
	require.NoError(t, err)

	cancelled, err := f.loads.FindByID(ctx, load.ID)
	require.NoError(t, err)
	require.NoError(t, cancelled.Cancel(owner.ID, "no longer needed", testNow))
	_, err = f.allocation.CommitCancellation(ctx, marketplace.Cancellation{Load: cancelled, ActorID: owner.ID, At: testNow})
	require.NoError(t, err)

	party, err := f.profiles.GetParty(ctx, driver.ID)
	require.NoError(t, err)
	bid, err := marketplace.NewBid(stale, marketplace.NewDriverSnapshot(party, testNow), bidTerms(9000), testNow, 0)
	require.NoError(t, err)
	require.NoError(t, stale.RegisterBid(testNow))

	err = f.allocation.CommitSubmission(ctx, bid, stale)

	require.Error(t, err)
	assert.True(t, shared.IsConflict(err))
	assert.Equal(t, int64(0), f.countRows(t, &models.BidModel{}, "load_id = ?", load.ID))
}

func TestAllocationStore_CommitAcceptance(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()
	owner := f.seedProfile(t, shared.RoleCargoOwner, "Amina Logistics")
	winner := f.seedProfile(t, shared.RoleDriver, "Otieno")
	runnerUp := f.seedProfile(t, shared.RoleDriver, "Wanjiru")
	third := f.seedProfile(t, shared.RoleDriver, "Kiptoo")
	load := f.postLoad(t, owner.ID)

	winning := f.submitBid(t, load.ID, winner, 9000)
	f.submitBid(t, load.ID, runnerUp, 9500)
	f.submitBid(t, load.ID, third, 9800)

	acceptance := f.prepareAcceptance(t, winning.ID, owner.ID)
	outcome, err := f.allocation.CommitAcceptance(ctx, acceptance)
	require.NoError(t, err)

	t.Run("competitors are rejected", func(t *testing.T) {
		require.Len(t, outcome.RejectedBids, 2)
		for _, b := range outcome.RejectedBids {
			assert.Equal(t, marketplace.BidStatusRejected, b.Status)
			assert.Equal(t, marketplace.ReasonAssignedToAnotherDriver, b.RejectionReason)
		}

		others, err := f.bids.FindByLoad(ctx, load.ID, marketplace.BidStatusRejected)
		require.NoError(t, err)
		assert.Len(t, others, 2)
		for _, b := range others {
			last, ok := b.History.Last()
			require.True(t, ok)
			assert.Equal(t, string(marketplace.BidStatusRejected), last.To)
		}
	})

	t.Run("winning bid is accepted", func(t *testing.T) {
		stored, err := f.bids.FindByID(ctx, winning.ID)
		require.NoError(t, err)
		assert.Equal(t, marketplace.BidStatusAccepted, stored.Status)
		require.NotNil(t, stored.AcceptedBy)
		assert.Equal(t, owner.ID, *stored.AcceptedBy)
	})

	t.Run("load is assigned", func(t *testing.T) {
		stored, err := f.loads.FindByID(ctx, load.ID)
		require.NoError(t, err)
		assert.Equal(t, marketplace.LoadStatusDriverAssigned, stored.Status)
		require.NotNil(t, stored.AssignedDriverID)
		assert.Equal(t, winner.ID, *stored.AssignedDriverID)
		require.NotNil(t, stored.AcceptedAmount)
		assert.True(t, stored.AcceptedAmount.Equal(decimal.NewFromInt(9000)))
	})

	t.Run("booking is created", func(t *testing.T) {
		booking, err := f.bookings.FindByBid(ctx, winning.ID)
		require.NoError(t, err)
		assert.Equal(t, marketplace.BookingStatusAssigned, booking.Status)
		assert.Equal(t, winner.ID, booking.DriverID)
		assert.True(t, booking.AgreedAmount.Equal(decimal.NewFromInt(9000)))
		assert.NotEmpty(t, booking.Reference)
	})

	t.Run("driver is unavailable", func(t *testing.T) {
		p, err := f.profiles.FindByID(ctx, winner.ID)
		require.NoError(t, err)
		assert.False(t, p.Available)
	})
}

func TestAllocationStore_CommitAcceptance_StaleCopyConflicts(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()
	owner := f.seedProfile(t, shared.RoleCargoOwner, "Amina Logistics")
	driver := f.seedProfile(t, shared.RoleDriver, "Otieno")
	load := f.postLoad(t, owner.ID)
	bid := f.submitBid(t, load.ID, driver, 9000)

	first := f.prepareAcceptance(t, bid.ID, owner.ID)
	second := f.prepareAcceptance(t, bid.ID, owner.ID)

	_, err := f.allocation.CommitAcceptance(ctx, first)
	require.NoError(t, err)

	_, err = f.allocation.CommitAcceptance(ctx, second)
	require.Error(t, err)
	assert.True(t, shared.IsConflict(err))
	assert.Equal(t, int64(1), f.countRows(t, &models.BookingModel{}, "load_id = ?", load.ID))
}

func TestAllocationStore_CommitAcceptance_ConcurrentAcceptsOneWinner(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()
	owner := f.seedProfile(t, shared.RoleCargoOwner, "Amina Logistics")
	load := f.postLoad(t, owner.ID)

	const contenders = 4
	acceptances := make([]marketplace.Acceptance, contenders)
	for i := range acceptances {
		driver := f.seedProfile(t, shared.RoleDriver, "Driver")
		bid := f.submitBid(t, load.ID, driver, int64(9000+i*100))
		acceptances[i] = f.prepareAcceptance(t, bid.ID, owner.ID)
	}

	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
		conflicts int
	)
	start := make(chan struct{})
	for _, a := range acceptances {
		wg.Add(1)
		go func(a marketplace.Acceptance) {
			defer wg.Done()
			<-start
			_, err := f.allocation.CommitAcceptance(ctx, a)
			mu.Lock()
			defer mu.Unlock()
			if err == nil {
				successes++
			} else if shared.IsConflict(err) {
				conflicts++
			} else {
				t.Errorf("unexpected error: %v", err)
			}
		}(a)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, 1, successes)
	assert.Equal(t, contenders-1, conflicts)
	assert.Equal(t, int64(1), f.countRows(t, &models.BookingModel{}, "load_id = ?", load.ID))
	assert.Equal(t, int64(1), f.countRows(t, &models.BidModel{}, "load_id = ? AND status = ?", load.ID, "accepted"))
	assert.Equal(t, int64(contenders-1), f.countRows(t, &models.BidModel{}, "load_id = ? AND status = ?", load.ID, "rejected"))
}

// detachedAcceptance builds an acceptance without touching a database
func detachedAcceptance(t *testing.T) marketplace.Acceptance {
	t.Helper()
	ownerID := uuid.New()
	load, err := marketplace.NewLoad(ownerID, marketplace.LoadDetails{
		Title:      "Cement to Kisumu",
		Pickup:     marketplace.Location{City: "Athi River"},
		Delivery:   marketplace.Location{City: "Kisumu"},
		PickupDate: testNow.Add(24 * time.Hour),
		WeightKg:   decimal.NewFromInt(5000),
		Budget:     decimal.NewFromInt(12000),
	}, testNow)
	require.NoError(t, err)
	party := &marketplace.PartyProfile{ID: uuid.New(), Role: shared.RoleDriver, Name: "Otieno"}
	bid, err := marketplace.NewBid(load, marketplace.NewDriverSnapshot(party, testNow), bidTerms(9000), testNow, 0)
	require.NoError(t, err)

	at := testNow.Add(time.Hour)
	require.NoError(t, bid.Accept(ownerID, at))
	require.NoError(t, load.AssignDriver(bid, ownerID, at))
	booking := marketplace.NewBookingFromAcceptance(bid, load, bid.DriverSnapshot, ownerID, at)
	return marketplace.Acceptance{Bid: bid, Load: load, Booking: booking, ActorID: ownerID, At: at}
}

func TestAllocationStore_CommitAcceptance_ZeroRowsIsConcurrencyConflict(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()
	store := NewGormAllocationStore(openMockGorm(t, mockDB))
	a := detachedAcceptance(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "loads" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err = store.CommitAcceptance(context.Background(), a)

	require.Error(t, err)
	assert.Equal(t, shared.CodeConcurrencyConflict, shared.ErrorCode(err))
	assert.Equal(t, 1, a.Load.Version, "version must not advance on a failed commit")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationStore_CommitAcceptance_WritesLoadBeforeBids(t *testing.T) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer mockDB.Close()
	store := NewGormAllocationStore(openMockGorm(t, mockDB))
	a := detachedAcceptance(t)

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE "loads" SET`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`UPDATE "bids" SET`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err = store.CommitAcceptance(context.Background(), a)

	require.Error(t, err)
	assert.Equal(t, shared.CodeConcurrencyConflict, shared.ErrorCode(err))
	assert.Equal(t, 1, a.Bid.Version)
	assert.Equal(t, 1, a.Load.Version)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestAllocationStore_AbortedTransactionIsConcurrencyConflict(t *testing.T) {
	tests := []struct {
		name string
		code string
	}{
		{"deadlock detected", "40P01"},
		{"serialization failure", "40001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockDB, mock, err := sqlmock.New()
			require.NoError(t, err)
			defer mockDB.Close()
			store := NewGormAllocationStore(openMockGorm(t, mockDB))
			a := detachedAcceptance(t)

			mock.ExpectBegin()
			mock.ExpectExec(`UPDATE "loads" SET`).WillReturnError(&pgconn.PgError{Code: tt.code, Message: tt.name})
			mock.ExpectRollback()

			_, err = store.CommitAcceptance(context.Background(), a)

			require.Error(t, err)
			assert.Equal(t, shared.CodeConcurrencyConflict, shared.ErrorCode(err))
			assert.True(t, shared.IsConflict(err))
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}

	t.Run("other database errors pass through", func(t *testing.T) {
		mockDB, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer mockDB.Close()
		store := NewGormAllocationStore(openMockGorm(t, mockDB))
		a := detachedAcceptance(t)

		mock.ExpectBegin()
		mock.ExpectExec(`UPDATE "loads" SET`).WillReturnError(&pgconn.PgError{Code: "53300", Message: "too many connections"})
		mock.ExpectRollback()

		_, err = store.CommitAcceptance(context.Background(), a)

		require.Error(t, err)
		assert.Empty(t, shared.ErrorCode(err))
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestAllocationStore_CommitAcceptance_AfterLateSubmission(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()
	owner := f.seedProfile(t, shared.RoleCargoOwner, "Amina Logistics")
	winner := f.seedProfile(t, shared.RoleDriver, "Otieno")
	late := f.seedProfile(t, shared.RoleDriver, "Wanjiru")
	load := f.postLoad(t, owner.ID)
	winning := f.submitBid(t, load.ID, winner, 9000)

	acceptance := f.prepareAcceptance(t, winning.ID, owner.ID)
	lateBid := f.submitBid(t, load.ID, late, 8800)

	outcome, err := f.allocation.CommitAcceptance(ctx, acceptance)
	require.NoError(t, err)

	require.Len(t, outcome.RejectedBids, 1)
	assert.Equal(t, lateBid.ID, outcome.RejectedBids[0].ID)
	stored, err := f.loads.FindByID(ctx, load.ID)
	require.NoError(t, err)
	assert.Equal(t, marketplace.LoadStatusDriverAssigned, stored.Status)
	assert.Equal(t, 2, stored.BidCount, "the late bid stays counted")
}

// requireAcceptanceRolledBack checks that a failed acceptance left the load,
// its bids, its bookings and the driver as they were.
func (f *marketFixture) requireAcceptanceRolledBack(t *testing.T, a marketplace.Acceptance) {
	t.Helper()
	ctx := context.Background()

	load, err := f.loads.FindByID(ctx, a.Load.ID)
	require.NoError(t, err)
	assert.Equal(t, marketplace.LoadStatusReceivingBids, load.Status)
	assert.Nil(t, load.AssignedDriverID)
	assert.Equal(t, a.Load.Version, load.Version)

	bid, err := f.bids.FindByID(ctx, a.Bid.ID)
	require.NoError(t, err)
	assert.Equal(t, marketplace.BidStatusSubmitted, bid.Status)
	assert.Equal(t, a.Bid.Version, bid.Version)

	assert.Equal(t, int64(0), f.countRows(t, &models.BidModel{}, "load_id = ? AND status = ?", a.Load.ID, "rejected"))
	assert.Equal(t, int64(0), f.countRows(t, &models.BookingModel{}, "bid_id = ?", a.Bid.ID))

	driver, err := f.profiles.FindByID(ctx, a.Bid.DriverID)
	require.NoError(t, err)
	assert.True(t, driver.Available)
}

func TestAllocationStore_CommitAcceptance_RollsBackOnLaterFailure(t *testing.T) {
	ctx := context.Background()

	t.Run("live booking already on the load", func(t *testing.T) {
		f := newMarketFixture(t)
		owner := f.seedProfile(t, shared.RoleCargoOwner, "Amina Logistics")
		first := f.seedProfile(t, shared.RoleDriver, "Otieno")
		second := f.seedProfile(t, shared.RoleDriver, "Wanjiru")
		load := f.postLoad(t, owner.ID)
		firstBid := f.submitBid(t, load.ID, first, 9000)
		secondBid := f.submitBid(t, load.ID, second, 9400)

		other := f.prepareAcceptance(t, secondBid.ID, owner.ID)
		require.NoError(t, f.db.Omit(clause.Associations).Create(models.BookingModelFromDomain(other.Booking)).Error)

		acceptance := f.prepareAcceptance(t, firstBid.ID, owner.ID)
		_, err := f.allocation.CommitAcceptance(ctx, acceptance)

		require.Error(t, err)
		assert.Equal(t, shared.CodeConflict, shared.ErrorCode(err))
		assert.Equal(t, "Load already has a live booking", err.Error())
		f.requireAcceptanceRolledBack(t, acceptance)
	})

	t.Run("booking reference already in use", func(t *testing.T) {
		f := newMarketFixture(t)
		owner := f.seedProfile(t, shared.RoleCargoOwner, "Amina Logistics")
		first := f.seedProfile(t, shared.RoleDriver, "Otieno")
		second := f.seedProfile(t, shared.RoleDriver, "Wanjiru")
		firstLoad := f.postLoad(t, owner.ID)
		secondLoad := f.postLoad(t, owner.ID)
		firstBid := f.submitBid(t, firstLoad.ID, first, 9000)
		secondBid := f.submitBid(t, secondLoad.ID, second, 9400)

		taken := f.prepareAcceptance(t, firstBid.ID, owner.ID)
		_, err := f.allocation.CommitAcceptance(ctx, taken)
		require.NoError(t, err)

		acceptance := f.prepareAcceptance(t, secondBid.ID, owner.ID)
		acceptance.Booking.Reference = taken.Booking.Reference
		_, err = f.allocation.CommitAcceptance(ctx, acceptance)

		require.Error(t, err)
		assert.Equal(t, shared.CodeConflict, shared.ErrorCode(err))
		assert.Contains(t, err.Error(), "reference")
		assert.NotContains(t, err.Error(), "live booking")
		f.requireAcceptanceRolledBack(t, acceptance)
	})

	t.Run("competing bid cannot be rejected", func(t *testing.T) {
		f := newMarketFixture(t)
		owner := f.seedProfile(t, shared.RoleCargoOwner, "Amina Logistics")
		winner := f.seedProfile(t, shared.RoleDriver, "Otieno")
		runnerUp := f.seedProfile(t, shared.RoleDriver, "Wanjiru")
		load := f.postLoad(t, owner.ID)
		winning := f.submitBid(t, load.ID, winner, 9000)
		competitor := f.submitBid(t, load.ID, runnerUp, 9400)

		require.NoError(t, f.db.Exec(`CREATE TRIGGER refuse_bid_rejection BEFORE UPDATE OF status ON bids
			WHEN NEW.status = 'rejected'
			BEGIN SELECT RAISE(ABORT, 'bid rejection refused'); END`).Error)

		acceptance := f.prepareAcceptance(t, winning.ID, owner.ID)
		_, err := f.allocation.CommitAcceptance(ctx, acceptance)

		require.Error(t, err)
		assert.Contains(t, err.Error(), "bid rejection refused")
		f.requireAcceptanceRolledBack(t, acceptance)
		assert.Equal(t, int64(0), f.countRows(t, &models.BookingModel{}, "load_id = ?", load.ID))
		stored, err := f.bids.FindByID(ctx, competitor.ID)
		require.NoError(t, err)
		assert.Equal(t, marketplace.BidStatusSubmitted, stored.Status)
	})
}

func TestAllocationStore_CommitCancellation(t *testing.T) {
	f := newMarketFixture(t)
	ctx := context.Background()
	owner := f.seedProfile(t, shared.RoleCargoOwner, "Amina Logistics")
	a := f.seedProfile(t, shared.RoleDriver, "Otieno")
	b := f.seedProfile(t, shared.RoleDriver, "Wanjiru")
	load := f.postLoad(t, owner.ID)
	f.submitBid(t, load.ID, a, 9000)
	f.submitBid(t, load.ID, b, 9100)

	reloaded, err := f.loads.FindByID(ctx, load.ID)
	require.NoError(t, err)
	require.NoError(t, reloaded.Cancel(owner.ID, "plans changed", testNow.Add(time.Hour)))

	rejected, err := f.allocation.CommitCancellation(ctx, marketplace.Cancellation{
		Load: reloaded, ActorID: owner.ID, At: testNow.Add(time.Hour),
	})
	require.NoError(t, err)
	require.Len(t, rejected, 2)
	for _, bid := range rejected {
		assert.Equal(t, marketplace.ReasonLoadCancelled, bid.RejectionReason)
	}

	stored, err := f.loads.FindByID(ctx, load.ID)
	require.NoError(t, err)
	assert.Equal(t, marketplace.LoadStatusCancelled, stored.Status)
	assert.Equal(t, "plans changed", stored.CancelReason)
	assert.Equal(t, int64(0), f.countRows(t, &models.BidModel{}, "load_id = ? AND status IN ?", load.ID, statusStrings(marketplace.ActiveBidStatuses)))
}
