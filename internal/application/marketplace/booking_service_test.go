package marketplace

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/freightmarket/backend/internal/domain/marketplace"
	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type bookingFixture struct {
	svc         *BookingService
	bookingRepo *MockBookingRepository
	loadRepo    *MockLoadRepository
	store       *MockBookingStore
	profiles    *MockProfileLookup
	notifier    *MockNotifier
	publisher   *recordingPublisher
}

func newBookingFixture() *bookingFixture {
	f := &bookingFixture{
		bookingRepo: new(MockBookingRepository),
		loadRepo:    new(MockLoadRepository),
		store:       new(MockBookingStore),
		profiles:    new(MockProfileLookup),
		notifier:    new(MockNotifier),
		publisher:   &recordingPublisher{},
	}
	f.svc = NewBookingService(f.bookingRepo, f.loadRepo, f.store, f.profiles, DefaultConfig(), zap.NewNop())
	f.svc.SetClock(fixedClock)
	f.svc.SetEventPublisher(f.publisher)
	f.svc.SetNotifier(f.notifier)
	f.notifier.On("NotifyBookingStatus", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	return f
}

// newTestBooking returns an assigned booking and its driver_assigned load
func newTestBooking(ownerID, driverID uuid.UUID) (*marketplace.Booking, *marketplace.Load) {
	load := newTestLoad(ownerID)
	bid := newTestBid(load, driverID, 9000)
	if err := bid.Accept(ownerID, testNow); err != nil {
		panic(err)
	}
	if err := load.AssignDriver(bid, ownerID, testNow); err != nil {
		panic(err)
	}
	snapshot := marketplace.NewDriverSnapshot(newTestProfile(driverID, shared.RoleDriver, "Asha"), testNow)
	booking := marketplace.NewBookingFromAcceptance(bid, load, snapshot, ownerID, testNow)
	booking.ClearDomainEvents()
	load.ClearDomainEvents()
	return booking, load
}

// ============================================
// UpdateBookingStatus Tests
// ============================================

func TestBookingService_UpdateBookingStatus(t *testing.T) {
	ownerID := uuid.New()
	driverID := uuid.New()

	t.Run("in_progress leaves the load alone", func(t *testing.T) {
		f := newBookingFixture()
		booking, _ := newTestBooking(ownerID, driverID)
		f.bookingRepo.On("FindByID", mock.Anything, booking.ID).Return(booking, nil)
		f.store.On("CommitTransition", mock.Anything, mock.MatchedBy(func(c marketplace.BookingChange) bool {
			return c.Booking == booking && c.Load == nil && c.DriverAvailable == nil
		})).Return(nil)

		resp, err := f.svc.UpdateBookingStatus(context.Background(), driverActor(driverID), booking.ID,
			UpdateBookingStatusRequest{Status: "in_progress", Notes: "Heading out"})

		require.NoError(t, err)
		assert.Equal(t, string(marketplace.BookingStatusInProgress), resp.Status)
		assert.NotNil(t, resp.StartedAt)
		assert.Len(t, resp.Timeline, 2)
		f.loadRepo.AssertNotCalled(t, "FindByID", mock.Anything, mock.Anything)
		f.notifier.AssertCalled(t, "NotifyBookingStatus", mock.Anything, ownerID, mock.Anything)
		f.store.AssertExpectations(t)
	})

	t.Run("picked_up puts the load in transit", func(t *testing.T) {
		f := newBookingFixture()
		booking, load := newTestBooking(ownerID, driverID)
		booking.Status = marketplace.BookingStatusInProgress
		f.bookingRepo.On("FindByID", mock.Anything, booking.ID).Return(booking, nil)
		f.loadRepo.On("FindByID", mock.Anything, load.ID).Return(load, nil)
		f.store.On("CommitTransition", mock.Anything, mock.MatchedBy(func(c marketplace.BookingChange) bool {
			return c.Load == load
		})).Return(nil)

		_, err := f.svc.UpdateBookingStatus(context.Background(), driverActor(driverID), booking.ID,
			UpdateBookingStatusRequest{Status: "picked_up", Location: &GeoPointInput{Latitude: -1.29, Longitude: 36.82}})

		require.NoError(t, err)
		assert.Equal(t, marketplace.LoadStatusInTransit, load.Status)
		require.NotNil(t, booking.Timeline[len(booking.Timeline)-1].Location)
		assert.Equal(t, -1.29, booking.Timeline[len(booking.Timeline)-1].Location.Latitude)
	})

	t.Run("delivered marks the load delivered", func(t *testing.T) {
		f := newBookingFixture()
		booking, load := newTestBooking(ownerID, driverID)
		booking.Status = marketplace.BookingStatusInTransit
		_, err := load.MarkInTransit(testNow)
		require.NoError(t, err)
		f.bookingRepo.On("FindByID", mock.Anything, booking.ID).Return(booking, nil)
		f.loadRepo.On("FindByID", mock.Anything, load.ID).Return(load, nil)
		f.store.On("CommitTransition", mock.Anything, mock.Anything).Return(nil)

		resp, err := f.svc.UpdateBookingStatus(context.Background(), driverActor(driverID), booking.ID,
			UpdateBookingStatusRequest{Status: "delivered"})

		require.NoError(t, err)
		assert.NotNil(t, resp.ActualDeliveryDate)
		assert.Equal(t, marketplace.LoadStatusDelivered, load.Status)
	})

	t.Run("completed frees the driver", func(t *testing.T) {
		f := newBookingFixture()
		booking, load := newTestBooking(ownerID, driverID)
		booking.Status = marketplace.BookingStatusDelivered
		_, err := load.MarkDelivered(testNow)
		require.NoError(t, err)
		f.bookingRepo.On("FindByID", mock.Anything, booking.ID).Return(booking, nil)
		f.loadRepo.On("FindByID", mock.Anything, load.ID).Return(load, nil)
		f.store.On("CommitTransition", mock.Anything, mock.MatchedBy(func(c marketplace.BookingChange) bool {
			return c.Load == nil && c.DriverAvailable != nil && *c.DriverAvailable
		})).Return(nil)

		_, err = f.svc.UpdateBookingStatus(context.Background(), driverActor(driverID), booking.ID,
			UpdateBookingStatusRequest{Status: "completed"})

		require.NoError(t, err)
		assert.Contains(t, f.publisher.types(), marketplace.EventTypeBookingCompleted)
		f.store.AssertExpectations(t)
	})

	t.Run("cancel releases the load when nothing else holds it", func(t *testing.T) {
		f := newBookingFixture()
		booking, load := newTestBooking(ownerID, driverID)
		f.bookingRepo.On("FindByID", mock.Anything, booking.ID).Return(booking, nil)
		f.bookingRepo.On("CountLiveByLoad", mock.Anything, load.ID, booking.ID).Return(int64(0), nil)
		f.loadRepo.On("FindByID", mock.Anything, load.ID).Return(load, nil)
		f.store.On("CommitTransition", mock.Anything, mock.MatchedBy(func(c marketplace.BookingChange) bool {
			return c.Load == load && c.DriverAvailable != nil
		})).Return(nil)

		resp, err := f.svc.UpdateBookingStatus(context.Background(), ownerActor(ownerID), booking.ID,
			UpdateBookingStatusRequest{Status: "cancelled", Notes: "Cargo not ready"})

		require.NoError(t, err)
		assert.Equal(t, "Cargo not ready", resp.CancellationReason)
		assert.Equal(t, marketplace.LoadStatusPosted, load.Status)
		assert.Nil(t, load.AssignedDriverID)
		assert.Contains(t, f.publisher.types(), marketplace.EventTypeBookingCancelled)
		f.notifier.AssertCalled(t, "NotifyBookingStatus", mock.Anything, driverID, mock.Anything)
	})

	t.Run("cancel keeps the load while another booking is live", func(t *testing.T) {
		f := newBookingFixture()
		booking, load := newTestBooking(ownerID, driverID)
		f.bookingRepo.On("FindByID", mock.Anything, booking.ID).Return(booking, nil)
		f.bookingRepo.On("CountLiveByLoad", mock.Anything, load.ID, booking.ID).Return(int64(1), nil)
		f.loadRepo.On("FindByID", mock.Anything, load.ID).Return(load, nil)
		f.store.On("CommitTransition", mock.Anything, mock.MatchedBy(func(c marketplace.BookingChange) bool {
			return c.Load == nil
		})).Return(nil)

		_, err := f.svc.UpdateBookingStatus(context.Background(), driverActor(driverID), booking.ID,
			UpdateBookingStatusRequest{Status: "cancelled"})

		require.NoError(t, err)
		assert.Equal(t, marketplace.LoadStatusDriverAssigned, load.Status)
	})

	t.Run("accepted is not a reachable target", func(t *testing.T) {
		f := newBookingFixture()
		booking, _ := newTestBooking(ownerID, driverID)
		f.bookingRepo.On("FindByID", mock.Anything, booking.ID).Return(booking, nil)

		_, err := f.svc.UpdateBookingStatus(context.Background(), driverActor(driverID), booking.ID,
			UpdateBookingStatusRequest{Status: "accepted"})

		assert.ErrorIs(t, err, shared.ErrInvalidTransition)
		f.store.AssertNotCalled(t, "CommitTransition", mock.Anything, mock.Anything)
	})

	t.Run("owner cannot drive the job", func(t *testing.T) {
		f := newBookingFixture()
		booking, _ := newTestBooking(ownerID, driverID)
		f.bookingRepo.On("FindByID", mock.Anything, booking.ID).Return(booking, nil)

		_, err := f.svc.UpdateBookingStatus(context.Background(), ownerActor(ownerID), booking.ID,
			UpdateBookingStatusRequest{Status: "in_progress"})

		assert.ErrorIs(t, err, shared.ErrForbidden)
	})

	t.Run("skipping a step is refused", func(t *testing.T) {
		f := newBookingFixture()
		booking, _ := newTestBooking(ownerID, driverID)
		f.bookingRepo.On("FindByID", mock.Anything, booking.ID).Return(booking, nil)

		_, err := f.svc.UpdateBookingStatus(context.Background(), driverActor(driverID), booking.ID,
			UpdateBookingStatusRequest{Status: "delivered"})

		assert.ErrorIs(t, err, shared.ErrInvalidTransition)
		assert.Equal(t, marketplace.BookingStatusAssigned, booking.Status)
	})

	t.Run("commit failure publishes nothing", func(t *testing.T) {
		f := newBookingFixture()
		booking, _ := newTestBooking(ownerID, driverID)
		f.bookingRepo.On("FindByID", mock.Anything, booking.ID).Return(booking, nil)
		f.store.On("CommitTransition", mock.Anything, mock.Anything).Return(shared.ErrConcurrencyConflict)

		_, err := f.svc.UpdateBookingStatus(context.Background(), driverActor(driverID), booking.ID,
			UpdateBookingStatusRequest{Status: "in_progress"})

		assert.ErrorIs(t, err, shared.ErrConcurrencyConflict)
		assert.Empty(t, f.publisher.types())
	})
}

// ============================================
// Read Tests
// ============================================

func TestBookingService_GetBooking(t *testing.T) {
	ownerID := uuid.New()
	driverID := uuid.New()
	booking, _ := newTestBooking(ownerID, driverID)

	tests := []struct {
		name    string
		actor   shared.Actor
		wantErr error
	}{
		{"driver", driverActor(driverID), nil},
		{"owner", ownerActor(ownerID), nil},
		{"admin", shared.NewActor(uuid.New(), shared.RoleAdmin), nil},
		{"stranger", driverActor(uuid.New()), shared.ErrForbidden},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newBookingFixture()
			f.bookingRepo.On("FindByID", mock.Anything, booking.ID).Return(booking, nil)

			resp, err := f.svc.GetBooking(context.Background(), tt.actor, booking.ID)

			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, booking.Reference, resp.Reference)
		})
	}
}

func TestBookingService_ListMyBookings(t *testing.T) {
	driverID := uuid.New()
	booking, _ := newTestBooking(uuid.New(), driverID)

	t.Run("filters by status", func(t *testing.T) {
		f := newBookingFixture()
		f.bookingRepo.On("FindByParty", mock.Anything, driverID, mock.MatchedBy(func(filter shared.Filter) bool {
			return filter.OrderBy == "assigned_at" && filter.Filters["status"] == marketplace.BookingStatusAssigned
		})).Return([]marketplace.Booking{*booking}, int64(1), nil)

		list, total, err := f.svc.ListMyBookings(context.Background(), driverActor(driverID), BookingListFilter{Status: "assigned"})

		require.NoError(t, err)
		assert.Equal(t, int64(1), total)
		assert.Len(t, list, 1)
	})

	t.Run("rejects unknown status", func(t *testing.T) {
		f := newBookingFixture()

		_, _, err := f.svc.ListMyBookings(context.Background(), driverActor(driverID), BookingListFilter{Status: "lost"})

		assert.Equal(t, shared.CodeValidation, shared.ErrorCode(err))
	})
}

// ============================================
// SubmitRating Tests
// ============================================

func TestBookingService_SubmitRating(t *testing.T) {
	ownerID := uuid.New()
	driverID := uuid.New()

	completed := func() *marketplace.Booking {
		booking, _ := newTestBooking(ownerID, driverID)
		booking.Status = marketplace.BookingStatusCompleted
		return booking
	}

	t.Run("returns the refreshed profile aggregate", func(t *testing.T) {
		f := newBookingFixture()
		booking := completed()
		profile := newTestProfile(driverID, shared.RoleDriver, "Asha")
		profile.Rating = decimal.NewFromFloat(4.6)
		profile.RatingCount = 11
		f.bookingRepo.On("FindByID", mock.Anything, booking.ID).Return(booking, nil)
		f.bookingRepo.On("SaveWithLock", mock.Anything, booking).Return(nil)
		f.profiles.On("GetParty", mock.Anything, driverID).Return(profile, nil)

		result, err := f.svc.SubmitRating(context.Background(), ownerActor(ownerID), booking.ID,
			SubmitRatingRequest{Rating: 5, Review: "On time"})

		require.NoError(t, err)
		assert.Equal(t, driverID, result.TargetID)
		assert.Equal(t, 5, result.Score)
		assert.True(t, decimal.NewFromFloat(4.6).Equal(result.AverageRating))
		assert.Equal(t, 11, result.RatingCount)
		assert.Equal(t, []string{marketplace.EventTypeRatingSubmitted}, f.publisher.types())
	})

	t.Run("falls back to the booking aggregate", func(t *testing.T) {
		f := newBookingFixture()
		booking := completed()
		f.bookingRepo.On("FindByID", mock.Anything, booking.ID).Return(booking, nil)
		f.bookingRepo.On("SaveWithLock", mock.Anything, booking).Return(nil)
		f.profiles.On("GetParty", mock.Anything, ownerID).Return(nil, shared.NewNotFoundError("profile"))
		f.bookingRepo.On("RatingSummary", mock.Anything, ownerID, shared.RoleCargoOwner).
			Return(marketplace.RatingSummary{Average: decimal.NewFromFloat(4.333), Count: 3}, nil)

		result, err := f.svc.SubmitRating(context.Background(), driverActor(driverID), booking.ID,
			SubmitRatingRequest{Rating: 4})

		require.NoError(t, err)
		assert.Equal(t, ownerID, result.TargetID)
		assert.Equal(t, "4.3", result.AverageRating.String())
		assert.Equal(t, 3, result.RatingCount)
	})

	t.Run("second rating by the same party", func(t *testing.T) {
		f := newBookingFixture()
		booking := completed()
		_, err := booking.Rate(ownerID, 5, "", testNow)
		require.NoError(t, err)
		f.bookingRepo.On("FindByID", mock.Anything, booking.ID).Return(booking, nil)

		_, err = f.svc.SubmitRating(context.Background(), ownerActor(ownerID), booking.ID, SubmitRatingRequest{Rating: 3})

		assert.Equal(t, shared.CodeAlreadyRated, shared.ErrorCode(err))
	})

	t.Run("booking not completed", func(t *testing.T) {
		f := newBookingFixture()
		booking, _ := newTestBooking(ownerID, driverID)
		f.bookingRepo.On("FindByID", mock.Anything, booking.ID).Return(booking, nil)

		_, err := f.svc.SubmitRating(context.Background(), ownerActor(ownerID), booking.ID, SubmitRatingRequest{Rating: 5})

		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})
}

// ============================================
// Proof of Delivery Tests
// ============================================

func TestBookingService_RequestProofOfDeliveryUpload(t *testing.T) {
	ownerID := uuid.New()
	driverID := uuid.New()
	req := ProofOfDeliveryRequest{FileName: "Signed POD.PDF", ContentType: "application/pdf"}

	t.Run("issues an upload url", func(t *testing.T) {
		f := newBookingFixture()
		storage := new(MockObjectStorage)
		f.svc.SetObjectStorage(storage)
		booking, _ := newTestBooking(ownerID, driverID)
		booking.Status = marketplace.BookingStatusDelivered
		expires := testNow.Add(15 * time.Minute)

		f.bookingRepo.On("FindByID", mock.Anything, booking.ID).Return(booking, nil)
		f.bookingRepo.On("SaveWithLock", mock.Anything, booking).Return(nil)
		storage.On("GenerateUploadURL", mock.Anything, mock.AnythingOfType("string"), "application/pdf", 15*time.Minute).
			Return("https://uploads.example.com/pod", expires, nil)

		resp, err := f.svc.RequestProofOfDeliveryUpload(context.Background(), driverActor(driverID), booking.ID, req)

		require.NoError(t, err)
		assert.Equal(t, "https://uploads.example.com/pod", resp.UploadURL)
		assert.Regexp(t, `^proof-of-delivery/`+booking.ID.String()+`/[0-9a-f-]{36}\.pdf$`, resp.StorageKey)
		assert.Equal(t, resp.StorageKey, booking.ProofOfDeliveryKey)
		assert.Equal(t, expires, resp.ExpiresAt)
	})

	t.Run("storage failure is not saved", func(t *testing.T) {
		f := newBookingFixture()
		storage := new(MockObjectStorage)
		f.svc.SetObjectStorage(storage)
		booking, _ := newTestBooking(ownerID, driverID)
		booking.Status = marketplace.BookingStatusDelivered

		f.bookingRepo.On("FindByID", mock.Anything, booking.ID).Return(booking, nil)
		storage.On("GenerateUploadURL", mock.Anything, mock.Anything, mock.Anything, mock.Anything).
			Return("", time.Time{}, errors.New("credentials expired"))

		_, err := f.svc.RequestProofOfDeliveryUpload(context.Background(), driverActor(driverID), booking.ID, req)

		assert.ErrorContains(t, err, "generate upload url")
		f.bookingRepo.AssertNotCalled(t, "SaveWithLock", mock.Anything, mock.Anything)
	})

	t.Run("before delivery", func(t *testing.T) {
		f := newBookingFixture()
		f.svc.SetObjectStorage(new(MockObjectStorage))
		booking, _ := newTestBooking(ownerID, driverID)
		f.bookingRepo.On("FindByID", mock.Anything, booking.ID).Return(booking, nil)

		_, err := f.svc.RequestProofOfDeliveryUpload(context.Background(), driverActor(driverID), booking.ID, req)

		assert.ErrorIs(t, err, shared.ErrInvalidState)
	})

	t.Run("storage not configured", func(t *testing.T) {
		f := newBookingFixture()

		_, err := f.svc.RequestProofOfDeliveryUpload(context.Background(), driverActor(driverID), uuid.New(), req)

		assert.Equal(t, shared.CodeInternal, shared.ErrorCode(err))
	})
}

func TestBookingService_GetProofOfDeliveryURL(t *testing.T) {
	ownerID := uuid.New()
	driverID := uuid.New()

	t.Run("owner reads the uploaded document", func(t *testing.T) {
		f := newBookingFixture()
		storage := new(MockObjectStorage)
		f.svc.SetObjectStorage(storage)
		booking, _ := newTestBooking(ownerID, driverID)
		booking.ProofOfDeliveryKey = "proof-of-delivery/" + booking.ID.String() + "/doc.pdf"
		expires := testNow.Add(15 * time.Minute)

		f.bookingRepo.On("FindByID", mock.Anything, booking.ID).Return(booking, nil)
		storage.On("GenerateDownloadURL", mock.Anything, booking.ProofOfDeliveryKey, 15*time.Minute).
			Return("https://uploads.example.com/pod?sig=1", expires, nil)

		link, err := f.svc.GetProofOfDeliveryURL(context.Background(), ownerActor(ownerID), booking.ID)

		require.NoError(t, err)
		assert.Equal(t, "https://uploads.example.com/pod?sig=1", link.DownloadURL)
		assert.Equal(t, expires, link.ExpiresAt)
	})

	t.Run("nothing uploaded yet", func(t *testing.T) {
		f := newBookingFixture()
		f.svc.SetObjectStorage(new(MockObjectStorage))
		booking, _ := newTestBooking(ownerID, driverID)
		f.bookingRepo.On("FindByID", mock.Anything, booking.ID).Return(booking, nil)

		_, err := f.svc.GetProofOfDeliveryURL(context.Background(), driverActor(driverID), booking.ID)

		assert.ErrorIs(t, err, shared.ErrNotFound)
	})

	t.Run("stranger is forbidden", func(t *testing.T) {
		f := newBookingFixture()
		f.svc.SetObjectStorage(new(MockObjectStorage))
		booking, _ := newTestBooking(ownerID, driverID)
		f.bookingRepo.On("FindByID", mock.Anything, booking.ID).Return(booking, nil)

		_, err := f.svc.GetProofOfDeliveryURL(context.Background(), driverActor(uuid.New()), booking.ID)

		assert.ErrorIs(t, err, shared.ErrForbidden)
	})
}

func TestProofOfDeliveryKey(t *testing.T) {
	id := uuid.New()

	assert.Regexp(t, `\.jpg$`, proofOfDeliveryKey(id, "photo.JPG"))
	assert.NotContains(t, proofOfDeliveryKey(id, "../../etc/passwd"), "..")
	assert.Regexp(t, `/[0-9a-f-]{36}$`, proofOfDeliveryKey(id, "archive.reallylongext"))
}
