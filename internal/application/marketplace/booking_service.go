package marketplace

import (
	"context"
	"fmt"
	"path"
	"strings"

	"github.com/freightmarket/backend/internal/domain/marketplace"
	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/freightmarket/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// BookingService handles the post-acceptance lifecycle of a job
type BookingService struct {
	collaborators
	bookingRepo marketplace.BookingRepository
	loadRepo    marketplace.LoadRepository
	store       marketplace.BookingStore
	profiles    marketplace.ProfileLookup
	storage     ObjectStorageService
	config      Config
}

// NewBookingService creates a new BookingService
func NewBookingService(
	bookingRepo marketplace.BookingRepository,
	loadRepo marketplace.LoadRepository,
	store marketplace.BookingStore,
	profiles marketplace.ProfileLookup,
	config Config,
	logger *zap.Logger,
) *BookingService {
	return &BookingService{
		collaborators: newCollaborators(logger),
		bookingRepo:   bookingRepo,
		loadRepo:      loadRepo,
		store:         store,
		profiles:      profiles,
		config:        config,
	}
}

// SetObjectStorage sets the storage used for proof-of-delivery uploads
func (s *BookingService) SetObjectStorage(storage ObjectStorageService) {
	s.storage = storage
}

// GetBooking returns a booking to one of its parties
func (s *BookingService) GetBooking(ctx context.Context, actor shared.Actor, bookingID uuid.UUID) (*BookingResponse, error) {
	booking, err := s.findForParty(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	response := ToBookingResponse(booking)
	return &response, nil
}

// ListMyBookings lists bookings where the caller is driver or cargo owner
func (s *BookingService) ListMyBookings(ctx context.Context, actor shared.Actor, filter BookingListFilter) ([]BookingResponse, int64, error) {
	domainFilter := shared.Filter{
		Page:     filter.Page,
		PageSize: filter.PageSize,
		OrderBy:  "assigned_at",
		OrderDir: "desc",
	}.Normalize()
	if filter.Status != "" {
		st := marketplace.BookingStatus(filter.Status)
		if !st.IsValid() {
			return nil, 0, shared.NewValidationError("status", fmt.Sprintf("Unknown booking status %q", filter.Status))
		}
		domainFilter.Filters["status"] = st
	}

	bookings, total, err := s.bookingRepo.FindByParty(ctx, actor.ID, domainFilter)
	if err != nil {
		return nil, 0, err
	}
	return ToBookingResponses(bookings), total, nil
}

// UpdateBookingStatus moves a booking along its lifecycle and cascades the
// load and driver effects in the same unit of work.
func (s *BookingService) UpdateBookingStatus(ctx context.Context, actor shared.Actor, bookingID uuid.UUID, req UpdateBookingStatusRequest) (*BookingResponse, error) {
	target := marketplace.BookingStatus(strings.TrimSpace(req.Status))
	ctx, span := telemetry.StartServiceSpan(ctx, "booking", "update_status",
		telemetry.WithAttribute("booking_id", bookingID.String()),
		telemetry.WithAttribute("target", string(target)))
	defer span.End()

	booking, err := s.bookingRepo.FindByID(ctx, bookingID)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	var location *marketplace.GeoPoint
	if req.Location != nil {
		location = &marketplace.GeoPoint{Latitude: req.Location.Latitude, Longitude: req.Location.Longitude}
	}

	now := s.now()
	if err := booking.Transition(actor.ID, target, req.Notes, location, now); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}

	change, err := s.cascade(ctx, booking)
	if err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	if err := s.store.CommitTransition(ctx, change); err != nil {
		telemetry.RecordError(span, err)
		return nil, err
	}
	telemetry.SetOK(span)
	if s.metrics != nil {
		s.metrics.RecordBookingTransition(ctx, string(target))
	}

	events := booking.PullDomainEvents()
	if change.Load != nil {
		events = append(events, change.Load.PullDomainEvents()...)
	}
	s.publish(ctx, events...)

	summary := BookingSummary{
		BookingID: booking.ID,
		LoadID:    booking.LoadID,
		Reference: booking.Reference,
		Status:    string(booking.Status),
		Note:      booking.Timeline[len(booking.Timeline)-1].Note,
	}
	counterparty := booking.DriverID
	if actor.ID == booking.DriverID {
		counterparty = booking.CargoOwnerID
	}
	s.notify(ctx, "booking_status", func(n Notifier) error {
		return n.NotifyBookingStatus(ctx, counterparty, summary)
	})

	response := ToBookingResponse(booking)
	return &response, nil
}

// cascade works out the load and driver effects of the status the booking just entered.
func (s *BookingService) cascade(ctx context.Context, booking *marketplace.Booking) (marketplace.BookingChange, error) {
	change := marketplace.BookingChange{Booking: booking}
	now := booking.UpdatedAt

	if marketplace.ReleasesDriver(booking.Status) {
		available := true
		change.DriverAvailable = &available
	}

	switch booking.Status {
	case marketplace.BookingStatusPickedUp, marketplace.BookingStatusInTransit,
		marketplace.BookingStatusDelivered, marketplace.BookingStatusCompleted,
		marketplace.BookingStatusCancelled, marketplace.BookingStatusRejected:
	default:
		return change, nil
	}

	load, err := s.loadRepo.FindByID(ctx, booking.LoadID)
	if err != nil {
		return change, err
	}

	switch booking.Status {
	case marketplace.BookingStatusPickedUp, marketplace.BookingStatusInTransit:
		if load.Status == marketplace.LoadStatusDriverAssigned {
			if _, err := load.MarkInTransit(now); err != nil {
				return change, err
			}
			change.Load = load
		}
	case marketplace.BookingStatusDelivered, marketplace.BookingStatusCompleted:
		changed, err := load.MarkDelivered(now)
		if err != nil {
			return change, err
		}
		if changed {
			change.Load = load
		}
	case marketplace.BookingStatusCancelled, marketplace.BookingStatusRejected:
		if load.Status != marketplace.LoadStatusDriverAssigned && load.Status != marketplace.LoadStatusInTransit {
			return change, nil
		}
		live, err := s.bookingRepo.CountLiveByLoad(ctx, load.ID, booking.ID)
		if err != nil {
			return change, err
		}
		if live == 0 {
			if err := load.ReleaseAssignment(now); err != nil {
				return change, err
			}
			change.Load = load
		}
	}
	return change, nil
}

// SubmitRating records one party's rating of the other and returns the
// target's refreshed aggregate.
func (s *BookingService) SubmitRating(ctx context.Context, actor shared.Actor, bookingID uuid.UUID, req SubmitRatingRequest) (*RatingResult, error) {
	booking, err := s.bookingRepo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	target, err := booking.Rate(actor.ID, req.Rating, req.Review, s.now())
	if err != nil {
		return nil, err
	}
	if err := s.bookingRepo.SaveWithLock(ctx, booking); err != nil {
		return nil, err
	}

	// The bus dispatches synchronously, so the profile aggregate is current
	// once publish returns.
	s.publish(ctx, booking.PullDomainEvents()...)

	result := &RatingResult{
		BookingID: booking.ID,
		TargetID:  target.UserID,
		Score:     req.Rating,
	}
	profile, err := s.profiles.GetParty(ctx, target.UserID)
	if err == nil {
		result.AverageRating = profile.Rating
		result.RatingCount = profile.RatingCount
		return result, nil
	}
	s.logger.Warn("Rated profile unavailable, reading aggregate from bookings",
		zap.String("user_id", target.UserID.String()),
		zap.Error(err),
	)

	summary, err := s.bookingRepo.RatingSummary(ctx, target.UserID, target.Role)
	if err != nil {
		return nil, err
	}
	result.AverageRating = summary.Average.Round(1)
	result.RatingCount = summary.Count
	return result, nil
}

// RequestProofOfDeliveryUpload issues a presigned upload URL for the delivery
// document and records its object key on the booking.
func (s *BookingService) RequestProofOfDeliveryUpload(ctx context.Context, actor shared.Actor, bookingID uuid.UUID, req ProofOfDeliveryRequest) (*ProofOfDeliveryResponse, error) {
	if s.storage == nil {
		return nil, shared.NewDomainError(shared.CodeInternal, "Object storage is not configured")
	}

	booking, err := s.bookingRepo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	key := proofOfDeliveryKey(booking.ID, req.FileName)
	if err := booking.AttachProofOfDelivery(actor.ID, key, s.now()); err != nil {
		return nil, err
	}

	url, expiresAt, err := s.storage.GenerateUploadURL(ctx, key, req.ContentType, s.config.UploadURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("generate upload url: %w", err)
	}
	if err := s.bookingRepo.SaveWithLock(ctx, booking); err != nil {
		return nil, err
	}

	return &ProofOfDeliveryResponse{
		UploadURL:  url,
		StorageKey: key,
		ExpiresAt:  expiresAt,
	}, nil
}

// GetProofOfDeliveryURL returns a presigned download URL for the uploaded
// delivery document. Either party may read it.
func (s *BookingService) GetProofOfDeliveryURL(ctx context.Context, actor shared.Actor, bookingID uuid.UUID) (*ProofOfDeliveryLink, error) {
	if s.storage == nil {
		return nil, shared.NewDomainError(shared.CodeInternal, "Object storage is not configured")
	}
	booking, err := s.findForParty(ctx, actor, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.ProofOfDeliveryKey == "" {
		return nil, shared.NewNotFoundError("Proof of delivery")
	}

	url, expiresAt, err := s.storage.GenerateDownloadURL(ctx, booking.ProofOfDeliveryKey, s.config.UploadURLExpiry)
	if err != nil {
		return nil, fmt.Errorf("generate download url: %w", err)
	}
	return &ProofOfDeliveryLink{DownloadURL: url, ExpiresAt: expiresAt}, nil
}

func (s *BookingService) findForParty(ctx context.Context, actor shared.Actor, bookingID uuid.UUID) (*marketplace.Booking, error) {
	booking, err := s.bookingRepo.FindByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if !booking.IsParty(actor.ID) && actor.Role != shared.RoleAdmin {
		return nil, shared.NewForbiddenError("You are not a party to this booking")
	}
	return booking, nil
}

// proofOfDeliveryKey builds proof-of-delivery/<booking>/<random><ext>
func proofOfDeliveryKey(bookingID uuid.UUID, fileName string) string {
	ext := strings.ToLower(path.Ext(path.Base(fileName)))
	if len(ext) > 8 {
		ext = ""
	}
	return fmt.Sprintf("proof-of-delivery/%s/%s%s", bookingID, uuid.New(), ext)
}
