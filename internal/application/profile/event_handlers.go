package profile

import (
	"context"
	"fmt"

	"github.com/freightmarket/backend/internal/domain/marketplace"
	"github.com/freightmarket/backend/internal/domain/profile"
	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// RatingSource recomputes a participant's rating from the bookings they were rated on
type RatingSource interface {
	RatingSummary(ctx context.Context, userID uuid.UUID, role shared.Role) (marketplace.RatingSummary, error)
}

// BookingCompletedHandler bumps the job counters of both parties when a booking completes
type BookingCompletedHandler struct {
	repo   profile.ProfileRepository
	logger *zap.Logger
}

// NewBookingCompletedHandler creates a new BookingCompletedHandler
func NewBookingCompletedHandler(repo profile.ProfileRepository, logger *zap.Logger) *BookingCompletedHandler {
	return &BookingCompletedHandler{repo: repo, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *BookingCompletedHandler) EventTypes() []string {
	return []string{marketplace.EventTypeBookingCompleted}
}

// Handle processes a BookingCompletedEvent
func (h *BookingCompletedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	completed, ok := event.(*marketplace.BookingCompletedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			marketplace.EventTypeBookingCompleted, event.EventType())
	}

	if err := h.repo.IncrementCompletedJobs(ctx, completed.DriverID); err != nil {
		return fmt.Errorf("increment completed jobs for %s: %w", completed.DriverID, err)
	}
	if err := h.repo.IncrementTotalShipments(ctx, completed.CargoOwnerID); err != nil {
		return fmt.Errorf("increment total shipments for %s: %w", completed.CargoOwnerID, err)
	}

	h.logger.Debug("Profile counters updated",
		zap.String("booking_id", completed.BookingID.String()),
		zap.String("driver_id", completed.DriverID.String()),
		zap.String("cargo_owner_id", completed.CargoOwnerID.String()),
	)
	return nil
}

// RatingSubmittedHandler refreshes the rated party's aggregate rating
type RatingSubmittedHandler struct {
	repo    profile.ProfileRepository
	ratings RatingSource
	logger  *zap.Logger
}

// NewRatingSubmittedHandler creates a new RatingSubmittedHandler
func NewRatingSubmittedHandler(repo profile.ProfileRepository, ratings RatingSource, logger *zap.Logger) *RatingSubmittedHandler {
	return &RatingSubmittedHandler{repo: repo, ratings: ratings, logger: logger}
}

// EventTypes returns the event types this handler is interested in
func (h *RatingSubmittedHandler) EventTypes() []string {
	return []string{marketplace.EventTypeRatingSubmitted}
}

// Handle recomputes the target's average over every rated booking, so a
// redelivered event writes the same values.
func (h *RatingSubmittedHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	rated, ok := event.(*marketplace.RatingSubmittedEvent)
	if !ok {
		return fmt.Errorf("unexpected event type: expected %s, got %s",
			marketplace.EventTypeRatingSubmitted, event.EventType())
	}

	summary, err := h.ratings.RatingSummary(ctx, rated.TargetID, rated.TargetRole)
	if err != nil {
		return fmt.Errorf("rating summary for %s: %w", rated.TargetID, err)
	}
	avg := summary.Average.Round(1)
	if err := h.repo.UpdateRating(ctx, rated.TargetID, avg, summary.Count); err != nil {
		return fmt.Errorf("update rating for %s: %w", rated.TargetID, err)
	}

	h.logger.Info("Profile rating refreshed",
		zap.String("user_id", rated.TargetID.String()),
		zap.String("role", string(rated.TargetRole)),
		zap.String("average", avg.String()),
		zap.Int("count", summary.Count),
	)
	return nil
}
