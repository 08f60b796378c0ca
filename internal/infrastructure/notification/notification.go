// Package notification pushes marketplace notifications to connected users
// over websockets, optionally fanned out across instances through Redis.
package notification

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Type identifies the kind of notification
type Type string

const (
	TypeNewBid        Type = "bid.new"
	TypeBidAccepted   Type = "bid.accepted"
	TypeBidRejected   Type = "bid.rejected"
	TypeCounterOffer  Type = "bid.counter_offer"
	TypeLoadAssigned  Type = "load.assigned"
	TypeBookingStatus Type = "booking.status"
)

// Notification is the JSON message delivered to a user
type Notification struct {
	ID        uuid.UUID `json:"id"`
	Type      Type      `json:"type"`
	UserID    uuid.UUID `json:"user_id"`
	Message   string    `json:"message"`
	Data      any       `json:"data,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// Sink delivers a notification to one user
type Sink interface {
	Deliver(ctx context.Context, userID uuid.UUID, n Notification) error
}

// Tee delivers to every sink and joins their errors
type Tee []Sink

// Deliver implements Sink
func (t Tee) Deliver(ctx context.Context, userID uuid.UUID, n Notification) error {
	var errs []error
	for _, s := range t {
		if err := s.Deliver(ctx, userID, n); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogSink writes notifications to the log. It is the only sink when
// neither websockets nor Redis are wired, e.g. in the seed CLI.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a LogSink
func NewLogSink(logger *zap.Logger) *LogSink {
	return &LogSink{logger: logger.Named("notification")}
}

// Deliver implements Sink
func (s *LogSink) Deliver(_ context.Context, userID uuid.UUID, n Notification) error {
	s.logger.Info("Notification",
		zap.String("user_id", userID.String()),
		zap.String("type", string(n.Type)),
		zap.String("message", n.Message),
	)
	return nil
}
