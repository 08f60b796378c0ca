package marketplace

import (
	"context"
	"time"

	"github.com/freightmarket/backend/internal/domain/shared"
	"github.com/freightmarket/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// collaborators are the optional dependencies every marketplace service
// reaches after its unit of work has committed. Each one may be nil.
type collaborators struct {
	logger    *zap.Logger
	publisher shared.EventPublisher
	notifier  Notifier
	metrics   *telemetry.MarketplaceMetrics
	now       func() time.Time
}

func newCollaborators(logger *zap.Logger) collaborators {
	if logger == nil {
		logger = zap.NewNop()
	}
	return collaborators{
		logger: logger,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// SetEventPublisher sets the event publisher for cross-context integration
func (c *collaborators) SetEventPublisher(publisher shared.EventPublisher) {
	c.publisher = publisher
}

// SetNotifier sets the user notification dispatcher
func (c *collaborators) SetNotifier(notifier Notifier) {
	c.notifier = notifier
}

// SetMarketplaceMetrics sets the marketplace metrics collector
func (c *collaborators) SetMarketplaceMetrics(mm *telemetry.MarketplaceMetrics) {
	c.metrics = mm
}

// SetClock overrides the time source
func (c *collaborators) SetClock(now func() time.Time) {
	if now != nil {
		c.now = now
	}
}

// publish hands committed events to the bus. Failures are logged only: the
// state change they describe is already durable.
func (c *collaborators) publish(ctx context.Context, events ...shared.DomainEvent) {
	if c.publisher == nil || len(events) == 0 {
		return
	}
	if err := c.publisher.Publish(ctx, events...); err != nil {
		c.logger.Error("Failed to publish domain events",
			zap.Int("count", len(events)),
			zap.String("first_event_type", events[0].EventType()),
			zap.Error(err),
		)
	}
}

// notify runs one notifier call and swallows its error
func (c *collaborators) notify(ctx context.Context, kind string, send func(n Notifier) error) {
	if c.notifier == nil {
		return
	}
	if err := send(c.notifier); err != nil {
		c.logger.Warn("Notification dispatch failed",
			zap.String("notification", kind),
			zap.Error(err),
		)
	}
}
