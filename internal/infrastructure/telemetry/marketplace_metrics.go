package telemetry

import (
	"context"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// MarketplaceMetrics tracks bidding activity, allocation outcomes and the
// size of the open market.
type MarketplaceMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	// Counter metrics (monotonically increasing)
	bidsSubmittedTotal       *Counter
	bidsAcceptedTotal        *Counter
	allocationConflictsTotal *Counter
	bookingsCompletedTotal   *Counter
	bookingTransitionsTotal  *Counter

	bidAmount *Histogram

	// Gauge metrics (point-in-time values)
	openLoads *Gauge

	stopChan    chan struct{}
	stopOnce    sync.Once
	collectOnce sync.Once

	loadProvider OpenLoadProvider
	interval     time.Duration
}

// OpenLoadProvider reports the number of loads accepting bids. It lets the
// telemetry layer sample the market without importing the marketplace domain.
type OpenLoadProvider interface {
	CountOpenLoads(ctx context.Context) (int64, error)
}

// MarketplaceMetricsConfig holds configuration for marketplace metrics.
type MarketplaceMetricsConfig struct {
	Meter           metric.Meter
	Logger          *zap.Logger
	CollectInterval time.Duration // Default: 1 minute
	LoadProvider    OpenLoadProvider
}

// NewMarketplaceMetrics creates a new MarketplaceMetrics instance.
func NewMarketplaceMetrics(cfg MarketplaceMetricsConfig) (*MarketplaceMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	mm := &MarketplaceMetrics{
		meter:        cfg.Meter,
		logger:       logger,
		stopChan:     make(chan struct{}),
		loadProvider: cfg.LoadProvider,
		interval:     cfg.CollectInterval,
	}
	if mm.interval <= 0 {
		mm.interval = time.Minute
	}

	var err error

	mm.bidsSubmittedTotal, err = NewCounter(cfg.Meter,
		"freight_bids_submitted_total", "Total number of bids submitted", "{bids}")
	if err != nil {
		return nil, err
	}

	mm.bidsAcceptedTotal, err = NewCounter(cfg.Meter,
		"freight_bids_accepted_total", "Total number of bids that won a load", "{bids}")
	if err != nil {
		return nil, err
	}

	mm.allocationConflictsTotal, err = NewCounter(cfg.Meter,
		"freight_allocation_conflicts_total", "Total number of acceptances lost to a concurrent change", "{attempts}")
	if err != nil {
		return nil, err
	}

	mm.bookingsCompletedTotal, err = NewCounter(cfg.Meter,
		"freight_bookings_completed_total", "Total number of bookings completed", "{bookings}")
	if err != nil {
		return nil, err
	}

	mm.bookingTransitionsTotal, err = NewCounter(cfg.Meter,
		"freight_booking_transitions_total", "Total number of booking status changes", "{transitions}")
	if err != nil {
		return nil, err
	}

	mm.bidAmount, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "freight_bid_amount",
		Description: "Distribution of submitted bid amounts",
		Unit:        "{currency_unit}",
		Boundaries:  BidAmountBuckets,
	})
	if err != nil {
		return nil, err
	}

	mm.openLoads, err = NewGauge(cfg.Meter,
		"freight_open_loads", "Number of loads currently accepting bids", "{loads}")
	if err != nil {
		return nil, err
	}

	return mm, nil
}

// BidAmountBuckets are bucket boundaries for bid amounts in major currency units.
var BidAmountBuckets = []float64{1000, 2500, 5000, 10000, 25000, 50000, 100000, 250000}

// =============================================================================
// Bidding Metrics
// =============================================================================

// RecordBidSubmitted records a submitted bid and its amount.
func (mm *MarketplaceMetrics) RecordBidSubmitted(ctx context.Context, currency, vehicleType string, amount decimal.Decimal) {
	mm.bidsSubmittedTotal.Inc(ctx,
		AttrCurrency.String(currency),
		AttrVehicleType.String(vehicleType),
	)
	f, _ := amount.Float64()
	mm.bidAmount.Record(ctx, f, AttrCurrency.String(currency))
}

// AcceptPath labels how a bid reached acceptance.
type AcceptPath string

const (
	AcceptPathDirect       AcceptPath = "direct"
	AcceptPathCounterOffer AcceptPath = "counter_offer"
)

// RecordBidAccepted records a winning bid.
func (mm *MarketplaceMetrics) RecordBidAccepted(ctx context.Context, path AcceptPath) {
	mm.bidsAcceptedTotal.Inc(ctx, AttrAcceptPath.String(string(path)))
}

// RecordAllocationConflict records an acceptance that lost a race or hit a stale state.
func (mm *MarketplaceMetrics) RecordAllocationConflict(ctx context.Context, code string) {
	mm.allocationConflictsTotal.Inc(ctx, AttrConflictCode.String(code))
}

// =============================================================================
// Booking Metrics
// =============================================================================

// RecordBookingTransition records a booking status change. Completions are
// also counted on their own.
func (mm *MarketplaceMetrics) RecordBookingTransition(ctx context.Context, status string) {
	mm.bookingTransitionsTotal.Inc(ctx, AttrBookingStatus.String(status))
	if status == "completed" {
		mm.bookingsCompletedTotal.Inc(ctx)
	}
}

// RecordOpenLoads records the current number of open loads.
func (mm *MarketplaceMetrics) RecordOpenLoads(ctx context.Context, count int64) {
	mm.openLoads.Record(ctx, count)
}

// =============================================================================
// Periodic Collection
// =============================================================================

// StartPeriodicCollection samples the open-load gauge every CollectInterval.
// Non-blocking; use Stop() to end collection.
func (mm *MarketplaceMetrics) StartPeriodicCollection(ctx context.Context) {
	mm.collectOnce.Do(func() {
		go mm.runPeriodicCollection(ctx, mm.interval)
	})
}

func (mm *MarketplaceMetrics) runPeriodicCollection(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	mm.collectOpenLoads(ctx)

	for {
		select {
		case <-mm.stopChan:
			mm.logger.Info("Stopping periodic marketplace metrics collection")
			return
		case <-ctx.Done():
			mm.logger.Info("Context cancelled, stopping periodic marketplace metrics collection")
			return
		case <-ticker.C:
			mm.collectOpenLoads(ctx)
		}
	}
}

func (mm *MarketplaceMetrics) collectOpenLoads(ctx context.Context) {
	if mm.loadProvider == nil {
		mm.logger.Debug("No load provider configured, skipping open load collection")
		return
	}
	count, err := mm.loadProvider.CountOpenLoads(ctx)
	if err != nil {
		mm.logger.Warn("Failed to count open loads", zap.Error(err))
		return
	}
	mm.RecordOpenLoads(ctx, count)
}

// Stop stops the periodic collection.
func (mm *MarketplaceMetrics) Stop() {
	mm.stopOnce.Do(func() {
		close(mm.stopChan)
	})
}

// =============================================================================
// Error Types
// =============================================================================

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewMarketplaceMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
