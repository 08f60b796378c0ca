package event

import (
	"context"
	"sync/atomic"

	"github.com/freightmarket/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// DeliveryCounts tallies the outcome of every delivery seen by one or more
// IdempotentHandlers.
type DeliveryCounts struct {
	processed atomic.Int64
	duplicate atomic.Int64
	failed    atomic.Int64
}

// DeliverySnapshot is a point-in-time copy of DeliveryCounts
type DeliverySnapshot struct {
	Processed int64 `json:"processed"`
	Duplicate int64 `json:"duplicate"`
	Failed    int64 `json:"failed"`
}

func (c *DeliveryCounts) Snapshot() DeliverySnapshot {
	return DeliverySnapshot{
		Processed: c.processed.Load(),
		Duplicate: c.duplicate.Load(),
		Failed:    c.failed.Load(),
	}
}

// IdempotentHandler applies an event at most once per consumer. Profile
// counters are not idempotent on their own, so every handler that mutates
// them is wrapped.
type IdempotentHandler struct {
	consumer string
	next     shared.EventHandler
	store    shared.IdempotencyStore
	cfg      shared.IdempotencyConfig
	log      *zap.Logger
	counts   *DeliveryCounts
}

type Option func(*IdempotentHandler)

// WithConfig overrides shared.DefaultIdempotencyConfig
func WithConfig(cfg shared.IdempotencyConfig) Option {
	return func(h *IdempotentHandler) { h.cfg = cfg }
}

// WithCounts lets several consumers report into one DeliveryCounts
func WithCounts(c *DeliveryCounts) Option {
	return func(h *IdempotentHandler) { h.counts = c }
}

func NewIdempotentHandler(consumer string, next shared.EventHandler, store shared.IdempotencyStore, log *zap.Logger, opts ...Option) *IdempotentHandler {
	h := &IdempotentHandler{
		consumer: consumer,
		next:     next,
		store:    store,
		cfg:      shared.DefaultIdempotencyConfig(),
		log:      log.With(zap.String("consumer", consumer)),
		counts:   &DeliveryCounts{},
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *IdempotentHandler) EventTypes() []string    { return h.next.EventTypes() }
func (h *IdempotentHandler) Counts() *DeliveryCounts { return h.counts }

// key is scoped by consumer so two consumers of one event never shadow each other.
func (h *IdempotentHandler) key(evt shared.DomainEvent) string {
	return h.consumer + ":" + evt.EventID().String()
}

// Handle claims the event key before running the wrapped handler. A store
// outage falls through to processing; a claimed key that later fails stays
// claimed until its TTL expires.
func (h *IdempotentHandler) Handle(ctx context.Context, evt shared.DomainEvent) error {
	if h.cfg.Enabled {
		claimed, err := h.store.MarkProcessed(ctx, h.key(evt), h.cfg.TTL)
		if err != nil {
			h.log.Warn("Idempotency store unavailable, processing event",
				zap.String("event_id", evt.EventID().String()), zap.Error(err))
		} else if !claimed {
			h.counts.duplicate.Add(1)
			h.log.Debug("Duplicate delivery skipped",
				zap.String("event_id", evt.EventID().String()),
				zap.String("event_type", evt.EventType()))
			return nil
		}
	}

	if err := h.next.Handle(ctx, evt); err != nil {
		h.counts.failed.Add(1)
		return err
	}
	h.counts.processed.Add(1)
	return nil
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
