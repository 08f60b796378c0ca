package shared

import (
	"context"
	"time"
)

// IdempotencyStore records which consumer has applied which event, so
// counter projections survive redelivery.
type IdempotencyStore interface {
	// MarkProcessed records key for ttl and reports whether it was new.
	MarkProcessed(ctx context.Context, key string, ttl time.Duration) (bool, error)
	IsProcessed(ctx context.Context, key string) (bool, error)
	Close() error
}

// IdempotencyConfig controls consumer deduplication. Keys live for TTL.
type IdempotencyConfig struct {
	Enabled bool
	TTL     time.Duration
}

func DefaultIdempotencyConfig() IdempotencyConfig {
	return IdempotencyConfig{Enabled: true, TTL: 24 * time.Hour}
}
