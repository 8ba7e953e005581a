package shared

import (
	"context"
	"time"
)

// IdempotencyStore remembers which webhook event IDs have already been
// handled. Marketplaces redeliver on timeout, so the fast path consults this
// before the event repository. Entries expire after the configured dedup TTL;
// the repository's unique constraint remains the durable guard.
type IdempotencyStore interface {
	// MarkProcessed records an event ID for ttl. It reports true when the
	// ID was newly recorded and false when a delivery with the same ID
	// already came through.
	MarkProcessed(ctx context.Context, eventID string, ttl time.Duration) (bool, error)

	// IsProcessed reports whether an event ID is still remembered.
	IsProcessed(ctx context.Context, eventID string) (bool, error)

	Close() error
}
