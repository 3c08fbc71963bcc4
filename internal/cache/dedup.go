package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const dedupPrefix = "discovery_dedup:"

// Dedup is the cross-process counterpart to
// internal/discovery/telegram's in-memory dedup: when multiple sniperd
// processes share one Redis instance, SETNX gives each mint sighting a
// single winner across processes within window. Like the in-memory
// version, this is a noise filter only -- merge_launch_candidate in
// internal/discovery remains the authoritative dedup.
type Dedup struct {
	client client
	window time.Duration
}

// NewDedup constructs a Dedup with the given TTL window.
func NewDedup(rdb *redis.Client, window time.Duration) *Dedup {
	return &Dedup{client: rdb, window: window}
}

// Allow reports whether mint has not been seen by any process within
// window. On a Redis error it fails open (returns true) so discovery
// never silently stalls because the cache is unavailable --
// merge_launch_candidate is still there to catch true duplicates.
func (d *Dedup) Allow(ctx context.Context, mint string) bool {
	ok, err := d.client.SetNX(ctx, dedupPrefix+mint, 1, d.window).Result()
	if err != nil {
		return true
	}
	return ok
}

// Reset clears the dedup entry for mint, letting it be reported again
// immediately. Exposed for tests and manual operator intervention.
func (d *Dedup) Reset(ctx context.Context, mint string) error {
	if err := d.client.Del(ctx, dedupPrefix+mint).Err(); err != nil {
		return fmt.Errorf("reset dedup for %s: %w", mint, err)
	}
	return nil
}
