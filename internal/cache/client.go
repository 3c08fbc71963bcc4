// Package cache wraps Redis for the hint-only hot-path data named in
// spec.md §5: a 30s price cache and a cross-process Telegram discovery
// dedup set. Nothing here participates in a correctness decision --
// every value is either absent (caller falls back to Postgres/RPC) or
// treated as possibly stale.
package cache

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

// client narrows *redis.Client to the handful of commands this package
// needs, the same way ethdb/redisdb's simpleClient narrows it for a
// batch-backed key/value store -- testable against a hand-rolled fake
// without a miniredis dependency.
type client interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
	SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
}

// New constructs a *redis.Client from a connection URL (redis://... or
// rediss://...), matching config.Config.RedisURL.
func New(redisURL string) (*redis.Client, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, err
	}
	return redis.NewClient(opts), nil
}
