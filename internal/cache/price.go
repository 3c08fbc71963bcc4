package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// priceTTL matches spec.md §5's "a 30s price cache is allowed to be
// stale".
const priceTTL = 30 * time.Second

const pricePrefix = "price:"

// PriceCache is the non-authoritative per-mint price hint shared across
// sniperd processes.
type PriceCache struct {
	client client
}

// NewPriceCache constructs a PriceCache over rdb.
func NewPriceCache(rdb *redis.Client) *PriceCache {
	return &PriceCache{client: rdb}
}

// Get returns the cached price for mint, or ok=false on a miss
// (including an unreachable Redis, which is never fatal here -- the
// caller re-fetches from the router).
func (c *PriceCache) Get(ctx context.Context, mint string) (price float64, ok bool) {
	raw, err := c.client.Get(ctx, pricePrefix+mint).Result()
	if err != nil {
		return 0, false
	}
	parsed, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, false
	}
	return parsed, true
}

// Set stores price for mint with the fixed 30s hint TTL. Errors are
// returned for observability but callers should not treat them as
// fatal -- the cache is a hint only.
func (c *PriceCache) Set(ctx context.Context, mint string, price float64) error {
	err := c.client.Set(ctx, pricePrefix+mint, strconv.FormatFloat(price, 'f', -1, 64), priceTTL).Err()
	if err != nil && !errors.Is(err, redis.Nil) {
		return fmt.Errorf("cache price for %s: %w", mint, err)
	}
	return nil
}
