package cache

import (
	"context"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
)

type fakeClient struct {
	values map[string]string
	getErr error
	setErr error
	setNX  map[string]bool
}

func newFakeClient() *fakeClient {
	return &fakeClient{values: map[string]string{}, setNX: map[string]bool{}}
}

func (f *fakeClient) Get(ctx context.Context, key string) *redis.StringCmd {
	cmd := redis.NewStringCmd(ctx, "get", key)
	if f.getErr != nil {
		cmd.SetErr(f.getErr)
		return cmd
	}
	v, ok := f.values[key]
	if !ok {
		cmd.SetErr(redis.Nil)
		return cmd
	}
	cmd.SetVal(v)
	return cmd
}

func (f *fakeClient) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	cmd := redis.NewStatusCmd(ctx, "set", key, value)
	if f.setErr != nil {
		cmd.SetErr(f.setErr)
		return cmd
	}
	f.values[key] = value.(string)
	cmd.SetVal("OK")
	return cmd
}

func (f *fakeClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx, "setnx", key, value)
	if _, exists := f.setNX[key]; exists {
		cmd.SetVal(false)
		return cmd
	}
	f.setNX[key] = true
	cmd.SetVal(true)
	return cmd
}

func (f *fakeClient) Del(ctx context.Context, keys ...string) *redis.IntCmd {
	cmd := redis.NewIntCmd(ctx, "del")
	var n int64
	for _, k := range keys {
		if _, ok := f.setNX[k]; ok {
			delete(f.setNX, k)
			n++
		}
		if _, ok := f.values[k]; ok {
			delete(f.values, k)
			n++
		}
	}
	cmd.SetVal(n)
	return cmd
}

// erroringSetNXClient wraps a fakeClient but always fails SetNX, to
// exercise Dedup's fail-open behavior.
type erroringSetNXClient struct {
	*fakeClient
}

func (e *erroringSetNXClient) SetNX(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.BoolCmd {
	cmd := redis.NewBoolCmd(ctx, "setnx", key, value)
	cmd.SetErr(redis.ErrClosed)
	return cmd
}

func TestPriceCacheSetThenGetRoundTrips(t *testing.T) {
	fc := newFakeClient()
	c := &PriceCache{client: fc}

	if err := c.Set(context.Background(), "mint-1", 0.00042); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	price, ok := c.Get(context.Background(), "mint-1")
	if !ok {
		t.Fatal("expected cache hit")
	}
	if price != 0.00042 {
		t.Fatalf("expected 0.00042, got %v", price)
	}
}

func TestPriceCacheGetMissReturnsFalse(t *testing.T) {
	fc := newFakeClient()
	c := &PriceCache{client: fc}

	_, ok := c.Get(context.Background(), "unknown-mint")
	if ok {
		t.Fatal("expected cache miss")
	}
}
