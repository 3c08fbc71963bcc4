package telegram

import (
	"sync"
	"time"
)

// dedup suppresses repeated signals for the same mint within a fixed
// window. This is a noise filter only; merge_launch_candidate in
// internal/discovery is the authoritative dedup (spec.md §4.E).
type dedup struct {
	mu     sync.Mutex
	window time.Duration
	seen   map[string]time.Time
}

func newDedup(window time.Duration) *dedup {
	return &dedup{window: window, seen: make(map[string]time.Time)}
}

// Allow reports whether mint has not been seen within the window, and
// records the current time for it either way.
func (d *dedup) Allow(mint string, now time.Time) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if last, ok := d.seen[mint]; ok && now.Sub(last) < d.window {
		return false
	}
	d.seen[mint] = now
	d.prune(now)
	return true
}

// prune drops entries older than the window so the map doesn't grow
// unbounded across a long-running process. Caller holds d.mu.
func (d *dedup) prune(now time.Time) {
	for mint, last := range d.seen {
		if now.Sub(last) >= d.window {
			delete(d.seen, mint)
		}
	}
}
