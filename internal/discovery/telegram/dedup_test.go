package telegram

import (
	"testing"
	"time"
)

func TestDedupAllowsFirstSighting(t *testing.T) {
	d := newDedup(time.Minute)
	if !d.Allow("mintA", time.Now()) {
		t.Fatal("expected first sighting to be allowed")
	}
}

func TestDedupSuppressesWithinWindow(t *testing.T) {
	d := newDedup(time.Minute)
	now := time.Now()
	d.Allow("mintA", now)
	if d.Allow("mintA", now.Add(30*time.Second)) {
		t.Fatal("expected repeat within window to be suppressed")
	}
}

func TestDedupAllowsAfterWindowExpires(t *testing.T) {
	d := newDedup(time.Minute)
	now := time.Now()
	d.Allow("mintA", now)
	if !d.Allow("mintA", now.Add(2*time.Minute)) {
		t.Fatal("expected sighting after window to be allowed")
	}
}
