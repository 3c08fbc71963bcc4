// Package idgen derives content-addressed idempotency keys and
// generates opaque identifiers for new rows.
package idgen

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// Key is a fixed-width hex-encoded SHA-256 idempotency key.
type Key string

const sep = "|"

func hash(parts ...string) Key {
	h := sha256.New()
	h.Write([]byte(strings.Join(parts, sep)))
	return Key(hex.EncodeToString(h.Sum(nil)))
}

// ManualBuy derives the idempotency key for a user-initiated buy.
// H("MB" | chain | user_id | mint | slippage_bps | amount_sol | external_event_id)
func ManualBuy(chain, userID, mint string, slippageBps int, amountSOL float64, externalEventID string) Key {
	return hash("MB", chain, userID, mint, strconv.Itoa(slippageBps), formatSOL(amountSOL), externalEventID)
}

// AutoBuy derives the idempotency key for a strategy-matched buy.
// H("AB" | chain | strategy_id | opportunity_id | mint | amount_sol | slippage_bps)
func AutoBuy(chain, strategyID, opportunityID, mint string, amountSOL float64, slippageBps int) Key {
	return hash("AB", chain, strategyID, opportunityID, mint, formatSOL(amountSOL), strconv.Itoa(slippageBps))
}

// ExitSell derives the idempotency key for a trigger-driven sell.
// H("XS" | chain | position_id | trigger | sell_percent)
func ExitSell(chain, positionID, trigger string, sellPercent int) Key {
	return hash("XS", chain, positionID, trigger, strconv.Itoa(sellPercent))
}

// ManualSell derives the idempotency key for a user-initiated sell.
// H("MS" | chain | user_id | position_id | external_event_id)
func ManualSell(chain, userID, positionID, externalEventID string) Key {
	return hash("MS", chain, userID, positionID, externalEventID)
}

// formatSOL pins the decimal representation used in key derivation so the
// same intent always hashes identically regardless of caller formatting.
func formatSOL(amount float64) string {
	return strconv.FormatFloat(amount, 'f', 9, 64)
}

// New returns a new opaque identifier for a row that does not derive its
// identity from an idempotency key (e.g. positions, opportunities).
func New() string {
	return uuid.New().String()
}

// WorkerID returns a process-unique worker identifier for lease ownership.
func WorkerID(prefix string) string {
	return prefix + "-" + uuid.New().String()[:8]
}
