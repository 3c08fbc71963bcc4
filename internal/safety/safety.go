// Package safety reads the global and per-user safety_controls rows.
// Every read is fail-closed: on any error the most restrictive
// Decision is returned, per spec.md §4.C ("this is a hard contract;
// every caller of a safety read is expected to treat errors this
// way").
package safety

import (
	"context"
	"database/sql"
	"time"

	"github.com/solsniper/sniperd/pkg/logging"
)

// ScopeGlobal is the fixed scope key for the platform-wide row.
const ScopeGlobal = "GLOBAL"

// Decision is the outcome of a safety check for one (mode, user) pair.
type Decision struct {
	TradingPaused         bool
	AutoExecuteEnabled    bool
	ManualTradingEnabled  bool
	CircuitOpen           bool
}

// restrictive is returned whenever a read fails or a row is missing.
func restrictive() Decision {
	return Decision{
		TradingPaused:        true,
		AutoExecuteEnabled:   false,
		ManualTradingEnabled: false,
		CircuitOpen:          true,
	}
}

// Store reads safety_controls and also writes it: RecordFailure and
// RecordSuccess maintain the failure counter and circuit breaker, and
// SetPause sets the pause flag.
type Store struct {
	db  *sql.DB
	log *logging.Logger
}

// New constructs a safety Store.
func New(db *sql.DB) *Store {
	return &Store{db: db, log: logging.GetDefault().Component("safety")}
}

// Check evaluates whether a trade may proceed for the given user and
// mode, combining the GLOBAL row with the user-scoped row if present.
func (s *Store) Check(ctx context.Context, userID, mode string) Decision {
	global, err := s.read(ctx, ScopeGlobal)
	if err != nil {
		s.log.Error("safety read failed, failing closed", "scope", ScopeGlobal, "err", err)
		return restrictive()
	}
	if global == nil {
		s.log.Error("safety row missing, failing closed", "scope", ScopeGlobal)
		return restrictive()
	}

	d := Decision{
		TradingPaused:        global.tradingPaused,
		AutoExecuteEnabled:   global.autoExecuteEnabled,
		ManualTradingEnabled: global.manualTradingEnabled,
		CircuitOpen:          global.circuitOpenUntil.Valid && global.circuitOpenUntil.Time.After(time.Now()),
	}

	user, err := s.read(ctx, userID)
	if err != nil {
		s.log.Error("safety read failed, failing closed", "scope", userID, "err", err)
		return restrictive()
	}
	if user != nil {
		d.TradingPaused = d.TradingPaused || user.tradingPaused
		d.AutoExecuteEnabled = d.AutoExecuteEnabled && user.autoExecuteEnabled
		d.ManualTradingEnabled = d.ManualTradingEnabled && user.manualTradingEnabled
		d.CircuitOpen = d.CircuitOpen || (user.circuitOpenUntil.Valid && user.circuitOpenUntil.Time.After(time.Now()))
	}
	return d
}

// Allows is the single predicate the executor consults before
// attempting reserve_trade_budget; reserve_trade_budget re-checks the
// same state transactionally, this call only short-circuits early.
func (d Decision) Allows(mode string) bool {
	if d.TradingPaused || d.CircuitOpen {
		return false
	}
	if mode == "AUTO" {
		return d.AutoExecuteEnabled
	}
	return d.ManualTradingEnabled
}

type row struct {
	tradingPaused        bool
	autoExecuteEnabled   bool
	manualTradingEnabled bool
	consecutiveFailures  int
	circuitThreshold     int
	circuitOpenUntil     sql.NullTime
}

func (s *Store) read(ctx context.Context, scope string) (*row, error) {
	var r row
	err := s.db.QueryRowContext(ctx, `
		SELECT trading_paused, auto_execute_enabled, manual_trading_enabled,
		       consecutive_failures, circuit_breaker_threshold, circuit_open_until
		FROM safety_controls WHERE scope = $1`, scope,
	).Scan(&r.tradingPaused, &r.autoExecuteEnabled, &r.manualTradingEnabled,
		&r.consecutiveFailures, &r.circuitThreshold, &r.circuitOpenUntil)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// RecordFailure increments the consecutive-failure counter for scope
// and opens the circuit breaker once the threshold is reached, per
// spec.md §4.C ("consecutive_failures increments on executor FAILED
// with retryable=false ... at threshold it sets circuit_open_until").
func (s *Store) RecordFailure(ctx context.Context, scope string, cooldown time.Duration) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE safety_controls SET
			consecutive_failures = consecutive_failures + 1,
			circuit_open_until = CASE
				WHEN consecutive_failures + 1 >= circuit_breaker_threshold
				THEN now() + ($2 * interval '1 second')
				ELSE circuit_open_until
			END,
			updated_at = now()
		WHERE scope = $1`, scope, cooldown.Seconds())
	return err
}

// RecordSuccess resets the consecutive-failure counter on a CONFIRMED
// execution, per spec.md §4.C ("CONFIRMED resets the counter").
func (s *Store) RecordSuccess(ctx context.Context, scope string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE safety_controls SET
			consecutive_failures = 0, circuit_open_until = NULL, updated_at = now()
		WHERE scope = $1`, scope)
	return err
}

// SetPause flips trading_paused for scope, the write side of the
// operator/admin kill switch. Upserts so pausing a user scope that has
// no row yet still takes effect.
func (s *Store) SetPause(ctx context.Context, scope string, paused bool) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO safety_controls (scope, trading_paused)
		VALUES ($1, $2)
		ON CONFLICT (scope) DO UPDATE SET trading_paused = $2, updated_at = now()`,
		scope, paused)
	return err
}
