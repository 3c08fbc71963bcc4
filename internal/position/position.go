// Package position implements the position monitor / exit engine of
// spec.md §4.I: a poller that scans active positions, evaluates
// TP/SL/trailing/max-hold triggers, and enqueues exit jobs, modeled
// after yohannesjx-sniperterminal's PredatorPosition (MaxPnL trailing,
// OCO TP/SL fields) and VladislavFirsov-solana-token-lab's per-strategy
// TrailPct/InitialStopPct/MaxHoldDurationMs configuration.
package position

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/solsniper/sniperd/internal/executor"
	"github.com/solsniper/sniperd/internal/external/chat"
	"github.com/solsniper/sniperd/internal/router"
	"github.com/solsniper/sniperd/pkg/idgen"
	"github.com/solsniper/sniperd/pkg/logging"
)

// Lifecycle, trigger, and status constants mirrored from spec.md §3.
const (
	LifecyclePreGraduation  = "PRE_GRADUATION"
	LifecyclePostGraduation = "POST_GRADUATION"

	TriggerMonitoring = "MONITORING"
	TriggerArmed      = "TRIGGERED"

	StatusActive = "ACTIVE"
	StatusClosed = "CLOSED"

	TriggerTakeProfit = "TAKE_PROFIT"
	TriggerStopLoss   = "STOP_LOSS"
	TriggerTrailing   = "TRAILING_STOP"
	TriggerMaxHold    = "MAX_HOLD"
	TriggerEmergency  = "EMERGENCY"
)

// Position mirrors one row of the positions table.
type Position struct {
	ID              string
	UserID          string
	StrategyID      sql.NullString
	Chain           string
	TokenMint       string
	EntryExecutionID string
	EntryTxSig      string
	EntryCostSOL    float64
	EntryPrice      float64
	SizeTokens      float64
	PeakPrice       float64
	CurrentPrice    float64
	LifecycleState  string
	PricingSource   string
	TriggerState    string
	Status          string
	PoolAddress     sql.NullString
	OpenedAt        time.Time
	ClosedAt        sql.NullTime
}

// Store is the position table's persistence boundary. It implements
// executor.PositionStore so the executor can open and realize
// positions without importing this package's concrete type.
type Store struct {
	db  *sql.DB
	log *logging.Logger
}

// New constructs a position Store.
func New(db *sql.DB) *Store {
	return &Store{db: db, log: logging.GetDefault().Component("position")}
}

// Open inserts a new ACTIVE position after a confirmed buy, per
// spec.md §4.H step 7.
func (s *Store) Open(ctx context.Context, in executor.OpenPositionInput) (string, error) {
	id := idgen.New()
	var strategyID sql.NullString
	if in.StrategyID != "" {
		strategyID = sql.NullString{String: in.StrategyID, Valid: true}
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO positions (
			id, user_id, strategy_id, chain, token_mint, entry_execution_id,
			entry_tx_sig, entry_cost_sol, entry_price, size_tokens,
			peak_price, current_price, lifecycle_state, pricing_source,
			trigger_state, status
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$9,$9,$11,$12,$13,$14)`,
		id, in.UserID, strategyID, in.Chain, in.TokenMint, in.EntryExecutionID,
		in.EntryTxSignature, in.EntryCostSOL, in.EntryPrice, in.SizeTokens,
		string(in.LifecycleState), in.PricingSource, TriggerMonitoring, StatusActive,
	)
	if err != nil {
		return "", fmt.Errorf("open position: %w", err)
	}
	return id, nil
}

// GetFull fetches one position by id with every column; Get and
// GetPosition build their narrower views from it.
func (s *Store) GetFull(ctx context.Context, id string) (*Position, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, user_id, strategy_id, chain, token_mint, entry_execution_id,
		       entry_tx_sig, entry_cost_sol, entry_price, size_tokens,
		       peak_price, current_price, lifecycle_state, pricing_source,
		       trigger_state, status, pool_address, opened_at, closed_at
		FROM positions WHERE id = $1`, id)
	return scanPosition(row)
}

// Get satisfies executor.PositionStore: the executor only needs the
// fields relevant to building and routing a sell intent.
func (s *Store) Get(ctx context.Context, id string) (*executor.PositionSnapshot, error) {
	p, err := s.GetFull(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	snap := &executor.PositionSnapshot{
		ID:             p.ID,
		UserID:         p.UserID,
		TokenMint:      p.TokenMint,
		SizeTokens:     p.SizeTokens,
		EntryPrice:     p.EntryPrice,
		LifecycleState: router.LifecycleState(p.LifecycleState),
	}
	if p.PoolAddress.Valid && p.LifecycleState == LifecyclePreGraduation {
		if curve, err := solana.PublicKeyFromBase58(p.PoolAddress.String); err == nil {
			snap.BondingCurve = &curve
		}
	}
	return snap, nil
}

// GetPosition satisfies chat.Positions: a manual-sell callback only
// needs enough to build and own-check a SELL trade_job.
func (s *Store) GetPosition(ctx context.Context, id string) (*chat.Position, error) {
	p, err := s.GetFull(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, nil
	}
	return &chat.Position{UserID: p.UserID, Chain: p.Chain, TokenMint: p.TokenMint}, nil
}

// RealizeSell decrements or closes a position after a confirmed sell,
// per spec.md §4.H step 7 ("partial sells decrement size; full sells
// close the position").
func (s *Store) RealizeSell(ctx context.Context, id string, sellPercent int, exitPrice, proceedsSOL float64) error {
	if sellPercent >= 100 {
		_, err := s.db.ExecContext(ctx, `
			UPDATE positions SET
				size_tokens = 0, current_price = $2, status = $3, closed_at = now()
			WHERE id = $1`, id, exitPrice, StatusClosed)
		if err != nil {
			return fmt.Errorf("close position: %w", err)
		}
		return nil
	}

	_, err := s.db.ExecContext(ctx, `
		UPDATE positions SET
			size_tokens = size_tokens * (1 - $2::float8 / 100),
			current_price = $3,
			trigger_state = $4
		WHERE id = $1`, id, sellPercent, exitPrice, TriggerMonitoring)
	if err != nil {
		return fmt.Errorf("decrement position: %w", err)
	}
	return nil
}

// ListMonitoring returns every position the poller should evaluate:
// ACTIVE, trigger_state=MONITORING, not yet closed.
func (s *Store) ListMonitoring(ctx context.Context) ([]Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, strategy_id, chain, token_mint, entry_execution_id,
		       entry_tx_sig, entry_cost_sol, entry_price, size_tokens,
		       peak_price, current_price, lifecycle_state, pricing_source,
		       trigger_state, status, pool_address, opened_at, closed_at
		FROM positions
		WHERE status = $1 AND trigger_state = $2 AND lifecycle_state != 'CLOSED'`,
		StatusActive, TriggerMonitoring)
	if err != nil {
		return nil, fmt.Errorf("list monitoring positions: %w", err)
	}
	defer rows.Close()

	var out []Position
	for rows.Next() {
		p, err := scanPositionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// UpdatePrice records a fresh price observation and advances the
// high-water mark, per spec.md §4.I ("peak_price := max(peak_price,
// current_price)").
func (s *Store) UpdatePrice(ctx context.Context, id string, currentPrice float64) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE positions SET
			current_price = $2,
			peak_price = GREATEST(peak_price, $2)
		WHERE id = $1`, id, currentPrice)
	return err
}

// ArmTrigger transitions MONITORING -> TRIGGERED atomically, returning
// false if another caller already armed it. This is the CAS the spec
// requires so concurrent poller sweeps never fire the same position's
// exit twice.
func (s *Store) ArmTrigger(ctx context.Context, id string) (bool, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE positions SET trigger_state = $2
		WHERE id = $1 AND trigger_state = $3`, id, TriggerArmed, TriggerMonitoring)
	if err != nil {
		return false, fmt.Errorf("arm trigger: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

// GraduateAtomically calls graduate_position_atomically, per spec.md
// §4.J. Because the function is conditional, concurrent lifecycle
// monitors are safe: at most one caller observes graduated=true.
func (s *Store) GraduateAtomically(ctx context.Context, positionID, poolAddress string) (bool, error) {
	var graduated bool
	err := s.db.QueryRowContext(ctx,
		`SELECT graduated FROM graduate_position_atomically($1,$2)`, positionID, poolAddress,
	).Scan(&graduated)
	if err != nil {
		return false, fmt.Errorf("graduate_position_atomically: %w", err)
	}
	return graduated, nil
}

// ListPreGraduation returns positions still pricing off the bonding
// curve, for the lifecycle monitor to poll.
func (s *Store) ListPreGraduation(ctx context.Context) ([]Position, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, strategy_id, chain, token_mint, entry_execution_id,
		       entry_tx_sig, entry_cost_sol, entry_price, size_tokens,
		       peak_price, current_price, lifecycle_state, pricing_source,
		       trigger_state, status, pool_address, opened_at, closed_at
		FROM positions WHERE lifecycle_state = $1 AND status = $2`, LifecyclePreGraduation, StatusActive)
	if err != nil {
		return nil, fmt.Errorf("list pre-graduation positions: %w", err)
	}
	defer rows.Close()

	var out []Position
	for rows.Next() {
		p, err := scanPositionRows(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

// defaultStrategyExit mirrors the strategies table's column defaults,
// used for positions opened without a strategy_id (manual trades).
var defaultStrategyExit = StrategyExit{
	TakeProfitPct:         50,
	StopLossPct:           20,
	MaxHoldMinutes:        60,
	TrailingActivationPct: 30,
	TrailingDistancePct:   15,
	MoonBagPct:            0,
}

// GetStrategyExit resolves a position's exit configuration. Positions
// opened without a strategy_id (manual trades) fall back to the
// schema's default exit parameters.
func (s *Store) GetStrategyExit(ctx context.Context, strategyID sql.NullString) (StrategyExit, error) {
	if !strategyID.Valid {
		return defaultStrategyExit, nil
	}
	var se StrategyExit
	err := s.db.QueryRowContext(ctx, `
		SELECT take_profit_pct, stop_loss_pct, trailing_activation_pct,
		       trailing_distance_pct, max_hold_minutes, moon_bag_pct
		FROM strategies WHERE id = $1`, strategyID.String,
	).Scan(&se.TakeProfitPct, &se.StopLossPct, &se.TrailingActivationPct,
		&se.TrailingDistancePct, &se.MaxHoldMinutes, &se.MoonBagPct)
	if err == sql.ErrNoRows {
		return defaultStrategyExit, nil
	}
	if err != nil {
		return StrategyExit{}, fmt.Errorf("get strategy exit config: %w", err)
	}
	return se, nil
}

func scanPosition(row *sql.Row) (*Position, error) {
	var p Position
	err := row.Scan(
		&p.ID, &p.UserID, &p.StrategyID, &p.Chain, &p.TokenMint, &p.EntryExecutionID,
		&p.EntryTxSig, &p.EntryCostSOL, &p.EntryPrice, &p.SizeTokens,
		&p.PeakPrice, &p.CurrentPrice, &p.LifecycleState, &p.PricingSource,
		&p.TriggerState, &p.Status, &p.PoolAddress, &p.OpenedAt, &p.ClosedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan position: %w", err)
	}
	return &p, nil
}

func scanPositionRows(rows *sql.Rows) (*Position, error) {
	var p Position
	err := rows.Scan(
		&p.ID, &p.UserID, &p.StrategyID, &p.Chain, &p.TokenMint, &p.EntryExecutionID,
		&p.EntryTxSig, &p.EntryCostSOL, &p.EntryPrice, &p.SizeTokens,
		&p.PeakPrice, &p.CurrentPrice, &p.LifecycleState, &p.PricingSource,
		&p.TriggerState, &p.Status, &p.PoolAddress, &p.OpenedAt, &p.ClosedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan position: %w", err)
	}
	return &p, nil
}
