// Package ledger wraps the execution ledger's stored procedures
// (reserve_trade_budget, update_execution) behind a thin Go API, the
// same way the teacher's internal/storage package wraps hand-written
// SQL for orders and trades: parameterized queries, explicit
// row-scanning, no ORM.
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/solsniper/sniperd/pkg/idgen"
	"github.com/solsniper/sniperd/pkg/logging"
)

// Execution mirrors one immutable row in the executions table.
type Execution struct {
	ID             string
	IdempotencyKey string
	Mode           string
	Action         string
	UserID         string
	StrategyID     sql.NullString
	Chain          string
	TokenMint      string
	AmountSOL      float64
	FeeSOL         float64
	NetAmountSOL   float64
	SlippageBps    int
	TxSignature    sql.NullString
	Status         string
	ErrorCode      sql.NullString
	ErrorMessage   sql.NullString
	CreatedAt      time.Time
	UpdatedAt      time.Time
	CompletedAt    sql.NullTime
}

// Modes and actions, kept as typed string constants to avoid bare
// literals scattered through the executor and router.
const (
	ModeManual = "MANUAL"
	ModeAuto   = "AUTO"

	ActionBuy  = "BUY"
	ActionSell = "SELL"

	StatusReserved  = "RESERVED"
	StatusSubmitted = "SUBMITTED"
	StatusConfirmed = "CONFIRMED"
	StatusFailed    = "FAILED"
)

// ReasonAlreadyExecuted is the sentinel reason reserve_trade_budget
// returns when the idempotency key collided with an existing row; the
// executor treats this as success, not failure (spec.md §7).
const ReasonAlreadyExecuted = "Already executed"

// ReserveResult is the output of reserve_trade_budget.
type ReserveResult struct {
	Allowed     bool
	Reason      string
	ExecutionID string
}

// AlreadyExecuted reports whether this reservation attempt observed a
// prior winner for the same idempotency key.
func (r ReserveResult) AlreadyExecuted() bool {
	return !r.Allowed && r.Reason == ReasonAlreadyExecuted
}

// Store is the ledger's persistence boundary.
type Store struct {
	db  *sql.DB
	log *logging.Logger
}

// New constructs a ledger Store over an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db, log: logging.GetDefault().Component("ledger")}
}

// ReserveTradeBudget calls the reserve_trade_budget stored procedure.
// strategyID may be the empty string for manual trades.
func (s *Store) ReserveTradeBudget(
	ctx context.Context,
	mode, userID, strategyID, chain, action, tokenMint string,
	amountSOL float64,
	key idgen.Key,
) (*ReserveResult, error) {
	var sid sql.NullString
	if strategyID != "" {
		sid = sql.NullString{String: strategyID, Valid: true}
	}

	row := s.db.QueryRowContext(ctx,
		`SELECT allowed, reason, execution_id FROM reserve_trade_budget($1,$2,$3,$4,$5,$6,$7,$8)`,
		mode, userID, sid, chain, action, tokenMint, amountSOL, string(key),
	)

	var res ReserveResult
	var execID sql.NullString
	if err := row.Scan(&res.Allowed, &res.Reason, &execID); err != nil {
		return nil, fmt.Errorf("reserve_trade_budget: %w", err)
	}
	res.ExecutionID = execID.String
	return &res, nil
}

// UpdateExecution calls the update_execution stored procedure. Pass the
// empty string or zero value for fields that should not change.
func (s *Store) UpdateExecution(
	ctx context.Context,
	executionID, status string,
	txSignature string,
	feeSOL, netAmountSOL *float64,
	errorCode, errorMessage string,
) error {
	row := s.db.QueryRowContext(ctx,
		`SELECT ok, reason FROM update_execution($1,$2,$3,$4,$5,$6,$7)`,
		executionID, status,
		nullableString(txSignature), feeSOL, netAmountSOL,
		nullableString(errorCode), nullableString(errorMessage),
	)

	var ok bool
	var reason string
	if err := row.Scan(&ok, &reason); err != nil {
		return fmt.Errorf("update_execution: %w", err)
	}
	if !ok {
		return fmt.Errorf("update_execution rejected: %s", reason)
	}
	return nil
}

// Get fetches one execution by id.
func (s *Store) Get(ctx context.Context, id string) (*Execution, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, idempotency_key, mode, action, user_id, strategy_id, chain,
		       token_mint, amount_sol, fee_sol, net_amount_sol, slippage_bps,
		       tx_signature, status, error_code, error_message,
		       created_at, updated_at, completed_at
		FROM executions WHERE id = $1`, id)
	return scanExecution(row)
}

// GetByIdempotencyKey fetches one execution by its idempotency key.
func (s *Store) GetByIdempotencyKey(ctx context.Context, key idgen.Key) (*Execution, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, idempotency_key, mode, action, user_id, strategy_id, chain,
		       token_mint, amount_sol, fee_sol, net_amount_sol, slippage_bps,
		       tx_signature, status, error_code, error_message,
		       created_at, updated_at, completed_at
		FROM executions WHERE idempotency_key = $1`, string(key))
	return scanExecution(row)
}

func scanExecution(row *sql.Row) (*Execution, error) {
	var e Execution
	err := row.Scan(
		&e.ID, &e.IdempotencyKey, &e.Mode, &e.Action, &e.UserID, &e.StrategyID, &e.Chain,
		&e.TokenMint, &e.AmountSOL, &e.FeeSOL, &e.NetAmountSOL, &e.SlippageBps,
		&e.TxSignature, &e.Status, &e.ErrorCode, &e.ErrorMessage,
		&e.CreatedAt, &e.UpdatedAt, &e.CompletedAt,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan execution: %w", err)
	}
	return &e, nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
