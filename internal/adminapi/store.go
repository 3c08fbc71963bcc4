package adminapi

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/solsniper/sniperd/pkg/logging"
)

// PositionSummary is one row of the admin positions list.
type PositionSummary struct {
	ID             string
	UserID         string
	TokenMint      string
	TokenSymbol    sql.NullString
	EntryCostSOL   float64
	CurrentPrice   float64
	LifecycleState string
	TriggerState   string
	Status         string
}

// ExecutionSummary is one row of the admin executions list.
type ExecutionSummary struct {
	ID         string
	UserID     string
	TokenMint  string
	Action     string
	AmountSOL  float64
	Status     string
	ErrorCode   sql.NullString
	TxSignature sql.NullString
}

// OpportunitySummary is one row of the admin opportunities list.
type OpportunitySummary struct {
	ID     string
	Mint   string
	Source string
	Score  int
	Status string
}

// Store is the read-only query boundary the admin surface needs. It
// intentionally queries the shared tables directly rather than routing
// through internal/position, internal/ledger, internal/opportunity's
// Store types, since those expose only the narrow methods their own
// domain loops need and an admin listing is a different access
// pattern (broad, paginated-by-limit, cross-user) from any of them.
type Store struct {
	db  *sql.DB
	log *logging.Logger
}

// New constructs an admin Store.
func New(db *sql.DB) *Store {
	return &Store{db: db, log: logging.GetDefault().Component("adminapi")}
}

// ListPositions returns the most recently opened positions, optionally
// filtered by status, up to limit rows.
func (s *Store) ListPositions(ctx context.Context, status string, limit int) ([]PositionSummary, error) {
	query := `
		SELECT id, user_id, token_mint, token_symbol, entry_cost_sol, current_price,
		       lifecycle_state, trigger_state, status
		FROM positions`
	args := []interface{}{}
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += fmt.Sprintf(" ORDER BY opened_at DESC LIMIT %d", clampLimit(limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list positions: %w", err)
	}
	defer rows.Close()

	var out []PositionSummary
	for rows.Next() {
		var p PositionSummary
		if err := rows.Scan(&p.ID, &p.UserID, &p.TokenMint, &p.TokenSymbol, &p.EntryCostSOL,
			&p.CurrentPrice, &p.LifecycleState, &p.TriggerState, &p.Status); err != nil {
			return nil, fmt.Errorf("scan position: %w", err)
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// ListExecutions returns the most recent executions, optionally
// filtered by status, up to limit rows.
func (s *Store) ListExecutions(ctx context.Context, status string, limit int) ([]ExecutionSummary, error) {
	query := `
		SELECT id, user_id, token_mint, action, amount_sol, status, error_code, tx_signature
		FROM executions`
	args := []interface{}{}
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += fmt.Sprintf(" ORDER BY created_at DESC LIMIT %d", clampLimit(limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list executions: %w", err)
	}
	defer rows.Close()

	var out []ExecutionSummary
	for rows.Next() {
		var e ExecutionSummary
		if err := rows.Scan(&e.ID, &e.UserID, &e.TokenMint, &e.Action, &e.AmountSOL,
			&e.Status, &e.ErrorCode, &e.TxSignature); err != nil {
			return nil, fmt.Errorf("scan execution: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListOpportunities returns the most recently detected opportunities,
// optionally filtered by status, up to limit rows.
func (s *Store) ListOpportunities(ctx context.Context, status string, limit int) ([]OpportunitySummary, error) {
	query := `SELECT id, mint, source, score, status FROM opportunities`
	args := []interface{}{}
	if status != "" {
		query += " WHERE status = $1"
		args = append(args, status)
	}
	query += fmt.Sprintf(" ORDER BY detected_at DESC LIMIT %d", clampLimit(limit))

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list opportunities: %w", err)
	}
	defer rows.Close()

	var out []OpportunitySummary
	for rows.Next() {
		var o OpportunitySummary
		if err := rows.Scan(&o.ID, &o.Mint, &o.Source, &o.Score, &o.Status); err != nil {
			return nil, fmt.Errorf("scan opportunity: %w", err)
		}
		out = append(out, o)
	}
	return out, rows.Err()
}

func clampLimit(limit int) int {
	if limit <= 0 || limit > 200 {
		return 50
	}
	return limit
}
