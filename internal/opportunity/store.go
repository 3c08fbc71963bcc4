package opportunity

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/solsniper/sniperd/pkg/logging"
)

// Opportunity statuses, mirrored from spec.md §3.
const (
	StatusNew       = "NEW"
	StatusQualified = "QUALIFIED"
	StatusRejected  = "REJECTED"
	StatusExecuting = "EXECUTING"
	StatusExpired   = "EXPIRED"
)

// Store is the opportunities and strategies persistence boundary this
// package needs. pgx/v5's stdlib driver encodes Go string/float64
// slices directly as Postgres text[]/uuid[] array parameters, so no
// separate array-wrapper type is needed the way lib/pq requires.
type Store struct {
	db  *sql.DB
	log *logging.Logger
}

// New constructs an opportunity Store.
func New(db *sql.DB) *Store {
	return &Store{db: db, log: logging.GetDefault().Component("opportunity")}
}

// ListEnabledAutoStrategies loads every enabled strategy on chain,
// for the matcher to filter against.
func (s *Store) ListEnabledAutoStrategies(ctx context.Context, chain string) ([]StrategyFilter, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, user_id, chain, min_score, allowed_sources, min_initial_liquidity,
		       denylisted_tokens, denylisted_deployers, max_sol_per_trade, slippage_bps
		FROM strategies
		WHERE enabled AND chain = $1`, chain)
	if err != nil {
		return nil, fmt.Errorf("list enabled strategies: %w", err)
	}
	defer rows.Close()

	var strategies []StrategyFilter
	for rows.Next() {
		var f StrategyFilter
		if err := rows.Scan(
			&f.ID, &f.UserID, &f.Chain, &f.MinScore, &f.AllowedSources, &f.MinInitialLiquidity,
			&f.DenylistedTokens, &f.DenylistedDeployers, &f.MaxSOLPerTrade, &f.SlippageBps,
		); err != nil {
			return nil, fmt.Errorf("scan strategy: %w", err)
		}
		strategies = append(strategies, f)
	}
	return strategies, rows.Err()
}

// Insert creates a new opportunity row and returns its id.
func (s *Store) Insert(ctx context.Context, candidate Candidate, result ScoreResult, matchedStrategyIDs []string, status string) (string, error) {
	var id string
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO opportunities (mint, source, chain, score, reasons, matched_strategy_ids, status)
		VALUES ($1,$2,$3,$4,$5,$6::uuid[],$7)
		RETURNING id`,
		candidate.Mint, candidate.Source, candidate.Chain, result.Score, result.Reasons, matchedStrategyIDs, status,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("insert opportunity: %w", err)
	}
	return id, nil
}
