// Package discovery holds the shared launch_candidate persistence
// boundary consumed by both producer sub-packages (telegram, onchain),
// wrapping the merge_launch_candidate stored procedure the same way
// internal/ledger wraps reserve_trade_budget: parameterized queries,
// explicit scanning, no ORM.
package discovery

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/solsniper/sniperd/pkg/logging"
)

// Discovery methods, mirrored from spec.md §3 launch_candidate.
const (
	MethodTelegram = "telegram"
	MethodOnchain  = "onchain"
)

// launch_candidate status values, mirrored from spec.md §3. Only the
// scorer (internal/opportunity, spec.md §4.F) advances status past
// StatusNew.
const (
	StatusNew      = "new"
	StatusScored   = "scored"
	StatusRejected = "rejected"
	StatusPromoted = "promoted"
)

// Candidate is a normalized signal from either discovery source,
// ready for the merge-upsert into launch_candidates.
type Candidate struct {
	Mint            string
	Source          string
	Chain           string
	DiscoveryMethod string
	RawPayload      map[string]any
}

// MergeResult reports what merge_launch_candidate actually did, so
// callers can decide whether to hand the candidate to the scorer.
type MergeResult struct {
	IsNew           bool
	DiscoveryMethod string
}

// LaunchCandidate is one row of launch_candidates, read back out for
// the scoring engine (internal/opportunity) to consume.
type LaunchCandidate struct {
	Mint            string
	Source          string
	Chain           string
	DiscoveryMethod string
	RawPayload      map[string]any
	FirstSeenAt     time.Time
}

// Store is the launch_candidate persistence boundary.
type Store struct {
	db  *sql.DB
	log *logging.Logger
}

// New constructs a discovery Store over an open database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db, log: logging.GetDefault().Component("discovery")}
}

// Merge upserts a candidate through merge_launch_candidate, the sole
// authoritative dedup point across both discovery sources (spec.md
// §4.E). An in-process TTL dedup sits in front of this call in each
// producer only to cut noisy duplicate work, never as a correctness
// boundary.
func (s *Store) Merge(ctx context.Context, c Candidate) (MergeResult, error) {
	payload, err := json.Marshal(c.RawPayload)
	if err != nil {
		return MergeResult{}, fmt.Errorf("marshal raw payload: %w", err)
	}

	var result MergeResult
	err = s.db.QueryRowContext(ctx, `
		SELECT is_new, discovery_method
		FROM merge_launch_candidate($1, $2, $3, $4, $5)`,
		c.Mint, c.Source, c.Chain, c.DiscoveryMethod, payload,
	).Scan(&result.IsNew, &result.DiscoveryMethod)
	if err != nil {
		return MergeResult{}, fmt.Errorf("merge launch candidate: %w", err)
	}
	return result, nil
}

// ListNew returns up to limit launch_candidates rows still awaiting a
// scoring pass, oldest first, using the partial index on status='new'
// (internal/dbpool/migrations/0001_schema.sql). Called by the
// opportunity engine's poll loop.
func (s *Store) ListNew(ctx context.Context, limit int) ([]LaunchCandidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT mint, source, chain, discovery_method, raw_payload, first_seen_at
		FROM launch_candidates
		WHERE status = $1
		ORDER BY first_seen_at ASC
		LIMIT $2`, StatusNew, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list new launch candidates: %w", err)
	}
	defer rows.Close()

	var out []LaunchCandidate
	for rows.Next() {
		var c LaunchCandidate
		var payload []byte
		if err := rows.Scan(&c.Mint, &c.Source, &c.Chain, &c.DiscoveryMethod, &payload, &c.FirstSeenAt); err != nil {
			return nil, fmt.Errorf("scan launch candidate: %w", err)
		}
		if len(payload) > 0 {
			if err := json.Unmarshal(payload, &c.RawPayload); err != nil {
				return nil, fmt.Errorf("unmarshal raw payload for %s: %w", c.Mint, err)
			}
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate new launch candidates: %w", err)
	}
	return out, nil
}

// Advance moves a launch_candidates row from StatusNew to status,
// guarded by WHERE status = 'new' so a concurrent scorer pass (or a
// producer merge racing in between) never clobbers a decision already
// recorded, per spec.md §3's "status never regresses" rule.
func (s *Store) Advance(ctx context.Context, mint, source, status string) error {
	_, err := s.db.ExecContext(ctx, `
		UPDATE launch_candidates
		SET status = $3, updated_at = now()
		WHERE mint = $1 AND source = $2 AND status = $4`,
		mint, source, status, StatusNew,
	)
	if err != nil {
		return fmt.Errorf("advance launch candidate %s: %w", mint, err)
	}
	return nil
}
