// Package queue implements the lease-based work queue (outbox) that
// producers enqueue trade_jobs into and executor workers claim from,
// modeled on the teacher's internal/node.RetryWorker run-loop shape
// but backed by the claim_jobs/finalize_job stored procedures instead
// of an in-process retry table.
package queue

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/solsniper/sniperd/pkg/idgen"
	"github.com/solsniper/sniperd/pkg/logging"
)

// Job statuses and actions, mirrored from spec.md §3 trade_job.
const (
	StatusQueued   = "QUEUED"
	StatusClaimed  = "CLAIMED"
	StatusDone     = "DONE"
	StatusFailed   = "FAILED"
	StatusCanceled = "CANCELED"

	ActionBuy  = "BUY"
	ActionSell = "SELL"

	// PriorityExit sorts ahead of PriorityBuy so exits execute first,
	// per spec.md §4.D ("exits < buys").
	PriorityExit = 10
	PriorityBuy  = 100
)

// Job is one claimed trade_job row.
type Job struct {
	ID             string
	Chain          string
	Action         string
	StrategyID     sql.NullString
	UserID         string
	OpportunityID  sql.NullString
	IdempotencyKey string
	Payload        json.RawMessage
	Status         string
	Priority       int
	Attempts       int
	MaxAttempts    int
	RunAfter       time.Time
	LeaseOwner     sql.NullString
	LeaseExpiresAt sql.NullTime
	LastError      sql.NullString
	CreatedAt      time.Time
	CompletedAt    sql.NullTime
}

// Payload is the structured body of a trade_job, serialized to JSONB.
type Payload struct {
	Mint          string  `json:"mint"`
	AmountSOL     float64 `json:"amount_sol,omitempty"`
	SlippageBps   int     `json:"slippage_bps"`
	PriorityFee   uint64  `json:"priority_fee_lamports,omitempty"`
	PositionID    string  `json:"position_id,omitempty"`
	Trigger       string  `json:"trigger,omitempty"`
	SellPercent   int     `json:"sell_percent,omitempty"`
	ExternalEvent string  `json:"external_event_id,omitempty"`
}

// Store is the queue's persistence boundary.
type Store struct {
	db  *sql.DB
	log *logging.Logger
}

// New constructs a queue Store.
func New(db *sql.DB) *Store {
	return &Store{db: db, log: logging.GetDefault().Component("queue")}
}

// Enqueue inserts a new trade_job. Per spec.md §4.F ("duplicate-insert
// errors are ignored"), a unique_violation on idempotency_key is
// swallowed and treated as success rather than propagated.
func (s *Store) Enqueue(
	ctx context.Context,
	chain, action, userID, strategyID, opportunityID string,
	key idgen.Key,
	priority int,
	maxAttempts int,
	payload Payload,
) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO trade_jobs (
			chain, action, strategy_id, user_id, opportunity_id,
			idempotency_key, payload, priority, max_attempts
		) VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		ON CONFLICT (idempotency_key) DO NOTHING`,
		chain, action, nullableString(strategyID), userID, nullableString(opportunityID),
		string(key), body, priority, maxAttempts,
	)
	if err != nil {
		return fmt.Errorf("enqueue job: %w", err)
	}
	return nil
}

// Claim calls claim_jobs(worker_id, max_count, lease_ttl) and returns
// every row this worker now leases. No row is ever returned to two
// concurrent callers (enforced by FOR UPDATE SKIP LOCKED).
func (s *Store) Claim(ctx context.Context, workerID string, maxCount int, leaseTTL time.Duration) ([]Job, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chain, action, strategy_id, user_id, opportunity_id, idempotency_key,
		        payload, status, priority, attempts, max_attempts, run_after,
		        lease_owner, lease_expires_at, last_error, created_at, completed_at
		 FROM claim_jobs($1,$2,$3)`,
		workerID, maxCount, int(leaseTTL.Seconds()),
	)
	if err != nil {
		return nil, fmt.Errorf("claim_jobs: %w", err)
	}
	defer rows.Close()

	var jobs []Job
	for rows.Next() {
		var j Job
		if err := rows.Scan(
			&j.ID, &j.Chain, &j.Action, &j.StrategyID, &j.UserID, &j.OpportunityID, &j.IdempotencyKey,
			&j.Payload, &j.Status, &j.Priority, &j.Attempts, &j.MaxAttempts, &j.RunAfter,
			&j.LeaseOwner, &j.LeaseExpiresAt, &j.LastError, &j.CreatedAt, &j.CompletedAt,
		); err != nil {
			return nil, fmt.Errorf("scan claimed job: %w", err)
		}
		jobs = append(jobs, j)
	}
	return jobs, rows.Err()
}

// Heartbeat extends a claimed job's lease; callers should invoke this
// every lease_ttl/3 while processing, per spec.md §4.D.
func (s *Store) Heartbeat(ctx context.Context, jobID, workerID string, leaseTTL time.Duration) (bool, error) {
	var ok bool
	err := s.db.QueryRowContext(ctx,
		`SELECT ok FROM heartbeat_job($1,$2,$3)`, jobID, workerID, int(leaseTTL.Seconds()),
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("heartbeat_job: %w", err)
	}
	return ok, nil
}

// Finalize calls finalize_job and returns the job's resulting status.
func (s *Store) Finalize(ctx context.Context, jobID, workerID, status string, retryable bool, errMsg string) (string, error) {
	var ok bool
	var finalStatus sql.NullString
	err := s.db.QueryRowContext(ctx,
		`SELECT ok, final_status FROM finalize_job($1,$2,$3,$4,$5)`,
		jobID, workerID, status, retryable, nullableString(errMsg),
	).Scan(&ok, &finalStatus)
	if err != nil {
		return "", fmt.Errorf("finalize_job: %w", err)
	}
	if !ok {
		return "", fmt.Errorf("finalize_job: job %s not owned by %s or not CLAIMED", jobID, workerID)
	}
	return finalStatus.String, nil
}

func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
