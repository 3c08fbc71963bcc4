// Package maintenance runs the periodic database sweep of spec.md §5:
// expiring stale opportunities, failing abandoned executions, and
// purging old notifications and cooldowns. None of this touches
// trade_job leases directly -- stale-lease recovery for trade_jobs
// happens inline in claim_jobs (internal/queue) per spec.md's own
// distinction between the two recovery paths.
package maintenance

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/solsniper/sniperd/pkg/logging"
)

const (
	// opportunityExpiry matches the opportunity invariant in spec.md §3:
	// "an opportunity expires 60s after detection if never promoted".
	opportunityExpiry = 60 * time.Second

	// abandonedExecutionGrace is the grace window after which a
	// RESERVED/SUBMITTED execution that never confirmed is treated as
	// abandoned, per spec.md §4.I's state machine note.
	abandonedExecutionGrace = 5 * time.Minute

	// notificationRetention is how long a delivered notification is
	// kept before it is purged.
	notificationRetention = 24 * time.Hour

	abandonedErrorCode = "ABANDONED"
)

// Sweeper runs the §5 maintenance loop on a fixed interval, shaped like
// internal/lifecycle.Monitor's ticker/select run loop.
type Sweeper struct {
	db  *sql.DB
	log *logging.Logger

	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewSweeper constructs the maintenance sweeper. interval defaults to
// 60s, matching spec.md §5's "every 60 s" cadence.
func NewSweeper(db *sql.DB, interval time.Duration) *Sweeper {
	if interval <= 0 {
		interval = 60 * time.Second
	}
	return &Sweeper{
		db:       db,
		log:      logging.GetDefault().Component("maintenance"),
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start runs the sweep loop until the context is canceled or Stop is called.
func (s *Sweeper) Start(ctx context.Context) {
	go s.run(ctx)
}

// Stop signals the loop to exit and blocks until it has.
func (s *Sweeper) Stop() {
	close(s.stop)
	<-s.done
}

func (s *Sweeper) run(ctx context.Context) {
	defer close(s.done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-s.stop:
			return
		case <-ticker.C:
			s.Sweep(ctx)
		}
	}
}

// Sweep runs all four maintenance passes once, logging but not
// propagating individual pass failures so one failing pass never blocks
// the others.
func (s *Sweeper) Sweep(ctx context.Context) {
	if n, err := s.expireStaleOpportunities(ctx); err != nil {
		s.log.Error("expire stale opportunities", "err", err)
	} else if n > 0 {
		s.log.Info("expired stale opportunities", "count", n)
	}

	if n, err := s.failAbandonedExecutions(ctx); err != nil {
		s.log.Error("fail abandoned executions", "err", err)
	} else if n > 0 {
		s.log.Info("failed abandoned executions", "count", n)
	}

	if n, err := s.purgeDeliveredNotifications(ctx); err != nil {
		s.log.Error("purge delivered notifications", "err", err)
	} else if n > 0 {
		s.log.Info("purged delivered notifications", "count", n)
	}

	if n, err := s.deletePastDueCooldowns(ctx); err != nil {
		s.log.Error("delete past-due cooldowns", "err", err)
	} else if n > 0 {
		s.log.Info("deleted past-due cooldowns", "count", n)
	}
}

func (s *Sweeper) expireStaleOpportunities(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE opportunities
		SET status = 'EXPIRED', updated_at = now()
		WHERE status = 'NEW' AND detected_at < now() - $1::interval`,
		opportunityExpiry.String())
	if err != nil {
		return 0, fmt.Errorf("expire opportunities: %w", err)
	}
	return res.RowsAffected()
}

func (s *Sweeper) failAbandonedExecutions(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		UPDATE executions
		SET status = 'FAILED', error_code = $1,
		    error_message = 'execution abandoned: no confirmation within grace window',
		    updated_at = now(), completed_at = now()
		WHERE status IN ('RESERVED', 'SUBMITTED')
		  AND updated_at < now() - $2::interval`,
		abandonedErrorCode, abandonedExecutionGrace.String())
	if err != nil {
		return 0, fmt.Errorf("fail abandoned executions: %w", err)
	}
	return res.RowsAffected()
}

func (s *Sweeper) purgeDeliveredNotifications(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM notifications
		WHERE delivered_at IS NOT NULL AND delivered_at < now() - $1::interval`,
		notificationRetention.String())
	if err != nil {
		return 0, fmt.Errorf("purge notifications: %w", err)
	}
	return res.RowsAffected()
}

func (s *Sweeper) deletePastDueCooldowns(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM cooldowns WHERE until < now()`)
	if err != nil {
		return 0, fmt.Errorf("delete cooldowns: %w", err)
	}
	return res.RowsAffected()
}
