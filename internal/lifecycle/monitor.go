// Package lifecycle implements the graduation monitor of spec.md §4.J:
// it watches pre-graduation positions' bonding-curve accounts and,
// once a curve reports complete=true, rewires the position onto AMM
// pricing by calling graduate_position_atomically exactly once.
package lifecycle

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/solsniper/sniperd/internal/position"
	"github.com/solsniper/sniperd/internal/router"
	"github.com/solsniper/sniperd/pkg/logging"
)

// PositionLister is the subset of position.Store the monitor needs to
// find positions still pricing off a bonding curve.
type PositionLister interface {
	ListPreGraduation(ctx context.Context) ([]position.Position, error)
	GraduateAtomically(ctx context.Context, positionID, poolAddress string) (bool, error)
}

// PoolResolver finds the post-graduation AMM pool for a mint, once its
// bonding curve has completed. Implemented against DEX Screener here;
// any provider that maps mint -> pool address would satisfy this.
type PoolResolver interface {
	ResolvePool(ctx context.Context, mint string) (string, error)
}

// Monitor is the §4.J graduation poller, shaped like
// internal/position.Monitor and, before it, the teacher's
// retry_worker.go ticker/select loop.
type Monitor struct {
	positions PositionLister
	accounts  router.AccountFetcher
	pools     PoolResolver
	log       *logging.Logger

	interval time.Duration
	stop     chan struct{}
	done     chan struct{}
}

// NewMonitor constructs the graduation monitor.
func NewMonitor(positions PositionLister, accounts router.AccountFetcher, pools PoolResolver, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	return &Monitor{
		positions: positions,
		accounts:  accounts,
		pools:     pools,
		log:       logging.GetDefault().Component("lifecycle"),
		interval:  interval,
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Start runs the poll loop until the context is canceled or Stop is called.
func (m *Monitor) Start(ctx context.Context) {
	go m.run(ctx)
}

// Stop signals the loop to exit and blocks until it has.
func (m *Monitor) Stop() {
	close(m.stop)
	<-m.done
}

func (m *Monitor) run(ctx context.Context) {
	defer close(m.done)
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-m.stop:
			return
		case <-ticker.C:
			if err := m.sweep(ctx); err != nil {
				m.log.Error("lifecycle sweep failed", "err", err)
			}
		}
	}
}

func (m *Monitor) sweep(ctx context.Context) error {
	positions, err := m.positions.ListPreGraduation(ctx)
	if err != nil {
		return fmt.Errorf("list pre-graduation positions: %w", err)
	}
	for _, p := range positions {
		if err := m.checkOne(ctx, p); err != nil {
			m.log.Error("check graduation failed", "position_id", p.ID, "err", err)
		}
	}
	return nil
}

func (m *Monitor) checkOne(ctx context.Context, p position.Position) error {
	if !p.PoolAddress.Valid {
		return nil
	}
	curve, err := solana.PublicKeyFromBase58(p.PoolAddress.String)
	if err != nil {
		return fmt.Errorf("decode pool_address: %w", err)
	}

	info, err := m.accounts.GetAccountInfo(ctx, curve)
	if err != nil {
		return fmt.Errorf("fetch curve account: %w", err)
	}
	if info == nil || info.Value == nil {
		return fmt.Errorf("curve account %s not found", curve)
	}
	state, err := router.DecodeCurveState(info.Value.Data.GetBinary())
	if err != nil {
		return fmt.Errorf("decode curve state: %w", err)
	}
	if !state.Complete {
		return nil
	}

	poolAddress, err := m.pools.ResolvePool(ctx, p.TokenMint)
	if err != nil {
		return fmt.Errorf("resolve AMM pool for %s: %w", p.TokenMint, err)
	}

	graduated, err := m.positions.GraduateAtomically(ctx, p.ID, poolAddress)
	if err != nil {
		return fmt.Errorf("graduate_position_atomically: %w", err)
	}
	if graduated {
		m.log.Info("position graduated to AMM pricing", "position_id", p.ID,
			"mint", p.TokenMint, "pool_address", poolAddress)
	}
	return nil
}
