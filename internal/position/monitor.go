package position

import (
	"context"
	"fmt"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/solsniper/sniperd/internal/queue"
	"github.com/solsniper/sniperd/pkg/idgen"
	"github.com/solsniper/sniperd/pkg/logging"
)

// Event reports an exit trigger firing, mirroring executor.Event's
// shape for the admin WebSocket feed.
type Event struct {
	PositionID  string
	UserID      string
	Trigger     string
	SellPercent float64
	Price       float64
}

// EventHandler is called for every fired exit trigger.
type EventHandler func(Event)

// Monitor runs the poller sub-loop spec.md §4.I describes: every
// interval, scan MONITORING positions, price them, evaluate exit
// triggers in order, and enqueue a SELL job for the first one that
// fires. Shaped like the teacher's retry_worker.go ticker/select loop.
type Monitor struct {
	store   *Store
	pricing *Chain
	jobs    *queue.Store
	log     *logging.Logger

	interval time.Duration
	stop     chan struct{}
	done     chan struct{}

	eventHandlers []EventHandler
}

// NewMonitor constructs the position poller.
func NewMonitor(store *Store, pricing *Chain, jobs *queue.Store, interval time.Duration) *Monitor {
	if interval <= 0 {
		interval = 3 * time.Second
	}
	return &Monitor{
		store:    store,
		pricing:  pricing,
		jobs:     jobs,
		log:      logging.GetDefault().Component("position.monitor"),
		interval: interval,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// OnEvent registers a handler invoked for every fired exit trigger.
func (m *Monitor) OnEvent(handler EventHandler) {
	m.eventHandlers = append(m.eventHandlers, handler)
}

func (m *Monitor) emit(ev Event) {
	for _, h := range m.eventHandlers {
		h(ev)
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
				m.log.Error("position sweep failed", "err", err)
			}
		}
	}
}

func (m *Monitor) sweep(ctx context.Context) error {
	positions, err := m.store.ListMonitoring(ctx)
	if err != nil {
		return fmt.Errorf("list monitoring positions: %w", err)
	}
	for _, p := range positions {
		if err := m.evaluateOne(ctx, p); err != nil {
			m.log.Error("evaluate position failed", "position_id", p.ID, "err", err)
		}
	}
	return nil
}

func (m *Monitor) evaluateOne(ctx context.Context, p Position) error {
	bondingCurve, err := bondingCurveFromPosition(p)
	if err != nil {
		return fmt.Errorf("resolve bonding curve for position %s: %w", p.ID, err)
	}
	price, source, err := m.pricing.GetPrice(ctx, p.TokenMint, PriceSource(p.PricingSource), bondingCurve)
	if err != nil {
		return fmt.Errorf("price position %s: %w", p.ID, err)
	}

	if err := m.store.UpdatePrice(ctx, p.ID, price); err != nil {
		return fmt.Errorf("update price: %w", err)
	}
	peak := p.PeakPrice
	if price > peak {
		peak = price
	}

	exitCfg, err := m.store.GetStrategyExit(ctx, p.StrategyID)
	if err != nil {
		return fmt.Errorf("load strategy exit config: %w", err)
	}

	result := Evaluate(exitCfg, p.EntryPrice, price, peak, p.OpenedAt, time.Now())
	if !result.Fired {
		return nil
	}

	armed, err := m.store.ArmTrigger(ctx, p.ID)
	if err != nil {
		return fmt.Errorf("arm trigger: %w", err)
	}
	if !armed {
		// a concurrent sweep already armed this position's exit.
		return nil
	}

	key := idgen.ExitSell(p.Chain, p.ID, result.Trigger, result.SellPercent)
	payload := queue.Payload{
		Mint:        p.TokenMint,
		SlippageBps: 100,
		PositionID:  p.ID,
		Trigger:     result.Trigger,
		SellPercent: result.SellPercent,
	}
	strategyID := ""
	if p.StrategyID.Valid {
		strategyID = p.StrategyID.String
	}
	if err := m.jobs.Enqueue(ctx, p.Chain, queue.ActionSell, p.UserID, strategyID, "",
		key, queue.PriorityExit, 5, payload); err != nil {
		return fmt.Errorf("enqueue exit job: %w", err)
	}

	m.log.Info("exit trigger fired", "position_id", p.ID, "trigger", result.Trigger,
		"sell_percent", result.SellPercent, "price_source", source)
	m.emit(Event{
		PositionID:  p.ID,
		UserID:      p.UserID,
		Trigger:     result.Trigger,
		SellPercent: result.SellPercent,
		Price:       price,
	})
	return nil
}

// bondingCurveFromPosition resolves the on-chain curve account for
// positions still pricing pre-graduation, so the bonding-curve
// fallback fetcher has something to read.
func bondingCurveFromPosition(p Position) (*solana.PublicKey, error) {
	if p.LifecycleState != LifecyclePreGraduation || !p.PoolAddress.Valid {
		return nil, nil
	}
	curve, err := solana.PublicKeyFromBase58(p.PoolAddress.String)
	if err != nil {
		return nil, fmt.Errorf("decode pool_address: %w", err)
	}
	return &curve, nil
}
