package executor

import (
	"context"
	"time"

	"github.com/solsniper/sniperd/internal/config"
	"github.com/solsniper/sniperd/internal/ledger"
	"github.com/solsniper/sniperd/internal/queue"
	"github.com/solsniper/sniperd/internal/router"
	"github.com/solsniper/sniperd/internal/safety"
	"github.com/solsniper/sniperd/pkg/idgen"
	"github.com/solsniper/sniperd/pkg/logging"
)

// Event is emitted after each job attempt for the admin/chat surfaces
// to consume, mirrored from the teacher's swap.SwapEvent.
type Event struct {
	JobID     string
	UserID    string
	Action    string
	Status    string
	ErrorCode string
	Timestamp time.Time
}

// EventHandler is called for every emitted Event.
type EventHandler func(Event)

// Deps bundles every collaborator the executor reserves, routes, and
// records state through. Required fields have no safe zero value.
type Deps struct {
	Queue     *queue.Store
	Ledger    *ledger.Store
	Safety    *safety.Store
	Router    *router.Router
	Wallets   WalletResolver
	Balances  BalanceReader
	Positions PositionStore
	Cooldowns CooldownSetter
	Notifier  Notifier
}

// Config controls the executor's run loop and trade limits.
type Config struct {
	WorkerID         string
	BatchSize        int
	PollInterval     time.Duration
	LeaseTTL         time.Duration
	Fees             config.FeeConfig
	ConfirmTimeouts  config.Timeouts
	Limits           PositionLimits
	PostBuyCooldown  time.Duration
	CircuitCooldown  time.Duration
}

// Executor claims trade_jobs and drives them through the
// reserve -> route -> confirm state machine of spec.md §4.H. One
// struct owns every dependency the worker loop needs, the same shape
// as the teacher's swap.Coordinator over store/wallet/backends.
type Executor struct {
	deps Deps
	cfg  Config
	log  *logging.Logger

	eventHandlers []EventHandler

	ctx    context.Context
	cancel context.CancelFunc
	done   chan struct{}
}

// New constructs an Executor. workerID should be unique per process
// (e.g. hostname-pid), since it identifies the lease owner in
// claim_jobs/heartbeat_job/finalize_job.
func New(deps Deps, cfg Config) *Executor {
	if cfg.WorkerID == "" {
		cfg.WorkerID = idgen.WorkerID("executor")
	}
	if cfg.BatchSize == 0 {
		cfg.BatchSize = 10
	}
	if cfg.CircuitCooldown == 0 {
		cfg.CircuitCooldown = 5 * time.Minute
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Executor{
		deps:   deps,
		cfg:    cfg,
		log:    logging.GetDefault().Component("executor"),
		ctx:    ctx,
		cancel: cancel,
		done:   make(chan struct{}),
	}
}

// OnEvent registers a handler invoked after every job attempt.
func (e *Executor) OnEvent(h EventHandler) {
	e.eventHandlers = append(e.eventHandlers, h)
}

func (e *Executor) emit(ev Event) {
	ev.Timestamp = time.Now()
	for _, h := range e.eventHandlers {
		go h(ev)
	}
}

// Start launches the claim loop in a background goroutine.
func (e *Executor) Start() {
	go e.run()
	e.log.Info("executor started", "worker_id", e.cfg.WorkerID, "poll_interval", e.cfg.PollInterval)
}

// Stop cancels the run loop and waits for it to exit.
func (e *Executor) Stop() {
	e.cancel()
	<-e.done
	e.log.Info("executor stopped", "worker_id", e.cfg.WorkerID)
}

func (e *Executor) run() {
	defer close(e.done)
	ticker := time.NewTicker(e.cfg.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-e.ctx.Done():
			return
		case <-ticker.C:
			e.claimAndProcess()
		}
	}
}

func (e *Executor) claimAndProcess() {
	jobs, err := e.deps.Queue.Claim(e.ctx, e.cfg.WorkerID, e.cfg.BatchSize, e.cfg.LeaseTTL)
	if err != nil {
		e.log.Warn("claim_jobs failed", "err", err)
		return
	}
	for _, job := range jobs {
		select {
		case <-e.ctx.Done():
			return
		default:
		}
		e.processJob(e.ctx, job)
	}
}
