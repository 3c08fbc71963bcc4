package opportunity

import (
	"context"
	"time"

	"github.com/solsniper/sniperd/internal/discovery"
	"github.com/solsniper/sniperd/pkg/logging"
)

// CandidateSource lists launch_candidates awaiting a scoring pass and
// advances one past NEW once Process has run, satisfied by
// *discovery.Store. internal/opportunity sits above internal/discovery
// in the E->F pipeline, so depending on it directly here (rather than
// redeclaring its row shape) is the natural layering.
type CandidateSource interface {
	ListNew(ctx context.Context, limit int) ([]discovery.LaunchCandidate, error)
	Advance(ctx context.Context, mint, source, status string) error
}

// SignalSource resolves the per-category evidence Score needs for one
// candidate. The real analysis this implies (on-chain holder
// distribution, honeypot simulation, deployer reputation lookups) is
// out of scope for this repo, per Signals' own doc comment -- that
// analysis is a dedicated external pipeline. DefaultSignalSource below
// is the conservative placeholder wired in its absence.
type SignalSource interface {
	Signals(ctx context.Context, candidate Candidate) (Signals, error)
}

// DefaultSignalSource treats every candidate as missing sellability
// evidence, the scorer's hardest of its hard-stop conditions (see
// scorer.go's ReasonHardStopMissingSellability). Until a real analyzer
// is wired in its place, this guarantees the engine always rejects
// rather than ever auto-buying on fabricated evidence.
type DefaultSignalSource struct{}

// Signals always reports missing sellability evidence.
func (DefaultSignalSource) Signals(ctx context.Context, candidate Candidate) (Signals, error) {
	return Signals{SellabilityEvidenceMissing: true}, nil
}

// candidateFromRow converts a launch_candidates row into the matcher's
// Candidate shape. Only the on-chain source currently carries a
// deployer hint ("creator" in RawPayload); everything else defaults
// to its zero value until a discovery source populates it.
func candidateFromRow(row discovery.LaunchCandidate) Candidate {
	c := Candidate{
		Mint:   row.Mint,
		Source: row.Source,
		Chain:  row.Chain,
	}
	if creator, ok := row.RawPayload["creator"].(string); ok {
		c.Deployer = creator
	}
	return c
}

// Event reports one candidate finishing a scoring pass, mirroring
// executor.Event's shape for the admin WebSocket feed.
type Event struct {
	OpportunityID string
	Mint          string
	Score         int
	HardStop      bool
}

// EventHandler is called for every scored candidate.
type EventHandler func(Event)

// Loop polls launch_candidates for rows still at status NEW, scores
// and matches each through Engine.Process, and advances the row to
// SCORED or REJECTED so it is never reprocessed. Shaped like
// internal/position.Monitor's ticker/select/stop/done loop.
type Loop struct {
	candidates CandidateSource
	signals    SignalSource
	engine     *Engine
	batchSize  int
	log        *logging.Logger

	interval time.Duration
	stop     chan struct{}
	done     chan struct{}

	eventHandlers []EventHandler
}

// OnEvent registers a handler invoked for every scored candidate.
func (l *Loop) OnEvent(handler EventHandler) {
	l.eventHandlers = append(l.eventHandlers, handler)
}

func (l *Loop) emit(ev Event) {
	for _, h := range l.eventHandlers {
		h(ev)
	}
}

// NewLoop constructs the poll loop. signals may be nil, in which case
// DefaultSignalSource is used.
func NewLoop(candidates CandidateSource, signals SignalSource, engine *Engine, interval time.Duration, batchSize int) *Loop {
	if interval <= 0 {
		interval = 2 * time.Second
	}
	if batchSize <= 0 {
		batchSize = 20
	}
	if signals == nil {
		signals = DefaultSignalSource{}
	}
	return &Loop{
		candidates: candidates,
		signals:    signals,
		engine:     engine,
		batchSize:  batchSize,
		log:        logging.GetDefault().Component("opportunity.loop"),
		interval:   interval,
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// Start runs the poll loop until the context is canceled or Stop is called.
func (l *Loop) Start(ctx context.Context) {
	go l.run(ctx)
}

// Stop signals the loop to exit and blocks until it has.
func (l *Loop) Stop() {
	close(l.stop)
	<-l.done
}

func (l *Loop) run(ctx context.Context) {
	defer close(l.done)
	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stop:
			return
		case <-ticker.C:
			if err := l.sweep(ctx); err != nil {
				l.log.Error("opportunity sweep failed", "err", err)
			}
		}
	}
}

func (l *Loop) sweep(ctx context.Context) error {
	rows, err := l.candidates.ListNew(ctx, l.batchSize)
	if err != nil {
		return err
	}
	for _, row := range rows {
		if err := l.processOne(ctx, row); err != nil {
			l.log.Error("process launch candidate failed", "mint", row.Mint, "source", row.Source, "err", err)
		}
	}
	return nil
}

func (l *Loop) processOne(ctx context.Context, row discovery.LaunchCandidate) error {
	candidate := candidateFromRow(row)

	signals, err := l.signals.Signals(ctx, candidate)
	if err != nil {
		return err
	}

	id, result, err := l.engine.Process(ctx, candidate, signals)
	if err != nil {
		return err
	}

	// Only scored/rejected are driven here, per spec.md §3
	// ("status->scored/rejected by F"); promoted is a separate,
	// operator/strategy-driven transition this loop does not perform.
	status := discovery.StatusScored
	if result.HardStop {
		status = discovery.StatusRejected
	}
	if err := l.candidates.Advance(ctx, row.Mint, row.Source, status); err != nil {
		return err
	}

	l.log.Info("launch candidate scored", "mint", row.Mint, "source", row.Source,
		"opportunity_id", id, "score", result.Score, "hard_stop", result.HardStop)
	l.emit(Event{OpportunityID: id, Mint: row.Mint, Score: result.Score, HardStop: result.HardStop})
	return nil
}
