package opportunity

import (
	"context"
	"testing"

	"github.com/solsniper/sniperd/internal/discovery"
)

type fakeCandidateSource struct {
	rows         []discovery.LaunchCandidate
	advanceCalls []struct{ mint, source, status string }
}

func (f *fakeCandidateSource) ListNew(ctx context.Context, limit int) ([]discovery.LaunchCandidate, error) {
	return f.rows, nil
}

func (f *fakeCandidateSource) Advance(ctx context.Context, mint, source, status string) error {
	f.advanceCalls = append(f.advanceCalls, struct{ mint, source, status string }{mint, source, status})
	return nil
}

func TestLoopSweepRejectsWithDefaultSignalSource(t *testing.T) {
	candidates := &fakeCandidateSource{
		rows: []discovery.LaunchCandidate{
			{Mint: "mintA", Source: "launchpad", Chain: "solana", RawPayload: map[string]any{"creator": "deployerA"}},
		},
	}
	sink := &fakeOpportunitySink{id: "opp-1"}
	jobs := &fakeJobEnqueuer{}
	engine := NewEngine(&fakeStrategySource{}, sink, jobs)

	loop := NewLoop(candidates, nil, engine, 0, 0)
	if err := loop.sweep(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(sink.calls) != 1 || sink.calls[0].status != StatusRejected {
		t.Fatalf("expected one REJECTED insert from the default conservative signal source, got %+v", sink.calls)
	}
	if sink.calls[0].candidate.Deployer != "deployerA" {
		t.Fatalf("expected deployer to be carried from raw_payload.creator, got %+v", sink.calls[0].candidate)
	}
	if len(candidates.advanceCalls) != 1 || candidates.advanceCalls[0].status != discovery.StatusRejected {
		t.Fatalf("expected launch_candidates row advanced to rejected, got %+v", candidates.advanceCalls)
	}
	if len(jobs.calls) != 0 {
		t.Fatalf("expected no buy jobs enqueued for a hard-stopped candidate, got %d", len(jobs.calls))
	}
}

type passingSignalSource struct{}

func (passingSignalSource) Signals(ctx context.Context, candidate Candidate) (Signals, error) {
	return allHighSignals(), nil
}

func TestLoopSweepAdvancesToScoredWhenNotHardStopped(t *testing.T) {
	candidates := &fakeCandidateSource{
		rows: []discovery.LaunchCandidate{
			{Mint: "mintA", Source: "launchpad", Chain: "solana"},
		},
	}
	strat := baseStrategy()
	strat.MinScore = 101 // above the maximum score of 100, so nothing matches, candidate stays QUALIFIED
	sink := &fakeOpportunitySink{id: "opp-2"}
	jobs := &fakeJobEnqueuer{}
	engine := NewEngine(&fakeStrategySource{strategies: []StrategyFilter{strat}}, sink, jobs)

	loop := NewLoop(candidates, passingSignalSource{}, engine, 0, 0)
	if err := loop.sweep(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(candidates.advanceCalls) != 1 || candidates.advanceCalls[0].status != discovery.StatusScored {
		t.Fatalf("expected launch_candidates row advanced to scored, got %+v", candidates.advanceCalls)
	}
}
