package opportunity

import (
	"context"
	"testing"

	"github.com/solsniper/sniperd/internal/queue"
	"github.com/solsniper/sniperd/pkg/idgen"
)

type fakeStrategySource struct {
	strategies []StrategyFilter
	err        error
}

func (f *fakeStrategySource) ListEnabledAutoStrategies(ctx context.Context, chain string) ([]StrategyFilter, error) {
	return f.strategies, f.err
}

type insertCall struct {
	candidate          Candidate
	result             ScoreResult
	matchedStrategyIDs []string
	status             string
}

type fakeOpportunitySink struct {
	calls []insertCall
	id    string
}

func (f *fakeOpportunitySink) Insert(ctx context.Context, candidate Candidate, result ScoreResult, matchedStrategyIDs []string, status string) (string, error) {
	f.calls = append(f.calls, insertCall{candidate, result, matchedStrategyIDs, status})
	return f.id, nil
}

type enqueueCall struct {
	chain, action, userID, strategyID, opportunityID string
	key                                              idgen.Key
	priority, maxAttempts                            int
	payload                                          queue.Payload
}

type fakeJobEnqueuer struct {
	calls []enqueueCall
}

func (f *fakeJobEnqueuer) Enqueue(ctx context.Context, chain, action, userID, strategyID, opportunityID string, key idgen.Key, priority, maxAttempts int, payload queue.Payload) error {
	f.calls = append(f.calls, enqueueCall{chain, action, userID, strategyID, opportunityID, key, priority, maxAttempts, payload})
	return nil
}

func TestEngineProcessRejectsHardStopWithoutLookingUpStrategies(t *testing.T) {
	strategies := &fakeStrategySource{strategies: []StrategyFilter{baseStrategy()}}
	sink := &fakeOpportunitySink{id: "opp-1"}
	jobs := &fakeJobEnqueuer{}
	e := NewEngine(strategies, sink, jobs)

	signals := Signals{HoneypotDetected: true}
	id, result, err := e.Process(context.Background(), baseCandidate(), signals)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "opp-1" {
		t.Fatalf("expected opp-1, got %s", id)
	}
	if !result.HardStop {
		t.Fatal("expected hard stop result")
	}
	if len(sink.calls) != 1 || sink.calls[0].status != StatusRejected {
		t.Fatalf("expected one REJECTED insert, got %+v", sink.calls)
	}
	if len(jobs.calls) != 0 {
		t.Fatalf("expected no jobs enqueued, got %d", len(jobs.calls))
	}
}

func TestEngineProcessQualifiesWhenNoStrategyMatches(t *testing.T) {
	strat := baseStrategy()
	strat.MinScore = 101
	strategies := &fakeStrategySource{strategies: []StrategyFilter{strat}}
	sink := &fakeOpportunitySink{id: "opp-2"}
	jobs := &fakeJobEnqueuer{}
	e := NewEngine(strategies, sink, jobs)

	signals := allHighSignals()
	id, result, err := e.Process(context.Background(), baseCandidate(), signals)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "opp-2" {
		t.Fatalf("expected opp-2, got %s", id)
	}
	if result.HardStop {
		t.Fatal("expected no hard stop")
	}
	if len(sink.calls) != 1 || sink.calls[0].status != StatusQualified {
		t.Fatalf("expected one QUALIFIED insert, got %+v", sink.calls)
	}
	if len(jobs.calls) != 0 {
		t.Fatalf("expected no jobs enqueued, got %d", len(jobs.calls))
	}
}

func TestEngineProcessExecutesAndEnqueuesOnePerMatchedStrategy(t *testing.T) {
	strat1 := baseStrategy()
	strat2 := baseStrategy()
	strat2.ID = "strat-2"
	strat2.UserID = "user-2"
	strategies := &fakeStrategySource{strategies: []StrategyFilter{strat1, strat2}}
	sink := &fakeOpportunitySink{id: "opp-3"}
	jobs := &fakeJobEnqueuer{}
	e := NewEngine(strategies, sink, jobs)

	signals := allHighSignals()
	id, result, err := e.Process(context.Background(), baseCandidate(), signals)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "opp-3" {
		t.Fatalf("expected opp-3, got %s", id)
	}
	if result.HardStop {
		t.Fatal("expected no hard stop")
	}
	if len(sink.calls) != 1 || sink.calls[0].status != StatusExecuting {
		t.Fatalf("expected one EXECUTING insert, got %+v", sink.calls)
	}
	if len(sink.calls[0].matchedStrategyIDs) != 2 {
		t.Fatalf("expected 2 matched strategy ids, got %v", sink.calls[0].matchedStrategyIDs)
	}
	if len(jobs.calls) != 2 {
		t.Fatalf("expected 2 enqueued jobs, got %d", len(jobs.calls))
	}
	if jobs.calls[0].action != queue.ActionBuy || jobs.calls[0].opportunityID != "opp-3" {
		t.Fatalf("unexpected enqueue call: %+v", jobs.calls[0])
	}
}
