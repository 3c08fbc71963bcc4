package opportunity

import (
	"context"
	"fmt"

	"github.com/solsniper/sniperd/internal/queue"
	"github.com/solsniper/sniperd/pkg/idgen"
	"github.com/solsniper/sniperd/pkg/logging"
)

// StrategySource loads enabled auto strategies, satisfied by *Store.
type StrategySource interface {
	ListEnabledAutoStrategies(ctx context.Context, chain string) ([]StrategyFilter, error)
}

// OpportunitySink persists the scored/matched outcome, satisfied by
// *Store.
type OpportunitySink interface {
	Insert(ctx context.Context, candidate Candidate, result ScoreResult, matchedStrategyIDs []string, status string) (string, error)
}

// JobEnqueuer is the subset of queue.Store the engine needs.
type JobEnqueuer interface {
	Enqueue(ctx context.Context, chain, action, userID, strategyID, opportunityID string, key idgen.Key, priority, maxAttempts int, payload queue.Payload) error
}

// Engine runs the scorer and matcher over one candidate end to end:
// score -> persist opportunity -> match enabled strategies -> enqueue
// BUY jobs, per spec.md §4.F.
type Engine struct {
	strategies    StrategySource
	opportunities OpportunitySink
	jobs          JobEnqueuer
	log           *logging.Logger
}

// NewEngine constructs an Engine from its collaborators.
func NewEngine(strategies StrategySource, opportunities OpportunitySink, jobs JobEnqueuer) *Engine {
	return &Engine{
		strategies:    strategies,
		opportunities: opportunities,
		jobs:          jobs,
		log:           logging.GetDefault().Component("opportunity"),
	}
}

// Process scores candidate, persists the resulting opportunity, and
// enqueues a BUY trade_job for every enabled auto strategy that
// matches. Duplicate-insert errors from the queue are swallowed by
// queue.Store.Enqueue itself, making this call idempotent per caller,
// per spec.md §4.F ("the matcher is itself idempotent").
func (e *Engine) Process(ctx context.Context, candidate Candidate, signals Signals) (string, ScoreResult, error) {
	result := Score(signals)

	if result.HardStop {
		id, err := e.opportunities.Insert(ctx, candidate, result, nil, StatusRejected)
		if err != nil {
			return "", result, fmt.Errorf("insert rejected opportunity: %w", err)
		}
		return id, result, nil
	}

	strategies, err := e.strategies.ListEnabledAutoStrategies(ctx, candidate.Chain)
	if err != nil {
		return "", result, fmt.Errorf("list enabled strategies: %w", err)
	}
	matched := Match(candidate, result.Score, strategies)

	if len(matched) == 0 {
		id, err := e.opportunities.Insert(ctx, candidate, result, nil, StatusQualified)
		if err != nil {
			return "", result, fmt.Errorf("insert qualified opportunity: %w", err)
		}
		return id, result, nil
	}

	matchedIDs := make([]string, len(matched))
	for i, m := range matched {
		matchedIDs[i] = m.ID
	}

	id, err := e.opportunities.Insert(ctx, candidate, result, matchedIDs, StatusExecuting)
	if err != nil {
		return "", result, fmt.Errorf("insert executing opportunity: %w", err)
	}

	for _, strat := range matched {
		key := idgen.AutoBuy(candidate.Chain, strat.ID, id, candidate.Mint, strat.MaxSOLPerTrade, strat.SlippageBps)
		payload := queue.Payload{
			Mint:        candidate.Mint,
			AmountSOL:   strat.MaxSOLPerTrade,
			SlippageBps: strat.SlippageBps,
		}
		if err := e.jobs.Enqueue(ctx, candidate.Chain, queue.ActionBuy, strat.UserID, strat.ID, id, key, queue.PriorityBuy, 5, payload); err != nil {
			e.log.Error("enqueue auto-buy job", "strategy_id", strat.ID, "mint", candidate.Mint, "error", err)
		}
	}

	return id, result, nil
}
