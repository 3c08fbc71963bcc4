package opportunity

// StrategyFilter is the subset of a strategy row the matcher needs to
// decide whether it accepts a scored candidate, per spec.md §4.F:
// {min_score, allowed_sources, min_liquidity, denylists} all pass.
type StrategyFilter struct {
	ID                  string
	UserID              string
	Chain               string
	MinScore            int
	AllowedSources      []string
	MinInitialLiquidity float64
	DenylistedTokens    []string
	DenylistedDeployers []string
	MaxSOLPerTrade      float64
	SlippageBps         int
}

// Candidate is the subset of a launch_candidate/opportunity the
// matcher needs about the thing being scored.
type Candidate struct {
	Mint                string
	Source              string
	Chain               string
	Deployer            string
	InitialLiquiditySOL float64
}

// Match returns every strategy in strategies whose filters all pass
// for candidate at the given score. Pure function, no I/O, so the
// caller owns loading strategies and persisting the result.
func Match(candidate Candidate, score int, strategies []StrategyFilter) []StrategyFilter {
	var matched []StrategyFilter
	for _, strat := range strategies {
		if score < strat.MinScore {
			continue
		}
		if !contains(strat.AllowedSources, candidate.Source) {
			continue
		}
		if candidate.InitialLiquiditySOL < strat.MinInitialLiquidity {
			continue
		}
		if contains(strat.DenylistedTokens, candidate.Mint) {
			continue
		}
		if contains(strat.DenylistedDeployers, candidate.Deployer) {
			continue
		}
		matched = append(matched, strat)
	}
	return matched
}

func contains(list []string, target string) bool {
	for _, v := range list {
		if v == target {
			return true
		}
	}
	return false
}
