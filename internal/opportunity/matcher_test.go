package opportunity

import "testing"

func baseStrategy() StrategyFilter {
	return StrategyFilter{
		ID:                  "strat-1",
		UserID:              "user-1",
		Chain:               "solana",
		MinScore:            60,
		AllowedSources:      []string{"telegram", "onchain"},
		MinInitialLiquidity: 5,
		DenylistedTokens:    nil,
		DenylistedDeployers: nil,
		MaxSOLPerTrade:      0.5,
		SlippageBps:         200,
	}
}

func baseCandidate() Candidate {
	return Candidate{
		Mint:                "mint-1",
		Source:              "onchain",
		Chain:               "solana",
		Deployer:            "deployer-1",
		InitialLiquiditySOL: 10,
	}
}

func TestMatchAcceptsStrategyWhenAllFiltersPass(t *testing.T) {
	matched := Match(baseCandidate(), 75, []StrategyFilter{baseStrategy()})
	if len(matched) != 1 {
		t.Fatalf("expected 1 match, got %d", len(matched))
	}
}

func TestMatchRejectsBelowMinScore(t *testing.T) {
	matched := Match(baseCandidate(), 59, []StrategyFilter{baseStrategy()})
	if len(matched) != 0 {
		t.Fatalf("expected no match, got %d", len(matched))
	}
}

func TestMatchRejectsDisallowedSource(t *testing.T) {
	c := baseCandidate()
	c.Source = "manual"
	matched := Match(c, 75, []StrategyFilter{baseStrategy()})
	if len(matched) != 0 {
		t.Fatalf("expected no match, got %d", len(matched))
	}
}

func TestMatchRejectsBelowMinLiquidity(t *testing.T) {
	c := baseCandidate()
	c.InitialLiquiditySOL = 4
	matched := Match(c, 75, []StrategyFilter{baseStrategy()})
	if len(matched) != 0 {
		t.Fatalf("expected no match, got %d", len(matched))
	}
}

func TestMatchRejectsDenylistedToken(t *testing.T) {
	strat := baseStrategy()
	strat.DenylistedTokens = []string{"mint-1"}
	matched := Match(baseCandidate(), 75, []StrategyFilter{strat})
	if len(matched) != 0 {
		t.Fatalf("expected no match, got %d", len(matched))
	}
}

func TestMatchRejectsDenylistedDeployer(t *testing.T) {
	strat := baseStrategy()
	strat.DenylistedDeployers = []string{"deployer-1"}
	matched := Match(baseCandidate(), 75, []StrategyFilter{strat})
	if len(matched) != 0 {
		t.Fatalf("expected no match, got %d", len(matched))
	}
}

func TestMatchReturnsAllPassingStrategies(t *testing.T) {
	strat2 := baseStrategy()
	strat2.ID = "strat-2"
	matched := Match(baseCandidate(), 75, []StrategyFilter{baseStrategy(), strat2})
	if len(matched) != 2 {
		t.Fatalf("expected 2 matches, got %d", len(matched))
	}
}
