package position

import (
	"testing"
	"time"
)

func TestEvaluateNoTriggerWhenFlat(t *testing.T) {
	cfg := StrategyExit{TakeProfitPct: 50, StopLossPct: 20, MaxHoldMinutes: 60}
	now := time.Now()
	res := Evaluate(cfg, 1.0, 1.01, 1.01, now.Add(-time.Minute), now)
	if res.Fired {
		t.Fatalf("expected no trigger, got %+v", res)
	}
}

func TestEvaluateTakeProfitFires(t *testing.T) {
	cfg := StrategyExit{TakeProfitPct: 50, StopLossPct: 20}
	now := time.Now()
	res := Evaluate(cfg, 1.0, 1.51, 1.51, now.Add(-time.Minute), now)
	if !res.Fired || res.Trigger != TriggerTakeProfit || res.SellPercent != 100 {
		t.Fatalf("expected full TP trigger, got %+v", res)
	}
}

func TestEvaluateTakeProfitHonorsMoonBag(t *testing.T) {
	cfg := StrategyExit{TakeProfitPct: 50, MoonBagPct: 20}
	now := time.Now()
	res := Evaluate(cfg, 1.0, 1.6, 1.6, now.Add(-time.Minute), now)
	if !res.Fired || res.Trigger != TriggerTakeProfit || res.SellPercent != 80 {
		t.Fatalf("expected 80%% moon-bag sell, got %+v", res)
	}
}

func TestEvaluateStopLossFires(t *testing.T) {
	cfg := StrategyExit{TakeProfitPct: 50, StopLossPct: 20}
	now := time.Now()
	res := Evaluate(cfg, 1.0, 0.79, 1.0, now.Add(-time.Minute), now)
	if !res.Fired || res.Trigger != TriggerStopLoss || res.SellPercent != 100 {
		t.Fatalf("expected SL trigger, got %+v", res)
	}
}

func TestEvaluateTakeProfitOutranksStopLoss(t *testing.T) {
	cfg := StrategyExit{TakeProfitPct: 10, StopLossPct: 20}
	now := time.Now()
	res := Evaluate(cfg, 1.0, 1.15, 1.15, now.Add(-time.Minute), now)
	if !res.Fired || res.Trigger != TriggerTakeProfit {
		t.Fatalf("expected TP to win evaluation order, got %+v", res)
	}
}

func TestEvaluateTrailingRequiresActivation(t *testing.T) {
	cfg := StrategyExit{TrailingActivationPct: 30, TrailingDistancePct: 10}
	now := time.Now()
	// peak only 20% above entry: trailing not yet armed, drop should not fire it.
	res := Evaluate(cfg, 1.0, 1.05, 1.2, now.Add(-time.Minute), now)
	if res.Fired {
		t.Fatalf("expected trailing to stay disarmed below activation, got %+v", res)
	}
}

func TestEvaluateTrailingFiresAfterActivationAndDrawdown(t *testing.T) {
	cfg := StrategyExit{TrailingActivationPct: 30, TrailingDistancePct: 10}
	now := time.Now()
	// peak 140 (40% above entry, past activation), current dropped 11% off peak.
	res := Evaluate(cfg, 1.0, 1.246, 1.4, now.Add(-time.Minute), now)
	if !res.Fired || res.Trigger != TriggerTrailing || res.SellPercent != 100 {
		t.Fatalf("expected trailing stop to fire, got %+v", res)
	}
}

func TestEvaluateMaxHoldFires(t *testing.T) {
	cfg := StrategyExit{MaxHoldMinutes: 30}
	now := time.Now()
	res := Evaluate(cfg, 1.0, 1.0, 1.0, now.Add(-31*time.Minute), now)
	if !res.Fired || res.Trigger != TriggerMaxHold || res.SellPercent != 100 {
		t.Fatalf("expected max-hold trigger, got %+v", res)
	}
}

func TestEvaluateZeroEntryPriceNeverFires(t *testing.T) {
	cfg := StrategyExit{TakeProfitPct: 1}
	now := time.Now()
	res := Evaluate(cfg, 0, 5, 5, now.Add(-time.Hour), now)
	if res.Fired {
		t.Fatalf("expected no trigger with zero entry price, got %+v", res)
	}
}
