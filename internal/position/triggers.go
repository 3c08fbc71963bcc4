package position

import "time"

// StrategyExit is the subset of a strategy's configuration the trigger
// evaluator needs, mirrored from the strategies table (take_profit_pct,
// stop_loss_pct, trailing_activation_pct, trailing_distance_pct,
// max_hold_minutes, moon_bag_pct).
type StrategyExit struct {
	TakeProfitPct         float64
	StopLossPct           float64
	TrailingActivationPct float64
	TrailingDistancePct   float64
	MaxHoldMinutes        int
	MoonBagPct            float64
}

// TriggerResult is the outcome of evaluating one position against its
// strategy's exit configuration.
type TriggerResult struct {
	Fired       bool
	Trigger     string
	SellPercent int
}

// Evaluate runs the four trigger checks in the fixed order spec.md
// §4.I requires -- TP, SL, trailing, max-hold -- and returns the first
// match. gainPct and peakGainPct are both expressed relative to entry
// price ((price - entry) / entry * 100).
func Evaluate(cfg StrategyExit, entryPrice, currentPrice, peakPrice float64, openedAt, now time.Time) TriggerResult {
	if entryPrice <= 0 {
		return TriggerResult{}
	}
	gainPct := (currentPrice - entryPrice) / entryPrice * 100
	peakGainPct := (peakPrice - entryPrice) / entryPrice * 100

	if cfg.TakeProfitPct > 0 && gainPct >= cfg.TakeProfitPct {
		return TriggerResult{Fired: true, Trigger: TriggerTakeProfit, SellPercent: sellPercent(cfg, TriggerTakeProfit)}
	}
	if cfg.StopLossPct > 0 && gainPct <= -cfg.StopLossPct {
		return TriggerResult{Fired: true, Trigger: TriggerStopLoss, SellPercent: 100}
	}
	if cfg.TrailingDistancePct > 0 && peakGainPct >= cfg.TrailingActivationPct {
		drawdownPct := (peakPrice - currentPrice) / peakPrice * 100
		if peakPrice > 0 && drawdownPct >= cfg.TrailingDistancePct {
			return TriggerResult{Fired: true, Trigger: TriggerTrailing, SellPercent: 100}
		}
	}
	if cfg.MaxHoldMinutes > 0 && now.Sub(openedAt) >= time.Duration(cfg.MaxHoldMinutes)*time.Minute {
		return TriggerResult{Fired: true, Trigger: TriggerMaxHold, SellPercent: 100}
	}
	return TriggerResult{}
}

// sellPercent computes the percentage of size to sell on a trigger,
// per spec.md §4.I ("sell_percent = 100 - moon_bag_percent if
// trigger=TP and moon_bag>0; else 100").
func sellPercent(cfg StrategyExit, trigger string) int {
	if trigger == TriggerTakeProfit && cfg.MoonBagPct > 0 {
		pct := 100 - cfg.MoonBagPct
		if pct < 0 {
			pct = 0
		}
		return int(pct)
	}
	return 100
}
