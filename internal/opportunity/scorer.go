// Package opportunity scores newly discovered launch candidates and
// matches qualifying ones against enabled auto strategies, per spec.md
// §4.F.
package opportunity

// Signals is the evidence gathered for one candidate, pre-computed
// per-category on a 0-100 scale by whatever on-chain/off-chain
// analysis feeds this package (out of scope here — this package only
// weighs and combines already-extracted evidence). Hard-stop fields
// are booleans/thresholds checked independently of the weighted score.
type Signals struct {
	SellabilityScore        int
	SupplyIntegrityScore    int
	LiquidityScore          int
	DistributionScore       int
	DeployerProvenanceScore int
	PostLaunchControlsScore int
	ExecutionRiskScore      int

	SellabilityEvidenceMissing bool
	TopHolderConcentrationPct  float64
	HoneypotDetected           bool
	DeployerDenylisted         bool
	ExtractableTaxDetected     bool
}

// Weights sum to 100, matching spec.md §4.F's seven weighted
// categories.
const (
	weightSellability        = 20
	weightSupplyIntegrity    = 15
	weightLiquidity          = 20
	weightDistribution       = 15
	weightDeployerProvenance = 10
	weightPostLaunchControls = 10
	weightExecutionRisk      = 10

	// supplyConcentrationHardStopPct rejects a candidate outright when
	// the top holder(s) control this share of supply or more.
	supplyConcentrationHardStopPct = 50.0
)

// Reason codes, attached to ScoreResult.Reasons. Hard-stop reasons
// always start with "hard_stop:" so downstream consumers (chat
// notifications, admin UI) can style them distinctly.
const (
	ReasonHardStopMissingSellability  = "hard_stop:missing_sellability_evidence"
	ReasonHardStopSupplyConcentration = "hard_stop:supply_concentration"
	ReasonHardStopHoneypot            = "hard_stop:honeypot_detected"
	ReasonHardStopDeployerDenylisted  = "hard_stop:deployer_denylisted"
	ReasonHardStopExtractableTax      = "hard_stop:extractable_tax"
)

// ScoreResult is the scorer's output: total score, reason codes, and
// the hard-stop flag, per spec.md §4.F.
type ScoreResult struct {
	Score    int
	Reasons  []string
	HardStop bool
}

// Score weighs the seven categories into a 0-100 total and evaluates
// every hard stop independently. A hard stop does not skip score
// computation -- the caller still gets a score for display/audit --
// but HardStop=true means the matcher must reject outright regardless
// of score.
func Score(s Signals) ScoreResult {
	var reasons []string

	if s.SellabilityEvidenceMissing {
		reasons = append(reasons, ReasonHardStopMissingSellability)
	}
	if s.TopHolderConcentrationPct >= supplyConcentrationHardStopPct {
		reasons = append(reasons, ReasonHardStopSupplyConcentration)
	}
	if s.HoneypotDetected {
		reasons = append(reasons, ReasonHardStopHoneypot)
	}
	if s.DeployerDenylisted {
		reasons = append(reasons, ReasonHardStopDeployerDenylisted)
	}
	if s.ExtractableTaxDetected {
		reasons = append(reasons, ReasonHardStopExtractableTax)
	}
	hardStop := len(reasons) > 0

	weighted := s.SellabilityScore*weightSellability +
		s.SupplyIntegrityScore*weightSupplyIntegrity +
		s.LiquidityScore*weightLiquidity +
		s.DistributionScore*weightDistribution +
		s.DeployerProvenanceScore*weightDeployerProvenance +
		s.PostLaunchControlsScore*weightPostLaunchControls +
		s.ExecutionRiskScore*weightExecutionRisk
	score := weighted / 100

	return ScoreResult{Score: clampScore(score), Reasons: reasons, HardStop: hardStop}
}

func clampScore(score int) int {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
