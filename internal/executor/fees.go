package executor

import "github.com/solsniper/sniperd/internal/config"

// ApplyBuyFee splits a gross SOL amount into the net amount actually
// spent on the swap and the fee retained by the platform, per spec.md
// §4.H step 4 ("(net, fee) = applyBuyFee(gross)").
func ApplyBuyFee(fees config.FeeConfig, grossSOL float64) (net, fee float64) {
	fee = grossSOL * float64(fees.FeeBPS) / 10000
	return grossSOL - fee, fee
}

// ApplySellFee deducts the fee from sell proceeds rather than from the
// input amount, per spec.md §4.H step 4 ("fee is deducted from output
// on sells").
func ApplySellFee(fees config.FeeConfig, grossProceedsSOL float64) (net, fee float64) {
	fee = grossProceedsSOL * float64(fees.FeeBPS) / 10000
	return grossProceedsSOL - fee, fee
}
