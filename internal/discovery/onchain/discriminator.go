// Package onchain subscribes to the launchpad program's on-chain logs
// and decodes pool-initialize instructions out of top-level and inner
// (CPI) instructions using discriminator matching, per spec.md §4.E.
package onchain

import "github.com/gagliardetto/solana-go"

// InstructionKind classifies a decoded instruction against the
// launchpad's known 8-byte discriminators.
type InstructionKind string

const (
	KindPoolInitialize InstructionKind = "pool_initialize"
	KindSwap           InstructionKind = "swap"
	KindMigrate        InstructionKind = "migrate"
)

// discriminators maps an instruction's fixed 8-byte anchor
// discriminator prefix to the kind of instruction it is. These values
// are fixed by the launchpad's IDL, the same way
// router.curveSwapDiscriminator's buy/sell prefixes are.
var discriminators = map[[8]byte]InstructionKind{
	{0x2e, 0xa0, 0x21, 0xd8, 0x9f, 0x1a, 0x4f, 0x2c}: KindPoolInitialize,
	{0x66, 0x06, 0x3d, 0x12, 0x01, 0xda, 0xeb, 0xea}: KindSwap,
	{0x33, 0xe6, 0x85, 0xa4, 0x01, 0x7f, 0x83, 0xad}: KindSwap,
	{0x9b, 0x49, 0x7e, 0x6e, 0x4f, 0x0d, 0x52, 0x17}: KindMigrate,
}

// classify returns the instruction kind for an 8-byte discriminator
// prefix, and false if it doesn't match any known instruction.
func classify(data []byte) (InstructionKind, bool) {
	if len(data) < 8 {
		return "", false
	}
	var prefix [8]byte
	copy(prefix[:], data[:8])
	kind, ok := discriminators[prefix]
	return kind, ok
}

// Fixed account-index positions for the pool-initialize instruction,
// matching the launchpad's IDL account ordering.
const (
	poolInitCreatorIndex = 0
	poolInitMintIndex    = 1
	poolInitCurveIndex   = 2
)

// systemIDs excludes addresses that can never legitimately be a
// pool-initialize instruction's creator account.
var systemIDs = map[solana.PublicKey]struct{}{
	solana.SystemProgramID: {},
	solana.MustPublicKeyFromBase58("ComputeBudget111111111111111111111111111111"): {},
}
