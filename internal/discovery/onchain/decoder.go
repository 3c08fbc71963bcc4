package onchain

import (
	"fmt"

	"github.com/gagliardetto/solana-go"
)

// CompiledInstruction is a minimal, already-resolved view of one
// instruction: its program id and the account pubkeys at the
// positions the launchpad IDL fixes, plus raw instruction data for
// discriminator matching. Flattening top-level and inner (CPI)
// instructions into this shape up front keeps the classifier ignorant
// of where an instruction came from, per spec.md §4.E's requirement
// to inspect both.
type CompiledInstruction struct {
	ProgramID solana.PublicKey
	Accounts  []solana.PublicKey
	Data      []byte
}

// DecodedTransaction is a flattened view of one confirmed
// transaction's instructions, built by a TransactionFetcher from the
// raw RPC response.
type DecodedTransaction struct {
	Signature    string
	Instructions []CompiledInstruction
}

// PoolInit is a validated pool-initialize signal extracted from a
// transaction's instructions.
type PoolInit struct {
	Mint      solana.PublicKey
	Pool      solana.PublicKey
	Creator   solana.PublicKey
	Signature string
}

// ExtractPoolInits walks every instruction in tx (top-level and
// inner alike, since DecodedTransaction is pre-flattened) looking for
// ones issued against programID whose discriminator matches
// pool-initialize, and validates them per spec.md §4.E: reject
// invalid account counts, mint==pool, and creator in the system/
// program-id set.
func ExtractPoolInits(programID solana.PublicKey, tx *DecodedTransaction) ([]PoolInit, error) {
	var inits []PoolInit
	for _, ix := range tx.Instructions {
		if ix.ProgramID != programID {
			continue
		}
		kind, ok := classify(ix.Data)
		if !ok || kind != KindPoolInitialize {
			continue
		}

		init, err := validatePoolInit(ix, tx.Signature)
		if err != nil {
			continue
		}
		inits = append(inits, init)
	}
	return inits, nil
}

func validatePoolInit(ix CompiledInstruction, signature string) (PoolInit, error) {
	if len(ix.Accounts) <= poolInitCurveIndex {
		return PoolInit{}, fmt.Errorf("pool_initialize instruction has too few accounts: %d", len(ix.Accounts))
	}

	creator := ix.Accounts[poolInitCreatorIndex]
	mint := ix.Accounts[poolInitMintIndex]
	pool := ix.Accounts[poolInitCurveIndex]

	if mint == pool {
		return PoolInit{}, fmt.Errorf("mint and pool accounts are identical")
	}
	if _, excluded := systemIDs[creator]; excluded {
		return PoolInit{}, fmt.Errorf("creator %s is a system/program id", creator)
	}

	return PoolInit{Mint: mint, Pool: pool, Creator: creator, Signature: signature}, nil
}
