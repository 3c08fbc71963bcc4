package onchain

import (
	"testing"

	"github.com/gagliardetto/solana-go"
)

func TestResolveInstructionMapsAccountIndexesToKeys(t *testing.T) {
	keys := []solana.PublicKey{testCreator, testMint, testPool}
	resolved := resolveInstruction(keys, 0, []uint16{1, 2}, poolInitData())

	if resolved.ProgramID != testCreator {
		t.Fatalf("unexpected program id: %s", resolved.ProgramID)
	}
	if len(resolved.Accounts) != 2 || resolved.Accounts[0] != testMint || resolved.Accounts[1] != testPool {
		t.Fatalf("unexpected resolved accounts: %+v", resolved.Accounts)
	}
}

func TestResolveInstructionDropsOutOfRangeIndexes(t *testing.T) {
	keys := []solana.PublicKey{testCreator}
	resolved := resolveInstruction(keys, 5, []uint16{0, 9}, nil)

	if resolved.ProgramID != (solana.PublicKey{}) {
		t.Fatalf("expected zero-value program id for out-of-range index, got %s", resolved.ProgramID)
	}
	if len(resolved.Accounts) != 1 || resolved.Accounts[0] != testCreator {
		t.Fatalf("unexpected resolved accounts: %+v", resolved.Accounts)
	}
}
