package external

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

const lamportsPerSOL = 1_000_000_000

// RPCBalanceReader satisfies executor.BalanceReader directly against
// chain RPC, the same *rpc.Client the router's bonding-curve adapter
// uses for account reads.
type RPCBalanceReader struct {
	client *rpc.Client
}

// NewRPCBalanceReader constructs the balance reader.
func NewRPCBalanceReader(client *rpc.Client) *RPCBalanceReader {
	return &RPCBalanceReader{client: client}
}

func (r *RPCBalanceReader) SOLBalance(ctx context.Context, pubkey solana.PublicKey) (float64, error) {
	out, err := r.client.GetBalance(ctx, pubkey, rpc.CommitmentConfirmed)
	if err != nil {
		return 0, fmt.Errorf("get balance: %w", err)
	}
	return float64(out.Value) / lamportsPerSOL, nil
}
