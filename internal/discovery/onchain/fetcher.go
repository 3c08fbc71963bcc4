package onchain

import (
	"context"
	"fmt"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"
)

// TransactionClient is the subset of *rpc.Client the fetcher needs,
// narrowed for testability.
type TransactionClient interface {
	GetTransaction(ctx context.Context, signature solana.Signature, opts *rpc.GetTransactionOpts) (*rpc.GetTransactionResult, error)
}

// RPCTransactionFetcher resolves a logsNotification signature into a
// flattened DecodedTransaction, pulling both top-level instructions
// and inner (CPI) instructions out of the confirmed transaction's
// metadata, per spec.md §4.E's requirement to inspect both.
type RPCTransactionFetcher struct {
	client TransactionClient
}

// NewRPCTransactionFetcher constructs a fetcher over an RPC client.
func NewRPCTransactionFetcher(client TransactionClient) *RPCTransactionFetcher {
	return &RPCTransactionFetcher{client: client}
}

func (f *RPCTransactionFetcher) FetchTransaction(ctx context.Context, signature string) (*DecodedTransaction, error) {
	sig, err := solana.SignatureFromBase58(signature)
	if err != nil {
		return nil, fmt.Errorf("parse signature: %w", err)
	}

	maxVersion := uint64(0)
	result, err := f.client.GetTransaction(ctx, sig, &rpc.GetTransactionOpts{
		Encoding:                       solana.EncodingBase64,
		Commitment:                     rpc.CommitmentConfirmed,
		MaxSupportedTransactionVersion: &maxVersion,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch transaction %s: %w", signature, err)
	}
	if result == nil || result.Transaction == nil {
		return nil, fmt.Errorf("transaction %s not found", signature)
	}

	tx, err := result.Transaction.GetTransaction()
	if err != nil {
		return nil, fmt.Errorf("decode transaction %s: %w", signature, err)
	}

	keys := tx.Message.AccountKeys
	decoded := &DecodedTransaction{Signature: signature}

	for _, ix := range tx.Message.Instructions {
		decoded.Instructions = append(decoded.Instructions, resolveInstruction(keys, ix.ProgramIDIndex, ix.Accounts, ix.Data))
	}

	if result.Meta != nil {
		for _, inner := range result.Meta.InnerInstructions {
			for _, ix := range inner.Instructions {
				decoded.Instructions = append(decoded.Instructions, resolveInstruction(keys, ix.ProgramIDIndex, ix.Accounts, ix.Data))
			}
		}
	}

	return decoded, nil
}

// resolveInstruction maps a compiled instruction's account-table
// indexes back to the pubkeys they reference.
func resolveInstruction(keys []solana.PublicKey, programIDIndex uint16, accountIndexes []uint16, data []byte) CompiledInstruction {
	resolved := CompiledInstruction{Data: data}
	if int(programIDIndex) < len(keys) {
		resolved.ProgramID = keys[programIDIndex]
	}
	for _, idx := range accountIndexes {
		if int(idx) < len(keys) {
			resolved.Accounts = append(resolved.Accounts, keys[idx])
		}
	}
	return resolved
}
