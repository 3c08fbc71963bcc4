// Package executor implements the claim -> reserve -> route -> confirm
// worker described in spec.md §4.H, structured the way the teacher
// structures swap.Coordinator: one struct owning storage and
// collaborator dependencies, OnEvent/emitEvent fan-out for
// notifications, generalized here from 11-state HTLC/MuSig2 swap
// orchestration down to the buy/sell execution state machine this
// spec defines.
package executor

import (
	"context"
	"time"

	"github.com/gagliardetto/solana-go"

	"github.com/solsniper/sniperd/internal/router"
)

// ActiveWallet is the resolved signing wallet for a (user, chain) pair.
type ActiveWallet struct {
	PublicKey        solana.PublicKey
	DerivedPublicKey string // the public key the wallet record claims to own
}

// Matches reports whether the on-chain address matches the wallet
// record's stored derived public key, per spec.md §4.H step 2
// ("fail-closed if mismatched").
func (w ActiveWallet) Matches() bool {
	return w.PublicKey.String() == w.DerivedPublicKey
}

// WalletResolver resolves a user's active signing wallet for a chain.
// Implemented by internal/external's wallet store.
type WalletResolver interface {
	ResolveActiveWallet(ctx context.Context, userID, chain string) (*ActiveWallet, error)
	Sign(ctx context.Context, userID string, unsignedTx []byte) ([]byte, error)
}

// BalanceReader fetches a wallet's spendable SOL balance.
type BalanceReader interface {
	SOLBalance(ctx context.Context, pubkey solana.PublicKey) (float64, error)
}

// PositionLimits bounds the size of any single position, per spec.md
// §4.H step 3 ("enforce position-size limits").
type PositionLimits struct {
	MinSOLPerTrade     float64
	MaxSOLPerTrade     float64
	MaxPercentOfBalance float64
}

// OpenPositionInput is everything PositionStore.Open needs to create a
// position row after a confirmed buy, per spec.md §4.H step 7.
type OpenPositionInput struct {
	EntryExecutionID string
	EntryTxSignature string
	EntryCostSOL     float64
	UserID           string
	StrategyID       string
	Chain            string
	TokenMint        string
	SizeTokens       float64
	EntryPrice       float64
	LifecycleState   router.LifecycleState
	PricingSource    string
	BondingCurve     *solana.PublicKey
}

// PositionSnapshot is the subset of a position's state the executor
// needs to realize a sell against it, per spec.md §4.H step 7.
type PositionSnapshot struct {
	ID             string
	UserID         string
	TokenMint      string
	SizeTokens     float64
	EntryPrice     float64
	LifecycleState router.LifecycleState
	BondingCurve   *solana.PublicKey
}

// PositionStore is the executor's view of position bookkeeping.
// Implemented by internal/position's store.
type PositionStore interface {
	Open(ctx context.Context, in OpenPositionInput) (positionID string, err error)
	Get(ctx context.Context, positionID string) (*PositionSnapshot, error)
	RealizeSell(ctx context.Context, positionID string, sellPercent int, exitPrice, proceedsSOL float64) error
}

// CooldownSetter installs a post-trade cooldown, per spec.md §4.H step 8.
type CooldownSetter interface {
	SetCooldown(ctx context.Context, userID, tokenMint string, duration time.Duration) error
}

// Notifier emits a user-facing notification row, per spec.md §4.H step 8.
type Notifier interface {
	Notify(ctx context.Context, userID, kind, message string) error
}
