// Package external adapts the execution core to its out-of-process
// collaborators: the wallet/signer, the notification sink, and (in
// the chat subpackage) the chat command grammar. Wallet key
// generation and custody are explicitly out of scope (spec.md §1);
// this package stores only public key material and talks to an
// external signer for anything that needs a private key, mirroring
// how the teacher's backend package stays read-only and defers
// signing to internal/wallet.
package external

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/gagliardetto/solana-go"

	"github.com/solsniper/sniperd/internal/executor"
	"github.com/solsniper/sniperd/pkg/logging"
)

// Signer is the external custody/signing boundary this package never
// implements itself: something else (an HSM, a KMS-backed service, a
// mobile wallet) holds the private key.
type Signer interface {
	PublicKey(ctx context.Context, userID string) (solana.PublicKey, error)
	Sign(ctx context.Context, userID string, unsignedTx []byte) ([]byte, error)
}

// WalletStore is the thin interface spec.md §4.K names: GetOrCreate,
// PublicKey (via ResolveActiveWallet), SignTransaction (via Sign). It
// implements executor.WalletResolver.
type WalletStore struct {
	db     *sql.DB
	signer Signer
	log    *logging.Logger
}

// NewWalletStore constructs the wallet store.
func NewWalletStore(db *sql.DB, signer Signer) *WalletStore {
	return &WalletStore{db: db, signer: signer, log: logging.GetDefault().Component("external.wallet")}
}

// GetOrCreate calls get_or_create_user_wallet, per spec.md §4.A
// ("idempotent wallet row creation gated by (user_id); generator
// callback is invoked only on the first inserter").
func (w *WalletStore) GetOrCreate(ctx context.Context, userID, chain string) (string, error) {
	pub, err := w.signer.PublicKey(ctx, userID)
	if err != nil {
		return "", fmt.Errorf("resolve signer public key: %w", err)
	}

	var storedPublicKey string
	err = w.db.QueryRowContext(ctx, `
		SELECT public_key FROM get_or_create_user_wallet($1,$2,$3)`,
		userID, chain, pub.String(),
	).Scan(&storedPublicKey)
	if err != nil {
		return "", fmt.Errorf("get_or_create_user_wallet: %w", err)
	}
	return storedPublicKey, nil
}

// ResolveActiveWallet satisfies executor.WalletResolver: it reads the
// wallet record's stored public key and asks the signer for the
// address it currently controls, leaving the mismatch check itself to
// the executor (spec.md §4.H step 2, fail-closed).
func (w *WalletStore) ResolveActiveWallet(ctx context.Context, userID, chain string) (*executor.ActiveWallet, error) {
	var derivedPublicKey string
	err := w.db.QueryRowContext(ctx,
		`SELECT public_key FROM user_wallets WHERE user_id = $1 AND chain = $2`, userID, chain,
	).Scan(&derivedPublicKey)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no wallet on file for user %s chain %s", userID, chain)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve wallet record: %w", err)
	}

	pub, err := w.signer.PublicKey(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve signer public key: %w", err)
	}

	return &executor.ActiveWallet{
		PublicKey:        pub,
		DerivedPublicKey: derivedPublicKey,
	}, nil
}

// Sign delegates to the external signer, never touching key material
// in this process.
func (w *WalletStore) Sign(ctx context.Context, userID string, unsignedTx []byte) ([]byte, error) {
	return w.signer.Sign(ctx, userID, unsignedTx)
}
