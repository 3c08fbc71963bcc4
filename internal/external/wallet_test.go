package external

import (
	"context"
	"database/sql"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gagliardetto/solana-go"
)

type stubSigner struct {
	pub    solana.PublicKey
	pubErr error
	signed []byte
	signErr error
}

func (s *stubSigner) PublicKey(ctx context.Context, userID string) (solana.PublicKey, error) {
	return s.pub, s.pubErr
}

func (s *stubSigner) Sign(ctx context.Context, userID string, unsignedTx []byte) ([]byte, error) {
	return s.signed, s.signErr
}

func TestResolveActiveWalletReturnsBothKeys(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	pub := solana.MustPublicKeyFromBase58("11111111111111111111111111111111")
	mock.ExpectQuery(`SELECT public_key FROM user_wallets`).
		WithArgs("u1", "solana").
		WillReturnRows(sqlmock.NewRows([]string{"public_key"}).AddRow(pub.String()))

	w := NewWalletStore(db, &stubSigner{pub: pub})
	wallet, err := w.ResolveActiveWallet(context.Background(), "u1", "solana")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if wallet.PublicKey != pub || wallet.DerivedPublicKey != pub.String() {
		t.Fatalf("unexpected wallet: %+v", wallet)
	}
}

func TestResolveActiveWalletErrorsWithoutWalletRecord(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT public_key FROM user_wallets`).
		WillReturnError(sql.ErrNoRows)

	w := NewWalletStore(db, &stubSigner{})
	if _, err := w.ResolveActiveWallet(context.Background(), "u1", "solana"); err == nil {
		t.Fatal("expected error when no wallet record exists")
	}
}

func TestSignDelegatesToSigner(t *testing.T) {
	db, _, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	w := NewWalletStore(db, &stubSigner{signed: []byte{1, 2, 3}})
	signed, err := w.Sign(context.Background(), "u1", []byte{9})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if string(signed) != string([]byte{1, 2, 3}) {
		t.Fatalf("unexpected signed tx: %v", signed)
	}
}
