package discovery

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestMergeInsertsNewCandidate(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT is_new, discovery_method FROM merge_launch_candidate`).
		WithArgs("mintA", "launchpad", "solana", MethodTelegram, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"is_new", "discovery_method"}).AddRow(true, MethodTelegram))

	s := New(db)
	result, err := s.Merge(context.Background(), Candidate{
		Mint:            "mintA",
		Source:          "launchpad",
		Chain:           "solana",
		DiscoveryMethod: MethodTelegram,
		RawPayload:      map[string]any{"text": "Mint: mintA"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.IsNew || result.DiscoveryMethod != MethodTelegram {
		t.Fatalf("unexpected result: %+v", result)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestMergeReportsUpgradedDiscoveryMethod(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT is_new, discovery_method FROM merge_launch_candidate`).
		WithArgs("mintA", "launchpad", "solana", MethodTelegram, sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"is_new", "discovery_method"}).AddRow(false, MethodOnchain))

	s := New(db)
	result, err := s.Merge(context.Background(), Candidate{
		Mint:            "mintA",
		Source:          "launchpad",
		Chain:           "solana",
		DiscoveryMethod: MethodTelegram,
		RawPayload:      map[string]any{"text": "Mint: mintA"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.IsNew {
		t.Fatal("expected merge of existing candidate to report IsNew=false")
	}
	if result.DiscoveryMethod != MethodOnchain {
		t.Fatalf("expected discovery_method to stay upgraded to onchain, got %s", result.DiscoveryMethod)
	}
}

func TestListNewReturnsDecodedRows(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	cols := []string{"mint", "source", "chain", "discovery_method", "raw_payload", "first_seen_at"}
	now := time.Now()
	mock.ExpectQuery(`SELECT mint, source, chain, discovery_method, raw_payload, first_seen_at FROM launch_candidates`).
		WithArgs(StatusNew, 10).
		WillReturnRows(sqlmock.NewRows(cols).AddRow("mintA", "launchpad", "solana", MethodOnchain, []byte(`{"creator":"c1"}`), now))

	s := New(db)
	rows, err := s.ListNew(context.Background(), 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected one row, got %d", len(rows))
	}
	if rows[0].Mint != "mintA" || rows[0].RawPayload["creator"] != "c1" {
		t.Fatalf("unexpected row: %+v", rows[0])
	}
}

func TestAdvanceUpdatesOnlyFromNew(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`UPDATE launch_candidates`).
		WithArgs("mintA", "launchpad", StatusScored, StatusNew).
		WillReturnResult(sqlmock.NewResult(0, 1))

	s := New(db)
	if err := s.Advance(context.Background(), "mintA", "launchpad", StatusScored); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
