package opportunity

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestListEnabledAutoStrategiesScansAllColumns(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	rows := sqlmock.NewRows([]string{
		"id", "user_id", "chain", "min_score", "allowed_sources", "min_initial_liquidity",
		"denylisted_tokens", "denylisted_deployers", "max_sol_per_trade", "slippage_bps",
	}).AddRow(
		"strat-1", "user-1", "solana", 60, pqStringArray{"telegram", "onchain"}, 5.0,
		pqStringArray{"bad-mint"}, pqStringArray{"bad-deployer"}, 0.5, 200,
	)

	mock.ExpectQuery(`SELECT id, user_id, chain, min_score, allowed_sources, min_initial_liquidity,\s*denylisted_tokens, denylisted_deployers, max_sol_per_trade, slippage_bps\s*FROM strategies\s*WHERE enabled AND chain = \$1`).
		WithArgs("solana").
		WillReturnRows(rows)

	s := New(db)
	strategies, err := s.ListEnabledAutoStrategies(context.Background(), "solana")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(strategies) != 1 {
		t.Fatalf("expected 1 strategy, got %d", len(strategies))
	}
	f := strategies[0]
	if f.ID != "strat-1" || f.UserID != "user-1" || f.Chain != "solana" || f.MinScore != 60 {
		t.Fatalf("unexpected scalar fields: %+v", f)
	}
	if len(f.AllowedSources) != 2 || f.AllowedSources[0] != "telegram" {
		t.Fatalf("unexpected allowed sources: %v", f.AllowedSources)
	}
	if len(f.DenylistedTokens) != 1 || f.DenylistedTokens[0] != "bad-mint" {
		t.Fatalf("unexpected denylisted tokens: %v", f.DenylistedTokens)
	}
	if len(f.DenylistedDeployers) != 1 || f.DenylistedDeployers[0] != "bad-deployer" {
		t.Fatalf("unexpected denylisted deployers: %v", f.DenylistedDeployers)
	}
	if f.MaxSOLPerTrade != 0.5 || f.SlippageBps != 200 {
		t.Fatalf("unexpected trade fields: %+v", f)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestInsertReturnsNewOpportunityID(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`INSERT INTO opportunities`).
		WithArgs("mint-1", "onchain", "solana", 80, sqlmock.AnyArg(), sqlmock.AnyArg(), StatusExecuting).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow("opp-1"))

	s := New(db)
	id, err := s.Insert(context.Background(), Candidate{
		Mint:   "mint-1",
		Source: "onchain",
		Chain:  "solana",
	}, ScoreResult{Score: 80, Reasons: nil}, []string{"strat-1"}, StatusExecuting)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if id != "opp-1" {
		t.Fatalf("expected opp-1, got %s", id)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

// pqStringArray satisfies driver.Valuer/sql.Scanner well enough for
// sqlmock to round-trip a []string through rows.Scan in tests, mirroring
// how pgx's stdlib driver hands back text[] columns as []string.
type pqStringArray []string

func (a pqStringArray) Value() (interface{}, error) { return []string(a), nil }
