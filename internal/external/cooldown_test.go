package external

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestSetCooldownUpserts(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`INSERT INTO cooldowns`).
		WithArgs("solana", cooldownKindPostBuy, "u1:mintA", 300.0).
		WillReturnResult(sqlmock.NewResult(0, 1))

	c := NewDBCooldowns(db, "solana")
	if err := c.SetCooldown(context.Background(), "u1", "mintA", 300*time.Second); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}

func TestActiveReportsCooldownState(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectQuery(`SELECT EXISTS`).
		WithArgs("solana", cooldownKindPostBuy, "u1:mintA").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

	c := NewDBCooldowns(db, "solana")
	active, err := c.Active(context.Background(), "u1", "mintA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !active {
		t.Fatal("expected cooldown to be active")
	}
}
