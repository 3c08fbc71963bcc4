package external

import (
	"context"
	"testing"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
)

func TestNotifyInsertsRow(t *testing.T) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	defer db.Close()

	mock.ExpectExec(`INSERT INTO notifications`).
		WithArgs("u1", "BUY_CONFIRMED", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))

	n := NewDBNotifier(db)
	if err := n.Notify(context.Background(), "u1", "BUY_CONFIRMED", "bought 100 tokens"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Fatal(err)
	}
}
