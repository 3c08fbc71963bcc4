package external

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/solsniper/sniperd/pkg/logging"
)

// DBNotifier writes notification rows; delivery to the chat UI is an
// external worker's job, per spec.md §4.K ("an external worker
// delivers them"). Modeled on the teacher's OnEvent/emitEvent fan-out
// in swap/coordinator.go, but here the sink is the notifications
// table rather than an in-process subscriber list.
type DBNotifier struct {
	db  *sql.DB
	log *logging.Logger
}

// NewDBNotifier constructs the notification sink.
func NewDBNotifier(db *sql.DB) *DBNotifier {
	return &DBNotifier{db: db, log: logging.GetDefault().Component("external.notifier")}
}

// Notify satisfies executor.Notifier: it inserts one row with the
// message as a JSONB payload field.
func (n *DBNotifier) Notify(ctx context.Context, userID, kind, message string) error {
	payload, err := json.Marshal(struct {
		Message string `json:"message"`
	}{Message: message})
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}

	_, err = n.db.ExecContext(ctx, `
		INSERT INTO notifications (user_id, type, payload) VALUES ($1,$2,$3)`,
		userID, kind, payload,
	)
	if err != nil {
		return fmt.Errorf("insert notification: %w", err)
	}
	return nil
}
