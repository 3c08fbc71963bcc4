package external

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/solsniper/sniperd/pkg/logging"
)

// Users resolves the chat platform's stable external identifier (chat
// id) to the core's internal opaque user id, per spec.md §3 ("user:
// identified by a stable external identifier (chat id) and an
// internal opaque identifier").
type Users struct {
	db  *sql.DB
	log *logging.Logger
}

// NewUsers constructs the user resolver.
func NewUsers(db *sql.DB) *Users {
	return &Users{db: db, log: logging.GetDefault().Component("external.users")}
}

// GetOrCreateByChatID returns the internal user id for a chat id,
// creating the row on first contact. Mirrors the upsert shape of
// get_or_create_user_wallet, but chat id -> user id has no signer
// round-trip so it stays a plain upsert rather than a stored
// procedure.
func (u *Users) GetOrCreateByChatID(ctx context.Context, chatID int64) (string, error) {
	var id string
	err := u.db.QueryRowContext(ctx, `
		INSERT INTO users (chat_id) VALUES ($1)
		ON CONFLICT (chat_id) DO UPDATE SET chat_id = users.chat_id
		RETURNING id`, chatID,
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("get or create user for chat %d: %w", chatID, err)
	}
	return id, nil
}
