package external

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/solsniper/sniperd/pkg/logging"
)

// cooldownKindPostBuy is the kind spec.md §4.H step 8 installs after a
// confirmed buy ("set a (user, mint) cooldown, default 300s").
const cooldownKindPostBuy = "POST_BUY"

// DBCooldowns implements executor.CooldownSetter against the
// cooldowns table, keyed {chain, kind, target}.
type DBCooldowns struct {
	db    *sql.DB
	chain string
	log   *logging.Logger
}

// NewDBCooldowns constructs the cooldown setter for a fixed chain.
func NewDBCooldowns(db *sql.DB, chain string) *DBCooldowns {
	return &DBCooldowns{db: db, chain: chain, log: logging.GetDefault().Component("external.cooldown")}
}

// SetCooldown upserts a (user, mint) cooldown. An existing cooldown is
// only extended: it is left as is when it already ends later.
func (c *DBCooldowns) SetCooldown(ctx context.Context, userID, tokenMint string, duration time.Duration) error {
	target := userID + ":" + tokenMint
	_, err := c.db.ExecContext(ctx, `
		INSERT INTO cooldowns (chain, kind, target, until)
		VALUES ($1,$2,$3, now() + ($4 * interval '1 second'))
		ON CONFLICT (chain, kind, target) DO UPDATE SET until = EXCLUDED.until
		WHERE cooldowns.until < EXCLUDED.until`,
		c.chain, cooldownKindPostBuy, target, duration.Seconds(),
	)
	if err != nil {
		return fmt.Errorf("set cooldown: %w", err)
	}
	return nil
}

// Active reports whether a (user, mint) cooldown is still in force.
// No other code path calls it: the matcher, the router and
// reserve_trade_budget do not check cooldowns, so an active cooldown
// does not stop a new buy from being queued or executed.
func (c *DBCooldowns) Active(ctx context.Context, userID, tokenMint string) (bool, error) {
	target := userID + ":" + tokenMint
	var exists bool
	err := c.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM cooldowns
			WHERE chain = $1 AND kind = $2 AND target = $3 AND until > now()
		)`, c.chain, cooldownKindPostBuy, target,
	).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check cooldown: %w", err)
	}
	return exists, nil
}
