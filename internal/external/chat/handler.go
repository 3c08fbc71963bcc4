package chat

import (
	"context"
	"fmt"

	"github.com/solsniper/sniperd/internal/config"
	"github.com/solsniper/sniperd/internal/queue"
	"github.com/solsniper/sniperd/pkg/idgen"
	"github.com/solsniper/sniperd/pkg/logging"
)

// DefaultSlippageBps is applied to manual trades that carry no slippage
// argument of their own, matching the strategies table's own default
// (spec.md §3 strategy.slippage_bps default 500).
const DefaultSlippageBps = 500

// ManualSellPercent is the portion of a position a confirm_sell
// callback closes. The chat grammar has no partial-sell argument, so a
// manual sell is always a full exit.
const ManualSellPercent = 100

// Users resolves a chat id to the core's internal user id.
type Users interface {
	GetOrCreateByChatID(ctx context.Context, chatID int64) (string, error)
}

// Position is the subset of a position row a manual sell needs to
// build a SELL trade_job.
type Position struct {
	UserID    string
	Chain     string
	TokenMint string
}

// Positions resolves a position id to its owning user, chain and mint.
type Positions interface {
	GetPosition(ctx context.Context, positionID string) (*Position, error)
}

// Jobs is the subset of queue.Store a manual trade needs.
type Jobs interface {
	Enqueue(ctx context.Context, chain, action, userID, strategyID, opportunityID string,
		key idgen.Key, priority, maxAttempts int, payload queue.Payload) error
}

// Handler turns parsed chat intents and callbacks into manual
// trade_jobs, per spec.md §1 ("a parallel manual-trade path") and
// §4.B (manual-buy/manual-sell idempotency keys). Everything upstream
// of Intent/Callback -- receiving the Telegram update, rendering any
// reply -- is the bot's own concern; this type only ever sees already
// structured values.
type Handler struct {
	users     Users
	positions Positions
	jobs      Jobs
	log       *logging.Logger
}

// NewHandler constructs the manual-trade handler.
func NewHandler(users Users, positions Positions, jobs Jobs) *Handler {
	return &Handler{users: users, positions: positions, jobs: jobs, log: logging.GetDefault().Component("external.chat")}
}

// HandleIntent dispatches a parsed command. Only CmdSnipe results in a
// trade; every other command is the bot's own UI concern (menus,
// balances, settings) and is left unhandled here.
func (h *Handler) HandleIntent(ctx context.Context, chatID int64, intent Intent) error {
	if intent.Command != CmdSnipe {
		return nil
	}
	chain := intent.Chain
	if chain == "" {
		chain = config.Chain
	}
	return h.buy(ctx, chatID, intent.Mint, intent.AmountSOL, chain, intent.ExternalEventID)
}

// HandleCallback dispatches a parsed callback. CallbackCancel carries
// no trade and is left to the bot; confirm_buy and confirm_sell are
// the two manual-trade entry points spec.md §9 describes.
func (h *Handler) HandleCallback(ctx context.Context, chatID int64, cb Callback) error {
	switch cb.Kind {
	case CallbackConfirmBuy:
		// confirm_buy carries no chain of its own; non-Solana chains
		// are out of scope (spec.md §1), so the process default always
		// applies.
		return h.buy(ctx, chatID, cb.Mint, cb.AmountSOL, config.Chain, cb.ExternalEventID)
	case CallbackConfirmSell:
		return h.sell(ctx, chatID, cb.PositionID, cb.ExternalEventID)
	default:
		return nil
	}
}

func (h *Handler) buy(ctx context.Context, chatID int64, mint string, amountSOL float64, chain, externalEventID string) error {
	userID, err := h.users.GetOrCreateByChatID(ctx, chatID)
	if err != nil {
		return fmt.Errorf("resolve user: %w", err)
	}

	key := idgen.ManualBuy(chain, userID, mint, DefaultSlippageBps, amountSOL, externalEventID)
	payload := queue.Payload{
		Mint:          mint,
		AmountSOL:     amountSOL,
		SlippageBps:   DefaultSlippageBps,
		ExternalEvent: externalEventID,
	}
	if err := h.jobs.Enqueue(ctx, chain, queue.ActionBuy, userID, "", "", key, queue.PriorityBuy, 5, payload); err != nil {
		return fmt.Errorf("enqueue manual buy: %w", err)
	}
	h.log.Info("manual buy enqueued", "user_id", userID, "mint", mint, "amount_sol", amountSOL)
	return nil
}

func (h *Handler) sell(ctx context.Context, chatID int64, positionID, externalEventID string) error {
	userID, err := h.users.GetOrCreateByChatID(ctx, chatID)
	if err != nil {
		return fmt.Errorf("resolve user: %w", err)
	}

	pos, err := h.positions.GetPosition(ctx, positionID)
	if err != nil {
		return fmt.Errorf("resolve position: %w", err)
	}
	if pos == nil {
		return fmt.Errorf("position %s not found", positionID)
	}
	if pos.UserID != userID {
		return fmt.Errorf("position %s does not belong to chat %d", positionID, chatID)
	}

	key := idgen.ManualSell(pos.Chain, userID, positionID, externalEventID)
	payload := queue.Payload{
		Mint:          pos.TokenMint,
		SlippageBps:   DefaultSlippageBps,
		PositionID:    positionID,
		SellPercent:   ManualSellPercent,
		ExternalEvent: externalEventID,
	}
	if err := h.jobs.Enqueue(ctx, pos.Chain, queue.ActionSell, userID, "", "", key, queue.PriorityExit, 5, payload); err != nil {
		return fmt.Errorf("enqueue manual sell: %w", err)
	}
	h.log.Info("manual sell enqueued", "user_id", userID, "position_id", positionID)
	return nil
}
