package telegram

import (
	"context"
	"fmt"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/solsniper/sniperd/internal/discovery"
	"github.com/solsniper/sniperd/internal/external/chat"
	"github.com/solsniper/sniperd/pkg/logging"
)

// Merger is the subset of discovery.Store the listener needs; kept as
// an interface so tests exercise handleMessage without a database.
type Merger interface {
	Merge(ctx context.Context, c discovery.Candidate) (discovery.MergeResult, error)
}

// CrossProcessDedup is the subset of internal/cache.Dedup the listener
// needs, satisfied by a Redis-backed hint cache when multiple sniperd
// processes watch the same channel. Nil disables it; the in-process
// dedup still runs either way.
type CrossProcessDedup interface {
	Allow(ctx context.Context, mint string) bool
}

// ManualHandler is the subset of chat.Handler the listener needs to
// route a user's private commands and button taps into manual
// trade_jobs. The bot polls one long-lived updates channel, so manual
// trading is dispatched from the same loop that watches the discovery
// channel rather than opening a second GetUpdatesChan consumer on the
// same bot (Telegram's getUpdates offset is not safe to share between
// two independent pollers).
type ManualHandler interface {
	HandleIntent(ctx context.Context, chatID int64, intent chat.Intent) error
	HandleCallback(ctx context.Context, chatID int64, cb chat.Callback) error
}

// Listener consumes updates from a monitored Telegram channel and
// feeds parsed candidates into the shared discovery store, the same
// long-running-loop shape as position.Monitor and lifecycle.Monitor.
type Listener struct {
	bot        *tgbotapi.BotAPI
	channelID  int64
	store      Merger
	dedupe     *dedup
	crossDedup CrossProcessDedup
	manual     ManualHandler
	log        *logging.Logger
	stop, done chan struct{}
}

// NewListener constructs a Listener. channelID restricts processing to
// messages from that chat; pass 0 to process every update the bot
// receives (useful when the bot is only added to one channel). crossDedup
// may be nil when no shared cache is configured.
func NewListener(bot *tgbotapi.BotAPI, channelID int64, store Merger, dedupeWindow time.Duration, crossDedup CrossProcessDedup) *Listener {
	return &Listener{
		bot:        bot,
		channelID:  channelID,
		store:      store,
		dedupe:     newDedup(dedupeWindow),
		crossDedup: crossDedup,
		log:        logging.GetDefault().Component("discovery.telegram"),
		stop:       make(chan struct{}),
		done:       make(chan struct{}),
	}
}

// SetManualHandler wires manual-trade dispatch into the listener's
// update loop. Nil (the default) disables it; the listener then only
// ever performs discovery.
func (l *Listener) SetManualHandler(manual ManualHandler) {
	l.manual = manual
}

// Start begins consuming updates in a background goroutine.
func (l *Listener) Start(ctx context.Context) {
	go l.run(ctx)
}

// Stop blocks until the listener's goroutine has exited.
func (l *Listener) Stop() {
	close(l.stop)
	<-l.done
}

func (l *Listener) run(ctx context.Context) {
	defer close(l.done)

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := l.bot.GetUpdatesChan(u)

	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stop:
			return
		case update, ok := <-updates:
			if !ok {
				return
			}
			if err := l.handleUpdate(ctx, update); err != nil {
				l.log.Error("handle telegram update", "error", err)
			}
		}
	}
}

func (l *Listener) handleUpdate(ctx context.Context, update tgbotapi.Update) error {
	if update.CallbackQuery != nil {
		return l.handleCallbackQuery(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.Text == "" {
		return nil
	}
	if update.Message.IsCommand() {
		return l.handleCommand(ctx, update.Message)
	}
	if l.channelID != 0 && update.Message.Chat.ID != l.channelID {
		return nil
	}
	return l.handleMessage(ctx, update.Message.Text)
}

// handleCommand routes a private `/command` message to the manual
// handler. Commands never feed the discovery merge pipeline.
func (l *Listener) handleCommand(ctx context.Context, msg *tgbotapi.Message) error {
	if l.manual == nil {
		return nil
	}
	intent, err := chat.ParseCommand(msg.Text, fmt.Sprintf("%d:%d", msg.Chat.ID, msg.MessageID))
	if err != nil {
		l.log.Debug("unparseable command", "error", err)
		return nil
	}
	return l.manual.HandleIntent(ctx, msg.Chat.ID, intent)
}

func (l *Listener) handleCallbackQuery(ctx context.Context, query *tgbotapi.CallbackQuery) error {
	if l.manual == nil {
		return nil
	}
	cb, err := chat.ParseCallback(query.Data, query.ID)
	if err != nil {
		l.log.Debug("unparseable callback", "error", err)
		return nil
	}
	return l.manual.HandleCallback(ctx, query.From.ID, cb)
}

// handleMessage runs the parse -> dedup -> merge pipeline for one
// message's text. Split out from handleUpdate so it's testable without
// constructing a tgbotapi.Update.
func (l *Listener) handleMessage(ctx context.Context, text string) error {
	result := ParseMessage(text)
	if !result.OK {
		l.log.Debug("message yielded no candidate", "reason", result.Reason)
		return nil
	}
	if !l.dedupe.Allow(result.Candidate.Mint, time.Now()) {
		return nil
	}
	if l.crossDedup != nil && !l.crossDedup.Allow(ctx, result.Candidate.Mint) {
		return nil
	}

	_, err := l.store.Merge(ctx, discovery.Candidate{
		Mint:            result.Candidate.Mint,
		Source:          "launchpad",
		Chain:           "solana",
		DiscoveryMethod: discovery.MethodTelegram,
		RawPayload:      map[string]any{"text": result.Candidate.Raw},
	})
	return err
}
