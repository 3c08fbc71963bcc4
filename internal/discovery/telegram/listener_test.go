package telegram

import (
	"context"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/solsniper/sniperd/internal/discovery"
	"github.com/solsniper/sniperd/internal/external/chat"
	"github.com/solsniper/sniperd/pkg/logging"
)

type fakeMerger struct {
	calls []discovery.Candidate
	err   error
}

func (f *fakeMerger) Merge(ctx context.Context, c discovery.Candidate) (discovery.MergeResult, error) {
	f.calls = append(f.calls, c)
	return discovery.MergeResult{IsNew: true, DiscoveryMethod: c.DiscoveryMethod}, f.err
}

func newTestListener(store Merger) *Listener {
	return &Listener{
		store:  store,
		dedupe: newDedup(5 * time.Minute),
		log:    logging.GetDefault().Component("discovery.telegram.test"),
	}
}

func TestHandleMessageMergesParsedCandidate(t *testing.T) {
	merger := &fakeMerger{}
	l := newTestListener(merger)

	if err := l.handleMessage(t.Context(), "Mint: "+mintA+" fresh launch"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(merger.calls) != 1 {
		t.Fatalf("expected one merge call, got %d", len(merger.calls))
	}
	if merger.calls[0].Mint != mintA || merger.calls[0].DiscoveryMethod != discovery.MethodTelegram {
		t.Fatalf("unexpected candidate: %+v", merger.calls[0])
	}
}

func TestHandleMessageSkipsMessagesWithoutCandidate(t *testing.T) {
	merger := &fakeMerger{}
	l := newTestListener(merger)

	if err := l.handleMessage(t.Context(), "gm gm nothing here"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(merger.calls) != 0 {
		t.Fatalf("expected no merge calls, got %d", len(merger.calls))
	}
}

type fakeCrossDedup struct {
	allow bool
	calls []string
}

func (f *fakeCrossDedup) Allow(ctx context.Context, mint string) bool {
	f.calls = append(f.calls, mint)
	return f.allow
}

func TestHandleMessageConsultsCrossProcessDedup(t *testing.T) {
	merger := &fakeMerger{}
	cross := &fakeCrossDedup{allow: false}
	l := newTestListener(merger)
	l.crossDedup = cross

	if err := l.handleMessage(t.Context(), "Mint: "+mintA); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(cross.calls) != 1 || cross.calls[0] != mintA {
		t.Fatalf("expected cross-process dedup to be consulted for %s, got %v", mintA, cross.calls)
	}
	if len(merger.calls) != 0 {
		t.Fatalf("expected merge to be suppressed when cross-process dedup denies, got %d calls", len(merger.calls))
	}
}

type fakeManualHandler struct {
	intents   []chat.Intent
	callbacks []chat.Callback
	chatIDs   []int64
}

func (f *fakeManualHandler) HandleIntent(ctx context.Context, chatID int64, intent chat.Intent) error {
	f.intents = append(f.intents, intent)
	f.chatIDs = append(f.chatIDs, chatID)
	return nil
}

func (f *fakeManualHandler) HandleCallback(ctx context.Context, chatID int64, cb chat.Callback) error {
	f.callbacks = append(f.callbacks, cb)
	f.chatIDs = append(f.chatIDs, chatID)
	return nil
}

func TestHandleCommandDispatchesSnipeToManualHandler(t *testing.T) {
	manual := &fakeManualHandler{}
	l := newTestListener(&fakeMerger{})
	l.manual = manual

	msg := &tgbotapi.Message{
		MessageID: 7,
		Chat:      &tgbotapi.Chat{ID: 42},
		Text:      "/snipe " + mintA + " 1.5 solana",
	}
	if err := l.handleCommand(t.Context(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(manual.intents) != 1 || manual.intents[0].Command != chat.CmdSnipe {
		t.Fatalf("expected one snipe intent dispatched, got %+v", manual.intents)
	}
	if manual.chatIDs[0] != 42 {
		t.Fatalf("expected chat id 42, got %d", manual.chatIDs[0])
	}
}

func TestHandleCommandSkipsWithoutManualHandler(t *testing.T) {
	l := newTestListener(&fakeMerger{})
	msg := &tgbotapi.Message{MessageID: 1, Chat: &tgbotapi.Chat{ID: 1}, Text: "/snipe " + mintA + " 1 solana"}
	if err := l.handleCommand(t.Context(), msg); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestHandleCallbackQueryDispatchesConfirmSell(t *testing.T) {
	manual := &fakeManualHandler{}
	l := newTestListener(&fakeMerger{})
	l.manual = manual

	query := &tgbotapi.CallbackQuery{
		ID:   "cbq-1",
		From: &tgbotapi.User{ID: 99},
		Data: "confirm_sell:pos-1",
	}
	if err := l.handleCallbackQuery(t.Context(), query); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(manual.callbacks) != 1 || manual.callbacks[0].Kind != chat.CallbackConfirmSell {
		t.Fatalf("expected one confirm_sell callback dispatched, got %+v", manual.callbacks)
	}
	if manual.chatIDs[0] != 99 {
		t.Fatalf("expected chat id 99, got %d", manual.chatIDs[0])
	}
}

func TestHandleMessageDedupesRepeatedMint(t *testing.T) {
	merger := &fakeMerger{}
	l := newTestListener(merger)

	text := "Mint: " + mintA
	if err := l.handleMessage(t.Context(), text); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := l.handleMessage(t.Context(), text); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(merger.calls) != 1 {
		t.Fatalf("expected dedup to suppress the second identical sighting, got %d calls", len(merger.calls))
	}
}
