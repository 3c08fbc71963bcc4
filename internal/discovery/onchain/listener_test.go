package onchain

import (
	"context"
	"testing"

	"github.com/gagliardetto/solana-go"

	"github.com/solsniper/sniperd/internal/discovery"
	"github.com/solsniper/sniperd/pkg/logging"
)

type fakeFetcher struct {
	tx  *DecodedTransaction
	err error
}

func (f *fakeFetcher) FetchTransaction(ctx context.Context, signature string) (*DecodedTransaction, error) {
	return f.tx, f.err
}

type fakeMerger struct {
	calls []discovery.Candidate
}

func (f *fakeMerger) Merge(ctx context.Context, c discovery.Candidate) (discovery.MergeResult, error) {
	f.calls = append(f.calls, c)
	return discovery.MergeResult{IsNew: true, DiscoveryMethod: c.DiscoveryMethod}, nil
}

func newTestListener(fetcher TransactionFetcher, store Merger) *Listener {
	return &Listener{
		programID: testProgramID,
		fetcher:   fetcher,
		store:     store,
		log:       logging.GetDefault().Component("discovery.onchain.test"),
	}
}

func TestHandleMessageMergesDecodedPoolInit(t *testing.T) {
	tx := &DecodedTransaction{
		Signature: "sig1",
		Instructions: []CompiledInstruction{
			{ProgramID: testProgramID, Accounts: []solana.PublicKey{testCreator, testMint, testPool}, Data: poolInitData()},
		},
	}
	merger := &fakeMerger{}
	l := newTestListener(&fakeFetcher{tx: tx}, merger)

	data := []byte(`{"method":"logsNotification","params":{"result":{"value":{"signature":"sig1","err":null}}}}`)
	l.handleMessage(context.Background(), data)

	if len(merger.calls) != 1 {
		t.Fatalf("expected one merge call, got %d", len(merger.calls))
	}
	if merger.calls[0].Mint != testMint.String() || merger.calls[0].DiscoveryMethod != discovery.MethodOnchain {
		t.Fatalf("unexpected candidate: %+v", merger.calls[0])
	}
}

type fakeDedup struct {
	allow bool
	calls []string
}

func (f *fakeDedup) Allow(ctx context.Context, mint string) bool {
	f.calls = append(f.calls, mint)
	return f.allow
}

func TestHandleMessageSkipsMintDeniedByDedup(t *testing.T) {
	tx := &DecodedTransaction{
		Signature: "sig1",
		Instructions: []CompiledInstruction{
			{ProgramID: testProgramID, Accounts: []solana.PublicKey{testCreator, testMint, testPool}, Data: poolInitData()},
		},
	}
	merger := &fakeMerger{}
	dedup := &fakeDedup{allow: false}
	l := newTestListener(&fakeFetcher{tx: tx}, merger)
	l.dedup = dedup

	data := []byte(`{"method":"logsNotification","params":{"result":{"value":{"signature":"sig1","err":null}}}}`)
	l.handleMessage(context.Background(), data)

	if len(dedup.calls) != 1 || dedup.calls[0] != testMint.String() {
		t.Fatalf("expected dedup to be consulted for %s, got %v", testMint.String(), dedup.calls)
	}
	if len(merger.calls) != 0 {
		t.Fatalf("expected merge to be suppressed when dedup denies, got %d calls", len(merger.calls))
	}
}

func TestHandleMessageIgnoresFailedTransactions(t *testing.T) {
	merger := &fakeMerger{}
	l := newTestListener(&fakeFetcher{}, merger)

	data := []byte(`{"method":"logsNotification","params":{"result":{"value":{"signature":"sig1","err":{"InstructionError":[0,"Custom"]}}}}}`)
	l.handleMessage(context.Background(), data)

	if len(merger.calls) != 0 {
		t.Fatalf("expected failed transaction to be ignored, got %d calls", len(merger.calls))
	}
}

func TestHandleMessageIgnoresNonLogsNotifications(t *testing.T) {
	merger := &fakeMerger{}
	l := newTestListener(&fakeFetcher{}, merger)

	data := []byte(`{"id":1,"result":12345}`)
	l.handleMessage(context.Background(), data)

	if len(merger.calls) != 0 {
		t.Fatalf("expected subscribe ack to be ignored, got %d calls", len(merger.calls))
	}
}

func TestSleepBackoffScheduleHasFiveStepsThenCooldown(t *testing.T) {
	if len(backoffSchedule) != 5 {
		t.Fatalf("expected 5-step backoff schedule, got %d", len(backoffSchedule))
	}
	want := []int{3, 6, 9, 12, 15}
	for i, w := range want {
		if int(backoffSchedule[i].Seconds()) != w {
			t.Fatalf("backoffSchedule[%d] = %v, want %ds", i, backoffSchedule[i], w)
		}
	}
	if reconnectCooldown.Seconds() != 60 {
		t.Fatalf("expected 60s cooldown, got %v", reconnectCooldown)
	}
}

func TestSleepBackoffReturnsFalseWhenContextCanceled(t *testing.T) {
	l := &Listener{stop: make(chan struct{}), done: make(chan struct{})}
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if l.sleepBackoff(ctx, 0) {
		t.Fatal("expected sleepBackoff to return false for a canceled context")
	}
}
