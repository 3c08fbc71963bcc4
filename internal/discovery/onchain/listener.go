package onchain

import (
	"context"
	"encoding/json"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gorilla/websocket"

	"github.com/solsniper/sniperd/internal/discovery"
	"github.com/solsniper/sniperd/pkg/logging"
)

// backoffSchedule is spec.md §4.E's exact reconnect cadence: 3, 6, 9,
// 12, 15 seconds, then a 60-second cooldown repeated for any further
// attempt.
var backoffSchedule = []time.Duration{
	3 * time.Second, 6 * time.Second, 9 * time.Second, 12 * time.Second, 15 * time.Second,
}

const reconnectCooldown = 60 * time.Second

// heartbeatInterval keeps the connection alive under the RPC node's
// 10-minute inactivity timeout.
const heartbeatInterval = 30 * time.Second

// Merger is the subset of discovery.Store the listener needs.
type Merger interface {
	Merge(ctx context.Context, c discovery.Candidate) (discovery.MergeResult, error)
}

// TransactionFetcher resolves a signature into its flattened
// instructions, satisfied by *RPCTransactionFetcher in production.
type TransactionFetcher interface {
	FetchTransaction(ctx context.Context, signature string) (*DecodedTransaction, error)
}

// CrossProcessDedup is the subset of internal/cache.Dedup the listener
// needs, satisfied by a Redis-backed hint cache when multiple sniperd
// processes subscribe to the same program. Nil disables it; unlike the
// telegram listener this source has no in-process dedup of its own, so
// every pool-init signal reaches merge_launch_candidate directly when
// no cache is configured.
type CrossProcessDedup interface {
	Allow(ctx context.Context, mint string) bool
}

// Listener subscribes to the launchpad program's on-chain logs and
// feeds decoded pool-initialize signals into the shared discovery
// store.
type Listener struct {
	wsURL      string
	programID  solana.PublicKey
	fetcher    TransactionFetcher
	store      Merger
	dedup      CrossProcessDedup
	log        *logging.Logger
	dial       func(url string) (*websocket.Conn, error)
	stop, done chan struct{}
}

// NewListener constructs a Listener targeting wsURL's logsSubscribe
// endpoint for programID. dedup may be nil when no shared cache is
// configured.
func NewListener(wsURL string, programID solana.PublicKey, fetcher TransactionFetcher, store Merger, dedup CrossProcessDedup) *Listener {
	return &Listener{
		wsURL:     wsURL,
		programID: programID,
		fetcher:   fetcher,
		store:     store,
		dedup:     dedup,
		log:       logging.GetDefault().Component("discovery.onchain"),
		dial: func(url string) (*websocket.Conn, error) {
			conn, _, err := websocket.DefaultDialer.Dial(url, nil)
			return conn, err
		},
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
}

// Start begins the connect/consume/reconnect loop in a background
// goroutine.
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

	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.stop:
			return
		default:
		}

		conn, err := l.dial(l.wsURL)
		if err != nil {
			l.log.Error("dial on-chain log stream", "error", err, "attempt", attempt)
			if !l.sleepBackoff(ctx, attempt) {
				return
			}
			attempt++
			continue
		}

		attempt = 0
		if err := l.consume(ctx, conn); err != nil {
			l.log.Warn("on-chain log stream disconnected", "error", err)
		}
		conn.Close()

		if !l.sleepBackoff(ctx, attempt) {
			return
		}
		attempt++
	}
}

// sleepBackoff waits the scheduled backoff for attempt, reporting
// false if the listener was stopped during the wait.
func (l *Listener) sleepBackoff(ctx context.Context, attempt int) bool {
	delay := reconnectCooldown
	if attempt < len(backoffSchedule) {
		delay = backoffSchedule[attempt]
	}
	timer := time.NewTimer(delay)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-l.stop:
		return false
	case <-timer.C:
		return true
	}
}

// consume subscribes and reads notifications until the connection
// errors or is closed; any pending subscription is re-issued here
// since it's called fresh on every reconnect.
func (l *Listener) consume(ctx context.Context, conn *websocket.Conn) error {
	req := newLogsSubscribeRequest(1, l.programID.String())
	if err := conn.WriteJSON(req); err != nil {
		return err
	}

	heartbeat := time.NewTicker(heartbeatInterval)
	defer heartbeat.Stop()

	msgs := make(chan []byte, 16)
	readErrs := make(chan error, 1)
	go func() {
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				readErrs <- err
				return
			}
			msgs <- data
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-l.stop:
			return nil
		case <-heartbeat.C:
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return err
			}
		case err := <-readErrs:
			return err
		case data := <-msgs:
			l.handleMessage(ctx, data)
		}
	}
}

func (l *Listener) handleMessage(ctx context.Context, data []byte) {
	var note logsNotification
	if err := json.Unmarshal(data, &note); err != nil {
		return
	}
	if !note.isLogsNotification() || note.failed() {
		return
	}

	signature := note.Params.Result.Value.Signature
	if signature == "" {
		return
	}

	tx, err := l.fetcher.FetchTransaction(ctx, signature)
	if err != nil {
		l.log.Error("fetch transaction for log notification", "signature", signature, "error", err)
		return
	}

	inits, err := ExtractPoolInits(l.programID, tx)
	if err != nil {
		l.log.Error("extract pool inits", "signature", signature, "error", err)
		return
	}

	for _, init := range inits {
		mint := init.Mint.String()
		if l.dedup != nil && !l.dedup.Allow(ctx, mint) {
			continue
		}
		_, err := l.store.Merge(ctx, discovery.Candidate{
			Mint:            mint,
			Source:          "launchpad",
			Chain:           "solana",
			DiscoveryMethod: discovery.MethodOnchain,
			RawPayload: map[string]any{
				"signature": init.Signature,
				"pool":      init.Pool.String(),
				"creator":   init.Creator.String(),
			},
		})
		if err != nil {
			l.log.Error("merge on-chain candidate", "mint", init.Mint, "error", err)
		}
	}
}
