package router

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/solsniper/sniperd/internal/executor/errorcode"
	"github.com/solsniper/sniperd/pkg/logging"
)

const solMint = "So11111111111111111111111111111111111111112"

// jupiterQuoteResponse is the subset of Jupiter's /quote response this
// adapter needs, grounded on Jonaed13-potential-pancake's jupiter.Client.
type jupiterQuoteResponse struct {
	InAmount       string `json:"inAmount"`
	OutAmount      string `json:"outAmount"`
	PriceImpactPct string `json:"priceImpactPct"`
}

type jupiterSwapRequest struct {
	QuoteResponse    json.RawMessage `json:"quoteResponse"`
	UserPublicKey    string          `json:"userPublicKey"`
	PrioritizationFeeLamports uint64 `json:"prioritizationFeeLamports,omitempty"`
}

type jupiterSwapResponse struct {
	SwapTransaction string `json:"swapTransaction"`
}

// AMMAdapter routes swaps through the Jupiter aggregator's quote and
// swap-build HTTP API, grounded on Jonaed13-potential-pancake's
// jupiter.Client.GetSwapTransaction.
type AMMAdapter struct {
	baseURL    string
	httpClient *http.Client
	submitter  TxSubmitter
	log        *logging.Logger

	lastQuoteRaw json.RawMessage
}

// NewAMMAdapter constructs the Jupiter-backed AMM adapter.
func NewAMMAdapter(baseURL string, submitter TxSubmitter) *AMMAdapter {
	return &AMMAdapter{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		submitter:  submitter,
		log:        logging.GetDefault().Component("router.amm"),
	}
}

func (a *AMMAdapter) Name() string { return "amm" }

func (a *AMMAdapter) CanHandle(intent Intent) bool {
	return intent.LifecycleState == PostGraduation || intent.LifecycleState == ""
}

func (a *AMMAdapter) Quote(ctx context.Context, intent Intent) (*Quote, error) {
	inMint, outMint := solMint, intent.Mint.String()
	amount := lamports(intent.AmountSOL)
	if intent.Side == SideSell {
		inMint, outMint = intent.Mint.String(), solMint
		amount = tokenUnits(intent.AmountTokens)
	}

	url := fmt.Sprintf("%s/quote?inputMint=%s&outputMint=%s&amount=%d&slippageBps=%d",
		a.baseURL, inMint, outMint, amount, clampSlippageBps(intent.SlippageBps))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build jupiter quote request: %w", err)
	}
	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jupiter quote: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jupiter quote returned status %d", resp.StatusCode)
	}

	var raw json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode jupiter quote: %w", err)
	}
	var parsed jupiterQuoteResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil, fmt.Errorf("parse jupiter quote: %w", err)
	}

	in, out := parseUint(parsed.InAmount), parseUint(parsed.OutAmount)
	if out == 0 {
		return nil, fmt.Errorf("jupiter quote produced zero output")
	}
	a.lastQuoteRaw = raw

	return &Quote{
		Venue:     a.Name(),
		InAmount:  in,
		OutAmount: out,
		MinOutput: MinOutput(out, intent.SlippageBps),
		Raw:       raw,
	}, nil
}

func (a *AMMAdapter) BuildTx(ctx context.Context, quote *Quote, intent Intent) ([]byte, error) {
	body, err := json.Marshal(jupiterSwapRequest{
		QuoteResponse:             quote.Raw,
		UserPublicKey:             intent.UserPubkey.String(),
		PrioritizationFeeLamports: intent.PriorityFeeLamports,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal jupiter swap request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, a.baseURL+"/swap", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build jupiter swap request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("jupiter swap build: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("jupiter swap build returned status %d", resp.StatusCode)
	}

	var swapResp jupiterSwapResponse
	if err := json.NewDecoder(resp.Body).Decode(&swapResp); err != nil {
		return nil, fmt.Errorf("decode jupiter swap response: %w", err)
	}
	return base64DecodeTx(swapResp.SwapTransaction)
}

func (a *AMMAdapter) Execute(ctx context.Context, signedTx []byte, confirmTimeoutSeconds int) (*ExecResult, error) {
	tx, err := solana.TransactionFromDecoder(newBinDecoder(signedTx))
	if err != nil {
		return &ExecResult{Success: false, ErrorCode: errorcode.SimulationFailed}, fmt.Errorf("decode signed tx: %w", err)
	}

	sig, err := a.submitter.SendTransactionWithOpts(ctx, tx, rpc.TransactionOpts{SkipPreflight: false})
	if err != nil {
		return &ExecResult{Success: false, ErrorCode: classifySendError(err)}, nil
	}

	deadline := time.Now().Add(time.Duration(confirmTimeoutSeconds) * time.Second)
	for time.Now().Before(deadline) {
		statuses, err := a.submitter.GetSignatureStatuses(ctx, true, sig)
		if err == nil && len(statuses.Value) > 0 && statuses.Value[0] != nil {
			st := statuses.Value[0]
			if st.Err != nil {
				return &ExecResult{Signature: sig.String(), Success: false, ErrorCode: errorcode.SimulationFailed}, nil
			}
			if st.ConfirmationStatus == rpc.ConfirmationStatusConfirmed || st.ConfirmationStatus == rpc.ConfirmationStatusFinalized {
				return &ExecResult{Signature: sig.String(), Success: true}, nil
			}
		}
		time.Sleep(500 * time.Millisecond)
	}
	return &ExecResult{Signature: sig.String(), Success: false, ErrorCode: errorcode.RPCTimeout}, nil
}
