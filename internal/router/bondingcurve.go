package router

import (
	"context"
	"encoding/binary"
	"fmt"
	"math/bits"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/rpc"

	"github.com/solsniper/sniperd/internal/executor/errorcode"
	"github.com/solsniper/sniperd/pkg/logging"
)

// CurveState is the decoded on-chain bonding-curve account, laid out
// the way the launchpad's virtual-reserve program serializes it:
// two little-endian u64 reserves followed by a completion flag.
type CurveState struct {
	VirtualSOLReserves   uint64
	VirtualTokenReserves uint64
	RealSOLReserves      uint64
	RealTokenReserves    uint64
	Complete             bool
}

// DecodeCurveState parses a bonding-curve account's raw data. The
// 8-byte anchor discriminator is skipped; the remaining fields are
// fixed-width little-endian, matching how gagliardetto/binary decodes
// borsh-style account layouts elsewhere in the example corpus.
func DecodeCurveState(data []byte) (*CurveState, error) {
	const headerLen = 8
	const bodyLen = 8*4 + 1
	if len(data) < headerLen+bodyLen {
		return nil, fmt.Errorf("curve account too short: %d bytes", len(data))
	}
	body := data[headerLen:]
	return &CurveState{
		VirtualSOLReserves:   binary.LittleEndian.Uint64(body[0:8]),
		VirtualTokenReserves: binary.LittleEndian.Uint64(body[8:16]),
		RealSOLReserves:      binary.LittleEndian.Uint64(body[16:24]),
		RealTokenReserves:    binary.LittleEndian.Uint64(body[24:32]),
		Complete:             body[32] != 0,
	}, nil
}

// Quote computes the constant-product (x*y=k) output for trading
// amountIn lamports (buy) or tokens (sell) against the curve.
func (c *CurveState) quoteBuy(amountInLamports uint64) uint64 {
	// k is a 128-bit product: real reserves overflow a uint64.
	hi, lo := bits.Mul64(c.VirtualSOLReserves, c.VirtualTokenReserves)
	newSOL := c.VirtualSOLReserves + amountInLamports
	if newSOL <= c.VirtualSOLReserves {
		return 0
	}
	newTokens, _ := bits.Div64(hi, lo, newSOL)
	if newTokens >= c.VirtualTokenReserves {
		return 0
	}
	return c.VirtualTokenReserves - newTokens
}

func (c *CurveState) quoteSell(amountInTokens uint64) uint64 {
	hi, lo := bits.Mul64(c.VirtualSOLReserves, c.VirtualTokenReserves)
	newTokens := c.VirtualTokenReserves + amountInTokens
	if newTokens <= c.VirtualTokenReserves {
		return 0
	}
	newSOL, _ := bits.Div64(hi, lo, newTokens)
	if newSOL >= c.VirtualSOLReserves {
		return 0
	}
	return c.VirtualSOLReserves - newSOL
}

// AccountFetcher reads raw account data, satisfied by *rpc.Client in
// production and a fake in tests.
type AccountFetcher interface {
	GetAccountDataInto(ctx context.Context, account solana.PublicKey, into interface{}) error
	GetAccountInfo(ctx context.Context, account solana.PublicKey) (*rpc.GetAccountInfoResult, error)
}

// TxSubmitter sends a signed transaction and waits for confirmation,
// satisfied by *rpc.Client / ws.Client pairs in production.
type TxSubmitter interface {
	SendTransactionWithOpts(ctx context.Context, tx *solana.Transaction, opts rpc.TransactionOpts) (solana.Signature, error)
	GetSignatureStatuses(ctx context.Context, searchTransactionHistory bool, sigs ...solana.Signature) (*rpc.GetSignatureStatusesResult, error)
}

// BondingCurveAdapter prices and executes swaps directly against the
// launchpad's on-chain curve accounts, grounded on solana-pump-bot's
// direct-RPC trading path and VladislavFirsov-solana-token-lab's
// bonding-curve domain model.
type BondingCurveAdapter struct {
	programID solana.PublicKey
	fetcher   AccountFetcher
	submitter TxSubmitter
	log       *logging.Logger
}

// NewBondingCurveAdapter constructs the adapter for a given launchpad
// program.
func NewBondingCurveAdapter(programID solana.PublicKey, fetcher AccountFetcher, submitter TxSubmitter) *BondingCurveAdapter {
	return &BondingCurveAdapter{
		programID: programID,
		fetcher:   fetcher,
		submitter: submitter,
		log:       logging.GetDefault().Component("router.bondingcurve"),
	}
}

func (a *BondingCurveAdapter) Name() string { return "bonding_curve" }

func (a *BondingCurveAdapter) CanHandle(intent Intent) bool {
	return intent.LifecycleState == PreGraduation || intent.BondingCurve != nil
}

func (a *BondingCurveAdapter) Quote(ctx context.Context, intent Intent) (*Quote, error) {
	if intent.BondingCurve == nil {
		return nil, fmt.Errorf("bonding curve adapter requires a curve account")
	}
	info, err := a.fetcher.GetAccountInfo(ctx, *intent.BondingCurve)
	if err != nil {
		return nil, fmt.Errorf("fetch curve account: %w", err)
	}
	if info == nil || info.Value == nil {
		return nil, fmt.Errorf("curve account %s not found", intent.BondingCurve)
	}
	state, err := DecodeCurveState(info.Value.Data.GetBinary())
	if err != nil {
		return nil, fmt.Errorf("decode curve state: %w", err)
	}
	if state.Complete {
		return nil, fmt.Errorf("%w: curve already graduated", errGraduated)
	}

	var in, out uint64
	if intent.Side == SideBuy {
		in = lamports(intent.AmountSOL)
		out = state.quoteBuy(in)
	} else {
		in = tokenUnits(intent.AmountTokens)
		out = state.quoteSell(in)
	}
	if out == 0 {
		return nil, fmt.Errorf("curve quote produced zero output")
	}

	return &Quote{
		Venue:          a.Name(),
		InAmount:       in,
		OutAmount:      out,
		MinOutput:      MinOutput(out, intent.SlippageBps),
		PriceImpactBps: priceImpactBps(state, intent.Side, in),
	}, nil
}

func (a *BondingCurveAdapter) BuildTx(ctx context.Context, quote *Quote, intent Intent) ([]byte, error) {
	if intent.BondingCurve == nil {
		return nil, fmt.Errorf("bonding curve adapter requires a curve account")
	}
	ixData := make([]byte, 8+8+8)
	copy(ixData[0:8], curveSwapDiscriminator(intent.Side))
	binary.LittleEndian.PutUint64(ixData[8:16], quote.InAmount)
	binary.LittleEndian.PutUint64(ixData[16:24], quote.MinOutput)

	ix := solana.NewInstruction(a.programID, solana.AccountMetaSlice{
		solana.NewAccountMeta(*intent.BondingCurve, true, false),
		solana.NewAccountMeta(intent.Mint, false, false),
		solana.NewAccountMeta(intent.UserPubkey, true, true),
	}, ixData)

	tx, err := solana.NewTransaction([]solana.Instruction{ix}, solana.Hash{}, solana.TransactionPayer(intent.UserPubkey))
	if err != nil {
		return nil, fmt.Errorf("build curve swap tx: %w", err)
	}
	return tx.MarshalBinary()
}

func (a *BondingCurveAdapter) Execute(ctx context.Context, signedTx []byte, confirmTimeoutSeconds int) (*ExecResult, error) {
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
