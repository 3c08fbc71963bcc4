package executor

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/gagliardetto/solana-go"

	"github.com/solsniper/sniperd/internal/executor/errorcode"
	"github.com/solsniper/sniperd/internal/ledger"
	"github.com/solsniper/sniperd/internal/queue"
	"github.com/solsniper/sniperd/internal/router"
	"github.com/solsniper/sniperd/internal/safety"
	"github.com/solsniper/sniperd/pkg/idgen"
)

// processJob runs one claimed trade_job through the 9-step algorithm
// of spec.md §4.H. Every exit path finalizes the job exactly once.
func (e *Executor) processJob(ctx context.Context, job queue.Job) {
	var payload queue.Payload
	if err := json.Unmarshal(job.Payload, &payload); err != nil {
		e.finalize(ctx, job, "", queue.StatusFailed, false, errorcode.Unknown, fmt.Sprintf("malformed payload: %v", err))
		return
	}

	mode := ledger.ModeManual
	strategyID := ""
	if job.StrategyID.Valid {
		mode = ledger.ModeAuto
		strategyID = job.StrategyID.String
	}

	// Step 1: reserve budget + idempotency.
	key := idgen.Key(job.IdempotencyKey)
	reserve, err := e.deps.Ledger.ReserveTradeBudget(ctx, mode, job.UserID, strategyID, "solana", job.Action, payload.Mint, payload.AmountSOL, key)
	if err != nil {
		e.log.Error("reserve_trade_budget failed", "job_id", job.ID, "err", err)
		e.finalize(ctx, job, "", queue.StatusFailed, true, errorcode.RPCTimeout, err.Error())
		return
	}
	if !reserve.Allowed {
		if reserve.AlreadyExecuted() {
			e.finalizeOK(ctx, job, reserve.ExecutionID)
			return
		}
		e.finalize(ctx, job, reserve.ExecutionID, queue.StatusFailed, false, errorcode.SafetyDenied, reserve.Reason)
		return
	}
	executionID := reserve.ExecutionID

	// Step 2: resolve wallet, fail-closed on address mismatch.
	wallet, err := e.deps.Wallets.ResolveActiveWallet(ctx, job.UserID, "solana")
	if err != nil {
		e.failExecution(ctx, job, executionID, errorcode.NetworkError, fmt.Sprintf("resolve wallet: %v", err))
		return
	}
	if !wallet.Matches() {
		e.failExecution(ctx, job, executionID, errorcode.WalletMismatch, "on-chain address does not match stored derived public key")
		return
	}

	// Step 3: balance + position-size limits (buys only; sells spend
	// tokens already held, not SOL).
	if job.Action == queue.ActionBuy {
		balance, err := e.deps.Balances.SOLBalance(ctx, wallet.PublicKey)
		if err != nil {
			e.failExecution(ctx, job, executionID, errorcode.NetworkError, fmt.Sprintf("fetch balance: %v", err))
			return
		}
		if code := e.checkPositionLimits(payload.AmountSOL, balance); code != "" {
			e.failExecution(ctx, job, executionID, code, "trade size outside configured limits")
			return
		}
	}

	// Step 4: fee split. Buys deduct fee from the gross spend up front;
	// sells deduct fee from proceeds once the swap confirms (below).
	netSOL := payload.AmountSOL
	feeSOL := 0.0
	if job.Action == queue.ActionBuy {
		netSOL, feeSOL = ApplyBuyFee(e.cfg.Fees, payload.AmountSOL)
	}

	// Step 5: mark SUBMITTED.
	if err := e.deps.Ledger.UpdateExecution(ctx, executionID, ledger.StatusSubmitted, "", &feeSOL, nil, "", ""); err != nil {
		e.log.Error("update_execution(SUBMITTED) failed", "execution_id", executionID, "err", err)
		e.finalize(ctx, job, executionID, queue.StatusFailed, true, errorcode.RPCTimeout, err.Error())
		return
	}

	mint, err := solana.PublicKeyFromBase58(payload.Mint)
	if err != nil {
		e.failExecution(ctx, job, executionID, errorcode.Unknown, fmt.Sprintf("invalid mint: %v", err))
		return
	}

	var bondingCurve *solana.PublicKey
	var lifecycleState router.LifecycleState
	var positionSnapshot *PositionSnapshot
	if job.Action == queue.ActionSell && payload.PositionID != "" {
		positionSnapshot, err = e.deps.Positions.Get(ctx, payload.PositionID)
		if err != nil {
			e.failExecution(ctx, job, executionID, errorcode.Unknown, fmt.Sprintf("load position: %v", err))
			return
		}
		if positionSnapshot != nil {
			bondingCurve = positionSnapshot.BondingCurve
			lifecycleState = positionSnapshot.LifecycleState
		}
	}

	intent := router.Intent{
		Side:                routerSide(job.Action),
		Mint:                mint,
		AmountSOL:           netSOL,
		AmountTokens:        payload.AmountSOL, // for sells, payload carries the token amount in the same field
		SlippageBps:         payload.SlippageBps,
		UserPubkey:          wallet.PublicKey,
		LifecycleState:      lifecycleState,
		BondingCurve:        bondingCurve,
		PriorityFeeLamports: payload.PriorityFee,
		EmergencyExit:       payload.Trigger == "EMERGENCY",
	}

	// Step 6: quote -> buildTx -> execute.
	adapter, err := e.deps.Router.Select(intent)
	if err != nil {
		e.failExecution(ctx, job, executionID, errorcode.Unknown, err.Error())
		return
	}
	quote, err := adapter.Quote(ctx, intent)
	if err != nil {
		code := classifyRouterError(err)
		retryable := code.Retryable()
		e.fail(ctx, job, executionID, code, err.Error(), retryable)
		return
	}
	unsignedTx, err := adapter.BuildTx(ctx, quote, intent)
	if err != nil {
		code := classifyRouterError(err)
		e.fail(ctx, job, executionID, code, err.Error(), code.Retryable())
		return
	}
	signedTx, err := e.deps.Wallets.Sign(ctx, job.UserID, unsignedTx)
	if err != nil {
		e.failExecution(ctx, job, executionID, errorcode.Unknown, fmt.Sprintf("sign tx: %v", err))
		return
	}

	confirmTimeout := int(e.cfg.ConfirmTimeouts.ChainConfirmTimeout.Seconds())
	if adapter.Name() == "amm" {
		confirmTimeout = int(e.cfg.ConfirmTimeouts.AMMConfirmTimeout.Seconds())
	}
	result, err := adapter.Execute(ctx, signedTx, confirmTimeout)
	if err != nil {
		e.fail(ctx, job, executionID, errorcode.Unknown, err.Error(), false)
		return
	}
	if !result.Success {
		e.fail(ctx, job, executionID, result.ErrorCode, result.ErrorCode.UserMessage(), result.ErrorCode.Retryable())
		return
	}

	// Step 7: confirm, open/realize position.
	price := quotePrice(quote, job.Action)
	tokensOut := float64(quote.OutAmount) / 1_000_000
	if job.Action == queue.ActionSell {
		tokensOut = float64(quote.InAmount) / 1_000_000
	}

	if err := e.deps.Ledger.UpdateExecution(ctx, executionID, ledger.StatusConfirmed, result.Signature, nil, &netSOL, "", ""); err != nil {
		e.log.Error("update_execution(CONFIRMED) failed", "execution_id", executionID, "err", err)
	}
	_ = e.deps.Safety.RecordSuccess(ctx, job.UserID)
	_ = e.deps.Safety.RecordSuccess(ctx, safety.ScopeGlobal)

	switch job.Action {
	case queue.ActionBuy:
		_, err := e.deps.Positions.Open(ctx, OpenPositionInput{
			EntryExecutionID: executionID,
			EntryTxSignature: result.Signature,
			EntryCostSOL:     netSOL,
			UserID:           job.UserID,
			StrategyID:       strategyID,
			Chain:            "solana",
			TokenMint:        payload.Mint,
			SizeTokens:       tokensOut,
			EntryPrice:       price,
			LifecycleState:   router.PreGraduation,
			PricingSource:    "BONDING_CURVE",
		})
		if err != nil {
			e.log.Error("open position failed after confirmed buy", "execution_id", executionID, "err", err)
		}
		_ = e.deps.Cooldowns.SetCooldown(ctx, job.UserID, payload.Mint, e.cfg.PostBuyCooldown)
		_ = e.deps.Notifier.Notify(ctx, job.UserID, "BUY_CONFIRMED", fmt.Sprintf("Bought %s, tx %s", payload.Mint, result.Signature))
	case queue.ActionSell:
		netProceeds, _ := ApplySellFee(e.cfg.Fees, float64(quote.OutAmount)/1_000_000_000)
		if payload.PositionID != "" {
			if err := e.deps.Positions.RealizeSell(ctx, payload.PositionID, payload.SellPercent, price, netProceeds); err != nil {
				e.log.Error("realize sell failed after confirmed sell", "position_id", payload.PositionID, "err", err)
			}
		}
		_ = e.deps.Notifier.Notify(ctx, job.UserID, "SELL_CONFIRMED", fmt.Sprintf("Sold %s, tx %s", payload.Mint, result.Signature))
	}

	e.finalize(ctx, job, executionID, queue.StatusDone, false, "", "")
}

func (e *Executor) checkPositionLimits(amountSOL, balance float64) errorcode.Code {
	l := e.cfg.Limits
	if l.MinSOLPerTrade > 0 && amountSOL < l.MinSOLPerTrade {
		return errorcode.PositionLimit
	}
	if l.MaxSOLPerTrade > 0 && amountSOL > l.MaxSOLPerTrade {
		return errorcode.PositionLimit
	}
	if l.MaxPercentOfBalance > 0 && balance > 0 && amountSOL > balance*l.MaxPercentOfBalance {
		return errorcode.PositionLimit
	}
	return ""
}

// failExecution marks the execution FAILED with a non-retryable code
// and finalizes the job accordingly. Used for the non-retryable errors
// of every step from wallet resolution through signing (wallet, limits,
// balance, mint, position, router selection, signing).
func (e *Executor) failExecution(ctx context.Context, job queue.Job, executionID string, code errorcode.Code, msg string) {
	e.fail(ctx, job, executionID, code, msg, false)
}

func (e *Executor) fail(ctx context.Context, job queue.Job, executionID string, code errorcode.Code, msg string, retryable bool) {
	if executionID != "" {
		if err := e.deps.Ledger.UpdateExecution(ctx, executionID, ledger.StatusFailed, "", nil, nil, string(code), msg); err != nil {
			e.log.Error("update_execution(FAILED) failed", "execution_id", executionID, "err", err)
		}
	}
	if !retryable {
		_ = e.deps.Safety.RecordFailure(ctx, job.UserID, e.cfg.CircuitCooldown)
		_ = e.deps.Safety.RecordFailure(ctx, safety.ScopeGlobal, e.cfg.CircuitCooldown)
	}
	e.finalize(ctx, job, executionID, queue.StatusFailed, retryable, code, msg)
}

func (e *Executor) finalize(ctx context.Context, job queue.Job, executionID, status string, retryable bool, code errorcode.Code, msg string) {
	finalStatus, err := e.deps.Queue.Finalize(ctx, job.ID, e.cfg.WorkerID, status, retryable, msg)
	if err != nil {
		e.log.Error("finalize_job failed", "job_id", job.ID, "err", err)
	}
	e.emit(Event{JobID: job.ID, UserID: job.UserID, Action: job.Action, Status: finalStatus, ErrorCode: string(code)})
}

func (e *Executor) finalizeOK(ctx context.Context, job queue.Job, executionID string) {
	e.finalize(ctx, job, executionID, queue.StatusDone, false, "", "")
}

func routerSide(action string) router.Side {
	if action == queue.ActionSell {
		return router.SideSell
	}
	return router.SideBuy
}

func quotePrice(q *router.Quote, action string) float64 {
	if q.InAmount == 0 {
		return 0
	}
	// Amounts are lamports and 6-decimal token base units; the price is
	// SOL per whole token, the unit the position price fetchers return.
	if action == queue.ActionSell {
		return (float64(q.OutAmount) / 1_000_000_000) / (float64(q.InAmount) / 1_000_000)
	}
	return (float64(q.InAmount) / 1_000_000_000) / (float64(q.OutAmount) / 1_000_000)
}

// classifyRouterError maps an adapter Quote/BuildTx error (a plain Go
// error, not yet an ExecResult) onto the central error-code table, per
// spec.md §9 open question (b).
func classifyRouterError(err error) errorcode.Code {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "graduated"):
		return errorcode.TokenGraduated
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return errorcode.RPCTimeout
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "429"):
		return errorcode.RPCRateLimited
	case strings.Contains(msg, "simulation"):
		return errorcode.SimulationFailed
	case strings.Contains(msg, "slippage"):
		return errorcode.SlippageExceeded
	case strings.Contains(msg, "insufficient"):
		return errorcode.InsufficientFunds
	default:
		return errorcode.Unknown
	}
}
