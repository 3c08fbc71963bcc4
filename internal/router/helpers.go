package router

import (
	"encoding/base64"
	"errors"
	"strconv"
	"strings"

	bin "github.com/gagliardetto/binary"

	"github.com/solsniper/sniperd/internal/executor/errorcode"
)

var errGraduated = errors.New("curve graduated")

const lamportsPerSOL = 1_000_000_000
const tokenDecimals = 1_000_000 // launchpad tokens use 6 decimals, matching pump.fun-style mints

func lamports(sol float64) uint64 {
	return uint64(sol * lamportsPerSOL)
}

func tokenUnits(tokens float64) uint64 {
	return uint64(tokens * tokenDecimals)
}

// curveSwapDiscriminator returns the 8-byte instruction discriminator
// for the curve program's buy/sell instruction. These are fixed by
// the launchpad's IDL; matching §4.E's instruction-discriminator
// matching approach rather than log-pattern regex.
func curveSwapDiscriminator(side Side) []byte {
	if side == SideBuy {
		return []byte{0x66, 0x06, 0x3d, 0x12, 0x01, 0xda, 0xeb, 0xea}
	}
	return []byte{0x33, 0xe6, 0x85, 0xa4, 0x01, 0x7f, 0x83, 0xad}
}

func priceImpactBps(state *CurveState, side Side, amountIn uint64) int {
	if state.VirtualSOLReserves == 0 {
		return 0
	}
	if side == SideBuy {
		return int((amountIn * 10000) / state.VirtualSOLReserves)
	}
	if state.VirtualTokenReserves == 0 {
		return 0
	}
	return int((amountIn * 10000) / state.VirtualTokenReserves)
}

func newBinDecoder(data []byte) *bin.Decoder {
	return bin.NewBinDecoder(data)
}

// parseUint parses a Jupiter quote amount field, which the API returns
// as a decimal string. A malformed or empty string quotes as zero,
// which callers reject as a bad quote rather than panicking on it.
func parseUint(s string) uint64 {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0
	}
	return v
}

// base64DecodeTx decodes the base64-encoded unsigned transaction
// Jupiter's /swap endpoint returns.
func base64DecodeTx(s string) ([]byte, error) {
	return base64.StdEncoding.DecodeString(s)
}

// classifySendError maps a transaction-submission error to the
// central error-code table, per spec.md §9 open question (b).
func classifySendError(err error) errorcode.Code {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "blockhash not found"), strings.Contains(msg, "blockhash expired"):
		return errorcode.BlockhashExpired
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "429"):
		return errorcode.RPCRateLimited
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "deadline exceeded"):
		return errorcode.RPCTimeout
	case strings.Contains(msg, "insufficient"):
		return errorcode.InsufficientFunds
	case strings.Contains(msg, "slippage"):
		return errorcode.SlippageExceeded
	case strings.Contains(msg, "simulation"):
		return errorcode.SimulationFailed
	case strings.Contains(msg, "connection"), strings.Contains(msg, "eof"):
		return errorcode.NetworkError
	default:
		return errorcode.Unknown
	}
}
