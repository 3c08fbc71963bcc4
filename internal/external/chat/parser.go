// Package chat parses the Telegram bot's command grammar into typed
// intents, per spec.md §6 and §9 ("dynamic callback objects ->
// structured intents: the core never consumes the raw string").
package chat

import (
	"fmt"
	"strconv"
	"strings"
)

// Command names the chat grammar `/command [arg ...]` recognizes.
type Command string

const (
	CmdStart     Command = "start"
	CmdMenu      Command = "menu"
	CmdWallet    Command = "wallet"
	CmdBalance   Command = "balance"
	CmdDeposit   Command = "deposit"
	CmdWithdraw  Command = "withdraw"
	CmdPositions Command = "positions"
	CmdHunt      Command = "hunt"
	CmdSnipe     Command = "snipe"
	CmdSell      Command = "sell"
	CmdSettings  Command = "settings"
	CmdStrategy  Command = "strategy"
	CmdHistory   Command = "history"
	CmdHelp      Command = "help"
	CmdBackup    Command = "backup"
)

var knownCommands = map[string]Command{
	"start": CmdStart, "menu": CmdMenu, "wallet": CmdWallet, "balance": CmdBalance,
	"deposit": CmdDeposit, "withdraw": CmdWithdraw, "positions": CmdPositions,
	"hunt": CmdHunt, "snipe": CmdSnipe, "sell": CmdSell, "settings": CmdSettings,
	"strategy": CmdStrategy, "history": CmdHistory, "help": CmdHelp, "backup": CmdBackup,
}

// Intent is a parsed chat command, with snipe's typed arguments
// populated when Command == CmdSnipe.
type Intent struct {
	Command     Command
	Mint        string
	AmountSOL   float64
	Chain       string
	ExternalEventID string
}

// ParseCommand parses a raw `/command [arg ...]` message. externalEventID is the
// platform's unique-per-interaction event id, threaded straight into
// idempotency derivation by the caller (spec.md §4.B) -- this parser
// never looks at it beyond copying it through.
func ParseCommand(text, externalEventID string) (Intent, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return Intent{}, fmt.Errorf("not a command: %q", text)
	}
	fields := strings.Fields(text[1:])
	if len(fields) == 0 {
		return Intent{}, fmt.Errorf("empty command")
	}

	name := strings.ToLower(fields[0])
	cmd, ok := knownCommands[name]
	if !ok {
		return Intent{}, fmt.Errorf("unknown command: %q", name)
	}

	intent := Intent{Command: cmd, ExternalEventID: externalEventID}
	if cmd != CmdSnipe {
		return intent, nil
	}

	args := fields[1:]
	if len(args) != 3 {
		return Intent{}, fmt.Errorf("snipe requires exactly 3 arguments: <mint> <amount> <chain>, got %d", len(args))
	}
	amount, err := strconv.ParseFloat(args[1], 64)
	if err != nil || amount <= 0 {
		return Intent{}, fmt.Errorf("invalid snipe amount: %q", args[1])
	}
	intent.Mint = args[0]
	intent.AmountSOL = amount
	intent.Chain = strings.ToLower(args[2])
	return intent, nil
}

// CallbackKind identifies a structured callback identifier's intent
// family, parsed from its opaque textual form (spec.md §9).
type CallbackKind string

const (
	CallbackConfirmBuy  CallbackKind = "confirm_buy"
	CallbackConfirmSell CallbackKind = "confirm_sell"
	CallbackCancel      CallbackKind = "cancel"
)

// Callback is a structured callback event. Telegram callback data is
// conventionally colon-delimited; this parser treats that as an
// implementation detail of the platform, not a core concept.
type Callback struct {
	Kind            CallbackKind
	PositionID      string
	Mint            string
	AmountSOL       float64
	ExternalEventID string
}

// ParseCallback parses a callback_data string of the form
// "kind:arg1:arg2:...". Unknown kinds are rejected rather than passed
// through, per spec.md §9 ("the core never consumes the raw string").
func ParseCallback(data, externalEventID string) (Callback, error) {
	parts := strings.Split(data, ":")
	if len(parts) == 0 {
		return Callback{}, fmt.Errorf("empty callback data")
	}

	cb := Callback{ExternalEventID: externalEventID}
	switch CallbackKind(parts[0]) {
	case CallbackConfirmBuy:
		if len(parts) != 3 {
			return Callback{}, fmt.Errorf("confirm_buy requires mint and amount")
		}
		amount, err := strconv.ParseFloat(parts[2], 64)
		if err != nil || amount <= 0 {
			return Callback{}, fmt.Errorf("invalid confirm_buy amount: %q", parts[2])
		}
		cb.Kind = CallbackConfirmBuy
		cb.Mint = parts[1]
		cb.AmountSOL = amount
	case CallbackConfirmSell:
		if len(parts) != 2 {
			return Callback{}, fmt.Errorf("confirm_sell requires a position id")
		}
		cb.Kind = CallbackConfirmSell
		cb.PositionID = parts[1]
	case CallbackCancel:
		cb.Kind = CallbackCancel
	default:
		return Callback{}, fmt.Errorf("unknown callback kind: %q", parts[0])
	}
	return cb, nil
}
