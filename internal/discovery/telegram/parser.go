// Package telegram implements the deterministic message parser and
// TTL dedup described in spec.md §4.E, consuming updates from a
// monitored channel via go-telegram-bot-api.
package telegram

import (
	"regexp"

	"github.com/mr-tron/base58"
)

// knownSystemIDs excludes addresses that are never themselves a
// sniped mint: the system program, the SPL token program, the compute
// budget program, and wrapped SOL.
var knownSystemIDs = map[string]struct{}{
	"11111111111111111111111111111111":            {},
	"TokenkegQfeZyiNwAJbNbGKPFXCWuBvf9Ss623VQ5DA":  {},
	"ComputeBudget111111111111111111111111111111": {},
	"So11111111111111111111111111111111111111112": {},
}

var (
	labelPattern = regexp.MustCompile(`(?i)\b(?:mint|ca|contract|address)\s*[:=]\s*([1-9A-HJ-NP-Za-km-z]{32,44})\b`)
	base58Scan   = regexp.MustCompile(`[1-9A-HJ-NP-Za-km-z]{32,44}`)

	// explorerURLPattern matches a known token-explorer URL and
	// captures the base58 path segment that identifies the mint.
	explorerURLPattern = regexp.MustCompile(`(?i)https?://(?:www\.)?(?:solscan\.io/token|birdeye\.so/token|dexscreener\.com/solana|pump\.fun/coin)/([1-9A-HJ-NP-Za-km-z]{32,44})`)
)

// FailReason enumerates why a message failed to yield a candidate.
type FailReason string

const (
	ReasonNoCandidate             FailReason = "no_candidate"
	ReasonAmbiguousMintCandidates FailReason = "ambiguous_mint_candidates"
)

// Candidate is a parsed Telegram signal, ready to hand to the shared
// discovery store for merge-upsert.
type Candidate struct {
	Mint   string
	Raw    string
}

// ParseResult is the outcome of parsing one message, matching the
// {ok, candidate|reason, raw} shape from spec.md §4.E.
type ParseResult struct {
	OK        bool
	Candidate Candidate
	Reason    FailReason
	Raw       string
}

// isValidMint reports whether s decodes to a 32-byte base58 string and
// isn't a known system/program id.
func isValidMint(s string) bool {
	if _, excluded := knownSystemIDs[s]; excluded {
		return false
	}
	decoded, err := base58.Decode(s)
	return err == nil && len(decoded) == 32
}

// ParseMessage applies the three parsing rules from spec.md §4.E in
// order, never emitting a partial candidate.
func ParseMessage(text string) ParseResult {
	result := ParseResult{Raw: text}

	// Rule 1: explicit label.
	if m := labelPattern.FindStringSubmatch(text); m != nil && isValidMint(m[1]) {
		result.OK = true
		result.Candidate = Candidate{Mint: m[1], Raw: text}
		return result
	}

	// Rule 2: known token-explorer URL.
	if m := explorerURLPattern.FindStringSubmatch(text); m != nil && isValidMint(m[1]) {
		result.OK = true
		result.Candidate = Candidate{Mint: m[1], Raw: text}
		return result
	}

	// Rule 3: exactly one bare base58 substring, excluding system ids.
	seen := map[string]struct{}{}
	var unique []string
	for _, m := range base58Scan.FindAllString(text, -1) {
		if !isValidMint(m) {
			continue
		}
		if _, dup := seen[m]; dup {
			continue
		}
		seen[m] = struct{}{}
		unique = append(unique, m)
	}
	switch len(unique) {
	case 0:
		result.Reason = ReasonNoCandidate
	case 1:
		result.OK = true
		result.Candidate = Candidate{Mint: unique[0], Raw: text}
	default:
		result.Reason = ReasonAmbiguousMintCandidates
	}
	return result
}
