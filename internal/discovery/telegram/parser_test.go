package telegram

import "testing"

// Real, well-known Solana mint addresses used as valid base58
// 32-byte candidates in tests.
const (
	mintA = "DezXAZ8z7PnrnRJjz3wXBoRgixCa6xjnB7YaB1pPB263"
	mintB = "EPjFWdd5AufqSSqeM2qN1xzybapTVG4itwaudyceSqnC"
)

func TestParseMessageAcceptsLabeledMint(t *testing.T) {
	result := ParseMessage("New launch! Mint: " + mintA + " go go go")
	if !result.OK {
		t.Fatalf("expected ok, got reason %q", result.Reason)
	}
	if result.Candidate.Mint != mintA {
		t.Fatalf("unexpected mint: %s", result.Candidate.Mint)
	}
}

func TestParseMessageAcceptsCaseInsensitiveLabel(t *testing.T) {
	result := ParseMessage("CA: " + mintA)
	if !result.OK || result.Candidate.Mint != mintA {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestParseMessageAcceptsExplorerURL(t *testing.T) {
	result := ParseMessage("check it out https://solscan.io/token/" + mintA + " pumping")
	if !result.OK || result.Candidate.Mint != mintA {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestParseMessageAcceptsSingleBareMint(t *testing.T) {
	result := ParseMessage("just dropped " + mintA + " no cap")
	if !result.OK || result.Candidate.Mint != mintA {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestParseMessageRejectsAmbiguousBareMints(t *testing.T) {
	result := ParseMessage(mintA + " or maybe " + mintB + " idk")
	if result.OK {
		t.Fatalf("expected ambiguous failure, got ok candidate %+v", result.Candidate)
	}
	if result.Reason != ReasonAmbiguousMintCandidates {
		t.Fatalf("unexpected reason: %s", result.Reason)
	}
}

func TestParseMessageExcludesSystemProgramID(t *testing.T) {
	result := ParseMessage("totally real token 11111111111111111111111111111111")
	if result.OK {
		t.Fatalf("expected no candidate, got %+v", result.Candidate)
	}
	if result.Reason != ReasonNoCandidate {
		t.Fatalf("unexpected reason: %s", result.Reason)
	}
}

func TestParseMessageExcludesWrappedSOLButAcceptsRemainingSingle(t *testing.T) {
	result := ParseMessage("pair is So11111111111111111111111111111111111111112 / " + mintA)
	if !result.OK || result.Candidate.Mint != mintA {
		t.Fatalf("unexpected result: %+v", result)
	}
}

func TestParseMessageRejectsPlainText(t *testing.T) {
	result := ParseMessage("gm gm nothing to see here")
	if result.OK {
		t.Fatalf("expected no candidate, got %+v", result.Candidate)
	}
	if result.Reason != ReasonNoCandidate {
		t.Fatalf("unexpected reason: %s", result.Reason)
	}
}

func TestParseMessageDeduplicatesRepeatedBareMint(t *testing.T) {
	result := ParseMessage(mintA + " " + mintA)
	if !result.OK || result.Candidate.Mint != mintA {
		t.Fatalf("expected repeated occurrences of the same mint to count once, got %+v", result)
	}
}
