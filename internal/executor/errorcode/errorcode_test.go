package errorcode

import "testing"

func TestRetryableWhitelist(t *testing.T) {
	retryableCodes := []Code{RPCTimeout, RPCRateLimited, BlockhashExpired, JitoBundleFailed, NetworkError}
	for _, c := range retryableCodes {
		if !c.Retryable() {
			t.Errorf("expected %s to be retryable", c)
		}
	}
}

func TestPermanentCodesAreNotRetryable(t *testing.T) {
	permanent := []Code{InsufficientFunds, SlippageExceeded, TokenGraduated, SimulationFailed, SafetyDenied, WalletMismatch, PositionLimit, Abandoned}
	for _, c := range permanent {
		if c.Retryable() {
			t.Errorf("expected %s to be permanent", c)
		}
	}
}

func TestUserMessageNeverEmpty(t *testing.T) {
	for _, c := range []Code{RPCTimeout, InsufficientFunds, Unknown, Code("NOT_A_REAL_CODE")} {
		if c.UserMessage() == "" {
			t.Errorf("expected non-empty user message for %s", c)
		}
	}
}
