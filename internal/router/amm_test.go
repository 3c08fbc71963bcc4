package router

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestAMMAdapterQuoteParsesJupiterResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"inAmount":"1000000000","outAmount":"42000000","priceImpactPct":"0.5"}`))
	}))
	defer srv.Close()

	a := NewAMMAdapter(srv.URL, nil)
	quote, err := a.Quote(t.Context(), Intent{
		Side:        SideBuy,
		AmountSOL:   1,
		SlippageBps: 500,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if quote.OutAmount != 42000000 {
		t.Errorf("expected out amount 42000000, got %d", quote.OutAmount)
	}
	if quote.MinOutput != MinOutput(42000000, 500) {
		t.Errorf("expected min output to apply slippage tolerance, got %d", quote.MinOutput)
	}
}

func TestAMMAdapterQuoteRejectsZeroOutput(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"inAmount":"1000000000","outAmount":"0"}`))
	}))
	defer srv.Close()

	a := NewAMMAdapter(srv.URL, nil)
	if _, err := a.Quote(t.Context(), Intent{Side: SideBuy, AmountSOL: 1}); err == nil {
		t.Fatal("expected error for zero-output quote")
	}
}

func TestAMMAdapterCanHandlePostGraduationOrUnknown(t *testing.T) {
	a := NewAMMAdapter("http://example.invalid", nil)
	if !a.CanHandle(Intent{LifecycleState: PostGraduation}) {
		t.Error("expected AMM to handle post-graduation intents")
	}
	if !a.CanHandle(Intent{}) {
		t.Error("expected AMM to handle intents with no lifecycle state set")
	}
	if a.CanHandle(Intent{LifecycleState: PreGraduation}) {
		t.Error("expected AMM to decline pre-graduation intents")
	}
}
