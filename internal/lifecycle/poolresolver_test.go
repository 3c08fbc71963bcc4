package lifecycle

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestDexScreenerPoolResolverParsesPairAddress(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"pairs":[{"pairAddress":"Poo1AddressXYZ"}]}`))
	}))
	defer srv.Close()

	r := NewDexScreenerPoolResolver(srv.URL)
	pool, err := r.ResolvePool(t.Context(), "mintA")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pool != "Poo1AddressXYZ" {
		t.Errorf("unexpected pool address: %s", pool)
	}
}

func TestDexScreenerPoolResolverErrorsWhenNoPairsIndexed(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"pairs":[]}`))
	}))
	defer srv.Close()

	r := NewDexScreenerPoolResolver(srv.URL)
	if _, err := r.ResolvePool(t.Context(), "mintA"); err == nil {
		t.Fatal("expected error when no pool is indexed yet")
	}
}
