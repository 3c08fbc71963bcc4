package lifecycle

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// DexScreenerPoolResolver resolves a graduated mint's AMM pool address
// via the public DEX Screener token-pairs API, the same provider
// internal/position's pricing fallback chain uses for price.
type DexScreenerPoolResolver struct {
	baseURL string
	client  *http.Client
}

// NewDexScreenerPoolResolver constructs the resolver.
func NewDexScreenerPoolResolver(baseURL string) *DexScreenerPoolResolver {
	return &DexScreenerPoolResolver{baseURL: baseURL, client: &http.Client{Timeout: 5 * time.Second}}
}

func (r *DexScreenerPoolResolver) ResolvePool(ctx context.Context, mint string) (string, error) {
	url := fmt.Sprintf("%s/latest/dex/tokens/%s", r.baseURL, mint)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := r.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("dexscreener returned status %d", resp.StatusCode)
	}

	var parsed struct {
		Pairs []struct {
			PairAddress string `json:"pairAddress"`
		} `json:"pairs"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", err
	}
	if len(parsed.Pairs) == 0 {
		return "", fmt.Errorf("no AMM pool indexed yet for mint %s", mint)
	}
	return parsed.Pairs[0].PairAddress, nil
}
