package external

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gagliardetto/solana-go"
)

// HTTPSigner talks to the external signing service over a thin
// net/http client, the same shape as internal/position's price
// fetchers: one small client, one 5 s timeout, typed request/response,
// provider errors never leak past this boundary.
type HTTPSigner struct {
	baseURL string
	client  *http.Client
}

// NewHTTPSigner constructs the signer adapter.
func NewHTTPSigner(baseURL string) *HTTPSigner {
	return &HTTPSigner{baseURL: baseURL, client: &http.Client{Timeout: 5 * time.Second}}
}

func (s *HTTPSigner) PublicKey(ctx context.Context, userID string) (solana.PublicKey, error) {
	url := fmt.Sprintf("%s/wallets/%s/public-key", s.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return solana.PublicKey{}, err
	}
	resp, err := s.client.Do(req)
	if err != nil {
		return solana.PublicKey{}, fmt.Errorf("signer public-key request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return solana.PublicKey{}, fmt.Errorf("signer returned status %d", resp.StatusCode)
	}

	var parsed struct {
		PublicKey string `json:"public_key"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return solana.PublicKey{}, fmt.Errorf("decode signer response: %w", err)
	}
	return solana.PublicKeyFromBase58(parsed.PublicKey)
}

func (s *HTTPSigner) Sign(ctx context.Context, userID string, unsignedTx []byte) ([]byte, error) {
	body, err := json.Marshal(struct {
		TransactionB64 string `json:"transaction_b64"`
	}{TransactionB64: base64.StdEncoding.EncodeToString(unsignedTx)})
	if err != nil {
		return nil, err
	}

	url := fmt.Sprintf("%s/wallets/%s/sign", s.baseURL, userID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("signer sign request: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("signer returned status %d", resp.StatusCode)
	}

	var parsed struct {
		SignedTransactionB64 string `json:"signed_transaction_b64"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("decode signer response: %w", err)
	}
	signed, err := base64.StdEncoding.DecodeString(parsed.SignedTransactionB64)
	if err != nil {
		return nil, fmt.Errorf("decode signed transaction: %w", err)
	}
	return signed, nil
}
