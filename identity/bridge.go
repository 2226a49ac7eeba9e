package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Session is what the marketplace's auth provider hands back for a verified
// account. The token is usable by subsequent, unrelated marketplace calls.
type Session struct {
	Token   string `json:"token"`
	Account string `json:"account"`
}

// Bridge exchanges a verified account and signature for a marketplace
// session via the external sign-in-with-wallet endpoint.
type Bridge struct {
	baseURL string
	http    *http.Client
}

// NewBridge builds an identity bridge client.
func NewBridge(baseURL string, timeout time.Duration) *Bridge {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Bridge{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// SignIn posts the proof to the auth provider and returns the session.
func (b *Bridge) SignIn(ctx context.Context, account, signature string) (*Session, error) {
	raw, err := json.Marshal(map[string]string{
		"account":   account,
		"signature": signature,
	})
	if err != nil {
		return nil, fmt.Errorf("encode sign-in: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, b.baseURL+"/wallet", bytes.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("build sign-in request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("identity bridge unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("sign-in failed: status %d: %s", resp.StatusCode, string(msg))
	}

	var session Session
	if err := json.NewDecoder(resp.Body).Decode(&session); err != nil {
		return nil, fmt.Errorf("decode session: %w", err)
	}
	return &session, nil
}
