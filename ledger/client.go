package ledger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// Sentinel errors mapped from ledger HTTP statuses. Callers branch on these
// with errors.Is and must never surface them raw to the wire.
var (
	ErrNotFound = errors.New("ledger: resource not found")
	ErrConflict = errors.New("ledger: state conflict")
)

// Client provides typed access to the escrow ledger HTTP API. The ledger is
// the system of record for resources, submissions and payments; this client
// never caches.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient builds a ledger client for the given API base.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Client{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// GetTask fetches a task resource by id.
func (c *Client) GetTask(ctx context.Context, id string) (*Resource, error) {
	return c.getResource(ctx, "tasks", id)
}

// GetService fetches a service resource by id.
func (c *Client) GetService(ctx context.Context, id string) (*Resource, error) {
	return c.getResource(ctx, "services", id)
}

func (c *Client) getResource(ctx context.Context, kind, id string) (*Resource, error) {
	var res Resource
	if err := c.do(ctx, http.MethodGet, fmt.Sprintf("/%s/%s", kind, url.PathEscape(id)), nil, &res); err != nil {
		return nil, fmt.Errorf("fetch %s: %w", kind, err)
	}
	return &res, nil
}

// CreateSubmission records a work submission for a task. The ledger enforces
// the one-submission-per-account rule and answers 409 when it is violated.
func (c *Client) CreateSubmission(ctx context.Context, taskID, account, content string) (*Submission, error) {
	body := map[string]string{"account": account, "content": content}
	var sub Submission
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/tasks/%s/submissions", url.PathEscape(taskID)), body, &sub); err != nil {
		return nil, fmt.Errorf("create submission: %w", err)
	}
	return &sub, nil
}

// BuildClaimTransaction asks the ledger for the real reward-withdrawal
// transaction for the caller's submission.
func (c *Client) BuildClaimTransaction(ctx context.Context, taskID, account string) (*PreparedTransaction, error) {
	body := map[string]string{"account": account}
	var tx PreparedTransaction
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/tasks/%s/claim-transaction", url.PathEscape(taskID)), body, &tx); err != nil {
		return nil, fmt.Errorf("build claim tx: %w", err)
	}
	return &tx, nil
}

// BuildPaymentTransaction asks the ledger for the payment transaction that
// purchases a service for the caller.
func (c *Client) BuildPaymentTransaction(ctx context.Context, serviceID, account string) (*PreparedTransaction, error) {
	body := map[string]string{"account": account}
	var tx PreparedTransaction
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/services/%s/payment-transaction", url.PathEscape(serviceID)), body, &tx); err != nil {
		return nil, fmt.Errorf("build payment tx: %w", err)
	}
	return &tx, nil
}

// CompleteClaim notifies the ledger that the claim transaction was submitted.
// The call is idempotent on the ledger side keyed by tx id.
func (c *Client) CompleteClaim(ctx context.Context, taskID, txID string) (*Receipt, error) {
	return c.complete(ctx, "tasks", taskID, txID)
}

// CompleteSubmission notifies the ledger that the submission's binding
// transaction was signed and submitted.
func (c *Client) CompleteSubmission(ctx context.Context, taskID, txID string) (*Receipt, error) {
	return c.complete(ctx, "tasks", taskID, txID)
}

// CompletePayment notifies the ledger that a service payment went through.
func (c *Client) CompletePayment(ctx context.Context, serviceID, txID string) (*Receipt, error) {
	return c.complete(ctx, "services", serviceID, txID)
}

func (c *Client) complete(ctx context.Context, kind, id, txID string) (*Receipt, error) {
	body := map[string]string{"tx_id": txID}
	var rec Receipt
	if err := c.do(ctx, http.MethodPost, fmt.Sprintf("/%s/%s/complete", kind, url.PathEscape(id)), body, &rec); err != nil {
		return nil, fmt.Errorf("complete %s: %w", kind, err)
	}
	return &rec, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("ledger unreachable: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		return ErrConflict
	case resp.StatusCode >= 400:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("status %d: %s", resp.StatusCode, string(msg))
	}

	if out != nil {
		if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}
	return nil
}
