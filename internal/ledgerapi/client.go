// Package ledgerapi is a typed HTTP client for the ledger REST API.
package ledgerapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"paie/internal/core"
	"paie/internal/ledger"
	"paie/internal/log"
)

// StatusError is a non-2xx answer from the API.
type StatusError struct {
	StatusCode int
	Detail     string
}

func (e *StatusError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("ledger api: HTTP %d", e.StatusCode)
	}
	return fmt.Sprintf("ledger api: HTTP %d: %s", e.StatusCode, e.Detail)
}

// Is maps 404 answers onto the domain sentinels so callers can use
// errors.Is without knowing about HTTP.
func (e *StatusError) Is(target error) bool {
	if e.StatusCode != http.StatusNotFound {
		return false
	}
	switch target {
	case core.ErrWorkerNotFound:
		return strings.Contains(strings.ToLower(e.Detail), "ouvrier")
	case core.ErrTransactionNotFound:
		return strings.Contains(strings.ToLower(e.Detail), "transaction")
	}
	return false
}

type Client struct {
	baseURL string
	http    *http.Client
	logger  *log.Logger
}

var _ ledger.Ledger = (*Client)(nil)

// Option configures a Client.
type Option func(*Client)

// WithTimeout bounds every call. Zero keeps calls unbounded.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithHTTPClient replaces the underlying client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

func WithLogger(l *log.Logger) Option {
	return func(c *Client) { c.logger = l.WithComponent(log.ComponentClient) }
}

// New returns a client for the API rooted at backendURL + "/api".
func New(backendURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(backendURL, "/") + "/api",
		http:    &http.Client{},
		logger:  log.Discard(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) ListBalances(ctx context.Context) ([]core.WorkerBalance, error) {
	var out []core.WorkerBalance
	if err := c.do(ctx, http.MethodGet, "/workers-balances", nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *Client) CreateWorker(ctx context.Context, in core.WorkerInput) (core.Worker, error) {
	var out core.Worker
	err := c.do(ctx, http.MethodPost, "/workers", in, &out)
	return out, err
}

func (c *Client) CreateTransaction(ctx context.Context, in core.TransactionInput) (core.Transaction, error) {
	var out core.Transaction
	err := c.do(ctx, http.MethodPost, "/transactions", in, &out)
	return out, err
}

func (c *Client) DeleteWorker(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/workers/"+url.PathEscape(id), nil, nil)
}

func (c *Client) DeleteTransaction(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/transactions/"+url.PathEscape(id), nil, nil)
}

// Health fetches the API root message.
func (c *Client) Health(ctx context.Context) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	if err := c.do(ctx, http.MethodGet, "/", nil, &out); err != nil {
		return "", err
	}
	return out.Message, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, rd)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	c.logger.DebugContext(ctx, "Ledger API call",
		log.FieldMethod, method,
		log.FieldPath, path,
		log.FieldStatusCode, resp.StatusCode,
		log.FieldDuration, time.Since(start).Milliseconds())

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return statusError(resp)
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%s %s: decode response: %w", method, path, err)
	}
	return nil
}

// statusError reads a FastAPI style {"detail": ...} body. detail may be a
// string or any JSON value (validation errors are lists).
func statusError(resp *http.Response) error {
	se := &StatusError{StatusCode: resp.StatusCode}
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(raw, &payload); err == nil && len(payload.Detail) > 0 {
		var s string
		if json.Unmarshal(payload.Detail, &s) == nil {
			se.Detail = s
		} else {
			se.Detail = string(payload.Detail)
		}
	} else {
		se.Detail = strings.TrimSpace(string(raw))
	}
	return se
}

// IsStatus reports whether err is a StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.StatusCode == code
}
