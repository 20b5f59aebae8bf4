// Package jmap implements the JMAP client that persists AI-drafted
// replies as drafts in the user's mailbox. It bootstraps a session
// against an unknown server topology, resolves the account and Drafts
// mailbox, deduplicates replies, and creates drafts with a one-shot
// fallback when the server rejects threading metadata.
package jmap

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"
)

// Config holds the client settings.
type Config struct {
	// SessionURL is the session endpoint; a .well-known/jmap URL is
	// resolved through its redirect first.
	SessionURL string

	// Token is the bearer token sent on every request.
	Token string

	// AccountID, when set, is adopted verbatim instead of discovering
	// the account from the session.
	AccountID string

	// EmailAddress is used for account discovery and as the draft
	// sender address.
	EmailAddress string

	// FromName is the display name placed on drafted replies.
	FromName string
}

// Client talks to one JMAP account. Session and account id are resolved
// lazily and memoized for the client's lifetime; construct one Client
// per account.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     *slog.Logger
	dryRun     bool

	mu        sync.Mutex
	session   *Session
	accountID string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client, mainly for tests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the structured logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// WithDryRun makes CheckDraft and CreateDraft report "no draft" without
// any network IO.
func WithDryRun(dryRun bool) Option {
	return func(c *Client) { c.dryRun = dryRun }
}

// NewClient creates a new JMAP client.
func NewClient(cfg Config, opts ...Option) *Client {
	c := &Client{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// get performs an authenticated GET and returns the raw body.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	return c.send(req)
}

// call posts a single method call to the API endpoint and returns the
// matching method response after validating the envelope shape.
func (c *Client) call(ctx context.Context, apiURL, method string, args any) (json.RawMessage, error) {
	body := request{
		Using: []string{CapCore, CapMail},
		MethodCalls: []methodCall{
			{Name: method, Args: args, CallID: "0"},
		},
	}

	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("marshaling %s request: %w", method, err)
	}

	req, err := http.NewRequestWithContext(
		ctx, http.MethodPost, apiURL, bytes.NewReader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	raw, err := c.send(req)
	if err != nil {
		return nil, err
	}

	var resp response
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, c.shapeError(method, raw, err)
	}
	if len(resp.MethodResponses) == 0 {
		return nil, c.shapeError(method, raw, fmt.Errorf("empty methodResponses"))
	}

	first := resp.MethodResponses[0]
	if first.Name != method {
		return nil, c.shapeError(
			method, raw,
			fmt.Errorf("unexpected method response %q", first.Name),
		)
	}

	return first.Args, nil
}

// send executes the request with bearer auth. Any non-2xx outcome is
// logged with full detail at the point of occurrence and returned as a
// *TransportError.
func (c *Client) send(req *http.Request) ([]byte, error) {
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.Error("jmap request failed",
			slog.String("method", req.Method),
			slog.String("url", req.URL.String()),
			slog.String("error", err.Error()),
		)
		return nil, &TransportError{Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &TransportError{
			Status:     resp.StatusCode,
			StatusText: resp.Status,
			Err:        err,
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		c.logger.Error("jmap server error response",
			slog.String("method", req.Method),
			slog.String("url", req.URL.String()),
			slog.Int("status", resp.StatusCode),
			slog.String("status_text", resp.Status),
			slog.String("body", string(body)),
		)
		return nil, &TransportError{
			Status:     resp.StatusCode,
			StatusText: resp.Status,
			Body:       string(body),
		}
	}

	return body, nil
}

// shapeError logs and wraps a malformed response body. Shape violations
// are converted to TransportError at the boundary so malformed data
// never propagates into the draft logic.
func (c *Client) shapeError(method string, raw []byte, cause error) error {
	c.logger.Error("jmap malformed response",
		slog.String("jmap_method", method),
		slog.String("error", cause.Error()),
		slog.String("body", truncateForLog(string(raw))),
	)
	return &TransportError{
		StatusText: "malformed " + method + " response",
		Body:       truncateForLog(string(raw)),
		Err:        cause,
	}
}

const maxLoggedBody = 2048

func truncateForLog(s string) string {
	if len(s) <= maxLoggedBody {
		return s
	}
	return s[:maxLoggedBody] + "..."
}

// senderDomain extracts the domain of the configured email address, or
// "" when none is configured.
func (c *Client) senderDomain() string {
	if _, domain, ok := strings.Cut(c.cfg.EmailAddress, "@"); ok {
		return domain
	}
	return ""
}
