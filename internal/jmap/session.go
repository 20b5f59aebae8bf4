package jmap

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
)

// wellKnownMarker identifies a discovery URL that may redirect to the
// provider-specific session path.
const wellKnownMarker = ".well-known/jmap"

// InitSession resolves the effective session URL, fetches the session
// object, and verifies that the account is usable: the mail capability
// and API endpoint must be present, the account id resolvable, and a
// Drafts mailbox findable. It fails fast so a misconfigured run stops
// before any drafting work happens.
func (c *Client) InitSession(ctx context.Context) error {
	if _, err := c.ensureSession(ctx); err != nil {
		return err
	}

	accountID, err := c.AccountID(ctx)
	if err != nil {
		return err
	}

	mailboxes, err := c.mailboxes(ctx, accountID)
	if err != nil {
		return err
	}
	if len(mailboxes) == 0 {
		return fmt.Errorf("jmap: no mailboxes found in account %s", accountID)
	}
	if _, ok := FindDraftsMailbox(mailboxes); !ok {
		return &MailboxNotFoundError{Mailboxes: mailboxes}
	}

	c.logger.Info("jmap session initialized",
		slog.String("account_id", accountID),
		slog.Int("mailboxes", len(mailboxes)),
	)
	return nil
}

// ensureSession returns the memoized session, fetching it on first use.
func (c *Client) ensureSession(ctx context.Context) (*Session, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.session != nil {
		return c.session, nil
	}

	sessionURL, err := c.resolveSessionURL(ctx)
	if err != nil {
		return nil, err
	}

	body, err := c.get(ctx, sessionURL)
	if err != nil {
		return nil, err
	}

	var sess Session
	if err := json.Unmarshal(body, &sess); err != nil {
		return nil, c.shapeError("session", body, err)
	}

	if _, ok := sess.Capabilities[CapMail]; !ok {
		return nil, &SessionInitError{Missing: "mail capability " + CapMail}
	}
	if sess.APIURL == "" {
		return nil, &SessionInitError{Missing: "apiUrl"}
	}

	c.session = &sess
	return c.session, nil
}

// resolveSessionURL returns the effective session URL. A well-known
// discovery URL is probed with a HEAD request without following
// redirects; when the server answers with a redirect carrying a
// Location header, that location becomes the session URL.
func (c *Client) resolveSessionURL(ctx context.Context) (string, error) {
	sessionURL := c.cfg.SessionURL
	if !strings.Contains(sessionURL, wellKnownMarker) {
		return sessionURL, nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodHead, sessionURL, nil)
	if err != nil {
		return "", fmt.Errorf("creating discovery request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.Token)

	// Same transport, but redirects surfaced instead of followed.
	probe := *c.httpClient
	probe.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}

	resp, err := probe.Do(req)
	if err != nil {
		// Discovery is best effort; fall back to the configured URL.
		c.logger.Debug("jmap discovery probe failed",
			slog.String("url", sessionURL),
			slog.String("error", err.Error()),
		)
		return sessionURL, nil
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 && resp.StatusCode < 400 {
		if location := resp.Header.Get("Location"); location != "" {
			c.logger.Info("jmap discovery redirect",
				slog.String("from", sessionURL),
				slog.String("to", location),
			)
			return location, nil
		}
	}

	return sessionURL, nil
}
