package jmap

import (
	"context"
	"log/slog"
	"sort"
	"strings"
)

// AccountID returns the target account identifier, resolving and
// memoizing it on first call. Resolution order: explicit configured id,
// exact case-insensitive match of the configured address against an
// account's name or email, substring match within an account's name,
// then the sole account when exactly one exists.
func (c *Client) AccountID(ctx context.Context) (string, error) {
	c.mu.Lock()
	if c.accountID != "" {
		id := c.accountID
		c.mu.Unlock()
		return id, nil
	}
	if c.cfg.AccountID != "" {
		c.accountID = c.cfg.AccountID
		id := c.accountID
		c.mu.Unlock()
		return id, nil
	}
	c.mu.Unlock()

	sess, err := c.ensureSession(ctx)
	if err != nil {
		return "", err
	}

	id, err := resolveAccountID(sess.Accounts, c.cfg.EmailAddress)
	if err != nil {
		return "", err
	}

	c.logger.Info("jmap account resolved",
		slog.String("account_id", id),
		slog.String("email_address", c.cfg.EmailAddress),
	)

	c.mu.Lock()
	c.accountID = id
	c.mu.Unlock()
	return id, nil
}

// resolveAccountID discovers the account id from session account
// metadata. Account ids are tried in sorted order so resolution is
// deterministic when several entries would match.
func resolveAccountID(accounts map[string]Account, emailAddress string) (string, error) {
	ids := make([]string, 0, len(accounts))
	for id := range accounts {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	if emailAddress != "" {
		address := strings.ToLower(emailAddress)

		for _, id := range ids {
			account := accounts[id]
			if strings.ToLower(account.Name) == address ||
				strings.ToLower(account.Email) == address {
				return id, nil
			}
		}

		for _, id := range ids {
			if strings.Contains(strings.ToLower(accounts[id].Name), address) {
				return id, nil
			}
		}
	}

	if len(ids) == 1 {
		return ids[0], nil
	}

	return "", &AccountResolutionError{
		EmailAddress: emailAddress,
		AccountCount: len(accounts),
	}
}
