package jmap

import (
	"context"
	"encoding/json"
	"strings"
)

// draftsNames are the exact mailbox names tried when no mailbox carries
// the drafts role.
var draftsNames = []string{"Drafts", "Draft"}

// FindDraftsMailbox returns the id of the Drafts mailbox from a mailbox
// list. Role is tried first because it is authoritative when present;
// name heuristics cover servers that omit roles or localize names.
func FindDraftsMailbox(mailboxes []Mailbox) (string, bool) {
	for _, m := range mailboxes {
		if m.Role == "drafts" {
			return m.ID, true
		}
	}

	for _, name := range draftsNames {
		for _, m := range mailboxes {
			if strings.EqualFold(m.Name, name) {
				return m.ID, true
			}
		}
	}

	for _, m := range mailboxes {
		if strings.Contains(strings.ToLower(m.Name), "draft") {
			return m.ID, true
		}
	}

	return "", false
}

// mailboxes fetches the account's mailbox list. The list is a per-call
// snapshot; it is deliberately not cached so renames and deletions on
// the server are picked up by the next draft operation.
func (c *Client) mailboxes(ctx context.Context, accountID string) ([]Mailbox, error) {
	sess, err := c.ensureSession(ctx)
	if err != nil {
		return nil, err
	}

	args, err := c.call(ctx, sess.APIURL, "Mailbox/get", map[string]any{
		"accountId": accountID,
	})
	if err != nil {
		return nil, err
	}

	var resp mailboxGetResponse
	if err := json.Unmarshal(args, &resp); err != nil {
		return nil, c.shapeError("Mailbox/get", args, err)
	}

	return resp.List, nil
}

// draftsMailboxID fetches the mailbox list and resolves the Drafts
// mailbox, returning a MailboxNotFoundError carrying the listing when
// no rule matches.
func (c *Client) draftsMailboxID(ctx context.Context, accountID string) (string, error) {
	mailboxes, err := c.mailboxes(ctx, accountID)
	if err != nil {
		return "", err
	}

	id, ok := FindDraftsMailbox(mailboxes)
	if !ok {
		return "", &MailboxNotFoundError{Mailboxes: mailboxes}
	}
	return id, nil
}
