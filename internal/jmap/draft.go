package jmap

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/mbeaupre/autoemail/internal/model"
)

// draftKeyword is the JMAP keyword marking a message as an unsent draft.
const draftKeyword = "$draft"

// createKey is the client-chosen key for the single object of each
// Email/set create call.
const createKey = "draft"

// CheckStatus classifies the outcome of a duplicate-draft check.
type CheckStatus int

const (
	// CheckNotFound means the search ran and found no existing draft.
	CheckNotFound CheckStatus = iota

	// CheckFound means an existing draft reply was found.
	CheckFound

	// CheckFailed means the check itself failed. Callers treat this the
	// same as not-found so a transient read failure never blocks draft
	// creation, at the accepted risk of an occasional duplicate.
	CheckFailed
)

// CheckResult is the outcome of CheckDraft. The failed state is
// distinguished from not-found so callers and tests can observe the
// fail-open path.
type CheckResult struct {
	Status  CheckStatus
	DraftID string
	Err     error
}

// Found reports whether an existing draft was located.
func (r CheckResult) Found() bool { return r.Status == CheckFound }

// CheckDraft reports whether a draft reply to the given message already
// exists in the Drafts mailbox. In dry-run mode it reports not-found
// without any network IO.
func (c *Client) CheckDraft(ctx context.Context, msg *model.EmailMessage) CheckResult {
	if c.dryRun {
		return CheckResult{Status: CheckNotFound}
	}

	accountID, err := c.AccountID(ctx)
	if err != nil {
		return c.checkFailed(msg, err)
	}

	mailboxID, err := c.draftsMailboxID(ctx, accountID)
	if err != nil {
		return c.checkFailed(msg, err)
	}

	draftID, err := c.findExistingDraft(ctx, accountID, mailboxID, msg)
	if err != nil {
		return c.checkFailed(msg, err)
	}
	if draftID == "" {
		return CheckResult{Status: CheckNotFound}
	}
	return CheckResult{Status: CheckFound, DraftID: draftID}
}

// checkFailed logs the swallowed error and returns the failed state.
func (c *Client) checkFailed(msg *model.EmailMessage, err error) CheckResult {
	c.logger.Warn("draft check failed, treating as not found",
		slog.String("sender", msg.From.Address),
		slog.String("subject", msg.Subject),
		slog.String("error", err.Error()),
	)
	return CheckResult{Status: CheckFailed, Err: err}
}

// findExistingDraft searches the Drafts mailbox for a draft addressed
// to the original sender with the computed reply subject, newest first.
func (c *Client) findExistingDraft(
	ctx context.Context,
	accountID, mailboxID string,
	msg *model.EmailMessage,
) (string, error) {
	sess, err := c.ensureSession(ctx)
	if err != nil {
		return "", err
	}

	args, err := c.call(ctx, sess.APIURL, "Email/query", map[string]any{
		"accountId": accountID,
		"filter": queryFilter{
			Operator: "AND",
			Conditions: []filterCondition{
				{InMailbox: mailboxID},
				{HasKeyword: draftKeyword},
				{To: msg.From.Address},
				{Subject: ReplySubject(msg.Subject)},
			},
		},
		"sort": []sortComparator{
			{Property: "receivedAt", IsAscending: false},
		},
		"limit": 1,
	})
	if err != nil {
		return "", err
	}

	var resp emailQueryResponse
	if err := json.Unmarshal(args, &resp); err != nil {
		return "", c.shapeError("Email/query", args, err)
	}

	if len(resp.IDs) == 0 {
		return "", nil
	}
	return resp.IDs[0], nil
}

// CreateDraft creates a draft reply to msg with the given body and
// returns the new (or pre-existing) draft id. In dry-run mode it
// returns an empty id without any network IO.
//
// Threading is carried in the references field only; when the server
// rejects references as an invalid property, the create is retried once
// with all threading metadata omitted.
func (c *Client) CreateDraft(
	ctx context.Context,
	msg *model.EmailMessage,
	replyBody string,
) (string, error) {
	if c.dryRun {
		c.logger.Info("dry run: skipping draft creation",
			slog.String("sender", msg.From.Address),
			slog.String("subject", msg.Subject),
		)
		return "", nil
	}

	accountID, err := c.AccountID(ctx)
	if err != nil {
		return "", err
	}

	mailboxID, err := c.draftsMailboxID(ctx, accountID)
	if err != nil {
		return "", err
	}

	// Re-check for an existing draft: the caller's own pre-check and
	// this one can race under concurrent invocations, and creating is
	// the one step that must stay idempotent.
	existingID, err := c.findExistingDraft(ctx, accountID, mailboxID, msg)
	if err != nil {
		c.logger.Warn("pre-create draft check failed, proceeding with creation",
			slog.String("sender", msg.From.Address),
			slog.String("error", err.Error()),
		)
	}
	if existingID != "" {
		c.logger.Info("draft already exists, skipping creation",
			slog.String("draft_id", existingID),
			slog.String("sender", msg.From.Address),
		)
		return existingID, nil
	}

	subject := ReplySubject(msg.Subject)
	draft := c.buildDraft(msg, mailboxID, subject, replyBody)
	draft.References = ThreadReferences(msg, c.senderDomain())

	c.logger.Info("creating draft",
		slog.String("from", draft.From[0].Email),
		slog.String("to", msg.From.Address),
		slog.String("subject", subject),
		slog.Int("body_length", len(replyBody)),
		slog.String("original_id", msg.ID),
	)

	draftID, retryable, err := c.submitDraft(ctx, accountID, draft)
	if err == nil {
		return draftID, nil
	}
	if !retryable {
		return "", err
	}

	// One-shot fallback: identical request without threading metadata.
	c.logger.Info("references rejected, retrying without threading",
		slog.String("sender", msg.From.Address),
	)
	draft.References = nil

	draftID, _, err = c.submitDraft(ctx, accountID, draft)
	if err != nil {
		return "", fmt.Errorf("draft creation failed with and without threading: %w", err)
	}
	return draftID, nil
}

// buildDraft assembles the Email/set create payload. The sender falls
// back to the original message's first recipient when no address is
// configured.
func (c *Client) buildDraft(
	msg *model.EmailMessage,
	mailboxID, subject, replyBody string,
) draftEmail {
	fromEmail := c.cfg.EmailAddress
	if fromEmail == "" && len(msg.To) > 0 {
		fromEmail = msg.To[0].Address
	}

	return draftEmail{
		MailboxIDs: map[string]bool{mailboxID: true},
		From: []Address{
			{Name: c.cfg.FromName, Email: fromEmail},
		},
		To: []Address{
			{Name: msg.From.Name, Email: msg.From.Address},
		},
		Subject: subject,
		BodyValues: map[string]BodyValue{
			"body": {Value: replyBody, Charset: "utf-8"},
		},
		TextBody: []BodyPart{
			{PartID: "body", Type: "text/plain"},
		},
		Keywords: map[string]bool{draftKeyword: true},
	}
}

// submitDraft performs one Email/set create attempt. retryable is true
// only for the known threading-property rejection.
func (c *Client) submitDraft(
	ctx context.Context,
	accountID string,
	draft draftEmail,
) (draftID string, retryable bool, err error) {
	sess, err := c.ensureSession(ctx)
	if err != nil {
		return "", false, err
	}

	args, err := c.call(ctx, sess.APIURL, "Email/set", map[string]any{
		"accountId": accountID,
		"create":    map[string]draftEmail{createKey: draft},
	})
	if err != nil {
		return "", false, err
	}

	var resp emailSetResponse
	if err := json.Unmarshal(args, &resp); err != nil {
		return "", false, c.shapeError("Email/set", args, err)
	}

	if created, ok := resp.Created[createKey]; ok && created.ID != "" {
		c.logger.Info("draft created", slog.String("draft_id", created.ID))
		return created.ID, false, nil
	}

	if rejection, ok := resp.NotCreated[createKey]; ok {
		if rejection.Type == "invalidProperties" &&
			slices.Contains(rejection.Properties, "references") &&
			len(draft.References) > 0 {
			return "", true, &DraftRejectedError{
				Type:        rejection.Type,
				Description: rejection.Description,
			}
		}
		c.logger.Error("draft rejected",
			slog.String("type", rejection.Type),
			slog.String("description", rejection.Description),
			slog.String("properties", strings.Join(rejection.Properties, ",")),
			slog.String("account_id", accountID),
		)
		return "", false, &DraftRejectedError{
			Type:        rejection.Type,
			Description: rejection.Description,
		}
	}

	return "", false, c.shapeError(
		"Email/set", args,
		fmt.Errorf("response carries neither created nor notCreated for %q", createKey),
	)
}

// ReplySubject computes the subject for a reply: the original subject
// when it already carries the "Re:" prefix, otherwise "Re: " prepended.
// The prefix check is case-sensitive, matching common client behavior.
func ReplySubject(subject string) string {
	if strings.HasPrefix(subject, "Re:") {
		return subject
	}
	return "Re: " + subject
}

// ThreadReferences builds the reference chain for a reply, in order and
// deduplicated by value: the original chain, then the original's own
// message id token(s), then - only when still empty - a token
// synthesized from the message identifier and the sender domain.
func ThreadReferences(msg *model.EmailMessage, domain string) []string {
	var references []string
	seen := make(map[string]bool)

	add := func(token string) {
		if token == "" || seen[token] {
			return
		}
		seen[token] = true
		references = append(references, token)
	}

	for _, ref := range msg.References {
		add(ref)
	}
	for _, id := range msg.MessageID {
		add(id)
	}

	if len(references) == 0 && msg.ID != "" {
		add(formatMessageID(msg.ID, domain))
	}

	return references
}

// formatMessageID turns a bare identifier into an angle-bracketed
// message-id token using the given domain, defaulting to example.com.
// Already-bracketed ids pass through unchanged.
func formatMessageID(id, domain string) string {
	if strings.HasPrefix(id, "<") && strings.HasSuffix(id, ">") {
		return id
	}
	if domain == "" {
		domain = "example.com"
	}
	return fmt.Sprintf("<%s@%s>", id, domain)
}
