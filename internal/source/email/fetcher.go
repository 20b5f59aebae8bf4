// Package email fetches recent inbox messages over IMAP and normalizes
// them into model.EmailMessage values for triage.
package email

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/emersion/go-imap/v2"
	"github.com/emersion/go-imap/v2/imapclient"

	"github.com/mbeaupre/autoemail/internal/model"
	"github.com/mbeaupre/autoemail/internal/source"
)

// Fetcher wraps go-imap v2 for connecting to the mail server and
// fetching recent messages. Each operation opens its own connection.
type Fetcher struct {
	cfg    model.IMAPConfig
	logger *slog.Logger
}

// NewFetcher creates an inbox fetcher from the IMAP configuration.
func NewFetcher(cfg model.IMAPConfig, logger *slog.Logger) *Fetcher {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Mailbox == "" {
		cfg.Mailbox = "INBOX"
	}
	if cfg.WindowDays <= 0 {
		cfg.WindowDays = 7
	}
	return &Fetcher{cfg: cfg, logger: logger}
}

// connect establishes a connection to the IMAP server, authenticates,
// and returns the connected client. The caller is responsible for
// calling Logout on the returned client.
func (f *Fetcher) connect(_ context.Context) (*imapclient.Client, error) {
	addr := f.cfg.Host + ":" + f.cfg.Port

	var client *imapclient.Client
	var err error

	if f.cfg.TLS {
		client, err = imapclient.DialTLS(addr, nil)
	} else {
		client, err = imapclient.DialStartTLS(addr, nil)
	}
	if err != nil {
		return nil, fmt.Errorf("connecting to IMAP %s: %w", addr, err)
	}

	if err := client.Login(f.cfg.Username, f.cfg.Password).Wait(); err != nil {
		_ = client.Logout().Wait()
		return nil, &source.AuthError{
			Server: addr,
			Message: fmt.Sprintf(
				"authentication failed for %s: %v",
				f.cfg.Username, err,
			),
		}
	}

	return client, nil
}

// FetchRecent connects to the server, selects the configured mailbox,
// and returns the most recent messages within the search window, fully
// parsed, up to limit. A non-positive limit uses the configured one.
func (f *Fetcher) FetchRecent(ctx context.Context, limit int) ([]model.EmailMessage, error) {
	if limit <= 0 {
		limit = f.cfg.Limit
	}

	client, err := f.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = client.Logout().Wait() }()

	if _, err := client.Select(f.cfg.Mailbox, nil).Wait(); err != nil {
		return nil, fmt.Errorf("selecting %s: %w", f.cfg.Mailbox, err)
	}

	since := time.Now().AddDate(0, 0, -f.cfg.WindowDays)
	criteria := &imap.SearchCriteria{Since: since}

	searchData, err := client.UIDSearch(criteria, nil).Wait()
	if err != nil {
		return nil, fmt.Errorf("searching messages: %w", err)
	}

	uids := searchData.AllUIDs()
	if len(uids) == 0 {
		f.logger.Info("no recent messages",
			slog.String("mailbox", f.cfg.Mailbox),
			slog.Int("window_days", f.cfg.WindowDays),
		)
		return nil, nil
	}

	// UIDs come back in mailbox order; the highest ones are the newest.
	if limit > 0 && len(uids) > limit {
		uids = uids[len(uids)-limit:]
	}

	uidSet := imap.UIDSetNum(uids...)

	bodySection := &imap.FetchItemBodySection{Peek: true}
	fetchOpts := &imap.FetchOptions{
		Envelope:    true,
		UID:         true,
		BodySection: []*imap.FetchItemBodySection{bodySection},
	}

	fetchCmd := client.Fetch(uidSet, fetchOpts)

	var messages []model.EmailMessage
	for {
		msg := fetchCmd.Next()
		if msg == nil {
			break
		}

		buf, err := msg.Collect()
		if err != nil {
			f.logger.Warn("collecting message failed, skipping",
				slog.String("error", err.Error()),
			)
			continue
		}

		parsed := messageFromBuffer(buf, bodySection)
		if parsed == nil {
			continue
		}
		messages = append(messages, *parsed)
	}

	if err := fetchCmd.Close(); err != nil {
		return messages, fmt.Errorf("fetching messages: %w", err)
	}

	f.logger.Info("fetched recent messages",
		slog.String("mailbox", f.cfg.Mailbox),
		slog.Int("count", len(messages)),
	)
	return messages, nil
}

// messageFromBuffer builds a model.EmailMessage from one fetch result.
// Envelope data fills in anything the MIME parse could not provide.
func messageFromBuffer(
	buf *imapclient.FetchMessageBuffer,
	bodySection *imap.FetchItemBodySection,
) *model.EmailMessage {
	msg := &model.EmailMessage{UID: uint32(buf.UID)}

	if raw := buf.FindBodySection(bodySection); raw != nil {
		parseRawMessage(raw, msg)
	}

	if buf.Envelope != nil {
		env := buf.Envelope
		if msg.Subject == "" {
			msg.Subject = env.Subject
		}
		if msg.Date.IsZero() {
			msg.Date = env.Date
		}
		if msg.From.Address == "" && len(env.From) > 0 {
			msg.From = model.EmailAddress{
				Name:    env.From[0].Name,
				Address: env.From[0].Addr(),
			}
		}
		if len(msg.To) == 0 {
			for _, to := range env.To {
				msg.To = append(msg.To, model.EmailAddress{
					Name:    to.Name,
					Address: to.Addr(),
				})
			}
		}
		if len(msg.MessageID) == 0 && env.MessageID != "" {
			msg.MessageID = []string{env.MessageID}
		}
	}

	finalizeMessage(msg)
	return msg
}
