package email

import (
	"bytes"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/emersion/go-message/mail"
	"github.com/k3a/html2text"

	"github.com/mbeaupre/autoemail/internal/model"
)

// parseRawMessage parses a raw RFC 5322 message with go-message and
// fills msg with headers and body content. Threading headers are kept
// so drafted replies can join the conversation.
func parseRawMessage(raw []byte, msg *model.EmailMessage) {
	mr, err := mail.CreateReader(bytes.NewReader(raw))
	if err != nil {
		// If parsing fails, treat the whole payload as plain text.
		msg.TextBody = string(raw)
		return
	}
	defer mr.Close()

	header := mr.Header

	if id, err := header.MessageID(); err == nil && id != "" {
		msg.MessageID = []string{id}
	}
	if refs, err := header.MsgIDList("References"); err == nil {
		msg.References = refs
	}
	if replies, err := header.MsgIDList("In-Reply-To"); err == nil {
		msg.InReplyTo = replies
	}

	msg.Subject, _ = header.Subject()
	if date, err := header.Date(); err == nil {
		msg.Date = date
	}

	if from, err := header.AddressList("From"); err == nil && len(from) > 0 {
		msg.From = model.EmailAddress{
			Name:    from[0].Name,
			Address: from[0].Address,
		}
	}
	if to, err := header.AddressList("To"); err == nil {
		for _, addr := range to {
			msg.To = append(msg.To, model.EmailAddress{
				Name:    addr.Name,
				Address: addr.Address,
			})
		}
	}

	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			break
		}
		if err != nil {
			break
		}

		inline, ok := part.Header.(*mail.InlineHeader)
		if !ok {
			continue
		}

		contentType, _, _ := inline.ContentType()
		body, readErr := io.ReadAll(part.Body)
		if readErr != nil {
			continue
		}

		switch {
		case strings.HasPrefix(contentType, "text/plain"):
			msg.TextBody = string(body)
		case strings.HasPrefix(contentType, "text/html"):
			msg.HTMLBody = string(body)
		}
	}
}

// finalizeMessage fills the gaps a sparse message leaves behind: an
// HTML-only body is converted to text, and the identifier, subject,
// sender, and date get stable fallbacks.
func finalizeMessage(msg *model.EmailMessage) {
	if msg.TextBody == "" && msg.HTMLBody != "" {
		msg.TextBody = html2text.HTML2Text(msg.HTMLBody)
	}

	switch {
	case msg.ID != "":
	case len(msg.MessageID) > 0:
		msg.ID = msg.MessageID[0]
	case msg.UID != 0:
		msg.ID = fmt.Sprintf("uid-%d", msg.UID)
	}

	if msg.Subject == "" {
		msg.Subject = "(No Subject)"
	}
	if msg.From.Address == "" {
		msg.From.Address = "unknown@example.com"
	}
	if msg.Date.IsZero() {
		msg.Date = time.Now()
	}
}
