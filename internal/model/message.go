package model

import "time"

// EmailAddress is a mailbox address with an optional display name.
type EmailAddress struct {
	Name    string `json:"name,omitempty"`
	Address string `json:"address"`
}

// EmailMessage is the normalized representation of a fetched inbox
// message. It is produced by the IMAP source and consumed read-only by
// the AI, mapping, and JMAP draft components.
type EmailMessage struct {
	// ID is the message identifier; the Message-ID header when present,
	// otherwise a synthetic id derived from the IMAP UID.
	ID string `json:"id"`

	// UID is the IMAP UID of the message within its mailbox.
	UID uint32 `json:"uid"`

	Date    time.Time      `json:"date"`
	From    EmailAddress   `json:"from"`
	To      []EmailAddress `json:"to"`
	Subject string         `json:"subject"`

	// TextBody is the plain-text body. When the message carried only an
	// HTML part, this holds the converted text.
	TextBody string `json:"text_body"`
	HTMLBody string `json:"html_body,omitempty"`

	// MessageID holds the message's own Message-ID token(s), without
	// angle brackets. Some providers report more than one.
	MessageID []string `json:"message_id,omitempty"`

	// References is the ordered reference chain from the References
	// header, oldest first.
	References []string `json:"references,omitempty"`

	// InReplyTo holds the In-Reply-To token(s), if any.
	InReplyTo []string `json:"in_reply_to,omitempty"`
}

// SenderGroup is the set of messages from one sender address, newest
// first. Each group is triaged as a unit and produces at most one reply.
type SenderGroup struct {
	Address  string
	Messages []EmailMessage
}

// Newest returns the most recent message in the group.
func (g SenderGroup) Newest() *EmailMessage {
	if len(g.Messages) == 0 {
		return nil
	}
	return &g.Messages[0]
}

// GroupScore pairs a sender group with its AI-assigned urgency score
// (0-100, higher is more urgent).
type GroupScore struct {
	Group   SenderGroup
	Urgency int
}
