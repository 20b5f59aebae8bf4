package jmap

import (
	"errors"
	"fmt"
	"strings"
)

// TransportError is any non-success HTTP outcome, or a response body
// whose shape could not be parsed. It carries the server-provided
// detail so misconfiguration is diagnosable without a network trace.
type TransportError struct {
	Status     int
	StatusText string
	Body       string

	// Err holds the underlying cause when the failure happened before a
	// response was received (dial, TLS, decode).
	Err error
}

func (e *TransportError) Error() string {
	switch {
	case e.Err != nil && e.Status == 0:
		return fmt.Sprintf("jmap transport: %v", e.Err)
	case e.Body != "":
		return fmt.Sprintf("jmap transport: %d %s: %s", e.Status, e.StatusText, e.Body)
	default:
		return fmt.Sprintf("jmap transport: %d %s", e.Status, e.StatusText)
	}
}

func (e *TransportError) Unwrap() error { return e.Err }

// IsTransportError reports whether err (or any error in its chain) is a
// TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// SessionInitError means the session fetch succeeded but the session
// lacks a required element (mail capability or API endpoint).
type SessionInitError struct {
	Missing string
}

func (e *SessionInitError) Error() string {
	return fmt.Sprintf("jmap session: missing %s", e.Missing)
}

// AccountResolutionError means no account id was configured and
// auto-discovery against the session account list was exhausted.
type AccountResolutionError struct {
	EmailAddress string
	AccountCount int
}

func (e *AccountResolutionError) Error() string {
	if e.EmailAddress == "" {
		return fmt.Sprintf(
			"jmap account: no account id configured and no email address to discover one (%d accounts in session)",
			e.AccountCount,
		)
	}
	return fmt.Sprintf(
		"jmap account: no account matching %s (%d accounts in session); set an explicit account id",
		e.EmailAddress, e.AccountCount,
	)
}

// MailboxNotFoundError means no Drafts mailbox matched any resolution
// rule. It carries the full mailbox listing for diagnostics.
type MailboxNotFoundError struct {
	Mailboxes []Mailbox
}

func (e *MailboxNotFoundError) Error() string {
	names := make([]string, 0, len(e.Mailboxes))
	for _, m := range e.Mailboxes {
		if m.Role != "" {
			names = append(names, fmt.Sprintf("%s (%s)", m.Name, m.Role))
		} else {
			names = append(names, m.Name)
		}
	}
	return "jmap: drafts mailbox not found; available mailboxes: " + strings.Join(names, ", ")
}

// DraftRejectedError means the server responded but refused to create
// the draft for a reason other than the known threading-property
// rejection.
type DraftRejectedError struct {
	Type        string
	Description string
}

func (e *DraftRejectedError) Error() string {
	desc := e.Description
	if desc == "" {
		desc = "no description"
	}
	return fmt.Sprintf("jmap: server rejected draft creation: %s - %s", e.Type, desc)
}
