package jmap

import (
	"encoding/json"
	"fmt"
)

// JMAP capability URIs used in every method-call envelope.
const (
	CapCore = "urn:ietf:params:jmap:core"
	CapMail = "urn:ietf:params:jmap:mail"
)

// Session is the server-advertised session object: capabilities,
// account list, and API endpoint. Fetched once per run.
type Session struct {
	Capabilities map[string]json.RawMessage `json:"capabilities"`
	Accounts     map[string]Account         `json:"accounts"`
	APIURL       string                     `json:"apiUrl"`
}

// Account is one entry of the session account map.
type Account struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

// Mailbox is a read-only snapshot of one server-side mailbox.
type Mailbox struct {
	ID   string `json:"id"`
	Name string `json:"name"`
	Role string `json:"role,omitempty"`
}

// Address is a JMAP email address object.
type Address struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email"`
}

// BodyValue holds body content for one part.
type BodyValue struct {
	Value   string `json:"value"`
	Charset string `json:"charset,omitempty"`
}

// BodyPart references a body part by id and type.
type BodyPart struct {
	PartID string `json:"partId"`
	Type   string `json:"type"`
}

// request is the JMAP method-call envelope sent to the API endpoint.
type request struct {
	Using       []string     `json:"using"`
	MethodCalls []methodCall `json:"methodCalls"`
}

// methodCall marshals as the JMAP triple ["Name", {args}, "callId"].
type methodCall struct {
	Name   string
	Args   any
	CallID string
}

func (m methodCall) MarshalJSON() ([]byte, error) {
	return json.Marshal([]any{m.Name, m.Args, m.CallID})
}

// methodResponse is one entry of the response methodResponses array.
// Args is kept raw and decoded per method by the caller.
type methodResponse struct {
	Name   string
	Args   json.RawMessage
	CallID string
}

func (m *methodResponse) UnmarshalJSON(data []byte) error {
	var parts []json.RawMessage
	if err := json.Unmarshal(data, &parts); err != nil {
		return err
	}
	if len(parts) != 3 {
		return fmt.Errorf("method response has %d elements, want 3", len(parts))
	}
	if err := json.Unmarshal(parts[0], &m.Name); err != nil {
		return fmt.Errorf("method response name: %w", err)
	}
	m.Args = parts[1]
	if err := json.Unmarshal(parts[2], &m.CallID); err != nil {
		return fmt.Errorf("method response call id: %w", err)
	}
	return nil
}

// response is the top-level JMAP API response.
type response struct {
	MethodResponses []methodResponse `json:"methodResponses"`
}

// mailboxGetResponse is the Mailbox/get response body.
type mailboxGetResponse struct {
	List []Mailbox `json:"list"`
}

// emailQueryResponse is the Email/query response body.
type emailQueryResponse struct {
	IDs []string `json:"ids"`
}

// emailSetResponse is the Email/set response body.
type emailSetResponse struct {
	Created    map[string]createdEmail `json:"created"`
	NotCreated map[string]setError     `json:"notCreated"`
}

type createdEmail struct {
	ID string `json:"id"`
}

// setError is the per-object rejection detail of an Email/set call.
type setError struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Properties  []string `json:"properties,omitempty"`
}

// queryFilter is the AND conjunction used for the dedup search.
type queryFilter struct {
	Operator   string            `json:"operator"`
	Conditions []filterCondition `json:"conditions"`
}

// filterCondition is a single Email/query filter condition. Only the
// fields this client uses are modeled.
type filterCondition struct {
	InMailbox  string `json:"inMailbox,omitempty"`
	HasKeyword string `json:"hasKeyword,omitempty"`
	To         string `json:"to,omitempty"`
	Subject    string `json:"subject,omitempty"`
}

// sortComparator orders Email/query results.
type sortComparator struct {
	Property    string `json:"property"`
	IsAscending bool   `json:"isAscending"`
}

// draftEmail is the Email/set create payload for one draft.
type draftEmail struct {
	MailboxIDs map[string]bool      `json:"mailboxIds"`
	From       []Address            `json:"from"`
	To         []Address            `json:"to"`
	Subject    string               `json:"subject"`
	BodyValues map[string]BodyValue `json:"bodyValues"`
	TextBody   []BodyPart           `json:"textBody"`
	Keywords   map[string]bool      `json:"keywords"`

	// References carries the threading chain. In-Reply-To is omitted on
	// purpose: some providers reject it even though references works.
	References []string `json:"references,omitempty"`
}
