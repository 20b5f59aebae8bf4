package jmap

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
)

// fakeServer is a minimal JMAP server for wire-level tests. It serves a
// session document at /session and dispatches method calls at /api,
// recording every method name it receives.
type fakeServer struct {
	t   *testing.T
	srv *httptest.Server

	sessionHits int
	calls       []string

	accounts  map[string]Account
	mailboxes []Mailbox
	queryIDs  []string

	// setResults is consumed one entry per Email/set call.
	setResults []emailSetResponse
}

func newFakeServer(t *testing.T) *fakeServer {
	t.Helper()

	f := &fakeServer{
		t: t,
		accounts: map[string]Account{
			"a1": {Name: "ops", Email: "ops@example.com"},
		},
		mailboxes: []Mailbox{
			{ID: "m1", Name: "Inbox", Role: "inbox"},
			{ID: "m2", Name: "Drafts", Role: "drafts"},
		},
		setResults: []emailSetResponse{
			{Created: map[string]createdEmail{createKey: {ID: "d1"}}},
		},
	}
	f.srv = httptest.NewServer(http.HandlerFunc(f.handle))
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeServer) handle(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/session":
		f.sessionHits++
		writeJSON(w, map[string]any{
			"capabilities": map[string]any{
				CapCore: map[string]any{},
				CapMail: map[string]any{},
			},
			"accounts": f.accounts,
			"apiUrl":   f.srv.URL + "/api",
		})
	case "/api":
		f.handleMethodCall(w, r)
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeServer) handleMethodCall(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		f.t.Fatalf("reading method call body: %v", err)
	}

	var req struct {
		MethodCalls [][3]json.RawMessage `json:"methodCalls"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		f.t.Fatalf("decoding method call envelope: %v", err)
	}
	if len(req.MethodCalls) != 1 {
		f.t.Fatalf("got %d method calls, want 1", len(req.MethodCalls))
	}

	var method string
	if err := json.Unmarshal(req.MethodCalls[0][0], &method); err != nil {
		f.t.Fatalf("decoding method name: %v", err)
	}
	f.calls = append(f.calls, method)

	var args any
	switch method {
	case "Mailbox/get":
		args = mailboxGetResponse{List: f.mailboxes}
	case "Email/query":
		args = emailQueryResponse{IDs: f.queryIDs}
	case "Email/set":
		if len(f.setResults) == 0 {
			f.t.Fatalf("unexpected Email/set call #%d", f.countCalls("Email/set"))
		}
		args = f.setResults[0]
		f.setResults = f.setResults[1:]
	default:
		f.t.Fatalf("unexpected method %q", method)
	}

	writeJSON(w, map[string]any{
		"methodResponses": []any{
			[]any{method, args, "0"},
		},
	})
}

func (f *fakeServer) countCalls(method string) int {
	n := 0
	for _, call := range f.calls {
		if call == method {
			n++
		}
	}
	return n
}

// client builds a Client pointed at the fake server.
func (f *fakeServer) client(opts ...Option) *Client {
	cfg := Config{
		SessionURL:   f.srv.URL + "/session",
		Token:        "test-token",
		EmailAddress: "ops@example.com",
		FromName:     "Ops",
	}
	opts = append([]Option{
		WithHTTPClient(f.srv.Client()),
		WithLogger(discardLogger()),
	}, opts...)
	return NewClient(cfg, opts...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshaling fake response: %v", err))
	}
	_, _ = w.Write(data)
}
