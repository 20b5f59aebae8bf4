package jmap

import (
	"context"
	"errors"
	"testing"
)

func TestResolveAccountID(t *testing.T) {
	tests := []struct {
		name     string
		accounts map[string]Account
		address  string
		want     string
		wantErr  bool
	}{
		{
			name: "exact email match",
			accounts: map[string]Account{
				"a1": {Name: "Personal", Email: "me@other.test"},
				"a2": {Name: "Work", Email: "ops@example.com"},
			},
			address: "ops@example.com",
			want:    "a2",
		},
		{
			name: "case-insensitive match on account name",
			accounts: map[string]Account{
				"a1": {Name: "ops@example.com"},
			},
			address: "OPS@EXAMPLE.COM",
			want:    "a1",
		},
		{
			name: "substring match within account name",
			accounts: map[string]Account{
				"a1": {Name: "Mail for ops@example.com (primary)"},
				"a2": {Name: "Calendars"},
			},
			address: "ops@example.com",
			want:    "a1",
		},
		{
			name: "sole account wins without any match",
			accounts: map[string]Account{
				"only": {Name: "Whatever", Email: "other@elsewhere.test"},
			},
			address: "ops@example.com",
			want:    "only",
		},
		{
			name: "sole account without configured address",
			accounts: map[string]Account{
				"only": {Name: "Mail"},
			},
			want: "only",
		},
		{
			name: "exact match beats substring on another account",
			accounts: map[string]Account{
				"a1": {Name: "Shared ops@example.com archive"},
				"a2": {Email: "ops@example.com"},
			},
			address: "ops@example.com",
			want:    "a2",
		},
		{
			name: "multiple accounts and no match",
			accounts: map[string]Account{
				"a1": {Email: "one@elsewhere.test"},
				"a2": {Email: "two@elsewhere.test"},
			},
			address: "ops@example.com",
			wantErr: true,
		},
		{
			name:     "no accounts",
			accounts: map[string]Account{},
			address:  "ops@example.com",
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := resolveAccountID(tt.accounts, tt.address)
			if tt.wantErr {
				var resErr *AccountResolutionError
				if !errors.As(err, &resErr) {
					t.Fatalf("resolveAccountID() error = %v, want AccountResolutionError", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("resolveAccountID() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("resolveAccountID() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestAccountIDUsesConfiguredID(t *testing.T) {
	f := newFakeServer(t)
	c := f.client()
	c.cfg.AccountID = "configured"

	id, err := c.AccountID(context.Background())
	if err != nil {
		t.Fatalf("AccountID() error = %v", err)
	}
	if id != "configured" {
		t.Errorf("AccountID() = %q, want %q", id, "configured")
	}
	if f.sessionHits != 0 {
		t.Errorf("session fetches = %d, want 0 with a configured id", f.sessionHits)
	}
}

func TestAccountIDMemoized(t *testing.T) {
	f := newFakeServer(t)
	c := f.client()

	first, err := c.AccountID(context.Background())
	if err != nil {
		t.Fatalf("AccountID() error = %v", err)
	}
	second, err := c.AccountID(context.Background())
	if err != nil {
		t.Fatalf("second AccountID() error = %v", err)
	}

	if first != "a1" || second != "a1" {
		t.Errorf("AccountID() = %q then %q, want %q both times", first, second, "a1")
	}
	if f.sessionHits != 1 {
		t.Errorf("session fetches = %d, want 1", f.sessionHits)
	}
}
