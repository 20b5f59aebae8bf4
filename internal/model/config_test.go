package model

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadConfigMissingFileReturnsDefaults(t *testing.T) {
	cfg, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.IMAP.Port != "993" {
		t.Errorf("IMAP.Port = %q, want 993", cfg.IMAP.Port)
	}
	if !cfg.IMAP.TLS {
		t.Error("IMAP.TLS = false, want true")
	}
	if cfg.IMAP.Mailbox != "INBOX" {
		t.Errorf("IMAP.Mailbox = %q, want INBOX", cfg.IMAP.Mailbox)
	}
	if cfg.IMAP.WindowDays != 7 {
		t.Errorf("IMAP.WindowDays = %d, want 7", cfg.IMAP.WindowDays)
	}
	if cfg.AI.MaxTokens != 4096 {
		t.Errorf("AI.MaxTokens = %d, want 4096", cfg.AI.MaxTokens)
	}
	if cfg.Concurrency != 4 {
		t.Errorf("Concurrency = %d, want 4", cfg.Concurrency)
	}
}

func TestLoadConfigReadsFileAndKeepsDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
imap:
  host: mail.example.com
  username: ops@example.com
  limit: 10
jmap:
  email_address: ops@example.com
ai:
  signature: "Best regards,\nOps"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}

	if cfg.IMAP.Host != "mail.example.com" {
		t.Errorf("IMAP.Host = %q, want mail.example.com", cfg.IMAP.Host)
	}
	if cfg.IMAP.Limit != 10 {
		t.Errorf("IMAP.Limit = %d, want 10", cfg.IMAP.Limit)
	}

	// Keys the file omits keep their defaults.
	if cfg.IMAP.Port != "993" {
		t.Errorf("IMAP.Port = %q, want default 993", cfg.IMAP.Port)
	}
	if cfg.AI.Model == "" {
		t.Error("AI.Model is empty, want the default model")
	}
}

func TestApplyDerivedSessionURL(t *testing.T) {
	tests := []struct {
		name       string
		sessionURL string
		email      string
		want       string
	}{
		{
			name:  "derived from address domain",
			email: "ops@example.com",
			want:  "https://example.com/.well-known/jmap",
		},
		{
			name:       "explicit URL wins",
			sessionURL: "https://jmap.example.com/session",
			email:      "ops@example.com",
			want:       "https://jmap.example.com/session",
		},
		{
			name: "nothing to derive from",
			want: "",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := defaultAppConfig()
			cfg.JMAP.SessionURL = tt.sessionURL
			cfg.JMAP.EmailAddress = tt.email
			cfg.applyDerived()
			if cfg.JMAP.SessionURL != tt.want {
				t.Errorf("SessionURL = %q, want %q", cfg.JMAP.SessionURL, tt.want)
			}
		})
	}
}

func TestSaveConfigRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "config.yaml")

	cfg := defaultAppConfig()
	cfg.IMAP.Host = "mail.example.com"
	cfg.JMAP.EmailAddress = "ops@example.com"
	cfg.Confirm = true

	if err := SaveConfig(path, cfg); err != nil {
		t.Fatalf("SaveConfig() error = %v", err)
	}

	loaded, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig() error = %v", err)
	}
	if loaded.IMAP.Host != "mail.example.com" {
		t.Errorf("IMAP.Host = %q, want mail.example.com", loaded.IMAP.Host)
	}
	if !loaded.Confirm {
		t.Error("Confirm = false, want true")
	}
}
