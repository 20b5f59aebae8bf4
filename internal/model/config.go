package model

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// IMAPConfig holds the settings for fetching mail from the inbox.
type IMAPConfig struct {
	Host     string `mapstructure:"host" yaml:"host"`
	Port     string `mapstructure:"port" yaml:"port"`
	Username string `mapstructure:"username" yaml:"username"`

	// Password is normally left empty in the config file and read from
	// the system keyring instead.
	Password string `mapstructure:"password" yaml:"password"`

	TLS     bool   `mapstructure:"tls" yaml:"tls"`
	Mailbox string `mapstructure:"mailbox" yaml:"mailbox"`

	// WindowDays is how far back to search for recent messages.
	WindowDays int `mapstructure:"window_days" yaml:"window_days"`

	// Limit caps how many recent messages one run processes.
	Limit int `mapstructure:"limit" yaml:"limit"`
}

// JMAPConfig holds the settings for the draft-creation client.
type JMAPConfig struct {
	// SessionURL is the JMAP session endpoint. When empty and
	// EmailAddress is set, the well-known discovery URL for the address
	// domain is used.
	SessionURL string `mapstructure:"session_url" yaml:"session_url"`

	// Token is the bearer token; normally read from the keyring.
	Token string `mapstructure:"token" yaml:"token"`

	// AccountID selects the mailbox store explicitly. When empty the
	// account is discovered from the session using EmailAddress.
	AccountID string `mapstructure:"account_id" yaml:"account_id"`

	// EmailAddress is the user's own address, used for account
	// discovery and as the draft sender.
	EmailAddress string `mapstructure:"email_address" yaml:"email_address"`

	// FromName is the display name placed on drafted replies.
	FromName string `mapstructure:"from_name" yaml:"from_name"`
}

// AIConfig holds settings for reply generation and urgency scoring.
type AIConfig struct {
	Model     string `mapstructure:"model" yaml:"model"`
	MaxTokens int    `mapstructure:"max_tokens" yaml:"max_tokens"`

	// APIKey is normally read from the keyring.
	APIKey string `mapstructure:"api_key" yaml:"api_key"`

	// KnowledgeFile is the markdown knowledge base included in every
	// prompt.
	KnowledgeFile string `mapstructure:"knowledge_file" yaml:"knowledge_file"`

	// Signature is the closing used on drafted replies.
	Signature string `mapstructure:"signature" yaml:"signature"`

	// MaxAttempts bounds the retry loop for rate-limited calls.
	MaxAttempts int `mapstructure:"max_attempts" yaml:"max_attempts"`
}

// StoreConfig holds the local replica database settings.
type StoreConfig struct {
	// DBPath is the SQLite file holding the shops/owners replica.
	DBPath string `mapstructure:"db_path" yaml:"db_path"`
}

// AppConfig is the top-level application configuration.
type AppConfig struct {
	IMAP  IMAPConfig  `mapstructure:"imap" yaml:"imap"`
	JMAP  JMAPConfig  `mapstructure:"jmap" yaml:"jmap"`
	AI    AIConfig    `mapstructure:"ai" yaml:"ai"`
	Store StoreConfig `mapstructure:"store" yaml:"store"`

	// ResponsesDir is where generated replies are written when JMAP is
	// unavailable.
	ResponsesDir string `mapstructure:"responses_dir" yaml:"responses_dir"`

	// DryRun disables every mutating remote call.
	DryRun bool `mapstructure:"dry_run" yaml:"dry_run"`

	// Confirm asks before creating drafts on non-dry runs.
	Confirm bool `mapstructure:"confirm" yaml:"confirm"`

	// Concurrency caps how many sender groups are triaged in parallel.
	Concurrency int `mapstructure:"concurrency" yaml:"concurrency"`
}

// DefaultConfigPath returns the default path for the configuration
// file, located at ~/.config/autoemail/config.yaml.
func DefaultConfigPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", "config.yaml")
	}
	return filepath.Join(home, ".config", "autoemail", "config.yaml")
}

// defaultAppConfig returns a sensible default configuration.
func defaultAppConfig() *AppConfig {
	return &AppConfig{
		IMAP: IMAPConfig{
			Port:       "993",
			TLS:        true,
			Mailbox:    "INBOX",
			WindowDays: 7,
			Limit:      50,
		},
		AI: AIConfig{
			Model:         "claude-sonnet-4-5-20250929",
			MaxTokens:     4096,
			KnowledgeFile: "knowledge.md",
			MaxAttempts:   3,
		},
		Store: StoreConfig{
			DBPath: filepath.Join(".", "autoemail.db"),
		},
		ResponsesDir: "responses",
		Concurrency:  4,
	}
}

// LoadConfig reads configuration from the given YAML file path using
// Viper, applying AUTOEMAIL_* environment overrides. If the file does
// not exist, it returns the default configuration.
func LoadConfig(path string) (*AppConfig, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.SetEnvPrefix("autoemail")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Set defaults so missing keys resolve to sensible values.
	v.SetDefault("imap.port", "993")
	v.SetDefault("imap.tls", true)
	v.SetDefault("imap.mailbox", "INBOX")
	v.SetDefault("imap.window_days", 7)
	v.SetDefault("imap.limit", 50)
	v.SetDefault("ai.model", "claude-sonnet-4-5-20250929")
	v.SetDefault("ai.max_tokens", 4096)
	v.SetDefault("ai.knowledge_file", "knowledge.md")
	v.SetDefault("ai.max_attempts", 3)
	v.SetDefault("store.db_path", "autoemail.db")
	v.SetDefault("responses_dir", "responses")
	v.SetDefault("concurrency", 4)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(*os.PathError); ok {
			return defaultAppConfig(), nil
		}
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaultAppConfig(), nil
		}
		return nil, fmt.Errorf("reading config %s: %w", path, err)
	}

	cfg := defaultAppConfig()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config %s: %w", path, err)
	}

	cfg.applyDerived()

	return cfg, nil
}

// applyDerived fills in values that can be derived from other settings.
func (c *AppConfig) applyDerived() {
	// Without an explicit session URL, fall back to the well-known
	// discovery path on the address domain.
	if c.JMAP.SessionURL == "" && c.JMAP.EmailAddress != "" {
		if _, domain, ok := strings.Cut(c.JMAP.EmailAddress, "@"); ok {
			c.JMAP.SessionURL = "https://" + domain + "/.well-known/jmap"
		}
	}
}

// SaveConfig writes the given configuration to a YAML file at path,
// creating parent directories if needed.
func SaveConfig(path string, cfg *AppConfig) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating config directory %s: %w", dir, err)
	}

	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	v.Set("imap", cfg.IMAP)
	v.Set("jmap", cfg.JMAP)
	v.Set("ai", cfg.AI)
	v.Set("store", cfg.Store)
	v.Set("responses_dir", cfg.ResponsesDir)
	v.Set("dry_run", cfg.DryRun)
	v.Set("confirm", cfg.Confirm)
	v.Set("concurrency", cfg.Concurrency)

	if err := v.WriteConfigAs(path); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}

	return nil
}
