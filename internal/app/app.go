// Package app wires the triage collaborators together from
// configuration and keyring secrets. Both commands build their
// pipeline through it.
package app

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/charmbracelet/huh"

	"github.com/mbeaupre/autoemail/internal/ai"
	"github.com/mbeaupre/autoemail/internal/credential"
	"github.com/mbeaupre/autoemail/internal/files"
	"github.com/mbeaupre/autoemail/internal/jmap"
	"github.com/mbeaupre/autoemail/internal/mapping"
	"github.com/mbeaupre/autoemail/internal/model"
	"github.com/mbeaupre/autoemail/internal/source/email"
	"github.com/mbeaupre/autoemail/internal/store"
	"github.com/mbeaupre/autoemail/internal/triage"
)

// App holds the loaded configuration and shared dependencies.
type App struct {
	Config *model.AppConfig
	Logger *slog.Logger

	replica store.Store
}

// New loads the configuration from path and fills in secrets from the
// system keyring for any credential the file leaves empty.
func New(path string, logger *slog.Logger) (*App, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cfg, err := model.LoadConfig(path)
	if err != nil {
		return nil, err
	}

	resolveSecret(&cfg.IMAP.Password, credential.KeyIMAPPassword, logger)
	resolveSecret(&cfg.JMAP.Token, credential.KeyJMAPToken, logger)
	resolveSecret(&cfg.AI.APIKey, credential.KeyAnthropicAPI, logger)

	return &App{Config: cfg, Logger: logger}, nil
}

// resolveSecret fills an empty config value from the keyring. A missing
// keyring entry is not fatal here; the component that needs the secret
// reports the real failure.
func resolveSecret(target *string, key string, logger *slog.Logger) {
	if *target != "" {
		return
	}
	value, err := credential.Get(key)
	if err != nil {
		logger.Debug("credential not available from keyring",
			slog.String("key", key),
			slog.String("error", err.Error()),
		)
		return
	}
	*target = value
}

// BuildPipeline assembles the triage pipeline. JMAP initialization is
// attempted but not required: when it fails the pipeline runs in
// files-only mode, mirroring the behavior users rely on when their
// provider is unreachable.
func (a *App) BuildPipeline(ctx context.Context, dryRun bool) (*triage.Pipeline, error) {
	cfg := a.Config

	fetcher := email.NewFetcher(cfg.IMAP, a.Logger)
	aiClient := ai.NewClient(cfg.AI, ai.WithLogger(a.Logger))

	writer := files.NewWriter(cfg.ResponsesDir, a.Logger)
	if err := writer.Init(); err != nil {
		return nil, err
	}

	mapper := a.buildMapper(ctx, aiClient)
	drafter := a.buildDrafter(ctx, dryRun)

	return triage.NewPipeline(triage.Config{
		Fetcher:     fetcher,
		Generator:   aiClient,
		Mapper:      mapper,
		Saver:       writer,
		Drafter:     drafter,
		Limit:       cfg.IMAP.Limit,
		Concurrency: cfg.Concurrency,
		Logger:      a.Logger,
	}), nil
}

// buildMapper opens the replica and loads it. Any failure only costs
// store context on the drafts, so it degrades to a nil mapper.
func (a *App) buildMapper(ctx context.Context, aiClient *ai.Client) triage.SenderMapper {
	replica, err := store.NewSQLiteStore(a.Config.Store.DBPath)
	if err != nil {
		a.Logger.Warn("store replica unavailable, drafting without store context",
			slog.String("db_path", a.Config.Store.DBPath),
			slog.String("error", err.Error()),
		)
		return nil
	}
	a.replica = replica

	mapper := mapping.NewMapper(replica, aiClient, a.Logger)
	if err := mapper.Load(ctx); err != nil {
		a.Logger.Warn("loading store replica failed",
			slog.String("error", err.Error()),
		)
		return nil
	}
	return mapper
}

// buildDrafter initializes the JMAP client and validates the session.
// On failure it returns nil so replies fall back to response files.
func (a *App) buildDrafter(ctx context.Context, dryRun bool) triage.Drafter {
	client := jmap.NewClient(jmap.Config{
		SessionURL:   a.Config.JMAP.SessionURL,
		Token:        a.Config.JMAP.Token,
		AccountID:    a.Config.JMAP.AccountID,
		EmailAddress: a.Config.JMAP.EmailAddress,
		FromName:     a.Config.JMAP.FromName,
	}, jmap.WithLogger(a.Logger), jmap.WithDryRun(dryRun))

	// Dry runs never reach the server, so skip session validation too.
	if dryRun {
		return client
	}

	if err := client.InitSession(ctx); err != nil {
		a.Logger.Warn("jmap unavailable, saving responses as files only",
			slog.String("error", err.Error()),
		)
		return nil
	}
	return client
}

// Close releases resources held by the app.
func (a *App) Close() error {
	if a.replica != nil {
		return a.replica.Close()
	}
	return nil
}

// ConfirmRun asks before a mutating run when confirmation is enabled.
// Dry runs never prompt.
func (a *App) ConfirmRun(dryRun bool) (bool, error) {
	if dryRun || !a.Config.Confirm {
		return true, nil
	}

	proceed := false
	err := huh.NewConfirm().
		Title("Create reply drafts in your mailbox?").
		Description("Generated replies will appear in your Drafts folder for review.").
		Affirmative("Create drafts").
		Negative("Cancel").
		Value(&proceed).
		Run()
	if err != nil {
		return false, fmt.Errorf("reading confirmation: %w", err)
	}
	return proceed, nil
}
