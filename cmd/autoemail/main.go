// Command autoemail runs the drafting pipeline: it fetches recent
// inbox mail, groups it by sender, and creates an AI-drafted reply in
// the Drafts mailbox for every sender that does not already have one.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/mbeaupre/autoemail/internal/app"
	"github.com/mbeaupre/autoemail/internal/model"
	"github.com/mbeaupre/autoemail/internal/store"
)

func main() {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to the YAML config file")
	dryRun := flag.Bool("dry-run", false, "log what would happen without touching the mailbox")
	limit := flag.Int("limit", 0, "override the number of recent messages to process")
	importPath := flag.String("import", "", "import a shops/owners JSON export into the replica and exit")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(*configPath, *dryRun, *limit, *importPath, logger); err != nil {
		logger.Error("run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(configPath string, dryRun bool, limit int, importPath string, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(configPath, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if importPath != "" {
		return runImport(ctx, a.Config.Store.DBPath, importPath)
	}

	if dryRun {
		a.Config.DryRun = true
	}
	if limit > 0 {
		a.Config.IMAP.Limit = limit
	}

	proceed, err := a.ConfirmRun(a.Config.DryRun)
	if err != nil {
		return err
	}
	if !proceed {
		logger.Info("run cancelled")
		return nil
	}

	pipeline, err := a.BuildPipeline(ctx, a.Config.DryRun)
	if err != nil {
		return err
	}

	summary, err := pipeline.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("processed %d sender group(s): %d drafted, %d skipped, %d saved to files, %d failed\n",
		summary.Groups, summary.Drafted, summary.Skipped, summary.Saved, summary.Failed)

	if summary.Failed > 0 {
		return fmt.Errorf("%d sender group(s) failed", summary.Failed)
	}
	return nil
}

// runImport refreshes the local replica from a JSON export of the
// business database.
func runImport(ctx context.Context, dbPath, importPath string) error {
	replica, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		return err
	}
	defer replica.Close()

	shops, owners, err := store.ImportFile(ctx, replica, importPath)
	if err != nil {
		return err
	}

	fmt.Printf("imported %d shop(s) and %d owner(s) into %s\n", shops, owners, dbPath)
	return nil
}
