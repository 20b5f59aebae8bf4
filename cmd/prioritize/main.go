// Command prioritize scores recent senders by urgency and prints a
// ranked report. It never touches the mailbox.
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
	"github.com/mbeaupre/autoemail/internal/report"
)

func main() {
	configPath := flag.String("config", model.DefaultConfigPath(), "path to the YAML config file")
	limit := flag.Int("limit", 0, "override the number of recent messages to score")
	verbose := flag.Bool("v", false, "enable debug logging")
	flag.Parse()

	level := slog.LevelInfo
	if *verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)

	if err := run(*configPath, *limit, logger); err != nil {
		logger.Error("run failed", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func run(configPath string, limit int, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(configPath, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	if limit > 0 {
		a.Config.IMAP.Limit = limit
	}

	// Scoring never creates drafts, so the pipeline always runs as if
	// dry: the JMAP client is initialized but unused.
	pipeline, err := a.BuildPipeline(ctx, true)
	if err != nil {
		return err
	}

	scores, err := pipeline.Score(ctx)
	if err != nil {
		return err
	}

	fmt.Print(report.Render(scores))
	return nil
}
