// Package triage orchestrates the inbox runs: fetch recent mail, group
// it by sender, and either draft deduplicated replies or produce a
// ranked urgency report. One worker handles one sender group, so all
// work for a given sender is serialized.
package triage

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/mbeaupre/autoemail/internal/ai"
	"github.com/mbeaupre/autoemail/internal/jmap"
	"github.com/mbeaupre/autoemail/internal/model"
)

// Fetcher retrieves recent inbox messages.
type Fetcher interface {
	FetchRecent(ctx context.Context, limit int) ([]model.EmailMessage, error)
}

// Drafter checks for and creates reply drafts. The JMAP client
// satisfies it.
type Drafter interface {
	CheckDraft(ctx context.Context, msg *model.EmailMessage) jmap.CheckResult
	CreateDraft(ctx context.Context, msg *model.EmailMessage, body string) (string, error)
}

// Generator produces reply bodies and urgency scores.
type Generator interface {
	GenerateReply(ctx context.Context, msg *model.EmailMessage, info *model.StoreInfo) (ai.Reply, error)
	ScoreUrgency(ctx context.Context, group model.SenderGroup) (int, error)
}

// SenderMapper correlates senders with known stores.
type SenderMapper interface {
	Ready() bool
	MapSenderToShop(ctx context.Context, msg *model.EmailMessage) (*model.Shop, error)
	StoreInfoFor(shop *model.Shop) (*model.StoreInfo, error)
}

// Saver persists a reply when no draft can be created remotely.
type Saver interface {
	SaveResponse(msg *model.EmailMessage, reply string) (string, error)
}

// Summary reports what one drafting run did.
type Summary struct {
	Groups  int
	Drafted int
	Skipped int
	Saved   int
	Failed  int
}

// Pipeline wires the triage collaborators together.
type Pipeline struct {
	fetcher   Fetcher
	generator Generator
	mapper    SenderMapper
	saver     Saver

	// drafter is nil when JMAP is unavailable; replies then go to the
	// saver only.
	drafter Drafter

	limit       int
	concurrency int
	logger      *slog.Logger
}

// Config assembles a Pipeline.
type Config struct {
	Fetcher   Fetcher
	Generator Generator
	Mapper    SenderMapper
	Saver     Saver
	Drafter   Drafter

	Limit       int
	Concurrency int
	Logger      *slog.Logger
}

// NewPipeline builds a Pipeline from the config.
func NewPipeline(cfg Config) *Pipeline {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = 4
	}
	return &Pipeline{
		fetcher:     cfg.Fetcher,
		generator:   cfg.Generator,
		mapper:      cfg.Mapper,
		saver:       cfg.Saver,
		drafter:     cfg.Drafter,
		limit:       cfg.Limit,
		concurrency: concurrency,
		logger:      logger,
	}
}

// Run executes the drafting pipeline: one worker per sender group,
// bounded by the configured concurrency. Individual group failures are
// counted, not fatal.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	logger := p.logger.With(slog.String("run_id", uuid.NewString()))

	msgs, err := p.fetcher.FetchRecent(ctx, p.limit)
	if err != nil {
		return Summary{}, fmt.Errorf("fetching recent mail: %w", err)
	}

	groups := GroupBySender(msgs)
	logger.Info("triage run starting",
		slog.Int("messages", len(msgs)),
		slog.Int("groups", len(groups)),
	)

	summary := Summary{Groups: len(groups)}
	var mu sync.Mutex

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for _, group := range groups {
		group := group
		g.Go(func() error {
			outcome := p.triageGroup(ctx, logger, group)

			mu.Lock()
			switch outcome {
			case outcomeDrafted:
				summary.Drafted++
			case outcomeSkipped:
				summary.Skipped++
			case outcomeSaved:
				summary.Saved++
			case outcomeFailed:
				summary.Failed++
			}
			mu.Unlock()
			return nil
		})
	}

	_ = g.Wait()

	logger.Info("triage run finished",
		slog.Int("drafted", summary.Drafted),
		slog.Int("skipped", summary.Skipped),
		slog.Int("saved", summary.Saved),
		slog.Int("failed", summary.Failed),
	)
	return summary, nil
}

type outcome int

const (
	outcomeFailed outcome = iota
	outcomeDrafted
	outcomeSkipped
	outcomeSaved
)

// triageGroup handles one sender group: dedup check, store mapping,
// reply generation, then draft creation or the file fallback.
func (p *Pipeline) triageGroup(
	ctx context.Context,
	logger *slog.Logger,
	group model.SenderGroup,
) outcome {
	msg := group.Newest()
	if msg == nil {
		return outcomeSkipped
	}

	logger = logger.With(
		slog.String("sender", group.Address),
		slog.String("subject", msg.Subject),
	)

	if p.drafter != nil {
		result := p.drafter.CheckDraft(ctx, msg)
		if result.Found() {
			logger.Info("draft already exists, skipping",
				slog.String("draft_id", result.DraftID),
			)
			return outcomeSkipped
		}
	}

	info := p.storeContext(ctx, logger, msg)

	reply, err := p.generator.GenerateReply(ctx, msg, info)
	if err != nil {
		logger.Error("generating reply failed", slog.String("error", err.Error()))
		return outcomeFailed
	}

	if p.drafter != nil {
		draftID, err := p.drafter.CreateDraft(ctx, msg, reply.Body)
		if err == nil {
			logger.Info("draft created",
				slog.String("draft_id", draftID),
				slog.Int("urgency", reply.Urgency),
			)
			return outcomeDrafted
		}
		logger.Error("creating draft failed, falling back to file",
			slog.String("error", err.Error()),
		)
	}

	if p.saver == nil {
		return outcomeFailed
	}
	if _, err := p.saver.SaveResponse(msg, reply.Body); err != nil {
		logger.Error("saving response failed", slog.String("error", err.Error()))
		return outcomeFailed
	}
	return outcomeSaved
}

// storeContext maps the sender to a store, returning nil context when
// no reliable match exists. Mapping failures only lose context, they
// never block the reply.
func (p *Pipeline) storeContext(
	ctx context.Context,
	logger *slog.Logger,
	msg *model.EmailMessage,
) *model.StoreInfo {
	if p.mapper == nil || !p.mapper.Ready() {
		return nil
	}

	shop, err := p.mapper.MapSenderToShop(ctx, msg)
	if err != nil {
		logger.Warn("store mapping failed", slog.String("error", err.Error()))
		return nil
	}
	if shop == nil {
		return nil
	}

	info, err := p.mapper.StoreInfoFor(shop)
	if err != nil {
		logger.Warn("store context unavailable", slog.String("error", err.Error()))
		return nil
	}

	logger.Info("sender mapped to store", slog.String("store", shop.Name))
	return info
}

// Score executes the urgency pipeline and returns the groups ranked
// most urgent first.
func (p *Pipeline) Score(ctx context.Context) ([]model.GroupScore, error) {
	logger := p.logger.With(slog.String("run_id", uuid.NewString()))

	msgs, err := p.fetcher.FetchRecent(ctx, p.limit)
	if err != nil {
		return nil, fmt.Errorf("fetching recent mail: %w", err)
	}

	groups := GroupBySender(msgs)
	logger.Info("scoring run starting",
		slog.Int("messages", len(msgs)),
		slog.Int("groups", len(groups)),
	)

	scores := make([]model.GroupScore, len(groups))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(p.concurrency)

	for i, group := range groups {
		i, group := i, group
		g.Go(func() error {
			urgency, err := p.generator.ScoreUrgency(ctx, group)
			if err != nil {
				return fmt.Errorf("scoring %s: %w", group.Address, err)
			}
			scores[i] = model.GroupScore{Group: group, Urgency: urgency}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	sort.SliceStable(scores, func(a, b int) bool {
		return scores[a].Urgency > scores[b].Urgency
	})
	return scores, nil
}
