package triage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/mbeaupre/autoemail/internal/ai"
	"github.com/mbeaupre/autoemail/internal/jmap"
	"github.com/mbeaupre/autoemail/internal/model"
)

type fakeFetcher struct {
	msgs []model.EmailMessage
	err  error
}

func (f *fakeFetcher) FetchRecent(context.Context, int) ([]model.EmailMessage, error) {
	return f.msgs, f.err
}

type fakeDrafter struct {
	mu        sync.Mutex
	existing  map[string]string // sender -> draft id reported by CheckDraft
	checkErr  error
	createErr error
	created   []string // senders drafts were created for
}

func (f *fakeDrafter) CheckDraft(_ context.Context, msg *model.EmailMessage) jmap.CheckResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.checkErr != nil {
		return jmap.CheckResult{Status: jmap.CheckFailed, Err: f.checkErr}
	}
	if id, ok := f.existing[msg.From.Address]; ok {
		return jmap.CheckResult{Status: jmap.CheckFound, DraftID: id}
	}
	return jmap.CheckResult{Status: jmap.CheckNotFound}
}

func (f *fakeDrafter) CreateDraft(_ context.Context, msg *model.EmailMessage, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.createErr != nil {
		return "", f.createErr
	}
	f.created = append(f.created, msg.From.Address)
	return fmt.Sprintf("d%d", len(f.created)), nil
}

type fakeGenerator struct {
	mu       sync.Mutex
	err      error
	subjects []string       // subjects replies were generated for
	scores   map[string]int // sender -> urgency
}

func (f *fakeGenerator) GenerateReply(
	_ context.Context, msg *model.EmailMessage, _ *model.StoreInfo,
) (ai.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return ai.Reply{}, f.err
	}
	f.subjects = append(f.subjects, msg.Subject)
	return ai.Reply{Body: "reply to " + msg.Subject, Urgency: 40}, nil
}

func (f *fakeGenerator) ScoreUrgency(_ context.Context, group model.SenderGroup) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return 0, f.err
	}
	return f.scores[group.Address], nil
}

type fakeSaver struct {
	mu    sync.Mutex
	saved []string
}

func (f *fakeSaver) SaveResponse(msg *model.EmailMessage, _ string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.saved = append(f.saved, msg.From.Address)
	return "/tmp/" + msg.From.Address + ".txt", nil
}

func testPipeline(cfg Config) *Pipeline {
	cfg.Logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	if cfg.Concurrency == 0 {
		cfg.Concurrency = 2
	}
	return NewPipeline(cfg)
}

func testMessages() []model.EmailMessage {
	return []model.EmailMessage{
		msgAt("ada@customer.test", "older question", 10),
		msgAt("bob@other.test", "invoice", 12),
		msgAt("ada@customer.test", "newest question", 20),
	}
}

func TestRunDraftsOneReplyPerSenderGroup(t *testing.T) {
	drafter := &fakeDrafter{}
	generator := &fakeGenerator{}
	p := testPipeline(Config{
		Fetcher:   &fakeFetcher{msgs: testMessages()},
		Generator: generator,
		Drafter:   drafter,
	})

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Groups != 2 || summary.Drafted != 2 {
		t.Errorf("summary = %+v, want 2 groups, 2 drafted", summary)
	}
	if len(drafter.created) != 2 {
		t.Errorf("drafts created = %d, want 2", len(drafter.created))
	}

	// The reply targets the newest message of the group.
	for _, subject := range generator.subjects {
		if subject == "older question" {
			t.Errorf("reply generated for %q instead of the newest message", subject)
		}
	}
}

func TestRunSkipsSendersWithExistingDrafts(t *testing.T) {
	drafter := &fakeDrafter{existing: map[string]string{"ada@customer.test": "d-old"}}
	generator := &fakeGenerator{}
	p := testPipeline(Config{
		Fetcher:   &fakeFetcher{msgs: testMessages()},
		Generator: generator,
		Drafter:   drafter,
	})

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}

	if summary.Skipped != 1 || summary.Drafted != 1 {
		t.Errorf("summary = %+v, want 1 skipped, 1 drafted", summary)
	}
	for _, subject := range generator.subjects {
		if subject == "newest question" {
			t.Error("reply generated for a sender that already had a draft")
		}
	}
}

func TestRunFailedCheckStillDrafts(t *testing.T) {
	drafter := &fakeDrafter{checkErr: errors.New("server sneezed")}
	p := testPipeline(Config{
		Fetcher:   &fakeFetcher{msgs: testMessages()},
		Generator: &fakeGenerator{},
		Drafter:   drafter,
	})

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Drafted != 2 {
		t.Errorf("summary = %+v, want the failed check treated as not found", summary)
	}
}

func TestRunFallsBackToFilesWhenDraftingFails(t *testing.T) {
	drafter := &fakeDrafter{createErr: errors.New("mailbox full")}
	saver := &fakeSaver{}
	p := testPipeline(Config{
		Fetcher:   &fakeFetcher{msgs: testMessages()},
		Generator: &fakeGenerator{},
		Drafter:   drafter,
		Saver:     saver,
	})

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Saved != 2 || summary.Drafted != 0 {
		t.Errorf("summary = %+v, want every reply saved to file", summary)
	}
	if len(saver.saved) != 2 {
		t.Errorf("saved files = %d, want 2", len(saver.saved))
	}
}

func TestRunFilesOnlyWithoutDrafter(t *testing.T) {
	saver := &fakeSaver{}
	p := testPipeline(Config{
		Fetcher:   &fakeFetcher{msgs: testMessages()},
		Generator: &fakeGenerator{},
		Saver:     saver,
	})

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Saved != 2 {
		t.Errorf("summary = %+v, want 2 saved in files-only mode", summary)
	}
}

func TestRunCountsGenerationFailures(t *testing.T) {
	p := testPipeline(Config{
		Fetcher:   &fakeFetcher{msgs: testMessages()},
		Generator: &fakeGenerator{err: errors.New("model unavailable")},
		Drafter:   &fakeDrafter{},
	})

	summary, err := p.Run(context.Background())
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if summary.Failed != 2 {
		t.Errorf("summary = %+v, want both groups counted as failed", summary)
	}
}

func TestRunFetchFailureIsFatal(t *testing.T) {
	p := testPipeline(Config{
		Fetcher:   &fakeFetcher{err: errors.New("imap down")},
		Generator: &fakeGenerator{},
	})

	if _, err := p.Run(context.Background()); err == nil {
		t.Fatal("Run() error = nil, want fetch failure")
	}
}

func TestScoreRanksGroupsByUrgency(t *testing.T) {
	generator := &fakeGenerator{scores: map[string]int{
		"ada@customer.test": 30,
		"bob@other.test":    85,
	}}
	p := testPipeline(Config{
		Fetcher:   &fakeFetcher{msgs: testMessages()},
		Generator: generator,
	})

	scores, err := p.Score(context.Background())
	if err != nil {
		t.Fatalf("Score() error = %v", err)
	}

	if len(scores) != 2 {
		t.Fatalf("scores = %d, want 2", len(scores))
	}
	if scores[0].Group.Address != "bob@other.test" || scores[0].Urgency != 85 {
		t.Errorf("scores[0] = %+v, want bob at 85 first", scores[0])
	}
	if scores[1].Group.Address != "ada@customer.test" || scores[1].Urgency != 30 {
		t.Errorf("scores[1] = %+v, want ada at 30 second", scores[1])
	}
}

func TestScorePropagatesScoringFailure(t *testing.T) {
	p := testPipeline(Config{
		Fetcher:   &fakeFetcher{msgs: testMessages()},
		Generator: &fakeGenerator{err: errors.New("model unavailable")},
	})

	if _, err := p.Score(context.Background()); err == nil {
		t.Fatal("Score() error = nil, want scoring failure")
	}
}
