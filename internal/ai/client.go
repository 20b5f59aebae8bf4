// Package ai talks to the Claude Messages API: it drafts reply bodies,
// scores sender-group urgency, and answers the free-form prompts the
// mapping fallback needs. Every reply carries an urgency marker that is
// parsed out and stripped before the text reaches a draft.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/mbeaupre/autoemail/internal/model"
)

const (
	defaultModel       = "claude-sonnet-4-5-20250929"
	defaultMaxTokens   = 4096
	defaultMaxAttempts = 3
	defaultAPIURL      = "https://api.anthropic.com/v1/messages"
	apiVersion         = "2023-06-01"
)

// Reply is a generated reply body together with the urgency score the
// model assigned to the conversation.
type Reply struct {
	Body    string
	Urgency int
}

// Client is an HTTP client for the Claude Messages API. It loads the
// knowledge base once and retries rate-limited calls with backoff.
type Client struct {
	apiKey        string
	model         string
	maxTokens     int
	maxAttempts   int
	signature     string
	knowledgeFile string
	apiURL        string

	httpClient *http.Client
	logger     *slog.Logger

	mu        sync.Mutex
	knowledge string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithLogger sets the structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithAPIURL overrides the Messages API endpoint.
func WithAPIURL(url string) Option {
	return func(c *Client) { c.apiURL = url }
}

// NewClient creates a Claude client from the AI configuration.
func NewClient(cfg model.AIConfig, opts ...Option) *Client {
	c := &Client{
		apiKey:        cfg.APIKey,
		model:         cfg.Model,
		maxTokens:     cfg.MaxTokens,
		maxAttempts:   cfg.MaxAttempts,
		signature:     cfg.Signature,
		knowledgeFile: cfg.KnowledgeFile,
		apiURL:        defaultAPIURL,
		httpClient:    &http.Client{Timeout: 120 * time.Second},
		logger:        slog.Default(),
	}
	if c.model == "" {
		c.model = defaultModel
	}
	if c.maxTokens <= 0 {
		c.maxTokens = defaultMaxTokens
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = defaultMaxAttempts
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// LoadKnowledge reads and memoizes the knowledge base file. It is called
// lazily by the prompt builders; calling it up front surfaces a missing
// file before any mail is processed.
func (c *Client) LoadKnowledge() (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.knowledge != "" {
		return c.knowledge, nil
	}
	if c.knowledgeFile == "" {
		return "", fmt.Errorf("ai: no knowledge file configured")
	}

	data, err := os.ReadFile(c.knowledgeFile)
	if err != nil {
		return "", fmt.Errorf("loading knowledge base from %s: %w", c.knowledgeFile, err)
	}

	c.knowledge = string(data)
	c.logger.Info("knowledge base loaded",
		slog.String("path", c.knowledgeFile),
		slog.Int("bytes", len(data)),
	)
	return c.knowledge, nil
}

// GenerateReply drafts a reply to the newest message of a sender group,
// informed by the knowledge base and, when the sender was correlated
// with a known store, by the store context. The urgency marker is parsed
// and stripped from the returned body.
func (c *Client) GenerateReply(
	ctx context.Context,
	msg *model.EmailMessage,
	info *model.StoreInfo,
) (Reply, error) {
	knowledge, err := c.LoadKnowledge()
	if err != nil {
		return Reply{}, err
	}

	content, err := c.complete(ctx, c.draftingPrompt(knowledge, msg, info))
	if err != nil {
		return Reply{}, err
	}

	urgency, body := parseUrgency(content)
	return Reply{Body: body, Urgency: urgency}, nil
}

// ScoreUrgency scores a sender group's urgency on a 0-100 scale without
// drafting anything.
func (c *Client) ScoreUrgency(ctx context.Context, group model.SenderGroup) (int, error) {
	knowledge, err := c.LoadKnowledge()
	if err != nil {
		return 0, err
	}

	content, err := c.complete(ctx, c.scoringPrompt(knowledge, group))
	if err != nil {
		return 0, err
	}

	urgency, _ := parseUrgency(content)
	return urgency, nil
}

// Prompt sends a raw prompt and returns the model's trimmed text answer.
// The mapping fallback uses this to pick a store id.
func (c *Client) Prompt(ctx context.Context, prompt string) (string, error) {
	content, err := c.complete(ctx, prompt)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(content), nil
}

// complete performs one Messages API completion, retrying rate-limited
// calls up to maxAttempts with Retry-After-aware backoff.
func (c *Client) complete(ctx context.Context, systemPrompt string) (string, error) {
	reqBody := apiRequest{
		Model:     c.model,
		MaxTokens: c.maxTokens,
		System:    systemPrompt,
		Messages: []apiMessage{
			{Role: "user", Content: []apiContentBlock{
				{Type: "text", Text: "Proceed."},
			}},
		},
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshaling request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt < c.maxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(
			ctx, http.MethodPost, c.apiURL, bytes.NewReader(bodyBytes),
		)
		if err != nil {
			return "", fmt.Errorf("creating request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("x-api-key", c.apiKey)
		req.Header.Set("anthropic-version", apiVersion)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return "", fmt.Errorf("calling Claude API: %w", err)
		}

		respBody, readErr := io.ReadAll(resp.Body)
		resp.Body.Close()
		if readErr != nil {
			return "", fmt.Errorf("reading response: %w", readErr)
		}

		if resp.StatusCode == http.StatusTooManyRequests {
			waitDuration := retryAfterDuration(resp, attempt)
			lastErr = fmt.Errorf("rate limited (429) by Claude API")

			c.logger.Warn("rate limited, backing off",
				slog.Int("attempt", attempt+1),
				slog.Duration("wait", waitDuration),
			)

			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(waitDuration):
				continue
			}
		}

		if resp.StatusCode != http.StatusOK {
			var apiErr apiErrorResponse
			if json.Unmarshal(respBody, &apiErr) == nil && apiErr.Error.Message != "" {
				return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, apiErr.Error.Message)
			}
			return "", fmt.Errorf("API error (%d): %s", resp.StatusCode, string(respBody))
		}

		var result apiResponse
		if err := json.Unmarshal(respBody, &result); err != nil {
			return "", fmt.Errorf("decoding response: %w", err)
		}

		var textParts []string
		for _, block := range result.Content {
			if block.Type == "text" {
				textParts = append(textParts, block.Text)
			}
		}
		if len(textParts) == 0 {
			return "", fmt.Errorf("response carries no text content")
		}
		return strings.Join(textParts, ""), nil
	}

	return "", fmt.Errorf("max attempts (%d) exceeded: %w", c.maxAttempts, lastErr)
}

// retryAfterDuration reads the Retry-After header and computes a wait
// duration. Falls back to exponential backoff if the header is missing.
func retryAfterDuration(resp *http.Response, attempt int) time.Duration {
	if header := resp.Header.Get("Retry-After"); header != "" {
		if seconds, err := strconv.Atoi(header); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}

	backoff := time.Duration(1<<uint(attempt)) * time.Second
	if backoff > 30*time.Second {
		backoff = 30 * time.Second
	}
	return backoff
}

// --- Claude API types ---

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	System    string       `json:"system"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string            `json:"role"`
	Content []apiContentBlock `json:"content"`
}

type apiContentBlock struct {
	Type string `json:"type"`
	Text string `json:"text,omitempty"`
}

type apiResponse struct {
	ID         string            `json:"id"`
	Type       string            `json:"type"`
	Role       string            `json:"role"`
	Content    []apiContentBlock `json:"content"`
	Model      string            `json:"model"`
	StopReason string            `json:"stop_reason"`
}

type apiErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Message string `json:"message"`
	} `json:"error"`
}
