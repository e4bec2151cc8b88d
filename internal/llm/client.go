// Package llm wraps the model backend behind a narrow chat contract and
// parses its output into structured reviews. Payload-too-large and
// rate-limit failures are surfaced as distinct sentinel errors because
// the processor branches on them.
package llm

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/revware/pr-sentinel/internal/config"
	"github.com/revware/pr-sentinel/internal/core"
)

// Message is one turn of a chat-style prompt.
type Message struct {
	Role    string // "system" or "user"
	Content string
}

// Options tune a single generation call.
type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // overrides the client default when non-empty
}

// Generation is the raw outcome of one model call.
type Generation struct {
	Content    string
	TokensUsed int
}

// Client sends chat prompts to the model backend.
//
//go:generate mockgen -destination=../../mocks/mock_llm_client.go -package=mocks -mock_names=Client=MockLLMClient . Client
type Client interface {
	Generate(ctx context.Context, messages []Message, opts Options) (*Generation, error)
	Model() string
}

type openAIClient struct {
	client  openai.Client
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient builds a Client over the OpenAI-compatible chat API.
func NewClient(cfg *config.AIConfig, logger *slog.Logger) (Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("AI API key is required")
	}

	opts := []option.RequestOption{option.WithAPIKey(cfg.APIKey)}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}

	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 90 * time.Second
	}

	return &openAIClient{
		client:  openai.NewClient(opts...),
		model:   cfg.Model,
		timeout: timeout,
		logger:  logger,
	}, nil
}

func (c *openAIClient) Model() string {
	return c.model
}

// Generate performs one chat completion. Every call carries the
// configured timeout so a stalled provider cannot hold a worker.
func (c *openAIClient) Generate(ctx context.Context, messages []Message, opts Options) (*Generation, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	model := opts.Model
	if model == "" {
		model = c.model
	}
	maxTokens := opts.MaxTokens
	if maxTokens <= 0 {
		maxTokens = 4096
	}

	var chatMessages []openai.ChatCompletionMessageParamUnion
	for _, m := range messages {
		switch m.Role {
		case "system":
			chatMessages = append(chatMessages, openai.SystemMessage(m.Content))
		default:
			chatMessages = append(chatMessages, openai.UserMessage(m.Content))
		}
	}

	params := openai.ChatCompletionNewParams{
		Model:       model,
		Messages:    chatMessages,
		MaxTokens:   openai.Int(int64(maxTokens)),
		Temperature: openai.Float(opts.Temperature),
	}

	start := time.Now()
	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		return nil, classifyError(err)
	}

	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("no choices in model response")
	}

	c.logger.Debug("llm generation completed",
		"model", model,
		"duration_ms", time.Since(start).Milliseconds(),
		"prompt_tokens", resp.Usage.PromptTokens,
		"completion_tokens", resp.Usage.CompletionTokens,
	)

	return &Generation{
		Content:    resp.Choices[0].Message.Content,
		TokensUsed: int(resp.Usage.TotalTokens),
	}, nil
}

// classifyError maps provider failures onto the pipeline taxonomy. A
// timed-out call is reported as rate-limited so the chunk loop applies
// the same stop-and-publish-partial policy to both.
func classifyError(err error) error {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		switch apiErr.StatusCode {
		case 413:
			return fmt.Errorf("%w: %v", core.ErrPayloadTooLarge, err)
		case 429:
			return fmt.Errorf("%w: %v", core.ErrRateLimited, err)
		}
		return fmt.Errorf("llm request failed with status %d: %w", apiErr.StatusCode, err)
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: request timed out: %v", core.ErrRateLimited, err)
	}
	return fmt.Errorf("llm request failed: %w", err)
}
