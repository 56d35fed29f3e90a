// Package llm asks a chat-completion service for a one-shot reply to a
// recognized command. No history is kept between calls.
package llm

import (
	"context"
	"errors"
	"fmt"
	log "log/slog"
	"net/http"
	"strings"
	"time"

	openai "github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

var ErrEmptyReply = errors.New("empty reply")

type Client struct {
	api     openai.Client
	model   string
	system  string
	timeout time.Duration
}

type Config struct {
	APIKey       string
	BaseURL      string
	Model        string
	SystemPrompt string
	Timeout      time.Duration

	// HTTPClient is optional; the SDK default is used when nil.
	HTTPClient *http.Client
}

func New(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("llm: api key must not be empty")
	}
	if cfg.Model == "" {
		return nil, errors.New("llm: model must not be empty")
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		// A failed turn is reported, the user repeats the wake phrase.
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	if cfg.HTTPClient != nil {
		opts = append(opts, option.WithHTTPClient(cfg.HTTPClient))
	}

	return &Client{
		api:     openai.NewClient(opts...),
		model:   cfg.Model,
		system:  cfg.SystemPrompt,
		timeout: cfg.Timeout,
	}, nil
}

// Complete sends the system instruction and command as the only user turn and
// returns the trimmed text of the first choice.
func (c *Client) Complete(ctx context.Context, command string) (string, error) {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if c.system != "" {
		msgs = append(msgs, openai.SystemMessage(c.system))
	}
	msgs = append(msgs, openai.UserMessage(command))

	start := time.Now()
	resp, err := c.api.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Messages: msgs,
		Model:    openai.ChatModel(c.model),
	})
	if err != nil {
		return "", fmt.Errorf("chat completion: %w", err)
	}

	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("%w: no choices", ErrEmptyReply)
	}

	reply := strings.TrimSpace(resp.Choices[0].Message.Content)
	if reply == "" {
		return "", fmt.Errorf("%w: empty message content", ErrEmptyReply)
	}

	log.Debug("Completion ready", "model", c.model, "took", time.Since(start))

	return reply, nil
}
