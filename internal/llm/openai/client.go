// Package openai adapts the official OpenAI Go SDK to llm.Client.
package openai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
	"go.uber.org/zap"

	"github.com/kitbuilder587/stock-agent/internal/llm"
)

const DefaultModel = "gpt-4o"

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
	// Options are appended to the SDK client options, tests use it to
	// inject an HTTP client.
	Options []option.RequestOption
}

type Client struct {
	sdk    openai.Client
	model  string
	logger *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	opts := []option.RequestOption{
		option.WithAPIKey(cfg.APIKey),
		option.WithRequestTimeout(cfg.Timeout),
		// retries are left to the caller
		option.WithMaxRetries(0),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, option.WithBaseURL(cfg.BaseURL))
	}
	opts = append(opts, cfg.Options...)

	return &Client{
		sdk:    openai.NewClient(opts...),
		model:  cfg.Model,
		logger: logger,
	}
}

func (c *Client) Model() string { return c.model }

func (c *Client) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	c.logger.Debug("openai request", zap.String("model", c.model), zap.Int("prompt_len", len(prompt)))

	resp, err := c.sdk.Chat.Completions.New(ctx, openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(system),
			openai.UserMessage(prompt),
		},
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", ctxErr
		}
		return "", c.mapError(err)
	}

	if len(resp.Choices) == 0 || resp.Choices[0].Message.Content == "" {
		return "", llm.ErrEmptyResponse
	}
	return resp.Choices[0].Message.Content, nil
}

func (c *Client) mapError(err error) error {
	var apiErr *openai.Error
	if !errors.As(err, &apiErr) {
		return fmt.Errorf("%w: %v", llm.ErrRequestFailed, err)
	}

	switch apiErr.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return llm.ErrAuthFailed
	case http.StatusTooManyRequests:
		return llm.ErrRateLimit
	default:
		c.logger.Error("openai request failed",
			zap.Int("status", apiErr.StatusCode),
			zap.String("message", apiErr.Message),
		)
		return fmt.Errorf("%w: status %d", llm.ErrRequestFailed, apiErr.StatusCode)
	}
}

var _ llm.Client = (*Client)(nil)
