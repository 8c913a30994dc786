package groq

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/stock-agent/internal/llm"
)

const (
	DefaultBaseURL = "https://api.groq.com/openai/v1"
	DefaultModel   = "llama-3.3-70b-versatile"
)

type Config struct {
	APIKey  string
	Model   string
	BaseURL string
	Timeout time.Duration
}

// Client talks to Groq's OpenAI-compatible chat completions endpoint.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		baseURL: cfg.BaseURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

func (c *Client) Model() string { return c.model }

func (c *Client) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	req := llm.NewChatRequest(c.model, system, prompt)

	body, err := json.Marshal(req)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	c.logger.Debug("groq request", zap.String("model", c.model), zap.Int("prompt_len", len(prompt)))

	respBody, statusCode, err := llm.DoRequest(c.client, httpReq)
	if err != nil {
		return "", err
	}

	if statusCode != http.StatusOK {
		return "", llm.HandleHTTPError(statusCode, respBody, c.logger, "groq")
	}

	chatResp, err := llm.ParseChatResponse(respBody)
	if err != nil {
		return "", err
	}

	c.logger.Debug("groq response",
		zap.String("model", chatResp.Model),
		zap.Int("total_tokens", chatResp.Usage.TotalTokens),
	)
	if len(chatResp.Choices) > 0 && chatResp.Choices[0].FinishReason == "length" {
		c.logger.Warn("groq response truncated at max tokens")
	}

	return llm.ExtractContent(chatResp)
}

var _ llm.Client = (*Client)(nil)
