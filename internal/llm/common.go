package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"go.uber.org/zap"
)

// maxResponseBytes caps how much of a chat completion body is read.
const maxResponseBytes = 8 << 20

// ChatRequest is the body of an OpenAI-compatible chat completions call.
type ChatRequest struct {
	Model       string    `json:"model"`
	Messages    []Message `json:"messages"`
	Temperature *float64  `json:"temperature,omitempty"`
	MaxTokens   int       `json:"max_tokens,omitempty"`
}

type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ChatResponse struct {
	ID      string    `json:"id"`
	Model   string    `json:"model"`
	Choices []Choice  `json:"choices"`
	Usage   Usage     `json:"usage"`
	Error   *APIError `json:"error,omitempty"`
}

type Choice struct {
	Message      Message `json:"message"`
	FinishReason string  `json:"finish_reason"`
}

type Usage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
	TotalTokens      int `json:"total_tokens"`
}

// APIError is the error object OpenAI-compatible APIs return.
type APIError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Code    any    `json:"code"`
}

func NewChatRequest(model, system, prompt string) ChatRequest {
	return ChatRequest{
		Model: model,
		Messages: []Message{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
	}
}

// HandleHTTPError maps a non-200 status onto the package sentinels, keeping
// the provider's error message when the body carries one.
func HandleHTTPError(statusCode int, body []byte, logger *zap.Logger, provider string) error {
	msg := apiErrorMessage(body)

	switch statusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		return withMessage(ErrAuthFailed, msg)
	case http.StatusTooManyRequests:
		return withMessage(ErrRateLimit, msg)
	default:
		logger.Error(provider+" request failed",
			zap.Int("status", statusCode),
			zap.String("body", truncate(string(body), 512)),
		)
		if msg != "" {
			return fmt.Errorf("%w: status %d: %s", ErrRequestFailed, statusCode, msg)
		}
		return fmt.Errorf("%w: status %d", ErrRequestFailed, statusCode)
	}
}

func withMessage(err error, msg string) error {
	if msg == "" {
		return err
	}
	return fmt.Errorf("%w: %s", err, msg)
}

func apiErrorMessage(body []byte) string {
	var resp struct {
		Error *APIError `json:"error"`
	}
	if json.Unmarshal(body, &resp) != nil || resp.Error == nil {
		return ""
	}
	return resp.Error.Message
}

func ParseChatResponse(body []byte) (*ChatResponse, error) {
	var resp ChatResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, fmt.Errorf("unmarshal response: %w", err)
	}
	if resp.Error != nil {
		return nil, fmt.Errorf("%w: %s", ErrRequestFailed, resp.Error.Message)
	}
	return &resp, nil
}

// ExtractContent returns the first choice's text. Whitespace-only answers
// count as empty.
func ExtractContent(resp *ChatResponse) (string, error) {
	if len(resp.Choices) == 0 {
		return "", ErrEmptyResponse
	}
	content := strings.TrimSpace(resp.Choices[0].Message.Content)
	if content == "" {
		return "", ErrEmptyResponse
	}
	return content, nil
}

// DoRequest sends req and reads at most maxResponseBytes of the body.
// Cancellation of the request context is returned as the context error so
// callers can tell an interrupt from a remote failure.
func DoRequest(client *http.Client, req *http.Request) ([]byte, int, error) {
	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := req.Context().Err(); ctxErr != nil {
			return nil, 0, ctxErr
		}
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, 0, fmt.Errorf("%w: %w", ErrRequestFailed, err)
		}
		return nil, 0, fmt.Errorf("%w: %v", ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("read response: %w", err)
	}

	return body, resp.StatusCode, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
