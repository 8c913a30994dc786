package llm

import (
	"context"
	"errors"
)

var (
	ErrAuthFailed    = errors.New("authentication failed")
	ErrRequestFailed = errors.New("request failed")
	ErrEmptyResponse = errors.New("empty response")
	ErrRateLimit     = errors.New("rate limit exceeded")
)

type Client interface {
	CompleteWithSystem(ctx context.Context, system, prompt string) (string, error)
}

// Provider names accepted in configuration.
const (
	ProviderGroq   = "groq"
	ProviderOpenAI = "openai"
	ProviderMock   = "mock"
)

func IsKnownProvider(name string) bool {
	switch name {
	case ProviderGroq, ProviderOpenAI, ProviderMock:
		return true
	}
	return false
}

// Label is the display name used in logs and response file names.
func Label(provider string) string {
	switch provider {
	case ProviderGroq:
		return "Groq"
	case ProviderOpenAI:
		return "OpenAI"
	case ProviderMock:
		return "Mock"
	}
	return provider
}
