// Package mock provides an in-memory llm.Client for tests and dry runs.
package mock

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/kitbuilder587/stock-agent/internal/llm"
)

type Client struct {
	mu sync.Mutex

	Response string
	Error    error
	Delay    time.Duration
	// Respond overrides Response when set.
	Respond func(system, prompt string) (string, error)

	CallCount  int
	LastSystem string
	LastPrompt string
	AllCalls   []LLMCall
}

type LLMCall struct {
	System string
	Prompt string
}

func New() *Client {
	return &Client{
		Response: "## Summary\n\n| Symbol | Price |\n|---|---|\n| MOCK | 1.00 |\n\nSources: mock",
	}
}

func (c *Client) WithResponse(response string) *Client {
	c.Response = response
	return c
}

func (c *Client) WithError(err error) *Client {
	c.Error = err
	return c
}

func (c *Client) WithDelay(delay time.Duration) *Client {
	c.Delay = delay
	return c
}

func (c *Client) WithResponder(fn func(system, prompt string) (string, error)) *Client {
	c.Respond = fn
	return c
}

func (c *Client) CompleteWithSystem(ctx context.Context, system, prompt string) (string, error) {
	c.mu.Lock()
	c.CallCount++
	c.LastSystem = system
	c.LastPrompt = prompt
	c.AllCalls = append(c.AllCalls, LLMCall{System: system, Prompt: prompt})
	delay, respond, resp, err := c.Delay, c.Respond, c.Response, c.Error
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(delay):
		}
	}

	if respond != nil {
		return respond(system, prompt)
	}
	if err != nil {
		return "", err
	}
	return resp, nil
}

func (c *Client) Calls() []LLMCall {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]LLMCall(nil), c.AllCalls...)
}

func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCount = 0
	c.LastSystem = ""
	c.LastPrompt = ""
	c.AllCalls = nil
}

// HasCallWithSystem reports whether any call used a system prompt containing s.
func (c *Client) HasCallWithSystem(s string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, call := range c.AllCalls {
		if strings.Contains(call.System, s) {
			return true
		}
	}
	return false
}

var _ llm.Client = (*Client)(nil)
