package mock

import (
	"context"
	"sync"
	"time"

	"github.com/kitbuilder587/stock-agent/internal/search"
)

type Client struct {
	Results []search.SearchResult
	// ByTopic takes precedence over Results for matching topics.
	ByTopic map[string][]search.SearchResult
	Answer  string
	Error   error
	Delay   time.Duration

	CallCount   int
	LastRequest search.SearchRequest
	AllRequests []search.SearchRequest

	mu sync.Mutex
}

func New() *Client {
	return &Client{ByTopic: make(map[string][]search.SearchResult)}
}

func (c *Client) WithResults(results []search.SearchResult) *Client {
	c.Results = results
	return c
}

func (c *Client) WithTopicResults(topic string, results []search.SearchResult) *Client {
	c.ByTopic[topic] = results
	return c
}

func (c *Client) WithAnswer(answer string) *Client {
	c.Answer = answer
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

func (c *Client) Search(ctx context.Context, req search.SearchRequest) (*search.SearchResponse, error) {
	c.mu.Lock()
	c.CallCount++
	c.LastRequest = req
	c.AllRequests = append(c.AllRequests, req)
	delay := c.Delay
	err := c.Error
	results := c.Results
	if byTopic, ok := c.ByTopic[req.Topic]; ok {
		results = byTopic
	}
	answer := c.Answer
	c.mu.Unlock()

	if delay > 0 {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(delay):
		}
	}

	if err != nil {
		return nil, err
	}

	if len(results) == 0 {
		return nil, search.ErrEmptyResults
	}

	resp := &search.SearchResponse{
		Query:        req.Query,
		Results:      results,
		ResponseTime: 0.5,
	}
	if req.IncludeAnswer {
		resp.Answer = answer
	}
	return resp, nil
}

func (c *Client) Requests() []search.SearchRequest {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]search.SearchRequest(nil), c.AllRequests...)
}

func (c *Client) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.CallCount = 0
	c.LastRequest = search.SearchRequest{}
	c.AllRequests = nil
}

var _ search.SearchClient = (*Client)(nil)
