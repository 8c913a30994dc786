package tavily

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/stock-agent/internal/search"
)

const DefaultBaseURL = "https://api.tavily.com"

var defaultBackoff = []time.Duration{1 * time.Second, 2 * time.Second, 4 * time.Second}

type Config struct {
	APIKey  string
	BaseURL string
	Timeout time.Duration
	// Backoff between retries of 5xx and transport failures.
	Backoff []time.Duration
}

type Client struct {
	apiKey  string
	baseURL string
	backoff []time.Duration
	client  *http.Client
	logger  *zap.Logger
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Backoff == nil {
		cfg.Backoff = defaultBackoff
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Client{
		apiKey:  cfg.APIKey,
		baseURL: cfg.BaseURL,
		backoff: cfg.Backoff,
		client:  &http.Client{Timeout: cfg.Timeout},
		logger:  logger,
	}
}

type tavilyRequest struct {
	Query             string   `json:"query"`
	IncludeDomains    []string `json:"include_domains,omitempty"`
	ExcludeDomains    []string `json:"exclude_domains,omitempty"`
	MaxResults        int      `json:"max_results,omitempty"`
	SearchDepth       string   `json:"search_depth,omitempty"`
	Topic             string   `json:"topic,omitempty"`
	Days              int      `json:"days,omitempty"`
	IncludeAnswer     bool     `json:"include_answer"`
	IncludeRawContent bool     `json:"include_raw_content"`
}

type tavilyResponse struct {
	Query        string         `json:"query"`
	Answer       string         `json:"answer"`
	Results      []tavilyResult `json:"results"`
	ResponseTime float64        `json:"response_time"`
}

type tavilyResult struct {
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	Content       string  `json:"content"`
	Score         float64 `json:"score"`
	PublishedDate string  `json:"published_date"`
}

func (c *Client) Search(ctx context.Context, req search.SearchRequest) (*search.SearchResponse, error) {
	if req.MaxResults == 0 {
		req.MaxResults = 5
	}
	if req.SearchDepth == "" {
		req.SearchDepth = "basic"
	}
	if req.Topic == "" {
		req.Topic = search.TopicGeneral
	}
	if req.Topic != search.TopicNews {
		req.Days = 0
	}

	body, err := json.Marshal(tavilyRequest{
		Query:          req.Query,
		IncludeDomains: req.IncludeDomains,
		ExcludeDomains: req.ExcludeDomains,
		MaxResults:     req.MaxResults,
		SearchDepth:    req.SearchDepth,
		Topic:          req.Topic,
		Days:           req.Days,
		IncludeAnswer:  req.IncludeAnswer,
	})
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	var lastErr error
	for attempt := 0; attempt <= len(c.backoff); attempt++ {
		if attempt > 0 {
			c.logger.Debug("retrying tavily search",
				zap.Int("attempt", attempt),
				zap.Error(lastErr),
			)
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(c.backoff[attempt-1]):
			}
		}

		httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/search", bytes.NewReader(body))
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}
		httpReq.Header.Set("Content-Type", "application/json")
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

		resp, err := c.client.Do(httpReq)
		if err != nil {
			lastErr = fmt.Errorf("do request: %w", err)
			continue
		}

		respBody, err := io.ReadAll(resp.Body)
		resp.Body.Close()
		if err != nil {
			lastErr = fmt.Errorf("read response: %w", err)
			continue
		}

		switch resp.StatusCode {
		case http.StatusOK:
			var tr tavilyResponse
			if err := json.Unmarshal(respBody, &tr); err != nil {
				return nil, fmt.Errorf("unmarshal response: %w", err)
			}
			if len(tr.Results) == 0 {
				return nil, search.ErrEmptyResults
			}
			return toSearchResponse(&tr), nil

		case http.StatusUnauthorized, http.StatusForbidden:
			return nil, search.ErrUnauthorized

		case http.StatusTooManyRequests:
			return nil, search.ErrRateLimit

		case http.StatusBadRequest:
			return nil, search.ErrInvalidRequest

		default:
			if resp.StatusCode >= 500 {
				lastErr = fmt.Errorf("server error: %d", resp.StatusCode)
				continue
			}
			return nil, fmt.Errorf("%w: status %d", search.ErrSearchFailed, resp.StatusCode)
		}
	}

	if lastErr != nil {
		return nil, fmt.Errorf("%w: %v", search.ErrSearchFailed, lastErr)
	}
	return nil, search.ErrSearchFailed
}

func toSearchResponse(resp *tavilyResponse) *search.SearchResponse {
	results := make([]search.SearchResult, len(resp.Results))
	for i, r := range resp.Results {
		results[i] = search.SearchResult{
			Title:         r.Title,
			URL:           r.URL,
			Content:       r.Content,
			Score:         r.Score,
			PublishedDate: r.PublishedDate,
		}
	}

	return &search.SearchResponse{
		Query:        resp.Query,
		Answer:       resp.Answer,
		Results:      results,
		ResponseTime: resp.ResponseTime,
	}
}

var _ search.SearchClient = (*Client)(nil)
