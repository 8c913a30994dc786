package search

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

var (
	ErrUnauthorized   = errors.New("invalid API key")
	ErrRateLimit      = errors.New("rate limit exceeded")
	ErrInvalidRequest = errors.New("invalid request parameters")
	ErrSearchFailed   = errors.New("search request failed")
	ErrEmptyResults   = errors.New("no results found")
)

const (
	TopicGeneral = "general"
	TopicNews    = "news"
)

type SearchClient interface {
	Search(ctx context.Context, req SearchRequest) (*SearchResponse, error)
}

type SearchRequest struct {
	Query          string
	IncludeDomains []string
	ExcludeDomains []string
	MaxResults     int
	SearchDepth    string
	Topic          string
	// Days limits news results to the last N days, only used with TopicNews.
	Days          int
	IncludeAnswer bool
}

type SearchResponse struct {
	Query        string
	Answer       string
	Results      []SearchResult
	ResponseTime float64
}

type SearchResult struct {
	Title         string
	URL           string
	Content       string
	Score         float64
	PublishedDate string
}

// Markdown renders the response as a bullet list with a sources footer.
func (r *SearchResponse) Markdown() string {
	var sb strings.Builder
	if r.Answer != "" {
		sb.WriteString(r.Answer)
		sb.WriteString("\n\n")
	}

	for i, res := range r.Results {
		fmt.Fprintf(&sb, "- [S%d] **%s**", i+1, res.Title)
		if res.PublishedDate != "" {
			fmt.Fprintf(&sb, " (%s)", res.PublishedDate)
		}
		sb.WriteString("\n")
		if content := strings.TrimSpace(res.Content); content != "" {
			fmt.Fprintf(&sb, "  %s\n", truncate(content, 500))
		}
	}

	if len(r.Results) > 0 {
		sb.WriteString("\nSources:\n")
		for i, res := range r.Results {
			fmt.Fprintf(&sb, "[S%d] %s\n", i+1, res.URL)
		}
	}
	return sb.String()
}

func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n]) + "..."
}
