package domain

import (
	"errors"
	"reflect"
	"strings"
	"testing"
)

func TestTickers(t *testing.T) {
	tests := []struct {
		name   string
		stocks string
		want   []string
	}{
		{"and separated", "TSLA and NVIDIA", []string{"TSLA", "NVIDIA"}},
		{"comma separated", "AAPL, MSFT,GOOG", []string{"AAPL", "MSFT", "GOOG"}},
		{"lowercase", "tsla nvda", []string{"TSLA", "NVDA"}},
		{"duplicates", "TSLA, tsla and TSLA", []string{"TSLA"}},
		{"ampersand", "AMD & INTC", []string{"AMD", "INTC"}},
		{"quoted", `"TSLA", (NVDA)`, []string{"TSLA", "NVDA"}},
		{"empty", "", nil},
		{"only separators", " , and ; ", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Tickers(tt.stocks)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("Tickers(%q) = %v, want %v", tt.stocks, got, tt.want)
			}
		})
	}
}

func TestAnalysisRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     AnalysisRequest
		wantErr error
	}{
		{"ok", AnalysisRequest{Stocks: "TSLA", Query: "Summarize TSLA", Mode: ModeSingle}, nil},
		{"team", AnalysisRequest{Stocks: "TSLA, NVDA", Query: "Summarize", Mode: ModeTeam}, nil},
		{"empty query", AnalysisRequest{Stocks: "TSLA", Query: "  ", Mode: ModeSingle}, ErrEmptyQuery},
		{"no stocks", AnalysisRequest{Stocks: " and ", Query: "Summarize", Mode: ModeSingle}, ErrNoStocks},
		{"bad mode", AnalysisRequest{Stocks: "TSLA", Query: "Summarize", Mode: "swarm"}, ErrUnknownMode},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestAnalysisRequest_Sanitize(t *testing.T) {
	req := AnalysisRequest{
		Stocks: "  TSLA  ",
		Query:  "  " + strings.Repeat("q", 3999) + "é for TSLA END  ",
	}
	req.Sanitize()

	if req.Stocks != "TSLA" {
		t.Errorf("Stocks = %q, want %q", req.Stocks, "TSLA")
	}
	want := strings.Repeat("q", 3999) + "é for TSLA END"
	if req.Query != want {
		t.Errorf("Query was changed beyond trimming, len = %d, want %d", len(req.Query), len(want))
	}
}

func TestAgentMode_IsValid(t *testing.T) {
	tests := []struct {
		mode AgentMode
		want bool
	}{
		{ModeSingle, true},
		{ModeTeam, true},
		{AgentMode(""), false},
		{AgentMode("swarm"), false},
	}

	for _, tt := range tests {
		t.Run(string(tt.mode), func(t *testing.T) {
			if got := tt.mode.IsValid(); got != tt.want {
				t.Errorf("AgentMode(%q).IsValid() = %v, want %v", tt.mode, got, tt.want)
			}
		})
	}
}
