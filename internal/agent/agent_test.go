package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/kitbuilder587/stock-agent/internal/llm"
	"github.com/kitbuilder587/stock-agent/internal/llm/mock"
)

type stubTool struct {
	name string
	out  string
	err  error
	seen Input
}

func (s *stubTool) Name() string        { return s.name }
func (s *stubTool) Description() string { return s.name + " description" }
func (s *stubTool) Run(ctx context.Context, in Input) (string, error) {
	s.seen = in
	return s.out, s.err
}

func TestRequest_Validate(t *testing.T) {
	tests := []struct {
		name    string
		req     Request
		wantErr error
	}{
		{"ok", Request{Query: "Summarize TSLA", Symbols: []string{"TSLA"}}, nil},
		{"no symbols is fine", Request{Query: "market news"}, nil},
		{"empty", Request{Query: ""}, ErrEmptyQuery},
		{"whitespace", Request{Query: "  \n"}, ErrEmptyQuery},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.req.Validate(); !errors.Is(err, tt.wantErr) {
				t.Errorf("Validate() error = %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestToolAgent_Process(t *testing.T) {
	llmClient := mock.New().WithResponse("| TSLA | 250 | [S1]")
	price := &stubTool{name: "stock_price", out: "| TSLA | 250.00 |"}

	a := NewToolAgent(Config{
		Name:         "Finance Agent",
		Role:         "Get financial data",
		Instructions: []string{"Use tables to display data"},
		Markdown:     true,
		Tools:        []Tool{price},
	}, llmClient, nil, nil)

	resp, err := a.Process(context.Background(), Request{Query: "Price of TSLA", Symbols: []string{"TSLA"}})
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	if resp.AgentName != "Finance Agent" {
		t.Errorf("AgentName = %q", resp.AgentName)
	}
	if len(resp.SourceRefs) != 1 || resp.SourceRefs[0] != "[S1]" {
		t.Errorf("SourceRefs = %v", resp.SourceRefs)
	}
	if price.seen.Symbols[0] != "TSLA" {
		t.Errorf("tool got symbols %v", price.seen.Symbols)
	}

	for _, want := range []string{"You are Finance Agent.", "- Use tables to display data", "- " + markdownHint, "stock_price: stock_price description"} {
		if !strings.Contains(llmClient.LastSystem, want) {
			t.Errorf("system prompt missing %q:\n%s", want, llmClient.LastSystem)
		}
	}
	for _, want := range []string{"Price of TSLA", "Tickers: TSLA", "## Tool: stock_price\n| TSLA | 250.00 |"} {
		if !strings.Contains(llmClient.LastPrompt, want) {
			t.Errorf("user prompt missing %q:\n%s", want, llmClient.LastPrompt)
		}
	}
}

func TestToolAgent_ToolFailureIsReported(t *testing.T) {
	llmClient := mock.New()
	broken := &stubTool{name: "web_search", err: errors.New("tavily down")}

	a := NewToolAgent(Config{Name: "Web Agent", Tools: []Tool{broken}}, llmClient, nil, nil)

	if _, err := a.Process(context.Background(), Request{Query: "news"}); err != nil {
		t.Fatalf("Process() error = %v", err)
	}
	if !strings.Contains(llmClient.LastPrompt, "_web_search is unavailable: tavily down_") {
		t.Errorf("prompt should mention the failed tool:\n%s", llmClient.LastPrompt)
	}
}

func TestToolAgent_LLMError(t *testing.T) {
	llmClient := mock.New().WithError(llm.ErrRateLimit)
	a := NewToolAgent(Config{Name: "Finance Agent"}, llmClient, nil, nil)

	_, err := a.Process(context.Background(), Request{Query: "q"})
	if !errors.Is(err, llm.ErrRateLimit) {
		t.Errorf("Process() error = %v, want ErrRateLimit", err)
	}
}

func TestToolAgent_EmptyAnswer(t *testing.T) {
	a := NewToolAgent(Config{Name: "Finance Agent"}, mock.New().WithResponse("  "), nil, nil)

	if _, err := a.Process(context.Background(), Request{Query: "q"}); !errors.Is(err, ErrEmptyContent) {
		t.Errorf("Process() error = %v, want ErrEmptyContent", err)
	}
}

func TestToolAgent_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	tool := &stubTool{name: "slow", err: context.Canceled}
	a := NewToolAgent(Config{Name: "x", Tools: []Tool{tool}}, mock.New(), nil, nil)

	if _, err := a.Process(ctx, Request{Query: "q"}); !errors.Is(err, context.Canceled) {
		t.Errorf("Process() error = %v, want context.Canceled", err)
	}
}

func TestToolAgent_SystemPromptWithoutInstructions(t *testing.T) {
	a := NewToolAgent(Config{Name: "Plain", Markdown: true}, mock.New(), nil, nil)
	got := a.systemPrompt()

	if !strings.Contains(got, "Instructions:\n- "+markdownHint) {
		t.Errorf("systemPrompt() = %q", got)
	}
}

func TestParseSourceRefs(t *testing.T) {
	got := parseSourceRefs("see [S2] and [S1], again [S2]")
	if len(got) != 2 || got[0] != "[S2]" || got[1] != "[S1]" {
		t.Errorf("parseSourceRefs() = %v", got)
	}
	if parseSourceRefs("nothing") != nil {
		t.Error("parseSourceRefs() should be nil without refs")
	}
}
