package agent

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/stock-agent/internal/domain"
	"github.com/kitbuilder587/stock-agent/internal/llm"
	"github.com/kitbuilder587/stock-agent/internal/metrics"
	"github.com/kitbuilder587/stock-agent/internal/prompts"
)

const (
	SingleAgentName  = "Stock Analyst"
	WebAgentName     = "Web Agent"
	FinanceAgentName = "Finance Agent"
)

// Instructions used when the prompts document leaves a team section out.
var (
	DefaultWebInstructions     = []string{"Always include sources"}
	DefaultFinanceInstructions = []string{"Use tables to display data"}
	DefaultTeamInstructions    = []string{"Always include sources", "Use tables to display data"}
)

type Deps struct {
	LLM           llm.Client
	Toolkit       Toolkit
	Logger        *zap.Logger
	Metrics       *metrics.Metrics
	MemberTimeout time.Duration
}

// Build creates the agent for mode from the prompts sections.
func Build(mode domain.AgentMode, sections prompts.Sections, deps Deps) (Agent, error) {
	switch mode {
	case domain.ModeSingle, "":
		return NewSingleAgent(sections, deps)
	case domain.ModeTeam:
		return NewTeamAgent(sections, deps), nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownMode, mode)
}

// NewSingleAgent is a finance agent driven by the "instructions" section,
// which must be present.
func NewSingleAgent(sections prompts.Sections, deps Deps) (*ToolAgent, error) {
	instructions, err := sections.Lines(prompts.SectionInstructions)
	if err != nil {
		return nil, err
	}

	return NewToolAgent(Config{
		Name:         SingleAgentName,
		Role:         "Analyze stocks with market data",
		Instructions: instructions,
		Markdown:     true,
		Tools:        deps.Toolkit.FinanceTools(),
	}, deps.LLM, deps.Logger, deps.Metrics), nil
}

// NewTeamAgent pairs a web agent with a finance agent under a leader.
// Missing member sections fall back to defaults, the leader falls back to
// the "instructions" section and then to defaults.
func NewTeamAgent(sections prompts.Sections, deps Deps) *Team {
	web := NewToolAgent(Config{
		Name:         WebAgentName,
		Role:         "Search the web for news and context",
		Instructions: linesOr(sections, DefaultWebInstructions, prompts.SectionWebAgentInstructions),
		Markdown:     true,
		Tools:        deps.Toolkit.WebTools(),
	}, deps.LLM, deps.Logger, deps.Metrics)

	finance := NewToolAgent(Config{
		Name:         FinanceAgentName,
		Role:         "Get financial data",
		Instructions: linesOr(sections, DefaultFinanceInstructions, prompts.SectionFinanceAgentInstructions),
		Markdown:     true,
		Tools:        deps.Toolkit.FinanceTools(),
	}, deps.LLM, deps.Logger, deps.Metrics)

	return NewTeam([]Agent{web, finance}, deps.LLM, TeamConfig{
		Instructions:  linesOr(sections, DefaultTeamInstructions, prompts.SectionTeamInstructions, prompts.SectionInstructions),
		Markdown:      true,
		MemberTimeout: deps.MemberTimeout,
	}, deps.Logger, deps.Metrics)
}

// linesOr returns the lines of the first present, non-empty section.
func linesOr(sections prompts.Sections, fallback []string, names ...string) []string {
	for _, name := range names {
		lines, err := sections.Lines(name)
		if errors.Is(err, domain.ErrMissingSection) || len(lines) == 0 {
			continue
		}
		return lines
	}
	return fallback
}
