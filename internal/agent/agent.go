package agent

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/stock-agent/internal/llm"
	"github.com/kitbuilder587/stock-agent/internal/metrics"
)

var (
	ErrEmptyQuery   = errors.New("query cannot be empty")
	ErrEmptyContent = errors.New("response content cannot be empty")
)

const markdownHint = "Use markdown to format your answers."

type Agent interface {
	Name() string
	Role() string
	Process(ctx context.Context, req Request) (*Response, error)
}

type Request struct {
	Query   string
	Symbols []string
}

func (r Request) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return ErrEmptyQuery
	}
	return nil
}

type Response struct {
	AgentName  string
	Content    string
	ToolsUsed  []string
	SourceRefs []string
	Duration   time.Duration
}

func (r Response) Validate() error {
	if strings.TrimSpace(r.Content) == "" {
		return ErrEmptyContent
	}
	return nil
}

type Config struct {
	Name         string
	Role         string
	Instructions []string
	Markdown     bool
	Tools        []Tool
}

// ToolAgent runs its tools, puts their output in front of the model and
// asks it to answer the query.
type ToolAgent struct {
	cfg     Config
	llm     llm.Client
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewToolAgent(cfg Config, llmClient llm.Client, logger *zap.Logger, m *metrics.Metrics) *ToolAgent {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ToolAgent{
		cfg:     cfg,
		llm:     llmClient,
		logger:  logger.With(zap.String("agent", cfg.Name)),
		metrics: m,
	}
}

func (a *ToolAgent) Name() string           { return a.cfg.Name }
func (a *ToolAgent) Role() string           { return a.cfg.Role }
func (a *ToolAgent) Instructions() []string { return a.cfg.Instructions }

func (a *ToolAgent) ToolNames() []string {
	names := make([]string, len(a.cfg.Tools))
	for i, t := range a.cfg.Tools {
		names[i] = t.Name()
	}
	return names
}

func (a *ToolAgent) Process(ctx context.Context, req Request) (*Response, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	start := time.Now()

	outputs, err := a.runTools(ctx, req)
	if err != nil {
		return nil, err
	}

	a.logger.Debug("calling model", zap.Int("tools", len(outputs)))

	llmStart := time.Now()
	content, err := a.llm.CompleteWithSystem(ctx, a.systemPrompt(), buildUserPrompt(req, outputs))
	if err != nil {
		a.recordLLM("error", time.Since(llmStart))
		a.logger.Error("LLM call failed", zap.Error(err))
		return nil, fmt.Errorf("%s: %w", a.cfg.Name, err)
	}
	a.recordLLM("success", time.Since(llmStart))

	resp := &Response{
		AgentName:  a.cfg.Name,
		Content:    content,
		ToolsUsed:  a.ToolNames(),
		SourceRefs: parseSourceRefs(content),
		Duration:   time.Since(start),
	}
	if err := resp.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", a.cfg.Name, err)
	}
	return resp, nil
}

type toolOutput struct {
	name   string
	output string
}

// runTools runs every tool concurrently. A failing tool is reported to the
// model as unavailable, only cancellation aborts the agent.
func (a *ToolAgent) runTools(ctx context.Context, req Request) ([]toolOutput, error) {
	outputs := make([]toolOutput, len(a.cfg.Tools))
	in := Input{Query: req.Query, Symbols: req.Symbols}

	g, gctx := errgroup.WithContext(ctx)
	for i, tool := range a.cfg.Tools {
		g.Go(func() error {
			start := time.Now()
			out, err := tool.Run(gctx, in)
			if err != nil {
				a.recordTool(tool.Name(), "error", time.Since(start))
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				a.logger.Warn("tool failed", zap.String("tool", tool.Name()), zap.Error(err))
				out = fmt.Sprintf("_%s is unavailable: %v_", tool.Name(), err)
			} else {
				a.recordTool(tool.Name(), "success", time.Since(start))
			}
			outputs[i] = toolOutput{name: tool.Name(), output: out}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return outputs, nil
}

func (a *ToolAgent) systemPrompt() string {
	var sb strings.Builder

	if a.cfg.Name != "" {
		fmt.Fprintf(&sb, "You are %s.", a.cfg.Name)
		if a.cfg.Role != "" {
			fmt.Fprintf(&sb, " Your role: %s.", a.cfg.Role)
		}
		sb.WriteString("\n\n")
	}

	if len(a.cfg.Tools) > 0 {
		sb.WriteString("Data gathered by your tools is included in the user message:\n")
		for _, t := range a.cfg.Tools {
			fmt.Fprintf(&sb, "- %s: %s\n", t.Name(), t.Description())
		}
		sb.WriteString("\n")
	}

	if len(a.cfg.Instructions) > 0 {
		sb.WriteString("Instructions:\n")
		for _, ins := range a.cfg.Instructions {
			fmt.Fprintf(&sb, "- %s\n", ins)
		}
	}

	if a.cfg.Markdown {
		if len(a.cfg.Instructions) == 0 {
			sb.WriteString("Instructions:\n")
		}
		fmt.Fprintf(&sb, "- %s\n", markdownHint)
	}

	return strings.TrimSpace(sb.String())
}

func (a *ToolAgent) recordLLM(status string, d time.Duration) {
	if a.metrics != nil {
		a.metrics.RecordLLMRequest(a.cfg.Name, status, d)
	}
}

func (a *ToolAgent) recordTool(tool, status string, d time.Duration) {
	if a.metrics != nil {
		a.metrics.RecordToolCall(tool, status, d)
	}
}

func buildUserPrompt(req Request, outputs []toolOutput) string {
	var sb strings.Builder

	sb.WriteString(req.Query)
	sb.WriteString("\n")

	if len(req.Symbols) > 0 {
		fmt.Fprintf(&sb, "\nTickers: %s\n", strings.Join(req.Symbols, ", "))
	}

	for _, o := range outputs {
		fmt.Fprintf(&sb, "\n## Tool: %s\n%s\n", o.name, strings.TrimSpace(o.output))
	}

	return sb.String()
}

var sourceRefRe = regexp.MustCompile(`\[S(\d+)\]`)

func parseSourceRefs(content string) []string {
	seen := make(map[string]bool)
	var refs []string
	for _, m := range sourceRefRe.FindAllString(content, -1) {
		if !seen[m] {
			seen[m] = true
			refs = append(refs, m)
		}
	}
	return refs
}

var _ Agent = (*ToolAgent)(nil)
