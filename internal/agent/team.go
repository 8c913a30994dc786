package agent

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kitbuilder587/stock-agent/internal/llm"
	"github.com/kitbuilder587/stock-agent/internal/metrics"
)

var ErrNoAgentResponses = errors.New("no agent responses received")

const leaderName = "Team Leader"

type TeamConfig struct {
	Instructions []string
	Markdown     bool
	// MemberTimeout bounds each member separately, zero means no limit.
	MemberTimeout time.Duration
}

// Team runs its members in parallel and has the leader model merge their
// answers into one response.
type Team struct {
	members []Agent
	leader  llm.Client
	cfg     TeamConfig
	logger  *zap.Logger
	metrics *metrics.Metrics
}

func NewTeam(members []Agent, leader llm.Client, cfg TeamConfig, logger *zap.Logger, m *metrics.Metrics) *Team {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Team{
		members: members,
		leader:  leader,
		cfg:     cfg,
		logger:  logger,
		metrics: m,
	}
}

func (t *Team) Name() string { return leaderName }
func (t *Team) Role() string { return "Coordinate the team and merge member answers" }

func (t *Team) Members() []Agent { return t.members }

func (t *Team) Process(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	if err := req.Validate(); err != nil {
		return nil, err
	}

	t.logger.Info("running agent team", zap.Int("members", len(t.members)))

	responses, errs := t.runParallel(ctx, req)
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if len(responses) == 0 {
		if len(errs) > 0 {
			return nil, fmt.Errorf("%w: %w", ErrNoAgentResponses, errors.Join(errs...))
		}
		return nil, ErrNoAgentResponses
	}

	llmStart := time.Now()
	answer, err := t.synthesize(ctx, responses, req)
	if err != nil {
		t.record("error", time.Since(llmStart))
		return nil, fmt.Errorf("synthesis failed: %w", err)
	}
	t.record("success", time.Since(llmStart))

	var tools []string
	for _, r := range responses {
		tools = append(tools, r.ToolsUsed...)
	}

	return &Response{
		AgentName:  leaderName,
		Content:    answer,
		ToolsUsed:  tools,
		SourceRefs: parseSourceRefs(answer),
		Duration:   time.Since(start),
	}, nil
}

// runParallel returns member responses in member order. Failed members are
// logged and left out.
func (t *Team) runParallel(ctx context.Context, req Request) ([]Response, []error) {
	if len(t.members) == 0 {
		return nil, nil
	}

	results := make([]*Response, len(t.members))
	var (
		mu   sync.Mutex
		errs []error
		wg   sync.WaitGroup
	)

	for i, member := range t.members {
		wg.Add(1)
		go func() {
			defer wg.Done()

			mctx := ctx
			if t.cfg.MemberTimeout > 0 {
				var cancel context.CancelFunc
				mctx, cancel = context.WithTimeout(ctx, t.cfg.MemberTimeout)
				defer cancel()
			}

			resp, err := member.Process(mctx, req)
			if err != nil {
				t.logger.Warn("agent failed", zap.String("agent", member.Name()), zap.Error(err))
				mu.Lock()
				errs = append(errs, err)
				mu.Unlock()
				return
			}
			results[i] = resp
		}()
	}
	wg.Wait()

	var out []Response
	for _, r := range results {
		if r != nil {
			out = append(out, *r)
		}
	}
	return out, errs
}

func (t *Team) synthesize(ctx context.Context, responses []Response, req Request) (string, error) {
	var sys strings.Builder
	sys.WriteString("You lead a team of financial research agents. Combine their findings into one answer for the user.\n")
	sys.WriteString("Keep figures exactly as reported and keep source references.\n")

	if len(t.cfg.Instructions) > 0 || t.cfg.Markdown {
		sys.WriteString("\nInstructions:\n")
		for _, ins := range t.cfg.Instructions {
			fmt.Fprintf(&sys, "- %s\n", ins)
		}
		if t.cfg.Markdown {
			fmt.Fprintf(&sys, "- %s\n", markdownHint)
		}
	}

	var prompt strings.Builder
	prompt.WriteString(req.Query)
	prompt.WriteString("\n")
	for _, r := range responses {
		fmt.Fprintf(&prompt, "\n## Member: %s\n%s\n", r.AgentName, strings.TrimSpace(r.Content))
	}

	return t.leader.CompleteWithSystem(ctx, strings.TrimSpace(sys.String()), prompt.String())
}

func (t *Team) record(status string, d time.Duration) {
	if t.metrics != nil {
		t.metrics.RecordLLMRequest(leaderName, status, d)
	}
}

var _ Agent = (*Team)(nil)
