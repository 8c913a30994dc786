package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/kitbuilder587/stock-agent/internal/agent"
	"github.com/kitbuilder587/stock-agent/internal/domain"
	"github.com/kitbuilder587/stock-agent/internal/llm"
	"github.com/kitbuilder587/stock-agent/internal/metrics"
	"github.com/kitbuilder587/stock-agent/internal/prompts"
	"github.com/kitbuilder587/stock-agent/internal/repository"
	"github.com/kitbuilder587/stock-agent/internal/responses"
)

// ClientFactory returns the chat client for a provider name.
type ClientFactory func(provider string) (llm.Client, error)

type ResponseStore interface {
	Save(rec responses.Record) (string, error)
}

type Notifier interface {
	NotifyRun(ctx context.Context, run domain.Run) error
}

type AnalysisConfig struct {
	PromptsFile   string
	Providers     []string
	Mode          domain.AgentMode
	SaveResponses bool
	// Timeout bounds the whole run across providers.
	Timeout       time.Duration
	MemberTimeout time.Duration
}

// AnalysisDeps - dependencies of AnalysisService. History and Notifier are
// optional.
type AnalysisDeps struct {
	Loader      *prompts.Loader
	Clients     ClientFactory
	Toolkit     agent.Toolkit
	Store       ResponseStore
	History     repository.RunRepository
	Notifier    Notifier
	Logger      *zap.Logger
	// AgentLogger receives agent and tool activity; defaults to Logger.
	AgentLogger *zap.Logger
	Metrics     *metrics.Metrics
	Config      AnalysisConfig

	NewID func() string
}

// RunRequest overrides the configured defaults for one invocation.
type RunRequest struct {
	PromptsFile string
	// Stocks replaces the "stocks" section when set.
	Stocks    string
	Providers []string
	Mode      domain.AgentMode
	NoSave    bool
}

type RunResult struct {
	Query string
	Runs  []domain.Run
}

type AnalysisService struct {
	loader   *prompts.Loader
	clients  ClientFactory
	toolkit  agent.Toolkit
	store    ResponseStore
	history  repository.RunRepository
	notifier Notifier
	logger   *zap.Logger
	agentLog *zap.Logger
	metrics  *metrics.Metrics
	config   AnalysisConfig
	newID    func() string
}

func NewAnalysisService(deps AnalysisDeps) *AnalysisService {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.AgentLogger == nil {
		deps.AgentLogger = deps.Logger
	}
	if deps.Loader == nil {
		deps.Loader = prompts.NewLoader(deps.Logger)
	}
	if deps.NewID == nil {
		deps.NewID = uuid.NewString
	}
	if deps.Config.Mode == "" {
		deps.Config.Mode = domain.ModeSingle
	}
	if len(deps.Config.Providers) == 0 {
		deps.Config.Providers = []string{llm.ProviderGroq}
	}

	return &AnalysisService{
		loader:   deps.Loader,
		clients:  deps.Clients,
		toolkit:  deps.Toolkit,
		store:    deps.Store,
		history:  deps.History,
		notifier: deps.Notifier,
		logger:   deps.Logger,
		agentLog: deps.AgentLogger,
		metrics:  deps.Metrics,
		config:   deps.Config,
		newID:    deps.NewID,
	}
}

// Run loads the prompts document, formats the query and runs it through
// every provider in order. The first provider failure stops the run and
// is returned wrapped in domain.ErrRemoteCall.
func (s *AnalysisService) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	s.applyDefaults(&req)

	if s.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.config.Timeout)
		defer cancel()
	}

	sections, err := s.loader.Load(req.PromptsFile)
	if err != nil {
		return nil, err
	}

	stocks := req.Stocks
	if stocks == "" {
		if stocks, err = sections.Get(prompts.SectionStocks); err != nil {
			return nil, err
		}
	}

	tmpl, err := sections.Get(prompts.SectionQuery)
	if err != nil {
		return nil, err
	}

	ar := domain.AnalysisRequest{
		Stocks:    stocks,
		Query:     prompts.Format(tmpl, map[string]string{"stocks": stocks}),
		Providers: req.Providers,
		Mode:      req.Mode,
	}
	ar.Sanitize()
	if err := ar.Validate(); err != nil {
		return nil, err
	}

	s.logger.Info("starting stock analysis",
		zap.String("stocks", ar.Stocks),
		zap.String("mode", ar.Mode.String()),
		zap.Strings("providers", ar.Providers),
	)
	s.logger.Debug("query", zap.String("query", ar.Query))

	result := &RunResult{Query: ar.Query}
	for _, provider := range ar.Providers {
		run, err := s.runProvider(ctx, provider, sections, ar, req.NoSave)
		if err != nil {
			return result, err
		}
		result.Runs = append(result.Runs, *run)
	}

	s.logger.Info("stock analysis completed", zap.Int("runs", len(result.Runs)))
	return result, nil
}

func (s *AnalysisService) applyDefaults(req *RunRequest) {
	if req.PromptsFile == "" {
		req.PromptsFile = s.config.PromptsFile
	}
	if len(req.Providers) == 0 {
		req.Providers = s.config.Providers
	}
	if req.Mode == "" {
		req.Mode = s.config.Mode
	}
	if !s.config.SaveResponses {
		req.NoSave = true
	}
}

func (s *AnalysisService) runProvider(ctx context.Context, provider string, sections prompts.Sections, ar domain.AnalysisRequest, noSave bool) (*domain.Run, error) {
	label := llm.Label(provider)
	logger := s.logger.With(zap.String("provider", label))

	client, err := s.clients(provider)
	if err != nil {
		return nil, fmt.Errorf("init %s client: %w", label, err)
	}

	a, err := agent.Build(ar.Mode, sections, agent.Deps{
		LLM:           client,
		Toolkit:       s.toolkit,
		Logger:        s.agentLog.With(zap.String("provider", label)),
		Metrics:       s.metrics,
		MemberTimeout: s.config.MemberTimeout,
	})
	if err != nil {
		return nil, err
	}

	runID := s.newID()
	logger = logger.With(zap.String("run_id", runID))
	logger.Info("running agent", zap.String("agent", a.Name()))

	if s.metrics != nil {
		s.metrics.IncRunsInFlight()
		defer s.metrics.DecRunsInFlight()
	}

	start := time.Now()
	resp, err := a.Process(ctx, agent.Request{Query: ar.Query, Symbols: domain.Tickers(ar.Stocks)})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil && errors.Is(err, ctxErr) {
			s.recordRun(provider, ar.Mode, "canceled", time.Since(start))
			return nil, ctxErr
		}
		s.recordRun(provider, ar.Mode, "error", time.Since(start))
		logger.Error("agent run failed", zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrRemoteCall, label, err)
	}
	s.recordRun(provider, ar.Mode, "success", time.Since(start))

	logger.Info("analysis complete",
		zap.Duration("duration", time.Since(start)),
		zap.Strings("tools", resp.ToolsUsed),
	)

	run := &domain.Run{
		ID:        runID,
		Provider:  provider,
		Mode:      ar.Mode,
		Stocks:    ar.Stocks,
		Query:     ar.Query,
		Response:  resp.Content,
		CreatedAt: time.Now(),
	}

	if !noSave && s.store != nil {
		run.FilePath = s.save(logger, run, label)
	}

	if s.history != nil {
		if err := s.history.Create(ctx, run); err != nil {
			logger.Warn("failed to record run history", zap.Error(err))
		}
	}

	if s.notifier != nil {
		if err := s.notifier.NotifyRun(ctx, *run); err != nil {
			logger.Warn("failed to send telegram notification", zap.Error(err))
		}
	}

	return run, nil
}

// save never fails the run, a write error is only logged.
func (s *AnalysisService) save(logger *zap.Logger, run *domain.Run, label string) string {
	path, err := s.store.Save(responses.Record{
		RunID:    run.ID,
		Agent:    label,
		Stocks:   run.Stocks,
		Response: run.Response,
	})
	if err != nil {
		logger.Error("error saving response to file", zap.Error(err))
		if s.metrics != nil {
			s.metrics.RecordResponseSaved("error")
		}
		return ""
	}
	if s.metrics != nil {
		s.metrics.RecordResponseSaved("success")
	}
	return path
}

func (s *AnalysisService) recordRun(provider string, mode domain.AgentMode, status string, d time.Duration) {
	if s.metrics != nil {
		s.metrics.RecordRun(provider, mode.String(), status, d)
	}
}
