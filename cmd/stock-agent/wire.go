package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/kitbuilder587/stock-agent/internal/agent"
	"github.com/kitbuilder587/stock-agent/internal/cache/memory"
	"github.com/kitbuilder587/stock-agent/internal/config"
	"github.com/kitbuilder587/stock-agent/internal/domain"
	"github.com/kitbuilder587/stock-agent/internal/llm"
	"github.com/kitbuilder587/stock-agent/internal/llm/groq"
	"github.com/kitbuilder587/stock-agent/internal/llm/mock"
	"github.com/kitbuilder587/stock-agent/internal/llm/openai"
	"github.com/kitbuilder587/stock-agent/internal/logging"
	"github.com/kitbuilder587/stock-agent/internal/market/yahoo"
	"github.com/kitbuilder587/stock-agent/internal/metrics"
	"github.com/kitbuilder587/stock-agent/internal/repository"
	"github.com/kitbuilder587/stock-agent/internal/repository/postgres"
	"github.com/kitbuilder587/stock-agent/internal/responses"
	"github.com/kitbuilder587/stock-agent/internal/search/tavily"
	"github.com/kitbuilder587/stock-agent/internal/service"
	"github.com/kitbuilder587/stock-agent/internal/telegram"
)

// Components with their own log file under the logs directory.
const (
	promptLoaderLog = "prompt_loader"
	saveResponseLog = "save_response"
	agentLog        = "ai_agent"
)

// wiring owns every long-lived dependency of an analysis run.
type wiring struct {
	cfg    *config.Config
	logger *zap.Logger

	toolkit  agent.Toolkit
	store    *responses.Store
	history  repository.RunRepository
	notifier service.Notifier
	metrics  *metrics.Metrics

	market *yahoo.Client
	cache  *memory.Cache
	db     *postgres.DB
	server *http.Server
}

func newWiring(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*wiring, error) {
	reg := prometheus.NewRegistry()
	w := &wiring{
		cfg:     cfg,
		logger:  logger,
		metrics: metrics.NewWithRegistry(reg, reg),
		store:   responses.NewStore(cfg.Responses.Dir, logging.Get(saveResponseLog)),
		cache:   memory.NewWithContext(ctx, memory.Options{}),
		market: yahoo.New(yahoo.Config{
			BaseURL:           cfg.Market.BaseURL,
			CookieURL:         cfg.Market.CookieURL,
			Timeout:           cfg.Market.Timeout,
			RequestsPerMinute: cfg.Market.RequestsPerMinute,
		}, logger.Named("yahoo")),
	}

	w.toolkit = agent.Toolkit{
		Market:   w.market,
		Cache:    w.cache,
		CacheTTL: cfg.Cache.TTL,
		Metrics:  w.metrics,
		Logger:   logging.Get(agentLog).Named("tools"),
	}
	if cfg.Tavily.APIKey != "" {
		w.toolkit.Search = tavily.New(tavily.Config{
			APIKey:  cfg.Tavily.APIKey,
			BaseURL: cfg.Tavily.BaseURL,
			Timeout: cfg.Tavily.Timeout,
		}, logger.Named("tavily"))
	} else {
		logger.Warn("TAVILY_API_KEY not set, web search tools disabled")
	}

	if cfg.Database.URL != "" {
		if err := w.openHistory(ctx); err != nil {
			logger.Warn("run history disabled", zap.Error(err))
		}
	}

	if cfg.Telegram.Token != "" {
		n, err := telegram.NewNotifier(telegram.Config{
			Token:  cfg.Telegram.Token,
			ChatID: cfg.Telegram.ChatID,
		}, logger.Named("telegram"))
		if err != nil {
			logger.Warn("telegram notifications disabled", zap.Error(err))
		} else {
			w.notifier = n
		}
	}

	if cfg.Metrics.Addr != "" {
		w.serveMetrics(cfg.Metrics.Addr)
	}

	return w, nil
}

func (w *wiring) openHistory(ctx context.Context) error {
	db, err := postgres.New(ctx, w.cfg.Database.URL)
	if err != nil {
		return err
	}
	if err := db.Migrate(ctx); err != nil {
		db.Close()
		return err
	}
	w.db = db
	w.history = postgres.NewRunRepo(db)
	return nil
}

func (w *wiring) serveMetrics(addr string) {
	w.server = &http.Server{
		Addr:              addr,
		Handler:           w.metrics.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}
	go func() {
		w.logger.Info("serving metrics", zap.String("addr", addr))
		if err := w.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			w.logger.Error("metrics server failed", zap.Error(err))
		}
	}()
}

// newClient is the service.ClientFactory for the configured providers.
func (w *wiring) newClient(provider string) (llm.Client, error) {
	switch provider {
	case llm.ProviderGroq:
		return groq.New(groq.Config{
			APIKey:  w.cfg.LLM.Groq.APIKey,
			Model:   w.cfg.LLM.Groq.Model,
			BaseURL: w.cfg.LLM.Groq.BaseURL,
		}, w.logger.Named("groq")), nil
	case llm.ProviderOpenAI:
		return openai.New(openai.Config{
			APIKey:  w.cfg.LLM.OpenAI.APIKey,
			Model:   w.cfg.LLM.OpenAI.Model,
			BaseURL: w.cfg.LLM.OpenAI.BaseURL,
		}, w.logger.Named("openai")), nil
	case llm.ProviderMock:
		return mock.New().WithResponder(mockAnswer), nil
	}
	return nil, fmt.Errorf("%w: %q", domain.ErrUnknownProvider, provider)
}

// mockAnswer echoes the gathered tool data so offline runs still show what
// the agents would have seen.
func mockAnswer(_, prompt string) (string, error) {
	return "## Offline analysis\n\n" + prompt, nil
}

func (w *wiring) Close() {
	if w.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := w.server.Shutdown(ctx); err != nil {
			w.logger.Warn("metrics server shutdown failed", zap.Error(err))
		}
	}
	if w.db != nil {
		w.db.Close()
	}
	w.market.Close()
	w.cache.Stop()
}
