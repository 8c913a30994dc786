package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/glamour"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/kitbuilder587/stock-agent/internal/config"
	"github.com/kitbuilder587/stock-agent/internal/domain"
	"github.com/kitbuilder587/stock-agent/internal/llm"
	"github.com/kitbuilder587/stock-agent/internal/logging"
	"github.com/kitbuilder587/stock-agent/internal/prompts"
	"github.com/kitbuilder587/stock-agent/internal/service"
)

type cli struct {
	envFile    string
	configFile string

	promptsFile string
	providers   []string
	mode        string
	stocks      string
	noSave      bool
	plain       bool

	cfg    *config.Config
	logger *zap.Logger
}

func newCLI() *cli {
	return &cli{}
}

// log returns the configured application logger, or the default registry
// logger when configuration never got that far.
func (c *cli) log() *zap.Logger {
	if c.logger != nil {
		return c.logger
	}
	return logging.Get(config.Defaults().Log.Name)
}

func (c *cli) command() *cobra.Command {
	root := &cobra.Command{
		Use:   "stock-agent",
		Short: "Summarize analyst recommendations and news for a set of stocks",
		Long: `stock-agent reads a markdown prompts file, asks the configured LLM
providers to analyze the stocks it names and prints the answers.

Each answer is also written to the responses directory.`,
		Args:              cobra.NoArgs,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: c.setup,
		RunE:              c.analyze,
	}

	pf := root.PersistentFlags()
	pf.StringVar(&c.envFile, "env-file", config.DefaultEnvFile, "dotenv file to load before reading the environment")
	pf.StringVar(&c.configFile, "config", config.DefaultConfigFile, "optional YAML config file")
	pf.StringVar(&c.promptsFile, "prompts", "", "prompts markdown file (default from PROMPTS_FILE)")

	f := root.Flags()
	f.StringSliceVar(&c.providers, "provider", nil, "LLM provider to run, repeatable (groq, openai, mock)")
	f.StringVar(&c.mode, "mode", "", "agent mode: single or team")
	f.StringVar(&c.stocks, "stocks", "", "stocks to analyze, overrides the prompts stocks section")
	f.BoolVar(&c.noSave, "no-save", false, "do not write responses to disk")
	f.BoolVar(&c.plain, "plain", false, "print raw markdown instead of rendering it")

	root.AddCommand(c.sectionsCommand(), c.historyCommand())
	return root
}

// setup loads configuration, applies flag overrides and installs the logger
// registry.
func (c *cli) setup(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Read(c.envFile, c.configFile)
	if err != nil {
		return err
	}

	if c.promptsFile != "" {
		cfg.Prompts.File = c.promptsFile
	}
	if len(c.providers) > 0 {
		cfg.LLM.Providers = normalizeProviders(c.providers)
	}
	if c.mode != "" {
		cfg.Mode = strings.ToLower(strings.TrimSpace(c.mode))
	}

	c.cfg = cfg
	c.logger = config.NewLogger(cfg.Log)
	c.logger.Debug("configuration loaded",
		zap.String("prompts", cfg.Prompts.File),
		zap.Strings("providers", cfg.LLM.Providers),
		zap.String("mode", cfg.Mode),
	)
	return nil
}

func (c *cli) analyze(cmd *cobra.Command, _ []string) error {
	if err := c.cfg.Validate(); err != nil {
		return err
	}

	ctx := cmd.Context()
	w, err := newWiring(ctx, c.cfg, c.logger)
	if err != nil {
		return err
	}
	defer w.Close()

	svc := service.NewAnalysisService(service.AnalysisDeps{
		Loader:      prompts.NewLoader(logging.Get(promptLoaderLog)),
		Clients:     w.newClient,
		Toolkit:     w.toolkit,
		Store:       w.store,
		History:     w.history,
		Notifier:    w.notifier,
		Logger:      c.logger,
		AgentLogger: logging.Get(agentLog),
		Metrics:     w.metrics,
		Config: service.AnalysisConfig{
			PromptsFile:   c.cfg.Prompts.File,
			Providers:     c.cfg.LLM.Providers,
			Mode:          domain.AgentMode(c.cfg.Mode),
			SaveResponses: c.cfg.Responses.Save,
			Timeout:       c.cfg.Timeouts.Total,
		},
	})

	result, err := svc.Run(ctx, service.RunRequest{
		Stocks: c.stocks,
		NoSave: c.noSave,
	})
	if result != nil {
		printRuns(cmd.OutOrStdout(), result.Runs, c.plain, c.logger)
	}
	return err
}

func normalizeProviders(in []string) []string {
	out := make([]string, 0, len(in))
	for _, p := range in {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func printRuns(w io.Writer, runs []domain.Run, plain bool, logger *zap.Logger) {
	var renderer *glamour.TermRenderer
	if !plain {
		r, err := glamour.NewTermRenderer(
			glamour.WithAutoStyle(),
			glamour.WithWordWrap(80),
		)
		if err != nil {
			logger.Warn("markdown renderer unavailable", zap.Error(err))
		} else {
			renderer = r
		}
	}

	for _, run := range runs {
		fmt.Fprintf(w, "\n=== %s response ===\n\n", llm.Label(run.Provider))
		fmt.Fprintln(w, render(renderer, run.Response))
		if run.FilePath != "" {
			fmt.Fprintf(w, "Saved to %s\n", run.FilePath)
		}
	}
}

func render(renderer *glamour.TermRenderer, md string) string {
	if renderer == nil {
		return md
	}
	out, err := renderer.Render(md)
	if err != nil {
		return md
	}
	return out
}
