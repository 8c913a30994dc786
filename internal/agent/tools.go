package agent

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/kitbuilder587/stock-agent/internal/cache"
	"github.com/kitbuilder587/stock-agent/internal/market"
	"github.com/kitbuilder587/stock-agent/internal/metrics"
	"github.com/kitbuilder587/stock-agent/internal/search"
)

const (
	ToolStockPrice      = "stock_price"
	ToolRecommendations = "analyst_recommendations"
	ToolCompanyInfo     = "company_info"
	ToolCompanyNews     = "company_news"
	ToolWebSearch       = "web_search"
)

// Tool gathers data for an agent and renders it as markdown.
type Tool interface {
	Name() string
	Description() string
	Run(ctx context.Context, in Input) (string, error)
}

type Input struct {
	Query   string
	Symbols []string
}

// Toolkit holds what the tools need to reach market data and the web.
type Toolkit struct {
	Market   market.Provider
	Search   search.SearchClient
	Cache    cache.Cache
	CacheTTL time.Duration
	Metrics  *metrics.Metrics
	Logger   *zap.Logger

	NewsDays       int
	MaxResults     int
	SearchDomains  []string
	IncludeAnswers bool
}

func (k Toolkit) logger() *zap.Logger {
	if k.Logger == nil {
		return zap.NewNop()
	}
	return k.Logger
}

// FinanceTools are the quote, analyst and profile lookups.
func (k Toolkit) FinanceTools() []Tool {
	if k.Market == nil {
		return nil
	}
	return []Tool{
		NewStockPriceTool(k),
		NewRecommendationsTool(k),
		NewCompanyInfoTool(k),
	}
}

// WebTools are the general search and per-company news lookups.
func (k Toolkit) WebTools() []Tool {
	if k.Search == nil {
		return nil
	}
	return []Tool{
		NewWebSearchTool(k),
		NewCompanyNewsTool(k),
	}
}

type symbolResult struct {
	symbol string
	text   string
	err    error
}

// perSymbol runs fn for every symbol concurrently, caching successful
// renders under "<tool>:<symbol>". Results keep the input order.
func (k Toolkit) perSymbol(ctx context.Context, tool string, symbols []string, fn func(ctx context.Context, symbol string) (string, error)) ([]symbolResult, error) {
	results := make([]symbolResult, len(symbols))

	g, gctx := errgroup.WithContext(ctx)
	for i, sym := range symbols {
		g.Go(func() error {
			key := tool + ":" + sym

			if k.Cache != nil {
				if cached, ok := k.Cache.Get(key); ok {
					if text, ok := cached.(string); ok {
						if k.Metrics != nil {
							k.Metrics.RecordCacheHit(tool)
						}
						results[i] = symbolResult{symbol: sym, text: text}
						return nil
					}
				}
				if k.Metrics != nil {
					k.Metrics.RecordCacheMiss(tool)
				}
			}

			text, err := fn(gctx, sym)
			if err != nil {
				if ctxErr := gctx.Err(); ctxErr != nil {
					return ctxErr
				}
				k.logger().Warn("symbol lookup failed",
					zap.String("tool", tool),
					zap.String("symbol", sym),
					zap.Error(err),
				)
				results[i] = symbolResult{symbol: sym, err: err}
				return nil
			}

			if k.Cache != nil {
				k.Cache.Set(key, text, k.CacheTTL)
			}
			results[i] = symbolResult{symbol: sym, text: text}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

func writeErrors(sb *strings.Builder, results []symbolResult) {
	first := true
	for _, r := range results {
		if r.err == nil {
			continue
		}
		if first {
			sb.WriteString("\nLookup errors:\n")
			first = false
		}
		fmt.Fprintf(sb, "- %s: %v\n", r.symbol, r.err)
	}
}

func noSymbols() string {
	return "_no ticker symbols given_"
}

type StockPriceTool struct{ kit Toolkit }

func NewStockPriceTool(kit Toolkit) *StockPriceTool { return &StockPriceTool{kit: kit} }

func (t *StockPriceTool) Name() string { return ToolStockPrice }
func (t *StockPriceTool) Description() string {
	return "current stock price, change and percent change from the previous close"
}

func (t *StockPriceTool) Run(ctx context.Context, in Input) (string, error) {
	if len(in.Symbols) == 0 {
		return noSymbols(), nil
	}

	results, err := t.kit.perSymbol(ctx, ToolStockPrice, in.Symbols, func(ctx context.Context, sym string) (string, error) {
		q, err := t.kit.Market.Quote(ctx, sym)
		if err != nil {
			return "", err
		}
		name := q.Name
		if name == "" {
			name = sym
		}
		return fmt.Sprintf("| %s | %s | %s | %s | %s%% | %s |",
			sym, name, q.Price.StringFixed(2), q.Change().StringFixed(2), q.ChangePercent().StringFixed(2), q.Currency), nil
	})
	if err != nil {
		return "", err
	}

	var sb strings.Builder
	sb.WriteString("| Symbol | Name | Price | Change | Change % | Currency |\n")
	sb.WriteString("|---|---|---|---|---|---|\n")
	for _, r := range results {
		if r.err == nil {
			sb.WriteString(r.text)
			sb.WriteString("\n")
		}
	}
	writeErrors(&sb, results)
	return sb.String(), nil
}

type RecommendationsTool struct{ kit Toolkit }

func NewRecommendationsTool(kit Toolkit) *RecommendationsTool {
	return &RecommendationsTool{kit: kit}
}

func (t *RecommendationsTool) Name() string { return ToolRecommendations }
func (t *RecommendationsTool) Description() string {
	return "analyst recommendation counts (strong buy to strong sell) for recent months"
}

func (t *RecommendationsTool) Run(ctx context.Context, in Input) (string, error) {
	if len(in.Symbols) == 0 {
		return noSymbols(), nil
	}

	results, err := t.kit.perSymbol(ctx, ToolRecommendations, in.Symbols, func(ctx context.Context, sym string) (string, error) {
		recs, err := t.kit.Market.Recommendations(ctx, sym)
		if err != nil {
			return "", err
		}

		var sb strings.Builder
		fmt.Fprintf(&sb, "### %s\n", sym)
		if len(recs) == 0 {
			sb.WriteString("_no analyst coverage_\n")
			return sb.String(), nil
		}
		sb.WriteString("| Period | Strong Buy | Buy | Hold | Sell | Strong Sell | Total |\n")
		sb.WriteString("|---|---|---|---|---|---|---|\n")
		for _, r := range recs {
			fmt.Fprintf(&sb, "| %s | %d | %d | %d | %d | %d | %d |\n",
				r.Period, r.StrongBuy, r.Buy, r.Hold, r.Sell, r.StrongSell, r.Total())
		}
		return sb.String(), nil
	})
	if err != nil {
		return "", err
	}

	return joinSections(results), nil
}

type CompanyInfoTool struct{ kit Toolkit }

func NewCompanyInfoTool(kit Toolkit) *CompanyInfoTool { return &CompanyInfoTool{kit: kit} }

func (t *CompanyInfoTool) Name() string { return ToolCompanyInfo }
func (t *CompanyInfoTool) Description() string {
	return "company profile: sector, industry, employees, website and business summary"
}

func (t *CompanyInfoTool) Run(ctx context.Context, in Input) (string, error) {
	if len(in.Symbols) == 0 {
		return noSymbols(), nil
	}

	results, err := t.kit.perSymbol(ctx, ToolCompanyInfo, in.Symbols, func(ctx context.Context, sym string) (string, error) {
		p, err := t.kit.Market.Profile(ctx, sym)
		if err != nil {
			return "", err
		}

		var sb strings.Builder
		title := sym
		if p.Name != "" {
			title = fmt.Sprintf("%s (%s)", p.Name, sym)
		}
		fmt.Fprintf(&sb, "### %s\n", title)
		field := func(label, value string) {
			if value != "" {
				fmt.Fprintf(&sb, "- %s: %s\n", label, value)
			}
		}
		field("Sector", p.Sector)
		field("Industry", p.Industry)
		field("Country", p.Country)
		if p.Employees > 0 {
			field("Employees", fmt.Sprintf("%d", p.Employees))
		}
		field("Website", p.Website)
		if p.Summary != "" {
			fmt.Fprintf(&sb, "\n%s\n", p.Summary)
		}
		return sb.String(), nil
	})
	if err != nil {
		return "", err
	}

	return joinSections(results), nil
}

type CompanyNewsTool struct{ kit Toolkit }

func NewCompanyNewsTool(kit Toolkit) *CompanyNewsTool { return &CompanyNewsTool{kit: kit} }

func (t *CompanyNewsTool) Name() string { return ToolCompanyNews }
func (t *CompanyNewsTool) Description() string {
	return "latest news articles per company"
}

func (t *CompanyNewsTool) Run(ctx context.Context, in Input) (string, error) {
	if len(in.Symbols) == 0 {
		return noSymbols(), nil
	}

	days := t.kit.NewsDays
	if days == 0 {
		days = 7
	}

	results, err := t.kit.perSymbol(ctx, ToolCompanyNews, in.Symbols, func(ctx context.Context, sym string) (string, error) {
		resp, err := t.kit.Search.Search(ctx, search.SearchRequest{
			Query:      sym + " stock news",
			Topic:      search.TopicNews,
			Days:       days,
			MaxResults: t.kit.MaxResults,
		})
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("### %s\n%s", sym, resp.Markdown()), nil
	})
	if err != nil {
		return "", err
	}

	return joinSections(results), nil
}

type WebSearchTool struct{ kit Toolkit }

func NewWebSearchTool(kit Toolkit) *WebSearchTool { return &WebSearchTool{kit: kit} }

func (t *WebSearchTool) Name() string { return ToolWebSearch }
func (t *WebSearchTool) Description() string {
	return "general web search for the query, cite results by their [S#] marker"
}

func (t *WebSearchTool) Run(ctx context.Context, in Input) (string, error) {
	query := strings.TrimSpace(in.Query)
	if query == "" {
		query = strings.Join(in.Symbols, " ")
	}
	if query == "" {
		return "", ErrEmptyQuery
	}

	resp, err := t.kit.Search.Search(ctx, search.SearchRequest{
		Query:          query,
		Topic:          search.TopicGeneral,
		MaxResults:     t.kit.MaxResults,
		IncludeDomains: t.kit.SearchDomains,
		IncludeAnswer:  t.kit.IncludeAnswers,
	})
	if err != nil {
		return "", err
	}
	return resp.Markdown(), nil
}

func joinSections(results []symbolResult) string {
	var sb strings.Builder
	for _, r := range results {
		if r.err == nil {
			sb.WriteString(strings.TrimRight(r.text, "\n"))
			sb.WriteString("\n\n")
		}
	}
	writeErrors(&sb, results)
	return strings.TrimRight(sb.String(), "\n") + "\n"
}

var (
	_ Tool = (*StockPriceTool)(nil)
	_ Tool = (*RecommendationsTool)(nil)
	_ Tool = (*CompanyInfoTool)(nil)
	_ Tool = (*CompanyNewsTool)(nil)
	_ Tool = (*WebSearchTool)(nil)
)
