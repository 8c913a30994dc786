// Package yahoo reads quotes, analyst trends and company profiles from the
// public Yahoo Finance JSON endpoints.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/kitbuilder587/stock-agent/internal/market"
	"github.com/kitbuilder587/stock-agent/internal/ratelimit"
)

const (
	DefaultBaseURL = "https://query1.finance.yahoo.com"
	// DefaultCookieURL hands out the session cookie quoteSummary needs.
	DefaultCookieURL = "https://fc.yahoo.com"
	crumbPath        = "/v1/test/getcrumb"
	userAgent        = "Mozilla/5.0 (compatible; stock-agent/1.0)"
	limiterKey       = "yahoo"
)

type Config struct {
	BaseURL           string
	CookieURL         string
	Timeout           time.Duration
	RequestsPerMinute int
}

type Client struct {
	baseURL   string
	cookieURL string
	client    *http.Client
	limiter   *ratelimit.Limiter
	logger    *zap.Logger

	// crumb pairs with the session cookie in the jar, guarded by crumbMu
	crumbMu sync.Mutex
	crumb   string
}

func New(cfg Config, logger *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.CookieURL == "" {
		cfg.CookieURL = DefaultCookieURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 15 * time.Second
	}
	if cfg.RequestsPerMinute == 0 {
		cfg.RequestsPerMinute = 60
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	// cookiejar.New only fails on a bad public suffix list option
	jar, _ := cookiejar.New(nil)

	return &Client{
		baseURL:   strings.TrimRight(cfg.BaseURL, "/"),
		cookieURL: cfg.CookieURL,
		client:    &http.Client{Timeout: cfg.Timeout, Jar: jar},
		limiter:   ratelimit.New(ratelimit.Config{RequestsPerMinute: cfg.RequestsPerMinute}),
		logger:    logger,
	}
}

// Close stops the request limiter.
func (c *Client) Close() {
	c.limiter.Stop()
}

type chartResponse struct {
	Chart struct {
		Result []struct {
			Meta struct {
				Symbol             string          `json:"symbol"`
				Currency           string          `json:"currency"`
				ExchangeName       string          `json:"fullExchangeName"`
				LongName           string          `json:"longName"`
				ShortName          string          `json:"shortName"`
				RegularMarketPrice decimal.Decimal `json:"regularMarketPrice"`
				ChartPreviousClose decimal.Decimal `json:"chartPreviousClose"`
				PreviousClose      decimal.Decimal `json:"previousClose"`
				DayHigh            decimal.Decimal `json:"regularMarketDayHigh"`
				DayLow             decimal.Decimal `json:"regularMarketDayLow"`
				Volume             int64           `json:"regularMarketVolume"`
				MarketTime         int64           `json:"regularMarketTime"`
			} `json:"meta"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"chart"`
}

type apiError struct {
	Code        string `json:"code"`
	Description string `json:"description"`
}

func (c *Client) Quote(ctx context.Context, symbol string) (*market.Quote, error) {
	q := url.Values{"range": {"1d"}, "interval": {"1d"}}

	var resp chartResponse
	if err := c.get(ctx, "/v8/finance/chart/"+url.PathEscape(symbol), q, symbol, &resp); err != nil {
		return nil, err
	}
	if resp.Chart.Error != nil || len(resp.Chart.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", market.ErrSymbolNotFound, symbol)
	}

	meta := resp.Chart.Result[0].Meta
	prev := meta.PreviousClose
	if prev.IsZero() {
		prev = meta.ChartPreviousClose
	}
	name := meta.LongName
	if name == "" {
		name = meta.ShortName
	}

	quote := &market.Quote{
		Symbol:        meta.Symbol,
		Name:          name,
		Currency:      meta.Currency,
		Exchange:      meta.ExchangeName,
		Price:         meta.RegularMarketPrice,
		PreviousClose: prev,
		DayHigh:       meta.DayHigh,
		DayLow:        meta.DayLow,
		Volume:        meta.Volume,
	}
	if meta.MarketTime > 0 {
		quote.MarketTime = time.Unix(meta.MarketTime, 0).UTC()
	}
	return quote, nil
}

type summaryResponse struct {
	QuoteSummary struct {
		Result []struct {
			RecommendationTrend struct {
				Trend []struct {
					Period     string `json:"period"`
					StrongBuy  int    `json:"strongBuy"`
					Buy        int    `json:"buy"`
					Hold       int    `json:"hold"`
					Sell       int    `json:"sell"`
					StrongSell int    `json:"strongSell"`
				} `json:"trend"`
			} `json:"recommendationTrend"`
			AssetProfile struct {
				Sector            string `json:"sector"`
				Industry          string `json:"industry"`
				Country           string `json:"country"`
				Website           string `json:"website"`
				FullTimeEmployees int    `json:"fullTimeEmployees"`
				Summary           string `json:"longBusinessSummary"`
			} `json:"assetProfile"`
			Price struct {
				LongName  string `json:"longName"`
				ShortName string `json:"shortName"`
			} `json:"price"`
		} `json:"result"`
		Error *apiError `json:"error"`
	} `json:"quoteSummary"`
}

// summary calls quoteSummary with the session crumb. A 401 means the
// session expired: the crumb is refreshed and the call retried once.
func (c *Client) summary(ctx context.Context, symbol string, modules ...string) (*summaryResponse, error) {
	var resp summaryResponse
	err := c.summaryOnce(ctx, symbol, modules, &resp)
	if errors.Is(err, market.ErrUnauthorized) {
		c.logger.Debug("yahoo session rejected, refreshing crumb", zap.String("symbol", symbol))
		c.dropCrumb()
		resp = summaryResponse{}
		err = c.summaryOnce(ctx, symbol, modules, &resp)
	}
	if err != nil {
		return nil, err
	}
	if resp.QuoteSummary.Error != nil || len(resp.QuoteSummary.Result) == 0 {
		return nil, fmt.Errorf("%w: %s", market.ErrSymbolNotFound, symbol)
	}
	return &resp, nil
}

func (c *Client) summaryOnce(ctx context.Context, symbol string, modules []string, out *summaryResponse) error {
	crumb, err := c.sessionCrumb(ctx)
	if err != nil {
		return err
	}
	q := url.Values{
		"modules": {strings.Join(modules, ",")},
		"crumb":   {crumb},
	}
	return c.get(ctx, "/v10/finance/quoteSummary/"+url.PathEscape(symbol), q, symbol, out)
}

// sessionCrumb returns the cached crumb or runs the handshake: visit the
// cookie URL so the jar holds a session cookie, then exchange it for a
// crumb. Concurrent callers share one handshake.
func (c *Client) sessionCrumb(ctx context.Context) (string, error) {
	c.crumbMu.Lock()
	defer c.crumbMu.Unlock()

	if c.crumb != "" {
		return c.crumb, nil
	}

	// the cookie endpoint answers 404 but still sets the cookie
	if _, _, err := c.fetch(ctx, c.cookieURL); err != nil {
		return "", err
	}

	status, body, err := c.fetch(ctx, c.baseURL+crumbPath)
	if err != nil {
		return "", err
	}
	crumb := strings.TrimSpace(string(body))
	switch {
	case status == http.StatusTooManyRequests:
		return "", market.ErrRateLimit
	case status != http.StatusOK || crumb == "" || strings.ContainsAny(crumb, "<{"):
		return "", fmt.Errorf("%w: crumb request returned status %d", market.ErrUnauthorized, status)
	}

	c.crumb = crumb
	return crumb, nil
}

func (c *Client) dropCrumb() {
	c.crumbMu.Lock()
	c.crumb = ""
	c.crumbMu.Unlock()
}

func (c *Client) fetch(ctx context.Context, rawURL string) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return 0, nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %w", market.ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("read response: %w", err)
	}
	return resp.StatusCode, body, nil
}

func (c *Client) Recommendations(ctx context.Context, symbol string) ([]market.Recommendation, error) {
	resp, err := c.summary(ctx, symbol, "recommendationTrend")
	if err != nil {
		return nil, err
	}

	trend := resp.QuoteSummary.Result[0].RecommendationTrend.Trend
	recs := make([]market.Recommendation, 0, len(trend))
	for _, t := range trend {
		recs = append(recs, market.Recommendation{
			Period:     t.Period,
			StrongBuy:  t.StrongBuy,
			Buy:        t.Buy,
			Hold:       t.Hold,
			Sell:       t.Sell,
			StrongSell: t.StrongSell,
		})
	}
	return recs, nil
}

func (c *Client) Profile(ctx context.Context, symbol string) (*market.Profile, error) {
	resp, err := c.summary(ctx, symbol, "assetProfile", "price")
	if err != nil {
		return nil, err
	}

	r := resp.QuoteSummary.Result[0]
	name := r.Price.LongName
	if name == "" {
		name = r.Price.ShortName
	}

	return &market.Profile{
		Symbol:    symbol,
		Name:      name,
		Sector:    r.AssetProfile.Sector,
		Industry:  r.AssetProfile.Industry,
		Country:   r.AssetProfile.Country,
		Website:   r.AssetProfile.Website,
		Employees: r.AssetProfile.FullTimeEmployees,
		Summary:   r.AssetProfile.Summary,
	}, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values, symbol string, out any) error {
	if err := c.limiter.Wait(ctx, limiterKey); err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path+"?"+query.Encode(), nil)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", market.ErrRequestFailed, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", market.ErrSymbolNotFound, symbol)
	case resp.StatusCode == http.StatusTooManyRequests:
		return market.ErrRateLimit
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: status %d", market.ErrUnauthorized, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		c.logger.Error("yahoo request failed",
			zap.String("path", path),
			zap.Int("status", resp.StatusCode),
			zap.String("body", string(body)),
		)
		return fmt.Errorf("%w: status %d", market.ErrRequestFailed, resp.StatusCode)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}
	return nil
}

var _ market.Provider = (*Client)(nil)
