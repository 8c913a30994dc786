// Package market describes stock data lookups used by the finance tools.
package market

import (
	"context"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrSymbolNotFound = errors.New("symbol not found")
	ErrRateLimit      = errors.New("rate limit exceeded")
	ErrRequestFailed  = errors.New("market data request failed")
	ErrUnauthorized   = errors.New("market data access denied")
)

type Provider interface {
	Quote(ctx context.Context, symbol string) (*Quote, error)
	Recommendations(ctx context.Context, symbol string) ([]Recommendation, error)
	Profile(ctx context.Context, symbol string) (*Profile, error)
}

type Quote struct {
	Symbol        string
	Name          string
	Currency      string
	Exchange      string
	Price         decimal.Decimal
	PreviousClose decimal.Decimal
	DayHigh       decimal.Decimal
	DayLow        decimal.Decimal
	Volume        int64
	MarketTime    time.Time
}

func (q *Quote) Change() decimal.Decimal {
	return q.Price.Sub(q.PreviousClose)
}

// ChangePercent is rounded to two places, zero without a previous close.
func (q *Quote) ChangePercent() decimal.Decimal {
	if q.PreviousClose.IsZero() {
		return decimal.Zero
	}
	return q.Change().Div(q.PreviousClose).Mul(decimal.NewFromInt(100)).Round(2)
}

// Recommendation is the analyst consensus for one period, "0m" being the
// current month and "-1m" the previous one.
type Recommendation struct {
	Period     string
	StrongBuy  int
	Buy        int
	Hold       int
	Sell       int
	StrongSell int
}

func (r Recommendation) Total() int {
	return r.StrongBuy + r.Buy + r.Hold + r.Sell + r.StrongSell
}

type Profile struct {
	Symbol    string
	Name      string
	Sector    string
	Industry  string
	Country   string
	Website   string
	Employees int
	Summary   string
}
