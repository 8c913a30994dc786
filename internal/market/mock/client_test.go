package mock

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/kitbuilder587/stock-agent/internal/market"
)

func TestProvider(t *testing.T) {
	p := New().
		WithQuote(&market.Quote{Symbol: "TSLA", Price: decimal.NewFromInt(250)}).
		WithProfile(&market.Profile{Symbol: "TSLA", Sector: "Consumer Cyclical"})

	q, err := p.Quote(context.Background(), "TSLA")
	if err != nil || !q.Price.Equal(decimal.NewFromInt(250)) {
		t.Fatalf("Quote() = %v, %v", q, err)
	}

	if _, err := p.Recommendations(context.Background(), "TSLA"); !errors.Is(err, market.ErrSymbolNotFound) {
		t.Errorf("Recommendations() error = %v, want ErrSymbolNotFound", err)
	}

	if got := p.Calls(); len(got) != 2 || got[0] != "quote:TSLA" {
		t.Errorf("Calls() = %v", got)
	}
}

func TestProvider_Error(t *testing.T) {
	p := New().WithError(market.ErrRateLimit)

	if _, err := p.Profile(context.Background(), "NVDA"); !errors.Is(err, market.ErrRateLimit) {
		t.Errorf("Profile() error = %v, want ErrRateLimit", err)
	}
}
