package mock

import (
	"context"
	"fmt"
	"sync"

	"github.com/kitbuilder587/stock-agent/internal/market"
)

// Provider serves canned market data keyed by symbol. Unknown symbols
// return market.ErrSymbolNotFound.
type Provider struct {
	mu sync.Mutex

	quotes   map[string]*market.Quote
	recs     map[string][]market.Recommendation
	profiles map[string]*market.Profile
	err      error

	calls []string
}

func New() *Provider {
	return &Provider{
		quotes:   make(map[string]*market.Quote),
		recs:     make(map[string][]market.Recommendation),
		profiles: make(map[string]*market.Profile),
	}
}

func (p *Provider) WithQuote(q *market.Quote) *Provider {
	p.quotes[q.Symbol] = q
	return p
}

func (p *Provider) WithRecommendations(symbol string, recs []market.Recommendation) *Provider {
	p.recs[symbol] = recs
	return p
}

func (p *Provider) WithProfile(profile *market.Profile) *Provider {
	p.profiles[profile.Symbol] = profile
	return p
}

func (p *Provider) WithError(err error) *Provider {
	p.err = err
	return p
}

func (p *Provider) record(call string) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.calls = append(p.calls, call)
	return p.err
}

func (p *Provider) Quote(ctx context.Context, symbol string) (*market.Quote, error) {
	if err := p.record("quote:" + symbol); err != nil {
		return nil, err
	}
	q, ok := p.quotes[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", market.ErrSymbolNotFound, symbol)
	}
	return q, nil
}

func (p *Provider) Recommendations(ctx context.Context, symbol string) ([]market.Recommendation, error) {
	if err := p.record("recommendations:" + symbol); err != nil {
		return nil, err
	}
	recs, ok := p.recs[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", market.ErrSymbolNotFound, symbol)
	}
	return recs, nil
}

func (p *Provider) Profile(ctx context.Context, symbol string) (*market.Profile, error) {
	if err := p.record("profile:" + symbol); err != nil {
		return nil, err
	}
	profile, ok := p.profiles[symbol]
	if !ok {
		return nil, fmt.Errorf("%w: %s", market.ErrSymbolNotFound, symbol)
	}
	return profile, nil
}

// Calls returns the recorded lookups as "kind:SYMBOL".
func (p *Provider) Calls() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]string(nil), p.calls...)
}

var _ market.Provider = (*Provider)(nil)
