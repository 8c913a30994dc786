package domain

import (
	"strings"
	"time"
	"unicode"
)

// AnalysisRequest - one analysis to submit to every selected provider.
type AnalysisRequest struct {
	Stocks    string
	Query     string
	Providers []string
	Mode      AgentMode
}

func (r *AnalysisRequest) Validate() error {
	if strings.TrimSpace(r.Query) == "" {
		return ErrEmptyQuery
	}
	if len(Tickers(r.Stocks)) == 0 {
		return ErrNoStocks
	}
	if !r.Mode.IsValid() {
		return ErrUnknownMode
	}
	return nil
}

// Sanitize trims surrounding whitespace. The query is otherwise sent as
// written, whatever its length.
func (r *AnalysisRequest) Sanitize() {
	r.Stocks = strings.TrimSpace(r.Stocks)
	r.Query = strings.TrimSpace(r.Query)
}

// Run - a finished analysis by one provider
type Run struct {
	ID        string
	Provider  string
	Mode      AgentMode
	Stocks    string
	Query     string
	Response  string
	FilePath  string
	CreatedAt time.Time
}

// Tickers splits a stocks label like "TSLA and NVIDIA" or "AAPL, MSFT" into
// upper-cased symbols. Duplicates are dropped, order is kept.
func Tickers(stocks string) []string {
	fields := strings.FieldsFunc(stocks, func(r rune) bool {
		return r == ',' || r == ';' || r == '/' || unicode.IsSpace(r)
	})

	seen := make(map[string]bool)
	var out []string
	for _, f := range fields {
		if strings.EqualFold(f, "and") || strings.EqualFold(f, "&") {
			continue
		}
		sym := strings.ToUpper(strings.Trim(f, ".\"'()"))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	return out
}
