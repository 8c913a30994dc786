// Package responses writes agent answers to timestamped text files.
package responses

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"go.uber.org/zap"
)

const (
	DefaultDir      = "responses"
	TimestampLayout = "20060102150405"
	MaxStocksRunes  = 50
	separatorWidth  = 80
)

type Record struct {
	RunID    string
	Agent    string
	Stocks   string
	Response string
}

type Store struct {
	dir    string
	now    func() time.Time
	logger *zap.Logger
}

func NewStore(dir string, logger *zap.Logger) *Store {
	if dir == "" {
		dir = DefaultDir
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{dir: dir, now: time.Now, logger: logger}
}

func (s *Store) Dir() string { return s.dir }

// Save writes rec under the store directory, creating it when missing,
// and returns the file path.
func (s *Store) Save(rec Record) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", fmt.Errorf("create responses dir: %w", err)
	}

	now := s.now()
	path := filepath.Join(s.dir, FileName(rec.Agent, rec.Stocks, now))

	if err := os.WriteFile(path, []byte(render(rec, now)), 0o644); err != nil {
		return "", fmt.Errorf("write response: %w", err)
	}

	s.logger.Info("response saved", zap.String("path", path))
	return path, nil
}

// FileName is "<YYYYMMDDhhmmss>_<agent>_<stocks>.txt". The agent label is
// used as given, the stocks part is sanitized and cut to MaxStocksRunes.
func FileName(agent, stocks string, ts time.Time) string {
	safeStocks := []rune(Sanitize(stocks))
	if len(safeStocks) > MaxStocksRunes {
		safeStocks = safeStocks[:MaxStocksRunes]
	}
	return fmt.Sprintf("%s_%s_%s.txt", ts.Format(TimestampLayout), agent, string(safeStocks))
}

// Sanitize replaces every rune that is not a letter or digit with "_".
func Sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return '_'
	}, s)
}

func render(rec Record, ts time.Time) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Agent: %s\n", rec.Agent)
	fmt.Fprintf(&sb, "Stocks: %s\n", rec.Stocks)
	fmt.Fprintf(&sb, "Timestamp: %s\n", ts.Format("2006-01-02T15:04:05.000000"))
	if rec.RunID != "" {
		fmt.Fprintf(&sb, "Run: %s\n", rec.RunID)
	}
	sb.WriteString(strings.Repeat("-", separatorWidth))
	sb.WriteString("\n")
	sb.WriteString(rec.Response)
	return sb.String()
}
