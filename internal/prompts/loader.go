package prompts

import (
	"bytes"
	"fmt"
	"os"
	"unicode/utf8"

	"go.uber.org/zap"

	"github.com/kitbuilder587/stock-agent/internal/domain"
)

var utf8BOM = []byte{0xEF, 0xBB, 0xBF}

type Loader struct {
	logger *zap.Logger
}

func NewLoader(logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Loader{logger: logger}
}

// Load reads and parses a prompts file.
func (l *Loader) Load(path string) (Sections, error) {
	l.logger.Info("loading prompt sections", zap.String("path", path))

	data, err := os.ReadFile(path)
	if err != nil {
		l.logger.Error("read prompts file failed", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %w", domain.ErrNotFound, path, err)
	}

	sections, err := l.Decode(data)
	if err != nil {
		l.logger.Error("decode prompts file failed", zap.String("path", path), zap.Error(err))
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return sections, nil
}

// Decode parses raw bytes of a prompts document.
func (l *Loader) Decode(data []byte) (Sections, error) {
	data = bytes.TrimPrefix(data, utf8BOM)
	if !utf8.Valid(data) {
		return nil, domain.ErrDecode
	}

	sections, dups := parse(string(data))
	for _, name := range dups {
		l.logger.Warn("duplicate prompt section, later one wins", zap.String("section", name))
	}

	l.logger.Debug("prompt sections loaded", zap.Strings("sections", sections.Names()))
	return sections, nil
}
