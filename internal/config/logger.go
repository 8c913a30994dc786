package config

import (
	"strings"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kitbuilder587/stock-agent/internal/logging"
)

// NewLogger installs the process logger registry described by cfg and returns
// the application logger.
func NewLogger(cfg LogConfig) *zap.Logger {
	reg := logging.Configure(cfg.Options())
	name := cfg.Name
	if name == "" {
		name = "stock_agent"
	}
	return reg.Get(name)
}

func (c LogConfig) Options() logging.Options {
	opts := logging.DefaultOptions()
	opts.ConsoleLevel = parseLogLevel(c.Level)
	if c.FileLevel != "" {
		opts.FileLevel = parseLogLevel(c.FileLevel)
	}
	if c.Dir != "" {
		opts.Dir = c.Dir
	}
	if c.MaxBytes > 0 {
		opts.MaxBytes = c.MaxBytes
	}
	if c.BackupCount >= 0 {
		opts.BackupCount = c.BackupCount
	}
	opts.DisableFile = !c.File
	return opts
}

func parseLogLevel(level string) zapcore.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zapcore.DebugLevel
	case "info":
		return zapcore.InfoLevel
	case "warn", "warning":
		return zapcore.WarnLevel
	case "error":
		return zapcore.ErrorLevel
	default:
		return zapcore.InfoLevel
	}
}
