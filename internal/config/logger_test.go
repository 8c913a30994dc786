package config

import (
	"os"
	"path/filepath"
	"testing"

	"go.uber.org/zap/zapcore"

	"github.com/kitbuilder587/stock-agent/internal/logging"
)

func TestParseLogLevel(t *testing.T) {
	tests := []struct {
		name  string
		level string
		want  zapcore.Level
	}{
		{"debug lowercase", "debug", zapcore.DebugLevel},
		{"debug uppercase", "DEBUG", zapcore.DebugLevel},
		{"info lowercase", "info", zapcore.InfoLevel},
		{"info uppercase", "INFO", zapcore.InfoLevel},
		{"warn lowercase", "warn", zapcore.WarnLevel},
		{"warning", "warning", zapcore.WarnLevel},
		{"error lowercase", "error", zapcore.ErrorLevel},
		{"error uppercase", "ERROR", zapcore.ErrorLevel},
		{"invalid string", "invalid", zapcore.InfoLevel},
		{"empty string", "", zapcore.InfoLevel},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseLogLevel(tt.level)
			if got != tt.want {
				t.Errorf("parseLogLevel(%q) = %v, want %v", tt.level, got, tt.want)
			}
		})
	}
}

func TestLogConfig_Options(t *testing.T) {
	cfg := LogConfig{Level: "warn", FileLevel: "info", Dir: "var/log", File: true, MaxBytes: 2048, BackupCount: 3}
	opts := cfg.Options()

	if opts.ConsoleLevel != zapcore.WarnLevel {
		t.Errorf("ConsoleLevel = %v, want warn", opts.ConsoleLevel)
	}
	if opts.FileLevel != zapcore.InfoLevel {
		t.Errorf("FileLevel = %v, want info", opts.FileLevel)
	}
	if opts.Dir != "var/log" || opts.MaxBytes != 2048 || opts.BackupCount != 3 || opts.DisableFile {
		t.Errorf("Options = %+v", opts)
	}

	if !(LogConfig{File: false}).Options().DisableFile {
		t.Error("File=false should disable the file sink")
	}
}

func TestNewLogger(t *testing.T) {
	defer logging.Reset()

	dir := filepath.Join(t.TempDir(), "logs")
	tests := []struct {
		name string
		cfg  LogConfig
	}{
		{"debug level", LogConfig{Name: "debug_app", Level: "debug", Dir: dir, File: true}},
		{"info level", LogConfig{Name: "info_app", Level: "info", Dir: dir, File: true}},
		{"console only", LogConfig{Name: "console_app", Level: "warn", Dir: dir}},
		{"default name", LogConfig{Level: "", Dir: dir, File: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logger := NewLogger(tt.cfg)
			if logger == nil {
				t.Fatal("NewLogger() returned nil logger")
			}
			logger.Info("hello")
			logger.Sync()
		})
	}

	if _, err := os.Stat(filepath.Join(dir, "stock_agent.log")); err != nil {
		t.Errorf("expected default log file: %v", err)
	}
}
