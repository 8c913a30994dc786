// Package logging hands out named zap loggers that write to the console and,
// optionally, to a size-rotated file under a logs directory.
//
// A logger is built once per name; later calls with the same name return the
// same *zap.Logger so repeated lookups never attach a second set of sinks.
// Loggers never write through zap's global logger.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/kitbuilder587/stock-agent/internal/domain"
)

const (
	DefaultDir         = "logs"
	DefaultMaxBytes    = 10 * 1024 * 1024
	DefaultBackupCount = 5
)

type Options struct {
	Dir          string
	ConsoleLevel zapcore.Level
	FileLevel    zapcore.Level
	MaxBytes     int64
	BackupCount  int
	// DisableFile turns Get into console-only logging.
	DisableFile bool
	// Console defaults to stdout.
	Console zapcore.WriteSyncer
}

func DefaultOptions() Options {
	return Options{
		Dir:          DefaultDir,
		ConsoleLevel: zapcore.InfoLevel,
		FileLevel:    zapcore.DebugLevel,
		MaxBytes:     DefaultMaxBytes,
		BackupCount:  DefaultBackupCount,
	}
}

type Registry struct {
	mu      sync.Mutex
	opts    Options
	loggers map[string]*zap.Logger
	files   []*RotatingFile
}

func NewRegistry(opts Options) *Registry {
	if opts.Dir == "" {
		opts.Dir = DefaultDir
	}
	if opts.MaxBytes == 0 {
		opts.MaxBytes = DefaultMaxBytes
	}
	if opts.BackupCount < 0 {
		opts.BackupCount = 0
	}
	if opts.Console == nil {
		opts.Console = zapcore.Lock(os.Stdout)
	}
	return &Registry{
		opts:    opts,
		loggers: make(map[string]*zap.Logger),
	}
}

// Get returns the logger for name, writing to "<name>.log" in the logs
// directory unless file logging is disabled.
func (r *Registry) Get(name string) *zap.Logger {
	fileName := name + ".log"
	if r.opts.DisableFile {
		fileName = ""
	}
	return r.GetWithFile(name, fileName)
}

// GetWithFile is Get with an explicit file name; "" means console only.
// The file name only matters the first time a name is requested.
func (r *Registry) GetWithFile(name, fileName string) *zap.Logger {
	r.mu.Lock()
	defer r.mu.Unlock()

	if l, ok := r.loggers[name]; ok {
		return l
	}

	console := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), r.opts.Console, r.opts.ConsoleLevel)
	cores := []zapcore.Core{console}

	var filePath string
	if fileName != "" {
		fileCore, path, err := r.fileCore(fileName)
		if err != nil {
			zap.New(console, zap.AddCaller()).Named(name).Error("failed to create file sink, logging to console only", zap.Error(err))
		} else {
			cores = append(cores, fileCore)
			filePath = path
		}
	}

	l := zap.New(zapcore.NewTee(cores...), zap.AddCaller()).Named(name)
	if filePath != "" {
		l.Debug("log file sink created", zap.String("path", filePath))
	}

	r.loggers[name] = l
	return l
}

func (r *Registry) fileCore(fileName string) (zapcore.Core, string, error) {
	if err := os.MkdirAll(r.opts.Dir, 0o755); err != nil {
		return nil, "", fmt.Errorf("%w: create logs dir: %w", domain.ErrSinkCreation, err)
	}

	path := filepath.Join(r.opts.Dir, fileName)
	f, err := OpenRotatingFile(path, r.opts.MaxBytes, r.opts.BackupCount)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %w", domain.ErrSinkCreation, err)
	}
	r.files = append(r.files, f)

	return zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig()), f, r.opts.FileLevel), path, nil
}

// Sync flushes every logger handed out so far.
func (r *Registry) Sync() {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, l := range r.loggers {
		_ = l.Sync()
	}
}

// Close releases the log files. Loggers returned earlier must not be used
// afterwards.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeLocked()
}

func (r *Registry) closeLocked() error {
	var firstErr error
	for _, f := range r.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	r.files = nil
	r.loggers = make(map[string]*zap.Logger)
	return firstErr
}

func encoderConfig() zapcore.EncoderConfig {
	return zapcore.EncoderConfig{
		TimeKey:          "time",
		LevelKey:         "level",
		NameKey:          "logger",
		CallerKey:        "caller",
		MessageKey:       "msg",
		StacktraceKey:    "stacktrace",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.TimeEncoderOfLayout("2006-01-02 15:04:05"),
		EncodeLevel:      zapcore.CapitalLevelEncoder,
		EncodeDuration:   zapcore.StringDurationEncoder,
		EncodeCaller:     zapcore.ShortCallerEncoder,
		ConsoleSeparator: " - ",
	}
}

var (
	defaultMu  sync.Mutex
	defaultReg *Registry
)

// Default returns the process registry, creating it with DefaultOptions on
// first use.
func Default() *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultReg == nil {
		defaultReg = NewRegistry(DefaultOptions())
	}
	return defaultReg
}

// Configure replaces the process registry. Call it once at startup, before
// the first Get.
func Configure(opts Options) *Registry {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultReg != nil {
		_ = defaultReg.Close()
	}
	defaultReg = NewRegistry(opts)
	return defaultReg
}

// Get is Default().Get.
func Get(name string) *zap.Logger {
	return Default().Get(name)
}

// Reset drops the process registry and closes its files.
func Reset() {
	defaultMu.Lock()
	defer defaultMu.Unlock()
	if defaultReg != nil {
		_ = defaultReg.Close()
	}
	defaultReg = nil
}
