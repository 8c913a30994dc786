package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type syncBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *syncBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *syncBuffer) Sync() error { return nil }

func (b *syncBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

func newTestRegistry(t *testing.T, dir string) (*Registry, *syncBuffer) {
	t.Helper()
	console := &syncBuffer{}
	opts := DefaultOptions()
	opts.Dir = dir
	opts.Console = console
	r := NewRegistry(opts)
	t.Cleanup(func() { r.Close() })
	return r, console
}

func TestRegistry_GetIsIdempotent(t *testing.T) {
	dir := t.TempDir()
	r, console := newTestRegistry(t, dir)

	first := r.Get("x")
	second := r.Get("x")
	require.Same(t, first, second)

	first.Info("hello once")
	second.Info("hello twice")
	r.Sync()

	out := console.String()
	assert.Equal(t, 1, strings.Count(out, "hello once"))
	assert.Equal(t, 1, strings.Count(out, "hello twice"))

	file, err := os.ReadFile(filepath.Join(dir, "x.log"))
	require.NoError(t, err)
	assert.Equal(t, 1, strings.Count(string(file), "hello once"))
	assert.Equal(t, 1, strings.Count(string(file), "hello twice"))
}

func TestRegistry_LevelsPerSink(t *testing.T) {
	dir := t.TempDir()
	r, console := newTestRegistry(t, dir)

	l := r.Get("levels")
	l.Debug("debug detail")
	l.Info("info line")
	r.Sync()

	assert.NotContains(t, console.String(), "debug detail")
	assert.Contains(t, console.String(), "info line")

	file, err := os.ReadFile(filepath.Join(dir, "levels.log"))
	require.NoError(t, err)
	assert.Contains(t, string(file), "debug detail")
	assert.Contains(t, string(file), "info line")
	assert.Contains(t, string(file), "log file sink created")
}

func TestRegistry_LineFormat(t *testing.T) {
	r, console := newTestRegistry(t, t.TempDir())

	r.Get("fmt").Info("formatted", zap.String("k", "v"))

	line := strings.TrimSpace(console.String())
	parts := strings.Split(line, " - ")
	require.GreaterOrEqual(t, len(parts), 5, line)
	assert.Equal(t, "INFO", parts[1])
	assert.Equal(t, "fmt", parts[2])
	assert.Contains(t, parts[3], "registry_test.go:")
	assert.Contains(t, line, `{"k": "v"}`)
}

func TestRegistry_CreatesLogsDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "logs")
	r, _ := newTestRegistry(t, dir)

	r.Get("nested").Info("x")

	assert.FileExists(t, filepath.Join(dir, "nested.log"))
}

func TestRegistry_FileSinkFailureIsNotFatal(t *testing.T) {
	blocker := filepath.Join(t.TempDir(), "not-a-dir")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	r, console := newTestRegistry(t, filepath.Join(blocker, "logs"))

	l := r.Get("degraded")
	require.NotNil(t, l)
	l.Info("still logging")
	r.Sync()

	out := console.String()
	assert.Contains(t, out, "failed to create file sink")
	assert.Contains(t, out, "log file sink creation failed")
	assert.Contains(t, out, "still logging")
	assert.Equal(t, 1, strings.Count(out, "failed to create file sink"))

	// the failed sink is not retried on the next lookup
	r.Get("degraded").Info("again")
	assert.Equal(t, 1, strings.Count(console.String(), "failed to create file sink"))
}

func TestRegistry_ConsoleOnly(t *testing.T) {
	dir := t.TempDir()
	console := &syncBuffer{}
	r := NewRegistry(Options{Dir: dir, DisableFile: true, Console: console, ConsoleLevel: zapcore.DebugLevel})
	defer r.Close()

	r.Get("quiet").Debug("console debug")

	assert.Contains(t, console.String(), "console debug")
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRegistry_ConcurrentFirstUse(t *testing.T) {
	r, console := newTestRegistry(t, t.TempDir())

	const n = 32
	got := make([]*zap.Logger, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got[i] = r.Get("shared")
		}(i)
	}
	wg.Wait()

	for i := 1; i < n; i++ {
		assert.Same(t, got[0], got[i])
	}

	got[0].Info("one line")
	assert.Equal(t, 1, strings.Count(console.String(), "one line"))
}

func TestRegistry_RotatesThroughLogger(t *testing.T) {
	dir := t.TempDir()
	console := &syncBuffer{}
	r := NewRegistry(Options{Dir: dir, Console: console, MaxBytes: 512, BackupCount: 2})
	defer r.Close()

	l := r.Get("rot")
	for i := 0; i < 200; i++ {
		l.Info("filler message to push the file over its cap", zap.Int("i", i))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
}

func TestDefaultRegistry(t *testing.T) {
	t.Cleanup(Reset)

	console := &syncBuffer{}
	Configure(Options{Dir: t.TempDir(), DisableFile: true, Console: console})

	a := Get("svc")
	b := Default().Get("svc")
	require.Same(t, a, b)

	a.Info("via default")
	assert.Equal(t, 1, strings.Count(console.String(), "via default"))

	Reset()
	assert.NotSame(t, a, Default().GetWithFile("svc", ""))
}
