package main

import (
	"bytes"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kitbuilder587/stock-agent/internal/config"
	"github.com/kitbuilder587/stock-agent/internal/domain"
	"github.com/kitbuilder587/stock-agent/internal/logging"
)

const promptsDoc = `# Stocks
TSLA and NVDA

# Instructions
Use tables to display data

# Query
Summarize analyst recommendations for {stocks}
`

func setupEnv(t *testing.T) (promptsPath, responsesDir string) {
	t.Helper()
	t.Cleanup(logging.Reset)

	// every symbol lookup is a miss
	srv := httptest.NewServer(http.NotFoundHandler())
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	promptsPath = filepath.Join(dir, "instructions.md")
	require.NoError(t, os.WriteFile(promptsPath, []byte(promptsDoc), 0o644))
	responsesDir = filepath.Join(dir, "responses")

	for k, v := range map[string]string{
		"LLM_PROVIDERS":      "mock",
		"AGENT_MODE":         "",
		"LOG_FILE":           "false",
		"LOG_LEVEL":          "error",
		"RESPONSES_DIR":      responsesDir,
		"SAVE_RESPONSES":     "",
		"MARKET_BASE_URL":    srv.URL,
		"MARKET_COOKIE_URL":  srv.URL + "/cookie",
		"TAVILY_API_KEY":     "",
		"DATABASE_URL":       "",
		"TELEGRAM_BOT_TOKEN": "",
		"TELEGRAM_CHAT_ID":   "",
		"METRICS_ADDR":       "",
		"PROMPTS_FILE":       "",
	} {
		t.Setenv(k, v)
	}
	return promptsPath, responsesDir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newCLI().command()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetArgs(append(args, "--env-file", "", "--config", ""))
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestExitCode(t *testing.T) {
	canceled, cancel := context.WithCancel(context.Background())
	cancel()

	tests := []struct {
		name string
		ctx  context.Context
		err  error
		want int
	}{
		{"success", context.Background(), nil, exitOK},
		{"interrupted", canceled, context.Canceled, exitOK},
		{"wrapped interrupt", canceled, errors.Join(domain.ErrRemoteCall, context.Canceled), exitOK},
		{"failure", context.Background(), domain.ErrRemoteCall, exitError},
		{"cancel without signal", context.Background(), context.Canceled, exitError},
		{"timeout", context.Background(), context.DeadlineExceeded, exitError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, exitCode(tt.ctx, zap.NewNop(), tt.err))
		})
	}
}

func TestRoot_MockProvider(t *testing.T) {
	promptsPath, responsesDir := setupEnv(t)

	out, err := execute(t, "--prompts", promptsPath, "--plain")
	require.NoError(t, err)

	assert.Contains(t, out, "=== Mock response ===")
	assert.Contains(t, out, "## Offline analysis")
	assert.Contains(t, out, "Summarize analyst recommendations for TSLA and NVDA")
	assert.Contains(t, out, "Saved to ")

	entries, err := os.ReadDir(responsesDir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, strings.HasSuffix(entries[0].Name(), "_Mock_TSLA_and_NVDA.txt"), entries[0].Name())
}

func TestRoot_ComponentLogFiles(t *testing.T) {
	promptsPath, _ := setupEnv(t)
	logsDir := filepath.Join(t.TempDir(), "logs")
	t.Setenv("LOG_FILE", "true")
	t.Setenv("LOG_DIR", logsDir)

	_, err := execute(t, "--prompts", promptsPath, "--plain")
	require.NoError(t, err)

	for _, name := range []string{"stock_agent", promptLoaderLog, saveResponseLog, agentLog} {
		assert.FileExists(t, filepath.Join(logsDir, name+".log"))
	}
}

func TestRoot_FlagsOverride(t *testing.T) {
	promptsPath, responsesDir := setupEnv(t)

	out, err := execute(t, "--prompts", promptsPath, "--plain", "--no-save", "--stocks", "AAPL", "--mode", "TEAM")
	require.NoError(t, err)

	assert.Contains(t, out, "Summarize analyst recommendations for AAPL")
	assert.NotContains(t, out, "Saved to ")

	_, statErr := os.Stat(responsesDir)
	assert.True(t, os.IsNotExist(statErr))
}

func TestRoot_Errors(t *testing.T) {
	promptsPath, _ := setupEnv(t)

	tests := []struct {
		name    string
		args    []string
		wantErr error
	}{
		{
			name:    "missing prompts file",
			args:    []string{"--prompts", filepath.Join(t.TempDir(), "nope.md")},
			wantErr: domain.ErrNotFound,
		},
		{
			name:    "provider without key",
			args:    []string{"--prompts", promptsPath, "--provider", "openai"},
			wantErr: config.ErrMissingAPIKey,
		},
		{
			name:    "unknown provider",
			args:    []string{"--prompts", promptsPath, "--provider", "bard"},
			wantErr: domain.ErrUnknownProvider,
		},
		{
			name:    "bad mode",
			args:    []string{"--prompts", promptsPath, "--mode", "swarm"},
			wantErr: config.ErrInvalidMode,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("OPENAI_API_KEY", "")
			_, err := execute(t, tt.args...)
			require.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestSectionsCommand(t *testing.T) {
	promptsPath, _ := setupEnv(t)

	out, err := execute(t, "sections", "--prompts", promptsPath)
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(out), "\n")
	require.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "instructions"))
	assert.True(t, strings.HasPrefix(lines[1], "query"))
	assert.True(t, strings.HasPrefix(lines[2], "stocks"))
}

func TestSectionsCommand_Show(t *testing.T) {
	promptsPath, _ := setupEnv(t)

	out, err := execute(t, "sections", "--prompts", promptsPath, "--show", "Query")
	require.NoError(t, err)
	assert.Equal(t, "Summarize analyst recommendations for {stocks}\n", out)

	_, err = execute(t, "sections", "--prompts", promptsPath, "--show", "team instructions")
	require.ErrorIs(t, err, domain.ErrMissingSection)
}

func TestHistoryCommand_NoDatabase(t *testing.T) {
	setupEnv(t)

	_, err := execute(t, "history")
	require.ErrorIs(t, err, errNoDatabase)
}
