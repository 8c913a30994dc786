package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kitbuilder587/stock-agent/internal/domain"
	"github.com/kitbuilder587/stock-agent/internal/llm"
)

var (
	ErrNoProviders      = errors.New("at least one LLM provider is required")
	ErrMissingAPIKey    = errors.New("API key is required")
	ErrInvalidMode      = errors.New("invalid agent mode")
	ErrIncompleteNotify = errors.New("TELEGRAM_BOT_TOKEN and TELEGRAM_CHAT_ID must be set together")
)

const (
	DefaultEnvFile    = ".env"
	DefaultConfigFile = "config.yaml"
)

type Config struct {
	Mode      string          `yaml:"mode"`
	LLM       LLMConfig       `yaml:"llm"`
	Tavily    TavilyConfig    `yaml:"tavily"`
	Market    MarketConfig    `yaml:"market"`
	Prompts   PromptsConfig   `yaml:"prompts"`
	Responses ResponsesConfig `yaml:"responses"`
	Log       LogConfig       `yaml:"log"`
	Timeouts  TimeoutConfig   `yaml:"timeouts"`
	Cache     CacheConfig     `yaml:"cache"`
	Database  DatabaseConfig  `yaml:"database"`
	Telegram  TelegramConfig  `yaml:"telegram"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

type LLMConfig struct {
	Providers []string       `yaml:"providers"`
	Groq      ProviderConfig `yaml:"groq"`
	OpenAI    ProviderConfig `yaml:"openai"`
}

type ProviderConfig struct {
	APIKey  string `yaml:"api_key"`
	Model   string `yaml:"model"`
	BaseURL string `yaml:"base_url"`
}

type TavilyConfig struct {
	APIKey  string        `yaml:"api_key"`
	BaseURL string        `yaml:"base_url"`
	Timeout time.Duration `yaml:"timeout"`
}

type MarketConfig struct {
	BaseURL           string        `yaml:"base_url"`
	CookieURL         string        `yaml:"cookie_url"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerMinute int           `yaml:"requests_per_minute"`
}

type PromptsConfig struct {
	File string `yaml:"file"`
}

type ResponsesConfig struct {
	Dir  string `yaml:"dir"`
	Save bool   `yaml:"save"`
}

type LogConfig struct {
	Name        string `yaml:"name"`
	Level       string `yaml:"level"`
	FileLevel   string `yaml:"file_level"`
	Dir         string `yaml:"dir"`
	File        bool   `yaml:"file"`
	MaxBytes    int64  `yaml:"max_bytes"`
	BackupCount int    `yaml:"backup_count"`
}

type TimeoutConfig struct {
	Total time.Duration `yaml:"total"`
}

type CacheConfig struct {
	TTL time.Duration `yaml:"ttl"`
}

type DatabaseConfig struct {
	URL string `yaml:"url"`
}

type TelegramConfig struct {
	Token  string `yaml:"token"`
	ChatID int64  `yaml:"chat_id"`
}

type MetricsConfig struct {
	Addr string `yaml:"addr"`
}

// Defaults returns the configuration used when neither a YAML file nor the
// environment says otherwise.
func Defaults() *Config {
	return &Config{
		Mode: string(domain.ModeSingle),
		LLM: LLMConfig{
			Providers: []string{llm.ProviderGroq},
			Groq: ProviderConfig{
				Model:   "llama-3.3-70b-versatile",
				BaseURL: "https://api.groq.com/openai/v1",
			},
			OpenAI: ProviderConfig{
				Model:   "gpt-4o",
				BaseURL: "https://api.openai.com/v1",
			},
		},
		Tavily: TavilyConfig{
			BaseURL: "https://api.tavily.com",
			Timeout: 30 * time.Second,
		},
		Market: MarketConfig{
			BaseURL:           "https://query1.finance.yahoo.com",
			CookieURL:         "https://fc.yahoo.com",
			Timeout:           15 * time.Second,
			RequestsPerMinute: 60,
		},
		Prompts:   PromptsConfig{File: "prompts/instructions.md"},
		Responses: ResponsesConfig{Dir: "responses", Save: true},
		Log: LogConfig{
			Name:        "stock_agent",
			Level:       "info",
			FileLevel:   "debug",
			Dir:         "logs",
			File:        true,
			MaxBytes:    10 * 1024 * 1024,
			BackupCount: 5,
		},
		Timeouts: TimeoutConfig{Total: 180 * time.Second},
		Cache:    CacheConfig{TTL: 300 * time.Second},
	}
}

// Load reads ".env" and "config.yaml" (both optional, paths overridable with
// STOCK_AGENT_ENV_FILE and STOCK_AGENT_CONFIG), then applies environment
// variables on top.
func Load() (*Config, error) {
	return LoadFrom(
		getEnvOrDefault("STOCK_AGENT_ENV_FILE", DefaultEnvFile),
		getEnvOrDefault("STOCK_AGENT_CONFIG", DefaultConfigFile),
	)
}

func LoadFrom(envFile, yamlFile string) (*Config, error) {
	cfg, err := Read(envFile, yamlFile)
	if err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Read is LoadFrom without validation, for callers that override fields
// (command line flags) before calling Validate.
func Read(envFile, yamlFile string) (*Config, error) {
	if envFile != "" {
		// existing environment variables win over the file
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load env file %s: %w", envFile, err)
		}
	}

	cfg := Defaults()
	if yamlFile != "" {
		if err := cfg.loadYAML(yamlFile); err != nil {
			return nil, err
		}
	}
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) loadYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Mode = getEnvOrDefault("AGENT_MODE", c.Mode)
	if v := os.Getenv("LLM_PROVIDERS"); v != "" {
		c.LLM.Providers = splitList(v)
	}

	c.LLM.Groq.APIKey = getEnvOrDefault("GROQ_API_KEY", c.LLM.Groq.APIKey)
	c.LLM.Groq.Model = getEnvOrDefault("GROQ_MODEL", c.LLM.Groq.Model)
	c.LLM.Groq.BaseURL = getEnvOrDefault("GROQ_BASE_URL", c.LLM.Groq.BaseURL)
	c.LLM.OpenAI.APIKey = getEnvOrDefault("OPENAI_API_KEY", c.LLM.OpenAI.APIKey)
	c.LLM.OpenAI.Model = getEnvOrDefault("OPENAI_MODEL", c.LLM.OpenAI.Model)
	c.LLM.OpenAI.BaseURL = getEnvOrDefault("OPENAI_BASE_URL", c.LLM.OpenAI.BaseURL)

	c.Tavily.APIKey = getEnvOrDefault("TAVILY_API_KEY", c.Tavily.APIKey)
	c.Tavily.BaseURL = getEnvOrDefault("TAVILY_BASE_URL", c.Tavily.BaseURL)
	c.Tavily.Timeout = getEnvSecondsOrDefault("TAVILY_TIMEOUT_SEC", c.Tavily.Timeout)

	c.Market.BaseURL = getEnvOrDefault("MARKET_BASE_URL", c.Market.BaseURL)
	c.Market.CookieURL = getEnvOrDefault("MARKET_COOKIE_URL", c.Market.CookieURL)
	c.Market.Timeout = getEnvSecondsOrDefault("MARKET_TIMEOUT_SEC", c.Market.Timeout)
	c.Market.RequestsPerMinute = getEnvIntOrDefault("MARKET_REQUESTS_PER_MINUTE", c.Market.RequestsPerMinute)

	c.Prompts.File = getEnvOrDefault("PROMPTS_FILE", c.Prompts.File)
	c.Responses.Dir = getEnvOrDefault("RESPONSES_DIR", c.Responses.Dir)
	c.Responses.Save = getEnvBoolOrDefault("SAVE_RESPONSES", c.Responses.Save)

	c.Log.Level = getEnvOrDefault("LOG_LEVEL", c.Log.Level)
	c.Log.FileLevel = getEnvOrDefault("LOG_FILE_LEVEL", c.Log.FileLevel)
	c.Log.Dir = getEnvOrDefault("LOG_DIR", c.Log.Dir)
	c.Log.File = getEnvBoolOrDefault("LOG_FILE", c.Log.File)
	c.Log.MaxBytes = int64(getEnvIntOrDefault("LOG_MAX_BYTES", int(c.Log.MaxBytes)))
	c.Log.BackupCount = getEnvIntOrDefault("LOG_BACKUP_COUNT", c.Log.BackupCount)

	c.Timeouts.Total = getEnvSecondsOrDefault("TOTAL_TIMEOUT_SEC", c.Timeouts.Total)
	c.Cache.TTL = getEnvSecondsOrDefault("CACHE_TTL_SEC", c.Cache.TTL)

	c.Database.URL = getEnvOrDefault("DATABASE_URL", c.Database.URL)
	c.Telegram.Token = getEnvOrDefault("TELEGRAM_BOT_TOKEN", c.Telegram.Token)
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		if id, err := strconv.ParseInt(v, 10, 64); err == nil {
			c.Telegram.ChatID = id
		}
	}
	c.Metrics.Addr = getEnvOrDefault("METRICS_ADDR", c.Metrics.Addr)
}

func (c *Config) Validate() error {
	if len(c.LLM.Providers) == 0 {
		return ErrNoProviders
	}
	for _, p := range c.LLM.Providers {
		if !llm.IsKnownProvider(p) {
			return fmt.Errorf("%w: %q", domain.ErrUnknownProvider, p)
		}
		if key := c.APIKey(p); key == "" && p != llm.ProviderMock {
			return fmt.Errorf("%w: %s", ErrMissingAPIKey, p)
		}
	}
	if !domain.AgentMode(c.Mode).IsValid() {
		return ErrInvalidMode
	}
	if (c.Telegram.Token == "") != (c.Telegram.ChatID == 0) {
		return ErrIncompleteNotify
	}
	return nil
}

// APIKey returns the key configured for a provider.
func (c *Config) APIKey(provider string) string {
	switch provider {
	case llm.ProviderGroq:
		return c.LLM.Groq.APIKey
	case llm.ProviderOpenAI:
		return c.LLM.OpenAI.APIKey
	}
	return ""
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvSecondsOrDefault(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if sec, err := strconv.Atoi(value); err == nil {
			return time.Duration(sec) * time.Second
		}
	}
	return defaultValue
}
