// Package config provides application configuration.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Runtime modes for the Telegram transport.
const (
	RuntimePolling = "polling"
	RuntimeWebhook = "webhook"
	RuntimeOff     = "off"
)

// Config holds all application configuration.
type Config struct {
	Telegram   TelegramConfig
	LLM        LLMConfig
	HTTP       HTTPConfig
	Session    SessionConfig
	Transcript TranscriptConfig

	QuestionBankPath string
	GRPCHealthAddr   string
	LogLevel         string
	LogFormat        string
}

// TelegramConfig controls the Telegram bot transport.
type TelegramConfig struct {
	Token       string
	RuntimeMode string
	WebhookURL  string
	WebhookPath string
}

// LLMConfig selects and tunes the text-generation provider.
type LLMConfig struct {
	Provider      string
	Model         string
	OpenAIAPIKey  string
	OpenAIBaseURL string
	GoogleAPIKey  string
	GoogleBaseURL string
	Timeout       time.Duration
	HistoryLimit  int
	SystemPrompt  string
}

// HTTPConfig controls the HTTP API and web chat.
type HTTPConfig struct {
	Enabled        bool
	Port           string
	AllowedOrigins []string
	FrontendURL    string
}

// SessionConfig tunes the in-memory session store.
type SessionConfig struct {
	IdleTTL time.Duration
	Shards  int
}

// TranscriptConfig controls the optional SQLite transcript.
type TranscriptConfig struct {
	DBPath    string
	Retention time.Duration
}

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	return load(nil)
}

// LoadConsole reads configuration for the local console: Telegram and the
// HTTP server are switched off whatever the environment says.
func LoadConsole() (*Config, error) {
	return load(func(c *Config) {
		c.Telegram.RuntimeMode = RuntimeOff
		c.HTTP.Enabled = false
		c.GRPCHealthAddr = ""
	})
}

func load(adjust func(*Config)) (*Config, error) {
	cfg := &Config{
		Telegram: TelegramConfig{
			Token:       getEnv("TELEGRAM_BOT_TOKEN", ""),
			RuntimeMode: strings.ToLower(getEnv("RUNTIME_MODE", RuntimePolling)),
			WebhookURL:  getEnv("WEBHOOK_URL", ""),
			WebhookPath: getEnv("WEBHOOK_PATH", "/telegram/webhook"),
		},
		LLM: LLMConfig{
			Provider:      strings.ToLower(getEnv("LLM_PROVIDER", "openai")),
			Model:         getEnv("LLM_MODEL", ""),
			OpenAIAPIKey:  getEnv("OPENAI_API_KEY", ""),
			OpenAIBaseURL: getEnv("OPENAI_BASE_URL", ""),
			GoogleAPIKey:  getEnv("GOOGLE_API_KEY", ""),
			GoogleBaseURL: getEnv("GOOGLE_BASE_URL", ""),
			Timeout:       getEnvDuration("LLM_TIMEOUT", 30*time.Second),
			HistoryLimit:  getEnvInt("CHAT_HISTORY_LIMIT", 10),
			SystemPrompt:  getEnv("SYSTEM_PROMPT", ""),
		},
		HTTP: HTTPConfig{
			Enabled:        getEnvBool("HTTP_ENABLED", true),
			Port:           getEnv("PORT", "8080"),
			AllowedOrigins: getEnvList("ALLOWED_ORIGINS", []string{"*"}),
			FrontendURL:    getEnv("FRONTEND_URL", ""),
		},
		Session: SessionConfig{
			IdleTTL: getEnvDuration("SESSION_IDLE_TTL", 0),
			Shards:  getEnvInt("SESSION_SHARDS", 32),
		},
		Transcript: TranscriptConfig{
			DBPath:    getEnv("DB_PATH", ""),
			Retention: getEnvDuration("TRANSCRIPT_RETENTION", 720*time.Hour),
		},
		QuestionBankPath: getEnv("QUESTION_BANK_PATH", ""),
		GRPCHealthAddr:   getEnv("GRPC_HEALTH_ADDR", ""),
		LogLevel:         strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:        strings.ToLower(getEnv("LOG_FORMAT", "json")),
	}
	if adjust != nil {
		adjust(cfg)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch c.Telegram.RuntimeMode {
	case RuntimePolling, RuntimeWebhook:
		if c.Telegram.Token == "" {
			return fmt.Errorf("TELEGRAM_BOT_TOKEN is required when RUNTIME_MODE=%s", c.Telegram.RuntimeMode)
		}
	case RuntimeOff:
	default:
		return fmt.Errorf("RUNTIME_MODE must be one of polling, webhook, off (got %q)", c.Telegram.RuntimeMode)
	}
	if c.Telegram.RuntimeMode == RuntimeWebhook {
		if c.Telegram.WebhookURL == "" {
			return fmt.Errorf("WEBHOOK_URL is required when RUNTIME_MODE=webhook")
		}
		if !c.HTTP.Enabled {
			return fmt.Errorf("HTTP_ENABLED must be true when RUNTIME_MODE=webhook")
		}
		if !strings.HasPrefix(c.Telegram.WebhookPath, "/") {
			return fmt.Errorf("WEBHOOK_PATH must start with /")
		}
	}

	switch c.LLM.Provider {
	case "openai", "gemini":
	default:
		return fmt.Errorf("LLM_PROVIDER must be openai or gemini (got %q)", c.LLM.Provider)
	}
	if c.LLM.Timeout <= 0 {
		return fmt.Errorf("LLM_TIMEOUT must be > 0")
	}
	if c.LLM.HistoryLimit <= 0 {
		return fmt.Errorf("CHAT_HISTORY_LIMIT must be > 0")
	}

	if c.HTTP.Enabled && c.HTTP.Port == "" {
		return fmt.Errorf("PORT cannot be empty")
	}
	if c.Session.Shards <= 0 {
		return fmt.Errorf("SESSION_SHARDS must be > 0")
	}
	if c.Session.IdleTTL < 0 {
		return fmt.Errorf("SESSION_IDLE_TTL cannot be negative")
	}
	if c.Transcript.Retention < 0 {
		return fmt.Errorf("TRANSCRIPT_RETENTION cannot be negative")
	}
	if _, err := ParseLogLevel(c.LogLevel); err != nil {
		return err
	}
	switch c.LogFormat {
	case "json", "text":
	default:
		return fmt.Errorf("LOG_FORMAT must be json or text (got %q)", c.LogFormat)
	}
	return nil
}

// IsDevelopment returns true if running in development mode.
func (c *Config) IsDevelopment() bool {
	return c.HTTP.FrontendURL == "" ||
		strings.Contains(c.HTTP.FrontendURL, "localhost") ||
		strings.Contains(c.HTTP.FrontendURL, "127.0.0.1")
}

// TranscriptEnabled reports whether a transcript database is configured.
func (c *Config) TranscriptEnabled() bool {
	return c.Transcript.DBPath != ""
}

// ParseLogLevel maps debug|info|warn|error to a slog level.
func ParseLogLevel(s string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug, nil
	case "", "info":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return slog.LevelInfo, fmt.Errorf("LOG_LEVEL must be debug, info, warn or error (got %q)", s)
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "1", "true", "yes", "on":
		return true
	case "0", "false", "no", "off":
		return false
	default:
		return fallback
	}
}

func getEnvInt(key string, fallback int) int {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	n, err := strconv.Atoi(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return n
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	value, ok := os.LookupEnv(key)
	if !ok || strings.TrimSpace(value) == "" {
		return fallback
	}
	d, err := time.ParseDuration(strings.TrimSpace(value))
	if err != nil {
		return fallback
	}
	return d
}

func getEnvList(key string, fallback []string) []string {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback
	}
	var out []string
	for _, part := range strings.Split(value, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
