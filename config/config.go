// Package config loads service settings from settings.json with environment
// overrides for secrets and deployment-specific values.
package config

import (
	"os"
	"strconv"

	"github.com/bytedance/sonic"
	"github.com/pkg/errors"
)

// Config is the top-level configuration loaded from settings.json.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string `json:"addr"`
	// DatabaseURL is the Postgres DSN. Empty selects the in-memory store
	// (dev mode; conversations are lost on restart).
	DatabaseURL string `json:"database_url"`
	// RedisAddr is the host:port of the Redis instance backing the task
	// queue. Empty disables background task processing.
	RedisAddr string `json:"redis_addr"`

	// AssistantProvider selects the reply backend: "openai" or "gemini".
	AssistantProvider string `json:"assistant_provider"`
	OpenAIAPIKey      string `json:"-"`
	GeminiAPIKey      string `json:"-"`

	// ContextTurns is how many prior turns are loaded as assistant context.
	ContextTurns int `json:"context_turns"`
	// Language is the synthesis language hint.
	Language string `json:"language"`

	// FetchURL is the upstream character feed polled by the scheduler.
	// Empty disables the scheduler.
	FetchURL string `json:"fetch_url"`
	// FetchIntervalHours is how often the feed is polled.
	FetchIntervalHours int `json:"fetch_interval_hours"`
	// WorkerDelaySeconds simulates per-job processing latency.
	WorkerDelaySeconds int `json:"worker_delay_seconds"`
}

// Default returns a Config pre-filled with development defaults.
func Default() Config {
	return Config{
		Addr:               ":8080",
		AssistantProvider:  "openai",
		ContextTurns:       5,
		Language:           "en",
		FetchIntervalHours: 24,
		WorkerDelaySeconds: 5,
	}
}

// FromFile reads and parses settings.json, then applies env overrides.
// A missing file is not an error; defaults plus env are used instead.
func FromFile(path string) (Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// fall through to env overrides
	case err != nil:
		return cfg, errors.Wrapf(err, "read settings %q", path)
	default:
		if err := sonic.Unmarshal(data, &cfg); err != nil {
			return cfg, errors.Wrapf(err, "parse settings %q", path)
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

// applyEnv overlays environment variables on top of file values. Secrets are
// env-only.
func (c *Config) applyEnv() {
	c.Addr = getEnv("ADDR", c.Addr)
	c.DatabaseURL = getEnv("DATABASE_URL", c.DatabaseURL)
	c.RedisAddr = getEnv("REDIS_ADDR", c.RedisAddr)
	c.AssistantProvider = getEnv("ASSISTANT_PROVIDER", c.AssistantProvider)
	c.OpenAIAPIKey = getEnv("OPENAI_API_KEY", c.OpenAIAPIKey)
	c.GeminiAPIKey = getEnv("GEMINI_API_KEY", c.GeminiAPIKey)
	c.Language = getEnv("LANGUAGE", c.Language)
	c.FetchURL = getEnv("FETCH_URL", c.FetchURL)
	c.ContextTurns = getEnvAsInt("CONTEXT_TURNS", c.ContextTurns)
	c.FetchIntervalHours = getEnvAsInt("FETCH_INTERVAL_HOURS", c.FetchIntervalHours)
	c.WorkerDelaySeconds = getEnvAsInt("WORKER_DELAY_SECONDS", c.WorkerDelaySeconds)
}

// getEnv gets an environment variable with a default fallback.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt gets an environment variable as integer with a default fallback.
func getEnvAsInt(key string, defaultValue int) int {
	valStr := os.Getenv(key)
	if valStr == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(valStr)
	if err != nil {
		return defaultValue
	}
	return val
}
