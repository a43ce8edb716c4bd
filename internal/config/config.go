package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains all runtime settings for the assistant service.
type Config struct {
	BindAddr         string
	ShutdownTimeout  time.Duration
	MetricsNamespace string

	// Dialogue pipeline.
	ContextWindow      int
	FanoutConcurrency  int
	FanoutCeiling      time.Duration
	SubQuestionTimeout time.Duration

	// Model backend.
	BrainMode        string
	BrainHTTPURL     string
	AnthropicAPIKey  string
	AnthropicModel   string
	AnthropicMaxTok  int
	RetryMaxAttempts int
	RetryBackoffBase time.Duration
	RetryBackoffCap  time.Duration
	BreakerThreshold int
	BreakerWindow    time.Duration
	BreakerCooldown  time.Duration

	// External identity service.
	IdentityBaseURL string
	SessionTTL      time.Duration

	// Messaging transport.
	TelegramToken        string
	TelegramPollInterval time.Duration

	// Persistence. Empty values select the in-memory stores.
	DatabaseURL string
	RedisAddr   string

	AllowAnyOrigin bool
}

// Load reads environment variables and applies safe defaults.
func Load() (Config, error) {
	cfg := Config{
		BindAddr:             envOrDefault("APP_BIND_ADDR", ":8080"),
		MetricsNamespace:     envOrDefault("APP_METRICS_NAMESPACE", "minerva"),
		ContextWindow:        20,
		FanoutConcurrency:    5,
		FanoutCeiling:        45 * time.Second,
		SubQuestionTimeout:   20 * time.Second,
		BrainMode:            envOrDefault("BRAIN_MODE", "auto"),
		BrainHTTPURL:         envTrimmed("BRAIN_HTTP_URL"),
		AnthropicAPIKey:      envTrimmed("ANTHROPIC_API_KEY"),
		AnthropicModel:       envOrDefault("ANTHROPIC_MODEL", "claude-3-5-sonnet-latest"),
		AnthropicMaxTok:      1000,
		RetryMaxAttempts:     3,
		RetryBackoffBase:     250 * time.Millisecond,
		RetryBackoffCap:      4 * time.Second,
		BreakerThreshold:     5,
		BreakerWindow:        30 * time.Second,
		BreakerCooldown:      20 * time.Second,
		IdentityBaseURL:      envOrDefault("IDENTITY_BASE_URL", "http://localhost:5050"),
		SessionTTL:           12 * time.Hour,
		TelegramToken:        envTrimmed("TELEGRAM_BOT_TOKEN"),
		TelegramPollInterval: 2 * time.Second,
		DatabaseURL:          envTrimmed("DATABASE_URL"),
		RedisAddr:            envTrimmed("REDIS_ADDR"),
		ShutdownTimeout:      15 * time.Second,
	}

	var err error
	cfg.ShutdownTimeout, err = durationFromEnv("APP_SHUTDOWN_TIMEOUT", cfg.ShutdownTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.ContextWindow, err = intFromEnv("APP_CONTEXT_WINDOW", cfg.ContextWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.FanoutConcurrency, err = intFromEnv("APP_FANOUT_CONCURRENCY", cfg.FanoutConcurrency)
	if err != nil {
		return Config{}, err
	}
	cfg.FanoutCeiling, err = durationFromEnv("APP_FANOUT_CEILING", cfg.FanoutCeiling)
	if err != nil {
		return Config{}, err
	}
	cfg.SubQuestionTimeout, err = durationFromEnv("APP_SUBQUESTION_TIMEOUT", cfg.SubQuestionTimeout)
	if err != nil {
		return Config{}, err
	}
	cfg.AnthropicMaxTok, err = intFromEnv("ANTHROPIC_MAX_TOKENS", cfg.AnthropicMaxTok)
	if err != nil {
		return Config{}, err
	}
	cfg.RetryMaxAttempts, err = intFromEnv("BRAIN_RETRY_MAX_ATTEMPTS", cfg.RetryMaxAttempts)
	if err != nil {
		return Config{}, err
	}
	cfg.RetryBackoffBase, err = durationFromEnv("BRAIN_RETRY_BACKOFF_BASE", cfg.RetryBackoffBase)
	if err != nil {
		return Config{}, err
	}
	cfg.RetryBackoffCap, err = durationFromEnv("BRAIN_RETRY_BACKOFF_CAP", cfg.RetryBackoffCap)
	if err != nil {
		return Config{}, err
	}
	cfg.BreakerThreshold, err = intFromEnv("BRAIN_BREAKER_THRESHOLD", cfg.BreakerThreshold)
	if err != nil {
		return Config{}, err
	}
	cfg.BreakerWindow, err = durationFromEnv("BRAIN_BREAKER_WINDOW", cfg.BreakerWindow)
	if err != nil {
		return Config{}, err
	}
	cfg.BreakerCooldown, err = durationFromEnv("BRAIN_BREAKER_COOLDOWN", cfg.BreakerCooldown)
	if err != nil {
		return Config{}, err
	}
	cfg.SessionTTL, err = durationFromEnv("AUTH_SESSION_TTL", cfg.SessionTTL)
	if err != nil {
		return Config{}, err
	}
	cfg.TelegramPollInterval, err = durationFromEnv("TELEGRAM_POLL_INTERVAL", cfg.TelegramPollInterval)
	if err != nil {
		return Config{}, err
	}
	cfg.AllowAnyOrigin, err = boolFromEnv("APP_ALLOW_ANY_ORIGIN", cfg.AllowAnyOrigin)
	if err != nil {
		return Config{}, err
	}

	if cfg.ContextWindow <= 0 {
		return Config{}, fmt.Errorf("APP_CONTEXT_WINDOW must be positive")
	}
	if cfg.FanoutConcurrency <= 0 {
		return Config{}, fmt.Errorf("APP_FANOUT_CONCURRENCY must be positive")
	}
	if cfg.FanoutCeiling < time.Second {
		return Config{}, fmt.Errorf("APP_FANOUT_CEILING must be at least 1s")
	}
	if cfg.RetryMaxAttempts <= 0 {
		return Config{}, fmt.Errorf("BRAIN_RETRY_MAX_ATTEMPTS must be positive")
	}
	if cfg.BreakerThreshold <= 0 {
		return Config{}, fmt.Errorf("BRAIN_BREAKER_THRESHOLD must be positive")
	}
	if cfg.SessionTTL < time.Minute {
		return Config{}, fmt.Errorf("AUTH_SESSION_TTL must be at least 1m")
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	return v
}

func envTrimmed(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func durationFromEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return d, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := envTrimmed(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s parse error: %w", key, err)
	}
	return n, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := strings.ToLower(envTrimmed(key))
	if v == "" {
		return fallback, nil
	}
	switch v {
	case "1", "true", "t", "yes", "y", "on":
		return true, nil
	case "0", "false", "f", "no", "n", "off":
		return false, nil
	default:
		return false, fmt.Errorf("%s parse error: expected bool", key)
	}
}
