package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port            int
	NatsURL         string
	NatsToken       string
	DatabaseURL     string
	LogLevel        string
	AnthropicAPIKey string
	AnthropicModel  string
	APIToken        string
	WebhookURL      string
	MaxRetries      int
	RetryDelay      time.Duration
	MaxTranscript   int
}

func Load() Config {
	return Config{
		Port:            envInt("PROSPECT_PORT", 8760),
		NatsURL:         envStr("NATS_URL", "nats://hermes:4222"),
		NatsToken:       envStr("NATS_TOKEN", ""),
		DatabaseURL:     envStr("DATABASE_URL", ""),
		LogLevel:        envStr("LOG_LEVEL", "info"),
		AnthropicAPIKey: envStr("ANTHROPIC_API_KEY", ""),
		AnthropicModel:  envStr("PROSPECT_MODEL", "claude-sonnet-4-20250514"),
		APIToken:        envStr("PROSPECT_API_TOKEN", ""),
		WebhookURL:      envStr("PROSPECT_WEBHOOK_URL", ""),
		MaxRetries:      envInt("PROSPECT_MAX_RETRIES", 3),
		RetryDelay:      time.Duration(envInt("PROSPECT_RETRY_DELAY_MS", 2000)) * time.Millisecond,
		MaxTranscript:   envInt("PROSPECT_MAX_TRANSCRIPT_CHARS", 48000),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
