package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"alumconnect/internal/content"

	"github.com/joho/godotenv"
)

type Config struct {
	DBFile         string
	AdminAddr      string
	APIAddr        string
	AllowedOrigins []string
	AuthSecret     string
	TokenExpiry    time.Duration

	Channels       []string
	StrictChannels bool
	SendBuffer     int
	HistoryLimit   int

	OutboxRetryBase time.Duration
	OutboxRetryMax  time.Duration
	StoreTimeout    time.Duration

	AllowRetryAfterReject bool

	LogLevel  slog.Level
	LogFormat string
}

// Load reads the configuration from the environment. Values from a .env file in
// the working directory are applied first unless already set.
func Load(cliMode bool) (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		DBFile:         getEnv("ALUMCONNECT_DB", "alumconnect.db"),
		AdminAddr:      getEnv("ADMIN_ADDR", "localhost:3001"),
		APIAddr:        getEnv("API_ADDR", ":3000"),
		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "http://localhost:5173")),
		AuthSecret:     os.Getenv("AUTH_SECRET"),
		Channels:       splitList(getEnv("CHAT_CHANNELS", "general,jobs,events,mentorship")),
		LogFormat:      getEnv("LOG_FORMAT", "text"),
	}

	var err error
	if cfg.TokenExpiry, err = getDuration("TOKEN_EXPIRY", "1h"); err != nil {
		return nil, err
	}
	if cfg.OutboxRetryBase, err = getDuration("OUTBOX_RETRY_BASE", "500ms"); err != nil {
		return nil, err
	}
	if cfg.OutboxRetryMax, err = getDuration("OUTBOX_RETRY_MAX", "30s"); err != nil {
		return nil, err
	}
	if cfg.StoreTimeout, err = getDuration("STORE_TIMEOUT", "5s"); err != nil {
		return nil, err
	}
	if cfg.StrictChannels, err = getBool("CHAT_STRICT_CHANNELS", false); err != nil {
		return nil, err
	}
	if cfg.AllowRetryAfterReject, err = getBool("CONNECTIONS_ALLOW_RETRY_AFTER_REJECT", false); err != nil {
		return nil, err
	}
	if cfg.SendBuffer, err = getInt("CHAT_SEND_BUFFER", 100); err != nil {
		return nil, err
	}
	if cfg.HistoryLimit, err = getInt("MESSAGE_HISTORY_LIMIT", 50); err != nil {
		return nil, err
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	if err := cfg.Validate(cliMode); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate(cliMode bool) error {
	if c.AuthSecret == "" && !cliMode {
		return fmt.Errorf("AUTH_SECRET is required")
	}

	if c.TokenExpiry <= 0 {
		return fmt.Errorf("TOKEN_EXPIRY must be greater than 0")
	}

	if len(c.Channels) == 0 {
		return fmt.Errorf("CHAT_CHANNELS must name at least one channel")
	}
	for _, ch := range c.Channels {
		if err := content.ValidateChannelName(ch); err != nil {
			return fmt.Errorf("CHAT_CHANNELS: %q: %w", ch, err)
		}
	}

	if c.SendBuffer <= 0 {
		return fmt.Errorf("CHAT_SEND_BUFFER must be greater than 0")
	}

	if c.HistoryLimit <= 0 {
		return fmt.Errorf("MESSAGE_HISTORY_LIMIT must be greater than 0")
	}

	if c.OutboxRetryBase <= 0 || c.OutboxRetryMax < c.OutboxRetryBase {
		return fmt.Errorf("OUTBOX_RETRY_BASE must be positive and not exceed OUTBOX_RETRY_MAX")
	}

	if c.StoreTimeout <= 0 {
		return fmt.Errorf("STORE_TIMEOUT must be greater than 0")
	}

	switch c.LogFormat {
	case "text", "json":
	default:
		return fmt.Errorf("LOG_FORMAT must be text or json, got %q", c.LogFormat)
	}

	return nil
}

// NewLogger builds the process logger described by the configuration.
func (c *Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.LogLevel}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getDuration(key, fallback string) (time.Duration, error) {
	d, err := time.ParseDuration(getEnv(key, fallback))
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	b, err := strconv.ParseBool(value)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func getInt(key string, fallback int) (int, error) {
	value, ok := os.LookupEnv(key)
	if !ok {
		return fallback, nil
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
