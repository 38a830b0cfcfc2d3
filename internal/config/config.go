// Package config centralises configuration parsing for gymdesk.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Store backends.
const (
	StoreSQLite = "sqlite"
	StoreRedis  = "redis"
	StoreMemory = "memory"
)

// ErrRedisAddr is returned when the redis store is selected without an address.
var ErrRedisAddr = errors.New("GYMDESK_REDIS_ADDR is required when GYMDESK_STORE=redis")

// Config captures runtime configuration values for the client.
type Config struct {
	APIURL        string
	APITimeout    time.Duration
	Store         string // sqlite, redis, memory
	DBPath        string
	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string
	ExpiryWarning time.Duration // window in which a membership counts as expiring
	OfflineLogin  bool
	ResendKey     string
	ResendFrom    string
	ReplyTo       string
	SyncInterval  time.Duration
	OutboxKeep    time.Duration // how long finished outbox entries are kept
	SlowQuery     time.Duration
	LogFormat     string // text, json
	LogLevel      string
}

// Load reads environment variables into Config, applying defaults for local use.
// Values from a .env file in the working directory are loaded first; real
// environment variables win over them.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	cfg := Config{
		APIURL:        strings.TrimRight(getEnv("GYMDESK_API_URL", "http://localhost:5000/api"), "/"),
		APITimeout:    getDurationEnv("GYMDESK_API_TIMEOUT", 10*time.Second),
		Store:         strings.ToLower(getEnv("GYMDESK_STORE", StoreSQLite)),
		DBPath:        getEnv("GYMDESK_DB_PATH", "gymdesk.db"),
		RedisAddr:     getEnv("GYMDESK_REDIS_ADDR", ""),
		RedisPassword: getEnv("GYMDESK_REDIS_PASSWORD", ""),
		RedisDB:       getIntEnv("GYMDESK_REDIS_DB", 0),
		RedisPrefix:   getEnv("GYMDESK_REDIS_PREFIX", "gymdesk:"),
		ExpiryWarning: time.Duration(getIntEnv("GYMDESK_EXPIRY_WARNING_DAYS", 7)) * 24 * time.Hour,
		OfflineLogin:  getBoolEnv("GYMDESK_OFFLINE_LOGIN", false),
		ResendKey:     getEnv("GYMDESK_RESEND_KEY", ""),
		ResendFrom:    getEnv("GYMDESK_RESEND_FROM", "GymDesk <receipts@gymdesk.local>"),
		ReplyTo:       getEnv("GYMDESK_REPLY_TO", ""),
		SyncInterval:  getDurationEnv("GYMDESK_SYNC_INTERVAL", 30*time.Second),
		OutboxKeep:    time.Duration(getIntEnv("GYMDESK_OUTBOX_KEEP_DAYS", 7)) * 24 * time.Hour,
		SlowQuery:     time.Duration(getIntEnv("GYMDESK_SLOW_QUERY_MS", 50)) * time.Millisecond,
		LogFormat:     strings.ToLower(getEnv("GYMDESK_LOG_FORMAT", "text")),
		LogLevel:      getEnv("GYMDESK_LOG_LEVEL", "warn"),
	}
	return cfg, cfg.Validate()
}

// Validate checks cross-field constraints.
func (c Config) Validate() error {
	switch c.Store {
	case StoreSQLite, StoreMemory:
	case StoreRedis:
		if c.RedisAddr == "" {
			return ErrRedisAddr
		}
	default:
		return fmt.Errorf("unknown GYMDESK_STORE %q", c.Store)
	}
	if c.APITimeout <= 0 {
		return fmt.Errorf("GYMDESK_API_TIMEOUT must be positive, got %s", c.APITimeout)
	}
	if c.ExpiryWarning < 0 {
		return fmt.Errorf("GYMDESK_EXPIRY_WARNING_DAYS must not be negative")
	}
	return nil
}

// SlogLevel maps LogLevel onto a slog level, defaulting to warn.
func (c Config) SlogLevel() slog.Level {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelWarn
	}
	return lvl
}

// NewLogger builds the process logger from LogFormat and LogLevel.
func (c Config) NewLogger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.LogFormat == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getDurationEnv(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getBoolEnv(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}
