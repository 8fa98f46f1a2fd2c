package config

import (
	"log/slog"
	"os"
	"strings"
	"time"
)

// Config carries the server's environment-driven settings.
type Config struct {
	Addr         string
	DBPath       string
	LogLevel     slog.Level
	TickInterval time.Duration
}

// FromEnv reads configuration from the environment, falling back to
// development defaults.
func FromEnv() Config {
	cfg := Config{
		Addr:         ":8080",
		DBPath:       "pongarena.db",
		LogLevel:     slog.LevelInfo,
		TickInterval: 16 * time.Millisecond,
	}

	if addr := os.Getenv("PONGARENA_ADDR"); addr != "" {
		cfg.Addr = addr
	}
	if path := os.Getenv("PONGARENA_DB"); path != "" {
		cfg.DBPath = path
	}
	if raw := os.Getenv("PONGARENA_LOG_LEVEL"); raw != "" {
		switch strings.ToLower(raw) {
		case "debug":
			cfg.LogLevel = slog.LevelDebug
		case "warn":
			cfg.LogLevel = slog.LevelWarn
		case "error":
			cfg.LogLevel = slog.LevelError
		}
	}
	if raw := os.Getenv("PONGARENA_TICK"); raw != "" {
		if d, err := time.ParseDuration(raw); err == nil && d > 0 {
			cfg.TickInterval = d
		}
	}
	return cfg
}
