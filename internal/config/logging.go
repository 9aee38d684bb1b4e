package config

import (
	"log/slog"
	"os"
	"strings"
)

// Env vars overriding logging settings.
const (
	LogLevelEnv  = "CONVEYOR_LOG_LEVEL"
	LogFormatEnv = "CONVEYOR_LOG_FORMAT"
)

// LoggingConfig controls the process-wide slog handler.
type LoggingConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// Finalize applies defaults, then environment variable overrides.
func (c *LoggingConfig) Finalize() {
	c.loadDefaults()
	c.loadEnv()
}

// Merge overwrites non-zero fields from o.
func (c *LoggingConfig) Merge(o *LoggingConfig) {
	if o.Level != "" {
		c.Level = o.Level
	}
	if o.Format != "" {
		c.Format = o.Format
	}
}

// SlogLevel maps the configured level onto slog's levels, defaulting to info.
func (c *LoggingConfig) SlogLevel() slog.Level {
	switch strings.ToLower(c.Level) {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// JSON reports whether log output should use the JSON handler.
func (c *LoggingConfig) JSON() bool {
	return strings.EqualFold(c.Format, "json")
}

func (c *LoggingConfig) loadDefaults() {
	if c.Level == "" {
		c.Level = "info"
	}
	if c.Format == "" {
		c.Format = "text"
	}
}

func (c *LoggingConfig) loadEnv() {
	if v := os.Getenv(LogLevelEnv); v != "" {
		c.Level = v
	}
	if v := os.Getenv(LogFormatEnv); v != "" {
		c.Format = v
	}
}
