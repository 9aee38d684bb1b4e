// Package config loads and finalizes the layered conveyor configuration.
// Values come from config.toml, an optional per-environment overlay, and
// CONVEYOR_* environment variables, in increasing order of precedence.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/pelletier/go-toml/v2"

	"github.com/ledgerworks/conveyor/pkg/database"
	"github.com/ledgerworks/conveyor/pkg/storage"
	"github.com/ledgerworks/conveyor/pkg/temporal"
)

const (
	BaseConfigFile       = "config.toml"
	OverlayConfigPattern = "config.%s.toml"

	EnvConveyorEnv             = "CONVEYOR_ENV"
	EnvConveyorShutdownTimeout = "CONVEYOR_SHUTDOWN_TIMEOUT"
	EnvConveyorVersion         = "CONVEYOR_VERSION"
)

var databaseEnv = &database.Env{
	Host:            "CONVEYOR_DB_HOST",
	Port:            "CONVEYOR_DB_PORT",
	Name:            "CONVEYOR_DB_NAME",
	User:            "CONVEYOR_DB_USER",
	Password:        "CONVEYOR_DB_PASSWORD",
	SSLMode:         "CONVEYOR_DB_SSL_MODE",
	MaxOpenConns:    "CONVEYOR_DB_MAX_OPEN_CONNS",
	MaxIdleConns:    "CONVEYOR_DB_MAX_IDLE_CONNS",
	ConnMaxLifetime: "CONVEYOR_DB_CONN_MAX_LIFETIME",
	ConnTimeout:     "CONVEYOR_DB_CONN_TIMEOUT",
}

var storageEnv = &storage.Env{
	Container:        "CONVEYOR_STORAGE_CONTAINER",
	ConnectionString: "CONVEYOR_STORAGE_CONNECTION_STRING",
}

var temporalEnv = &temporal.Env{
	HostPort:  "CONVEYOR_TEMPORAL_HOST_PORT",
	Namespace: "CONVEYOR_TEMPORAL_NAMESPACE",
	Identity:  "CONVEYOR_TEMPORAL_IDENTITY",
}

// Config is the root configuration for the conveyor service.
type Config struct {
	Server          ServerConfig     `toml:"server"`
	Database        database.Config  `toml:"database"`
	Storage         storage.Config   `toml:"storage"`
	Temporal        temporal.Config  `toml:"temporal"`
	API             APIConfig        `toml:"api"`
	Logging         LoggingConfig    `toml:"logging"`
	Extraction      ExtractionConfig `toml:"extraction"`
	Pipeline        PipelineConfig   `toml:"pipeline"`
	ShutdownTimeout string           `toml:"shutdown_timeout"`
	Version         string           `toml:"version"`
}

// Env returns the CONVEYOR_ENV value, defaulting to "local".
func (c *Config) Env() string {
	if env := os.Getenv(EnvConveyorEnv); env != "" {
		return env
	}
	return "local"
}

// ShutdownTimeoutDuration returns ShutdownTimeout as a time.Duration.
func (c *Config) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

// Load reads the base config (if present), applies any environment overlay,
// and finalizes all values. If no config.toml exists, defaults and environment
// variables provide all configuration.
func Load() (*Config, error) {
	cfg := &Config{}

	if _, err := os.Stat(BaseConfigFile); err == nil {
		loaded, err := load(BaseConfigFile)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	if path := overlayPath(); path != "" {
		overlay, err := load(path)
		if err != nil {
			return nil, fmt.Errorf("load overlay %s: %w", path, err)
		}
		cfg.Merge(overlay)
	}

	if err := cfg.finalize(); err != nil {
		return nil, fmt.Errorf("finalize config: %w", err)
	}

	return cfg, nil
}

// Merge overwrites non-zero fields from overlay across all sub-configs.
func (c *Config) Merge(overlay *Config) {
	if overlay.ShutdownTimeout != "" {
		c.ShutdownTimeout = overlay.ShutdownTimeout
	}
	if overlay.Version != "" {
		c.Version = overlay.Version
	}
	c.Server.Merge(&overlay.Server)
	c.Database.Merge(&overlay.Database)
	c.Storage.Merge(&overlay.Storage)
	c.Temporal.Merge(&overlay.Temporal)
	c.API.Merge(&overlay.API)
	c.Logging.Merge(&overlay.Logging)
	c.Extraction.Merge(&overlay.Extraction)
	c.Pipeline.Merge(&overlay.Pipeline)
}

func (c *Config) finalize() error {
	c.loadDefaults()
	c.loadEnv()

	if err := c.validate(); err != nil {
		return err
	}
	if err := c.Server.Finalize(); err != nil {
		return fmt.Errorf("server: %w", err)
	}
	if err := c.Database.Finalize(databaseEnv); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Storage.Finalize(storageEnv); err != nil {
		return fmt.Errorf("storage: %w", err)
	}
	if err := c.Temporal.Finalize(temporalEnv); err != nil {
		return fmt.Errorf("temporal: %w", err)
	}
	if err := c.API.Finalize(); err != nil {
		return fmt.Errorf("api: %w", err)
	}
	c.Logging.Finalize()
	if err := c.Extraction.Finalize(); err != nil {
		return fmt.Errorf("extraction: %w", err)
	}
	c.Pipeline.Finalize()
	return nil
}

func (c *Config) loadDefaults() {
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
	if c.Version == "" {
		c.Version = "0.1.0"
	}
}

func (c *Config) loadEnv() {
	if v := os.Getenv(EnvConveyorShutdownTimeout); v != "" {
		c.ShutdownTimeout = v
	}
	if v := os.Getenv(EnvConveyorVersion); v != "" {
		c.Version = v
	}
}

func (c *Config) validate() error {
	if _, err := time.ParseDuration(c.ShutdownTimeout); err != nil {
		return fmt.Errorf("invalid shutdown_timeout: %w", err)
	}
	return nil
}

func load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	var cfg Config
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return &cfg, nil
}

func overlayPath() string {
	if env := os.Getenv(EnvConveyorEnv); env != "" {
		path := fmt.Sprintf(OverlayConfigPattern, env)
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}
