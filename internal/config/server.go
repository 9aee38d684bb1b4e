package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

// Env vars overriding HTTP server settings.
const (
	ServerHostEnv            = "CONVEYOR_SERVER_HOST"
	ServerPortEnv            = "CONVEYOR_SERVER_PORT"
	ServerReadTimeoutEnv     = "CONVEYOR_SERVER_READ_TIMEOUT"
	ServerWriteTimeoutEnv    = "CONVEYOR_SERVER_WRITE_TIMEOUT"
	ServerIdleTimeoutEnv     = "CONVEYOR_SERVER_IDLE_TIMEOUT"
	ServerShutdownTimeoutEnv = "CONVEYOR_SERVER_SHUTDOWN_TIMEOUT"
)

// ServerConfig holds HTTP listener settings. Durations are strings in
// time.ParseDuration format.
type ServerConfig struct {
	Host            string `toml:"host"`
	Port            int    `toml:"port"`
	ReadTimeout     string `toml:"read_timeout"`
	WriteTimeout    string `toml:"write_timeout"`
	IdleTimeout     string `toml:"idle_timeout"`
	ShutdownTimeout string `toml:"shutdown_timeout"`
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *ServerConfig) Finalize() error {
	c.loadDefaults()
	c.loadEnv()
	return c.validate()
}

// Merge overwrites non-zero fields from o.
func (c *ServerConfig) Merge(o *ServerConfig) {
	if o.Host != "" {
		c.Host = o.Host
	}
	if o.Port > 0 {
		c.Port = o.Port
	}
	if o.ReadTimeout != "" {
		c.ReadTimeout = o.ReadTimeout
	}
	if o.WriteTimeout != "" {
		c.WriteTimeout = o.WriteTimeout
	}
	if o.IdleTimeout != "" {
		c.IdleTimeout = o.IdleTimeout
	}
	if o.ShutdownTimeout != "" {
		c.ShutdownTimeout = o.ShutdownTimeout
	}
}

// Addr returns the host:port listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// ReadTimeoutDuration returns the parsed read timeout.
func (c *ServerConfig) ReadTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ReadTimeout)
	return d
}

// WriteTimeoutDuration returns the parsed write timeout.
func (c *ServerConfig) WriteTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.WriteTimeout)
	return d
}

// IdleTimeoutDuration returns the parsed idle timeout.
func (c *ServerConfig) IdleTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.IdleTimeout)
	return d
}

// ShutdownTimeoutDuration returns the parsed graceful shutdown timeout.
func (c *ServerConfig) ShutdownTimeoutDuration() time.Duration {
	d, _ := time.ParseDuration(c.ShutdownTimeout)
	return d
}

func (c *ServerConfig) loadDefaults() {
	if c.Port <= 0 {
		c.Port = 8080
	}
	if c.ReadTimeout == "" {
		c.ReadTimeout = "30s"
	}
	if c.WriteTimeout == "" {
		c.WriteTimeout = "5m"
	}
	if c.IdleTimeout == "" {
		c.IdleTimeout = "2m"
	}
	if c.ShutdownTimeout == "" {
		c.ShutdownTimeout = "30s"
	}
}

func (c *ServerConfig) loadEnv() {
	if v := os.Getenv(ServerHostEnv); v != "" {
		c.Host = v
	}
	if v := os.Getenv(ServerPortEnv); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			c.Port = port
		}
	}
	if v := os.Getenv(ServerReadTimeoutEnv); v != "" {
		c.ReadTimeout = v
	}
	if v := os.Getenv(ServerWriteTimeoutEnv); v != "" {
		c.WriteTimeout = v
	}
	if v := os.Getenv(ServerIdleTimeoutEnv); v != "" {
		c.IdleTimeout = v
	}
	if v := os.Getenv(ServerShutdownTimeoutEnv); v != "" {
		c.ShutdownTimeout = v
	}
}

func (c *ServerConfig) validate() error {
	for name, value := range map[string]string{
		"read_timeout":     c.ReadTimeout,
		"write_timeout":    c.WriteTimeout,
		"idle_timeout":     c.IdleTimeout,
		"shutdown_timeout": c.ShutdownTimeout,
	} {
		if _, err := time.ParseDuration(value); err != nil {
			return fmt.Errorf("invalid %s: %w", name, err)
		}
	}
	return nil
}
