package temporal

import (
	"fmt"
	"os"

	"go.temporal.io/sdk/client"
)

// Config holds Temporal client connection settings.
type Config struct {
	HostPort  string `toml:"host_port"`
	Namespace string `toml:"namespace"`
	Identity  string `toml:"identity"`
}

// Env maps environment variable names to Config fields.
type Env struct {
	HostPort  string
	Namespace string
	Identity  string
}

// Finalize applies defaults, environment variable overrides, and validation.
func (c *Config) Finalize(env *Env) error {
	c.loadDefaults()
	if env != nil {
		c.loadEnv(env)
	}
	return c.validate()
}

// Merge applies non-empty values from the overlay configuration.
func (c *Config) Merge(overlay *Config) {
	if overlay.HostPort != "" {
		c.HostPort = overlay.HostPort
	}
	if overlay.Namespace != "" {
		c.Namespace = overlay.Namespace
	}
	if overlay.Identity != "" {
		c.Identity = overlay.Identity
	}
}

func (c *Config) loadDefaults() {
	if c.HostPort == "" {
		c.HostPort = client.DefaultHostPort
	}
	if c.Namespace == "" {
		c.Namespace = client.DefaultNamespace
	}
}

func (c *Config) loadEnv(env *Env) {
	if env.HostPort != "" {
		if v := os.Getenv(env.HostPort); v != "" {
			c.HostPort = v
		}
	}
	if env.Namespace != "" {
		if v := os.Getenv(env.Namespace); v != "" {
			c.Namespace = v
		}
	}
	if env.Identity != "" {
		if v := os.Getenv(env.Identity); v != "" {
			c.Identity = v
		}
	}
}

func (c *Config) validate() error {
	if c.HostPort == "" {
		return fmt.Errorf("host_port is required")
	}
	if c.Namespace == "" {
		return fmt.Errorf("namespace is required")
	}
	return nil
}
