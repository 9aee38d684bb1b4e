package temporal

import (
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/client"
)

func TestConfigFinalizeDefaults(t *testing.T) {
	cfg := &Config{}
	require.NoError(t, cfg.Finalize(nil))

	assert.Equal(t, client.DefaultHostPort, cfg.HostPort)
	assert.Equal(t, client.DefaultNamespace, cfg.Namespace)
	assert.Empty(t, cfg.Identity)
}

func TestConfigFinalizeEnvOverrides(t *testing.T) {
	t.Setenv("TEST_TEMPORAL_HOST_PORT", "temporal.internal:7233")
	t.Setenv("TEST_TEMPORAL_NAMESPACE", "conveyor")
	t.Setenv("TEST_TEMPORAL_IDENTITY", "conveyord-1")

	cfg := &Config{}
	env := &Env{
		HostPort:  "TEST_TEMPORAL_HOST_PORT",
		Namespace: "TEST_TEMPORAL_NAMESPACE",
		Identity:  "TEST_TEMPORAL_IDENTITY",
	}
	require.NoError(t, cfg.Finalize(env))

	assert.Equal(t, "temporal.internal:7233", cfg.HostPort)
	assert.Equal(t, "conveyor", cfg.Namespace)
	assert.Equal(t, "conveyord-1", cfg.Identity)
}

func TestConfigMerge(t *testing.T) {
	base := &Config{
		HostPort:  "localhost:7233",
		Namespace: "default",
	}
	base.Merge(&Config{Namespace: "conveyor"})

	assert.Equal(t, "localhost:7233", base.HostPort)
	assert.Equal(t, "conveyor", base.Namespace)
}

func TestNewReturnsSystem(t *testing.T) {
	cfg := &Config{HostPort: "localhost:7233", Namespace: "default"}

	sys, err := New(cfg, slog.Default())
	require.NoError(t, err)
	require.NotNil(t, sys)
	assert.NotNil(t, sys.Client())
}
