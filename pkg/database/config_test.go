package database

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigFinalizeDefaults(t *testing.T) {
	cfg := &Config{Name: "conveyor", User: "conveyor"}
	require.NoError(t, cfg.Finalize(nil))

	assert.Equal(t, "localhost", cfg.Host)
	assert.Equal(t, 5432, cfg.Port)
	assert.Equal(t, "disable", cfg.SSLMode)
	assert.Equal(t, 25, cfg.MaxOpenConns)
	assert.Equal(t, 5, cfg.MaxIdleConns)
	assert.Equal(t, "15m", cfg.ConnMaxLifetime)
	assert.Equal(t, "5s", cfg.ConnTimeout)
}

func TestConfigFinalizeEnvOverrides(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "db.internal")
	t.Setenv("TEST_DB_PORT", "5433")
	t.Setenv("TEST_DB_PASSWORD", "secret")

	cfg := &Config{Name: "conveyor", User: "conveyor"}
	env := &Env{
		Host:     "TEST_DB_HOST",
		Port:     "TEST_DB_PORT",
		Password: "TEST_DB_PASSWORD",
	}
	require.NoError(t, cfg.Finalize(env))

	assert.Equal(t, "db.internal", cfg.Host)
	assert.Equal(t, 5433, cfg.Port)
	assert.Equal(t, "secret", cfg.Password)
}

func TestConfigFinalizeValidation(t *testing.T) {
	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{"missing name", Config{User: "conveyor"}, "name required"},
		{"missing user", Config{Name: "conveyor"}, "user required"},
		{"bad lifetime", Config{Name: "c", User: "c", ConnMaxLifetime: "soon"}, "invalid conn_max_lifetime"},
		{"bad timeout", Config{Name: "c", User: "c", ConnTimeout: "later"}, "invalid conn_timeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Finalize(nil)
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestConfigMerge(t *testing.T) {
	base := &Config{
		Host: "localhost",
		Port: 5432,
		Name: "conveyor",
		User: "conveyor",
	}
	base.Merge(&Config{Host: "db.internal", Password: "secret"})

	assert.Equal(t, "db.internal", base.Host)
	assert.Equal(t, "secret", base.Password)
	assert.Equal(t, 5432, base.Port)
	assert.Equal(t, "conveyor", base.Name)
}

func TestConfigDsn(t *testing.T) {
	cfg := &Config{
		Host:     "localhost",
		Port:     5432,
		Name:     "conveyor",
		User:     "app",
		Password: "secret",
		SSLMode:  "disable",
	}

	assert.Equal(
		t,
		"host=localhost port=5432 dbname=conveyor user=app password=secret sslmode=disable",
		cfg.Dsn(),
	)
}

func TestConfigDurations(t *testing.T) {
	cfg := &Config{ConnMaxLifetime: "30m", ConnTimeout: "10s"}

	assert.Equal(t, 30*time.Minute, cfg.ConnMaxLifetimeDuration())
	assert.Equal(t, 10*time.Second, cfg.ConnTimeoutDuration())
}
