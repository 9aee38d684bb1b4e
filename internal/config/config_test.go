package config

import (
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const baseConfig = `
version = "0.1.0"
shutdown_timeout = "30s"

[server]
host = "0.0.0.0"
port = 8080
read_timeout = "1m"
write_timeout = "5m"

[database]
host = "localhost"
port = 5432
name = "conveyor"
user = "conveyor"
password = "conveyor"

[storage]
container = "conveyor"
connection_string = "DefaultEndpointsProtocol=http;AccountName=conveyorstore;AccountKey=key;BlobEndpoint=http://127.0.0.1:10000/conveyorstore;"

[temporal]
host_port = "localhost:7233"
namespace = "default"

[api]
base_path = "/api"
max_upload_size = "16MB"

[api.pagination]
default_page_size = 25
max_page_size = 50

[extraction]
review_threshold = 0.8

[pipeline]
task_queue = "conveyor-pipeline"
`

const overlayConfig = `
[server]
port = 9090

[database]
host = "prodhost"
`

const minimalConfig = `
[database]
name = "conveyor"
user = "conveyor"

[storage]
connection_string = "conn"
`

func writeConfig(t *testing.T, dir, filename, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, filename), []byte(content), 0644))
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	t.Chdir(dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "localhost", cfg.Database.Host)
	assert.Equal(t, "conveyor", cfg.Storage.Container)
	assert.Equal(t, "/api", cfg.API.BasePath)
	assert.Equal(t, 25, cfg.API.Pagination.DefaultPageSize)
	assert.Equal(t, 50, cfg.API.Pagination.MaxPageSize)
	assert.Equal(t, "conveyor-pipeline", cfg.Pipeline.TaskQueue)
}

func TestLoadWithOverlay(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	writeConfig(t, dir, "config.staging.toml", overlayConfig)
	t.Chdir(dir)

	t.Setenv(EnvConveyorEnv, "staging")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port, "overlay should win")
	assert.Equal(t, "prodhost", cfg.Database.Host, "overlay should win")
	assert.Equal(t, 5432, cfg.Database.Port, "base should survive")
}

func TestLoadEnvVarOverrides(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", baseConfig)
	t.Chdir(dir)

	t.Setenv(EnvConveyorVersion, "2.0.0")
	t.Setenv(ServerPortEnv, "3000")
	t.Setenv("CONVEYOR_DB_PASSWORD", "secret")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "2.0.0", cfg.Version)
	assert.Equal(t, 3000, cfg.Server.Port)
	assert.Equal(t, "secret", cfg.Database.Password)
}

func TestLoadNoConfigFile(t *testing.T) {
	t.Chdir(t.TempDir())

	t.Setenv("CONVEYOR_DB_NAME", "testdb")
	t.Setenv("CONVEYOR_DB_USER", "testuser")
	t.Setenv("CONVEYOR_STORAGE_CONNECTION_STRING", "conn")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "testdb", cfg.Database.Name)
	assert.Equal(t, "conn", cfg.Storage.ConnectionString)
}

func TestLoadInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", "version = ")
	t.Chdir(dir)

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadMinimalConfig(t *testing.T) {
	dir := t.TempDir()
	writeConfig(t, dir, "config.toml", minimalConfig)
	t.Chdir(dir)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "30s", cfg.ShutdownTimeout)
	assert.Equal(t, "0.1.0", cfg.Version)
	assert.Equal(t, "gemini-2.0-flash", cfg.Extraction.Model)
	assert.True(t, cfg.Pipeline.RunWorker())
}

func TestEnvDefault(t *testing.T) {
	cfg := &Config{}
	assert.Equal(t, "local", cfg.Env())
}

func TestEnvFromEnvVar(t *testing.T) {
	t.Setenv(EnvConveyorEnv, "production")

	cfg := &Config{}
	assert.Equal(t, "production", cfg.Env())
}

func TestShutdownTimeoutDuration(t *testing.T) {
	cfg := &Config{ShutdownTimeout: "45s"}
	assert.Equal(t, 45*time.Second, cfg.ShutdownTimeoutDuration())
}

func TestServerAddr(t *testing.T) {
	cfg := &ServerConfig{Host: "0.0.0.0", Port: 8080}
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())
}

func TestServerValidation(t *testing.T) {
	cfg := &ServerConfig{ReadTimeout: "never"}
	assert.Error(t, cfg.Finalize())
}

func TestMaxUploadSizeBytes(t *testing.T) {
	cfg := &APIConfig{MaxUploadSize: "16MB"}
	assert.Equal(t, int64(16*1024*1024), cfg.MaxUploadSizeBytes())
}

func TestMaxUploadSizeFallback(t *testing.T) {
	cfg := &APIConfig{MaxUploadSize: "a lot"}
	assert.Equal(t, int64(32*1024*1024), cfg.MaxUploadSizeBytes())
}

func TestLoggingSlogLevel(t *testing.T) {
	tests := []struct {
		level string
		want  slog.Level
	}{
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"WARN", slog.LevelWarn},
		{"error", slog.LevelError},
		{"unknown", slog.LevelInfo},
		{"", slog.LevelInfo},
	}

	for _, tt := range tests {
		cfg := &LoggingConfig{Level: tt.level}
		assert.Equal(t, tt.want, cfg.SlogLevel(), "level %q", tt.level)
	}
}

func TestLoggingJSON(t *testing.T) {
	assert.True(t, (&LoggingConfig{Format: "json"}).JSON())
	assert.True(t, (&LoggingConfig{Format: "JSON"}).JSON())
	assert.False(t, (&LoggingConfig{Format: "text"}).JSON())
}

func TestPipelineRunWorker(t *testing.T) {
	enabled := true
	disabled := false

	assert.True(t, (&PipelineConfig{}).RunWorker(), "unset defaults to hosting a worker")
	assert.True(t, (&PipelineConfig{WorkerEnabled: &enabled}).RunWorker())
	assert.False(t, (&PipelineConfig{WorkerEnabled: &disabled}).RunWorker())
}

func TestPipelineWorkerEnabledEnvOverride(t *testing.T) {
	t.Setenv(WorkerEnabledEnv, "false")

	cfg := &PipelineConfig{}
	cfg.Finalize()

	assert.False(t, cfg.RunWorker())
}

func TestExtractionValidation(t *testing.T) {
	tests := []struct {
		name string
		cfg  ExtractionConfig
	}{
		{"negative header pages", ExtractionConfig{HeaderPageCount: -1}},
		{"threshold above one", ExtractionConfig{ReviewThreshold: 1.5}},
		{"bad request timeout", ExtractionConfig{RequestTimeout: "soon"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Error(t, tt.cfg.Finalize())
		})
	}
}

func TestExtractionNoKeyRequired(t *testing.T) {
	cfg := &ExtractionConfig{}
	require.NoError(t, cfg.Finalize())
	assert.Empty(t, cfg.GeminiAPIKey)
}

func TestExtractionChunkingParams(t *testing.T) {
	cfg := &ExtractionConfig{
		ContextBudgetTokens: 50000,
		TokensPerPage:       5000,
		HeaderPageCount:     2,
	}

	params := cfg.ChunkingParams()
	assert.Equal(t, 50000, params.BudgetTokens)
	assert.Equal(t, 5000, params.TokensPerPage)
	assert.Equal(t, 2, params.HeaderPages)
}
