package infrastructure

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerworks/conveyor/internal/config"
	"github.com/ledgerworks/conveyor/pkg/database"
	"github.com/ledgerworks/conveyor/pkg/storage"
	"github.com/ledgerworks/conveyor/pkg/temporal"
)

const azuriteConnString = "DefaultEndpointsProtocol=http;AccountName=conveyorstore;AccountKey=Eby8vdM02xNOcqFlqUwJPLlmEtlCDXJ1OUzFT50uSRZ6IFsuFq2UVErCz4I6tq/K1SZFPTOtr/KBHBeksoGMGw==;BlobEndpoint=http://127.0.0.1:10000/conveyorstore;"

func validConfig() *config.Config {
	return &config.Config{
		Database: database.Config{
			Host:            "localhost",
			Port:            5432,
			Name:            "conveyor",
			User:            "conveyor",
			Password:        "conveyor",
			SSLMode:         "disable",
			MaxOpenConns:    25,
			MaxIdleConns:    5,
			ConnMaxLifetime: "15m",
			ConnTimeout:     "5s",
		},
		Storage: storage.Config{
			Container:        "conveyor",
			ConnectionString: azuriteConnString,
		},
		Temporal: temporal.Config{
			HostPort:  "localhost:7233",
			Namespace: "default",
		},
		Version: "0.1.0",
	}
}

func TestNew(t *testing.T) {
	infra, err := New(validConfig())
	require.NoError(t, err)

	assert.NotNil(t, infra.Lifecycle)
	assert.NotNil(t, infra.Logger)
	assert.NotNil(t, infra.Database)
	assert.NotNil(t, infra.Storage)
	assert.NotNil(t, infra.Temporal)
}

func TestNewDatabaseConnection(t *testing.T) {
	infra, err := New(validConfig())
	require.NoError(t, err)

	assert.NotNil(t, infra.Database.Connection())
}

func TestNewTemporalClient(t *testing.T) {
	infra, err := New(validConfig())
	require.NoError(t, err)

	assert.NotNil(t, infra.Temporal.Client())
}

func TestNewInvalidStorageConfig(t *testing.T) {
	cfg := validConfig()
	cfg.Storage.ConnectionString = "not-a-connection-string"

	_, err := New(cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage init failed")
}
