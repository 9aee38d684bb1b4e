// Package infrastructure provides core service initialization for application
// startup. It assembles the shared dependencies (logging, database, storage,
// durable execution) that domain systems require.
package infrastructure

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/ledgerworks/conveyor/internal/config"
	"github.com/ledgerworks/conveyor/pkg/database"
	"github.com/ledgerworks/conveyor/pkg/lifecycle"
	"github.com/ledgerworks/conveyor/pkg/storage"
	"github.com/ledgerworks/conveyor/pkg/temporal"
)

// Infrastructure holds the core systems required by all domain modules. It
// provides a single point of initialization for lifecycle coordination,
// logging, database access, blob storage, and the durable-execution client.
type Infrastructure struct {
	Lifecycle *lifecycle.Coordinator
	Logger    *slog.Logger
	Database  database.System
	Storage   storage.System
	Temporal  temporal.System
}

// New creates an Infrastructure from the application configuration. It
// initializes all systems but does not start them; call Start separately.
func New(cfg *config.Config) (*Infrastructure, error) {
	lc := lifecycle.New()
	logger := newLogger(cfg.Logging)

	db, err := database.New(&cfg.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("database init failed: %w", err)
	}

	store, err := storage.New(&cfg.Storage, logger)
	if err != nil {
		return nil, fmt.Errorf("storage init failed: %w", err)
	}

	temporalSystem, err := temporal.New(&cfg.Temporal, logger)
	if err != nil {
		return nil, fmt.Errorf("temporal init failed: %w", err)
	}

	return &Infrastructure{
		Lifecycle: lc,
		Logger:    logger,
		Database:  db,
		Storage:   store,
		Temporal:  temporalSystem,
	}, nil
}

// Start registers all infrastructure systems with the lifecycle coordinator.
func (i *Infrastructure) Start() error {
	if err := i.Database.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("database start failed: %w", err)
	}
	if err := i.Storage.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("storage start failed: %w", err)
	}
	if err := i.Temporal.Start(i.Lifecycle); err != nil {
		return fmt.Errorf("temporal start failed: %w", err)
	}
	return nil
}

func newLogger(cfg config.LoggingConfig) *slog.Logger {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	if cfg.JSON() {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}
