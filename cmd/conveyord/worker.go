package main

import (
	"fmt"

	"github.com/ledgerworks/conveyor/internal/api"
	"github.com/ledgerworks/conveyor/internal/config"
	"github.com/ledgerworks/conveyor/internal/coordinator"
	"github.com/ledgerworks/conveyor/internal/export"
	"github.com/ledgerworks/conveyor/internal/extraction"
	"github.com/ledgerworks/conveyor/internal/infrastructure"
)

// buildWorker assembles the pipeline worker against the shared domain
// systems. Returns nil when this process does not host a worker.
func buildWorker(
	cfg *config.Config,
	infra *infrastructure.Infrastructure,
	domain *api.Domain,
) (coordinator.Worker, error) {
	if !cfg.Pipeline.RunWorker() {
		return nil, nil
	}

	extractor, err := extraction.NewClient(infra.Lifecycle.Context(), cfg.Extraction, infra.Logger)
	if err != nil {
		return nil, fmt.Errorf("extraction client init failed: %w", err)
	}
	if err := extractor.Start(infra.Lifecycle); err != nil {
		return nil, fmt.Errorf("extraction client start failed: %w", err)
	}

	validator, err := extraction.NewValidator()
	if err != nil {
		return nil, fmt.Errorf("schema validator init failed: %w", err)
	}

	activities := coordinator.NewActivities(
		domain.Documents,
		domain.Runs,
		infra.Storage,
		extractor,
		validator,
		export.NewWorkbook(infra.Logger),
		cfg.Extraction,
		infra.Logger,
	)

	return coordinator.NewWorker(infra.Temporal.Client(), activities, cfg.Pipeline, infra.Logger), nil
}
