package api

import (
	"github.com/ledgerworks/conveyor/internal/config"
	"github.com/ledgerworks/conveyor/internal/dispatch"
	"github.com/ledgerworks/conveyor/internal/documents"
	"github.com/ledgerworks/conveyor/internal/runs"
)

// Domain holds all domain systems that comprise the API.
type Domain struct {
	Documents  documents.System
	Runs       runs.System
	Dispatcher runs.Dispatcher
}

// NewDomain creates all domain systems from the API runtime.
func NewDomain(cfg *config.Config, runtime *Runtime) *Domain {
	docsSystem := documents.NewSystem(
		runtime.Database.Connection(),
		runtime.Storage,
		runtime.Pagination,
		runtime.Logger,
	)

	runsSystem := runs.NewSystem(
		runtime.Database.Connection(),
		runtime.Pagination,
		runtime.Logger,
	)

	dispatcher := dispatch.New(
		runtime.Temporal.Client(),
		runsSystem,
		docsSystem,
		cfg.Pipeline,
		runtime.Logger,
	)

	return &Domain{
		Documents:  docsSystem,
		Runs:       runsSystem,
		Dispatcher: dispatcher,
	}
}
