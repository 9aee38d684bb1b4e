package api

import (
	"net/http"

	"github.com/ledgerworks/conveyor/internal/config"
	"github.com/ledgerworks/conveyor/internal/documents"
	"github.com/ledgerworks/conveyor/internal/runs"
	"github.com/ledgerworks/conveyor/pkg/openapi"
	"github.com/ledgerworks/conveyor/pkg/routes"
)

func registerRoutes(
	mux *http.ServeMux,
	domain *Domain,
	cfg *config.Config,
	runtime *Runtime,
) {
	routes.Register(
		mux,
		documents.NewHandler(domain.Documents, cfg.API, runtime.Logger).Routes(),
		runs.NewHandler(domain.Runs, domain.Dispatcher, runtime.Storage, cfg.API, runtime.Logger).Routes(),
		newStorageHandler(runtime.Storage, runtime.Logger).routes(),
	)

	mux.HandleFunc("GET /openapi.json", openapi.ServeSpec(apiSpec(cfg)))
}
