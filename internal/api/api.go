// Package api assembles the API module with all domain systems and route registration.
package api

import (
	"net/http"

	"github.com/ledgerworks/conveyor/internal/config"
	"github.com/ledgerworks/conveyor/internal/infrastructure"
	"github.com/ledgerworks/conveyor/pkg/middleware"
	"github.com/ledgerworks/conveyor/pkg/module"
)

// NewModule creates the API module with all domain handlers and middleware.
// The Domain is returned alongside so the caller can assemble a pipeline
// worker against the same systems.
func NewModule(cfg *config.Config, infra *infrastructure.Infrastructure) (*module.Module, *Domain) {
	runtime := NewRuntime(cfg, infra)
	domain := NewDomain(cfg, runtime)

	mux := http.NewServeMux()
	registerRoutes(mux, domain, cfg, runtime)

	m := module.New(cfg.API.BasePath, mux)
	m.Use(middleware.CORS(&cfg.API.CORS))
	m.Use(middleware.Logger(runtime.Logger))

	return m, domain
}
