// Package temporal manages the Temporal client connection as a lifecycle-aware
// system. The client is created lazily so workers and dispatchers can be built
// against it before startup hooks run; connectivity is verified during startup.
package temporal

import (
	"fmt"
	"log/slog"

	"go.temporal.io/sdk/client"
	sdklog "go.temporal.io/sdk/log"

	"github.com/ledgerworks/conveyor/pkg/lifecycle"
)

// System exposes the Temporal client and participates in coordinated
// startup and shutdown.
type System interface {
	Client() client.Client
	Start(lc *lifecycle.Coordinator) error
}

type temporal struct {
	client    client.Client
	hostPort  string
	namespace string
	logger    *slog.Logger
}

// New creates the Temporal system for the server described by cfg. The
// connection is not established until first use; Start registers a health
// check that forces it.
func New(cfg *Config, logger *slog.Logger) (System, error) {
	log := logger.With("system", "temporal")

	c, err := client.NewLazyClient(client.Options{
		HostPort:  cfg.HostPort,
		Namespace: cfg.Namespace,
		Identity:  cfg.Identity,
		Logger:    sdklog.NewStructuredLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("create temporal client: %w", err)
	}

	return &temporal{
		client:    c,
		hostPort:  cfg.HostPort,
		namespace: cfg.Namespace,
		logger:    log,
	}, nil
}

func (t *temporal) Client() client.Client {
	return t.client
}

// Start registers startup and shutdown hooks with the coordinator.
func (t *temporal) Start(lc *lifecycle.Coordinator) error {
	t.logger.Info("starting temporal system",
		"hostPort", t.hostPort,
		"namespace", t.namespace,
	)

	lc.OnStartup(func() {
		if _, err := t.client.CheckHealth(lc.Context(), &client.CheckHealthRequest{}); err != nil {
			t.logger.Error("temporal health check failed", "error", err)
			return
		}

		t.logger.Info("temporal client connected",
			"hostPort", t.hostPort,
			"namespace", t.namespace,
		)
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		t.client.Close()
		t.logger.Info("temporal client closed")
	})

	return nil
}
