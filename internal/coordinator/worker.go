package coordinator

import (
	"log/slog"

	"go.temporal.io/sdk/client"
	sdkworker "go.temporal.io/sdk/worker"

	"github.com/ledgerworks/conveyor/internal/config"
	"github.com/ledgerworks/conveyor/pkg/lifecycle"
)

// Worker hosts the pipeline workflow and its activities on the task queue,
// participating in coordinated startup and shutdown.
type Worker interface {
	Start(lc *lifecycle.Coordinator) error
}

type pipelineWorker struct {
	worker    sdkworker.Worker
	taskQueue string
	logger    *slog.Logger
}

// NewWorker registers the pipeline workflow and activities on a worker
// bound to the configured task queue.
func NewWorker(c client.Client, acts *Activities, cfg config.PipelineConfig, logger *slog.Logger) Worker {
	w := sdkworker.New(c, cfg.TaskQueue, sdkworker.Options{
		MaxConcurrentActivityExecutionSize: cfg.MaxConcurrentActivities,
	})
	w.RegisterWorkflow(Pipeline)
	w.RegisterActivity(acts)

	return &pipelineWorker{
		worker:    w,
		taskQueue: cfg.TaskQueue,
		logger:    logger.With("system", "worker"),
	}
}

// Start registers startup and shutdown hooks with the coordinator.
func (w *pipelineWorker) Start(lc *lifecycle.Coordinator) error {
	w.logger.Info("starting pipeline worker", "taskQueue", w.taskQueue)

	lc.OnStartup(func() {
		if err := w.worker.Start(); err != nil {
			w.logger.Error("failed to start pipeline worker", "error", err)
			return
		}
		w.logger.Info("pipeline worker started", "taskQueue", w.taskQueue)
	})

	lc.OnShutdown(func() {
		<-lc.Context().Done()
		w.worker.Stop()
		w.logger.Info("pipeline worker stopped")
	})

	return nil
}
