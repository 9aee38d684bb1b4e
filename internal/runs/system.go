package runs

import (
	"context"
	"database/sql"
	"encoding/json"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ledgerworks/conveyor/pipeline"
	"github.com/ledgerworks/conveyor/pkg/pagination"
)

// System is the run persistence surface consumed by handlers, the
// dispatcher, and pipeline activities.
type System interface {
	Create(ctx context.Context, run Run) (Run, error)
	Get(ctx context.Context, id uuid.UUID) (Run, error)
	// GetByInputKey finds the run lineage for a content hash. There is at
	// most one run per input key; duplicate submissions resolve to it.
	GetByInputKey(ctx context.Context, inputKey string) (Run, error)
	List(ctx context.Context, filters Filters, page pagination.PageRequest) (pagination.PageResult[Run], error)
	Stats(ctx context.Context) (Stats, error)

	// UpdateProgress moves a non-terminal run to the given stage and status.
	UpdateProgress(ctx context.Context, id uuid.UUID, stage pipeline.Stage, status pipeline.Status) error
	SetNeedsReview(ctx context.Context, id uuid.UUID, needsReview bool) error
	// Finish marks a run terminal. A terminal run is never mutated again,
	// except by ResetForRetry reopening a failed one.
	Finish(ctx context.Context, id uuid.UUID, status pipeline.Status, errorSummary string) error
	// ResetForRetry reopens a failed run for a fresh attempt: stage pointer
	// back to the first stage, status queued, new workflow identifier,
	// error summary cleared. Prior stage results are kept as history.
	ResetForRetry(ctx context.Context, id uuid.UUID, attempt int, workflowID string) (Run, error)

	// BeginStage opens the next attempt of a stage for a run: it assigns
	// the attempt number, records a running StageResult, and advances the
	// run's stage pointer, all in one transaction.
	BeginStage(ctx context.Context, runID uuid.UUID, stage pipeline.Stage) (StageResult, error)
	CompleteStage(ctx context.Context, id uuid.UUID, state pipeline.StageState, errorCode, errorMessage string, payload json.RawMessage) error
	StageHistory(ctx context.Context, runID uuid.UUID) ([]StageResult, error)

	SaveResult(ctx context.Context, record ExtractionRecord) (ExtractionRecord, error)
	GetResult(ctx context.Context, runID uuid.UUID) (ExtractionRecord, error)
	// ApplyHeaderPatch overlays reviewer-supplied header fields onto the
	// run's extraction result before the export stage runs.
	ApplyHeaderPatch(ctx context.Context, runID uuid.UUID, patch map[string]string) error
	SetExportKey(ctx context.Context, runID uuid.UUID, exportKey string) error
}

// NewSystem creates the repository-backed runs System.
func NewSystem(db *sql.DB, pageCfg pagination.Config, logger *slog.Logger) System {
	return &repo{
		db:      db,
		pageCfg: pageCfg,
		logger:  logger.With("system", "runs"),
	}
}
