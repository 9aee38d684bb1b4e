// Package runs persists pipeline runs, their per-stage attempt history, and
// the extraction results they produce, and serves the run endpoints.
package runs

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/ledgerworks/conveyor/internal/extraction"
	"github.com/ledgerworks/conveyor/pipeline"
)

// Run is one document's journey through the pipeline. Runs are never
// deleted, only marked terminal.
type Run struct {
	ID           uuid.UUID       `json:"id"`
	DocumentID   uuid.UUID       `json:"documentId"`
	InputKey     string          `json:"inputKey"`
	WorkflowID   string          `json:"workflowId"`
	Attempt      int             `json:"attempt"`
	Stage        pipeline.Stage  `json:"stage"`
	Status       pipeline.Status `json:"status"`
	NeedsReview  bool            `json:"needsReview"`
	ErrorSummary string          `json:"errorSummary,omitempty"`
	CreatedAt    time.Time       `json:"createdAt"`
	FinishedAt   *time.Time      `json:"finishedAt,omitempty"`
}

// Terminal reports whether the run has reached a final status.
func (r Run) Terminal() bool {
	return r.Status.Terminal()
}

// StageResult is the outcome of one stage attempt within a run. Attempts
// are numbered from 1 and strictly increase per (run, stage).
type StageResult struct {
	ID           uuid.UUID           `json:"id"`
	RunID        uuid.UUID           `json:"runId"`
	Stage        pipeline.Stage      `json:"stage"`
	Attempt      int                 `json:"attempt"`
	State        pipeline.StageState `json:"state"`
	ErrorCode    string              `json:"errorCode,omitempty"`
	ErrorMessage string              `json:"errorMessage,omitempty"`
	Payload      json.RawMessage     `json:"payload,omitempty"`
	StartedAt    time.Time           `json:"startedAt"`
	FinishedAt   *time.Time          `json:"finishedAt,omitempty"`
}

// ExtractionRecord is the persisted document-level extraction result. At
// most one record exists per run; a retry's merge replaces the previous
// attempt's record.
type ExtractionRecord struct {
	ID         uuid.UUID         `json:"id"`
	RunID      uuid.UUID         `json:"runId"`
	DocumentID uuid.UUID         `json:"documentId"`
	Merged     extraction.Merged `json:"merged"`
	ExportKey  string            `json:"exportKey,omitempty"`
	CreatedAt  time.Time         `json:"createdAt"`
}

// Stats summarize runs by status and stage.
type Stats struct {
	Total    int            `json:"total"`
	ByStatus map[string]int `json:"byStatus"`
	ByStage  map[string]int `json:"byStage"`
}

// ExportContentType is the MIME type rendered workbooks are stored and
// served with.
const ExportContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ExportKey returns the storage key a run's workbook is delivered under.
func ExportKey(runID uuid.UUID) string {
	return fmt.Sprintf("exports/%s.xlsx", runID)
}

// ExportFileName returns the download name for a run's workbook.
func ExportFileName(runID uuid.UUID) string {
	return fmt.Sprintf("invoice-%s.xlsx", runID)
}
