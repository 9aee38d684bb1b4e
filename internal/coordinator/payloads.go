package coordinator

import (
	"errors"

	"github.com/google/uuid"
	"go.temporal.io/sdk/temporal"

	"github.com/ledgerworks/conveyor/internal/chunking"
	"github.com/ledgerworks/conveyor/internal/extraction"
	"github.com/ledgerworks/conveyor/pipeline"
)

// Semantic error codes recorded on failed stage results and carried as the
// application error type on stage-fatal failures.
const (
	ErrCodeNotInvoice      = "not_invoice"
	ErrCodeBudgetTooSmall  = "budget_too_small"
	ErrCodeAllChunksFailed = "all_chunks_failed"
	ErrCodeSchemaInvalid   = "schema_invalid"
	ErrCodeCancelled       = "cancelled"
	ErrCodeInternal        = "internal"
)

// ErrorCode extracts the semantic error code from a stage failure, falling
// back to internal for untyped errors.
func ErrorCode(err error) string {
	var appErr *temporal.ApplicationError
	if errors.As(err, &appErr) && appErr.Type() != "" {
		return appErr.Type()
	}
	return ErrCodeInternal
}

// StartRunInput opens a run: marks it running unless its document already
// completed a prior run.
type StartRunInput struct {
	RunID      uuid.UUID `json:"runId"`
	DocumentID uuid.UUID `json:"documentId"`
	Attempt    int       `json:"attempt"`
}

type StartRunOutput struct {
	AlreadyProcessed bool `json:"alreadyProcessed"`
}

type BeginStageInput struct {
	RunID uuid.UUID      `json:"runId"`
	Stage pipeline.Stage `json:"stage"`
}

type BeginStageOutput struct {
	StageResultID uuid.UUID `json:"stageResultId"`
	Attempt       int       `json:"attempt"`
}

type CompleteStageInput struct {
	StageResultID uuid.UUID           `json:"stageResultId"`
	State         pipeline.StageState `json:"state"`
	ErrorCode     string              `json:"errorCode,omitempty"`
	ErrorMessage  string              `json:"errorMessage,omitempty"`
	Payload       []byte              `json:"payload,omitempty"`
}

// SkipStageInput records a stage the run never executed, currently only the
// review stage when validation raises no flags.
type SkipStageInput struct {
	RunID uuid.UUID      `json:"runId"`
	Stage pipeline.Stage `json:"stage"`
}

type ClassifyInput struct {
	RunID      uuid.UUID `json:"runId"`
	DocumentID uuid.UUID `json:"documentId"`
}

// ClassifyOutput doubles as the classify stage's persisted payload.
type ClassifyOutput struct {
	DocumentType string  `json:"documentType"`
	Confidence   float64 `json:"confidence"`
	PagesRead    int     `json:"pagesRead"`
}

type PlanChunksInput struct {
	RunID      uuid.UUID `json:"runId"`
	DocumentID uuid.UUID `json:"documentId"`
}

// PlanChunksOutput doubles as the parse stage's persisted payload. A single
// whole-document chunk means the document fit the context budget without
// splitting.
type PlanChunksOutput struct {
	PageCount int              `json:"pageCount"`
	Chunks    []chunking.Chunk `json:"chunks"`
}

type ExtractChunksInput struct {
	RunID      uuid.UUID        `json:"runId"`
	DocumentID uuid.UUID        `json:"documentId"`
	Chunks     []chunking.Chunk `json:"chunks"`
}

type ExtractChunksOutput struct {
	Outcomes []extraction.ChunkOutcome `json:"outcomes"`
}

type MergeOutcomesInput struct {
	RunID      uuid.UUID                 `json:"runId"`
	DocumentID uuid.UUID                 `json:"documentId"`
	Outcomes   []extraction.ChunkOutcome `json:"outcomes"`
}

// MergeOutcomesOutput doubles as the extract stage's persisted payload.
type MergeOutcomesOutput struct {
	ChunkCount    int      `json:"chunkCount"`
	FailedChunks  int      `json:"failedChunks"`
	LineItems     int      `json:"lineItems"`
	Confidence    float64  `json:"confidence"`
	MissingFields []string `json:"missingFields,omitempty"`
}

type ValidateInput struct {
	RunID uuid.UUID `json:"runId"`
}

// ValidateOutput doubles as the validate stage's persisted payload.
type ValidateOutput struct {
	NeedsReview   bool     `json:"needsReview"`
	Confidence    float64  `json:"confidence"`
	FailedChunks  int      `json:"failedChunks"`
	MissingFields []string `json:"missingFields,omitempty"`
}

type SuspendRunInput struct {
	RunID uuid.UUID `json:"runId"`
}

type ResumeRunInput struct {
	RunID    uuid.UUID               `json:"runId"`
	Decision pipeline.ReviewDecision `json:"decision"`
}

// ReviewPayload is the review stage's persisted payload.
type ReviewPayload struct {
	ApprovedBy    string `json:"approvedBy"`
	Note          string `json:"note,omitempty"`
	PatchedFields int    `json:"patchedFields"`
}

type ExportInput struct {
	RunID      uuid.UUID `json:"runId"`
	DocumentID uuid.UUID `json:"documentId"`
}

// ExportOutput doubles as the export stage's persisted payload.
type ExportOutput struct {
	ExportKey string `json:"exportKey"`
	ByteSize  int    `json:"byteSize"`
}

type DeliverInput struct {
	RunID      uuid.UUID `json:"runId"`
	DocumentID uuid.UUID `json:"documentId"`
	ExportKey  string    `json:"exportKey"`
}

// DeliverOutput doubles as the deliver stage's persisted payload.
type DeliverOutput struct {
	ExportKey string `json:"exportKey"`
	FileName  string `json:"fileName"`
}

type FinishRunInput struct {
	RunID        uuid.UUID       `json:"runId"`
	DocumentID   uuid.UUID       `json:"documentId"`
	Status       pipeline.Status `json:"status"`
	ErrorSummary string          `json:"errorSummary,omitempty"`
}
