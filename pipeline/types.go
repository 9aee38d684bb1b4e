// Package pipeline defines the public contract of the Conveyor document
// pipeline: stage and status enumerations, signal and query names, and the
// input/result types exchanged with the durable coordinator. API clients and
// the operator CLI depend on this package without importing the coordinator
// implementation.
package pipeline

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
)

// TaskQueue is the durable-execution task queue all pipeline runs execute on.
const TaskQueue = "conveyor-pipeline"

// Signal names accepted by a running pipeline.
const (
	SignalReviewApproved = "review-approved"
	SignalCancel         = "cancel"
)

// Query names answerable by a running pipeline without blocking.
const (
	QueryStatus = "status"
	QueryStage  = "stage"
)

const workflowIDPrefix = "conveyor-run-"

// Stage identifies an ordered unit of pipeline work.
type Stage string

// Pipeline stages in execution order. Review is skipped automatically
// unless the validate stage flags the run for human review.
const (
	StageClassify Stage = "classify"
	StageParse    Stage = "parse"
	StageExtract  Stage = "extract"
	StageValidate Stage = "validate"
	StageReview   Stage = "review"
	StageExport   Stage = "export"
	StageDeliver  Stage = "deliver"
)

var stages = []Stage{
	StageClassify,
	StageParse,
	StageExtract,
	StageValidate,
	StageReview,
	StageExport,
	StageDeliver,
}

// Stages returns the pipeline stages in execution order.
func Stages() []Stage {
	return slices.Clone(stages)
}

// Index returns the stage's position in execution order, or -1 for an
// unknown stage. Stage indices are non-decreasing over a run's history.
func (s Stage) Index() int {
	return slices.Index(stages, s)
}

// ParseStage validates a string as a known pipeline stage.
func ParseStage(s string) (Stage, error) {
	v := Stage(s)
	if v.Index() < 0 {
		return "", fmt.Errorf("unknown pipeline stage: %q", s)
	}
	return v, nil
}

// Status is the coarse state of a pipeline run.
type Status string

// Run statuses. A run is suspended only while awaiting the human-review
// gate; succeeded, failed, and cancelled are terminal.
const (
	StatusQueued    Status = "queued"
	StatusRunning   Status = "running"
	StatusSuspended Status = "suspended"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

var statuses = []Status{
	StatusQueued,
	StatusRunning,
	StatusSuspended,
	StatusSucceeded,
	StatusFailed,
	StatusCancelled,
}

// Statuses returns all run statuses.
func Statuses() []Status {
	return slices.Clone(statuses)
}

// Terminal reports whether the status ends a run.
func (s Status) Terminal() bool {
	return s == StatusSucceeded || s == StatusFailed || s == StatusCancelled
}

// ParseStatus validates a string as a known run status.
func ParseStatus(s string) (Status, error) {
	v := Status(s)
	if !slices.Contains(statuses, v) {
		return "", fmt.Errorf("unknown run status: %q", s)
	}
	return v, nil
}

// StageState is the state of a single stage attempt.
type StageState string

// Stage attempt states.
const (
	StageStateRunning   StageState = "running"
	StageStateSucceeded StageState = "succeeded"
	StageStateFailed    StageState = "failed"
	StageStateSkipped   StageState = "skipped"
)

// RunInput starts one pipeline run. InputKey is the submission's natural
// idempotency key (the source document's content hash); Attempt is 0 for an
// original submission and increments for each operator retry.
type RunInput struct {
	RunID      uuid.UUID `json:"run_id"`
	DocumentID uuid.UUID `json:"document_id"`
	InputKey   string    `json:"input_key"`
	Attempt    int       `json:"attempt"`
}

// ReviewDecision approves a suspended run, optionally patching header
// fields before the export stage runs.
type ReviewDecision struct {
	ApprovedBy  string            `json:"approved_by"`
	Note        string            `json:"note,omitempty"`
	HeaderPatch map[string]string `json:"header_patch,omitempty"`
}

// Progress is the queryable in-memory state of a running pipeline.
type Progress struct {
	Status       Status    `json:"status"`
	Stage        Stage     `json:"stage"`
	DocumentID   uuid.UUID `json:"document_id"`
	ChunkCount   int       `json:"chunk_count"`
	FailedChunks int       `json:"failed_chunks"`
	NeedsReview  bool      `json:"needs_review"`
	Error        string    `json:"error,omitempty"`
}

// RunResult is the final output of a pipeline run.
type RunResult struct {
	RunID        uuid.UUID `json:"run_id"`
	DocumentID   uuid.UUID `json:"document_id"`
	Status       Status    `json:"status"`
	Stage        Stage     `json:"stage"`
	ChunkCount   int       `json:"chunk_count"`
	FailedChunks int       `json:"failed_chunks"`
	LineItems    int       `json:"line_items"`
	Confidence   float64   `json:"confidence"`
	ExportKey    string    `json:"export_key,omitempty"`
	Duration     float64   `json:"duration_seconds"`
	FinishedAt   time.Time `json:"finished_at"`
}

// WorkflowID derives the durable workflow identifier for an input key.
// Duplicate submissions for the same key collapse onto one workflow.
func WorkflowID(inputKey string) string {
	return workflowIDPrefix + inputKey
}

// RetryWorkflowID derives a retry's workflow identifier. Retries carry a
// distinct identifier so they are distinguishable from the original run
// while remaining traceable to the input key.
func RetryWorkflowID(inputKey string, attempt int) string {
	return fmt.Sprintf("%s%s-r%d", workflowIDPrefix, inputKey, attempt)
}
