// Package dispatch submits, retries, and signals pipeline runs against the
// durable-execution substrate, enforcing one run per document content hash.
package dispatch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	enumspb "go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	"go.temporal.io/sdk/client"
	"go.temporal.io/sdk/converter"

	"github.com/ledgerworks/conveyor/internal/config"
	"github.com/ledgerworks/conveyor/internal/coordinator"
	"github.com/ledgerworks/conveyor/internal/documents"
	"github.com/ledgerworks/conveyor/internal/runs"
	"github.com/ledgerworks/conveyor/pipeline"
	"github.com/ledgerworks/conveyor/pkg/repository"
)

// Client is the slice of the durable-execution client the dispatcher uses.
type Client interface {
	ExecuteWorkflow(ctx context.Context, options client.StartWorkflowOptions, workflow any, args ...any) (client.WorkflowRun, error)
	SignalWorkflow(ctx context.Context, workflowID, runID, signalName string, arg any) error
	QueryWorkflow(ctx context.Context, workflowID, runID, queryType string, args ...any) (converter.EncodedValue, error)
}

type dispatcher struct {
	client    Client
	runs      runs.System
	documents documents.System
	taskQueue string
	logger    *slog.Logger
}

// New creates the dispatcher serving the run operations.
func New(c Client, run runs.System, docs documents.System, cfg config.PipelineConfig, logger *slog.Logger) runs.Dispatcher {
	return &dispatcher{
		client:    c,
		runs:      run,
		documents: docs,
		taskQueue: cfg.TaskQueue,
		logger:    logger.With("system", "dispatch"),
	}
}

// Submit starts a pipeline run for the document, or resolves to the existing
// run when the same content was submitted before.
func (d *dispatcher) Submit(ctx context.Context, documentID uuid.UUID) (runs.Run, error) {
	document, err := d.documents.Get(ctx, documentID)
	if err != nil {
		return runs.Run{}, err
	}

	existing, err := d.runs.GetByInputKey(ctx, document.ContentHash)
	switch {
	case err == nil:
		return d.resume(ctx, existing)
	case !errors.Is(err, runs.ErrNotFound):
		return runs.Run{}, err
	}

	run, err := d.runs.Create(ctx, runs.Run{
		ID:         uuid.New(),
		DocumentID: document.ID,
		InputKey:   document.ContentHash,
		WorkflowID: pipeline.WorkflowID(document.ContentHash),
		Stage:      pipeline.StageClassify,
		Status:     pipeline.StatusQueued,
	})
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// Lost a concurrent submission race; resolve to the winner.
			winner, err := d.runs.GetByInputKey(ctx, document.ContentHash)
			if err != nil {
				return runs.Run{}, err
			}
			return d.resume(ctx, winner)
		}
		return runs.Run{}, err
	}

	if err := d.start(ctx, run); err != nil {
		return runs.Run{}, err
	}
	return run, nil
}

// Retry reopens a failed run and submits it under a fresh workflow
// identifier. The new attempt reuses the run row; prior stage results stay
// in place as history.
func (d *dispatcher) Retry(ctx context.Context, runID uuid.UUID) (runs.Run, error) {
	run, err := d.runs.Get(ctx, runID)
	if err != nil {
		return runs.Run{}, err
	}
	if run.Status != pipeline.StatusFailed {
		return runs.Run{}, runs.ErrNotFailed
	}

	attempt := run.Attempt + 1
	run, err = d.runs.ResetForRetry(ctx, runID, attempt, pipeline.RetryWorkflowID(run.InputKey, attempt))
	if err != nil {
		return runs.Run{}, err
	}

	if err := d.start(ctx, run); err != nil {
		return runs.Run{}, err
	}
	return run, nil
}

// Approve signals a suspended run that its review was approved.
func (d *dispatcher) Approve(ctx context.Context, runID uuid.UUID, decision pipeline.ReviewDecision) error {
	run, err := d.runs.Get(ctx, runID)
	if err != nil {
		return err
	}
	if run.Status != pipeline.StatusSuspended {
		return runs.ErrNotSuspended
	}

	if err := d.client.SignalWorkflow(ctx, run.WorkflowID, "", pipeline.SignalReviewApproved, decision); err != nil {
		return fmt.Errorf("failed to signal review approval: %w", err)
	}

	d.logger.Info("review approved",
		"runId", runID,
		"approvedBy", decision.ApprovedBy,
		"patchedFields", len(decision.HeaderPatch),
	)
	return nil
}

// Cancel requests cooperative cancellation of a non-terminal run.
func (d *dispatcher) Cancel(ctx context.Context, runID uuid.UUID) error {
	run, err := d.runs.Get(ctx, runID)
	if err != nil {
		return err
	}
	if run.Terminal() {
		return runs.ErrTerminal
	}

	err = d.client.SignalWorkflow(ctx, run.WorkflowID, "", pipeline.SignalCancel, nil)
	if err != nil {
		var notFound *serviceerror.NotFound
		if errors.As(err, &notFound) {
			// The workflow never started or its history is gone; settle the
			// run directly so it cannot dangle as cancellable forever.
			if err := d.runs.Finish(ctx, runID, pipeline.StatusCancelled, ""); err != nil {
				return err
			}
			d.logger.Info("run cancelled without live workflow", "runId", runID)
			return nil
		}
		return fmt.Errorf("failed to signal cancellation: %w", err)
	}

	d.logger.Info("cancellation requested", "runId", runID)
	return nil
}

// Progress reports a run's current status, preferring the live workflow
// query and falling back to the persisted row when the workflow is gone.
func (d *dispatcher) Progress(ctx context.Context, runID uuid.UUID) (pipeline.Progress, error) {
	run, err := d.runs.Get(ctx, runID)
	if err != nil {
		return pipeline.Progress{}, err
	}
	if run.Terminal() {
		return progressFromRun(run), nil
	}

	value, err := d.client.QueryWorkflow(ctx, run.WorkflowID, "", pipeline.QueryStatus)
	if err != nil {
		d.logger.Warn("workflow query failed, serving persisted progress",
			"runId", runID,
			"error", err,
		)
		return progressFromRun(run), nil
	}

	var progress pipeline.Progress
	if err := value.Get(&progress); err != nil {
		return pipeline.Progress{}, fmt.Errorf("failed to decode workflow progress: %w", err)
	}
	return progress, nil
}

// resume resolves a duplicate submission to the existing run. Non-terminal
// runs get their workflow start re-issued, which attaches to the running
// execution or revives one that never started.
func (d *dispatcher) resume(ctx context.Context, run runs.Run) (runs.Run, error) {
	if run.Terminal() {
		return run, nil
	}
	if err := d.start(ctx, run); err != nil {
		return runs.Run{}, err
	}
	return run, nil
}

func (d *dispatcher) start(ctx context.Context, run runs.Run) error {
	options := client.StartWorkflowOptions{
		ID:                    run.WorkflowID,
		TaskQueue:             d.taskQueue,
		WorkflowIDReusePolicy: enumspb.WORKFLOW_ID_REUSE_POLICY_ALLOW_DUPLICATE_FAILED_ONLY,
	}
	input := pipeline.RunInput{
		RunID:      run.ID,
		DocumentID: run.DocumentID,
		InputKey:   run.InputKey,
		Attempt:    run.Attempt,
	}

	execution, err := d.client.ExecuteWorkflow(ctx, options, coordinator.Pipeline, input)
	if err != nil {
		return fmt.Errorf("failed to start pipeline workflow %s: %w", run.WorkflowID, err)
	}

	d.logger.Info("pipeline workflow started",
		"runId", run.ID,
		"workflowId", run.WorkflowID,
		"executionRunId", execution.GetRunID(),
		"attempt", run.Attempt,
	)
	return nil
}

// progressFromRun derives coarse progress from the persisted run row, used
// for terminal runs and when the live workflow cannot be queried.
func progressFromRun(run runs.Run) pipeline.Progress {
	return pipeline.Progress{
		Status:      run.Status,
		Stage:       run.Stage,
		DocumentID:  run.DocumentID,
		NeedsReview: run.NeedsReview,
		Error:       run.ErrorSummary,
	}
}
