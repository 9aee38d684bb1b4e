// Package coordinator implements the durable invoice pipeline: a Temporal
// workflow that walks one document through classify, parse, extract,
// validate, review, export, and deliver, plus the activities those stages
// execute. The pipeline package defines the public contract; this package
// is imported only by the worker and the dispatcher.
package coordinator

import (
	"encoding/json"
	"fmt"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"

	"github.com/ledgerworks/conveyor/internal/extraction"
	"github.com/ledgerworks/conveyor/pipeline"
)

// Activity timeout classes.
const (
	stateActivityTimeout    = 30 * time.Second
	modelActivityTimeout    = 3 * time.Minute
	extractActivityTimeout  = 30 * time.Minute
	extractHeartbeatTimeout = 5 * time.Minute
	exportActivityTimeout   = 5 * time.Minute
)

// Pipeline runs one document through the invoice pipeline. Cancellation is
// cooperative: the cancel signal is observed at stage boundaries and during
// the review wait, never mid-stage, so an in-flight model call always runs
// to completion.
func Pipeline(ctx workflow.Context, input pipeline.RunInput) (*pipeline.RunResult, error) {
	logger := workflow.GetLogger(ctx)
	start := workflow.Now(ctx)

	progress := &pipeline.Progress{
		Status:     pipeline.StatusQueued,
		Stage:      pipeline.StageClassify,
		DocumentID: input.DocumentID,
	}

	err := workflow.SetQueryHandler(ctx, pipeline.QueryStatus, func() (*pipeline.Progress, error) {
		return progress, nil
	})
	if err != nil {
		logger.Error("failed to register status query handler", "error", err)
		return nil, fmt.Errorf("register status query handler: %w", err)
	}
	err = workflow.SetQueryHandler(ctx, pipeline.QueryStage, func() (string, error) {
		return string(progress.Stage), nil
	})
	if err != nil {
		logger.Error("failed to register stage query handler", "error", err)
		return nil, fmt.Errorf("register stage query handler: %w", err)
	}

	var cancelRequested bool
	cancelCh := workflow.GetSignalChannel(ctx, pipeline.SignalCancel)
	workflow.Go(ctx, func(gCtx workflow.Context) {
		cancelCh.Receive(gCtx, nil)
		logger.Info("received cancel signal")
		cancelRequested = true
	})

	var decision *pipeline.ReviewDecision
	reviewCh := workflow.GetSignalChannel(ctx, pipeline.SignalReviewApproved)
	workflow.Go(ctx, func(gCtx workflow.Context) {
		var d pipeline.ReviewDecision
		reviewCh.Receive(gCtx, &d)
		logger.Info("received review approval", "approvedBy", d.ApprovedBy)
		decision = &d
	})

	var acts *Activities

	stateCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: stateActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    500 * time.Millisecond,
			BackoffCoefficient: 2.0,
			MaximumInterval:    10 * time.Second,
			MaximumAttempts:    5,
		},
	})

	modelCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: modelActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    1 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    3,
		},
	})

	extractCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: extractActivityTimeout,
		HeartbeatTimeout:    extractHeartbeatTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    1 * time.Minute,
			MaximumAttempts:    3,
		},
	})

	exportCtx := workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: exportActivityTimeout,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    2 * time.Second,
			BackoffCoefficient: 2.0,
			MaximumInterval:    1 * time.Minute,
			MaximumAttempts:    3,
		},
	})

	// runStage brackets a stage body with its attempt bookkeeping: open the
	// attempt, run the body, close the attempt with the body's payload or
	// failure code.
	runStage := func(stage pipeline.Stage, body func() (any, error)) error {
		progress.Stage = stage

		var begin BeginStageOutput
		err := workflow.ExecuteActivity(stateCtx, acts.BeginStage, BeginStageInput{
			RunID: input.RunID,
			Stage: stage,
		}).Get(ctx, &begin)
		if err != nil {
			return fmt.Errorf("begin %s stage: %w", stage, err)
		}

		payload, stageErr := body()

		var raw []byte
		if payload != nil {
			raw, _ = json.Marshal(payload)
		}

		complete := CompleteStageInput{
			StageResultID: begin.StageResultID,
			State:         pipeline.StageStateSucceeded,
			Payload:       raw,
		}
		if stageErr != nil {
			complete.State = pipeline.StageStateFailed
			complete.ErrorCode = ErrorCode(stageErr)
			complete.ErrorMessage = stageErr.Error()
		}

		err = workflow.ExecuteActivity(stateCtx, acts.CompleteStage, complete).Get(ctx, nil)
		if stageErr != nil {
			return stageErr
		}
		if err != nil {
			return fmt.Errorf("complete %s stage: %w", stage, err)
		}
		return nil
	}

	handleFailure := func(cause error) (*pipeline.RunResult, error) {
		logger.Error("pipeline failed", "stage", progress.Stage, "error", cause)
		progress.Status = pipeline.StatusFailed
		progress.Error = cause.Error()

		_ = workflow.ExecuteActivity(stateCtx, acts.FinishRun, FinishRunInput{
			RunID:        input.RunID,
			DocumentID:   input.DocumentID,
			Status:       pipeline.StatusFailed,
			ErrorSummary: cause.Error(),
		}).Get(ctx, nil)

		return nil, cause
	}

	var lineItems int
	var confidence float64
	var exportKey string

	finish := func(status pipeline.Status) (*pipeline.RunResult, error) {
		progress.Status = status

		err := workflow.ExecuteActivity(stateCtx, acts.FinishRun, FinishRunInput{
			RunID:      input.RunID,
			DocumentID: input.DocumentID,
			Status:     status,
		}).Get(ctx, nil)
		if err != nil {
			return handleFailure(fmt.Errorf("finish run: %w", err))
		}

		now := workflow.Now(ctx)
		return &pipeline.RunResult{
			RunID:        input.RunID,
			DocumentID:   input.DocumentID,
			Status:       status,
			Stage:        progress.Stage,
			ChunkCount:   progress.ChunkCount,
			FailedChunks: progress.FailedChunks,
			LineItems:    lineItems,
			Confidence:   confidence,
			ExportKey:    exportKey,
			Duration:     now.Sub(start).Seconds(),
			FinishedAt:   now,
		}, nil
	}

	finishCancelled := func() (*pipeline.RunResult, error) {
		logger.Info("pipeline cancelled", "stage", progress.Stage)
		return finish(pipeline.StatusCancelled)
	}

	logger.Info("pipeline started",
		"run", input.RunID,
		"document", input.DocumentID,
		"attempt", input.Attempt,
	)

	var started StartRunOutput
	err = workflow.ExecuteActivity(stateCtx, acts.StartRun, StartRunInput{
		RunID:      input.RunID,
		DocumentID: input.DocumentID,
		Attempt:    input.Attempt,
	}).Get(ctx, &started)
	if err != nil {
		return handleFailure(fmt.Errorf("start run: %w", err))
	}

	if started.AlreadyProcessed {
		logger.Info("document already processed, completing without stages")
		return finish(pipeline.StatusSucceeded)
	}

	progress.Status = pipeline.StatusRunning

	if cancelRequested {
		return finishCancelled()
	}
	err = runStage(pipeline.StageClassify, func() (any, error) {
		var out ClassifyOutput
		err := workflow.ExecuteActivity(modelCtx, acts.ClassifyDocument, ClassifyInput{
			RunID:      input.RunID,
			DocumentID: input.DocumentID,
		}).Get(ctx, &out)
		if err != nil {
			return nil, err
		}
		if out.DocumentType != extraction.DocTypeInvoice {
			return out, temporal.NewApplicationError(
				fmt.Sprintf("document classified as %q, not an invoice", out.DocumentType),
				ErrCodeNotInvoice,
			)
		}
		return out, nil
	})
	if err != nil {
		return handleFailure(err)
	}

	var plan PlanChunksOutput
	if cancelRequested {
		return finishCancelled()
	}
	err = runStage(pipeline.StageParse, func() (any, error) {
		err := workflow.ExecuteActivity(stateCtx, acts.PlanChunks, PlanChunksInput{
			RunID:      input.RunID,
			DocumentID: input.DocumentID,
		}).Get(ctx, &plan)
		if err != nil {
			return nil, err
		}
		return plan, nil
	})
	if err != nil {
		return handleFailure(err)
	}

	var merged MergeOutcomesOutput
	if cancelRequested {
		return finishCancelled()
	}
	err = runStage(pipeline.StageExtract, func() (any, error) {
		var extracted ExtractChunksOutput
		err := workflow.ExecuteActivity(extractCtx, acts.ExtractChunks, ExtractChunksInput{
			RunID:      input.RunID,
			DocumentID: input.DocumentID,
			Chunks:     plan.Chunks,
		}).Get(ctx, &extracted)
		if err != nil {
			return nil, err
		}

		failed := 0
		for _, outcome := range extracted.Outcomes {
			if !outcome.Succeeded() {
				failed++
			}
		}
		progress.ChunkCount = len(extracted.Outcomes)
		progress.FailedChunks = failed

		if failed == len(extracted.Outcomes) {
			return nil, temporal.NewApplicationError(
				fmt.Sprintf("all %d chunks failed extraction", failed),
				ErrCodeAllChunksFailed,
			)
		}

		err = workflow.ExecuteActivity(stateCtx, acts.MergeOutcomes, MergeOutcomesInput{
			RunID:      input.RunID,
			DocumentID: input.DocumentID,
			Outcomes:   extracted.Outcomes,
		}).Get(ctx, &merged)
		if err != nil {
			return nil, err
		}

		lineItems = merged.LineItems
		confidence = merged.Confidence
		return merged, nil
	})
	if err != nil {
		return handleFailure(err)
	}

	var validated ValidateOutput
	if cancelRequested {
		return finishCancelled()
	}
	err = runStage(pipeline.StageValidate, func() (any, error) {
		err := workflow.ExecuteActivity(stateCtx, acts.ValidateExtraction, ValidateInput{
			RunID: input.RunID,
		}).Get(ctx, &validated)
		if err != nil {
			return nil, err
		}
		progress.NeedsReview = validated.NeedsReview
		return validated, nil
	})
	if err != nil {
		return handleFailure(err)
	}

	if cancelRequested {
		return finishCancelled()
	}
	if validated.NeedsReview {
		err = runStage(pipeline.StageReview, func() (any, error) {
			err := workflow.ExecuteActivity(stateCtx, acts.SuspendRun, SuspendRunInput{
				RunID: input.RunID,
			}).Get(ctx, nil)
			if err != nil {
				return nil, err
			}

			progress.Status = pipeline.StatusSuspended
			logger.Info("run suspended awaiting review",
				"confidence", validated.Confidence,
				"failedChunks", validated.FailedChunks,
			)

			err = workflow.Await(ctx, func() bool {
				return decision != nil || cancelRequested
			})
			if err != nil || cancelRequested {
				return nil, temporal.NewApplicationError("cancelled while awaiting review", ErrCodeCancelled)
			}

			err = workflow.ExecuteActivity(stateCtx, acts.ResumeRun, ResumeRunInput{
				RunID:    input.RunID,
				Decision: *decision,
			}).Get(ctx, nil)
			if err != nil {
				return nil, err
			}

			progress.Status = pipeline.StatusRunning
			return ReviewPayload{
				ApprovedBy:    decision.ApprovedBy,
				Note:          decision.Note,
				PatchedFields: len(decision.HeaderPatch),
			}, nil
		})
		if err != nil {
			if ErrorCode(err) == ErrCodeCancelled {
				return finishCancelled()
			}
			return handleFailure(err)
		}
	} else {
		err = workflow.ExecuteActivity(stateCtx, acts.SkipStage, SkipStageInput{
			RunID: input.RunID,
			Stage: pipeline.StageReview,
		}).Get(ctx, nil)
		if err != nil {
			return handleFailure(fmt.Errorf("skip review stage: %w", err))
		}
		progress.Stage = pipeline.StageReview
		logger.Info("review not required, skipping")
	}

	var exported ExportOutput
	if cancelRequested {
		return finishCancelled()
	}
	err = runStage(pipeline.StageExport, func() (any, error) {
		err := workflow.ExecuteActivity(exportCtx, acts.ExportWorkbook, ExportInput{
			RunID:      input.RunID,
			DocumentID: input.DocumentID,
		}).Get(ctx, &exported)
		if err != nil {
			return nil, err
		}
		exportKey = exported.ExportKey
		return exported, nil
	})
	if err != nil {
		return handleFailure(err)
	}

	if cancelRequested {
		return finishCancelled()
	}
	err = runStage(pipeline.StageDeliver, func() (any, error) {
		var delivered DeliverOutput
		err := workflow.ExecuteActivity(exportCtx, acts.DeliverExport, DeliverInput{
			RunID:      input.RunID,
			DocumentID: input.DocumentID,
			ExportKey:  exported.ExportKey,
		}).Get(ctx, &delivered)
		if err != nil {
			return nil, err
		}
		return delivered, nil
	})
	if err != nil {
		return handleFailure(err)
	}

	result, err := finish(pipeline.StatusSucceeded)
	if err != nil {
		return nil, err
	}

	logger.Info("pipeline completed",
		"run", input.RunID,
		"chunks", result.ChunkCount,
		"failedChunks", result.FailedChunks,
		"lineItems", result.LineItems,
		"confidence", result.Confidence,
		"duration", result.Duration,
	)
	return result, nil
}
