package coordinator

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"go.temporal.io/sdk/temporal"
	"golang.org/x/sync/errgroup"

	"github.com/ledgerworks/conveyor/internal/chunking"
	"github.com/ledgerworks/conveyor/internal/config"
	"github.com/ledgerworks/conveyor/internal/documents"
	"github.com/ledgerworks/conveyor/internal/export"
	"github.com/ledgerworks/conveyor/internal/extraction"
	"github.com/ledgerworks/conveyor/internal/prompts"
	"github.com/ledgerworks/conveyor/internal/runs"
	"github.com/ledgerworks/conveyor/pipeline"
	"github.com/ledgerworks/conveyor/pkg/repository"
	"github.com/ledgerworks/conveyor/pkg/storage"
)

// Activities host the pipeline's side effects: persistence, blob transfer,
// model calls, and workbook rendering. Every method is registered as a
// Temporal activity and must tolerate at-least-once execution.
type Activities struct {
	documents documents.System
	runs      runs.System
	storage   storage.System
	extractor extraction.Extractor
	validator *extraction.Validator
	workbook  *export.Workbook
	config    config.ExtractionConfig
	logger    *slog.Logger
}

// NewActivities wires the pipeline activities against their collaborators.
func NewActivities(
	docs documents.System,
	runSystem runs.System,
	store storage.System,
	extractor extraction.Extractor,
	validator *extraction.Validator,
	workbook *export.Workbook,
	cfg config.ExtractionConfig,
	logger *slog.Logger,
) *Activities {
	return &Activities{
		documents: docs,
		runs:      runSystem,
		storage:   store,
		extractor: extractor,
		validator: validator,
		workbook:  workbook,
		config:    cfg,
		logger:    logger.With("system", "coordinator"),
	}
}

// StartRun marks the run running, or reports that the document already
// completed a prior run so the workflow can short-circuit. Retries of a
// failed run carry Attempt > 0 and always re-process.
func (a *Activities) StartRun(ctx context.Context, input StartRunInput) (*StartRunOutput, error) {
	document, err := a.documents.Get(ctx, input.DocumentID)
	if err != nil {
		return nil, err
	}

	if document.Processed() && input.Attempt == 0 {
		a.logger.Info("document already processed, short-circuiting",
			"run", input.RunID,
			"document", input.DocumentID,
		)
		return &StartRunOutput{AlreadyProcessed: true}, nil
	}

	if err := a.runs.UpdateProgress(ctx, input.RunID, pipeline.StageClassify, pipeline.StatusRunning); err != nil {
		return nil, err
	}
	if err := a.documents.UpdateStatus(ctx, input.DocumentID, documents.StatusProcessing); err != nil {
		return nil, err
	}

	return &StartRunOutput{}, nil
}

// BeginStage opens the next attempt of a stage for the run.
func (a *Activities) BeginStage(ctx context.Context, input BeginStageInput) (*BeginStageOutput, error) {
	result, err := a.runs.BeginStage(ctx, input.RunID, input.Stage)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			// A retried begin after a lost ack finds the prior attempt
			// still open. Resume it rather than opening another.
			if open, ok := a.openAttempt(ctx, input.RunID, input.Stage); ok {
				return &BeginStageOutput{StageResultID: open.ID, Attempt: open.Attempt}, nil
			}
		}
		return nil, err
	}

	return &BeginStageOutput{StageResultID: result.ID, Attempt: result.Attempt}, nil
}

func (a *Activities) openAttempt(ctx context.Context, runID uuid.UUID, stage pipeline.Stage) (runs.StageResult, bool) {
	history, err := a.runs.StageHistory(ctx, runID)
	if err != nil {
		return runs.StageResult{}, false
	}
	for _, result := range history {
		if result.Stage == stage && result.State == pipeline.StageStateRunning {
			return result, true
		}
	}
	return runs.StageResult{}, false
}

// CompleteStage closes a stage attempt with its terminal state and payload.
func (a *Activities) CompleteStage(ctx context.Context, input CompleteStageInput) error {
	err := a.runs.CompleteStage(ctx, input.StageResultID, input.State, input.ErrorCode, input.ErrorMessage, input.Payload)
	if err != nil && !errors.Is(err, runs.ErrNotFound) {
		return err
	}
	// ErrNotFound means a retried completion found the attempt already
	// closed by the prior delivery.
	return nil
}

// SkipStage records a skipped attempt for a stage the run does not execute.
func (a *Activities) SkipStage(ctx context.Context, input SkipStageInput) error {
	result, err := a.runs.BeginStage(ctx, input.RunID, input.Stage)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			if open, ok := a.openAttempt(ctx, input.RunID, input.Stage); ok {
				result = open
			} else {
				return err
			}
		} else {
			return err
		}
	}

	if err := a.runs.CompleteStage(ctx, result.ID, pipeline.StageStateSkipped, "", "", nil); err != nil && !errors.Is(err, runs.ErrNotFound) {
		return err
	}

	a.logger.Info("stage skipped", "run", input.RunID, "stage", input.Stage)
	return nil
}

// ClassifyDocument reads the document's header pages and asks the model
// whether the document is an invoice.
func (a *Activities) ClassifyDocument(ctx context.Context, input ClassifyInput) (*ClassifyOutput, error) {
	document, data, err := a.documents.DownloadBytes(ctx, input.DocumentID)
	if err != nil {
		return nil, err
	}

	pages := document.PageCount
	if h := a.config.HeaderPageCount; h > 0 && h < document.PageCount {
		data, err = chunking.Assemble(data, chunking.Chunk{HeaderEnd: h, BodyStart: h, BodyEnd: h})
		if err != nil {
			return nil, err
		}
		pages = h
	}

	classification, err := a.extractor.Classify(ctx, data, prompts.Classify())
	if err != nil {
		return nil, err
	}

	a.logger.Info("document classified",
		"run", input.RunID,
		"documentType", classification.DocumentType,
		"confidence", classification.Confidence,
	)
	return &ClassifyOutput{
		DocumentType: classification.DocumentType,
		Confidence:   classification.Confidence,
		PagesRead:    pages,
	}, nil
}

// PlanChunks computes the extraction chunk plan from the document's page
// count and the configured context budget.
func (a *Activities) PlanChunks(ctx context.Context, input PlanChunksInput) (*PlanChunksOutput, error) {
	document, err := a.documents.Get(ctx, input.DocumentID)
	if err != nil {
		return nil, err
	}

	chunks, err := chunking.Plan(document.PageCount, a.config.ChunkingParams())
	if err != nil {
		if errors.Is(err, chunking.ErrBudgetTooSmall) {
			return nil, temporal.NewNonRetryableApplicationError(
				"context budget cannot fit the header pages plus one body page",
				ErrCodeBudgetTooSmall,
				err,
			)
		}
		return nil, err
	}

	a.logger.Info("chunk plan ready",
		"run", input.RunID,
		"pages", document.PageCount,
		"chunks", len(chunks),
	)
	return &PlanChunksOutput{PageCount: document.PageCount, Chunks: chunks}, nil
}

// ExtractChunks runs the extraction call for every planned chunk. A chunk's
// failure is recorded in its outcome and the remaining chunks continue; the
// caller decides what an all-failed batch means.
func (a *Activities) ExtractChunks(ctx context.Context, input ExtractChunksInput) (*ExtractChunksOutput, error) {
	_, data, err := a.documents.DownloadBytes(ctx, input.DocumentID)
	if err != nil {
		return nil, err
	}

	outcomes := make([]extraction.ChunkOutcome, len(input.Chunks))

	var group errgroup.Group
	group.SetLimit(a.config.ChunkParallelism)

	for i, chunk := range input.Chunks {
		group.Go(func() error {
			outcomes[i] = a.extractChunk(ctx, data, chunk, len(input.Chunks))
			activity.RecordHeartbeat(ctx, chunk.Index)
			return nil
		})
	}
	_ = group.Wait()

	failed := 0
	for _, outcome := range outcomes {
		if !outcome.Succeeded() {
			failed++
		}
	}

	a.logger.Info("chunks extracted",
		"run", input.RunID,
		"chunks", len(outcomes),
		"failed", failed,
	)
	return &ExtractChunksOutput{Outcomes: outcomes}, nil
}

func (a *Activities) extractChunk(ctx context.Context, document []byte, chunk chunking.Chunk, chunkCount int) extraction.ChunkOutcome {
	payload, err := chunking.Assemble(document, chunk)
	if err != nil {
		a.logger.Warn("chunk assembly failed", "chunk", chunk.Index, "error", err)
		return extraction.ChunkOutcome{ChunkIndex: chunk.Index, Error: err.Error()}
	}

	prompt := prompts.Extract(prompts.ExtractParams{
		ChunkIndex:  chunk.Index,
		ChunkCount:  chunkCount,
		HeaderPages: chunk.HeaderEnd,
	})

	result, err := a.extractor.Extract(ctx, payload, prompt)
	if err != nil {
		a.logger.Warn("chunk extraction failed", "chunk", chunk.Index, "error", err)
		return extraction.ChunkOutcome{ChunkIndex: chunk.Index, Error: err.Error()}
	}

	return extraction.ChunkOutcome{ChunkIndex: chunk.Index, Result: result}
}

// MergeOutcomes folds the chunk outcomes into the document-level result and
// persists it.
func (a *Activities) MergeOutcomes(ctx context.Context, input MergeOutcomesInput) (*MergeOutcomesOutput, error) {
	merged := extraction.Merge(input.Outcomes)

	record, err := a.runs.SaveResult(ctx, runs.ExtractionRecord{
		RunID:      input.RunID,
		DocumentID: input.DocumentID,
		Merged:     merged,
	})
	if err != nil {
		return nil, err
	}

	a.logger.Info("extraction result saved",
		"run", input.RunID,
		"record", record.ID,
		"lineItems", len(merged.LineItems),
		"confidence", merged.Confidence,
	)
	return &MergeOutcomesOutput{
		ChunkCount:    merged.ChunkCount,
		FailedChunks:  merged.FailedChunks,
		LineItems:     len(merged.LineItems),
		Confidence:    merged.Confidence,
		MissingFields: merged.MissingFields,
	}, nil
}

// ValidateExtraction checks the persisted result against the invoice schema
// and decides whether the run needs human review before export.
func (a *Activities) ValidateExtraction(ctx context.Context, input ValidateInput) (*ValidateOutput, error) {
	record, err := a.runs.GetResult(ctx, input.RunID)
	if err != nil {
		return nil, err
	}

	if err := a.validator.Validate(record.Merged.Result); err != nil {
		return nil, temporal.NewNonRetryableApplicationError(
			"extraction result failed schema validation",
			ErrCodeSchemaInvalid,
			err,
		)
	}

	needsReview := record.Merged.Confidence < a.config.ReviewThreshold || record.Merged.FailedChunks > 0

	if err := a.runs.SetNeedsReview(ctx, input.RunID, needsReview); err != nil {
		return nil, err
	}

	a.logger.Info("extraction validated",
		"run", input.RunID,
		"confidence", record.Merged.Confidence,
		"needsReview", needsReview,
	)
	return &ValidateOutput{
		NeedsReview:   needsReview,
		Confidence:    record.Merged.Confidence,
		FailedChunks:  record.Merged.FailedChunks,
		MissingFields: record.Merged.MissingFields,
	}, nil
}

// SuspendRun durably marks the run suspended so the review wait survives
// process restarts.
func (a *Activities) SuspendRun(ctx context.Context, input SuspendRunInput) error {
	if err := a.runs.UpdateProgress(ctx, input.RunID, pipeline.StageReview, pipeline.StatusSuspended); err != nil {
		return err
	}

	a.logger.Info("run suspended awaiting review", "run", input.RunID)
	return nil
}

// ResumeRun applies the reviewer's decision and moves the run back to
// running.
func (a *Activities) ResumeRun(ctx context.Context, input ResumeRunInput) error {
	if len(input.Decision.HeaderPatch) > 0 {
		if err := a.runs.ApplyHeaderPatch(ctx, input.RunID, input.Decision.HeaderPatch); err != nil {
			return err
		}
	}

	if err := a.runs.UpdateProgress(ctx, input.RunID, pipeline.StageReview, pipeline.StatusRunning); err != nil {
		return err
	}

	a.logger.Info("run resumed after approval",
		"run", input.RunID,
		"approvedBy", input.Decision.ApprovedBy,
		"patchedFields", len(input.Decision.HeaderPatch),
	)
	return nil
}

// ExportWorkbook renders the run's result to an XLSX workbook and uploads
// it to blob storage.
func (a *Activities) ExportWorkbook(ctx context.Context, input ExportInput) (*ExportOutput, error) {
	document, err := a.documents.Get(ctx, input.DocumentID)
	if err != nil {
		return nil, err
	}

	record, err := a.runs.GetResult(ctx, input.RunID)
	if err != nil {
		return nil, err
	}

	data, err := a.workbook.Render(document, record)
	if err != nil {
		return nil, err
	}

	key := runs.ExportKey(input.RunID)
	if err := a.storage.Upload(ctx, key, bytes.NewReader(data), runs.ExportContentType); err != nil {
		return nil, err
	}
	if err := a.runs.SetExportKey(ctx, input.RunID, key); err != nil {
		return nil, err
	}

	return &ExportOutput{ExportKey: key, ByteSize: len(data)}, nil
}

// DeliverExport confirms the export artifact and marks the source document
// processed, completing the handoff.
func (a *Activities) DeliverExport(ctx context.Context, input DeliverInput) (*DeliverOutput, error) {
	exists, err := a.storage.Exists(ctx, input.ExportKey)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("export artifact missing: %s", input.ExportKey)
	}

	if err := a.documents.UpdateStatus(ctx, input.DocumentID, documents.StatusProcessed); err != nil {
		return nil, err
	}

	a.logger.Info("export delivered",
		"run", input.RunID,
		"document", input.DocumentID,
		"key", input.ExportKey,
	)
	return &DeliverOutput{ExportKey: input.ExportKey, FileName: runs.ExportFileName(input.RunID)}, nil
}

// FinishRun marks the run terminal and settles the document's status:
// failed runs fail their document, cancelled runs release it for a future
// submission, succeeded runs leave the status set by the deliver stage.
func (a *Activities) FinishRun(ctx context.Context, input FinishRunInput) error {
	switch input.Status {
	case pipeline.StatusFailed:
		if err := a.documents.UpdateStatus(ctx, input.DocumentID, documents.StatusFailed); err != nil {
			return err
		}
	case pipeline.StatusCancelled:
		if err := a.documents.UpdateStatus(ctx, input.DocumentID, documents.StatusPending); err != nil {
			return err
		}
	}

	if err := a.runs.Finish(ctx, input.RunID, input.Status, input.ErrorSummary); err != nil {
		if errors.Is(err, runs.ErrNotFound) {
			// A retried finish after a lost ack finds the run already
			// terminal.
			if run, getErr := a.runs.Get(ctx, input.RunID); getErr == nil && run.Terminal() {
				return nil
			}
		}
		return err
	}

	return nil
}
