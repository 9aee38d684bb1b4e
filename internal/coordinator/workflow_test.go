package coordinator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/testsuite"

	"github.com/ledgerworks/conveyor/internal/chunking"
	"github.com/ledgerworks/conveyor/internal/extraction"
	"github.com/ledgerworks/conveyor/pipeline"
)

// stageRecorder captures the bookkeeping calls the workflow makes so tests
// can assert on stage ordering and terminal statuses.
type stageRecorder struct {
	begun     []pipeline.Stage
	completed []CompleteStageInput
	finished  []FinishRunInput
}

func newPipelineEnv(t *testing.T) (*testsuite.TestWorkflowEnvironment, *stageRecorder) {
	t.Helper()

	suite := &testsuite.WorkflowTestSuite{}
	env := suite.NewTestWorkflowEnvironment()

	var acts *Activities
	rec := &stageRecorder{}

	env.OnActivity(acts.BeginStage, mock.Anything, mock.Anything).Return(
		func(_ context.Context, input BeginStageInput) (*BeginStageOutput, error) {
			rec.begun = append(rec.begun, input.Stage)
			return &BeginStageOutput{StageResultID: uuid.New(), Attempt: 1}, nil
		})
	env.OnActivity(acts.CompleteStage, mock.Anything, mock.Anything).Return(
		func(_ context.Context, input CompleteStageInput) error {
			rec.completed = append(rec.completed, input)
			return nil
		})
	env.OnActivity(acts.FinishRun, mock.Anything, mock.Anything).Return(
		func(_ context.Context, input FinishRunInput) error {
			rec.finished = append(rec.finished, input)
			return nil
		})

	return env, rec
}

func testInput() pipeline.RunInput {
	return pipeline.RunInput{
		RunID:      uuid.New(),
		DocumentID: uuid.New(),
		InputKey:   "4be1a0d9c2",
		Attempt:    0,
	}
}

func testChunks() []chunking.Chunk {
	return []chunking.Chunk{
		{Index: 0, HeaderEnd: 2, BodyStart: 2, BodyEnd: 5},
		{Index: 1, HeaderEnd: 2, BodyStart: 5, BodyEnd: 8},
		{Index: 2, HeaderEnd: 2, BodyStart: 8, BodyEnd: 11},
		{Index: 3, HeaderEnd: 2, BodyStart: 11, BodyEnd: 12},
	}
}

func chunkSuccess(index int, confidence float64) extraction.ChunkOutcome {
	return extraction.ChunkOutcome{
		ChunkIndex: index,
		Result:     &extraction.Result{Confidence: confidence},
	}
}

func chunkFailure(index int) extraction.ChunkOutcome {
	return extraction.ChunkOutcome{ChunkIndex: index, Error: "model call failed"}
}

func invoiceClassification() *ClassifyOutput {
	return &ClassifyOutput{DocumentType: extraction.DocTypeInvoice, Confidence: 0.98, PagesRead: 2}
}

func TestPipelineCompletesWithoutReview(t *testing.T) {
	env, rec := newPipelineEnv(t)
	var acts *Activities

	env.OnActivity(acts.StartRun, mock.Anything, mock.Anything).Return(&StartRunOutput{}, nil)
	env.OnActivity(acts.ClassifyDocument, mock.Anything, mock.Anything).Return(invoiceClassification(), nil)
	env.OnActivity(acts.PlanChunks, mock.Anything, mock.Anything).Return(
		&PlanChunksOutput{PageCount: 12, Chunks: testChunks()}, nil)
	env.OnActivity(acts.ExtractChunks, mock.Anything, mock.Anything).Return(
		&ExtractChunksOutput{Outcomes: []extraction.ChunkOutcome{
			chunkSuccess(0, 0.90), chunkSuccess(1, 0.94), chunkSuccess(2, 0.92), chunkSuccess(3, 0.88),
		}}, nil)
	env.OnActivity(acts.MergeOutcomes, mock.Anything, mock.Anything).Return(
		&MergeOutcomesOutput{ChunkCount: 4, LineItems: 7, Confidence: 0.91}, nil)
	env.OnActivity(acts.ValidateExtraction, mock.Anything, mock.Anything).Return(
		&ValidateOutput{NeedsReview: false, Confidence: 0.91}, nil)
	env.OnActivity(acts.SkipStage, mock.Anything, mock.Anything).Return(nil)
	env.OnActivity(acts.ExportWorkbook, mock.Anything, mock.Anything).Return(
		&ExportOutput{ExportKey: "exports/run.xlsx", ByteSize: 2048}, nil)
	env.OnActivity(acts.DeliverExport, mock.Anything, mock.Anything).Return(
		&DeliverOutput{ExportKey: "exports/run.xlsx"}, nil)

	env.ExecuteWorkflow(Pipeline, testInput())

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result pipeline.RunResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, pipeline.StatusSucceeded, result.Status)
	assert.Equal(t, pipeline.StageDeliver, result.Stage)
	assert.Equal(t, 4, result.ChunkCount)
	assert.Zero(t, result.FailedChunks)
	assert.Equal(t, 7, result.LineItems)
	assert.InDelta(t, 0.91, result.Confidence, 1e-9)
	assert.Equal(t, "exports/run.xlsx", result.ExportKey)

	// Review is skipped, so it never opens a stage attempt of its own.
	assert.Equal(t, []pipeline.Stage{
		pipeline.StageClassify,
		pipeline.StageParse,
		pipeline.StageExtract,
		pipeline.StageValidate,
		pipeline.StageExport,
		pipeline.StageDeliver,
	}, rec.begun)
	for _, completion := range rec.completed {
		assert.Equal(t, pipeline.StageStateSucceeded, completion.State)
	}
	require.Len(t, rec.finished, 1)
	assert.Equal(t, pipeline.StatusSucceeded, rec.finished[0].Status)
}

func TestPipelineSuspendsForReview(t *testing.T) {
	env, rec := newPipelineEnv(t)
	var acts *Activities

	env.OnActivity(acts.StartRun, mock.Anything, mock.Anything).Return(&StartRunOutput{}, nil)
	env.OnActivity(acts.ClassifyDocument, mock.Anything, mock.Anything).Return(invoiceClassification(), nil)
	env.OnActivity(acts.PlanChunks, mock.Anything, mock.Anything).Return(
		&PlanChunksOutput{PageCount: 12, Chunks: testChunks()}, nil)
	env.OnActivity(acts.ExtractChunks, mock.Anything, mock.Anything).Return(
		&ExtractChunksOutput{Outcomes: []extraction.ChunkOutcome{
			chunkSuccess(0, 0.61), chunkSuccess(1, 0.58), chunkSuccess(2, 0.66), chunkSuccess(3, 0.60),
		}}, nil)
	env.OnActivity(acts.MergeOutcomes, mock.Anything, mock.Anything).Return(
		&MergeOutcomesOutput{ChunkCount: 4, LineItems: 3, Confidence: 0.61}, nil)
	env.OnActivity(acts.ValidateExtraction, mock.Anything, mock.Anything).Return(
		&ValidateOutput{NeedsReview: true, Confidence: 0.61}, nil)
	env.OnActivity(acts.SuspendRun, mock.Anything, mock.Anything).Return(nil)

	var resumed ResumeRunInput
	env.OnActivity(acts.ResumeRun, mock.Anything, mock.Anything).Return(
		func(_ context.Context, input ResumeRunInput) error {
			resumed = input
			return nil
		})
	env.OnActivity(acts.ExportWorkbook, mock.Anything, mock.Anything).Return(
		&ExportOutput{ExportKey: "exports/run.xlsx", ByteSize: 1024}, nil)
	env.OnActivity(acts.DeliverExport, mock.Anything, mock.Anything).Return(
		&DeliverOutput{ExportKey: "exports/run.xlsx"}, nil)

	env.RegisterDelayedCallback(func() {
		value, err := env.QueryWorkflow(pipeline.QueryStatus)
		require.NoError(t, err)

		var progress pipeline.Progress
		require.NoError(t, value.Get(&progress))
		assert.Equal(t, pipeline.StatusSuspended, progress.Status)
		assert.Equal(t, pipeline.StageReview, progress.Stage)
		assert.True(t, progress.NeedsReview)

		env.SignalWorkflow(pipeline.SignalReviewApproved, pipeline.ReviewDecision{
			ApprovedBy:  "ops@ledgerworks.io",
			Note:        "total corrected against the PO",
			HeaderPatch: map[string]string{"total": "1290.00"},
		})
	}, time.Minute)

	env.ExecuteWorkflow(Pipeline, testInput())

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result pipeline.RunResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, pipeline.StatusSucceeded, result.Status)

	assert.Equal(t, "ops@ledgerworks.io", resumed.Decision.ApprovedBy)
	assert.Equal(t, map[string]string{"total": "1290.00"}, resumed.Decision.HeaderPatch)

	require.Len(t, rec.begun, 7)
	assert.Equal(t, pipeline.StageReview, rec.begun[4])

	var review ReviewPayload
	require.NoError(t, json.Unmarshal(rec.completed[4].Payload, &review))
	assert.Equal(t, "ops@ledgerworks.io", review.ApprovedBy)
	assert.Equal(t, 1, review.PatchedFields)
}

func TestPipelineCancelledBeforeFirstStage(t *testing.T) {
	env, rec := newPipelineEnv(t)
	var acts *Activities

	env.OnActivity(acts.StartRun, mock.Anything, mock.Anything).Return(&StartRunOutput{}, nil)

	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(pipeline.SignalCancel, nil)
	}, 0)

	env.ExecuteWorkflow(Pipeline, testInput())

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result pipeline.RunResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, pipeline.StatusCancelled, result.Status)

	// Once the cancel is observed, no stage attempt is ever opened.
	assert.Empty(t, rec.begun)
	require.Len(t, rec.finished, 1)
	assert.Equal(t, pipeline.StatusCancelled, rec.finished[0].Status)
}

func TestPipelineCancelledDuringReview(t *testing.T) {
	env, rec := newPipelineEnv(t)
	var acts *Activities

	env.OnActivity(acts.StartRun, mock.Anything, mock.Anything).Return(&StartRunOutput{}, nil)
	env.OnActivity(acts.ClassifyDocument, mock.Anything, mock.Anything).Return(invoiceClassification(), nil)
	env.OnActivity(acts.PlanChunks, mock.Anything, mock.Anything).Return(
		&PlanChunksOutput{PageCount: 12, Chunks: testChunks()}, nil)
	env.OnActivity(acts.ExtractChunks, mock.Anything, mock.Anything).Return(
		&ExtractChunksOutput{Outcomes: []extraction.ChunkOutcome{chunkSuccess(0, 0.52)}}, nil)
	env.OnActivity(acts.MergeOutcomes, mock.Anything, mock.Anything).Return(
		&MergeOutcomesOutput{ChunkCount: 1, LineItems: 2, Confidence: 0.52}, nil)
	env.OnActivity(acts.ValidateExtraction, mock.Anything, mock.Anything).Return(
		&ValidateOutput{NeedsReview: true, Confidence: 0.52}, nil)
	env.OnActivity(acts.SuspendRun, mock.Anything, mock.Anything).Return(nil)

	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(pipeline.SignalCancel, nil)
	}, time.Minute)

	env.ExecuteWorkflow(Pipeline, testInput())

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result pipeline.RunResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, pipeline.StatusCancelled, result.Status)
	assert.Equal(t, pipeline.StageReview, result.Stage)

	last := rec.completed[len(rec.completed)-1]
	assert.Equal(t, pipeline.StageStateFailed, last.State)
	assert.Equal(t, ErrCodeCancelled, last.ErrorCode)

	require.Len(t, rec.finished, 1)
	assert.Equal(t, pipeline.StatusCancelled, rec.finished[0].Status)
}

func TestPipelineFailsWhenAllChunksFail(t *testing.T) {
	env, rec := newPipelineEnv(t)
	var acts *Activities

	env.OnActivity(acts.StartRun, mock.Anything, mock.Anything).Return(&StartRunOutput{}, nil)
	env.OnActivity(acts.ClassifyDocument, mock.Anything, mock.Anything).Return(invoiceClassification(), nil)
	env.OnActivity(acts.PlanChunks, mock.Anything, mock.Anything).Return(
		&PlanChunksOutput{PageCount: 12, Chunks: testChunks()}, nil)
	env.OnActivity(acts.ExtractChunks, mock.Anything, mock.Anything).Return(
		&ExtractChunksOutput{Outcomes: []extraction.ChunkOutcome{
			chunkFailure(0), chunkFailure(1), chunkFailure(2), chunkFailure(3),
		}}, nil)

	env.ExecuteWorkflow(Pipeline, testInput())

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	assert.Equal(t, ErrCodeAllChunksFailed, ErrorCode(err))

	last := rec.completed[len(rec.completed)-1]
	assert.Equal(t, pipeline.StageStateFailed, last.State)
	assert.Equal(t, ErrCodeAllChunksFailed, last.ErrorCode)

	require.Len(t, rec.finished, 1)
	assert.Equal(t, pipeline.StatusFailed, rec.finished[0].Status)
	assert.Contains(t, rec.finished[0].ErrorSummary, "chunks failed")
}

func TestPipelineToleratesPartialChunkFailure(t *testing.T) {
	env, _ := newPipelineEnv(t)
	var acts *Activities

	env.OnActivity(acts.StartRun, mock.Anything, mock.Anything).Return(&StartRunOutput{}, nil)
	env.OnActivity(acts.ClassifyDocument, mock.Anything, mock.Anything).Return(invoiceClassification(), nil)
	env.OnActivity(acts.PlanChunks, mock.Anything, mock.Anything).Return(
		&PlanChunksOutput{PageCount: 12, Chunks: testChunks()}, nil)
	env.OnActivity(acts.ExtractChunks, mock.Anything, mock.Anything).Return(
		&ExtractChunksOutput{Outcomes: []extraction.ChunkOutcome{
			chunkSuccess(0, 0.92), chunkFailure(1), chunkSuccess(2, 0.88), chunkSuccess(3, 0.90),
		}}, nil)

	var mergeInput MergeOutcomesInput
	env.OnActivity(acts.MergeOutcomes, mock.Anything, mock.Anything).Return(
		func(_ context.Context, input MergeOutcomesInput) (*MergeOutcomesOutput, error) {
			mergeInput = input
			return &MergeOutcomesOutput{ChunkCount: 4, FailedChunks: 1, LineItems: 5, Confidence: 0.90}, nil
		})
	env.OnActivity(acts.ValidateExtraction, mock.Anything, mock.Anything).Return(
		&ValidateOutput{NeedsReview: true, Confidence: 0.90, FailedChunks: 1}, nil)
	env.OnActivity(acts.SuspendRun, mock.Anything, mock.Anything).Return(nil)
	env.OnActivity(acts.ResumeRun, mock.Anything, mock.Anything).Return(nil)
	env.OnActivity(acts.ExportWorkbook, mock.Anything, mock.Anything).Return(
		&ExportOutput{ExportKey: "exports/run.xlsx", ByteSize: 1024}, nil)
	env.OnActivity(acts.DeliverExport, mock.Anything, mock.Anything).Return(
		&DeliverOutput{ExportKey: "exports/run.xlsx"}, nil)

	env.RegisterDelayedCallback(func() {
		env.SignalWorkflow(pipeline.SignalReviewApproved, pipeline.ReviewDecision{ApprovedBy: "ops"})
	}, time.Minute)

	env.ExecuteWorkflow(Pipeline, testInput())

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result pipeline.RunResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, pipeline.StatusSucceeded, result.Status)
	assert.Equal(t, 4, result.ChunkCount)
	assert.Equal(t, 1, result.FailedChunks)

	// All four outcomes reach the merge, failures included.
	require.Len(t, mergeInput.Outcomes, 4)
	assert.Equal(t, "model call failed", mergeInput.Outcomes[1].Error)
}

func TestPipelineRejectsNonInvoice(t *testing.T) {
	env, rec := newPipelineEnv(t)
	var acts *Activities

	env.OnActivity(acts.StartRun, mock.Anything, mock.Anything).Return(&StartRunOutput{}, nil)
	env.OnActivity(acts.ClassifyDocument, mock.Anything, mock.Anything).Return(
		&ClassifyOutput{DocumentType: extraction.DocTypeOther, Confidence: 0.93, PagesRead: 2}, nil)

	env.ExecuteWorkflow(Pipeline, testInput())

	require.True(t, env.IsWorkflowCompleted())
	err := env.GetWorkflowError()
	require.Error(t, err)
	assert.Equal(t, ErrCodeNotInvoice, ErrorCode(err))

	assert.Equal(t, []pipeline.Stage{pipeline.StageClassify}, rec.begun)

	last := rec.completed[len(rec.completed)-1]
	assert.Equal(t, pipeline.StageStateFailed, last.State)
	assert.Equal(t, ErrCodeNotInvoice, last.ErrorCode)

	// The failed classify attempt still records what the model saw.
	var classified ClassifyOutput
	require.NoError(t, json.Unmarshal(last.Payload, &classified))
	assert.Equal(t, extraction.DocTypeOther, classified.DocumentType)

	require.Len(t, rec.finished, 1)
	assert.Equal(t, pipeline.StatusFailed, rec.finished[0].Status)
}

func TestPipelineShortCircuitsProcessedDocument(t *testing.T) {
	env, rec := newPipelineEnv(t)
	var acts *Activities

	env.OnActivity(acts.StartRun, mock.Anything, mock.Anything).Return(
		&StartRunOutput{AlreadyProcessed: true}, nil)

	env.ExecuteWorkflow(Pipeline, testInput())

	require.True(t, env.IsWorkflowCompleted())
	require.NoError(t, env.GetWorkflowError())

	var result pipeline.RunResult
	require.NoError(t, env.GetWorkflowResult(&result))
	assert.Equal(t, pipeline.StatusSucceeded, result.Status)

	assert.Empty(t, rec.begun)
	require.Len(t, rec.finished, 1)
	assert.Equal(t, pipeline.StatusSucceeded, rec.finished[0].Status)
}

func TestErrorCode(t *testing.T) {
	assert.Equal(t, ErrCodeNotInvoice, ErrorCode(temporal.NewApplicationError("not an invoice", ErrCodeNotInvoice)))
	assert.Equal(t, ErrCodeInternal, ErrorCode(errors.New("connection reset")))

	wrapped := fmt.Errorf("begin extract stage: %w", temporal.NewApplicationError("boom", ErrCodeCancelled))
	assert.Equal(t, ErrCodeCancelled, ErrorCode(wrapped))
}
