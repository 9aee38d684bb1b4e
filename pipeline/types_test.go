package pipeline

import (
	"encoding/json"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStagesOrder(t *testing.T) {
	want := []Stage{
		StageClassify,
		StageParse,
		StageExtract,
		StageValidate,
		StageReview,
		StageExport,
		StageDeliver,
	}
	assert.Equal(t, want, Stages())
}

func TestStagesReturnsCopy(t *testing.T) {
	first := Stages()
	first[0] = StageDeliver

	assert.Equal(t, StageClassify, Stages()[0])
}

func TestStageIndex(t *testing.T) {
	assert.Equal(t, 0, StageClassify.Index())
	assert.Equal(t, 4, StageReview.Index())
	assert.Equal(t, 6, StageDeliver.Index())
	assert.Equal(t, -1, Stage("compose").Index())
}

func TestParseStage(t *testing.T) {
	stage, err := ParseStage("extract")
	require.NoError(t, err)
	assert.Equal(t, StageExtract, stage)

	_, err = ParseStage("compose")
	assert.Error(t, err)
}

func TestStatusTerminal(t *testing.T) {
	tests := []struct {
		status Status
		want   bool
	}{
		{StatusQueued, false},
		{StatusRunning, false},
		{StatusSuspended, false},
		{StatusSucceeded, true},
		{StatusFailed, true},
		{StatusCancelled, true},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.status.Terminal(), "status %s", tt.status)
	}
}

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus("suspended")
	require.NoError(t, err)
	assert.Equal(t, StatusSuspended, status)

	_, err = ParseStatus("paused")
	assert.Error(t, err)
}

func TestWorkflowID(t *testing.T) {
	assert.Equal(t, "conveyor-run-abc123", WorkflowID("abc123"))
}

func TestRetryWorkflowID(t *testing.T) {
	assert.Equal(t, "conveyor-run-abc123-r2", RetryWorkflowID("abc123", 2))
}

func TestProgressJSONShape(t *testing.T) {
	progress := Progress{
		Status:      StatusSuspended,
		Stage:       StageReview,
		DocumentID:  uuid.MustParse("11111111-2222-3333-4444-555555555555"),
		ChunkCount:  4,
		NeedsReview: true,
	}

	data, err := json.Marshal(progress)
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))

	assert.Equal(t, "suspended", parsed["status"])
	assert.Equal(t, "review", parsed["stage"])
	assert.Contains(t, parsed, "document_id")
	assert.Contains(t, parsed, "chunk_count")
	assert.Contains(t, parsed, "needs_review")
	assert.NotContains(t, parsed, "error", "empty error should be omitted")
}

func TestReviewDecisionJSONShape(t *testing.T) {
	data, err := json.Marshal(ReviewDecision{ApprovedBy: "ops"})
	require.NoError(t, err)

	var parsed map[string]any
	require.NoError(t, json.Unmarshal(data, &parsed))

	assert.Equal(t, "ops", parsed["approved_by"])
	assert.NotContains(t, parsed, "note")
	assert.NotContains(t, parsed, "header_patch")
}
