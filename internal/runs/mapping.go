package runs

import (
	"net/url"

	"github.com/ledgerworks/conveyor/pkg/query"
	"github.com/ledgerworks/conveyor/pkg/repository"
)

func runProjection() *query.ProjectionMap {
	return query.NewProjection("pipeline_runs", "r").
		Map("id", "r.id").
		Map("documentId", "r.document_id").
		Map("inputKey", "r.input_key").
		Map("workflowId", "r.workflow_id").
		Map("attempt", "r.attempt").
		Map("stage", "r.stage").
		Map("status", "r.status").
		Map("needsReview", "r.needs_review").
		Map("errorSummary", "r.error_summary").
		Map("createdAt", "r.created_at").
		Map("finishedAt", "r.finished_at")
}

func stageProjection() *query.ProjectionMap {
	return query.NewProjection("stage_results", "s").
		Map("id", "s.id").
		Map("runId", "s.run_id").
		Map("stage", "s.stage").
		Map("attempt", "s.attempt").
		Map("state", "s.state").
		Map("errorCode", "s.error_code").
		Map("errorMessage", "s.error_message").
		Map("payload", "s.payload").
		Map("startedAt", "s.started_at").
		Map("finishedAt", "s.finished_at")
}

// Filters narrow and order run listings.
type Filters struct {
	Status        string
	Stage         string
	DocumentID    string
	SortField     string
	SortDirection string
}

// FiltersFromQuery parses listing filters from URL query parameters.
func FiltersFromQuery(values url.Values) Filters {
	return Filters{
		Status:        values.Get("status"),
		Stage:         values.Get("stage"),
		DocumentID:    values.Get("documentId"),
		SortField:     values.Get("sortField"),
		SortDirection: values.Get("sortDirection"),
	}
}

func (f Filters) apply(builder *query.Builder) *query.Builder {
	if f.Status != "" {
		builder.WhereEquals("status", f.Status)
	}
	if f.Stage != "" {
		builder.WhereEquals("stage", f.Stage)
	}
	if f.DocumentID != "" {
		builder.WhereEquals("documentId", f.DocumentID)
	}
	return builder.OrderByFields(f.SortField, f.SortDirection, "createdAt")
}

func scanRun(s repository.Scanner) (Run, error) {
	var r Run
	err := s.Scan(
		&r.ID,
		&r.DocumentID,
		&r.InputKey,
		&r.WorkflowID,
		&r.Attempt,
		&r.Stage,
		&r.Status,
		&r.NeedsReview,
		&r.ErrorSummary,
		&r.CreatedAt,
		&r.FinishedAt,
	)
	return r, err
}

func scanStageResult(s repository.Scanner) (StageResult, error) {
	var sr StageResult
	err := s.Scan(
		&sr.ID,
		&sr.RunID,
		&sr.Stage,
		&sr.Attempt,
		&sr.State,
		&sr.ErrorCode,
		&sr.ErrorMessage,
		&sr.Payload,
		&sr.StartedAt,
		&sr.FinishedAt,
	)
	return sr, err
}
