package runs

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/ledgerworks/conveyor/internal/extraction"
	"github.com/ledgerworks/conveyor/pipeline"
	"github.com/ledgerworks/conveyor/pkg/pagination"
	"github.com/ledgerworks/conveyor/pkg/query"
	"github.com/ledgerworks/conveyor/pkg/repository"
)

type repo struct {
	db      *sql.DB
	pageCfg pagination.Config
	logger  *slog.Logger
}

func (r *repo) Create(ctx context.Context, run Run) (Run, error) {
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}

	created, err := repository.QueryOne(ctx, r.db, scanRun, `
		INSERT INTO pipeline_runs (id, document_id, input_key, workflow_id, attempt, stage, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, document_id, input_key, workflow_id, attempt, stage, status, needs_review, error_summary, created_at, finished_at`,
		run.ID, run.DocumentID, run.InputKey, run.WorkflowID, run.Attempt, run.Stage, run.Status,
	)
	if err != nil {
		return Run{}, mapError(err)
	}

	r.logger.Info("run created",
		"id", created.ID,
		"documentId", created.DocumentID,
		"workflowId", created.WorkflowID,
		"attempt", created.Attempt,
	)
	return created, nil
}

func (r *repo) Get(ctx context.Context, id uuid.UUID) (Run, error) {
	builder := query.NewBuilder(runProjection())
	builder.WhereEquals("id", id)

	sql, args := builder.BuildSingle()

	run, err := repository.QueryOne(ctx, r.db, scanRun, sql, args...)
	if err != nil {
		return Run{}, mapError(err)
	}
	return run, nil
}

func (r *repo) GetByInputKey(ctx context.Context, inputKey string) (Run, error) {
	builder := query.NewBuilder(runProjection())
	builder.WhereEquals("inputKey", inputKey)

	sql, args := builder.BuildSingle()

	run, err := repository.QueryOne(ctx, r.db, scanRun, sql, args...)
	if err != nil {
		return Run{}, mapError(err)
	}
	return run, nil
}

func (r *repo) List(ctx context.Context, filters Filters, page pagination.PageRequest) (pagination.PageResult[Run], error) {
	page.Normalize(r.pageCfg)

	builder := filters.apply(query.NewBuilder(runProjection()))

	countSQL, countArgs := builder.BuildCount()
	total, err := repository.QueryValue[int](ctx, r.db, countSQL, countArgs...)
	if err != nil {
		return pagination.PageResult[Run]{}, mapError(err)
	}

	pageSQL, pageArgs := builder.BuildPage(page)
	items, err := repository.QueryMany(ctx, r.db, scanRun, pageSQL, pageArgs...)
	if err != nil {
		return pagination.PageResult[Run]{}, mapError(err)
	}

	return pagination.NewPageResult(items, total, page), nil
}

func (r *repo) Stats(ctx context.Context) (Stats, error) {
	stats := Stats{
		ByStatus: make(map[string]int),
		ByStage:  make(map[string]int),
	}

	type bucket struct {
		Status string
		Stage  string
		Count  int
	}

	rows, err := repository.QueryMany(ctx, r.db, func(s repository.Scanner) (bucket, error) {
		var b bucket
		err := s.Scan(&b.Status, &b.Stage, &b.Count)
		return b, err
	}, `
		SELECT status, stage, COUNT(*)
		FROM pipeline_runs
		GROUP BY status, stage`,
	)
	if err != nil {
		return Stats{}, mapError(err)
	}

	for _, b := range rows {
		stats.Total += b.Count
		stats.ByStatus[b.Status] += b.Count
		stats.ByStage[b.Stage] += b.Count
	}
	return stats, nil
}

func (r *repo) UpdateProgress(ctx context.Context, id uuid.UUID, stage pipeline.Stage, status pipeline.Status) error {
	err := repository.ExecExpectOne(ctx, r.db, `
		UPDATE pipeline_runs
		SET stage = $2, status = $3
		WHERE id = $1 AND finished_at IS NULL`,
		id, stage, status,
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (r *repo) SetNeedsReview(ctx context.Context, id uuid.UUID, needsReview bool) error {
	err := repository.ExecExpectOne(ctx, r.db, `
		UPDATE pipeline_runs
		SET needs_review = $2
		WHERE id = $1 AND finished_at IS NULL`,
		id, needsReview,
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (r *repo) Finish(ctx context.Context, id uuid.UUID, status pipeline.Status, errorSummary string) error {
	err := repository.ExecExpectOne(ctx, r.db, `
		UPDATE pipeline_runs
		SET status = $2, error_summary = $3, finished_at = now()
		WHERE id = $1 AND finished_at IS NULL`,
		id, status, errorSummary,
	)
	if err != nil {
		return mapError(err)
	}

	r.logger.Info("run finished", "id", id, "status", status)
	return nil
}

func (r *repo) ResetForRetry(ctx context.Context, id uuid.UUID, attempt int, workflowID string) (Run, error) {
	run, err := repository.QueryOne(ctx, r.db, scanRun, `
		UPDATE pipeline_runs
		SET attempt = $2, workflow_id = $3, stage = $4, status = $5,
			needs_review = FALSE, error_summary = '', finished_at = NULL
		WHERE id = $1 AND status = $6
		RETURNING id, document_id, input_key, workflow_id, attempt, stage, status, needs_review, error_summary, created_at, finished_at`,
		id, attempt, workflowID, pipeline.StageClassify, pipeline.StatusQueued, pipeline.StatusFailed,
	)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return Run{}, ErrNotFailed
		}
		return Run{}, mapError(err)
	}

	r.logger.Info("run reopened for retry",
		"id", id,
		"attempt", attempt,
		"workflowId", workflowID,
	)
	return run, nil
}

func (r *repo) BeginStage(ctx context.Context, runID uuid.UUID, stage pipeline.Stage) (StageResult, error) {
	var result StageResult

	err := repository.WithTx(ctx, r.db, func(tx *sql.Tx) error {
		attempt, err := repository.QueryValue[int](ctx, tx, `
			SELECT COALESCE(MAX(attempt), 0) + 1
			FROM stage_results
			WHERE run_id = $1 AND stage = $2`,
			runID, stage,
		)
		if err != nil {
			return err
		}

		result, err = repository.QueryOne(ctx, tx, scanStageResult, `
			INSERT INTO stage_results (id, run_id, stage, attempt, state)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, run_id, stage, attempt, state, error_code, error_message, payload, started_at, finished_at`,
			uuid.New(), runID, stage, attempt, pipeline.StageStateRunning,
		)
		if err != nil {
			return err
		}

		return repository.ExecExpectOne(ctx, tx, `
			UPDATE pipeline_runs
			SET stage = $2, status = $3
			WHERE id = $1 AND finished_at IS NULL`,
			runID, stage, pipeline.StatusRunning,
		)
	})
	if err != nil {
		return StageResult{}, mapError(err)
	}

	r.logger.Info("stage started",
		"runId", runID,
		"stage", stage,
		"attempt", result.Attempt,
	)
	return result, nil
}

func (r *repo) CompleteStage(ctx context.Context, id uuid.UUID, state pipeline.StageState, errorCode, errorMessage string, payload json.RawMessage) error {
	err := repository.ExecExpectOne(ctx, r.db, `
		UPDATE stage_results
		SET state = $2, error_code = $3, error_message = $4, payload = $5, finished_at = now()
		WHERE id = $1 AND finished_at IS NULL`,
		id, state, errorCode, errorMessage, payload,
	)
	if err != nil {
		return mapError(err)
	}
	return nil
}

func (r *repo) StageHistory(ctx context.Context, runID uuid.UUID) ([]StageResult, error) {
	builder := query.NewBuilder(stageProjection())
	builder.WhereEquals("runId", runID)
	builder.OrderByFields("startedAt", "asc", "startedAt")

	sql, args := builder.Build()

	results, err := repository.QueryMany(ctx, r.db, scanStageResult, sql, args...)
	if err != nil {
		return nil, mapError(err)
	}
	return results, nil
}

func (r *repo) SaveResult(ctx context.Context, record ExtractionRecord) (ExtractionRecord, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}

	merged, err := json.Marshal(record.Merged)
	if err != nil {
		return ExtractionRecord{}, fmt.Errorf("failed to encode extraction result: %w", err)
	}

	saved, err := repository.QueryOne(ctx, r.db, scanExtractionRecord, `
		INSERT INTO extraction_results (id, run_id, document_id, merged, export_key)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (run_id) DO UPDATE
		SET merged = EXCLUDED.merged, export_key = EXCLUDED.export_key, created_at = now()
		RETURNING id, run_id, document_id, merged, export_key, created_at`,
		record.ID, record.RunID, record.DocumentID, merged, record.ExportKey,
	)
	if err != nil {
		return ExtractionRecord{}, mapError(err)
	}

	r.logger.Info("extraction result saved",
		"runId", record.RunID,
		"lineItems", len(record.Merged.LineItems),
		"confidence", record.Merged.Confidence,
	)
	return saved, nil
}

func (r *repo) GetResult(ctx context.Context, runID uuid.UUID) (ExtractionRecord, error) {
	record, err := repository.QueryOne(ctx, r.db, scanExtractionRecord, `
		SELECT id, run_id, document_id, merged, export_key, created_at
		FROM extraction_results
		WHERE run_id = $1`,
		runID,
	)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ExtractionRecord{}, ErrNoResult
		}
		return ExtractionRecord{}, mapError(err)
	}
	return record, nil
}

func (r *repo) ApplyHeaderPatch(ctx context.Context, runID uuid.UUID, patch map[string]string) error {
	if len(patch) == 0 {
		return nil
	}

	record, err := r.GetResult(ctx, runID)
	if err != nil {
		return err
	}

	if record.Merged.HeaderFields == nil {
		record.Merged.HeaderFields = make(map[string]string, len(patch))
	}
	for field, value := range patch {
		record.Merged.HeaderFields[field] = value
	}

	merged, err := json.Marshal(record.Merged)
	if err != nil {
		return fmt.Errorf("failed to encode patched result: %w", err)
	}

	if err := repository.ExecExpectOne(ctx, r.db, `
		UPDATE extraction_results
		SET merged = $2
		WHERE run_id = $1`,
		runID, merged,
	); err != nil {
		return mapError(err)
	}

	r.logger.Info("review patch applied", "runId", runID, "fields", len(patch))
	return nil
}

func (r *repo) SetExportKey(ctx context.Context, runID uuid.UUID, exportKey string) error {
	err := repository.ExecExpectOne(ctx, r.db, `
		UPDATE extraction_results
		SET export_key = $2
		WHERE run_id = $1`,
		runID, exportKey,
	)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrNoResult
		}
		return mapError(err)
	}
	return nil
}

func scanExtractionRecord(s repository.Scanner) (ExtractionRecord, error) {
	var (
		record ExtractionRecord
		merged []byte
	)
	if err := s.Scan(
		&record.ID,
		&record.RunID,
		&record.DocumentID,
		&merged,
		&record.ExportKey,
		&record.CreatedAt,
	); err != nil {
		return ExtractionRecord{}, err
	}

	if err := json.Unmarshal(merged, &record.Merged); err != nil {
		return ExtractionRecord{}, fmt.Errorf("failed to decode extraction result: %w", err)
	}
	return record, nil
}

func mapError(err error) error {
	if errors.Is(err, repository.ErrNotFound) {
		return ErrNotFound
	}
	return err
}
