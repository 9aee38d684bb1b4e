package runs

import (
	"errors"
	"net/http"
	"net/url"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ledgerworks/conveyor/pipeline"
	"github.com/ledgerworks/conveyor/pkg/query"
)

func TestFiltersApply(t *testing.T) {
	filters := Filters{
		Status:        "failed",
		DocumentID:    "6a1f6f2e-9f5e-4f0a-8c57-6e0a4b3f9d21",
		SortField:     "createdAt",
		SortDirection: "desc",
	}

	builder := filters.apply(query.NewBuilder(runProjection()))
	sql, args := builder.Build()

	assert.Contains(t, sql, "r.status = $1")
	assert.Contains(t, sql, "r.document_id = $2")
	assert.Contains(t, sql, "ORDER BY r.created_at DESC")
	require.Len(t, args, 2)
	assert.Equal(t, "failed", args[0])
}

func TestFiltersDefaultOrdering(t *testing.T) {
	sql, args := Filters{}.apply(query.NewBuilder(runProjection())).Build()

	assert.Contains(t, sql, "ORDER BY r.created_at ASC")
	assert.Empty(t, args)
}

func TestFiltersFromQuery(t *testing.T) {
	values := url.Values{}
	values.Set("status", "suspended")
	values.Set("stage", "review")
	values.Set("documentId", "6a1f6f2e-9f5e-4f0a-8c57-6e0a4b3f9d21")
	values.Set("sortField", "attempt")
	values.Set("sortDirection", "desc")

	filters := FiltersFromQuery(values)

	assert.Equal(t, "suspended", filters.Status)
	assert.Equal(t, "review", filters.Stage)
	assert.Equal(t, "6a1f6f2e-9f5e-4f0a-8c57-6e0a4b3f9d21", filters.DocumentID)
	assert.Equal(t, "attempt", filters.SortField)
	assert.Equal(t, "desc", filters.SortDirection)
}

func TestRunTerminal(t *testing.T) {
	tests := []struct {
		status   pipeline.Status
		terminal bool
	}{
		{pipeline.StatusQueued, false},
		{pipeline.StatusRunning, false},
		{pipeline.StatusSuspended, false},
		{pipeline.StatusSucceeded, true},
		{pipeline.StatusFailed, true},
		{pipeline.StatusCancelled, true},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			run := Run{Status: tt.status}
			assert.Equal(t, tt.terminal, run.Terminal())
		})
	}
}

func TestMapHTTPStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected int
	}{
		{"not found", ErrNotFound, http.StatusNotFound},
		{"no result", ErrNoResult, http.StatusNotFound},
		{"no export", ErrNoExport, http.StatusNotFound},
		{"not failed", ErrNotFailed, http.StatusConflict},
		{"not suspended", ErrNotSuspended, http.StatusConflict},
		{"terminal", ErrTerminal, http.StatusConflict},
		{"unknown", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, MapHTTPStatus(tt.err))
		})
	}
}

func TestExportNaming(t *testing.T) {
	id := uuid.MustParse("6a1f6f2e-9f5e-4f0a-8c57-6e0a4b3f9d21")

	assert.Equal(t, "exports/6a1f6f2e-9f5e-4f0a-8c57-6e0a4b3f9d21.xlsx", ExportKey(id))
	assert.Equal(t, "invoice-6a1f6f2e-9f5e-4f0a-8c57-6e0a4b3f9d21.xlsx", ExportFileName(id))
}
