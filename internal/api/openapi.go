package api

import (
	"net/http"

	"github.com/ledgerworks/conveyor/internal/config"
	"github.com/ledgerworks/conveyor/pkg/openapi"
)

// apiSpec builds the OpenAPI document for the API module. Patterns are
// relative to the module base path.
func apiSpec(cfg *config.Config) *openapi.Spec {
	spec := openapi.New(
		"Conveyor API",
		"Invoice ingestion, durable extraction pipelines, and export delivery.",
		cfg.Version,
	).
		AddServer(cfg.API.BasePath, "API module base path").
		AddTag("documents", "Uploaded source documents").
		AddTag("runs", "Pipeline runs over documents").
		AddTag("storage", "Raw blob browsing")

	registerSchemas(spec)
	registerDocumentPaths(spec)
	registerRunPaths(spec)
	registerStoragePaths(spec)

	return spec
}

func registerSchemas(spec *openapi.Spec) {
	spec.AddSchema("Error", openapi.Object(map[string]*openapi.Schema{
		"error": openapi.String("Human-readable failure description"),
	}, "error"))

	spec.AddSchema("Document", openapi.Object(map[string]*openapi.Schema{
		"id":          openapi.UUID("Document identifier"),
		"fileName":    openapi.String("Original upload file name"),
		"contentHash": openapi.String("Content hash identifying the document bytes"),
		"byteSize":    openapi.Integer("Size of the stored document in bytes"),
		"mimeType":    openapi.String("Detected or declared MIME type"),
		"pageCount":   openapi.Integer("Number of pages, 0 when unknown"),
		"storageKey":  openapi.String("Blob storage key of the original upload"),
		"status":      openapi.Enum("Processing status", "pending", "processing", "processed", "failed"),
		"uploadedAt":  openapi.String("Upload timestamp"),
		"updatedAt":   openapi.String("Last status change timestamp"),
	}, "id", "fileName", "contentHash", "status"))

	spec.AddSchema("DocumentResolution", openapi.Object(map[string]*openapi.Schema{
		"document": openapi.Ref("Document"),
		"isNew":    openapi.Boolean("False when the upload matched an existing document by content hash"),
	}, "document", "isNew"))

	spec.AddSchema("Run", openapi.Object(map[string]*openapi.Schema{
		"id":           openapi.UUID("Run identifier"),
		"documentId":   openapi.UUID("Source document identifier"),
		"inputKey":     openapi.String("Content hash the run lineage is keyed on"),
		"workflowId":   openapi.String("Durable workflow identifier of the current attempt"),
		"attempt":      openapi.Integer("Zero-based retry attempt"),
		"stage":        stageSchema(),
		"status":       statusSchema(),
		"needsReview":  openapi.Boolean("True when the run is waiting on a reviewer"),
		"errorSummary": openapi.String("Failure summary for failed runs"),
		"createdAt":    openapi.String("Submission timestamp"),
		"finishedAt":   openapi.String("Terminal settlement timestamp"),
	}, "id", "documentId", "inputKey", "workflowId", "stage", "status"))

	spec.AddSchema("StageResult", openapi.Object(map[string]*openapi.Schema{
		"id":           openapi.UUID("Stage result identifier"),
		"runId":        openapi.UUID("Owning run identifier"),
		"stage":        stageSchema(),
		"attempt":      openapi.Integer("Per-stage attempt counter"),
		"state":        openapi.Enum("Stage execution state", "running", "succeeded", "failed", "skipped"),
		"errorCode":    openapi.String("Machine-readable failure code"),
		"errorMessage": openapi.String("Failure detail"),
		"payload":      openapi.Object(nil),
		"startedAt":    openapi.String("Stage start timestamp"),
		"finishedAt":   openapi.String("Stage close timestamp"),
	}, "id", "runId", "stage", "state"))

	spec.AddSchema("ExtractionRecord", openapi.Object(map[string]*openapi.Schema{
		"id":         openapi.UUID("Record identifier"),
		"runId":      openapi.UUID("Run that produced the record"),
		"documentId": openapi.UUID("Source document identifier"),
		"merged":     openapi.Object(nil),
		"exportKey":  openapi.String("Blob storage key of the rendered workbook"),
		"createdAt":  openapi.String("Merge timestamp"),
	}, "id", "runId", "documentId", "merged"))

	spec.AddSchema("Progress", openapi.Object(map[string]*openapi.Schema{
		"status":        statusSchema(),
		"stage":         stageSchema(),
		"document_id":   openapi.UUID("Source document identifier"),
		"chunk_count":   openapi.Integer("Chunks planned for extraction"),
		"failed_chunks": openapi.Integer("Chunks that exhausted retries"),
		"needs_review":  openapi.Boolean("True while suspended for review"),
		"error":         openapi.String("Failure summary when failed"),
	}, "status", "stage"))

	spec.AddSchema("RunStats", openapi.Object(map[string]*openapi.Schema{
		"total":    openapi.Integer("Total number of runs"),
		"byStatus": openapi.Object(nil),
		"byStage":  openapi.Object(nil),
	}, "total"))

	spec.AddSchema("SubmitRequest", openapi.Object(map[string]*openapi.Schema{
		"documentId": openapi.UUID("Document to submit"),
	}, "documentId"))

	spec.AddSchema("ReviewDecision", openapi.Object(map[string]*openapi.Schema{
		"approved_by":  openapi.String("Reviewer identity"),
		"note":         openapi.String("Optional reviewer note"),
		"header_patch": openapi.Object(nil),
	}, "approved_by"))

	spec.AddSchema("StorageObject", openapi.Object(map[string]*openapi.Schema{
		"name":         openapi.String("Blob key"),
		"size":         openapi.Integer("Blob size in bytes"),
		"contentType":  openapi.String("Stored content type"),
		"lastModified": openapi.String("Last modification timestamp"),
	}, "name"))
}

func registerDocumentPaths(spec *openapi.Spec) {
	spec.Path("/documents/upload").Post = openapi.NewOperation(
		"documents", "Upload a document, resolving duplicates by content hash", "uploadDocument").
		WithJSONResponse(http.StatusCreated, "New document stored", openapi.Ref("DocumentResolution")).
		WithJSONResponse(http.StatusOK, "Upload matched an existing document", openapi.Ref("DocumentResolution")).
		WithJSONResponse(http.StatusBadRequest, "Malformed upload", openapi.Ref("Error"))

	spec.Path("/documents").Get = openapi.NewOperation(
		"documents", "List documents", "listDocuments").
		WithQueryParam("status", "Filter by processing status", openapi.String("")).
		WithQueryParam("search", "Filter by file name fragment", openapi.String("")).
		WithQueryParam("page", "Page number", openapi.Integer("")).
		WithQueryParam("pageSize", "Page size", openapi.Integer("")).
		WithJSONResponse(http.StatusOK, "Paged documents", pagedSchema("Document"))

	spec.Path("/documents/{id}").Get = openapi.NewOperation(
		"documents", "Fetch a document", "getDocument").
		WithPathParam("id", "Document identifier", openapi.UUID("")).
		WithJSONResponse(http.StatusOK, "Document", openapi.Ref("Document")).
		WithJSONResponse(http.StatusNotFound, "Unknown document", openapi.Ref("Error"))

	spec.Path("/documents/{id}").Delete = openapi.NewOperation(
		"documents", "Delete a document and its stored blob", "deleteDocument").
		WithPathParam("id", "Document identifier", openapi.UUID("")).
		WithEmptyResponse(http.StatusNoContent, "Deleted").
		WithJSONResponse(http.StatusConflict, "Document has pipeline runs", openapi.Ref("Error")).
		WithJSONResponse(http.StatusNotFound, "Unknown document", openapi.Ref("Error"))

	spec.Path("/documents/{id}/download").Get = openapi.NewOperation(
		"documents", "Download the original document bytes", "downloadDocument").
		WithPathParam("id", "Document identifier", openapi.UUID("")).
		WithBinaryResponse(http.StatusOK, "Document stream", "application/pdf").
		WithJSONResponse(http.StatusNotFound, "Unknown document", openapi.Ref("Error"))
}

func registerRunPaths(spec *openapi.Spec) {
	spec.Path("/runs").Post = openapi.NewOperation(
		"runs", "Submit a document for pipeline processing", "submitRun").
		WithJSONRequest("Submission request", openapi.Ref("SubmitRequest")).
		WithJSONResponse(http.StatusAccepted, "Run accepted; duplicates resolve to the existing run", openapi.Ref("Run")).
		WithJSONResponse(http.StatusNotFound, "Unknown document", openapi.Ref("Error"))

	spec.Path("/runs").Get = openapi.NewOperation(
		"runs", "List runs", "listRuns").
		WithQueryParam("status", "Filter by run status", statusSchema()).
		WithQueryParam("stage", "Filter by current stage", stageSchema()).
		WithQueryParam("documentId", "Filter by source document", openapi.UUID("")).
		WithQueryParam("page", "Page number", openapi.Integer("")).
		WithQueryParam("pageSize", "Page size", openapi.Integer("")).
		WithJSONResponse(http.StatusOK, "Paged runs", pagedSchema("Run"))

	spec.Path("/runs/stats").Get = openapi.NewOperation(
		"runs", "Aggregate run counts by status and stage", "runStats").
		WithJSONResponse(http.StatusOK, "Run statistics", openapi.Ref("RunStats"))

	spec.Path("/runs/{id}").Get = openapi.NewOperation(
		"runs", "Fetch a run", "getRun").
		WithPathParam("id", "Run identifier", openapi.UUID("")).
		WithJSONResponse(http.StatusOK, "Run", openapi.Ref("Run")).
		WithJSONResponse(http.StatusNotFound, "Unknown run", openapi.Ref("Error"))

	spec.Path("/runs/{id}/status").Get = openapi.NewOperation(
		"runs", "Live run progress, falling back to persisted state", "runStatus").
		WithPathParam("id", "Run identifier", openapi.UUID("")).
		WithJSONResponse(http.StatusOK, "Progress snapshot", openapi.Ref("Progress")).
		WithJSONResponse(http.StatusNotFound, "Unknown run", openapi.Ref("Error"))

	spec.Path("/runs/{id}/stages").Get = openapi.NewOperation(
		"runs", "Stage execution history across attempts", "runStages").
		WithPathParam("id", "Run identifier", openapi.UUID("")).
		WithJSONResponse(http.StatusOK, "Stage results, oldest first", openapi.Array(openapi.Ref("StageResult"))).
		WithJSONResponse(http.StatusNotFound, "Unknown run", openapi.Ref("Error"))

	spec.Path("/runs/{id}/result").Get = openapi.NewOperation(
		"runs", "Merged extraction result", "runResult").
		WithPathParam("id", "Run identifier", openapi.UUID("")).
		WithJSONResponse(http.StatusOK, "Extraction record", openapi.Ref("ExtractionRecord")).
		WithJSONResponse(http.StatusNotFound, "Run has no merged result", openapi.Ref("Error"))

	spec.Path("/runs/{id}/export").Get = openapi.NewOperation(
		"runs", "Download the rendered workbook", "runExport").
		WithPathParam("id", "Run identifier", openapi.UUID("")).
		WithBinaryResponse(http.StatusOK, "Workbook stream",
			"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet").
		WithJSONResponse(http.StatusNotFound, "Run has no export artifact", openapi.Ref("Error"))

	spec.Path("/runs/{id}/approve").Post = openapi.NewOperation(
		"runs", "Approve a suspended run, optionally patching header fields", "approveRun").
		WithPathParam("id", "Run identifier", openapi.UUID("")).
		WithJSONRequest("Review decision", openapi.Ref("ReviewDecision")).
		WithJSONResponse(http.StatusAccepted, "Approval signalled", openapi.Object(nil)).
		WithJSONResponse(http.StatusConflict, "Run is not suspended", openapi.Ref("Error"))

	spec.Path("/runs/{id}/cancel").Post = openapi.NewOperation(
		"runs", "Cancel a run before it settles", "cancelRun").
		WithPathParam("id", "Run identifier", openapi.UUID("")).
		WithJSONResponse(http.StatusAccepted, "Cancellation signalled", openapi.Object(nil)).
		WithJSONResponse(http.StatusConflict, "Run already settled", openapi.Ref("Error"))

	spec.Path("/runs/{id}/retry").Post = openapi.NewOperation(
		"runs", "Reopen a failed run for a fresh attempt", "retryRun").
		WithPathParam("id", "Run identifier", openapi.UUID("")).
		WithJSONResponse(http.StatusAccepted, "Run reopened", openapi.Ref("Run")).
		WithJSONResponse(http.StatusConflict, "Run is not failed", openapi.Ref("Error"))
}

func registerStoragePaths(spec *openapi.Spec) {
	spec.Path("/storage").Get = openapi.NewOperation(
		"storage", "List blobs by key prefix", "listBlobs").
		WithQueryParam("prefix", "Key prefix", openapi.String("")).
		WithQueryParam("max_results", "Maximum number of blobs", openapi.Integer("")).
		WithJSONResponse(http.StatusOK, "Blobs", openapi.Array(openapi.Ref("StorageObject")))

	spec.Path("/storage/find/{pattern}").Get = openapi.NewOperation(
		"storage", "Find blobs whose keys contain a pattern", "findBlobs").
		WithPathParam("pattern", "Key fragment", openapi.String("")).
		WithQueryParam("max_results", "Maximum number of blobs", openapi.Integer("")).
		WithJSONResponse(http.StatusOK, "Blobs", openapi.Array(openapi.Ref("StorageObject")))

	spec.Path("/storage/download/{key}").Get = openapi.NewOperation(
		"storage", "Download a blob", "downloadBlob").
		WithPathParam("key", "Blob key", openapi.String("")).
		WithBinaryResponse(http.StatusOK, "Blob stream", "application/octet-stream").
		WithJSONResponse(http.StatusNotFound, "Unknown blob", openapi.Ref("Error"))
}

func pagedSchema(item string) *openapi.Schema {
	return openapi.Object(map[string]*openapi.Schema{
		"items":      openapi.Array(openapi.Ref(item)),
		"page":       openapi.Integer("Current page number"),
		"pageSize":   openapi.Integer("Items per page"),
		"totalItems": openapi.Integer("Total matching items"),
		"totalPages": openapi.Integer("Total pages"),
	}, "items", "page", "pageSize", "totalItems", "totalPages")
}

func stageSchema() *openapi.Schema {
	return openapi.Enum("Pipeline stage",
		"classify", "parse", "extract", "validate", "review", "export", "deliver")
}

func statusSchema() *openapi.Schema {
	return openapi.Enum("Run status",
		"queued", "running", "suspended", "succeeded", "failed", "cancelled")
}
