package runs

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/ledgerworks/conveyor/internal/config"
	"github.com/ledgerworks/conveyor/internal/documents"
	"github.com/ledgerworks/conveyor/pipeline"
	"github.com/ledgerworks/conveyor/pkg/handlers"
	"github.com/ledgerworks/conveyor/pkg/pagination"
	"github.com/ledgerworks/conveyor/pkg/routes"
	"github.com/ledgerworks/conveyor/pkg/storage"
)

// Dispatcher starts, retries, and signals pipeline runs on the durable
// execution substrate. Implemented by the dispatch package; declared here
// so the handler depends only on the operations it uses.
type Dispatcher interface {
	Submit(ctx context.Context, documentID uuid.UUID) (Run, error)
	Retry(ctx context.Context, runID uuid.UUID) (Run, error)
	Approve(ctx context.Context, runID uuid.UUID, decision pipeline.ReviewDecision) error
	Cancel(ctx context.Context, runID uuid.UUID) error
	Progress(ctx context.Context, runID uuid.UUID) (pipeline.Progress, error)
}

// SubmitRequest starts a pipeline run over an uploaded document.
type SubmitRequest struct {
	DocumentID uuid.UUID `json:"documentId"`
}

// Handler serves the run endpoints.
type Handler struct {
	system     System
	dispatcher Dispatcher
	storage    storage.System
	config     config.APIConfig
	logger     *slog.Logger
}

// NewHandler creates the runs Handler.
func NewHandler(system System, dispatcher Dispatcher, store storage.System, cfg config.APIConfig, logger *slog.Logger) *Handler {
	return &Handler{
		system:     system,
		dispatcher: dispatcher,
		storage:    store,
		config:     cfg,
		logger:     logger.With("handler", "runs"),
	}
}

// Routes returns the runs route group.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/runs",
		Routes: []routes.Route{
			{Method: http.MethodPost, Pattern: "", Handler: h.submit},
			{Method: http.MethodGet, Pattern: "", Handler: h.list},
			{Method: http.MethodGet, Pattern: "/stats", Handler: h.stats},
			{Method: http.MethodGet, Pattern: "/{id}", Handler: h.get},
			{Method: http.MethodGet, Pattern: "/{id}/status", Handler: h.status},
			{Method: http.MethodGet, Pattern: "/{id}/stages", Handler: h.stages},
			{Method: http.MethodGet, Pattern: "/{id}/result", Handler: h.result},
			{Method: http.MethodGet, Pattern: "/{id}/export", Handler: h.export},
			{Method: http.MethodPost, Pattern: "/{id}/approve", Handler: h.approve},
			{Method: http.MethodPost, Pattern: "/{id}/cancel", Handler: h.cancel},
			{Method: http.MethodPost, Pattern: "/{id}/retry", Handler: h.retry},
		},
	}
}

func (h *Handler) submit(w http.ResponseWriter, r *http.Request) {
	var request SubmitRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}
	if request.DocumentID == uuid.Nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("documentId is required"))
		return
	}

	run, err := h.dispatcher.Submit(r.Context(), request.DocumentID)
	if err != nil {
		handlers.RespondError(w, h.logger, mapDispatchStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusAccepted, run)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filters := FiltersFromQuery(r.URL.Query())
	page := pagination.PageRequestFromQuery(r.URL.Query(), h.config.Pagination)

	result, err := h.system.List(r.Context(), filters, page)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, result)
}

func (h *Handler) stats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.system.Stats(r.Context())
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, stats)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	run, err := h.system.Get(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, run)
}

func (h *Handler) status(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	progress, err := h.dispatcher.Progress(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, mapDispatchStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, progress)
}

func (h *Handler) stages(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	history, err := h.system.StageHistory(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, history)
}

func (h *Handler) result(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	record, err := h.system.GetResult(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, record)
}

func (h *Handler) export(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	record, err := h.system.GetResult(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	if record.ExportKey == "" {
		handlers.RespondError(w, h.logger, http.StatusNotFound, ErrNoExport)
		return
	}

	result, err := h.storage.Download(r.Context(), record.ExportKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			handlers.RespondError(w, h.logger, http.StatusNotFound, ErrNoExport)
			return
		}
		handlers.RespondError(w, h.logger, http.StatusInternalServerError, err)
		return
	}
	defer result.Body.Close()

	w.Header().Set("Content-Type", ExportContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", ExportFileName(id)))
	if result.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(result.ContentLength, 10))
	}

	if _, err := io.Copy(w, result.Body); err != nil {
		h.logger.Error("failed to stream export", "id", id, "error", err)
	}
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	var decision pipeline.ReviewDecision
	if err := json.NewDecoder(r.Body).Decode(&decision); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("invalid request body: %w", err))
		return
	}

	if err := h.dispatcher.Approve(r.Context(), id, decision); err != nil {
		handlers.RespondError(w, h.logger, mapDispatchStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusAccepted, map[string]string{"status": "approved"})
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	if err := h.dispatcher.Cancel(r.Context(), id); err != nil {
		handlers.RespondError(w, h.logger, mapDispatchStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusAccepted, map[string]string{"status": "cancelling"})
}

func (h *Handler) retry(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	run, err := h.dispatcher.Retry(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, mapDispatchStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusAccepted, run)
}

func mapDispatchStatus(err error) int {
	if errors.Is(err, documents.ErrNotFound) {
		return http.StatusNotFound
	}
	return MapHTTPStatus(err)
}

func parseID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid run id: %w", err)
	}
	return id, nil
}
