package documents

import (
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/ledgerworks/conveyor/internal/config"
	"github.com/ledgerworks/conveyor/pkg/handlers"
	"github.com/ledgerworks/conveyor/pkg/pagination"
	"github.com/ledgerworks/conveyor/pkg/routes"
)

// Handler serves the document endpoints.
type Handler struct {
	system System
	config config.APIConfig
	logger *slog.Logger
}

// NewHandler creates the documents Handler.
func NewHandler(system System, cfg config.APIConfig, logger *slog.Logger) *Handler {
	return &Handler{
		system: system,
		config: cfg,
		logger: logger.With("handler", "documents"),
	}
}

// Routes returns the documents route group.
func (h *Handler) Routes() routes.Group {
	return routes.Group{
		Prefix: "/documents",
		Routes: []routes.Route{
			{Method: http.MethodPost, Pattern: "/upload", Handler: h.upload},
			{Method: http.MethodGet, Pattern: "", Handler: h.list},
			{Method: http.MethodGet, Pattern: "/{id}", Handler: h.get},
			{Method: http.MethodGet, Pattern: "/{id}/download", Handler: h.download},
			{Method: http.MethodDelete, Pattern: "/{id}", Handler: h.remove},
		},
	}
}

func (h *Handler) upload(w http.ResponseWriter, r *http.Request) {
	maxBytes := h.config.MaxUploadSizeBytes()
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)

	if err := r.ParseMultipartForm(maxBytes); err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("failed to parse upload: %w", err))
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("missing file field: %w", err))
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, fmt.Errorf("failed to read upload: %w", err))
		return
	}

	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	resolution, err := h.system.Resolve(r.Context(), header.Filename, data, mimeType)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	status := http.StatusOK
	if resolution.IsNew {
		status = http.StatusCreated
	}
	handlers.RespondJSON(w, status, resolution)
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

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	document, err := h.system.Get(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusOK, document)
}

func (h *Handler) download(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	document, result, err := h.system.Download(r.Context(), id)
	if err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}
	defer result.Body.Close()

	w.Header().Set("Content-Type", document.MimeType)
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", document.FileName))
	if result.ContentLength > 0 {
		w.Header().Set("Content-Length", strconv.FormatInt(result.ContentLength, 10))
	}

	if _, err := io.Copy(w, result.Body); err != nil {
		h.logger.Error("failed to stream document", "id", id, "error", err)
	}
}

func (h *Handler) remove(w http.ResponseWriter, r *http.Request) {
	id, err := parseID(r)
	if err != nil {
		handlers.RespondError(w, h.logger, http.StatusBadRequest, err)
		return
	}

	if err := h.system.Delete(r.Context(), id); err != nil {
		handlers.RespondError(w, h.logger, MapHTTPStatus(err), err)
		return
	}

	handlers.RespondJSON(w, http.StatusNoContent, nil)
}

func parseID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid document id: %w", err)
	}
	return id, nil
}
