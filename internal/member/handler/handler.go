package handler

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/pych2536/rpca70/internal/member/models"
	"github.com/pych2536/rpca70/internal/platform/middleware"
	"github.com/pych2536/rpca70/internal/settings"
	dErrors "github.com/pych2536/rpca70/pkg/domain-errors"
	"github.com/pych2536/rpca70/pkg/platform/httputil"
)

// Service defines the record operations the handlers call.
// Returns domain objects, not HTTP response DTOs.
type Service interface {
	Search(ctx context.Context, first, last string) (int, error)
	View(ctx context.Context, seq int) (*models.Record, error)
	Confirm(ctx context.Context, seq int) error
	ApplyEdit(ctx context.Context, seq int, patch map[string]string) error
	ResetStatus(ctx context.Context, seq int) error
	Directory(ctx context.Context, query string) ([]*models.Record, error)
	ListForAdmin(ctx context.Context) ([]*models.Record, models.Stats, error)
}

// Importer replaces the dataset from an uploaded CSV stream.
type Importer interface {
	ImportReplace(ctx context.Context, r io.Reader) (*models.ImportReport, error)
}

// Exporter serializes the dataset back to CSV bytes.
type Exporter interface {
	ExportAll(ctx context.Context) ([]byte, error)
}

type Handler struct {
	service  Service
	importer Importer
	exporter Exporter
	settings *settings.Store
	logger   *slog.Logger
}

func New(service Service, importer Importer, exporter Exporter, set *settings.Store, logger *slog.Logger) *Handler {
	return &Handler{
		service:  service,
		importer: importer,
		exporter: exporter,
		settings: set,
		logger:   logger,
	}
}

// Register mounts the member-facing routes.
func (h *Handler) Register(r chi.Router) {
	r.Post("/search", h.HandleSearch)
	r.Get("/records/{seq}", h.HandleView)
	r.Post("/records/{seq}/confirm", h.HandleConfirm)
	r.Put("/records/{seq}", h.HandleEdit)
	r.Get("/directory", h.HandleDirectory)
}

// RegisterAdmin mounts the admin routes. The caller wraps them with the admin
// session middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Get("/admin/records", h.HandleAdminList)
	r.Post("/admin/import", h.HandleImport)
	r.Get("/admin/export", h.HandleExport)
	r.Post("/admin/records/{seq}/reset", h.HandleReset)
	r.Put("/admin/records/{seq}", h.HandleEdit)
	r.Get("/admin/settings", h.HandleGetSettings)
	r.Put("/admin/settings", h.HandleSetSettings)
}

func sequenceParam(r *http.Request) (int, error) {
	seq, err := strconv.Atoi(chi.URLParam(r, "seq"))
	if err != nil || seq <= 0 {
		return 0, dErrors.New(dErrors.CodeBadRequest, "invalid sequence number")
	}
	return seq, nil
}

// HandleSearch finds a record by first and last name.
func (h *Handler) HandleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[SearchRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	seq, err := h.service.Search(ctx, req.FirstName, req.LastName)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &SearchResponse{SequenceID: seq})
}

// HandleView returns one record.
func (h *Handler) HandleView(w http.ResponseWriter, r *http.Request) {
	seq, err := sequenceParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	rec, err := h.service.View(r.Context(), seq)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(rec))
}

// HandleConfirm marks a record confirmed and stamps the time.
func (h *Handler) HandleConfirm(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	seq, err := sequenceParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.Confirm(ctx, seq); err != nil {
		httputil.WriteError(w, err)
		return
	}

	rec, err := h.service.View(ctx, seq)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(rec))
}

// HandleEdit applies a partial form patch to a record.
func (h *Handler) HandleEdit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	seq, err := sequenceParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	req, ok := httputil.DecodeAndPrepare[EditRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.service.ApplyEdit(ctx, seq, req.Fields); err != nil {
		h.logger.ErrorContext(ctx, "edit failed", "error", err, "request_id", requestID, "seq", seq)
		httputil.WriteError(w, err)
		return
	}

	rec, err := h.service.View(ctx, seq)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponse(rec))
}

// HandleDirectory serves the free-text directory search.
func (h *Handler) HandleDirectory(w http.ResponseWriter, r *http.Request) {
	recs, err := h.service.Directory(r.Context(), r.URL.Query().Get("q"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toRecordResponses(recs))
}

// HandleAdminList returns all records plus confirmation stats.
func (h *Handler) HandleAdminList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	recs, stats, err := h.service.ListForAdmin(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "admin list failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, &AdminListResponse{
		Records: toRecordResponses(recs),
		Stats:   stats,
	})
}

// HandleImport replaces the dataset from an uploaded CSV file.
func (h *Handler) HandleImport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	file, _, err := r.FormFile("file")
	if err != nil {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "no file uploaded"))
		return
	}
	defer file.Close()

	report, err := h.importer.ImportReplace(ctx, file)
	if err != nil {
		h.logger.ErrorContext(ctx, "import failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, report)
}

// HandleExport streams the dataset as a CSV attachment.
func (h *Handler) HandleExport(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	data, err := h.exporter.ExportAll(ctx)
	if err != nil {
		h.logger.ErrorContext(ctx, "export failed", "error", err, "request_id", requestID)
		httputil.WriteError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="alumni.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// HandleReset returns a record to unconfirmed.
func (h *Handler) HandleReset(w http.ResponseWriter, r *http.Request) {
	seq, err := sequenceParam(r)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	if err := h.service.ResetStatus(r.Context(), seq); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "reset"})
}

// HandleGetSettings returns the feature flags.
func (h *Handler) HandleGetSettings(w http.ResponseWriter, r *http.Request) {
	flags, err := h.settings.Flags()
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "could not read settings"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, flags)
}

// HandleSetSettings replaces the feature flags.
func (h *Handler) HandleSetSettings(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	req, ok := httputil.DecodeJSON[settings.Flags](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	if err := h.settings.SetFlags(*req); err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "could not write settings"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, req)
}
