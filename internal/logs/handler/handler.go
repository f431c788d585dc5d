package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"personas/internal/logs/models"
	"personas/pkg/platform/audit"
	"personas/pkg/platform/httputil"
	request "personas/pkg/platform/middleware/request"
)

// Service defines the audit log queries used by the handler.
type Service interface {
	List(ctx context.Context, req models.ListRequest) ([]models.LogEntry, error)
	Summary(ctx context.Context) (*audit.Summary, error)
}

// Handler serves the /logs routes.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/logs", h.handleList)
	r.Get("/logs/resumen", h.handleSummary)
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	out, err := h.service.List(ctx, models.ListRequest{
		Operation:      q.Get("tipo_operacion"),
		DocumentNumber: q.Get("numero_documento"),
		From:           q.Get("fecha_inicio"),
		To:             q.Get("fecha_fin"),
	})
	if err != nil {
		h.logger.WarnContext(ctx, "log query rejected",
			"request_id", request.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := h.service.Summary(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, summary)
}
