package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"personas/internal/consultas/models"
	personas "personas/internal/personas/models"
	"personas/pkg/platform/httputil"
	request "personas/pkg/platform/middleware/request"
)

// Service defines the search and statistics operations used by the handler.
type Service interface {
	Search(ctx context.Context, req models.SearchRequest) ([]personas.Persona, error)
	Statistics(ctx context.Context) (*models.Statistics, error)
}

// Handler serves /consultar and /estadisticas.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Get("/consultar", h.handleSearch)
	r.Get("/estadisticas", h.handleStatistics)
}

func (h *Handler) handleSearch(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	q := r.URL.Query()
	req := models.SearchRequest{
		DocumentNumber: q.Get("numero_documento"),
		DocumentType:   q.Get("tipo_documento"),
		Name:           q.Get("nombre"),
	}
	req.Normalize()

	out, err := h.service.Search(ctx, req)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.DebugContext(ctx, "registry search",
		"request_id", request.GetRequestID(ctx),
		"results", len(out),
	)
	httputil.WriteJSON(w, http.StatusOK, out)
}

func (h *Handler) handleStatistics(w http.ResponseWriter, r *http.Request) {
	stats, err := h.service.Statistics(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, stats)
}
