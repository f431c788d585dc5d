package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"personas/internal/personas/models"
	"personas/pkg/platform/httputil"
	request "personas/pkg/platform/middleware/request"
)

// Service defines the registry operations used by the handler.
type Service interface {
	Create(ctx context.Context, record *models.Record) (*models.Persona, error)
	Get(ctx context.Context, documentNumber string) (*models.Persona, error)
	Update(ctx context.Context, documentNumber string, record *models.Record) (*models.Persona, error)
	Delete(ctx context.Context, documentNumber string) error
	List(ctx context.Context) ([]models.Persona, error)
}

// Handler serves the /personas routes.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Route("/personas", func(r chi.Router) {
		r.Post("/", h.handleCreate)
		r.Get("/", h.handleList)
		r.Get("/{numero_documento}", h.handleGet)
		r.Put("/{numero_documento}", h.handleUpdate)
		r.Delete("/{numero_documento}", h.handleDelete)
	})
}

// DeleteResponse confirms a deletion.
type DeleteResponse struct {
	Message string `json:"message"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	record, ok := httputil.DecodeAndPrepare[models.Record](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	p, err := h.service.Create(ctx, record)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "persona created",
		"request_id", requestID,
		"persona_id", p.ID,
	)
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	p, err := h.service.Get(r.Context(), chi.URLParam(r, "numero_documento"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleUpdate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)
	documentNumber := chi.URLParam(r, "numero_documento")

	record, ok := httputil.DecodeAndPrepare[models.Record](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	p, err := h.service.Update(ctx, documentNumber, record)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, p)
}

func (h *Handler) handleDelete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, "numero_documento")); err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, DeleteResponse{Message: "Persona eliminada exitosamente"})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.List(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, out)
}
