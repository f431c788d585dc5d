package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"personas/internal/nlp"
	dErrors "personas/pkg/domain-errors"
	"personas/pkg/platform/httputil"
	request "personas/pkg/platform/middleware/request"
)

// Service defines the question-answering operations used by the handler.
type Service interface {
	Ask(ctx context.Context, question string) (*nlp.Result, error)
	CompletionAvailable() bool
}

// Handler serves /consulta-nlp and the NLP health probe.
type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the routes on r. Health is registered separately so the
// server can expose it under a service-specific prefix.
func (h *Handler) Register(r chi.Router) {
	r.Post("/consulta-nlp", h.HandleAsk)
}

// AskRequest is the /consulta-nlp body.
type AskRequest struct {
	Question *string `json:"pregunta"`
}

func (r *AskRequest) Validate() error {
	if r.Question == nil {
		return dErrors.New(dErrors.CodeValidation, "pregunta is required")
	}
	return nil
}

// HealthResponse reports completion availability.
type HealthResponse struct {
	Status          string `json:"status"`
	Service         string `json:"service"`
	GeminiAvailable bool   `json:"gemini_available"`
}

func (h *Handler) HandleAsk(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[AskRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	res, err := h.service.Ask(ctx, *req.Question)
	if err != nil {
		h.logger.ErrorContext(ctx, "question answering failed",
			"request_id", requestID,
			"error", err,
		)
		if dErrors.Is(err, dErrors.CodeUnavailable) {
			httputil.WriteError(w, err)
			return
		}
		httputil.WriteError(w, dErrors.New(dErrors.CodeInternal, "failed to answer question"))
		return
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleHealth(w http.ResponseWriter, r *http.Request) {
	httputil.WriteJSON(w, http.StatusOK, HealthResponse{
		Status:          "healthy",
		Service:         "nlp",
		GeminiAvailable: h.service.CompletionAvailable(),
	})
}
