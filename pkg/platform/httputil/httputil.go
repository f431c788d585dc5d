// Package httputil holds the JSON envelope helpers shared by every handler.
package httputil

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	dErrors "personas/pkg/domain-errors"
)

// maxBodyBytes bounds request bodies; questions and persona payloads are small.
const maxBodyBytes = 1 << 20

// Validatable is implemented by request DTOs decoded with DecodeAndPrepare.
type Validatable interface {
	Validate() error
}

// Normalizer is optionally implemented by request DTOs to trim and fold input
// before validation.
type Normalizer interface {
	Normalize()
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description,omitempty"`
}

// WriteJSON writes v as JSON with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// WriteError translates err into the JSON error envelope. Internal errors
// never leak their message.
func WriteError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	resp := ErrorResponse{Error: string(code)}
	if code != dErrors.CodeInternal {
		resp.ErrorDescription = err.Error()
	}
	WriteJSON(w, dErrors.HTTPStatus(code), resp)
}

// DecodeAndPrepare decodes the JSON body into T, normalizes and validates it.
// On failure it writes a 400 response and returns false.
func DecodeAndPrepare[T any, PT interface {
	*T
	Validatable
}](w http.ResponseWriter, r *http.Request, logger *slog.Logger, ctx context.Context, requestID string) (*T, bool) {
	req := new(T)
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(req); err != nil {
		logger.WarnContext(ctx, "failed to decode request",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid JSON body"))
		return nil, false
	}

	ptr := PT(req)
	if n, ok := any(ptr).(Normalizer); ok {
		n.Normalize()
	}
	if err := ptr.Validate(); err != nil {
		logger.WarnContext(ctx, "invalid request",
			"request_id", requestID,
			"error", err,
		)
		WriteError(w, err)
		return nil, false
	}
	return req, true
}
