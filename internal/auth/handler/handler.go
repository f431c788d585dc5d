// Package handler serves the development auth stub: token issuance,
// verification and the Auth0 settings the front end reads at startup.
package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"personas/internal/platform/config"
	dErrors "personas/pkg/domain-errors"
	"personas/pkg/platform/httputil"
	authmw "personas/pkg/platform/middleware/auth"
	request "personas/pkg/platform/middleware/request"
)

const (
	devSubject   = "dev-user"
	devName      = "Usuario de Desarrollo"
	devTokenTTL  = 24 * time.Hour
	devTokenNote = "Token de desarrollo - configurar Auth0 para producción"
)

// TokenIssuer signs development tokens and validates them for the bearer
// middleware.
type TokenIssuer interface {
	authmw.JWTValidator
	Issue(subject, name string, expiresIn time.Duration) (string, error)
}

type Handler struct {
	tokens TokenIssuer
	cfg    config.Auth
	logger *slog.Logger
}

func New(tokens TokenIssuer, cfg config.Auth, logger *slog.Logger) *Handler {
	return &Handler{tokens: tokens, cfg: cfg, logger: logger}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/dev-token", h.handleDevToken)
	r.With(authmw.OptionalAuth(h.tokens, h.logger)).Get("/verify", h.handleVerify)
	r.Get("/config", h.handleConfig)
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int    `json:"expires_in"`
	Message     string `json:"message"`
}

type User struct {
	Sub  string `json:"sub"`
	Name string `json:"name"`
}

type VerifyResponse struct {
	Valid bool `json:"valid"`
	User  User `json:"user"`
}

type ConfigResponse struct {
	Domain   string `json:"domain"`
	Audience string `json:"audience"`
	Mode     string `json:"mode"`
}

func (h *Handler) handleDevToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	tok, err := h.tokens.Issue(devSubject, devName, devTokenTTL)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to sign dev token",
			"request_id", request.GetRequestID(ctx),
			"error", err,
		)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, TokenResponse{
		AccessToken: tok,
		TokenType:   "bearer",
		ExpiresIn:   int(devTokenTTL.Seconds()),
		Message:     devTokenNote,
	})
}

// handleVerify echoes the token subject, or the development user when the
// request carries no token.
func (h *Handler) handleVerify(w http.ResponseWriter, r *http.Request) {
	user := User{Sub: devSubject, Name: devName}
	if c := authmw.GetClaims(r.Context()); c != nil {
		user = User{Sub: c.Subject, Name: c.Name}
	}
	httputil.WriteJSON(w, http.StatusOK, VerifyResponse{Valid: true, User: user})
}

func (h *Handler) handleConfig(w http.ResponseWriter, r *http.Request) {
	mode := "production"
	if h.cfg.DevMode() {
		mode = "development"
	}
	httputil.WriteJSON(w, http.StatusOK, ConfigResponse{
		Domain:   h.cfg.Auth0Domain,
		Audience: h.cfg.Auth0Audience,
		Mode:     mode,
	})
}
