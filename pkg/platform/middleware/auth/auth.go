package auth

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	request "personas/pkg/platform/middleware/request"
)

// JWTValidator validates bearer tokens.
type JWTValidator interface {
	ValidateToken(tokenString string) (*Claims, error)
}

// Claims is what the middleware keeps from a validated token.
type Claims struct {
	Subject string
	Name    string
	JTI     string
}

type contextKeyClaims struct{}

// GetClaims returns the validated claims, or nil for anonymous requests.
func GetClaims(ctx context.Context) *Claims {
	c, _ := ctx.Value(contextKeyClaims{}).(*Claims)
	return c
}

// WithClaims injects claims into a context; useful in handler tests.
func WithClaims(ctx context.Context, c *Claims) context.Context {
	return context.WithValue(ctx, contextKeyClaims{}, c)
}

func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(fmt.Appendf(nil, `{"error":"%s","error_description":"%s"}`, errCode, errDesc))
}

// OptionalAuth validates a bearer token when one is sent. Requests without an
// Authorization header pass through anonymously; a malformed or invalid token
// is rejected with 401.
func OptionalAuth(validator JWTValidator, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				next.ServeHTTP(w, r)
				return
			}

			ctx := r.Context()
			token, ok := strings.CutPrefix(authHeader, "Bearer ")
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthorized access - malformed authorization header",
					"request_id", request.GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Missing or invalid Authorization header")
				return
			}

			claims, err := validator.ValidateToken(token)
			if err != nil {
				logger.WarnContext(ctx, "unauthorized access - invalid token",
					"error", err,
					"request_id", request.GetRequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthorized", "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(WithClaims(ctx, claims)))
		})
	}
}
