package testutil

import (
	"net/http"
	"time"

	authmw "personas/pkg/platform/middleware/auth"
	"personas/pkg/requestcontext"
)

// WithClaims attaches validated token claims, as OptionalAuth would.
func WithClaims(req *http.Request, subject, name string) *http.Request {
	return req.WithContext(authmw.WithClaims(req.Context(), &authmw.Claims{Subject: subject, Name: name}))
}

// WithRequestID sets the request ID normally assigned by the request middleware.
func WithRequestID(req *http.Request, id string) *http.Request {
	return req.WithContext(requestcontext.WithRequestID(req.Context(), id))
}

// WithRequestTime pins the request clock.
func WithRequestTime(req *http.Request, t time.Time) *http.Request {
	return req.WithContext(requestcontext.WithTime(req.Context(), t))
}
