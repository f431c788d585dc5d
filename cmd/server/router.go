package main

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"personas/internal/platform/metrics"
	"personas/pkg/platform/httputil"
	"personas/pkg/platform/middleware/metadata"
	request "personas/pkg/platform/middleware/request"
	"personas/pkg/platform/middleware/requesttime"
)

type serviceHealth struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Error   string `json:"error,omitempty"`
}

var knownServices = map[string]bool{
	"personas":  true,
	"consultas": true,
	"logs":      true,
	"auth":      true,
}

func newRouter(a *app, reg *prometheus.Registry, log *slog.Logger) http.Handler {
	r := chi.NewRouter()
	r.Use(request.Recovery(log))
	r.Use(request.RequestID)
	r.Use(metadata.ClientMetadata)
	r.Use(requesttime.Middleware)
	r.Use(request.Logger(log))
	r.Use(metrics.LatencyMiddleware(a.metrics))
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))
	r.Get("/health", a.nlpHTTP.HandleHealth)
	r.Get("/health/{service}", func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "service")
		if name == "nlp" {
			a.nlpHTTP.HandleHealth(w, r)
			return
		}
		if !knownServices[name] {
			httputil.WriteJSON(w, http.StatusNotFound, serviceHealth{Status: "unknown", Service: name})
			return
		}
		if name != "auth" {
			if err := a.infra.Ping(r.Context()); err != nil {
				httputil.WriteJSON(w, http.StatusServiceUnavailable,
					serviceHealth{Status: "unhealthy", Service: name, Error: err.Error()})
				return
			}
		}
		httputil.WriteJSON(w, http.StatusOK, serviceHealth{Status: "healthy", Service: name})
	})

	a.personas.Register(r)
	a.consultas.Register(r)
	a.logs.Register(r)
	a.nlpHTTP.Register(r)
	a.auth.Register(r)
	return r
}
