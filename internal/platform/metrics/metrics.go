package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the server-wide Prometheus metrics.
type Metrics struct {
	RequestDuration    *prometheus.HistogramVec
	RegistryOperations *prometheus.CounterVec
}

// New registers the server metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "personas_http_request_duration_seconds",
			Help:    "HTTP request latency by route and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),

		RegistryOperations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "personas_registry_operations_total",
			Help: "Registry operations by type and outcome",
		}, []string{"operation", "outcome"}), // outcome: "ok", "error"
	}
}

// IncrementRegistryOperation counts one registry operation.
func (m *Metrics) IncrementRegistryOperation(operation string, err error) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.RegistryOperations.WithLabelValues(operation, outcome).Inc()
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (s *statusWriter) WriteHeader(code int) {
	s.status = code
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusWriter) Unwrap() http.ResponseWriter {
	return s.ResponseWriter
}

// LatencyMiddleware observes request duration labelled by the matched chi
// route pattern, so path parameters do not explode cardinality.
func LatencyMiddleware(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			sw := &statusWriter{ResponseWriter: w, status: http.StatusOK}
			next.ServeHTTP(sw, r)

			route := "unmatched"
			if rctx := chi.RouteContext(r.Context()); rctx != nil {
				if p := rctx.RoutePattern(); p != "" {
					route = p
				}
			}
			m.RequestDuration.
				WithLabelValues(r.Method, route, strconv.Itoa(sw.status)).
				Observe(time.Since(start).Seconds())
		})
	}
}
