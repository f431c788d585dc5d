package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the question-answering module.
type Metrics struct {
	// Answers by generation strategy
	Answers *prometheus.CounterVec

	// Completion calls that fell back, by failure category
	CompletionFailures *prometheus.CounterVec

	// Full Ask latency including snapshot and audit
	AskLatency prometheus.Histogram
}

// New registers the module metrics on reg. A nil reg uses the default registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	f := promauto.With(reg)
	return &Metrics{
		Answers: f.NewCounterVec(prometheus.CounterOpts{
			Name: "personas_nlp_answers_total",
			Help: "Total answers produced by strategy",
		}, []string{"strategy"}), // strategy: "completion", "heuristic", "empty"

		CompletionFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "personas_nlp_completion_failures_total",
			Help: "Completion attempts that fell back to the heuristic, by category",
		}, []string{"category"}),

		AskLatency: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "personas_nlp_ask_duration_seconds",
			Help:    "Duration of question answering",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}),
	}
}

func (m *Metrics) IncrementAnswer(strategy string) {
	if m != nil {
		m.Answers.WithLabelValues(strategy).Inc()
	}
}

func (m *Metrics) IncrementCompletionFailure(category string) {
	if m != nil {
		m.CompletionFailures.WithLabelValues(category).Inc()
	}
}

func (m *Metrics) ObserveAskLatency(d time.Duration) {
	if m != nil {
		m.AskLatency.Observe(d.Seconds())
	}
}
