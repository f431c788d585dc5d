// Package nlp answers free-text questions about the persona registry. Each
// question gets a fresh snapshot; the answer comes from the configured
// completion provider when it succeeds and from the local heuristic otherwise.
package nlp

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"personas/internal/nlp/completion"
	"personas/internal/nlp/metrics"
	"personas/internal/personas/models"
	dErrors "personas/pkg/domain-errors"
	"personas/pkg/platform/audit"
	"personas/pkg/requestcontext"
)

// ContextSize is the number of snapshot records echoed with each answer.
const ContextSize = 3

// DefaultCompletionTimeout bounds a single provider call.
const DefaultCompletionTimeout = 15 * time.Second

// Strategy records which path produced an answer.
type Strategy string

const (
	StrategyCompletion Strategy = "completion"
	StrategyHeuristic  Strategy = "heuristic"
	StrategyEmpty      Strategy = "empty"
)

// SnapshotProvider returns every registry record in storage order.
type SnapshotProvider interface {
	Snapshot(ctx context.Context) ([]models.Record, error)
}

// AuditEmitter appends audit entries.
type AuditEmitter interface {
	Emit(ctx context.Context, entry audit.Entry) error
}

// Result is the answer to one question.
type Result struct {
	Question string          `json:"pregunta"`
	Answer   string          `json:"respuesta"`
	Context  []models.Record `json:"contexto"`
	Strategy Strategy        `json:"-"`
}

// Service orchestrates snapshot retrieval, answer generation and auditing.
// It holds no per-question state and is safe for concurrent use.
type Service struct {
	snapshots SnapshotProvider
	provider  completion.Provider
	auditor   AuditEmitter
	logger    *slog.Logger
	metrics   *metrics.Metrics
	tracer    trace.Tracer
	timeout   time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithProvider sets the completion provider. Disabled and nil both mean
// heuristic only.
func WithProvider(p completion.Provider) Option {
	return func(s *Service) {
		if _, disabled := p.(completion.Disabled); disabled {
			p = nil
		}
		s.provider = p
	}
}

func WithAuditor(a AuditEmitter) Option {
	return func(s *Service) { s.auditor = a }
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithCompletionTimeout bounds each provider call. Non-positive values keep
// the default.
func WithCompletionTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

func NewService(snapshots SnapshotProvider, opts ...Option) *Service {
	s := &Service{
		snapshots: snapshots,
		logger:    slog.Default(),
		tracer:    otel.Tracer("personas/nlp"),
		timeout:   DefaultCompletionTimeout,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CompletionAvailable reports whether a provider is configured and currently
// reachable.
func (s *Service) CompletionAvailable() bool {
	return s.provider != nil && s.provider.Available()
}

// Ask answers question from a fresh registry snapshot. The only error it
// returns is a CodeUnavailable domain error when the snapshot cannot be read.
func (s *Service) Ask(ctx context.Context, question string) (*Result, error) {
	start := time.Now()
	defer func() { s.metrics.ObserveAskLatency(time.Since(start)) }()

	ctx, span := s.tracer.Start(ctx, "nlp.Ask")
	defer span.End()

	records, err := s.snapshots.Snapshot(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "snapshot unavailable")
		s.logger.ErrorContext(ctx, "failed to read registry snapshot",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return nil, dErrors.Wrap(err, dErrors.CodeUnavailable, "registry snapshot unavailable")
	}

	answer, strategy := s.generate(ctx, question, records)
	span.SetAttributes(
		attribute.Int("nlp.snapshot_size", len(records)),
		attribute.String("nlp.strategy", string(strategy)),
	)
	s.metrics.IncrementAnswer(string(strategy))

	s.recordAudit(ctx, question, answer)

	n := min(len(records), ContextSize)
	contextRecords := make([]models.Record, n)
	copy(contextRecords, records[:n])

	return &Result{
		Question: question,
		Answer:   answer,
		Context:  contextRecords,
		Strategy: strategy,
	}, nil
}

func (s *Service) generate(ctx context.Context, question string, records []models.Record) (string, Strategy) {
	if len(records) == 0 {
		return NoRecordsMessage, StrategyEmpty
	}
	if s.provider == nil {
		return Answer(question, records), StrategyHeuristic
	}

	if text, ok := s.complete(ctx, question, records); ok {
		return text, StrategyCompletion
	}
	return Answer(question, records), StrategyHeuristic
}

func (s *Service) complete(ctx context.Context, question string, records []models.Record) (string, bool) {
	prompt, err := BuildPrompt(question, records)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to build completion prompt",
			"request_id", requestcontext.RequestID(ctx),
			"error", err,
		)
		return "", false
	}

	ctx, span := s.tracer.Start(ctx, "nlp.Complete",
		trace.WithAttributes(attribute.String("nlp.provider", s.provider.Name())))
	defer span.End()

	callCtx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	res := s.provider.Complete(callCtx, prompt)
	if res.OK() {
		return res.Text, true
	}

	span.RecordError(res.Failure)
	span.SetStatus(codes.Error, string(res.Failure.Category))
	s.metrics.IncrementCompletionFailure(string(res.Failure.Category))
	s.logger.WarnContext(ctx, "completion failed, using heuristic answer",
		"request_id", requestcontext.RequestID(ctx),
		"provider", s.provider.Name(),
		"category", res.Failure.Category,
		"error", res.Failure.Err,
	)
	return "", false
}

func (s *Service) recordAudit(ctx context.Context, question, answer string) {
	if s.auditor == nil {
		return
	}
	err := s.auditor.Emit(ctx, audit.Entry{
		Operation: audit.OperationConsultaNLP,
		Details: map[string]any{
			"pregunta":  question,
			"respuesta": answer,
		},
	})
	if err != nil {
		s.logger.WarnContext(ctx, "failed to write audit entry",
			"request_id", requestcontext.RequestID(ctx),
			"operation", audit.OperationConsultaNLP,
			"error", err,
		)
	}
}
