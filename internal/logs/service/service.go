// Package service reads the audit log for the /logs routes.
package service

import (
	"context"
	"log/slog"
	"time"

	"personas/internal/logs/models"
	dErrors "personas/pkg/domain-errors"
	"personas/pkg/platform/audit"
	"personas/pkg/requestcontext"
)

// RecentWindow bounds the operaciones_24h count.
const RecentWindow = 24 * time.Hour

// Reader is the read side of the audit store.
type Reader interface {
	List(ctx context.Context, filter audit.Filter) ([]audit.Entry, error)
	Summarize(ctx context.Context, since time.Time) (*audit.Summary, error)
}

type Service struct {
	reader Reader
	logger *slog.Logger
}

func New(reader Reader, logger *slog.Logger) *Service {
	return &Service{reader: reader, logger: logger}
}

// List returns at most audit.DefaultListLimit entries, newest first.
func (s *Service) List(ctx context.Context, req models.ListRequest) ([]models.LogEntry, error) {
	filter, err := req.Filter()
	if err != nil {
		return nil, err
	}
	entries, err := s.reader.List(ctx, filter)
	if err != nil {
		return nil, s.internal(ctx, "list", err)
	}
	out := make([]models.LogEntry, 0, len(entries))
	for _, e := range entries {
		out = append(out, models.FromEntry(e))
	}
	return out, nil
}

// Summary counts all entries, those in the last RecentWindow, and the split
// by operation.
func (s *Service) Summary(ctx context.Context) (*audit.Summary, error) {
	summary, err := s.reader.Summarize(ctx, requestcontext.Now(ctx).Add(-RecentWindow))
	if err != nil {
		return nil, s.internal(ctx, "summary", err)
	}
	return summary, nil
}

func (s *Service) internal(ctx context.Context, op string, err error) error {
	s.logger.ErrorContext(ctx, "audit log query failed",
		"request_id", requestcontext.RequestID(ctx),
		"operation", op,
		"error", err,
	)
	return dErrors.Wrap(err, dErrors.CodeInternal, "audit log query failed")
}
