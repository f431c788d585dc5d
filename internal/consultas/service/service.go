// Package service implements registry search and the cached statistics summary.
package service

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"personas/internal/consultas/models"
	personas "personas/internal/personas/models"
	"personas/internal/personas/store"
	dErrors "personas/pkg/domain-errors"
	"personas/pkg/platform/audit"
	"personas/pkg/requestcontext"
)

// StatisticsKey is the cache key of the registry summary.
const StatisticsKey = "personas:estadisticas"

// Searcher runs filtered registry searches.
type Searcher interface {
	Search(ctx context.Context, filter store.SearchFilter) ([]personas.Persona, error)
}

// StatsStore computes the registry aggregates.
type StatsStore interface {
	Count(ctx context.Context) (int, error)
	GenderDistribution(ctx context.Context) ([]store.GenderCount, error)
	AverageAge(ctx context.Context) (float64, error)
}

// Cache holds computed statistics for a bounded time. Implementations treat
// backend failures as misses.
type Cache interface {
	Get(ctx context.Context, key string) (*models.Statistics, bool)
	Set(ctx context.Context, key string, stats *models.Statistics)
}

// AuditEmitter appends audit entries.
type AuditEmitter interface {
	Emit(ctx context.Context, entry audit.Entry) error
}

// Store is satisfied by the personas stores.
type Store interface {
	Searcher
	StatsStore
}

type Service struct {
	store   Store
	cache   Cache
	auditor AuditEmitter
	logger  *slog.Logger
}

// New builds the service. A nil cache disables caching.
func New(store Store, cache Cache, auditor AuditEmitter, logger *slog.Logger) *Service {
	return &Service{store: store, cache: cache, auditor: auditor, logger: logger}
}

// Search returns the entries matching every non-empty filter and records the
// query in the audit log. An audit failure fails the search.
func (s *Service) Search(ctx context.Context, req models.SearchRequest) ([]personas.Persona, error) {
	out, err := s.store.Search(ctx, req.Filter())
	if err != nil {
		return nil, s.internal(ctx, "search", err)
	}
	if s.auditor != nil {
		err := s.auditor.Emit(ctx, audit.Entry{
			Operation: audit.OperationConsulta,
			Details:   req.AuditDetails(),
		})
		if err != nil {
			return nil, s.internal(ctx, "search audit", err)
		}
	}
	if out == nil {
		out = []personas.Persona{}
	}
	return out, nil
}

// Statistics returns the registry summary, computing the three aggregates
// concurrently on a cache miss.
func (s *Service) Statistics(ctx context.Context) (*models.Statistics, error) {
	if s.cache != nil {
		if cached, ok := s.cache.Get(ctx, StatisticsKey); ok {
			return cached, nil
		}
	}

	stats := &models.Statistics{}
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		n, err := s.store.Count(gctx)
		stats.Total = n
		return err
	})
	g.Go(func() error {
		dist, err := s.store.GenderDistribution(gctx)
		stats.Distribution = dist
		return err
	})
	g.Go(func() error {
		avg, err := s.store.AverageAge(gctx)
		stats.AverageAge = avg
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.internal(ctx, "statistics", err)
	}
	if stats.Distribution == nil {
		stats.Distribution = []store.GenderCount{}
	}

	if s.cache != nil {
		s.cache.Set(ctx, StatisticsKey, stats)
	}
	return stats, nil
}

func (s *Service) internal(ctx context.Context, op string, err error) error {
	s.logger.ErrorContext(ctx, "consultas operation failed",
		"request_id", requestcontext.RequestID(ctx),
		"operation", op,
		"error", err,
	)
	return dErrors.Wrap(err, dErrors.CodeInternal, "consultas operation failed")
}
