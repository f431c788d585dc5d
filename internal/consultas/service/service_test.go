package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"

	"personas/internal/consultas/models"
	personas "personas/internal/personas/models"
	"personas/internal/personas/store"
	"personas/internal/platform/logger"
	dErrors "personas/pkg/domain-errors"
	"personas/pkg/platform/audit"
	auditmemory "personas/pkg/platform/audit/store/memory"
)

type countingStore struct {
	*store.InMemoryStore
	counts   atomic.Int32
	countErr error
}

func (c *countingStore) Count(ctx context.Context) (int, error) {
	c.counts.Add(1)
	if c.countErr != nil {
		return 0, c.countErr
	}
	return c.InMemoryStore.Count(ctx)
}

type ConsultasServiceSuite struct {
	suite.Suite
	store   *countingStore
	entries *auditmemory.InMemoryStore
	service *Service
}

func TestConsultasServiceSuite(t *testing.T) {
	suite.Run(t, new(ConsultasServiceSuite))
}

func (s *ConsultasServiceSuite) SetupTest() {
	s.store = &countingStore{InMemoryStore: store.NewInMemory()}
	s.entries = auditmemory.NewInMemoryStore()
	publisher := audit.NewPublisher(s.entries, audit.WithLogger(logger.Discard()))
	s.service = New(s.store, NewMemoryCache(time.Minute), publisher, logger.Discard())

	ctx := context.Background()
	for _, r := range []personas.Record{
		{DocumentNumber: "1", FirstName: "Ana", Surnames: "Gómez", Gender: personas.GenderFemenino,
			BirthDate: personas.NewDate(1990, time.March, 4)},
		{DocumentNumber: "2", FirstName: "Luis", Surnames: "Pérez", Gender: personas.GenderMasculino,
			BirthDate: personas.NewDate(1995, time.February, 1)},
		{DocumentNumber: "3", FirstName: "Sofía", Surnames: "Gómez Ruiz", Gender: personas.GenderFemenino,
			BirthDate: personas.NewDate(2001, time.October, 12)},
	} {
		r.DocumentType = personas.DocumentCedula
		r.Email = "x@example.com"
		r.Phone = "3001234567"
		_, err := s.store.Create(ctx, &r)
		s.Require().NoError(err)
	}
}

func (s *ConsultasServiceSuite) TestSearchAuditsFilters() {
	out, err := s.service.Search(context.Background(), models.SearchRequest{Name: "gómez"})
	s.Require().NoError(err)
	s.Len(out, 2)

	entries := s.entries.Entries()
	s.Require().Len(entries, 1)
	s.Equal(audit.OperationConsulta, entries[0].Operation)
	s.Empty(entries[0].DocumentNumber)
	filtros := entries[0].Details["filtros"].(map[string]any)
	s.Equal("gómez", filtros["nombre"])
	s.Nil(filtros["documento"])
	s.Nil(filtros["tipo"])
}

func (s *ConsultasServiceSuite) TestSearchWithoutMatchesIsEmptyNotNil() {
	out, err := s.service.Search(context.Background(), models.SearchRequest{DocumentNumber: "999"})
	s.Require().NoError(err)
	s.NotNil(out)
	s.Empty(out)
}

func (s *ConsultasServiceSuite) TestSearchAuditFailureFails() {
	svc := New(s.store, nil, failingAuditor{}, logger.Discard())
	_, err := svc.Search(context.Background(), models.SearchRequest{})
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *ConsultasServiceSuite) TestStatisticsComputesAndCaches() {
	ctx := context.Background()
	stats, err := s.service.Statistics(ctx)
	s.Require().NoError(err)
	s.Equal(3, stats.Total)
	s.ElementsMatch([]store.GenderCount{
		{Gender: string(personas.GenderFemenino), Count: 2},
		{Gender: string(personas.GenderMasculino), Count: 1},
	}, stats.Distribution)
	s.Greater(stats.AverageAge, 0.0)

	stats.Distribution[0].Count = 99

	again, err := s.service.Statistics(ctx)
	s.Require().NoError(err)
	s.Equal(int32(1), s.store.counts.Load(), "second call served from cache")
	for _, b := range again.Distribution {
		s.NotEqual(99, b.Count)
	}
}

func (s *ConsultasServiceSuite) TestStatisticsWithoutCacheRecomputes() {
	svc := New(s.store, nil, nil, logger.Discard())
	_, err := svc.Statistics(context.Background())
	s.Require().NoError(err)
	_, err = svc.Statistics(context.Background())
	s.Require().NoError(err)
	s.Equal(int32(2), s.store.counts.Load())
}

func (s *ConsultasServiceSuite) TestStatisticsQueryFailureIsNotCached() {
	s.store.countErr = errors.New("connection reset")
	_, err := s.service.Statistics(context.Background())
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))

	s.store.countErr = nil
	stats, err := s.service.Statistics(context.Background())
	s.Require().NoError(err)
	s.Equal(3, stats.Total)
}

func (s *ConsultasServiceSuite) TestStatisticsEmptyRegistry() {
	svc := New(&countingStore{InMemoryStore: store.NewInMemory()}, nil, nil, logger.Discard())
	stats, err := svc.Statistics(context.Background())
	s.Require().NoError(err)
	s.Zero(stats.Total)
	s.NotNil(stats.Distribution)
	s.Zero(stats.AverageAge)
}

type failingAuditor struct{}

func (failingAuditor) Emit(context.Context, audit.Entry) error {
	return errors.New("logs unavailable")
}
