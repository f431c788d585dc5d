package store

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"personas/internal/personas/models"
)

// InMemoryStore keeps entries in insertion order.
type InMemoryStore struct {
	mu     sync.RWMutex
	nextID int64
	rows   []models.Persona
	now    func() time.Time
}

func NewInMemory() *InMemoryStore {
	return &InMemoryStore{now: time.Now}
}

func (s *InMemoryStore) indexOf(documentNumber string) int {
	for i := range s.rows {
		if s.rows[i].DocumentNumber == documentNumber {
			return i
		}
	}
	return -1
}

func (s *InMemoryStore) Create(_ context.Context, record *models.Record) (*models.Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.indexOf(record.DocumentNumber) >= 0 {
		return nil, ErrConflict
	}
	s.nextID++
	now := s.now()
	p := models.Persona{ID: s.nextID, Record: *record, CreatedAt: now, UpdatedAt: now}
	s.rows = append(s.rows, p)
	return &p, nil
}

func (s *InMemoryStore) FindByDocument(_ context.Context, documentNumber string) (*models.Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(documentNumber)
	if i < 0 {
		return nil, ErrNotFound
	}
	p := s.rows[i]
	return &p, nil
}

// Update replaces every field except the document number.
func (s *InMemoryStore) Update(_ context.Context, documentNumber string, record *models.Record) (*models.Persona, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(documentNumber)
	if i < 0 {
		return nil, ErrNotFound
	}
	updated := *record
	updated.DocumentNumber = documentNumber
	s.rows[i].Record = updated
	s.rows[i].UpdatedAt = s.now()
	p := s.rows[i]
	return &p, nil
}

func (s *InMemoryStore) Delete(_ context.Context, documentNumber string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i := s.indexOf(documentNumber)
	if i < 0 {
		return ErrNotFound
	}
	s.rows = append(s.rows[:i], s.rows[i+1:]...)
	return nil
}

func (s *InMemoryStore) List(_ context.Context) ([]models.Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Persona, 0, min(len(s.rows), ListLimit))
	for i := len(s.rows) - 1; i >= 0 && len(out) < ListLimit; i-- {
		out = append(out, s.rows[i])
	}
	return out, nil
}

func (s *InMemoryStore) Search(_ context.Context, filter SearchFilter) ([]models.Persona, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	name := strings.ToLower(filter.Name)
	out := []models.Persona{}
	for _, p := range s.rows {
		if filter.DocumentNumber != "" && p.DocumentNumber != filter.DocumentNumber {
			continue
		}
		if filter.DocumentType != "" && string(p.DocumentType) != filter.DocumentType {
			continue
		}
		if name != "" &&
			!strings.Contains(strings.ToLower(p.FirstName), name) &&
			!strings.Contains(strings.ToLower(p.Surnames), name) {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (s *InMemoryStore) Snapshot(_ context.Context) ([]models.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]models.Record, 0, len(s.rows))
	for _, p := range s.rows {
		out = append(out, p.Record)
	}
	return out, nil
}

func (s *InMemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.rows), nil
}

func (s *InMemoryStore) GenderDistribution(_ context.Context) ([]GenderCount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	counts := map[string]int{}
	for _, p := range s.rows {
		counts[string(p.Gender)]++
	}
	out := make([]GenderCount, 0, len(counts))
	for g, n := range counts {
		out = append(out, GenderCount{Gender: g, Count: n})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Gender < out[j].Gender })
	return out, nil
}

func (s *InMemoryStore) AverageAge(_ context.Context) (float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	now := s.now()
	var (
		total float64
		n     int
	)
	for _, p := range s.rows {
		if p.BirthDate.IsZero() {
			continue
		}
		total += float64(ageInYears(p.BirthDate.Time, now))
		n++
	}
	if n == 0 {
		return 0, nil
	}
	return total / float64(n), nil
}

func ageInYears(birth, now time.Time) int {
	years := now.Year() - birth.Year()
	if now.Month() < birth.Month() || (now.Month() == birth.Month() && now.Day() < birth.Day()) {
		years--
	}
	return years
}
