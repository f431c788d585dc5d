package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	audit "personas/pkg/platform/audit"
)

// InMemoryStore is an audit.Store for tests and database-less runs.
type InMemoryStore struct {
	mu      sync.RWMutex
	entries []audit.Entry
	nextID  int64
	now     func() time.Time
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{now: time.Now}
}

func (s *InMemoryStore) Append(_ context.Context, entry audit.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	entry.ID = s.nextID
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *InMemoryStore) List(_ context.Context, filter audit.Filter) ([]audit.Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []audit.Entry
	for _, e := range s.entries {
		if filter.Operation != "" && e.Operation != filter.Operation {
			continue
		}
		if filter.DocumentNumber != "" && e.DocumentNumber != filter.DocumentNumber {
			continue
		}
		if filter.From != nil && e.Timestamp.Before(*filter.From) {
			continue
		}
		if filter.To != nil && e.Timestamp.After(*filter.To) {
			continue
		}
		out = append(out, e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Timestamp.After(out[j].Timestamp) })

	limit := filter.Limit
	if limit <= 0 || limit > audit.DefaultListLimit {
		limit = audit.DefaultListLimit
	}
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *InMemoryStore) Summarize(_ context.Context, since time.Time) (*audit.Summary, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	summary := &audit.Summary{Total: len(s.entries), Distribution: []audit.OperationCount{}}
	counts := make(map[audit.Operation]int)
	for _, e := range s.entries {
		if e.Timestamp.After(since) {
			summary.Last24h++
		}
		counts[e.Operation]++
	}
	for op, n := range counts {
		summary.Distribution = append(summary.Distribution, audit.OperationCount{Operation: op, Count: n})
	}
	sort.Slice(summary.Distribution, func(i, j int) bool {
		return summary.Distribution[i].Operation < summary.Distribution[j].Operation
	})
	return summary, nil
}

// Entries returns a copy of everything appended, in append order.
func (s *InMemoryStore) Entries() []audit.Entry {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]audit.Entry, len(s.entries))
	copy(out, s.entries)
	return out
}

func (s *InMemoryStore) Clear() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = nil
}
