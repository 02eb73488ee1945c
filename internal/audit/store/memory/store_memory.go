package memory

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"edconnekt/internal/audit"
	"edconnekt/pkg/platform/sentinel"
)

// InMemoryStore keeps audit records in process memory for tests and local
// development. Append-only like every other sink.
type InMemoryStore struct {
	mu      sync.RWMutex
	records []audit.Record
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{}
}

func (s *InMemoryStore) Append(_ context.Context, record audit.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, record)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, r := range s.records {
		if r.ID == id {
			return r, nil
		}
	}
	return audit.Record{}, sentinel.ErrNotFound
}

func (s *InMemoryStore) List(_ context.Context, limit, offset int) ([]audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return page(newestFirst(s.records), limit, offset), nil
}

func (s *InMemoryStore) ListByService(_ context.Context, service string, limit, offset int) ([]audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Record
	for _, r := range s.records {
		if r.Service == service {
			out = append(out, r)
		}
	}
	return page(newestFirst(out), limit, offset), nil
}

func (s *InMemoryStore) ListByEntity(_ context.Context, entityType, entityID string, limit, offset int) ([]audit.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []audit.Record
	for _, r := range s.records {
		if r.EntityType == entityType && r.EntityID == entityID {
			out = append(out, r)
		}
	}
	return page(newestFirst(out), limit, offset), nil
}

// Count is a test convenience; production readers page instead.
func (s *InMemoryStore) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

func newestFirst(in []audit.Record) []audit.Record {
	out := append([]audit.Record{}, in...)
	for i, j := 0, len(out)-1; i < j; i, j = i+1, j-1 {
		out[i], out[j] = out[j], out[i]
	}
	return out
}

func page(in []audit.Record, limit, offset int) []audit.Record {
	if offset >= len(in) {
		return nil
	}
	in = in[offset:]
	if limit > 0 && limit < len(in) {
		in = in[:limit]
	}
	return in
}

var (
	_ audit.Sink   = (*InMemoryStore)(nil)
	_ audit.Reader = (*InMemoryStore)(nil)
)
