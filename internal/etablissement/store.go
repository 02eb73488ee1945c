package etablissement

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"edconnekt/pkg/platform/sentinel"
)

// Store is the persistence boundary. Implementations return sentinel errors
// for infrastructure facts; the service translates them into domain errors.
type Store interface {
	// CreateIfEmailAvailable inserts the establishment, failing with
	// sentinel.ErrConflict when the email is already taken.
	CreateIfEmailAvailable(ctx context.Context, e *Etablissement) error
	FindByID(ctx context.Context, id uuid.UUID) (*Etablissement, error)
	Update(ctx context.Context, e *Etablissement) error
	List(ctx context.Context, filter ListFilter) ([]*Etablissement, error)
}

// InMemoryStore backs unit tests and local development.
type InMemoryStore struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]*Etablissement
	order []uuid.UUID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byID: make(map[uuid.UUID]*Etablissement)}
}

func (s *InMemoryStore) CreateIfEmailAvailable(_ context.Context, e *Etablissement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if strings.EqualFold(existing.Email, e.Email) {
			return sentinel.ErrConflict
		}
	}
	clone := *e
	s.byID[e.ID] = &clone
	s.order = append(s.order, e.ID)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*Etablissement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *e
	return &clone, nil
}

func (s *InMemoryStore) Update(_ context.Context, e *Etablissement) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[e.ID]; !ok {
		return sentinel.ErrNotFound
	}
	clone := *e
	s.byID[e.ID] = &clone
	return nil
}

func (s *InMemoryStore) List(_ context.Context, filter ListFilter) ([]*Etablissement, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Etablissement
	for _, id := range s.order {
		e := s.byID[id]
		if filter.Status != "" && e.Status != filter.Status {
			continue
		}
		clone := *e
		out = append(out, &clone)
	}
	if filter.Offset > 0 {
		if filter.Offset >= len(out) {
			return nil, nil
		}
		out = out[filter.Offset:]
	}
	if filter.Limit > 0 && filter.Limit < len(out) {
		out = out[:filter.Limit]
	}
	return out, nil
}

var _ Store = (*InMemoryStore)(nil)
