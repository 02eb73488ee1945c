package classe

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"edconnekt/pkg/platform/sentinel"
)

type Store interface {
	Create(ctx context.Context, c *Classe) error
	FindByID(ctx context.Context, id uuid.UUID) (*Classe, error)
	Update(ctx context.Context, c *Classe) error
	List(ctx context.Context, filter ListFilter) ([]*Classe, error)
}

// InMemoryStore backs unit tests and local development.
type InMemoryStore struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]*Classe
	order []uuid.UUID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byID: make(map[uuid.UUID]*Classe)}
}

func (s *InMemoryStore) Create(_ context.Context, c *Classe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *c
	s.byID[c.ID] = &clone
	s.order = append(s.order, c.ID)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*Classe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *c
	return &clone, nil
}

func (s *InMemoryStore) Update(_ context.Context, c *Classe) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[c.ID]; !ok {
		return sentinel.ErrNotFound
	}
	clone := *c
	s.byID[c.ID] = &clone
	return nil
}

func (s *InMemoryStore) List(_ context.Context, filter ListFilter) ([]*Classe, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Classe
	for _, id := range s.order {
		c := s.byID[id]
		if filter.EtablissementID != uuid.Nil && c.EtablissementID != filter.EtablissementID {
			continue
		}
		clone := *c
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
