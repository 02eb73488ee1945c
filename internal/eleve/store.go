package eleve

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"edconnekt/pkg/platform/sentinel"
)

type Store interface {
	Create(ctx context.Context, e *Eleve) error
	FindByID(ctx context.Context, id uuid.UUID) (*Eleve, error)
	Update(ctx context.Context, e *Eleve) error
	List(ctx context.Context, filter ListFilter) ([]*Eleve, error)
}

// InMemoryStore backs unit tests and local development.
type InMemoryStore struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]*Eleve
	order []uuid.UUID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byID: make(map[uuid.UUID]*Eleve)}
}

func (s *InMemoryStore) Create(_ context.Context, e *Eleve) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.byID[e.ID] = clone(e)
	s.order = append(s.order, e.ID)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*Eleve, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(e), nil
}

func (s *InMemoryStore) Update(_ context.Context, e *Eleve) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[e.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.byID[e.ID] = clone(e)
	return nil
}

func (s *InMemoryStore) List(_ context.Context, filter ListFilter) ([]*Eleve, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Eleve
	for _, id := range s.order {
		e := s.byID[id]
		if filter.EtablissementID != uuid.Nil && e.EtablissementID != filter.EtablissementID {
			continue
		}
		if filter.ClasseID != uuid.Nil && (e.ClasseID == nil || *e.ClasseID != filter.ClasseID) {
			continue
		}
		out = append(out, clone(e))
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

func clone(e *Eleve) *Eleve {
	c := *e
	if e.ClasseID != nil {
		id := *e.ClasseID
		c.ClasseID = &id
	}
	return &c
}

var _ Store = (*InMemoryStore)(nil)
