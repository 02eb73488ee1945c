package ressource

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"edconnekt/pkg/platform/sentinel"
)

type Store interface {
	Create(ctx context.Context, r *Ressource) error
	FindByID(ctx context.Context, id uuid.UUID) (*Ressource, error)
	Update(ctx context.Context, r *Ressource) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter ListFilter) ([]*Ressource, error)
	// Categories returns the distinct categories in use, sorted.
	Categories(ctx context.Context, etablissementID uuid.UUID) ([]string, error)
}

// InMemoryStore backs unit tests and local development.
type InMemoryStore struct {
	mu    sync.RWMutex
	byID  map[uuid.UUID]*Ressource
	order []uuid.UUID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byID: make(map[uuid.UUID]*Ressource)}
}

func (s *InMemoryStore) Create(_ context.Context, r *Ressource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	clone := *r
	s.byID[r.ID] = &clone
	s.order = append(s.order, r.ID)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*Ressource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	clone := *r
	return &clone, nil
}

func (s *InMemoryStore) Update(_ context.Context, r *Ressource) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[r.ID]; !ok {
		return sentinel.ErrNotFound
	}
	clone := *r
	s.byID[r.ID] = &clone
	return nil
}

func (s *InMemoryStore) Delete(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[id]; !ok {
		return sentinel.ErrNotFound
	}
	delete(s.byID, id)
	for i, other := range s.order {
		if other == id {
			s.order = append(s.order[:i], s.order[i+1:]...)
			break
		}
	}
	return nil
}

func (s *InMemoryStore) List(_ context.Context, filter ListFilter) ([]*Ressource, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*Ressource
	for _, id := range s.order {
		r := s.byID[id]
		if filter.EtablissementID != uuid.Nil && r.EtablissementID != filter.EtablissementID {
			continue
		}
		if filter.Categorie != "" && r.Categorie != filter.Categorie {
			continue
		}
		clone := *r
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

func (s *InMemoryStore) Categories(_ context.Context, etablissementID uuid.UUID) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	seen := map[string]bool{}
	for _, r := range s.byID {
		if etablissementID != uuid.Nil && r.EtablissementID != etablissementID {
			continue
		}
		seen[r.Categorie] = true
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out, nil
}

var _ Store = (*InMemoryStore)(nil)
