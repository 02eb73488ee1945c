package utilisateur

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"edconnekt/pkg/platform/sentinel"
)

type Store interface {
	// CreateIfEmailAvailable inserts the user, failing with
	// sentinel.ErrConflict when the email is already taken. The uniqueness
	// check and the insert must be atomic so two concurrent registrations
	// of the same email resolve to one success and one conflict.
	CreateIfEmailAvailable(ctx context.Context, u *Utilisateur) error
	FindByID(ctx context.Context, id uuid.UUID) (*Utilisateur, error)
	Update(ctx context.Context, u *Utilisateur) error
	List(ctx context.Context, filter ListFilter) ([]*Utilisateur, error)
}

// InMemoryStore backs unit tests and local development.
type InMemoryStore struct {
	mu    sync.Mutex
	byID  map[uuid.UUID]*Utilisateur
	order []uuid.UUID
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{byID: make(map[uuid.UUID]*Utilisateur)}
}

func (s *InMemoryStore) CreateIfEmailAvailable(_ context.Context, u *Utilisateur) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, existing := range s.byID {
		if strings.EqualFold(existing.Email, u.Email) {
			return sentinel.ErrConflict
		}
	}
	s.byID[u.ID] = clone(u)
	s.order = append(s.order, u.ID)
	return nil
}

func (s *InMemoryStore) FindByID(_ context.Context, id uuid.UUID) (*Utilisateur, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.byID[id]
	if !ok {
		return nil, sentinel.ErrNotFound
	}
	return clone(u), nil
}

func (s *InMemoryStore) Update(_ context.Context, u *Utilisateur) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byID[u.ID]; !ok {
		return sentinel.ErrNotFound
	}
	s.byID[u.ID] = clone(u)
	return nil
}

func (s *InMemoryStore) List(_ context.Context, filter ListFilter) ([]*Utilisateur, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*Utilisateur
	for _, id := range s.order {
		u := s.byID[id]
		if filter.EtablissementID != uuid.Nil &&
			(u.EtablissementID == nil || *u.EtablissementID != filter.EtablissementID) {
			continue
		}
		if filter.ActifOnly && !u.Actif {
			continue
		}
		out = append(out, clone(u))
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

func clone(u *Utilisateur) *Utilisateur {
	c := *u
	c.Roles = append([]string(nil), u.Roles...)
	if u.EtablissementID != nil {
		id := *u.EtablissementID
		c.EtablissementID = &id
	}
	return &c
}

var _ Store = (*InMemoryStore)(nil)
