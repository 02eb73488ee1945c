package ressource

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"edconnekt/internal/audit"
	"edconnekt/internal/events"
	"edconnekt/internal/mutation"
	dErrors "edconnekt/pkg/domain-errors"
	"edconnekt/pkg/platform/sentinel"
	"edconnekt/pkg/requestcontext"
)

const (
	ServiceName = "ressource-service"

	entityType = "ressource"

	eventsExchange = "ressource.events"
)

var mutateRoles = []string{"ROLE_ADMIN_SYSTEME", "ROLE_DIRECTEUR", "ROLE_ENSEIGNANT"}

// Deleting a resource is more destructive than editing one, so teachers are
// excluded.
var deleteRoles = []string{"ROLE_ADMIN_SYSTEME", "ROLE_DIRECTEUR"}

type Service struct {
	store        Store
	orchestrator *mutation.Orchestrator
	logger       *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func NewService(store Store, orchestrator *mutation.Orchestrator, opts ...Option) *Service {
	s := &Service{
		store:        store,
		orchestrator: orchestrator,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create publishes a new resource.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Ressource, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var created *Ressource
	err := s.orchestrator.Run(ctx, mutation.Request{
		RequiredRoles: mutateRoles,
		EntityType:    entityType,
		Operation:     audit.OpCreate,
		Mutate: func(ctx context.Context) (mutation.Outcome, error) {
			now := requestcontext.Now(ctx).UTC()
			r := &Ressource{
				ID:              uuid.New(),
				Titre:           req.Titre,
				Description:     req.Description,
				Categorie:       req.Categorie,
				CheminFichier:   req.CheminFichier,
				EtablissementID: req.EtablissementID,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := s.store.Create(ctx, r); err != nil {
				return mutation.Outcome{}, dErrors.Wrap(err, dErrors.CodePersistence, "create ressource")
			}
			created = r
			return mutation.Outcome{
				EntityID: r.ID.String(),
				Payload: map[string]any{
					"titre":     r.Titre,
					"categorie": r.Categorie,
				},
			}, nil
		},
		Event: func(out mutation.Outcome) *events.DomainEvent {
			return &events.DomainEvent{
				Type:       "RessourceCreated",
				Exchange:   eventsExchange,
				RoutingKey: "ressource.created",
				Data: map[string]any{
					"id":        created.ID.String(),
					"titre":     created.Titre,
					"categorie": created.Categorie,
				},
			}
		},
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update patches the resource's descriptive fields. The stored file itself
// never changes; re-uploading means creating a new resource.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Ressource, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var updated *Ressource
	err := s.orchestrator.Run(ctx, mutation.Request{
		RequiredRoles: mutateRoles,
		EntityType:    entityType,
		Operation:     audit.OpUpdate,
		Mutate: func(ctx context.Context) (mutation.Outcome, error) {
			r, err := s.store.FindByID(ctx, id)
			if err != nil {
				return mutation.Outcome{}, notFoundOr(err)
			}

			changed := map[string]any{}
			if req.Titre != nil {
				r.Titre = *req.Titre
				changed["titre"] = *req.Titre
			}
			if req.Description != nil {
				r.Description = *req.Description
				changed["description"] = *req.Description
			}
			if req.Categorie != nil {
				r.Categorie = *req.Categorie
				changed["categorie"] = *req.Categorie
			}
			r.UpdatedAt = requestcontext.Now(ctx).UTC()

			if err := s.store.Update(ctx, r); err != nil {
				return mutation.Outcome{}, notFoundOr(err)
			}
			updated = r
			return mutation.Outcome{EntityID: r.ID.String(), Payload: changed}, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Delete removes a resource, recording the motive.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, req DeleteRequest) error {
	if err := req.Validate(); err != nil {
		return err
	}

	var deleted *Ressource
	return s.orchestrator.Run(ctx, mutation.Request{
		RequiredRoles: deleteRoles,
		EntityType:    entityType,
		Operation:     audit.OpDelete,
		Motive:        req.Motif,
		Mutate: func(ctx context.Context) (mutation.Outcome, error) {
			r, err := s.store.FindByID(ctx, id)
			if err != nil {
				return mutation.Outcome{}, notFoundOr(err)
			}
			if err := s.store.Delete(ctx, id); err != nil {
				return mutation.Outcome{}, notFoundOr(err)
			}
			deleted = r
			return mutation.Outcome{
				EntityID: id.String(),
				Payload:  map[string]any{"titre": r.Titre, "categorie": r.Categorie},
			}, nil
		},
		Event: func(out mutation.Outcome) *events.DomainEvent {
			return &events.DomainEvent{
				Type:       "RessourceDeleted",
				Exchange:   eventsExchange,
				RoutingKey: "ressource.deleted",
				Data: map[string]any{
					"id":    deleted.ID.String(),
					"motif": req.Motif,
				},
			}
		},
	})
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Ressource, error) {
	r, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return r, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Ressource, error) {
	out, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "list ressources")
	}
	return out, nil
}

// Categories returns the distinct categories in use, optionally scoped to an
// establishment.
func (s *Service) Categories(ctx context.Context, etablissementID uuid.UUID) ([]string, error) {
	out, err := s.store.Categories(ctx, etablissementID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "list categories")
	}
	return out, nil
}

func notFoundOr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "ressource not found")
	}
	return dErrors.Wrap(err, dErrors.CodePersistence, "ressource store")
}
