package utilisateur

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
	ServiceName = "utilisateur-service"

	entityType = "utilisateur"

	eventsExchange = "utilisateur.events"
)

// Account management is restricted to platform administrators.
var mutateRoles = []string{"ROLE_ADMIN_SYSTEME"}

type Service struct {
	store        Store
	orchestrator *mutation.Orchestrator
	auditReader  audit.Reader
	logger       *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithAuditReader(r audit.Reader) Option {
	return func(s *Service) { s.auditReader = r }
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

// Create registers an active account. The email must be unique; when two
// requests race on the same email exactly one wins, the other gets a
// conflict, and only the winner is audited.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Utilisateur, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var created *Utilisateur
	err := s.orchestrator.Run(ctx, mutation.Request{
		RequiredRoles: mutateRoles,
		EntityType:    entityType,
		Operation:     audit.OpCreate,
		Mutate: func(ctx context.Context) (mutation.Outcome, error) {
			now := requestcontext.Now(ctx).UTC()
			u := &Utilisateur{
				ID:              uuid.New(),
				Nom:             req.Nom,
				Prenom:          req.Prenom,
				Email:           req.Email,
				Roles:           req.Roles,
				EtablissementID: req.EtablissementID,
				Actif:           true,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := s.store.CreateIfEmailAvailable(ctx, u); err != nil {
				if errors.Is(err, sentinel.ErrConflict) {
					return mutation.Outcome{}, dErrors.New(dErrors.CodeConflict, "email already in use")
				}
				return mutation.Outcome{}, dErrors.Wrap(err, dErrors.CodePersistence, "create utilisateur")
			}
			created = u
			return mutation.Outcome{
				EntityID: u.ID.String(),
				Payload:  map[string]any{"email": u.Email, "roles": u.Roles},
			}, nil
		},
		Event: func(out mutation.Outcome) *events.DomainEvent {
			return &events.DomainEvent{
				Type:       "UtilisateurCreated",
				Exchange:   eventsExchange,
				RoutingKey: "utilisateur.created",
				Data: map[string]any{
					"id":    created.ID.String(),
					"email": created.Email,
				},
			}
		},
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update patches the profile. Email is immutable once registered.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Utilisateur, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var updated *Utilisateur
	err := s.orchestrator.Run(ctx, mutation.Request{
		RequiredRoles: mutateRoles,
		EntityType:    entityType,
		Operation:     audit.OpUpdate,
		Mutate: func(ctx context.Context) (mutation.Outcome, error) {
			u, err := s.store.FindByID(ctx, id)
			if err != nil {
				return mutation.Outcome{}, notFoundOr(err)
			}

			changed := map[string]any{}
			if req.Nom != nil {
				u.Nom = *req.Nom
				changed["nom"] = *req.Nom
			}
			if req.Prenom != nil {
				u.Prenom = *req.Prenom
				changed["prenom"] = *req.Prenom
			}
			if req.Roles != nil {
				u.Roles = *req.Roles
				changed["roles"] = *req.Roles
			}
			u.UpdatedAt = requestcontext.Now(ctx).UTC()

			if err := s.store.Update(ctx, u); err != nil {
				return mutation.Outcome{}, notFoundOr(err)
			}
			updated = u
			return mutation.Outcome{EntityID: u.ID.String(), Payload: changed}, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// Deactivate disables an account, recording the motive. Deactivating an
// already inactive account is rejected before anything is written.
func (s *Service) Deactivate(ctx context.Context, id uuid.UUID, req DeactivateRequest) (*Utilisateur, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var updated *Utilisateur
	err := s.orchestrator.Run(ctx, mutation.Request{
		RequiredRoles: mutateRoles,
		EntityType:    entityType,
		Operation:     audit.OpDelete,
		Motive:        req.Motif,
		Mutate: func(ctx context.Context) (mutation.Outcome, error) {
			u, err := s.store.FindByID(ctx, id)
			if err != nil {
				return mutation.Outcome{}, notFoundOr(err)
			}
			if !u.Actif {
				return mutation.Outcome{}, dErrors.New(dErrors.CodeValidation, "utilisateur already inactive")
			}

			u.Actif = false
			u.UpdatedAt = requestcontext.Now(ctx).UTC()
			if err := s.store.Update(ctx, u); err != nil {
				return mutation.Outcome{}, notFoundOr(err)
			}
			updated = u
			return mutation.Outcome{
				EntityID: u.ID.String(),
				Payload:  map[string]any{"actif": false},
			}, nil
		},
		Event: func(out mutation.Outcome) *events.DomainEvent {
			return &events.DomainEvent{
				Type:       "UtilisateurDeactivated",
				Exchange:   eventsExchange,
				RoutingKey: "utilisateur.deactivated",
				Data: map[string]any{
					"id":    updated.ID.String(),
					"motif": req.Motif,
				},
			}
		},
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Utilisateur, error) {
	u, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return u, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Utilisateur, error) {
	out, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "list utilisateurs")
	}
	return out, nil
}

// AuditHistory returns the audit trail for one account, newest first.
func (s *Service) AuditHistory(ctx context.Context, id uuid.UUID, limit, offset int) ([]audit.Record, error) {
	if s.auditReader == nil {
		return nil, dErrors.New(dErrors.CodeInternal, "audit history not available")
	}
	records, err := s.auditReader.ListByEntity(ctx, entityType, id.String(), limit, offset)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "list audit history")
	}
	return records, nil
}

func notFoundOr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "utilisateur not found")
	}
	return dErrors.Wrap(err, dErrors.CodePersistence, "utilisateur store")
}
