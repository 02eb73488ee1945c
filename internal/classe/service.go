package classe

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
	ServiceName = "classe-service"

	entityType = "classe"

	eventsExchange = "classe.events"
)

// Class creation and teacher assignment are open to directors of the
// establishment as well as platform administrators.
var mutateRoles = []string{"ROLE_ADMIN_SYSTEME", "ROLE_DIRECTEUR"}

// EtablissementDirectory answers whether an establishment exists. Wired to
// the etablissement service so classes cannot reference phantom schools.
type EtablissementDirectory interface {
	Exists(ctx context.Context, id uuid.UUID) (bool, error)
}

type Service struct {
	store        Store
	orchestrator *mutation.Orchestrator
	directory    EtablissementDirectory
	auditReader  audit.Reader
	logger       *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithEtablissementDirectory(d EtablissementDirectory) Option {
	return func(s *Service) { s.directory = d }
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

// Create opens a new class in an establishment.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Classe, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var created *Classe
	err := s.orchestrator.Run(ctx, mutation.Request{
		RequiredRoles: mutateRoles,
		EntityType:    entityType,
		Operation:     audit.OpCreate,
		Mutate: func(ctx context.Context) (mutation.Outcome, error) {
			if err := s.checkEtablissement(ctx, req.EtablissementID); err != nil {
				return mutation.Outcome{}, err
			}

			now := requestcontext.Now(ctx).UTC()
			c := &Classe{
				ID:              uuid.New(),
				Nom:             req.Nom,
				Niveau:          req.Niveau,
				EtablissementID: req.EtablissementID,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := s.store.Create(ctx, c); err != nil {
				return mutation.Outcome{}, dErrors.Wrap(err, dErrors.CodePersistence, "create classe")
			}
			created = c
			return mutation.Outcome{
				EntityID: c.ID.String(),
				Payload: map[string]any{
					"nom":              c.Nom,
					"niveau":           c.Niveau,
					"etablissement_id": c.EtablissementID.String(),
				},
			}, nil
		},
		Event: func(out mutation.Outcome) *events.DomainEvent {
			return &events.DomainEvent{
				Type:       "ClasseCreated",
				Exchange:   eventsExchange,
				RoutingKey: "classe.created",
				Data: map[string]any{
					"id":               created.ID.String(),
					"nom":              created.Nom,
					"etablissement_id": created.EtablissementID.String(),
				},
			}
		},
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// Update patches the class name or level.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Classe, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var updated *Classe
	err := s.orchestrator.Run(ctx, mutation.Request{
		RequiredRoles: mutateRoles,
		EntityType:    entityType,
		Operation:     audit.OpUpdate,
		Mutate: func(ctx context.Context) (mutation.Outcome, error) {
			c, err := s.store.FindByID(ctx, id)
			if err != nil {
				return mutation.Outcome{}, notFoundOr(err)
			}

			changed := map[string]any{}
			if req.Nom != nil {
				c.Nom = *req.Nom
				changed["nom"] = *req.Nom
			}
			if req.Niveau != nil {
				c.Niveau = *req.Niveau
				changed["niveau"] = *req.Niveau
			}
			c.UpdatedAt = requestcontext.Now(ctx).UTC()

			if err := s.store.Update(ctx, c); err != nil {
				return mutation.Outcome{}, notFoundOr(err)
			}
			updated = c
			return mutation.Outcome{EntityID: c.ID.String(), Payload: changed}, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AssignEnseignant attaches a teacher to the class, recording the motive.
func (s *Service) AssignEnseignant(ctx context.Context, id uuid.UUID, req AssignEnseignantRequest) (*Classe, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var updated *Classe
	err := s.orchestrator.Run(ctx, mutation.Request{
		RequiredRoles: mutateRoles,
		EntityType:    entityType,
		Operation:     audit.OpAssign,
		Motive:        req.Motif,
		Mutate: func(ctx context.Context) (mutation.Outcome, error) {
			c, err := s.store.FindByID(ctx, id)
			if err != nil {
				return mutation.Outcome{}, notFoundOr(err)
			}

			previous := c.EnseignantID
			c.EnseignantID = req.EnseignantID
			c.UpdatedAt = requestcontext.Now(ctx).UTC()
			if err := s.store.Update(ctx, c); err != nil {
				return mutation.Outcome{}, notFoundOr(err)
			}
			updated = c
			payload := map[string]any{"enseignant_id": c.EnseignantID}
			if previous != "" {
				payload["previous_enseignant_id"] = previous
			}
			return mutation.Outcome{EntityID: c.ID.String(), Payload: payload}, nil
		},
		Event: func(out mutation.Outcome) *events.DomainEvent {
			return &events.DomainEvent{
				Type:       "ClasseEnseignantAssigned",
				Exchange:   eventsExchange,
				RoutingKey: "classe.enseignant.assigned",
				Data: map[string]any{
					"id":            updated.ID.String(),
					"enseignant_id": updated.EnseignantID,
				},
			}
		},
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Classe, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return c, nil
}

// EtablissementOf resolves a class to its establishment. Returns
// sentinel.ErrNotFound for an unknown class; callers decide how to surface
// that in their own domain.
func (s *Service) EtablissementOf(ctx context.Context, id uuid.UUID) (uuid.UUID, error) {
	c, err := s.store.FindByID(ctx, id)
	if err != nil {
		return uuid.Nil, err
	}
	return c.EtablissementID, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Classe, error) {
	out, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "list classes")
	}
	return out, nil
}

// AuditHistory returns the audit trail for one class, newest first.
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

func (s *Service) checkEtablissement(ctx context.Context, id uuid.UUID) error {
	if s.directory == nil {
		return nil
	}
	ok, err := s.directory.Exists(ctx, id)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodePersistence, "check etablissement")
	}
	if !ok {
		return dErrors.New(dErrors.CodeNotFound, "etablissement not found")
	}
	return nil
}

func notFoundOr(err error) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, "classe not found")
	}
	return dErrors.Wrap(err, dErrors.CodePersistence, "classe store")
}
