package eleve

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
	ServiceName = "eleve-service"

	entityType = "eleve"

	eventsExchange = "eleve.events"
)

var mutateRoles = []string{"ROLE_ADMIN_SYSTEME", "ROLE_DIRECTEUR", "ROLE_SECRETAIRE"}

// ClasseDirectory resolves a class to its establishment. Assignment requires
// the class to belong to the student's establishment.
type ClasseDirectory interface {
	EtablissementOf(ctx context.Context, classeID uuid.UUID) (uuid.UUID, error)
}

type Service struct {
	store        Store
	orchestrator *mutation.Orchestrator
	classes      ClasseDirectory
	auditReader  audit.Reader
	logger       *slog.Logger
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithClasseDirectory(d ClasseDirectory) Option {
	return func(s *Service) { s.classes = d }
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

// Create enrolls a student in an establishment, unassigned to any class.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Eleve, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var created *Eleve
	err := s.orchestrator.Run(ctx, mutation.Request{
		RequiredRoles: mutateRoles,
		EntityType:    entityType,
		Operation:     audit.OpCreate,
		Mutate: func(ctx context.Context) (mutation.Outcome, error) {
			now := requestcontext.Now(ctx).UTC()
			e := &Eleve{
				ID:              uuid.New(),
				Nom:             req.Nom,
				Prenom:          req.Prenom,
				DateNaissance:   req.DateNaissance,
				EtablissementID: req.EtablissementID,
				CreatedAt:       now,
				UpdatedAt:       now,
			}
			if err := s.store.Create(ctx, e); err != nil {
				return mutation.Outcome{}, dErrors.Wrap(err, dErrors.CodePersistence, "create eleve")
			}
			created = e
			return mutation.Outcome{
				EntityID: e.ID.String(),
				Payload: map[string]any{
					"nom":              e.Nom,
					"prenom":           e.Prenom,
					"etablissement_id": e.EtablissementID.String(),
				},
			}, nil
		},
		Event: func(out mutation.Outcome) *events.DomainEvent {
			return &events.DomainEvent{
				Type:       "EleveCreated",
				Exchange:   eventsExchange,
				RoutingKey: "eleve.created",
				Data: map[string]any{
					"id":               created.ID.String(),
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

// Update patches the student's identity fields.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Eleve, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var updated *Eleve
	err := s.orchestrator.Run(ctx, mutation.Request{
		RequiredRoles: mutateRoles,
		EntityType:    entityType,
		Operation:     audit.OpUpdate,
		Mutate: func(ctx context.Context) (mutation.Outcome, error) {
			e, err := s.store.FindByID(ctx, id)
			if err != nil {
				return mutation.Outcome{}, notFoundOr(err)
			}

			changed := map[string]any{}
			if req.Nom != nil {
				e.Nom = *req.Nom
				changed["nom"] = *req.Nom
			}
			if req.Prenom != nil {
				e.Prenom = *req.Prenom
				changed["prenom"] = *req.Prenom
			}
			if req.DateNaissance != nil {
				e.DateNaissance = *req.DateNaissance
				changed["date_naissance"] = *req.DateNaissance
			}
			e.UpdatedAt = requestcontext.Now(ctx).UTC()

			if err := s.store.Update(ctx, e); err != nil {
				return mutation.Outcome{}, notFoundOr(err)
			}
			updated = e
			return mutation.Outcome{EntityID: e.ID.String(), Payload: changed}, nil
		},
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// AssignClasse places the student in a class of the same establishment,
// recording the motive.
func (s *Service) AssignClasse(ctx context.Context, id uuid.UUID, req AssignClasseRequest) (*Eleve, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var updated *Eleve
	err := s.orchestrator.Run(ctx, mutation.Request{
		RequiredRoles: mutateRoles,
		EntityType:    entityType,
		Operation:     audit.OpAssign,
		Motive:        req.Motif,
		Mutate: func(ctx context.Context) (mutation.Outcome, error) {
			e, err := s.store.FindByID(ctx, id)
			if err != nil {
				return mutation.Outcome{}, notFoundOr(err)
			}

			if s.classes != nil {
				etabID, err := s.classes.EtablissementOf(ctx, req.ClasseID)
				if errors.Is(err, sentinel.ErrNotFound) {
					return mutation.Outcome{}, dErrors.New(dErrors.CodeNotFound, "classe not found")
				}
				if err != nil {
					return mutation.Outcome{}, dErrors.Wrap(err, dErrors.CodePersistence, "check classe")
				}
				if etabID != e.EtablissementID {
					return mutation.Outcome{}, dErrors.New(dErrors.CodeValidation, "classe belongs to another etablissement")
				}
			}

			payload := map[string]any{"classe_id": req.ClasseID.String()}
			if e.ClasseID != nil {
				payload["previous_classe_id"] = e.ClasseID.String()
			}
			classeID := req.ClasseID
			e.ClasseID = &classeID
			e.UpdatedAt = requestcontext.Now(ctx).UTC()

			if err := s.store.Update(ctx, e); err != nil {
				return mutation.Outcome{}, notFoundOr(err)
			}
			updated = e
			return mutation.Outcome{EntityID: e.ID.String(), Payload: payload}, nil
		},
		Event: func(out mutation.Outcome) *events.DomainEvent {
			return &events.DomainEvent{
				Type:       "EleveClasseAssigned",
				Exchange:   eventsExchange,
				RoutingKey: "eleve.classe.assigned",
				Data: map[string]any{
					"id":        updated.ID.String(),
					"classe_id": updated.ClasseID.String(),
				},
			}
		},
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Eleve, error) {
	e, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err)
	}
	return e, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Eleve, error) {
	out, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "list eleves")
	}
	return out, nil
}

// AuditHistory returns the audit trail for one student, newest first.
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
		return dErrors.New(dErrors.CodeNotFound, "eleve not found")
	}
	return dErrors.Wrap(err, dErrors.CodePersistence, "eleve store")
}
