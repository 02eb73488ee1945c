package etablissement

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
	// ServiceName tags audit records and metrics for this service.
	ServiceName = "etablissement-service"

	entityType = "etablissement"

	eventsExchange = "etablissement.events"
)

// Roles allowed to mutate establishments.
var (
	mutateRoles = []string{"ROLE_ADMIN_SYSTEME"}
	updateRoles = []string{"ROLE_ADMIN_SYSTEME", "ROLE_DIRECTEUR"}
)

// Service exposes establishment operations. Every mutation runs through the
// orchestrator so it is authorized, audited and announced uniformly.
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

// WithAuditReader enables audit history lookups for establishments. Left nil
// when audit records live in a remote service.
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

// Create registers a new establishment in ACTIVE status. The email must be
// unique; a taken email yields a conflict.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*Etablissement, error) {
	req.Normalize()
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var created *Etablissement
	err := s.orchestrator.Run(ctx, mutation.Request{
		RequiredRoles: mutateRoles,
		EntityType:    entityType,
		Operation:     audit.OpCreate,
		Mutate: func(ctx context.Context) (mutation.Outcome, error) {
			now := requestcontext.Now(ctx).UTC()
			e := &Etablissement{
				ID:        uuid.New(),
				Nom:       req.Nom,
				Email:     req.Email,
				Telephone: req.Telephone,
				Adresse:   req.Adresse,
				Status:    StatusActive,
				CreatedAt: now,
				UpdatedAt: now,
			}
			if err := s.store.CreateIfEmailAvailable(ctx, e); err != nil {
				if errors.Is(err, sentinel.ErrConflict) {
					return mutation.Outcome{}, dErrors.New(dErrors.CodeConflict, "email already in use")
				}
				return mutation.Outcome{}, dErrors.Wrap(err, dErrors.CodePersistence, "create etablissement")
			}
			created = e
			return mutation.Outcome{
				EntityID: e.ID.String(),
				Payload:  map[string]any{"nom": e.Nom, "email": e.Email},
			}, nil
		},
		Event: func(out mutation.Outcome) *events.DomainEvent {
			return &events.DomainEvent{
				Type:       "EtablissementCreated",
				Exchange:   eventsExchange,
				RoutingKey: "etablissement.created",
				Data: map[string]any{
					"id":     created.ID.String(),
					"nom":    created.Nom,
					"status": string(created.Status),
				},
			}
		},
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

// UpdateInfos patches contact information. Status is untouched; status moves
// through ChangeStatus so they always carry a motive.
func (s *Service) UpdateInfos(ctx context.Context, id uuid.UUID, req UpdateRequest) (*Etablissement, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var updated *Etablissement
	err := s.orchestrator.Run(ctx, mutation.Request{
		RequiredRoles: updateRoles,
		EntityType:    entityType,
		Operation:     audit.OpUpdate,
		Mutate: func(ctx context.Context) (mutation.Outcome, error) {
			e, err := s.store.FindByID(ctx, id)
			if err != nil {
				return mutation.Outcome{}, notFoundOr(err, "etablissement not found")
			}

			changed := map[string]any{}
			if req.Nom != nil {
				e.Nom = *req.Nom
				changed["nom"] = *req.Nom
			}
			if req.Telephone != nil {
				e.Telephone = *req.Telephone
				changed["telephone"] = *req.Telephone
			}
			if req.Adresse != nil {
				e.Adresse = *req.Adresse
				changed["adresse"] = *req.Adresse
			}
			e.UpdatedAt = requestcontext.Now(ctx).UTC()

			if err := s.store.Update(ctx, e); err != nil {
				return mutation.Outcome{}, notFoundOr(err, "etablissement not found")
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

// ChangeStatus moves an establishment to a new status, recording the motive.
// A no-op transition (same status) is rejected before anything is written.
func (s *Service) ChangeStatus(ctx context.Context, id uuid.UUID, req ChangeStatusRequest) (*Etablissement, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var updated *Etablissement
	err := s.orchestrator.Run(ctx, mutation.Request{
		RequiredRoles: mutateRoles,
		EntityType:    entityType,
		Operation:     audit.OpStatusChange,
		Motive:        req.Motif,
		Mutate: func(ctx context.Context) (mutation.Outcome, error) {
			e, err := s.store.FindByID(ctx, id)
			if err != nil {
				return mutation.Outcome{}, notFoundOr(err, "etablissement not found")
			}
			if e.Status == req.Status {
				return mutation.Outcome{}, dErrors.New(dErrors.CodeValidation, "etablissement already in this status")
			}

			previous := e.Status
			e.Status = req.Status
			e.UpdatedAt = requestcontext.Now(ctx).UTC()
			if err := s.store.Update(ctx, e); err != nil {
				return mutation.Outcome{}, notFoundOr(err, "etablissement not found")
			}
			updated = e
			return mutation.Outcome{
				EntityID: e.ID.String(),
				Payload: map[string]any{
					"previous_status": string(previous),
					"new_status":      string(e.Status),
				},
			}, nil
		},
		Event: func(out mutation.Outcome) *events.DomainEvent {
			return &events.DomainEvent{
				Type:       "EtablissementStatusChanged",
				Exchange:   eventsExchange,
				RoutingKey: "etablissement.status.changed",
				Data: map[string]any{
					"id":     updated.ID.String(),
					"status": string(updated.Status),
					"motif":  req.Motif,
				},
			}
		},
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Etablissement, error) {
	e, err := s.store.FindByID(ctx, id)
	if err != nil {
		return nil, notFoundOr(err, "etablissement not found")
	}
	return e, nil
}

// Exists reports whether an establishment with this id is registered. Other
// services use it to validate cross-entity references.
func (s *Service) Exists(ctx context.Context, id uuid.UUID) (bool, error) {
	_, err := s.store.FindByID(ctx, id)
	if errors.Is(err, sentinel.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, dErrors.Wrap(err, dErrors.CodePersistence, "etablissement store")
	}
	return true, nil
}

func (s *Service) List(ctx context.Context, filter ListFilter) ([]*Etablissement, error) {
	out, err := s.store.List(ctx, filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodePersistence, "list etablissements")
	}
	return out, nil
}

// ListPublic returns active establishments only, for unauthenticated
// discovery endpoints.
func (s *Service) ListPublic(ctx context.Context, limit, offset int) ([]*Etablissement, error) {
	return s.List(ctx, ListFilter{Status: StatusActive, Limit: limit, Offset: offset})
}

// AuditHistory returns the audit trail for one establishment, newest first.
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

func notFoundOr(err error, msg string) error {
	if errors.Is(err, sentinel.ErrNotFound) {
		return dErrors.New(dErrors.CodeNotFound, msg)
	}
	return dErrors.Wrap(err, dErrors.CodePersistence, "etablissement store")
}
