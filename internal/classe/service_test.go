package classe

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"edconnekt/internal/audit"
	auditmem "edconnekt/internal/audit/store/memory"
	"edconnekt/internal/events"
	"edconnekt/internal/mutation"
	"edconnekt/pkg/domain"
	dErrors "edconnekt/pkg/domain-errors"
	"edconnekt/pkg/platform/tx"
	"edconnekt/pkg/requestcontext"
)

type knownEtablissements map[uuid.UUID]bool

func (d knownEtablissements) Exists(_ context.Context, id uuid.UUID) (bool, error) {
	return d[id], nil
}

type fixture struct {
	service   *Service
	auditMem  *auditmem.InMemoryStore
	publisher *events.MemoryPublisher
	etabID    uuid.UUID
}

func newFixture() *fixture {
	auditStore := auditmem.NewInMemoryStore()
	publisher := events.NewMemoryPublisher()
	o := mutation.New(ServiceName, tx.NopRunner{}, audit.NewRecorder(auditStore), publisher)

	etabID := uuid.New()
	svc := NewService(NewInMemoryStore(), o,
		WithEtablissementDirectory(knownEtablissements{etabID: true}),
		WithAuditReader(auditStore),
	)
	return &fixture{service: svc, auditMem: auditStore, publisher: publisher, etabID: etabID}
}

func directeurCtx() context.Context {
	return requestcontext.WithPrincipal(context.Background(), domain.Principal{
		SubjectID:    "kc-dir",
		DisplayLabel: "jean.martin",
		Roles:        []string{"ROLE_DIRECTEUR"},
	})
}

func enseignantCtx() context.Context {
	return requestcontext.WithPrincipal(context.Background(), domain.Principal{
		SubjectID:    "kc-ens",
		DisplayLabel: "paul.bernard",
		Roles:        []string{"ROLE_ENSEIGNANT"},
	})
}

func TestCreateClasseAsDirecteur(t *testing.T) {
	f := newFixture()

	c, err := f.service.Create(directeurCtx(), CreateRequest{
		Nom:             "6e A",
		Niveau:          "6e",
		EtablissementID: f.etabID,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.EtablissementID != f.etabID {
		t.Fatalf("classe not attached to etablissement: %+v", c)
	}

	records, _ := f.auditMem.ListByEntity(context.Background(), "classe", c.ID.String(), 10, 0)
	if len(records) != 1 || records[0].Operation != audit.OpCreate {
		t.Fatalf("expected one CREATE audit record, got %+v", records)
	}

	evs := f.publisher.Events()
	if len(evs) != 1 || evs[0].Type != "ClasseCreated" || evs[0].RoutingKey != "classe.created" {
		t.Fatalf("expected ClasseCreated event, got %+v", evs)
	}
}

func TestCreateClasseForbiddenForEnseignant(t *testing.T) {
	f := newFixture()

	_, err := f.service.Create(enseignantCtx(), CreateRequest{
		Nom:             "5e B",
		EtablissementID: f.etabID,
	})
	if !dErrors.HasCode(err, dErrors.CodeForbidden) {
		t.Fatalf("expected forbidden for ROLE_ENSEIGNANT, got %v", err)
	}
	if f.auditMem.Count() != 0 || len(f.publisher.Events()) != 0 {
		t.Fatalf("forbidden create must leave no trace")
	}
}

func TestCreateClasseUnknownEtablissement(t *testing.T) {
	f := newFixture()

	_, err := f.service.Create(directeurCtx(), CreateRequest{
		Nom:             "4e C",
		EtablissementID: uuid.New(),
	})
	if !dErrors.HasCode(err, dErrors.CodeNotFound) {
		t.Fatalf("expected not found for unknown etablissement, got %v", err)
	}
	if f.auditMem.Count() != 0 {
		t.Fatalf("failed create must not be audited")
	}
}

func TestAssignEnseignantRecordsAssignment(t *testing.T) {
	f := newFixture()
	c, _ := f.service.Create(directeurCtx(), CreateRequest{Nom: "3e A", EtablissementID: f.etabID})

	updated, err := f.service.AssignEnseignant(directeurCtx(), c.ID, AssignEnseignantRequest{
		EnseignantID: "kc-ens-12",
		Motif:        "rentrée scolaire",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.EnseignantID != "kc-ens-12" {
		t.Fatalf("enseignant not assigned: %+v", updated)
	}

	records, _ := f.auditMem.ListByEntity(context.Background(), "classe", c.ID.String(), 1, 0)
	if len(records) != 1 || records[0].Operation != audit.OpAssign {
		t.Fatalf("expected ASSIGN audit record, got %+v", records)
	}
	if records[0].Motive != "rentrée scolaire" {
		t.Fatalf("motive must be recorded, got %q", records[0].Motive)
	}

	evs := f.publisher.Events()
	last := evs[len(evs)-1]
	if last.Type != "ClasseEnseignantAssigned" || last.RoutingKey != "classe.enseignant.assigned" {
		t.Fatalf("expected ClasseEnseignantAssigned event, got %+v", last)
	}
}

func TestReassignEnseignantKeepsPrevious(t *testing.T) {
	f := newFixture()
	c, _ := f.service.Create(directeurCtx(), CreateRequest{Nom: "3e B", EtablissementID: f.etabID})
	_, _ = f.service.AssignEnseignant(directeurCtx(), c.ID, AssignEnseignantRequest{EnseignantID: "kc-ens-1"})

	_, err := f.service.AssignEnseignant(directeurCtx(), c.ID, AssignEnseignantRequest{EnseignantID: "kc-ens-2"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	records, _ := f.auditMem.ListByEntity(context.Background(), "classe", c.ID.String(), 1, 0)
	if records[0].Payload["previous_enseignant_id"] != "kc-ens-1" {
		t.Fatalf("reassignment must record the previous enseignant, got %+v", records[0].Payload)
	}
}

func TestListByEtablissement(t *testing.T) {
	f := newFixture()
	_, _ = f.service.Create(directeurCtx(), CreateRequest{Nom: "6e A", EtablissementID: f.etabID})
	_, _ = f.service.Create(directeurCtx(), CreateRequest{Nom: "6e B", EtablissementID: f.etabID})

	out, err := f.service.List(context.Background(), ListFilter{EtablissementID: f.etabID})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 {
		t.Fatalf("expected 2 classes, got %d", len(out))
	}

	out, err = f.service.List(context.Background(), ListFilter{EtablissementID: uuid.New()})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 0 {
		t.Fatalf("expected no classes for other etablissement, got %d", len(out))
	}
}

func TestUpdateUnknownClasseIsNotFound(t *testing.T) {
	f := newFixture()

	nom := "X"
	_, err := f.service.Update(directeurCtx(), uuid.New(), UpdateRequest{Nom: &nom})
	if !dErrors.HasCode(err, dErrors.CodeNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}
}
