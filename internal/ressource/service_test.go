package ressource

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
	svc := NewService(NewInMemoryStore(), o)
	return &fixture{service: svc, auditMem: auditStore, publisher: publisher, etabID: uuid.New()}
}

func enseignantCtx() context.Context {
	return requestcontext.WithPrincipal(context.Background(), domain.Principal{
		SubjectID:    "kc-ens",
		DisplayLabel: "paul.bernard",
		Roles:        []string{"ROLE_ENSEIGNANT"},
	})
}

func directeurCtx() context.Context {
	return requestcontext.WithPrincipal(context.Background(), domain.Principal{
		SubjectID:    "kc-dir",
		DisplayLabel: "jean.martin",
		Roles:        []string{"ROLE_DIRECTEUR"},
	})
}

func (f *fixture) publish(t *testing.T, titre, categorie string) *Ressource {
	t.Helper()
	r, err := f.service.Create(enseignantCtx(), CreateRequest{
		Titre:           titre,
		Categorie:       categorie,
		CheminFichier:   "documents/2025/" + titre + ".pdf",
		EtablissementID: f.etabID,
	})
	if err != nil {
		t.Fatalf("create failed: %v", err)
	}
	return r
}

func TestCreateRessource(t *testing.T) {
	f := newFixture()

	r := f.publish(t, "Cours de maths", "mathematiques")

	records, _ := f.auditMem.ListByEntity(context.Background(), "ressource", r.ID.String(), 10, 0)
	if len(records) != 1 || records[0].Operation != audit.OpCreate {
		t.Fatalf("expected one CREATE audit record, got %+v", records)
	}

	evs := f.publisher.Events()
	if len(evs) != 1 || evs[0].Type != "RessourceCreated" || evs[0].RoutingKey != "ressource.created" {
		t.Fatalf("expected RessourceCreated event, got %+v", evs)
	}
}

func TestDeleteForbiddenForEnseignant(t *testing.T) {
	f := newFixture()
	r := f.publish(t, "Exercices", "mathematiques")

	err := f.service.Delete(enseignantCtx(), r.ID, DeleteRequest{Motif: "obsolète"})
	if !dErrors.HasCode(err, dErrors.CodeForbidden) {
		t.Fatalf("expected forbidden for ROLE_ENSEIGNANT, got %v", err)
	}

	if _, err := f.service.Get(context.Background(), r.ID); err != nil {
		t.Fatalf("forbidden delete must leave the ressource untouched, got %v", err)
	}
}

func TestDeleteRecordsMotive(t *testing.T) {
	f := newFixture()
	r := f.publish(t, "Ancien programme", "histoire")

	err := f.service.Delete(directeurCtx(), r.ID, DeleteRequest{Motif: "programme remplacé"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	_, err = f.service.Get(context.Background(), r.ID)
	if !dErrors.HasCode(err, dErrors.CodeNotFound) {
		t.Fatalf("ressource must be gone after delete, got %v", err)
	}

	records, _ := f.auditMem.ListByEntity(context.Background(), "ressource", r.ID.String(), 1, 0)
	if len(records) != 1 || records[0].Operation != audit.OpDelete {
		t.Fatalf("expected DELETE audit record, got %+v", records)
	}
	if records[0].Motive != "programme remplacé" {
		t.Fatalf("motive must be recorded, got %q", records[0].Motive)
	}

	evs := f.publisher.Events()
	last := evs[len(evs)-1]
	if last.Type != "RessourceDeleted" || last.RoutingKey != "ressource.deleted" {
		t.Fatalf("expected RessourceDeleted event, got %+v", last)
	}
}

func TestDeleteRequiresMotif(t *testing.T) {
	f := newFixture()
	r := f.publish(t, "Doc", "divers")

	err := f.service.Delete(directeurCtx(), r.ID, DeleteRequest{})
	if !dErrors.HasCode(err, dErrors.CodeValidation) {
		t.Fatalf("expected validation error for missing motif, got %v", err)
	}
}

func TestListByCategorie(t *testing.T) {
	f := newFixture()
	a := f.publish(t, "Algèbre", "mathematiques")
	_ = f.publish(t, "Révolution", "histoire")

	out, err := f.service.List(context.Background(), ListFilter{Categorie: "mathematiques"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].ID != a.ID {
		t.Fatalf("expected only the mathematiques ressource, got %+v", out)
	}
}

func TestCategoriesSortedDistinct(t *testing.T) {
	f := newFixture()
	_ = f.publish(t, "A", "mathematiques")
	_ = f.publish(t, "B", "histoire")
	_ = f.publish(t, "C", "histoire")

	out, err := f.service.Categories(context.Background(), f.etabID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 2 || out[0] != "histoire" || out[1] != "mathematiques" {
		t.Fatalf("expected sorted distinct categories, got %v", out)
	}
}

func TestUpdateChangesCategorie(t *testing.T) {
	f := newFixture()
	r := f.publish(t, "Géométrie", "mathematiques")

	categorie := "geometrie"
	updated, err := f.service.Update(enseignantCtx(), r.ID, UpdateRequest{Categorie: &categorie})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Categorie != categorie {
		t.Fatalf("categorie not updated: %+v", updated)
	}
	if updated.CheminFichier != r.CheminFichier {
		t.Fatalf("chemin_fichier must never change on update")
	}
}
