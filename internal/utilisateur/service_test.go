package utilisateur

import (
	"context"
	"sync"
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
}

func newFixture() *fixture {
	auditStore := auditmem.NewInMemoryStore()
	publisher := events.NewMemoryPublisher()
	o := mutation.New(ServiceName, tx.NopRunner{}, audit.NewRecorder(auditStore), publisher)
	svc := NewService(NewInMemoryStore(), o, WithAuditReader(auditStore))
	return &fixture{service: svc, auditMem: auditStore, publisher: publisher}
}

func adminCtx() context.Context {
	return requestcontext.WithPrincipal(context.Background(), domain.Principal{
		SubjectID:    "kc-admin",
		DisplayLabel: "admin.systeme",
		Roles:        []string{"ROLE_ADMIN_SYSTEME"},
	})
}

func TestCreateUtilisateur(t *testing.T) {
	f := newFixture()

	u, err := f.service.Create(adminCtx(), CreateRequest{
		Nom:    "Dupont",
		Prenom: "Marie",
		Email:  " Marie.Dupont@Ecole.fr",
		Roles:  []string{"ROLE_ENSEIGNANT"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !u.Actif {
		t.Fatalf("new utilisateur must start active")
	}
	if u.Email != "marie.dupont@ecole.fr" {
		t.Fatalf("email must be normalized, got %q", u.Email)
	}

	records, _ := f.auditMem.ListByEntity(context.Background(), "utilisateur", u.ID.String(), 10, 0)
	if len(records) != 1 || records[0].Operation != audit.OpCreate {
		t.Fatalf("expected one CREATE audit record, got %+v", records)
	}
}

func TestConcurrentCreateSameEmailOneWins(t *testing.T) {
	f := newFixture()

	const attempts = 8
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = f.service.Create(adminCtx(), CreateRequest{
				Nom:    "Durand",
				Prenom: "Paul",
				Email:  "paul.durand@ecole.fr",
				Roles:  []string{"ROLE_DIRECTEUR"},
			})
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case dErrors.HasCode(err, dErrors.CodeConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != attempts-1 {
		t.Fatalf("expected exactly one winner, got %d successes and %d conflicts", ok, conflicts)
	}

	// Only the winning registration is audited.
	if f.auditMem.Count() != 1 {
		t.Fatalf("expected one audit record, got %d", f.auditMem.Count())
	}
}

func TestDeactivateRecordsMotive(t *testing.T) {
	f := newFixture()
	u, _ := f.service.Create(adminCtx(), CreateRequest{
		Nom: "Petit", Prenom: "Claire", Email: "c@ecole.fr", Roles: []string{"ROLE_SECRETAIRE"},
	})

	updated, err := f.service.Deactivate(adminCtx(), u.ID, DeactivateRequest{Motif: "départ de l'établissement"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if updated.Actif {
		t.Fatalf("utilisateur must be inactive after deactivation")
	}

	records, _ := f.auditMem.ListByEntity(context.Background(), "utilisateur", u.ID.String(), 1, 0)
	if len(records) != 1 || records[0].Operation != audit.OpDelete {
		t.Fatalf("expected DELETE audit record, got %+v", records)
	}
	if records[0].Motive != "départ de l'établissement" {
		t.Fatalf("motive must be recorded, got %q", records[0].Motive)
	}

	evs := f.publisher.Events()
	last := evs[len(evs)-1]
	if last.Type != "UtilisateurDeactivated" || last.RoutingKey != "utilisateur.deactivated" {
		t.Fatalf("expected UtilisateurDeactivated event, got %+v", last)
	}
}

func TestDeactivateTwiceRejected(t *testing.T) {
	f := newFixture()
	u, _ := f.service.Create(adminCtx(), CreateRequest{
		Nom: "Petit", Prenom: "Jean", Email: "j@ecole.fr", Roles: []string{"ROLE_ENSEIGNANT"},
	})
	_, err := f.service.Deactivate(adminCtx(), u.ID, DeactivateRequest{Motif: "premier"})
	if err != nil {
		t.Fatalf("first deactivation failed: %v", err)
	}

	_, err = f.service.Deactivate(adminCtx(), u.ID, DeactivateRequest{Motif: "second"})
	if !dErrors.HasCode(err, dErrors.CodeValidation) {
		t.Fatalf("expected validation error on second deactivation, got %v", err)
	}
}

func TestDeactivateRequiresMotif(t *testing.T) {
	f := newFixture()

	_, err := f.service.Deactivate(adminCtx(), uuid.New(), DeactivateRequest{})
	if !dErrors.HasCode(err, dErrors.CodeValidation) {
		t.Fatalf("expected validation error for missing motif, got %v", err)
	}
}

func TestListActifOnly(t *testing.T) {
	f := newFixture()
	a, _ := f.service.Create(adminCtx(), CreateRequest{
		Nom: "A", Prenom: "A", Email: "a@ecole.fr", Roles: []string{"ROLE_ENSEIGNANT"},
	})
	b, _ := f.service.Create(adminCtx(), CreateRequest{
		Nom: "B", Prenom: "B", Email: "b@ecole.fr", Roles: []string{"ROLE_ENSEIGNANT"},
	})
	_, err := f.service.Deactivate(adminCtx(), b.ID, DeactivateRequest{Motif: "départ"})
	if err != nil {
		t.Fatalf("deactivation failed: %v", err)
	}

	out, err := f.service.List(context.Background(), ListFilter{ActifOnly: true})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(out) != 1 || out[0].ID != a.ID {
		t.Fatalf("expected only the active utilisateur, got %+v", out)
	}
}

func TestCreateMissingRolesRejected(t *testing.T) {
	f := newFixture()

	_, err := f.service.Create(adminCtx(), CreateRequest{
		Nom: "X", Prenom: "Y", Email: "x@ecole.fr",
	})
	if !dErrors.HasCode(err, dErrors.CodeValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
