package authz

import (
	"testing"

	"edconnekt/pkg/domain"
)

func TestAllowedAnyOfSemantics(t *testing.T) {
	directeur := domain.Principal{SubjectID: "kc-1", Roles: []string{"ROLE_DIRECTEUR"}}

	// One matching role out of several required is enough.
	if !Allowed(directeur, []string{"ROLE_ADMIN_SYSTEME", "ROLE_DIRECTEUR"}) {
		t.Fatalf("expected any-of match to allow")
	}

	// No intersection denies.
	if Allowed(directeur, []string{"ROLE_ADMIN_SYSTEME"}) {
		t.Fatalf("expected non-intersecting role set to deny")
	}
}

func TestAllowedEmptyRequiredSet(t *testing.T) {
	nobody := domain.Principal{SubjectID: "kc-2"}
	if !Allowed(nobody, nil) {
		t.Fatalf("empty required set must allow any authenticated principal")
	}
	if !Allowed(nobody, []string{}) {
		t.Fatalf("empty required set must allow any authenticated principal")
	}
}

func TestAllowedPrincipalWithoutRoles(t *testing.T) {
	nobody := domain.Principal{SubjectID: "kc-3"}
	if Allowed(nobody, []string{"ROLE_ENSEIGNANT"}) {
		t.Fatalf("principal without roles must be denied a non-empty requirement")
	}
}
