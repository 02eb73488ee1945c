package principal

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"edconnekt/pkg/domain"
	dErrors "edconnekt/pkg/domain-errors"
	"edconnekt/pkg/requestcontext"
)

type staticResolver struct {
	principal domain.Principal
	err       error
	seen      string
}

func (r *staticResolver) Resolve(_ context.Context, credential string) (domain.Principal, error) {
	r.seen = credential
	return r.principal, r.err
}

func TestRequireAuthStoresPrincipal(t *testing.T) {
	resolver := &staticResolver{principal: domain.Principal{
		SubjectID:    "kc-sub-1",
		DisplayLabel: "marie.dupont",
		Roles:        []string{"ROLE_DIRECTEUR"},
	}}

	var got domain.Principal
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got, _ = requestcontext.Principal(r.Context())
	})

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer the-token")
	rec := httptest.NewRecorder()

	RequireAuth(resolver, slog.Default())(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if resolver.seen != "the-token" {
		t.Fatalf("credential not forwarded, got %q", resolver.seen)
	}
	if got.SubjectID != "kc-sub-1" {
		t.Fatalf("principal not stored in context: %+v", got)
	}
}

func TestRequireAuthMissingHeader(t *testing.T) {
	called := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

	rec := httptest.NewRecorder()
	RequireAuth(&staticResolver{}, slog.Default())(next).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if called {
		t.Fatalf("handler must not run without a credential")
	}
}

func TestRequireAuthRejectedCredential(t *testing.T) {
	resolver := &staticResolver{err: dErrors.New(dErrors.CodeUnauthenticated, "invalid or expired credential")}
	called := false
	next := http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true })

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer bogus")
	rec := httptest.NewRecorder()

	RequireAuth(resolver, slog.Default())(next).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
	if called {
		t.Fatalf("handler must not run with a rejected credential")
	}
}

func TestRequireAuthNonBearerScheme(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Basic dXNlcjpwYXNz")
	rec := httptest.NewRecorder()

	RequireAuth(&staticResolver{}, slog.Default())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {})).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for non-bearer scheme, got %d", rec.Code)
	}
}
