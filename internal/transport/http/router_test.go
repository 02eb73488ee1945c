package httptransport

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"edconnekt/internal/audit"
	audithandler "edconnekt/internal/audit/handler"
	auditmem "edconnekt/internal/audit/store/memory"
	"edconnekt/internal/etablissement"
	"edconnekt/internal/events"
	"edconnekt/internal/mutation"
	"edconnekt/pkg/domain"
	dErrors "edconnekt/pkg/domain-errors"
	"edconnekt/pkg/platform/tx"
)

// tokenResolver maps bearer tokens to principals.
type tokenResolver map[string]domain.Principal

func (r tokenResolver) Resolve(_ context.Context, credential string) (domain.Principal, error) {
	p, ok := r[credential]
	if !ok {
		return domain.Principal{}, dErrors.New(dErrors.CodeUnauthenticated, "invalid or expired credential")
	}
	return p, nil
}

func testRouter(t *testing.T) http.Handler {
	t.Helper()
	logger := slog.Default()

	auditStore := auditmem.NewInMemoryStore()
	orchestrator := mutation.New(etablissement.ServiceName, tx.NopRunner{},
		audit.NewRecorder(auditStore), events.NewMemoryPublisher())
	etabService := etablissement.NewService(etablissement.NewInMemoryStore(), orchestrator,
		etablissement.WithAuditReader(auditStore))

	resolver := tokenResolver{
		"admin-token": {SubjectID: "kc-admin", DisplayLabel: "admin", Roles: []string{"ROLE_ADMIN_SYSTEME"}},
		"dir-token":   {SubjectID: "kc-dir", DisplayLabel: "jean", Roles: []string{"ROLE_DIRECTEUR"}},
	}

	return NewRouter(resolver, Handlers{
		Etablissement: etablissement.NewHandler(etabService, logger),
		Audit:         audithandler.New(auditStore, logger),
	}, logger)
}

func get(router http.Handler, path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func TestHealthzIsPublic(t *testing.T) {
	rec := get(testRouter(t), "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestPublicEtablissementsNeedNoAuth(t *testing.T) {
	rec := get(testRouter(t), "/public/etablissements", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAPIRequiresAuth(t *testing.T) {
	rec := get(testRouter(t), "/api/v1/etablissements", "")
	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", rec.Code)
	}
}

func TestAPIAcceptsValidToken(t *testing.T) {
	rec := get(testRouter(t), "/api/v1/etablissements", "dir-token")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestAuditTrailIsAdminOnly(t *testing.T) {
	router := testRouter(t)

	rec := get(router, "/api/v1/audit", "dir-token")
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for non-admin, got %d", rec.Code)
	}

	rec = get(router, "/api/v1/audit", "admin-token")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rec.Code)
	}
}

func TestRequestIDEchoedBack(t *testing.T) {
	router := testRouter(t)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Request-Id", "req-42")
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if got := rec.Header().Get("X-Request-Id"); got != "req-42" {
		t.Fatalf("expected request id to round-trip, got %q", got)
	}
}

func TestMetricsExposed(t *testing.T) {
	rec := get(testRouter(t), "/metrics", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}
