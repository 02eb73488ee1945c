// Package httptransport assembles the HTTP surface: middleware chain, public
// discovery routes, and the authenticated API.
package httptransport

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	audithandler "edconnekt/internal/audit/handler"
	"edconnekt/internal/authz"
	"edconnekt/internal/classe"
	"edconnekt/internal/eleve"
	"edconnekt/internal/etablissement"
	"edconnekt/internal/platform/middleware"
	"edconnekt/internal/principal"
	"edconnekt/internal/ressource"
	"edconnekt/internal/utilisateur"
	"edconnekt/pkg/platform/httputil"
)

// Handlers collects the per-service handlers the router mounts. Nil entries
// are skipped so a deployment can run a subset of services.
type Handlers struct {
	Etablissement *etablissement.Handler
	Classe        *classe.Handler
	Eleve         *eleve.Handler
	Utilisateur   *utilisateur.Handler
	Ressource     *ressource.Handler
	Audit         *audithandler.Handler
}

// NewRouter wires middleware and routes. Authentication guards everything
// under /api/v1; the audit trail additionally requires an administrator.
func NewRouter(resolver principal.CredentialResolver, h Handlers, logger *slog.Logger) http.Handler {
	r := chi.NewRouter()

	r.Use(chimiddleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(middleware.RequestTime)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		httputil.RespondJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	if h.Etablissement != nil {
		h.Etablissement.RegisterPublic(r)
	}

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(principal.RequireAuth(resolver, logger))

		if h.Etablissement != nil {
			h.Etablissement.Register(r)
		}
		if h.Classe != nil {
			h.Classe.Register(r)
		}
		if h.Eleve != nil {
			h.Eleve.Register(r)
		}
		if h.Utilisateur != nil {
			h.Utilisateur.Register(r)
		}
		if h.Ressource != nil {
			h.Ressource.Register(r)
		}
		if h.Audit != nil {
			r.Group(func(r chi.Router) {
				r.Use(authz.RequireRoles("ROLE_ADMIN_SYSTEME"))
				h.Audit.Register(r)
			})
		}
	})

	return r
}
