package authz

import (
	"net/http"

	dErrors "edconnekt/pkg/domain-errors"
	"edconnekt/pkg/platform/httputil"
	"edconnekt/pkg/requestcontext"
)

// RequireRoles gates a route subtree on the principal holding any of the
// given roles. Mutating endpoints re-check inside the mutation pipeline; this
// middleware exists for read-only routes that never enter it.
func RequireRoles(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p, ok := requestcontext.Principal(r.Context())
			if !ok {
				httputil.RespondError(w, dErrors.New(dErrors.CodeUnauthenticated, "authentication required"))
				return
			}
			if !Allowed(p, roles) {
				httputil.RespondError(w, dErrors.New(dErrors.CodeForbidden, "missing required role"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
