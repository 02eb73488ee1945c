package principal

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"

	"edconnekt/pkg/domain"
	"edconnekt/pkg/requestcontext"
)

// CredentialResolver is what the middleware needs from the resolver.
type CredentialResolver interface {
	Resolve(ctx context.Context, credential string) (domain.Principal, error)
}

func writeJSONError(w http.ResponseWriter, status int, errCode, errDesc string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{
		"error":   errCode,
		"message": errDesc,
	})
}

// RequireAuth authenticates the bearer credential and stores the resulting
// principal in the request context. Requests without a verifiable credential
// are rejected here, before any guard or handler runs.
func RequireAuth(resolver CredentialResolver, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()

			authHeader := r.Header.Get("Authorization")
			const bearerPrefix = "Bearer "
			token, ok := strings.CutPrefix(authHeader, bearerPrefix)
			if !ok || token == "" {
				logger.WarnContext(ctx, "unauthenticated request - missing bearer token",
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "Missing or invalid Authorization header")
				return
			}

			p, err := resolver.Resolve(ctx, token)
			if err != nil {
				logger.WarnContext(ctx, "unauthenticated request - credential rejected",
					"error", err,
					"request_id", requestcontext.RequestID(ctx),
				)
				writeJSONError(w, http.StatusUnauthorized, "unauthenticated", "Invalid or expired token")
				return
			}

			next.ServeHTTP(w, r.WithContext(requestcontext.WithPrincipal(ctx, p)))
		})
	}
}
