package middleware

import (
	"net/http"
	"time"

	"edconnekt/pkg/requestcontext"
)

// RequestTime pins one timestamp per request so every consumer (audit
// records, events, entity timestamps) observes the same instant. Tests swap
// the instant with requestcontext.WithTime.
func RequestTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := requestcontext.WithTime(r.Context(), time.Now().UTC())
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
