package middleware

import (
	"net/http"

	"github.com/google/uuid"

	"edconnekt/pkg/requestcontext"
)

const requestIDHeader = "X-Request-Id"

// RequestID propagates the inbound X-Request-Id header, or mints one, and
// stores it in the request context for log correlation.
func RequestID(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		reqID := r.Header.Get(requestIDHeader)
		if reqID == "" {
			reqID = uuid.NewString()
		}
		w.Header().Set(requestIDHeader, reqID)
		ctx := requestcontext.WithRequestID(r.Context(), reqID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
