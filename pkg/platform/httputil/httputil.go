// Package httputil centralizes JSON encoding and domain-error translation so
// every handler produces the same envelope.
package httputil

import (
	"encoding/json"
	"io"
	"net/http"
	"strconv"

	dErrors "edconnekt/pkg/domain-errors"
)

// RespondJSON writes a JSON body with the given status.
func RespondJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if body != nil {
		_ = json.NewEncoder(w).Encode(body)
	}
}

// RespondError translates a domain error into the standard envelope
// {"error": <code>, "message": <text>}. Internal and persistence failures get
// a generic message so storage details never leak to clients.
func RespondError(w http.ResponseWriter, err error) {
	code := dErrors.CodeOf(err)
	message := dErrors.MessageOf(err)
	if code == dErrors.CodeInternal || code == dErrors.CodePersistence {
		message = "internal error"
	}
	RespondJSON(w, dErrors.ToHTTPStatus(code), map[string]string{
		"error":   string(code),
		"message": message,
	})
}

const maxBodyBytes = 1 << 20

// DecodeJSON decodes a request body into dst, rejecting unknown fields and
// oversized bodies with a validation error.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid JSON body")
	}
	return nil
}

// QueryInt parses a non-negative integer query parameter with a fallback.
func QueryInt(r *http.Request, name string, fallback int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 0 {
		return fallback
	}
	return v
}
