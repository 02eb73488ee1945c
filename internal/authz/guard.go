// Package authz decides whether a principal may perform an operation.
package authz

import "edconnekt/pkg/domain"

// Allowed reports whether the principal satisfies the required role set.
// Semantics are any-of: one matching role is enough. An empty required set
// allows every authenticated principal; callers that want "no access without
// an explicit role" must pass a non-empty set. Pure function, no I/O.
func Allowed(p domain.Principal, required []string) bool {
	if len(required) == 0 {
		return true
	}
	for _, role := range required {
		if p.HasRole(role) {
			return true
		}
	}
	return false
}
