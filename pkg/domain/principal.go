// Package domain holds types shared across service boundaries.
package domain

// Principal is the verified identity behind a request. It is rebuilt from the
// bearer credential on every request and never persisted.
type Principal struct {
	// SubjectID is the identity provider's stable user id (the token subject).
	SubjectID string
	// DisplayLabel is a human-readable name for audit attribution, typically
	// the preferred username claim. May be empty.
	DisplayLabel string
	// Roles is the realm role set granted to the subject.
	Roles []string
}

// HasRole reports whether the principal carries the given role.
func (p Principal) HasRole(role string) bool {
	for _, r := range p.Roles {
		if r == role {
			return true
		}
	}
	return false
}
