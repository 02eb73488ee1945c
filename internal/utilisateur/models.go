// Package utilisateur manages platform user accounts: registration,
// profile updates, and deactivation.
package utilisateur

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "edconnekt/pkg/domain-errors"
)

type Utilisateur struct {
	ID     uuid.UUID `json:"id"`
	Nom    string    `json:"nom"`
	Prenom string    `json:"prenom"`
	Email  string    `json:"email"`
	Roles  []string  `json:"roles"`
	// EtablissementID scopes school staff to their establishment. Nil for
	// platform-level accounts.
	EtablissementID *uuid.UUID `json:"etablissement_id,omitempty"`
	Actif           bool       `json:"actif"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

type CreateRequest struct {
	Nom             string     `json:"nom"`
	Prenom          string     `json:"prenom"`
	Email           string     `json:"email"`
	Roles           []string   `json:"roles"`
	EtablissementID *uuid.UUID `json:"etablissement_id,omitempty"`
}

func (r *CreateRequest) Normalize() {
	r.Nom = strings.TrimSpace(r.Nom)
	r.Prenom = strings.TrimSpace(r.Prenom)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
}

func (r *CreateRequest) Validate() error {
	if r.Nom == "" || r.Prenom == "" {
		return dErrors.New(dErrors.CodeValidation, "nom and prenom are required")
	}
	if r.Email == "" || !strings.Contains(r.Email, "@") {
		return dErrors.New(dErrors.CodeValidation, "a valid email is required")
	}
	if len(r.Roles) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one role is required")
	}
	return nil
}

type UpdateRequest struct {
	Nom    *string   `json:"nom,omitempty"`
	Prenom *string   `json:"prenom,omitempty"`
	Roles  *[]string `json:"roles,omitempty"`
}

func (r *UpdateRequest) Validate() error {
	if r.Nom == nil && r.Prenom == nil && r.Roles == nil {
		return dErrors.New(dErrors.CodeValidation, "no fields to update")
	}
	if r.Nom != nil && strings.TrimSpace(*r.Nom) == "" {
		return dErrors.New(dErrors.CodeValidation, "nom cannot be empty")
	}
	if r.Roles != nil && len(*r.Roles) == 0 {
		return dErrors.New(dErrors.CodeValidation, "at least one role is required")
	}
	return nil
}

type DeactivateRequest struct {
	Motif string `json:"motif"`
}

func (r *DeactivateRequest) Validate() error {
	if strings.TrimSpace(r.Motif) == "" {
		return dErrors.New(dErrors.CodeValidation, "motif is required")
	}
	return nil
}

type ListFilter struct {
	EtablissementID uuid.UUID
	// ActifOnly keeps deactivated accounts out of the listing.
	ActifOnly bool
	Limit     int
	Offset    int
}
