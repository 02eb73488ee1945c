// Package etablissement manages school establishments: creation, contact
// info updates, status lifecycle, and their audit trail.
package etablissement

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "edconnekt/pkg/domain-errors"
)

type Status string

const (
	StatusActive    Status = "ACTIVE"
	StatusInactive  Status = "INACTIVE"
	StatusSuspended Status = "SUSPENDED"
)

func (s Status) valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

type Etablissement struct {
	ID        uuid.UUID `json:"id"`
	Nom       string    `json:"nom"`
	Email     string    `json:"email"`
	Telephone string    `json:"telephone,omitempty"`
	Adresse   string    `json:"adresse,omitempty"`
	Status    Status    `json:"status"`
	// GroupID is the identity provider group backing this establishment's
	// member management.
	GroupID   string    `json:"group_id,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type CreateRequest struct {
	Nom       string `json:"nom"`
	Email     string `json:"email"`
	Telephone string `json:"telephone"`
	Adresse   string `json:"adresse"`
}

func (r *CreateRequest) Normalize() {
	r.Nom = strings.TrimSpace(r.Nom)
	r.Email = strings.ToLower(strings.TrimSpace(r.Email))
	r.Telephone = strings.TrimSpace(r.Telephone)
	r.Adresse = strings.TrimSpace(r.Adresse)
}

func (r *CreateRequest) Validate() error {
	if r.Nom == "" {
		return dErrors.New(dErrors.CodeValidation, "nom is required")
	}
	if r.Email == "" || !strings.Contains(r.Email, "@") {
		return dErrors.New(dErrors.CodeValidation, "a valid email is required")
	}
	return nil
}

type UpdateRequest struct {
	Nom       *string `json:"nom,omitempty"`
	Telephone *string `json:"telephone,omitempty"`
	Adresse   *string `json:"adresse,omitempty"`
}

func (r *UpdateRequest) Validate() error {
	if r.Nom == nil && r.Telephone == nil && r.Adresse == nil {
		return dErrors.New(dErrors.CodeValidation, "no fields to update")
	}
	if r.Nom != nil && strings.TrimSpace(*r.Nom) == "" {
		return dErrors.New(dErrors.CodeValidation, "nom cannot be empty")
	}
	return nil
}

type ChangeStatusRequest struct {
	Status Status `json:"status"`
	Motif  string `json:"motif"`
}

func (r *ChangeStatusRequest) Validate() error {
	if !r.Status.valid() {
		return dErrors.New(dErrors.CodeValidation, "unknown status")
	}
	return nil
}

// ListFilter narrows List results.
type ListFilter struct {
	Status Status
	Limit  int
	Offset int
}
