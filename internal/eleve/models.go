// Package eleve manages student records: enrollment, updates, class
// assignment, and listing by establishment.
package eleve

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "edconnekt/pkg/domain-errors"
)

type Eleve struct {
	ID              uuid.UUID `json:"id"`
	Nom             string    `json:"nom"`
	Prenom          string    `json:"prenom"`
	DateNaissance   string    `json:"date_naissance,omitempty"`
	EtablissementID uuid.UUID `json:"etablissement_id"`
	// ClasseID is nil until the student is assigned to a class.
	ClasseID  *uuid.UUID `json:"classe_id,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type CreateRequest struct {
	Nom             string    `json:"nom"`
	Prenom          string    `json:"prenom"`
	DateNaissance   string    `json:"date_naissance"`
	EtablissementID uuid.UUID `json:"etablissement_id"`
}

func (r *CreateRequest) Normalize() {
	r.Nom = strings.TrimSpace(r.Nom)
	r.Prenom = strings.TrimSpace(r.Prenom)
	r.DateNaissance = strings.TrimSpace(r.DateNaissance)
}

func (r *CreateRequest) Validate() error {
	if r.Nom == "" || r.Prenom == "" {
		return dErrors.New(dErrors.CodeValidation, "nom and prenom are required")
	}
	if r.EtablissementID == uuid.Nil {
		return dErrors.New(dErrors.CodeValidation, "etablissement_id is required")
	}
	if r.DateNaissance != "" {
		if _, err := time.Parse("2006-01-02", r.DateNaissance); err != nil {
			return dErrors.New(dErrors.CodeValidation, "date_naissance must be YYYY-MM-DD")
		}
	}
	return nil
}

type UpdateRequest struct {
	Nom           *string `json:"nom,omitempty"`
	Prenom        *string `json:"prenom,omitempty"`
	DateNaissance *string `json:"date_naissance,omitempty"`
}

func (r *UpdateRequest) Validate() error {
	if r.Nom == nil && r.Prenom == nil && r.DateNaissance == nil {
		return dErrors.New(dErrors.CodeValidation, "no fields to update")
	}
	if r.Nom != nil && strings.TrimSpace(*r.Nom) == "" {
		return dErrors.New(dErrors.CodeValidation, "nom cannot be empty")
	}
	if r.DateNaissance != nil && *r.DateNaissance != "" {
		if _, err := time.Parse("2006-01-02", *r.DateNaissance); err != nil {
			return dErrors.New(dErrors.CodeValidation, "date_naissance must be YYYY-MM-DD")
		}
	}
	return nil
}

type AssignClasseRequest struct {
	ClasseID uuid.UUID `json:"classe_id"`
	Motif    string    `json:"motif"`
}

func (r *AssignClasseRequest) Validate() error {
	if r.ClasseID == uuid.Nil {
		return dErrors.New(dErrors.CodeValidation, "classe_id is required")
	}
	return nil
}

type ListFilter struct {
	EtablissementID uuid.UUID
	ClasseID        uuid.UUID
	Limit           int
	Offset          int
}
