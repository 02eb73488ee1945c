// Package classe manages school classes: creation, renaming, teacher
// assignment, and listing by establishment.
package classe

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "edconnekt/pkg/domain-errors"
)

type Classe struct {
	ID              uuid.UUID `json:"id"`
	Nom             string    `json:"nom"`
	Niveau          string    `json:"niveau"`
	EtablissementID uuid.UUID `json:"etablissement_id"`
	// EnseignantID is the assigned teacher's identity provider subject.
	// Empty when no teacher is assigned yet.
	EnseignantID string    `json:"enseignant_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type CreateRequest struct {
	Nom             string    `json:"nom"`
	Niveau          string    `json:"niveau"`
	EtablissementID uuid.UUID `json:"etablissement_id"`
}

func (r *CreateRequest) Normalize() {
	r.Nom = strings.TrimSpace(r.Nom)
	r.Niveau = strings.TrimSpace(r.Niveau)
}

func (r *CreateRequest) Validate() error {
	if r.Nom == "" {
		return dErrors.New(dErrors.CodeValidation, "nom is required")
	}
	if r.EtablissementID == uuid.Nil {
		return dErrors.New(dErrors.CodeValidation, "etablissement_id is required")
	}
	return nil
}

type UpdateRequest struct {
	Nom    *string `json:"nom,omitempty"`
	Niveau *string `json:"niveau,omitempty"`
}

func (r *UpdateRequest) Validate() error {
	if r.Nom == nil && r.Niveau == nil {
		return dErrors.New(dErrors.CodeValidation, "no fields to update")
	}
	if r.Nom != nil && strings.TrimSpace(*r.Nom) == "" {
		return dErrors.New(dErrors.CodeValidation, "nom cannot be empty")
	}
	return nil
}

type AssignEnseignantRequest struct {
	EnseignantID string `json:"enseignant_id"`
	Motif        string `json:"motif"`
}

func (r *AssignEnseignantRequest) Validate() error {
	if strings.TrimSpace(r.EnseignantID) == "" {
		return dErrors.New(dErrors.CodeValidation, "enseignant_id is required")
	}
	return nil
}

type ListFilter struct {
	EtablissementID uuid.UUID
	Limit           int
	Offset          int
}
