// Package ressource manages pedagogical resources: documents shared with
// classes, organized by category.
package ressource

import (
	"strings"
	"time"

	"github.com/google/uuid"

	dErrors "edconnekt/pkg/domain-errors"
)

type Ressource struct {
	ID          uuid.UUID `json:"id"`
	Titre       string    `json:"titre"`
	Description string    `json:"description,omitempty"`
	Categorie   string    `json:"categorie"`
	// CheminFichier is the storage path of the uploaded document. Opaque to
	// this service; the file store owns its meaning.
	CheminFichier   string    `json:"chemin_fichier,omitempty"`
	EtablissementID uuid.UUID `json:"etablissement_id"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

type CreateRequest struct {
	Titre           string    `json:"titre"`
	Description     string    `json:"description"`
	Categorie       string    `json:"categorie"`
	CheminFichier   string    `json:"chemin_fichier"`
	EtablissementID uuid.UUID `json:"etablissement_id"`
}

func (r *CreateRequest) Normalize() {
	r.Titre = strings.TrimSpace(r.Titre)
	r.Description = strings.TrimSpace(r.Description)
	r.Categorie = strings.TrimSpace(r.Categorie)
}

func (r *CreateRequest) Validate() error {
	if r.Titre == "" {
		return dErrors.New(dErrors.CodeValidation, "titre is required")
	}
	if r.Categorie == "" {
		return dErrors.New(dErrors.CodeValidation, "categorie is required")
	}
	if r.EtablissementID == uuid.Nil {
		return dErrors.New(dErrors.CodeValidation, "etablissement_id is required")
	}
	return nil
}

type UpdateRequest struct {
	Titre       *string `json:"titre,omitempty"`
	Description *string `json:"description,omitempty"`
	Categorie   *string `json:"categorie,omitempty"`
}

func (r *UpdateRequest) Validate() error {
	if r.Titre == nil && r.Description == nil && r.Categorie == nil {
		return dErrors.New(dErrors.CodeValidation, "no fields to update")
	}
	if r.Titre != nil && strings.TrimSpace(*r.Titre) == "" {
		return dErrors.New(dErrors.CodeValidation, "titre cannot be empty")
	}
	if r.Categorie != nil && strings.TrimSpace(*r.Categorie) == "" {
		return dErrors.New(dErrors.CodeValidation, "categorie cannot be empty")
	}
	return nil
}

type DeleteRequest struct {
	Motif string `json:"motif"`
}

func (r *DeleteRequest) Validate() error {
	if strings.TrimSpace(r.Motif) == "" {
		return dErrors.New(dErrors.CodeValidation, "motif is required")
	}
	return nil
}

type ListFilter struct {
	EtablissementID uuid.UUID
	Categorie       string
	Limit           int
	Offset          int
}
