// Package audit captures immutable records of state changes. Records are
// append-only: once written they are never updated or deleted.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Operation tags what kind of state change a record describes. The recorder
// does not validate business meaning; services pick the tag.
type Operation string

const (
	OpCreate       Operation = "CREATE"
	OpUpdate       Operation = "UPDATE"
	OpDelete       Operation = "DELETE"
	OpAssign       Operation = "ASSIGN"
	OpRead         Operation = "READ"
	OpStatusChange Operation = "CHANGE_STATUS"
)

// Record is one committed audit entry.
type Record struct {
	ID             uuid.UUID      `json:"id"`
	Service        string         `json:"service"`
	EntityType     string         `json:"entite"`
	EntityID       string         `json:"entite_id"`
	Operation      Operation      `json:"operation"`
	ActorSubjectID string         `json:"auteur_id"`
	ActorLabel     string         `json:"auteur_nom,omitempty"`
	Motive         string         `json:"motif,omitempty"`
	OccurredAt     time.Time      `json:"date_operation"`
	Payload        map[string]any `json:"payload,omitempty"`
}

// Draft is a record before the recorder assigns its id and timestamp.
type Draft struct {
	Service        string
	EntityType     string
	EntityID       string
	Operation      Operation
	ActorSubjectID string
	ActorLabel     string
	Motive         string
	Payload        map[string]any
}
