// Package remote appends audit records to the central audit service over
// HTTP. Services that don't own an audit table use this sink; the mutation
// orchestrator treats it exactly like the local one, so a failed POST still
// rolls back the mutation. The call happens inside the transaction scope,
// before commit, which is the closest a remote sink gets to the atomic
// policy: a record may exist for a mutation that later failed to commit, but
// never the reverse.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"edconnekt/internal/audit"
	"edconnekt/pkg/platform/sentinel"
)

const defaultRequestTimeout = 3 * time.Second

// Store posts records to the audit service's create_audit_log endpoint.
type Store struct {
	url    string
	client *http.Client
}

func New(url string) *Store {
	return &Store{
		url:    url,
		client: &http.Client{Timeout: defaultRequestTimeout},
	}
}

// NewWithClient allows injecting a client in tests.
func NewWithClient(url string, client *http.Client) *Store {
	return &Store{url: url, client: client}
}

type createRequest struct {
	ID               string         `json:"id"`
	Service          string         `json:"service"`
	Entite           string         `json:"entite"`
	EntiteID         string         `json:"entite_id"`
	Action           string         `json:"action"`
	PerformedByID    string         `json:"performed_by_id"`
	PerformedByLabel string         `json:"performed_by_label,omitempty"`
	Motif            string         `json:"motif,omitempty"`
	PerformedAt      time.Time      `json:"performed_at"`
	Payload          map[string]any `json:"payload,omitempty"`
}

func (s *Store) Append(ctx context.Context, record audit.Record) error {
	body, err := json.Marshal(createRequest{
		ID:               record.ID.String(),
		Service:          record.Service,
		Entite:           record.EntityType,
		EntiteID:         record.EntityID,
		Action:           string(record.Operation),
		PerformedByID:    record.ActorSubjectID,
		PerformedByLabel: record.ActorLabel,
		Motif:            record.Motive,
		PerformedAt:      record.OccurredAt,
		Payload:          record.Payload,
	})
	if err != nil {
		return fmt.Errorf("marshal audit request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build audit request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("post audit record: %w: %w", sentinel.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated && resp.StatusCode != http.StatusOK {
		return fmt.Errorf("audit service returned %d: %w", resp.StatusCode, sentinel.ErrUnavailable)
	}
	return nil
}

var _ audit.Sink = (*Store)(nil)
