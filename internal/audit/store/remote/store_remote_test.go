package remote

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	"edconnekt/internal/audit"
	"edconnekt/pkg/platform/sentinel"
)

func record() audit.Record {
	return audit.Record{
		ID:             uuid.New(),
		Service:        "ressource-service",
		EntityType:     "ressource",
		EntityID:       "r1",
		Operation:      audit.OpDelete,
		ActorSubjectID: "kc-dir",
		ActorLabel:     "jean.martin",
		Motive:         "programme remplacé",
		OccurredAt:     time.Date(2025, 6, 2, 10, 0, 0, 0, time.UTC),
		Payload:        map[string]any{"titre": "Ancien programme"},
	}
}

func TestAppendPostsCentralFormat(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("expected JSON content type, got %q", ct)
		}
		if err := json.NewDecoder(r.Body).Decode(&got); err != nil {
			t.Errorf("decode body: %v", err)
		}
		w.WriteHeader(http.StatusCreated)
	}))
	defer srv.Close()

	rec := record()
	store := New(srv.URL)
	if err := store.Append(context.Background(), rec); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if got["service"] != "ressource-service" || got["entite"] != "ressource" || got["entite_id"] != "r1" {
		t.Fatalf("wrong entity fields: %+v", got)
	}
	if got["action"] != "DELETE" {
		t.Fatalf("operation must map to the central action field, got %v", got["action"])
	}
	if got["performed_by_id"] != "kc-dir" || got["performed_by_label"] != "jean.martin" {
		t.Fatalf("wrong attribution: %+v", got)
	}
	if got["motif"] != "programme remplacé" {
		t.Fatalf("motive missing: %+v", got)
	}
}

func TestAppendRejectedStatusIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	err := New(srv.URL).Append(context.Background(), record())
	if !errors.Is(err, sentinel.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestAppendConnectionFailureIsUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	srv.Close()

	err := New(srv.URL).Append(context.Background(), record())
	if !errors.Is(err, sentinel.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}
