package audit

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	dErrors "edconnekt/pkg/domain-errors"
	"edconnekt/pkg/requestcontext"
)

// Sink is the write side of an audit store. Implementations must treat
// records as append-only. The postgres sink joins an ambient transaction via
// pkg/platform/tx; the remote sink posts to the central audit service.
type Sink interface {
	Append(ctx context.Context, record Record) error
}

// Reader is the query side, served only where records are stored locally.
type Reader interface {
	FindByID(ctx context.Context, id uuid.UUID) (Record, error)
	List(ctx context.Context, limit, offset int) ([]Record, error)
	ListByService(ctx context.Context, service string, limit, offset int) ([]Record, error)
	ListByEntity(ctx context.Context, entityType, entityID string, limit, offset int) ([]Record, error)
}

// Recorder assigns identity and time to drafts and appends them to the sink.
// It never inspects the draft's business meaning.
type Recorder struct {
	sink Sink

	mu   sync.Mutex
	last time.Time
}

func NewRecorder(sink Sink) *Recorder {
	return &Recorder{sink: sink}
}

// Record persists a draft and returns the completed record. The timestamp is
// the request-scoped time (UTC), clamped so that occurred_at is monotonically
// non-decreasing in this recorder's own call order. That guarantee is per
// instance only; a distributed deployment gets no cross-instance ordering.
func (r *Recorder) Record(ctx context.Context, draft Draft) (Record, error) {
	record := Record{
		ID:             uuid.New(),
		Service:        draft.Service,
		EntityType:     draft.EntityType,
		EntityID:       draft.EntityID,
		Operation:      draft.Operation,
		ActorSubjectID: draft.ActorSubjectID,
		ActorLabel:     draft.ActorLabel,
		Motive:         draft.Motive,
		OccurredAt:     r.stamp(requestcontext.Now(ctx).UTC()),
		Payload:        draft.Payload,
	}

	if err := r.sink.Append(ctx, record); err != nil {
		return Record{}, dErrors.Wrap(err, dErrors.CodePersistence, "append audit record")
	}
	return record, nil
}

func (r *Recorder) stamp(t time.Time) time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()
	if t.Before(r.last) {
		t = r.last
	}
	r.last = t
	return t
}
