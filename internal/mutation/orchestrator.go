// Package mutation sequences every state-changing request through the same
// contract: authorize, mutate atomically, record an audit entry, publish a
// domain event. The audit policy is strict: mutation and audit record commit
// in one transaction or neither does, because an unaudited state change is a
// compliance defect. Event publication runs only after commit and never
// fails the request.
package mutation

import (
	"context"
	"log/slog"

	"edconnekt/internal/audit"
	"edconnekt/internal/authz"
	"edconnekt/internal/events"
	"edconnekt/internal/platform/metrics"
	dErrors "edconnekt/pkg/domain-errors"
	"edconnekt/pkg/platform/tx"
	"edconnekt/pkg/requestcontext"
)

// Recorder is what the orchestrator needs from the audit recorder.
type Recorder interface {
	Record(ctx context.Context, draft audit.Draft) (audit.Record, error)
}

// Outcome is what a domain mutation reports back for auditing and events.
type Outcome struct {
	// EntityID identifies the entity the mutation touched.
	EntityID string
	// Payload is an optional schema-free document stored with the audit
	// record (changed fields, new status, ...).
	Payload map[string]any
}

// Request describes one mutating operation.
type Request struct {
	// RequiredRoles is the endpoint's role set, any-of semantics. Empty
	// allows every authenticated principal.
	RequiredRoles []string
	// EntityType and Operation tag the audit record.
	EntityType string
	Operation  audit.Operation
	// Motive is the human-readable reason recorded with the change. Threaded
	// explicitly; never smuggled through entity fields.
	Motive string
	// Mutate performs the domain state change. It runs inside the
	// transaction scope: returning an error rolls everything back.
	Mutate func(ctx context.Context) (Outcome, error)
	// Event optionally builds the domain event published after commit.
	Event func(outcome Outcome) *events.DomainEvent
}

// Orchestrator runs mutation requests. One instance per service.
type Orchestrator struct {
	service   string
	tx        tx.Runner
	recorder  Recorder
	publisher events.Publisher
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(o *Orchestrator)

func WithLogger(logger *slog.Logger) Option {
	return func(o *Orchestrator) { o.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(o *Orchestrator) { o.metrics = m }
}

func New(service string, runner tx.Runner, recorder Recorder, publisher events.Publisher, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		service:   service,
		tx:        runner,
		recorder:  recorder,
		publisher: publisher,
		logger:    slog.Default(),
	}
	if o.publisher == nil {
		o.publisher = events.NopPublisher{}
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run executes the request. Terminal on first failure:
//
//  1. principal must be present (authentication ran in middleware)
//  2. principal must satisfy RequiredRoles; no audit record, no event
//  3. Mutate runs; a domain error rolls back, leaving no audit record and
//     no event
//  4. the audit record is written in the same transaction; failure rolls
//     the mutation back and surfaces as a persistence error
//  5. after commit the event is published best-effort
func (o *Orchestrator) Run(ctx context.Context, req Request) error {
	p, ok := requestcontext.Principal(ctx)
	if !ok {
		return o.reject(dErrors.New(dErrors.CodeUnauthenticated, "no authenticated principal"))
	}

	if !authz.Allowed(p, req.RequiredRoles) {
		o.logger.WarnContext(ctx, "mutation forbidden",
			"subject", p.SubjectID,
			"entity_type", req.EntityType,
			"operation", string(req.Operation),
			"request_id", requestcontext.RequestID(ctx),
		)
		return o.reject(dErrors.New(dErrors.CodeForbidden, "missing required role"))
	}

	var outcome Outcome
	err := o.tx.RunInTx(ctx, func(txCtx context.Context) error {
		out, err := req.Mutate(txCtx)
		if err != nil {
			return err
		}
		outcome = out

		_, err = o.recorder.Record(txCtx, audit.Draft{
			Service:        o.service,
			EntityType:     req.EntityType,
			EntityID:       out.EntityID,
			Operation:      req.Operation,
			ActorSubjectID: p.SubjectID,
			ActorLabel:     p.DisplayLabel,
			Motive:         req.Motive,
			Payload:        out.Payload,
		})
		if err != nil {
			if o.metrics != nil {
				o.metrics.AuditWriteFailures.Inc()
			}
			o.logger.ErrorContext(ctx, "audit write failed, rolling back mutation",
				"entity_type", req.EntityType,
				"entity_id", out.EntityID,
				"operation", string(req.Operation),
				"error", err,
				"request_id", requestcontext.RequestID(ctx),
			)
			return err
		}
		return nil
	})
	if err != nil {
		return o.reject(err)
	}

	// The transaction has committed; from here nothing may fail the request.
	if req.Event != nil {
		if ev := req.Event(outcome); ev != nil {
			if ev.OccurredAt.IsZero() {
				ev.OccurredAt = requestcontext.Now(ctx)
			}
			o.publisher.Publish(ctx, *ev)
		}
	}

	if o.metrics != nil {
		o.metrics.MutationsCommitted.WithLabelValues(req.EntityType, string(req.Operation)).Inc()
	}
	return nil
}

func (o *Orchestrator) reject(err error) error {
	if o.metrics != nil {
		o.metrics.MutationsRejected.WithLabelValues(string(dErrors.CodeOf(err))).Inc()
	}
	return err
}
