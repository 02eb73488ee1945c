package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application.
type Metrics struct {
	MutationsCommitted *prometheus.CounterVec
	MutationsRejected  *prometheus.CounterVec
	AuditWriteFailures prometheus.Counter
	EventsPublished    prometheus.Counter
	EventPublishErrors prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		MutationsCommitted: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "edconnekt_mutations_committed_total",
			Help: "Mutations that committed together with their audit record",
		}, []string{"entity_type", "operation"}),
		MutationsRejected: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "edconnekt_mutations_rejected_total",
			Help: "Mutation requests terminated before commit, by error code",
		}, []string{"code"}),
		AuditWriteFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "edconnekt_audit_write_failures_total",
			Help: "Audit writes that failed and rolled back their mutation",
		}),
		EventsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "edconnekt_events_published_total",
			Help: "Domain events handed to the broker",
		}),
		EventPublishErrors: promauto.NewCounter(prometheus.CounterOpts{
			Name: "edconnekt_event_publish_errors_total",
			Help: "Best-effort event publications that failed and were dropped",
		}),
	}
}
