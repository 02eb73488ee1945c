package events

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"github.com/twmb/franz-go/pkg/kgo"

	"edconnekt/internal/platform/metrics"
)

// KafkaPublisher publishes events to Kafka. The exchange name maps to the
// topic and the routing key becomes the record key, so subscribers keep the
// same filtering model they had on the message broker.
type KafkaPublisher struct {
	client  *kgo.Client
	logger  *slog.Logger
	metrics *metrics.Metrics
	timeout time.Duration
}

const defaultPublishTimeout = 2 * time.Second

func NewKafkaPublisher(brokers []string, logger *slog.Logger, m *metrics.Metrics) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.AllowAutoTopicCreation(),
	)
	if err != nil {
		return nil, err
	}
	return &KafkaPublisher{
		client:  client,
		logger:  logger,
		metrics: m,
		timeout: defaultPublishTimeout,
	}, nil
}

// Publish delivers one event, bounded by the publish timeout. Failures are
// counted and logged, never returned: by the time an event exists its
// mutation has committed, and the response must not depend on the broker.
func (p *KafkaPublisher) Publish(ctx context.Context, event DomainEvent) {
	body, err := json.Marshal(event.envelope())
	if err != nil {
		p.logger.ErrorContext(ctx, "event dropped - marshal failed",
			"event_type", event.Type,
			"error", err,
		)
		p.countError()
		return
	}

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	record := &kgo.Record{
		Topic: event.Exchange,
		Key:   []byte(event.RoutingKey),
		Value: body,
	}
	if err := p.client.ProduceSync(ctx, record).FirstErr(); err != nil {
		p.logger.WarnContext(ctx, "event dropped - broker publish failed",
			"event_type", event.Type,
			"routing_key", event.RoutingKey,
			"error", err,
		)
		p.countError()
		return
	}

	if p.metrics != nil {
		p.metrics.EventsPublished.Inc()
	}
}

func (p *KafkaPublisher) countError() {
	if p.metrics != nil {
		p.metrics.EventPublishErrors.Inc()
	}
}

// Close flushes buffered records and releases the client.
func (p *KafkaPublisher) Close() {
	p.client.Close()
}

var _ Publisher = (*KafkaPublisher)(nil)
