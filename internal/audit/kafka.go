package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/twmb/franz-go/pkg/kadm"
	"github.com/twmb/franz-go/pkg/kgo"

	"persondb/pkg/requestcontext"
)

// KafkaPublisher ships audit events to a Kafka topic via franz-go.
// Produce errors are logged, never surfaced: audit must not take down
// the operation it documents.
type KafkaPublisher struct {
	client *kgo.Client
	topic  string
	logger *slog.Logger
}

// NewKafkaPublisher connects to the brokers and ensures the audit
// topic exists (single partition keeps per-service ordering).
func NewKafkaPublisher(ctx context.Context, brokers []string, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	client, err := kgo.NewClient(
		kgo.SeedBrokers(brokers...),
		kgo.DefaultProduceTopic(topic),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka client: %w", err)
	}

	adm := kadm.NewClient(client)
	if _, err := adm.CreateTopic(ctx, 1, 1, nil, topic); err != nil {
		// Already-exists is the normal steady state; anything else is
		// worth a warning but not a startup failure.
		logger.WarnContext(ctx, "audit topic create", "topic", topic, "error", err)
	}

	return &KafkaPublisher{client: client, topic: topic, logger: logger}, nil
}

// Publish serializes the event and produces it asynchronously.
func (p *KafkaPublisher) Publish(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	payload, err := json.Marshal(event)
	if err != nil {
		p.logger.ErrorContext(ctx, "audit event marshal failed", "action", event.Action, "error", err)
		return
	}
	record := &kgo.Record{
		Topic: p.topic,
		Key:   []byte(event.Subject),
		Value: payload,
	}
	p.client.Produce(ctx, record, func(_ *kgo.Record, err error) {
		if err != nil {
			p.logger.Error("audit event produce failed", "action", event.Action, "error", err)
		}
	})
}

// Close flushes pending records and releases the client.
func (p *KafkaPublisher) Close() {
	p.client.Close()
}

// LogPublisher writes audit events to the structured log. It is the
// fallback sink when no brokers are configured.
type LogPublisher struct {
	Logger *slog.Logger
}

// Publish logs the event at info level.
func (p *LogPublisher) Publish(ctx context.Context, event Event) {
	if event.Timestamp.IsZero() {
		event.Timestamp = requestcontext.Now(ctx)
	}
	p.Logger.InfoContext(ctx, "audit",
		"action", event.Action,
		"actor_id", event.ActorID,
		"subject", event.Subject,
		"detail", event.Detail,
	)
}
