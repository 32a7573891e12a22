package repository

import (
	"context"

	"FinCast/internal/domain/models"
	pkgkafka "FinCast/pkg/kafka"
)

// KafkaEventPublisher fans engine lifecycle events out on the events
// topic, keyed by symbol so per-symbol ordering survives partitioning.
type KafkaEventPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaEventPublisher(producer *pkgkafka.Producer, topic string) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer, topic: topic}
}

func (p *KafkaEventPublisher) PublishEvent(ctx context.Context, ev models.EngineEvent) error {
	return p.producer.Publish(ctx, p.topic, []byte(ev.Symbol), ev)
}

func (p *KafkaEventPublisher) Close() error {
	if p.producer != nil {
		return p.producer.Close()
	}
	return nil
}

// LogPublisher adapts the producer to the logger collector's Publisher
// interface so aggregated problem reports ship on the logs topic.
type LogPublisher struct {
	producer *pkgkafka.Producer
}

func NewLogPublisher(producer *pkgkafka.Producer) *LogPublisher {
	return &LogPublisher{producer: producer}
}

func (p *LogPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}
