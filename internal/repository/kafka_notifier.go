package repository

import (
	"context"

	"CravePulse/internal/domain/models"
	drepo "CravePulse/internal/domain/repository"
	pkgkafka "CravePulse/pkg/kafka"
)

// KafkaNotifier implements Notifier by publishing notification events to a
// broker topic keyed by subject for per-subject ordering.
type KafkaNotifier struct {
	producer *pkgkafka.Producer
	topic    string
}

// NewKafkaNotifier creates a Kafka-backed notifier.
func NewKafkaNotifier(producer *pkgkafka.Producer, topic string) drepo.Notifier {
	return &KafkaNotifier{producer: producer, topic: topic}
}

func (n *KafkaNotifier) Notify(ctx context.Context, ev *models.NotificationEvent) error {
	return n.producer.Publish(ctx, n.topic, []byte(ev.SubjectID), map[string]interface{}{
		"subject_id":    ev.SubjectID,
		"window_id":     ev.WindowID,
		"probability":   ev.Probability,
		"risk":          ev.Risk,
		"model_version": ev.ModelVer,
		"emitted_at":    ev.EmittedAt.Unix(),
	})
}

// KafkaAlertPublisher adapts the producer to the logger collector's
// Publisher contract so aggregated error alerts reach the operator topic.
type KafkaAlertPublisher struct {
	producer *pkgkafka.Producer
}

// NewKafkaAlertPublisher creates the alert channel adapter.
func NewKafkaAlertPublisher(producer *pkgkafka.Producer) *KafkaAlertPublisher {
	return &KafkaAlertPublisher{producer: producer}
}

func (p *KafkaAlertPublisher) PublishMessage(ctx context.Context, topic string, payload interface{}) error {
	return p.producer.Publish(ctx, topic, nil, payload)
}
