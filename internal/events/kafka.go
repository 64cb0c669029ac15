package events

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Veraticus/smartspend/internal/common"
	"github.com/Veraticus/smartspend/internal/model"
	"github.com/segmentio/kafka-go"
)

// DefaultTopic is the Kafka topic for alert events.
const DefaultTopic = "budget_alerts"

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes alert events to a Kafka topic keyed by category.
type KafkaPublisher struct {
	writer messageWriter
	logger *slog.Logger
	topic  string
}

// NewKafkaPublisher creates a publisher for brokers.
func NewKafkaPublisher(brokers []string, topic string, logger *slog.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, common.MissingConfig("kafka", "brokers")
	}
	if topic == "" {
		topic = DefaultTopic
	}
	writer := &kafka.Writer{
		Addr:     kafka.TCP(brokers...),
		Topic:    topic,
		Balancer: &kafka.LeastBytes{},
	}
	return newKafkaPublisher(writer, topic, logger), nil
}

func newKafkaPublisher(writer messageWriter, topic string, logger *slog.Logger) *KafkaPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &KafkaPublisher{writer: writer, topic: topic, logger: logger}
}

// PublishAlerts implements service.AlertPublisher. All events of a run are
// written in one batch.
func (p *KafkaPublisher) PublishAlerts(ctx context.Context, snapshot *model.FinancialSnapshot) error {
	events := EventsFromSnapshot(snapshot)
	if len(events) == 0 {
		return nil
	}

	msgs := make([]kafka.Message, 0, len(events))
	for _, event := range events {
		data, err := event.ToJSON()
		if err != nil {
			return fmt.Errorf("marshal alert event: %w", err)
		}
		msgs = append(msgs, kafka.Message{
			Key:   []byte(event.Category),
			Value: data,
			Time:  event.OccurredAt,
		})
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("write alert events to %s: %w", p.topic, err)
	}

	p.logger.InfoContext(ctx, "Published budget alerts", "topic", p.topic, "count", len(msgs))
	return nil
}

// Close flushes and closes the writer.
func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}
