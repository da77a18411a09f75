// Package kafka publishes answer events to a Kafka topic.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/webtechie/docschat/pkg/eventstream"
)

// Publisher writes answer events to a Kafka topic, keyed by action ID so
// events for the same action land on the same partition.
type Publisher struct {
	writer *kafka.Writer
	logger *zap.Logger
}

// NewPublisher creates a Kafka publisher for the given brokers and topic.
func NewPublisher(brokers []string, topic string, logger *zap.Logger) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(brokers...),
			Topic:    topic,
			Balancer: &kafka.Hash{},
		},
		logger: logger,
	}
}

// PublishAnswer marshals the event and writes it to the topic.
func (p *Publisher) PublishAnswer(ctx context.Context, event *eventstream.AnswerCompletedEvent) error {
	if event == nil {
		return eventstream.ErrNilAnswerEvent
	}

	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("marshaling answer event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.ActionID),
		Value: payload,
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("writing answer event: %w", err)
	}

	p.logger.Debug("published answer event",
		zap.String("event_id", event.EventID),
		zap.String("action_id", event.ActionID),
	)

	return nil
}

// Close flushes and closes the underlying writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
