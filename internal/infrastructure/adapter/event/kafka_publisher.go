// Package event delivers payment events to Kafka or RabbitMQ. Delivery is
// best effort: callers log failures and never undo a payment because of them.
package event

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
	eventport "github.com/amirhossein-jamali/mwallet/internal/domain/port/event"
)

// messageWriter is the part of kafka.Writer the publisher needs
type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes payment events to one topic, keyed by paying user so
// the events of a user stay ordered within a partition
type KafkaPublisher struct {
	writer messageWriter
	topic  string
	logger coreport.Logger
}

var _ eventport.Publisher = (*KafkaPublisher)(nil)

// NewKafkaPublisher creates a producer for the given brokers
func NewKafkaPublisher(brokers []string, topic string, logger coreport.Logger) (*KafkaPublisher, error) {
	if len(brokers) == 0 {
		return nil, fmt.Errorf("kafka brokers are required")
	}
	if topic == "" {
		return nil, fmt.Errorf("kafka topic is required")
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: true,
		WriteTimeout:           5 * time.Second,
	}

	logger.Info("Kafka producer initialized", map[string]any{
		"brokers": brokers,
		"topic":   topic,
	})
	return newKafkaPublisher(writer, topic, logger), nil
}

func newKafkaPublisher(writer messageWriter, topic string, logger coreport.Logger) *KafkaPublisher {
	return &KafkaPublisher{writer: writer, topic: topic, logger: logger}
}

// PublishPaymentEvent writes the event with its routing key as a header
func (p *KafkaPublisher) PublishPaymentEvent(ctx context.Context, evt eventport.PaymentEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode payment event: %w", err)
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(evt.UserID),
		Value: body,
		Time:  evt.OccurredAt,
		Headers: []kafka.Header{
			{Key: "event-type", Value: []byte(evt.Topic())},
		},
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("Failed to produce payment event", map[string]any{
			"topic":         p.topic,
			"event":         evt.Topic(),
			"submission_id": evt.SubmissionID,
			"error":         err.Error(),
		})
		return fmt.Errorf("failed to produce message: %w", err)
	}

	p.logger.Debug("Produced payment event", map[string]any{
		"topic":         p.topic,
		"event":         evt.Topic(),
		"submission_id": evt.SubmissionID,
	})
	return nil
}

// Close flushes and closes the writer
func (p *KafkaPublisher) Close() error {
	if err := p.writer.Close(); err != nil {
		return fmt.Errorf("failed to close Kafka producer: %w", err)
	}
	p.logger.Info("Kafka producer closed", nil)
	return nil
}
