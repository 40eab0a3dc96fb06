package event

import (
	"context"

	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
	eventport "github.com/amirhossein-jamali/mwallet/internal/domain/port/event"
	"github.com/amirhossein-jamali/mwallet/internal/infrastructure/config"
)

// NoopPublisher drops events. Used when no broker is configured or the
// configured one is unreachable at startup.
type NoopPublisher struct {
	logger coreport.Logger
}

var _ eventport.Publisher = (*NoopPublisher)(nil)

// NewNoopPublisher creates a publisher that discards events
func NewNoopPublisher(logger coreport.Logger) *NoopPublisher {
	return &NoopPublisher{logger: logger}
}

func (p *NoopPublisher) PublishPaymentEvent(ctx context.Context, evt eventport.PaymentEvent) error {
	p.logger.Debug("Payment event not published, no broker configured", map[string]any{
		"event":         evt.Topic(),
		"submission_id": evt.SubmissionID,
	})
	return nil
}

func (p *NoopPublisher) Close() error { return nil }

// NewPublisher builds the publisher selected by config. A broker that cannot
// be reached degrades to the no-op publisher instead of failing startup.
func NewPublisher(conf config.EventsConfig, logger coreport.Logger) eventport.Publisher {
	switch conf.Driver {
	case config.EventsKafka:
		p, err := NewKafkaPublisher(conf.Kafka.Brokers, conf.Kafka.Topic, logger)
		if err == nil {
			return p
		}
		logger.Warn("Kafka unavailable, payment events disabled", map[string]any{"error": err.Error()})
	case config.EventsRabbitMQ:
		p, err := NewRabbitMQPublisher(conf.RabbitMQ.URL, conf.RabbitMQ.Exchange, logger)
		if err == nil {
			return p
		}
		logger.Warn("RabbitMQ unavailable, payment events disabled", map[string]any{"error": err.Error()})
	}
	return NewNoopPublisher(logger)
}
