package event

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/rabbitmq/amqp091-go"

	coreport "github.com/amirhossein-jamali/mwallet/internal/domain/port/core"
	eventport "github.com/amirhossein-jamali/mwallet/internal/domain/port/event"
)

// amqpChannel is the part of amqp091.Channel the publisher needs
type amqpChannel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp091.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
	Close() error
}

// RabbitMQPublisher publishes payment events to a durable topic exchange with
// routing keys payment.completed, payment.failed and payment.cancelled
type RabbitMQPublisher struct {
	mu          sync.Mutex
	conn        *amqp091.Connection
	channel     amqpChannel
	openChannel func() (amqpChannel, error)
	exchange    string
	declared    bool
	logger      coreport.Logger
}

var _ eventport.Publisher = (*RabbitMQPublisher)(nil)

// NewRabbitMQPublisher dials the broker and opens a channel
func NewRabbitMQPublisher(amqpURL, exchange string, logger coreport.Logger) (*RabbitMQPublisher, error) {
	cleanURL, err := sanitizeAMQPURL(amqpURL)
	if err != nil {
		return nil, err
	}
	if exchange == "" {
		return nil, fmt.Errorf("rabbitmq exchange is required")
	}

	conn, err := amqp091.DialConfig(cleanURL, amqp091.Config{Dial: amqp091.DefaultDial(10 * time.Second)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	open := func() (amqpChannel, error) { return conn.Channel() }
	ch, err := open()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open rabbitmq channel: %w", err)
	}

	logger.Info("RabbitMQ publisher initialized", map[string]any{"exchange": exchange})
	p := newRabbitMQPublisher(ch, open, exchange, logger)
	p.conn = conn
	return p, nil
}

func newRabbitMQPublisher(ch amqpChannel, open func() (amqpChannel, error), exchange string, logger coreport.Logger) *RabbitMQPublisher {
	return &RabbitMQPublisher{channel: ch, openChannel: open, exchange: exchange, logger: logger}
}

// PublishPaymentEvent publishes the event, reopening the channel once if the
// broker closed it
func (p *RabbitMQPublisher) PublishPaymentEvent(ctx context.Context, evt eventport.PaymentEvent) error {
	body, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode payment event: %w", err)
	}

	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		MessageId:    evt.SubmissionID,
		Timestamp:    evt.OccurredAt,
		Body:         body,
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.publish(ctx, evt.Topic(), msg)
	if err == nil {
		return nil
	}

	p.logger.Warn("Publish failed, reopening channel", map[string]any{
		"exchange":    p.exchange,
		"routing_key": evt.Topic(),
		"error":       err.Error(),
	})
	if reopenErr := p.reopen(); reopenErr != nil {
		return errors.Join(err, reopenErr)
	}
	if err := p.publish(ctx, evt.Topic(), msg); err != nil {
		p.logger.Error("Failed to publish payment event", map[string]any{
			"exchange":      p.exchange,
			"routing_key":   evt.Topic(),
			"submission_id": evt.SubmissionID,
			"error":         err.Error(),
		})
		return fmt.Errorf("failed to publish payment event: %w", err)
	}
	return nil
}

func (p *RabbitMQPublisher) publish(ctx context.Context, routingKey string, msg amqp091.Publishing) error {
	if !p.declared {
		if err := p.channel.ExchangeDeclare(p.exchange, "topic", true, false, false, false, nil); err != nil {
			return fmt.Errorf("exchange declare failed: %w", err)
		}
		p.declared = true
	}
	return p.channel.PublishWithContext(ctx, p.exchange, routingKey, false, false, msg)
}

func (p *RabbitMQPublisher) reopen() error {
	if p.openChannel == nil {
		return fmt.Errorf("channel cannot be reopened")
	}
	ch, err := p.openChannel()
	if err != nil {
		return fmt.Errorf("failed to reopen rabbitmq channel: %w", err)
	}
	_ = p.channel.Close()
	p.channel = ch
	p.declared = false
	return nil
}

// Close closes the channel and the connection
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	var errs []error
	if p.channel != nil {
		errs = append(errs, p.channel.Close())
	}
	if p.conn != nil {
		errs = append(errs, p.conn.Close())
	}
	p.logger.Info("RabbitMQ publisher closed", nil)
	return errors.Join(errs...)
}

func sanitizeAMQPURL(raw string) (string, error) {
	clean := strings.Trim(strings.TrimSpace(raw), "\"'")
	u, err := url.Parse(clean)
	if err != nil {
		return "", err
	}
	if u.Scheme != "amqp" && u.Scheme != "amqps" {
		return "", errors.New("AMQP scheme must be either 'amqp://' or 'amqps://'")
	}
	return clean, nil
}
