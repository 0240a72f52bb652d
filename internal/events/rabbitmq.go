package events

import (
	"context"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	apperrors "github.com/lightlink-network/plugin-lightlink/internal/errors"
)

// DefaultQueue receives transaction events when no queue is configured.
const DefaultQueue = "lightlink.transactions"

// RabbitMQConfig describes the broker connection.
type RabbitMQConfig struct {
	URL   string `json:"url" toml:"url"`
	Queue string `json:"queue" toml:"queue"`
}

// RabbitMQPublisher sends events as persistent JSON messages to a durable
// queue.
type RabbitMQPublisher struct {
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    *amqp.Channel
	queue string
}

// NewRabbitMQPublisher dials the broker and declares the queue.
func NewRabbitMQPublisher(cfg RabbitMQConfig) (*RabbitMQPublisher, error) {
	if cfg.URL == "" {
		return nil, apperrors.New(apperrors.CodeConfiguration, "rabbitmq url is required")
	}
	queue := cfg.Queue
	if queue == "" {
		queue = DefaultQueue
	}
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.CodePublishFailure, err, "connect to rabbitmq")
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, apperrors.Wrap(apperrors.CodePublishFailure, err, "open rabbitmq channel")
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		ch.Close()
		conn.Close()
		return nil, apperrors.Wrap(apperrors.CodePublishFailure, err, "declare rabbitmq queue")
	}
	return &RabbitMQPublisher{conn: conn, ch: ch, queue: queue}, nil
}

// Publish implements Publisher. Calls share one channel and are serialised.
func (p *RabbitMQPublisher) Publish(ctx context.Context, event Event) error {
	body, err := encode(event)
	if err != nil {
		return err
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch == nil {
		return apperrors.New(apperrors.CodePublishFailure, "rabbitmq publisher closed")
	}
	err = p.ch.PublishWithContext(ctx, "", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    event.ID,
		Type:         string(event.Kind),
		Timestamp:    event.OccurredAt,
		Body:         body,
	})
	if err != nil {
		return apperrors.Wrap(apperrors.CodePublishFailure, err, "publish to rabbitmq")
	}
	return nil
}

// Close closes the channel and the connection.
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.ch != nil {
		_ = p.ch.Close()
		p.ch = nil
	}
	if p.conn != nil {
		err := p.conn.Close()
		p.conn = nil
		return err
	}
	return nil
}
