package rabbitmq

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	amqp "github.com/streadway/amqp"
	"go.uber.org/zap"
)

// ErrPermanent marks a handler failure that must not be redelivered.
var ErrPermanent = errors.New("permanent message failure")

// Config holds RabbitMQ connection details.
type Config struct {
	URL      string
	Exchange string // durable topic exchange for order events
	Queue    string // queue consumed by this process
}

// Handler processes one delivery. Returning nil acks the message.
type Handler func(ctx context.Context, routingKey string, body []byte) error

// Client publishes JSON events to a topic exchange and consumes them.
type Client struct {
	conn     *amqp.Connection
	mu       sync.Mutex // guards channel; amqp channels are not safe for concurrent publishes
	channel  *amqp.Channel
	exchange string
	queue    string
	log      *zap.Logger
}

// NewClient connects to RabbitMQ and declares the exchange.
func NewClient(cfg Config, log *zap.Logger) (*Client, error) {
	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	err = ch.ExchangeDeclare(
		cfg.Exchange, // name
		"topic",      // kind
		true,         // durable
		false,        // auto-deleted
		false,        // internal
		false,        // no-wait
		nil,          // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare exchange %s: %w", cfg.Exchange, err)
	}

	log.Info("rabbitmq connected", zap.String("exchange", cfg.Exchange))
	return &Client{conn: conn, channel: ch, exchange: cfg.Exchange, queue: cfg.Queue, log: log}, nil
}

// Close closes the RabbitMQ channel and connection.
func (c *Client) Close() error {
	var errs []error
	if c.channel != nil {
		if err := c.channel.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close channel: %w", err))
		}
	}
	if c.conn != nil {
		if err := c.conn.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close connection: %w", err))
		}
	}
	return errors.Join(errs...)
}

// Publish marshals payload to JSON and publishes it with routingKey.
func (c *Client) Publish(ctx context.Context, routingKey string, payload any) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s event: %w", routingKey, err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.channel == nil {
		return errors.New("rabbitmq channel is not available")
	}
	err = c.channel.Publish(
		c.exchange, // exchange
		routingKey, // routing key
		false,      // mandatory
		false,      // immediate
		amqp.Publishing{
			ContentType:  "application/json",
			Body:         body,
			DeliveryMode: amqp.Persistent,
			Timestamp:    time.Now(),
		})
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", routingKey, err)
	}
	return nil
}

// Consume binds the client's queue to bindingKeys and runs handler for each
// delivery until ctx is cancelled or the channel closes.
func (c *Client) Consume(ctx context.Context, bindingKeys []string, handler Handler) error {
	c.mu.Lock()
	ch := c.channel
	c.mu.Unlock()
	if ch == nil {
		return errors.New("rabbitmq channel is not available for consumption")
	}

	queue, err := ch.QueueDeclare(
		c.queue, // name
		true,    // durable
		false,   // delete when unused
		false,   // exclusive
		false,   // no-wait
		nil,     // arguments
	)
	if err != nil {
		return fmt.Errorf("failed to declare queue %s: %w", c.queue, err)
	}
	for _, key := range bindingKeys {
		if err := ch.QueueBind(queue.Name, key, c.exchange, false, nil); err != nil {
			return fmt.Errorf("failed to bind %s to %s: %w", queue.Name, key, err)
		}
	}
	if err := ch.Qos(10, 0, false); err != nil {
		return fmt.Errorf("failed to set qos: %w", err)
	}

	msgs, err := ch.Consume(
		queue.Name, // queue
		"",         // consumer tag
		false,      // auto-ack
		false,      // exclusive
		false,      // no-local
		false,      // no-wait
		nil,        // args
	)
	if err != nil {
		return fmt.Errorf("failed to register consumer: %w", err)
	}

	c.log.Info("consuming order events", zap.String("queue", queue.Name), zap.Strings("keys", bindingKeys))
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-msgs:
			if !ok {
				return errors.New("rabbitmq delivery channel closed")
			}
			process(ctx, c.log, msg, handler)
		}
	}
}

// process acks successful deliveries. Failed ones are requeued once and then
// dropped; ErrPermanent failures are dropped immediately.
func process(ctx context.Context, log *zap.Logger, msg amqp.Delivery, handler Handler) {
	err := handler(ctx, msg.RoutingKey, msg.Body)
	if err == nil {
		if ackErr := msg.Ack(false); ackErr != nil {
			log.Warn("ack failed", zap.Uint64("tag", msg.DeliveryTag), zap.Error(ackErr))
		}
		return
	}

	requeue := !msg.Redelivered && !errors.Is(err, ErrPermanent)
	log.Error("event handler failed",
		zap.String("routing_key", msg.RoutingKey),
		zap.Uint64("tag", msg.DeliveryTag),
		zap.Bool("requeue", requeue),
		zap.Error(err),
	)
	if nackErr := msg.Nack(false, requeue); nackErr != nil {
		log.Warn("nack failed", zap.Uint64("tag", msg.DeliveryTag), zap.Error(nackErr))
	}
}
