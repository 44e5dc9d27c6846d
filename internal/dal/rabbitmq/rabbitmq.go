package rabbitmq

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/gpustore/backend/internal/service/models/events"
	"github.com/streadway/amqp"
)

// Client represents a RabbitMQ client.
type Client struct {
	conn    *amqp.Connection
	channel *amqp.Channel
}

// Channel returns the underlying AMQP channel.
func (r *Client) Channel() *amqp.Channel {
	return r.channel
}

// Connection returns the underlying AMQP connection.
func (r *Client) Connection() *amqp.Connection {
	return r.conn
}

// Close closes the channel and connection for graceful shutdown.
func (r *Client) Close() error {
	if r.channel != nil {
		if err := r.channel.Close(); err != nil {
			return err
		}
	}
	if r.conn != nil {
		return r.conn.Close()
	}

	return nil
}

// MustNewClient creates a new RabbitMQ client and declares the order
// pipeline topology.
func MustNewClient() *Client {
	connStr := fmt.Sprintf(
		"amqp://%s:%s@%s:5672/",
		os.Getenv("RABBITMQ_DEFAULT_USER"),
		os.Getenv("RABBITMQ_DEFAULT_PASS"),
		os.Getenv("RABBITMQ_HOST"),
	)

	conn, err := amqp.Dial(connStr)
	if err != nil {
		panic(fmt.Sprintf("Failed to connect to RabbitMQ: %v", err))
	}

	channel, err := conn.Channel()
	if err != nil {
		if err := conn.Close(); err != nil {
			panic(fmt.Sprintf("Failed to close a connection: %v", err))
		}
		panic(fmt.Sprintf("Failed to open a channel: %v", err))
	}

	client := &Client{
		conn:    conn,
		channel: channel,
	}

	if err := client.declareTopology(); err != nil {
		panic(fmt.Sprintf("Failed to declare RabbitMQ topology: %v", err))
	}

	slog.Info("RabbitMQ connected")

	return client
}

// declareTopology sets up the orders exchange, its queues, the dead-letter
// queue, and the bindings. Declarations are idempotent on the broker side.
func (c *Client) declareTopology() error {
	if err := c.channel.ExchangeDeclare(
		events.ExchangeName,
		"direct",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		return fmt.Errorf("declare exchange: %w", err)
	}

	if _, err := c.channel.QueueDeclare(events.DeadLetterQueue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("declare dlq: %w", err)
	}

	dlqArgs := amqp.Table{
		"x-dead-letter-exchange":    "",
		"x-dead-letter-routing-key": events.DeadLetterQueue,
	}

	bindings := []struct {
		queue      string
		routingKey string
	}{
		{events.CreatedQueue, events.RoutingKeyCreated},
		{events.CompletedQueue, events.RoutingKeyCompleted},
		{events.ExpiredQueue, events.RoutingKeyExpired},
	}

	for _, b := range bindings {
		if _, err := c.channel.QueueDeclare(b.queue, true, false, false, false, dlqArgs); err != nil {
			return fmt.Errorf("declare queue %s: %w", b.queue, err)
		}
		if err := c.channel.QueueBind(b.queue, b.routingKey, events.ExchangeName, false, nil); err != nil {
			return fmt.Errorf("bind queue %s: %w", b.queue, err)
		}
	}

	return nil
}

// ConsumeConfig holds parameters for starting a consumer.
type ConsumeConfig struct {
	Queue     string
	Consumer  string
	AutoAck   bool
	Exclusive bool
	NoLocal   bool
	NoWait    bool
}

// Consume starts delivering messages from the given queue.
func (c *Client) Consume(cfg ConsumeConfig) (<-chan amqp.Delivery, error) {
	return c.channel.Consume(
		cfg.Queue,
		cfg.Consumer,
		cfg.AutoAck,
		cfg.Exclusive,
		cfg.NoLocal,
		cfg.NoWait,
		nil,
	)
}
