package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"github.com/gpustore/backend/internal/dal/rabbitmq"
	"github.com/gpustore/backend/internal/service/errs"
	"github.com/gpustore/backend/internal/service/models/events"
	"github.com/spf13/viper"
	"github.com/streadway/amqp"
	"go.opentelemetry.io/otel"
	"golang.org/x/sync/errgroup"
)

// service represents the service layer interface.
type service interface {
	ProcessOrderCreated(ctx context.Context, evt events.OrderCreated) error
}

// Consumer feeds order.created deliveries to the fulfillment service.
//
// Acknowledgement policy: ack after successful local processing; nack with
// requeue on transient infrastructure errors so the broker redelivers;
// nack without requeue (dead-letter) on poison messages and business
// failures that redelivery cannot fix.
type Consumer struct {
	client  *rabbitmq.Client
	service service
	queue   string
	stop    chan struct{}
	done    chan struct{}
}

// NewConsumer creates a new Consumer on the orders.created queue.
func NewConsumer(client *rabbitmq.Client, service service) *Consumer {
	return &Consumer{
		client:  client,
		service: service,
		queue:   events.CreatedQueue,
		stop:    make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Run starts consuming messages from RabbitMQ.
func (c *Consumer) Run(ctx context.Context) error {
	consumerTag := viper.GetString("rabbitmq.consumer_tag")
	if consumerTag == "" {
		consumerTag = "fulfillment-worker"
	}

	msgs, err := c.client.Consume(rabbitmq.ConsumeConfig{
		Queue:    c.queue,
		Consumer: consumerTag,
	})
	if err != nil {
		return err
	}

	concurrency := viper.GetInt("rabbitmq.consumer_concurrency")
	if concurrency == 0 {
		concurrency = 10
	}

	slog.Info("Consumer started", "queue", c.queue, "consumer_tag", consumerTag, "concurrency", concurrency)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)

	go func() {
		for {
			select {
			case <-c.stop:
				slog.Info("Stopping consumer")
				close(c.done)

				return
			case msg, ok := <-msgs:
				if !ok {
					slog.Info("Message channel closed")
					close(c.done)

					return
				}

				g.Go(func() error {
					c.processMessage(gctx, msg)

					return nil
				})
			}
		}
	}()

	<-c.done
	if err := g.Wait(); err != nil {
		slog.Error("Error processing messages", "error", err)
	}

	return nil
}

// processMessage handles a single delivery.
func (c *Consumer) processMessage(ctx context.Context, msg amqp.Delivery) {
	ctx, span := otel.Tracer("fulfillment").Start(ctx, "Consumer.processMessage")
	defer span.End()

	slog.Debug("Received message", "delivery_tag", msg.DeliveryTag)

	var evt events.OrderCreated
	if err := json.Unmarshal(msg.Body, &evt); err != nil {
		slog.Error("Failed to unmarshal order.created event", "error", err)
		if err := msg.Nack(false, false); err != nil {
			slog.Error("Failed to nack message", "error", err)
		}

		return
	}

	if err := c.service.ProcessOrderCreated(ctx, evt); err != nil {
		requeue := errors.Is(err, errs.ErrTransient)
		slog.Error("Failed to process order.created event",
			"order_id", evt.OrderID,
			"requeue", requeue,
			"error", err,
		)
		if err := msg.Nack(false, requeue); err != nil {
			slog.Error("Failed to nack message", "error", err)
		}

		return
	}

	if err := msg.Ack(false); err != nil {
		slog.Error("Failed to ack message", "error", err)

		return
	}

	slog.Debug("Message processed successfully", "order_id", evt.OrderID)
}

// Shutdown gracefully shuts down the consumer.
func (c *Consumer) Shutdown() error {
	slog.Info("Shutting down consumer")
	close(c.stop)

	select {
	case <-c.done:
		slog.Info("Consumer stopped successfully")
	case <-time.After(10 * time.Second):
		slog.Warn("Consumer shutdown timeout")
	}

	return nil
}
