package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gpustore/backend/internal/dal/interfaces/ioutboxrepo"
	"github.com/gpustore/backend/internal/service/models/events"
	"github.com/gpustore/backend/internal/service/models/outbox"
	"github.com/spf13/viper"
)

// Publisher publishes a domain event under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any) error
}

// OutboxPublisher stages events in the outbox table instead of talking to
// the broker directly. Bound to a transaction-scoped outbox repository, the
// staged event commits or rolls back together with the state change that
// produced it; the outbox relay worker performs the actual AMQP publish.
type OutboxPublisher struct {
	repo       ioutboxrepo.IOutboxRepository
	maxRetries int
}

// NewOutboxPublisher creates a publisher staging into the given repository.
func NewOutboxPublisher(repo ioutboxrepo.IOutboxRepository) *OutboxPublisher {
	maxRetries := viper.GetInt("rabbitmq.outbox.max_retries")
	if maxRetries == 0 {
		maxRetries = 10
	}

	return &OutboxPublisher{
		repo:       repo,
		maxRetries: maxRetries,
	}
}

// Publish serializes the event and stages it for the relay.
func (p *OutboxPublisher) Publish(ctx context.Context, routingKey string, event any) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event for %s: %w", routingKey, err)
	}

	now := time.Now()

	return p.repo.Insert(ctx, outbox.Message{
		ExchangeName: events.ExchangeName,
		RoutingKey:   routingKey,
		Payload:      payload,
		ContentType:  "application/json",
		MaxRetries:   p.maxRetries,
		CreatedAt:    now,
		UpdatedAt:    now,
		NextRetryAt:  now,
	})
}
