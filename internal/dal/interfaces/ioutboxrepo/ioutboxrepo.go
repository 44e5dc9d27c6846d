package ioutboxrepo

import (
	"context"
	"time"

	"github.com/gpustore/backend/internal/service/models/outbox"
)

// IOutboxRepository is the staging store for domain events awaiting
// publication to RabbitMQ.
type IOutboxRepository interface {
	Insert(ctx context.Context, msg outbox.Message) error
	GetPendingMessages(ctx context.Context, limit int) ([]outbox.Message, error)
	UpdateRetry(ctx context.Context, id int64, retryCount int, lastError string, nextRetryAt time.Time) error
	Delete(ctx context.Context, id int64) error
}
