package outbox

import (
	"time"
)

// Message is a domain event staged for publication. It is inserted in the
// same transaction as the state change that produced it, so the relay
// never publishes an event for a row that was rolled back.
type Message struct {
	ID           int64
	ExchangeName string
	RoutingKey   string
	Payload      []byte
	ContentType  string
	RetryCount   int
	MaxRetries   int
	LastError    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
	NextRetryAt  time.Time
}
