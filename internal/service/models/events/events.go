package events

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// RabbitMQ topology for the order pipeline.
//
// Exchange orders.exchange (direct) routes:
//   - order.created   -> orders.created.queue   (fulfillment worker)
//   - order.completed -> orders.completed.queue (downstream consumers)
//   - order.expired   -> orders.expired.queue   (downstream consumers)
//
// Failed deliveries dead-letter into orders.dlq.
const (
	ExchangeName = "orders.exchange"

	CreatedQueue    = "orders.created.queue"
	CompletedQueue  = "orders.completed.queue"
	ExpiredQueue    = "orders.expired.queue"
	DeadLetterQueue = "orders.dlq"

	RoutingKeyCreated   = "order.created"
	RoutingKeyCompleted = "order.completed"
	RoutingKeyExpired   = "order.expired"
)

// OrderCreated is published after an order row is durably committed with
// status PENDING. It triggers asynchronous fulfillment.
type OrderCreated struct {
	EventID   uuid.UUID       `json:"eventId"`
	OrderID   int64           `json:"orderId"`
	UserID    int64           `json:"userId"`
	Total     decimal.Decimal `json:"total"`
	Timestamp time.Time       `json:"timestamp"`
}

// OrderCompleted is published when fulfillment succeeds.
type OrderCompleted struct {
	EventID   uuid.UUID       `json:"eventId"`
	OrderID   int64           `json:"orderId"`
	UserID    int64           `json:"userId"`
	Total     decimal.Decimal `json:"total"`
	Timestamp time.Time       `json:"timestamp"`
}

// OrderExpired is published when the reaper force-expires a stale order.
type OrderExpired struct {
	EventID   uuid.UUID `json:"eventId"`
	OrderID   int64     `json:"orderId"`
	UserID    int64     `json:"userId"`
	Reason    string    `json:"reason"`
	Timestamp time.Time `json:"timestamp"`
}

func NewOrderCreated(orderID, userID int64, total decimal.Decimal) OrderCreated {
	return OrderCreated{
		EventID:   uuid.New(),
		OrderID:   orderID,
		UserID:    userID,
		Total:     total,
		Timestamp: time.Now(),
	}
}

func NewOrderCompleted(orderID, userID int64, total decimal.Decimal) OrderCompleted {
	return OrderCompleted{
		EventID:   uuid.New(),
		OrderID:   orderID,
		UserID:    userID,
		Total:     total,
		Timestamp: time.Now(),
	}
}

func NewOrderExpired(orderID, userID int64, reason string) OrderExpired {
	return OrderExpired{
		EventID:   uuid.New(),
		OrderID:   orderID,
		UserID:    userID,
		Reason:    reason,
		Timestamp: time.Now(),
	}
}
