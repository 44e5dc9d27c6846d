package eventbus

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/gpustore/backend/internal/service/models/events"
	"github.com/gpustore/backend/internal/testutil/fakestore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutboxPublisher_Publish(t *testing.T) {
	store := fakestore.New()
	publisher := NewOutboxPublisher(store.OutboxRepository())

	evt := events.NewOrderCreated(7, 3, decimal.NewFromInt(150))
	require.NoError(t, publisher.Publish(context.Background(), events.RoutingKeyCreated, evt))

	require.Len(t, store.Outbox, 1)
	msg := store.Outbox[0]
	assert.Equal(t, events.ExchangeName, msg.ExchangeName)
	assert.Equal(t, events.RoutingKeyCreated, msg.RoutingKey)
	assert.Equal(t, "application/json", msg.ContentType)
	assert.Equal(t, 10, msg.MaxRetries)
	assert.Zero(t, msg.RetryCount)

	var decoded events.OrderCreated
	require.NoError(t, json.Unmarshal(msg.Payload, &decoded))
	assert.Equal(t, evt.OrderID, decoded.OrderID)
	assert.Equal(t, evt.UserID, decoded.UserID)
	assert.True(t, decoded.Total.Equal(evt.Total))
	assert.Equal(t, evt.EventID, decoded.EventID)
}

func TestOutboxPublisher_UnmarshalableEvent(t *testing.T) {
	store := fakestore.New()
	publisher := NewOutboxPublisher(store.OutboxRepository())

	err := publisher.Publish(context.Background(), events.RoutingKeyCreated, func() {})
	require.Error(t, err)
	assert.Empty(t, store.Outbox)
}
