package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/gpustore/backend/internal/service/errs"
	"github.com/gpustore/backend/internal/service/models/events"
	"github.com/shopspring/decimal"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeAcknowledger struct {
	acks    int
	nacks   int
	requeue bool
}

func (a *fakeAcknowledger) Ack(tag uint64, multiple bool) error {
	a.acks++

	return nil
}

func (a *fakeAcknowledger) Nack(tag uint64, multiple, requeue bool) error {
	a.nacks++
	a.requeue = requeue

	return nil
}

func (a *fakeAcknowledger) Reject(tag uint64, requeue bool) error {
	return nil
}

type fakeService struct {
	err  error
	seen []events.OrderCreated
}

func (s *fakeService) ProcessOrderCreated(ctx context.Context, evt events.OrderCreated) error {
	s.seen = append(s.seen, evt)

	return s.err
}

func delivery(t *testing.T, ack *fakeAcknowledger, body []byte) amqp.Delivery {
	t.Helper()

	return amqp.Delivery{
		Acknowledger: ack,
		DeliveryTag:  1,
		Body:         body,
	}
}

func TestProcessMessage_Ack(t *testing.T) {
	svc := &fakeService{}
	c := &Consumer{service: svc, queue: events.CreatedQueue}
	ack := &fakeAcknowledger{}

	evt := events.NewOrderCreated(5, 2, decimal.NewFromInt(99))
	body, err := json.Marshal(evt)
	require.NoError(t, err)

	c.processMessage(context.Background(), delivery(t, ack, body))

	assert.Equal(t, 1, ack.acks)
	assert.Zero(t, ack.nacks)
	require.Len(t, svc.seen, 1)
	assert.Equal(t, evt.OrderID, svc.seen[0].OrderID)
}

func TestProcessMessage_PoisonMessage(t *testing.T) {
	svc := &fakeService{}
	c := &Consumer{service: svc, queue: events.CreatedQueue}
	ack := &fakeAcknowledger{}

	c.processMessage(context.Background(), delivery(t, ack, []byte("not json")))

	assert.Zero(t, ack.acks)
	assert.Equal(t, 1, ack.nacks)
	assert.False(t, ack.requeue, "malformed payloads dead-letter, they never requeue")
	assert.Empty(t, svc.seen)
}

func TestProcessMessage_TransientErrorRequeues(t *testing.T) {
	svc := &fakeService{err: errs.Transient(errors.New("db unavailable"))}
	c := &Consumer{service: svc, queue: events.CreatedQueue}
	ack := &fakeAcknowledger{}

	body, err := json.Marshal(events.NewOrderCreated(5, 2, decimal.NewFromInt(99)))
	require.NoError(t, err)

	c.processMessage(context.Background(), delivery(t, ack, body))

	assert.Equal(t, 1, ack.nacks)
	assert.True(t, ack.requeue)
}

func TestProcessMessage_BusinessErrorDeadLetters(t *testing.T) {
	svc := &fakeService{err: errs.NotFound("order", 5)}
	c := &Consumer{service: svc, queue: events.CreatedQueue}
	ack := &fakeAcknowledger{}

	body, err := json.Marshal(events.NewOrderCreated(5, 2, decimal.NewFromInt(99)))
	require.NoError(t, err)

	c.processMessage(context.Background(), delivery(t, ack, body))

	assert.Equal(t, 1, ack.nacks)
	assert.False(t, ack.requeue)
}
