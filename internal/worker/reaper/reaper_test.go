package reaper

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/gpustore/backend/internal/service/models/events"
	"github.com/gpustore/backend/internal/service/models/order"
	"github.com/gpustore/backend/internal/testutil/fakestore"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestWorker(store *fakestore.Store, deadline time.Duration) *Worker {
	return newWorkerForTesting(
		func() unitOfWork { return store },
		time.Minute,
		deadline,
	)
}

func TestExpireStaleOrders(t *testing.T) {
	store := fakestore.New()
	deadline := 10 * time.Minute

	staleID := store.AddOrder(order.Order{
		UserID: 1, Status: order.StatusProcessing, UpdatedAt: time.Now().Add(-20 * time.Minute),
	})
	recentID := store.AddOrder(order.Order{
		UserID: 1, Status: order.StatusProcessing, UpdatedAt: time.Now().Add(-time.Minute),
	})
	pendingID := store.AddOrder(order.Order{
		UserID: 2, Status: order.StatusPending, UpdatedAt: time.Now().Add(-20 * time.Minute),
	})
	completedID := store.AddOrder(order.Order{
		UserID: 2, Status: order.StatusCompleted, UpdatedAt: time.Now().Add(-20 * time.Minute),
	})

	w := newTestWorker(store, deadline)
	w.ExpireStaleOrders(context.Background())

	assert.Equal(t, order.StatusExpired, store.Orders[staleID].Status)
	assert.Equal(t, order.StatusProcessing, store.Orders[recentID].Status, "recent PROCESSING must survive")
	assert.Equal(t, order.StatusPending, store.Orders[pendingID].Status, "PENDING is not reaped")
	assert.Equal(t, order.StatusCompleted, store.Orders[completedID].Status)

	require.Equal(t, []string{events.RoutingKeyExpired}, store.OutboxRoutingKeys())

	var evt events.OrderExpired
	require.NoError(t, json.Unmarshal(store.Outbox[0].Payload, &evt))
	assert.Equal(t, staleID, evt.OrderID)
	assert.Contains(t, evt.Reason, "processing timeout exceeded")
}

func TestExpireStaleOrders_SecondSweepIsNoop(t *testing.T) {
	store := fakestore.New()
	store.AddOrder(order.Order{
		UserID: 1, Status: order.StatusProcessing, UpdatedAt: time.Now().Add(-20 * time.Minute),
	})

	w := newTestWorker(store, 10*time.Minute)
	w.ExpireStaleOrders(context.Background())
	w.ExpireStaleOrders(context.Background())

	assert.Len(t, store.Outbox, 1, "an order is expired at most once")
}

func TestExpireStaleOrders_PerOrderErrorIsolation(t *testing.T) {
	store := fakestore.New()
	brokenID := store.AddOrder(order.Order{
		UserID: 1, Status: order.StatusProcessing, UpdatedAt: time.Now().Add(-20 * time.Minute),
	})
	healthyID := store.AddOrder(order.Order{
		UserID: 1, Status: order.StatusProcessing, UpdatedAt: time.Now().Add(-20 * time.Minute),
	})
	store.TransitionErrFor = map[int64]error{brokenID: errors.New("deadlock detected")}

	w := newTestWorker(store, 10*time.Minute)
	w.ExpireStaleOrders(context.Background())

	assert.Equal(t, order.StatusProcessing, store.Orders[brokenID].Status)
	assert.Equal(t, order.StatusExpired, store.Orders[healthyID].Status,
		"one failing order must not abort the sweep")
}

func TestStartStop(t *testing.T) {
	store := fakestore.New()
	staleID := store.AddOrder(order.Order{
		UserID: 1, Status: order.StatusProcessing, UpdatedAt: time.Now().Add(-20 * time.Minute),
	})

	w := newWorkerForTesting(
		func() unitOfWork { return store },
		10*time.Millisecond,
		10*time.Minute,
	)

	done := make(chan struct{})
	go func() {
		w.Start(context.Background())
		close(done)
	}()

	assert.Eventually(t, func() bool {
		_, err := store.Get(context.Background(), staleID)
		if err != nil {
			return false
		}
		o, _ := store.Get(context.Background(), staleID)

		return o.Status == order.StatusExpired
	}, time.Second, 10*time.Millisecond)

	w.Stop()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("worker did not stop")
	}
}
