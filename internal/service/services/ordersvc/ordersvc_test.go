package ordersvc

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/gpustore/backend/internal/service/errs"
	"github.com/gpustore/backend/internal/service/models/events"
	"github.com/gpustore/backend/internal/service/models/order"
	"github.com/gpustore/backend/internal/service/models/orderitem"
	"github.com/gpustore/backend/internal/service/models/product"
	"github.com/gpustore/backend/internal/service/models/user"
	"github.com/gpustore/backend/internal/testutil/fakestore"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(store *fakestore.Store) *OrderService {
	return MustNewOrderService(
		WithUnitOfWorkFactory(func() unitOfWork { return store }),
	)
}

func TestCreate(t *testing.T) {
	store := fakestore.New()
	userID := store.AddUser(user.User{Username: "alice", Email: "alice@example.com"})
	gpuID := store.AddProduct(product.Product{Name: "RTX 5090", Price: decimal.NewFromFloat(100.50), Stock: 10})
	cableID := store.AddProduct(product.Product{Name: "Riser cable", Price: decimal.NewFromInt(25), Stock: 5})

	svc := newTestService(store)

	created, err := svc.Create(context.Background(), userID, []ItemInput{
		{ProductID: gpuID, Quantity: 2},
		{ProductID: cableID, Quantity: 1},
	})
	require.NoError(t, err)

	assert.Equal(t, order.StatusPending, created.Status)
	assert.Equal(t, userID, created.UserID)
	assert.True(t, created.Total.Equal(decimal.NewFromFloat(226.0)), "got total %s", created.Total)
	require.Len(t, created.Items, 2)
	assert.True(t, created.Items[0].Price.Equal(decimal.NewFromFloat(100.50)), "unit price must be snapshotted")

	stored, ok := store.Orders[created.ID]
	require.True(t, ok)
	assert.Equal(t, order.StatusPending, stored.Status)

	// Intake must not touch stock.
	assert.Equal(t, 10, store.Products[gpuID].Stock)
	assert.Equal(t, 5, store.Products[cableID].Stock)

	require.Equal(t, []string{events.RoutingKeyCreated}, store.OutboxRoutingKeys())

	var evt events.OrderCreated
	require.NoError(t, json.Unmarshal(store.Outbox[0].Payload, &evt))
	assert.Equal(t, created.ID, evt.OrderID)
	assert.Equal(t, userID, evt.UserID)
	assert.True(t, evt.Total.Equal(created.Total))
	assert.NotZero(t, evt.EventID)

	assert.Equal(t, 1, store.Committed)
}

func TestCreate_UnknownUser(t *testing.T) {
	store := fakestore.New()
	store.AddProduct(product.Product{Name: "RTX 5090", Price: decimal.NewFromInt(100), Stock: 10})

	svc := newTestService(store)

	_, err := svc.Create(context.Background(), 42, []ItemInput{{ProductID: 1, Quantity: 1}})
	require.ErrorIs(t, err, errs.ErrNotFound)

	assert.Empty(t, store.Orders)
	assert.Empty(t, store.Outbox)
	assert.Equal(t, 0, store.Committed)
}

func TestCreate_UnknownProduct(t *testing.T) {
	store := fakestore.New()
	userID := store.AddUser(user.User{Username: "alice"})

	svc := newTestService(store)

	_, err := svc.Create(context.Background(), userID, []ItemInput{{ProductID: 99, Quantity: 1}})
	require.ErrorIs(t, err, errs.ErrNotFound)

	assert.Empty(t, store.Orders)
	assert.Empty(t, store.Outbox)
}

func TestGetOrder(t *testing.T) {
	store := fakestore.New()
	id := store.AddOrder(
		order.Order{UserID: 1, Status: order.StatusPending, Total: decimal.NewFromInt(50)},
		orderitem.OrderItem{ProductID: 1, Quantity: 2, Price: decimal.NewFromInt(25)},
	)

	svc := newTestService(store)

	got, err := svc.GetOrder(context.Background(), id)
	require.NoError(t, err)
	assert.Equal(t, id, got.ID)
	require.Len(t, got.Items, 1)
	assert.Equal(t, 2, got.Items[0].Quantity)

	_, err = svc.GetOrder(context.Background(), 999)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestListOrders(t *testing.T) {
	store := fakestore.New()
	first := store.AddOrder(
		order.Order{UserID: 1, Status: order.StatusPending},
		orderitem.OrderItem{ProductID: 1, Quantity: 1, Price: decimal.NewFromInt(10)},
	)
	second := store.AddOrder(
		order.Order{UserID: 1, Status: order.StatusCompleted},
		orderitem.OrderItem{ProductID: 2, Quantity: 3, Price: decimal.NewFromInt(5)},
	)
	store.AddOrder(order.Order{UserID: 2, Status: order.StatusPending})

	svc := newTestService(store)

	orders, err := svc.ListOrders(context.Background(), &order.QueryOrdersModel{UserIds: []int64{1}})
	require.NoError(t, err)
	require.Len(t, orders, 2)
	assert.Equal(t, first, orders[0].ID)
	assert.Equal(t, second, orders[1].ID)
	require.Len(t, orders[0].Items, 1)
	require.Len(t, orders[1].Items, 1)
	assert.Equal(t, 3, orders[1].Items[0].Quantity)
}

func TestListOrders_Empty(t *testing.T) {
	store := fakestore.New()
	svc := newTestService(store)

	orders, err := svc.ListOrders(context.Background(), &order.QueryOrdersModel{UserIds: []int64{7}})
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func TestUpdateStatus(t *testing.T) {
	store := fakestore.New()
	id := store.AddOrder(order.Order{UserID: 1, Status: order.StatusPending, UpdatedAt: time.Now()})

	svc := newTestService(store)

	updated, err := svc.UpdateStatus(context.Background(), id, order.StatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, order.StatusProcessing, updated.Status)
	assert.Equal(t, order.StatusProcessing, store.Orders[id].Status)
}

func TestUpdateStatus_InvalidTransition(t *testing.T) {
	store := fakestore.New()
	id := store.AddOrder(order.Order{UserID: 1, Status: order.StatusPending})

	svc := newTestService(store)

	_, err := svc.UpdateStatus(context.Background(), id, order.StatusCompleted)
	require.ErrorIs(t, err, errs.ErrInvalidTransition)
	assert.Equal(t, order.StatusPending, store.Orders[id].Status)
}

func TestUpdateStatus_TerminalStatus(t *testing.T) {
	store := fakestore.New()
	id := store.AddOrder(order.Order{UserID: 1, Status: order.StatusCompleted})

	svc := newTestService(store)

	for _, target := range []order.Status{order.StatusPending, order.StatusProcessing, order.StatusExpired} {
		_, err := svc.UpdateStatus(context.Background(), id, target)
		assert.ErrorIs(t, err, errs.ErrInvalidTransition, "COMPLETED -> %s", target)
	}
}

func TestUpdateStatus_NotFound(t *testing.T) {
	store := fakestore.New()
	svc := newTestService(store)

	_, err := svc.UpdateStatus(context.Background(), 404, order.StatusProcessing)
	assert.ErrorIs(t, err, errs.ErrNotFound)
}

func TestDelete(t *testing.T) {
	store := fakestore.New()
	id := store.AddOrder(
		order.Order{UserID: 1, Status: order.StatusPending},
		orderitem.OrderItem{ProductID: 1, Quantity: 1, Price: decimal.NewFromInt(10)},
	)

	svc := newTestService(store)

	require.NoError(t, svc.Delete(context.Background(), id))
	assert.Empty(t, store.Orders)
	assert.Empty(t, store.Items[id])

	assert.ErrorIs(t, svc.Delete(context.Background(), id), errs.ErrNotFound)
}
