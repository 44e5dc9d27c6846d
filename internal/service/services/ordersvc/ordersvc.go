package ordersvc

import (
	"context"
	"log/slog"
	"time"

	"github.com/gpustore/backend/internal/dal/interfaces/iorderitemrepo"
	"github.com/gpustore/backend/internal/dal/interfaces/iorderrepo"
	"github.com/gpustore/backend/internal/dal/interfaces/ioutboxrepo"
	"github.com/gpustore/backend/internal/dal/interfaces/iproductrepo"
	"github.com/gpustore/backend/internal/dal/interfaces/iuserrepo"
	"github.com/gpustore/backend/internal/dal/postgres"
	"github.com/gpustore/backend/internal/dal/uow"
	"github.com/gpustore/backend/internal/eventbus"
	"github.com/gpustore/backend/internal/service/errs"
	"github.com/gpustore/backend/internal/service/models/events"
	"github.com/gpustore/backend/internal/service/models/order"
	"github.com/gpustore/backend/internal/service/models/orderitem"
)

// OrderService handles order intake and the caller-facing order operations.
//
// Intake is the deferred-deduction variant: products are only checked for
// existence and their prices snapshotted; stock is touched exclusively by
// the fulfillment worker.
type OrderService struct {
	pgClient *postgres.Client
	newUOW   func() unitOfWork
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() iorderrepo.IOrderRepository
	OrderItemRepository() iorderitemrepo.IOrderItemRepository
	ProductRepository() iproductrepo.IProductRepository
	UserRepository() iuserrepo.IUserRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
}

// option is a function that configures the OrderService.
type option func(*OrderService)

// MustNewOrderService creates a new OrderService.
func MustNewOrderService(opts ...option) *OrderService {
	s := &OrderService{}
	for _, opt := range opts {
		opt(s)
	}

	if s.newUOW == nil {
		panic("ordersvc: no unit of work source configured")
	}

	return s
}

// WithPostgresClient sets the Postgres client for the OrderService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *OrderService) {
		s.pgClient = pgClient
		s.newUOW = func() unitOfWork {
			return uow.NewUnitOfWork(pgClient)
		}
	}
}

// WithUnitOfWorkFactory overrides the unit-of-work source.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithUnitOfWorkFactory(factory func() unitOfWork) option {
	return func(s *OrderService) {
		s.newUOW = factory
	}
}

// ItemInput is one (product, quantity) pair of a creation request.
type ItemInput struct {
	ProductID int64
	Quantity  int
}

// Create validates the user and products, snapshots prices, persists the
// order as PENDING, and stages an OrderCreated event — all in one
// transaction, so the event can never be published before the order row is
// readable.
func (s *OrderService) Create(ctx context.Context, userID int64, items []ItemInput) (*order.Order, error) {
	work := s.newUOW()

	if err := work.Begin(ctx); err != nil {
		return nil, errs.Transient(err)
	}
	defer func() {
		if err := work.Rollback(ctx); err != nil {
			slog.Error("Failed to roll back order creation", "error", err)
		}
	}()

	if _, err := work.UserRepository().Get(ctx, userID); err != nil {
		return nil, err
	}

	now := time.Now()

	orderItems := make([]orderitem.OrderItem, 0, len(items))
	for _, in := range items {
		p, err := work.ProductRepository().Get(ctx, in.ProductID)
		if err != nil {
			return nil, err
		}

		orderItems = append(orderItems, orderitem.OrderItem{
			ProductID: p.ID,
			Quantity:  in.Quantity,
			Price:     p.Price,
			CreatedAt: now,
			UpdatedAt: now,
		})
	}

	inserted, err := work.OrderRepository().Insert(ctx, order.Order{
		UserID:    userID,
		Total:     order.ComputeTotal(orderItems),
		Status:    order.StatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	})
	if err != nil {
		return nil, errs.Transient(err)
	}

	for i := range orderItems {
		orderItems[i].OrderID = inserted.ID
	}

	orderItems, err = work.OrderItemRepository().BulkInsert(ctx, orderItems)
	if err != nil {
		return nil, errs.Transient(err)
	}
	inserted.Items = orderItems

	publisher := eventbus.NewOutboxPublisher(work.OutboxRepository())
	evt := events.NewOrderCreated(inserted.ID, inserted.UserID, inserted.Total)
	if err := publisher.Publish(ctx, events.RoutingKeyCreated, evt); err != nil {
		return nil, errs.Transient(err)
	}

	if err := work.Commit(ctx); err != nil {
		return nil, errs.Transient(err)
	}

	slog.Info("Order created",
		"order_id", inserted.ID,
		"user_id", userID,
		"total", inserted.Total.String(),
		"status", inserted.Status.String(),
	)

	return &inserted, nil
}

// GetOrder retrieves an order with its items.
func (s *OrderService) GetOrder(ctx context.Context, id int64) (*order.Order, error) {
	return s.newUOW().OrderRepository().GetWithItems(ctx, id)
}

// ListOrders retrieves orders with their items based on the filter.
func (s *OrderService) ListOrders(ctx context.Context, filter *order.QueryOrdersModel) ([]order.Order, error) {
	work := s.newUOW()

	orders, err := work.OrderRepository().Query(ctx, filter)
	if err != nil {
		return nil, err
	}

	if len(orders) == 0 {
		return []order.Order{}, nil
	}

	orderIds := make([]int64, 0, len(orders))
	for _, o := range orders {
		orderIds = append(orderIds, o.ID)
	}

	items, err := work.OrderItemRepository().QueryByOrderIds(ctx, orderIds)
	if err != nil {
		return nil, err
	}

	for i := range orders {
		for _, item := range items {
			if item.OrderID == orders[i].ID {
				orders[i].Items = append(orders[i].Items, item)
			}
		}
	}

	return orders, nil
}

// UpdateStatus applies an operator-requested status transition after
// validating it against the transition table. The persisted update is
// conditioned on the status the validation saw, so a concurrent actor
// moving the order first surfaces as an invalid transition rather than a
// silent overwrite.
func (s *OrderService) UpdateStatus(ctx context.Context, id int64, target order.Status) (*order.Order, error) {
	work := s.newUOW()

	o, err := work.OrderRepository().Get(ctx, id)
	if err != nil {
		return nil, err
	}

	from := o.Status
	if err := o.TransitionTo(target); err != nil {
		return nil, err
	}

	ok, err := work.OrderRepository().TransitionStatus(ctx, id, from, target)
	if err != nil {
		return nil, errs.Transient(err)
	}
	if !ok {
		current, err := work.OrderRepository().Get(ctx, id)
		if err != nil {
			return nil, err
		}

		return nil, errs.InvalidTransition(current.Status.String(), target.String())
	}

	slog.Info("Order status updated", "order_id", id, "from", from.String(), "to", target.String())

	return work.OrderRepository().GetWithItems(ctx, id)
}

// Delete removes an order and, via cascade, its items.
func (s *OrderService) Delete(ctx context.Context, id int64) error {
	if err := s.newUOW().OrderRepository().Delete(ctx, id); err != nil {
		return err
	}

	slog.Info("Order deleted", "order_id", id)

	return nil
}
