package fulfillment

import (
	"context"
	"errors"
	"log/slog"
	"math/rand"
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
	"github.com/spf13/viper"
)

// FulfillmentService drives a PENDING order to COMPLETED or leaves it in
// PROCESSING for the reaper.
//
// The completion path and the reaper race on PROCESSING rows; both sides
// resolve it with a status-conditioned single-statement update, so exactly
// one actor wins. If the reaper wins after stock was already deducted, the
// deductions are compensated.
type FulfillmentService struct {
	pgClient      *postgres.Client
	newUOW        func() unitOfWork
	paymentDelay  time.Duration
	decideSuccess func() bool
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

// option is a function that configures the FulfillmentService.
type option func(*FulfillmentService)

// MustNewFulfillmentService creates a new FulfillmentService.
func MustNewFulfillmentService(opts ...option) *FulfillmentService {
	delayMs := viper.GetInt("fulfillment.payment_delay_ms")
	if delayMs == 0 {
		delayMs = 5000
	}

	successRate := viper.GetFloat64("fulfillment.payment_success_rate")
	if successRate == 0 {
		successRate = 0.5
	}

	s := &FulfillmentService{
		paymentDelay: time.Duration(delayMs) * time.Millisecond,
		decideSuccess: func() bool {
			return rand.Float64() < successRate
		},
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.newUOW == nil {
		panic("fulfillment: no unit of work source configured")
	}

	return s
}

// WithPostgresClient sets the Postgres client for the FulfillmentService.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPostgresClient(pgClient *postgres.Client) option {
	return func(s *FulfillmentService) {
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
	return func(s *FulfillmentService) {
		s.newUOW = factory
	}
}

// WithPaymentDelay overrides the payment simulation latency.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithPaymentDelay(d time.Duration) option {
	return func(s *FulfillmentService) {
		s.paymentDelay = d
	}
}

// WithSuccessDecider overrides the payment outcome source.
//
//goland:noinspection GoExportedFuncWithUnexportedType
func WithSuccessDecider(decide func() bool) option {
	return func(s *FulfillmentService) {
		s.decideSuccess = decide
	}
}

// ProcessOrderCreated handles a single order.created delivery.
//
// Returning nil acknowledges the delivery. Business failures also return
// nil after logging (the event cannot be retried meaningfully); only
// transient infrastructure errors propagate so the consumer nacks and the
// channel redelivers.
func (s *FulfillmentService) ProcessOrderCreated(ctx context.Context, evt events.OrderCreated) error {
	slog.Info("Processing order", "order_id", evt.OrderID, "event_id", evt.EventID)

	work := s.newUOW()

	o, err := work.OrderRepository().GetWithItems(ctx, evt.OrderID)
	if err != nil {
		if errors.Is(err, errs.ErrNotFound) {
			slog.Error("Order not found for processing", "order_id", evt.OrderID, "error", err)

			return err
		}

		return errs.Transient(err)
	}

	// Idempotency guard: redelivered events find the order already past
	// PENDING and are acknowledged without effect.
	if o.Status != order.StatusPending {
		slog.Warn("Order not in PENDING state, skipping processing",
			"order_id", o.ID,
			"status", o.Status.String(),
		)

		return nil
	}

	// Persist PROCESSING before the payment wait so observers see the
	// intermediate state and the staleness clock starts now.
	ok, err := work.OrderRepository().TransitionStatus(ctx, o.ID, order.StatusPending, order.StatusProcessing)
	if err != nil {
		return errs.Transient(err)
	}
	if !ok {
		slog.Warn("Order claimed by another worker, skipping", "order_id", o.ID)

		return nil
	}

	slog.Info("Order status updated to PROCESSING", "order_id", o.ID)

	if interrupted := s.simulatePayment(ctx); interrupted {
		slog.Warn("Payment simulation interrupted, order left in PROCESSING", "order_id", o.ID)

		return nil
	}

	if !s.decideSuccess() {
		slog.Info("Order payment failed simulation, will be expired by the reaper", "order_id", o.ID)

		return nil
	}

	return s.completeOrder(ctx, o)
}

// simulatePayment waits for the configured latency. It reports whether the
// wait was cut short by context cancellation.
func (s *FulfillmentService) simulatePayment(ctx context.Context) bool {
	slog.Debug("Simulating payment processing", "delay", s.paymentDelay)

	timer := time.NewTimer(s.paymentDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return false
	case <-ctx.Done():
		return true
	}
}

// completeOrder deducts stock for every item and marks the order COMPLETED.
//
// Each deduction is its own short transaction holding the product row lock
// only for the read-modify-write. The final transition is conditioned on
// the order still being PROCESSING; if the reaper expired it in the
// meantime, the deductions are compensated and the completion is dropped.
func (s *FulfillmentService) completeOrder(ctx context.Context, o *order.Order) error {
	deducted := make([]int, 0, len(o.Items))

	for _, item := range o.Items {
		n, err := s.deductStock(ctx, o.ID, item)
		if err != nil {
			s.restoreStock(o.ID, o.Items, deducted)

			return errs.Transient(err)
		}
		deducted = append(deducted, n)
	}

	work := s.newUOW()

	if err := work.Begin(ctx); err != nil {
		s.restoreStock(o.ID, o.Items, deducted)

		return errs.Transient(err)
	}
	defer func() {
		if err := work.Rollback(ctx); err != nil {
			slog.Error("Failed to roll back order completion", "order_id", o.ID, "error", err)
		}
	}()

	ok, err := work.OrderRepository().TransitionStatus(ctx, o.ID, order.StatusProcessing, order.StatusCompleted)
	if err != nil {
		s.restoreStock(o.ID, o.Items, deducted)

		return errs.Transient(err)
	}
	if !ok {
		slog.Warn("Order no longer in PROCESSING, completion dropped", "order_id", o.ID)
		s.restoreStock(o.ID, o.Items, deducted)

		return nil
	}

	publisher := eventbus.NewOutboxPublisher(work.OutboxRepository())
	evt := events.NewOrderCompleted(o.ID, o.UserID, o.Total)
	if err := publisher.Publish(ctx, events.RoutingKeyCompleted, evt); err != nil {
		s.restoreStock(o.ID, o.Items, deducted)

		return errs.Transient(err)
	}

	if err := work.Commit(ctx); err != nil {
		s.restoreStock(o.ID, o.Items, deducted)

		return errs.Transient(err)
	}

	slog.Info("Order completed successfully", "order_id", o.ID)

	return nil
}

// deductStock decrements one product's stock under an exclusive row lock,
// clamping at zero. Returns the quantity actually removed.
func (s *FulfillmentService) deductStock(ctx context.Context, orderID int64, item orderitem.OrderItem) (int, error) {
	work := s.newUOW()

	if err := work.Begin(ctx); err != nil {
		return 0, err
	}
	defer func() {
		if err := work.Rollback(ctx); err != nil {
			slog.Error("Failed to roll back stock deduction", "product_id", item.ProductID, "error", err)
		}
	}()

	p, err := work.ProductRepository().GetForUpdate(ctx, item.ProductID)
	if err != nil {
		return 0, err
	}

	removed := item.Quantity
	newStock := p.Stock - item.Quantity
	if newStock < 0 {
		// Data anomaly: the optimistic intake admitted more demand than
		// stock. Clamp and complete anyway, flagging it for reconciliation.
		slog.Error("Insufficient stock during order completion, clamping at zero",
			"order_id", orderID,
			"product_id", p.ID,
			"stock", p.Stock,
			"quantity", item.Quantity,
		)
		removed = p.Stock
		newStock = 0
	}

	p.Stock = newStock
	if err := work.ProductRepository().Save(ctx, *p); err != nil {
		return 0, err
	}

	if err := work.Commit(ctx); err != nil {
		return 0, err
	}

	slog.Debug("Stock deducted",
		"product_id", p.ID,
		"quantity", item.Quantity,
		"new_stock", newStock,
	)

	return removed, nil
}

// restoreStock re-adds previously deducted quantities after a lost
// completion race or a mid-completion failure, so an order that does not
// end up COMPLETED leaves stock untouched overall. Runs on a background
// context: compensation must proceed even when the trigger was the
// caller's context being cancelled.
func (s *FulfillmentService) restoreStock(orderID int64, items []orderitem.OrderItem, deducted []int) {
	ctx := context.Background()

	for i, n := range deducted {
		if n == 0 {
			continue
		}

		item := items[i]

		work := s.newUOW()
		if err := work.Begin(ctx); err != nil {
			slog.Error("Failed to restore stock", "order_id", orderID, "product_id", item.ProductID, "error", err)

			continue
		}

		p, err := work.ProductRepository().GetForUpdate(ctx, item.ProductID)
		if err == nil {
			p.Stock += n
			err = work.ProductRepository().Save(ctx, *p)
		}
		if err == nil {
			err = work.Commit(ctx)
		}
		if err != nil {
			slog.Error("Failed to restore stock", "order_id", orderID, "product_id", item.ProductID, "error", err)
			if rbErr := work.Rollback(ctx); rbErr != nil {
				slog.Error("Failed to roll back stock restore", "product_id", item.ProductID, "error", rbErr)
			}

			continue
		}

		slog.Warn("Stock restored after dropped completion",
			"order_id", orderID,
			"product_id", item.ProductID,
			"quantity", n,
		)
	}
}
