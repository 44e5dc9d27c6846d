package reaper

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gpustore/backend/internal/dal/interfaces/iorderrepo"
	"github.com/gpustore/backend/internal/dal/interfaces/ioutboxrepo"
	"github.com/gpustore/backend/internal/dal/postgres"
	"github.com/gpustore/backend/internal/dal/uow"
	"github.com/gpustore/backend/internal/eventbus"
	"github.com/gpustore/backend/internal/service/models/events"
	"github.com/gpustore/backend/internal/service/models/order"
	"github.com/spf13/viper"
)

// Worker periodically expires orders stuck in PROCESSING longer than the
// deadline. It races the fulfillment worker for the same rows; the
// expiration update is conditioned on both status and staleness, so when
// the two collide exactly one side wins.
type Worker struct {
	newUOW   func() unitOfWork
	interval time.Duration
	deadline time.Duration
	stopCh   chan struct{}
}

type unitOfWork interface {
	Begin(ctx context.Context) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error

	OrderRepository() iorderrepo.IOrderRepository
	OutboxRepository() ioutboxrepo.IOutboxRepository
}

// NewWorker creates a new expiration reaper.
func NewWorker(pgClient *postgres.Client) *Worker {
	intervalSeconds := viper.GetInt("reaper.interval_seconds")
	if intervalSeconds == 0 {
		intervalSeconds = 60
	}

	deadlineMinutes := viper.GetInt("reaper.deadline_minutes")
	if deadlineMinutes == 0 {
		deadlineMinutes = 10
	}

	return &Worker{
		newUOW: func() unitOfWork {
			return uow.NewUnitOfWork(pgClient)
		},
		interval: time.Duration(intervalSeconds) * time.Second,
		deadline: time.Duration(deadlineMinutes) * time.Minute,
		stopCh:   make(chan struct{}),
	}
}

// newWorkerForTesting wires a reaper to fakes.
func newWorkerForTesting(newUOW func() unitOfWork, interval, deadline time.Duration) *Worker {
	return &Worker{
		newUOW:   newUOW,
		interval: interval,
		deadline: deadline,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the expiration sweep on a ticker until stopped.
func (w *Worker) Start(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	slog.Info("Expiration reaper started", "interval", w.interval, "deadline", w.deadline)

	for {
		select {
		case <-ctx.Done():
			slog.Info("Expiration reaper shutting down")

			return
		case <-w.stopCh:
			slog.Info("Expiration reaper stopped")

			return
		case <-ticker.C:
			w.ExpireStaleOrders(ctx)
		}
	}
}

// Stop stops the worker.
func (w *Worker) Stop() {
	close(w.stopCh)
}

// ExpireStaleOrders runs one sweep. Failures are contained per order so
// one bad row never aborts the rest of the sweep.
func (w *Worker) ExpireStaleOrders(ctx context.Context) {
	cutoff := time.Now().Add(-w.deadline)

	stale, err := w.newUOW().OrderRepository().FindStale(ctx, order.StatusProcessing, cutoff)
	if err != nil {
		slog.Error("Failed to find stale orders", "error", err)

		return
	}

	if len(stale) == 0 {
		slog.Debug("No stale orders found for expiration")

		return
	}

	slog.Info("Found stale orders to expire", "count", len(stale))

	for _, o := range stale {
		if err := w.expireOrder(ctx, o, cutoff); err != nil {
			slog.Error("Failed to expire order", "order_id", o.ID, "error", err)
		}
	}
}

// expireOrder force-transitions one order to EXPIRED and stages the
// expiration event in the same transaction. A zero-row update means the
// fulfillment worker completed the order in between; that is not an error.
func (w *Worker) expireOrder(ctx context.Context, o order.Order, cutoff time.Time) error {
	work := w.newUOW()

	if err := work.Begin(ctx); err != nil {
		return err
	}
	defer func() {
		if err := work.Rollback(ctx); err != nil {
			slog.Error("Failed to roll back order expiration", "order_id", o.ID, "error", err)
		}
	}()

	ok, err := work.OrderRepository().TransitionStatusIfStale(
		ctx, o.ID, order.StatusProcessing, order.StatusExpired, cutoff,
	)
	if err != nil {
		return err
	}
	if !ok {
		slog.Debug("Order already transitioned, skipping expiration", "order_id", o.ID)

		return nil
	}

	reason := fmt.Sprintf("processing timeout exceeded %s", w.deadline)
	publisher := eventbus.NewOutboxPublisher(work.OutboxRepository())
	evt := events.NewOrderExpired(o.ID, o.UserID, reason)
	if err := publisher.Publish(ctx, events.RoutingKeyExpired, evt); err != nil {
		return err
	}

	if err := work.Commit(ctx); err != nil {
		return err
	}

	slog.Info("Order expired due to processing timeout", "order_id", o.ID)

	return nil
}
