package app

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gpustore/backend/internal/dal/postgres"
	"github.com/gpustore/backend/internal/dal/rabbitmq"
	outboxrepo "github.com/gpustore/backend/internal/dal/repositories/outbox/postgres"
	"github.com/gpustore/backend/internal/otel"
	"github.com/gpustore/backend/internal/service/services/fulfillment"
	"github.com/gpustore/backend/internal/service/services/ordersvc"
	"github.com/gpustore/backend/internal/transport/consumer"
	httptransport "github.com/gpustore/backend/internal/transport/http"
	outboxworker "github.com/gpustore/backend/internal/worker/outbox"
	"github.com/gpustore/backend/internal/worker/reaper"
)

// App represents the application.
type App struct {
	orderSvc       *ordersvc.OrderService
	fulfillmentSvc *fulfillment.FulfillmentService
	transport      *httptransport.HTTPTransport
	consumerTransp *consumer.Consumer
	outboxWorker   *outboxworker.Worker
	reaperWorker   *reaper.Worker
	rabbitMqClient *rabbitmq.Client
	postgresClient *postgres.Client
	otelController *otel.OtelController
}

// MustNewApp creates a new application.
func MustNewApp() *App {
	otelController := otel.MustInitOtel()
	postgresClient := postgres.MustNewClient()
	rabbitMqClient := rabbitmq.MustNewClient()

	orderSvc := ordersvc.MustNewOrderService(
		ordersvc.WithPostgresClient(postgresClient),
	)

	fulfillmentSvc := fulfillment.MustNewFulfillmentService(
		fulfillment.WithPostgresClient(postgresClient),
	)

	transport := httptransport.NewHTTPTransport(orderSvc)
	transport.RegisterRoutes()

	consumerTransp := consumer.NewConsumer(rabbitMqClient, fulfillmentSvc)

	outboxRepository := outboxrepo.NewPostgresOutboxRepository(postgresClient.Pool())
	outboxWorker := outboxworker.NewWorker(outboxRepository, rabbitMqClient)

	reaperWorker := reaper.NewWorker(postgresClient)

	return &App{
		orderSvc:       orderSvc,
		fulfillmentSvc: fulfillmentSvc,
		transport:      transport,
		consumerTransp: consumerTransp,
		outboxWorker:   outboxWorker,
		reaperWorker:   reaperWorker,
		rabbitMqClient: rabbitMqClient,
		postgresClient: postgresClient,
		otelController: otelController,
	}
}

// Run starts the application.
// Tracks interrupt signal to gracefully shut down the application.
func (a *App) Run() {
	// Create a channel to receive OS signals
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go func() {
		slog.Info("Starting HTTP server")
		if err := a.transport.Run(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	go func() {
		slog.Info("Starting consumer")
		if err := a.consumerTransp.Run(ctx); err != nil {
			slog.Error("Consumer error", "error", err)
		}
	}()

	go func() {
		slog.Info("Starting outbox worker")
		a.outboxWorker.Start(ctx)
	}()

	go func() {
		slog.Info("Starting expiration reaper")
		a.reaperWorker.Start(ctx)
	}()

	<-stop
	slog.Info("Shutdown signal received")
	cancel()

	a.gracefulShutdown()
}

// gracefulShutdown performs graceful shutdown of all application components.
// It shuts down components sequentially: HTTP server, reaper, outbox worker,
// consumer, RabbitMQ, PostgreSQL, and OpenTelemetry.
func (a *App) gracefulShutdown() {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := a.transport.Shutdown(ctx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	} else {
		slog.Info("HTTP server stopped gracefully")
	}

	a.reaperWorker.Stop()
	slog.Info("Expiration reaper stopped gracefully")

	a.outboxWorker.Stop()
	slog.Info("Outbox worker stopped gracefully")

	if err := a.consumerTransp.Shutdown(); err != nil {
		slog.Error("Consumer shutdown error", "error", err)
	} else {
		slog.Info("Consumer stopped gracefully")
	}

	if err := a.rabbitMqClient.Close(); err != nil {
		slog.Error("RabbitMQ connection close error", "error", err)
	} else {
		slog.Info("RabbitMQ connection closed gracefully")
	}

	a.postgresClient.Close()

	if err := a.otelController.Shutdown(); err != nil {
		slog.Error("Otel trace provider connection close error", "error", err)
	} else {
		slog.Info("Otel trace provider connection closed gracefully")
	}

	select {
	case <-ctx.Done():
		slog.Warn("Shutdown timeout exceeded")
	default:
		slog.Info("Application shutdown complete")
	}
}
