package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/joao-fontenele/marketplace-checkout/internal/domain"
	"github.com/joao-fontenele/marketplace-checkout/internal/email"
	"github.com/joao-fontenele/marketplace-checkout/internal/messaging"
	"github.com/joao-fontenele/marketplace-checkout/internal/orders"
	"github.com/joao-fontenele/marketplace-checkout/internal/telemetry"
	"github.com/joao-fontenele/marketplace-checkout/internal/worker"
)

const consumerGroup = "notification-worker"

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "worker", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(context.Background()) }()

	kafkaBrokers := os.Getenv("KAFKA_BROKERS")
	if kafkaBrokers == "" {
		logger.Error("KAFKA_BROKERS environment variable is required")
		os.Exit(1)
	}

	emailServiceURL := os.Getenv("EMAIL_SERVICE_URL")
	if emailServiceURL == "" {
		logger.Error("EMAIL_SERVICE_URL environment variable is required")
		os.Exit(1)
	}

	ordersServiceURL := os.Getenv("ORDERS_SERVICE_URL")
	if ordersServiceURL == "" {
		logger.Error("ORDERS_SERVICE_URL environment variable is required")
		os.Exit(1)
	}

	httpClient := telemetry.NewHTTPClient(10 * time.Second)
	notificationHandler := worker.NewNotificationHandler(
		email.NewClient(emailServiceURL, httpClient),
		orders.NewClient(ordersServiceURL, httpClient),
		logger,
	)

	brokers := strings.Split(kafkaBrokers, ",")
	opts := []messaging.ConsumerOption{
		messaging.WithRetry(3, 500*time.Millisecond),
		messaging.WithLogger(logger),
	}

	created := messaging.NewConsumer(brokers, domain.TopicOrderCreated, consumerGroup, opts...)
	defer func() { _ = created.Close() }()

	changed := messaging.NewConsumer(brokers, domain.TopicOrderStatusChanged, consumerGroup, opts...)
	defer func() { _ = changed.Close() }()

	logger.Info("starting notification worker", "brokers", brokers)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return created.Consume(gctx, notificationHandler.HandleOrderCreated)
	})
	g.Go(func() error {
		return changed.Consume(gctx, notificationHandler.HandleStatusChanged)
	})

	if err := g.Wait(); err != nil {
		if errors.Is(err, context.Canceled) {
			logger.Info("consumers stopped")
			return
		}
		logger.Error("consumer error", "error", err)
		os.Exit(1)
	}
}
