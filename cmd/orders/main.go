package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/joao-fontenele/marketplace-checkout/internal/domain"
	"github.com/joao-fontenele/marketplace-checkout/internal/inventory"
	"github.com/joao-fontenele/marketplace-checkout/internal/messaging"
	"github.com/joao-fontenele/marketplace-checkout/internal/orders"
	"github.com/joao-fontenele/marketplace-checkout/internal/payment"
	"github.com/joao-fontenele/marketplace-checkout/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "orders", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("orders", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		logger.Error("POSTGRES_URL environment variable is required")
		os.Exit(1)
	}

	paymentServiceURL := os.Getenv("PAYMENT_SERVICE_URL")
	if paymentServiceURL == "" {
		logger.Error("PAYMENT_SERVICE_URL environment variable is required")
		os.Exit(1)
	}

	inventoryServiceURL := os.Getenv("INVENTORY_SERVICE_URL")
	if inventoryServiceURL == "" {
		logger.Error("INVENTORY_SERVICE_URL environment variable is required")
		os.Exit(1)
	}

	db, err := telemetry.OpenDB(postgresURL, "orders")
	if err != nil {
		logger.Error("failed to open database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = db.Close() }()

	if err := db.PingContext(ctx); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	var publisher orders.Publisher
	if kafkaBrokers := os.Getenv("KAFKA_BROKERS"); kafkaBrokers != "" {
		producer := messaging.NewProducer(strings.Split(kafkaBrokers, ","), domain.TopicOrderStatusChanged)
		defer func() { _ = producer.Close() }()
		publisher = producer
	}

	httpClient := telemetry.NewHTTPClient(10 * time.Second)
	paymentClient := payment.NewClient(paymentServiceURL, httpClient, payment.DefaultBreakerSettings(), logger)
	inventoryClient := inventory.NewClient(inventoryServiceURL, httpClient)

	service := orders.NewService(orders.NewOrderRepository(db), paymentClient, inventoryClient, publisher, logger)
	handler := orders.NewHandler(service, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(handler.HandleList))
	mux.HandleFunc("GET /orders/{orderNumber}", telemetry.WithHTTPRoute(handler.HandleGet))
	mux.HandleFunc("PATCH /orders/{orderNumber}/status", telemetry.WithHTTPRoute(handler.HandleUpdateStatus))
	mux.HandleFunc("POST /orders/{orderNumber}/refund", telemetry.WithHTTPRoute(handler.HandleRefund))
	mux.Handle("GET /metrics", metricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8081"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      telemetry.InstrumentHandler(mux, "orders"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	go func() {
		logger.Info("starting orders service", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
