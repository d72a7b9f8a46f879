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
	"github.com/redis/go-redis/v9"

	"github.com/joao-fontenele/marketplace-checkout/internal/cart"
	"github.com/joao-fontenele/marketplace-checkout/internal/catalog"
	"github.com/joao-fontenele/marketplace-checkout/internal/checkout"
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

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "checkout", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("checkout", "0.1.0")
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

	redisURL := os.Getenv("REDIS_URL")
	if redisURL == "" {
		redisURL = "redis://localhost:6379/0"
	}

	cfg, err := checkout.ConfigFromEnv()
	if err != nil {
		logger.Error("invalid checkout configuration", "error", err)
		os.Exit(1)
	}

	catalogDB, err := telemetry.OpenDB(postgresURL, "catalog")
	if err != nil {
		logger.Error("failed to open catalog database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = catalogDB.Close() }()

	inventoryDB, err := telemetry.OpenDB(postgresURL, "inventory")
	if err != nil {
		logger.Error("failed to open inventory database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = inventoryDB.Close() }()

	ordersDB, err := telemetry.OpenDB(postgresURL, "orders")
	if err != nil {
		logger.Error("failed to open orders database", "error", err)
		os.Exit(1)
	}
	defer func() { _ = ordersDB.Close() }()

	if err := ordersDB.PingContext(ctx); err != nil {
		logger.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}

	redisOpts, err := redis.ParseURL(redisURL)
	if err != nil {
		logger.Error("invalid REDIS_URL", "error", err)
		os.Exit(1)
	}
	redisClient := redis.NewClient(redisOpts)
	defer func() { _ = redisClient.Close() }()

	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Error("failed to connect to redis", "error", err)
		os.Exit(1)
	}

	var publisher checkout.Publisher
	if kafkaBrokers := os.Getenv("KAFKA_BROKERS"); kafkaBrokers != "" {
		producer := messaging.NewProducer(strings.Split(kafkaBrokers, ","), domain.TopicOrderCreated)
		defer func() { _ = producer.Close() }()
		publisher = producer
	}

	metrics, err := checkout.NewMetrics()
	if err != nil {
		logger.Error("failed to register checkout metrics", "error", err)
		os.Exit(1)
	}

	catalogRepo := catalog.NewRepository(catalogDB)
	cartStore := cart.NewRedisStore(redisClient)
	paymentClient := payment.NewClient(paymentServiceURL, telemetry.NewHTTPClient(30*time.Second), payment.DefaultBreakerSettings(), logger)

	orchestrator := checkout.NewOrchestrator(
		cartStore,
		catalogRepo,
		inventory.NewInventoryRepository(inventoryDB),
		paymentClient,
		orders.NewOrderRepository(ordersDB),
		publisher,
		cfg,
		metrics,
		logger,
	)
	checkoutHandler := checkout.NewHandler(orchestrator, logger)
	cartHandler := cart.NewHandler(cart.NewService(cartStore, catalogRepo, cfg.Policy, logger), logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /checkout", telemetry.WithHTTPRoute(checkoutHandler.HandleCheckout))
	mux.HandleFunc("GET /carts/{buyerId}", telemetry.WithHTTPRoute(cartHandler.HandleGet))
	mux.HandleFunc("GET /carts/{buyerId}/preview", telemetry.WithHTTPRoute(cartHandler.HandlePreview))
	mux.HandleFunc("POST /carts/{buyerId}/items", telemetry.WithHTTPRoute(cartHandler.HandleAddItem))
	mux.HandleFunc("PATCH /carts/{buyerId}/items/{productId}", telemetry.WithHTTPRoute(cartHandler.HandleUpdateItem))
	mux.HandleFunc("DELETE /carts/{buyerId}/items/{productId}", telemetry.WithHTTPRoute(cartHandler.HandleRemoveItem))
	mux.HandleFunc("POST /carts/{buyerId}/saved/{productId}", telemetry.WithHTTPRoute(cartHandler.HandleSaveForLater))
	mux.HandleFunc("DELETE /carts/{buyerId}/saved/{productId}", telemetry.WithHTTPRoute(cartHandler.HandleMoveToCart))
	mux.HandleFunc("POST /carts/{buyerId}/coupons", telemetry.WithHTTPRoute(cartHandler.HandleApplyCoupon))
	mux.HandleFunc("DELETE /carts/{buyerId}/coupons/{code}", telemetry.WithHTTPRoute(cartHandler.HandleRemoveCoupon))
	mux.Handle("GET /metrics", metricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8085"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      telemetry.InstrumentHandler(mux, "checkout"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.PaymentTimeout + 20*time.Second,
	}

	go func() {
		logger.Info("starting checkout service", "port", port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.CompensationTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
		os.Exit(1)
	}
}
