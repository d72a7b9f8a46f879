package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/lib/pq"

	"github.com/joao-fontenele/marketplace-checkout/internal/inventory"
	"github.com/joao-fontenele/marketplace-checkout/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "inventory", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	metricsHandler, shutdownMeter, err := telemetry.InitMeterProvider("inventory", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize meter", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownMeter(ctx) }()

	store, closeStore, err := openStore(ctx, logger)
	if err != nil {
		logger.Error("failed to open inventory store", "error", err)
		os.Exit(1)
	}
	defer closeStore()

	handler := inventory.NewHandler(store, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /stock", telemetry.WithHTTPRoute(handler.HandleListStock))
	mux.HandleFunc("GET /stock/{productId}", telemetry.WithHTTPRoute(handler.HandleGetStock))
	mux.HandleFunc("PUT /stock/{productId}", telemetry.WithHTTPRoute(handler.HandleSetStock))
	mux.HandleFunc("POST /stock/{productId}/reserve", telemetry.WithHTTPRoute(handler.HandleReserve))
	mux.HandleFunc("POST /stock/{productId}/release", telemetry.WithHTTPRoute(handler.HandleRelease))
	mux.Handle("GET /metrics", metricsHandler)

	port := os.Getenv("PORT")
	if port == "" {
		port = "8082"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      telemetry.InstrumentHandler(mux, "inventory"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting inventory service", "port", port)
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

// openStore picks the stock ledger. INVENTORY_STORE=memory runs without
// Postgres; stock then lives only as long as the process.
func openStore(ctx context.Context, logger *slog.Logger) (inventory.Store, func(), error) {
	if os.Getenv("INVENTORY_STORE") == "memory" {
		logger.Warn("using in-memory inventory store, stock is not persisted")
		return inventory.NewMemoryLedger(), func() {}, nil
	}

	postgresURL := os.Getenv("POSTGRES_URL")
	if postgresURL == "" {
		return nil, nil, errors.New("POSTGRES_URL environment variable is required")
	}

	db, err := telemetry.OpenDB(postgresURL, "inventory")
	if err != nil {
		return nil, nil, fmt.Errorf("open database connection: %w", err)
	}

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}

	return inventory.NewInventoryRepository(db), func() { _ = db.Close() }, nil
}
