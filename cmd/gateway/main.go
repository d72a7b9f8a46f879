package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joao-fontenele/marketplace-checkout/internal/gateway"
	"github.com/joao-fontenele/marketplace-checkout/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "gateway", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	checkoutServiceURL := os.Getenv("CHECKOUT_SERVICE_URL")
	if checkoutServiceURL == "" {
		logger.Error("CHECKOUT_SERVICE_URL is required")
		os.Exit(1)
	}

	ordersServiceURL := os.Getenv("ORDERS_SERVICE_URL")
	if ordersServiceURL == "" {
		logger.Error("ORDERS_SERVICE_URL is required")
		os.Exit(1)
	}

	inventoryServiceURL := os.Getenv("INVENTORY_SERVICE_URL")
	if inventoryServiceURL == "" {
		logger.Error("INVENTORY_SERVICE_URL is required")
		os.Exit(1)
	}

	// checkout waits on the payment gateway, so its calls get more room.
	checkoutClient := telemetry.NewHTTPClient(45 * time.Second)
	httpClient := telemetry.NewHTTPClient(10 * time.Second)

	handler := gateway.NewHandler(
		gateway.NewServiceProxy("checkout", checkoutServiceURL, checkoutClient),
		gateway.NewServiceProxy("orders", ordersServiceURL, httpClient),
		gateway.NewServiceProxy("inventory", inventoryServiceURL, httpClient),
		logger,
	)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /checkout", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("/carts/{buyerId}", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("/carts/{buyerId}/", telemetry.WithHTTPRoute(handler.HandleCheckout))
	mux.HandleFunc("GET /orders", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("GET /orders/{orderNumber}", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("PATCH /orders/{orderNumber}/status", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("POST /orders/{orderNumber}/refund", telemetry.WithHTTPRoute(handler.HandleOrders))
	mux.HandleFunc("GET /inventory/stock", telemetry.WithHTTPRoute(handler.HandleInventory))
	mux.HandleFunc("GET /inventory/stock/{productId}", telemetry.WithHTTPRoute(handler.HandleInventory))
	mux.HandleFunc("PUT /inventory/stock/{productId}", telemetry.WithHTTPRoute(handler.HandleInventory))

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      telemetry.InstrumentHandler(mux, "gateway"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 60 * time.Second,
	}

	go func() {
		logger.Info("starting gateway service", "port", port)
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
