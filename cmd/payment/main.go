package main

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/marketplace-checkout/internal/payment"
	"github.com/joao-fontenele/marketplace-checkout/internal/telemetry"
)

func main() {
	ctx := context.Background()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))

	shutdownTracer, err := telemetry.InitTracerProvider(ctx, "payment", "0.1.0")
	if err != nil {
		logger.Error("failed to initialize tracer", "error", err)
		os.Exit(1)
	}
	defer func() { _ = shutdownTracer(ctx) }()

	declineAbove := decimal.NewFromInt(10000)
	if v := os.Getenv("DECLINE_ABOVE"); v != "" {
		declineAbove, err = decimal.NewFromString(v)
		if err != nil {
			logger.Error("invalid DECLINE_ABOVE", "error", err)
			os.Exit(1)
		}
	}

	simulator := payment.NewSimulator(payment.SimulatorConfig{
		DeclineAbove: declineAbove,
		MinLatency:   50 * time.Millisecond,
		MaxLatency:   300 * time.Millisecond,
	}, logger)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /charges", telemetry.WithHTTPRoute(simulator.HandleCharge))
	mux.HandleFunc("POST /refunds", telemetry.WithHTTPRoute(simulator.HandleRefund))
	mux.HandleFunc("POST /voids", telemetry.WithHTTPRoute(simulator.HandleVoid))

	port := os.Getenv("PORT")
	if port == "" {
		port = "8086"
	}

	server := &http.Server{
		Addr:         ":" + port,
		Handler:      telemetry.InstrumentHandler(mux, "payment"),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	go func() {
		logger.Info("starting payment simulator", "port", port, "decline_above", declineAbove.String())
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
