package checkout

import (
	"context"
	"errors"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

type Metrics struct {
	attempts      metric.Int64Counter
	compensations metric.Int64Counter
	duration      metric.Float64Histogram
}

// NewMetrics registers checkout instruments on the global MeterProvider.
func NewMetrics() (*Metrics, error) {
	return newMetrics(otel.Meter("checkout"))
}

func newMetrics(meter metric.Meter) (*Metrics, error) {
	attempts, err := meter.Int64Counter("checkout.attempts",
		metric.WithDescription("Checkout attempts by outcome"))
	if err != nil {
		return nil, err
	}

	compensations, err := meter.Int64Counter("checkout.compensations",
		metric.WithDescription("Compensating actions run after a failed checkout"))
	if err != nil {
		return nil, err
	}

	duration, err := meter.Float64Histogram("checkout.duration",
		metric.WithDescription("Checkout latency"),
		metric.WithUnit("s"))
	if err != nil {
		return nil, err
	}

	return &Metrics{attempts: attempts, compensations: compensations, duration: duration}, nil
}

func (m *Metrics) recordAttempt(ctx context.Context, start time.Time, err error) {
	if m == nil {
		return
	}
	outcome := attribute.String("outcome", outcomeOf(err))
	m.attempts.Add(ctx, 1, metric.WithAttributes(outcome))
	m.duration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(outcome))
}

func (m *Metrics) recordCompensation(ctx context.Context, step string, err error) {
	if m == nil {
		return
	}
	m.compensations.Add(ctx, 1, metric.WithAttributes(
		attribute.String("step", step),
		attribute.Bool("failed", err != nil),
	))
}

func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	var cerr *Error
	if errors.As(err, &cerr) {
		return cerr.Code()
	}
	return "internal"
}
