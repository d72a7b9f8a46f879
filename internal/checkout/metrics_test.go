package checkout

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

// attemptsByOutcome collects the checkout.attempts counter keyed by outcome.
func attemptsByOutcome(t *testing.T, reader *sdkmetric.ManualReader) map[string]int64 {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := map[string]int64{}
	for _, sm := range rm.ScopeMetrics {
		for _, m := range sm.Metrics {
			if m.Name != "checkout.attempts" {
				continue
			}
			sum, ok := m.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				v, _ := dp.Attributes.Value("outcome")
				out[v.AsString()] += dp.Value
			}
		}
	}
	return out
}

func newTestMetrics(t *testing.T) (*Metrics, *sdkmetric.ManualReader) {
	t.Helper()
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	m, err := newMetrics(provider.Meter("checkout"))
	require.NoError(t, err)
	return m, reader
}

func TestMetrics_RecordsOutcomes(t *testing.T) {
	m, reader := newTestMetrics(t)
	h := newHarness(stock("prod-a", 1))
	h.carts.put("buyer-1", line("prod-a", 1))
	h.carts.put("buyer-2", line("prod-a", 1))
	orch := NewOrchestrator(h.carts, h.catalog, h.ledger, h.payments, h.orders, h.publisher, h.cfg, m, discardLogger())

	_, err := orch.Checkout(context.Background(), request("buyer-1", "prod-a"))
	require.NoError(t, err)
	_, err = orch.Checkout(context.Background(), request("buyer-2", "prod-a"))
	requireKind(t, err, ErrInsufficientStock)

	got := attemptsByOutcome(t, reader)
	assert.Equal(t, int64(1), got["success"])
	assert.Equal(t, int64(1), got["insufficient_stock"])
}

func TestMetrics_PanickingAttemptIsNotASuccess(t *testing.T) {
	m, reader := newTestMetrics(t)
	h := newHarness(stock("prod-a", 5))
	h.carts.put("buyer-1", line("prod-a", 2))
	orch := NewOrchestrator(panickingCarts{h.carts}, h.catalog, h.ledger, h.payments, h.orders, h.publisher, h.cfg, m, discardLogger())

	assert.Panics(t, func() {
		_, _ = orch.Checkout(context.Background(), request("buyer-1", "prod-a"))
	})

	got := attemptsByOutcome(t, reader)
	assert.Zero(t, got["success"])
	assert.Equal(t, int64(1), got["internal"])
}
