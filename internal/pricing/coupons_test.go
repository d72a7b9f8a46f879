package pricing

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/marketplace-checkout/internal/catalog"
)

type couponTable struct {
	percents map[string]decimal.Decimal
	err      error
}

func (c couponTable) CouponPercent(_ context.Context, code string) (decimal.Decimal, error) {
	if c.err != nil {
		return decimal.Zero, c.err
	}
	pct, ok := c.percents[code]
	if !ok {
		return decimal.Zero, catalog.ErrCouponNotFound
	}
	return pct, nil
}

func TestCouponDiscount(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	subtotal := decimal.NewFromInt(200)

	t.Run("skips unknown codes", func(t *testing.T) {
		src := couponTable{percents: map[string]decimal.Decimal{"SAVE10": decimal.NewFromInt(10)}}

		got, err := CouponDiscount(context.Background(), src, logger, []string{"SAVE10", "GONE"}, subtotal)
		require.NoError(t, err)
		assert.True(t, got.Equal(decimal.NewFromInt(20)), got.String())
	})

	t.Run("returns lookup failures", func(t *testing.T) {
		src := couponTable{err: errors.New("connection refused")}

		_, err := CouponDiscount(context.Background(), src, logger, []string{"SAVE10"}, subtotal)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "SAVE10")
	})

	t.Run("no codes", func(t *testing.T) {
		got, err := CouponDiscount(context.Background(), couponTable{}, logger, nil, subtotal)
		require.NoError(t, err)
		assert.True(t, got.IsZero())
	})
}
