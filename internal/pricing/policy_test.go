package pricing

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func TestPolicy_Quote(t *testing.T) {
	p := DefaultPolicy()

	t.Run("below threshold charges shipping", func(t *testing.T) {
		got := p.Quote([]Line{{UnitPrice: d("30"), Quantity: 1}}, decimal.Zero)

		assert.True(t, got.Subtotal.Equal(d("30")), got.Subtotal.String())
		assert.True(t, got.Tax.Equal(d("2.55")), got.Tax.String())
		assert.True(t, got.Shipping.Equal(d("5.99")), got.Shipping.String())
		assert.True(t, got.Total.Equal(d("38.54")), got.Total.String())
	})

	t.Run("threshold waives shipping", func(t *testing.T) {
		got := p.Quote([]Line{{UnitPrice: d("10"), Quantity: 2}, {UnitPrice: d("30"), Quantity: 1}}, decimal.Zero)

		assert.True(t, got.Subtotal.Equal(d("50")))
		assert.True(t, got.Shipping.IsZero())
		assert.True(t, got.Total.Equal(d("54.25")), got.Total.String())
	})

	t.Run("discount is capped at subtotal", func(t *testing.T) {
		got := p.Quote([]Line{{UnitPrice: d("4"), Quantity: 1}}, d("10"))

		assert.True(t, got.Discount.Equal(d("4")))
		assert.True(t, got.Total.Equal(d("6.33")), got.Total.String())
	})

	t.Run("empty quote is zero", func(t *testing.T) {
		got := p.Quote(nil, decimal.Zero)
		assert.True(t, got.Total.IsZero())
	})
}

func TestPercentDiscount(t *testing.T) {
	assert.True(t, PercentDiscount(d("80"), d("10")).Equal(d("8")))
	assert.True(t, PercentDiscount(d("80"), d("60"), d("60")).Equal(d("80")))
	assert.True(t, PercentDiscount(d("80")).IsZero())
}

func TestPolicyFromEnv(t *testing.T) {
	t.Setenv("TAX_RATE", "0.08")
	t.Setenv("FREE_SHIPPING_THRESHOLD", "75")

	p, err := PolicyFromEnv()
	require.NoError(t, err)
	assert.True(t, p.TaxRate.Equal(d("0.08")))
	assert.True(t, p.FreeShippingThreshold.Equal(d("75")))
	assert.True(t, p.ShippingFee.Equal(d("5.99")))

	t.Setenv("SHIPPING_FEE", "-1")
	_, err = PolicyFromEnv()
	assert.Error(t, err)
}
