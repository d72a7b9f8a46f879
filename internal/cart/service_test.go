package cart

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joao-fontenele/marketplace-checkout/internal/catalog"
	"github.com/joao-fontenele/marketplace-checkout/internal/domain"
	"github.com/joao-fontenele/marketplace-checkout/internal/pricing"
)

type fakeCatalog struct {
	prices  map[string]decimal.Decimal
	coupons map[string]decimal.Decimal
}

func (f *fakeCatalog) GetProduct(_ context.Context, productID string) (*domain.Product, error) {
	price, ok := f.prices[productID]
	if !ok {
		return nil, catalog.ErrProductNotFound
	}
	return &domain.Product{ID: productID, Price: price, Active: true}, nil
}

func (f *fakeCatalog) CurrentPrice(ctx context.Context, productID string) (decimal.Decimal, error) {
	p, err := f.GetProduct(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	return p.Price, nil
}

func (f *fakeCatalog) CouponPercent(_ context.Context, code string) (decimal.Decimal, error) {
	pct, ok := f.coupons[code]
	if !ok {
		return decimal.Zero, catalog.ErrCouponNotFound
	}
	return pct, nil
}

func newTestService(t *testing.T) (*Service, *fakeCatalog) {
	t.Helper()
	store, _ := setupTestRedis(t)
	cat := &fakeCatalog{
		prices: map[string]decimal.Decimal{
			"p1": decimal.RequireFromString("10"),
			"p2": decimal.RequireFromString("50"),
		},
		coupons: map[string]decimal.Decimal{"SAVE10": decimal.NewFromInt(10)},
	}
	return NewService(store, cat, pricing.DefaultPolicy(), slog.New(slog.NewTextHandler(io.Discard, nil))), cat
}

func TestService_AddMergesQuantity(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "buyer-1", "p1", 2)
	require.NoError(t, err)
	cart, err := svc.Add(ctx, "buyer-1", "p1", 3)
	require.NoError(t, err)

	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 5, cart.Lines[0].Quantity)
}

func TestService_AddValidates(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "buyer-1", "p1", 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	_, err = svc.Add(ctx, "buyer-1", "unknown", 1)
	assert.ErrorIs(t, err, catalog.ErrProductNotFound)
}

func TestService_UpdateAndRemove(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.UpdateQuantity(ctx, "buyer-1", "p1", 2)
	assert.ErrorIs(t, err, ErrLineNotFound)

	_, err = svc.Add(ctx, "buyer-1", "p1", 1)
	require.NoError(t, err)

	cart, err := svc.UpdateQuantity(ctx, "buyer-1", "p1", 7)
	require.NoError(t, err)
	assert.Equal(t, 7, cart.Lines[0].Quantity)

	_, err = svc.UpdateQuantity(ctx, "buyer-1", "p1", 0)
	assert.ErrorIs(t, err, ErrInvalidQuantity)

	cart, err = svc.Remove(ctx, "buyer-1", "p1")
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)

	_, err = svc.Remove(ctx, "buyer-1", "p1")
	assert.ErrorIs(t, err, ErrLineNotFound)
}

func TestService_SaveForLaterRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "buyer-1", "p1", 2)
	require.NoError(t, err)

	cart, err := svc.SaveForLater(ctx, "buyer-1", "p1")
	require.NoError(t, err)
	assert.Empty(t, cart.Lines)
	assert.Equal(t, []string{"p1"}, cart.SavedForLater)

	cart, err = svc.MoveToCart(ctx, "buyer-1", "p1")
	require.NoError(t, err)
	require.Len(t, cart.Lines, 1)
	assert.Equal(t, 1, cart.Lines[0].Quantity)

	_, err = svc.MoveToCart(ctx, "buyer-1", "p1")
	assert.ErrorIs(t, err, ErrNotSaved)
}

func TestService_PreviewUsesCurrentPrices(t *testing.T) {
	svc, cat := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "buyer-1", "p1", 2)
	require.NoError(t, err)
	cat.prices["p1"] = decimal.RequireFromString("12")

	preview, err := svc.Preview(ctx, "buyer-1")
	require.NoError(t, err)
	require.Len(t, preview.Lines, 1)
	assert.True(t, preview.Lines[0].UnitPrice.Equal(decimal.RequireFromString("12")))
	assert.True(t, preview.Pricing.Subtotal.Equal(decimal.RequireFromString("24")))
	assert.True(t, preview.Pricing.Shipping.Equal(decimal.RequireFromString("5.99")))
}

func TestService_PreviewAppliesCoupons(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	_, err := svc.Add(ctx, "buyer-1", "p2", 2)
	require.NoError(t, err)
	_, err = svc.ApplyCoupon(ctx, "buyer-1", "SAVE10")
	require.NoError(t, err)

	_, err = svc.ApplyCoupon(ctx, "buyer-1", "BOGUS")
	assert.ErrorIs(t, err, catalog.ErrCouponNotFound)

	preview, err := svc.Preview(ctx, "buyer-1")
	require.NoError(t, err)
	assert.True(t, preview.Pricing.Discount.Equal(decimal.NewFromInt(10)), preview.Pricing.Discount.String())
	assert.True(t, preview.Pricing.Shipping.IsZero())
	assert.True(t, preview.Pricing.Total.Equal(decimal.RequireFromString("98.50")), preview.Pricing.Total.String())

	cart, err := svc.RemoveCoupon(ctx, "buyer-1", "SAVE10")
	require.NoError(t, err)
	assert.Empty(t, cart.AppliedCoupons)
}
