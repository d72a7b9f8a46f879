package pricing

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/marketplace-checkout/internal/catalog"
)

type CouponSource interface {
	CouponPercent(ctx context.Context, code string) (decimal.Decimal, error)
}

// CouponDiscount resolves applied coupon codes into a discount on subtotal.
// Codes that no longer resolve are skipped. Any other lookup failure is
// returned so the caller never prices without a coupon the buyer holds.
func CouponDiscount(ctx context.Context, coupons CouponSource, logger *slog.Logger, codes []string, subtotal decimal.Decimal) (decimal.Decimal, error) {
	if coupons == nil || len(codes) == 0 {
		return decimal.Zero, nil
	}

	percents := make([]decimal.Decimal, 0, len(codes))
	for _, code := range codes {
		pct, err := coupons.CouponPercent(ctx, code)
		if errors.Is(err, catalog.ErrCouponNotFound) {
			logger.WarnContext(ctx, "skipping coupon", "code", code, "error", err)
			continue
		}
		if err != nil {
			return decimal.Zero, fmt.Errorf("resolve coupon %s: %w", code, err)
		}
		percents = append(percents, pct)
	}
	return PercentDiscount(subtotal, percents...), nil
}
