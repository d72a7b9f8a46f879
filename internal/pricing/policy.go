package pricing

import (
	"fmt"
	"os"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/marketplace-checkout/internal/domain"
)

// Policy is the single source of tax and shipping rules. The cart preview
// and checkout both quote through it.
type Policy struct {
	TaxRate               decimal.Decimal
	ShippingFee           decimal.Decimal
	FreeShippingThreshold decimal.Decimal
}

func DefaultPolicy() Policy {
	return Policy{
		TaxRate:               decimal.RequireFromString("0.085"),
		ShippingFee:           decimal.RequireFromString("5.99"),
		FreeShippingThreshold: decimal.RequireFromString("50.00"),
	}
}

// PolicyFromEnv overrides the defaults with TAX_RATE, SHIPPING_FEE and
// FREE_SHIPPING_THRESHOLD when set.
func PolicyFromEnv() (Policy, error) {
	p := DefaultPolicy()

	vars := []struct {
		name string
		dst  *decimal.Decimal
	}{
		{"TAX_RATE", &p.TaxRate},
		{"SHIPPING_FEE", &p.ShippingFee},
		{"FREE_SHIPPING_THRESHOLD", &p.FreeShippingThreshold},
	}
	for _, v := range vars {
		raw := os.Getenv(v.name)
		if raw == "" {
			continue
		}
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return Policy{}, fmt.Errorf("parse %s: %w", v.name, err)
		}
		if d.IsNegative() {
			return Policy{}, fmt.Errorf("%s must not be negative", v.name)
		}
		*v.dst = d
	}

	return p, nil
}

type Line struct {
	UnitPrice decimal.Decimal
	Quantity  int
}

func Subtotal(lines []Line) decimal.Decimal {
	subtotal := decimal.Zero
	for _, l := range lines {
		subtotal = subtotal.Add(l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return subtotal
}

// Quote prices lines. Tax is charged on the subtotal before discount and
// rounded to cents; the discount never exceeds the subtotal.
func (p Policy) Quote(lines []Line, discount decimal.Decimal) domain.Pricing {
	subtotal := Subtotal(lines)
	tax := subtotal.Mul(p.TaxRate).Round(2)

	shipping := p.ShippingFee
	if subtotal.IsZero() || subtotal.GreaterThanOrEqual(p.FreeShippingThreshold) {
		shipping = decimal.Zero
	}

	if discount.IsNegative() {
		discount = decimal.Zero
	}
	if discount.GreaterThan(subtotal) {
		discount = subtotal
	}
	discount = discount.Round(2)

	return domain.Pricing{
		Subtotal: subtotal,
		Tax:      tax,
		Shipping: shipping,
		Discount: discount,
		Total:    subtotal.Add(tax).Add(shipping).Sub(discount),
	}
}

// PercentDiscount sums percent-off values and applies them to subtotal,
// capped at 100%.
func PercentDiscount(subtotal decimal.Decimal, percents ...decimal.Decimal) decimal.Decimal {
	total := decimal.Zero
	for _, pct := range percents {
		total = total.Add(pct)
	}
	hundred := decimal.NewFromInt(100)
	if total.GreaterThan(hundred) {
		total = hundred
	}
	return subtotal.Mul(total).Div(hundred).Round(2)
}
