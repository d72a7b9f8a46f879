package catalog

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/marketplace-checkout/internal/domain"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrCouponNotFound  = errors.New("coupon not found")
)

// Repository reads the product catalog. It is the authoritative price
// source: CurrentPrice always reflects the live catalog row.
type Repository struct {
	db  *sql.DB
	now func() time.Time
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db, now: time.Now}
}

func (r *Repository) GetProduct(ctx context.Context, productID string) (*domain.Product, error) {
	p := &domain.Product{}
	var (
		salePrice  decimal.NullDecimal
		saleStarts sql.NullTime
		saleEnds   sql.NullTime
	)

	err := r.db.QueryRowContext(ctx, `
		SELECT id, seller_id, name, description, image_url, price,
		       sale_price, sale_starts_at, sale_ends_at, active
		FROM products
		WHERE id = $1
	`, productID).Scan(
		&p.ID, &p.SellerID, &p.Name, &p.Description, &p.ImageURL, &p.Price,
		&salePrice, &saleStarts, &saleEnds, &p.Active,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	if salePrice.Valid {
		p.SalePrice = &salePrice.Decimal
	}
	if saleStarts.Valid {
		p.SaleStartsAt = &saleStarts.Time
	}
	if saleEnds.Valid {
		p.SaleEndsAt = &saleEnds.Time
	}

	if !p.Active {
		return nil, ErrProductNotFound
	}

	return p, nil
}

func (r *Repository) CurrentPrice(ctx context.Context, productID string) (decimal.Decimal, error) {
	p, err := r.GetProduct(ctx, productID)
	if err != nil {
		return decimal.Zero, err
	}
	return p.PriceAt(r.now()), nil
}

func (r *Repository) CouponPercent(ctx context.Context, code string) (decimal.Decimal, error) {
	var pct decimal.Decimal
	err := r.db.QueryRowContext(ctx, `
		SELECT percent_off
		FROM coupons
		WHERE code = $1 AND active
	`, code).Scan(&pct)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return decimal.Zero, ErrCouponNotFound
		}
		return decimal.Zero, err
	}
	return pct, nil
}
