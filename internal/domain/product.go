package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID           string           `json:"id"`
	SellerID     string           `json:"seller_id"`
	Name         string           `json:"name"`
	Description  string           `json:"description"`
	ImageURL     string           `json:"image_url"`
	Price        decimal.Decimal  `json:"price"`
	SalePrice    *decimal.Decimal `json:"sale_price,omitempty"`
	SaleStartsAt *time.Time       `json:"sale_starts_at,omitempty"`
	SaleEndsAt   *time.Time       `json:"sale_ends_at,omitempty"`
	Active       bool             `json:"active"`
}

// PriceAt returns the sale price when t falls inside the sale window,
// otherwise the list price. An open-ended window has no end bound.
func (p *Product) PriceAt(t time.Time) decimal.Decimal {
	if p.SalePrice == nil {
		return p.Price
	}
	if p.SaleStartsAt != nil && t.Before(*p.SaleStartsAt) {
		return p.Price
	}
	if p.SaleEndsAt != nil && !t.Before(*p.SaleEndsAt) {
		return p.Price
	}
	return *p.SalePrice
}
