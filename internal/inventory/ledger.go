package inventory

import (
	"context"
	"errors"
	"fmt"

	"github.com/joao-fontenele/marketplace-checkout/internal/domain"
)

var (
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrProductNotFound   = errors.New("product not found")
	ErrInvalidQuantity   = errors.New("quantity must be positive")
)

// InsufficientStockError reports how much stock was on hand when a
// reservation was rejected.
type InsufficientStockError struct {
	ProductID string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for product %s: %d available", e.ProductID, e.Available)
}

func (e *InsufficientStockError) Unwrap() error {
	return ErrInsufficientStock
}

type Reservation struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
	Remaining int    `json:"remaining"`
	LowStock  bool   `json:"low_stock"`
}

// Ledger owns per-product stock counts. Reserve checks and decrements in a
// single indivisible step and never reserves partially. Release is the
// compensating increment.
type Ledger interface {
	Reserve(ctx context.Context, productID string, quantity int) (Reservation, error)
	Release(ctx context.Context, productID string, quantity int) error
	Get(ctx context.Context, productID string) (*domain.InventoryRecord, error)
}
