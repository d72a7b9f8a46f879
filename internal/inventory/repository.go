package inventory

import (
	"context"
	"database/sql"
	"errors"

	"github.com/joao-fontenele/marketplace-checkout/internal/domain"
)

type InventoryRepository struct {
	db *sql.DB
}

func NewInventoryRepository(db *sql.DB) *InventoryRepository {
	return &InventoryRepository{db: db}
}

func (r *InventoryRepository) ListAll(ctx context.Context) ([]domain.InventoryRecord, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT product_id, quantity_on_hand, low_stock_threshold
		FROM stock
		ORDER BY product_id
	`)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	var records []domain.InventoryRecord
	for rows.Next() {
		var rec domain.InventoryRecord
		if err := rows.Scan(&rec.ProductID, &rec.QuantityOnHand, &rec.LowStockThreshold); err != nil {
			return nil, err
		}
		records = append(records, rec)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return records, nil
}

func (r *InventoryRepository) Get(ctx context.Context, productID string) (*domain.InventoryRecord, error) {
	rec := &domain.InventoryRecord{}

	err := r.db.QueryRowContext(ctx, `
		SELECT product_id, quantity_on_hand, low_stock_threshold
		FROM stock
		WHERE product_id = $1
	`, productID).Scan(&rec.ProductID, &rec.QuantityOnHand, &rec.LowStockThreshold)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}

	return rec, nil
}

// Reserve decrements stock with a conditional update so the availability
// check and the write are one statement.
func (r *InventoryRepository) Reserve(ctx context.Context, productID string, quantity int) (Reservation, error) {
	if quantity <= 0 {
		return Reservation{}, ErrInvalidQuantity
	}

	res := Reservation{ProductID: productID, Quantity: quantity}
	var threshold int
	err := r.db.QueryRowContext(ctx, `
		UPDATE stock
		SET quantity_on_hand = quantity_on_hand - $2, updated_at = NOW()
		WHERE product_id = $1 AND quantity_on_hand >= $2
		RETURNING quantity_on_hand, low_stock_threshold
	`, productID, quantity).Scan(&res.Remaining, &threshold)
	if err == nil {
		res.LowStock = res.Remaining <= threshold
		return res, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return Reservation{}, err
	}

	rec, err := r.Get(ctx, productID)
	if err != nil {
		return Reservation{}, err
	}
	return Reservation{}, &InsufficientStockError{ProductID: productID, Available: rec.QuantityOnHand}
}

func (r *InventoryRepository) Release(ctx context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	result, err := r.db.ExecContext(ctx, `
		UPDATE stock
		SET quantity_on_hand = quantity_on_hand + $2, updated_at = NOW()
		WHERE product_id = $1
	`, productID, quantity)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return ErrProductNotFound
	}

	return nil
}

func (r *InventoryRepository) SetStock(ctx context.Context, rec domain.InventoryRecord) error {
	if rec.QuantityOnHand < 0 {
		return ErrInvalidQuantity
	}

	_, err := r.db.ExecContext(ctx, `
		INSERT INTO stock (product_id, quantity_on_hand, low_stock_threshold, updated_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT (product_id) DO UPDATE
		SET quantity_on_hand = EXCLUDED.quantity_on_hand,
		    low_stock_threshold = EXCLUDED.low_stock_threshold,
		    updated_at = NOW()
	`, rec.ProductID, rec.QuantityOnHand, rec.LowStockThreshold)
	return err
}
