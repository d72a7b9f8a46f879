package orders

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/joao-fontenele/marketplace-checkout/internal/domain"
)

var (
	ErrOrderNotFound        = errors.New("order not found")
	ErrDuplicateOrderNumber = errors.New("duplicate order number")
	ErrIllegalTransition    = errors.New("illegal order status transition")
	ErrNotDiscardable       = errors.New("order has progressed past creation")
)

const uniqueViolation = "23505"

type OrderRepository struct {
	db *sql.DB
}

func NewOrderRepository(db *sql.DB) *OrderRepository {
	return &OrderRepository{db: db}
}

// Create writes the order, its line snapshots and its timeline in one
// transaction.
func (r *OrderRepository) Create(ctx context.Context, order *domain.Order) error {
	address, err := json.Marshal(order.ShippingAddress)
	if err != nil {
		return fmt.Errorf("marshal shipping address: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO orders (order_number, buyer_id, status, subtotal, tax, shipping, discount, total,
		                    payment_method, payment_status, transaction_id, paid_at, shipping_address,
		                    created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $14)
	`, order.OrderNumber, order.BuyerID, order.Status,
		order.Pricing.Subtotal, order.Pricing.Tax, order.Pricing.Shipping, order.Pricing.Discount, order.Pricing.Total,
		order.Payment.Method, order.Payment.Status, order.Payment.TransactionID, order.Payment.PaidAt, address,
		order.CreatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
			return ErrDuplicateOrderNumber
		}
		return err
	}

	for i, line := range order.Lines {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO order_lines (id, order_number, position, product_id, seller_id, quantity,
			                         unit_price, name, description, image_url)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		`, uuid.New().String(), order.OrderNumber, i, line.ProductID, line.SellerID, line.Quantity,
			line.UnitPriceAtPurchase, line.NameAtPurchase, line.DescriptionAtPurchase, line.ImageAtPurchase)
		if err != nil {
			return err
		}
	}

	for _, entry := range order.Timeline {
		if err := insertTimeline(ctx, tx, order.OrderNumber, entry); err != nil {
			return err
		}
	}

	return tx.Commit()
}

func insertTimeline(ctx context.Context, tx *sql.Tx, orderNumber string, entry domain.TimelineEntry) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO order_timeline (id, order_number, status, note, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.New().String(), orderNumber, entry.Status, entry.Note, entry.Timestamp)
	return err
}

const orderColumns = `
	order_number, buyer_id, status, subtotal, tax, shipping, discount, total,
	payment_method, payment_status, transaction_id, paid_at, shipping_address, created_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanOrder(row rowScanner) (*domain.Order, error) {
	order := &domain.Order{}
	var (
		paidAt  sql.NullTime
		address []byte
	)
	err := row.Scan(&order.OrderNumber, &order.BuyerID, &order.Status,
		&order.Pricing.Subtotal, &order.Pricing.Tax, &order.Pricing.Shipping, &order.Pricing.Discount, &order.Pricing.Total,
		&order.Payment.Method, &order.Payment.Status, &order.Payment.TransactionID, &paidAt, &address, &order.CreatedAt)
	if err != nil {
		return nil, err
	}
	if paidAt.Valid {
		order.Payment.PaidAt = &paidAt.Time
	}
	if err := json.Unmarshal(address, &order.ShippingAddress); err != nil {
		return nil, fmt.Errorf("unmarshal shipping address: %w", err)
	}
	order.Lines = []domain.OrderLineSnapshot{}
	order.Timeline = []domain.TimelineEntry{}
	return order, nil
}

func (r *OrderRepository) GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	order, err := scanOrder(r.db.QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders WHERE order_number = $1`, orderNumber))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}

	byNumber := map[string]*domain.Order{order.OrderNumber: order}
	if err := r.loadDetails(ctx, byNumber, []string{order.OrderNumber}); err != nil {
		return nil, err
	}

	return order, nil
}

// List returns orders newest first, optionally limited to one buyer. Lines
// and timelines are loaded with one query each.
func (r *OrderRepository) List(ctx context.Context, buyerID string) ([]domain.Order, error) {
	query := `SELECT ` + orderColumns + ` FROM orders`
	var args []any
	if buyerID != "" {
		query += ` WHERE buyer_id = $1`
		args = append(args, buyerID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer func() { _ = rows.Close() }()

	orderMap := make(map[string]*domain.Order)
	var orderNumbers []string

	for rows.Next() {
		order, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orderMap[order.OrderNumber] = order
		orderNumbers = append(orderNumbers, order.OrderNumber)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	if len(orderNumbers) == 0 {
		return []domain.Order{}, nil
	}

	if err := r.loadDetails(ctx, orderMap, orderNumbers); err != nil {
		return nil, err
	}

	orders := make([]domain.Order, 0, len(orderNumbers))
	for _, n := range orderNumbers {
		orders = append(orders, *orderMap[n])
	}

	return orders, nil
}

func (r *OrderRepository) loadDetails(ctx context.Context, orderMap map[string]*domain.Order, orderNumbers []string) error {
	lineRows, err := r.db.QueryContext(ctx, `
		SELECT order_number, product_id, seller_id, quantity, unit_price, name, description, image_url
		FROM order_lines
		WHERE order_number = ANY($1)
		ORDER BY order_number, position
	`, pq.Array(orderNumbers))
	if err != nil {
		return err
	}
	defer func() { _ = lineRows.Close() }()

	for lineRows.Next() {
		var n string
		var l domain.OrderLineSnapshot
		if err := lineRows.Scan(&n, &l.ProductID, &l.SellerID, &l.Quantity, &l.UnitPriceAtPurchase,
			&l.NameAtPurchase, &l.DescriptionAtPurchase, &l.ImageAtPurchase); err != nil {
			return err
		}
		order := orderMap[n]
		order.Lines = append(order.Lines, l)
	}
	if err := lineRows.Err(); err != nil {
		return err
	}

	timelineRows, err := r.db.QueryContext(ctx, `
		SELECT order_number, status, note, created_at
		FROM order_timeline
		WHERE order_number = ANY($1)
		ORDER BY order_number, created_at, seq
	`, pq.Array(orderNumbers))
	if err != nil {
		return err
	}
	defer func() { _ = timelineRows.Close() }()

	for timelineRows.Next() {
		var n string
		var e domain.TimelineEntry
		if err := timelineRows.Scan(&n, &e.Status, &e.Note, &e.Timestamp); err != nil {
			return err
		}
		order := orderMap[n]
		order.Timeline = append(order.Timeline, e)
	}

	return timelineRows.Err()
}

// AppendTransition moves the order to next and records it on the timeline.
// The order row is locked for the duration so concurrent transitions
// serialize.
func (r *OrderRepository) AppendTransition(ctx context.Context, orderNumber string, next domain.OrderStatus, entry domain.TimelineEntry) (domain.OrderStatus, error) {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer func() { _ = tx.Rollback() }()

	var current domain.OrderStatus
	err = tx.QueryRowContext(ctx, `
		SELECT status FROM orders WHERE order_number = $1 FOR UPDATE
	`, orderNumber).Scan(&current)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", ErrOrderNotFound
		}
		return "", err
	}

	if !current.CanTransitionTo(next) {
		return current, fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, current, next)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE orders SET status = $1, updated_at = NOW()
		WHERE order_number = $2
	`, next, orderNumber); err != nil {
		return current, err
	}

	entry.Status = next
	if err := insertTimeline(ctx, tx, orderNumber, entry); err != nil {
		return current, err
	}

	return current, tx.Commit()
}

func (r *OrderRepository) SetPaymentStatus(ctx context.Context, orderNumber string, status domain.PaymentStatus) error {
	result, err := r.db.ExecContext(ctx, `
		UPDATE orders SET payment_status = $1, updated_at = NOW()
		WHERE order_number = $2
	`, status, orderNumber)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// Discard removes an order that has not moved past its creation entry. It
// exists only to undo a checkout whose later steps failed.
func (r *OrderRepository) Discard(ctx context.Context, orderNumber string) error {
	result, err := r.db.ExecContext(ctx, `
		DELETE FROM orders o
		WHERE o.order_number = $1
		  AND (SELECT count(*) FROM order_timeline t WHERE t.order_number = o.order_number) <= 1
	`, orderNumber)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrNotDiscardable
	}
	return nil
}
