package orders

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/joao-fontenele/marketplace-checkout/internal/domain"
	"github.com/joao-fontenele/marketplace-checkout/internal/payment"
)

var (
	ErrInvalidStatus = errors.New("unknown order status")
	ErrRefundFailed  = errors.New("refund failed")
	// ErrNotRefundable is returned when a refund is retried on an order that
	// is neither cancelled nor returned.
	ErrNotRefundable = errors.New("order is not cancelled or returned")
)

type Store interface {
	GetByNumber(ctx context.Context, orderNumber string) (*domain.Order, error)
	List(ctx context.Context, buyerID string) ([]domain.Order, error)
	AppendTransition(ctx context.Context, orderNumber string, next domain.OrderStatus, entry domain.TimelineEntry) (domain.OrderStatus, error)
	SetPaymentStatus(ctx context.Context, orderNumber string, status domain.PaymentStatus) error
}

type StockReleaser interface {
	Release(ctx context.Context, productID string, quantity int) error
}

type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

// Service applies post-checkout status transitions. Cancelling or returning
// a paid order refunds the original transaction; cancelling also puts the
// stock back.
type Service struct {
	store     Store
	payments  payment.Gateway
	stock     StockReleaser
	publisher Publisher
	logger    *slog.Logger
	now       func() time.Time
}

// NewService builds a Service. publisher may be nil.
func NewService(store Store, payments payment.Gateway, stock StockReleaser, publisher Publisher, logger *slog.Logger) *Service {
	return &Service{
		store:     store,
		payments:  payments,
		stock:     stock,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) Get(ctx context.Context, orderNumber string) (*domain.Order, error) {
	return s.store.GetByNumber(ctx, orderNumber)
}

func (s *Service) List(ctx context.Context, buyerID string) ([]domain.Order, error) {
	return s.store.List(ctx, buyerID)
}

func (s *Service) Transition(ctx context.Context, orderNumber string, next domain.OrderStatus, note string) (*domain.Order, error) {
	if !next.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidStatus, next)
	}

	order, err := s.store.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}

	from, err := s.store.AppendTransition(ctx, orderNumber, next, domain.TimelineEntry{
		Timestamp: s.now().UTC(),
		Note:      note,
	})
	if err != nil {
		return nil, err
	}

	s.logger.InfoContext(ctx, "order status changed", "order_number", orderNumber, "from", from, "to", next)

	var refundErr error
	if next == domain.OrderStatusCancelled || next == domain.OrderStatusReturned {
		refundErr = s.refund(ctx, order, next)
	}
	if next == domain.OrderStatusCancelled {
		s.restock(ctx, order)
	}

	s.publish(ctx, order, from, next, note)

	updated, err := s.store.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	return updated, refundErr
}

// RetryRefund reissues the refund for a cancelled or returned order whose
// earlier refund failed. The original transaction id is reused, so an order
// that is already refunded or never paid comes back unchanged.
func (s *Service) RetryRefund(ctx context.Context, orderNumber string) (*domain.Order, error) {
	order, err := s.store.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	if order.Status != domain.OrderStatusCancelled && order.Status != domain.OrderStatusReturned {
		return nil, fmt.Errorf("%w: status is %s", ErrNotRefundable, order.Status)
	}

	s.logger.InfoContext(ctx, "retrying refund", "order_number", orderNumber, "payment_status", order.Payment.Status)
	refundErr := s.refund(ctx, order, order.Status)

	updated, err := s.store.GetByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	return updated, refundErr
}

// refund reverses the original charge. Orders whose payment never
// completed have nothing to refund.
func (s *Service) refund(ctx context.Context, order *domain.Order, next domain.OrderStatus) error {
	if order.Payment.Status != domain.PaymentStatusCompleted || order.Payment.TransactionID == "" {
		return nil
	}

	result, err := s.payments.Refund(ctx, payment.RefundRequest{
		TransactionID: order.Payment.TransactionID,
		Amount:        order.Pricing.Total,
		Reason:        "order " + string(next),
	})
	if err != nil && !errors.Is(err, payment.ErrAlreadyRefunded) {
		s.logger.ErrorContext(ctx, "refund failed", "order_number", order.OrderNumber,
			"transaction_id", order.Payment.TransactionID, "error", err)
		return fmt.Errorf("%w: %w", ErrRefundFailed, err)
	}

	if err := s.store.SetPaymentStatus(ctx, order.OrderNumber, domain.PaymentStatusRefunded); err != nil {
		s.logger.ErrorContext(ctx, "failed to mark payment refunded", "order_number", order.OrderNumber, "error", err)
		return fmt.Errorf("%w: %w", ErrRefundFailed, err)
	}

	s.logger.InfoContext(ctx, "payment refunded", "order_number", order.OrderNumber,
		"transaction_id", order.Payment.TransactionID, "refund_id", result.RefundID)
	return nil
}

func (s *Service) restock(ctx context.Context, order *domain.Order) {
	for productID, qty := range order.ReservedQuantities() {
		if err := s.stock.Release(ctx, productID, qty); err != nil {
			s.logger.ErrorContext(ctx, "failed to restock cancelled order line",
				"order_number", order.OrderNumber, "product_id", productID, "quantity", qty, "error", err)
		}
	}
}

func (s *Service) publish(ctx context.Context, order *domain.Order, from, to domain.OrderStatus, note string) {
	if s.publisher == nil {
		return
	}
	event := domain.OrderStatusChangedEvent{
		OrderNumber: order.OrderNumber,
		BuyerID:     order.BuyerID,
		From:        from,
		To:          to,
		Note:        note,
		Timestamp:   s.now().UTC(),
	}
	if err := s.publisher.Publish(ctx, order.OrderNumber, event); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish order status changed event", "error", err, "order_number", order.OrderNumber)
	}
}
