package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/joao-fontenele/marketplace-checkout/internal/domain"
	"github.com/joao-fontenele/marketplace-checkout/internal/email"
	"github.com/joao-fontenele/marketplace-checkout/internal/orders"
)

type Notifier interface {
	Send(ctx context.Context, n email.Notification) error
}

type OrderClient interface {
	Get(ctx context.Context, orderNumber string) (*domain.Order, error)
	UpdateStatus(ctx context.Context, orderNumber string, status domain.OrderStatus, note string) error
}

// NotificationHandler reacts to order events after checkout has finished.
// It is never part of the checkout path itself.
type NotificationHandler struct {
	notifier Notifier
	orders   OrderClient
	logger   *slog.Logger
}

func NewNotificationHandler(notifier Notifier, orders OrderClient, logger *slog.Logger) *NotificationHandler {
	return &NotificationHandler{
		notifier: notifier,
		orders:   orders,
		logger:   logger,
	}
}

// HandleOrderCreated mails the buyer and confirms the order. Orders that are
// no longer pending are skipped without mail, so redelivery is a no-op.
func (h *NotificationHandler) HandleOrderCreated(ctx context.Context, payload []byte) error {
	var event domain.OrderCreatedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order created event: %w", err)
	}

	h.logger.InfoContext(ctx, "processing order created event", "order_number", event.OrderNumber, "buyer_id", event.BuyerID)

	order, err := h.orders.Get(ctx, event.OrderNumber)
	switch {
	case errors.Is(err, orders.ErrOrderNotFound):
		h.logger.WarnContext(ctx, "order created event for unknown order", "order_number", event.OrderNumber)
		return nil
	case err != nil:
		return fmt.Errorf("load order: %w", err)
	case order.Status != domain.OrderStatusPending:
		h.logger.InfoContext(ctx, "order already past pending", "order_number", event.OrderNumber, "status", order.Status)
		return nil
	}

	err = h.notifier.Send(ctx, email.Notification{
		BuyerID:     event.BuyerID,
		OrderNumber: event.OrderNumber,
		Kind:        email.KindConfirmation,
		Total:       event.Total.StringFixed(2),
	})
	if err != nil {
		return fmt.Errorf("send confirmation email: %w", err)
	}

	err = h.orders.UpdateStatus(ctx, event.OrderNumber, domain.OrderStatusConfirmed, "confirmation sent")
	switch {
	case errors.Is(err, orders.ErrIllegalTransition):
		h.logger.InfoContext(ctx, "order already past pending", "order_number", event.OrderNumber)
	case err != nil:
		return fmt.Errorf("confirm order: %w", err)
	}

	h.logger.InfoContext(ctx, "order processing complete", "order_number", event.OrderNumber)
	return nil
}

// HandleStatusChanged mails the buyer when an order is cancelled.
func (h *NotificationHandler) HandleStatusChanged(ctx context.Context, payload []byte) error {
	var event domain.OrderStatusChangedEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return fmt.Errorf("unmarshal order status changed event: %w", err)
	}

	if event.To != domain.OrderStatusCancelled {
		return nil
	}

	err := h.notifier.Send(ctx, email.Notification{
		BuyerID:     event.BuyerID,
		OrderNumber: event.OrderNumber,
		Kind:        email.KindCancellation,
		Reason:      event.Note,
	})
	if err != nil {
		return fmt.Errorf("send cancellation email: %w", err)
	}

	h.logger.InfoContext(ctx, "cancellation email sent", "order_number", event.OrderNumber)
	return nil
}
