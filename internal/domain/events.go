package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	TopicOrderCreated       = "order.created"
	TopicOrderStatusChanged = "order.status_changed"
)

type OrderCreatedEvent struct {
	OrderNumber string              `json:"order_number"`
	BuyerID     string              `json:"buyer_id"`
	Lines       []OrderLineSnapshot `json:"lines"`
	Total       decimal.Decimal     `json:"total"`
	Timestamp   time.Time           `json:"timestamp"`
}

type OrderStatusChangedEvent struct {
	OrderNumber string      `json:"order_number"`
	BuyerID     string      `json:"buyer_id"`
	From        OrderStatus `json:"from"`
	To          OrderStatus `json:"to"`
	Note        string      `json:"note,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
}
