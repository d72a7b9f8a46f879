package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusConfirmed  OrderStatus = "confirmed"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
	OrderStatusReturned   OrderStatus = "returned"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusConfirmed, OrderStatusCancelled},
	OrderStatusConfirmed:  {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
	OrderStatusDelivered:  {OrderStatusReturned},
}

func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusProcessing, OrderStatusShipped,
		OrderStatusDelivered, OrderStatusCancelled, OrderStatusReturned:
		return true
	}
	return false
}

// CanTransitionTo reports whether an order in status s may move to next.
// Cancelled and returned are terminal.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type PaymentMethod string

const (
	PaymentMethodCreditCard   PaymentMethod = "credit_card"
	PaymentMethodDebitCard    PaymentMethod = "debit_card"
	PaymentMethodPayPal       PaymentMethod = "paypal"
	PaymentMethodBankTransfer PaymentMethod = "bank_transfer"
)

func (m PaymentMethod) Valid() bool {
	switch m {
	case PaymentMethodCreditCard, PaymentMethodDebitCard, PaymentMethodPayPal, PaymentMethodBankTransfer:
		return true
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending   PaymentStatus = "pending"
	PaymentStatusCompleted PaymentStatus = "completed"
	PaymentStatusFailed    PaymentStatus = "failed"
	PaymentStatusRefunded  PaymentStatus = "refunded"
	PaymentStatusCancelled PaymentStatus = "cancelled"
)

type Payment struct {
	Method        PaymentMethod `json:"method"`
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transaction_id,omitempty"`
	PaidAt        *time.Time    `json:"paid_at,omitempty"`
}

type Pricing struct {
	Subtotal decimal.Decimal `json:"subtotal"`
	Tax      decimal.Decimal `json:"tax"`
	Shipping decimal.Decimal `json:"shipping"`
	Discount decimal.Decimal `json:"discount"`
	Total    decimal.Decimal `json:"total"`
}

// OrderLineSnapshot holds product facts as they were when the order was
// placed. Later catalog edits never touch it.
type OrderLineSnapshot struct {
	ProductID             string          `json:"product_id"`
	SellerID              string          `json:"seller_id"`
	Quantity              int             `json:"quantity"`
	UnitPriceAtPurchase   decimal.Decimal `json:"unit_price_at_purchase"`
	NameAtPurchase        string          `json:"name_at_purchase"`
	DescriptionAtPurchase string          `json:"description_at_purchase"`
	ImageAtPurchase       string          `json:"image_at_purchase"`
}

func (l OrderLineSnapshot) LineTotal() decimal.Decimal {
	return l.UnitPriceAtPurchase.Mul(decimal.NewFromInt(int64(l.Quantity)))
}

type TimelineEntry struct {
	Status    OrderStatus `json:"status"`
	Timestamp time.Time   `json:"timestamp"`
	Note      string      `json:"note,omitempty"`
}

type Order struct {
	OrderNumber     string              `json:"order_number"`
	BuyerID         string              `json:"buyer_id"`
	Lines           []OrderLineSnapshot `json:"lines"`
	Pricing         Pricing             `json:"pricing"`
	Payment         Payment             `json:"payment"`
	ShippingAddress ShippingAddress     `json:"shipping_address"`
	Status          OrderStatus         `json:"status"`
	Timeline        []TimelineEntry     `json:"timeline"`
	CreatedAt       time.Time           `json:"created_at"`
}

// ReservedQuantities sums line quantities per product.
func (o *Order) ReservedQuantities() map[string]int {
	out := make(map[string]int, len(o.Lines))
	for _, l := range o.Lines {
		out[l.ProductID] += l.Quantity
	}
	return out
}
