package payment

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/marketplace-checkout/internal/domain"
)

var (
	ErrUnavailable         = errors.New("payment gateway unavailable")
	ErrTransactionNotFound = errors.New("transaction not found")
	ErrAlreadyRefunded     = errors.New("transaction already refunded")
)

type ChargeRequest struct {
	Reference string               `json:"reference"`
	BuyerID   string               `json:"buyer_id"`
	Amount    decimal.Decimal      `json:"amount"`
	Method    domain.PaymentMethod `json:"method"`
}

// ChargeResult is returned for every charge the gateway answered. A decline
// is a result, not an error.
type ChargeResult struct {
	Approved      bool   `json:"approved"`
	TransactionID string `json:"transaction_id,omitempty"`
	Reason        string `json:"reason,omitempty"`
}

type RefundRequest struct {
	TransactionID string          `json:"transaction_id"`
	Amount        decimal.Decimal `json:"amount"`
	Reason        string          `json:"reason,omitempty"`
}

type RefundResult struct {
	RefundID      string `json:"refund_id"`
	TransactionID string `json:"transaction_id"`
}

// VoidRequest cancels whatever charge carries Reference, including one the
// gateway has not captured yet. A later charge with the same reference is
// refused.
type VoidRequest struct {
	Reference string `json:"reference"`
	Reason    string `json:"reason,omitempty"`
}

// VoidResult names the transaction that was reversed, if one had been
// captured.
type VoidResult struct {
	Reference     string `json:"reference"`
	TransactionID string `json:"transaction_id,omitempty"`
}

type Gateway interface {
	Charge(ctx context.Context, req ChargeRequest) (ChargeResult, error)
	Refund(ctx context.Context, req RefundRequest) (RefundResult, error)
	Void(ctx context.Context, req VoidRequest) (VoidResult, error)
}
