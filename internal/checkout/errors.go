package checkout

import (
	"errors"
	"fmt"
)

// Kind sentinels. A *Error matches its kind under errors.Is.
var (
	ErrEmptySelection       = errors.New("empty selection")
	ErrInsufficientStock    = errors.New("insufficient stock")
	ErrPaymentFailed        = errors.New("payment failed")
	ErrProductNotFound      = errors.New("product not found")
	ErrUnknownPaymentMethod = errors.New("unknown payment method")
	ErrInvalidAddress       = errors.New("invalid shipping address")
	ErrInvariantViolation   = errors.New("reservation invariant violated")
)

// Error is the failure returned by Checkout. Only the fields relevant to
// Kind are set.
type Error struct {
	Kind      error
	ProductID string
	Available int
	Reason    string
	Err       error
}

func (e *Error) Error() string {
	switch {
	case errors.Is(e.Kind, ErrInsufficientStock):
		return fmt.Sprintf("%s: product %s has %d available", e.Kind, e.ProductID, e.Available)
	case errors.Is(e.Kind, ErrProductNotFound):
		return fmt.Sprintf("%s: %s", e.Kind, e.ProductID)
	case e.Reason != "":
		return fmt.Sprintf("%s: %s", e.Kind, e.Reason)
	case e.Err != nil:
		return fmt.Sprintf("%s: %v", e.Kind, e.Err)
	}
	return e.Kind.Error()
}

func (e *Error) Is(target error) bool {
	return e.Kind == target
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Code is the stable machine-readable name of the error kind.
func (e *Error) Code() string {
	switch e.Kind {
	case ErrEmptySelection:
		return "empty_selection"
	case ErrInsufficientStock:
		return "insufficient_stock"
	case ErrPaymentFailed:
		return "payment_failed"
	case ErrProductNotFound:
		return "product_not_found"
	case ErrUnknownPaymentMethod:
		return "unknown_payment_method"
	case ErrInvalidAddress:
		return "invalid_address"
	case ErrInvariantViolation:
		return "invariant_violation"
	}
	return "internal"
}

func emptySelection() *Error {
	return &Error{Kind: ErrEmptySelection}
}

func insufficientStock(productID string, available int) *Error {
	return &Error{Kind: ErrInsufficientStock, ProductID: productID, Available: available}
}

func productNotFound(productID string) *Error {
	return &Error{Kind: ErrProductNotFound, ProductID: productID}
}

func paymentFailed(reason string, err error) *Error {
	return &Error{Kind: ErrPaymentFailed, Reason: reason, Err: err}
}
