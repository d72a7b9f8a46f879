package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joao-fontenele/marketplace-checkout/internal/domain"
)

type stubService struct {
	order *domain.Order
	err   error
	got   Request
}

func (s *stubService) Checkout(_ context.Context, req Request) (*domain.Order, error) {
	s.got = req
	return s.order, s.err
}

const checkoutBody = `{
	"buyer_id": "buyer-1",
	"product_ids": ["prod-a", "prod-b"],
	"payment_method": "credit_card",
	"shipping_address": {"name": "Ada", "line1": "1 Main St", "city": "Springfield", "postal_code": "12345", "country": "US"}
}`

func serveCheckout(svc Service, body string) *httptest.ResponseRecorder {
	handler := NewHandler(svc, discardLogger())
	req := httptest.NewRequest(http.MethodPost, "/checkout", strings.NewReader(body))
	rec := httptest.NewRecorder()
	handler.HandleCheckout(rec, req)
	return rec
}

func TestHandler_HandleCheckout(t *testing.T) {
	t.Run("returns 201 with the order", func(t *testing.T) {
		svc := &stubService{order: &domain.Order{OrderNumber: "ORD-20240101000000-ABCDEF12", BuyerID: "buyer-1"}}

		rec := serveCheckout(svc, checkoutBody)

		if rec.Code != http.StatusCreated {
			t.Fatalf("expected status 201, got %d: %s", rec.Code, rec.Body.String())
		}

		var order domain.Order
		if err := json.NewDecoder(rec.Body).Decode(&order); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if order.OrderNumber != "ORD-20240101000000-ABCDEF12" {
			t.Errorf("unexpected order number %q", order.OrderNumber)
		}
		if len(svc.got.ProductIDs) != 2 || svc.got.PaymentMethod != domain.PaymentMethodCreditCard {
			t.Errorf("request not decoded: %+v", svc.got)
		}
		if svc.got.ShippingAddress.PostalCode != "12345" {
			t.Errorf("expected postal code to be decoded, got %q", svc.got.ShippingAddress.PostalCode)
		}
	})

	t.Run("returns 400 for invalid body", func(t *testing.T) {
		rec := serveCheckout(&stubService{}, `{`)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	errorCases := []struct {
		name     string
		err      error
		status   int
		kind     string
		extraKey string
	}{
		{"empty selection", emptySelection(), http.StatusBadRequest, "empty_selection", ""},
		{"unknown payment method", &Error{Kind: ErrUnknownPaymentMethod, Reason: "bitcoin"}, http.StatusBadRequest, "unknown_payment_method", ""},
		{"product not found", productNotFound("prod-b"), http.StatusNotFound, "product_not_found", "product_id"},
		{"insufficient stock", insufficientStock("prod-b", 0), http.StatusConflict, "insufficient_stock", "available"},
		{"payment failed", paymentFailed("payment gateway unavailable", errors.New("dial tcp: refused")), http.StatusPaymentRequired, "payment_failed", ""},
		{"invariant violation", &Error{Kind: ErrInvariantViolation, Reason: "mismatch"}, http.StatusInternalServerError, "invariant_violation", ""},
		{"unexpected error", errors.New("boom"), http.StatusInternalServerError, "internal", ""},
	}

	for _, tc := range errorCases {
		t.Run(tc.name, func(t *testing.T) {
			rec := serveCheckout(&stubService{err: tc.err}, checkoutBody)

			if rec.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, rec.Code)
			}

			var body map[string]any
			if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
				t.Fatalf("failed to decode response: %v", err)
			}
			if body["error"] != tc.kind {
				t.Errorf("expected error kind %q, got %v", tc.kind, body["error"])
			}
			if tc.extraKey != "" {
				if _, ok := body[tc.extraKey]; !ok {
					t.Errorf("expected %q in body %v", tc.extraKey, body)
				}
			}
			if msg, _ := body["message"].(string); strings.Contains(msg, "dial tcp") {
				t.Errorf("message leaks transport details: %q", msg)
			}
		})
	}
}
