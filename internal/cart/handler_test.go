package cart

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/joao-fontenele/marketplace-checkout/internal/domain"
)

func newTestMux(t *testing.T) *http.ServeMux {
	t.Helper()
	svc, _ := newTestService(t)
	handler := NewHandler(svc, slog.New(slog.NewTextHandler(io.Discard, nil)))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /carts/{buyerId}", handler.HandleGet)
	mux.HandleFunc("GET /carts/{buyerId}/preview", handler.HandlePreview)
	mux.HandleFunc("POST /carts/{buyerId}/items", handler.HandleAddItem)
	mux.HandleFunc("PATCH /carts/{buyerId}/items/{productId}", handler.HandleUpdateItem)
	mux.HandleFunc("DELETE /carts/{buyerId}/items/{productId}", handler.HandleRemoveItem)
	return mux
}

func TestHandler_AddAndGet(t *testing.T) {
	mux := newTestMux(t)

	t.Run("adds item", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/carts/buyer-1/items", strings.NewReader(`{"product_id":"p1","quantity":2}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}
	})

	t.Run("gets cart", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/carts/buyer-1", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		var cart domain.Cart
		if err := json.NewDecoder(rec.Body).Decode(&cart); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if len(cart.Lines) != 1 || cart.Lines[0].Quantity != 2 {
			t.Errorf("unexpected cart: %+v", cart)
		}
	})

	t.Run("unknown product is 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/carts/buyer-1/items", strings.NewReader(`{"product_id":"nope","quantity":1}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("zero quantity is 400", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPatch, "/carts/buyer-1/items/p1", strings.NewReader(`{"quantity":0}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})

	t.Run("removing missing line is 404", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodDelete, "/carts/buyer-1/items/p2", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("preview", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/carts/buyer-1/preview", nil)
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}
		var preview Preview
		if err := json.NewDecoder(rec.Body).Decode(&preview); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if preview.Pricing.Subtotal.String() != "20" {
			t.Errorf("expected subtotal 20, got %s", preview.Pricing.Subtotal)
		}
	})
}
