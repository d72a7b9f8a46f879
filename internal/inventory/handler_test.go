package inventory

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

func newTestMux(ledger *MemoryLedger) *http.ServeMux {
	handler := NewHandler(ledger, slog.New(slog.NewTextHandler(io.Discard, nil)))

	mux := http.NewServeMux()
	mux.HandleFunc("GET /stock", handler.HandleListStock)
	mux.HandleFunc("GET /stock/{productId}", handler.HandleGetStock)
	mux.HandleFunc("PUT /stock/{productId}", handler.HandleSetStock)
	mux.HandleFunc("POST /stock/{productId}/reserve", handler.HandleReserve)
	mux.HandleFunc("POST /stock/{productId}/release", handler.HandleRelease)
	return mux
}

func TestHandler_HandleReserve(t *testing.T) {
	t.Run("reserves stock", func(t *testing.T) {
		mux := newTestMux(NewMemoryLedger(domain.InventoryRecord{ProductID: "p1", QuantityOnHand: 10}))

		req := httptest.NewRequest(http.MethodPost, "/stock/p1/reserve", strings.NewReader(`{"quantity":4}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d: %s", rec.Code, rec.Body.String())
		}

		var res Reservation
		if err := json.NewDecoder(rec.Body).Decode(&res); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if res.Remaining != 6 {
			t.Errorf("expected remaining 6, got %d", res.Remaining)
		}
	})

	t.Run("returns 409 with available count", func(t *testing.T) {
		mux := newTestMux(NewMemoryLedger(domain.InventoryRecord{ProductID: "p1", QuantityOnHand: 1}))

		req := httptest.NewRequest(http.MethodPost, "/stock/p1/reserve", strings.NewReader(`{"quantity":2}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusConflict {
			t.Fatalf("expected status 409, got %d", rec.Code)
		}

		var body map[string]any
		if err := json.NewDecoder(rec.Body).Decode(&body); err != nil {
			t.Fatalf("failed to decode response: %v", err)
		}
		if body["available"] != float64(1) {
			t.Errorf("expected available 1, got %v", body["available"])
		}
	})

	t.Run("returns 404 for unknown product", func(t *testing.T) {
		mux := newTestMux(NewMemoryLedger())

		req := httptest.NewRequest(http.MethodPost, "/stock/nope/reserve", strings.NewReader(`{"quantity":1}`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusNotFound {
			t.Errorf("expected status 404, got %d", rec.Code)
		}
	})

	t.Run("returns 400 for invalid body", func(t *testing.T) {
		mux := newTestMux(NewMemoryLedger(domain.InventoryRecord{ProductID: "p1", QuantityOnHand: 1}))

		req := httptest.NewRequest(http.MethodPost, "/stock/p1/reserve", strings.NewReader(`{`))
		rec := httptest.NewRecorder()
		mux.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})
}

func TestHandler_HandleRelease(t *testing.T) {
	mux := newTestMux(NewMemoryLedger(domain.InventoryRecord{ProductID: "p1", QuantityOnHand: 3}))

	req := httptest.NewRequest(http.MethodPost, "/stock/p1/release", strings.NewReader(`{"quantity":2}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	var record domain.InventoryRecord
	if err := json.NewDecoder(rec.Body).Decode(&record); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if record.QuantityOnHand != 5 {
		t.Errorf("expected 5 on hand, got %d", record.QuantityOnHand)
	}
}

func TestHandler_HandleSetStockAndList(t *testing.T) {
	mux := newTestMux(NewMemoryLedger())

	req := httptest.NewRequest(http.MethodPut, "/stock/p9", strings.NewReader(`{"quantity_on_hand":12,"low_stock_threshold":3}`))
	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/stock", nil)
	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, req)

	var records []domain.InventoryRecord
	if err := json.NewDecoder(rec.Body).Decode(&records); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
	if len(records) != 1 || records[0].QuantityOnHand != 12 {
		t.Errorf("unexpected records: %v", records)
	}
}

func TestClient_Release(t *testing.T) {
	ledger := NewMemoryLedger(domain.InventoryRecord{ProductID: "p1", QuantityOnHand: 1})
	server := httptest.NewServer(newTestMux(ledger))
	defer server.Close()

	client := NewClient(server.URL, server.Client())

	t.Run("releases stock", func(t *testing.T) {
		if err := client.Release(t.Context(), "p1", 4); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		rec, _ := ledger.Get(t.Context(), "p1")
		if rec.QuantityOnHand != 5 {
			t.Errorf("expected 5 on hand, got %d", rec.QuantityOnHand)
		}
	})

	t.Run("maps 404 to ErrProductNotFound", func(t *testing.T) {
		if err := client.Release(t.Context(), "missing", 1); err != ErrProductNotFound {
			t.Errorf("expected ErrProductNotFound, got %v", err)
		}
	})
}
