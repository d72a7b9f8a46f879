package inventory

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/marketplace-checkout/internal/domain"
)

// Store is a Ledger that can also be listed and restocked.
type Store interface {
	Ledger
	ListAll(ctx context.Context) ([]domain.InventoryRecord, error)
	SetStock(ctx context.Context, rec domain.InventoryRecord) error
}

type Handler struct {
	store  Store
	logger *slog.Logger
}

func NewHandler(store Store, logger *slog.Logger) *Handler {
	return &Handler{
		store:  store,
		logger: logger,
	}
}

func (h *Handler) HandleListStock(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.ListAll(r.Context())
	if err != nil {
		h.logger.Error("failed to list stock", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("stock listed", "count", len(records))
	h.writeJSON(w, http.StatusOK, records)
}

func (h *Handler) HandleGetStock(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("productId")
	if productID == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	rec, err := h.store.Get(r.Context(), productID)
	if err != nil {
		h.handleLedgerError(w, err, "failed to get stock", productID)
		return
	}

	h.writeJSON(w, http.StatusOK, rec)
}

type quantityRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) HandleReserve(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("productId")
	if productID == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	res, err := h.store.Reserve(r.Context(), productID, req.Quantity)
	if err != nil {
		h.handleLedgerError(w, err, "failed to reserve stock", productID)
		return
	}

	if res.LowStock {
		h.logger.Warn("stock below threshold", "product_id", productID, "remaining", res.Remaining)
	}
	h.logger.Info("stock reserved", "product_id", productID, "quantity", req.Quantity)
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) HandleRelease(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("productId")
	if productID == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	var req quantityRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.store.Release(r.Context(), productID, req.Quantity); err != nil {
		h.handleLedgerError(w, err, "failed to release stock", productID)
		return
	}

	rec, err := h.store.Get(r.Context(), productID)
	if err != nil {
		h.handleLedgerError(w, err, "failed to get updated stock", productID)
		return
	}

	h.logger.Info("stock released", "product_id", productID, "quantity", req.Quantity)
	h.writeJSON(w, http.StatusOK, rec)
}

type setStockRequest struct {
	QuantityOnHand    int `json:"quantity_on_hand"`
	LowStockThreshold int `json:"low_stock_threshold"`
}

func (h *Handler) HandleSetStock(w http.ResponseWriter, r *http.Request) {
	productID := r.PathValue("productId")
	if productID == "" {
		h.writeError(w, http.StatusBadRequest, "missing product id")
		return
	}

	var req setStockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	rec := domain.InventoryRecord{
		ProductID:         productID,
		QuantityOnHand:    req.QuantityOnHand,
		LowStockThreshold: req.LowStockThreshold,
	}
	if err := h.store.SetStock(r.Context(), rec); err != nil {
		h.handleLedgerError(w, err, "failed to set stock", productID)
		return
	}

	h.logger.Info("stock set", "product_id", productID, "quantity_on_hand", req.QuantityOnHand)
	h.writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) handleLedgerError(w http.ResponseWriter, err error, msg, productID string) {
	var insufficient *InsufficientStockError
	switch {
	case errors.As(err, &insufficient):
		h.writeJSON(w, http.StatusConflict, map[string]any{
			"error":      "insufficient stock",
			"product_id": insufficient.ProductID,
			"available":  insufficient.Available,
		})
	case errors.Is(err, ErrProductNotFound):
		h.writeError(w, http.StatusNotFound, "product not found")
	case errors.Is(err, ErrInvalidQuantity):
		h.writeError(w, http.StatusBadRequest, err.Error())
	default:
		h.logger.Error(msg, "error", err, "product_id", productID)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
