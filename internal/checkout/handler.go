package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/marketplace-checkout/internal/domain"
)

type Service interface {
	Checkout(ctx context.Context, req Request) (*domain.Order, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func NewHandler(service Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.BuyerID == "" {
		h.writeError(w, http.StatusBadRequest, "invalid_request", "invalid request body")
		return
	}

	order, err := h.service.Checkout(r.Context(), req)
	if err != nil {
		h.handleError(w, req, err)
		return
	}

	h.logger.Info("order placed", "order_number", order.OrderNumber, "buyer_id", order.BuyerID)
	h.writeJSON(w, http.StatusCreated, order)
}

func (h *Handler) handleError(w http.ResponseWriter, req Request, err error) {
	var cerr *Error
	if !errors.As(err, &cerr) {
		h.logger.Error("checkout failed", "error", err, "buyer_id", req.BuyerID)
		h.writeError(w, http.StatusInternalServerError, "internal", "internal server error")
		return
	}

	status := http.StatusInternalServerError
	switch cerr.Kind {
	case ErrEmptySelection, ErrUnknownPaymentMethod, ErrInvalidAddress:
		status = http.StatusBadRequest
	case ErrProductNotFound:
		status = http.StatusNotFound
	case ErrInsufficientStock:
		status = http.StatusConflict
	case ErrPaymentFailed:
		status = http.StatusPaymentRequired
	case ErrInvariantViolation:
		h.logger.Error("checkout invariant violated", "error", err, "buyer_id", req.BuyerID)
		h.writeError(w, status, cerr.Code(), "internal server error")
		return
	}

	h.logger.Info("checkout rejected", "kind", cerr.Code(), "buyer_id", req.BuyerID)
	body := map[string]any{"error": cerr.Code(), "message": cerr.Error()}
	if cerr.ProductID != "" {
		body["product_id"] = cerr.ProductID
	}
	if errors.Is(cerr, ErrInsufficientStock) {
		body["available"] = cerr.Available
	}
	h.writeJSON(w, status, body)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to encode response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, kind, message string) {
	h.writeJSON(w, status, map[string]string{"error": kind, "message": message})
}
