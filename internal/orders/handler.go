package orders

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/marketplace-checkout/internal/domain"
)

type Handler struct {
	service *Service
	logger  *slog.Logger
}

func NewHandler(service *Service, logger *slog.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

func (h *Handler) HandleGet(w http.ResponseWriter, r *http.Request) {
	orderNumber := r.PathValue("orderNumber")
	if orderNumber == "" {
		h.writeError(w, http.StatusBadRequest, "missing order number")
		return
	}

	order, err := h.service.Get(r.Context(), orderNumber)
	if err != nil {
		h.handleError(w, err, orderNumber)
		return
	}

	h.logger.Info("order retrieved", "order_number", order.OrderNumber)
	h.writeJSON(w, http.StatusOK, order)
}

type updateStatusRequest struct {
	Status domain.OrderStatus `json:"status"`
	Note   string             `json:"note"`
}

func (h *Handler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderNumber := r.PathValue("orderNumber")
	if orderNumber == "" {
		h.writeError(w, http.StatusBadRequest, "missing order number")
		return
	}

	var req updateStatusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	order, err := h.service.Transition(r.Context(), orderNumber, req.Status, req.Note)
	if err != nil {
		h.handleError(w, err, orderNumber)
		return
	}

	h.logger.Info("order status updated", "order_number", order.OrderNumber, "status", order.Status)
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleRefund(w http.ResponseWriter, r *http.Request) {
	orderNumber := r.PathValue("orderNumber")
	if orderNumber == "" {
		h.writeError(w, http.StatusBadRequest, "missing order number")
		return
	}

	order, err := h.service.RetryRefund(r.Context(), orderNumber)
	if err != nil {
		h.handleError(w, err, orderNumber)
		return
	}

	h.logger.Info("order refund settled", "order_number", order.OrderNumber, "payment_status", order.Payment.Status)
	h.writeJSON(w, http.StatusOK, order)
}

func (h *Handler) HandleList(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.List(r.Context(), r.URL.Query().Get("buyer_id"))
	if err != nil {
		h.logger.Error("failed to list orders", "error", err)
		h.writeError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	h.logger.Info("orders listed", "count", len(orders))
	h.writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) handleError(w http.ResponseWriter, err error, orderNumber string) {
	switch {
	case errors.Is(err, ErrOrderNotFound):
		h.writeError(w, http.StatusNotFound, "order not found")
	case errors.Is(err, ErrInvalidStatus):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrIllegalTransition), errors.Is(err, ErrNotRefundable):
		h.writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, ErrRefundFailed):
		h.logger.Error("refund failed", "error", err, "order_number", orderNumber)
		h.writeError(w, http.StatusBadGateway, "status updated but refund failed")
	default:
		h.logger.Error("order request failed", "error", err, "order_number", orderNumber)
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
