package cart

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/joao-fontenele/marketplace-checkout/internal/catalog"
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
	cart, err := h.service.Get(r.Context(), r.PathValue("buyerId"))
	h.respond(w, cart, err)
}

func (h *Handler) HandlePreview(w http.ResponseWriter, r *http.Request) {
	preview, err := h.service.Preview(r.Context(), r.PathValue("buyerId"))
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, preview)
}

type addItemRequest struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

func (h *Handler) HandleAddItem(w http.ResponseWriter, r *http.Request) {
	var req addItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cart, err := h.service.Add(r.Context(), r.PathValue("buyerId"), req.ProductID, req.Quantity)
	h.respond(w, cart, err)
}

type updateItemRequest struct {
	Quantity int `json:"quantity"`
}

func (h *Handler) HandleUpdateItem(w http.ResponseWriter, r *http.Request) {
	var req updateItemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cart, err := h.service.UpdateQuantity(r.Context(), r.PathValue("buyerId"), r.PathValue("productId"), req.Quantity)
	h.respond(w, cart, err)
}

func (h *Handler) HandleRemoveItem(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.Remove(r.Context(), r.PathValue("buyerId"), r.PathValue("productId"))
	h.respond(w, cart, err)
}

func (h *Handler) HandleSaveForLater(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.SaveForLater(r.Context(), r.PathValue("buyerId"), r.PathValue("productId"))
	h.respond(w, cart, err)
}

func (h *Handler) HandleMoveToCart(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.MoveToCart(r.Context(), r.PathValue("buyerId"), r.PathValue("productId"))
	h.respond(w, cart, err)
}

type couponRequest struct {
	Code string `json:"code"`
}

func (h *Handler) HandleApplyCoupon(w http.ResponseWriter, r *http.Request) {
	var req couponRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Code == "" {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	cart, err := h.service.ApplyCoupon(r.Context(), r.PathValue("buyerId"), req.Code)
	h.respond(w, cart, err)
}

func (h *Handler) HandleRemoveCoupon(w http.ResponseWriter, r *http.Request) {
	cart, err := h.service.RemoveCoupon(r.Context(), r.PathValue("buyerId"), r.PathValue("code"))
	h.respond(w, cart, err)
}

func (h *Handler) respond(w http.ResponseWriter, cart *domain.Cart, err error) {
	if err != nil {
		h.handleError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, cart)
}

func (h *Handler) handleError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrInvalidQuantity):
		h.writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, ErrLineNotFound), errors.Is(err, ErrNotSaved),
		errors.Is(err, catalog.ErrProductNotFound), errors.Is(err, catalog.ErrCouponNotFound):
		h.writeError(w, http.StatusNotFound, err.Error())
	default:
		h.logger.Error("cart operation failed", "error", err)
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
