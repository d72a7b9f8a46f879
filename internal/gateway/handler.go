package gateway

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"strings"
)

// Handler is the public edge. Checkout and carts go to the checkout service,
// orders to the orders service, and /inventory/... to the inventory
// service's /stock/... routes.
type Handler struct {
	checkoutProxy  *ServiceProxy
	ordersProxy    *ServiceProxy
	inventoryProxy *ServiceProxy
	logger         *slog.Logger
}

func NewHandler(checkoutProxy, ordersProxy, inventoryProxy *ServiceProxy, logger *slog.Logger) *Handler {
	return &Handler{
		checkoutProxy:  checkoutProxy,
		ordersProxy:    ordersProxy,
		inventoryProxy: inventoryProxy,
		logger:         logger,
	}
}

func (h *Handler) HandleCheckout(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.checkoutProxy, r.URL.Path)
}

func (h *Handler) HandleOrders(w http.ResponseWriter, r *http.Request) {
	h.proxyRequest(w, r, h.ordersProxy, r.URL.Path)
}

func (h *Handler) HandleInventory(w http.ResponseWriter, r *http.Request) {
	path := "/stock" + strings.TrimPrefix(strings.TrimPrefix(r.URL.Path, "/inventory"), "/stock")
	h.proxyRequest(w, r, h.inventoryProxy, path)
}

func (h *Handler) proxyRequest(w http.ResponseWriter, r *http.Request, proxy *ServiceProxy, path string) {
	resp, err := proxy.ForwardRequest(r.Context(), r, path)
	if err != nil {
		h.logger.Error("failed to forward request", "error", err, "service", proxy.Name(), "path", path)
		h.writeError(w, http.StatusBadGateway, proxy.Name()+" service unavailable")
		return
	}
	defer func() { _ = resp.Body.Close() }()

	if contentType := resp.Header.Get("Content-Type"); contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}

	w.WriteHeader(resp.StatusCode)

	h.logger.Info("request proxied", "service", proxy.Name(), "method", r.Method, "path", path, "status", resp.StatusCode)

	if _, err := io.Copy(w, resp.Body); err != nil {
		h.logger.Error("failed to copy response body", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(map[string]string{"error": message}); err != nil {
		h.logger.Error("failed to encode error response", "error", err)
	}
}
