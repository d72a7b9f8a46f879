package email

import (
	"encoding/json"
	"errors"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"time"
)

// Handler is a mail sink: it renders notifications and logs them instead of
// delivering.
type Handler struct {
	logger     *slog.Logger
	minLatency time.Duration
	maxLatency time.Duration
}

func NewHandler(logger *slog.Logger, minLatency, maxLatency time.Duration) *Handler {
	return &Handler{
		logger:     logger,
		minLatency: minLatency,
		maxLatency: maxLatency,
	}
}

type sendResponse struct {
	Status  string `json:"status"`
	Subject string `json:"subject"`
}

func (h *Handler) HandleSend(w http.ResponseWriter, r *http.Request) {
	var n Notification
	if err := json.NewDecoder(r.Body).Decode(&n); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	msg, err := Render(n)
	if err != nil {
		if errors.Is(err, ErrUnknownKind) {
			h.writeError(w, http.StatusUnprocessableEntity, err.Error())
			return
		}
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if h.maxLatency > h.minLatency {
		time.Sleep(h.minLatency + rand.N(h.maxLatency-h.minLatency))
	}

	h.logger.Info("email sent", "to", msg.To, "subject", msg.Subject, "order_number", n.OrderNumber, "kind", n.Kind)

	h.writeJSON(w, http.StatusOK, sendResponse{Status: "sent", Subject: msg.Subject})
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
