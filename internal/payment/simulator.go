package payment

import (
	"encoding/json"
	"log/slog"
	"math/rand"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// DeclineReference makes the simulator decline a charge regardless of amount.
const DeclineReference = "DECLINE"

type SimulatorConfig struct {
	DeclineAbove decimal.Decimal
	MinLatency   time.Duration
	MaxLatency   time.Duration
}

// Simulator stands in for the external payment processor.
type Simulator struct {
	cfg    SimulatorConfig
	logger *slog.Logger

	mu           sync.Mutex
	transactions map[string]*transaction
	// charge reference -> transaction id
	references map[string]string
	voided     map[string]bool
}

type transaction struct {
	amount   decimal.Decimal
	refunded bool
}

func NewSimulator(cfg SimulatorConfig, logger *slog.Logger) *Simulator {
	return &Simulator{
		cfg:          cfg,
		logger:       logger,
		transactions: make(map[string]*transaction),
		references:   make(map[string]string),
		voided:       make(map[string]bool),
	}
}

func (s *Simulator) delay() {
	spread := s.cfg.MaxLatency - s.cfg.MinLatency
	d := s.cfg.MinLatency
	if spread > 0 {
		d += time.Duration(rand.Int63n(int64(spread)))
	}
	time.Sleep(d)
}

func (s *Simulator) HandleCharge(w http.ResponseWriter, r *http.Request) {
	var req ChargeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if !req.Amount.IsPositive() || !req.Method.Valid() {
		s.writeError(w, http.StatusBadRequest, "invalid charge")
		return
	}

	s.delay()

	if req.Reference == DeclineReference || (s.cfg.DeclineAbove.IsPositive() && req.Amount.GreaterThan(s.cfg.DeclineAbove)) {
		s.logger.Info("charge declined", "reference", req.Reference, "amount", req.Amount.String())
		s.writeJSON(w, http.StatusPaymentRequired, ChargeResult{Approved: false, Reason: "card declined"})
		return
	}

	s.mu.Lock()
	if s.voided[req.Reference] {
		s.mu.Unlock()
		s.logger.Info("charge refused, reference was voided", "reference", req.Reference)
		s.writeJSON(w, http.StatusPaymentRequired, ChargeResult{Approved: false, Reason: "charge voided"})
		return
	}
	if txID, ok := s.references[req.Reference]; ok {
		s.mu.Unlock()
		s.writeJSON(w, http.StatusOK, ChargeResult{Approved: true, TransactionID: txID})
		return
	}
	txID := "txn_" + uuid.New().String()
	s.transactions[txID] = &transaction{amount: req.Amount}
	if req.Reference != "" {
		s.references[req.Reference] = txID
	}
	s.mu.Unlock()

	s.logger.Info("charge approved", "reference", req.Reference, "transaction_id", txID, "amount", req.Amount.String())
	s.writeJSON(w, http.StatusCreated, ChargeResult{Approved: true, TransactionID: txID})
}

func (s *Simulator) HandleRefund(w http.ResponseWriter, r *http.Request) {
	var req RefundRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	s.delay()

	s.mu.Lock()
	tx, ok := s.transactions[req.TransactionID]
	switch {
	case !ok:
		s.mu.Unlock()
		s.writeError(w, http.StatusNotFound, ErrTransactionNotFound.Error())
		return
	case tx.refunded:
		s.mu.Unlock()
		s.writeError(w, http.StatusConflict, ErrAlreadyRefunded.Error())
		return
	case req.Amount.GreaterThan(tx.amount):
		s.mu.Unlock()
		s.writeError(w, http.StatusBadRequest, "refund exceeds charged amount")
		return
	}
	tx.refunded = true
	s.mu.Unlock()

	refundID := "rfd_" + uuid.New().String()
	s.logger.Info("refund issued", "transaction_id", req.TransactionID, "refund_id", refundID, "reason", req.Reason)
	s.writeJSON(w, http.StatusCreated, RefundResult{RefundID: refundID, TransactionID: req.TransactionID})
}

// HandleVoid reverses the charge made under a reference and tombstones the
// reference so a charge still in flight cannot capture afterwards.
func (s *Simulator) HandleVoid(w http.ResponseWriter, r *http.Request) {
	var req VoidRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Reference == "" {
		s.writeError(w, http.StatusBadRequest, "reference is required")
		return
	}

	s.delay()

	s.mu.Lock()
	s.voided[req.Reference] = true
	txID := s.references[req.Reference]
	if tx, ok := s.transactions[txID]; ok {
		tx.refunded = true
	}
	s.mu.Unlock()

	s.logger.Info("charge voided", "reference", req.Reference, "transaction_id", txID, "reason", req.Reason)
	s.writeJSON(w, http.StatusOK, VoidResult{Reference: req.Reference, TransactionID: txID})
}

// outstanding counts captured transactions that were neither refunded nor
// voided.
func (s *Simulator) outstanding() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, tx := range s.transactions {
		if !tx.refunded {
			n++
		}
	}
	return n
}

func (s *Simulator) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		s.logger.Error("failed to encode response", "error", err)
	}
}

func (s *Simulator) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, map[string]string{"error": message})
}
