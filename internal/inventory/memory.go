package inventory

import (
	"context"
	"sort"
	"sync"

	"github.com/joao-fontenele/marketplace-checkout/internal/domain"
)

// MemoryLedger keeps stock in process. Each product has its own lock, held
// across the availability check and the decrement.
type MemoryLedger struct {
	mu      sync.Mutex
	records map[string]*lockedRecord
}

type lockedRecord struct {
	mu  sync.Mutex
	rec domain.InventoryRecord
}

func NewMemoryLedger(records ...domain.InventoryRecord) *MemoryLedger {
	l := &MemoryLedger{records: make(map[string]*lockedRecord, len(records))}
	for _, rec := range records {
		l.records[rec.ProductID] = &lockedRecord{rec: rec}
	}
	return l
}

func (l *MemoryLedger) record(productID string) (*lockedRecord, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	r, ok := l.records[productID]
	return r, ok
}

func (l *MemoryLedger) Reserve(_ context.Context, productID string, quantity int) (Reservation, error) {
	if quantity <= 0 {
		return Reservation{}, ErrInvalidQuantity
	}

	r, ok := l.record(productID)
	if !ok {
		return Reservation{}, ErrProductNotFound
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rec.QuantityOnHand < quantity {
		return Reservation{}, &InsufficientStockError{ProductID: productID, Available: r.rec.QuantityOnHand}
	}
	r.rec.QuantityOnHand -= quantity

	return Reservation{
		ProductID: productID,
		Quantity:  quantity,
		Remaining: r.rec.QuantityOnHand,
		LowStock:  r.rec.IsLow(),
	}, nil
}

func (l *MemoryLedger) Release(_ context.Context, productID string, quantity int) error {
	if quantity <= 0 {
		return ErrInvalidQuantity
	}

	r, ok := l.record(productID)
	if !ok {
		return ErrProductNotFound
	}

	r.mu.Lock()
	r.rec.QuantityOnHand += quantity
	r.mu.Unlock()
	return nil
}

func (l *MemoryLedger) Get(_ context.Context, productID string) (*domain.InventoryRecord, error) {
	r, ok := l.record(productID)
	if !ok {
		return nil, ErrProductNotFound
	}

	r.mu.Lock()
	rec := r.rec
	r.mu.Unlock()
	return &rec, nil
}

func (l *MemoryLedger) ListAll(_ context.Context) ([]domain.InventoryRecord, error) {
	l.mu.Lock()
	locked := make([]*lockedRecord, 0, len(l.records))
	for _, r := range l.records {
		locked = append(locked, r)
	}
	l.mu.Unlock()

	records := make([]domain.InventoryRecord, 0, len(locked))
	for _, r := range locked {
		r.mu.Lock()
		records = append(records, r.rec)
		r.mu.Unlock()
	}
	sort.Slice(records, func(i, j int) bool { return records[i].ProductID < records[j].ProductID })
	return records, nil
}

func (l *MemoryLedger) SetStock(_ context.Context, rec domain.InventoryRecord) error {
	if rec.QuantityOnHand < 0 {
		return ErrInvalidQuantity
	}

	l.mu.Lock()
	r, ok := l.records[rec.ProductID]
	if !ok {
		l.records[rec.ProductID] = &lockedRecord{rec: rec}
		l.mu.Unlock()
		return nil
	}
	l.mu.Unlock()

	r.mu.Lock()
	r.rec = rec
	r.mu.Unlock()
	return nil
}
