package checkout

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/marketplace-checkout/internal/catalog"
	"github.com/joao-fontenele/marketplace-checkout/internal/domain"
	"github.com/joao-fontenele/marketplace-checkout/internal/orders"
	"github.com/joao-fontenele/marketplace-checkout/internal/payment"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeCarts struct {
	mu        sync.Mutex
	carts     map[string]*domain.Cart
	removeErr error
}

func newFakeCarts() *fakeCarts {
	return &fakeCarts{carts: make(map[string]*domain.Cart)}
}

func (f *fakeCarts) put(buyerID string, lines ...domain.CartLine) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.carts[buyerID]
	if !ok {
		c = &domain.Cart{BuyerID: buyerID}
		f.carts[buyerID] = c
	}
	c.Lines = append(c.Lines, lines...)
}

func (f *fakeCarts) applyCoupon(buyerID, code string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.carts[buyerID].AppliedCoupons = append(f.carts[buyerID].AppliedCoupons, code)
}

func (f *fakeCarts) Get(_ context.Context, buyerID string) (*domain.Cart, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.carts[buyerID]
	if !ok {
		return &domain.Cart{BuyerID: buyerID}, nil
	}
	cp := *c
	cp.Lines = append([]domain.CartLine(nil), c.Lines...)
	cp.AppliedCoupons = append([]string(nil), c.AppliedCoupons...)
	return &cp, nil
}

func (f *fakeCarts) RemoveLines(_ context.Context, buyerID string, productIDs ...string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.removeErr != nil {
		return f.removeErr
	}
	c, ok := f.carts[buyerID]
	if !ok {
		return nil
	}
	drop := make(map[string]bool, len(productIDs))
	for _, id := range productIDs {
		drop[id] = true
	}
	kept := c.Lines[:0]
	for _, l := range c.Lines {
		if !drop[l.ProductID] {
			kept = append(kept, l)
		}
	}
	c.Lines = kept
	return nil
}

type fakeCatalog struct {
	mu        sync.Mutex
	products  map[string]domain.Product
	coupons   map[string]decimal.Decimal
	getErr    error
	couponErr error
}

func newFakeCatalog(products ...domain.Product) *fakeCatalog {
	f := &fakeCatalog{
		products: make(map[string]domain.Product),
		coupons:  make(map[string]decimal.Decimal),
	}
	for _, p := range products {
		f.products[p.ID] = p
	}
	return f
}

func (f *fakeCatalog) setPrice(productID string, price decimal.Decimal) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p := f.products[productID]
	p.Price = price
	f.products[productID] = p
}

func (f *fakeCatalog) GetProduct(_ context.Context, productID string) (*domain.Product, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	p, ok := f.products[productID]
	if !ok || !p.Active {
		return nil, catalog.ErrProductNotFound
	}
	return &p, nil
}

func (f *fakeCatalog) CurrentPrice(_ context.Context, productID string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.products[productID]
	if !ok || !p.Active {
		return decimal.Zero, catalog.ErrProductNotFound
	}
	return p.PriceAt(time.Now()), nil
}

func (f *fakeCatalog) CouponPercent(_ context.Context, code string) (decimal.Decimal, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.couponErr != nil {
		return decimal.Zero, f.couponErr
	}
	pct, ok := f.coupons[code]
	if !ok {
		return decimal.Zero, catalog.ErrCouponNotFound
	}
	return pct, nil
}

type fakePayments struct {
	mu        sync.Mutex
	decline   string
	err       error
	hang      bool
	refundErr error
	charges   []payment.ChargeRequest
	refunds   []payment.RefundRequest
	voids     []payment.VoidRequest
	seq       int
}

func (f *fakePayments) Charge(ctx context.Context, req payment.ChargeRequest) (payment.ChargeResult, error) {
	f.mu.Lock()
	f.charges = append(f.charges, req)
	hang, decline, err := f.hang, f.decline, f.err
	f.seq++
	txn := fmt.Sprintf("txn_%d", f.seq)
	f.mu.Unlock()

	if hang {
		<-ctx.Done()
		return payment.ChargeResult{}, ctx.Err()
	}
	if err != nil {
		return payment.ChargeResult{}, err
	}
	if decline != "" {
		return payment.ChargeResult{Approved: false, Reason: decline}, nil
	}
	return payment.ChargeResult{Approved: true, TransactionID: txn}, nil
}

func (f *fakePayments) Refund(_ context.Context, req payment.RefundRequest) (payment.RefundResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.refundErr != nil {
		return payment.RefundResult{}, f.refundErr
	}
	f.refunds = append(f.refunds, req)
	return payment.RefundResult{RefundID: "ref_" + req.TransactionID, TransactionID: req.TransactionID}, nil
}

func (f *fakePayments) Void(_ context.Context, req payment.VoidRequest) (payment.VoidResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.voids = append(f.voids, req)
	return payment.VoidResult{Reference: req.Reference}, nil
}

func (f *fakePayments) voided() []payment.VoidRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]payment.VoidRequest(nil), f.voids...)
}

func (f *fakePayments) chargeCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.charges)
}

func (f *fakePayments) refundCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.refunds)
}

type fakeOrders struct {
	mu         sync.Mutex
	orders     map[string]*domain.Order
	collisions int
	createErr  error
	discarded  []string
	creates    int
}

func newFakeOrders() *fakeOrders {
	return &fakeOrders{orders: make(map[string]*domain.Order)}
}

func (f *fakeOrders) Create(_ context.Context, order *domain.Order) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creates++
	if f.collisions > 0 {
		f.collisions--
		return orders.ErrDuplicateOrderNumber
	}
	if f.createErr != nil {
		return f.createErr
	}
	if _, ok := f.orders[order.OrderNumber]; ok {
		return orders.ErrDuplicateOrderNumber
	}
	cp := *order
	f.orders[order.OrderNumber] = &cp
	return nil
}

func (f *fakeOrders) Discard(_ context.Context, orderNumber string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.orders[orderNumber]; !ok {
		return errors.New("no such order")
	}
	delete(f.orders, orderNumber)
	f.discarded = append(f.discarded, orderNumber)
	return nil
}

func (f *fakeOrders) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.orders)
}

type fakePublisher struct {
	mu     sync.Mutex
	events []any
	err    error
}

func (f *fakePublisher) Publish(_ context.Context, _ string, event any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, event)
	return nil
}

type panickingCarts struct {
	*fakeCarts
}

func (p panickingCarts) RemoveLines(context.Context, string, ...string) error {
	panic("cart store exploded")
}
