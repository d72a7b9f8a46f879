package checkout

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/joao-fontenele/marketplace-checkout/internal/catalog"
	"github.com/joao-fontenele/marketplace-checkout/internal/domain"
	"github.com/joao-fontenele/marketplace-checkout/internal/inventory"
	"github.com/joao-fontenele/marketplace-checkout/internal/orders"
	"github.com/joao-fontenele/marketplace-checkout/internal/payment"
	"github.com/joao-fontenele/marketplace-checkout/internal/pricing"
)

var tracer = otel.Tracer("checkout")

const (
	maxOrderNumberAttempts = 3
	snapshotConcurrency    = 8
	unavailableReason      = "payment gateway unavailable"
)

type CartStore interface {
	Get(ctx context.Context, buyerID string) (*domain.Cart, error)
	RemoveLines(ctx context.Context, buyerID string, productIDs ...string) error
}

type Catalog interface {
	CurrentPrice(ctx context.Context, productID string) (decimal.Decimal, error)
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
	CouponPercent(ctx context.Context, code string) (decimal.Decimal, error)
}

type OrderLedger interface {
	Create(ctx context.Context, order *domain.Order) error
	Discard(ctx context.Context, orderNumber string) error
}

type Publisher interface {
	Publish(ctx context.Context, key string, event any) error
}

type Request struct {
	BuyerID         string                 `json:"buyer_id"`
	ProductIDs      []string               `json:"product_ids"`
	PaymentMethod   domain.PaymentMethod   `json:"payment_method"`
	ShippingAddress domain.ShippingAddress `json:"shipping_address"`
}

// Orchestrator turns a selection of cart lines into a paid, persisted order.
// Every exit is either full success or a full rollback of the stock, payment
// and order effects of the attempt.
type Orchestrator struct {
	carts     CartStore
	catalog   Catalog
	inventory inventory.Ledger
	payments  payment.Gateway
	orders    OrderLedger
	publisher Publisher
	cfg       Config
	metrics   *Metrics
	logger    *slog.Logger
	now       func() time.Time
}

// NewOrchestrator wires the collaborators. publisher and metrics may be nil.
func NewOrchestrator(
	carts CartStore,
	catalog Catalog,
	ledger inventory.Ledger,
	payments payment.Gateway,
	orderLedger OrderLedger,
	publisher Publisher,
	cfg Config,
	metrics *Metrics,
	logger *slog.Logger,
) *Orchestrator {
	return &Orchestrator{
		carts:     carts,
		catalog:   catalog,
		inventory: ledger,
		payments:  payments,
		orders:    orderLedger,
		publisher: publisher,
		cfg:       cfg,
		metrics:   metrics,
		logger:    logger,
		now:       time.Now,
	}
}

type pricedLine struct {
	domain.CartLine
	unitPrice decimal.Decimal
}

func (o *Orchestrator) Checkout(ctx context.Context, req Request) (order *domain.Order, err error) {
	ctx, span := tracer.Start(ctx, "checkout")
	defer span.End()
	span.SetAttributes(
		attribute.String("buyer.id", req.BuyerID),
		attribute.Int("checkout.selected", len(req.ProductIDs)),
	)

	start := time.Now()
	defer func() {
		o.metrics.recordAttempt(ctx, start, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
	}()

	if err := validate(req); err != nil {
		return nil, err
	}

	s := newSaga(o.logger.With("buyer_id", req.BuyerID), o.metrics)
	defer func() {
		r := recover()
		if !s.committed {
			cleanupCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), o.cfg.CompensationTimeout)
			s.rollback(cleanupCtx)
			cancel()
		}
		if r != nil {
			err = fmt.Errorf("checkout panicked: %v", r)
			panic(r)
		}
	}()

	cart, err := o.carts.Get(ctx, req.BuyerID)
	if err != nil {
		return nil, fmt.Errorf("load cart: %w", err)
	}

	selected := cart.Select(req.ProductIDs)
	if len(selected) == 0 {
		return nil, emptySelection()
	}

	lines, err := o.reserve(ctx, s, selected)
	if err != nil {
		return nil, err
	}

	quoteLines := make([]pricing.Line, 0, len(lines))
	for _, l := range lines {
		quoteLines = append(quoteLines, pricing.Line{UnitPrice: l.unitPrice, Quantity: l.Quantity})
	}
	subtotal := pricing.Subtotal(quoteLines)
	discount, err := pricing.CouponDiscount(ctx, o.catalog, o.logger, cart.AppliedCoupons, subtotal)
	if err != nil {
		return nil, err
	}
	quote := o.cfg.Policy.Quote(quoteLines, discount)

	reference := "chk_" + uuid.NewString()
	txnID, err := o.charge(ctx, s, req, reference, quote.Total)
	if err != nil {
		return nil, err
	}

	snapshots, err := o.snapshot(ctx, lines)
	if err != nil {
		return nil, err
	}

	now := o.now().UTC()
	order = &domain.Order{
		BuyerID: req.BuyerID,
		Lines:   snapshots,
		Pricing: quote,
		Payment: domain.Payment{
			Method:        req.PaymentMethod,
			Status:        domain.PaymentStatusCompleted,
			TransactionID: txnID,
			PaidAt:        &now,
		},
		ShippingAddress: req.ShippingAddress,
		Status:          domain.OrderStatusPending,
		Timeline: []domain.TimelineEntry{
			{Status: domain.OrderStatusPending, Timestamp: now, Note: "order placed"},
		},
		CreatedAt: now,
	}

	if err := checkReservations(order, lines); err != nil {
		o.logger.ErrorContext(ctx, "refusing to persist order", "error", err, "reference", reference)
		return nil, err
	}

	if err := o.persist(ctx, s, order); err != nil {
		return nil, err
	}

	productIDs := make([]string, 0, len(lines))
	for _, l := range lines {
		productIDs = append(productIDs, l.ProductID)
	}
	if err := o.carts.RemoveLines(ctx, req.BuyerID, productIDs...); err != nil {
		return nil, fmt.Errorf("prune cart: %w", err)
	}

	s.commit()
	span.SetAttributes(attribute.String("order.number", order.OrderNumber))

	o.publish(ctx, order)

	o.logger.InfoContext(ctx, "checkout completed",
		"order_number", order.OrderNumber,
		"buyer_id", order.BuyerID,
		"lines", len(order.Lines),
		"total", order.Pricing.Total.StringFixed(2),
	)
	return order, nil
}

func validate(req Request) error {
	if !req.PaymentMethod.Valid() {
		return &Error{Kind: ErrUnknownPaymentMethod, Reason: string(req.PaymentMethod)}
	}
	if err := req.ShippingAddress.Validate(); err != nil {
		return &Error{Kind: ErrInvalidAddress, Err: err}
	}
	if len(req.ProductIDs) == 0 {
		return emptySelection()
	}
	return nil
}

// reserve prices and reserves each line in ascending product order. A
// failure leaves earlier reservations registered on the saga for release.
func (o *Orchestrator) reserve(ctx context.Context, s *saga, selected []domain.CartLine) ([]pricedLine, error) {
	lines := make([]pricedLine, 0, len(selected))

	for _, line := range selected {
		price, err := o.catalog.CurrentPrice(ctx, line.ProductID)
		if err != nil {
			if errors.Is(err, catalog.ErrProductNotFound) {
				return nil, productNotFound(line.ProductID)
			}
			return nil, fmt.Errorf("resolve price for %s: %w", line.ProductID, err)
		}

		res, err := o.inventory.Reserve(ctx, line.ProductID, line.Quantity)
		if err != nil {
			var stockErr *inventory.InsufficientStockError
			switch {
			case errors.As(err, &stockErr):
				return nil, insufficientStock(stockErr.ProductID, stockErr.Available)
			case errors.Is(err, inventory.ErrProductNotFound):
				return nil, productNotFound(line.ProductID)
			}
			return nil, fmt.Errorf("reserve %s: %w", line.ProductID, err)
		}

		productID, quantity := line.ProductID, line.Quantity
		s.push("release:"+productID, func(ctx context.Context) error {
			return o.inventory.Release(ctx, productID, quantity)
		})

		if res.LowStock {
			o.logger.WarnContext(ctx, "low stock", "product_id", productID, "remaining", res.Remaining)
		}

		lines = append(lines, pricedLine{CartLine: line, unitPrice: price})
	}

	return lines, nil
}

// charge bounds the gateway call by PaymentTimeout. Anything short of an
// approval is a PaymentFailed error.
func (o *Orchestrator) charge(ctx context.Context, s *saga, req Request, reference string, amount decimal.Decimal) (string, error) {
	chargeCtx, cancel := context.WithTimeout(ctx, o.cfg.PaymentTimeout)
	defer cancel()

	result, err := o.payments.Charge(chargeCtx, payment.ChargeRequest{
		Reference: reference,
		BuyerID:   req.BuyerID,
		Amount:    amount,
		Method:    req.PaymentMethod,
	})
	if err != nil {
		o.logger.ErrorContext(ctx, "payment charge failed", "reference", reference, "error", err)
		// The gateway may still capture after we gave up.
		s.push("void:"+reference, func(ctx context.Context) error {
			_, err := o.payments.Void(ctx, payment.VoidRequest{Reference: reference, Reason: "checkout rolled back"})
			return err
		})
		return "", paymentFailed(unavailableReason, err)
	}
	if !result.Approved {
		o.logger.InfoContext(ctx, "payment declined", "reference", reference, "reason", result.Reason)
		reason := result.Reason
		if reason == "" {
			reason = "payment declined"
		}
		return "", paymentFailed(reason, nil)
	}

	s.push("refund:"+result.TransactionID, func(ctx context.Context) error {
		_, err := o.payments.Refund(ctx, payment.RefundRequest{
			TransactionID: result.TransactionID,
			Amount:        amount,
			Reason:        "checkout rolled back",
		})
		return err
	})

	return result.TransactionID, nil
}

// snapshot reads product facts for every line concurrently. Unit prices come
// from the reservation step so the snapshot matches what was charged.
func (o *Orchestrator) snapshot(ctx context.Context, lines []pricedLine) ([]domain.OrderLineSnapshot, error) {
	snapshots := make([]domain.OrderLineSnapshot, len(lines))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(snapshotConcurrency)

	for i, line := range lines {
		g.Go(func() error {
			p, err := o.catalog.GetProduct(gctx, line.ProductID)
			if err != nil {
				if errors.Is(err, catalog.ErrProductNotFound) {
					return productNotFound(line.ProductID)
				}
				return fmt.Errorf("snapshot %s: %w", line.ProductID, err)
			}
			snapshots[i] = domain.OrderLineSnapshot{
				ProductID:             p.ID,
				SellerID:              p.SellerID,
				Quantity:              line.Quantity,
				UnitPriceAtPurchase:   line.unitPrice,
				NameAtPurchase:        p.Name,
				DescriptionAtPurchase: p.Description,
				ImageAtPurchase:       p.ImageURL,
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return snapshots, nil
}

func checkReservations(order *domain.Order, lines []pricedLine) error {
	reserved := make(map[string]int, len(lines))
	for _, l := range lines {
		reserved[l.ProductID] += l.Quantity
	}
	snapshotted := order.ReservedQuantities()

	if len(reserved) != len(snapshotted) {
		return &Error{Kind: ErrInvariantViolation, Reason: "line count differs from reservations"}
	}
	for id, qty := range reserved {
		if snapshotted[id] != qty {
			return &Error{
				Kind:      ErrInvariantViolation,
				ProductID: id,
				Reason:    fmt.Sprintf("product %s reserved %d but snapshotted %d", id, qty, snapshotted[id]),
			}
		}
	}
	return nil
}

// persist writes the order under a fresh order number, regenerating on
// collision.
func (o *Orchestrator) persist(ctx context.Context, s *saga, order *domain.Order) error {
	var err error
	for attempt := 1; attempt <= maxOrderNumberAttempts; attempt++ {
		order.OrderNumber = NewOrderNumber(order.CreatedAt)
		err = o.orders.Create(ctx, order)
		if !errors.Is(err, orders.ErrDuplicateOrderNumber) {
			break
		}
		o.logger.WarnContext(ctx, "order number collision", "order_number", order.OrderNumber, "attempt", attempt)
	}
	if err != nil {
		return fmt.Errorf("persist order: %w", err)
	}

	orderNumber := order.OrderNumber
	s.push("discard:"+orderNumber, func(ctx context.Context) error {
		return o.orders.Discard(ctx, orderNumber)
	})
	return nil
}

func (o *Orchestrator) publish(ctx context.Context, order *domain.Order) {
	if o.publisher == nil {
		return
	}
	event := domain.OrderCreatedEvent{
		OrderNumber: order.OrderNumber,
		BuyerID:     order.BuyerID,
		Lines:       order.Lines,
		Total:       order.Pricing.Total,
		Timestamp:   order.CreatedAt,
	}
	if err := o.publisher.Publish(ctx, order.OrderNumber, event); err != nil {
		o.logger.ErrorContext(ctx, "failed to publish order created event", "error", err, "order_number", order.OrderNumber)
	}
}
