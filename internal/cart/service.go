package cart

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"time"

	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/marketplace-checkout/internal/domain"
	"github.com/joao-fontenele/marketplace-checkout/internal/pricing"
)

var (
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	ErrNotSaved        = errors.New("product is not saved for later")
)

type Catalog interface {
	GetProduct(ctx context.Context, productID string) (*domain.Product, error)
	CurrentPrice(ctx context.Context, productID string) (decimal.Decimal, error)
	CouponPercent(ctx context.Context, code string) (decimal.Decimal, error)
}

type Service struct {
	store   Store
	catalog Catalog
	policy  pricing.Policy
	logger  *slog.Logger
	now     func() time.Time
}

func NewService(store Store, catalog Catalog, policy pricing.Policy, logger *slog.Logger) *Service {
	return &Service{
		store:   store,
		catalog: catalog,
		policy:  policy,
		logger:  logger,
		now:     time.Now,
	}
}

func (s *Service) Get(ctx context.Context, buyerID string) (*domain.Cart, error) {
	return s.store.Get(ctx, buyerID)
}

// Add puts quantity units of a product in the cart, merging into an
// existing line for the same product.
func (s *Service) Add(ctx context.Context, buyerID, productID string, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}
	if _, err := s.catalog.GetProduct(ctx, productID); err != nil {
		return nil, err
	}

	cart, err := s.store.Get(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	line := domain.CartLine{ProductID: productID, Quantity: quantity, AddedAt: s.now().UTC()}
	if existing, ok := cart.Line(productID); ok {
		line.Quantity += existing.Quantity
		line.AddedAt = existing.AddedAt
	}

	if slices.Contains(cart.SavedForLater, productID) {
		err = s.store.MoveToCart(ctx, buyerID, line)
	} else {
		err = s.store.PutLine(ctx, buyerID, line)
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("cart line added", "buyer_id", buyerID, "product_id", productID, "quantity", line.Quantity)
	return s.store.Get(ctx, buyerID)
}

func (s *Service) UpdateQuantity(ctx context.Context, buyerID, productID string, quantity int) (*domain.Cart, error) {
	if quantity < 1 {
		return nil, ErrInvalidQuantity
	}

	cart, err := s.store.Get(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	line, ok := cart.Line(productID)
	if !ok {
		return nil, ErrLineNotFound
	}

	line.Quantity = quantity
	if err := s.store.PutLine(ctx, buyerID, line); err != nil {
		return nil, err
	}

	return s.store.Get(ctx, buyerID)
}

func (s *Service) Remove(ctx context.Context, buyerID, productID string) (*domain.Cart, error) {
	cart, err := s.store.Get(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if _, ok := cart.Line(productID); !ok {
		return nil, ErrLineNotFound
	}

	if err := s.store.RemoveLines(ctx, buyerID, productID); err != nil {
		return nil, err
	}

	return s.store.Get(ctx, buyerID)
}

func (s *Service) SaveForLater(ctx context.Context, buyerID, productID string) (*domain.Cart, error) {
	cart, err := s.store.Get(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if _, ok := cart.Line(productID); !ok {
		return nil, ErrLineNotFound
	}

	if err := s.store.SaveForLater(ctx, buyerID, productID); err != nil {
		return nil, err
	}

	return s.store.Get(ctx, buyerID)
}

// MoveToCart brings a saved product back as a single-unit line.
func (s *Service) MoveToCart(ctx context.Context, buyerID, productID string) (*domain.Cart, error) {
	cart, err := s.store.Get(ctx, buyerID)
	if err != nil {
		return nil, err
	}
	if !slices.Contains(cart.SavedForLater, productID) {
		return nil, ErrNotSaved
	}

	line := domain.CartLine{ProductID: productID, Quantity: 1, AddedAt: s.now().UTC()}
	if err := s.store.MoveToCart(ctx, buyerID, line); err != nil {
		return nil, err
	}

	return s.store.Get(ctx, buyerID)
}

func (s *Service) ApplyCoupon(ctx context.Context, buyerID, code string) (*domain.Cart, error) {
	if _, err := s.catalog.CouponPercent(ctx, code); err != nil {
		return nil, err
	}
	if err := s.store.AddCoupon(ctx, buyerID, code); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, buyerID)
}

func (s *Service) RemoveCoupon(ctx context.Context, buyerID, code string) (*domain.Cart, error) {
	if err := s.store.RemoveCoupon(ctx, buyerID, code); err != nil {
		return nil, err
	}
	return s.store.Get(ctx, buyerID)
}

type PreviewLine struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	LineTotal decimal.Decimal `json:"line_total"`
}

// Preview is advisory. Checkout re-prices every line when the order is placed.
type Preview struct {
	BuyerID string         `json:"buyer_id"`
	Lines   []PreviewLine  `json:"lines"`
	Pricing domain.Pricing `json:"pricing"`
}

func (s *Service) Preview(ctx context.Context, buyerID string) (*Preview, error) {
	cart, err := s.store.Get(ctx, buyerID)
	if err != nil {
		return nil, err
	}

	preview := &Preview{BuyerID: buyerID, Lines: make([]PreviewLine, 0, len(cart.Lines))}
	quoteLines := make([]pricing.Line, 0, len(cart.Lines))
	for _, l := range cart.Lines {
		price, err := s.catalog.CurrentPrice(ctx, l.ProductID)
		if err != nil {
			return nil, fmt.Errorf("price product %s: %w", l.ProductID, err)
		}
		preview.Lines = append(preview.Lines, PreviewLine{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: price,
			LineTotal: price.Mul(decimal.NewFromInt(int64(l.Quantity))),
		})
		quoteLines = append(quoteLines, pricing.Line{UnitPrice: price, Quantity: l.Quantity})
	}

	discount, err := pricing.CouponDiscount(ctx, s.catalog, s.logger, cart.AppliedCoupons, pricing.Subtotal(quoteLines))
	if err != nil {
		return nil, err
	}
	preview.Pricing = s.policy.Quote(quoteLines, discount)
	return preview, nil
}
