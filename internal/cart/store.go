package cart

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/joao-fontenele/marketplace-checkout/internal/domain"
)

var ErrLineNotFound = errors.New("cart line not found")

// Store holds each buyer's cart. A cart exists implicitly: reading a buyer
// with no keys yields an empty cart.
type Store interface {
	Get(ctx context.Context, buyerID string) (*domain.Cart, error)
	PutLine(ctx context.Context, buyerID string, line domain.CartLine) error
	RemoveLines(ctx context.Context, buyerID string, productIDs ...string) error
	SaveForLater(ctx context.Context, buyerID, productID string) error
	MoveToCart(ctx context.Context, buyerID string, line domain.CartLine) error
	AddCoupon(ctx context.Context, buyerID, code string) error
	RemoveCoupon(ctx context.Context, buyerID, code string) error
}

// RedisStore keeps lines in a hash keyed by product id, which enforces one
// line per product. Saved-for-later items and coupons are sets.
type RedisStore struct {
	client *redis.Client
}

func NewRedisStore(client *redis.Client) *RedisStore {
	return &RedisStore{client: client}
}

func linesKey(buyerID string) string   { return fmt.Sprintf("cart:%s:lines", buyerID) }
func savedKey(buyerID string) string   { return fmt.Sprintf("cart:%s:saved", buyerID) }
func couponsKey(buyerID string) string { return fmt.Sprintf("cart:%s:coupons", buyerID) }

type storedLine struct {
	Quantity int       `json:"quantity"`
	AddedAt  time.Time `json:"added_at"`
}

func (s *RedisStore) Get(ctx context.Context, buyerID string) (*domain.Cart, error) {
	var (
		linesCmd   *redis.MapStringStringCmd
		savedCmd   *redis.StringSliceCmd
		couponsCmd *redis.StringSliceCmd
	)
	_, err := s.client.Pipelined(ctx, func(p redis.Pipeliner) error {
		linesCmd = p.HGetAll(ctx, linesKey(buyerID))
		savedCmd = p.SMembers(ctx, savedKey(buyerID))
		couponsCmd = p.SMembers(ctx, couponsKey(buyerID))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("redis get cart failed: %w", err)
	}

	cart := &domain.Cart{
		BuyerID:        buyerID,
		Lines:          make([]domain.CartLine, 0, len(linesCmd.Val())),
		SavedForLater:  savedCmd.Val(),
		AppliedCoupons: couponsCmd.Val(),
	}
	for productID, raw := range linesCmd.Val() {
		var sl storedLine
		if err := json.Unmarshal([]byte(raw), &sl); err != nil {
			return nil, fmt.Errorf("unmarshal cart line %s failed: %w", productID, err)
		}
		cart.Lines = append(cart.Lines, domain.CartLine{ProductID: productID, Quantity: sl.Quantity, AddedAt: sl.AddedAt})
	}
	sort.Slice(cart.Lines, func(i, j int) bool { return cart.Lines[i].ProductID < cart.Lines[j].ProductID })
	sort.Strings(cart.SavedForLater)
	sort.Strings(cart.AppliedCoupons)

	return cart, nil
}

func (s *RedisStore) PutLine(ctx context.Context, buyerID string, line domain.CartLine) error {
	data, err := json.Marshal(storedLine{Quantity: line.Quantity, AddedAt: line.AddedAt})
	if err != nil {
		return fmt.Errorf("marshal cart line failed: %w", err)
	}
	if err := s.client.HSet(ctx, linesKey(buyerID), line.ProductID, data).Err(); err != nil {
		return fmt.Errorf("redis put line failed: %w", err)
	}
	return nil
}

// RemoveLines deletes all given lines in one HDEL.
func (s *RedisStore) RemoveLines(ctx context.Context, buyerID string, productIDs ...string) error {
	if len(productIDs) == 0 {
		return nil
	}
	if err := s.client.HDel(ctx, linesKey(buyerID), productIDs...).Err(); err != nil {
		return fmt.Errorf("redis remove lines failed: %w", err)
	}
	return nil
}

func (s *RedisStore) SaveForLater(ctx context.Context, buyerID, productID string) error {
	_, err := s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.HDel(ctx, linesKey(buyerID), productID)
		p.SAdd(ctx, savedKey(buyerID), productID)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis save for later failed: %w", err)
	}
	return nil
}

func (s *RedisStore) MoveToCart(ctx context.Context, buyerID string, line domain.CartLine) error {
	data, err := json.Marshal(storedLine{Quantity: line.Quantity, AddedAt: line.AddedAt})
	if err != nil {
		return fmt.Errorf("marshal cart line failed: %w", err)
	}

	_, err = s.client.TxPipelined(ctx, func(p redis.Pipeliner) error {
		p.SRem(ctx, savedKey(buyerID), line.ProductID)
		p.HSet(ctx, linesKey(buyerID), line.ProductID, data)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis move to cart failed: %w", err)
	}
	return nil
}

func (s *RedisStore) AddCoupon(ctx context.Context, buyerID, code string) error {
	if err := s.client.SAdd(ctx, couponsKey(buyerID), code).Err(); err != nil {
		return fmt.Errorf("redis add coupon failed: %w", err)
	}
	return nil
}

func (s *RedisStore) RemoveCoupon(ctx context.Context, buyerID, code string) error {
	if err := s.client.SRem(ctx, couponsKey(buyerID), code).Err(); err != nil {
		return fmt.Errorf("redis remove coupon failed: %w", err)
	}
	return nil
}
