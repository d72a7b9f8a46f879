package domain

import (
	"sort"
	"time"
)

// CartLine is unique per (cart, product).
type CartLine struct {
	ProductID string    `json:"product_id"`
	Quantity  int       `json:"quantity"`
	AddedAt   time.Time `json:"added_at"`
}

type Cart struct {
	BuyerID        string     `json:"buyer_id"`
	Lines          []CartLine `json:"lines"`
	SavedForLater  []string   `json:"saved_for_later"`
	AppliedCoupons []string   `json:"applied_coupons"`
}

func (c *Cart) Line(productID string) (CartLine, bool) {
	for _, l := range c.Lines {
		if l.ProductID == productID {
			return l, true
		}
	}
	return CartLine{}, false
}

func (c *Cart) ProductIDs() []string {
	ids := make([]string, 0, len(c.Lines))
	for _, l := range c.Lines {
		ids = append(ids, l.ProductID)
	}
	sort.Strings(ids)
	return ids
}

// Select returns the lines whose product ids are in ids, sorted by product id.
func (c *Cart) Select(ids []string) []CartLine {
	wanted := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		wanted[id] = struct{}{}
	}

	var out []CartLine
	for _, l := range c.Lines {
		if _, ok := wanted[l.ProductID]; ok {
			out = append(out, l)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })
	return out
}
