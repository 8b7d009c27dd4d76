package domain

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// OwnerKind tells whether a cart belongs to an anonymous shopper or an
// authenticated user.
type OwnerKind string

const (
	OwnerGuest OwnerKind = "guest"
	OwnerUser  OwnerKind = "user"
)

// ItemKey identifies a cart line. VariantID is empty for products without
// variants.
type ItemKey struct {
	ProductID int64  `bson:"product_id" json:"product_id"`
	VariantID string `bson:"variant_id,omitempty" json:"variant_id,omitempty"`
}

func (k ItemKey) String() string {
	return fmt.Sprintf("%d:%s", k.ProductID, k.VariantID)
}

type CartItem struct {
	ProductID      int64           `bson:"product_id" json:"product_id"`
	VariantID      string          `bson:"variant_id,omitempty" json:"variant_id,omitempty"`
	Quantity       int32           `bson:"quantity" json:"quantity"`
	UnitPrice      decimal.Decimal `bson:"unit_price" json:"unit_price"`
	ProductName    string          `bson:"product_name" json:"product_name"`
	ImageURL       string          `bson:"image_url,omitempty" json:"image_url,omitempty"`
	AvailableStock *int32          `bson:"available_stock,omitempty" json:"available_stock,omitempty"`
	AddedAt        time.Time       `bson:"added_at" json:"added_at"`
}

func (i CartItem) Key() ItemKey {
	return ItemKey{ProductID: i.ProductID, VariantID: i.VariantID}
}

// Cart holds the shopper's lines in insertion order. Version is bumped on
// every persisted save and used for compare-and-swap writes.
type Cart struct {
	Items     []CartItem `bson:"items" json:"items"`
	Owner     OwnerKind  `bson:"owner" json:"owner"`
	OwnerID   string     `bson:"owner_id,omitempty" json:"owner_id,omitempty"`
	Version   int64      `bson:"version" json:"version"`
	CreatedAt time.Time  `bson:"created_at" json:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at" json:"updated_at"`
}

func NewGuestCart() *Cart {
	now := time.Now()
	return &Cart{Owner: OwnerGuest, CreatedAt: now, UpdatedAt: now}
}

func NewUserCart(userID string) *Cart {
	now := time.Now()
	return &Cart{Owner: OwnerUser, OwnerID: userID, CreatedAt: now, UpdatedAt: now}
}

// Find returns the index of the line with the given key, or -1.
func (c *Cart) Find(key ItemKey) int {
	for i := range c.Items {
		if c.Items[i].Key() == key {
			return i
		}
	}
	return -1
}

// Upsert merges the item into the cart. An existing line gets its quantity
// summed and its stock snapshot refreshed; a new line is appended at the end.
// The resulting quantity is clamped to the known stock. Returns true when the
// quantity was capped.
func (c *Cart) Upsert(item CartItem) bool {
	if idx := c.Find(item.Key()); idx >= 0 {
		line := &c.Items[idx]
		line.Quantity += item.Quantity
		if item.AvailableStock != nil {
			line.AvailableStock = item.AvailableStock
		}
		return line.clampToStock()
	}

	if item.AddedAt.IsZero() {
		item.AddedAt = time.Now()
	}
	capped := item.clampToStock()
	c.Items = append(c.Items, item)
	return capped
}

// Remove deletes the line with the given key. Removing an absent key is a
// no-op.
func (c *Cart) Remove(key ItemKey) {
	if idx := c.Find(key); idx >= 0 {
		c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	}
}

func (c *Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// Total sums unit price times quantity over all lines.
func (c *Cart) Total() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.UnitPrice.Mul(decimal.NewFromInt32(item.Quantity)))
	}
	return total
}

// Clone deep-copies the cart so a snapshot does not alias the live item
// slice.
func (c *Cart) Clone() *Cart {
	cp := *c
	cp.Items = make([]CartItem, len(c.Items))
	copy(cp.Items, c.Items)
	for i := range cp.Items {
		if s := c.Items[i].AvailableStock; s != nil {
			v := *s
			cp.Items[i].AvailableStock = &v
		}
	}
	return &cp
}

// RefreshStock applies the latest catalog stock to each line and clamps
// quantities. Lines without a snapshot keep whatever stock figure they had:
// stale data is better than pretending the product vanished.
func (c *Cart) RefreshStock(snapshots map[ItemKey]ProductSnapshot) {
	for i := range c.Items {
		snap, ok := snapshots[c.Items[i].Key()]
		if !ok {
			continue
		}
		stock := snap.Stock
		c.Items[i].AvailableStock = &stock
		c.Items[i].clampToStock()
	}
}

// clampToStock caps the quantity at the known available stock. A sold-out
// line (stock 0) keeps its quantity: it stays visible in the cart and the
// warning engine reports it as out of stock instead.
func (i *CartItem) clampToStock() bool {
	if i.AvailableStock == nil || *i.AvailableStock < 1 {
		return false
	}
	if i.Quantity > *i.AvailableStock {
		i.Quantity = *i.AvailableStock
		return true
	}
	return false
}
