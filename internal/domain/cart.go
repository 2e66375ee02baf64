package domain

import (
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

const maxSettled = 20

// CartItem is one line of a cart. Quantity is always at least 1 while the
// line is part of a cart.
type CartItem struct {
	ProductID string          `json:"product_id"`
	Name      string          `json:"name"`
	Price     decimal.Decimal `json:"price"`
	Image     string          `json:"image"`
	Category  string          `json:"category"`
	Quantity  int             `json:"quantity"`
	AddedAt   time.Time       `json:"added_at"`
}

// LineTotal is unit price times quantity.
func (i CartItem) LineTotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// Cart holds line items keyed by product id in insertion order. Total is
// re-derived from the lines after every mutation and never adjusted
// incrementally.
type Cart struct {
	ID        string          `json:"id,omitempty"`
	UserID    string          `json:"user_id,omitempty"`
	Items     []CartItem      `json:"items"`
	Total     decimal.Decimal `json:"total"`
	CreatedAt time.Time       `json:"created_at"`
	UpdatedAt time.Time       `json:"updated_at"`
	Settled   []string        `json:"settled,omitempty"` // most recent orders deducted by Settle
}

func NewCart(userID string) *Cart {
	now := time.Now().UTC()
	return &Cart{
		UserID:    userID,
		Items:     []CartItem{},
		Total:     decimal.Zero,
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// Add merges item into the cart. An existing line with the same product id
// has its quantity increased by qty; otherwise a new line is appended. A
// non-positive qty counts as 1.
func (c *Cart) Add(item CartItem, qty int) error {
	if item.ProductID == "" {
		return NewValidationError("product_id", "is required")
	}
	if item.Price.IsNegative() {
		return NewValidationError("price", "must not be negative")
	}
	if qty <= 0 {
		qty = 1
	}

	if idx := c.indexOf(item.ProductID); idx >= 0 {
		c.Items[idx].Quantity += qty
	} else {
		item.Quantity = qty
		if item.AddedAt.IsZero() {
			item.AddedAt = time.Now().UTC()
		}
		c.Items = append(c.Items, item)
	}
	c.touch()
	return nil
}

// UpdateQuantity sets the quantity of a line. qty <= 0 removes the line.
func (c *Cart) UpdateQuantity(productID string, qty int) error {
	if qty <= 0 {
		if !c.Remove(productID) {
			return fmt.Errorf("cart item %s: %w", productID, ErrNotFound)
		}
		return nil
	}

	idx := c.indexOf(productID)
	if idx < 0 {
		return fmt.Errorf("cart item %s: %w", productID, ErrNotFound)
	}
	c.Items[idx].Quantity = qty
	c.touch()
	return nil
}

// Remove deletes the line for productID and reports whether one existed.
func (c *Cart) Remove(productID string) bool {
	idx := c.indexOf(productID)
	if idx < 0 {
		return false
	}
	c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
	c.touch()
	return true
}

func (c *Cart) Clear() {
	c.Items = []CartItem{}
	c.touch()
}

// Deduct subtracts ordered quantities from the matching lines and drops
// lines that reach zero. Lines added or raised after the order was taken
// keep the surplus; unknown products are ignored.
func (c *Cart) Deduct(lines []StockLine) {
	changed := false
	for _, l := range lines {
		idx := c.indexOf(l.ProductID)
		if idx < 0 || l.Quantity <= 0 {
			continue
		}
		changed = true
		if c.Items[idx].Quantity <= l.Quantity {
			c.Items = append(c.Items[:idx], c.Items[idx+1:]...)
			continue
		}
		c.Items[idx].Quantity -= l.Quantity
	}
	if changed {
		c.touch()
	}
}

// Settle deducts the lines of orderID once. It reports false when the order
// was already settled against this cart.
func (c *Cart) Settle(orderID string, lines []StockLine) bool {
	if slices.Contains(c.Settled, orderID) {
		return false
	}
	c.Deduct(lines)
	c.Settled = append(c.Settled, orderID)
	if n := len(c.Settled); n > maxSettled {
		c.Settled = append([]string(nil), c.Settled[n-maxSettled:]...)
	}
	c.UpdatedAt = time.Now().UTC()
	return true
}

func (c Cart) IsEmpty() bool {
	return len(c.Items) == 0
}

// ItemCount is the number of units across all lines.
func (c Cart) ItemCount() int {
	n := 0
	for _, item := range c.Items {
		n += item.Quantity
	}
	return n
}

// Recalculate re-derives Total from the lines.
func (c *Cart) Recalculate() decimal.Decimal {
	total := decimal.Zero
	for _, item := range c.Items {
		total = total.Add(item.LineTotal())
	}
	c.Total = total
	return total
}

func (c *Cart) indexOf(productID string) int {
	for i := range c.Items {
		if c.Items[i].ProductID == productID {
			return i
		}
	}
	return -1
}

func (c *Cart) touch() {
	c.Recalculate()
	c.UpdatedAt = time.Now().UTC()
}
