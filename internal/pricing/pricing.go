// Package pricing derives checkout totals from a subtotal.
package pricing

import (
	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
)

var (
	DefaultShippingFee = decimal.NewFromInt(99)
	DefaultTaxRate     = decimal.RequireFromString("0.18")
)

// Breakdown is the full price of a cart or order.
type Breakdown struct {
	Subtotal decimal.Decimal
	Shipping decimal.Decimal
	Tax      decimal.Decimal
	Total    decimal.Decimal
}

type Calculator struct {
	shippingFee decimal.Decimal
	taxRate     decimal.Decimal
}

func NewCalculator(shippingFee, taxRate decimal.Decimal) *Calculator {
	return &Calculator{shippingFee: shippingFee, taxRate: taxRate}
}

func Default() *Calculator {
	return NewCalculator(DefaultShippingFee, DefaultTaxRate)
}

// Quote prices a subtotal. Shipping applies only to a positive subtotal and
// tax is rounded half-up to whole currency units.
func (c *Calculator) Quote(subtotal decimal.Decimal) Breakdown {
	shipping := decimal.Zero
	if subtotal.IsPositive() {
		shipping = c.shippingFee
	}
	tax := subtotal.Mul(c.taxRate).Round(0)

	return Breakdown{
		Subtotal: subtotal,
		Shipping: shipping,
		Tax:      tax,
		Total:    subtotal.Add(shipping).Add(tax),
	}
}

func (c *Calculator) QuoteCart(cart *domain.Cart) Breakdown {
	return c.Quote(cart.Recalculate())
}

func (c *Calculator) QuoteItems(items []domain.OrderItem) Breakdown {
	subtotal := decimal.Zero
	for _, item := range items {
		subtotal = subtotal.Add(item.LineTotal())
	}
	return c.Quote(subtotal)
}
