package domain

import (
	"fmt"
	"math/rand"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func item(id string, price int64) CartItem {
	return CartItem{
		ProductID: id,
		Name:      "product " + id,
		Price:     decimal.NewFromInt(price),
		Category:  "sarees",
	}
}

func expectedTotal(c *Cart) decimal.Decimal {
	sum := decimal.Zero
	for _, it := range c.Items {
		sum = sum.Add(it.Price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return sum
}

func TestCartAdd_NewLineStartsAtOne(t *testing.T) {
	c := NewCart("u1")
	require.NoError(t, c.Add(item("1", 4599), 0))

	require.Len(t, c.Items, 1)
	assert.Equal(t, 1, c.Items[0].Quantity)
	assert.True(t, c.Total.Equal(decimal.NewFromInt(4599)))
}

func TestCartAdd_ExistingLineIncrements(t *testing.T) {
	c := NewCart("u1")
	require.NoError(t, c.Add(item("1", 100), 1))
	require.NoError(t, c.Add(item("1", 100), 1))
	require.NoError(t, c.Add(item("1", 100), 3))

	require.Len(t, c.Items, 1)
	assert.Equal(t, 5, c.Items[0].Quantity)
	assert.True(t, c.Total.Equal(decimal.NewFromInt(500)))
}

func TestCartAdd_Rejects(t *testing.T) {
	c := NewCart("u1")

	err := c.Add(CartItem{Price: decimal.NewFromInt(1)}, 1)
	assert.ErrorIs(t, err, ErrValidation)

	err = c.Add(item("1", -5), 1)
	assert.ErrorIs(t, err, ErrValidation)
	assert.True(t, c.IsEmpty())
}

func TestCartUpdateQuantity(t *testing.T) {
	c := NewCart("u1")
	require.NoError(t, c.Add(item("1", 250), 1))

	require.NoError(t, c.UpdateQuantity("1", 4))
	assert.Equal(t, 4, c.Items[0].Quantity)
	assert.True(t, c.Total.Equal(decimal.NewFromInt(1000)))

	err := c.UpdateQuantity("missing", 2)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCartUpdateQuantityZeroEqualsRemove(t *testing.T) {
	viaUpdate := NewCart("u1")
	viaRemove := NewCart("u1")
	for _, c := range []*Cart{viaUpdate, viaRemove} {
		require.NoError(t, c.Add(item("1", 100), 2))
		require.NoError(t, c.Add(item("2", 300), 1))
	}

	require.NoError(t, viaUpdate.UpdateQuantity("1", 0))
	assert.True(t, viaRemove.Remove("1"))

	require.Len(t, viaUpdate.Items, len(viaRemove.Items))
	for i := range viaRemove.Items {
		assert.Equal(t, viaRemove.Items[i].ProductID, viaUpdate.Items[i].ProductID)
		assert.Equal(t, viaRemove.Items[i].Quantity, viaUpdate.Items[i].Quantity)
	}
	assert.True(t, viaRemove.Total.Equal(viaUpdate.Total))
	assert.True(t, viaUpdate.Total.Equal(decimal.NewFromInt(300)))
}

func TestCartUpdateQuantityNegativeRemoves(t *testing.T) {
	c := NewCart("u1")
	require.NoError(t, c.Add(item("1", 100), 2))

	require.NoError(t, c.UpdateQuantity("1", -3))
	assert.True(t, c.IsEmpty())
	assert.True(t, c.Total.IsZero())
}

func TestCartRemoveMissingIsNoop(t *testing.T) {
	c := NewCart("u1")
	require.NoError(t, c.Add(item("1", 100), 1))

	assert.False(t, c.Remove("2"))
	assert.Len(t, c.Items, 1)
}

func TestCartClear(t *testing.T) {
	c := NewCart("u1")
	require.NoError(t, c.Add(item("1", 100), 2))
	require.NoError(t, c.Add(item("2", 50), 2))

	c.Clear()
	assert.True(t, c.IsEmpty())
	assert.True(t, c.Total.IsZero())
	assert.NotNil(t, c.Items)
}

func TestCartTotalAlwaysMatchesLines(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	c := NewCart("u1")

	for step := 0; step < 500; step++ {
		id := fmt.Sprint(rng.Intn(6))
		switch rng.Intn(3) {
		case 0:
			require.NoError(t, c.Add(item(id, int64(rng.Intn(5000))), rng.Intn(4)))
		case 1:
			_ = c.UpdateQuantity(id, rng.Intn(6)-1)
		case 2:
			c.Remove(id)
		}

		assert.True(t, c.Total.Equal(expectedTotal(c)), "step %d", step)
		for _, it := range c.Items {
			assert.GreaterOrEqual(t, it.Quantity, 1)
		}
	}
}

func TestCartRecalculateIgnoresStaleTotal(t *testing.T) {
	c := NewCart("u1")
	require.NoError(t, c.Add(item("1", 100), 2))

	c.Total = decimal.NewFromInt(999999)
	c.Recalculate()
	assert.True(t, c.Total.Equal(decimal.NewFromInt(200)))
}

func TestCartItemCount(t *testing.T) {
	c := NewCart("u1")
	require.NoError(t, c.Add(item("1", 100), 2))
	require.NoError(t, c.Add(item("2", 100), 3))

	assert.Equal(t, 5, c.ItemCount())
}

func TestCartDeductKeepsSurplus(t *testing.T) {
	c := NewCart("u1")
	require.NoError(t, c.Add(item("1", 100), 2))
	require.NoError(t, c.Add(item("2", 50), 3))
	require.NoError(t, c.Add(item("3", 10), 1))

	c.Deduct([]StockLine{{ProductID: "1", Quantity: 2}, {ProductID: "2", Quantity: 1}, {ProductID: "gone", Quantity: 4}})

	require.Len(t, c.Items, 2)
	assert.Equal(t, "2", c.Items[0].ProductID)
	assert.Equal(t, 2, c.Items[0].Quantity)
	assert.Equal(t, "3", c.Items[1].ProductID)
	assert.True(t, c.Total.Equal(decimal.NewFromInt(110)))
}

func TestCartSettleOncePerOrder(t *testing.T) {
	c := NewCart("u1")
	require.NoError(t, c.Add(item("1", 100), 4))

	lines := []StockLine{{ProductID: "1", Quantity: 1}}
	assert.True(t, c.Settle("o-1", lines))
	assert.False(t, c.Settle("o-1", lines))
	assert.Equal(t, 3, c.ItemCount())

	for i := 0; i < 30; i++ {
		c.Settle(fmt.Sprintf("bulk-%d", i), nil)
	}
	assert.Len(t, c.Settled, maxSettled)
	assert.Equal(t, "bulk-29", c.Settled[maxSettled-1])
}
