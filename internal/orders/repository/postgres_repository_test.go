package repository

import (
	"context"
	"testing"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/orders/events"
	"github.com/fjod/go_storefront/internal/postgres/pgtest"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupTestDB(t *testing.T) *Repository {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	repo := NewRepository(pgtest.Start(t))
	require.NoError(t, repo.RunMigrations("./migrations"))
	return repo
}

func newTestOrder(userID string, total int64) *domain.Order {
	return &domain.Order{
		ID:     uuid.New(),
		UserID: userID,
		Items: []domain.OrderItem{
			{ProductID: "p-1", Name: "Cotton Handloom Saree", Quantity: 1, UnitPrice: decimal.NewFromInt(1000)},
		},
		Subtotal:    decimal.NewFromInt(1000),
		ShippingFee: decimal.NewFromInt(99),
		Tax:         decimal.NewFromInt(180),
		TotalAmount: decimal.NewFromInt(total),
		ShippingAddress: domain.ShippingAddress{
			Street: "12 MG Road", City: "Pune", PostalCode: "411001", Country: "IN",
		},
		Status: domain.OrderStatusNew,
		Source: "cart",
	}
}

func TestCreateOrder_RoundTripAndOutbox(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	order := newTestOrder("user-1", 1279)
	require.NoError(t, repo.CreateOrder(ctx, order))

	got, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, "user-1", got.UserID)
	assert.Equal(t, domain.OrderStatusNew, got.Status)
	assert.True(t, got.TotalAmount.Equal(decimal.NewFromInt(1279)))
	require.Len(t, got.Items, 1)
	assert.True(t, got.Items[0].UnitPrice.Equal(decimal.NewFromInt(1000)))
	assert.Equal(t, "Pune", got.ShippingAddress.City)

	pending, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, events.TypeOrderPlaced, pending[0].EventType)
	assert.Equal(t, order.ID.String(), pending[0].AggregateID)

	ev, err := events.Decode(pending[0].Payload)
	require.NoError(t, err)
	assert.Equal(t, "cart", ev.Source)
	assert.Equal(t, 1, ev.ItemCount)

	require.NoError(t, repo.MarkEventAsProcessed(ctx, pending[0].ID))
	pending, err = repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, pending)
}

func TestGetOrderByID_NotFound(t *testing.T) {
	repo := setupTestDB(t)

	_, err := repo.GetOrderByID(context.Background(), uuid.New())
	assert.ErrorIs(t, err, ErrOrderNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestListOrders(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("user-1", 100)))
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("user-1", 200)))
	require.NoError(t, repo.CreateOrder(ctx, newTestOrder("user-2", 300)))

	mine, err := repo.ListOrdersByUserID(ctx, "user-1")
	require.NoError(t, err)
	assert.Len(t, mine, 2)
	for _, o := range mine {
		assert.Equal(t, "user-1", o.UserID)
	}

	all, err := repo.ListOrders(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	none, err := repo.ListOrdersByUserID(ctx, "user-3")
	require.NoError(t, err)
	assert.NotNil(t, none)
	assert.Empty(t, none)
}

func TestTransitionStatus(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	order := newTestOrder("user-1", 1279)
	require.NoError(t, repo.CreateOrder(ctx, order))

	updated, err := repo.TransitionStatus(ctx, order.ID, domain.OrderStatusProcessing)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, updated.Status)

	_, err = repo.TransitionStatus(ctx, order.ID, domain.OrderStatusNew)
	assert.ErrorIs(t, err, domain.ErrIllegalTransition)

	stored, err := repo.GetOrderByID(ctx, order.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, stored.Status)
	assert.True(t, stored.TotalAmount.Equal(order.TotalAmount), "amounts must not change")

	pending, err := repo.GetUnprocessedEvents(ctx, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2, "placed + one status change")
	assert.Equal(t, events.TypeStatusChanged, pending[1].EventType)

	ev, err := events.Decode(pending[1].Payload)
	require.NoError(t, err)
	assert.Equal(t, "New", ev.PreviousStatus)
	assert.Equal(t, "Processing", ev.Status)

	_, err = repo.TransitionStatus(ctx, uuid.New(), domain.OrderStatusShipped)
	assert.ErrorIs(t, err, ErrOrderNotFound)
}

func TestStats(t *testing.T) {
	repo := setupTestDB(t)
	ctx := context.Background()

	empty, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 0, empty.OrderCount)
	assert.True(t, empty.Sales.IsZero())

	kept := newTestOrder("user-1", 1000)
	cancelled := newTestOrder("user-2", 500)
	require.NoError(t, repo.CreateOrder(ctx, kept))
	require.NoError(t, repo.CreateOrder(ctx, cancelled))
	_, err = repo.TransitionStatus(ctx, cancelled.ID, domain.OrderStatusCancelled)
	require.NoError(t, err)

	stats, err := repo.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, stats.OrderCount)
	assert.True(t, stats.Sales.Equal(decimal.NewFromInt(1000)), "sales %s", stats.Sales)
}
