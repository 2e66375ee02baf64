package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

var ErrOrderNotFound = fmt.Errorf("order not found: %w", domain.ErrNotFound)

// OutboxEvent is one row of the order outbox.
type OutboxEvent struct {
	ID          int64
	AggregateID string
	EventType   string
	Payload     json.RawMessage
	CreatedAt   time.Time
	ProcessedAt *time.Time
}

type Stats struct {
	OrderCount int
	Sales      decimal.Decimal
}

type OrderRepository interface {
	// CreateOrder stores the order and its order.placed outbox event in one
	// transaction.
	CreateOrder(ctx context.Context, order *domain.Order) error
	GetOrderByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	ListOrdersByUserID(ctx context.Context, userID string) ([]*domain.Order, error)
	ListOrders(ctx context.Context) ([]*domain.Order, error)
	// TransitionStatus locks the order row, applies the transition table and
	// records an order.status_changed outbox event.
	TransitionStatus(ctx context.Context, id uuid.UUID, next domain.OrderStatus) (*domain.Order, error)
	Stats(ctx context.Context) (Stats, error)
	RunMigrations(dir string) error
}

type OutboxRepository interface {
	GetUnprocessedEvents(ctx context.Context, limit int) ([]*OutboxEvent, error)
	MarkEventAsProcessed(ctx context.Context, id int64) error
}
