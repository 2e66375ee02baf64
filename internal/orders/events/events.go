// Package events defines the order events written to the outbox and carried
// over Kafka and the admin websocket feed.
package events

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	TypeOrderPlaced   = "order.placed"
	TypeStatusChanged = "order.status_changed"

	// HeaderEventType is the Kafka header carrying the event type.
	HeaderEventType = "event_type"

	// SourceCart marks orders checked out from the server-side cart.
	SourceCart = "cart"
)

// Line is one ordered product carried by order.placed.
type Line struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type OrderEvent struct {
	Type           string          `json:"type"`
	OrderID        string          `json:"order_id"`
	UserID         string          `json:"user_id"`
	Status         string          `json:"status"`
	PreviousStatus string          `json:"previous_status,omitempty"`
	Source         string          `json:"source,omitempty"`
	TotalAmount    decimal.Decimal `json:"total_amount"`
	ItemCount      int             `json:"item_count"`
	Items          []Line          `json:"items,omitempty"`
	OccurredAt     time.Time       `json:"occurred_at"`
}

// StockLines converts the carried lines for cart settlement.
func (e OrderEvent) StockLines() []domain.StockLine {
	lines := make([]domain.StockLine, 0, len(e.Items))
	for _, l := range e.Items {
		lines = append(lines, domain.StockLine{ProductID: l.ProductID, Quantity: l.Quantity})
	}
	return lines
}

func itemCount(o *domain.Order) int {
	n := 0
	for _, it := range o.Items {
		n += it.Quantity
	}
	return n
}

func Placed(o *domain.Order) OrderEvent {
	lines := make([]Line, 0, len(o.Items))
	for _, it := range o.Items {
		lines = append(lines, Line{ProductID: it.ProductID, Quantity: it.Quantity})
	}
	return OrderEvent{
		Type:        TypeOrderPlaced,
		OrderID:     o.ID.String(),
		UserID:      o.UserID,
		Status:      o.Status.String(),
		Source:      o.Source,
		TotalAmount: o.TotalAmount,
		ItemCount:   itemCount(o),
		Items:       lines,
		OccurredAt:  o.CreatedAt,
	}
}

func StatusChanged(o *domain.Order, previous domain.OrderStatus) OrderEvent {
	return OrderEvent{
		Type:           TypeStatusChanged,
		OrderID:        o.ID.String(),
		UserID:         o.UserID,
		Status:         o.Status.String(),
		PreviousStatus: previous.String(),
		Source:         o.Source,
		TotalAmount:    o.TotalAmount,
		ItemCount:      itemCount(o),
		OccurredAt:     o.UpdatedAt,
	}
}

func Decode(payload []byte) (OrderEvent, error) {
	var ev OrderEvent
	if err := json.Unmarshal(payload, &ev); err != nil {
		return OrderEvent{}, fmt.Errorf("decode order event: %w", err)
	}
	return ev, nil
}
