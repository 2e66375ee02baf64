package consumer

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"time"

	"github.com/fjod/go_storefront/internal/domain"
	"github.com/fjod/go_storefront/internal/orders/events"
	"github.com/segmentio/kafka-go"
)

// MessageReader is the part of *kafka.Reader the consumer uses.
type MessageReader interface {
	ReadMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// CartSettler deducts a committed order's lines from the user's cart, at
// most once per order id.
type CartSettler interface {
	SettleOrder(ctx context.Context, userID, orderID string, lines []domain.StockLine) error
}

// Consumer settles server-side carts from committed order.placed events.
// Checkout normally settles the cart itself; the consumer covers orders
// whose checkout stopped between commit and settlement.
type Consumer struct {
	reader  MessageReader
	carts   CartSettler
	logger  *slog.Logger
	backoff time.Duration
}

func NewKafkaReader(topic, groupID string, brokers ...string) *kafka.Reader {
	return kafka.NewReader(kafka.ReaderConfig{
		Brokers:  brokers,
		Topic:    topic,
		GroupID:  groupID,
		MaxBytes: 10e6,
	})
}

func NewConsumer(reader MessageReader, carts CartSettler, logger *slog.Logger) *Consumer {
	return &Consumer{reader: reader, carts: carts, logger: logger, backoff: time.Second}
}

func (c *Consumer) Run(ctx context.Context) {
	for {
		if ctx.Err() != nil {
			return
		}
		if err := c.consumeOne(ctx); err != nil {
			if ctx.Err() != nil || errors.Is(err, io.EOF) {
				return
			}
			c.logger.ErrorContext(ctx, "error reading order event", "error", err)
			select {
			case <-time.After(c.backoff):
			case <-ctx.Done():
				return
			}
		}
	}
}

func (c *Consumer) Close() {
	if err := c.reader.Close(); err != nil {
		c.logger.Error("error closing order event reader", "error", err)
	}
}

// consumeOne returns an error only when reading from Kafka fails.
// Undecodable or irrelevant messages are logged and skipped.
func (c *Consumer) consumeOne(ctx context.Context) error {
	m, err := c.reader.ReadMessage(ctx)
	if err != nil {
		return err
	}
	c.handle(ctx, m)
	return nil
}

func (c *Consumer) handle(ctx context.Context, m kafka.Message) {
	if t := headerValue(m, events.HeaderEventType); t != "" && t != events.TypeOrderPlaced {
		return
	}

	ev, err := events.Decode(m.Value)
	if err != nil {
		c.logger.WarnContext(ctx, "skipping malformed order event", "error", err, "offset", m.Offset)
		return
	}
	if ev.Type != events.TypeOrderPlaced || ev.Source != events.SourceCart {
		return
	}
	if ev.UserID == "" || ev.OrderID == "" || len(ev.Items) == 0 {
		c.logger.WarnContext(ctx, "incomplete order event", "order_id", ev.OrderID, "user_id", ev.UserID)
		return
	}

	if err := c.carts.SettleOrder(ctx, ev.UserID, ev.OrderID, ev.StockLines()); err != nil {
		c.logger.ErrorContext(ctx, "failed to settle cart", "error", err, "user_id", ev.UserID, "order_id", ev.OrderID)
		return
	}
	c.logger.DebugContext(ctx, "cart settled from order event", "user_id", ev.UserID, "order_id", ev.OrderID)
}

func headerValue(m kafka.Message, key string) string {
	for _, h := range m.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}
