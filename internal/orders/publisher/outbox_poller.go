package publisher

import (
	"context"
	"log/slog"
	"time"

	"github.com/fjod/go_storefront/internal/orders/events"
	"github.com/fjod/go_storefront/internal/orders/repository"
	"github.com/fjod/go_storefront/pkg/circuitbreaker"
	"github.com/segmentio/kafka-go"
)

// MessageWriter is the part of *kafka.Writer the poller uses.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

// Listener receives every event after it has been published.
type Listener func(events.OrderEvent)

type OutboxPoller struct {
	timeout   time.Duration
	eventTick time.Duration
	batchSize int
	repo      repository.OutboxRepository
	writer    MessageWriter
	breaker   *circuitbreaker.Breaker
	listeners []Listener
	logger    *slog.Logger
}

func NewKafkaWriter(topic string, brokers ...string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		WriteTimeout:           10 * time.Second,
	}
}

// NewOutboxPoller publishes outbox rows through writer. A nil writer skips
// Kafka and only notifies listeners.
func NewOutboxPoller(repo repository.OutboxRepository, writer MessageWriter, breaker *circuitbreaker.Breaker, logger *slog.Logger, listeners ...Listener) *OutboxPoller {
	return &OutboxPoller{
		timeout:   5 * time.Second,
		eventTick: time.Second,
		batchSize: 100,
		repo:      repo,
		writer:    writer,
		breaker:   breaker,
		listeners: listeners,
		logger:    logger,
	}
}

func (p *OutboxPoller) Run(ctx context.Context) {
	eventTicker := time.NewTicker(p.eventTick)
	defer eventTicker.Stop()
	for {
		select {
		case <-eventTicker.C:
			p.processUnpublishedEvents(ctx)
		case <-ctx.Done():
			return
		}
	}
}

func (p *OutboxPoller) processUnpublishedEvents(ctx context.Context) {
	pending, err := p.repo.GetUnprocessedEvents(ctx, p.batchSize)
	if err != nil {
		p.logger.ErrorContext(ctx, "failed to fetch outbox events", "error", err)
		return
	}

	for _, event := range pending {
		if err := p.publish(ctx, event); err != nil {
			p.logger.ErrorContext(ctx, "failed to publish outbox event", "event_id", event.ID, "error", err)
			if circuitbreaker.IsOpen(err) {
				// remaining events stay queued until the breaker closes
				return
			}
			continue
		}

		if err := p.repo.MarkEventAsProcessed(ctx, event.ID); err != nil {
			p.logger.ErrorContext(ctx, "failed to mark outbox event processed", "event_id", event.ID, "error", err)
			continue
		}
		p.notify(ctx, event)
	}
}

func (p *OutboxPoller) publish(ctx context.Context, event *repository.OutboxEvent) error {
	if p.writer == nil {
		return nil
	}

	msg := kafka.Message{
		Key:   []byte(event.AggregateID),
		Value: event.Payload,
		Headers: []kafka.Header{
			{Key: events.HeaderEventType, Value: []byte(event.EventType)},
		},
	}

	write := func() error {
		writeCtx, cancel := context.WithTimeout(ctx, p.timeout)
		defer cancel()
		return p.writer.WriteMessages(writeCtx, msg)
	}
	if p.breaker == nil {
		return write()
	}
	return p.breaker.Do(write)
}

func (p *OutboxPoller) notify(ctx context.Context, event *repository.OutboxEvent) {
	if len(p.listeners) == 0 {
		return
	}
	ev, err := events.Decode(event.Payload)
	if err != nil {
		p.logger.WarnContext(ctx, "undecodable outbox payload", "event_id", event.ID, "error", err)
		return
	}
	for _, l := range p.listeners {
		l(ev)
	}
}
