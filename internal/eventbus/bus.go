// Package eventbus carries run events from the scheduler to downstream
// consumers: a RabbitMQ topic exchange in a deployed setup, a
// synchronous in-process bus in local mode. The bus never sits on the
// scheduling hot path — a run publishes a handful of envelopes after
// the ready-queue loop drains, and a publish failure never fails the
// run that produced it.
package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Publisher is the outbound half of the bus. Both the RabbitMQ
// publisher and the in-process bus satisfy it.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
	Close() error
}

// Envelope is the wire shape of one run event: the serialized event
// payload plus the identifying fields consumers route and correlate on.
type Envelope struct {
	EventID       uuid.UUID       `json:"event_id"`
	AggregateID   uuid.UUID       `json:"aggregate_id"`
	AggregateType string          `json:"aggregate_type"`
	RoutingKey    string          `json:"routing_key"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
}

// ConsumedEvent is the envelope as seen by a registered consumer.
type ConsumedEvent = Envelope

// EventConsumer handles envelopes for the routing keys it declares.
type EventConsumer interface {
	EventTypes() []string
	Handle(ctx context.Context, evt *ConsumedEvent) error
}

// registry maps routing keys to the consumers subscribed to them.
type registry struct {
	mu        sync.RWMutex
	consumers map[string][]EventConsumer
	logger    *slog.Logger
}

func newRegistry(logger *slog.Logger) *registry {
	return &registry{
		consumers: make(map[string][]EventConsumer),
		logger:    logger,
	}
}

func (r *registry) register(c EventConsumer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, key := range c.EventTypes() {
		r.consumers[key] = append(r.consumers[key], c)
	}
}

// dispatch hands the envelope to every consumer of its routing key. A
// failing consumer does not block the others; the last error wins.
func (r *registry) dispatch(ctx context.Context, evt *ConsumedEvent) error {
	r.mu.RLock()
	consumers := r.consumers[evt.RoutingKey]
	r.mu.RUnlock()

	var lastErr error
	for _, c := range consumers {
		if err := c.Handle(ctx, evt); err != nil {
			r.logger.Error("event consumer failed",
				"routing_key", evt.RoutingKey,
				"event_id", evt.EventID,
				"error", err,
			)
			lastErr = err
		}
	}
	return lastErr
}

// InProcessEventBus delivers envelopes synchronously to registered
// consumers, standing in for the broker when no RabbitMQ is configured.
type InProcessEventBus struct {
	reg    *registry
	logger *slog.Logger
}

// NewInProcessEventBus builds an empty in-process bus.
func NewInProcessEventBus(logger *slog.Logger) *InProcessEventBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &InProcessEventBus{reg: newRegistry(logger), logger: logger}
}

// RegisterConsumer subscribes a consumer for its declared routing keys.
func (b *InProcessEventBus) RegisterConsumer(c EventConsumer) {
	b.reg.register(c)
}

// Publish unmarshals the envelope and dispatches it in the caller's
// goroutine. A malformed payload is logged and dropped rather than
// failing the run that published it.
func (b *InProcessEventBus) Publish(ctx context.Context, routingKey string, payload []byte) error {
	evt := &ConsumedEvent{}
	if err := json.Unmarshal(payload, evt); err != nil {
		b.logger.Error("dropping malformed event payload", "routing_key", routingKey, "error", err)
		return nil
	}
	if evt.RoutingKey == "" {
		evt.RoutingKey = routingKey
	}
	if err := b.reg.dispatch(ctx, evt); err != nil {
		b.logger.Error("event dispatch failed", "routing_key", routingKey, "event_id", evt.EventID, "error", err)
	}
	return nil
}

// Close is a no-op for the in-process bus.
func (b *InProcessEventBus) Close() error { return nil }
