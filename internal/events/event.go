package events

import (
	"time"

	"github.com/google/uuid"
)

// RunEvent is what every event this package raises has in common: an
// identity, the aggregate it belongs to, and a routing key the bus
// publishes it under.
type RunEvent interface {
	EventID() uuid.UUID
	AggregateID() uuid.UUID
	AggregateType() string
	RoutingKey() string
	OccurredAt() time.Time
}

// BaseEvent carries the RunEvent fields; concrete events embed it.
type BaseEvent struct {
	eventID       uuid.UUID
	aggregateID   uuid.UUID
	aggregateType string
	routingKey    string
	occurredAt    time.Time
}

// NewBaseEvent stamps a fresh event identity and occurrence time.
func NewBaseEvent(aggregateID uuid.UUID, aggregateType, routingKey string) BaseEvent {
	return BaseEvent{
		eventID:       uuid.New(),
		aggregateID:   aggregateID,
		aggregateType: aggregateType,
		routingKey:    routingKey,
		occurredAt:    time.Now().UTC(),
	}
}

func (e BaseEvent) EventID() uuid.UUID     { return e.eventID }
func (e BaseEvent) AggregateID() uuid.UUID { return e.aggregateID }
func (e BaseEvent) AggregateType() string  { return e.aggregateType }
func (e BaseEvent) RoutingKey() string     { return e.routingKey }
func (e BaseEvent) OccurredAt() time.Time  { return e.occurredAt }
