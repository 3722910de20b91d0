package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type captureConsumer struct {
	types   []string
	handled []*ConsumedEvent
	fail    bool
}

func (c *captureConsumer) EventTypes() []string { return c.types }

func (c *captureConsumer) Handle(_ context.Context, evt *ConsumedEvent) error {
	c.handled = append(c.handled, evt)
	if c.fail {
		return errors.New("handler failed")
	}
	return nil
}

func marshalEnvelope(t *testing.T, key string) []byte {
	t.Helper()
	raw, err := json.Marshal(Envelope{
		EventID:       uuid.New(),
		AggregateID:   uuid.New(),
		AggregateType: "project",
		RoutingKey:    key,
		OccurredAt:    time.Now().UTC(),
		Payload:       json.RawMessage(`{"n":1}`),
	})
	require.NoError(t, err)
	return raw
}

func TestInProcessBus_DispatchesToMatchingConsumer(t *testing.T) {
	bus := NewInProcessEventBus(nil)
	matching := &captureConsumer{types: []string{"schedule.computed"}}
	other := &captureConsumer{types: []string{"schedule.deadlock_detected"}}
	bus.RegisterConsumer(matching)
	bus.RegisterConsumer(other)

	require.NoError(t, bus.Publish(context.Background(), "schedule.computed", marshalEnvelope(t, "schedule.computed")))

	require.Len(t, matching.handled, 1)
	assert.Empty(t, other.handled)
	assert.Equal(t, "schedule.computed", matching.handled[0].RoutingKey)
}

func TestInProcessBus_ConsumerFailureDoesNotFailPublish(t *testing.T) {
	bus := NewInProcessEventBus(nil)
	failing := &captureConsumer{types: []string{"schedule.computed"}, fail: true}
	healthy := &captureConsumer{types: []string{"schedule.computed"}}
	bus.RegisterConsumer(failing)
	bus.RegisterConsumer(healthy)

	assert.NoError(t, bus.Publish(context.Background(), "schedule.computed", marshalEnvelope(t, "schedule.computed")))
	assert.Len(t, failing.handled, 1)
	assert.Len(t, healthy.handled, 1)
}

func TestInProcessBus_MalformedPayloadIsDropped(t *testing.T) {
	bus := NewInProcessEventBus(nil)
	c := &captureConsumer{types: []string{"schedule.computed"}}
	bus.RegisterConsumer(c)

	assert.NoError(t, bus.Publish(context.Background(), "schedule.computed", []byte("{not json")))
	assert.Empty(t, c.handled)
}

func TestInProcessBus_RoutingKeyFilledFromParameter(t *testing.T) {
	bus := NewInProcessEventBus(nil)
	c := &captureConsumer{types: []string{"schedule.task_unscheduled"}}
	bus.RegisterConsumer(c)

	raw, err := json.Marshal(Envelope{EventID: uuid.New(), Payload: json.RawMessage(`{}`)})
	require.NoError(t, err)
	require.NoError(t, bus.Publish(context.Background(), "schedule.task_unscheduled", raw))
	require.Len(t, c.handled, 1)
	assert.Equal(t, "schedule.task_unscheduled", c.handled[0].RoutingKey)
}
