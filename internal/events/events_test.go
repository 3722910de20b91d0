package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/scriptplanner/scriptplan/internal/driver"
	"github.com/scriptplanner/scriptplan/internal/eventbus"
	"github.com/scriptplanner/scriptplan/internal/model"
)

type recordingConsumer struct {
	types   []string
	handled []*eventbus.ConsumedEvent
}

func (c *recordingConsumer) EventTypes() []string { return c.types }

func (c *recordingConsumer) Handle(_ context.Context, evt *eventbus.ConsumedEvent) error {
	c.handled = append(c.handled, evt)
	return nil
}

func scheduledProject(t *testing.T) (*model.Project, *driver.Result) {
	t.Helper()
	start := time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC)
	p := model.NewProject(start, start.Add(7*24*time.Hour), time.Hour, time.UTC)
	p.WorkingTimeDefault = model.DefaultWorkWeek()

	r := p.AddResource(model.Resource{Path: "dev"})
	week := model.DefaultWorkWeek()
	p.Resource(r).Attrs(0).WorkingHours = &week

	task := p.AddTask(model.Task{Path: "work"})
	attrs := p.Task(task).Attrs(0)
	attrs.Effort = 2 * time.Hour
	attrs.HasForward, attrs.Forward = true, true
	attrs.Allocate.Primary = []model.ResourceID{r}

	res, err := driver.Schedule(context.Background(), p, 0, nil)
	require.NoError(t, err)
	return p, res
}

func TestPublish_WrapsEventInConsumedEventEnvelope(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(nil)
	consumer := &recordingConsumer{types: []string{"schedule.computed"}}
	bus.RegisterConsumer(consumer)

	projectID := uuid.New()
	evt := NewScheduleComputed(projectID, 0, 1, 0, 0, time.Second)

	require.NoError(t, Publish(context.Background(), bus, evt))
	require.Len(t, consumer.handled, 1)
	assert.Equal(t, "schedule.computed", consumer.handled[0].RoutingKey)
	assert.Equal(t, projectID, consumer.handled[0].AggregateID)

	var decoded ScheduleComputed
	require.NoError(t, json.Unmarshal(consumer.handled[0].Payload, &decoded))
	assert.Equal(t, 1, decoded.Scheduled)
}

func TestPublishResult_EmitsScheduleComputed(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(nil)
	consumer := &recordingConsumer{types: []string{"schedule.computed"}}
	bus.RegisterConsumer(consumer)

	proj, res := scheduledProject(t)
	projectID := uuid.New()

	require.NoError(t, PublishResult(context.Background(), bus, projectID, proj, res, nil))
	require.Len(t, consumer.handled, 1)

	var decoded ScheduleComputed
	require.NoError(t, json.Unmarshal(consumer.handled[0].Payload, &decoded))
	assert.Equal(t, 1, decoded.Scheduled)
	assert.Equal(t, 0, decoded.Unscheduled)
}

func TestPublishResult_NilPublisherIsNoop(t *testing.T) {
	proj, res := scheduledProject(t)
	assert.NoError(t, PublishResult(context.Background(), nil, uuid.New(), proj, res, nil))
}

func TestPublishResult_DeadlockEmitsDeadlockDetected(t *testing.T) {
	bus := eventbus.NewInProcessEventBus(nil)
	consumer := &recordingConsumer{types: []string{"schedule.deadlock_detected"}}
	bus.RegisterConsumer(consumer)

	// An ALAP task with no deadline anchor waiting on a successor that
	// in turn waits on it: no graph cycle, but nothing ever becomes
	// Ready.
	start := time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC)
	p := model.NewProject(start, start.Add(7*24*time.Hour), time.Hour, time.UTC)
	p.WorkingTimeDefault = model.DefaultWorkWeek()
	a := p.AddTask(model.Task{Path: "a"})
	aAttrs := p.Task(a).Attrs(0)
	aAttrs.Effort = time.Hour
	aAttrs.HasForward, aAttrs.Forward = true, false
	b := p.AddTask(model.Task{Path: "b"})
	bAttrs := p.Task(b).Attrs(0)
	bAttrs.Effort = time.Hour
	bAttrs.HasForward, bAttrs.Forward = true, true
	bAttrs.Depends = []model.Dependency{{Target: a}}

	_, err := driver.Schedule(context.Background(), p, 0, nil)
	require.Error(t, err)

	require.NoError(t, PublishResult(context.Background(), bus, uuid.New(), p, nil, err))
	require.Len(t, consumer.handled, 1)
	assert.Equal(t, "schedule.deadlock_detected", consumer.handled[0].RoutingKey)
}
