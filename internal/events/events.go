// Package events defines the domain events the driver loop raises
// and a thin Publish helper that serializes
// them onto the shared eventbus.Publisher — RabbitMQ in a deployed
// setup, the in-process bus in local mode.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/scriptplanner/scriptplan/internal/eventbus"
)

const aggregateType = "project"

// ScheduleComputed fires once a scenario finishes the ready-queue loop
// successfully, whether or not it carries warnings.
type ScheduleComputed struct {
	BaseEvent
	ProjectID    uuid.UUID
	Scenario     int
	Scheduled    int
	Unscheduled  int
	WarningCount int
	Duration     time.Duration
}

func NewScheduleComputed(projectID uuid.UUID, scenario, scheduled, unscheduled, warningCount int, duration time.Duration) ScheduleComputed {
	return ScheduleComputed{
		BaseEvent:    NewBaseEvent(projectID, aggregateType, "schedule.computed"),
		ProjectID:    projectID,
		Scenario:     scenario,
		Scheduled:    scheduled,
		Unscheduled:  unscheduled,
		WarningCount: warningCount,
		Duration:     duration,
	}
}

// TaskUnscheduled fires once per unscheduled_task warning, i.e. per leaf
// task whose slot walk reached the project bounds before finishing.
// Tasks left pending by a deadlock are reported in DeadlockDetected
// instead.
type TaskUnscheduled struct {
	BaseEvent
	ProjectID uuid.UUID
	Scenario  int
	TaskID    int32
	TaskPath  string
	Reason    string
}

func NewTaskUnscheduled(projectID uuid.UUID, scenario int, taskID int32, taskPath, reason string) TaskUnscheduled {
	return TaskUnscheduled{
		BaseEvent: NewBaseEvent(projectID, aggregateType, "schedule.task_unscheduled"),
		ProjectID: projectID,
		Scenario:  scenario,
		TaskID:    taskID,
		TaskPath:  taskPath,
		Reason:    reason,
	}
}

// DeadlockDetected fires when the ready queue empties with pending
// tasks remaining.
type DeadlockDetected struct {
	BaseEvent
	ProjectID      uuid.UUID
	Scenario       int
	PendingTaskIDs []int32
}

func NewDeadlockDetected(projectID uuid.UUID, scenario int, pendingTaskIDs []int32) DeadlockDetected {
	return DeadlockDetected{
		BaseEvent:      NewBaseEvent(projectID, aggregateType, "schedule.deadlock_detected"),
		ProjectID:      projectID,
		Scenario:       scenario,
		PendingTaskIDs: pendingTaskIDs,
	}
}

// Publish serializes a RunEvent into the eventbus.Envelope the bus's
// consumers expect, then hands it to the publisher under the event's
// own routing key.
func Publish(ctx context.Context, pub eventbus.Publisher, evt RunEvent) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("events: marshal payload: %w", err)
	}
	envelope := eventbus.Envelope{
		EventID:       evt.EventID(),
		AggregateID:   evt.AggregateID(),
		AggregateType: evt.AggregateType(),
		RoutingKey:    evt.RoutingKey(),
		OccurredAt:    evt.OccurredAt(),
		Payload:       payload,
	}
	raw, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("events: marshal envelope: %w", err)
	}
	return pub.Publish(ctx, evt.RoutingKey(), raw)
}
