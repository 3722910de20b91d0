package events

import (
	"context"

	"github.com/google/uuid"

	"github.com/scriptplanner/scriptplan/internal/driver"
	"github.com/scriptplanner/scriptplan/internal/eventbus"
	"github.com/scriptplanner/scriptplan/internal/model"
	"github.com/scriptplanner/scriptplan/internal/scheduler"
)

// PublishResult raises the ScheduleComputed/TaskUnscheduled/DeadlockDetected
// events for one scenario's driver run and publishes each to
// pub. A nil pub is a no-op, letting callers skip event publishing
// entirely (e.g. a CLI invocation with no broker configured).
func PublishResult(ctx context.Context, pub eventbus.Publisher, projectID uuid.UUID, proj *model.Project, res *driver.Result, runErr error) error {
	if pub == nil {
		return nil
	}

	if runErr != nil {
		var se *driver.ScheduleError
		if asScheduleError(runErr, &se) && se.Kind == driver.KindDeadlock {
			evt := NewDeadlockDetected(projectID, int(scenarioOf(res)), pendingTaskIDs(proj, scenarioOf(res)))
			return Publish(ctx, pub, evt)
		}
		return nil
	}

	var warningCount, scheduled, unscheduled int
	for _, w := range res.Warnings {
		warningCount++
		if w.Kind == scheduler.WarnUnscheduledTask && w.HasTask {
			taskPath := ""
			if int(w.Task) < len(proj.Tasks) {
				taskPath = proj.Tasks[w.Task].Path
			}
			if err := Publish(ctx, pub, NewTaskUnscheduled(projectID, int(res.Scenario), int32(w.Task), taskPath, w.Message)); err != nil {
				return err
			}
		}
	}

	for i := range proj.Tasks {
		t := &proj.Tasks[i]
		if !t.IsLeaf() || int(res.Scenario) >= len(t.PerScenario) {
			continue
		}
		if t.PerScenario[res.Scenario].Scheduled {
			scheduled++
		} else {
			unscheduled++
		}
	}

	evt := NewScheduleComputed(projectID, int(res.Scenario), scheduled, unscheduled, warningCount, res.Duration)
	return Publish(ctx, pub, evt)
}

func asScheduleError(err error, target **driver.ScheduleError) bool {
	se, ok := err.(*driver.ScheduleError)
	if ok {
		*target = se
	}
	return ok
}

func scenarioOf(res *driver.Result) model.ScenarioIndex {
	if res == nil {
		return 0
	}
	return res.Scenario
}

func pendingTaskIDs(proj *model.Project, s model.ScenarioIndex) []int32 {
	var out []int32
	for i := range proj.Tasks {
		t := &proj.Tasks[i]
		if !t.IsLeaf() || int(s) >= len(t.PerScenario) {
			continue
		}
		if !t.PerScenario[s].Scheduled {
			out = append(out, int32(i))
		}
	}
	return out
}
