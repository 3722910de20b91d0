// Package schedmetrics records scheduling-kernel observations (tasks
// scheduled, deadlocks, wall time per run) through the shared
// pkg/observability.Metrics interface, so the same Prometheus registry
// backing /metrics in adapter/httpapi also carries driver-level
// signal, not just process-level defaults.
package schedmetrics

import (
	"github.com/scriptplanner/scriptplan/internal/driver"
	"github.com/scriptplanner/scriptplan/internal/model"
	"github.com/scriptplanner/scriptplan/pkg/observability"
)

const (
	metricRunsTotal        = "scriptplan.scheduler.runs_total"
	metricTasksScheduled   = "scriptplan.scheduler.tasks_scheduled"
	metricTasksUnscheduled = "scriptplan.scheduler.tasks_unscheduled"
	metricWarnings         = "scriptplan.scheduler.warnings_total"
	metricDeadlocks        = "scriptplan.scheduler.deadlocks_total"
	metricDuration         = "scriptplan.scheduler.run_duration_seconds"
)

// Record observes one driver.Schedule invocation's outcome against m.
// fixture is used as a label so per-project signal doesn't collapse
// into a single series.
func Record(m observability.Metrics, fixture string, proj *model.Project, res *driver.Result, runErr error) {
	if m == nil {
		m = observability.NoopMetrics{}
	}
	tag := observability.T("fixture", fixture)

	m.Counter(metricRunsTotal, 1, tag)
	if res == nil {
		m.Counter(metricDeadlocks, 1, tag)
		return
	}

	m.Timing(metricDuration, res.Duration, tag)
	m.Counter(metricWarnings, int64(len(res.Warnings)), tag)
	if runErr != nil {
		m.Counter(metricDeadlocks, 1, tag)
	}

	scheduled, unscheduled := countLeafTasks(proj, res.Scenario)
	m.Counter(metricTasksScheduled, int64(scheduled), tag)
	m.Counter(metricTasksUnscheduled, int64(unscheduled), tag)
}

func countLeafTasks(proj *model.Project, scenario model.ScenarioIndex) (scheduled, unscheduled int) {
	if proj == nil {
		return 0, 0
	}
	for i := range proj.Tasks {
		t := &proj.Tasks[i]
		if !t.IsLeaf() || int(scenario) >= len(t.PerScenario) {
			continue
		}
		if t.PerScenario[scenario].Scheduled {
			scheduled++
		} else {
			unscheduled++
		}
	}
	return scheduled, unscheduled
}
