package driver

import (
	"context"
	"log/slog"
	"time"

	"github.com/scriptplanner/scriptplan/internal/calendar"
	"github.com/scriptplanner/scriptplan/internal/graph"
	"github.com/scriptplanner/scriptplan/internal/model"
	"github.com/scriptplanner/scriptplan/internal/scheduler"
	"github.com/scriptplanner/scriptplan/internal/scoreboard"
)

// Result is what the driver API returns for one successfully-run
// scenario: the warning buffer collected along the way, plus
// the wall-clock duration of the run (consumed by the run journal).
//
// Boards and Index carry the resource-side output: rather than
// discard the ResourcePool once the ready-queue loop finishes, the
// driver hands the finished scoreboards back so collaborators
// (internal/account, internal/timesheet, the run journal) can read
// allocated time, per-task usage, and costs without re-deriving
// bookings.
type Result struct {
	Scenario model.ScenarioIndex
	Warnings []scheduler.Warning
	Duration time.Duration
	Boards   map[model.ResourceID]*scoreboard.Scoreboard
	Index    *calendar.Index
}

// Schedule runs the global scheduling loop for a single scenario.
func Schedule(ctx context.Context, proj *model.Project, s model.ScenarioIndex, log *slog.Logger) (*Result, error) {
	if log == nil {
		log = slog.Default()
	}
	start := time.Now()

	idx, g := prepare(proj, s)
	if err := g.DetectCycle(); err != nil {
		return nil, &ScheduleError{Kind: KindDeadlock, Err: err}
	}

	pool := scheduler.NewResourcePool(proj, s, idx)
	buf := &scheduler.Buffer{}
	sched := scheduler.New(proj, s, idx, pool, g, buf)

	// Seed states for leaves the milestone sweep already finished so
	// the scheduler's internal state map agrees with attrs.Scheduled.
	var pending []model.TaskID
	for i := range proj.Tasks {
		t := &proj.Tasks[i]
		if !t.IsLeaf() {
			continue
		}
		id := model.TaskID(i)
		if t.Attrs(s).Scheduled {
			continue // finished by the milestone sweep
		}
		pending = append(pending, id)
	}

	crit := newCriticalnessIndex(proj, s, g)

	for len(pending) > 0 {
		select {
		case <-ctx.Done():
			markRemainingUnscheduled(proj, s, pending)
			return nil, &ScheduleError{Kind: KindCancelled, Err: ErrCancelled}
		default:
		}

		readyIdx := rankReady(proj, s, sched, pending, crit)
		if readyIdx < 0 {
			buf.Add(scheduler.Warning{
				Kind:     scheduler.WarnDeadlock,
				Scenario: s,
				Message:  "no task in the ready queue is runnable while tasks remain pending",
			})
			markRemainingUnscheduled(proj, s, pending)
			log.Warn("scheduler deadlock", "scenario", s, "pending", len(pending))
			return &Result{Scenario: s, Warnings: buf.All(), Duration: time.Since(start), Boards: pool.Boards(), Index: idx}, &ScheduleError{Kind: KindDeadlock, Err: ErrDeadlock}
		}

		id := pending[readyIdx]
		pending = append(pending[:readyIdx], pending[readyIdx+1:]...)

		if err := sched.ScheduleTask(id); err != nil {
			return nil, &ScheduleError{Kind: KindInternalInvariant, Err: err}
		}
		log.Debug("task scheduled", "scenario", s, "task", proj.Task(id).Path, "state", sched.State(id).String())

		checkMaxGapViolations(proj, s, g, id, buf)
	}

	rollupContainers(proj, s)

	return &Result{Scenario: s, Warnings: buf.All(), Duration: time.Since(start), Boards: pool.Boards(), Index: idx}, nil
}

// ScheduleAll runs scenario 0 whether or not its Enabled flag is set,
// plus every other scenario whose Enabled flag is set. Scenarios are independent (cloned scoreboards and limits),
// so a failure in one scenario doesn't block the others; their
// results and errors are collected side by side.
func ScheduleAll(ctx context.Context, proj *model.Project, log *slog.Logger) ([]*Result, []error) {
	results := make([]*Result, 0, len(proj.Scenarios))
	errs := make([]error, 0, len(proj.Scenarios))
	for i, sc := range proj.Scenarios {
		if !sc.Enabled && i != 0 {
			continue
		}
		res, err := Schedule(ctx, proj, model.ScenarioIndex(i), log)
		results = append(results, res)
		errs = append(errs, err)
	}
	return results, errs
}

// rankReady scans pending for Ready tasks and returns the index (into
// pending) of the highest-ranked one by (-priority, -pathcriticalness,
// seqno), or -1 if none are Ready.
func rankReady(proj *model.Project, s model.ScenarioIndex, sched *scheduler.Scheduler, pending []model.TaskID, crit *criticalnessIndex) int {
	best := -1
	for i, id := range pending {
		if !sched.Ready(id) {
			continue
		}
		if best == -1 || readyLess(proj, s, crit, id, pending[best]) {
			best = i
		}
	}
	return best
}

// readyLess reports whether a outranks b in the ready queue's total
// order: higher priority first, then higher pathcriticalness, then
// declaration order (seqno) as the final deterministic tiebreaker.
func readyLess(proj *model.Project, s model.ScenarioIndex, crit *criticalnessIndex, a, b model.TaskID) bool {
	pa, pb := proj.Task(a).Attrs(s).Priority, proj.Task(b).Attrs(s).Priority
	if pa != pb {
		return pa > pb
	}
	ca, cb := crit.of(a), crit.of(b)
	if ca != cb {
		return ca > cb
	}
	return proj.Task(a).SeqNo < proj.Task(b).SeqNo
}

func markRemainingUnscheduled(proj *model.Project, s model.ScenarioIndex, pending []model.TaskID) {
	for _, id := range pending {
		proj.Task(id).Attrs(s).Scheduled = false
	}
}

// checkMaxGapViolations emits the maxgap_violation warning: once
// a task finishes, verify every dependency edge with a maxgapduration
// actually stayed within bound now that both ends are known.
func checkMaxGapViolations(proj *model.Project, s model.ScenarioIndex, g *graph.Graph, id model.TaskID, buf *scheduler.Buffer) {
	attrs := proj.Task(id).Attrs(s)
	if !attrs.Scheduled {
		return
	}
	for _, dep := range g.Predecessors(id) {
		if dep.MaxGapDuration <= 0 {
			continue
		}
		predAttrs := proj.Task(dep.Target).Attrs(s)
		if !predAttrs.Scheduled {
			continue
		}
		anchor := predAttrs.End
		if dep.OnStart {
			anchor = predAttrs.Start
		}
		gap := attrs.Start.Sub(anchor)
		if gap > dep.MaxGapDuration {
			buf.Add(scheduler.Warning{
				Kind:     scheduler.WarnMaxGapViolation,
				Scenario: s,
				Task:     id,
				HasTask:  true,
				Message:  "predecessor finished earlier than the maxgapduration window requires",
			})
		}
	}
}

// criticalnessIndex memoizes each task's "pathcriticalness": the
// task's own workload plus the heaviest downstream chain reachable via
// its successors — how much depends on this task finishing soon.
type criticalnessIndex struct {
	proj   *model.Project
	s      model.ScenarioIndex
	g      *graph.Graph
	memo   map[model.TaskID]float64
	visits map[model.TaskID]bool
}

func newCriticalnessIndex(proj *model.Project, s model.ScenarioIndex, g *graph.Graph) *criticalnessIndex {
	return &criticalnessIndex{
		proj:   proj,
		s:      s,
		g:      g,
		memo:   make(map[model.TaskID]float64),
		visits: make(map[model.TaskID]bool),
	}
}

func (c *criticalnessIndex) of(id model.TaskID) float64 {
	if v, ok := c.memo[id]; ok {
		return v
	}
	if c.visits[id] {
		return 0 // defensive: cycles are rejected earlier by DetectCycle
	}
	c.visits[id] = true

	attrs := c.proj.Task(id).Attrs(c.s)
	own := attrs.Effort.Hours() + attrs.Duration.Hours() + attrs.Length.Hours()

	var maxDownstream float64
	for _, edge := range c.g.Successors(id) {
		if d := c.of(edge.Successor); d > maxDownstream {
			maxDownstream = d
		}
	}

	total := own + maxDownstream
	c.memo[id] = total
	return total
}
