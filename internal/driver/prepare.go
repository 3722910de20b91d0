package driver

import (
	"time"

	"github.com/scriptplanner/scriptplan/internal/calendar"
	"github.com/scriptplanner/scriptplan/internal/graph"
	"github.com/scriptplanner/scriptplan/internal/model"
)

// prepare readies one scenario for the main loop: attribute inheritance
// from scenario 0, ALAP deadline back-propagation, and the milestone
// sweep. It returns the calendar index
// and dependency graph the ready-queue loop will use.
func prepare(proj *model.Project, s model.ScenarioIndex) (*calendar.Index, *graph.Graph) {
	propagateInheritance(proj, s)

	g := graph.Build(proj, s)

	propagateContainerEnds(proj, s, g)
	backPropagateALAP(proj, s, g)

	idx := calendar.NewIndex(proj)
	maybeExtend(proj, idx, s)

	sweepImplicitMilestones(proj, s)

	return idx, g
}

// propagateInheritance copies any scenario-0 attribute a later
// scenario's overlay left unset; a value set at scenario s overrides
// inheritance for s. Scenario 0 always has its own fully-declared
// overlay and never inherits from anything.
func propagateInheritance(proj *model.Project, s model.ScenarioIndex) {
	if s == 0 {
		return
	}
	for i := range proj.Tasks {
		t := &proj.Tasks[i]
		base := t.Attrs(0)
		cur := t.Attrs(s)
		inheritTaskAttrs(base, cur)
	}
	for i := range proj.Resources {
		r := &proj.Resources[i]
		base := r.Attrs(0)
		cur := r.Attrs(s)
		inheritResourceAttrs(base, cur)
	}
}

func inheritTaskAttrs(base, cur *model.TaskScenarioAttrs) {
	if cur.AttributeKindCount() == 0 && cur.ExplicitStart == nil && cur.ExplicitEnd == nil {
		cur.Effort, cur.Duration, cur.Length = base.Effort, base.Duration, base.Length
		cur.ExplicitStart, cur.ExplicitEnd = base.ExplicitStart, base.ExplicitEnd
	}
	if !cur.HasForward && base.HasForward {
		cur.Forward, cur.HasForward = base.Forward, true
	}
	if cur.Priority == 0 {
		cur.Priority = base.Priority
	}
	if len(cur.Depends) == 0 {
		cur.Depends = base.Depends
	}
	if len(cur.Precedes) == 0 {
		cur.Precedes = base.Precedes
	}
	if len(cur.Allocate.Primary) == 0 && len(cur.Allocate.Alternatives) == 0 {
		cur.Allocate = base.Allocate
	}
	if len(cur.Limits) == 0 {
		cur.Limits = base.Limits
	}
	if cur.Flags == 0 {
		cur.Flags = base.Flags
	}
	if !cur.Milestone {
		cur.Milestone = base.Milestone
	}
}

func inheritResourceAttrs(base, cur *model.ResourceScenarioAttrs) {
	if cur.Efficiency == 0 {
		cur.Efficiency = base.Efficiency
	}
	if cur.Rate == 0 {
		cur.Rate = base.Rate
	}
	if cur.Timezone == nil {
		cur.Timezone = base.Timezone
	}
	if cur.WorkingHours == nil && cur.Shift == model.NoShift {
		cur.WorkingHours, cur.Shift = base.WorkingHours, base.Shift
	}
	if len(cur.Leaves) == 0 {
		cur.Leaves = base.Leaves
	}
	if len(cur.Limits) == 0 {
		cur.Limits = base.Limits
	}
	if cur.ManagerID == model.NoResource {
		cur.ManagerID = base.ManagerID
	}
}

// propagateContainerEnds pushes a container's explicit end down to its
// terminal leaf descendants: leaves with no finish-to-start successor
// and no onstart dependency, which would otherwise have no deadline
// anchor. Affected leaves become ALAP so the deadline binds.
func propagateContainerEnds(proj *model.Project, s model.ScenarioIndex, g *graph.Graph) {
	for i := range proj.Tasks {
		t := &proj.Tasks[i]
		if t.IsLeaf() {
			continue
		}
		attrs := t.Attrs(s)
		if attrs.ExplicitEnd == nil {
			continue
		}
		propagateEndToLeaves(proj, s, g, model.TaskID(i), *attrs.ExplicitEnd)
	}
}

func propagateEndToLeaves(proj *model.Project, s model.ScenarioIndex, g *graph.Graph, id model.TaskID, end time.Time) {
	task := proj.Task(id)
	if !task.IsLeaf() {
		for _, child := range task.Children {
			propagateEndToLeaves(proj, s, g, child, end)
		}
		return
	}
	if !isTerminalLeaf(g, id) {
		return
	}
	attrs := task.Attrs(s)
	if attrs.ExplicitEnd != nil {
		return
	}
	e := end
	attrs.ExplicitEnd = &e
	attrs.Forward, attrs.HasForward = false, true
}

// isTerminalLeaf: no finish-to-start successor and no onstart
// dependency.
func isTerminalLeaf(g *graph.Graph, id model.TaskID) bool {
	for _, edge := range g.Successors(id) {
		if !edge.Dep.OnStart {
			return false
		}
	}
	for _, dep := range g.Predecessors(id) {
		if dep.OnStart {
			return false
		}
	}
	return true
}

// backPropagateALAP marks the backward-deadline chain: every leaf
// anchored ALAP with an explicit end marks its dependency predecessors
// ALAP too, unless a predecessor already carries an explicit ASAP
// start. ALAP propagation sequences predecessors after the successors
// that anchor them, so one pass converges without a fixed-point loop.
func backPropagateALAP(proj *model.Project, s model.ScenarioIndex, g *graph.Graph) {
	var queue []model.TaskID
	for i := range proj.Tasks {
		t := &proj.Tasks[i]
		if !t.IsLeaf() {
			continue
		}
		attrs := t.Attrs(s)
		if !attrs.HasForward || attrs.Forward {
			continue
		}
		if attrs.ExplicitEnd != nil {
			queue = append(queue, model.TaskID(i))
		}
	}

	visited := make(map[model.TaskID]bool, len(proj.Tasks))
	for len(queue) > 0 {
		id := queue[0]
		queue = queue[1:]
		if visited[id] {
			continue
		}
		visited[id] = true

		for _, dep := range g.Predecessors(id) {
			pred := proj.Task(dep.Target)
			predAttrs := pred.Attrs(s)
			if predAttrs.HasForward && predAttrs.Forward && predAttrs.ExplicitStart != nil {
				continue // explicit ASAP start wins, not overridden
			}
			predAttrs.Forward, predAttrs.HasForward = false, true
			if !visited[dep.Target] {
				queue = append(queue, dep.Target)
			}
		}
	}
}

// maybeExtend extends the project end when total
// leaf effort plus gap budget would overrun the declared span. Only
// the local calendar.Index is extended, never the shared project —
// scoreboards for this scenario are sized from the extended index.
func maybeExtend(proj *model.Project, idx *calendar.Index, s model.ScenarioIndex) {
	var totalEffortHours float64
	var gapDays float64
	for i := range proj.Tasks {
		t := &proj.Tasks[i]
		if !t.IsLeaf() {
			continue
		}
		attrs := t.Attrs(s)
		totalEffortHours += attrs.Effort.Hours()
		for _, dep := range attrs.Depends {
			gapDays += dep.GapDuration.Hours() / 24
		}
	}
	idx.End = idx.MaybeExtend(totalEffortHours, gapDays)
}

// sweepImplicitMilestones: a leaf whose implicit
// milestone already has both dates derivable (explicit start AND end)
// is finished before the ready-queue loop even starts.
func sweepImplicitMilestones(proj *model.Project, s model.ScenarioIndex) {
	for i := range proj.Tasks {
		t := &proj.Tasks[i]
		if !t.IsLeaf() {
			continue
		}
		attrs := t.Attrs(s)
		if attrs.IsImplicitMilestone() && attrs.ExplicitStart != nil && attrs.ExplicitEnd != nil {
			attrs.Start = *attrs.ExplicitStart
			attrs.End = *attrs.ExplicitEnd
			attrs.Scheduled = true
		}
	}
}
