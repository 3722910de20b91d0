// Package graph resolves dependency references to task
// handles and exposing predecessor/successor traversal with gap
// annotations. By the time a model reaches the core, symbolic
// references (`!sibling`, `!!uncle`, dotted paths) are already resolved
// to direct model.TaskID handles — this package only walks the
// resulting graph.
package graph

import (
	"time"

	"github.com/scriptplanner/scriptplan/internal/model"
)

// Edge is one resolved dependency, viewed from the predecessor's side.
type Edge struct {
	Predecessor model.TaskID
	Successor   model.TaskID
	Dep         model.Dependency
}

// Graph indexes a scenario's dependency edges in both directions so the
// scheduler and driver can ask "who must finish before me" and "who is
// waiting on me" in O(1).
type Graph struct {
	proj     *model.Project
	scenario model.ScenarioIndex

	successors map[model.TaskID][]Edge // keyed by predecessor
}

// Build constructs the graph by scanning every leaf task's `depends`
// list for the given scenario.
func Build(proj *model.Project, scenario model.ScenarioIndex) *Graph {
	g := &Graph{
		proj:       proj,
		scenario:   scenario,
		successors: make(map[model.TaskID][]Edge),
	}
	for i := range proj.Tasks {
		id := model.TaskID(i)
		task := &proj.Tasks[i]
		if int(scenario) >= len(task.PerScenario) {
			continue
		}
		for _, dep := range task.PerScenario[scenario].Depends {
			edge := Edge{Predecessor: dep.Target, Successor: id, Dep: dep}
			g.successors[dep.Target] = append(g.successors[dep.Target], edge)
		}
	}
	return g
}

// Predecessors returns the resolved dependency records declared on task
// (i.e. task's own `depends` list for this scenario).
func (g *Graph) Predecessors(task model.TaskID) []model.Dependency {
	t := g.proj.Task(task)
	if t == nil || int(g.scenario) >= len(t.PerScenario) {
		return nil
	}
	return t.PerScenario[g.scenario].Depends
}

// Successors returns every edge where task is the predecessor — i.e.
// every task whose `depends` points at it.
func (g *Graph) Successors(task model.TaskID) []Edge {
	return g.successors[task]
}

// Anchor resolves a dependency's anchor timestamp: the predecessor's
// start if OnStart, else its end.
func Anchor(proj *model.Project, scenario model.ScenarioIndex, dep model.Dependency) (anchorTime time.Time, ok bool) {
	pred := proj.Task(dep.Target)
	if pred == nil || int(scenario) >= len(pred.PerScenario) {
		return time.Time{}, false
	}
	attrs := &pred.PerScenario[scenario]
	if !attrs.Scheduled {
		return time.Time{}, false
	}
	if dep.OnStart {
		return attrs.Start, true
	}
	return attrs.End, true
}

// Gap computes the total gap duration to add after the anchor: calendar
// gapduration only. Working-time gaplength requires walking working
// slots, so its resolution is left to the task scheduler, which has
// access to the working-hours evaluator.
func Gap(dep model.Dependency) (calendarGap, maxGap int64) {
	return int64(dep.GapDuration), int64(dep.MaxGapDuration)
}

// DetectCycle walks the dependency graph among leaf tasks and reports
// ErrCyclicDependency if a cycle exists; violations surface as
// deadlocks rather than bookings.
func (g *Graph) DetectCycle() error {
	const (
		white = 0
		gray  = 1
		black = 2
	)
	color := make(map[model.TaskID]int, len(g.proj.Tasks))

	var visit func(model.TaskID) bool
	visit = func(id model.TaskID) bool {
		color[id] = gray
		task := g.proj.Task(id)
		if task != nil && int(g.scenario) < len(task.PerScenario) {
			for _, dep := range task.PerScenario[g.scenario].Depends {
				switch color[dep.Target] {
				case gray:
					return true
				case white:
					if visit(dep.Target) {
						return true
					}
				}
			}
		}
		color[id] = black
		return false
	}

	for i := range g.proj.Tasks {
		id := model.TaskID(i)
		t := g.proj.Task(id)
		if t == nil || !t.IsLeaf() {
			continue
		}
		if color[id] == white {
			if visit(id) {
				return model.ErrCyclicDependency
			}
		}
	}
	return nil
}
