package driver

import (
	"time"

	"github.com/scriptplanner/scriptplan/internal/model"
)

// rollupContainers finalizes every container's dates bottom-up: a
// container is scheduled once all leaf descendants are, with
// start = min(child.start) and end = max(child.end). Called once after
// the ready-queue loop drains.
func rollupContainers(proj *model.Project, s model.ScenarioIndex) {
	for i := range proj.Tasks {
		t := &proj.Tasks[i]
		if t.Parent == model.NoTask {
			rollupOne(proj, s, model.TaskID(i))
		}
	}
}

// rollupOne recursively rolls up one subtree in post-order, returning
// whether the subtree (this task included) is fully scheduled.
func rollupOne(proj *model.Project, s model.ScenarioIndex, id model.TaskID) bool {
	task := proj.Task(id)
	if task.IsLeaf() {
		return task.Attrs(s).Scheduled
	}

	var minStart, maxEnd time.Time
	first := true
	allScheduled := true

	for _, childID := range task.Children {
		childScheduled := rollupOne(proj, s, childID)
		if !childScheduled {
			allScheduled = false
			continue
		}
		childAttrs := proj.Task(childID).Attrs(s)
		if first || childAttrs.Start.Before(minStart) {
			minStart = childAttrs.Start
			first = false
		}
		if childAttrs.End.After(maxEnd) {
			maxEnd = childAttrs.End
		}
	}

	attrs := task.Attrs(s)
	if !first {
		attrs.Start = minStart
		attrs.End = maxEnd
	}
	attrs.Scheduled = allScheduled && !first
	return attrs.Scheduled
}
