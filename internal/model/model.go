// Package model holds the in-memory project model the scheduling kernel
// consumes: tasks and resources live in dense arenas keyed by integer
// indices rather than pointers or UUIDs. Parent/child and dependency
// references are array offsets, so the whole tree is trivially
// cloneable per scenario without deep pointer rewriting.
package model

import "time"

// TaskID indexes into Project.Tasks.
type TaskID int32

// NoTask marks the absence of a task reference (e.g. a root's parent).
const NoTask TaskID = -1

// ResourceID indexes into Project.Resources.
type ResourceID int32

// NoResource marks the absence of a resource reference.
const NoResource ResourceID = -1

// ShiftID indexes into Project.Shifts.
type ShiftID int32

// NoShift marks the absence of a referenced shift.
const NoShift ShiftID = -1

// ScenarioIndex indexes into Project.Scenarios. Scenario 0 is always
// present ("plan").
type ScenarioIndex int

// Project is the root aggregate: it owns every scenario, task, resource,
// shift and limit for a scheduling run. Timestamps are UTC seconds
// internally, matching the core's invariant.
type Project struct {
	Start       time.Time
	End         time.Time
	Granularity time.Duration // G, typically 1 hour

	DefaultTimezone    *time.Location
	WorkingTimeDefault WeekSchedule // project default working-time predicate
	GlobalLeaves       []Leave

	Scenarios []Scenario
	Tasks     []Task
	Resources []Resource
	Shifts    []Shift
	Limits    []*Limit
}

// Leave is a tagged calendar interval (holiday, vacation, etc.) that
// short-circuits working-time evaluation to false for its span.
type Leave struct {
	Kind  string
	Start time.Time
	End   time.Time
}

// Covers reports whether t falls within the leave interval (half-open).
func (l Leave) Covers(t time.Time) bool {
	return !t.Before(l.Start) && t.Before(l.End)
}

// NewProject creates an empty project with scenario 0 ("plan") seeded.
func NewProject(start, end time.Time, granularity time.Duration, tz *time.Location) *Project {
	if tz == nil {
		tz = time.UTC
	}
	return &Project{
		Start:           start,
		End:             end,
		Granularity:     granularity,
		DefaultTimezone: tz,
		Scenarios:       []Scenario{{Name: "plan"}},
	}
}

// Validate checks the project-level invariants: end > start.
func (p *Project) Validate() error {
	if !p.End.After(p.Start) {
		return ErrInvalidProjectBounds
	}
	if p.Granularity <= 0 {
		return ErrInvalidGranularity
	}
	return nil
}

// ScoreboardSize is ⌈(end − start)/G⌉ + 1.
func (p *Project) ScoreboardSize() int {
	span := p.End.Sub(p.Start)
	slots := int(span / p.Granularity)
	if span%p.Granularity != 0 {
		slots++
	}
	return slots + 1
}

// Task returns a pointer to the task at id, or nil if out of range.
func (p *Project) Task(id TaskID) *Task {
	if id < 0 || int(id) >= len(p.Tasks) {
		return nil
	}
	return &p.Tasks[id]
}

// Resource returns a pointer to the resource at id, or nil if out of range.
func (p *Project) Resource(id ResourceID) *Resource {
	if id < 0 || int(id) >= len(p.Resources) {
		return nil
	}
	return &p.Resources[id]
}

// Shift returns a pointer to the shift at id, or nil if out of range.
func (p *Project) Shift(id ShiftID) *Shift {
	if id < 0 || int(id) >= len(p.Shifts) {
		return nil
	}
	return &p.Shifts[id]
}

// AddTask appends a root-level task to the arena and returns its new
// ID. Use AddChildTask to attach a task under a parent.
func (p *Project) AddTask(t Task) TaskID {
	id := TaskID(len(p.Tasks))
	t.ID = id
	t.Parent = NoTask
	p.Tasks = append(p.Tasks, t)
	return id
}

// AddChildTask appends a task under parent, wiring both directions of
// the tree link.
func (p *Project) AddChildTask(parent TaskID, t Task) TaskID {
	id := TaskID(len(p.Tasks))
	t.ID = id
	t.Parent = parent
	p.Tasks = append(p.Tasks, t)
	if pt := p.Task(parent); pt != nil {
		pt.Children = append(pt.Children, id)
	}
	return id
}

// AddResource appends a root-level resource to the arena and returns
// its new ID. Use AddChildResource to attach a resource under a parent.
func (p *Project) AddResource(r Resource) ResourceID {
	id := ResourceID(len(p.Resources))
	r.ID = id
	r.Parent = NoResource
	p.Resources = append(p.Resources, r)
	return id
}

// AddChildResource appends a resource under parent, wiring both
// directions of the tree link.
func (p *Project) AddChildResource(parent ResourceID, r Resource) ResourceID {
	id := ResourceID(len(p.Resources))
	r.ID = id
	r.Parent = parent
	p.Resources = append(p.Resources, r)
	if pr := p.Resource(parent); pr != nil {
		pr.Children = append(pr.Children, id)
	}
	return id
}

// AddShift appends a shift to the arena and returns its new ID.
func (p *Project) AddShift(s Shift) ShiftID {
	id := ShiftID(len(p.Shifts))
	s.ID = id
	p.Shifts = append(p.Shifts, s)
	return id
}

// AddScenario appends a scenario and returns its index.
func (p *Project) AddScenario(name string) ScenarioIndex {
	idx := ScenarioIndex(len(p.Scenarios))
	p.Scenarios = append(p.Scenarios, Scenario{Name: name})
	return idx
}
