package model

import "time"

// TaskFlag is a bitset of per-task behavior modifiers.
type TaskFlag uint8

const (
	// FlagContiguous means the task may not be split across non-working
	// intervals: a slot only counts if a contiguous run large enough to
	// hold the remaining effort starts there.
	FlagContiguous TaskFlag = 1 << iota
	// FlagMilestone marks an explicit milestone (zero effort/duration/length).
	FlagMilestone
)

// Has reports whether f contains flag.
func (f TaskFlag) Has(flag TaskFlag) bool { return f&flag != 0 }

// Dependency is a resolved dependency record: symbolic references
// like `!sibling` never reach the core — Target is already a
// direct TaskID handle by the time the model reaches the scheduler.
type Dependency struct {
	Target         TaskID
	GapDuration    time.Duration // calendar time added after the anchor
	GapLength      time.Duration // working time added after the anchor
	MaxGapDuration time.Duration // 0 means unset/unbounded
	OnStart        bool          // anchor to predecessor's start instead of end
	OnEnd          bool          // explicit finish-to-finish anchor (successor side)
}

// Allocation is a resolved resource reference for a task's `allocate`
// list, including the alternative set consulted by the selection
// policy.
type Allocation struct {
	Primary      []ResourceID
	Alternatives []ResourceID
}

// TaskScenarioAttrs holds the scenario-specific overlay of a task's
// attributes. Fields left zero mean inherit/unset; the driver resolves
// inheritance at prepare time.
type TaskScenarioAttrs struct {
	Effort   time.Duration // working-time hours consumed (0 if absent)
	Duration time.Duration // calendar time (0 if absent)
	Length   time.Duration // working time, ignores weekends/holidays (0 if absent)

	ExplicitStart *time.Time
	ExplicitEnd   *time.Time

	Forward    bool // true = ASAP, false = ALAP
	HasForward bool // whether Forward was explicitly set at this scenario

	Milestone bool
	Priority  int // default 500

	Depends  []Dependency
	Precedes []Dependency

	Allocate Allocation
	Limits   []*Limit
	Flags    TaskFlag

	// Computed by the driver.
	Start     time.Time
	End       time.Time
	Scheduled bool
}

// Task is a node in the project task tree, identified by a stable dotted
// path, with scenario-indexed attribute overlays. Parent/child links are
// arena indices, not pointers, so the tree clones cheaply per scenario.
type Task struct {
	ID       TaskID
	Path     string // dotted identifier, e.g. "project.phase1.design"
	Name     string
	Parent   TaskID
	Children []TaskID
	SeqNo    int // declaration order, used as the final ready-queue tiebreaker

	PerScenario []TaskScenarioAttrs
}

// IsLeaf reports whether the task has no children.
func (t *Task) IsLeaf() bool {
	return len(t.Children) == 0
}

// Attrs returns the scenario-specific attribute overlay, growing the
// slice if the scenario hasn't been touched yet.
func (t *Task) Attrs(s ScenarioIndex) *TaskScenarioAttrs {
	for len(t.PerScenario) <= int(s) {
		t.PerScenario = append(t.PerScenario, TaskScenarioAttrs{Priority: 500})
	}
	return &t.PerScenario[s]
}

// IsImplicitMilestone reports whether a leaf task with all three of
// effort/duration/length absent but an explicit start or end is an
// implicit milestone.
func (a *TaskScenarioAttrs) IsImplicitMilestone() bool {
	return a.Effort == 0 && a.Duration == 0 && a.Length == 0 &&
		(a.ExplicitStart != nil || a.ExplicitEnd != nil)
}

// AttributeKindCount returns how many of {effort, duration, length} are
// set, used to check the at-most-one-of-effort/duration/length rule.
func (a *TaskScenarioAttrs) AttributeKindCount() int {
	n := 0
	if a.Effort > 0 {
		n++
	}
	if a.Duration > 0 {
		n++
	}
	if a.Length > 0 {
		n++
	}
	return n
}
