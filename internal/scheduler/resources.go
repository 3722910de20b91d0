package scheduler

import (
	"time"

	"github.com/scriptplanner/scriptplan/internal/calendar"
	"github.com/scriptplanner/scriptplan/internal/limits"
	"github.com/scriptplanner/scriptplan/internal/model"
	"github.com/scriptplanner/scriptplan/internal/scoreboard"
)

// ResourcePool owns every leaf resource's scoreboard for one scenario's
// scheduling run, plus the limits Tracker they share. Built once at
// prepare-phase, discarded between scenarios.
type ResourcePool struct {
	proj     *model.Project
	scenario model.ScenarioIndex
	idx      *calendar.Index
	tracker  *limits.Tracker

	boards map[model.ResourceID]*scoreboard.Scoreboard
	hours  map[model.ResourceID]*calendar.WorkingHours
}

// NewResourcePool builds a scoreboard for every leaf resource, with its
// weekly working-time pattern precomputed into a per-slot bitset so the
// hot path never re-evaluates the weekly schedule.
func NewResourcePool(proj *model.Project, scenario model.ScenarioIndex, idx *calendar.Index) *ResourcePool {
	pool := &ResourcePool{
		proj:     proj,
		scenario: scenario,
		idx:      idx,
		tracker:  limits.NewTracker(proj, scenario),
		boards:   make(map[model.ResourceID]*scoreboard.Scoreboard),
		hours:    make(map[model.ResourceID]*calendar.WorkingHours),
	}
	size := idx.ScoreboardSize()
	for i := range proj.Resources {
		r := &proj.Resources[i]
		if !r.IsLeaf() {
			continue
		}
		id := model.ResourceID(i)
		attrs := r.Attrs(scenario)

		wh := resolveWorkingHours(proj, idx, attrs)
		pool.hours[id] = wh

		working := make([]bool, size)
		for s := 0; s < size; s++ {
			working[s] = wh.Evaluate(idx, s)
		}

		granularity := int32(proj.Granularity / time.Second)
		sb := scoreboard.New(id, size, granularity, attrs.Efficiency, working)
		for _, leave := range attrs.Leaves {
			markLeaveRange(sb, idx, leave)
		}
		pool.boards[id] = sb
	}
	return pool
}

// resolveWorkingHours picks the resource's direct working hours or its
// referenced shift, falling back to the project default when neither
// is set.
func resolveWorkingHours(proj *model.Project, idx *calendar.Index, attrs *model.ResourceScenarioAttrs) *calendar.WorkingHours {
	tz := time.UTC
	if attrs.Timezone != nil && attrs.Timezone.Name != "" {
		if loc, err := time.LoadLocation(attrs.Timezone.Name); err == nil {
			tz = loc
		}
	}

	var schedule model.WeekSchedule
	var leaves []model.Leave
	switch {
	case attrs.WorkingHours != nil:
		schedule = *attrs.WorkingHours
	case attrs.Shift != model.NoShift:
		if shift := proj.Shift(attrs.Shift); shift != nil {
			schedule = shift.WorkingHours
			leaves = append(leaves, shift.Leaves...)
		}
	}
	leaves = append(leaves, attrs.Leaves...)

	return &calendar.WorkingHours{
		Schedule: schedule,
		TZ:       tz,
		Leaves:   leaves,
		Fallback: idx,
	}
}

// markLeaveRange blanks every slot the half-open leave interval
// touches; a leave ending exactly on a slot boundary leaves that slot
// workable.
func markLeaveRange(sb *scoreboard.Scoreboard, idx *calendar.Index, leave model.Leave) {
	if !leave.End.After(leave.Start) {
		return
	}
	start, _ := idx.DateToIdx(leave.Start, calendar.ClampToBounds)
	end, _ := idx.DateToIdx(leave.End.Add(-time.Second), calendar.ClampToBounds)
	for i := start; i <= end && i < sb.Size(); i++ {
		sb.MarkLeave(i, leave.Kind)
	}
}

// Board returns the scoreboard for a leaf resource, or nil if the
// resource has children.
func (p *ResourcePool) Board(id model.ResourceID) *scoreboard.Scoreboard {
	return p.boards[id]
}

// Boards returns every leaf resource's scoreboard, keyed by resource.
// The driver hands this back to its caller rather than discarding
// it once the ready-queue loop finishes, so reporters (cost rollup,
// timesheets, the run journal) can read finished bookings directly.
func (p *ResourcePool) Boards() map[model.ResourceID]*scoreboard.Scoreboard {
	return p.boards
}

// WorkingHours returns the resolved evaluator for a leaf resource.
func (p *ResourcePool) WorkingHours(id model.ResourceID) *calendar.WorkingHours {
	return p.hours[id]
}

// Tracker exposes the shared limits engine for this scenario run.
func (p *ResourcePool) Tracker() *limits.Tracker {
	return p.tracker
}

// Available reports whether every resource in the set can accept a
// booking at slot i — used by the "all required resources must be
// simultaneously available" rule.
func (p *ResourcePool) Available(i int, task model.TaskID, resources []model.ResourceID) bool {
	for _, rid := range resources {
		sb := p.boards[rid]
		if sb == nil || !sb.Available(i, task, p.tracker) {
			return false
		}
	}
	return true
}

// IsWorking reports whether slot i is within every listed resource's
// working time (ignoring booking/limit state) — used for backward
// (ALAP) slot walks that skip non-working slots before even checking
// availability.
func (p *ResourcePool) IsWorking(i int, resources []model.ResourceID) bool {
	if len(resources) == 0 {
		return p.idx.IsGlobalWorking(i)
	}
	for _, rid := range resources {
		wh := p.hours[rid]
		if wh == nil || !wh.Evaluate(p.idx, i) {
			return false
		}
	}
	return true
}

// Efficiency returns the combined efficiency used for effort conversion:
// the primary booked resource's efficiency for single-resource tasks, or
// the minimum efficiency across the set for multi-resource tasks (the
// slowest collaborator paces effort accumulation).
func (p *ResourcePool) Efficiency(resources []model.ResourceID) float64 {
	eff := 1.0
	first := true
	for _, rid := range resources {
		sb := p.boards[rid]
		if sb == nil {
			continue
		}
		if first || sb.Efficiency < eff {
			eff = sb.Efficiency
			first = false
		}
	}
	return eff
}
