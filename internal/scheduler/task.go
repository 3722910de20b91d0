// Package scheduler implements the per-task state machine and the
// alternative-resource selection policy. It is invoked by the
// project driver (internal/driver) once per Ready task.
package scheduler

import (
	"math"
	"time"

	"github.com/scriptplanner/scriptplan/internal/calendar"
	"github.com/scriptplanner/scriptplan/internal/graph"
	"github.com/scriptplanner/scriptplan/internal/model"
)

// epsilon absorbs the tolerated booking rounding of up to one second
// per slot when comparing accumulated effort/length hours against a
// target.
const epsilon = 0.5 / 3600.0

// Scheduler drives the leaf task state machine for one scenario.
// It owns no state beyond the per-task TaskState map; the scoreboards,
// limits, and dependency graph it consults are owned by the driver and
// shared across every task in the scenario. Each task's slot walk runs
// to completion in one ScheduleTask call, carrying its progress in
// local variables, so no per-task walk state survives between calls.
type Scheduler struct {
	proj     *model.Project
	scenario model.ScenarioIndex
	idx      *calendar.Index
	pool     *ResourcePool
	g        *graph.Graph
	buf      *Buffer
	selector *SelectionPolicy

	states map[model.TaskID]TaskState
}

// New builds a Scheduler bound to one scenario's prepared resource pool
// and dependency graph.
func New(proj *model.Project, scenario model.ScenarioIndex, idx *calendar.Index, pool *ResourcePool, g *graph.Graph, buf *Buffer) *Scheduler {
	return &Scheduler{
		proj:     proj,
		scenario: scenario,
		idx:      idx,
		pool:     pool,
		g:        g,
		buf:      buf,
		selector: NewSelectionPolicy(pool),
		states:   make(map[model.TaskID]TaskState),
	}
}

// State returns a task's current state machine position.
func (s *Scheduler) State(id model.TaskID) TaskState {
	if st, ok := s.states[id]; ok {
		return st
	}
	return Unscheduled
}

func (s *Scheduler) setState(id model.TaskID, st TaskState) {
	s.states[id] = st
}

// forwardFor resolves a leaf's direction, defaulting to ASAP when the
// scenario overlay never set one explicitly.
func (s *Scheduler) forwardFor(attrs *model.TaskScenarioAttrs) bool {
	if attrs.HasForward {
		return attrs.Forward
	}
	return true
}

// Ready reports whether the task may begin its slot walk.
func (s *Scheduler) Ready(id model.TaskID) bool {
	task := s.proj.Task(id)
	attrs := task.Attrs(s.scenario)

	if s.forwardFor(attrs) {
		for _, dep := range s.g.Predecessors(id) {
			if s.State(dep.Target) != Finished {
				return false
			}
		}
		return true
	}

	// ALAP readiness.
	if attrs.ExplicitEnd != nil {
		return true
	}
	allOnStartFinished := true
	sawOnStart := false
	for _, dep := range s.g.Predecessors(id) {
		if dep.OnStart {
			sawOnStart = true
			if s.State(dep.Target) != Finished {
				allOnStartFinished = false
			}
		}
	}
	if sawOnStart && allOnStartFinished {
		return true
	}
	// The anchor otherwise comes from below: every finish-to-start
	// successor must be Finished to supply it.
	var fsSuccessors []graph.Edge
	for _, edge := range s.g.Successors(id) {
		if !edge.Dep.OnStart {
			fsSuccessors = append(fsSuccessors, edge)
		}
	}
	if len(fsSuccessors) == 0 {
		// No anchor available at all yet; still ready to go once every
		// predecessor this task depends on (non-onstart) is finished,
		// mirroring ASAP readiness as the fallback.
		for _, dep := range s.g.Predecessors(id) {
			if s.State(dep.Target) != Finished {
				return false
			}
		}
		return true
	}
	for _, edge := range fsSuccessors {
		if s.State(edge.Successor) != Finished {
			return false
		}
	}
	return true
}

// ScheduleTask runs one leaf task's full slot walk to completion
// (Finished or RunAway). Containers are never walked directly; the
// driver rolls them up after their children finish.
func (s *Scheduler) ScheduleTask(id model.TaskID) error {
	task := s.proj.Task(id)
	attrs := task.Attrs(s.scenario)
	s.setState(id, Walking)

	switch {
	case attrs.Milestone || attrs.IsImplicitMilestone():
		return s.scheduleMilestone(id, attrs)
	case attrs.ExplicitStart != nil && attrs.ExplicitEnd != nil:
		return s.scheduleFixed(id, attrs)
	case attrs.Effort > 0:
		return s.scheduleEffort(id, attrs)
	case attrs.Duration > 0:
		return s.scheduleDuration(id, attrs)
	case attrs.Length > 0:
		return s.scheduleLength(id, attrs)
	default:
		return s.scheduleMilestone(id, attrs)
	}
}

// scheduleMilestone sets end=start (ASAP) or start=end (ALAP) at the
// earliest/latest feasible point and finishes immediately.
func (s *Scheduler) scheduleMilestone(id model.TaskID, attrs *model.TaskScenarioAttrs) error {
	forward := s.forwardFor(attrs)
	if forward {
		t := s.earliestASAPStart(id, attrs)
		attrs.Start, attrs.End = t, t
	} else {
		t := s.latestALAPEnd(id, attrs)
		attrs.Start, attrs.End = t, t
	}
	attrs.Scheduled = true
	s.setState(id, Finished)
	return nil
}

// scheduleFixed walks to the explicitly fixed start/end bounds, booking
// any incidentally allocated resources along the way purely for
// reporting purposes.
func (s *Scheduler) scheduleFixed(id model.TaskID, attrs *model.TaskScenarioAttrs) error {
	attrs.Start = *attrs.ExplicitStart
	attrs.End = *attrs.ExplicitEnd
	resources := attrs.Allocate.Primary

	startIdx, _ := s.idx.DateToIdx(attrs.Start, calendar.ClampToBounds)
	endIdx, _ := s.idx.DateToIdx(attrs.End, calendar.ClampToBounds)
	for i := startIdx; i <= endIdx && i < s.idx.ScoreboardSize(); i++ {
		if len(resources) == 0 {
			continue
		}
		if s.pool.Available(i, id, resources) {
			_, _ = s.bookAll(i, id, resources)
		}
	}
	attrs.Scheduled = true
	s.setState(id, Finished)
	return nil
}

// scheduleDuration increments a calendar-slot counter regardless of
// working time, finishing once the target calendar span is covered.
func (s *Scheduler) scheduleDuration(id model.TaskID, attrs *model.TaskScenarioAttrs) error {
	forward := s.forwardFor(attrs)
	targetSlots := int(math.Ceil(float64(attrs.Duration) / float64(s.proj.Granularity)))
	if targetSlots < 1 {
		targetSlots = 1
	}

	var startIdx int
	if forward {
		t := s.earliestASAPStart(id, attrs)
		startIdx, _ = s.idx.DateToIdx(t, calendar.ClampToBounds)
	} else {
		t := s.latestALAPEnd(id, attrs)
		endIdx, _ := s.idx.DateToIdx(t, calendar.ClampToBounds)
		startIdx = endIdx - 1
	}

	step := 1
	if !forward {
		step = -1
	}
	i := startIdx
	done := 0
	size := s.idx.ScoreboardSize()
	for done < targetSlots {
		if i < 0 || i >= size {
			return s.runAway(id, attrs)
		}
		done++
		i += step
	}

	if forward {
		attrs.Start, _ = s.boundedDate(startIdx)
		attrs.End, _ = s.boundedDate(i)
	} else {
		attrs.Start, _ = s.boundedDate(i + 1)
		attrs.End, _ = s.boundedDate(startIdx + 1)
	}
	attrs.Scheduled = true
	s.setState(id, Finished)
	return nil
}

// scheduleLength increments only on working slots (resource-aware when
// an allocation exists, else the project's global predicate).
func (s *Scheduler) scheduleLength(id model.TaskID, attrs *model.TaskScenarioAttrs) error {
	forward := s.forwardFor(attrs)
	targetSlots := int(math.Ceil(float64(attrs.Length) / float64(s.proj.Granularity)))
	if targetSlots < 1 {
		targetSlots = 1
	}
	resources := attrs.Allocate.Primary

	var startIdx int
	if forward {
		t := s.earliestASAPStart(id, attrs)
		startIdx, _ = s.idx.DateToIdx(t, calendar.ClampToBounds)
	} else {
		t := s.latestALAPEnd(id, attrs)
		endIdx, _ := s.idx.DateToIdx(t, calendar.ClampToBounds)
		startIdx = endIdx - 1
	}

	step := 1
	if !forward {
		step = -1
	}
	size := s.idx.ScoreboardSize()
	i := startIdx
	done := 0
	first, last := -1, -1
	for done < targetSlots {
		if i < 0 || i >= size {
			return s.runAway(id, attrs)
		}
		if s.pool.IsWorking(i, resources) {
			if first == -1 {
				first = i
			}
			last = i
			done++
		}
		i += step
	}

	if forward {
		attrs.Start, _ = s.boundedDate(first)
		attrs.End, _ = s.boundedDate(last + 1)
	} else {
		// Backward walk: first is the highest working slot seen, last
		// the lowest.
		attrs.Start, _ = s.boundedDate(last)
		attrs.End, _ = s.boundedDate(first + 1)
	}
	attrs.Scheduled = true
	s.setState(id, Finished)
	return nil
}

// scheduleEffort is the effort-task slot walk: book resources at
// each available slot until accumulated effort-hours reach the target,
// then compute the precise fractional end.
func (s *Scheduler) scheduleEffort(id model.TaskID, attrs *model.TaskScenarioAttrs) error {
	forward := s.forwardFor(attrs)
	targetHours := attrs.Effort.Hours()
	resources := attrs.Allocate.Primary

	if len(resources) == 0 {
		return s.scheduleEffortUnresourced(id, attrs, forward, targetHours)
	}

	var startIdx int
	var offsetSeconds int32
	if forward {
		t := s.earliestASAPStart(id, attrs)
		startIdx, _ = s.idx.DateToIdx(t, calendar.ClampToBounds)
		// A mid-slot earliest start reserves the slot's lead-in as
		// already consumed, so the task cannot begin before it.
		if off := t.Sub(s.idx.IdxToDate(startIdx)); off > 0 && off < s.proj.Granularity {
			offsetSeconds = int32(off / time.Second)
		}
	} else {
		t := s.latestALAPEnd(id, attrs)
		endIdx, _ := s.idx.DateToIdx(t, calendar.ClampToBounds)
		startIdx = endIdx - 1
	}

	step := 1
	if !forward {
		step = -1
	}
	size := s.idx.ScoreboardSize()

	selectionMade := len(attrs.Allocate.Alternatives) == 0
	doneHours := 0.0
	i := startIdx
	first, last := -1, -1
	var firstStartSeconds int32 // start offset within the first booked slot

	for doneHours < targetHours-epsilon {
		if i < 0 || i >= size {
			return s.runAway(id, attrs)
		}

		if !selectionMade {
			remaining := targetHours - doneHours
			if chosen, ok := s.selector.Choose(i, remaining, attrs.Allocate.Primary, attrs.Allocate.Alternatives); ok {
				resources = chosen
			}
			selectionMade = true
		}

		if attrs.Flags.Has(model.FlagContiguous) && !s.contiguousFits(i, resources, targetHours-doneHours, step, size) {
			i += step
			continue
		}

		if !s.pool.Available(i, id, resources) {
			i += step
			continue
		}

		var usedBefore []int32
		if first == -1 && forward {
			usedBefore = make([]int32, len(resources))
			for n, rid := range resources {
				if b := s.pool.Board(rid); b != nil {
					usedBefore[n] = b.UsedSeconds(i)
				}
			}
		}

		leadGain, err := s.bookAll(i, id, resources)
		if err != nil {
			return err
		}
		if first == -1 {
			first = i
			if forward {
				firstStartSeconds = usedBefore[0]
				if i == startIdx && offsetSeconds > 0 {
					leadGain = s.reclaimLeadIn(i, id, resources, offsetSeconds, usedBefore, leadGain)
					if offsetSeconds > firstStartSeconds {
						firstStartSeconds = offsetSeconds
					}
				}
			}
		}
		last = i

		remainingBefore := targetHours - doneHours
		doneHours += leadGain

		if doneHours >= targetHours-epsilon {
			s.finishEffortSlot(id, attrs, i, remainingBefore, leadGain, resources, forward)
			if forward {
				attrs.Start = s.idx.IdxToDate(first).Add(time.Duration(firstStartSeconds) * time.Second)
			} else {
				// Backward walk: first is the highest booked slot.
				attrs.End, _ = s.boundedDate(first + 1)
			}
			break
		}
		i += step
	}

	if forward {
		if attrs.End.IsZero() {
			attrs.End, _ = s.boundedDate(last + 1)
		}
	} else if attrs.Start.IsZero() {
		attrs.Start, _ = s.boundedDate(last)
	}
	attrs.Scheduled = true
	s.setState(id, Finished)
	return nil
}

// reclaimLeadIn hands back the lead-in portion of the first booked slot
// that falls before the task's computed earliest start, returning the
// lead resource's gain corrected for the reclaimed seconds.
func (s *Scheduler) reclaimLeadIn(i int, id model.TaskID, resources []model.ResourceID, offsetSeconds int32, usedBefore []int32, leadGain float64) float64 {
	for n, rid := range resources {
		b := s.pool.Board(rid)
		if b == nil {
			continue
		}
		reclaim := offsetSeconds - usedBefore[n]
		if reclaim <= 0 {
			continue
		}
		_ = b.ReleasePartial(i, id, reclaim)
		if n == 0 {
			leadGain -= float64(reclaim) / 3600.0 * b.Efficiency
		}
	}
	if leadGain < 0 {
		leadGain = 0
	}
	return leadGain
}

// scheduleEffortUnresourced handles an effort task with no declared
// allocation: it consumes the project's global working-time slots
// directly at efficiency 1.0, without booking any scoreboard.
func (s *Scheduler) scheduleEffortUnresourced(id model.TaskID, attrs *model.TaskScenarioAttrs, forward bool, targetHours float64) error {
	granularityHours := s.proj.Granularity.Hours()
	var startIdx int
	var offsetHours float64
	var earliest time.Time
	if forward {
		earliest = s.earliestASAPStart(id, attrs)
		startIdx, _ = s.idx.DateToIdx(earliest, calendar.ClampToBounds)
		if off := earliest.Sub(s.idx.IdxToDate(startIdx)); off > 0 && off < s.proj.Granularity {
			offsetHours = off.Hours()
		}
	} else {
		t := s.latestALAPEnd(id, attrs)
		endIdx, _ := s.idx.DateToIdx(t, calendar.ClampToBounds)
		startIdx = endIdx - 1
	}
	step := 1
	if !forward {
		step = -1
	}
	size := s.idx.ScoreboardSize()
	i := startIdx
	doneHours := 0.0
	first, last := -1, -1

	for doneHours < targetHours-epsilon {
		if i < 0 || i >= size {
			return s.runAway(id, attrs)
		}
		if !s.idx.IsGlobalWorking(i) {
			i += step
			continue
		}
		contribution := granularityHours
		if first == -1 {
			first = i
			if forward && i == startIdx {
				contribution -= offsetHours
			}
		}
		last = i
		doneHours += contribution
		i += step
	}

	fraction := 1.0
	if granularityHours > 0 {
		over := doneHours - targetHours
		fraction = 1 - over/granularityHours
		if fraction < 0 {
			fraction = 0
		}
		if fraction > 1 {
			fraction = 1
		}
	}
	secs := time.Duration(fraction * float64(s.proj.Granularity))

	if forward {
		attrs.Start, _ = s.boundedDate(first)
		if first == startIdx && !earliest.IsZero() && earliest.After(attrs.Start) {
			attrs.Start = earliest
		}
		attrs.End = s.idx.IdxToDate(last).Add(secs)
	} else {
		attrs.Start = s.idx.IdxToDate(last + 1).Add(-secs)
		attrs.End, _ = s.boundedDate(first + 1)
		if first == -1 {
			attrs.End, _ = s.boundedDate(last + 1)
		}
	}
	attrs.Scheduled = true
	s.setState(id, Finished)
	return nil
}

// bookAll books every resource in the set at slot i for task id,
// returning the lead resource's (set[0]'s) gained effort-hours, which
// paces the task's effort accumulation. Callers only reach here once
// every resource in the set is available at the slot, so there is no
// partial booking to unwind.
func (s *Scheduler) bookAll(i int, id model.TaskID, resources []model.ResourceID) (float64, error) {
	var leadGain float64
	for n, rid := range resources {
		board := s.pool.Board(rid)
		if board == nil {
			continue
		}
		gain, err := board.Book(i, id, s.pool.Tracker())
		if err != nil {
			return 0, ErrInternalInvariant
		}
		if n == 0 {
			leadGain = gain
		}
	}
	return leadGain, nil
}

// finishEffortSlot computes the fractional use of the finishing slot
// and releases the unused remainder back to every booked resource so a
// subsequent task may claim it. slotGain is what the final booking
// actually contributed, so the seconds the task was granted in this
// slot are recovered from it — the slot may have carried prior partial
// usage from an earlier task, in which case this task's portion starts
// after that usage rather than at the slot boundary.
func (s *Scheduler) finishEffortSlot(id model.TaskID, attrs *model.TaskScenarioAttrs, i int, remainingBefore, slotGain float64, resources []model.ResourceID, forward bool) {
	granularitySeconds := float64(s.proj.Granularity / time.Second)
	lead := s.pool.Board(resources[0])
	eff := 1.0
	if lead != nil && lead.Efficiency > 0 {
		eff = lead.Efficiency
	}

	grantedSeconds := granularitySeconds
	if slotGain > 0 {
		grantedSeconds = slotGain * 3600.0 / eff
		if grantedSeconds > granularitySeconds {
			grantedSeconds = granularitySeconds
		}
	}

	fraction := 1.0
	if slotGain > 0 {
		fraction = remainingBefore / slotGain
		if fraction > 1 {
			fraction = 1
		}
		if fraction < 0 {
			fraction = 0
		}
	}
	consumedSeconds := math.Round(fraction * grantedSeconds)
	release := int32(grantedSeconds - consumedSeconds)
	if release > 0 {
		for _, rid := range resources {
			board := s.pool.Board(rid)
			if board == nil {
				continue
			}
			_ = board.ReleasePartial(i, id, release)
		}
	}

	if forward {
		priorSeconds := granularitySeconds - grantedSeconds
		attrs.End = s.idx.IdxToDate(i).Add(time.Duration(math.Round(priorSeconds+consumedSeconds)) * time.Second)
	} else {
		attrs.Start = s.idx.SlotEnd(i).Add(-time.Duration(math.Round(consumedSeconds)) * time.Second)
	}
}

// contiguousFits verifies that a run of available slots large enough to
// cover the remaining effort starts at i, without booking anything.
func (s *Scheduler) contiguousFits(i int, resources []model.ResourceID, remainingHours float64, step, size int) bool {
	granularityHours := s.pool.Efficiency(resources) * float64(s.proj.Granularity) / float64(time.Hour)
	if granularityHours <= 0 {
		return false
	}
	needed := int(math.Ceil(remainingHours / granularityHours))
	for n := 0; n < needed; n++ {
		slot := i + n*step
		if slot < 0 || slot >= size || !s.pool.Available(slot, model.NoTask, resources) {
			return false
		}
	}
	return true
}

// runAway marks a task RunAway: the slot walk reached the project
// bound without finishing.
func (s *Scheduler) runAway(id model.TaskID, attrs *model.TaskScenarioAttrs) error {
	attrs.Scheduled = false
	s.setState(id, RunAway)
	if s.buf != nil {
		s.buf.Add(Warning{
			Kind:     WarnUnscheduledTask,
			Scenario: s.scenario,
			Task:     id,
			HasTask:  true,
			Message:  "slot walk exhausted project bounds before the task could finish",
		})
	}
	return nil
}

func (s *Scheduler) boundedDate(i int) (time.Time, bool) {
	if i < 0 {
		return s.idx.Start, false
	}
	if i >= s.idx.ScoreboardSize() {
		return s.idx.End, false
	}
	return s.idx.IdxToDate(i), true
}

// earliestASAPStart computes the ASAP initial slot timestamp: the
// latest of the project start and every dependency anchor plus gap,
// further delayed to respect any successor's maxgapduration.
func (s *Scheduler) earliestASAPStart(id model.TaskID, attrs *model.TaskScenarioAttrs) time.Time {
	if attrs.ExplicitStart != nil {
		return *attrs.ExplicitStart
	}
	earliest := s.idx.Start

	for _, dep := range s.g.Predecessors(id) {
		anchor, ok := graph.Anchor(s.proj, s.scenario, dep)
		if !ok {
			continue
		}
		gap := s.resolveGapFrom(anchor, dep, false)
		candidate := anchor.Add(gap)
		if candidate.After(earliest) {
			earliest = candidate
		}
	}

	for _, edge := range s.g.Successors(id) {
		if edge.Dep.MaxGapDuration <= 0 {
			continue
		}
		succTask := s.proj.Task(edge.Successor)
		succAttrs := succTask.Attrs(s.scenario)
		if !succAttrs.Scheduled {
			continue
		}
		gap := s.resolveGapFrom(succAttrs.Start, edge.Dep, true)
		effortDuration := s.effortDurationEstimate(id, attrs)
		requiredStart := succAttrs.Start.Add(-gap).Add(-effortDuration)
		if requiredStart.After(earliest) {
			earliest = requiredStart
		}
	}

	return earliest
}

// latestALAPEnd computes the ALAP initial slot timestamp.
func (s *Scheduler) latestALAPEnd(id model.TaskID, attrs *model.TaskScenarioAttrs) time.Time {
	if attrs.ExplicitEnd != nil {
		return *attrs.ExplicitEnd
	}
	latest := s.idx.End

	for _, dep := range s.g.Predecessors(id) {
		if !dep.OnStart {
			continue
		}
		pred := s.proj.Task(dep.Target)
		predAttrs := pred.Attrs(s.scenario)
		if !predAttrs.Scheduled {
			continue
		}
		gap := s.resolveGapFrom(predAttrs.Start, dep, true)
		candidate := predAttrs.Start.Add(-gap)
		if candidate.Before(latest) {
			latest = candidate
		}
	}

	for _, edge := range s.g.Successors(id) {
		succTask := s.proj.Task(edge.Successor)
		succAttrs := succTask.Attrs(s.scenario)
		if !succAttrs.Scheduled {
			continue
		}
		gap := s.resolveGapFrom(succAttrs.Start, edge.Dep, true)
		candidate := succAttrs.Start.Add(-gap)
		if candidate.Before(latest) {
			latest = candidate
		}
	}

	return latest
}

// resolveGapFrom folds calendar gapduration and working-time gaplength
// into a single calendar duration measured from anchor. gaplength
// elapses only over the project's global working slots, independent of
// any one resource's shift, so it is walked slot by slot from the
// anchor — backward when the caller is resolving an ALAP bound.
func (s *Scheduler) resolveGapFrom(anchor time.Time, dep model.Dependency, backward bool) time.Duration {
	gap := dep.GapDuration
	if dep.GapLength <= 0 {
		return gap
	}
	targetSlots := int(math.Ceil(float64(dep.GapLength) / float64(s.proj.Granularity)))
	start, _ := s.idx.DateToIdx(anchor.Add(gap), calendar.ClampToBounds)
	step := 1
	if backward {
		step = -1
		start--
	}
	size := s.idx.ScoreboardSize()
	worked := 0
	calendarSlots := 0
	for i := start; i >= 0 && i < size && worked < targetSlots; i += step {
		calendarSlots++
		if s.idx.IsGlobalWorking(i) {
			worked++
		}
	}
	return gap + time.Duration(calendarSlots)*s.proj.Granularity
}

// effortDurationEstimate returns the calendar-time a task's remaining
// effort is expected to occupy, used only to back-compute a
// maxgapduration-adjusted ASAP start. As a rough estimate it divides
// the effort by the lowest efficiency in the primary allocation and
// ignores working time; exactness isn't required since the slot walk
// derives the true finish time.
func (s *Scheduler) effortDurationEstimate(id model.TaskID, attrs *model.TaskScenarioAttrs) time.Duration {
	if attrs.Effort <= 0 {
		return 0
	}
	eff := s.pool.Efficiency(attrs.Allocate.Primary)
	if eff <= 0 {
		eff = 1.0
	}
	hours := attrs.Effort.Hours() / eff
	return time.Duration(hours * float64(time.Hour))
}
