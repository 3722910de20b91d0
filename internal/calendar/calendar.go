// Package calendar implements the calendar & time index and the
// working-hours evaluator: mapping absolute timestamps to integer
// slot indices at project granularity, and answering whether a given
// slot is within an entity's working time.
package calendar

import (
	"math"
	"time"

	"github.com/scriptplanner/scriptplan/internal/model"
)

// Index wraps a project's time bounds and granularity to convert
// between timestamps and slot indices.
type Index struct {
	Start       time.Time
	End         time.Time
	Granularity time.Duration
	Leaves      []model.Leave
	Default     model.WeekSchedule
	DefaultTZ   *time.Location
}

// NewIndex builds an Index from a project.
func NewIndex(p *model.Project) *Index {
	return &Index{
		Start:       p.Start,
		End:         p.End,
		Granularity: p.Granularity,
		Leaves:      p.GlobalLeaves,
		Default:     p.WorkingTimeDefault,
		DefaultTZ:   p.DefaultTimezone,
	}
}

// ClampMode controls DateToIdx's behavior for out-of-range timestamps.
type ClampMode int

const (
	// ClampToBounds saturates to [0, ScoreboardSize()-1].
	ClampToBounds ClampMode = iota
	// ErrorOnOutOfRange returns ok=false instead of clamping.
	ErrorOnOutOfRange
)

// DateToIdx computes i = floor((ts - start)/G).
func (idx *Index) DateToIdx(ts time.Time, mode ClampMode) (int, bool) {
	d := ts.Sub(idx.Start)
	i := int(math.Floor(float64(d) / float64(idx.Granularity)))
	size := idx.ScoreboardSize()
	if i < 0 || i >= size {
		if mode == ErrorOnOutOfRange {
			return 0, false
		}
		if i < 0 {
			i = 0
		} else {
			i = size - 1
		}
	}
	return i, true
}

// IdxToDate computes the slot's start timestamp.
func (idx *Index) IdxToDate(i int) time.Time {
	return idx.Start.Add(time.Duration(i) * idx.Granularity)
}

// SlotEnd returns the slot's end timestamp (half-open upper bound).
func (idx *Index) SlotEnd(i int) time.Time {
	return idx.IdxToDate(i + 1)
}

// ScoreboardSize is ⌈(end − start)/G⌉ + 1.
func (idx *Index) ScoreboardSize() int {
	span := idx.End.Sub(idx.Start)
	slots := int(span / idx.Granularity)
	if span%idx.Granularity != 0 {
		slots++
	}
	return slots + 1
}

// IsGlobalWorking is the project-default working-time predicate: true
// iff default weekday in Mon..Fri, hour in [09,17), and no global leave
// covers the slot. It is replaceable per-resource via a WorkingHours
// evaluator.
func (idx *Index) IsGlobalWorking(i int) bool {
	ts := idx.IdxToDate(i)
	for _, leave := range idx.Leaves {
		if leave.Covers(ts) {
			return false
		}
	}
	return evaluateWeekSchedule(idx.Default, ts, idx.DefaultTZ)
}

// ExtendHeuristic computes the automatic-extension buffer:
// (effort_hours/6 + gap_days) × 1.5 + 7 days.
func ExtendHeuristic(totalEffortHours, gapDays float64) time.Duration {
	days := (totalEffortHours/6+gapDays)*1.5 + 7
	return time.Duration(days * 24 * float64(time.Hour))
}

// MaybeExtend extends idx.End (and returns the extended copy) when the
// declared span would truncate the given total effort/gap budget. The
// caller decides whether to commit the extension to the project.
func (idx *Index) MaybeExtend(totalEffortHours, gapDays float64) time.Time {
	declaredSpan := idx.End.Sub(idx.Start)
	required := time.Duration(totalEffortHours/6*float64(time.Hour)) + ExtendHeuristic(totalEffortHours, gapDays)
	if required > declaredSpan {
		return idx.Start.Add(required)
	}
	return idx.End
}
