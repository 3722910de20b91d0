package calendar

import (
	"time"

	"github.com/scriptplanner/scriptplan/internal/model"
)

// WorkingHours evaluates a single entity's (resource's or shift's)
// working-time predicate in the entity's local timezone, including
// cross-midnight intervals and leave short-circuiting.
type WorkingHours struct {
	Schedule model.WeekSchedule
	TZ       *time.Location
	Leaves   []model.Leave

	// Fallback is consulted when Schedule has no intervals defined at
	// all (entity declared no explicit working hours) — falls back to
	// the project default.
	Fallback *Index
}

// Evaluate answers "is slot i within this entity's working time?" by:
//  1. converting the slot's UTC start to the entity's local timezone,
//  2. checking the local weekday's intervals (and the previous weekday's
//     tail for a cross-midnight wrap),
//  3. short-circuiting to false if any leave covers the slot.
func (wh *WorkingHours) Evaluate(idx *Index, i int) bool {
	ts := idx.IdxToDate(i)

	for _, leave := range wh.Leaves {
		if leave.Covers(ts) {
			return false
		}
	}

	if wh.isScheduleEmpty() {
		if wh.Fallback != nil {
			return wh.Fallback.IsGlobalWorking(i)
		}
		return false
	}

	tz := wh.TZ
	if tz == nil {
		tz = time.UTC
	}
	return evaluateWeekSchedule(wh.Schedule, ts, tz)
}

func (wh *WorkingHours) isScheduleEmpty() bool {
	for _, day := range wh.Schedule {
		if len(day) > 0 {
			return false
		}
	}
	return true
}

// evaluateWeekSchedule converts the slot start to local time, checks
// the local weekday's intervals, and consults the previous weekday for
// a cross-midnight wrap's early-morning tail.
func evaluateWeekSchedule(ws model.WeekSchedule, ts time.Time, tz *time.Location) bool {
	if tz == nil {
		tz = time.UTC
	}
	local := ts.In(tz)
	weekday := int(local.Weekday())
	minuteOfDay := local.Hour()*60 + local.Minute()

	for _, iv := range ws[weekday] {
		if !iv.Wraps() {
			if iv.Contains(minuteOfDay) {
				return true
			}
			continue
		}
		// Wrapping interval: covers [StartMin, 1440) on this weekday.
		if minuteOfDay >= iv.StartMin {
			return true
		}
	}

	// Previous weekday's wrapping intervals cover [0, EndMin) today.
	prevWeekday := (weekday + 6) % 7
	for _, iv := range ws[prevWeekday] {
		if iv.Wraps() && minuteOfDay < iv.EndMin {
			return true
		}
	}

	return false
}
