// Package limits implements the hierarchical limits engine. Each
// Limit maintains a counter vector bucketed by day/week/month/interval;
// Tracker resolves the full ancestor chain for a resource or task once
// per scheduling run and checks/increments every applicable limit on a
// booking.
package limits

import (
	"time"

	"github.com/scriptplanner/scriptplan/internal/model"
)

// counterKey identifies one (limit instance, bucket) counter slot.
type counterKey struct {
	limit  *model.Limit
	bucket int
}

// Tracker owns the live counter state for one scenario's scheduling run.
// Limits are cloned per scenario, so a fresh
// Tracker is built per scenario and its counters never leak across runs.
type Tracker struct {
	proj        *model.Project
	scenario    model.ScenarioIndex
	granularity int32 // seconds
	epoch       time.Time

	resourceAncestors map[model.ResourceID][]model.ResourceID
	taskAncestors     map[model.TaskID][]model.TaskID

	counters map[counterKey]int32
}

// NewTracker builds a Tracker for one scenario, precomputing ancestor
// chains for every resource and task so the hot booking path never
// walks pointers more than once per run.
func NewTracker(proj *model.Project, scenario model.ScenarioIndex) *Tracker {
	t := &Tracker{
		proj:              proj,
		scenario:          scenario,
		granularity:       int32(proj.Granularity / time.Second),
		epoch:             proj.Start,
		resourceAncestors: make(map[model.ResourceID][]model.ResourceID, len(proj.Resources)),
		taskAncestors:     make(map[model.TaskID][]model.TaskID, len(proj.Tasks)),
		counters:          make(map[counterKey]int32),
	}
	for i := range proj.Resources {
		id := model.ResourceID(i)
		t.resourceAncestors[id] = resourceChain(proj, id)
	}
	for i := range proj.Tasks {
		id := model.TaskID(i)
		t.taskAncestors[id] = taskChain(proj, id)
	}
	return t
}

func resourceChain(proj *model.Project, id model.ResourceID) []model.ResourceID {
	chain := []model.ResourceID{id}
	cur := proj.Resource(id)
	for cur != nil && cur.Parent != model.NoResource && cur.Parent != cur.ID {
		chain = append(chain, cur.Parent)
		cur = proj.Resource(cur.Parent)
	}
	return chain
}

func taskChain(proj *model.Project, id model.TaskID) []model.TaskID {
	chain := []model.TaskID{id}
	cur := proj.Task(id)
	for cur != nil && cur.Parent != model.NoTask && cur.Parent != cur.ID {
		chain = append(chain, cur.Parent)
		cur = proj.Task(cur.Parent)
	}
	return chain
}

// applicableLimits gathers every Limit declared on the resource's
// ancestor chain and the task's ancestor chain for this scenario.
func (t *Tracker) applicableLimits(resource model.ResourceID, task model.TaskID) []*model.Limit {
	var out []*model.Limit
	for _, rid := range t.resourceAncestors[resource] {
		if r := t.proj.Resource(rid); r != nil && int(t.scenario) < len(r.PerScenario) {
			out = append(out, r.PerScenario[t.scenario].Limits...)
		}
	}
	for _, tid := range t.taskAncestors[task] {
		if tk := t.proj.Task(tid); tk != nil && int(t.scenario) < len(tk.PerScenario) {
			out = append(out, tk.PerScenario[t.scenario].Limits...)
		}
	}
	return out
}

func (t *Tracker) capSlots(l *model.Limit) int32 {
	if t.granularity == 0 {
		return 0
	}
	return int32(l.CapHours * 3600.0 / float64(t.granularity))
}

func (t *Tracker) bucketFor(l *model.Limit, i int) int {
	ts := t.epoch.Add(time.Duration(i) * time.Duration(t.granularity) * time.Second)
	return bucketIndex(l.Period, ts, t.epoch)
}

// bucketIndex computes the bucket offset: daily buckets align
// to calendar days, weekly buckets use ISO week numbers (spanning year
// boundaries correctly since time.Time.ISOWeek already does), monthly
// buckets use calendar months, interval is a single bucket.
func bucketIndex(period model.Period, ts, epoch time.Time) int {
	ts = ts.UTC()
	epoch = epoch.UTC()
	switch period {
	case model.PeriodDay:
		tsDay := time.Date(ts.Year(), ts.Month(), ts.Day(), 0, 0, 0, 0, time.UTC)
		epochDay := time.Date(epoch.Year(), epoch.Month(), epoch.Day(), 0, 0, 0, 0, time.UTC)
		return int(tsDay.Sub(epochDay).Hours() / 24)
	case model.PeriodWeek:
		ey, ew := epoch.ISOWeek()
		ty, tw := ts.ISOWeek()
		return (ty-ey)*53 + (tw - ew)
	case model.PeriodMonth:
		ey, em, _ := epoch.Date()
		ty, tm, _ := ts.Date()
		return (ty-ey)*12 + (int(tm) - int(em))
	default: // PeriodInterval
		return 0
	}
}

// Ok reports whether booking slot i for (resource, task) stays within
// every applicable limit: ok unless counter >= cap for an
// upper (cap) limit, or counter < cap for a lower (floor) limit — and,
// when the limit carries a resource qualifier, only that resource's
// bookings are gated by it.
func (t *Tracker) Ok(i int, resource model.ResourceID, task model.TaskID) bool {
	for _, l := range t.applicableLimits(resource, task) {
		if l.HasQualifier && l.ResourceQualifier != resource {
			continue
		}
		bucket := t.bucketFor(l, i)
		counter := t.counters[counterKey{l, bucket}]
		cap := t.capSlots(l)
		if l.Upper && counter >= cap {
			return false
		}
		if !l.Upper && counter < cap {
			return false
		}
	}
	return true
}

// Commit increments every applicable limit's counter for the booking
// (self + resource ancestors + the booked task's own limit chain).
func (t *Tracker) Commit(i int, resource model.ResourceID, task model.TaskID) {
	for _, l := range t.applicableLimits(resource, task) {
		if l.HasQualifier && l.ResourceQualifier != resource {
			continue
		}
		bucket := t.bucketFor(l, i)
		t.counters[counterKey{l, bucket}]++
	}
}

// Rollback reverses a prior Commit, symmetric across rollback.
func (t *Tracker) Rollback(i int, resource model.ResourceID, task model.TaskID) {
	for _, l := range t.applicableLimits(resource, task) {
		if l.HasQualifier && l.ResourceQualifier != resource {
			continue
		}
		bucket := t.bucketFor(l, i)
		key := counterKey{l, bucket}
		if t.counters[key] > 0 {
			t.counters[key]--
		}
	}
}

// Counter exposes the current counter value for a given limit/slot,
// for tests and reporting.
func (t *Tracker) Counter(l *model.Limit, i int) int32 {
	return t.counters[counterKey{l, t.bucketFor(l, i)}]
}
