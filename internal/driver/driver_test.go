package driver

import (
	"context"
	"testing"
	"time"

	"github.com/scriptplanner/scriptplan/internal/model"
	"github.com/scriptplanner/scriptplan/internal/scheduler"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestSchedule_BasicEffort: a one-week project,
// G=3600, a Mon-Fri 09:00-17:00 shift, one resource, one 2h effort
// task. Expect heat.start = 2025-05-12 09:00, heat.end = 2025-05-12
// 11:00 (project starts on a Saturday, so the walk lands on the
// following Monday).
func TestSchedule_BasicEffort(t *testing.T) {
	start := time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC) // Saturday
	p := model.NewProject(start, start.Add(7*24*time.Hour), time.Hour, time.UTC)
	p.WorkingTimeDefault = model.DefaultWorkWeek()

	heater := p.AddResource(model.Resource{Path: "heater"})
	p.Resource(heater).Attrs(0).WorkingHours = ptrWeek(model.DefaultWorkWeek())

	heat := p.AddTask(model.Task{Path: "heat", SeqNo: 0})
	heatAttrs := p.Task(heat).Attrs(0)
	heatAttrs.Effort = 2 * time.Hour
	heatAttrs.HasForward, heatAttrs.Forward = true, true
	heatAttrs.Allocate.Primary = []model.ResourceID{heater}

	res, err := Schedule(context.Background(), p, 0, nil)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	gotAttrs := p.Task(heat).Attrs(0)
	assert.True(t, gotAttrs.Scheduled)
	assert.True(t, gotAttrs.Start.Equal(time.Date(2025, 5, 12, 9, 0, 0, 0, time.UTC)), "start=%v", gotAttrs.Start)
	assert.True(t, gotAttrs.End.Equal(time.Date(2025, 5, 12, 11, 0, 0, 0, time.UTC)), "end=%v", gotAttrs.End)
}

// TestSchedule_Dependency verifies a dependent task
// starts no earlier than its predecessor's end plus gap.
func TestSchedule_Dependency(t *testing.T) {
	start := time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC) // Monday
	p := model.NewProject(start, start.Add(14*24*time.Hour), time.Hour, time.UTC)
	p.WorkingTimeDefault = model.DefaultWorkWeek()

	r := p.AddResource(model.Resource{Path: "dev"})
	p.Resource(r).Attrs(0).WorkingHours = ptrWeek(model.DefaultWorkWeek())

	first := p.AddTask(model.Task{Path: "first", SeqNo: 0})
	firstAttrs := p.Task(first).Attrs(0)
	firstAttrs.Effort = 4 * time.Hour
	firstAttrs.HasForward, firstAttrs.Forward = true, true
	firstAttrs.Allocate.Primary = []model.ResourceID{r}

	second := p.AddTask(model.Task{Path: "second", SeqNo: 1})
	secondAttrs := p.Task(second).Attrs(0)
	secondAttrs.Effort = 2 * time.Hour
	secondAttrs.HasForward, secondAttrs.Forward = true, true
	secondAttrs.Allocate.Primary = []model.ResourceID{r}
	secondAttrs.Depends = []model.Dependency{{Target: first, GapDuration: time.Hour}}

	_, err := Schedule(context.Background(), p, 0, nil)
	require.NoError(t, err)

	firstEnd := p.Task(first).Attrs(0).End
	secondStart := p.Task(second).Attrs(0).Start
	assert.False(t, secondStart.Before(firstEnd.Add(time.Hour)))
}

// TestSchedule_CyclicDependencyRejected verifies a cyclic dependency is
// reported as a deadlock before the ready-queue loop ever runs.
func TestSchedule_CyclicDependencyRejected(t *testing.T) {
	start := time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC)
	p := model.NewProject(start, start.Add(7*24*time.Hour), time.Hour, time.UTC)

	a := p.AddTask(model.Task{Path: "a"})
	b := p.AddTask(model.Task{Path: "b"})
	p.Task(a).Attrs(0).Depends = []model.Dependency{{Target: b}}
	p.Task(b).Attrs(0).Depends = []model.Dependency{{Target: a}}

	_, err := Schedule(context.Background(), p, 0, nil)
	require.Error(t, err)
	var se *ScheduleError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindDeadlock, se.Kind)
}

// TestSchedule_Deadlock: an ALAP task with no deadline anchor waits on
// its successor, which waits on it — no graph cycle, but nothing ever
// becomes Ready. The driver reports a deadlock, keeps the partial
// result, and marks the stuck tasks unscheduled.
func TestSchedule_Deadlock(t *testing.T) {
	start := time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC)
	p := model.NewProject(start, start.Add(7*24*time.Hour), time.Hour, time.UTC)
	p.WorkingTimeDefault = model.DefaultWorkWeek()

	a := p.AddTask(model.Task{Path: "a", SeqNo: 0})
	aAttrs := p.Task(a).Attrs(0)
	aAttrs.Effort = time.Hour
	aAttrs.HasForward, aAttrs.Forward = true, false

	b := p.AddTask(model.Task{Path: "b", SeqNo: 1})
	bAttrs := p.Task(b).Attrs(0)
	bAttrs.Effort = time.Hour
	bAttrs.HasForward, bAttrs.Forward = true, true
	bAttrs.Depends = []model.Dependency{{Target: a}}

	res, err := Schedule(context.Background(), p, 0, nil)
	require.Error(t, err)
	var se *ScheduleError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindDeadlock, se.Kind)

	require.NotNil(t, res)
	var sawDeadlock bool
	for _, w := range res.Warnings {
		if w.Kind == scheduler.WarnDeadlock {
			sawDeadlock = true
		}
	}
	assert.True(t, sawDeadlock)
	assert.False(t, p.Task(a).Attrs(0).Scheduled)
	assert.False(t, p.Task(b).Attrs(0).Scheduled)
}

// TestSchedule_Cancellation verifies a cancelled context leaves
// remaining tasks unscheduled rather than panicking or hanging.
func TestSchedule_Cancellation(t *testing.T) {
	start := time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC)
	p := model.NewProject(start, start.Add(7*24*time.Hour), time.Hour, time.UTC)
	p.WorkingTimeDefault = model.DefaultWorkWeek()

	p.AddTask(model.Task{Path: "solo"})
	p.Task(0).Attrs(0).Effort = time.Hour
	p.Task(0).Attrs(0).HasForward, p.Task(0).Attrs(0).Forward = true, true

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Schedule(ctx, p, 0, nil)
	require.Error(t, err)
	var se *ScheduleError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, KindCancelled, se.Kind)
	assert.False(t, p.Task(0).Attrs(0).Scheduled)
}

// TestSchedule_DailyLimitAndHoliday: a
// dailymax 4h cap on the QA resource plus a Wednesday holiday pushes
// the review/deploy chain out: review spreads over three capped days
// and deploy can't fit Monday afternoon once the cap is hit.
func TestSchedule_DailyLimitAndHoliday(t *testing.T) {
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC) // Monday
	p := model.NewProject(start, start.Add(21*24*time.Hour), time.Hour, time.UTC)
	p.WorkingTimeDefault = model.DefaultWorkWeek()

	dev := p.AddResource(model.Resource{Path: "dev"})
	p.Resource(dev).Attrs(0).WorkingHours = ptrWeek(model.DefaultWorkWeek())

	qa := p.AddResource(model.Resource{Path: "qa"})
	qaAttrs := p.Resource(qa).Attrs(0)
	qaAttrs.WorkingHours = ptrWeek(model.DefaultWorkWeek())
	qaAttrs.Limits = []*model.Limit{
		{Kind: "dailymax", Period: model.PeriodDay, CapHours: 4, Upper: true},
	}
	// Wed Jun 4 is a holiday for QA only.
	qaAttrs.Leaves = []model.Leave{
		{Kind: "holiday", Start: time.Date(2025, 6, 4, 0, 0, 0, 0, time.UTC), End: time.Date(2025, 6, 5, 0, 0, 0, 0, time.UTC)},
	}

	coding := p.AddTask(model.Task{Path: "coding", SeqNo: 0})
	codingAttrs := p.Task(coding).Attrs(0)
	codingAttrs.Effort = 16 * time.Hour
	codingAttrs.HasForward, codingAttrs.Forward = true, true
	codingAttrs.Allocate.Primary = []model.ResourceID{dev}

	review := p.AddTask(model.Task{Path: "review", SeqNo: 1})
	reviewAttrs := p.Task(review).Attrs(0)
	reviewAttrs.Effort = 12 * time.Hour
	reviewAttrs.HasForward, reviewAttrs.Forward = true, true
	reviewAttrs.Allocate.Primary = []model.ResourceID{qa}
	reviewAttrs.Depends = []model.Dependency{{Target: coding}}

	deploy := p.AddTask(model.Task{Path: "deploy", SeqNo: 2})
	deployAttrs := p.Task(deploy).Attrs(0)
	deployAttrs.Effort = 4 * time.Hour
	deployAttrs.HasForward, deployAttrs.Forward = true, true
	deployAttrs.Allocate.Primary = []model.ResourceID{dev, qa}
	deployAttrs.Depends = []model.Dependency{{Target: review}}

	_, err := Schedule(context.Background(), p, 0, nil)
	require.NoError(t, err)

	gotCoding := p.Task(coding).Attrs(0)
	assert.True(t, gotCoding.End.Equal(time.Date(2025, 6, 3, 17, 0, 0, 0, time.UTC)), "coding end=%v", gotCoding.End)

	gotReview := p.Task(review).Attrs(0)
	assert.True(t, gotReview.End.Equal(time.Date(2025, 6, 9, 13, 0, 0, 0, time.UTC)), "review end=%v", gotReview.End)

	gotDeploy := p.Task(deploy).Attrs(0)
	assert.True(t, gotDeploy.End.Equal(time.Date(2025, 6, 10, 13, 0, 0, 0, time.UTC)), "deploy end=%v", gotDeploy.End)
}

// TestSchedule_ALAPResourceLeveling: two
// 16h assemblies share one machine with an 8h pack task hard-anchored
// to a Friday 16:00 deadline; ALAP back-propagation pushes both
// assemblies earlier, leveled across the single resource so they never
// overlap and never touch a weekend.
func TestSchedule_ALAPResourceLeveling(t *testing.T) {
	start := time.Date(2025, 7, 7, 0, 0, 0, 0, time.UTC) // Monday
	p := model.NewProject(start, start.Add(21*24*time.Hour), time.Hour, time.UTC)

	machineShift := model.WeekSchedule{}
	workday := []model.Interval{{StartMin: 8 * 60, EndMin: 16 * 60}}
	for d := 1; d <= 5; d++ {
		machineShift[d] = workday
	}
	p.WorkingTimeDefault = machineShift

	machine := p.AddResource(model.Resource{Path: "machine"})
	p.Resource(machine).Attrs(0).WorkingHours = ptrWeek(machineShift)

	asm1 := p.AddTask(model.Task{Path: "assembly1", SeqNo: 0})
	a1 := p.Task(asm1).Attrs(0)
	a1.Effort = 16 * time.Hour
	a1.Allocate.Primary = []model.ResourceID{machine}

	asm2 := p.AddTask(model.Task{Path: "assembly2", SeqNo: 1})
	a2 := p.Task(asm2).Attrs(0)
	a2.Effort = 16 * time.Hour
	a2.Allocate.Primary = []model.ResourceID{machine}

	pack := p.AddTask(model.Task{Path: "pack", SeqNo: 2})
	packAttrs := p.Task(pack).Attrs(0)
	packAttrs.Effort = 8 * time.Hour
	packAttrs.HasForward, packAttrs.Forward = true, false
	end := time.Date(2025, 7, 18, 16, 0, 0, 0, time.UTC) // Friday
	packAttrs.ExplicitEnd = &end
	packAttrs.Allocate.Primary = []model.ResourceID{machine}
	packAttrs.Depends = []model.Dependency{{Target: asm1}, {Target: asm2}}

	_, err := Schedule(context.Background(), p, 0, nil)
	require.NoError(t, err)

	gotPack := p.Task(pack).Attrs(0)
	assert.True(t, gotPack.Start.Equal(time.Date(2025, 7, 18, 8, 0, 0, 0, time.UTC)), "pack start=%v", gotPack.Start)
	assert.True(t, gotPack.End.Equal(end), "pack end=%v", gotPack.End)

	near := []time.Time{time.Date(2025, 7, 16, 8, 0, 0, 0, time.UTC), time.Date(2025, 7, 17, 16, 0, 0, 0, time.UTC)}
	far := []time.Time{time.Date(2025, 7, 14, 8, 0, 0, 0, time.UTC), time.Date(2025, 7, 15, 16, 0, 0, 0, time.UTC)}

	a1Got, a2Got := p.Task(asm1).Attrs(0), p.Task(asm2).Attrs(0)
	slots := [][2]time.Time{{a1Got.Start, a1Got.End}, {a2Got.Start, a2Got.End}}

	matchesPair := func(start, end time.Time, pair []time.Time) bool {
		return start.Equal(pair[0]) && end.Equal(pair[1])
	}
	oneNearOneFar := (matchesPair(slots[0][0], slots[0][1], near) && matchesPair(slots[1][0], slots[1][1], far)) ||
		(matchesPair(slots[0][0], slots[0][1], far) && matchesPair(slots[1][0], slots[1][1], near))
	assert.True(t, oneNearOneFar, "assembly slots=%v", slots)

	assert.False(t, slots[0][0].Before(start), "no booking before project start")
	for _, s := range slots {
		assert.NotEqual(t, time.Saturday, s[0].Weekday())
		assert.NotEqual(t, time.Sunday, s[0].Weekday())
	}
}

// TestSchedule_TimezoneHandoff: a Tokyo
// resource's effort task hands off to an NY resource's dependent task,
// each evaluated in its own local timezone, with the dependency gap
// and working-hours mismatch resolved entirely in UTC.
func TestSchedule_TimezoneHandoff(t *testing.T) {
	tokyoStart := time.Date(2025, 5, 1, 0, 0, 0, 0, time.UTC) // 09:00 JST Thursday
	p := model.NewProject(tokyoStart, tokyoStart.Add(14*24*time.Hour), time.Hour, time.UTC)
	p.WorkingTimeDefault = model.DefaultWorkWeek()

	tokyoTZ, err := time.LoadLocation("Asia/Tokyo")
	require.NoError(t, err)
	nyTZ, err := time.LoadLocation("America/New_York")
	require.NoError(t, err)

	tokyoShift := model.WeekSchedule{}
	tokyoHours := []model.Interval{{StartMin: 9 * 60, EndMin: 18 * 60}}
	for d := 1; d <= 5; d++ {
		tokyoShift[d] = tokyoHours
	}
	tokyo := p.AddResource(model.Resource{Path: "tokyo"})
	tokyoAttrs := p.Resource(tokyo).Attrs(0)
	tokyoAttrs.WorkingHours = &tokyoShift
	tokyoAttrs.Timezone = &model.ShiftTimezone{Name: tokyoTZ.String()}

	nyShift := model.WeekSchedule{}
	nyHours := []model.Interval{{StartMin: 9 * 60, EndMin: 17 * 60}}
	for d := 1; d <= 5; d++ {
		nyShift[d] = nyHours
	}
	ny := p.AddResource(model.Resource{Path: "ny"})
	nyAttrs := p.Resource(ny).Attrs(0)
	nyAttrs.WorkingHours = &nyShift
	nyAttrs.Timezone = &model.ShiftTimezone{Name: nyTZ.String()}

	tokyoTask := p.AddTask(model.Task{Path: "tokyo-task", SeqNo: 0})
	tAttrs := p.Task(tokyoTask).Attrs(0)
	tAttrs.Effort = 9 * time.Hour
	tAttrs.HasForward, tAttrs.Forward = true, true
	tAttrs.Allocate.Primary = []model.ResourceID{tokyo}

	nyTask := p.AddTask(model.Task{Path: "ny-task", SeqNo: 1})
	nAttrs := p.Task(nyTask).Attrs(0)
	nAttrs.Effort = 4 * time.Hour
	nAttrs.HasForward, nAttrs.Forward = true, true
	nAttrs.Allocate.Primary = []model.ResourceID{ny}
	nAttrs.Depends = []model.Dependency{{Target: tokyoTask}}

	_, err = Schedule(context.Background(), p, 0, nil)
	require.NoError(t, err)

	gotTokyo := p.Task(tokyoTask).Attrs(0)
	assert.True(t, gotTokyo.End.Equal(time.Date(2025, 5, 1, 9, 0, 0, 0, time.UTC)), "tokyo end=%v", gotTokyo.End)

	gotNY := p.Task(nyTask).Attrs(0)
	assert.True(t, gotNY.Start.Equal(time.Date(2025, 5, 1, 13, 0, 0, 0, time.UTC)), "ny start=%v", gotNY.Start)
	assert.True(t, gotNY.End.Equal(time.Date(2025, 5, 1, 17, 0, 0, 0, time.UTC)), "ny end=%v", gotNY.End)
}

// TestSchedule_ContainerRollup verifies a container's dates roll up
// from its children: start = min(child.start), end = max(child.end).
func TestSchedule_ContainerRollup(t *testing.T) {
	start := time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC) // Monday
	p := model.NewProject(start, start.Add(7*24*time.Hour), time.Hour, time.UTC)
	p.WorkingTimeDefault = model.DefaultWorkWeek()

	r := p.AddResource(model.Resource{Path: "dev"})
	p.Resource(r).Attrs(0).WorkingHours = ptrWeek(model.DefaultWorkWeek())

	phase := p.AddTask(model.Task{Path: "phase", SeqNo: 0})
	design := p.AddChildTask(phase, model.Task{Path: "phase.design", SeqNo: 1})
	dAttrs := p.Task(design).Attrs(0)
	dAttrs.Effort = 2 * time.Hour
	dAttrs.HasForward, dAttrs.Forward = true, true
	dAttrs.Allocate.Primary = []model.ResourceID{r}

	build := p.AddChildTask(phase, model.Task{Path: "phase.build", SeqNo: 2})
	bAttrs := p.Task(build).Attrs(0)
	bAttrs.Effort = 4 * time.Hour
	bAttrs.HasForward, bAttrs.Forward = true, true
	bAttrs.Allocate.Primary = []model.ResourceID{r}
	bAttrs.Depends = []model.Dependency{{Target: design}}

	_, err := Schedule(context.Background(), p, 0, nil)
	require.NoError(t, err)

	got := p.Task(phase).Attrs(0)
	assert.True(t, got.Scheduled)
	assert.True(t, got.Start.Equal(p.Task(design).Attrs(0).Start), "container start=%v", got.Start)
	assert.True(t, got.End.Equal(p.Task(build).Attrs(0).End), "container end=%v", got.End)
}

// TestSchedule_Determinism verifies a re-run on an identically-built
// project reproduces every start, end, and per-slot usage value.
func TestSchedule_Determinism(t *testing.T) {
	build := func() *model.Project {
		start := time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC)
		p := model.NewProject(start, start.Add(14*24*time.Hour), time.Hour, time.UTC)
		p.WorkingTimeDefault = model.DefaultWorkWeek()
		r1 := p.AddResource(model.Resource{Path: "r1"})
		p.Resource(r1).Attrs(0).WorkingHours = ptrWeek(model.DefaultWorkWeek())
		r2 := p.AddResource(model.Resource{Path: "r2"})
		p.Resource(r2).Attrs(0).WorkingHours = ptrWeek(model.DefaultWorkWeek())
		for i := 0; i < 6; i++ {
			id := p.AddTask(model.Task{Path: "t", SeqNo: i})
			attrs := p.Task(id).Attrs(0)
			attrs.Effort = time.Duration(i+1) * time.Hour
			attrs.HasForward, attrs.Forward = true, true
			attrs.Allocate.Primary = []model.ResourceID{r1, r2}[i%2 : i%2+1]
			if i > 0 {
				attrs.Depends = []model.Dependency{{Target: model.TaskID(i - 1), GapDuration: 30 * time.Minute}}
			}
		}
		return p
	}

	p1, p2 := build(), build()
	res1, err := Schedule(context.Background(), p1, 0, nil)
	require.NoError(t, err)
	res2, err := Schedule(context.Background(), p2, 0, nil)
	require.NoError(t, err)

	for i := range p1.Tasks {
		a1, a2 := p1.Tasks[i].Attrs(0), p2.Tasks[i].Attrs(0)
		assert.True(t, a1.Start.Equal(a2.Start), "task %d start", i)
		assert.True(t, a1.End.Equal(a2.End), "task %d end", i)
	}
	for rid, b1 := range res1.Boards {
		b2 := res2.Boards[rid]
		require.NotNil(t, b2)
		for i := 0; i < b1.Size(); i++ {
			assert.Equal(t, b1.UsedSeconds(i), b2.UsedSeconds(i), "slot %d", i)
			assert.Equal(t, b1.PerTaskUsage(i), b2.PerTaskUsage(i), "slot %d usage", i)
		}
	}
}

// TestSchedule_MaxGapViolationWarning: when contention pushes a task's
// start past its predecessor's end plus maxgapduration, the run still
// completes but carries a maxgap_violation warning.
func TestSchedule_MaxGapViolationWarning(t *testing.T) {
	start := time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC) // Monday
	p := model.NewProject(start, start.Add(14*24*time.Hour), time.Hour, time.UTC)
	p.WorkingTimeDefault = model.DefaultWorkWeek()

	r := p.AddResource(model.Resource{Path: "dev"})
	p.Resource(r).Attrs(0).WorkingHours = ptrWeek(model.DefaultWorkWeek())

	// High-priority filler occupies the whole first day so the
	// dependent task cannot start within its allowed gap.
	filler := p.AddTask(model.Task{Path: "filler", SeqNo: 0})
	fAttrs := p.Task(filler).Attrs(0)
	fAttrs.Effort = 8 * time.Hour
	fAttrs.HasForward, fAttrs.Forward = true, true
	fAttrs.Priority = 1000
	fAttrs.Allocate.Primary = []model.ResourceID{r}

	pred := p.AddTask(model.Task{Path: "pred", SeqNo: 1})
	pAttrs := p.Task(pred).Attrs(0)
	pAttrs.Milestone = true
	pAttrs.HasForward, pAttrs.Forward = true, true

	succ := p.AddTask(model.Task{Path: "succ", SeqNo: 2})
	sAttrs := p.Task(succ).Attrs(0)
	sAttrs.Effort = time.Hour
	sAttrs.HasForward, sAttrs.Forward = true, true
	sAttrs.Allocate.Primary = []model.ResourceID{r}
	sAttrs.Depends = []model.Dependency{{Target: pred, MaxGapDuration: time.Hour}}

	res, err := Schedule(context.Background(), p, 0, nil)
	require.NoError(t, err)

	var found bool
	for _, w := range res.Warnings {
		if w.Kind == scheduler.WarnMaxGapViolation {
			found = true
		}
	}
	assert.True(t, found, "warnings=%v", res.Warnings)
	assert.True(t, p.Task(succ).Attrs(0).Scheduled)
}

// TestSchedule_ParentResourceLimit verifies a cap declared on a parent
// resource gates its child's bookings: a dailymax 2h on the team limits
// the dev to two hours a day.
func TestSchedule_ParentResourceLimit(t *testing.T) {
	start := time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC) // Monday
	p := model.NewProject(start, start.Add(14*24*time.Hour), time.Hour, time.UTC)
	p.WorkingTimeDefault = model.DefaultWorkWeek()

	team := p.AddResource(model.Resource{Path: "team"})
	p.Resource(team).Attrs(0).Limits = []*model.Limit{
		{Kind: "dailymax", Period: model.PeriodDay, CapHours: 2, Upper: true},
	}
	dev := p.AddChildResource(team, model.Resource{Path: "team.dev"})
	p.Resource(dev).Attrs(0).WorkingHours = ptrWeek(model.DefaultWorkWeek())

	task := p.AddTask(model.Task{Path: "work", SeqNo: 0})
	attrs := p.Task(task).Attrs(0)
	attrs.Effort = 4 * time.Hour
	attrs.HasForward, attrs.Forward = true, true
	attrs.Allocate.Primary = []model.ResourceID{dev}

	_, err := Schedule(context.Background(), p, 0, nil)
	require.NoError(t, err)

	got := p.Task(task).Attrs(0)
	assert.True(t, got.Start.Equal(time.Date(2025, 5, 12, 9, 0, 0, 0, time.UTC)), "start=%v", got.Start)
	assert.True(t, got.End.Equal(time.Date(2025, 5, 13, 11, 0, 0, 0, time.UTC)), "end=%v", got.End)
}

// TestSchedule_PartialSlotChain: a long chain of 73-minute tasks with
// 29-minute gaps over an odd-minute shift. Every end time must stay
// minute-precise, every gap must hold, and every task's booked seconds
// must match its effort within one second per booked slot.
func TestSchedule_PartialSlotChain(t *testing.T) {
	const chainLen = 500
	start := time.Date(2025, 1, 6, 0, 0, 0, 0, time.UTC) // Monday
	p := model.NewProject(start, start.Add(420*24*time.Hour), time.Hour, time.UTC)

	shift := model.WeekSchedule{}
	hours := []model.Interval{
		{StartMin: 8*60 + 13, EndMin: 11*60 + 59},
		{StartMin: 13*60 + 7, EndMin: 17*60 + 47},
	}
	for d := 1; d <= 5; d++ {
		shift[d] = hours
	}
	p.WorkingTimeDefault = shift

	r := p.AddResource(model.Resource{Path: "line"})
	p.Resource(r).Attrs(0).WorkingHours = ptrWeek(shift)

	ids := make([]model.TaskID, chainLen)
	for i := 0; i < chainLen; i++ {
		ids[i] = p.AddTask(model.Task{Path: "step", SeqNo: i})
		attrs := p.Task(ids[i]).Attrs(0)
		attrs.Effort = 73 * time.Minute
		attrs.HasForward, attrs.Forward = true, true
		attrs.Allocate.Primary = []model.ResourceID{r}
		if i > 0 {
			attrs.Depends = []model.Dependency{{Target: ids[i-1], GapDuration: 29 * time.Minute}}
		}
	}

	res, err := Schedule(context.Background(), p, 0, nil)
	require.NoError(t, err)
	require.Empty(t, res.Warnings)

	board := res.Boards[r]
	require.NoError(t, board.CheckInvariants())

	bookedSeconds := make(map[model.TaskID]int64)
	for i := 0; i < board.Size(); i++ {
		for id, secs := range board.PerTaskUsage(i) {
			bookedSeconds[id] += int64(secs)
		}
	}

	for i, id := range ids {
		attrs := p.Task(id).Attrs(0)
		require.True(t, attrs.Scheduled, "task %d unscheduled", i)
		assert.Zero(t, attrs.Start.Second(), "task %d start=%v", i, attrs.Start)
		assert.Zero(t, attrs.End.Second(), "task %d end=%v", i, attrs.End)
		assert.InDelta(t, 73*60, bookedSeconds[id], 3, "task %d booked", i)
		if i > 0 {
			prevEnd := p.Task(ids[i-1]).Attrs(0).End
			assert.False(t, attrs.Start.Before(prevEnd.Add(29*time.Minute)), "task %d start=%v prev end=%v", i, attrs.Start, prevEnd)
		}
	}
}

func ptrWeek(ws model.WeekSchedule) *model.WeekSchedule { return &ws }
