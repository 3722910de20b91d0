package calendar

import (
	"testing"
	"time"

	"github.com/scriptplanner/scriptplan/internal/model"
	"github.com/stretchr/testify/assert"
)

func newTestIndex() *Index {
	start := time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC) // Saturday
	end := start.Add(7 * 24 * time.Hour)
	return &Index{
		Start:       start,
		End:         end,
		Granularity: time.Hour,
		Default:     model.DefaultWorkWeek(),
		DefaultTZ:   time.UTC,
	}
}

func TestIndex_DateToIdx_RoundTrip(t *testing.T) {
	idx := newTestIndex()
	ts := idx.Start.Add(25 * time.Hour)

	i, ok := idx.DateToIdx(ts, ErrorOnOutOfRange)
	assert.True(t, ok)
	assert.Equal(t, 25, i)
	assert.True(t, idx.IdxToDate(i).Equal(ts))
}

func TestIndex_DateToIdx_Clamping(t *testing.T) {
	idx := newTestIndex()

	before := idx.Start.Add(-time.Hour)
	i, ok := idx.DateToIdx(before, ClampToBounds)
	assert.True(t, ok)
	assert.Equal(t, 0, i)

	_, ok = idx.DateToIdx(before, ErrorOnOutOfRange)
	assert.False(t, ok)

	after := idx.End.Add(time.Hour)
	i, ok = idx.DateToIdx(after, ClampToBounds)
	assert.True(t, ok)
	assert.Equal(t, idx.ScoreboardSize()-1, i)
}

func TestIndex_ScoreboardSize(t *testing.T) {
	idx := newTestIndex()
	assert.Equal(t, 169, idx.ScoreboardSize())
}

func TestIndex_IsGlobalWorking(t *testing.T) {
	idx := newTestIndex()

	// Start is Saturday 2025-05-10 00:00 UTC -- not working.
	assert.False(t, idx.IsGlobalWorking(0))

	// Monday 2025-05-12 09:00 UTC is slot index 2*24+9 = 57.
	mondayNine, _ := idx.DateToIdx(time.Date(2025, 5, 12, 9, 0, 0, 0, time.UTC), ErrorOnOutOfRange)
	assert.True(t, idx.IsGlobalWorking(mondayNine))

	// Monday 2025-05-12 17:00 UTC is the half-open boundary: not working.
	mondaySeventeen, _ := idx.DateToIdx(time.Date(2025, 5, 12, 17, 0, 0, 0, time.UTC), ErrorOnOutOfRange)
	assert.False(t, idx.IsGlobalWorking(mondaySeventeen))
}

func TestIndex_IsGlobalWorking_GlobalLeave(t *testing.T) {
	idx := newTestIndex()
	monday9 := time.Date(2025, 5, 12, 9, 0, 0, 0, time.UTC)
	idx.Leaves = []model.Leave{{Kind: "holiday", Start: monday9, End: monday9.Add(8 * time.Hour)}}

	i, _ := idx.DateToIdx(monday9, ErrorOnOutOfRange)
	assert.False(t, idx.IsGlobalWorking(i))
}

func TestExtendHeuristic(t *testing.T) {
	// 60 effort hours, 2 gap days: (60/6 + 2) * 1.5 + 7 = 25 days.
	d := ExtendHeuristic(60, 2)
	assert.Equal(t, 25*24*time.Hour, d)
}

func TestWorkingHours_CrossMidnight(t *testing.T) {
	var ws model.WeekSchedule
	// Night shift: 22:00 - 06:00, every day.
	for d := range ws {
		ws[d] = []model.Interval{{StartMin: 22 * 60, EndMin: 6 * 60}}
	}
	wh := &WorkingHours{Schedule: ws, TZ: time.UTC}
	idx := newTestIndex()

	late, _ := idx.DateToIdx(time.Date(2025, 5, 12, 23, 0, 0, 0, time.UTC), ErrorOnOutOfRange)
	assert.True(t, wh.Evaluate(idx, late))

	earlyTail, _ := idx.DateToIdx(time.Date(2025, 5, 13, 3, 0, 0, 0, time.UTC), ErrorOnOutOfRange)
	assert.True(t, wh.Evaluate(idx, earlyTail))

	midday, _ := idx.DateToIdx(time.Date(2025, 5, 13, 12, 0, 0, 0, time.UTC), ErrorOnOutOfRange)
	assert.False(t, wh.Evaluate(idx, midday))
}

func TestWorkingHours_Timezone(t *testing.T) {
	tokyo, err := time.LoadLocation("Asia/Tokyo")
	if err != nil {
		t.Skipf("tzdata unavailable: %v", err)
	}

	var ws model.WeekSchedule
	for d := 1; d <= 5; d++ {
		ws[d] = []model.Interval{{StartMin: 9 * 60, EndMin: 18 * 60}}
	}
	wh := &WorkingHours{Schedule: ws, TZ: tokyo}
	idx := newTestIndex()

	// 2025-05-12 00:30 UTC is 2025-05-12 09:30 JST (Monday) -- working.
	i, _ := idx.DateToIdx(time.Date(2025, 5, 12, 0, 30, 0, 0, time.UTC), ErrorOnOutOfRange)
	assert.True(t, wh.Evaluate(idx, i))
}

func TestWorkingHours_LeaveShortCircuits(t *testing.T) {
	idx := newTestIndex()
	monday9 := time.Date(2025, 5, 12, 9, 0, 0, 0, time.UTC)
	wh := &WorkingHours{
		Schedule: model.DefaultWorkWeek(),
		TZ:       time.UTC,
		Leaves:   []model.Leave{{Kind: "pto", Start: monday9, End: monday9.Add(time.Hour)}},
	}

	i, _ := idx.DateToIdx(monday9, ErrorOnOutOfRange)
	assert.False(t, wh.Evaluate(idx, i))
}

func TestWorkingHours_FallbackToProjectDefault(t *testing.T) {
	idx := newTestIndex()
	wh := &WorkingHours{Fallback: idx}

	mondayNine, _ := idx.DateToIdx(time.Date(2025, 5, 12, 9, 0, 0, 0, time.UTC), ErrorOnOutOfRange)
	assert.True(t, wh.Evaluate(idx, mondayNine))
}
