package resultcache

import (
	"context"
	"testing"
	"time"

	"github.com/scriptplanner/scriptplan/internal/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func buildProject(t *testing.T, effort time.Duration) *model.Project {
	t.Helper()
	start := time.Date(2025, 5, 12, 0, 0, 0, 0, time.UTC)
	p := model.NewProject(start, start.Add(7*24*time.Hour), time.Hour, time.UTC)
	p.WorkingTimeDefault = model.DefaultWorkWeek()

	r := p.AddResource(model.Resource{Path: "dev"})
	week := model.DefaultWorkWeek()
	p.Resource(r).Attrs(0).WorkingHours = &week

	task := p.AddTask(model.Task{Path: "work"})
	attrs := p.Task(task).Attrs(0)
	attrs.Effort = effort
	attrs.HasForward, attrs.Forward = true, true
	attrs.Allocate.Primary = []model.ResourceID{r}
	return p
}

func TestKey_StableAcrossIdenticalProjects(t *testing.T) {
	a := buildProject(t, 2*time.Hour)
	b := buildProject(t, 2*time.Hour)
	assert.Equal(t, Key(a, 0), Key(b, 0))
}

func TestKey_ChangesWithEffort(t *testing.T) {
	a := buildProject(t, 2*time.Hour)
	b := buildProject(t, 3*time.Hour)
	assert.NotEqual(t, Key(a, 0), Key(b, 0))
}

func TestCaptureAndApply_RoundTrip(t *testing.T) {
	p := buildProject(t, 2*time.Hour)
	taskID := model.TaskID(0)
	attrs := p.Task(taskID).Attrs(0)
	attrs.Start = time.Date(2025, 5, 12, 9, 0, 0, 0, time.UTC)
	attrs.End = time.Date(2025, 5, 12, 11, 0, 0, 0, time.UTC)
	attrs.Scheduled = true

	cr := CaptureFromProject(p, 0, []string{"warn1"}, "")
	require.Len(t, cr.Tasks, 1)
	assert.Equal(t, taskID, cr.Tasks[0].ID)
	assert.True(t, cr.Tasks[0].Scheduled)

	fresh := buildProject(t, 2*time.Hour)
	ApplyToProject(fresh, 0, cr)
	freshAttrs := fresh.Task(taskID).Attrs(0)
	assert.True(t, freshAttrs.Scheduled)
	assert.True(t, freshAttrs.Start.Equal(attrs.Start))
	assert.True(t, freshAttrs.End.Equal(attrs.End))
}

func TestMemoryCache_GetSet(t *testing.T) {
	ctx := context.Background()
	cache := NewMemoryCache()

	_, ok, err := cache.Get(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)

	cr := &CachedResult{Tasks: []TaskResult{{ID: 0, Scheduled: true}}}
	require.NoError(t, cache.Set(ctx, "k1", cr))

	got, ok, err := cache.Get(ctx, "k1")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, cr, got)
}
