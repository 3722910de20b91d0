// Package resultcache memoizes a scenario's computed schedule keyed by
// a content hash of the prepared model. Scheduling is deterministic —
// re-running an unchanged scenario reproduces the same schedule — so
// a memoized result is always valid. A cache hit lets a
// caller skip the driver loop entirely; a miss, or any cache failure,
// always falls through to a real run.
package resultcache

import (
	"context"
	"time"

	"github.com/scriptplanner/scriptplan/internal/model"
)

// TaskResult is one leaf task's computed placement, the unit the cache
// stores and restores.
type TaskResult struct {
	ID        model.TaskID
	Start     time.Time
	End       time.Time
	Scheduled bool
}

// CachedResult is the cached shape of one scenario's outcome: per-task
// placements, a per-resource map of booked seconds, and the warning
// strings the original run produced. CaptureFromProject does not fill
// ResourceUsage, and nothing in this package reads it.
type CachedResult struct {
	Tasks         []TaskResult
	ResourceUsage map[model.ResourceID]int64
	Warnings      []string
	ErrorKind     string
	ComputedAt    time.Time
}

// Cache is the contract internal/driver callers use to memoize a
// scenario's result. Get returns (nil, false, nil) on a clean miss;
// implementations must never return an error solely because the key
// is absent.
type Cache interface {
	Get(ctx context.Context, key string) (*CachedResult, bool, error)
	Set(ctx context.Context, key string, result *CachedResult) error
}

// CaptureFromProject builds a CachedResult from a project's leaf tasks
// after a real driver run for the given scenario.
func CaptureFromProject(proj *model.Project, s model.ScenarioIndex, warnings []string, errorKind string) *CachedResult {
	cr := &CachedResult{
		Warnings:   warnings,
		ErrorKind:  errorKind,
		ComputedAt: time.Now().UTC(),
	}
	for i := range proj.Tasks {
		t := &proj.Tasks[i]
		if !t.IsLeaf() {
			continue
		}
		if int(s) >= len(t.PerScenario) {
			continue
		}
		attrs := &t.PerScenario[s]
		cr.Tasks = append(cr.Tasks, TaskResult{
			ID:        model.TaskID(i),
			Start:     attrs.Start,
			End:       attrs.End,
			Scheduled: attrs.Scheduled,
		})
	}
	return cr
}

// ApplyToProject restores a cached result onto a project's leaf tasks,
// letting a caller skip the driver loop for an unchanged scenario.
func ApplyToProject(proj *model.Project, s model.ScenarioIndex, cr *CachedResult) {
	for _, tr := range cr.Tasks {
		if int(tr.ID) >= len(proj.Tasks) {
			continue
		}
		t := &proj.Tasks[tr.ID]
		if int(s) >= len(t.PerScenario) {
			continue
		}
		attrs := &t.PerScenario[s]
		attrs.Start, attrs.End, attrs.Scheduled = tr.Start, tr.End, tr.Scheduled
	}
}
