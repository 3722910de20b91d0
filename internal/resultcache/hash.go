package resultcache

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"

	"github.com/scriptplanner/scriptplan/internal/model"
)

// Key computes a content hash of the fields that determine a
// scenario's schedule: task effort/duration/length, dependency edges,
// allocation sets, resource working hours and leaves. Any change to
// one of those changes the key, so a stale cache entry is never served
// for a model that actually changed.
func Key(proj *model.Project, s model.ScenarioIndex) string {
	h := sha256.New()
	fmt.Fprintf(h, "scenario=%d|start=%s|end=%s|gran=%s\n", s, proj.Start, proj.End, proj.Granularity)

	for i := range proj.Tasks {
		t := &proj.Tasks[i]
		if !t.IsLeaf() || int(s) >= len(t.PerScenario) {
			continue
		}
		a := &t.PerScenario[s]
		fmt.Fprintf(h, "task[%d] path=%s effort=%s duration=%s length=%s forward=%v/%v milestone=%v priority=%d\n",
			i, t.Path, a.Effort, a.Duration, a.Length, a.HasForward, a.Forward, a.Milestone, a.Priority)
		if a.ExplicitStart != nil {
			fmt.Fprintf(h, "  explicit_start=%s\n", a.ExplicitStart)
		}
		if a.ExplicitEnd != nil {
			fmt.Fprintf(h, "  explicit_end=%s\n", a.ExplicitEnd)
		}
		for _, d := range sortedDeps(a.Depends) {
			fmt.Fprintf(h, "  depends target=%d gapdur=%s gaplen=%s onstart=%v onend=%v maxgap=%s\n",
				d.Target, d.GapDuration, d.GapLength, d.OnStart, d.OnEnd, d.MaxGapDuration)
		}
		for _, d := range sortedDeps(a.Precedes) {
			fmt.Fprintf(h, "  precedes target=%d\n", d.Target)
		}
		fmt.Fprintf(h, "  allocate primary=%v alternatives=%v\n", a.Allocate.Primary, a.Allocate.Alternatives)
	}

	for i := range proj.Resources {
		r := &proj.Resources[i]
		if !r.IsLeaf() || int(s) >= len(r.PerScenario) {
			continue
		}
		a := &r.PerScenario[s]
		fmt.Fprintf(h, "resource[%d] path=%s efficiency=%f rate=%f shift=%d\n", i, r.Path, a.Efficiency, a.Rate, a.Shift)
		fmt.Fprintf(h, "  working_hours=%v\n", a.WorkingHours)
		for _, l := range a.Leaves {
			fmt.Fprintf(h, "  leave kind=%s start=%s end=%s\n", l.Kind, l.Start, l.End)
		}
	}

	return hex.EncodeToString(h.Sum(nil))
}

func sortedDeps(deps []model.Dependency) []model.Dependency {
	out := append([]model.Dependency(nil), deps...)
	sort.Slice(out, func(i, j int) bool { return out[i].Target < out[j].Target })
	return out
}
