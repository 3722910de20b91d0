// Package account computes cost rollups: each leaf resource's
// finished bookings roll up into a cost figure, and every leaf's cost
// rolls up into a project total: cost = sum(seconds_used/3600) * rate.
package account

import (
	"sort"

	"github.com/scriptplanner/scriptplan/internal/model"
	"github.com/scriptplanner/scriptplan/internal/scoreboard"
)

// Entry is one leaf resource's cost rollup for a scenario.
type Entry struct {
	Resource     model.ResourceID
	BookedHours  float64
	Rate         float64
	Cost         float64
}

// Report is the project-wide account rollup for one scenario: one
// Entry per leaf resource that booked any time, plus the sum across
// all of them.
type Report struct {
	Entries   []Entry
	TotalCost float64
}

// Rollup walks every leaf resource's finished scoreboard and computes
// its booked hours and cost at its scenario-specific hourly rate.
// Resources aggregate bookings structurally — there is no separate
// account tree — so the report sums leaf entries directly.
func Rollup(proj *model.Project, s model.ScenarioIndex, boards map[model.ResourceID]*scoreboard.Scoreboard) Report {
	var rep Report
	for id, sb := range boards {
		var seconds int64
		for i := 0; i < sb.Size(); i++ {
			seconds += int64(sb.UsedSeconds(i))
		}
		if seconds == 0 {
			continue
		}
		rate := proj.Resource(id).Attrs(s).Rate
		hours := float64(seconds) / 3600.0
		cost := hours * rate
		rep.Entries = append(rep.Entries, Entry{
			Resource:    id,
			BookedHours: hours,
			Rate:        rate,
			Cost:        cost,
		})
		rep.TotalCost += cost
	}
	sort.Slice(rep.Entries, func(i, j int) bool { return rep.Entries[i].Resource < rep.Entries[j].Resource })
	return rep
}
