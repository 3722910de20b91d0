// Package fixture builds small in-memory demo projects for the CLI,
// HTTP, and gRPC collaborators (adapter/cli, adapter/httpapi,
// adapter/grpcapi). The core accepts a fully-built, validated model
// tree and never reads a declarative file, so these collaborators
// need some way to hand the driver a project without one; fixture
// plays that role for demonstration and smoke-testing.
package fixture

import (
	"fmt"
	"sort"
	"time"

	"github.com/scriptplanner/scriptplan/internal/model"
)

// Named returns the demo project registered under name, or an error
// listing the known names.
func Named(name string) (*model.Project, error) {
	build, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("fixture: unknown name %q (known: %v)", name, Names())
	}
	return build(), nil
}

// Names returns every registered fixture name, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for n := range registry {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

var registry = map[string]func() *model.Project{
	"heatup":      buildHeatup,
	"alt-routing": buildAltRouting,
}

func ptrWeek(ws model.WeekSchedule) *model.WeekSchedule { return &ws }

// buildHeatup: a one-week project, hourly slots,
// one Mon-Fri 09:00-17:00 resource, one 2h effort task.
func buildHeatup() *model.Project {
	start := time.Date(2025, 5, 10, 0, 0, 0, 0, time.UTC) // Saturday
	p := model.NewProject(start, start.Add(7*24*time.Hour), time.Hour, time.UTC)
	p.WorkingTimeDefault = model.DefaultWorkWeek()

	heater := p.AddResource(model.Resource{Path: "heater", Name: "Heater"})
	p.Resource(heater).Attrs(0).WorkingHours = ptrWeek(model.DefaultWorkWeek())
	p.Resource(heater).Attrs(0).Rate = 40

	heat := p.AddTask(model.Task{Path: "heat", Name: "Heat material"})
	attrs := p.Task(heat).Attrs(0)
	attrs.Effort = 2 * time.Hour
	attrs.HasForward, attrs.Forward = true, true
	attrs.Allocate.Primary = []model.ResourceID{heater}

	return p
}

// buildAltRouting: a primary resource
// busy for 40 slots, an alternative free immediately, and a 4h effort
// task that should route to the alternative and start at the current
// slot.
func buildAltRouting() *model.Project {
	start := time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC) // Monday
	p := model.NewProject(start, start.Add(14*24*time.Hour), time.Hour, time.UTC)
	p.WorkingTimeDefault = model.DefaultWorkWeek()

	primary := p.AddResource(model.Resource{Path: "primary", Name: "Primary"})
	p.Resource(primary).Attrs(0).WorkingHours = ptrWeek(model.DefaultWorkWeek())

	alt := p.AddResource(model.Resource{Path: "alternative", Name: "Alternative"})
	p.Resource(alt).Attrs(0).WorkingHours = ptrWeek(model.DefaultWorkWeek())

	// Busy-work task occupies the primary resource's first 40 working
	// slots so the real task below must route to the alternative.
	busy := p.AddTask(model.Task{Path: "busywork", Name: "Busywork", SeqNo: 0})
	busyAttrs := p.Task(busy).Attrs(0)
	busyAttrs.Effort = 40 * time.Hour
	busyAttrs.HasForward, busyAttrs.Forward = true, true
	busyAttrs.Allocate.Primary = []model.ResourceID{primary}
	busyAttrs.Priority = 1000 // scheduled first so it claims the primary's slots

	routed := p.AddTask(model.Task{Path: "routed", Name: "Routed work", SeqNo: 1})
	routedAttrs := p.Task(routed).Attrs(0)
	routedAttrs.Effort = 4 * time.Hour
	routedAttrs.HasForward, routedAttrs.Forward = true, true
	routedAttrs.Allocate.Primary = []model.ResourceID{primary}
	routedAttrs.Allocate.Alternatives = []model.ResourceID{alt}

	return p
}
