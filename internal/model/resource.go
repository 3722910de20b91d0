package model

// ResourceScenarioAttrs is the scenario-specific overlay of a resource's
// attributes.
type ResourceScenarioAttrs struct {
	Efficiency float64 // default 1.0
	Rate       float64 // hourly rate, for cost rollup

	Timezone     *ShiftTimezone
	WorkingHours *WeekSchedule // direct working hours, nil if using Shift
	Shift        ShiftID       // referenced shift, NoShift if using WorkingHours directly

	Leaves []Leave
	Limits []*Limit

	ManagerID ResourceID // parent in the managerial tree, NoResource at root
}

// ShiftTimezone wraps a named IANA timezone so resources and shifts share
// the same representation without importing time.Location at every call
// site (kept small and comparable).
type ShiftTimezone struct {
	Name string
}

// Resource is a node in the resource tree. Leaf resources hold
// scoreboards and bookings; parents aggregate their children's bookings
// for reporting but never hold a scoreboard themselves.
type Resource struct {
	ID       ResourceID
	Path     string
	Name     string
	Parent   ResourceID
	Children []ResourceID

	PerScenario []ResourceScenarioAttrs
}

// IsLeaf reports whether the resource has no children — only leaf
// resources hold bookings.
func (r *Resource) IsLeaf() bool {
	return len(r.Children) == 0
}

// Attrs returns the scenario overlay, growing the slice with sensible
// defaults (efficiency 1.0, no manager) if needed.
func (r *Resource) Attrs(s ScenarioIndex) *ResourceScenarioAttrs {
	for len(r.PerScenario) <= int(s) {
		r.PerScenario = append(r.PerScenario, ResourceScenarioAttrs{
			Efficiency: 1.0,
			ManagerID:  NoResource,
			Shift:      NoShift,
		})
	}
	return &r.PerScenario[s]
}

// Shift is a named bundle of working hours and leaves that resources may
// reference instead of declaring their own.
type Shift struct {
	ID           ShiftID
	Name         string
	WorkingHours WeekSchedule
	Leaves       []Leave
}
