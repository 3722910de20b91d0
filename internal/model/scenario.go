package model

// Scenario is one named variant of the schedule (at least "plan" always
// exists). Task and resource attributes are scenario-indexed
// overlays: a value set at scenario s overrides inheritance for s.
type Scenario struct {
	Name    string
	Enabled bool
}
