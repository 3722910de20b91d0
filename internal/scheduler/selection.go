package scheduler

import (
	"github.com/scriptplanner/scriptplan/internal/model"
)

// SelectionPolicy routes alternatives: for a task with a primary and an
// alternative resource set, pick whichever set finishes the task's
// remaining effort earlier, ties going to the primary.
type SelectionPolicy struct {
	pool *ResourcePool
}

// NewSelectionPolicy builds a policy bound to one scenario's resource pool.
func NewSelectionPolicy(pool *ResourcePool) *SelectionPolicy {
	return &SelectionPolicy{pool: pool}
}

// Choose simulates both sets forward from slot i0 accumulating effort
// hours until remainingHours is met, and returns the set with the
// earlier completion slot. Returns ok=false if neither set can finish
// within the resource pool's scoreboard horizon.
func (s *SelectionPolicy) Choose(i0 int, remainingHours float64, primary, alternative []model.ResourceID) (chosen []model.ResourceID, ok bool) {
	primarySlot, primaryOK := s.simulate(i0, remainingHours, primary)
	altSlot, altOK := s.simulate(i0, remainingHours, alternative)

	switch {
	case primaryOK && altOK:
		if altSlot < primarySlot {
			return alternative, true
		}
		return primary, true
	case primaryOK:
		return primary, true
	case altOK:
		return alternative, true
	default:
		return nil, false
	}
}

// simulate walks forward from i0 over the lead resource's (set[0]'s)
// available slots, accumulating effort_per_slot = (G/3600) *
// efficiency(res), until the accumulated effort meets
// or exceeds remainingHours. Returns the slot index after the last
// contributing slot.
func (s *SelectionPolicy) simulate(i0 int, remainingHours float64, set []model.ResourceID) (int, bool) {
	if len(set) == 0 {
		return 0, false
	}
	lead := set[0]
	board := s.pool.Board(lead)
	if board == nil {
		return 0, false
	}

	granularityHours := float64(board.Granularity) / 3600.0
	accumulated := 0.0

	for i := i0; i < board.Size(); i++ {
		if !s.pool.Available(i, model.NoTask, set) {
			continue
		}
		accumulated += granularityHours * board.Efficiency
		if accumulated >= remainingHours {
			return i + 1, true
		}
	}
	return 0, false
}
