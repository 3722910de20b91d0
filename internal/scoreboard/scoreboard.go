// Package scoreboard implements the dense per-resource slot array
// that records booking state and supports partial-slot accounting.
package scoreboard

import (
	"errors"

	"github.com/scriptplanner/scriptplan/internal/model"
)

// CellState tags a scoreboard cell's booking state.
type CellState uint8

const (
	Free CellState = iota
	OffShift
	OnLeave
	BookedBy
)

// Cell is one slot's tagged state for a leaf resource.
type Cell struct {
	State     CellState
	Task      model.TaskID // valid when State == BookedBy
	LeaveKind string       // valid when State == OnLeave
}

// LimitGate is the boundary the scoreboard uses to consult the limits
// engine without importing it directly, keeping the dependency
// direction scoreboard -> limits one-way through an interface owned
// here. internal/limits.Tracker satisfies this structurally.
type LimitGate interface {
	// Ok reports whether booking slot i for (resource, task) would stay
	// within every applicable limit at resource, its ancestors, and the
	// task's own limit chain.
	Ok(i int, resource model.ResourceID, task model.TaskID) bool
	// Commit increments every applicable limit counter for the booking.
	Commit(i int, resource model.ResourceID, task model.TaskID)
}

// ErrNegativeUsage signals a fatal internal invariant violation:
// used_seconds must never go negative.
var ErrNegativeUsage = errors.New("scoreboard: used_seconds would go negative")

// ErrDoubleBook signals an attempt to fully book an already-occupied
// slot with a different task, also a fatal internal invariant.
var ErrDoubleBook = errors.New("scoreboard: slot already booked by another task")

// Scoreboard is one leaf resource's per-scenario booking record.
type Scoreboard struct {
	Resource    model.ResourceID
	Granularity int32 // G in seconds
	Efficiency  float64

	cells         []Cell
	usedSeconds   []int32
	perTaskUsage  []map[model.TaskID]int32
	working       []bool // precomputed per-slot working-time bit
	firstBooked   int
	lastBooked    int
}

// New builds an empty scoreboard sized for the project's scoreboard
// size, with the resource's per-slot working-time bitset precomputed
// once so the weekly pattern is never re-evaluated on the hot path.
func New(resource model.ResourceID, size int, granularitySeconds int32, efficiency float64, working []bool) *Scoreboard {
	sb := &Scoreboard{
		Resource:     resource,
		Granularity:  granularitySeconds,
		Efficiency:   efficiency,
		cells:        make([]Cell, size),
		usedSeconds:  make([]int32, size),
		perTaskUsage: make([]map[model.TaskID]int32, size),
		working:      working,
		firstBooked:  -1,
		lastBooked:   -1,
	}
	for i := range sb.cells {
		if i >= len(working) || !working[i] {
			sb.cells[i].State = OffShift
		}
	}
	return sb
}

// MarkLeave tags a slot as on-leave, short-circuiting availability.
func (sb *Scoreboard) MarkLeave(i int, kind string) {
	sb.cells[i] = Cell{State: OnLeave, LeaveKind: kind}
}

// Available reports whether slot i can accept (more) booking: on-shift
// AND (cell is Free OR used_seconds[i] < G) AND all applicable limits
// allow it.
func (sb *Scoreboard) Available(i int, task model.TaskID, gate LimitGate) bool {
	if i < 0 || i >= len(sb.cells) {
		return false
	}
	cell := sb.cells[i]
	if cell.State == OffShift || cell.State == OnLeave {
		return false
	}
	if cell.State == BookedBy && sb.usedSeconds[i] >= sb.Granularity {
		return false
	}
	if gate != nil && !gate.Ok(i, sb.Resource, task) {
		return false
	}
	return true
}

// Book commits slot i to task, returning the effort-hours gained:
// ((G - used_seconds[i])/3600) * efficiency. The cell becomes BookedBy
// unless it was already partially used, in which case it stays and the
// usage simply accumulates.
func (sb *Scoreboard) Book(i int, task model.TaskID, gate LimitGate) (float64, error) {
	if i < 0 || i >= len(sb.cells) {
		return 0, ErrDoubleBook
	}
	cell := &sb.cells[i]
	if cell.State == BookedBy && cell.Task != task && sb.usedSeconds[i] >= sb.Granularity {
		return 0, ErrDoubleBook
	}
	if cell.State == OffShift || cell.State == OnLeave {
		return 0, ErrDoubleBook
	}

	remaining := sb.Granularity - sb.usedSeconds[i]
	if remaining < 0 {
		return 0, ErrNegativeUsage
	}

	cell.State = BookedBy
	cell.Task = task

	sb.usedSeconds[i] += remaining
	if sb.perTaskUsage[i] == nil {
		sb.perTaskUsage[i] = make(map[model.TaskID]int32, 1)
	}
	sb.perTaskUsage[i][task] += remaining

	if sb.firstBooked == -1 || i < sb.firstBooked {
		sb.firstBooked = i
	}
	if i > sb.lastBooked {
		sb.lastBooked = i
	}

	if gate != nil {
		gate.Commit(i, sb.Resource, task)
	}

	effortHours := (float64(remaining) / 3600.0) * sb.Efficiency
	return effortHours, nil
}

// ReleasePartial restores fractional capacity when a task ends
// mid-slot: the driver calls this after computing the precise end time.
// Limit counters are slot-denominated and the slot is still touched by
// the task, so they are not decremented here.
func (sb *Scoreboard) ReleasePartial(i int, task model.TaskID, seconds int32) error {
	if i < 0 || i >= len(sb.cells) {
		return ErrNegativeUsage
	}
	if seconds <= 0 {
		return nil
	}
	if sb.usedSeconds[i]-seconds < 0 {
		return ErrNegativeUsage
	}
	sb.usedSeconds[i] -= seconds
	if m := sb.perTaskUsage[i]; m != nil {
		if m[task] < seconds {
			return ErrNegativeUsage
		}
		m[task] -= seconds
		if m[task] == 0 {
			delete(m, task)
		}
	}
	if sb.usedSeconds[i] == 0 {
		sb.cells[i] = Cell{State: Free}
	}
	return nil
}

// UsedSeconds returns the used_seconds value for slot i.
func (sb *Scoreboard) UsedSeconds(i int) int32 {
	if i < 0 || i >= len(sb.usedSeconds) {
		return 0
	}
	return sb.usedSeconds[i]
}

// PerTaskUsage returns a copy of the per-task usage map for slot i.
func (sb *Scoreboard) PerTaskUsage(i int) map[model.TaskID]int32 {
	if i < 0 || i >= len(sb.perTaskUsage) || sb.perTaskUsage[i] == nil {
		return nil
	}
	out := make(map[model.TaskID]int32, len(sb.perTaskUsage[i]))
	for k, v := range sb.perTaskUsage[i] {
		out[k] = v
	}
	return out
}

// Cell returns the cell state at slot i.
func (sb *Scoreboard) Cell(i int) Cell {
	if i < 0 || i >= len(sb.cells) {
		return Cell{State: OffShift}
	}
	return sb.cells[i]
}

// Size returns the number of slots.
func (sb *Scoreboard) Size() int {
	return len(sb.cells)
}

// FirstBooked and LastBooked return the earliest/latest booked slot
// index, or -1 if nothing has been booked yet — used for resource duty
// list finalization.
func (sb *Scoreboard) FirstBooked() int { return sb.firstBooked }
func (sb *Scoreboard) LastBooked() int  { return sb.lastBooked }

// CheckInvariants validates, for every slot: 0 <=
// used_seconds[i] <= G and the sum of per-task seconds equals
// used_seconds[i]. Intended for tests and defensive diagnostics, not
// the hot booking path.
func (sb *Scoreboard) CheckInvariants() error {
	for i, used := range sb.usedSeconds {
		if used < 0 || used > sb.Granularity {
			return ErrNegativeUsage
		}
		var sum int32
		for _, v := range sb.perTaskUsage[i] {
			sum += v
		}
		if sum != used {
			return ErrNegativeUsage
		}
	}
	return nil
}
