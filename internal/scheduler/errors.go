package scheduler

import (
	"errors"
	"fmt"

	"github.com/scriptplanner/scriptplan/internal/model"
)

// WarningKind enumerates the non-fatal error kinds.
type WarningKind int

const (
	WarnUnscheduledTask WarningKind = iota
	WarnDeadlock
	WarnLimitInfeasible
	WarnMaxGapViolation
)

func (k WarningKind) String() string {
	switch k {
	case WarnUnscheduledTask:
		return "unscheduled_task"
	case WarnDeadlock:
		return "deadlock"
	case WarnLimitInfeasible:
		return "limit_infeasible"
	case WarnMaxGapViolation:
		return "maxgap_violation"
	default:
		return "unknown"
	}
}

// Warning is a structured, severity-tagged message: every warning
// names the scenario and, when applicable, the offending task.
type Warning struct {
	Kind     WarningKind
	Scenario model.ScenarioIndex
	Task     model.TaskID
	HasTask  bool
	Message  string
}

func (w Warning) Error() string {
	if w.HasTask {
		return fmt.Sprintf("%s: scenario=%d task=%d: %s", w.Kind, w.Scenario, w.Task, w.Message)
	}
	return fmt.Sprintf("%s: scenario=%d: %s", w.Kind, w.Scenario, w.Message)
}

// ErrInternalInvariant is the fatal `internal_invariant` kind:
// negative used_seconds, double-booking, etc. It always aborts the
// scheduler rather than degrading to a warning.
var ErrInternalInvariant = errors.New("scheduler: internal invariant violated")

// Buffer collects warnings for one scenario run. The driver owns the
// buffer; the task scheduler only appends to it.
type Buffer struct {
	warnings []Warning
}

// Add appends a warning to the buffer.
func (b *Buffer) Add(w Warning) {
	b.warnings = append(b.warnings, w)
}

// All returns every warning recorded so far.
func (b *Buffer) All() []Warning {
	return b.warnings
}

// HasDeadlock reports whether a deadlock warning was recorded.
func (b *Buffer) HasDeadlock() bool {
	for _, w := range b.warnings {
		if w.Kind == WarnDeadlock {
			return true
		}
	}
	return false
}
