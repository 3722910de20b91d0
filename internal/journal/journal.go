// Package journal implements the run journal: each `schedule run`
// invocation appends one entry recording how many leaf tasks were
// scheduled and unscheduled, the warnings, the error kind, and the
// run's wall-clock duration. `schedule all` does not write to it.
package journal

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"

	"github.com/scriptplanner/scriptplan/internal/driver"
	"github.com/scriptplanner/scriptplan/internal/model"
)

// Entry is one journal row: a single scenario's outcome from one
// driver run, identified by the RunID of the invocation that wrote it.
type Entry struct {
	ID          int64
	RunID       uuid.UUID
	Scenario    model.ScenarioIndex
	Scheduled   int
	Unscheduled int
	Warnings    []string
	ErrorKind   string
	DurationMS  int64
	CreatedAt   time.Time
}

// Repository persists journal entries. The sqlite and postgres
// backends share one implementation over the journal's Connection; an
// in-memory backend substitutes in tests.
type Repository interface {
	Append(ctx context.Context, e *Entry) error
	List(ctx context.Context, runID uuid.UUID) ([]*Entry, error)
	Recent(ctx context.Context, limit int) ([]*Entry, error)
}

// NewEntry builds a journal Entry from one scenario's driver Result
// (and its accompanying error, if the scenario failed outright).
func NewEntry(runID uuid.UUID, proj *model.Project, res *driver.Result, scenarioErr error) *Entry {
	e := &Entry{
		RunID:     runID,
		CreatedAt: time.Now().UTC(),
	}
	if res != nil {
		e.Scenario = res.Scenario
		e.DurationMS = res.Duration.Milliseconds()
		for _, w := range res.Warnings {
			e.Warnings = append(e.Warnings, w.Error())
		}
	}
	if proj != nil {
		for i := range proj.Tasks {
			t := &proj.Tasks[i]
			if !t.IsLeaf() || res == nil {
				continue
			}
			if int(res.Scenario) >= len(t.PerScenario) {
				continue
			}
			if t.PerScenario[res.Scenario].Scheduled {
				e.Scheduled++
			} else {
				e.Unscheduled++
			}
		}
	}
	if scenarioErr != nil {
		var se *driver.ScheduleError
		if ok := asScheduleError(scenarioErr, &se); ok {
			e.ErrorKind = se.Kind.String()
		} else {
			e.ErrorKind = scenarioErr.Error()
		}
	}
	return e
}

func asScheduleError(err error, target **driver.ScheduleError) bool {
	se, ok := err.(*driver.ScheduleError)
	if ok {
		*target = se
	}
	return ok
}

// marshalWarnings is a small helper the SQL-backed repositories share
// to store the []string warning list as a JSON column.
func marshalWarnings(warnings []string) (string, error) {
	if len(warnings) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(warnings)
	return string(b), err
}

func unmarshalWarnings(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	_ = json.Unmarshal([]byte(raw), &out)
	return out
}
