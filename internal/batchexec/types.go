// Package batchexec runs several scenarios' driver loops. Two Executor
// implementations exist: an in-process goroutine pool (the default, and
// the only one that runs scenarios) and a go-plugin/gRPC one that
// launches a single worker subprocess and hands it the serialized
// project with every requested scenario index in one call.
// GRPCServer/GRPCClient satisfy the plugin interfaces, but GRPCServer
// registers no service and the client's Run always returns an error,
// so a run through the plugin executor schedules nothing.
package batchexec

import (
	"time"

	"github.com/scriptplanner/scriptplan/internal/model"
)

// ScenarioJob is one unit of work: a scenario index against an
// already-built project. The in-process executor shares proj
// read-mostly across goroutines (each scenario only ever writes its
// own PerScenario slice index); the plugin executor instead would
// serialize proj into the subprocess, giving it true isolation.
type ScenarioJob struct {
	Scenario model.ScenarioIndex
}

// ScenarioResult is one scenario's outcome, shaped for cross-process
// transport: no pointers into the arena-indexed model, just the
// summary journal/resultcache callers need.
type ScenarioResult struct {
	Scenario    model.ScenarioIndex
	Scheduled   int
	Unscheduled int
	Warnings    []string
	ErrorKind   string
	DurationMS  int64
}

// Executor runs a batch of scenarios against one project and collects
// their results, isolating however much (or little) each
// implementation promises.
type Executor interface {
	Run(proj *model.Project, scenarios []model.ScenarioIndex) ([]*ScenarioResult, error)
}

func durationMS(d time.Duration) int64 { return d.Milliseconds() }
