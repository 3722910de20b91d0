package batchexec

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/scriptplanner/scriptplan/internal/driver"
	"github.com/scriptplanner/scriptplan/internal/model"
)

// InProcessExecutor runs each scenario's driver loop in its own
// goroutine, bounded by a semaphore of size PoolSize. No third-party
// worker-pool library appears anywhere in the retrieved example pack
// for this narrow a concern, so the pool itself is a small hand-rolled
// channel semaphore over stdlib sync/context primitives — the
// surrounding config, logging and driver plumbing still follow the
// rest of the codebase.
type InProcessExecutor struct {
	PoolSize int
	Log      *slog.Logger
}

// NewInProcessExecutor builds an executor with at least one worker.
func NewInProcessExecutor(poolSize int, log *slog.Logger) *InProcessExecutor {
	if poolSize <= 0 {
		poolSize = 1
	}
	if log == nil {
		log = slog.Default()
	}
	return &InProcessExecutor{PoolSize: poolSize, Log: log}
}

// Run schedules every requested scenario concurrently up to PoolSize
// at a time, returning one ScenarioResult per scenario in input order.
// A scenario's own error never aborts its siblings.
func (e *InProcessExecutor) Run(proj *model.Project, scenarios []model.ScenarioIndex) ([]*ScenarioResult, error) {
	// Pre-grow every task/resource's PerScenario overlay up front,
	// single-threaded: Attrs(s) lazily appends to a shared slice, and
	// letting that append race across goroutines below would corrupt
	// the arena. Concurrent goroutines then only ever touch their own
	// scenario's already-allocated slice element.
	presizeScenarios(proj, scenarios)

	results := make([]*ScenarioResult, len(scenarios))
	sem := make(chan struct{}, e.PoolSize)
	var wg sync.WaitGroup

	for i, s := range scenarios {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, s model.ScenarioIndex) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = e.runOne(proj, s)
		}(i, s)
	}
	wg.Wait()
	return results, nil
}

func (e *InProcessExecutor) runOne(proj *model.Project, s model.ScenarioIndex) *ScenarioResult {
	start := time.Now()
	res, err := driver.Schedule(context.Background(), proj, s, e.Log)

	out := &ScenarioResult{Scenario: s}
	if err != nil {
		var se *driver.ScheduleError
		if ok := asScheduleError(err, &se); ok {
			out.ErrorKind = se.Kind.String()
		} else {
			out.ErrorKind = err.Error()
		}
		out.DurationMS = durationMS(time.Since(start))
		return out
	}

	out.DurationMS = durationMS(res.Duration)
	for _, w := range res.Warnings {
		out.Warnings = append(out.Warnings, w.Error())
	}
	for i := range proj.Tasks {
		t := &proj.Tasks[i]
		if !t.IsLeaf() || int(s) >= len(t.PerScenario) {
			continue
		}
		if t.PerScenario[s].Scheduled {
			out.Scheduled++
		} else {
			out.Unscheduled++
		}
	}
	return out
}

func asScheduleError(err error, target **driver.ScheduleError) bool {
	se, ok := err.(*driver.ScheduleError)
	if ok {
		*target = se
	}
	return ok
}

func presizeScenarios(proj *model.Project, scenarios []model.ScenarioIndex) {
	var max model.ScenarioIndex
	for _, s := range scenarios {
		if s > max {
			max = s
		}
	}
	for i := range proj.Tasks {
		proj.Tasks[i].Attrs(max)
	}
	for i := range proj.Resources {
		proj.Resources[i].Attrs(max)
	}
}
