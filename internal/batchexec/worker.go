package batchexec

import (
	"log/slog"

	"github.com/scriptplanner/scriptplan/internal/model"
)

// LocalScenarioExecutor is the plugin-subprocess-side ScenarioExecutorPlugin
// implementation: it unmarshals the project payload and runs the requested
// scenarios through an in-process pool, same as the host would do without
// process isolation. A worker binary calls batchexec.Serve with an instance
// of this to become a batchexec plugin subprocess.
type LocalScenarioExecutor struct {
	Inner *InProcessExecutor
}

// NewLocalScenarioExecutor builds a worker-side executor with its own
// goroutine pool, sized independently from the host's.
func NewLocalScenarioExecutor(poolSize int, log *slog.Logger) *LocalScenarioExecutor {
	return &LocalScenarioExecutor{Inner: NewInProcessExecutor(poolSize, log)}
}

// Run implements ScenarioExecutorPlugin: deserialize, schedule, return.
func (w *LocalScenarioExecutor) Run(projPayload []byte, scenarioIDs []int32) ([]*ScenarioResult, error) {
	proj, err := unmarshalProject(projPayload)
	if err != nil {
		return nil, err
	}
	scenarios := make([]model.ScenarioIndex, len(scenarioIDs))
	for i, id := range scenarioIDs {
		scenarios[i] = model.ScenarioIndex(id)
	}
	return w.Inner.Run(proj, scenarios)
}

var _ ScenarioExecutorPlugin = (*LocalScenarioExecutor)(nil)
