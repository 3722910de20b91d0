package schedule

import (
	"fmt"

	"github.com/hashicorp/go-hclog"
	"github.com/spf13/cobra"

	"github.com/scriptplanner/scriptplan/adapter/cli"
	"github.com/scriptplanner/scriptplan/internal/batchexec"
	"github.com/scriptplanner/scriptplan/internal/fixture"
	"github.com/scriptplanner/scriptplan/internal/model"
)

var allFixtureName string

var allCmd = &cobra.Command{
	Use:   "all",
	Short: "Schedule every scenario of a demo project through the batch executor",
	RunE:  runScheduleAll,
}

func init() {
	allCmd.Flags().StringVarP(&allFixtureName, "fixture", "f", "heatup", "demo fixture name (see schedule list)")
}

func runScheduleAll(cmd *cobra.Command, args []string) error {
	proj, err := fixture.Named(allFixtureName)
	if err != nil {
		return err
	}

	app := cli.GetApp()

	scenarios := make([]model.ScenarioIndex, 0, len(proj.Scenarios))
	for i := range proj.Scenarios {
		scenarios = append(scenarios, model.ScenarioIndex(i))
	}

	exec, cleanup, err := buildExecutor(app)
	if err != nil {
		return err
	}
	defer cleanup()

	results, err := exec.Run(proj, scenarios)
	if err != nil {
		return fmt.Errorf("schedule all: %w", err)
	}

	for _, r := range results {
		if r == nil {
			continue
		}
		line := fmt.Sprintf("scenario %d: scheduled=%d unscheduled=%d warnings=%d %dms",
			r.Scenario, r.Scheduled, r.Unscheduled, len(r.Warnings), r.DurationMS)
		if r.ErrorKind != "" {
			line += " error=" + r.ErrorKind
		}
		fmt.Println(line)
		for _, w := range r.Warnings {
			fmt.Printf("  warning: %s\n", w)
		}
	}
	return nil
}

// buildExecutor picks the batch executor the config asks for: the
// process-isolated go-plugin executor when a plugin path is configured,
// the in-process goroutine pool otherwise.
func buildExecutor(app *cli.App) (batchexec.Executor, func(), error) {
	poolSize := 4
	if app != nil && app.Config != nil && app.Config.BatchExecutorPoolSize > 0 {
		poolSize = app.Config.BatchExecutorPoolSize
	}

	if app != nil && app.Config != nil && app.Config.UsesPluginExecutor() {
		pluginLog := hclog.New(&hclog.LoggerOptions{Name: "batchexec", Level: hclog.Warn})
		pe, err := batchexec.NewPluginExecutor(app.Config.BatchExecutorPluginPath, pluginLog)
		if err != nil {
			return nil, nil, fmt.Errorf("schedule all: start plugin executor: %w", err)
		}
		return pe, pe.Close, nil
	}

	return batchexec.NewInProcessExecutor(poolSize, cli.Logger()), func() {}, nil
}
