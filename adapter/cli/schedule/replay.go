package schedule

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scriptplanner/scriptplan/adapter/cli"
	"github.com/scriptplanner/scriptplan/internal/fixture"
	"github.com/scriptplanner/scriptplan/internal/model"
	"github.com/scriptplanner/scriptplan/internal/resultcache"
)

var (
	replayFixtureName   string
	replayScenarioIndex int
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Print a previously computed schedule from the result cache without recomputing",
	RunE:  runReplay,
}

func init() {
	replayCmd.Flags().StringVarP(&replayFixtureName, "fixture", "f", "heatup", "demo fixture name (see schedule list)")
	replayCmd.Flags().IntVarP(&replayScenarioIndex, "scenario", "s", 0, "scenario index to replay")
}

func runReplay(cmd *cobra.Command, args []string) error {
	proj, err := fixture.Named(replayFixtureName)
	if err != nil {
		return err
	}

	app := cli.GetApp()
	if app == nil || app.Cache == nil {
		return fmt.Errorf("replay: no result cache configured")
	}

	scenario := model.ScenarioIndex(replayScenarioIndex)
	key := resultcache.Key(proj, scenario)
	cached, ok, err := app.Cache.Get(cmd.Context(), key)
	if err != nil {
		return fmt.Errorf("replay: %w", err)
	}
	if !ok {
		return fmt.Errorf("replay: no cached result for %s scenario %d — run \"schedule run\" first", replayFixtureName, replayScenarioIndex)
	}

	resultcache.ApplyToProject(proj, scenario, cached)
	printCached(proj, scenario, cached)
	return nil
}
