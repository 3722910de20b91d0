package schedule

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/scriptplanner/scriptplan/adapter/cli"
	"github.com/scriptplanner/scriptplan/internal/account"
	"github.com/scriptplanner/scriptplan/internal/driver"
	"github.com/scriptplanner/scriptplan/internal/events"
	"github.com/scriptplanner/scriptplan/internal/fixture"
	"github.com/scriptplanner/scriptplan/internal/journal"
	"github.com/scriptplanner/scriptplan/internal/model"
	"github.com/scriptplanner/scriptplan/internal/resultcache"
	"github.com/scriptplanner/scriptplan/internal/timesheet"
)

var (
	fixtureName   string
	scenarioIndex int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Schedule a demo project and print the computed bookings",
	RunE:  runSchedule,
}

func init() {
	runCmd.Flags().StringVarP(&fixtureName, "fixture", "f", "heatup", "demo fixture name (see schedule list)")
	runCmd.Flags().IntVarP(&scenarioIndex, "scenario", "s", 0, "scenario index to schedule")
}

func fixtureNames() []string { return fixture.Names() }

func runSchedule(cmd *cobra.Command, args []string) error {
	proj, err := fixture.Named(fixtureName)
	if err != nil {
		return err
	}

	app := cli.GetApp()
	log := cli.Logger()
	ctx := cmd.Context()
	scenario := model.ScenarioIndex(scenarioIndex)

	// Scheduling is deterministic, so an unchanged model's result can be
	// served straight from the cache.
	cacheKey := resultcache.Key(proj, scenario)
	if app != nil && app.Cache != nil {
		if cached, ok, err := app.Cache.Get(ctx, cacheKey); err == nil && ok {
			resultcache.ApplyToProject(proj, scenario, cached)
			log.Info("schedule served from result cache")
			printCached(proj, scenario, cached)
			return nil
		}
	}

	res, runErr := driver.Schedule(ctx, proj, scenario, log)
	if runErr != nil && res == nil {
		return fmt.Errorf("schedule: %w", runErr)
	}

	printResult(proj, res)

	if app != nil {
		runID := uuid.New()
		entry := journal.NewEntry(runID, proj, res, runErr)
		if app.Journal != nil {
			if err := app.Journal.Append(ctx, entry); err != nil {
				log.Warn("failed to append journal entry", "error", err)
			}
		}
		if err := events.PublishResult(ctx, app.Events, runID, proj, res, runErr); err != nil {
			log.Warn("failed to publish schedule events", "error", err)
		}
		if app.Cache != nil && runErr == nil {
			if err := app.Cache.Set(ctx, cacheKey, captureResult(proj, res)); err != nil {
				log.Warn("failed to cache schedule result", "error", err)
			}
		}
	}

	return runErr
}

// captureResult converts a finished driver run into the cacheable shape.
func captureResult(proj *model.Project, res *driver.Result) *resultcache.CachedResult {
	var warnings []string
	for _, w := range res.Warnings {
		warnings = append(warnings, w.Error())
	}
	return resultcache.CaptureFromProject(proj, res.Scenario, warnings, "")
}

// printCached mirrors printResult for a cache-served schedule, where no
// scoreboards exist to derive costs or timesheets from.
func printCached(proj *model.Project, s model.ScenarioIndex, cached *resultcache.CachedResult) {
	fmt.Printf("scenario %d (cached %s): %d warnings\n", s, cached.ComputedAt.Format("2006-01-02 15:04"), len(cached.Warnings))
	for _, tr := range cached.Tasks {
		t := proj.Task(tr.ID)
		if t == nil {
			continue
		}
		if !tr.Scheduled {
			fmt.Printf("  %-20s unscheduled\n", t.Path)
			continue
		}
		fmt.Printf("  %-20s %s -> %s\n", t.Path, tr.Start.Format("2006-01-02 15:04"), tr.End.Format("2006-01-02 15:04"))
	}
	for _, w := range cached.Warnings {
		fmt.Printf("  warning: %s\n", w)
	}
}

func printResult(proj *model.Project, res *driver.Result) {
	if res == nil {
		return
	}
	fmt.Printf("scenario %d: %d warnings, %s\n", res.Scenario, len(res.Warnings), res.Duration)
	for i := range proj.Tasks {
		t := &proj.Tasks[i]
		if !t.IsLeaf() || int(res.Scenario) >= len(t.PerScenario) {
			continue
		}
		a := &t.PerScenario[res.Scenario]
		if !a.Scheduled {
			fmt.Printf("  %-20s unscheduled\n", t.Path)
			continue
		}
		fmt.Printf("  %-20s %s -> %s\n", t.Path, a.Start.Format("2006-01-02 15:04"), a.End.Format("2006-01-02 15:04"))
	}
	for _, w := range res.Warnings {
		fmt.Printf("  warning: %s\n", w.Message)
	}

	if res.Boards != nil {
		rep := account.Rollup(proj, res.Scenario, res.Boards)
		for _, e := range rep.Entries {
			r := proj.Resource(e.Resource)
			fmt.Printf("  cost %-20s %.2fh @ %.2f = %.2f\n", r.Path, e.BookedHours, e.Rate, e.Cost)
		}
		if rep.TotalCost > 0 {
			fmt.Printf("  total cost: %.2f\n", rep.TotalCost)
		}

		rows := timesheet.Flatten(res.Index, res.Boards)
		for _, row := range rows {
			fmt.Printf("  timesheet %-20s %-20s %s %.2fh\n",
				proj.Resource(row.Resource).Path, proj.Task(row.Task).Path, row.Day.Format("2006-01-02"), row.Hours)
		}
	}
}
