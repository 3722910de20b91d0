// Package journal is the CLI verb group over the run journal.
package journal

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/scriptplanner/scriptplan/adapter/cli"
)

// Cmd is the journal command group.
var Cmd = &cobra.Command{
	Use:   "journal",
	Short: "Inspect the run journal",
}

var recentLimit int

var recentCmd = &cobra.Command{
	Use:   "recent",
	Short: "List the most recent journal entries",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Journal == nil {
			return fmt.Errorf("journal: no repository configured")
		}
		entries, err := app.Journal.Recent(cmd.Context(), recentLimit)
		if err != nil {
			return err
		}
		for _, e := range entries {
			fmt.Printf("%s scenario=%d scheduled=%d unscheduled=%d warnings=%d error=%q duration=%dms\n",
				e.RunID, e.Scenario, e.Scheduled, e.Unscheduled, len(e.Warnings), e.ErrorKind, e.DurationMS)
		}
		return nil
	},
}

func init() {
	recentCmd.Flags().IntVarP(&recentLimit, "limit", "n", 20, "max entries to show")
	Cmd.AddCommand(recentCmd)
}
