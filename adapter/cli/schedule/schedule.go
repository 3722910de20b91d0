// Package schedule is the CLI verb group around the driver API.
package schedule

import (
	"fmt"

	"github.com/spf13/cobra"
)

// Cmd is the schedule command group.
var Cmd = &cobra.Command{
	Use:   "schedule",
	Short: "Run the scheduling kernel over a demo project",
	Long:  `Build a named demo project (see "scriptplan schedule list") and run the deterministic scheduler over it.`,
}

func init() {
	Cmd.AddCommand(runCmd)
	Cmd.AddCommand(allCmd)
	Cmd.AddCommand(replayCmd)
	Cmd.AddCommand(listCmd)
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List the available demo fixtures",
	RunE: func(cmd *cobra.Command, args []string) error {
		for _, name := range fixtureNames() {
			fmt.Println(name)
		}
		return nil
	},
}
