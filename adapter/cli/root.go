// Package cli is the CLI adapter for the scheduling kernel: it wires
// cobra commands around the driver API without taking part in
// the core's correctness.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/scriptplanner/scriptplan/pkg/observability"
)

var (
	verbose bool
	logger  *slog.Logger
)

type commandContext struct {
	correlationID uuid.UUID
	startedAt     time.Time
}

type commandContextKey struct{}

// rootCmd is the base command when scriptplan is called without a verb.
var rootCmd = &cobra.Command{
	Use:   "scriptplan",
	Short: "scriptplan - deterministic project scheduler with resource leveling",
	Long: `scriptplan assigns concrete start/end times to every task and concrete
resource bookings to every work-consuming task, honoring dependencies,
gap constraints, calendars, and hierarchical limits.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		if logger == nil {
			logger = slog.Default()
		}
		info := commandContext{correlationID: uuid.New(), startedAt: time.Now()}
		ctx := context.WithValue(cmd.Context(), commandContextKey{}, info)
		// Stamp the correlation ID into the context so context-aware
		// log handlers attach it to every record below this command.
		ctx = observability.WithCorrelationID(ctx, info.correlationID.String())
		cmd.SetContext(ctx)
		logger.Info("command start", "command", cmd.CommandPath(), "correlation_id", info.correlationID.String())
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger == nil {
			logger = slog.Default()
		}
		info, ok := cmd.Context().Value(commandContextKey{}).(commandContext)
		if !ok {
			return
		}
		logger.Info("command end",
			"command", cmd.CommandPath(),
			"correlation_id", info.correlationID.String(),
			"duration_ms", time.Since(info.startedAt).Milliseconds(),
		)
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// AddCommand adds a command to the root command.
func AddCommand(cmd *cobra.Command) { rootCmd.AddCommand(cmd) }

// SetLogger sets the CLI logger.
func SetLogger(l *slog.Logger) { logger = l }

// Logger returns the CLI logger, defaulting to slog.Default().
func Logger() *slog.Logger {
	if logger == nil {
		return slog.Default()
	}
	return logger
}
