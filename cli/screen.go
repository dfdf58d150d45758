// Package cli holds the cobra commands for driving screening jobs from a
// terminal.
package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/molscreen/molscreen/pkg/mqtt"
	"github.com/molscreen/molscreen/result"
)

// Runner executes screening jobs for the commands. The binary wires in an
// implementation before Execute.
type Runner interface {
	// Screen runs the job described by the config file and returns the
	// retained best set, ascending.
	Screen(ctx context.Context, configPath string) ([]result.Record, error)

	// Check validates the docking setup in the config file without
	// scoring anything.
	Check(configPath string) error

	// Watch follows a running job's event stream, handing every event to
	// handle until ctx ends.
	Watch(ctx context.Context, jobID string, handle mqtt.Handler) error
}

var runner Runner

// SetRunner sets the job runner the commands call into.
func SetRunner(r Runner) {
	runner = r
}

func NewScreenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "screen <config.toml>",
		Short: "Run a screening job",
		Long:  `Run a full screening job over the ligand library described by the config file and print the retained best scores.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			records, err := runner.Screen(cmd.Context(), args[0])
			if err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			logJSONCmd(*cmd, records)
		},
	}
}

func NewCheckCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "check <config.toml>",
		Short: "Validate a screening setup",
		Long:  `Validate the docking parameters and the receptor file without running the job.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			if err := runner.Check(args[0]); err != nil {
				logErrorCmd(*cmd, err)

				return
			}

			logSuccessCmd(*cmd, "Screening setup is valid")
		},
	}
}

func NewWatchCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "watch <job-id>",
		Short: "Follow a running job's events",
		Long:  `Subscribe to a running job's event stream and print every event until interrupted.`,
		Run: func(cmd *cobra.Command, args []string) {
			if len(args) != 1 {
				logUsageCmd(*cmd, cmd.Use)

				return
			}

			err := runner.Watch(cmd.Context(), args[0], func(topic string, msg map[string]any) error {
				logJSONCmd(*cmd, map[string]any{"topic": topic, "event": msg})

				return nil
			})
			if err != nil {
				logErrorCmd(*cmd, err)
			}
		},
	}
}
