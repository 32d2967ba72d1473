package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var version = "0.1.0"

// RootCmd is the quickpulse command; run and version hang off it.
var RootCmd = &cobra.Command{
	Use:     "quickpulse",
	Short:   "Real-time request and dependency telemetry aggregator",
	Version: version,
	Long: `quickpulse accumulates request and dependency-call events into fixed
windows and turns every window, together with the host's performance
counters, into one sample of per-second rates and average durations.`,
	SilenceUsage: true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

// Execute runs the command selected by os.Args and reports its error on stderr.
func Execute() error {
	if err := RootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		return err
	}
	return nil
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the quickpulse version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "quickpulse %s\n", version)
	},
}

func init() {
	RootCmd.AddCommand(runCmd)
	RootCmd.AddCommand(versionCmd)
}
