package cli

import (
	"github.com/spf13/cobra"
)

var version = "dev"

func SetVersion(v string) {
	version = v
}

var rootCmd = &cobra.Command{
	Use:   "buildsmith",
	Short: "buildsmith is an oracle-driven web project generator",
	Long: `buildsmith turns a plain-language request into a packaged web project
through a staged pipeline: classification, planning, two human approval
checkpoints, per-file generation, integration validation with bounded
fix retries, and dependency synthesis.

All state is stored in ~/.buildsmith/ (SQLite for events, JSON for task state).`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(approveCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(analyticsCmd)
}
