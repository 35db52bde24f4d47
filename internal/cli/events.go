package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"buildsmith/internal/config"
	"buildsmith/internal/db"
)

var eventsCmd = &cobra.Command{
	Use:   "events <task-id>",
	Short: "Show the pipeline event log for a task",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadDefault()
		if err != nil {
			return err
		}
		database, err := db.Open(cfg.Paths.DBPath)
		if err != nil {
			return fmt.Errorf("open event db: %w", err)
		}
		defer database.Close()
		if err := database.Migrate(); err != nil {
			return fmt.Errorf("migrate event db: %w", err)
		}

		events, err := database.GetPipelineEvents(args[0])
		if err != nil {
			return err
		}
		if len(events) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No events found.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TIME\tEVENT\tSTAGE\tDETAIL")
		for _, e := range events {
			fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", e.Timestamp, e.Event, e.Stage, e.Detail)
		}
		return w.Flush()
	},
}
