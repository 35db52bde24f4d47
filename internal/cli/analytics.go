package cli

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"buildsmith/internal/analytics"
	"buildsmith/internal/config"
	"buildsmith/internal/db"
)

var analyticsCmd = &cobra.Command{
	Use:   "analytics",
	Short: "Show aggregate pipeline metrics",
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

		days, _ := cmd.Flags().GetInt("days")
		since := ""
		if days > 0 {
			since = time.Now().UTC().AddDate(0, 0, -days).Format("2006-01-02 15:04:05")
		}

		out := cmd.OutOrStdout()

		durations, err := analytics.QueryStageDurations(database, since)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, "Stage durations (minutes):")
		w := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "  STAGE\tCOUNT\tAVG\tP50\tP95")
		for _, d := range durations {
			fmt.Fprintf(w, "  %s\t%d\t%.1f\t%.1f\t%.1f\n", d.Stage, d.Count, d.Avg, d.P50, d.P95)
		}
		w.Flush()

		vs, err := analytics.QueryValidationStats(database, since)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "\nValidation: %d runs, %.1f%% passed (%.1f%% first-pass), %.1f%% degraded, %.1f avg issues\n",
			vs.Runs, vs.PassRate, vs.FirstPassRate, vs.DegradedRate, vs.AvgIssues)

		dist, err := analytics.QueryRetryDistribution(database, since)
		if err != nil {
			return err
		}
		if len(dist) > 0 {
			fmt.Fprintln(out, "\nRetry distribution:")
			for _, d := range dist {
				fmt.Fprintf(out, "  %d retries: %d tasks\n", d.Retries, d.Tasks)
			}
		}

		tp, err := analytics.QueryThroughput(database, since)
		if err != nil {
			return err
		}
		if len(tp) > 0 {
			fmt.Fprintln(out, "\nThroughput:")
			w = tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(w, "  DAY\tCOMPLETED\tFAILED\tREFUSED")
			for _, t := range tp {
				fmt.Fprintf(w, "  %s\t%d\t%d\t%d\n", t.Day, t.Completed, t.Failed, t.Refused)
			}
			w.Flush()
		}
		return nil
	},
}

func init() {
	analyticsCmd.Flags().Int("days", 0, "Limit to the last N days (0 = all time)")
}
