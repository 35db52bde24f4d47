package cli

import (
	"encoding/json"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"buildsmith/internal/build"
)

var statusCmd = &cobra.Command{
	Use:   "status [task-id]",
	Short: "Show status of one task or all tasks",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, cleanup, err := newOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		format, _ := cmd.Flags().GetString("format")

		if len(args) == 1 {
			st, err := orch.Get(args[0])
			if err != nil {
				return err
			}
			if format == "json" {
				data, _ := json.MarshalIndent(st, "", "  ")
				fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return nil
			}
			printState(cmd, st)
			return nil
		}

		states, err := orch.List()
		if err != nil {
			return err
		}
		if format == "json" {
			data, _ := json.MarshalIndent(states, "", "  ")
			fmt.Fprintln(cmd.OutOrStdout(), string(data))
			return nil
		}
		if len(states) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No tasks found.")
			return nil
		}

		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
		fmt.Fprintln(w, "TASK\tPHASE\tRETRIES\tFILES\tQUERY")
		for _, st := range states {
			query := st.UserQuery
			if len(query) > 40 {
				query = query[:37] + "..."
			}
			fmt.Fprintf(w, "%s\t%s\t%d\t%d\t%s\n",
				st.TaskID, phase(st), st.RetryCount, len(st.GeneratedCode), query)
		}
		return w.Flush()
	},
}

// phase condenses a state into a single status word for listings.
func phase(st *build.State) string {
	switch {
	case st.ErrorMessage != "":
		return "failed"
	case st.RefusalReason != "":
		return "refused"
	case st.IsComplete:
		return "completed"
	case st.WaitingForApproval:
		return string(st.ApprovalStage)
	case st.ApprovalStage != build.ApprovalNone:
		return string(st.ApprovalStage)
	default:
		return "created"
	}
}

func init() {
	statusCmd.Flags().String("format", "text", "Output format: text or json")
}
