package cli

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"buildsmith/internal/build"
)

var runCmd = &cobra.Command{
	Use:   "run <request>",
	Short: "Start a new build from a plain-language request",
	Long: `Start a new build task and advance it until it pauses for approval or
finishes. A normal run stops at the feature approval checkpoint; resume it
with 'buildsmith approve features <task-id>'.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, cleanup, err := newOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()
		orch.SetProgress(cmd.ErrOrStderr())

		ref, _ := cmd.Flags().GetString("ref")
		st, err := orch.Create(args[0], ref)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "task created: %s\n", st.TaskID)

		st, err = orch.Run(cmd.Context(), st.TaskID)
		if err != nil {
			return err
		}
		printState(cmd, st)
		return nil
	},
}

func init() {
	runCmd.Flags().String("ref", "", "Reference URL for the request")
}

// printState summarizes where a task stands after an advance.
func printState(cmd *cobra.Command, st *build.State) {
	w := cmd.OutOrStdout()
	switch {
	case st.ErrorMessage != "":
		fmt.Fprintf(w, "task %s failed: %s\n", st.TaskID, st.ErrorMessage)
	case st.RefusalReason != "":
		fmt.Fprintf(w, "task %s refused (%s): %s\n", st.TaskID, st.Classification, st.RefusalReason)
	case st.IsComplete:
		fmt.Fprintf(w, "task %s complete: %s\n", st.TaskID, st.ZipFilePath)
		if st.FixSummary != nil && !st.FixSummary.AllResolved {
			fmt.Fprintf(w, "  warning: %d validation issues remain unresolved\n", len(st.ValidationIssues))
		}
	case st.WaitingForApproval:
		fmt.Fprintf(w, "task %s paused at %s\n", st.TaskID, st.ApprovalStage)
		switch st.ApprovalStage {
		case build.ApprovalFeaturePending:
			data, _ := json.MarshalIndent(st.ApprovedFeatures, "  ", "  ")
			fmt.Fprintf(w, "  proposed features:\n  %s\n", data)
			fmt.Fprintf(w, "resume with: buildsmith approve features %s\n", st.TaskID)
		case build.ApprovalTechStackPending:
			fmt.Fprintf(w, "  proposed stack: %s (%d files)\n", st.ApprovedTechStack, len(st.ApprovedFileStructure))
			fmt.Fprintf(w, "resume with: buildsmith approve techstack %s\n", st.TaskID)
		}
	default:
		fmt.Fprintf(w, "task %s in progress\n", st.TaskID)
	}
}
