package cli

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"buildsmith/internal/checkpoint"
)

var approveCmd = &cobra.Command{
	Use:   "approve",
	Short: "Answer a pending approval checkpoint",
}

var approveFeaturesCmd = &cobra.Command{
	Use:   "features <task-id>",
	Short: "Approve the proposed feature list and resume the build",
	Long: `Approve the feature checkpoint. Without --overrides the proposed features
are accepted as-is. --overrides takes a JSON file with any of "features",
"design_specs", and "notes"; notes are appended to the build requirements.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, cleanup, err := newOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()
		orch.SetProgress(cmd.ErrOrStderr())

		var in checkpoint.FeatureApproval
		if err := loadOverrides(cmd, &in); err != nil {
			return err
		}
		if notes, _ := cmd.Flags().GetString("notes"); notes != "" {
			in.Notes = notes
		}

		st, err := orch.ApproveFeatures(cmd.Context(), args[0], in)
		if err != nil {
			return err
		}
		printState(cmd, st)
		return nil
	},
}

var approveTechStackCmd = &cobra.Command{
	Use:   "techstack <task-id>",
	Short: "Approve the proposed tech stack and resume the build",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, cleanup, err := newOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()
		orch.SetProgress(cmd.ErrOrStderr())

		var in checkpoint.TechStackApproval
		if err := loadOverrides(cmd, &in); err != nil {
			return err
		}
		if notes, _ := cmd.Flags().GetString("notes"); notes != "" {
			in.Notes = notes
		}

		st, err := orch.ApproveTechStack(cmd.Context(), args[0], in)
		if err != nil {
			return err
		}
		printState(cmd, st)
		return nil
	},
}

// loadOverrides decodes the --overrides JSON file into dst if the flag is set.
func loadOverrides(cmd *cobra.Command, dst any) error {
	path, _ := cmd.Flags().GetString("overrides")
	if path == "" {
		return nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read overrides file: %w", err)
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("parse overrides file: %w", err)
	}
	return nil
}

func init() {
	for _, c := range []*cobra.Command{approveFeaturesCmd, approveTechStackCmd} {
		c.Flags().String("overrides", "", "JSON file with approval overrides")
		c.Flags().String("notes", "", "Extra requirements to record with the approval")
	}
	approveCmd.AddCommand(approveFeaturesCmd)
	approveCmd.AddCommand(approveTechStackCmd)
}
