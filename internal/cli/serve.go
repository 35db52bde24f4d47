package cli

import (
	"fmt"
	"net/http"

	"github.com/spf13/cobra"

	"buildsmith/internal/config"
	"buildsmith/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API",
	Long: `Start the build API on the configured port. Endpoints:

  POST /build                          start a build, runs to first checkpoint
  POST /build/{id}/approve-features    answer the feature checkpoint
  POST /build/{id}/approve-techstack   answer the tech stack checkpoint
  GET  /build/{id}/status              current task state
  GET  /build/{id}/download            completed project archive
  GET  /healthz`,
	RunE: func(cmd *cobra.Command, args []string) error {
		orch, cleanup, err := newOrchestrator()
		if err != nil {
			return err
		}
		defer cleanup()

		cfg, err := config.LoadDefault()
		if err != nil {
			return err
		}
		port, _ := cmd.Flags().GetInt("port")
		if port == 0 {
			port = cfg.Server.Port
		}

		addr := fmt.Sprintf(":%d", port)
		fmt.Fprintf(cmd.OutOrStdout(), "buildsmith API listening on %s\n", addr)
		return http.ListenAndServe(addr, server.New(orch))
	},
}

func init() {
	serveCmd.Flags().Int("port", 0, "Port to listen on (overrides config)")
}
