package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"buildsmith/internal/config"
	"buildsmith/internal/db"
	"buildsmith/internal/llm"
	"buildsmith/internal/orchestrator"
	"buildsmith/internal/store"
)

// newOrchestrator loads the config and wires up a fully connected
// Orchestrator. The returned cleanup closes the event database.
func newOrchestrator() (*orchestrator.Orchestrator, func(), error) {
	cfg, err := config.LoadDefault()
	if err != nil {
		return nil, nil, err
	}
	if errs := config.Validate(cfg); len(errs) > 0 {
		msgs := make([]string, len(errs))
		for i, e := range errs {
			msgs[i] = e.Error()
		}
		return nil, nil, fmt.Errorf("invalid config:\n  %s", strings.Join(msgs, "\n  "))
	}

	s, err := store.NewFileStore(cfg.Paths.StoreDir)
	if err != nil {
		return nil, nil, fmt.Errorf("open task store: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(cfg.Paths.DBPath), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create db directory: %w", err)
	}
	database, err := db.Open(cfg.Paths.DBPath)
	if err != nil {
		return nil, nil, fmt.Errorf("open event db: %w", err)
	}
	if err := database.Migrate(); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("migrate event db: %w", err)
	}

	oracle := llm.NewClient(cfg.Oracle.BaseURL, cfg.Oracle.APIKey, time.Duration(cfg.Oracle.TimeoutSeconds)*time.Second)

	orch := orchestrator.New(s, database, oracle, cfg)
	cleanup := func() { database.Close() }
	return orch, cleanup, nil
}
