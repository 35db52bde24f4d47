package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Load reads and parses a configuration from the given YAML file path.
// After parsing, it applies defaults for values the file doesn't set.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config YAML: %w", err)
	}

	applyDefaults(&cfg)
	return &cfg, nil
}

// LoadDefault searches for a config in standard locations and loads the
// first one found. Search order: ./buildsmith.yaml, ~/.buildsmith/config.yaml
// If no file exists, a config built entirely from defaults is returned.
func LoadDefault() (*Config, error) {
	candidates := []string{"buildsmith.yaml"}

	home, err := os.UserHomeDir()
	if err == nil {
		candidates = append(candidates, filepath.Join(home, ".buildsmith", "config.yaml"))
	}

	for _, path := range candidates {
		if _, err := os.Stat(path); err == nil {
			return Load(path)
		}
	}

	var cfg Config
	applyDefaults(&cfg)
	return &cfg, nil
}

// applyDefaults fills in unset values: oracle connection defaults (with
// environment fallbacks for the endpoint and key), per-role model parameters
// inherited from oracle.defaults, and pipeline/server/path settings.
func applyDefaults(cfg *Config) {
	o := &cfg.Oracle

	if o.BaseURL == "" {
		o.BaseURL = os.Getenv("BUILDSMITH_ORACLE_URL")
	}
	if o.BaseURL == "" {
		o.BaseURL = "https://api.openai.com/v1"
	}
	if o.APIKey == "" {
		o.APIKey = os.Getenv("BUILDSMITH_API_KEY")
	}
	if o.TimeoutSeconds <= 0 {
		o.TimeoutSeconds = 120
	}
	if o.Defaults.Model == "" {
		o.Defaults.Model = "gpt-4o-mini"
	}
	if o.Defaults.MaxTokens <= 0 {
		o.Defaults.MaxTokens = 8192
	}

	for _, role := range []*RoleConfig{&o.Gatekeeper, &o.Architect, &o.Builder, &o.Auditor} {
		if role.Model == "" {
			role.Model = o.Defaults.Model
		}
		if role.Temperature == 0 {
			role.Temperature = o.Defaults.Temperature
		}
		if role.MaxTokens <= 0 {
			role.MaxTokens = o.Defaults.MaxTokens
		}
	}

	if cfg.Pipeline.MaxRetryCount == 0 {
		cfg.Pipeline.MaxRetryCount = 2
	}
	if cfg.Pipeline.MaxParallelFiles <= 0 {
		cfg.Pipeline.MaxParallelFiles = 4
	}

	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}

	home, err := os.UserHomeDir()
	if err != nil {
		home = "."
	}
	if cfg.Paths.StoreDir == "" {
		cfg.Paths.StoreDir = filepath.Join(home, ".buildsmith", "tasks")
	}
	if cfg.Paths.OutputDir == "" {
		cfg.Paths.OutputDir = filepath.Join(home, ".buildsmith", "output")
	}
	if cfg.Paths.DBPath == "" {
		cfg.Paths.DBPath = filepath.Join(home, ".buildsmith", "events.db")
	}
}
