package config

// Config is the top-level configuration structure parsed from buildsmith YAML.
type Config struct {
	Oracle   OracleConfig   `yaml:"oracle"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Server   ServerConfig   `yaml:"server"`
	Paths    PathsConfig    `yaml:"paths"`
}

// OracleConfig holds connection settings for the LLM backend plus per-role
// model parameters. Roles that don't set their own values inherit Defaults.
type OracleConfig struct {
	BaseURL        string     `yaml:"base_url"`
	APIKey         string     `yaml:"api_key"`
	TimeoutSeconds int        `yaml:"timeout_seconds"`
	Defaults       RoleConfig `yaml:"defaults"`
	Gatekeeper     RoleConfig `yaml:"gatekeeper"`
	Architect      RoleConfig `yaml:"architect"`
	Builder        RoleConfig `yaml:"builder"`
	Auditor        RoleConfig `yaml:"auditor"`
}

// RoleConfig defines model parameters for a single pipeline role.
type RoleConfig struct {
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
	MaxTokens   int     `yaml:"max_tokens"`
}

// PipelineConfig controls retry bounds and generation parallelism.
type PipelineConfig struct {
	MaxRetryCount    int `yaml:"max_retry_count"`
	MaxParallelFiles int `yaml:"max_parallel_files"`
}

// ServerConfig holds settings for the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// PathsConfig holds filesystem locations for task state, archives, and the event log.
type PathsConfig struct {
	StoreDir  string `yaml:"store_dir"`
	OutputDir string `yaml:"output_dir"`
	DBPath    string `yaml:"db_path"`
}
