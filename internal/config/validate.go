package config

import "fmt"

// ValidationError represents a single validation issue with a config.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks a Config for structural and semantic errors.
// It returns a slice of all validation errors found (empty if valid).
func Validate(cfg *Config) []ValidationError {
	var errs []ValidationError

	if cfg.Oracle.BaseURL == "" {
		errs = append(errs, ValidationError{Field: "oracle.base_url", Message: "is required"})
	}
	if cfg.Oracle.TimeoutSeconds < 0 {
		errs = append(errs, ValidationError{Field: "oracle.timeout_seconds", Message: "must not be negative"})
	}

	for _, role := range []struct {
		name string
		cfg  RoleConfig
	}{
		{"defaults", cfg.Oracle.Defaults},
		{"gatekeeper", cfg.Oracle.Gatekeeper},
		{"architect", cfg.Oracle.Architect},
		{"builder", cfg.Oracle.Builder},
		{"auditor", cfg.Oracle.Auditor},
	} {
		prefix := fmt.Sprintf("oracle.%s", role.name)
		if role.cfg.Temperature < 0 || role.cfg.Temperature > 2 {
			errs = append(errs, ValidationError{
				Field:   prefix + ".temperature",
				Message: fmt.Sprintf("must be between 0 and 2, got %v", role.cfg.Temperature),
			})
		}
		if role.cfg.MaxTokens < 0 {
			errs = append(errs, ValidationError{
				Field:   prefix + ".max_tokens",
				Message: "must not be negative",
			})
		}
	}

	if cfg.Pipeline.MaxRetryCount < 0 {
		errs = append(errs, ValidationError{Field: "pipeline.max_retry_count", Message: "must not be negative"})
	}
	if cfg.Pipeline.MaxParallelFiles < 1 {
		errs = append(errs, ValidationError{Field: "pipeline.max_parallel_files", Message: "must be at least 1"})
	}

	if cfg.Server.Port < 1 || cfg.Server.Port > 65535 {
		errs = append(errs, ValidationError{
			Field:   "server.port",
			Message: fmt.Sprintf("must be a valid TCP port, got %d", cfg.Server.Port),
		})
	}

	return errs
}
