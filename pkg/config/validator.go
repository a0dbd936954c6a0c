package config

import (
	"fmt"

	"github.com/evercatalog/catalog/pkg/catalogerr"
)

// Validator validates a fully-merged Config, fail-fast, in dependency order.
type Validator struct {
	cfg Config
}

// NewValidator creates a validator for cfg.
func NewValidator(cfg Config) *Validator {
	return &Validator{cfg: cfg}
}

// ValidateAll validates every section, returning the first failure.
func (v *Validator) ValidateAll() error {
	if err := v.validateWatch(); err != nil {
		return fmt.Errorf("watch validation failed: %w", err)
	}
	if err := v.validateWorker(); err != nil {
		return fmt.Errorf("worker validation failed: %w", err)
	}
	if err := v.validateSearch(); err != nil {
		return fmt.Errorf("search validation failed: %w", err)
	}
	return nil
}

func (v *Validator) validateWatch() error {
	c := v.cfg
	if c.DebounceWindow <= 0 {
		return catalogerr.NewValidationError("debounce_seconds", "must be positive")
	}
	if c.MaxWait <= 0 {
		return catalogerr.NewValidationError("max_wait_seconds", "must be positive")
	}
	if c.MaxWait < c.DebounceWindow {
		return catalogerr.NewValidationError("max_wait_seconds", "must be greater than or equal to debounce_seconds")
	}
	return nil
}

func (v *Validator) validateWorker() error {
	c := v.cfg
	if c.WorkerPollInterval <= 0 {
		return catalogerr.NewValidationError("worker_poll_interval", "must be positive")
	}
	if c.WorkerMaxConcurrent < 1 {
		return catalogerr.NewValidationError("worker_max_concurrent", "must be at least 1")
	}
	return nil
}

func (v *Validator) validateSearch() error {
	c := v.cfg
	if c.FTSWeight < 0 {
		return catalogerr.NewValidationError("fts_weight", "must be non-negative")
	}
	if c.SemanticWeight < 0 {
		return catalogerr.NewValidationError("semantic_weight", "must be non-negative")
	}
	if c.FTSWeight == 0 && c.SemanticWeight == 0 {
		return catalogerr.NewValidationError("fts_weight", "at least one of fts_weight or semantic_weight must be positive")
	}
	return nil
}
