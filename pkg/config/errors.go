package config

import (
	"errors"
	"fmt"
)

// ErrInvalidYAML indicates catalog.yaml failed to parse.
var ErrInvalidYAML = errors.New("invalid YAML syntax")

// LoadError wraps a configuration loading failure with file context.
// Field-level validation failures use catalogerr.ValidationError instead.
type LoadError struct {
	File string
	Err  error
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("failed to load %s: %v", e.File, e.Err)
}

func (e *LoadError) Unwrap() error {
	return e.Err
}

// NewLoadError creates a LoadError for file.
func NewLoadError(file string, err error) *LoadError {
	return &LoadError{File: file, Err: err}
}
