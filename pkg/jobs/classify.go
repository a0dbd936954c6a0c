// Package jobs implements C6: one handler per job kind, each driving the
// manifest/discovery/embedding/quality components and mutating the catalog
// store (spec §4.6).
package jobs

import (
	"github.com/evercatalog/catalog/pkg/catalogerr"
	"github.com/evercatalog/catalog/pkg/models"
)

// ErrorClass is the taxonomy a handler failure is classified into (spec §7),
// recorded as Job.LastError.Type.
type ErrorClass string

const (
	ClassNotFound        ErrorClass = "not_found"
	ClassValidation      ErrorClass = "validation"
	ClassTransient       ErrorClass = "transient_external"
	ClassHandlerFailure  ErrorClass = "handler_failure"
	ClassCatastrophic    ErrorClass = "catastrophic"
)

// Classify maps err to its error-taxonomy class. Anything not recognised as
// not-found, validation, or transient falls back to handler_failure — the
// catastrophic class is only ever assigned explicitly by the per-job task
// wrapper around session open/commit, never inferred here.
func Classify(err error) ErrorClass {
	switch {
	case err == nil:
		return ""
	case catalogerr.IsNotFound(err):
		return ClassNotFound
	case catalogerr.IsValidationError(err):
		return ClassValidation
	case catalogerr.IsTransient(err):
		return ClassTransient
	default:
		return ClassHandlerFailure
	}
}

// ErrorPayload renders err as the structured shape stored in Job.LastError,
// for the scheduler to attach after a handler returns an error.
func ErrorPayload(err error) models.JSONMap {
	if err == nil {
		return nil
	}
	return models.JSONMap{
		"message": err.Error(),
		"type":    string(Classify(err)),
	}
}
