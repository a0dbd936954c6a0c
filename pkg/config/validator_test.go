package config

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/evercatalog/catalog/pkg/catalogerr"
)

func TestValidateAllAcceptsDefaults(t *testing.T) {
	assert.NoError(t, NewValidator(Defaults()).ValidateAll())
}

func TestValidateAllRejectsNonPositiveDebounce(t *testing.T) {
	cfg := Defaults()
	cfg.DebounceWindow = 0
	err := NewValidator(cfg).ValidateAll()
	assert.True(t, catalogerr.IsValidationError(err))
}

func TestValidateAllRejectsMaxWaitBelowDebounce(t *testing.T) {
	cfg := Defaults()
	cfg.MaxWait = cfg.DebounceWindow - 1
	err := NewValidator(cfg).ValidateAll()
	assert.True(t, catalogerr.IsValidationError(err))
}

func TestValidateAllRejectsZeroWorkerConcurrency(t *testing.T) {
	cfg := Defaults()
	cfg.WorkerMaxConcurrent = 0
	err := NewValidator(cfg).ValidateAll()
	assert.True(t, catalogerr.IsValidationError(err))
}

func TestValidateAllRejectsNonPositivePollInterval(t *testing.T) {
	cfg := Defaults()
	cfg.WorkerPollInterval = 0
	err := NewValidator(cfg).ValidateAll()
	assert.True(t, catalogerr.IsValidationError(err))
}

func TestValidateAllRejectsNegativeWeights(t *testing.T) {
	cfg := Defaults()
	cfg.FTSWeight = -0.1
	err := NewValidator(cfg).ValidateAll()
	assert.True(t, catalogerr.IsValidationError(err))
}

func TestValidateAllRejectsAllZeroWeights(t *testing.T) {
	cfg := Defaults()
	cfg.FTSWeight = 0
	cfg.SemanticWeight = 0
	err := NewValidator(cfg).ValidateAll()
	assert.True(t, catalogerr.IsValidationError(err))
}
