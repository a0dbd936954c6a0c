package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandEnvSubstitutesBracedVar(t *testing.T) {
	t.Setenv("CATALOG_TEST_VAR", "secret123")
	assert.Equal(t, []byte("api_key: secret123"), ExpandEnv([]byte("api_key: ${CATALOG_TEST_VAR}")))
}

func TestExpandEnvSubstitutesBareVar(t *testing.T) {
	t.Setenv("CATALOG_TEST_VAR", "secret123")
	assert.Equal(t, []byte("token=secret123"), ExpandEnv([]byte("token=$CATALOG_TEST_VAR")))
}

func TestExpandEnvMissingVarExpandsToEmpty(t *testing.T) {
	assert.Equal(t, []byte("endpoint: "), ExpandEnv([]byte("endpoint: ${CATALOG_DOES_NOT_EXIST}")))
}

func TestExpandEnvMultipleSubstitutionsInOneLine(t *testing.T) {
	t.Setenv("CATALOG_TEST_HOST", "db.internal")
	t.Setenv("CATALOG_TEST_PORT", "5432")
	assert.Equal(t, []byte("dsn: db.internal:5432"), ExpandEnv([]byte("dsn: ${CATALOG_TEST_HOST}:${CATALOG_TEST_PORT}")))
}
