package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestToTSQuery(t *testing.T) {
	tests := []struct {
		name  string
		query string
		want  string
	}{
		{"single word", "auth", "auth:*"},
		{"multiple words", "auth service", "auth:* & service:*"},
		{"punctuation collapses to separators", "auth-service!!", "auth:* & service:*"},
		{"pure punctuation yields empty", "???", ""},
		{"empty input yields empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, toTSQuery(tt.query))
		})
	}
}

func TestPqStringArray(t *testing.T) {
	assert.Equal(t, "{}", pqStringArray(nil))
	assert.Equal(t, `{"a","b"}`, pqStringArray([]string{"a", "b"}))
	assert.Equal(t, `{"has \"quote\""}`, pqStringArray([]string{`has "quote"`}))
}

func TestWrapWriteErr(t *testing.T) {
	assert.NoError(t, wrapWriteErr("create project", nil))
}
