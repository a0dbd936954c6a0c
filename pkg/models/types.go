package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"strings"
)

// StringSlice is a []string that reads/writes as a Postgres text[] via pgx's
// default array handling, but also implements Scan/Value so it degrades
// gracefully when the underlying driver hands back a JSON-encoded array
// (as sqlmock does in unit tests).
type StringSlice []string

// Scan implements sql.Scanner.
func (s *StringSlice) Scan(src any) error {
	if src == nil {
		*s = nil
		return nil
	}
	switch v := src.(type) {
	case []string:
		*s = v
		return nil
	case string:
		return s.scanText(v)
	case []byte:
		return s.scanText(string(v))
	default:
		return fmt.Errorf("models: cannot scan %T into StringSlice", src)
	}
}

func (s *StringSlice) scanText(text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		*s = nil
		return nil
	}
	if strings.HasPrefix(text, "[") {
		var out []string
		if err := json.Unmarshal([]byte(text), &out); err != nil {
			return fmt.Errorf("models: decode StringSlice JSON: %w", err)
		}
		*s = out
		return nil
	}
	// Postgres array literal form: {a,b,c}
	trimmed := strings.TrimSuffix(strings.TrimPrefix(text, "{"), "}")
	if trimmed == "" {
		*s = StringSlice{}
		return nil
	}
	parts := strings.Split(trimmed, ",")
	out := make([]string, len(parts))
	for i, p := range parts {
		out[i] = strings.Trim(p, `"`)
	}
	*s = out
	return nil
}

// Value implements driver.Valuer, encoding as a Postgres array literal.
func (s StringSlice) Value() (driver.Value, error) {
	if len(s) == 0 {
		return "{}", nil
	}
	escaped := make([]string, len(s))
	for i, v := range s {
		escaped[i] = `"` + strings.ReplaceAll(v, `"`, `\"`) + `"`
	}
	return "{" + strings.Join(escaped, ",") + "}", nil
}

// NormalizeStringSet lowercases, trims, deduplicates, and drops empty
// entries. Order of first appearance is preserved.
func NormalizeStringSet(in []string) StringSlice {
	seen := make(map[string]struct{}, len(in))
	out := make(StringSlice, 0, len(in))
	for _, v := range in {
		norm := strings.ToLower(strings.TrimSpace(v))
		if norm == "" {
			continue
		}
		if _, ok := seen[norm]; ok {
			continue
		}
		seen[norm] = struct{}{}
		out = append(out, norm)
	}
	return out
}

// ContainsFold reports whether set contains needle, case-insensitively.
func ContainsFold(set []string, needle string) bool {
	needle = strings.ToLower(strings.TrimSpace(needle))
	for _, v := range set {
		if strings.ToLower(v) == needle {
			return true
		}
	}
	return false
}

// JSONMap is an opaque JSON object column, used for free-form metadata,
// job result/parameter payloads, and LLM-produced structured assessments.
type JSONMap map[string]any

// Scan implements sql.Scanner.
func (m *JSONMap) Scan(src any) error {
	if src == nil {
		*m = nil
		return nil
	}
	var raw []byte
	switch v := src.(type) {
	case []byte:
		raw = v
	case string:
		raw = []byte(v)
	default:
		return fmt.Errorf("models: cannot scan %T into JSONMap", src)
	}
	if len(raw) == 0 {
		*m = nil
		return nil
	}
	out := make(JSONMap)
	if err := json.Unmarshal(raw, &out); err != nil {
		return fmt.Errorf("models: decode JSONMap: %w", err)
	}
	*m = out
	return nil
}

// Value implements driver.Valuer.
func (m JSONMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	b, err := json.Marshal(map[string]any(m))
	if err != nil {
		return nil, fmt.Errorf("models: encode JSONMap: %w", err)
	}
	return string(b), nil
}

// GetString reads a string field, returning ok=false if absent or the wrong type.
func (m JSONMap) GetString(key string) (string, bool) {
	v, ok := m[key]
	if !ok {
		return "", false
	}
	s, ok := v.(string)
	return s, ok
}

// GetBool reads a bool field, defaulting to false.
func (m JSONMap) GetBool(key string) bool {
	v, ok := m[key]
	if !ok {
		return false
	}
	b, _ := v.(bool)
	return b
}

// GetStringSlice reads a []string field, tolerating the []any shape produced
// by a JSON round-trip through database/sql.
func (m JSONMap) GetStringSlice(key string) []string {
	v, ok := m[key]
	if !ok {
		return nil
	}
	switch vv := v.(type) {
	case []string:
		return vv
	case []any:
		out := make([]string, 0, len(vv))
		for _, e := range vv {
			if s, ok := e.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

// GetFloat reads a numeric field as float64, tolerating the float64 shape
// produced by encoding/json and the int shape set directly in Go code.
func (m JSONMap) GetFloat(key string) (float64, bool) {
	v, ok := m[key]
	if !ok {
		return 0, false
	}
	switch vv := v.(type) {
	case float64:
		return vv, true
	case int:
		return float64(vv), true
	default:
		return 0, false
	}
}
