package search

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"

	"github.com/evercatalog/catalog/pkg/models"
	"github.com/evercatalog/catalog/pkg/ports"
)

const nlQuerySystemPrompt = `You translate a user's free-text search into a structured catalog query. ` +
	`Respond with a single JSON object only, no prose, no code fences. Fields: ` +
	`keywords (array of short search terms extracted from the query), ` +
	`filters (object, only include keys you are confident about: languages (array of strings), ` +
	`type (one of library, api, cli, web, service, application, tool, framework, plugin, script, docs, bot, game, data, template, other), ` +
	`lifecycle (one of active, maintenance, deprecated, archived), has_tests (bool), min_health_score (0-100 number)), ` +
	`intent (one short word describing what the user wants, e.g. search, browse, compare). ` +
	`Never invent a filter value the query does not support; omit the key instead.`

// ParsedQuery is the structured result of interpreting a free-text query,
// either via the LLM or the keyword-only fallback (spec §4.11).
type ParsedQuery struct {
	Keywords []string
	Filters  Filters
	Intent   string
}

type rawNLQuery struct {
	Keywords []string `json:"keywords"`
	Filters  struct {
		Languages      []string `json:"languages"`
		Type           string   `json:"type"`
		Lifecycle      string   `json:"lifecycle"`
		HasTests       *bool    `json:"has_tests"`
		MinHealthScore *float64 `json:"min_health_score"`
	} `json:"filters"`
	Intent string `json:"intent"`
}

// ParseQuery asks gen to structure query into keywords/filters/intent. If
// gen is nil, the call errors, or the response is unparsable, it falls back
// to {keywords: tokenize(query), filters: {}, intent: "search"} per spec
// §4.11 — NL parsing never fails a search outright.
func ParseQuery(ctx context.Context, gen ports.Generator, query string) ParsedQuery {
	fallback := ParsedQuery{Keywords: tokenize(query), Intent: "search"}
	if gen == nil || strings.TrimSpace(query) == "" {
		return fallback
	}

	text, err := gen.Generate(ctx, ports.GenerateRequest{
		Prompt:      query,
		System:      nlQuerySystemPrompt,
		Temperature: 0.1,
		MaxTokens:   400,
	})
	if err != nil {
		slog.Warn("search: nl query parse generate failed", "error", err)
		return fallback
	}

	var raw rawNLQuery
	if err := json.Unmarshal([]byte(stripCodeFence(text)), &raw); err != nil {
		slog.Warn("search: nl query parse response unparsable", "error", err)
		return fallback
	}

	parsed := ParsedQuery{
		Keywords: raw.Keywords,
		Intent:   raw.Intent,
	}
	if len(parsed.Keywords) == 0 {
		parsed.Keywords = tokenize(query)
	}
	if parsed.Intent == "" {
		parsed.Intent = "search"
	}
	parsed.Filters = Filters{
		Languages:      raw.Filters.Languages,
		Lifecycle:      models.Lifecycle(strings.ToLower(strings.TrimSpace(raw.Filters.Lifecycle))),
		HasTests:       raw.Filters.HasTests,
		MinHealthScore: raw.Filters.MinHealthScore,
	}
	t := models.ProjectType(strings.ToLower(strings.TrimSpace(raw.Filters.Type)))
	if models.IsValidProjectType(t) {
		parsed.Filters.Type = t
	}
	return parsed
}

// tokenize splits a free-text query into lowercased alphanumeric keywords,
// the fallback path when LLM-assisted parsing is unavailable.
func tokenize(query string) []string {
	fields := strings.FieldsFunc(query, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
	out := make([]string, 0, len(fields))
	for _, f := range fields {
		out = append(out, strings.ToLower(f))
	}
	return out
}

// stripCodeFence removes an optional ``` wrapper, mirroring pkg/jobs's
// lenient LLM-JSON parsing.
func stripCodeFence(text string) string {
	trimmed := strings.TrimSpace(text)
	if !strings.HasPrefix(trimmed, "```") {
		return trimmed
	}
	trimmed = strings.TrimPrefix(trimmed, "```")
	if idx := strings.Index(trimmed, "\n"); idx != -1 {
		firstLine := strings.TrimSpace(trimmed[:idx])
		if firstLine == "" || !strings.ContainsAny(firstLine, "{[") {
			trimmed = trimmed[idx+1:]
		}
	}
	trimmed = strings.TrimSuffix(strings.TrimSpace(trimmed), "```")
	return strings.TrimSpace(trimmed)
}

// minResultsFor is the fixed relaxation threshold from spec §4.11:
// max(limit/2, 3).
func minResultsFor(limit int) int {
	threshold := limit / 2
	if threshold < 3 {
		threshold = 3
	}
	return threshold
}

// candidatePoolSize is how many fused candidates Query gathers before
// filtering, giving the filter/relaxation passes enough headroom to still
// reach limit results after a restrictive filter set is applied.
func candidatePoolSize(limit int) int {
	pool := limit * 4
	if pool < 40 {
		pool = 40
	}
	return pool
}

// Query is C11's entry point: parse query into keywords and filters, run
// C10's fused search over the keyword join, then apply filters with
// progressive relaxation in the fixed order spec §4.11 specifies — drop
// type, then drop everything except languages, then fall back to the
// unfiltered fused list — stopping as soon as a stage clears the
// max(limit/2, 3) threshold.
func (s *Service) Query(ctx context.Context, orgID, query string, limit int) ([]SearchResult, ParsedQuery, error) {
	if limit <= 0 {
		limit = 20
	}
	parsed := ParseQuery(ctx, s.gen, query)

	fused, err := s.Search(ctx, orgID, strings.Join(parsed.Keywords, " "), candidatePoolSize(limit))
	if err != nil {
		return nil, parsed, err
	}
	return relax(fused, parsed.Filters, limit), parsed, nil
}

// relax applies parsed's filters to fused and, if the result falls short of
// the max(limit/2, 3) threshold, progressively relaxes in the fixed order
// spec §4.11 specifies: drop type, then drop everything except languages,
// then fall back to the unfiltered fused list.
func relax(fused []SearchResult, filters Filters, limit int) []SearchResult {
	threshold := minResultsFor(limit)
	stages := []Filters{
		filters,
		withoutType(filters),
		onlyLanguages(filters),
	}
	for _, f := range stages {
		filtered := applyFiltersAndSort(fused, f)
		if len(filtered) >= threshold || f.isEmpty() {
			return truncate(filtered, limit)
		}
	}
	return truncate(fused, limit)
}

func withoutType(f Filters) Filters {
	f.Type = ""
	return f
}

func onlyLanguages(f Filters) Filters {
	return Filters{Languages: f.Languages}
}

func truncate(results []SearchResult, limit int) []SearchResult {
	if len(results) > limit {
		return results[:limit]
	}
	return results
}
