package store

import (
	"context"
	"fmt"
	"strings"

	"github.com/evercatalog/catalog/pkg/models"
)

// FTSResult is one full-text match, ranked by Postgres's ts_rank.
type FTSResult struct {
	Project models.Project
	Rank    float64
}

// ftsRow flattens FTSResult for sqlx scanning, since embedding a struct
// under a db tag isn't supported by a plain SELECT column list.
type ftsRow struct {
	models.Project
	Rank float64 `db:"rank"`
}

// FTSQuery runs a full text search over name/title/description/path scoped
// to org, ranked by ts_rank, falling back to a case-insensitive substring
// match (ILIKE) when the query has no usable tsquery terms — e.g. a lone
// punctuation query like "??" (spec §4.10's degraded-input edge case) —
// when Postgres rejects the tsquery with a syntax error, or when the
// tsquery matches no rows.
func (s *Store) FTSQuery(ctx context.Context, orgID, query string, limit int) ([]FTSResult, error) {
	if limit <= 0 {
		limit = 20
	}
	tsQuery := toTSQuery(query)
	if tsQuery == "" {
		return s.substringSearch(ctx, orgID, query, limit)
	}

	var rows []ftsRow
	sqlQuery := `SELECT ` + projectColumns + `,
		ts_rank(search_vector, to_tsquery('english', $2)) AS rank
		FROM catalog_projects
		WHERE organization_id = $1 AND search_vector @@ to_tsquery('english', $2)
		ORDER BY rank DESC
		LIMIT $3`
	err := s.db.SelectContext(ctx, &rows, sqlQuery, orgID, tsQuery, limit)
	if err != nil {
		// A malformed tsquery (e.g. dangling operator) surfaces as a syntax
		// error from Postgres; degrade to substring search rather than fail
		// the caller's search request outright.
		if strings.Contains(err.Error(), "syntax error") {
			return s.substringSearch(ctx, orgID, query, limit)
		}
		return nil, fmt.Errorf("store: fts query: %w", err)
	}
	if len(rows) == 0 {
		return s.substringSearch(ctx, orgID, query, limit)
	}

	out := make([]FTSResult, len(rows))
	for i, r := range rows {
		out[i] = FTSResult{Project: r.Project, Rank: r.Rank}
	}
	return out, nil
}

// substringSearch is the degraded fallback path: an ILIKE scan with a
// constant rank, used when the query yields no usable tsquery terms, the
// tsquery itself fails to parse, or the tsquery matches no rows.
func (s *Store) substringSearch(ctx context.Context, orgID, query string, limit int) ([]FTSResult, error) {
	var projects []models.Project
	pattern := "%" + strings.ReplaceAll(query, "%", `\%`) + "%"
	sqlQuery := `SELECT ` + projectColumns + ` FROM catalog_projects
		WHERE organization_id = $1 AND (name ILIKE $2 OR title ILIKE $2 OR description ILIKE $2 OR path ILIKE $2)
		ORDER BY name
		LIMIT $3`
	if err := s.db.SelectContext(ctx, &projects, sqlQuery, orgID, pattern, limit); err != nil {
		return nil, fmt.Errorf("store: substring search: %w", err)
	}
	out := make([]FTSResult, len(projects))
	for i, p := range projects {
		out[i] = FTSResult{Project: p, Rank: 0}
	}
	return out, nil
}

// toTSQuery turns free text into a Postgres to_tsquery expression by
// AND-joining alphanumeric terms, matching the tokenization the FTS index
// itself applies. Pure-punctuation input yields an empty string, signalling
// the caller to fall back to substring search.
func toTSQuery(q string) string {
	fields := strings.FieldsFunc(q, func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9')
	})
	if len(fields) == 0 {
		return ""
	}
	for i, f := range fields {
		fields[i] = f + ":*"
	}
	return strings.Join(fields, " & ")
}
