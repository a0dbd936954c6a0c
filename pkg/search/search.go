// Package search implements C10 (hybrid search) and C11 (natural-language
// query parsing): fan out a keyword search and a semantic search in
// parallel, merge with Reciprocal Rank Fusion, and apply filters with
// progressive relaxation (spec §4.10, §4.11).
package search

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/evercatalog/catalog/pkg/embedding"
	"github.com/evercatalog/catalog/pkg/models"
	"github.com/evercatalog/catalog/pkg/ports"
	"github.com/evercatalog/catalog/pkg/store"
)

// defaultRRFConstant is the standard Reciprocal Rank Fusion smoothing
// constant K (spec §4.10).
const defaultRRFConstant = 60

const defaultMinSemanticScore = 0.2

// Config tunes a Service.
type Config struct {
	RRFConstant      int
	FTSWeight        float64
	SemanticWeight   float64
	SemanticAuto     bool
	MinSemanticScore float64
}

func (c Config) withDefaults() Config {
	if c.RRFConstant <= 0 {
		c.RRFConstant = defaultRRFConstant
	}
	if c.FTSWeight <= 0 && c.SemanticWeight <= 0 {
		c.FTSWeight = 0.6
		c.SemanticWeight = 0.4
	}
	if c.MinSemanticScore <= 0 {
		c.MinSemanticScore = defaultMinSemanticScore
	}
	return c
}

// Filters narrows a search beyond the raw keyword/semantic ranking. Nil/zero
// fields are not applied.
type Filters struct {
	Languages      []string
	Type           models.ProjectType
	Lifecycle      models.Lifecycle
	HasTests       *bool
	MinHealthScore *float64
}

func (f Filters) isEmpty() bool {
	return len(f.Languages) == 0 && f.Type == "" && f.Lifecycle == "" &&
		f.HasTests == nil && f.MinHealthScore == nil
}

// matches reports whether p survives f, applied case-insensitively per
// spec §4.11: languages use set intersection, type supports a two-way
// partial (substring) match, min_health_score excludes nulls.
func (f Filters) matches(p models.Project) bool {
	if len(f.Languages) > 0 {
		want := make(map[string]struct{}, len(f.Languages))
		for _, l := range f.Languages {
			want[strings.ToLower(strings.TrimSpace(l))] = struct{}{}
		}
		if !anyLanguageIn(p.Languages, want) {
			return false
		}
	}
	if f.Type != "" {
		have := strings.ToLower(string(p.Type))
		want := strings.ToLower(string(f.Type))
		if !strings.Contains(have, want) && !strings.Contains(want, have) {
			return false
		}
	}
	if f.Lifecycle != "" && !strings.EqualFold(string(p.Lifecycle), string(f.Lifecycle)) {
		return false
	}
	if f.HasTests != nil {
		covered := p.TestCoverage != nil && *p.TestCoverage > 0
		if covered != *f.HasTests {
			return false
		}
	}
	if f.MinHealthScore != nil {
		if p.HealthScore == nil || *p.HealthScore < *f.MinHealthScore {
			return false
		}
	}
	return true
}

// anyLanguageIn reports whether any entry of have, case-insensitively,
// intersects the lowercased membership set want.
func anyLanguageIn(have []string, want map[string]struct{}) bool {
	for _, l := range have {
		if _, ok := want[strings.ToLower(l)]; ok {
			return true
		}
	}
	return false
}

// SearchResult is one fused, ranked hit.
type SearchResult struct {
	Project        models.Project
	RelevanceScore float64
}

// Service runs hybrid search over a catalog store and an optional semantic
// index, plus the natural-language query parsing layered on top of it
// (C11). embed and gen may both be nil: the semantic side of search is
// skipped, and NL query parsing falls back to plain tokenization.
type Service struct {
	store *store.Store
	embed *embedding.Service
	gen   ports.Generator
	cfg   Config
}

// New constructs a Service. embed may be nil to disable the semantic side
// of hybrid search; gen may be nil to disable LLM-assisted query parsing.
func New(st *store.Store, embed *embedding.Service, gen ports.Generator, cfg Config) *Service {
	return &Service{store: st, embed: embed, gen: gen, cfg: cfg.withDefaults()}
}

// rankedList is one side's ranked candidate list, ordered best-first, ready
// for RRF fusion.
type rankedList struct {
	ids    []string
	lookup map[string]models.Project
}

// Search runs the C10 algorithm: keyword and semantic candidate lists are
// gathered concurrently, fused by RRF, and returned as the top limit
// results. It does not apply Filters — callers that need filtered,
// progressively-relaxed search should use Query (C11's entry point), which
// wraps this.
func (s *Service) Search(ctx context.Context, orgID, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}

	var (
		wg                  sync.WaitGroup
		ftsList, semList    rankedList
		ftsErr, semErr      error
	)

	wg.Add(1)
	go func() {
		defer wg.Done()
		ftsList, ftsErr = s.ftsCandidates(ctx, orgID, query, 2*limit)
	}()

	semanticEnabled := s.cfg.SemanticAuto && s.embed != nil && query != ""
	if semanticEnabled {
		wg.Add(1)
		go func() {
			defer wg.Done()
			semList, semErr = s.semanticCandidates(ctx, orgID, query, 2*limit)
		}()
	}
	wg.Wait()

	if ftsErr != nil {
		return nil, fmt.Errorf("search: keyword candidates: %w", ftsErr)
	}
	if semErr != nil {
		// The semantic side degrading to unavailable is not fatal — spec
		// §4.10 only requires it when "enabled and available".
		semList = rankedList{}
	}

	fused := fuse(s.cfg.RRFConstant, []weightedRanking{
		{ids: ftsList.ids, weight: s.cfg.FTSWeight},
		{ids: semList.ids, weight: s.cfg.SemanticWeight},
	})

	projects := mergeLookups(ftsList.lookup, semList.lookup)
	out := make([]SearchResult, 0, limit)
	for _, f := range fused {
		p, ok := projects[f.id]
		if !ok {
			continue
		}
		out = append(out, SearchResult{Project: p, RelevanceScore: f.score})
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Service) ftsCandidates(ctx context.Context, orgID, query string, limit int) (rankedList, error) {
	rows, err := s.store.FTSQuery(ctx, orgID, query, limit)
	if err != nil {
		return rankedList{}, err
	}
	return toRankedList(rows), nil
}

func toRankedList(rows []store.FTSResult) rankedList {
	list := rankedList{
		ids:    make([]string, len(rows)),
		lookup: make(map[string]models.Project, len(rows)),
	}
	for i, r := range rows {
		list.ids[i] = r.Project.ID
		list.lookup[r.Project.ID] = r.Project
	}
	return list
}

func (s *Service) semanticCandidates(ctx context.Context, orgID, query string, limit int) (rankedList, error) {
	if !s.embed.IsAvailable(ctx) {
		return rankedList{}, nil
	}
	matches, err := s.embed.SearchSimilar(ctx, query, limit, embedding.SearchFilters{OrgID: orgID}, s.cfg.MinSemanticScore)
	if err != nil {
		return rankedList{}, err
	}

	ids := make([]string, 0, len(matches))
	for _, m := range matches {
		ids = append(ids, m.ID)
	}
	projects, err := s.store.ProjectsByIDs(ctx, orgID, ids)
	if err != nil {
		return rankedList{}, err
	}
	lookup := make(map[string]models.Project, len(projects))
	for _, p := range projects {
		lookup[p.ID] = p
	}
	// Preserve match order (semantic rank), dropping ids the store no
	// longer has a project for (e.g. deleted since the vector was added).
	list := rankedList{lookup: lookup}
	for _, id := range ids {
		if _, ok := lookup[id]; ok {
			list.ids = append(list.ids, id)
		}
	}
	return list, nil
}

func mergeLookups(a, b map[string]models.Project) map[string]models.Project {
	out := make(map[string]models.Project, len(a)+len(b))
	for k, v := range a {
		out[k] = v
	}
	for k, v := range b {
		out[k] = v
	}
	return out
}

// applyFiltersAndSort returns the results matching f in a new slice,
// re-sorted by descending relevance (results itself is not modified; an
// empty filter returns results as given), used after any post-fusion
// filter pass.
func applyFiltersAndSort(results []SearchResult, f Filters) []SearchResult {
	if f.isEmpty() {
		return results
	}
	out := make([]SearchResult, 0, len(results))
	for _, r := range results {
		if f.matches(r.Project) {
			out = append(out, r)
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].RelevanceScore > out[j].RelevanceScore })
	return out
}
