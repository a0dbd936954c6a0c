// Package embedding implements C4: a wrapper around an external embedder
// that adds asymmetric query/document prefixing, retry with backoff, and
// project indexing/search over the C3 vector store (spec §4.4).
package embedding

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/evercatalog/catalog/pkg/models"
	"github.com/evercatalog/catalog/pkg/ports"
	"github.com/evercatalog/catalog/pkg/vectorstore"
)

// maxDocumentChars is the fixed character budget texts are truncated to
// before being sent to the embedder (§4.4).
const maxDocumentChars = 8000

// readmeExcerptChars is how much of a README is folded into the document
// text composed by IndexProject.
const readmeExcerptChars = 2000

// Config tunes a Service.
type Config struct {
	ModelID          string
	Dimension        int
	Timeout          time.Duration
	MaxRetries       int
	BaseRetryDelay   time.Duration
	BatchConcurrency int
}

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = 60 * time.Second
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = 3
	}
	if c.BaseRetryDelay <= 0 {
		c.BaseRetryDelay = time.Second
	}
	if c.BatchConcurrency <= 0 {
		c.BatchConcurrency = 4
	}
	return c
}

// isAsymmetric reports whether the model family requires the
// search_query:/search_document: prefix convention.
func (c Config) isAsymmetric() bool {
	return strings.Contains(strings.ToLower(c.ModelID), "nomic")
}

// Service wraps an external embedder and the vector store it populates.
type Service struct {
	embedder ports.Embedder
	store    *vectorstore.Store
	cfg      Config

	mu           sync.Mutex
	availability *bool
}

// New constructs a Service.
func New(embedder ports.Embedder, store *vectorstore.Store, cfg Config) *Service {
	return &Service{embedder: embedder, store: store, cfg: cfg.withDefaults()}
}

// Embed produces an embedding for text. If the configured model family is
// asymmetric, text is prefixed per isQuery before truncation. Failed
// attempts are retried with delays base*2^attempt; if every attempt fails,
// or the backend returns a vector of the wrong dimension, Embed returns an
// error rather than a partial result.
func (s *Service) Embed(ctx context.Context, text string, isQuery bool) ([]float32, error) {
	prepared := s.prepare(text, isQuery)

	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = s.cfg.BaseRetryDelay
	policy.Multiplier = 2
	policy.RandomizationFactor = 0
	bounded := backoff.WithMaxRetries(policy, uint64(s.cfg.MaxRetries))
	bounded2 := backoff.WithContext(bounded, ctx)

	var vec []float32
	operation := func() error {
		attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()

		v, err := s.embedder.Embed(attemptCtx, prepared)
		if err != nil {
			return fmt.Errorf("embed: %w", err)
		}
		if s.cfg.Dimension > 0 && len(v) != s.cfg.Dimension {
			return backoff.Permanent(fmt.Errorf("embed: got dimension %d, want %d", len(v), s.cfg.Dimension))
		}
		vec = v
		return nil
	}

	if err := backoff.Retry(operation, bounded2); err != nil {
		slog.Warn("embedding: all attempts failed", "model", s.cfg.ModelID, "error", err)
		return nil, fmt.Errorf("embedding: %w", err)
	}
	return vec, nil
}

func (s *Service) prepare(text string, isQuery bool) string {
	prepared := text
	if s.cfg.isAsymmetric() {
		prefix := "search_document: "
		if isQuery {
			prefix = "search_query: "
		}
		prepared = prefix + prepared
	}
	if len(prepared) > maxDocumentChars {
		prepared = prepared[:maxDocumentChars]
	}
	return prepared
}

// BatchResult is one entry of EmbedBatch's output, preserving the
// correspondence between input index and outcome.
type BatchResult struct {
	Index  int
	Vector []float32
	Err    error
}

// EmbedBatch embeds texts concurrently with a bounded semaphore sized by
// concurrency (falling back to the service's configured batch concurrency),
// preserving per-input success/failure.
func (s *Service) EmbedBatch(ctx context.Context, texts []string, isQuery bool, concurrency int) []BatchResult {
	if concurrency <= 0 {
		concurrency = s.cfg.BatchConcurrency
	}
	results := make([]BatchResult, len(texts))
	sem := make(chan struct{}, concurrency)
	var wg sync.WaitGroup

	for i, text := range texts {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, text string) {
			defer wg.Done()
			defer func() { <-sem }()
			vec, err := s.Embed(ctx, text, isQuery)
			results[i] = BatchResult{Index: i, Vector: vec, Err: err}
		}(i, text)
	}
	wg.Wait()
	return results
}

// IndexProjectParams is the input to IndexProject.
type IndexProjectParams struct {
	ProjectID   string
	OrgID       string
	Name        string
	Description string
	Readme      string
	Tags        []string
	Languages   []string
	Frameworks  []string
	Lifecycle   string
	AutoSave    bool
}

// IndexProject composes a canonical document text from the labelled fields,
// embeds it as a document, and adds it to the vector store with
// organization and lowercase tech-tag metadata attached.
func (s *Service) IndexProject(ctx context.Context, p IndexProjectParams) error {
	doc := composeDocumentText(p)
	vec, err := s.Embed(ctx, doc, false)
	if err != nil {
		return fmt.Errorf("embedding: index project %s: %w", p.ProjectID, err)
	}

	meta := models.JSONMap{
		"org_id":     p.OrgID,
		"name":       p.Name,
		"languages":  []string(models.NormalizeStringSet(p.Languages)),
		"frameworks": []string(models.NormalizeStringSet(p.Frameworks)),
		"tags":       p.Tags,
	}
	if p.Description != "" {
		meta["description"] = p.Description
	}
	if p.Lifecycle != "" {
		meta["lifecycle"] = strings.ToLower(p.Lifecycle)
	}

	s.store.Add(p.ProjectID, vec, meta)
	if p.AutoSave {
		if err := s.store.Save(false); err != nil {
			slog.Warn("embedding: auto-save after IndexProject failed", "project_id", p.ProjectID, "error", err)
		}
	}
	return nil
}

func composeDocumentText(p IndexProjectParams) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "Project: %s\n", p.Name)
	if p.Description != "" {
		fmt.Fprintf(&sb, "Description: %s\n", p.Description)
	}
	if p.Readme != "" {
		readme := strings.ReplaceAll(p.Readme, "\n", " ")
		if len(readme) > readmeExcerptChars {
			readme = readme[:readmeExcerptChars]
		}
		fmt.Fprintf(&sb, "Documentation: %s\n", readme)
	}
	if len(p.Tags) > 0 {
		fmt.Fprintf(&sb, "Tags: %s\n", strings.Join(p.Tags, ", "))
	}
	if len(p.Languages) > 0 {
		fmt.Fprintf(&sb, "Languages: %s\n", strings.Join(p.Languages, ", "))
	}
	if len(p.Frameworks) > 0 {
		fmt.Fprintf(&sb, "Frameworks: %s\n", strings.Join(p.Frameworks, ", "))
	}
	return sb.String()
}

// SearchFilters narrows SearchSimilar/FindRelated results.
type SearchFilters struct {
	OrgID     string
	Languages []string
	Lifecycle string
}

func (f SearchFilters) predicate() vectorstore.Filter {
	wantLangs := make(map[string]struct{}, len(f.Languages))
	for _, l := range f.Languages {
		wantLangs[strings.ToLower(l)] = struct{}{}
	}
	return func(id string, meta models.JSONMap) bool {
		if meta == nil {
			return false
		}
		if f.OrgID != "" {
			if orgID, ok := meta.GetString("org_id"); !ok || orgID != f.OrgID {
				return false
			}
		}
		if f.Lifecycle != "" {
			lifecycle, _ := meta.GetString("lifecycle")
			if !strings.EqualFold(lifecycle, f.Lifecycle) {
				return false
			}
		}
		if len(wantLangs) > 0 {
			langs, _ := meta["languages"].([]string)
			if !anyMatch(langs, wantLangs) {
				return false
			}
		}
		return true
	}
}

func anyMatch(values []string, want map[string]struct{}) bool {
	for _, v := range values {
		if _, ok := want[strings.ToLower(v)]; ok {
			return true
		}
	}
	return false
}

// SearchSimilar embeds query as a query text and runs a filtered top-k
// search enforcing org membership and case-insensitive language/lifecycle
// match.
func (s *Service) SearchSimilar(ctx context.Context, query string, limit int, filters SearchFilters, minScore float64) ([]vectorstore.Match, error) {
	vec, err := s.Embed(ctx, query, true)
	if err != nil {
		return nil, fmt.Errorf("embedding: search: %w", err)
	}
	return s.store.Search(vec, limit, filters.predicate(), minScore), nil
}

// FindRelated looks up projectID's stored vector and searches with the same
// org filter, excluding the source id from the results.
func (s *Service) FindRelated(ctx context.Context, orgID, projectID string, limit int) ([]vectorstore.Match, error) {
	vec, _, ok := s.store.Get(projectID)
	if !ok {
		return nil, fmt.Errorf("embedding: find related: no vector for project %s", projectID)
	}
	filters := SearchFilters{OrgID: orgID}
	matches := s.store.Search(vec, limit+1, filters.predicate(), -1)
	out := make([]vectorstore.Match, 0, len(matches))
	for _, m := range matches {
		if m.ID == projectID {
			continue
		}
		out = append(out, m)
		if len(out) == limit {
			break
		}
	}
	return out, nil
}

// IsAvailable probes the backend's model list once and caches the boolean
// result. Call ResetAvailability to force a fresh probe.
func (s *Service) IsAvailable(ctx context.Context) bool {
	s.mu.Lock()
	cached := s.availability
	s.mu.Unlock()
	if cached != nil {
		return *cached
	}

	_, err := s.embedder.ListModels(ctx)
	available := err == nil

	s.mu.Lock()
	s.availability = &available
	s.mu.Unlock()
	return available
}

// ResetAvailability clears the cached availability probe result.
func (s *Service) ResetAvailability() {
	s.mu.Lock()
	s.availability = nil
	s.mu.Unlock()
}

// Save persists the underlying vector store snapshot, used by job handlers
// that batch several IndexProject calls and persist once at the end.
func (s *Service) Save(force bool) error {
	return s.store.Save(force)
}
