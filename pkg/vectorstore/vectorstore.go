// Package vectorstore implements C3: a thread-safe in-memory map of id to
// L2-normalized vector plus metadata, with atomic on-disk persistence
// (spec §4.3).
package vectorstore

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/evercatalog/catalog/pkg/models"
)

// Filter decides whether an entry should be considered during Search. Any
// panic/exception raised while evaluating it is treated as "exclude this
// entry" by the caller (see recoverFilter).
type Filter func(id string, metadata models.JSONMap) bool

// Match is one ranked result from Search.
type Match struct {
	ID       string
	Score    float64
	Metadata models.JSONMap
}

// Store is a thread-safe, optionally-persisted vector index.
type Store struct {
	mu      sync.RWMutex
	entries map[string]models.VectorEntry
	dirty   bool
	path    string
}

// New constructs an empty Store. If path is non-empty, Load is attempted
// immediately; load errors are logged and leave the store empty rather than
// failing construction, per §4.3.
func New(path string) *Store {
	s := &Store{entries: make(map[string]models.VectorEntry), path: path}
	if path != "" {
		if err := s.Load(); err != nil {
			slog.Warn("vectorstore: load failed, starting empty", "path", path, "error", err)
			s.mu.Lock()
			s.entries = make(map[string]models.VectorEntry)
			s.mu.Unlock()
		}
	}
	return s
}

// Add L2-normalizes vector and stores it under id, overwriting any prior
// entry. Zero vectors are normalized to a zero vector (division skipped) and
// stored, but are excluded from Search results since their similarity to
// anything is always 0.
func (s *Store) Add(id string, vector []float32, metadata models.JSONMap) {
	normalized := l2Normalize(vector)
	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries[id] = models.VectorEntry{ID: id, Vector: normalized, Metadata: metadata}
	s.dirty = true
}

// Remove deletes id's entry, returning whether it existed.
func (s *Store) Remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.entries[id]
	if ok {
		delete(s.entries, id)
		s.dirty = true
	}
	return ok
}

// Get returns id's vector and metadata, or ok=false if absent.
func (s *Store) Get(id string) (vector []float32, metadata models.JSONMap, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	e, found := s.entries[id]
	if !found {
		return nil, nil, false
	}
	return e.Vector, e.Metadata, true
}

// Len reports the number of stored entries.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

// Search L2-normalizes query, computes cosine similarity as a dot product
// against every entry whose filter passes (nil filter accepts all) and whose
// similarity is >= minScore, and returns the top limit matches descending by
// score.
func (s *Store) Search(query []float32, limit int, filter Filter, minScore float64) []Match {
	normalized := l2Normalize(query)

	s.mu.RLock()
	snapshot := make([]models.VectorEntry, 0, len(s.entries))
	for _, e := range s.entries {
		snapshot = append(snapshot, e)
	}
	s.mu.RUnlock()

	matches := make([]Match, 0, len(snapshot))
	for _, e := range snapshot {
		if isZero(e.Vector) {
			continue
		}
		if filter != nil && !safeFilter(filter, e.ID, e.Metadata) {
			continue
		}
		score := dot(normalized, e.Vector)
		if score < minScore {
			continue
		}
		matches = append(matches, Match{ID: e.ID, Score: score, Metadata: e.Metadata})
	}

	sort.Slice(matches, func(i, j int) bool { return matches[i].Score > matches[j].Score })
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}
	return matches
}

// safeFilter evaluates filter, excluding the entry on any panic (spec: "any
// filter exception excludes the entry").
func safeFilter(filter Filter, id string, metadata models.JSONMap) (pass bool) {
	defer func() {
		if r := recover(); r != nil {
			slog.Warn("vectorstore: filter panicked, excluding entry", "id", id, "recover", r)
			pass = false
		}
	}()
	return filter(id, metadata)
}

// Save writes a versioned snapshot atomically (temp sibling then rename) if
// the store is dirty or force is true.
func (s *Store) Save(force bool) error {
	if s.path == "" {
		return fmt.Errorf("vectorstore: no path configured")
	}

	s.mu.RLock()
	if !force && !s.dirty {
		s.mu.RUnlock()
		return nil
	}
	snapshot := models.VectorSnapshot{
		Version:  models.VectorSnapshotVersion,
		Count:    len(s.entries),
		Vectors:  make(map[string][]float32, len(s.entries)),
		Metadata: make(map[string]models.JSONMap, len(s.entries)),
	}
	for id, e := range s.entries {
		snapshot.Vectors[id] = e.Vector
		snapshot.Metadata[id] = e.Metadata
	}
	s.mu.RUnlock()

	data, err := json.Marshal(snapshot)
	if err != nil {
		return fmt.Errorf("vectorstore: marshal snapshot: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("vectorstore: mkdir: %w", err)
	}
	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("vectorstore: write temp snapshot: %w", err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("vectorstore: rename snapshot: %w", err)
	}

	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
	return nil
}

// legacyV1Snapshot is the pre-metadata snapshot schema, tolerated on Load.
type legacyV1Snapshot struct {
	Vectors map[string][]float32 `json:"vectors"`
}

// Load reads the snapshot at s.path, tolerating both v1 (no metadata) and v2
// schemas. A missing file is not an error (empty store).
func (s *Store) Load() error {
	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("vectorstore: read snapshot: %w", err)
	}

	var versioned struct {
		Version int `json:"version"`
	}
	if err := json.Unmarshal(data, &versioned); err != nil {
		return fmt.Errorf("vectorstore: parse snapshot header: %w", err)
	}

	entries := make(map[string]models.VectorEntry)
	switch versioned.Version {
	case 2:
		var snap models.VectorSnapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("vectorstore: parse v2 snapshot: %w", err)
		}
		for id, v := range snap.Vectors {
			entries[id] = models.VectorEntry{ID: id, Vector: v, Metadata: snap.Metadata[id]}
		}
	default:
		var snap legacyV1Snapshot
		if err := json.Unmarshal(data, &snap); err != nil {
			return fmt.Errorf("vectorstore: parse v1 snapshot: %w", err)
		}
		for id, v := range snap.Vectors {
			entries[id] = models.VectorEntry{ID: id, Vector: v}
		}
	}

	s.mu.Lock()
	s.entries = entries
	s.dirty = false
	s.mu.Unlock()
	return nil
}

func l2Normalize(v []float32) []float32 {
	if isZero(v) {
		out := make([]float32, len(v))
		copy(out, v)
		return out
	}
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	norm := math.Sqrt(sumSq)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

func isZero(v []float32) bool {
	for _, x := range v {
		if x != 0 {
			return false
		}
	}
	return true
}

func dot(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var sum float64
	for i := 0; i < n; i++ {
		sum += float64(a[i]) * float64(b[i])
	}
	return sum
}
