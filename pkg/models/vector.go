package models

// VectorEntry is one row of the in-memory vector store (pkg/vectorstore).
// Vector is unit-norm except for originally-zero vectors, which are kept
// at zero (and excluded from search results) rather than discarded.
type VectorEntry struct {
	ID       string
	Vector   []float32
	Metadata JSONMap
}

// VectorSnapshot is the on-disk persisted form of a VectorStore, matching
// the schema in spec.md §6 (version 2: metadata included).
type VectorSnapshot struct {
	Version  int                  `json:"version"`
	Count    int                  `json:"count"`
	Vectors  map[string][]float32 `json:"vectors"`
	Metadata map[string]JSONMap   `json:"metadata"`
}

// VectorSnapshotVersion is the current on-disk snapshot schema version.
const VectorSnapshotVersion = 2
