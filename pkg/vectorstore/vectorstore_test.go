package vectorstore

import (
	"math"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/evercatalog/catalog/pkg/models"
)

func TestAddNormalizesToUnitLength(t *testing.T) {
	s := New("")
	s.Add("a", []float32{3, 4}, nil)
	v, _, ok := s.Get("a")
	require.True(t, ok)
	var sumSq float64
	for _, x := range v {
		sumSq += float64(x) * float64(x)
	}
	assert.InDelta(t, 1.0, math.Sqrt(sumSq), 1e-6)
}

func TestAddZeroVectorStoredButExcludedFromSearch(t *testing.T) {
	s := New("")
	s.Add("zero", []float32{0, 0}, nil)
	_, _, ok := s.Get("zero")
	assert.True(t, ok)

	results := s.Search([]float32{1, 0}, 10, nil, -1)
	assert.Empty(t, results)
}

func TestRemoveReportsExistence(t *testing.T) {
	s := New("")
	assert.False(t, s.Remove("missing"))
	s.Add("present", []float32{1, 0}, nil)
	assert.True(t, s.Remove("present"))
	assert.False(t, s.Remove("present"))
}

func TestSearchOrdersByDescendingSimilarity(t *testing.T) {
	s := New("")
	s.Add("close", []float32{1, 0}, nil)
	s.Add("far", []float32{0, 1}, nil)
	s.Add("mid", []float32{1, 1}, nil)

	results := s.Search([]float32{1, 0}, 10, nil, -1)
	require.Len(t, results, 3)
	assert.Equal(t, "close", results[0].ID)
	assert.True(t, results[0].Score >= results[1].Score)
	assert.True(t, results[1].Score >= results[2].Score)
}

func TestSearchAppliesFilterAndMinScore(t *testing.T) {
	s := New("")
	s.Add("a", []float32{1, 0}, models.JSONMap{"org_id": "O1"})
	s.Add("b", []float32{1, 0}, models.JSONMap{"org_id": "O2"})

	filter := func(id string, meta models.JSONMap) bool {
		return meta["org_id"] == "O1"
	}
	results := s.Search([]float32{1, 0}, 10, filter, 0.5)
	require.Len(t, results, 1)
	assert.Equal(t, "a", results[0].ID)
}

func TestSearchFilterPanicExcludesEntry(t *testing.T) {
	s := New("")
	s.Add("a", []float32{1, 0}, nil)
	filter := func(id string, meta models.JSONMap) bool {
		panic("boom")
	}
	results := s.Search([]float32{1, 0}, 10, filter, -1)
	assert.Empty(t, results)
}

func TestSaveThenLoadRoundTrips(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "snapshot.json")

	s := New(path)
	s.Add("a", []float32{1, 2, 3}, models.JSONMap{"name": "Alpha"})
	s.Add("b", []float32{4, 5, 6}, models.JSONMap{"name": "Beta"})
	require.NoError(t, s.Save(true))

	loaded := New(path)
	assert.Equal(t, s.Len(), loaded.Len())

	va, ma, ok := s.Get("a")
	require.True(t, ok)
	vb, mb, ok := loaded.Get("a")
	require.True(t, ok)
	assert.Equal(t, ma, mb)
	for i := range va {
		assert.InDelta(t, va[i], vb[i], 1e-6)
	}
}

func TestLoadToleratesV1Schema(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "v1.json")
	v1 := `{"vectors":{"a":[0.6,0.8]}}`
	require.NoError(t, os.WriteFile(path, []byte(v1), 0o644))

	s := New(path)
	v, meta, ok := s.Get("a")
	require.True(t, ok)
	assert.Nil(t, meta)
	assert.Len(t, v, 2)
}

func TestLoadMissingFileIsEmptyNotError(t *testing.T) {
	dir := t.TempDir()
	s := New(filepath.Join(dir, "does-not-exist.json"))
	assert.Equal(t, 0, s.Len())
}

func TestConcurrentAddAndSearchDoNotRace(t *testing.T) {
	s := New("")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.Add("id", []float32{float32(i), 1}, nil)
		}(i)
		go func() {
			defer wg.Done()
			s.Search([]float32{1, 0}, 5, nil, -1)
		}()
	}
	wg.Wait()
}

