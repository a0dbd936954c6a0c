package search

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFuseSumsContributionsAcrossLists(t *testing.T) {
	result := fuse(60, []weightedRanking{
		{ids: []string{"a", "b", "c"}, weight: 0.6},
		{ids: []string{"b", "a"}, weight: 0.4},
	})

	scores := make(map[string]float64, len(result))
	for _, r := range result {
		scores[r.id] = r.score
	}

	wantA := 0.6/61 + 0.4/62
	wantB := 0.6/62 + 0.4/61
	wantC := 0.6 / 63

	assert.InDelta(t, wantA, scores["a"], 1e-9)
	assert.InDelta(t, wantB, scores["b"], 1e-9)
	assert.InDelta(t, wantC, scores["c"], 1e-9)
}

func TestFuseSortsDescendingByScore(t *testing.T) {
	result := fuse(60, []weightedRanking{
		{ids: []string{"low", "high"}, weight: 1},
		{ids: []string{"high"}, weight: 1},
	})
	require.Len(t, result, 2)
	assert.Equal(t, "high", result[0].id)
	assert.Equal(t, "low", result[1].id)
}

func TestFuseIsOrderInvariantUnderListAndWeightSwap(t *testing.T) {
	a := fuse(60, []weightedRanking{
		{ids: []string{"x", "y"}, weight: 0.6},
		{ids: []string{"y", "z"}, weight: 0.4},
	})
	b := fuse(60, []weightedRanking{
		{ids: []string{"y", "z"}, weight: 0.4},
		{ids: []string{"x", "y"}, weight: 0.6},
	})

	require.Equal(t, len(a), len(b))
	for i := range a {
		assert.Equal(t, a[i].id, b[i].id)
		assert.InDelta(t, a[i].score, b[i].score, 1e-12)
	}
}

func TestFuseIgnoresZeroAndNegativeWeightLists(t *testing.T) {
	result := fuse(60, []weightedRanking{
		{ids: []string{"a"}, weight: 1},
		{ids: []string{"b"}, weight: 0},
		{ids: []string{"c"}, weight: -1},
	})
	require.Len(t, result, 1)
	assert.Equal(t, "a", result[0].id)
}

func TestFuseEmptyInputProducesEmptyOutput(t *testing.T) {
	result := fuse(60, nil)
	assert.Empty(t, result)
}
