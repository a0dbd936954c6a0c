package search

import "sort"

// weightedRanking is one side's ranked id list plus the weight its
// contributions are scaled by during fusion.
type weightedRanking struct {
	ids    []string
	weight float64
}

// fusedResult is one id's summed RRF score, before being resolved back to
// a Project.
type fusedResult struct {
	id    string
	score float64
}

// fuse merges any number of weighted, best-first ranked id lists via
// Reciprocal Rank Fusion: score(d) = Σ w_list / (k + rank_list(d) + 1),
// summed per id across every list it appears in, then sorted descending
// (spec §4.10, GLOSSARY "RRF"). Fusion is order-invariant: swapping two
// lists and their weights produces the same ranking, since each
// contribution only depends on the id's own rank within its own list.
func fuse(k int, rankings []weightedRanking) []fusedResult {
	scores := make(map[string]float64)
	order := make([]string, 0)

	for _, r := range rankings {
		if r.weight <= 0 {
			continue
		}
		for rank, id := range r.ids {
			if _, seen := scores[id]; !seen {
				order = append(order, id)
			}
			scores[id] += r.weight / float64(k+rank+1)
		}
	}

	out := make([]fusedResult, len(order))
	for i, id := range order {
		out[i] = fusedResult{id: id, score: scores[id]}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].score > out[j].score })
	return out
}
