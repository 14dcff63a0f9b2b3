package trackcore

import "sort"

// BipartiteSolver builds edges (i,j) whose cost is within GatingDistance
// and greedily matches them in increasing cost order, breaking ties by
// the lower track (row) index — cheaper than Hungarian for sparse gated
// graphs (§4.1). Tie-break rule grounded on
// other_examples/katalvlaran-lvlath/tsp/matching.go's greedyMatch, which
// documents the identical "by cost then by vertex id" convention for its
// own greedy matching step (Open Question 3).
//
// Note this is a greedy cost-sorted matching, not a true maximum-cardinality
// matching: a cheap edge claimed early can block two later, more numerous
// assignments that would together beat it on cardinality (the same trade-off
// LdDl-mot-go's performGreedyMatching makes). Use MatchHungarian when
// cardinality matters more than the speed of the greedy pass.
type BipartiteSolver struct {
	GatingDistance float64
}

type bipartiteEdge struct {
	i, j int
	cost float64
}

func (s *BipartiteSolver) Solve(cm *CostMatrix) []int {
	n, m := cm.N, cm.M
	assignment := make([]int, n)
	for i := range assignment {
		assignment[i] = Unassigned
	}
	if n == 0 || m == 0 {
		return assignment
	}

	var edges []bipartiteEdge
	for i := 0; i < n; i++ {
		for j := 0; j < m; j++ {
			c := cm.At(i, j)
			if c <= s.GatingDistance {
				edges = append(edges, bipartiteEdge{i: i, j: j, cost: c})
			}
		}
	}

	sort.Slice(edges, func(a, b int) bool {
		if edges[a].cost != edges[b].cost {
			return edges[a].cost < edges[b].cost
		}
		return edges[a].i < edges[b].i
	})

	rowUsed := make([]bool, n)
	colUsed := make([]bool, m)
	for _, e := range edges {
		if rowUsed[e.i] || colUsed[e.j] {
			continue
		}
		assignment[e.i] = e.j
		rowUsed[e.i] = true
		colUsed[e.j] = true
	}

	return assignment
}
