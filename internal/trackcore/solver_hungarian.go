package trackcore

import "math"

// HungarianSolver is the exact O(n^3) minimum-cost assignment strategy.
// The rectangular N×M matrix is padded to a square size = max(N,M) with
// virtual rows/columns at cost max_cost+epsilon so the dual-potential
// algorithm below can run on a square instance (§4.1).
//
// Ported from other_examples/canonical-go-algo/assign.go's optimalCost,
// specialized from its generic Cost interface to plain float64 (our cost
// matrix is already numeric, so the interface indirection buys nothing
// here) and wrapped to translate the padded square solution back into a
// length-N assignment over real region columns only.
type HungarianSolver struct{}

func (s *HungarianSolver) Solve(cm *CostMatrix) []int {
	n, m := cm.N, cm.M
	assignment := make([]int, n)
	for i := range assignment {
		assignment[i] = Unassigned
	}
	if n == 0 || m == 0 {
		return assignment
	}

	size := n
	if m > size {
		size = m
	}

	pad := cm.MaxCost + 1
	if pad <= 0 {
		pad = 1
	}

	costs := make([][]float64, size)
	for i := 0; i < size; i++ {
		costs[i] = make([]float64, size)
		for j := 0; j < size; j++ {
			if i < n && j < m {
				costs[i][j] = cm.At(i, j)
			} else {
				costs[i][j] = pad
			}
		}
	}

	targetSource := optimalAssignment(costs)
	for j := 0; j < size; j++ {
		i := targetSource[j]
		if i < n && j < m {
			assignment[i] = j
		}
	}
	return assignment
}

// optimalAssignment returns result[j] = i meaning target (column) j is
// matched with source (row) i, for a square cost matrix. Equivalent in
// structure to canonical-go-algo's optimalCost, using a
// math.MaxFloat64 sentinel in place of the generic Cost interface's
// MaxCost/Less/Add/Sub operations.
func optimalAssignment(costs [][]float64) []int {
	n := len(costs)
	const inf = math.MaxFloat64 / 2

	sourceCost := make([]float64, n+1)
	targetCost := make([]float64, n+1)
	targetSource := make([]int, n+1)
	for i := 0; i <= n; i++ {
		targetSource[i] = n
	}

	minSlack := make([]float64, n+1)
	targetTrail := make([]int, n+1)
	visitedTarget := make([]bool, n+1)

	for i := 0; i < n; i++ {
		targetSource[n] = i
		currentTarget := n

		for j := 0; j <= n; j++ {
			minSlack[j] = inf
			targetTrail[j] = n
			visitedTarget[j] = false
		}

		for targetSource[currentTarget] != n {
			visitedTarget[currentTarget] = true
			currentSource := targetSource[currentTarget]
			delta := inf
			nextTarget := 0

			for j := 0; j < n; j++ {
				if visitedTarget[j] {
					continue
				}
				slack := costs[currentSource][j] - sourceCost[currentSource] - targetCost[j]
				if slack < minSlack[j] {
					minSlack[j] = slack
					targetTrail[j] = currentTarget
				}
				if minSlack[j] < delta {
					delta = minSlack[j]
					nextTarget = j
				}
			}

			for j := 0; j <= n; j++ {
				if visitedTarget[j] {
					src := targetSource[j]
					sourceCost[src] += delta
					targetCost[j] -= delta
				} else {
					minSlack[j] -= delta
				}
			}

			currentTarget = nextTarget
		}

		for currentTarget != n {
			previousTarget := targetTrail[currentTarget]
			targetSource[currentTarget] = targetSource[previousTarget]
			currentTarget = previousTarget
		}
	}

	return targetSource[:n]
}
