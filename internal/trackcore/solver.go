package trackcore

// Unassigned marks a track row with no matched region column.
const Unassigned = -1

// AssignmentSolver returns an injective partial assignment minimizing
// total cost over an N×M matrix. It does not itself apply the gating
// threshold (§4.1) — the caller filters the result post-hoc.
type AssignmentSolver interface {
	Solve(cm *CostMatrix) []int
}

// MatchType selects an AssignmentSolver strategy (§6 match_type).
type MatchType int

const (
	MatchHungarian MatchType = iota
	MatchBipartite
)

// NewAssignmentSolver builds the configured solver strategy.
func NewAssignmentSolver(mt MatchType, gatingDistance float64) AssignmentSolver {
	switch mt {
	case MatchBipartite:
		return &BipartiteSolver{GatingDistance: gatingDistance}
	default:
		return &HungarianSolver{}
	}
}
