package solver

import (
	"math"

	"github.com/rbscholtus/mipcraft/internal/mip"
)

// RankedSolution pairs an archived solution with its distance to the
// current global incumbent.
type RankedSolution struct {
	Solution mip.SparseSolution
	Distance int
}

// SearchTree maintains a minimum spanning tree over the incumbent solution
// archive (edge weight = Hamming distance) and derives two diversification
// analytics from it: frontier solutions (MST leaves) and locally optimal
// solutions (no MST neighbor with a better global augmented objective).
type SearchTree struct {
	frontierSolutions       []RankedSolution
	locallyOptimalSolutions []RankedSolution
}

// NewSearchTree returns an empty tree.
func NewSearchTree() *SearchTree {
	return &SearchTree{}
}

// Reset drops the analytics; used when infeasible archive entries are
// purged.
func (t *SearchTree) Reset() {
	t.frontierSolutions = t.frontierSolutions[:0]
	t.locallyOptimalSolutions = t.locallyOptimalSolutions[:0]
}

// Update rebuilds the spanning tree and the derived analytics from the
// archive and the current incumbent.
func (t *SearchTree) Update(archive *SolutionArchive, incumbent *mip.SparseSolution) {
	t.Reset()

	solutions := archive.Solutions()
	n := len(solutions)
	if n == 0 {
		return
	}
	if n == 1 {
		distance := solutions[0].Distance(incumbent)
		t.frontierSolutions = append(t.frontierSolutions,
			RankedSolution{Solution: solutions[0], Distance: distance})
		t.locallyOptimalSolutions = append(t.locallyOptimalSolutions,
			RankedSolution{Solution: solutions[0], Distance: distance})
		return
	}

	// Prim's algorithm over the dense distance graph.
	inTree := make([]bool, n)
	parent := make([]int, n)
	best := make([]float64, n)
	for i := range best {
		best[i] = math.MaxFloat64
		parent[i] = -1
	}
	best[0] = 0.0

	adjacency := make([][]int, n)

	for range n {
		next := -1
		for i := 0; i < n; i++ {
			if !inTree[i] && (next < 0 || best[i] < best[next]) {
				next = i
			}
		}
		inTree[next] = true
		if parent[next] >= 0 {
			adjacency[next] = append(adjacency[next], parent[next])
			adjacency[parent[next]] = append(adjacency[parent[next]], next)
		}
		for i := 0; i < n; i++ {
			if inTree[i] {
				continue
			}
			d := float64(solutions[next].Distance(&solutions[i]))
			if d < best[i] {
				best[i] = d
				parent[i] = next
			}
		}
	}

	for i := 0; i < n; i++ {
		distance := solutions[i].Distance(incumbent)

		if len(adjacency[i]) == 1 {
			t.frontierSolutions = append(t.frontierSolutions,
				RankedSolution{Solution: solutions[i], Distance: distance})
		}

		isLocalOptimal := true
		for _, j := range adjacency[i] {
			if solutions[i].GlobalAugmentedObjective > solutions[j].GlobalAugmentedObjective {
				isLocalOptimal = false
				break
			}
		}
		if isLocalOptimal {
			t.locallyOptimalSolutions = append(t.locallyOptimalSolutions,
				RankedSolution{Solution: solutions[i], Distance: distance})
		}
	}
}

// FrontierSolutions returns the MST-leaf solutions with their distances to
// the incumbent.
func (t *SearchTree) FrontierSolutions() []RankedSolution {
	return t.frontierSolutions
}

// LocallyOptimalSolutions returns the MST-locally-optimal solutions with
// their distances to the incumbent.
func (t *SearchTree) LocallyOptimalSolutions() []RankedSolution {
	return t.locallyOptimalSolutions
}
