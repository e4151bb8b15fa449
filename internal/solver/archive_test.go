package solver

import (
	"testing"

	"github.com/rbscholtus/mipcraft/internal/mip"
)

// sparseOf builds a sparse solution from (index, value) pairs.
func sparseOf(objective float64, feasible bool, assignments map[int]int) mip.SparseSolution {
	solution := mip.NewSparseSolution()
	for i, v := range assignments {
		solution.Variables[i] = v
	}
	solution.Objective = objective
	solution.GlobalAugmentedObjective = objective
	solution.IsFeasible = feasible
	return solution
}

// TestSolutionArchive_DeduplicatesAndSorts pushes duplicates and checks
// ascending order with capacity trimming.
func TestSolutionArchive_DeduplicatesAndSorts(t *testing.T) {
	archive := NewSolutionArchive(2, ArchiveSortAscending)

	archive.Push([]mip.SparseSolution{
		sparseOf(3.0, true, map[int]int{0: 1}),
		sparseOf(1.0, true, map[int]int{1: 1}),
		sparseOf(3.0, true, map[int]int{0: 1}), // duplicate assignment
		sparseOf(2.0, true, map[int]int{2: 1}),
	})

	if archive.Size() != 2 {
		t.Fatalf("size = %d, want capacity 2", archive.Size())
	}
	solutions := archive.Solutions()
	if solutions[0].Objective != 1.0 || solutions[1].Objective != 2.0 {
		t.Errorf("objectives = %v, %v; want 1, 2", solutions[0].Objective, solutions[1].Objective)
	}
}

// TestSolutionArchive_FeasibleTransition purges infeasible entries when
// the first feasible solution arrives.
func TestSolutionArchive_FeasibleTransition(t *testing.T) {
	archive := NewSolutionArchive(-1, ArchiveSortOff)

	infeasible := []mip.SparseSolution{
		sparseOf(1.0, false, map[int]int{0: 1}),
		sparseOf(2.0, false, map[int]int{1: 1}),
	}
	archive.Push(infeasible)
	if archive.UpdateHasFeasibleSolution(infeasible) {
		t.Error("infeasible push must not flip the feasible flag")
	}

	feasible := []mip.SparseSolution{sparseOf(3.0, true, map[int]int{2: 1})}
	archive.Push(feasible)
	if !archive.UpdateHasFeasibleSolution(feasible) {
		t.Fatal("feasible push must flip the flag")
	}
	archive.RemoveInfeasibleSolutions()

	if archive.Size() != 1 || !archive.Solutions()[0].IsFeasible {
		t.Errorf("archive after purge: %d solutions", archive.Size())
	}
}

// TestSearchTree_FrontierAndLocallyOptimal builds a small archive and
// checks the MST analytics.
func TestSearchTree_FrontierAndLocallyOptimal(t *testing.T) {
	archive := NewSolutionArchive(-1, ArchiveSortOff)

	// Three solutions on a line: {0}, {0,1}, {0,1,2}. The middle one
	// bridges the two leaves in the spanning tree.
	left := sparseOf(5.0, true, map[int]int{0: 1})
	middle := sparseOf(2.0, true, map[int]int{0: 1, 1: 1})
	right := sparseOf(4.0, true, map[int]int{0: 1, 1: 1, 2: 1})
	archive.Push([]mip.SparseSolution{left, middle, right})

	incumbent := sparseOf(2.0, true, map[int]int{0: 1, 1: 1})
	tree := NewSearchTree()
	tree.Update(archive, &incumbent)

	if len(tree.FrontierSolutions()) != 2 {
		t.Errorf("frontier solutions = %d, want the two leaves", len(tree.FrontierSolutions()))
	}

	// Only the middle solution beats both neighbors.
	locallyOptimal := tree.LocallyOptimalSolutions()
	foundMiddle := false
	for _, ranked := range locallyOptimal {
		if ranked.Solution.GlobalAugmentedObjective == 2.0 {
			foundMiddle = true
			if ranked.Distance != 0 {
				t.Errorf("middle distance = %d, want 0", ranked.Distance)
			}
		}
		if ranked.Solution.GlobalAugmentedObjective == 5.0 {
			t.Error("the worst leaf must not be locally optimal")
		}
	}
	if !foundMiddle {
		t.Error("middle solution must be locally optimal")
	}
}

// TestSearchTree_SingleSolution degenerates gracefully.
func TestSearchTree_SingleSolution(t *testing.T) {
	archive := NewSolutionArchive(-1, ArchiveSortOff)
	only := sparseOf(1.0, true, map[int]int{0: 1})
	archive.Push([]mip.SparseSolution{only})

	tree := NewSearchTree()
	tree.Update(archive, &only)

	if len(tree.FrontierSolutions()) != 1 || len(tree.LocallyOptimalSolutions()) != 1 {
		t.Error("single archived solution must be both frontier and locally optimal")
	}
}
