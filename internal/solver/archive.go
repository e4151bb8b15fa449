package solver

import (
	"sort"

	"github.com/rbscholtus/mipcraft/internal/mip"
)

// ArchiveSortMode orders the archived solutions.
type ArchiveSortMode int

const (
	ArchiveSortOff ArchiveSortMode = iota
	ArchiveSortAscending
	ArchiveSortDescending
)

// SolutionArchive is a bounded, deduplicated set of notable sparse
// solutions. The feasible archive keeps the best solutions by raw
// objective; the incumbent archive keeps every distinct incumbent for the
// search-tree analytics.
type SolutionArchive struct {
	capacity int
	sortMode ArchiveSortMode

	solutions          []mip.SparseSolution
	hasFeasibleSolution bool
}

// NewSolutionArchive returns an archive with the given capacity; a negative
// capacity means unbounded.
func NewSolutionArchive(capacity int, sortMode ArchiveSortMode) *SolutionArchive {
	return &SolutionArchive{capacity: capacity, sortMode: sortMode}
}

// Push merges the given solutions into the archive, deduplicating by
// variable assignment, re-sorting, and trimming to capacity.
func (a *SolutionArchive) Push(solutions []mip.SparseSolution) {
	for i := range solutions {
		if a.contains(&solutions[i]) {
			continue
		}
		a.solutions = append(a.solutions, solutions[i])
	}

	switch a.sortMode {
	case ArchiveSortAscending:
		sort.SliceStable(a.solutions, func(i, j int) bool {
			return a.solutions[i].Objective < a.solutions[j].Objective
		})
	case ArchiveSortDescending:
		sort.SliceStable(a.solutions, func(i, j int) bool {
			return a.solutions[i].Objective > a.solutions[j].Objective
		})
	}

	if a.capacity >= 0 && len(a.solutions) > a.capacity {
		a.solutions = a.solutions[:a.capacity]
	}
}

// contains reports whether an identical assignment is already archived.
func (a *SolutionArchive) contains(solution *mip.SparseSolution) bool {
	for i := range a.solutions {
		if a.solutions[i].Equal(solution) {
			return true
		}
	}
	return false
}

// Solutions returns the archived solutions in order.
func (a *SolutionArchive) Solutions() []mip.SparseSolution {
	return a.solutions
}

// Size returns the number of archived solutions.
func (a *SolutionArchive) Size() int {
	return len(a.solutions)
}

// HasFeasibleSolution reports whether a feasible solution has been archived.
func (a *SolutionArchive) HasFeasibleSolution() bool {
	return a.hasFeasibleSolution
}

// UpdateHasFeasibleSolution scans the given solutions and latches the
// feasible flag; it returns true when the flag flips.
func (a *SolutionArchive) UpdateHasFeasibleSolution(solutions []mip.SparseSolution) bool {
	if a.hasFeasibleSolution {
		return false
	}
	for i := range solutions {
		if solutions[i].IsFeasible {
			a.hasFeasibleSolution = true
			return true
		}
	}
	return false
}

// RemoveInfeasibleSolutions drops every archived infeasible solution; used
// when the first feasible solution arrives.
func (a *SolutionArchive) RemoveInfeasibleSolutions() {
	kept := a.solutions[:0]
	for i := range a.solutions {
		if a.solutions[i].IsFeasible {
			kept = append(kept, a.solutions[i])
		}
	}
	a.solutions = kept
}
