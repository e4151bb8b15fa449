package solver

import "github.com/rbscholtus/mipcraft/internal/mip"

// GlobalState bundles the structures every phase shares: the incumbents,
// the recency/frequency memory, the solution archives, and the search tree.
// Phases mutate it only from their coordinator goroutine.
type GlobalState struct {
	Model *mip.Model

	IncumbentHolder *IncumbentHolder
	Memory          *Memory

	FeasibleSolutionArchive  *SolutionArchive
	IncumbentSolutionArchive *SolutionArchive
	SearchTree               *SearchTree
}

// NewGlobalState wires the shared structures for one run.
func NewGlobalState(model *mip.Model, feasibleCapacity int) *GlobalState {
	sortMode := ArchiveSortAscending
	if !model.IsMinimization {
		sortMode = ArchiveSortDescending
	}
	return &GlobalState{
		Model:                    model,
		IncumbentHolder:          NewIncumbentHolder(model.IsMinimization),
		Memory:                   NewMemory(model),
		FeasibleSolutionArchive:  NewSolutionArchive(feasibleCapacity, sortMode),
		IncumbentSolutionArchive: NewSolutionArchive(-1, ArchiveSortOff),
		SearchTree:               NewSearchTree(),
	}
}

// UpdateIncumbentArchiveAndSearchTree merges fresh incumbent solutions into
// the archive, purges infeasible entries once the first feasible one lands,
// and rebuilds the search tree.
func (g *GlobalState) UpdateIncumbentArchiveAndSearchTree(solutions []mip.SparseSolution) {
	if len(solutions) == 0 {
		return
	}
	g.IncumbentSolutionArchive.Push(solutions)

	if !g.IncumbentSolutionArchive.HasFeasibleSolution() {
		if g.IncumbentSolutionArchive.UpdateHasFeasibleSolution(solutions) {
			g.IncumbentSolutionArchive.RemoveInfeasibleSolutions()
			g.SearchTree.Reset()
		}
	}

	dense := g.IncumbentHolder.GlobalAugmentedIncumbentSolution()
	incumbent := dense.ToSparse()
	g.SearchTree.Update(g.IncumbentSolutionArchive, &incumbent)
}
