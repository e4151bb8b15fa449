package solver

import (
	"math"

	"github.com/rbscholtus/mipcraft/internal/mip"
)

// Incumbent update statuses, combinable as a bitmask.
const (
	StatusNotUpdated                     = 0
	StatusLocalAugmentedIncumbentUpdate  = 1
	StatusGlobalAugmentedIncumbentUpdate = 2
	StatusFeasibleIncumbentUpdate        = 4
)

// IncumbentHolder tracks the three incumbents of a run: the per-round local
// augmented best, the global augmented best, and the feasible best, along
// with the monotone dual bound.
type IncumbentHolder struct {
	localAugmentedIncumbentScore     mip.SolutionScore
	localAugmentedIncumbentSolution  mip.DenseSolution
	hasLocalAugmentedIncumbent       bool

	globalAugmentedIncumbentScore    mip.SolutionScore
	globalAugmentedIncumbentSolution mip.DenseSolution
	hasGlobalAugmentedIncumbent      bool

	feasibleIncumbentScore    mip.SolutionScore
	feasibleIncumbentSolution mip.DenseSolution
	hasFeasibleIncumbent      bool

	dualBound    float64
	hasDualBound bool

	isMinimization bool
}

// NewIncumbentHolder returns an empty holder for the given optimization
// direction.
func NewIncumbentHolder(isMinimization bool) *IncumbentHolder {
	h := &IncumbentHolder{isMinimization: isMinimization}
	h.localAugmentedIncumbentScore.LocalAugmentedObjective = math.MaxFloat64
	h.localAugmentedIncumbentScore.GlobalAugmentedObjective = math.MaxFloat64
	h.globalAugmentedIncumbentScore.GlobalAugmentedObjective = math.MaxFloat64
	h.feasibleIncumbentScore.Objective = math.MaxFloat64
	return h
}

// TryUpdate offers a solution with its score and returns the bitmask of
// incumbents it improved. Offering the same score twice returns
// StatusNotUpdated the second time.
func (h *IncumbentHolder) TryUpdate(model *mip.Model, score mip.SolutionScore) int {
	status := StatusNotUpdated

	if score.LocalAugmentedObjective < h.localAugmentedIncumbentScore.LocalAugmentedObjective {
		h.localAugmentedIncumbentScore = score
		h.localAugmentedIncumbentSolution = model.ExportDenseSolution()
		h.hasLocalAugmentedIncumbent = true
		status |= StatusLocalAugmentedIncumbentUpdate
	}

	if score.GlobalAugmentedObjective < h.globalAugmentedIncumbentScore.GlobalAugmentedObjective {
		h.globalAugmentedIncumbentScore = score
		h.globalAugmentedIncumbentSolution = model.ExportDenseSolution()
		h.hasGlobalAugmentedIncumbent = true
		status |= StatusGlobalAugmentedIncumbentUpdate
	}

	if score.IsFeasible && score.Objective < h.feasibleIncumbentScore.Objective {
		h.feasibleIncumbentScore = score
		h.feasibleIncumbentSolution = model.ExportDenseSolution()
		h.hasFeasibleIncumbent = true
		status |= StatusFeasibleIncumbentUpdate
	}

	return status
}

// ResetLocalAugmentedIncumbent clears the per-round incumbent at the start
// of a fresh core round.
func (h *IncumbentHolder) ResetLocalAugmentedIncumbent() {
	h.localAugmentedIncumbentScore = mip.SolutionScore{}
	h.localAugmentedIncumbentScore.LocalAugmentedObjective = math.MaxFloat64
	h.localAugmentedIncumbentScore.GlobalAugmentedObjective = math.MaxFloat64
	h.localAugmentedIncumbentSolution = mip.DenseSolution{}
	h.hasLocalAugmentedIncumbent = false
}

// LocalAugmentedIncumbentScore returns the per-round incumbent score.
func (h *IncumbentHolder) LocalAugmentedIncumbentScore() mip.SolutionScore {
	return h.localAugmentedIncumbentScore
}

// LocalAugmentedIncumbentSolution returns the per-round incumbent solution.
func (h *IncumbentHolder) LocalAugmentedIncumbentSolution() mip.DenseSolution {
	return h.localAugmentedIncumbentSolution
}

// LocalAugmentedIncumbentObjective returns the per-round incumbent's local
// augmented objective.
func (h *IncumbentHolder) LocalAugmentedIncumbentObjective() float64 {
	return h.localAugmentedIncumbentScore.LocalAugmentedObjective
}

// GlobalAugmentedIncumbentScore returns the global incumbent score.
func (h *IncumbentHolder) GlobalAugmentedIncumbentScore() mip.SolutionScore {
	return h.globalAugmentedIncumbentScore
}

// GlobalAugmentedIncumbentSolution returns the global incumbent solution.
func (h *IncumbentHolder) GlobalAugmentedIncumbentSolution() mip.DenseSolution {
	return h.globalAugmentedIncumbentSolution
}

// GlobalAugmentedIncumbentObjective returns the global incumbent's global
// augmented objective.
func (h *IncumbentHolder) GlobalAugmentedIncumbentObjective() float64 {
	return h.globalAugmentedIncumbentScore.GlobalAugmentedObjective
}

// FeasibleIncumbentScore returns the best feasible score observed.
func (h *IncumbentHolder) FeasibleIncumbentScore() mip.SolutionScore {
	return h.feasibleIncumbentScore
}

// FeasibleIncumbentSolution returns the best feasible solution observed.
func (h *IncumbentHolder) FeasibleIncumbentSolution() mip.DenseSolution {
	return h.feasibleIncumbentSolution
}

// FeasibleIncumbentObjective returns the best feasible folded objective, or
// math.MaxFloat64 when none was found yet.
func (h *IncumbentHolder) FeasibleIncumbentObjective() float64 {
	return h.feasibleIncumbentScore.Objective
}

// IsFoundFeasibleSolution reports whether any feasible solution has been
// observed.
func (h *IncumbentHolder) IsFoundFeasibleSolution() bool {
	return h.hasFeasibleIncumbent
}

// UpdateDualBound offers a dual bound candidate; the stored bound moves
// monotonically (max for minimization, min for maximization, on the folded
// scale always max).
func (h *IncumbentHolder) UpdateDualBound(bound float64) {
	if !h.hasDualBound {
		h.dualBound = bound
		h.hasDualBound = true
		return
	}
	if h.isMinimization {
		h.dualBound = math.Max(h.dualBound, bound)
	} else {
		h.dualBound = math.Min(h.dualBound, bound)
	}
}

// DualBound returns the current dual bound; HasDualBound reports whether
// one was ever set.
func (h *IncumbentHolder) DualBound() float64 {
	return h.dualBound
}

// HasDualBound reports whether a dual bound has been recorded.
func (h *IncumbentHolder) HasDualBound() bool {
	return h.hasDualBound
}
