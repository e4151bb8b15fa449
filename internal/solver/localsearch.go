package solver

import (
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/rbscholtus/mipcraft/internal/mip"
)

// LocalSearchCoreResult summarizes the greedy descent phase.
type LocalSearchCoreResult struct {
	NumberOfIterations int
	TerminationStatus  TerminationStatus
	TotalUpdateStatus  int
}

// LocalSearchCore is a greedy first-improvement descent using the same
// move generation and evaluator as the tabu core, without tabu memory.
// Each iteration evaluates all moves in parallel, sorts the improving ones
// by (related-constraint count, global augmented objective), and commits a
// maximal set of constraint-disjoint moves as one composite move.
type LocalSearchCore struct {
	model       *mip.Model
	globalState *GlobalState
	option      Option
	logger      zerolog.Logger

	checkInterrupt func() bool
	generalStart   time.Time

	initialSolution mip.SparseSolution

	currentSolutionScore mip.SolutionScore
	currentMove          *mip.Move
	updateStatus         int
	totalUpdateStatus    int
	iteration            int

	feasibleSolutions []mip.SparseSolution
}

// NewLocalSearchCore prepares the phase from the given solution.
func NewLocalSearchCore(
	globalState *GlobalState,
	initialSolution mip.SparseSolution,
	checkInterrupt func() bool,
	generalStart time.Time,
	option Option,
	logger zerolog.Logger,
) *LocalSearchCore {
	return &LocalSearchCore{
		model:           globalState.Model,
		globalState:     globalState,
		option:          option,
		logger:          phaseLogger(logger, "local_search"),
		checkInterrupt:  checkInterrupt,
		generalStart:    generalStart,
		initialSolution: initialSolution,
	}
}

// FeasibleSolutions returns the feasible solutions stored in this phase.
func (c *LocalSearchCore) FeasibleSolutions() []mip.SparseSolution {
	return c.feasibleSolutions
}

// preprocess installs the initial solution.
func (c *LocalSearchCore) preprocess() {
	c.globalState.IncumbentHolder.ResetLocalAugmentedIncumbent()
	c.globalState.Memory.ResetLocalLastUpdateIterations()
	c.feasibleSolutions = c.feasibleSolutions[:0]

	c.model.ImportSparseSolution(&c.initialSolution)
	c.model.ResetVariableObjectiveImprovabilities()
	c.model.ResetVariableFeasibilityImprovabilities()

	c.currentSolutionScore = c.model.Evaluate(nil)
	c.updateStatus = c.globalState.IncumbentHolder.TryUpdate(c.model, c.currentSolutionScore)
	c.totalUpdateStatus = StatusNotUpdated
	c.iteration = 0
}

// updateMoves refreshes the candidate list; local search always screens.
func (c *LocalSearchCore) updateMoves() int {
	if c.iteration == 0 {
		c.model.UpdateVariableObjectiveImprovabilities()
	} else {
		c.model.UpdateVariableObjectiveImprovabilities(relatedVariables(c.currentMove)...)
	}

	var accept mip.Acceptance
	if c.model.IsFeasible() {
		accept = mip.Acceptance{ObjectiveImprovable: true}
	} else {
		c.model.ResetVariableFeasibilityImprovabilities()
		c.model.UpdateVariableFeasibilityImprovabilities()
		accept = mip.Acceptance{FeasibilityImprovable: true}
	}

	c.model.Neighborhood().UpdateMoves(accept,
		c.option.Parallel.IsEnabledMoveUpdateParallelization,
		c.option.Parallel.NumberOfThreadsMoveUpdate)
	return len(c.model.Neighborhood().Moves())
}

// Run executes the descent until a local optimum or a bound fires.
func (c *LocalSearchCore) Run() LocalSearchCoreResult {
	start := time.Now()
	c.preprocess()

	result := LocalSearchCoreResult{TerminationStatus: StatusIterationOver}
	stepSizeAdjuster := NewIntegerStepSizeAdjuster(c.model)

	var trialSolutionScores []mip.SolutionScore

	c.logger.Info().Msg("local search starts")

	for {
		elapsed := time.Since(start).Seconds()

		if c.checkInterrupt != nil && c.checkInterrupt() {
			result.TerminationStatus = StatusInterruption
			break
		}
		if elapsed > c.option.LocalSearch.TimeMax ||
			time.Since(c.generalStart).Seconds()+c.option.LocalSearch.TimeOffset >
				c.option.General.TimeMax {
			result.TerminationStatus = StatusTimeOver
			break
		}
		if c.iteration >= c.option.LocalSearch.IterationMax {
			result.TerminationStatus = StatusIterationOver
			break
		}
		if reachedTarget(c.model, c.globalState.IncumbentHolder, c.option.General.TargetObjectiveValue) {
			result.TerminationStatus = StatusReachTarget
			break
		}

		numberOfMoves := c.updateMoves()
		if numberOfMoves == 0 {
			if c.model.IsLinear() && c.model.IsFeasible() &&
				!c.model.HasObjectiveImprovableVariable() {
				result.TerminationStatus = StatusOptimal
			} else {
				result.TerminationStatus = StatusNoMove
			}
			break
		}

		trialMoves := c.model.Neighborhood().Moves()
		trialSolutionScores = resizeSolutionScores(trialSolutionScores, numberOfMoves)
		currentSolutionScore := c.currentSolutionScore

		evaluationWorkers := 1
		if c.option.Parallel.IsEnabledMoveEvaluationParallelization {
			evaluationWorkers = c.option.Parallel.NumberOfThreadsMoveEvaluation
		}
		parallelFor(numberOfMoves, evaluationWorkers, func(i int) {
			move := trialMoves[i]
			switch {
			case move.IsUnivariableMove:
				trialSolutionScores[i] = c.model.EvaluateSingle(move, currentSolutionScore)
			case move.IsSelectionMove:
				trialSolutionScores[i] = c.model.EvaluateSelection(move, currentSolutionScore)
			default:
				trialSolutionScores[i] = c.model.EvaluateMulti(move, currentSolutionScore)
			}
		})

		// Stable double sort: related-constraint count first, then global
		// augmented objective, so the later key dominates.
		moveIndices := make([]int, numberOfMoves)
		for i := range moveIndices {
			moveIndices[i] = i
		}
		sort.SliceStable(moveIndices, func(a, b int) bool {
			return len(trialMoves[moveIndices[a]].RelatedConstraints) <
				len(trialMoves[moveIndices[b]].RelatedConstraints)
		})
		sort.SliceStable(moveIndices, func(a, b int) bool {
			return trialSolutionScores[moveIndices[a]].GlobalAugmentedObjective <
				trialSolutionScores[moveIndices[b]].GlobalAugmentedObjective
		})

		// Greedily merge constraint-disjoint improving moves.
		composite := mip.Move{Sense: mip.MoveSenseUserDefined}
		usedConstraints := make(map[int]struct{})
		numberOfPerformedMoves := 0

		for _, index := range moveIndices {
			score := &trialSolutionScores[index]
			move := trialMoves[index]

			if score.IsFeasible {
				if !score.IsObjectiveImprovable {
					break
				}
			} else if !(score.TotalViolation < currentSolutionScore.TotalViolation) {
				break
			}

			hasIntersection := false
			for _, ci := range move.RelatedConstraints {
				if !c.model.Constraints[ci].IsEnabled {
					continue
				}
				if _, ok := usedConstraints[ci]; ok {
					hasIntersection = true
					break
				}
			}
			if hasIntersection {
				continue
			}

			composite.Alterations = append(composite.Alterations, move.Alterations...)
			composite.RelatedConstraints = append(composite.RelatedConstraints, move.RelatedConstraints...)
			for _, ci := range move.RelatedConstraints {
				usedConstraints[ci] = struct{}{}
			}

			if c.option.Neighborhood.IsEnabledIntegerStepSizeAdjuster &&
				move.Sense == mip.MoveSenseInteger {
				stepSizeAdjuster.Adjust(&composite, currentSolutionScore)
			}
			numberOfPerformedMoves++
		}

		if len(composite.Alterations) == 0 {
			result.TerminationStatus = StatusLocalOptimal
			break
		}

		solutionScore := c.model.EvaluateMulti(&composite, currentSolutionScore)
		c.model.Commit(&composite)

		c.globalState.Memory.Update(&composite, c.iteration, 0, nil)

		c.currentMove = &composite
		c.currentSolutionScore = solutionScore
		c.updateStatus = c.globalState.IncumbentHolder.TryUpdate(c.model, solutionScore)
		c.totalUpdateStatus |= c.updateStatus

		if c.option.Output.IsEnabledStoreFeasibleSolutions && solutionScore.IsFeasible {
			c.feasibleSolutions = append(c.feasibleSolutions, c.model.ExportSparseSolution())
		}

		if c.iteration%maxOf(c.option.LocalSearch.LogInterval, 1) == 0 ||
			c.updateStatus > StatusLocalAugmentedIncumbentUpdate {
			c.logger.Debug().
				Int("iteration", c.iteration).
				Int("moves", numberOfMoves).
				Int("performed", numberOfPerformedMoves).
				Float64("objective", solutionScore.Objective*c.model.Sign()).
				Float64("violation", solutionScore.TotalViolation).
				Msg("local search progress")
		}

		c.iteration++
	}

	result.NumberOfIterations = c.iteration
	result.TotalUpdateStatus = c.totalUpdateStatus

	c.logger.Info().
		Int("iterations", c.iteration).
		Str("termination", string(result.TerminationStatus)).
		Msg("local search finished")
	return result
}
