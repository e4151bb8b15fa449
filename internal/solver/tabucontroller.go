package solver

import (
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/rbscholtus/mipcraft/internal/mip"
)

// Tuning constants of the outer controller's parameter adaptation.
const (
	relativeRangeThreshold       = 1e-2
	relaxingRateMin              = 0.3
	relaxingRateMax              = 1.0 - 1e-4
	relaxingRateDecreaseRate     = 0.9
	relaxingRateStepSize         = 1e-1
	gapTolerance                 = mip.Eps
	stagnationThreshold          = 80
	iterationAfterRelaxationMax  = 30
)

// TabuSearchControllerState carries the outer loop's adaptive state between
// rounds.
type TabuSearchControllerState struct {
	Iteration int

	IterationAfterGlobalAugmentedIncumbentUpdate int
	IterationAfterNoUpdate                       int
	IterationAfterRelaxation                     int
	RelaxationCount                              int

	TotalInnerIterations int64
	TotalEvaluatedMoves  int64

	CurrentSolution       mip.SparseSolution
	PreviousSolution      mip.SparseSolution
	CurrentSolutionScore  mip.SolutionScore
	PreviousSolutionScore mip.SolutionScore

	CurrentPrimalIntensity                  float64
	PreviousPrimalIntensity                 float64
	CurrentPrimalIntensityBeforeRelaxation  float64
	PreviousPrimalIntensityBeforeRelaxation float64

	CurrentDualIntensity                  float64
	PreviousDualIntensity                 float64
	CurrentDualIntensityBeforeRelaxation  float64
	PreviousDualIntensityBeforeRelaxation float64

	EmployingLocalSolutionCountAfterRelaxation    int
	EmployingGlobalSolutionCountAfterRelaxation   int
	EmployingPreviousSolutionCountAfterRelaxation int

	TotalUpdateStatus int

	IsGlobalAugmentedIncumbentUpdated   bool
	PreviousIsFeasibleIncumbentUpdated  bool
	CurrentIsFeasibleIncumbentUpdated   bool
	IsNotUpdated                        bool
	IsImproved                          bool
	IsExceededInitialPenaltyCoefficient bool
	IsInfeasibleStagnation              bool

	LastResult TabuSearchCoreResult

	// Parameters re-decided between rounds.
	InitialTabuTenure           int
	PruningRateThreshold        float64
	NumberOfInitialModification int
	IterationMax                int

	EmployingLocalSolutionFlag    bool
	EmployingGlobalSolutionFlag   bool
	EmployingPreviousSolutionFlag bool

	IsEnabledPenaltyCoefficientTightening bool
	IsEnabledPenaltyCoefficientRelaxing   bool
	IsEnabledForciblyInitialModification  bool
	PenaltyCoefficientResetFlag           bool

	PenaltyCoefficientRelaxingRate   float64
	PenaltyCoefficientTighteningRate float64

	ImprovabilityScreeningMode ImprovabilityScreeningMode
}

// TabuSearchControllerResult summarizes the whole tabu search phase.
type TabuSearchControllerResult struct {
	NumberOfIterations      int
	TotalInnerIterations    int64
	TotalEvaluatedMoves     int64
	TerminationStatus       TerminationStatus
	RelaxationCount         int
	LastInnerTermination    TerminationStatus
}

// TabuSearchController drives repeated tabu search rounds, re-deciding the
// initial solution, penalty coefficients, tabu tenure, initial
// modifications, and iteration budget between rounds.
type TabuSearchController struct {
	model       *mip.Model
	globalState *GlobalState
	option      Option
	logger      zerolog.Logger
	trend       *TrendLogger

	checkInterrupt func() bool
	generalStart   time.Time

	state  TabuSearchControllerState
	rng    *rand.Rand
	result TabuSearchControllerResult

	threadOptimizer *ThreadCountOptimizer
}

// NewTabuSearchController prepares the phase from the given solution.
func NewTabuSearchController(
	globalState *GlobalState,
	initialSolution mip.SparseSolution,
	checkInterrupt func() bool,
	generalStart time.Time,
	option Option,
	logger zerolog.Logger,
	trend *TrendLogger,
) *TabuSearchController {
	c := &TabuSearchController{
		model:          globalState.Model,
		globalState:    globalState,
		option:         option,
		logger:         phaseLogger(logger, "tabu_search_controller"),
		trend:          trend,
		checkInterrupt: checkInterrupt,
		generalStart:   generalStart,
		rng:            rand.New(rand.NewSource(option.General.Seed)),
	}

	c.state.CurrentSolution = initialSolution
	globalState.Model.ImportSparseSolution(&initialSolution)
	c.state.CurrentSolutionScore = globalState.Model.Evaluate(nil)
	c.state.CurrentPrimalIntensity = globalState.Memory.PrimalIntensity()
	c.state.CurrentDualIntensity = globalState.Memory.DualIntensity()

	c.state.InitialTabuTenure = option.TabuSearch.InitialTabuTenure
	c.state.PruningRateThreshold = option.TabuSearch.PruningRateThreshold
	c.state.NumberOfInitialModification = 0
	c.state.IterationMax = option.TabuSearch.IterationMax
	c.state.PenaltyCoefficientRelaxingRate = option.Penalty.PenaltyCoefficientRelaxingRate
	c.state.PenaltyCoefficientTighteningRate = option.Penalty.PenaltyCoefficientTighteningRate

	c.state.ImprovabilityScreeningMode = option.Neighborhood.ImprovabilityScreeningMode
	if c.state.ImprovabilityScreeningMode == ScreeningAutomatic {
		c.state.ImprovabilityScreeningMode = ScreeningIntensive
	}

	if option.Parallel.IsEnabledThreadCountOptimization {
		c.threadOptimizer = NewThreadCountOptimizer(
			option.Parallel.NumberOfThreadsMoveUpdate,
			option.Parallel.NumberOfThreadsMoveEvaluation)
	}
	return c
}

// State exposes the controller state for tests.
func (c *TabuSearchController) State() *TabuSearchControllerState {
	return &c.state
}

// Result returns the phase summary.
func (c *TabuSearchController) Result() TabuSearchControllerResult {
	return c.result
}

// createRoundOption derives the per-round option from the adapted state.
func (c *TabuSearchController) createRoundOption() Option {
	option := c.option
	option.Neighborhood.ImprovabilityScreeningMode = c.state.ImprovabilityScreeningMode
	option.TabuSearch.IterationMax = c.state.IterationMax
	option.TabuSearch.TimeOffset = time.Since(c.generalStart).Seconds()
	option.TabuSearch.Seed = int64(c.state.Iteration) + c.option.TabuSearch.Seed
	option.TabuSearch.InitialTabuTenure = c.state.InitialTabuTenure
	option.TabuSearch.PruningRateThreshold = c.state.PruningRateThreshold
	option.TabuSearch.NumberOfInitialModification = 0
	if c.option.TabuSearch.IsEnabledInitialModification {
		option.TabuSearch.NumberOfInitialModification = c.state.NumberOfInitialModification
	}

	if c.threadOptimizer != nil {
		updateWorkers, evaluationWorkers := c.threadOptimizer.Next()
		option.Parallel.NumberOfThreadsMoveUpdate = updateWorkers
		option.Parallel.NumberOfThreadsMoveEvaluation = evaluationWorkers
	}
	return option
}

// Run executes rounds until a phase-level termination condition fires.
func (c *TabuSearchController) Run() TabuSearchControllerResult {
	c.logger.Info().Msg("tabu search starts")
	c.result.TerminationStatus = StatusIterationOver

	for {
		if c.checkInterrupt != nil && c.checkInterrupt() {
			c.result.TerminationStatus = StatusInterruption
			break
		}
		if time.Since(c.generalStart).Seconds() > c.option.General.TimeMax {
			c.result.TerminationStatus = StatusTimeOver
			break
		}
		if c.state.Iteration >= c.option.General.IterationMax {
			c.result.TerminationStatus = StatusIterationOver
			break
		}
		if reachedTarget(c.model, c.globalState.IncumbentHolder, c.option.General.TargetObjectiveValue) {
			c.result.TerminationStatus = StatusReachTarget
			break
		}
		if c.satisfyOptimalCondition() {
			c.result.TerminationStatus = StatusOptimal
			break
		}

		roundOption := c.createRoundOption()
		roundStart := time.Now()

		core := NewTabuSearchCore(
			c.globalState,
			c.state.CurrentSolution,
			c.checkInterrupt,
			c.generalStart,
			roundOption,
			c.logger,
		)
		coreResult := core.Run()

		if c.threadOptimizer != nil {
			elapsed := time.Since(roundStart).Seconds()
			c.threadOptimizer.Observe(float64(coreResult.NumberOfIterations) / math.Max(elapsed, 1e-9))
		}

		// Tighten variable bounds once feasibility is first reached.
		feasibleBefore := c.state.TotalUpdateStatus&StatusFeasibleIncumbentUpdate != 0
		feasibleNow := coreResult.TotalUpdateStatus&StatusFeasibleIncumbentUpdate != 0
		if c.option.TabuSearch.IsEnabledOnlineBounding && feasibleNow && !feasibleBefore {
			bound := c.globalState.IncumbentHolder.FeasibleIncumbentObjective() * c.model.Sign()
			narrowed := c.model.TightenVariableBounds(bound)
			if narrowed > 0 {
				c.model.Neighborhood().UpdateStructure()
				c.logger.Info().Int("narrowed_bounds", narrowed).Msg("online bound tightening applied")
			}
		}

		if c.option.Output.IsEnabledStoreFeasibleSolutions {
			c.globalState.FeasibleSolutionArchive.Push(core.FeasibleSolutions())
		}
		c.globalState.UpdateIncumbentArchiveAndSearchTree(core.IncumbentSolutions())

		c.update(coreResult)
		c.logOuterIteration(coreResult)

		if coreResult.TerminationStatus == StatusInterruption {
			c.result.TerminationStatus = StatusInterruption
			break
		}

		c.state.Iteration++
	}

	c.result.NumberOfIterations = c.state.Iteration
	c.result.TotalInnerIterations = c.state.TotalInnerIterations
	c.result.TotalEvaluatedMoves = c.state.TotalEvaluatedMoves
	c.result.RelaxationCount = c.state.RelaxationCount
	c.result.LastInnerTermination = c.state.LastResult.TerminationStatus

	c.logger.Info().
		Int("outer_iterations", c.result.NumberOfIterations).
		Int64("inner_iterations", c.result.TotalInnerIterations).
		Str("termination", string(c.result.TerminationStatus)).
		Msg("tabu search finished")
	return c.result
}

// satisfyOptimalCondition reports dual-bound closure at the outer level.
func (c *TabuSearchController) satisfyOptimalCondition() bool {
	holder := c.globalState.IncumbentHolder
	return holder.IsFoundFeasibleSolution() && holder.HasDualBound() &&
		math.Abs(holder.FeasibleIncumbentObjective()*c.model.Sign()-holder.DualBound()) < mip.Eps
}

// update re-decides every adaptive parameter from the finished round.
func (c *TabuSearchController) update(result TabuSearchCoreResult) {
	c.updateLastResult(result)
	c.updateIntensity()
	c.keepPreviousSolution()
	c.updateIsInfeasibleStagnation()
	c.updateIsImproved()
	c.turnFlagsOff()

	if c.option.Neighborhood.ImprovabilityScreeningMode == ScreeningAutomatic {
		c.updateImprovabilityScreeningMode()
	}

	c.updateInitialSolutionAndPenaltyCoefficientFlags()

	if c.state.IsEnabledPenaltyCoefficientRelaxing {
		c.updatePenaltyCoefficientRelaxingRate()
	}
	if c.state.IsEnabledPenaltyCoefficientTightening {
		c.updatePenaltyCoefficientResetFlag()
	}

	switch {
	case c.state.PenaltyCoefficientResetFlag:
		c.resetLocalPenaltyCoefficients()
	case c.state.IsEnabledPenaltyCoefficientTightening:
		c.tightenLocalPenaltyCoefficients()
	case c.state.IsEnabledPenaltyCoefficientRelaxing &&
		c.option.Penalty.IsEnabledShrinkPenaltyCoefficient:
		c.relaxLocalPenaltyCoefficients()
	}

	c.updateInitialTabuTenure()
	c.updateNumberOfInitialModification()
	if c.option.TabuSearch.IsEnabledAutomaticIterationAdjustment {
		c.updateIterationMax()
	}
	c.updatePruningRateThreshold()

	c.updateSpecialNeighborhoodMoves(result)
	c.curateChainMoves()

	c.updateCurrentSolution()
	c.updateRelaxationStatus()
}

func (c *TabuSearchController) updateLastResult(result TabuSearchCoreResult) {
	c.state.LastResult = result
	c.state.IsGlobalAugmentedIncumbentUpdated =
		result.TotalUpdateStatus&StatusGlobalAugmentedIncumbentUpdate != 0

	c.state.PreviousIsFeasibleIncumbentUpdated = c.state.CurrentIsFeasibleIncumbentUpdated
	c.state.CurrentIsFeasibleIncumbentUpdated =
		result.TotalUpdateStatus&StatusFeasibleIncumbentUpdate != 0

	c.state.IsNotUpdated = result.TotalUpdateStatus == StatusNotUpdated

	if c.state.IsGlobalAugmentedIncumbentUpdated {
		c.state.IterationAfterGlobalAugmentedIncumbentUpdate = 0
	} else {
		c.state.IterationAfterGlobalAugmentedIncumbentUpdate++
	}

	if c.state.IsNotUpdated {
		c.state.IterationAfterNoUpdate++
	} else {
		c.state.IterationAfterNoUpdate = 0
	}

	c.state.TotalInnerIterations += int64(result.NumberOfIterations)
	c.state.TotalEvaluatedMoves += result.NumberOfEvaluatedMoves
	c.state.TotalUpdateStatus |= result.TotalUpdateStatus
}

func (c *TabuSearchController) updateIntensity() {
	c.state.PreviousPrimalIntensity = c.state.CurrentPrimalIntensity
	c.state.CurrentPrimalIntensity = c.globalState.Memory.PrimalIntensity()

	c.state.PreviousDualIntensity = c.state.CurrentDualIntensity
	c.state.CurrentDualIntensity = c.globalState.Memory.DualIntensity()
}

func (c *TabuSearchController) keepPreviousSolution() {
	c.state.PreviousSolution = c.state.CurrentSolution
	c.state.PreviousSolutionScore = c.state.CurrentSolutionScore
}

// updateIsInfeasibleStagnation latches stagnation: no feasible solution
// found yet, and no global incumbent update for the threshold number of
// rounds.
func (c *TabuSearchController) updateIsInfeasibleStagnation() {
	c.state.IsInfeasibleStagnation =
		!c.globalState.IncumbentHolder.IsFoundFeasibleSolution() &&
			c.state.IterationAfterGlobalAugmentedIncumbentUpdate >= stagnationThreshold
}

// updateIsImproved reports whether the round improved the objective or the
// global penalty relative to the previous initial solution.
func (c *TabuSearchController) updateIsImproved() {
	local := c.globalState.IncumbentHolder.LocalAugmentedIncumbentScore()
	c.state.IsImproved = local.Objective < c.state.PreviousSolutionScore.Objective ||
		local.GlobalPenalty < c.state.PreviousSolutionScore.GlobalPenalty
}

func (c *TabuSearchController) turnFlagsOff() {
	c.state.EmployingLocalSolutionFlag = false
	c.state.EmployingGlobalSolutionFlag = false
	c.state.EmployingPreviousSolutionFlag = false
	c.state.IsEnabledPenaltyCoefficientTightening = false
	c.state.IsEnabledPenaltyCoefficientRelaxing = false
	c.state.IsEnabledForciblyInitialModification = false
	c.state.PenaltyCoefficientResetFlag = false
}

// updateImprovabilityScreeningMode implements the Automatic policy.
func (c *TabuSearchController) updateImprovabilityScreeningMode() {
	result := &c.state.LastResult

	if result.TerminationStatus == StatusNoMove {
		c.state.ImprovabilityScreeningMode = ScreeningSoft
		return
	}
	if c.state.IsGlobalAugmentedIncumbentUpdated {
		c.state.ImprovabilityScreeningMode = ScreeningIntensive
		return
	}
	if result.IsFewPermissibleNeighborhood {
		c.state.ImprovabilityScreeningMode = ScreeningSoft
		return
	}
	if !result.IsFoundNewFeasibleSolution {
		if c.state.IsInfeasibleStagnation && c.state.RelaxationCount%2 == 0 {
			c.state.ImprovabilityScreeningMode = ScreeningIntensive
		} else {
			c.state.ImprovabilityScreeningMode = ScreeningAggressive
		}
		return
	}
	c.state.ImprovabilityScreeningMode = ScreeningSoft
}

// updateInitialSolutionAndPenaltyCoefficientFlags decides the next round's
// starting point and whether penalties relax or tighten.
func (c *TabuSearchController) updateInitialSolutionAndPenaltyCoefficientFlags() {
	holder := c.globalState.IncumbentHolder
	localScore := holder.LocalAugmentedIncumbentScore()

	gap := holder.GlobalAugmentedIncumbentObjective() - holder.LocalAugmentedIncumbentObjective()
	relativeRange := c.state.LastResult.GlobalAugmentedObjectiveRange /
		math.Max(1.0, math.Abs(holder.GlobalAugmentedIncumbentObjective()))

	if c.state.IsGlobalAugmentedIncumbentUpdated {
		c.state.EmployingGlobalSolutionFlag = true
		c.state.IsEnabledPenaltyCoefficientRelaxing = true
		return
	}

	if c.state.IsNotUpdated {
		c.state.EmployingGlobalSolutionFlag = true
		c.state.IsEnabledForciblyInitialModification = true
		if localScore.IsFeasible {
			c.state.IsEnabledPenaltyCoefficientRelaxing = true
		} else if c.state.IterationAfterNoUpdate > 0 {
			c.state.IsEnabledPenaltyCoefficientRelaxing = true
		}
		return
	}

	if gap < gapTolerance {
		c.state.EmployingGlobalSolutionFlag = true
		c.state.IsEnabledForciblyInitialModification = true
		if localScore.IsFeasible {
			c.state.IsEnabledPenaltyCoefficientRelaxing = true
		} else {
			c.state.IsEnabledPenaltyCoefficientTightening = true
		}
		return
	}

	if localScore.IsFeasible {
		c.state.EmployingLocalSolutionFlag = true
		c.state.IsEnabledPenaltyCoefficientRelaxing = true
		return
	}

	if relativeRange < relativeRangeThreshold {
		c.state.EmployingGlobalSolutionFlag = true
		c.state.IsEnabledForciblyInitialModification = true
		c.state.IsEnabledPenaltyCoefficientRelaxing = true
		return
	}

	if holder.IsFoundFeasibleSolution() {
		if c.state.IsImproved {
			c.state.EmployingLocalSolutionFlag = true
		} else {
			c.state.EmployingPreviousSolutionFlag = true
		}
	} else {
		c.state.EmployingLocalSolutionFlag = true
	}
	c.state.IsEnabledPenaltyCoefficientTightening = true
}

// updatePenaltyCoefficientRelaxingRate adapts the relaxing rate: shrink it
// under infeasible stagnation with rising intensities (over-relaxed), grow
// it when previous-initial keeps being picked (under-relaxed), otherwise
// drift back toward the configured default.
func (c *TabuSearchController) updatePenaltyCoefficientRelaxingRate() {
	if c.state.IsInfeasibleStagnation &&
		c.state.CurrentPrimalIntensity > c.state.CurrentPrimalIntensityBeforeRelaxation &&
		c.state.CurrentDualIntensity > c.state.CurrentDualIntensityBeforeRelaxation {
		c.state.PenaltyCoefficientRelaxingRate = math.Max(relaxingRateMin,
			c.state.PenaltyCoefficientRelaxingRate*relaxingRateDecreaseRate)
		return
	}

	if c.state.CurrentIsFeasibleIncumbentUpdated {
		c.state.PenaltyCoefficientRelaxingRate = c.option.Penalty.PenaltyCoefficientRelaxingRate
		return
	}

	if c.state.EmployingPreviousSolutionCountAfterRelaxation >
		maxOf(c.state.EmployingLocalSolutionCountAfterRelaxation,
			c.state.EmployingGlobalSolutionCountAfterRelaxation) {
		c.state.PenaltyCoefficientRelaxingRate = math.Min(relaxingRateMax,
			math.Sqrt(c.state.PenaltyCoefficientRelaxingRate))
		return
	}

	c.state.PenaltyCoefficientRelaxingRate += relaxingRateStepSize *
		(c.option.Penalty.PenaltyCoefficientRelaxingRate - c.state.PenaltyCoefficientRelaxingRate)
}

// updatePenaltyCoefficientResetFlag arms a full reset under prolonged
// infeasible stagnation with coefficients pinned at the ceiling.
func (c *TabuSearchController) updatePenaltyCoefficientResetFlag() {
	if c.state.IsInfeasibleStagnation &&
		c.state.IsExceededInitialPenaltyCoefficient &&
		c.state.IterationAfterRelaxation > iterationAfterRelaxationMax {
		c.state.PenaltyCoefficientResetFlag = true
		c.state.EmployingGlobalSolutionFlag = true
		c.state.IsEnabledForciblyInitialModification = true
	}
}

// resetLocalPenaltyCoefficients restores every coefficient to the default.
func (c *TabuSearchController) resetLocalPenaltyCoefficients() {
	for i := range c.model.Constraints {
		c.model.Constraints[i].ResetLocalPenaltyCoefficients(c.option.Penalty.InitialPenaltyCoefficient)
	}
	c.logger.Info().Msg("local penalty coefficients reset")
}

// tightenLocalPenaltyCoefficients adds the balance-weighted delta to each
// violated side of the local incumbent, clipping at the initial ceiling.
func (c *TabuSearchController) tightenLocalPenaltyCoefficients() {
	holder := c.globalState.IncumbentHolder
	local := holder.LocalAugmentedIncumbentSolution()

	totalViolation := 0.0
	totalSquaredViolation := 0.0
	for ci := range c.model.Constraints {
		if ci >= len(local.Violations) {
			break
		}
		violation := local.Violations[ci]
		totalViolation += violation
		totalSquaredViolation += violation * violation
	}
	if totalViolation < mip.Eps {
		return
	}

	balance := c.option.Penalty.PenaltyCoefficientUpdatingBalance
	gap := math.Max(0.0,
		holder.GlobalAugmentedIncumbentObjective()-holder.LocalAugmentedIncumbentObjective())

	c.state.IsExceededInitialPenaltyCoefficient = false

	for ci := range c.model.Constraints {
		constraint := &c.model.Constraints[ci]
		if ci >= len(local.ConstraintValues) {
			break
		}
		constraintValue := local.ConstraintValues[ci]
		violationValue := local.Violations[ci]

		deltaConstant := gap / totalViolation
		deltaProportional := gap / totalSquaredViolation * violationValue
		delta := balance*deltaConstant + (1.0-balance)*deltaProportional

		positivePart := math.Max(constraintValue, 0.0)
		negativePart := math.Max(-constraintValue, 0.0)

		if constraint.IsLessOrEqual() && positivePart > mip.Eps {
			constraint.LocalPenaltyCoefficientLess +=
				c.state.PenaltyCoefficientTighteningRate * delta
		} else if constraint.IsGreaterOrEqual() && negativePart > mip.Eps {
			constraint.LocalPenaltyCoefficientGreater +=
				c.state.PenaltyCoefficientTighteningRate * delta
		}
	}

	if c.option.Penalty.IsEnabledGroupingPenaltyCoefficient {
		c.promoteGroupPenaltyCoefficients()
	}

	ceiling := c.option.Penalty.InitialPenaltyCoefficient
	for ci := range c.model.Constraints {
		constraint := &c.model.Constraints[ci]
		if constraint.LocalPenaltyCoefficientLess > ceiling {
			c.state.IsExceededInitialPenaltyCoefficient = true
			constraint.LocalPenaltyCoefficientLess = ceiling
		}
		if constraint.LocalPenaltyCoefficientGreater > ceiling {
			c.state.IsExceededInitialPenaltyCoefficient = true
			constraint.LocalPenaltyCoefficientGreater = ceiling
		}
	}
}

// promoteGroupPenaltyCoefficients raises every member of a selection group
// to the group's maximum coefficient.
func (c *TabuSearchController) promoteGroupPenaltyCoefficients() {
	for _, members := range c.model.SelectionGroups {
		groupMax := 0.0
		seen := map[int]struct{}{}
		for _, vi := range members {
			for _, s := range c.model.Variables[vi].ConstraintSensitivities {
				if _, ok := seen[s.Constraint]; ok {
					continue
				}
				seen[s.Constraint] = struct{}{}
				constraint := &c.model.Constraints[s.Constraint]
				groupMax = math.Max(groupMax, constraint.LocalPenaltyCoefficientLess)
				groupMax = math.Max(groupMax, constraint.LocalPenaltyCoefficientGreater)
			}
		}
		for ci := range seen {
			c.model.Constraints[ci].LocalPenaltyCoefficientLess = groupMax
			c.model.Constraints[ci].LocalPenaltyCoefficientGreater = groupMax
		}
	}
}

// relaxLocalPenaltyCoefficients multiplicatively shrinks the coefficient on
// each side that the local incumbent satisfies. When the incumbent is
// feasible, the rate is capped by the objective/constraint sensitivity
// ratio of the last round.
func (c *TabuSearchController) relaxLocalPenaltyCoefficients() {
	rate := c.state.PenaltyCoefficientRelaxingRate

	if c.state.LastResult.ObjectiveConstraintRate > mip.Eps &&
		c.globalState.IncumbentHolder.LocalAugmentedIncumbentScore().IsFeasible {
		rate = math.Min(rate, c.state.LastResult.ObjectiveConstraintRate)
	}

	local := c.globalState.IncumbentHolder.LocalAugmentedIncumbentSolution()
	for ci := range c.model.Constraints {
		constraint := &c.model.Constraints[ci]
		if ci >= len(local.ConstraintValues) {
			break
		}
		constraintValue := local.ConstraintValues[ci]
		positivePart := math.Max(constraintValue, 0.0)
		negativePart := math.Max(-constraintValue, 0.0)

		if constraint.IsLessOrEqual() && positivePart < mip.Eps {
			constraint.LocalPenaltyCoefficientLess *= rate
		}
		if constraint.IsGreaterOrEqual() && negativePart < mip.Eps {
			constraint.LocalPenaltyCoefficientGreater *= rate
		}
	}
}

// updateInitialTabuTenure applies the +-1 pressure rules.
func (c *TabuSearchController) updateInitialTabuTenure() {
	mutable := c.model.NumberOfMutableVariables()
	floor := minOf(c.option.TabuSearch.InitialTabuTenure, mutable)

	if c.state.IsGlobalAugmentedIncumbentUpdated {
		c.state.InitialTabuTenure = floor
		return
	}
	if c.state.IsNotUpdated {
		c.state.InitialTabuTenure = maxOf(c.state.InitialTabuTenure-1, floor)
		return
	}

	lastTenure := c.state.LastResult.TabuTenure
	if lastTenure > c.state.InitialTabuTenure {
		c.state.InitialTabuTenure = minOf(c.state.InitialTabuTenure+1, mutable)
		return
	}
	if lastTenure == c.state.InitialTabuTenure &&
		(c.state.CurrentPrimalIntensity > c.state.PreviousPrimalIntensity ||
			c.state.CurrentDualIntensity > c.state.PreviousDualIntensity) {
		return
	}
	c.state.InitialTabuTenure = maxOf(c.state.InitialTabuTenure-1, floor)
}

// updateNumberOfInitialModification derives the random kick-start count for
// the next round.
func (c *TabuSearchController) updateNumberOfInitialModification() {
	if c.state.IsGlobalAugmentedIncumbentUpdated ||
		!c.state.IsEnabledForciblyInitialModification {
		c.state.NumberOfInitialModification = 0
		return
	}

	count := int(math.Floor(c.option.TabuSearch.InitialModificationFixedRate *
		float64(c.state.InitialTabuTenure)))
	randomWidth := int(c.option.TabuSearch.InitialModificationRandomizeRate * float64(count))
	if randomWidth > 0 {
		count += c.rng.Intn(2*randomWidth+1) - randomWidth
	}
	c.state.NumberOfInitialModification = maxOf(1, count)
}

// updateIterationMax re-derives the inner budget when the round exhausted
// it: after a global update from the last local incumbent update iteration
// (which can shrink it), otherwise by growing the current budget.
func (c *TabuSearchController) updateIterationMax() {
	if c.state.LastResult.NumberOfIterations != c.state.IterationMax {
		return
	}

	var iterationMax int
	if c.state.IsGlobalAugmentedIncumbentUpdated {
		iterationMax = int(math.Ceil(
			float64(c.state.LastResult.LastLocalAugmentedIncumbentUpdateIteration) *
				c.option.TabuSearch.IterationIncreaseRate))
	} else {
		iterationMax = int(math.Ceil(
			float64(c.state.IterationMax) * c.option.TabuSearch.IterationIncreaseRate))
	}

	c.state.IterationMax = maxOf(c.option.TabuSearch.InitialTabuTenure,
		minOf(c.option.TabuSearch.IterationMax, iterationMax))
}

// updatePruningRateThreshold suppresses early stopping while the budget is
// still growing.
func (c *TabuSearchController) updatePruningRateThreshold() {
	if c.state.IterationMax == c.option.TabuSearch.IterationMax {
		c.state.PruningRateThreshold = c.option.TabuSearch.PruningRateThreshold
	} else {
		c.state.PruningRateThreshold = 1.0
	}
}

// updateSpecialNeighborhoodMoves enables the special generators when a full
// round passed without improvement and disables them after a global update.
func (c *TabuSearchController) updateSpecialNeighborhoodMoves(result TabuSearchCoreResult) {
	neighborhood := c.model.Neighborhood()

	if c.state.IsGlobalAugmentedIncumbentUpdated {
		if c.option.Neighborhood.IsEnabledChainMove {
			neighborhood.Chain().Disable()
		}
		return
	}

	if result.NumberOfIterations == c.state.IterationMax {
		if c.option.Neighborhood.IsEnabledChainMove && len(neighborhood.Chain().Moves()) > 0 {
			neighborhood.Chain().Enable()
		}
		if neighborhood.IsEnabledSpecialNeighborhoodMove() {
			neighborhood.ResetSpecialNeighborhoodMovesAvailability()
		}
	}
}

// curateChainMoves clears the store after a global update, otherwise sorts,
// deduplicates, and trims it to capacity.
func (c *TabuSearchController) curateChainMoves() {
	if !c.option.Neighborhood.IsEnabledChainMove {
		return
	}
	store := c.model.Neighborhood().Chain()

	if c.state.IsGlobalAugmentedIncumbentUpdated {
		store.Clear()
		return
	}

	if c.option.Neighborhood.ChainMoveCapacity > 0 {
		store.Sort()
		store.Deduplicate()
	}
	if len(store.Moves()) > c.option.Neighborhood.ChainMoveCapacity {
		switch c.option.Neighborhood.ChainMoveReduceMode {
		case mip.ChainMoveReduceShuffle:
			store.Shuffle(c.rng)
			store.Reduce(c.option.Neighborhood.ChainMoveCapacity)
		default:
			store.Reduce(c.option.Neighborhood.ChainMoveCapacity)
		}
	}
}

// updateCurrentSolution installs the chosen initial solution for the next
// round.
func (c *TabuSearchController) updateCurrentSolution() {
	holder := c.globalState.IncumbentHolder
	switch {
	case c.state.EmployingGlobalSolutionFlag:
		solution := holder.GlobalAugmentedIncumbentSolution()
		c.state.CurrentSolution = solution.ToSparse()
		c.state.CurrentSolutionScore = holder.GlobalAugmentedIncumbentScore()
		c.state.EmployingGlobalSolutionCountAfterRelaxation++
	case c.state.EmployingLocalSolutionFlag:
		solution := holder.LocalAugmentedIncumbentSolution()
		c.state.CurrentSolution = solution.ToSparse()
		c.state.CurrentSolutionScore = holder.LocalAugmentedIncumbentScore()
		c.state.EmployingLocalSolutionCountAfterRelaxation++
	case c.state.EmployingPreviousSolutionFlag:
		c.state.CurrentSolution = c.state.PreviousSolution
		c.state.CurrentSolutionScore = c.state.PreviousSolutionScore
		c.state.EmployingPreviousSolutionCountAfterRelaxation++
	default:
		// Keep the current solution; reached only when no round ran.
	}
}

// updateRelaxationStatus rolls the relaxation-side counters forward.
func (c *TabuSearchController) updateRelaxationStatus() {
	if c.state.IsEnabledPenaltyCoefficientRelaxing {
		c.state.PreviousPrimalIntensityBeforeRelaxation = c.state.CurrentPrimalIntensityBeforeRelaxation
		c.state.CurrentPrimalIntensityBeforeRelaxation = c.state.CurrentPrimalIntensity

		c.state.PreviousDualIntensityBeforeRelaxation = c.state.CurrentDualIntensityBeforeRelaxation
		c.state.CurrentDualIntensityBeforeRelaxation = c.state.CurrentDualIntensity

		c.state.IterationAfterRelaxation = 0
		c.state.EmployingPreviousSolutionCountAfterRelaxation = 0
		c.state.EmployingGlobalSolutionCountAfterRelaxation = 0
		c.state.EmployingLocalSolutionCountAfterRelaxation = 0
		c.state.RelaxationCount++
	} else {
		c.state.IterationAfterRelaxation++
	}
}

// logOuterIteration reports the round outcome and trend event.
func (c *TabuSearchController) logOuterIteration(result TabuSearchCoreResult) {
	holder := c.globalState.IncumbentHolder
	incumbent := holder.GlobalAugmentedIncumbentScore()

	c.logger.Info().
		Int("round", c.state.Iteration).
		Int("inner_iterations", result.NumberOfIterations).
		Str("inner_termination", string(result.TerminationStatus)).
		Float64("incumbent_objective", incumbent.Objective*c.model.Sign()).
		Float64("incumbent_violation", incumbent.TotalViolation).
		Float64("primal_intensity", c.state.CurrentPrimalIntensity).
		Float64("dual_intensity", c.state.CurrentDualIntensity).
		Int("initial_tabu_tenure", c.state.InitialTabuTenure).
		Int("initial_modifications", c.state.NumberOfInitialModification).
		Msg("tabu search round summary")

	if c.trend.IsEnabled() {
		c.trend.Write(TrendEvent{
			Event:                    "tabu_search_round",
			Phase:                    "tabu_search",
			Iteration:                intPtr(c.state.Iteration),
			Objective:                float64Ptr(incumbent.Objective * c.model.Sign()),
			TotalViolation:           float64Ptr(incumbent.TotalViolation),
			GlobalAugmentedObjective: float64Ptr(incumbent.GlobalAugmentedObjective),
			PrimalIntensity:          float64Ptr(c.state.CurrentPrimalIntensity),
			DualIntensity:            float64Ptr(c.state.CurrentDualIntensity),
			TabuTenure:               intPtr(c.state.InitialTabuTenure),
			NumberOfInitialModification: intPtr(c.state.NumberOfInitialModification),
			InnerIterationMax:           intPtr(c.state.IterationMax),
			TerminationStatus:           string(result.TerminationStatus),
		})
	}
}
