package solver

import (
	"math"
	"math/rand"
	"time"

	"github.com/rs/zerolog"

	"github.com/rbscholtus/mipcraft/internal/mip"
)

// Auto-break thresholds: after a minimum number of iterations from a
// feasible solution, a round aborts when the cheapest infeasible trial's
// local penalty dwarfs the largest objective sensitivity by this margin.
const (
	autoBreakIterationMin = 10
	autoBreakMargin       = 100.0
)

// TabuSearchCoreState is the per-round state of the inner loop.
type TabuSearchCoreState struct {
	UpdateStatus      int
	TotalUpdateStatus int
	Iteration         int
	ElapsedTime       float64

	TerminationStatus TerminationStatus

	PreviousMove *mip.Move
	CurrentMove  *mip.Move

	CurrentSolutionScore  mip.SolutionScore
	PreviousSolutionScore mip.SolutionScore

	ObjectiveRange               Range
	LocalAugmentedObjectiveRange Range
	GlobalAugmentedObjectiveRange Range
	LocalPenaltyRange            Range

	Oscillation float64

	NumberOfMoves             int
	NumberOfEvaluatedMoves    int64
	NumberOfIneffectiveUpdates int

	IsFewPermissibleNeighborhood bool
	IsFoundNewFeasibleSolution   bool
	IsAspirated                  bool

	LastLocalAugmentedIncumbentUpdateIteration  int
	LastGlobalAugmentedIncumbentUpdateIteration int
	LastFeasibleIncumbentUpdateIteration        int

	NumberOfAllNeighborhoods         int
	NumberOfFeasibleNeighborhoods    int
	NumberOfPermissibleNeighborhoods int
	NumberOfImprovableNeighborhoods  int

	LastTabuTenureUpdatedIteration int

	CurrentPrimalIntensity  float64
	PreviousPrimalIntensity float64

	IntensityIncreaseCount int
	IntensityDecreaseCount int

	OriginalTabuTenure int
	TabuTenure         int
}

// TabuSearchCoreResult summarizes one finished round for the controller.
type TabuSearchCoreResult struct {
	TotalUpdateStatus      int
	NumberOfIterations     int
	NumberOfEvaluatedMoves int64

	TerminationStatus TerminationStatus

	TabuTenure                                  int
	LastLocalAugmentedIncumbentUpdateIteration  int
	LastGlobalAugmentedIncumbentUpdateIteration int
	LastFeasibleIncumbentUpdateIteration        int

	IsFewPermissibleNeighborhood bool
	IsFoundNewFeasibleSolution   bool

	ObjectiveConstraintRate       float64
	GlobalAugmentedObjectiveRange float64
	Performance                   float64
}

// newTabuSearchCoreResult derives the round summary from the final state.
func newTabuSearchCoreResult(state *TabuSearchCoreState) TabuSearchCoreResult {
	objectiveConstraintRate := math.Max(1.0,
		math.Max(state.ObjectiveRange.MaxAbs(), state.ObjectiveRange.Width())) /
		math.Max(1.0, state.LocalPenaltyRange.Min())

	performance := state.Oscillation / math.Max(1.0, float64(state.Iteration)) /
		math.Max(1.0, state.LocalAugmentedObjectiveRange.Width())

	return TabuSearchCoreResult{
		TotalUpdateStatus:      state.TotalUpdateStatus,
		NumberOfIterations:     state.Iteration,
		NumberOfEvaluatedMoves: state.NumberOfEvaluatedMoves,
		TerminationStatus:      state.TerminationStatus,
		TabuTenure:             state.TabuTenure,
		LastLocalAugmentedIncumbentUpdateIteration:  state.LastLocalAugmentedIncumbentUpdateIteration,
		LastGlobalAugmentedIncumbentUpdateIteration: state.LastGlobalAugmentedIncumbentUpdateIteration,
		LastFeasibleIncumbentUpdateIteration:        state.LastFeasibleIncumbentUpdateIteration,
		IsFewPermissibleNeighborhood:                state.IsFewPermissibleNeighborhood,
		IsFoundNewFeasibleSolution:                  state.IsFoundNewFeasibleSolution,
		ObjectiveConstraintRate:                     objectiveConstraintRate,
		GlobalAugmentedObjectiveRange:               state.GlobalAugmentedObjectiveRange.Width(),
		Performance:                                 performance,
	}
}

// TabuSearchCore runs one bounded round of tabu search from a given
// initial solution. The coordinator goroutine owns the model, memory, and
// incumbents; move evaluation fans out over worker goroutines writing to
// pre-sized score slices and rejoins before any mutation.
type TabuSearchCore struct {
	model       *mip.Model
	globalState *GlobalState
	option      Option
	logger      zerolog.Logger

	checkInterrupt func() bool
	generalStart   time.Time

	initialSolution mip.SparseSolution

	feasibleSolutions  []mip.SparseSolution
	incumbentSolutions []mip.SparseSolution

	state TabuSearchCoreState
	rng   *rand.Rand
}

// NewTabuSearchCore prepares a round starting from the given solution.
func NewTabuSearchCore(
	globalState *GlobalState,
	initialSolution mip.SparseSolution,
	checkInterrupt func() bool,
	generalStart time.Time,
	option Option,
	logger zerolog.Logger,
) *TabuSearchCore {
	return &TabuSearchCore{
		model:           globalState.Model,
		globalState:     globalState,
		option:          option,
		logger:          phaseLogger(logger, "tabu_search"),
		checkInterrupt:  checkInterrupt,
		generalStart:    generalStart,
		initialSolution: initialSolution,
		rng:             rand.New(rand.NewSource(option.TabuSearch.Seed)),
	}
}

// preprocess resets the per-round state and installs the initial solution.
func (c *TabuSearchCore) preprocess() {
	c.globalState.IncumbentHolder.ResetLocalAugmentedIncumbent()
	c.globalState.Memory.ResetLocalLastUpdateIterations()
	c.feasibleSolutions = c.feasibleSolutions[:0]
	c.incumbentSolutions = c.incumbentSolutions[:0]

	c.model.ImportSparseSolution(&c.initialSolution)
	c.model.ResetVariableObjectiveImprovabilities()
	c.model.ResetVariableFeasibilityImprovabilities()

	c.state = TabuSearchCoreState{TerminationStatus: StatusIterationOver}
	c.state.CurrentSolutionScore = c.model.Evaluate(nil)
	c.state.PreviousSolutionScore = c.state.CurrentSolutionScore
	c.state.UpdateStatus = c.globalState.IncumbentHolder.TryUpdate(c.model, c.state.CurrentSolutionScore)
	c.state.TotalUpdateStatus = StatusNotUpdated

	c.state.LastLocalAugmentedIncumbentUpdateIteration = -1
	c.state.LastGlobalAugmentedIncumbentUpdateIteration = -1
	c.state.LastFeasibleIncumbentUpdateIteration = -1

	c.state.ObjectiveRange.Update(c.state.CurrentSolutionScore.Objective)
	c.state.LocalAugmentedObjectiveRange.Update(c.state.CurrentSolutionScore.LocalAugmentedObjective)
	c.state.GlobalAugmentedObjectiveRange.Update(c.state.CurrentSolutionScore.GlobalAugmentedObjective)
	if !c.state.CurrentSolutionScore.IsFeasible {
		c.state.LocalPenaltyRange.Update(c.state.CurrentSolutionScore.LocalPenalty)
	}

	c.state.CurrentPrimalIntensity = c.globalState.Memory.PrimalIntensity()
	c.state.PreviousPrimalIntensity = c.state.CurrentPrimalIntensity

	c.state.OriginalTabuTenure = minOf(
		c.option.TabuSearch.InitialTabuTenure, c.model.NumberOfMutableVariables())
	if c.state.OriginalTabuTenure < 1 {
		c.state.OriginalTabuTenure = 1
	}
	c.state.TabuTenure = c.state.OriginalTabuTenure
}

// Run executes the round until a termination condition fires.
func (c *TabuSearchCore) Run() TabuSearchCoreResult {
	start := time.Now()
	c.preprocess()

	moveEvaluator := NewMoveEvaluator(c.model, c.globalState.Memory, &c.option)
	stepSizeAdjuster := NewIntegerStepSizeAdjuster(c.model)

	var trialSolutionScores []mip.SolutionScore
	var trialMoveScores []MoveScore
	var totalScores []float64

	c.logger.Debug().
		Float64("initial_objective", c.state.CurrentSolutionScore.Objective).
		Float64("initial_violation", c.state.CurrentSolutionScore.TotalViolation).
		Int("tabu_tenure", c.state.TabuTenure).
		Msg("tabu search round starts")

	for {
		c.state.ElapsedTime = time.Since(start).Seconds()

		if c.satisfyInterruptedCondition() ||
			c.satisfyTimeOverCondition() ||
			c.satisfyIterationOverCondition() ||
			c.satisfyReachTargetCondition() ||
			c.satisfyEarlyStopCondition() {
			break
		}

		c.updateMoves()

		if c.option.TabuSearch.IsEnabledShuffle {
			c.model.Neighborhood().ShuffleMoves(c.rng)
		}
		if c.option.TabuSearch.IsEnabledMoveCurtail {
			c.curtailMoves()
		}

		if c.satisfyOptimalOrNoMoveCondition() {
			break
		}

		trialMoves := c.model.Neighborhood().Moves()
		numberOfMoves := c.state.NumberOfMoves
		trialSolutionScores = resizeSolutionScores(trialSolutionScores, numberOfMoves)
		trialMoveScores = resizeMoveScores(trialMoveScores, numberOfMoves)
		totalScores = resizeFloats(totalScores, numberOfMoves)

		currentSolutionScore := c.state.CurrentSolutionScore
		iteration := c.state.Iteration

		// A variable altered at iteration i stays tagged through iteration
		// i + tenure: moves touching it are tabu for tenure iterations.
		duration := iteration - c.state.TabuTenure - 1

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
			trialMoveScores[i] = moveEvaluator.Evaluate(move, iteration, duration)

			totalScores[i] = trialSolutionScores[i].LocalAugmentedObjective +
				trialMoveScores[i].FrequencyPenalty +
				trialMoveScores[i].LagrangianPenalty

			if !trialMoveScores[i].IsPermissible {
				totalScores[i] += mip.LargeValue50
			}
			if move.IsSpecialNeighborhoodMove &&
				!(trialSolutionScores[i].IsObjectiveImprovable ||
					trialSolutionScores[i].IsFeasibilityImprovable) {
				totalScores[i] += mip.LargeValue100
			}
		})
		c.state.NumberOfEvaluatedMoves += int64(numberOfMoves)

		selectedIndex, isAspirated := c.selectMove(trialMoves, totalScores, trialMoveScores, trialSolutionScores)
		selectedMove := trialMoves[selectedIndex]

		if c.option.Neighborhood.IsEnabledIntegerStepSizeAdjuster &&
			selectedMove.Sense == mip.MoveSenseInteger &&
			trialSolutionScores[selectedIndex].GlobalAugmentedObjective <
				c.globalState.IncumbentHolder.GlobalAugmentedIncumbentObjective() {
			stepSizeAdjuster.Adjust(selectedMove, currentSolutionScore)
			trialSolutionScores[selectedIndex] = c.model.EvaluateMulti(selectedMove, currentSolutionScore)
		}

		c.model.Commit(selectedMove)

		randomWidth := int(c.option.TabuSearch.TabuTenureRandomizeRate * float64(c.state.TabuTenure))
		c.globalState.Memory.Update(selectedMove, c.state.Iteration, randomWidth, c.rng)

		c.updateState(selectedMove, selectedIndex, isAspirated, trialMoveScores, trialSolutionScores)

		if selectedMove.IsSpecialNeighborhoodMove {
			selectedMove.IsAvailable = false
		}

		if c.state.Iteration > 0 && c.option.Neighborhood.IsEnabledChainMove {
			c.updateChainMoves()
		}

		if c.option.Output.IsEnabledStoreFeasibleSolutions &&
			c.state.CurrentSolutionScore.IsFeasible {
			c.feasibleSolutions = append(c.feasibleSolutions, c.model.ExportSparseSolution())
		}

		if c.state.UpdateStatus > StatusNotUpdated ||
			c.state.Iteration%maxOf(c.option.TabuSearch.LogInterval, 1) == 0 {
			c.logProgress()
		}

		if c.option.TabuSearch.IsEnabledAutomaticBreak &&
			c.satisfyPenaltyCoefficientTooLargeCondition(trialSolutionScores) {
			break
		}

		c.state.Iteration++
	}

	if c.state.TotalUpdateStatus&StatusGlobalAugmentedIncumbentUpdate != 0 {
		incumbent := c.globalState.IncumbentHolder.GlobalAugmentedIncumbentSolution()
		c.incumbentSolutions = append(c.incumbentSolutions, incumbent.ToSparse())
	}

	c.state.ElapsedTime = time.Since(start).Seconds()

	c.logger.Debug().
		Int("iterations", c.state.Iteration).
		Str("termination", string(c.state.TerminationStatus)).
		Msg("tabu search round finished")

	return newTabuSearchCoreResult(&c.state)
}

// FeasibleSolutions returns the feasible solutions stored in this round.
func (c *TabuSearchCore) FeasibleSolutions() []mip.SparseSolution {
	return c.feasibleSolutions
}

// IncumbentSolutions returns the incumbents found in this round.
func (c *TabuSearchCore) IncumbentSolutions() []mip.SparseSolution {
	return c.incumbentSolutions
}

// State exposes the round state for the controller and tests.
func (c *TabuSearchCore) State() *TabuSearchCoreState {
	return &c.state
}

func (c *TabuSearchCore) satisfyInterruptedCondition() bool {
	if c.checkInterrupt != nil && c.checkInterrupt() {
		c.state.TerminationStatus = StatusInterruption
		return true
	}
	return false
}

func (c *TabuSearchCore) satisfyTimeOverCondition() bool {
	if c.state.ElapsedTime > c.option.TabuSearch.TimeMax {
		c.state.TerminationStatus = StatusTimeOver
		return true
	}
	total := time.Since(c.generalStart).Seconds()
	if total+c.option.TabuSearch.TimeOffset > c.option.General.TimeMax {
		c.state.TerminationStatus = StatusTimeOver
		return true
	}
	return false
}

func (c *TabuSearchCore) satisfyIterationOverCondition() bool {
	if c.state.Iteration >= c.option.TabuSearch.IterationMax {
		c.state.TerminationStatus = StatusIterationOver
		return true
	}
	return false
}

func (c *TabuSearchCore) satisfyReachTargetCondition() bool {
	if reachedTarget(c.model, c.globalState.IncumbentHolder, c.option.General.TargetObjectiveValue) {
		c.state.TerminationStatus = StatusReachTarget
		return true
	}
	return false
}

func (c *TabuSearchCore) satisfyEarlyStopCondition() bool {
	threshold := c.option.TabuSearch.PruningRateThreshold * float64(c.option.TabuSearch.IterationMax)
	if float64(c.state.NumberOfIneffectiveUpdates) > threshold {
		c.state.TerminationStatus = StatusEarlyStop
		return true
	}
	return false
}

// satisfyOptimalOrNoMoveCondition handles dual-bound closure and the empty
// neighborhood: a feasible linear solution with nothing improvable is
// optimal; anything else without moves is NO_MOVE.
func (c *TabuSearchCore) satisfyOptimalOrNoMoveCondition() bool {
	holder := c.globalState.IncumbentHolder

	if c.state.NumberOfMoves > 0 {
		if holder.IsFoundFeasibleSolution() && holder.HasDualBound() &&
			math.Abs(holder.FeasibleIncumbentObjective()*c.model.Sign()-holder.DualBound()) < mip.Eps {
			c.state.TerminationStatus = StatusOptimal
			return true
		}
		return false
	}

	if c.model.IsLinear() && c.model.IsFeasible() {
		if c.model.HasObjectiveImprovableVariable() {
			c.state.TerminationStatus = StatusNoMove
		} else {
			c.state.TerminationStatus = StatusOptimal
		}
		return true
	}
	c.state.TerminationStatus = StatusNoMove
	return true
}

// satisfyPenaltyCoefficientTooLargeCondition detects over-tightened
// penalties: every infeasible trial costs far more penalty than the best
// objective movement could ever recover.
func (c *TabuSearchCore) satisfyPenaltyCoefficientTooLargeCondition(trialSolutionScores []mip.SolutionScore) bool {
	if c.state.Iteration <= autoBreakIterationMin {
		return false
	}
	if !c.state.CurrentSolutionScore.IsFeasible {
		return false
	}

	minInfeasibleLocalPenalty := math.MaxFloat64
	hasInfeasibleTrial := false
	maxObjectiveSensitivity := 0.0

	for i := range trialSolutionScores {
		if !trialSolutionScores[i].IsFeasible {
			minInfeasibleLocalPenalty = math.Min(minInfeasibleLocalPenalty, trialSolutionScores[i].LocalPenalty)
			hasInfeasibleTrial = true
		}
		sensitivity := math.Abs(trialSolutionScores[i].ObjectiveImprovement)
		if sensitivity > maxObjectiveSensitivity {
			maxObjectiveSensitivity = sensitivity
		}
	}

	if !hasInfeasibleTrial {
		return false
	}

	if maxObjectiveSensitivity*autoBreakMargin < minInfeasibleLocalPenalty {
		c.state.TerminationStatus = StatusPenaltyCoefficientTooLarge
		return true
	}
	return false
}

// updateMoves refreshes the candidate list under the configured
// improvability screening mode.
func (c *TabuSearchCore) updateMoves() {
	neighborhood := c.model.Neighborhood()
	parallel := c.option.Parallel.IsEnabledMoveUpdateParallelization
	workers := c.option.Parallel.NumberOfThreadsMoveUpdate

	mode := c.option.Neighborhood.ImprovabilityScreeningMode
	if !c.model.IsLinear() || mode == ScreeningOff {
		neighborhood.UpdateMoves(mip.AcceptAll, parallel, workers)
		c.state.NumberOfMoves = len(neighborhood.Moves())
		return
	}

	if c.state.Iteration == 0 {
		c.model.UpdateVariableObjectiveImprovabilities()
	} else {
		c.model.UpdateVariableObjectiveImprovabilities(relatedVariables(c.state.CurrentMove)...)
	}

	accept := mip.Acceptance{}
	switch mode {
	case ScreeningSoft:
		if c.model.IsFeasible() {
			accept = mip.Acceptance{ObjectiveImprovable: true}
		} else {
			c.model.ResetVariableFeasibilityImprovabilities()
			c.model.UpdateVariableFeasibilityImprovabilities()
			accept = mip.Acceptance{ObjectiveImprovable: true, FeasibilityImprovable: true}
		}
	case ScreeningAggressive:
		if c.model.IsFeasible() {
			accept = mip.Acceptance{ObjectiveImprovable: true}
		} else {
			c.model.ResetVariableFeasibilityImprovabilities()
			c.model.UpdateVariableFeasibilityImprovabilities()
			accept = mip.Acceptance{FeasibilityImprovable: true}
		}
	case ScreeningIntensive:
		if c.model.IsFeasible() {
			accept = mip.Acceptance{ObjectiveImprovable: true}
		} else {
			if c.state.Iteration == 0 || c.state.CurrentMove == nil {
				c.model.ResetVariableFeasibilityImprovabilities()
				c.model.UpdateVariableFeasibilityImprovabilities()
			} else {
				related := c.state.CurrentMove.RelatedConstraints
				c.model.ResetVariableFeasibilityImprovabilities(related...)
				c.model.UpdateVariableFeasibilityImprovabilities(related...)
			}
			accept = mip.Acceptance{FeasibilityImprovable: true}
		}
	default:
		accept = mip.AcceptAll
	}

	neighborhood.UpdateMoves(accept, parallel, workers)
	c.state.NumberOfMoves = len(neighborhood.Moves())
}

// curtailMoves keeps only the leading share of the candidate list.
func (c *TabuSearchCore) curtailMoves() {
	preserved := int(math.Floor(c.option.TabuSearch.MovePreserveRate * float64(c.state.NumberOfMoves)))
	c.model.Neighborhood().Truncate(preserved)
	c.state.NumberOfMoves = len(c.model.Neighborhood().Moves())
}

// selectMove picks the committed move: random during the kick-start
// iterations, otherwise the argmin of the total score with a stable
// tie-break (fewer related constraints, then lower global augmented
// objective), overridden by aspiration when a move would improve the
// global augmented incumbent.
func (c *TabuSearchCore) selectMove(
	trialMoves []*mip.Move,
	totalScores []float64,
	trialMoveScores []MoveScore,
	trialSolutionScores []mip.SolutionScore,
) (int, bool) {
	if c.state.Iteration < c.option.TabuSearch.NumberOfInitialModification {
		return c.rng.Intn(c.state.NumberOfMoves), false
	}

	selected := 0
	for i := 1; i < len(totalScores); i++ {
		if totalScores[i] < totalScores[selected] {
			selected = i
			continue
		}
		if totalScores[i] == totalScores[selected] {
			if len(trialMoves[i].RelatedConstraints) < len(trialMoves[selected].RelatedConstraints) {
				selected = i
			} else if len(trialMoves[i].RelatedConstraints) == len(trialMoves[selected].RelatedConstraints) &&
				trialSolutionScores[i].GlobalAugmentedObjective <
					trialSolutionScores[selected].GlobalAugmentedObjective {
				selected = i
			}
		}
	}

	if !c.option.TabuSearch.IgnoreTabuIfGlobalIncumbent {
		return selected, false
	}

	argminGlobal := mip.ArgminGlobalAugmentedObjective(trialSolutionScores)
	if trialSolutionScores[argminGlobal].GlobalAugmentedObjective+mip.Eps <
		c.globalState.IncumbentHolder.GlobalAugmentedIncumbentObjective() {
		isAspirated := !trialMoveScores[argminGlobal].IsPermissible
		return argminGlobal, isAspirated
	}
	return selected, false
}

// updateState refreshes the per-round bookkeeping after a commit.
func (c *TabuSearchCore) updateState(
	selectedMove *mip.Move,
	selectedIndex int,
	isAspirated bool,
	trialMoveScores []MoveScore,
	trialSolutionScores []mip.SolutionScore,
) {
	c.state.PreviousMove = c.state.CurrentMove
	c.state.CurrentMove = selectedMove

	c.state.PreviousSolutionScore = c.state.CurrentSolutionScore
	c.state.CurrentSolutionScore = trialSolutionScores[selectedIndex]

	c.state.UpdateStatus = c.globalState.IncumbentHolder.TryUpdate(c.model, c.state.CurrentSolutionScore)
	c.state.TotalUpdateStatus |= c.state.UpdateStatus
	if c.state.UpdateStatus == StatusNotUpdated {
		c.state.NumberOfIneffectiveUpdates++
	}

	c.state.IsAspirated = isAspirated

	c.state.ObjectiveRange.Update(c.state.CurrentSolutionScore.Objective)
	c.state.LocalAugmentedObjectiveRange.Update(c.state.CurrentSolutionScore.LocalAugmentedObjective)
	c.state.GlobalAugmentedObjectiveRange.Update(c.state.CurrentSolutionScore.GlobalAugmentedObjective)
	if !c.state.CurrentSolutionScore.IsFeasible {
		c.state.LocalPenaltyRange.Update(c.state.CurrentSolutionScore.LocalPenalty)
	}
	c.state.Oscillation += math.Abs(c.state.CurrentSolutionScore.LocalAugmentedObjective -
		c.state.PreviousSolutionScore.LocalAugmentedObjective)

	if c.state.CurrentSolutionScore.IsFeasible {
		c.state.IsFoundNewFeasibleSolution = true
	}

	if c.state.UpdateStatus&StatusLocalAugmentedIncumbentUpdate != 0 {
		c.state.LastLocalAugmentedIncumbentUpdateIteration = c.state.Iteration
	}
	if c.state.UpdateStatus&StatusGlobalAugmentedIncumbentUpdate != 0 {
		c.state.LastGlobalAugmentedIncumbentUpdateIteration = c.state.Iteration
	}
	if c.state.UpdateStatus&StatusFeasibleIncumbentUpdate != 0 {
		c.state.LastFeasibleIncumbentUpdateIteration = c.state.Iteration
	}

	c.updateNeighborhoodCounts(trialMoveScores, trialSolutionScores)

	if c.option.TabuSearch.IsEnabledAutomaticTabuTenureAdjustment {
		c.updateTabuTenure()
	}
}

// updateNeighborhoodCounts refreshes the per-iteration neighborhood
// statistics and latches the few-permissible flag.
func (c *TabuSearchCore) updateNeighborhoodCounts(
	trialMoveScores []MoveScore,
	trialSolutionScores []mip.SolutionScore,
) {
	c.state.NumberOfAllNeighborhoods = c.state.NumberOfMoves

	logTick := c.state.Iteration%maxOf(c.option.TabuSearch.LogInterval, 1) == 0 ||
		c.state.UpdateStatus > StatusNotUpdated

	if logTick {
		c.state.NumberOfFeasibleNeighborhoods = 0
		c.state.NumberOfPermissibleNeighborhoods = 0
		c.state.NumberOfImprovableNeighborhoods = 0

		for i := range trialSolutionScores {
			if trialSolutionScores[i].IsFeasible {
				c.state.NumberOfFeasibleNeighborhoods++
			}
			if trialSolutionScores[i].IsObjectiveImprovable ||
				trialSolutionScores[i].IsFeasibilityImprovable {
				c.state.NumberOfImprovableNeighborhoods++
			}
		}
		for i := range trialMoveScores {
			if trialMoveScores[i].IsPermissible {
				c.state.NumberOfPermissibleNeighborhoods++
			}
		}
		if c.state.NumberOfPermissibleNeighborhoods == 0 {
			c.state.IsFewPermissibleNeighborhood = true
		}
		return
	}

	anyPermissible := false
	for i := range trialMoveScores {
		if trialMoveScores[i].IsPermissible {
			anyPermissible = true
			break
		}
	}
	if !anyPermissible {
		c.state.IsFewPermissibleNeighborhood = true
	}
}

// updateTabuTenure samples the primal intensity on (tenure+1) intervals
// and nudges the tenure with the configured hysteresis; a global incumbent
// update reverts an inflated tenure to the original value.
func (c *TabuSearchCore) updateTabuTenure() {
	if c.state.UpdateStatus&StatusGlobalAugmentedIncumbentUpdate != 0 &&
		c.state.TabuTenure > c.state.OriginalTabuTenure {
		c.state.TabuTenure = c.state.OriginalTabuTenure
		c.state.LastTabuTenureUpdatedIteration = c.state.Iteration
		c.state.IntensityIncreaseCount = 0
		c.state.IntensityDecreaseCount = 0
		c.logger.Trace().Int("tabu_tenure", c.state.TabuTenure).Msg("tabu tenure reverted")
		return
	}

	if (c.state.Iteration-c.state.LastTabuTenureUpdatedIteration)%(c.state.TabuTenure+1) != 0 {
		return
	}

	c.state.PreviousPrimalIntensity = c.state.CurrentPrimalIntensity
	c.state.CurrentPrimalIntensity = c.globalState.Memory.PrimalIntensity()

	if c.state.CurrentPrimalIntensity > c.state.PreviousPrimalIntensity {
		c.state.IntensityIncreaseCount++
		c.state.IntensityDecreaseCount = 0

		if c.state.IntensityIncreaseCount > c.option.TabuSearch.IntensityIncreaseCountThreshold {
			c.state.IntensityIncreaseCount = 0
			c.state.TabuTenure = minOf(c.state.TabuTenure+1, c.model.NumberOfMutableVariables())
			c.state.LastTabuTenureUpdatedIteration = c.state.Iteration
			c.logger.Trace().Int("tabu_tenure", c.state.TabuTenure).Msg("tabu tenure increased")
		}
	} else {
		c.state.IntensityDecreaseCount++
		c.state.IntensityIncreaseCount = 0

		if c.state.IntensityDecreaseCount > c.option.TabuSearch.IntensityDecreaseCountThreshold {
			c.state.IntensityDecreaseCount = 0
			c.state.TabuTenure = maxOf(c.state.TabuTenure-1, maxOf(1, c.state.OriginalTabuTenure/2))
			c.state.LastTabuTenureUpdatedIteration = c.state.Iteration
			c.logger.Trace().Int("tabu_tenure", c.state.TabuTenure).Msg("tabu tenure decreased")
		}
	}
}

// updateChainMoves fuses the previous and current moves into a chain
// candidate (plus its inverse) when their kinds pair up, registering them
// when the overlap is strong enough and no variable repeats.
func (c *TabuSearchCore) updateChainMoves() {
	previous := c.state.PreviousMove
	current := c.state.CurrentMove
	if previous == nil || current == nil {
		return
	}

	pairsUp := (previous.Sense == mip.MoveSenseBinary && current.Sense == mip.MoveSenseBinary &&
		previous.Alterations[0].Value != current.Alterations[0].Value) ||
		(previous.Sense == mip.MoveSenseChain && current.Sense == mip.MoveSenseChain) ||
		(previous.Sense == mip.MoveSenseTwoFlip && current.Sense == mip.MoveSenseTwoFlip)
	if !pairsUp {
		return
	}

	var chainMove mip.Move
	if previous.Alterations[0].Variable < current.Alterations[0].Variable {
		chainMove = mip.Fuse(previous, current, c.model)
	} else {
		chainMove = mip.Fuse(current, previous, c.model)
	}

	if chainMove.OverlapRate > c.option.Neighborhood.ChainMoveOverlapRateThreshold &&
		!chainMove.HasDuplicateVariable() {
		store := c.model.Neighborhood().Chain()
		store.Register(chainMove)
		store.Register(chainMove.Inverse())
	}
}

// logProgress emits one inner-loop progress row.
func (c *TabuSearchCore) logProgress() {
	incumbent := c.globalState.IncumbentHolder.GlobalAugmentedIncumbentScore()
	c.logger.Debug().
		Int("iteration", c.state.Iteration).
		Int("moves", c.state.NumberOfAllNeighborhoods).
		Int("permissible", c.state.NumberOfPermissibleNeighborhoods).
		Float64("objective", c.state.CurrentSolutionScore.Objective*c.model.Sign()).
		Float64("violation", c.state.CurrentSolutionScore.TotalViolation).
		Float64("incumbent_objective", incumbent.Objective*c.model.Sign()).
		Bool("aspirated", c.state.IsAspirated).
		Msg("tabu search progress")
}

// reachedTarget reports whether the feasible incumbent reached the user
// target on the raw objective scale.
func reachedTarget(model *mip.Model, holder *IncumbentHolder, target float64) bool {
	if target == -math.MaxFloat64 || !holder.IsFoundFeasibleSolution() {
		return false
	}
	raw := holder.FeasibleIncumbentObjective() * model.Sign()
	if model.IsMinimization {
		return raw <= target
	}
	return raw >= target
}

// relatedVariables lists the variables altered by a move; a nil move has
// none.
func relatedVariables(move *mip.Move) []int {
	if move == nil {
		return nil
	}
	variables := make([]int, len(move.Alterations))
	for i, a := range move.Alterations {
		variables[i] = a.Variable
	}
	return variables
}

func resizeSolutionScores(scores []mip.SolutionScore, size int) []mip.SolutionScore {
	if cap(scores) < size {
		return make([]mip.SolutionScore, size)
	}
	return scores[:size]
}

func resizeMoveScores(scores []MoveScore, size int) []MoveScore {
	if cap(scores) < size {
		return make([]MoveScore, size)
	}
	return scores[:size]
}

func resizeFloats(values []float64, size int) []float64 {
	if cap(values) < size {
		return make([]float64, size)
	}
	return values[:size]
}
