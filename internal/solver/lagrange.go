package solver

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/rbscholtus/mipcraft/internal/mip"
)

// lagrangianQueue is the fixed-size history of recent lagrangian values
// driving step-size adaptation and convergence detection.
type lagrangianQueue struct {
	values   []float64
	capacity int
	sum      float64
}

func newLagrangianQueue(capacity int) *lagrangianQueue {
	return &lagrangianQueue{capacity: maxOf(capacity, 1)}
}

func (q *lagrangianQueue) push(value float64) {
	if len(q.values) == q.capacity {
		q.sum -= q.values[0]
		q.values = q.values[1:]
	}
	q.values = append(q.values, value)
	q.sum += value
}

func (q *lagrangianQueue) size() int {
	return len(q.values)
}

func (q *lagrangianQueue) average() float64 {
	if len(q.values) == 0 {
		return 0.0
	}
	return q.sum / float64(len(q.values))
}

func (q *lagrangianQueue) max() float64 {
	best := -math.MaxFloat64
	for _, v := range q.values {
		if v > best {
			best = v
		}
	}
	return best
}

// LagrangeDualCoreResult summarizes the warm-start phase.
type LagrangeDualCoreResult struct {
	NumberOfIterations  int
	TerminationStatus   TerminationStatus
	LagrangianIncumbent float64
	TotalUpdateStatus   int
}

// LagrangeDualCore runs projected subgradient ascent on the linear
// Lagrangian dual. Each iteration pins every variable to the bound its
// reduced cost prefers, steps the multipliers along the constraint values,
// and projects them back to the cone their senses allow. The best
// lagrangian found contributes a dual bound; the best primal seeds the
// next phase.
type LagrangeDualCore struct {
	model       *mip.Model
	globalState *GlobalState
	option      Option
	logger      zerolog.Logger

	checkInterrupt func() bool
	generalStart   time.Time

	initialSolution mip.SparseSolution

	dual          []float64
	dualIncumbent []float64

	lagrangian          float64
	lagrangianIncumbent float64
	primalIncumbent     mip.SparseSolution

	stepSize float64
	queue    *lagrangianQueue

	currentSolutionScore mip.SolutionScore
	updateStatus         int
	totalUpdateStatus    int
	iteration            int

	feasibleSolutions []mip.SparseSolution
}

// NewLagrangeDualCore prepares the phase from the given solution.
func NewLagrangeDualCore(
	globalState *GlobalState,
	initialSolution mip.SparseSolution,
	checkInterrupt func() bool,
	generalStart time.Time,
	option Option,
	logger zerolog.Logger,
) *LagrangeDualCore {
	return &LagrangeDualCore{
		model:           globalState.Model,
		globalState:     globalState,
		option:          option,
		logger:          phaseLogger(logger, "lagrange_dual"),
		checkInterrupt:  checkInterrupt,
		generalStart:    generalStart,
		initialSolution: initialSolution,
	}
}

// PrimalIncumbent returns the best primal solution of the phase.
func (c *LagrangeDualCore) PrimalIncumbent() mip.SparseSolution {
	return c.primalIncumbent
}

// FeasibleSolutions returns the feasible solutions stored in this phase.
func (c *LagrangeDualCore) FeasibleSolutions() []mip.SparseSolution {
	return c.feasibleSolutions
}

// preprocess installs the initial solution and zeroes the dual state.
func (c *LagrangeDualCore) preprocess() {
	c.globalState.IncumbentHolder.ResetLocalAugmentedIncumbent()
	c.globalState.Memory.ResetLocalLastUpdateIterations()
	c.feasibleSolutions = c.feasibleSolutions[:0]

	c.model.ImportSparseSolution(&c.initialSolution)

	c.currentSolutionScore = c.model.Evaluate(nil)
	c.updateStatus = c.globalState.IncumbentHolder.TryUpdate(c.model, c.currentSolutionScore)
	c.totalUpdateStatus = StatusNotUpdated

	c.lagrangian = -math.MaxFloat64
	c.lagrangianIncumbent = -math.MaxFloat64
	c.primalIncumbent = c.model.ExportSparseSolution()

	c.dual = make([]float64, c.model.NumberOfConstraints())
	c.boundDual()
	c.dualIncumbent = append([]float64(nil), c.dual...)

	c.stepSize = 1.0 / float64(maxOf(1, c.model.NumberOfVariables()))
	c.queue = newLagrangianQueue(c.option.LagrangeDual.QueueSize)
}

// Run executes the subgradient loop until convergence or a bound fires.
func (c *LagrangeDualCore) Run() LagrangeDualCoreResult {
	start := time.Now()
	c.preprocess()

	result := LagrangeDualCoreResult{TerminationStatus: StatusIterationOver}
	c.logger.Info().Msg("lagrange dual starts")

	evaluationWorkers := 1
	if c.option.Parallel.IsEnabledMoveEvaluationParallelization {
		evaluationWorkers = c.option.Parallel.NumberOfThreadsMoveEvaluation
	}
	sign := c.model.Sign()

	for {
		elapsed := time.Since(start).Seconds()

		if c.checkInterrupt != nil && c.checkInterrupt() {
			result.TerminationStatus = StatusInterruption
			break
		}
		if elapsed > c.option.LagrangeDual.TimeMax ||
			time.Since(c.generalStart).Seconds()+c.option.LagrangeDual.TimeOffset >
				c.option.General.TimeMax {
			result.TerminationStatus = StatusTimeOver
			break
		}
		if c.iteration >= c.option.LagrangeDual.IterationMax {
			result.TerminationStatus = StatusIterationOver
			break
		}
		if reachedTarget(c.model, c.globalState.IncumbentHolder, c.option.General.TargetObjectiveValue) {
			result.TerminationStatus = StatusReachTarget
			break
		}

		c.updateDual()

		// Pin each mutable variable to the bound its reduced cost prefers.
		parallelFor(c.model.NumberOfVariables(), evaluationWorkers, func(i int) {
			v := &c.model.Variables[i]
			if v.IsFixed {
				return
			}
			coefficient := v.ObjectiveSensitivity
			for _, s := range v.ConstraintSensitivities {
				coefficient += c.dual[s.Constraint] * s.Sensitivity * sign
			}
			v.LagrangianCoefficient = coefficient
			if (coefficient > 0) == c.model.IsMinimization {
				v.Value = v.LowerBound
			} else {
				v.Value = v.UpperBound
			}
		})

		c.model.Update()

		score := c.model.Evaluate(nil)
		c.currentSolutionScore = score
		c.updateStatus = c.globalState.IncumbentHolder.TryUpdate(c.model, score)
		c.totalUpdateStatus |= c.updateStatus

		c.updateLagrangian()
		c.updateStepSize()

		if c.option.Output.IsEnabledStoreFeasibleSolutions && score.IsFeasible {
			c.feasibleSolutions = append(c.feasibleSolutions, c.model.ExportSparseSolution())
		}

		if c.iteration%maxOf(c.option.LagrangeDual.LogInterval, 1) == 0 ||
			c.updateStatus > StatusLocalAugmentedIncumbentUpdate {
			c.logger.Debug().
				Int("iteration", c.iteration).
				Float64("lagrangian", c.lagrangian*sign).
				Float64("step_size", c.stepSize).
				Float64("objective", score.Objective*sign).
				Float64("violation", score.TotalViolation).
				Msg("lagrange dual progress")
		}

		if c.satisfyConvergeCondition() {
			result.TerminationStatus = StatusConverge
			break
		}

		c.iteration++
	}

	// The best lagrangian is a valid dual bound for the original problem,
	// reported on the raw objective scale.
	if c.lagrangianIncumbent > -math.MaxFloat64 {
		c.globalState.IncumbentHolder.UpdateDualBound(c.lagrangianIncumbent * sign)
	}

	result.NumberOfIterations = c.iteration
	result.LagrangianIncumbent = c.lagrangianIncumbent
	result.TotalUpdateStatus = c.totalUpdateStatus

	c.logger.Info().
		Int("iterations", c.iteration).
		Float64("lagrangian_incumbent", c.lagrangianIncumbent).
		Str("termination", string(result.TerminationStatus)).
		Msg("lagrange dual finished")
	return result
}

// updateDual steps the multipliers along the subgradient and projects them.
func (c *LagrangeDualCore) updateDual() {
	for i := range c.model.Constraints {
		c.dual[i] += c.stepSize * c.model.Constraints[i].Value
	}
	c.boundDual()
}

// boundDual projects each multiplier to the cone its sense admits:
// less-or-equal keeps lambda >= 0, greater-or-equal keeps lambda <= 0,
// equality is unrestricted.
func (c *LagrangeDualCore) boundDual() {
	for i := range c.model.Constraints {
		switch c.model.Constraints[i].Sense {
		case mip.SenseLess:
			c.dual[i] = math.Max(c.dual[i], 0.0)
		case mip.SenseGreater:
			c.dual[i] = math.Min(c.dual[i], 0.0)
		}
	}
}

// updateLagrangian recomputes the lagrangian with the current multipliers
// and rolls the incumbent and history queue forward.
func (c *LagrangeDualCore) updateLagrangian() {
	c.lagrangian = c.model.ComputeLagrangian(c.dual) * c.model.Sign()

	if c.lagrangian > c.lagrangianIncumbent {
		c.lagrangianIncumbent = c.lagrangian
		c.primalIncumbent = c.model.ExportSparseSolution()
		copy(c.dualIncumbent, c.dual)
	}
	c.queue.push(c.lagrangian)
}

// updateStepSize extends the step above the queue average and shrinks it
// below the queue maximum.
func (c *LagrangeDualCore) updateStepSize() {
	if c.queue.size() == 0 {
		return
	}
	if c.lagrangian > c.queue.average() {
		c.stepSize *= c.option.LagrangeDual.StepSizeExtendRate
	}
	if c.lagrangian < c.queue.max() {
		c.stepSize *= c.option.LagrangeDual.StepSizeReduceRate
	}
}

// satisfyConvergeCondition fires when the queue is full and the lagrangian
// sits within tolerance of its recent average.
func (c *LagrangeDualCore) satisfyConvergeCondition() bool {
	if c.queue.size() != c.option.LagrangeDual.QueueSize {
		return false
	}
	average := c.queue.average()
	return math.Abs(c.lagrangian-average) <
		math.Max(1.0, math.Abs(average))*c.option.LagrangeDual.Tolerance
}
