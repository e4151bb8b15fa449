package solver

import (
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/rbscholtus/mipcraft/internal/mip"
)

// NamedSolution is the user-facing incumbent: variable values by name and
// the raw (unfolded) objective.
type NamedSolution struct {
	VariableValues map[string]int `json:"variable_values"`
	Objective      float64        `json:"objective"`
	TotalViolation float64        `json:"total_violation"`
	IsFeasible     bool           `json:"is_feasible"`
}

// Result is the outcome of one solve: the named incumbent, the status
// metadata, and the feasible-solution archive.
type Result struct {
	Solution          NamedSolution
	Status            Status
	FeasibleSolutions []mip.SparseSolution
}

// FeasibleIncumbentFound reports whether the run observed any feasible
// solution.
func (r *Result) FeasibleIncumbentFound() bool {
	return r.Solution.IsFeasible
}

// Solver orchestrates the phases over one model: optional annealing,
// optional Lagrange dual, optional local search, then the tabu search
// controller. The current best sparse solution is passed forward between
// phases through the shared incumbent holder.
type Solver struct {
	model  *mip.Model
	option Option

	globalState *GlobalState
	logger      zerolog.Logger
	trend       *TrendLogger

	consoleWriter io.Writer
	trendWriter   io.Writer

	currentSolution mip.SparseSolution
	startedAt       time.Time
	phases          []PhaseSummary
}

// NewSolver prepares a solver for the model with the given options.
// Console output goes to os.Stderr unless overridden with SetWriters.
func NewSolver(model *mip.Model, option Option) *Solver {
	return &Solver{
		model:         model,
		option:        option,
		consoleWriter: os.Stderr,
	}
}

// SetWriters overrides the console and trend-log writers; either may be
// nil to disable that channel.
func (s *Solver) SetWriters(console, trend io.Writer) {
	s.consoleWriter = console
	s.trendWriter = trend
}

// Solve runs every enabled phase and assembles the result. It returns an
// error only for boundary precondition violations; search outcomes are
// reported through the termination statuses.
func (s *Solver) Solve(ctx context.Context) (*Result, error) {
	if err := s.preprocess(); err != nil {
		return nil, err
	}

	checkInterrupt := func() bool {
		select {
		case <-ctx.Done():
			return true
		default:
			return false
		}
	}

	if s.option.Annealing.IsEnabled {
		s.runAnnealing()
	}
	if s.option.LagrangeDual.IsEnabled {
		s.runLagrangeDual(checkInterrupt)
	}
	if s.option.LocalSearch.IsEnabled {
		s.runLocalSearch(checkInterrupt)
	}
	finalStatus := s.runTabuSearch(checkInterrupt)

	return s.postprocess(finalStatus)
}

// preprocess validates the model, wires the shared state, and enables the
// default neighborhood.
func (s *Solver) preprocess() error {
	if err := s.model.MarkSolved(); err != nil {
		return err
	}
	if s.model.NumberOfVariables() == 0 {
		return fmt.Errorf("model %q has no variables", s.model.Name)
	}

	s.startedAt = time.Now()
	s.option.ResolveThreadCounts()

	s.logger = NewLogger(s.option.Output.Verbose, s.consoleWriter)
	s.trend = NewTrendLogger(s.resolveTrendWriter())

	s.model.SetupStructure()

	// Every local coefficient and the single global coefficient start at
	// the configured initial penalty.
	s.model.GlobalPenaltyCoefficient = s.option.Penalty.InitialPenaltyCoefficient
	for i := range s.model.Constraints {
		s.model.Constraints[i].ResetLocalPenaltyCoefficients(s.option.Penalty.InitialPenaltyCoefficient)
	}

	neighborhood := mip.NewNeighborhood(s.model)
	if s.option.Neighborhood.IsEnabledBinaryMove {
		neighborhood.Binary().Enable()
	}
	if s.option.Neighborhood.IsEnabledIntegerMove {
		neighborhood.Integer().Enable()
	}
	if s.option.Neighborhood.IsEnabledSelectionMove {
		neighborhood.Selection().Enable()
	}

	if s.option.Neighborhood.IsEnabledChainMove && !s.model.HasChainMoveEffectiveConstraints() {
		s.option.Neighborhood.IsEnabledChainMove = false
		s.logger.Warn().Msg("chain move disabled: no zero-one coefficient constraints")
	}

	s.globalState = NewGlobalState(s.model, s.option.Output.FeasibleSolutionsCapacity)

	s.model.Update()
	s.globalState.IncumbentHolder.UpdateDualBound(s.model.ComputeNaiveDualBound())

	initialScore := s.model.Evaluate(nil)
	s.globalState.IncumbentHolder.TryUpdate(s.model, initialScore)
	s.currentSolution = s.model.ExportSparseSolution()

	s.logger.Info().
		Str("model", s.model.Name).
		Int("variables", s.model.NumberOfVariables()).
		Int("constraints", s.model.NumberOfConstraints()).
		Float64("initial_objective", initialScore.Objective*s.model.Sign()).
		Float64("initial_violation", initialScore.TotalViolation).
		Msg("solve starts")
	return nil
}

// resolveTrendWriter opens the configured trend log target.
func (s *Solver) resolveTrendWriter() io.Writer {
	if !s.option.Output.IsEnabledWriteTrend {
		return nil
	}
	if s.trendWriter != nil {
		return s.trendWriter
	}
	if s.option.Output.TrendLogPath == "" {
		return nil
	}
	f, err := os.Create(s.option.Output.TrendLogPath)
	if err != nil {
		s.logger.Warn().Err(err).Msg("trend log disabled: cannot create file")
		return nil
	}
	return f
}

// advanceCurrentSolution pulls the global incumbent forward as the next
// phase's starting point.
func (s *Solver) advanceCurrentSolution() {
	incumbent := s.globalState.IncumbentHolder.GlobalAugmentedIncumbentSolution()
	s.currentSolution = incumbent.ToSparse()
}

func (s *Solver) runAnnealing() {
	phaseStart := time.Now()
	core := NewAnnealingCore(s.globalState, s.currentSolution, s.option, s.logger)
	solution, err := core.Run()
	status := StatusIterationOver
	if err != nil {
		s.logger.Warn().Err(err).Msg("annealing phase skipped")
		status = StatusNoMove
	} else {
		s.currentSolution = solution
	}
	s.phases = append(s.phases, PhaseSummary{
		Name:              "annealing",
		Iterations:        int64(s.option.Annealing.Generations),
		ElapsedSeconds:    time.Since(phaseStart).Seconds(),
		TerminationStatus: status,
	})
}

func (s *Solver) runLagrangeDual(checkInterrupt func() bool) {
	phaseStart := time.Now()
	core := NewLagrangeDualCore(
		s.globalState, s.currentSolution, checkInterrupt, s.startedAt, s.option, s.logger)
	result := core.Run()

	// The phase's primal incumbent seeds the next phase.
	s.currentSolution = core.PrimalIncumbent()
	if s.option.Output.IsEnabledStoreFeasibleSolutions {
		s.globalState.FeasibleSolutionArchive.Push(core.FeasibleSolutions())
	}

	s.phases = append(s.phases, PhaseSummary{
		Name:              "lagrange_dual",
		Iterations:        int64(result.NumberOfIterations),
		ElapsedSeconds:    time.Since(phaseStart).Seconds(),
		TerminationStatus: result.TerminationStatus,
	})
}

func (s *Solver) runLocalSearch(checkInterrupt func() bool) {
	phaseStart := time.Now()
	core := NewLocalSearchCore(
		s.globalState, s.currentSolution, checkInterrupt, s.startedAt, s.option, s.logger)
	result := core.Run()

	s.advanceCurrentSolution()
	if s.option.Output.IsEnabledStoreFeasibleSolutions {
		s.globalState.FeasibleSolutionArchive.Push(core.FeasibleSolutions())
	}

	s.phases = append(s.phases, PhaseSummary{
		Name:              "local_search",
		Iterations:        int64(result.NumberOfIterations),
		ElapsedSeconds:    time.Since(phaseStart).Seconds(),
		TerminationStatus: result.TerminationStatus,
	})
}

func (s *Solver) runTabuSearch(checkInterrupt func() bool) TerminationStatus {
	phaseStart := time.Now()
	controller := NewTabuSearchController(
		s.globalState, s.currentSolution, checkInterrupt, s.startedAt,
		s.option, s.logger, s.trend)
	result := controller.Run()

	s.advanceCurrentSolution()
	s.phases = append(s.phases, PhaseSummary{
		Name:              "tabu_search",
		Iterations:        result.TotalInnerIterations,
		ElapsedSeconds:    time.Since(phaseStart).Seconds(),
		TerminationStatus: result.TerminationStatus,
	})
	return result.TerminationStatus
}

// postprocess assembles the named solution and the status record.
func (s *Solver) postprocess(finalStatus TerminationStatus) (*Result, error) {
	holder := s.globalState.IncumbentHolder

	var incumbent mip.DenseSolution
	isFeasible := holder.IsFoundFeasibleSolution()
	if isFeasible {
		incumbent = holder.FeasibleIncumbentSolution()
	} else {
		incumbent = holder.GlobalAugmentedIncumbentSolution()
	}

	solution := NamedSolution{
		VariableValues: make(map[string]int, len(incumbent.VariableValues)),
		Objective:      incumbent.Objective,
		TotalViolation: incumbent.TotalViolation,
		IsFeasible:     incumbent.IsFeasible,
	}
	for i, value := range incumbent.VariableValues {
		solution.VariableValues[s.model.Variables[i].Name] = value
	}

	status := Status{
		RunID:               uuid.NewString(),
		ModelName:           s.model.Name,
		StartedAt:           s.startedAt,
		FinishedAt:          time.Now(),
		NumberOfVariables:   s.model.NumberOfVariables(),
		NumberOfConstraints: s.model.NumberOfConstraints(),
		ElapsedSeconds:      time.Since(s.startedAt).Seconds(),
		TerminationStatus:   finalStatus,
		Phases:              s.phases,
	}

	if holder.HasDualBound() {
		bound := holder.DualBound()
		if bound > -math.MaxFloat64 && bound < math.MaxFloat64 {
			status.DualBound = &bound
		}
	}

	for i := range s.model.Constraints {
		c := &s.model.Constraints[i]
		status.PenaltyCoefficients = append(status.PenaltyCoefficients, PenaltyCoefficientRecord{
			Name:           c.Name,
			Less:           c.LocalPenaltyCoefficientLess,
			Greater:        c.LocalPenaltyCoefficientGreater,
			ViolationCount: c.ViolationCount,
		})
	}
	for i := range s.model.Variables {
		v := &s.model.Variables[i]
		status.VariableUpdateCounts = append(status.VariableUpdateCounts, VariableUpdateRecord{
			Name:        v.Name,
			UpdateCount: v.UpdateCount,
		})
	}

	if s.option.Output.StatusPath != "" {
		if err := status.WriteJSON(s.option.Output.StatusPath); err != nil {
			s.logger.Warn().Err(err).Msg("status file not written")
		}
	}

	s.logger.Info().
		Float64("objective", solution.Objective).
		Float64("violation", solution.TotalViolation).
		Bool("feasible", solution.IsFeasible).
		Str("termination", string(finalStatus)).
		Msg("solve finished")

	return &Result{
		Solution:          solution,
		Status:            status,
		FeasibleSolutions: s.globalState.FeasibleSolutionArchive.Solutions(),
	}, nil
}

// Solve is the package-level convenience entry: default writers, given
// options.
func Solve(ctx context.Context, model *mip.Model, option Option) (*Result, error) {
	return NewSolver(model, option).Solve(ctx)
}
