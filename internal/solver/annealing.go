package solver

import (
	"math"
	"math/rand"
	"time"

	"github.com/MaxHalford/eaopt"
	"github.com/rs/zerolog"

	"github.com/rbscholtus/mipcraft/internal/mip"
)

// solutionGenome adapts a variable assignment to eaopt's Genome interface
// so the annealing warm start can run over sparse solutions. Evaluation is
// read-only against the model structure, so cloned genomes are safe to
// score without touching the shared caches.
type solutionGenome struct {
	model  *mip.Model
	values []int
}

// Evaluate returns the global augmented objective of the assignment.
func (g *solutionGenome) Evaluate() (float64, error) {
	totalViolation := 0.0
	for i := range g.model.Constraints {
		c := &g.model.Constraints[i]
		if !c.IsEnabled {
			continue
		}
		value := c.Expression.Constant
		for _, t := range c.Expression.Terms {
			value += t.Coefficient * float64(g.values[t.Variable])
		}
		if c.IsLessOrEqual() {
			totalViolation += math.Max(value, 0.0)
		}
		if c.IsGreaterOrEqual() {
			totalViolation += math.Max(-value, 0.0)
		}
	}

	objective := g.model.Objective.Expression.Constant
	for _, t := range g.model.Objective.Expression.Terms {
		objective += t.Coefficient * float64(g.values[t.Variable])
	}

	return objective*g.model.Sign() + totalViolation*g.model.GlobalPenaltyCoefficient, nil
}

// Mutate re-draws one mutable variable uniformly within its bounds.
func (g *solutionGenome) Mutate(rng *rand.Rand) {
	mutable := make([]int, 0, len(g.model.Variables))
	for i := range g.model.Variables {
		if g.model.Variables[i].IsMutable() {
			mutable = append(mutable, i)
		}
	}
	if len(mutable) == 0 {
		return
	}
	vi := mutable[rng.Intn(len(mutable))]
	v := &g.model.Variables[vi]
	g.values[vi] = v.LowerBound + rng.Intn(v.Range())
}

// Crossover does nothing. It is defined only so *solutionGenome implements
// the eaopt.Genome interface.
func (g *solutionGenome) Crossover(other eaopt.Genome, rng *rand.Rand) {}

// Clone returns a copy of the assignment.
func (g *solutionGenome) Clone() eaopt.Genome {
	values := make([]int, len(g.values))
	copy(values, g.values)
	return &solutionGenome{model: g.model, values: values}
}

// AnnealingCore is an optional diversifying warm start: simulated
// annealing over raw assignments, scored by the global augmented
// objective. The best assignment found seeds the next phase.
type AnnealingCore struct {
	model       *mip.Model
	globalState *GlobalState
	option      Option
	logger      zerolog.Logger

	initialSolution mip.SparseSolution
}

// NewAnnealingCore prepares the phase from the given solution.
func NewAnnealingCore(
	globalState *GlobalState,
	initialSolution mip.SparseSolution,
	option Option,
	logger zerolog.Logger,
) *AnnealingCore {
	return &AnnealingCore{
		model:           globalState.Model,
		globalState:     globalState,
		option:          option,
		logger:          phaseLogger(logger, "annealing"),
		initialSolution: initialSolution,
	}
}

// acceptanceFunc maps the configured accept-worse policy onto an annealing
// acceptance probability over the generation index.
func acceptanceFunc(acceptWorse string) func(g, ng uint, e0, e1 float64) float64 {
	return func(g, ng uint, e0, e1 float64) float64 {
		t := 1.0 - float64(g)/float64(ng)
		switch acceptWorse {
		case "always":
			return 1.0
		case "never":
			return 0.0
		case "drop-slow":
			return (math.Cos(t*math.Pi) + 1.0) / 2.0
		case "cold":
			return 0.5 * t
		case "drop-fast":
			return math.Exp(-3.0 * (1 - t))
		default: // "temp"
			return t
		}
	}
}

// Run executes the annealing and returns the best assignment found.
func (c *AnnealingCore) Run() (mip.SparseSolution, error) {
	start := time.Now()
	c.logger.Info().Uint("generations", c.option.Annealing.Generations).Msg("annealing starts")

	c.model.ImportSparseSolution(&c.initialSolution)

	values := make([]int, c.model.NumberOfVariables())
	for i := range c.model.Variables {
		values[i] = c.model.Variables[i].Value
	}
	seed := &solutionGenome{model: c.model, values: values}

	cfg := eaopt.NewDefaultGAConfig()
	cfg.Model = eaopt.ModSimulatedAnnealing{
		Accept: acceptanceFunc(c.option.Annealing.AcceptWorse),
	}
	cfg.NGenerations = c.option.Annealing.Generations
	cfg.RNG = rand.New(rand.NewSource(c.option.General.Seed))

	minFit := math.MaxFloat64
	timeMax := c.option.Annealing.TimeMax
	cfg.Callback = func(ga *eaopt.GA) {
		fit := ga.HallOfFame[0].Fitness
		if fit < minFit {
			minFit = fit
			c.logger.Debug().
				Uint("generation", ga.Generations).
				Float64("best_augmented_objective", fit).
				Msg("annealing improvement")
		}
	}
	cfg.EarlyStop = func(ga *eaopt.GA) bool {
		return time.Since(start).Seconds() > timeMax
	}

	ga, err := cfg.NewGA()
	if err != nil {
		return c.initialSolution, err
	}
	if err := ga.Minimize(func(rng *rand.Rand) eaopt.Genome {
		return seed.Clone()
	}); err != nil {
		return c.initialSolution, err
	}

	best := ga.HallOfFame[0].Genome.(*solutionGenome)

	sparse := mip.NewSparseSolution()
	for i, v := range best.values {
		if v != 0 {
			sparse.Variables[i] = v
		}
	}
	c.model.ImportSparseSolution(&sparse)
	score := c.model.Evaluate(nil)
	c.globalState.IncumbentHolder.TryUpdate(c.model, score)
	result := c.model.ExportSparseSolution()

	c.logger.Info().
		Float64("best_augmented_objective", ga.HallOfFame[0].Fitness).
		Msg("annealing finished")
	return result, nil
}
