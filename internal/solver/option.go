// Package solver implements the metaheuristic search engines for
// mixed-integer programs: a tabu search core wrapped in an adaptive outer
// controller, with optional Lagrangian-dual, local-search, and annealing
// warm-start phases, and the shared memory / incumbent / archive structures
// they coordinate through.
package solver

import (
	"math"
	"runtime"

	"github.com/rbscholtus/mipcraft/internal/mip"
)

// TabuMode selects how alterations combine in the tabu test.
type TabuMode int

const (
	// TabuModeAll forbids a move only when every altered variable is still
	// tagged. Selection moves bypass this branch.
	TabuModeAll TabuMode = iota
	// TabuModeAny forbids a move when any altered variable is still tagged.
	TabuModeAny
)

// String returns the name of the tabu mode.
func (m TabuMode) String() string {
	if m == TabuModeAny {
		return "Any"
	}
	return "All"
}

// ImprovabilityScreeningMode selects the pre-filter applied during move
// generation.
type ImprovabilityScreeningMode int

const (
	ScreeningOff ImprovabilityScreeningMode = iota
	ScreeningSoft
	ScreeningAggressive
	ScreeningIntensive
	ScreeningAutomatic
)

// String returns the name of the screening mode.
func (m ImprovabilityScreeningMode) String() string {
	switch m {
	case ScreeningOff:
		return "Off"
	case ScreeningSoft:
		return "Soft"
	case ScreeningAggressive:
		return "Aggressive"
	case ScreeningIntensive:
		return "Intensive"
	case ScreeningAutomatic:
		return "Automatic"
	default:
		return "Unknown"
	}
}

// VerboseLevel controls console output granularity.
type VerboseLevel int

const (
	VerboseOff VerboseLevel = iota
	VerboseWarning
	VerboseOuter
	VerboseInner
	VerboseFull
	VerboseDebug
)

// GeneralOption bounds the whole run.
type GeneralOption struct {
	TimeMax              float64 `json:"time_max"`
	IterationMax         int     `json:"iteration_max"`
	TargetObjectiveValue float64 `json:"target_objective_value"`
	Seed                 int64   `json:"seed"`
}

// DefaultGeneralOption returns the defaults for the general group.
func DefaultGeneralOption() GeneralOption {
	return GeneralOption{
		TimeMax:              120.0,
		IterationMax:         100,
		TargetObjectiveValue: -math.MaxFloat64,
		Seed:                 1,
	}
}

// TabuSearchOption configures the inner tabu search rounds.
type TabuSearchOption struct {
	InitialTabuTenure                       int      `json:"initial_tabu_tenure"`
	IterationMax                            int      `json:"iteration_max"`
	TimeMax                                 float64  `json:"time_max"`
	TimeOffset                              float64  `json:"time_offset"`
	TabuMode                                TabuMode `json:"tabu_mode"`
	NumberOfInitialModification             int      `json:"number_of_initial_modification"`
	InitialModificationFixedRate            float64  `json:"initial_modification_fixed_rate"`
	InitialModificationRandomizeRate        float64  `json:"initial_modification_randomize_rate"`
	TabuTenureRandomizeRate                 float64  `json:"tabu_tenure_randomize_rate"`
	PruningRateThreshold                    float64  `json:"pruning_rate_threshold"`
	MovePreserveRate                        float64  `json:"move_preserve_rate"`
	IterationIncreaseRate                   float64  `json:"iteration_increase_rate"`
	IsEnabledShuffle                        bool     `json:"is_enabled_shuffle"`
	IsEnabledMoveCurtail                    bool     `json:"is_enabled_move_curtail"`
	IsEnabledAutomaticTabuTenureAdjustment  bool     `json:"is_enabled_automatic_tabu_tenure_adjustment"`
	IsEnabledAutomaticIterationAdjustment   bool     `json:"is_enabled_automatic_iteration_adjustment"`
	IsEnabledAutomaticBreak                 bool     `json:"is_enabled_automatic_break"`
	IsEnabledInitialModification            bool     `json:"is_enabled_initial_modification"`
	IgnoreTabuIfGlobalIncumbent             bool     `json:"ignore_tabu_if_global_incumbent"`
	IsEnabledOnlineBounding                 bool     `json:"is_enabled_online_bounding"`
	FrequencyPenaltyCoefficient             float64  `json:"frequency_penalty_coefficient"`
	LagrangianPenaltyCoefficient            float64  `json:"lagrangian_penalty_coefficient"`
	IntensityIncreaseCountThreshold         int      `json:"intensity_increase_count_threshold"`
	IntensityDecreaseCountThreshold         int      `json:"intensity_decrease_count_threshold"`
	LogInterval                             int      `json:"log_interval"`
	Seed                                    int64    `json:"seed"`
}

// DefaultTabuSearchOption returns the defaults for the tabu search group.
func DefaultTabuSearchOption() TabuSearchOption {
	return TabuSearchOption{
		InitialTabuTenure:                      10,
		IterationMax:                           500,
		TimeMax:                                120.0,
		TimeOffset:                             0.0,
		TabuMode:                               TabuModeAll,
		NumberOfInitialModification:            0,
		InitialModificationFixedRate:           1.0,
		InitialModificationRandomizeRate:       0.5,
		TabuTenureRandomizeRate:                0.5,
		PruningRateThreshold:                   1.0,
		MovePreserveRate:                       1.0,
		IterationIncreaseRate:                  1.5,
		IsEnabledShuffle:                       true,
		IsEnabledMoveCurtail:                   false,
		IsEnabledAutomaticTabuTenureAdjustment: true,
		IsEnabledAutomaticIterationAdjustment:  true,
		IsEnabledAutomaticBreak:                true,
		IsEnabledInitialModification:           true,
		IgnoreTabuIfGlobalIncumbent:            true,
		IsEnabledOnlineBounding:                true,
		FrequencyPenaltyCoefficient:            1e-7,
		LagrangianPenaltyCoefficient:           1e-7,
		IntensityIncreaseCountThreshold:        10,
		IntensityDecreaseCountThreshold:        10,
		LogInterval:                            10,
		Seed:                                   1,
	}
}

// LagrangeDualOption configures the optional subgradient warm start.
type LagrangeDualOption struct {
	IsEnabled          bool    `json:"is_enabled"`
	IterationMax       int     `json:"iteration_max"`
	TimeMax            float64 `json:"time_max"`
	TimeOffset         float64 `json:"time_offset"`
	QueueSize          int     `json:"queue_size"`
	Tolerance          float64 `json:"tolerance"`
	StepSizeExtendRate float64 `json:"step_size_extend_rate"`
	StepSizeReduceRate float64 `json:"step_size_reduce_rate"`
	LogInterval        int     `json:"log_interval"`
}

// DefaultLagrangeDualOption returns the defaults for the lagrange dual
// group.
func DefaultLagrangeDualOption() LagrangeDualOption {
	return LagrangeDualOption{
		IsEnabled:          false,
		IterationMax:       10000,
		TimeMax:            120.0,
		QueueSize:          100,
		Tolerance:          1e-5,
		StepSizeExtendRate: 1.05,
		StepSizeReduceRate: 0.9,
		LogInterval:        10,
	}
}

// LocalSearchOption configures the optional greedy descent phase.
type LocalSearchOption struct {
	IsEnabled    bool    `json:"is_enabled"`
	IterationMax int     `json:"iteration_max"`
	TimeMax      float64 `json:"time_max"`
	TimeOffset   float64 `json:"time_offset"`
	Seed         int64   `json:"seed"`
	LogInterval  int     `json:"log_interval"`
}

// DefaultLocalSearchOption returns the defaults for the local search group.
func DefaultLocalSearchOption() LocalSearchOption {
	return LocalSearchOption{
		IsEnabled:    false,
		IterationMax: 10000,
		TimeMax:      120.0,
		Seed:         1,
		LogInterval:  10,
	}
}

// AnnealingOption configures the optional simulated-annealing warm start.
type AnnealingOption struct {
	IsEnabled   bool    `json:"is_enabled"`
	Generations uint    `json:"generations"`
	TimeMax     float64 `json:"time_max"`
	AcceptWorse string  `json:"accept_worse"`
}

// DefaultAnnealingOption returns the defaults for the annealing group.
func DefaultAnnealingOption() AnnealingOption {
	return AnnealingOption{
		IsEnabled:   false,
		Generations: 200,
		TimeMax:     30.0,
		AcceptWorse: "temp",
	}
}

// NeighborhoodOption enables move kinds and tunes chain-move handling.
type NeighborhoodOption struct {
	IsEnabledBinaryMove       bool `json:"is_enabled_binary_move"`
	IsEnabledIntegerMove      bool `json:"is_enabled_integer_move"`
	IsEnabledSelectionMove    bool `json:"is_enabled_selection_move"`
	IsEnabledChainMove        bool `json:"is_enabled_chain_move"`
	IsEnabledTwoFlipMove      bool `json:"is_enabled_two_flip_move"`
	IsEnabledUserDefinedMove  bool `json:"is_enabled_user_defined_move"`

	ChainMoveCapacity             int                     `json:"chain_move_capacity"`
	ChainMoveOverlapRateThreshold float64                 `json:"chain_move_overlap_rate_threshold"`
	ChainMoveReduceMode           mip.ChainMoveReduceMode `json:"chain_move_reduce_mode"`

	ImprovabilityScreeningMode       ImprovabilityScreeningMode `json:"improvability_screening_mode"`
	IsEnabledIntegerStepSizeAdjuster bool                       `json:"is_enabled_integer_step_size_adjuster"`
}

// DefaultNeighborhoodOption returns the defaults for the neighborhood
// group.
func DefaultNeighborhoodOption() NeighborhoodOption {
	return NeighborhoodOption{
		IsEnabledBinaryMove:              true,
		IsEnabledIntegerMove:             true,
		IsEnabledSelectionMove:           true,
		IsEnabledChainMove:               true,
		IsEnabledTwoFlipMove:             false,
		IsEnabledUserDefinedMove:         false,
		ChainMoveCapacity:                10000,
		ChainMoveOverlapRateThreshold:    0.2,
		ChainMoveReduceMode:              mip.ChainMoveReduceOverlapRate,
		ImprovabilityScreeningMode:       ScreeningAutomatic,
		IsEnabledIntegerStepSizeAdjuster: true,
	}
}

// PenaltyOption tunes the adaptive penalty coefficients.
type PenaltyOption struct {
	InitialPenaltyCoefficient          float64 `json:"initial_penalty_coefficient"`
	PenaltyCoefficientRelaxingRate     float64 `json:"penalty_coefficient_relaxing_rate"`
	PenaltyCoefficientTighteningRate   float64 `json:"penalty_coefficient_tightening_rate"`
	PenaltyCoefficientUpdatingBalance  float64 `json:"penalty_coefficient_updating_balance"`
	IsEnabledGroupingPenaltyCoefficient bool   `json:"is_enabled_grouping_penalty_coefficient"`
	IsEnabledShrinkPenaltyCoefficient   bool   `json:"is_enabled_shrink_penalty_coefficient"`
}

// DefaultPenaltyOption returns the defaults for the penalty group.
func DefaultPenaltyOption() PenaltyOption {
	return PenaltyOption{
		InitialPenaltyCoefficient:           1e7,
		PenaltyCoefficientRelaxingRate:      0.9,
		PenaltyCoefficientTighteningRate:    1.0,
		PenaltyCoefficientUpdatingBalance:   0.5,
		IsEnabledGroupingPenaltyCoefficient: false,
		IsEnabledShrinkPenaltyCoefficient:   true,
	}
}

// ParallelOption controls the data-parallel regions.
type ParallelOption struct {
	IsEnabledMoveUpdateParallelization     bool `json:"is_enabled_move_update_parallelization"`
	IsEnabledMoveEvaluationParallelization bool `json:"is_enabled_move_evaluation_parallelization"`
	NumberOfThreadsMoveUpdate              int  `json:"number_of_threads_move_update"`
	NumberOfThreadsMoveEvaluation          int  `json:"number_of_threads_move_evaluation"`
	IsEnabledThreadCountOptimization       bool `json:"is_enabled_thread_count_optimization"`
}

// DefaultParallelOption returns the defaults for the parallel group.
func DefaultParallelOption() ParallelOption {
	return ParallelOption{
		IsEnabledMoveUpdateParallelization:     true,
		IsEnabledMoveEvaluationParallelization: true,
		NumberOfThreadsMoveUpdate:              0,
		NumberOfThreadsMoveEvaluation:          0,
		IsEnabledThreadCountOptimization:       false,
	}
}

// OutputOption controls logging and persistence.
type OutputOption struct {
	Verbose                        VerboseLevel `json:"verbose"`
	IsEnabledStoreFeasibleSolutions bool        `json:"is_enabled_store_feasible_solutions"`
	FeasibleSolutionsCapacity      int          `json:"feasible_solutions_capacity"`
	IsEnabledWriteTrend            bool         `json:"is_enabled_write_trend"`
	TrendLogPath                   string       `json:"trend_log_path,omitempty"`
	StatusPath                     string       `json:"status_path,omitempty"`
}

// DefaultOutputOption returns the defaults for the output group.
func DefaultOutputOption() OutputOption {
	return OutputOption{
		Verbose:                         VerboseOff,
		IsEnabledStoreFeasibleSolutions: false,
		FeasibleSolutionsCapacity:       1000,
		IsEnabledWriteTrend:             false,
	}
}

// Option aggregates every option group.
type Option struct {
	General      GeneralOption      `json:"general"`
	TabuSearch   TabuSearchOption   `json:"tabu_search"`
	LagrangeDual LagrangeDualOption `json:"lagrange_dual"`
	LocalSearch  LocalSearchOption  `json:"local_search"`
	Annealing    AnnealingOption    `json:"annealing"`
	Neighborhood NeighborhoodOption `json:"neighborhood"`
	Penalty      PenaltyOption      `json:"penalty"`
	Parallel     ParallelOption     `json:"parallel"`
	Output       OutputOption       `json:"output"`
}

// DefaultOption returns the defaults for every group.
func DefaultOption() Option {
	return Option{
		General:      DefaultGeneralOption(),
		TabuSearch:   DefaultTabuSearchOption(),
		LagrangeDual: DefaultLagrangeDualOption(),
		LocalSearch:  DefaultLocalSearchOption(),
		Annealing:    DefaultAnnealingOption(),
		Neighborhood: DefaultNeighborhoodOption(),
		Penalty:      DefaultPenaltyOption(),
		Parallel:     DefaultParallelOption(),
		Output:       DefaultOutputOption(),
	}
}

// ResolveThreadCounts replaces non-positive thread counts with the host
// CPU count.
func (o *Option) ResolveThreadCounts() {
	if o.Parallel.NumberOfThreadsMoveUpdate <= 0 {
		o.Parallel.NumberOfThreadsMoveUpdate = runtime.NumCPU()
	}
	if o.Parallel.NumberOfThreadsMoveEvaluation <= 0 {
		o.Parallel.NumberOfThreadsMoveEvaluation = runtime.NumCPU()
	}
}
