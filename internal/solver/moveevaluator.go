package solver

import "github.com/rbscholtus/mipcraft/internal/mip"

// MoveScore is the tabu-side evaluation of one candidate move.
type MoveScore struct {
	IsPermissible     bool
	FrequencyPenalty  float64
	LagrangianPenalty float64
}

// MoveEvaluator scores candidate moves against the tabu memory:
// permissibility under the configured tabu mode, a frequency penalty
// pushing the search away from over-used variables, and an optional
// lagrangian penalty from the dual warm start.
type MoveEvaluator struct {
	model  *mip.Model
	memory *Memory
	option *Option
}

// NewMoveEvaluator wires an evaluator to the model, memory, and options.
func NewMoveEvaluator(model *mip.Model, memory *Memory, option *Option) *MoveEvaluator {
	return &MoveEvaluator{model: model, memory: memory, option: option}
}

// ComputePermissibility applies the tabu test. duration is
// iteration - tabu tenure - 1 (as passed by the tabu search core): a
// variable is tagged while its last update iteration exceeds it.
//
// In All mode a move is tabu only when every altered variable is tagged;
// selection moves bypass that branch and fall through to Any. In Any mode a
// single tagged variable suffices.
func (e *MoveEvaluator) ComputePermissibility(move *mip.Move, duration int) bool {
	if e.option.TabuSearch.TabuMode == TabuModeAll && move.Sense != mip.MoveSenseSelection {
		for _, a := range move.Alterations {
			if duration >= e.model.Variables[a.Variable].LocalLastUpdateIteration {
				return true
			}
		}
		return false
	}

	for _, a := range move.Alterations {
		if duration < e.model.Variables[a.Variable].LocalLastUpdateIteration {
			return false
		}
	}
	return true
}

// ComputeFrequencyPenalty returns the update-frequency penalty of the move.
func (e *MoveEvaluator) ComputeFrequencyPenalty(move *mip.Move, iteration int) float64 {
	if iteration == 0 {
		return 0.0
	}
	totalUpdateCount := int64(0)
	for _, a := range move.Alterations {
		totalUpdateCount += e.model.Variables[a.Variable].UpdateCount
	}
	return float64(totalUpdateCount) *
		e.memory.TotalUpdateCountReciprocal() *
		e.option.TabuSearch.FrequencyPenaltyCoefficient
}

// ComputeLagrangianPenalty returns the reduced-cost penalty of the move.
func (e *MoveEvaluator) ComputeLagrangianPenalty(move *mip.Move) float64 {
	penalty := 0.0
	for _, a := range move.Alterations {
		penalty += e.model.Variables[a.Variable].LagrangianCoefficient * float64(a.Value)
	}
	return penalty * e.option.TabuSearch.LagrangianPenaltyCoefficient
}

// Evaluate fills the move score for one candidate.
func (e *MoveEvaluator) Evaluate(move *mip.Move, iteration, duration int) MoveScore {
	score := MoveScore{
		IsPermissible:    e.ComputePermissibility(move, duration),
		FrequencyPenalty: e.ComputeFrequencyPenalty(move, iteration),
	}
	if e.option.LagrangeDual.IsEnabled {
		score.LagrangianPenalty = e.ComputeLagrangianPenalty(move)
	}
	return score
}
