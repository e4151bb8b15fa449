package solver

import (
	"math"
	"testing"

	"github.com/rbscholtus/mipcraft/internal/mip"
)

// buildTwoBinaryModel is the tabu-window scenario model: two free
// binaries, objective a+b, no constraints.
func buildTwoBinaryModel(t *testing.T) *mip.Model {
	t.Helper()
	model := mip.NewModel("two_binary")
	a := model.AddBinaryVariable("a")
	b := model.AddBinaryVariable("b")

	objective := mip.NewExpression()
	objective.AddTerm(a, 1.0)
	objective.AddTerm(b, 1.0)
	model.Minimize(objective)
	model.SetupStructure()
	model.Update()
	return model
}

// TestPermissibility_TabuWindowAnyMode flips a at iteration 0 with tenure
// 2 and walks the window: a move touching a is blocked while its tag
// exceeds iteration - tenure - 1 and permissible afterwards.
func TestPermissibility_TabuWindowAnyMode(t *testing.T) {
	model := buildTwoBinaryModel(t)
	memory := NewMemory(model)
	option := DefaultOption()
	option.TabuSearch.TabuMode = TabuModeAny
	tenure := 2

	evaluator := NewMoveEvaluator(model, memory, &option)

	flip := &mip.Move{
		Alterations: []mip.Alteration{{Variable: 0, Value: 1}},
		Sense:       mip.MoveSenseBinary,
	}
	model.Commit(flip)
	memory.Update(flip, 0, 0, nil)

	flipBack := &mip.Move{
		Alterations: []mip.Alteration{{Variable: 0, Value: 0}},
		Sense:       mip.MoveSenseBinary,
	}

	blocked := []int{1, 2}
	for _, iteration := range blocked {
		score := evaluator.Evaluate(flipBack, iteration, iteration-tenure-1)
		if score.IsPermissible {
			t.Errorf("iteration %d: flip-back must be tabu", iteration)
		}
	}
	for iteration := 3; iteration <= 5; iteration++ {
		score := evaluator.Evaluate(flipBack, iteration, iteration-tenure-1)
		if !score.IsPermissible {
			t.Errorf("iteration %d: flip-back must be permissible", iteration)
		}
	}

	// An untouched variable is always permissible.
	other := &mip.Move{
		Alterations: []mip.Alteration{{Variable: 1, Value: 1}},
		Sense:       mip.MoveSenseBinary,
	}
	if score := evaluator.Evaluate(other, 1, 1-tenure-1); !score.IsPermissible {
		t.Error("move on untouched variable must be permissible")
	}
}

// TestPermissibility_AllModeNeedsEveryVariableTagged contrasts the modes.
func TestPermissibility_AllModeNeedsEveryVariableTagged(t *testing.T) {
	model := buildTwoBinaryModel(t)
	memory := NewMemory(model)
	option := DefaultOption()
	option.TabuSearch.TabuMode = TabuModeAll
	evaluator := NewMoveEvaluator(model, memory, &option)

	// Tag only variable 0.
	memory.Update(&mip.Move{
		Alterations: []mip.Alteration{{Variable: 0, Value: 1}},
	}, 0, 0, nil)

	pair := &mip.Move{
		Alterations: []mip.Alteration{
			{Variable: 0, Value: 0},
			{Variable: 1, Value: 1},
		},
		Sense: mip.MoveSenseBinary,
	}
	duration := -1 // iteration 2, tenure 2

	if !evaluator.ComputePermissibility(pair, duration) {
		t.Error("All mode: one untagged variable keeps the pair permissible")
	}

	// Tag variable 1 as well: now every variable is tagged.
	memory.Update(&mip.Move{
		Alterations: []mip.Alteration{{Variable: 1, Value: 1}},
	}, 0, 0, nil)
	if evaluator.ComputePermissibility(pair, duration) {
		t.Error("All mode: fully tagged pair must be tabu")
	}

	// Any mode blocks on a single tagged variable.
	option.TabuSearch.TabuMode = TabuModeAny
	single := &mip.Move{
		Alterations: []mip.Alteration{{Variable: 0, Value: 0}},
		Sense:       mip.MoveSenseBinary,
	}
	if evaluator.ComputePermissibility(single, duration) {
		t.Error("Any mode: tagged variable must make the move tabu")
	}
}

// TestFrequencyPenalty_ScalesWithUpdateShare verifies the ratio formula.
func TestFrequencyPenalty_ScalesWithUpdateShare(t *testing.T) {
	model := buildTwoBinaryModel(t)
	memory := NewMemory(model)
	option := DefaultOption()
	option.TabuSearch.FrequencyPenaltyCoefficient = 2.0
	evaluator := NewMoveEvaluator(model, memory, &option)

	// Three updates on variable 0, one on variable 1.
	for i := 0; i < 3; i++ {
		memory.Update(&mip.Move{
			Alterations: []mip.Alteration{{Variable: 0, Value: i % 2}},
		}, i, 0, nil)
	}
	memory.Update(&mip.Move{
		Alterations: []mip.Alteration{{Variable: 1, Value: 1}},
	}, 3, 0, nil)

	moveOnHot := &mip.Move{Alterations: []mip.Alteration{{Variable: 0, Value: 1}}}
	penalty := evaluator.ComputeFrequencyPenalty(moveOnHot, 4)
	want := 3.0 / 4.0 * 2.0
	if math.Abs(penalty-want) > mip.Eps {
		t.Errorf("frequency penalty = %v, want %v", penalty, want)
	}

	// Iteration zero reports no penalty.
	if p := evaluator.ComputeFrequencyPenalty(moveOnHot, 0); p != 0.0 {
		t.Errorf("iteration-0 penalty = %v, want 0", p)
	}
}

// TestLagrangianPenalty uses the variables' reduced costs.
func TestLagrangianPenalty(t *testing.T) {
	model := buildTwoBinaryModel(t)
	memory := NewMemory(model)
	option := DefaultOption()
	option.LagrangeDual.IsEnabled = true
	option.TabuSearch.LagrangianPenaltyCoefficient = 0.5
	evaluator := NewMoveEvaluator(model, memory, &option)

	model.Variables[0].LagrangianCoefficient = 4.0
	move := &mip.Move{Alterations: []mip.Alteration{{Variable: 0, Value: 1}}}

	score := evaluator.Evaluate(move, 1, -1)
	want := 4.0 * 1.0 * 0.5
	if math.Abs(score.LagrangianPenalty-want) > mip.Eps {
		t.Errorf("lagrangian penalty = %v, want %v", score.LagrangianPenalty, want)
	}
}
