package solver

import (
	"testing"

	"github.com/rbscholtus/mipcraft/internal/mip"
)

// buildVShapedModel models |x - 37| through a pair of opposing
// constraints: x <= 37 and x >= 37. The global augmented objective is
// proportional to the distance from 37, with its minimum at x = 37.
func buildVShapedModel(t *testing.T) *mip.Model {
	t.Helper()
	model := mip.NewModel("v_shaped")
	x, err := model.AddVariable("x", 0, 100)
	if err != nil {
		t.Fatalf("AddVariable: %v", err)
	}

	upper := mip.NewExpression()
	upper.AddTerm(x, 1.0)
	upper.Constant = -37.0
	model.AddConstraint("upper", upper, mip.SenseLess)

	lower := mip.NewExpression()
	lower.AddTerm(x, -1.0)
	lower.Constant = 37.0
	model.AddConstraint("lower", lower, mip.SenseLess)

	model.GlobalPenaltyCoefficient = 10.0
	model.SetupStructure()
	for i := range model.Constraints {
		model.Constraints[i].ResetLocalPenaltyCoefficients(10.0)
	}
	model.Update()
	return model
}

// TestIntegerStepSizeAdjuster_FindsInteriorOptimum starts from x=0 with a
// base step to 1 and expects the adjuster to land on 37.
func TestIntegerStepSizeAdjuster_FindsInteriorOptimum(t *testing.T) {
	model := buildVShapedModel(t)
	adjuster := NewIntegerStepSizeAdjuster(model)
	reference := model.Evaluate(nil)

	move := &mip.Move{
		Alterations: []mip.Alteration{{Variable: 0, Value: 1}},
		Sense:       mip.MoveSenseInteger,
	}
	move.SetupRelatedConstraints(model)

	adjuster.Adjust(move, reference)

	target := move.Alterations[0].Value
	if target < 36 || target > 38 {
		t.Errorf("adjusted target = %d, want within one step of 37", target)
	}
}

// TestIntegerStepSizeAdjuster_DescendingDirection starts above the optimum
// and probes downward.
func TestIntegerStepSizeAdjuster_DescendingDirection(t *testing.T) {
	model := buildVShapedModel(t)
	model.Variables[0].Value = 90
	model.Update()

	adjuster := NewIntegerStepSizeAdjuster(model)
	reference := model.Evaluate(nil)

	move := &mip.Move{
		Alterations: []mip.Alteration{{Variable: 0, Value: 89}},
		Sense:       mip.MoveSenseInteger,
	}
	move.SetupRelatedConstraints(model)

	adjuster.Adjust(move, reference)

	target := move.Alterations[0].Value
	if target < 36 || target > 38 {
		t.Errorf("adjusted target = %d, want within one step of 37", target)
	}
}

// TestIntegerStepSizeAdjuster_KeepsBoundTargets leaves moves already at a
// bound untouched.
func TestIntegerStepSizeAdjuster_KeepsBoundTargets(t *testing.T) {
	model := buildVShapedModel(t)
	model.Variables[0].Value = 99
	model.Update()

	adjuster := NewIntegerStepSizeAdjuster(model)
	reference := model.Evaluate(nil)

	move := &mip.Move{
		Alterations: []mip.Alteration{{Variable: 0, Value: 100}},
		Sense:       mip.MoveSenseInteger,
	}
	move.SetupRelatedConstraints(model)

	adjuster.Adjust(move, reference)
	if move.Alterations[0].Value != 100 {
		t.Errorf("bound target rewritten to %d", move.Alterations[0].Value)
	}
}

// TestIntegerStepSizeAdjuster_StaysWithinBounds probes toward a nearby
// bound without overshooting it.
func TestIntegerStepSizeAdjuster_StaysWithinBounds(t *testing.T) {
	model := mip.NewModel("near_bound")
	x, _ := model.AddVariable("x", 0, 5)

	// Objective decreases toward the upper bound.
	objective := mip.NewExpression()
	objective.AddTerm(x, -1.0)
	model.Minimize(objective)
	model.GlobalPenaltyCoefficient = 10.0
	model.SetupStructure()
	model.Update()

	adjuster := NewIntegerStepSizeAdjuster(model)
	reference := model.Evaluate(nil)

	move := &mip.Move{
		Alterations: []mip.Alteration{{Variable: 0, Value: 1}},
		Sense:       mip.MoveSenseInteger,
	}
	move.SetupRelatedConstraints(model)

	adjuster.Adjust(move, reference)
	target := move.Alterations[0].Value
	if target < 1 || target > 5 {
		t.Errorf("adjusted target = %d out of bounds [1, 5]", target)
	}
	if target != 5 {
		t.Errorf("adjusted target = %d, want the upper bound 5", target)
	}
}
