package solver

import (
	"math"
	"testing"
	"time"

	"github.com/rbscholtus/mipcraft/internal/mip"
)

// TestLocalSearchCore_ReachesFeasibility repairs an infeasible start on a
// covering model.
func TestLocalSearchCore_ReachesFeasibility(t *testing.T) {
	model := mip.NewModel("cover")
	a := model.AddBinaryVariable("a")
	b := model.AddBinaryVariable("b")
	c := model.AddBinaryVariable("c")

	first := mip.NewExpression()
	first.AddTerm(a, 1.0)
	first.AddTerm(b, 1.0)
	first.Constant = -1.0
	model.AddConstraint("first", first, mip.SenseGreater)

	second := mip.NewExpression()
	second.AddTerm(b, 1.0)
	second.AddTerm(c, 1.0)
	second.Constant = -1.0
	model.AddConstraint("second", second, mip.SenseGreater)

	// Covering with b both satisfies the constraints and improves the
	// objective, so the first-improvement gate accepts it.
	objective := mip.NewExpression()
	objective.AddTerm(a, 2.0)
	objective.AddTerm(b, -1.0)
	objective.AddTerm(c, 2.0)
	model.Minimize(objective)

	option := quietOption()
	option.LocalSearch.IsEnabled = true
	option.LocalSearch.IterationMax = 100
	globalState := prepareModel(t, model, &option)

	core := NewLocalSearchCore(globalState, model.ExportSparseSolution(), nil,
		time.Now(), option, NewLogger(VerboseOff, nil))
	result := core.Run()

	if !globalState.IncumbentHolder.IsFoundFeasibleSolution() {
		t.Fatal("local search did not reach feasibility")
	}
	// b = 1 covers both constraints at objective -1.
	raw := globalState.IncumbentHolder.FeasibleIncumbentObjective() * model.Sign()
	if math.Abs(raw-(-1.0)) > mip.Eps {
		t.Errorf("objective = %v, want -1", raw)
	}
	if result.TerminationStatus != StatusLocalOptimal &&
		result.TerminationStatus != StatusNoMove &&
		result.TerminationStatus != StatusOptimal {
		t.Errorf("unexpected termination %s", result.TerminationStatus)
	}
}

// TestLocalSearchCore_StopsAtLocalOptimum terminates without moves on an
// already-optimal feasible solution.
func TestLocalSearchCore_StopsAtLocalOptimum(t *testing.T) {
	model := mip.NewModel("optimal")
	a := model.AddBinaryVariable("a")

	objective := mip.NewExpression()
	objective.AddTerm(a, 1.0)
	model.Minimize(objective)

	option := quietOption()
	option.LocalSearch.IterationMax = 10
	globalState := prepareModel(t, model, &option)

	core := NewLocalSearchCore(globalState, model.ExportSparseSolution(), nil,
		time.Now(), option, NewLogger(VerboseOff, nil))
	result := core.Run()

	// a = 0 is optimal: no objective-improvable variable remains.
	if result.TerminationStatus != StatusOptimal {
		t.Errorf("termination = %s, want OPTIMAL", result.TerminationStatus)
	}
	if result.NumberOfIterations != 0 {
		t.Errorf("iterations = %d, want 0", result.NumberOfIterations)
	}
}
