package solver

import (
	"math"
	"testing"
	"time"

	"github.com/rbscholtus/mipcraft/internal/mip"
)

// newControllerUnderTest builds a controller over a one-constraint model
// whose local incumbent has violation 3 and GAP 2: constraint x <= 0 with
// x = 3, local coefficient 1, global coefficient 5/3.
func newControllerUnderTest(t *testing.T) (*TabuSearchController, *mip.Model) {
	t.Helper()
	model := mip.NewModel("tighten")
	x, err := model.AddVariable("x", 0, 5)
	if err != nil {
		t.Fatalf("AddVariable: %v", err)
	}

	limit := mip.NewExpression()
	limit.AddTerm(x, 1.0)
	model.AddConstraint("limit", limit, mip.SenseLess)

	model.SetupStructure()
	model.GlobalPenaltyCoefficient = 5.0 / 3.0
	model.Constraints[0].ResetLocalPenaltyCoefficients(1.0)
	mip.NewNeighborhood(model)

	model.Variables[x].Value = 3
	model.Update()

	globalState := NewGlobalState(model, 10)
	// Local augmented = 3, global augmented = 5: GAP = 2.
	globalState.IncumbentHolder.TryUpdate(model, model.Evaluate(nil))

	option := quietOption()
	option.Penalty.PenaltyCoefficientUpdatingBalance = 0.5
	option.Penalty.PenaltyCoefficientTighteningRate = 1.0
	option.Penalty.InitialPenaltyCoefficient = 1e7

	controller := NewTabuSearchController(globalState, model.ExportSparseSolution(),
		nil, time.Now(), option, NewLogger(VerboseOff, nil), NewTrendLogger(nil))
	return controller, model
}

// TestTightenPenaltyCoefficients_GapDelta checks the documented delta:
// violation 3, GAP 2, balance 0.5 gives
// 0.5*(2/3) + 0.5*(2/9)*3 = 2/3 on the violated less side.
func TestTightenPenaltyCoefficients_GapDelta(t *testing.T) {
	controller, model := newControllerUnderTest(t)

	controller.state.PenaltyCoefficientTighteningRate = 1.0
	controller.tightenLocalPenaltyCoefficients()

	got := model.Constraints[0].LocalPenaltyCoefficientLess
	want := 1.0 + 2.0/3.0
	if math.Abs(got-want) > mip.Eps {
		t.Errorf("less-side coefficient = %v, want %v", got, want)
	}
	if model.Constraints[0].LocalPenaltyCoefficientGreater != 1.0 {
		t.Errorf("greater side must stay untouched, got %v",
			model.Constraints[0].LocalPenaltyCoefficientGreater)
	}
	if controller.state.IsExceededInitialPenaltyCoefficient {
		t.Error("delta far below the ceiling must not set the exceeded flag")
	}
}

// TestTightenPenaltyCoefficients_ClipsAtCeiling caps the coefficient at
// the initial penalty and latches the exceeded flag.
func TestTightenPenaltyCoefficients_ClipsAtCeiling(t *testing.T) {
	controller, model := newControllerUnderTest(t)

	controller.option.Penalty.InitialPenaltyCoefficient = 1.5
	controller.state.PenaltyCoefficientTighteningRate = 10.0
	controller.tightenLocalPenaltyCoefficients()

	if got := model.Constraints[0].LocalPenaltyCoefficientLess; got != 1.5 {
		t.Errorf("coefficient = %v, want clipped to 1.5", got)
	}
	if !controller.state.IsExceededInitialPenaltyCoefficient {
		t.Error("exceeded flag must be set when clipping")
	}
}

// TestRelaxPenaltyCoefficients shrinks only the satisfied side.
func TestRelaxPenaltyCoefficients(t *testing.T) {
	controller, model := newControllerUnderTest(t)

	// Re-seed the local incumbent with a feasible solution so the less
	// side is satisfied.
	controller.globalState.IncumbentHolder.ResetLocalAugmentedIncumbent()
	model.Variables[0].Value = 0
	model.Update()
	controller.globalState.IncumbentHolder.TryUpdate(model, model.Evaluate(nil))

	controller.state.PenaltyCoefficientRelaxingRate = 0.5
	controller.state.LastResult.ObjectiveConstraintRate = 1.0
	controller.relaxLocalPenaltyCoefficients()

	if got := model.Constraints[0].LocalPenaltyCoefficientLess; math.Abs(got-0.5) > mip.Eps {
		t.Errorf("relaxed coefficient = %v, want 0.5", got)
	}
}

// TestPenaltyCoefficientReset_AfterInfeasibleStagnation walks the reset
// conditions: stagnation, ceiling exceeded, and enough rounds since the
// last relaxation, then verifies the reset and the forced modification.
func TestPenaltyCoefficientReset_AfterInfeasibleStagnation(t *testing.T) {
	controller, model := newControllerUnderTest(t)

	// Drive the state as if 81 rounds passed without a global update and
	// without any feasible solution.
	controller.state.IterationAfterGlobalAugmentedIncumbentUpdate = 81
	controller.updateIsInfeasibleStagnation()
	if !controller.state.IsInfeasibleStagnation {
		t.Fatal("stagnation must be detected after 81 rounds without update")
	}

	controller.state.IsExceededInitialPenaltyCoefficient = true
	controller.state.IterationAfterRelaxation = 31
	controller.updatePenaltyCoefficientResetFlag()

	if !controller.state.PenaltyCoefficientResetFlag {
		t.Fatal("reset flag must be armed")
	}
	if !controller.state.IsEnabledForciblyInitialModification {
		t.Error("reset must force initial modifications")
	}

	// Applying the reset restores the default coefficients.
	model.Constraints[0].LocalPenaltyCoefficientLess = 99.0
	controller.resetLocalPenaltyCoefficients()
	if got := model.Constraints[0].LocalPenaltyCoefficientLess; got != controller.option.Penalty.InitialPenaltyCoefficient {
		t.Errorf("coefficient after reset = %v, want default", got)
	}

	// The forced modification yields a positive kick-start count.
	controller.state.InitialTabuTenure = 10
	controller.updateNumberOfInitialModification()
	if controller.state.NumberOfInitialModification < 1 {
		t.Errorf("number_of_initial_modification = %d, want >= 1",
			controller.state.NumberOfInitialModification)
	}
}

// TestInitialSolutionSelection_GlobalAfterUpdate: a global update makes
// the next round start from the global incumbent with relaxation armed.
func TestInitialSolutionSelection_GlobalAfterUpdate(t *testing.T) {
	controller, _ := newControllerUnderTest(t)

	controller.turnFlagsOff()
	controller.state.IsGlobalAugmentedIncumbentUpdated = true
	controller.updateInitialSolutionAndPenaltyCoefficientFlags()

	if !controller.state.EmployingGlobalSolutionFlag {
		t.Error("global incumbent must be employed after a global update")
	}
	if !controller.state.IsEnabledPenaltyCoefficientRelaxing {
		t.Error("relaxation must be armed after a global update")
	}
	if controller.state.IsEnabledPenaltyCoefficientTightening {
		t.Error("tightening must stay off after a global update")
	}
}

// TestRelaxingRateAdaptation covers the three adjustment branches.
func TestRelaxingRateAdaptation(t *testing.T) {
	controller, _ := newControllerUnderTest(t)
	defaultRate := controller.option.Penalty.PenaltyCoefficientRelaxingRate

	// Over-relaxation: stagnating with rising intensities shrinks the rate.
	controller.state.IsInfeasibleStagnation = true
	controller.state.CurrentPrimalIntensity = 0.9
	controller.state.CurrentPrimalIntensityBeforeRelaxation = 0.1
	controller.state.CurrentDualIntensity = 0.9
	controller.state.CurrentDualIntensityBeforeRelaxation = 0.1
	controller.state.PenaltyCoefficientRelaxingRate = defaultRate
	controller.updatePenaltyCoefficientRelaxingRate()
	if !(controller.state.PenaltyCoefficientRelaxingRate < defaultRate) {
		t.Error("rate must shrink under stagnation with rising intensities")
	}

	// Feasible incumbent update reverts to the default.
	controller.state.IsInfeasibleStagnation = false
	controller.state.CurrentIsFeasibleIncumbentUpdated = true
	controller.updatePenaltyCoefficientRelaxingRate()
	if controller.state.PenaltyCoefficientRelaxingRate != defaultRate {
		t.Error("rate must revert on a feasible incumbent update")
	}

	// Overuse of the previous initial solution grows the rate.
	controller.state.CurrentIsFeasibleIncumbentUpdated = false
	controller.state.EmployingPreviousSolutionCountAfterRelaxation = 5
	controller.state.PenaltyCoefficientRelaxingRate = 0.5
	controller.updatePenaltyCoefficientRelaxingRate()
	if !(controller.state.PenaltyCoefficientRelaxingRate > 0.5) {
		t.Error("rate must grow when previous-initial dominates")
	}
}

// TestTabuSearchController_EndToEndKnapsack runs the full outer loop on
// the three-item knapsack and expects the optimum.
func TestTabuSearchController_EndToEndKnapsack(t *testing.T) {
	model, _ := buildKnapsack3()

	option := quietOption()
	option.General.IterationMax = 10
	option.General.TimeMax = 10.0
	option.TabuSearch.IterationMax = 200
	globalState := prepareModel(t, model, &option)

	controller := NewTabuSearchController(globalState, model.ExportSparseSolution(),
		nil, time.Now(), option, NewLogger(VerboseOff, nil), NewTrendLogger(nil))
	controller.Run()

	raw := globalState.IncumbentHolder.FeasibleIncumbentObjective() * model.Sign()
	if math.Abs(raw-6.0) > mip.Eps {
		t.Errorf("objective = %v, want 6", raw)
	}
}
