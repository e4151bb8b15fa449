package solver

import (
	"testing"

	"github.com/rbscholtus/mipcraft/internal/mip"
)

// scoreWith builds a simple score with matching augmented objectives.
func scoreWith(objective, violation float64) mip.SolutionScore {
	return mip.SolutionScore{
		Objective:                objective,
		TotalViolation:           violation,
		LocalPenalty:             violation * 10.0,
		GlobalPenalty:            violation * 100.0,
		LocalAugmentedObjective:  objective + violation*10.0,
		GlobalAugmentedObjective: objective + violation*100.0,
		IsFeasible:               !(violation > mip.Eps),
	}
}

func incumbentTestModel() *mip.Model {
	model := mip.NewModel("incumbent")
	model.AddBinaryVariable("a")
	model.SetupStructure()
	model.Update()
	return model
}

// TestTryUpdate_Bitmask covers the three status bits.
func TestTryUpdate_Bitmask(t *testing.T) {
	model := incumbentTestModel()
	holder := NewIncumbentHolder(true)

	status := holder.TryUpdate(model, scoreWith(5.0, 1.0))
	if status&StatusLocalAugmentedIncumbentUpdate == 0 ||
		status&StatusGlobalAugmentedIncumbentUpdate == 0 {
		t.Errorf("first infeasible update status = %b, want local and global bits", status)
	}
	if status&StatusFeasibleIncumbentUpdate != 0 {
		t.Errorf("infeasible score must not set the feasible bit: %b", status)
	}

	status = holder.TryUpdate(model, scoreWith(3.0, 0.0))
	if status != StatusLocalAugmentedIncumbentUpdate|
		StatusGlobalAugmentedIncumbentUpdate|
		StatusFeasibleIncumbentUpdate {
		t.Errorf("feasible improvement status = %b, want all bits", status)
	}
	if !holder.IsFoundFeasibleSolution() {
		t.Error("feasible incumbent not latched")
	}
}

// TestTryUpdate_Idempotent offers the same score twice; the second call
// must report no update.
func TestTryUpdate_Idempotent(t *testing.T) {
	model := incumbentTestModel()
	holder := NewIncumbentHolder(true)

	score := scoreWith(2.0, 0.0)
	holder.TryUpdate(model, score)
	if status := holder.TryUpdate(model, score); status != StatusNotUpdated {
		t.Errorf("second identical update status = %b, want STATUS_NOT_UPDATED", status)
	}
}

// TestFeasibleIncumbent_MonotoneObjective feeds worsening feasible scores.
func TestFeasibleIncumbent_MonotoneObjective(t *testing.T) {
	model := incumbentTestModel()
	holder := NewIncumbentHolder(true)

	holder.TryUpdate(model, scoreWith(4.0, 0.0))
	best := holder.FeasibleIncumbentObjective()

	holder.TryUpdate(model, scoreWith(6.0, 0.0))
	if holder.FeasibleIncumbentObjective() != best {
		t.Error("feasible incumbent objective regressed on a worse score")
	}
	holder.TryUpdate(model, scoreWith(1.0, 0.0))
	if holder.FeasibleIncumbentObjective() != 1.0 {
		t.Errorf("feasible incumbent = %v, want 1", holder.FeasibleIncumbentObjective())
	}
}

// TestResetLocalAugmentedIncumbent affects only the per-round incumbent.
func TestResetLocalAugmentedIncumbent(t *testing.T) {
	model := incumbentTestModel()
	holder := NewIncumbentHolder(true)

	holder.TryUpdate(model, scoreWith(2.0, 0.0))
	holder.ResetLocalAugmentedIncumbent()

	if holder.GlobalAugmentedIncumbentObjective() != 2.0 {
		t.Error("reset must keep the global incumbent")
	}
	status := holder.TryUpdate(model, scoreWith(9.0, 0.0))
	if status&StatusLocalAugmentedIncumbentUpdate == 0 {
		t.Error("any score must refill the local incumbent after reset")
	}
	if status&StatusGlobalAugmentedIncumbentUpdate != 0 {
		t.Error("worse score must not update the global incumbent")
	}
}

// TestDualBound_Monotone checks the max-for-minimization rule.
func TestDualBound_Monotone(t *testing.T) {
	holder := NewIncumbentHolder(true)
	holder.UpdateDualBound(1.0)
	holder.UpdateDualBound(0.5)
	if holder.DualBound() != 1.0 {
		t.Errorf("minimization dual bound = %v, want 1", holder.DualBound())
	}
	holder.UpdateDualBound(2.0)
	if holder.DualBound() != 2.0 {
		t.Errorf("minimization dual bound = %v, want 2", holder.DualBound())
	}

	maximization := NewIncumbentHolder(false)
	maximization.UpdateDualBound(10.0)
	maximization.UpdateDualBound(12.0)
	if maximization.DualBound() != 10.0 {
		t.Errorf("maximization dual bound = %v, want 10", maximization.DualBound())
	}
}
