package solver

import (
	"math"
	"math/rand"
	"testing"

	"github.com/rbscholtus/mipcraft/internal/mip"
)

// TestSolutionGenome_EvaluateMatchesModel compares genome scoring with
// the model evaluator on the same assignment.
func TestSolutionGenome_EvaluateMatchesModel(t *testing.T) {
	model, _ := buildKnapsack3()
	option := quietOption()
	prepareModel(t, model, &option)

	values := []int{1, 0, 1} // violates the capacity by 1
	genome := &solutionGenome{model: model, values: values}

	fitness, err := genome.Evaluate()
	if err != nil {
		t.Fatalf("Evaluate: %v", err)
	}

	sparse := mip.NewSparseSolution()
	for i, v := range values {
		if v != 0 {
			sparse.Variables[i] = v
		}
	}
	model.ImportSparseSolution(&sparse)
	score := model.Evaluate(nil)

	if math.Abs(fitness-score.GlobalAugmentedObjective) > mip.Eps10 {
		t.Errorf("genome fitness = %v, model global augmented = %v",
			fitness, score.GlobalAugmentedObjective)
	}
}

// TestSolutionGenome_CloneIsIndependent mutates a clone and checks the
// original is untouched.
func TestSolutionGenome_CloneIsIndependent(t *testing.T) {
	model, _ := buildKnapsack3()
	option := quietOption()
	prepareModel(t, model, &option)

	genome := &solutionGenome{model: model, values: []int{0, 0, 0}}
	clone := genome.Clone().(*solutionGenome)

	rng := rand.New(rand.NewSource(5))
	for i := 0; i < 10; i++ {
		clone.Mutate(rng)
	}

	for i, v := range genome.values {
		if v != 0 {
			t.Errorf("original genome values[%d] = %d after mutating the clone", i, v)
		}
	}
	for i, v := range clone.values {
		lb := model.Variables[i].LowerBound
		ub := model.Variables[i].UpperBound
		if v < lb || v > ub {
			t.Errorf("clone values[%d] = %d out of [%d, %d]", i, v, lb, ub)
		}
	}
}

// TestAcceptanceFunc covers the accept-worse policies at the endpoints.
func TestAcceptanceFunc(t *testing.T) {
	always := acceptanceFunc("always")
	if always(0, 10, 1.0, 2.0) != 1.0 {
		t.Error("always must accept")
	}
	never := acceptanceFunc("never")
	if never(0, 10, 1.0, 2.0) != 0.0 {
		t.Error("never must reject")
	}
	temp := acceptanceFunc("temp")
	if temp(0, 10, 1.0, 2.0) != 1.0 {
		t.Error("temp at generation 0 must be 1")
	}
	if temp(10, 10, 1.0, 2.0) != 0.0 {
		t.Error("temp at the last generation must be 0")
	}
}
