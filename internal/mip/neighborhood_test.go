package mip

import (
	"math/rand"
	"testing"
)

// buildNeighborhoodModel wires a model with binaries, an integer, and one
// selection group.
func buildNeighborhoodModel(t *testing.T) (*Model, *Neighborhood) {
	t.Helper()
	model := NewModel("neighborhood")

	model.AddBinaryVariable("a")
	model.AddBinaryVariable("b")
	if _, err := model.AddVariable("x", 0, 10); err != nil {
		t.Fatalf("AddVariable: %v", err)
	}
	s1 := model.AddBinaryVariable("s1")
	s2 := model.AddBinaryVariable("s2")
	s3 := model.AddBinaryVariable("s3")

	group := NewExpression()
	group.AddTerm(s1, 1.0)
	group.AddTerm(s2, 1.0)
	group.AddTerm(s3, 1.0)
	group.Constant = -1.0
	model.AddConstraint("group", group, SenseEqual)

	objective := NewExpression()
	objective.AddTerm(0, 1.0)
	objective.AddTerm(1, 1.0)
	objective.AddTerm(2, 1.0)
	model.Minimize(objective)

	model.SetupStructure()
	model.Variables[s1].Value = 1
	model.Update()

	neighborhood := NewNeighborhood(model)
	neighborhood.Binary().Enable()
	neighborhood.Integer().Enable()
	neighborhood.Selection().Enable()
	return model, neighborhood
}

// TestUpdateMoves_GeneratesAllKinds counts the expected move mix.
func TestUpdateMoves_GeneratesAllKinds(t *testing.T) {
	_, neighborhood := buildNeighborhoodModel(t)

	neighborhood.UpdateMoves(AcceptAll, false, 1)
	moves := neighborhood.Moves()

	counts := map[MoveSense]int{}
	for _, mv := range moves {
		counts[mv.Sense]++
		if len(mv.Alterations) == 0 {
			t.Fatal("zero-alteration move emitted")
		}
	}

	// Two plain binaries flip; x at 0 steps +1 and half-jumps to 5.
	if counts[MoveSenseBinary] != 2 {
		t.Errorf("binary moves = %d, want 2", counts[MoveSenseBinary])
	}
	if counts[MoveSenseInteger] != 2 {
		t.Errorf("integer moves = %d, want 2", counts[MoveSenseInteger])
	}
	// s1 selected swaps with s2 and s3.
	if counts[MoveSenseSelection] != 2 {
		t.Errorf("selection moves = %d, want 2", counts[MoveSenseSelection])
	}
}

// TestUpdateMoves_ScreeningFiltersVariables checks the acceptance filter.
func TestUpdateMoves_ScreeningFiltersVariables(t *testing.T) {
	model, neighborhood := buildNeighborhoodModel(t)

	model.ResetVariableObjectiveImprovabilities()
	model.ResetVariableFeasibilityImprovabilities()
	model.UpdateVariableObjectiveImprovabilities()

	neighborhood.UpdateMoves(Acceptance{ObjectiveImprovable: true}, false, 1)
	for _, mv := range neighborhood.Moves() {
		if mv.IsSelectionMove {
			continue
		}
		improvable := false
		for _, a := range mv.Alterations {
			if model.Variables[a.Variable].IsObjectiveImprovable {
				improvable = true
			}
		}
		if !improvable {
			t.Errorf("move on %v survived objective screening", mv.Alterations)
		}
	}
}

// TestUpdateMoves_ParallelMatchesSequential compares candidate lists.
func TestUpdateMoves_ParallelMatchesSequential(t *testing.T) {
	_, sequential := buildNeighborhoodModel(t)
	_, parallel := buildNeighborhoodModel(t)

	sequential.UpdateMoves(AcceptAll, false, 1)
	parallel.UpdateMoves(AcceptAll, true, 4)

	if len(sequential.Moves()) != len(parallel.Moves()) {
		t.Fatalf("move counts differ: %d vs %d",
			len(sequential.Moves()), len(parallel.Moves()))
	}
	for i := range sequential.Moves() {
		a := sequential.Moves()[i]
		b := parallel.Moves()[i]
		if len(a.RelatedConstraints) != len(b.RelatedConstraints) {
			t.Errorf("move %d related-constraint counts differ", i)
		}
	}
}

// TestShuffleAndTruncate covers move-order shuffling and curtailing.
func TestShuffleAndTruncate(t *testing.T) {
	_, neighborhood := buildNeighborhoodModel(t)
	neighborhood.UpdateMoves(AcceptAll, false, 1)

	total := len(neighborhood.Moves())
	neighborhood.ShuffleMoves(rand.New(rand.NewSource(7)))
	if len(neighborhood.Moves()) != total {
		t.Error("shuffle changed the move count")
	}

	neighborhood.Truncate(3)
	if len(neighborhood.Moves()) != 3 {
		t.Errorf("after truncate: %d moves, want 3", len(neighborhood.Moves()))
	}
}
