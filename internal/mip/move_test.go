package mip

import (
	"math"
	"testing"
)

// buildChainModel creates binaries sharing set-packing constraints so
// fused moves have overlapping related-constraint sets.
func buildChainModel(t *testing.T) *Model {
	t.Helper()
	model := NewModel("chain")

	a := model.AddBinaryVariable("a")
	b := model.AddBinaryVariable("b")
	c := model.AddBinaryVariable("c")

	first := NewExpression()
	first.AddTerm(a, 1.0)
	first.AddTerm(b, 1.0)
	first.Constant = -1.0
	model.AddConstraint("first", first, SenseLess)

	second := NewExpression()
	second.AddTerm(b, 1.0)
	second.AddTerm(c, 1.0)
	second.Constant = -1.0
	model.AddConstraint("second", second, SenseLess)

	model.SetupStructure()
	model.Update()
	return model
}

// TestSetupRelatedConstraints_UnionIsSortedAndDeduplicated checks the
// related-constraint union.
func TestSetupRelatedConstraints_UnionIsSortedAndDeduplicated(t *testing.T) {
	model := buildChainModel(t)

	move := &Move{Alterations: []Alteration{
		{Variable: 0, Value: 1},
		{Variable: 1, Value: 1},
	}}
	move.SetupRelatedConstraints(model)

	want := []int{0, 1}
	if len(move.RelatedConstraints) != len(want) {
		t.Fatalf("related constraints = %v, want %v", move.RelatedConstraints, want)
	}
	for i, ci := range want {
		if move.RelatedConstraints[i] != ci {
			t.Errorf("related[%d] = %d, want %d", i, move.RelatedConstraints[i], ci)
		}
	}
}

// TestFuse_OverlapRate checks the intersection-over-union overlap.
func TestFuse_OverlapRate(t *testing.T) {
	model := buildChainModel(t)

	moveA := &Move{Alterations: []Alteration{{Variable: 0, Value: 1}}, Sense: MoveSenseBinary}
	moveA.SetupRelatedConstraints(model)
	moveB := &Move{Alterations: []Alteration{{Variable: 1, Value: 0}}, Sense: MoveSenseBinary}
	moveB.SetupRelatedConstraints(model)

	fused := Fuse(moveA, moveB, model)

	// a touches {first}; b touches {first, second}: overlap = 1/2.
	if math.Abs(fused.OverlapRate-0.5) > Eps {
		t.Errorf("overlap rate = %v, want 0.5", fused.OverlapRate)
	}
	if fused.Sense != MoveSenseChain || !fused.IsSpecialNeighborhoodMove {
		t.Error("fused move must be a special chain move")
	}
	if len(fused.Alterations) != 2 {
		t.Errorf("fused alterations = %d, want 2", len(fused.Alterations))
	}
}

// TestHasDuplicateVariable detects repeated variables.
func TestHasDuplicateVariable(t *testing.T) {
	clean := &Move{Alterations: []Alteration{{Variable: 0, Value: 1}, {Variable: 1, Value: 0}}}
	if clean.HasDuplicateVariable() {
		t.Error("distinct variables reported as duplicate")
	}
	duplicated := &Move{Alterations: []Alteration{{Variable: 2, Value: 1}, {Variable: 2, Value: 0}}}
	if !duplicated.HasDuplicateVariable() {
		t.Error("duplicate variable not detected")
	}
}

// TestChainMoveStore_CurationPipeline exercises register, sort, dedup,
// and reduce.
func TestChainMoveStore_CurationPipeline(t *testing.T) {
	model := buildChainModel(t)
	store := NewChainMoveStore()
	store.Enable()

	makeMove := func(variable int, overlap float64) Move {
		move := Move{
			Alterations: []Alteration{
				{Variable: variable, Value: 1},
				{Variable: (variable + 1) % 3, Value: 0},
			},
			OverlapRate: overlap,
		}
		move.SetupRelatedConstraints(model)
		return move
	}

	store.Register(makeMove(0, 0.9))
	store.Register(makeMove(1, 0.4))
	store.Register(makeMove(1, 0.4)) // duplicate
	store.Register(makeMove(2, 0.6))

	store.Sort()
	store.Deduplicate()
	if len(store.Moves()) != 3 {
		t.Fatalf("after dedup: %d moves, want 3", len(store.Moves()))
	}

	// Ascending overlap order drops the highest-overlap entries on reduce.
	store.Reduce(2)
	moves := store.Moves()
	if len(moves) != 2 {
		t.Fatalf("after reduce: %d moves, want 2", len(moves))
	}
	for _, mv := range moves {
		if mv.OverlapRate > 0.6+Eps {
			t.Errorf("high-overlap move %v kept after reduce", mv.OverlapRate)
		}
	}

	// Enumeration yields only moves that change the current solution.
	out := store.Enumerate(model, AcceptAll, nil)
	if len(out) == 0 {
		t.Fatal("expected enumerable chain moves")
	}
	for _, mv := range out {
		if !mv.IsAvailable {
			t.Error("enumerated move is unavailable")
		}
	}

	// A consumed move disappears until availability is reset.
	out[0].IsAvailable = false
	reduced := store.Enumerate(model, AcceptAll, nil)
	if len(reduced) != len(out)-1 {
		t.Errorf("enumeration after consumption = %d, want %d", len(reduced), len(out)-1)
	}
	store.ResetAvailability()
	restored := store.Enumerate(model, AcceptAll, nil)
	if len(restored) != len(out) {
		t.Errorf("enumeration after reset = %d, want %d", len(restored), len(out))
	}
}
